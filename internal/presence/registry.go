package presence

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const EventMessageReceived = "message_received"

// Event is what a connected client receives.
type Event struct {
	Type      string    `json:"type"`
	ChatID    uint64    `json:"chat_id"`
	SenderID  uint64    `json:"sender_id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conn is a live connection handle owned by the transport.
// Send must not block.
type Conn interface {
	ID() string
	Send(Event) bool
}

// ChannelConn is a Conn backed by a buffered channel; a full buffer drops the event.
type ChannelConn struct {
	id     string
	stream chan Event
}

func NewChannelConn(buffer int) *ChannelConn {
	if buffer <= 0 {
		buffer = 16
	}
	return &ChannelConn{
		id:     uuid.NewString(),
		stream: make(chan Event, buffer),
	}
}

func (c *ChannelConn) ID() string { return c.id }

func (c *ChannelConn) Send(ev Event) bool {
	select {
	case c.stream <- ev:
		return true
	default:
		return false
	}
}

// Events is the receive side consumed by the transport.
func (c *ChannelConn) Events() <-chan Event { return c.stream }

// Registry maps a principal to its single live connection.
// Safe for concurrent use; every mutation is a single-entry insert or delete.
type Registry struct {
	mu          sync.RWMutex
	byPrincipal map[uint64]Conn
	byConn      map[string]uint64
}

func NewRegistry() *Registry {
	return &Registry{
		byPrincipal: make(map[uint64]Conn),
		byConn:      make(map[string]uint64),
	}
}

// Register makes conn the principal's handle, replacing any previous one.
func (r *Registry) Register(principal uint64, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.byPrincipal[principal]; ok {
		delete(r.byConn, prev.ID())
	}
	r.byPrincipal[principal] = conn
	r.byConn[conn.ID()] = principal
}

// Unregister forgets conn. A handle that was already replaced is a no-op,
// so it never evicts the newer connection.
func (r *Registry) Unregister(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	principal, ok := r.byConn[conn.ID()]
	if !ok {
		return
	}
	delete(r.byConn, conn.ID())
	delete(r.byPrincipal, principal)
}

// Deliver hands ev to the principal's connection. Returns false when the
// principal is offline here or its buffer is full.
func (r *Registry) Deliver(principal uint64, ev Event) bool {
	r.mu.RLock()
	conn, ok := r.byPrincipal[principal]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	return conn.Send(ev)
}

func (r *Registry) Online(principal uint64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byPrincipal[principal]
	return ok
}
