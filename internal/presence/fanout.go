package presence

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
)

// Relay carries events between server instances.
type Relay interface {
	Publish(ctx context.Context, env Envelope) error
}

// Envelope is an event addressed to a principal, tagged with the instance that sent it.
type Envelope struct {
	Origin    string `json:"origin"`
	Principal uint64 `json:"principal"`
	Event     Event  `json:"event"`
}

// Fanout delivers events to principals connected to this instance and, when a
// relay is set, to principals connected elsewhere.
type Fanout struct {
	registry *Registry
	relay    Relay
	instance string
	log      *slog.Logger
}

func NewFanout(registry *Registry, log *slog.Logger) *Fanout {
	if log == nil {
		log = slog.Default()
	}
	return &Fanout{
		registry: registry,
		instance: uuid.NewString(),
		log:      log.With("component", "presence"),
	}
}

// Registry exposes the local connection registry.
func (f *Fanout) Registry() *Registry { return f.registry }

// Instance is this process's relay origin id.
func (f *Fanout) Instance() string { return f.instance }

// SetRelay enables cross-instance delivery.
func (f *Fanout) SetRelay(relay Relay) { f.relay = relay }

// Deliver is fire-and-forget: it returns whether the event reached a local
// connection and never reports relay failures to the caller.
func (f *Fanout) Deliver(ctx context.Context, principal uint64, ev Event) bool {
	if f.registry.Deliver(principal, ev) {
		return true
	}
	if f.relay == nil {
		return false
	}

	env := Envelope{Origin: f.instance, Principal: principal, Event: ev}
	if err := f.relay.Publish(ctx, env); err != nil {
		f.log.Warn("relay publish failed", "principal", principal, "err", err)
	}
	return false
}

// Forward is the receive side of the relay. Envelopes this instance sent are skipped.
func (f *Fanout) Forward(env Envelope) bool {
	if env.Origin == f.instance {
		return false
	}
	return f.registry.Deliver(env.Principal, env.Event)
}

// pubsub is the slice of the Redis client the relay needs.
type pubsub interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	StartForwarder(ctx context.Context, channel string, log *slog.Logger, onMsg func(payload []byte)) error
}

// RedisRelay ships envelopes over a Redis pub/sub channel.
type RedisRelay struct {
	ps      pubsub
	channel string
	log     *slog.Logger
}

func NewRedisRelay(ps pubsub, channel string, log *slog.Logger) *RedisRelay {
	if log == nil {
		log = slog.Default()
	}
	return &RedisRelay{ps: ps, channel: channel, log: log.With("component", "presence-relay")}
}

func (r *RedisRelay) Publish(ctx context.Context, env Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return r.ps.Publish(ctx, r.channel, raw)
}

// Start subscribes and forwards every envelope to f until ctx is done.
func (r *RedisRelay) Start(ctx context.Context, f *Fanout) error {
	return r.ps.StartForwarder(ctx, r.channel, r.log, func(payload []byte) {
		var env Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			r.log.Warn("bad relay payload", "err", err)
			return
		}
		f.Forward(env)
	})
}
