package chat

import (
	"context"
	"errors"
	"sort"
	"strings"
	"unicode/utf8"

	"google.golang.org/grpc"
	"gorm.io/gorm"

	"github.com/oggyb/muzz-matchmaker/internal/app"
	"github.com/oggyb/muzz-matchmaker/internal/auth"
	"github.com/oggyb/muzz-matchmaker/internal/db"
	svcErr "github.com/oggyb/muzz-matchmaker/internal/errors"
	"github.com/oggyb/muzz-matchmaker/internal/presence"
	"github.com/oggyb/muzz-matchmaker/internal/repository"
	"github.com/oggyb/muzz-matchmaker/internal/service/profile"
	"github.com/oggyb/muzz-matchmaker/internal/utils/pagination"
)

const (
	defaultMessages   = 50
	maxMessages       = 100
	maxContentLength  = 2000
	noMessagesPreview = "No messages yet"
)

type ListChatsRequest struct{}

type Chat struct {
	ChatID      uint64          `json:"chat_id"`
	MatchID     uint64          `json:"match_id"`
	Partner     profile.Summary `json:"partner"`
	LastMessage string          `json:"last_message"`
	Timestamp   int64           `json:"timestamp"`
	UnreadCount int64           `json:"unread_count"`
}

type ListChatsResponse struct {
	Chats []Chat `json:"chats"`
}

type ListMessagesRequest struct {
	ChatID          string  `json:"chat_id"`
	PaginationToken *string `json:"pagination_token,omitempty"`
	Limit           int32   `json:"limit"`
}

type Message struct {
	ID        uint64 `json:"id"`
	ChatID    uint64 `json:"chat_id"`
	SenderID  uint64 `json:"sender_id"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
	Read      bool   `json:"read"`
}

type ListMessagesResponse struct {
	Messages            []Message `json:"messages"`
	NextPaginationToken *string   `json:"next_pagination_token,omitempty"`
}

type SendMessageRequest struct {
	ChatID  string `json:"chat_id"`
	Content string `json:"content"`
}

type SendMessageResponse struct {
	Message   Message `json:"message"`
	Delivered bool    `json:"delivered"`
}

type MarkReadRequest struct {
	ChatID string `json:"chat_id"`
}

type MarkReadResponse struct {
	Marked int64 `json:"marked"`
}

type ConnectRequest struct{}

// Service implements the Chat gRPC API on top of the chat repository and
// the presence fan-out.
type Service struct {
	appCtx *app.AppContext
	store  *repository.Store
}

func NewChatService(appCtx *app.AppContext) *Service {
	return &Service{appCtx: appCtx, store: appCtx.Store}
}

// ListChats returns the chats of the principal's active matches.
//
// Behavior:
//   - Each chat carries the partner summary, the last message (or a
//     placeholder) and the number of partner messages still unread.
//   - Timestamp is the last message time, or the match creation when empty.
//   - Newest first; ties broken by chat id descending.
func (s *Service) ListChats(ctx context.Context, _ *ListChatsRequest) (*ListChatsResponse, error) {
	me, err := auth.UserID(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	matches, err := s.store.Matches.ListActiveForUser(ctx, me)
	if err != nil {
		s.appCtx.Logger.Error("ListActiveForUser failed", "user", me, "err", err)
		return nil, svcErr.Map(err)
	}

	matchIDs := make([]uint64, 0, len(matches))
	partnerIDs := make([]uint64, 0, len(matches))
	for _, m := range matches {
		matchIDs = append(matchIDs, m.ID)
		partnerIDs = append(partnerIDs, m.Partner(me))
	}

	chats, err := s.store.Chats.ForMatches(ctx, matchIDs)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	chatIDs := make([]uint64, 0, len(chats))
	for _, c := range chats {
		chatIDs = append(chatIDs, c.ID)
	}

	partners, err := s.store.Users.FindByIDs(ctx, partnerIDs)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	last, err := s.store.Chats.LastMessages(ctx, chatIDs)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	unread, err := s.store.Chats.UnreadCounts(ctx, chatIDs, me)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	resp := &ListChatsResponse{Chats: make([]Chat, 0, len(chats))}
	for _, m := range matches {
		c, ok := chats[m.ID]
		if !ok {
			continue
		}
		partner, ok := partners[m.Partner(me)]
		if !ok {
			continue
		}

		item := Chat{
			ChatID:      c.ID,
			MatchID:     m.ID,
			Partner:     profile.Summarize(partner),
			LastMessage: noMessagesPreview,
			Timestamp:   m.CreatedAt.UnixMilli(),
			UnreadCount: unread[c.ID],
		}
		if msg, ok := last[c.ID]; ok {
			item.LastMessage = msg.Content
			item.Timestamp = msg.CreatedAt.UnixMilli()
		}
		resp.Chats = append(resp.Chats, item)
	}

	sort.SliceStable(resp.Chats, func(i, j int) bool {
		a, b := resp.Chats[i], resp.Chats[j]
		if a.Timestamp != b.Timestamp {
			return a.Timestamp > b.Timestamp
		}
		return a.ChatID > b.ChatID
	})
	return resp, nil
}

// ListMessages pages through a chat oldest first. Participants only.
func (s *Service) ListMessages(ctx context.Context, req *ListMessagesRequest) (*ListMessagesResponse, error) {
	me, err := auth.UserID(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	c, _, err := access(ctx, s.store, me, req.ChatID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	limit := pagination.ClampLimit(int(req.Limit), defaultMessages, maxMessages)
	msgs, nextToken, err := s.store.Chats.Messages(ctx, c.ID, req.PaginationToken, limit)
	if errors.Is(err, pagination.ErrInvalidToken) {
		return nil, svcErr.Map(svcErr.InvalidArgument("pagination_token is invalid"))
	} else if err != nil {
		s.appCtx.Logger.Error("Messages failed", "chat", c.ID, "err", err)
		return nil, svcErr.Map(err)
	}

	resp := &ListMessagesResponse{Messages: make([]Message, 0, len(msgs)), NextPaginationToken: nextToken}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, toMessage(m))
	}
	return resp, nil
}

// SendMessage appends a message to the chat of an active match and pushes a
// message_received event to the partner.
//
// Behavior:
//   - Content is trimmed and must hold 1..2000 characters.
//   - Chat absent, or its match no longer active → NotFound.
//   - Principal not a participant → Forbidden.
//   - The active check and the append share one transaction, so a message
//     never lands in a chat closed concurrently.
//   - The message is stored before delivery; a partner that is offline or
//     behind only misses the push.
func (s *Service) SendMessage(ctx context.Context, req *SendMessageRequest) (*SendMessageResponse, error) {
	me, err := auth.UserID(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, svcErr.Map(svcErr.InvalidArgument("content must not be empty"))
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return nil, svcErr.Map(svcErr.InvalidArgument("content must be at most 2000 characters"))
	}

	var (
		c   db.Chat
		m   db.Match
		msg db.Message
	)
	err = s.store.Atomic(ctx, func(tx *repository.Store) error {
		var err error
		c, m, err = access(ctx, tx, me, req.ChatID)
		if err != nil {
			return err
		}
		if m.Status != db.MatchActive {
			return svcErr.NotFound("chat not found or match closed")
		}
		msg, err = tx.Chats.AppendMessage(ctx, c.ID, me, content)
		return err
	})
	if err != nil {
		if !errors.Is(err, svcErr.ErrNotFound) && !errors.Is(err, svcErr.ErrForbidden) && !errors.Is(err, svcErr.ErrInvalidArgument) {
			s.appCtx.Logger.Error("SendMessage failed", "sender", me, "chat", req.ChatID, "err", err)
		}
		return nil, svcErr.Map(err)
	}

	delivered := s.appCtx.Presence.Deliver(ctx, m.Partner(me), presence.Event{
		Type:      presence.EventMessageReceived,
		ChatID:    c.ID,
		SenderID:  me,
		Content:   msg.Content,
		Timestamp: msg.CreatedAt,
	})
	s.appCtx.Logger.Debug("message sent", "chat", c.ID, "sender", me, "delivered", delivered)

	return &SendMessageResponse{Message: toMessage(msg), Delivered: delivered}, nil
}

// MarkRead stamps read_at on the partner's unread messages.
func (s *Service) MarkRead(ctx context.Context, req *MarkReadRequest) (*MarkReadResponse, error) {
	me, err := auth.UserID(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	c, _, err := access(ctx, s.store, me, req.ChatID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	n, err := s.store.Chats.MarkRead(ctx, c.ID, me)
	if err != nil {
		s.appCtx.Logger.Error("MarkRead failed", "chat", c.ID, "err", err)
		return nil, svcErr.Map(err)
	}
	return &MarkReadResponse{Marked: n}, nil
}

// Connect holds the stream open as the principal's presence connection and
// forwards every event delivered to it. A newer stream from the same
// principal takes over; this one then idles until the client leaves.
func (s *Service) Connect(_ *ConnectRequest, stream grpc.ServerStream) error {
	ctx := stream.Context()
	me, err := auth.UserID(ctx)
	if err != nil {
		return svcErr.Map(err)
	}

	conn := presence.NewChannelConn(s.appCtx.Config.Presence.Buffer)
	registry := s.appCtx.Presence.Registry()
	registry.Register(me, conn)
	defer registry.Unregister(conn)

	s.appCtx.Logger.Debug("presence connected", "user", me, "conn", conn.ID())
	defer s.appCtx.Logger.Debug("presence disconnected", "user", me, "conn", conn.ID())

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-conn.Events():
			if err := stream.SendMsg(&ev); err != nil {
				return err
			}
		}
	}
}

// access loads the chat and its match through store and checks the principal
// takes part.
func access(ctx context.Context, store *repository.Store, me uint64, rawChatID string) (db.Chat, db.Match, error) {
	chatID, err := auth.ParseID(rawChatID, "chat_id")
	if err != nil {
		return db.Chat{}, db.Match{}, err
	}

	c, err := store.Chats.FindByID(ctx, chatID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Chat{}, db.Match{}, svcErr.NotFound("chat not found")
	} else if err != nil {
		return db.Chat{}, db.Match{}, err
	}

	m, err := store.Matches.FindByID(ctx, c.MatchID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Chat{}, db.Match{}, svcErr.NotFound("chat not found")
	} else if err != nil {
		return db.Chat{}, db.Match{}, err
	}
	if !m.HasParticipant(me) {
		return db.Chat{}, db.Match{}, svcErr.Forbidden("not a participant in this chat")
	}
	return c, m, nil
}

func toMessage(m db.Message) Message {
	return Message{
		ID:        m.ID,
		ChatID:    m.ChatID,
		SenderID:  m.SenderID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt.UnixMilli(),
		Read:      m.ReadAt != nil,
	}
}
