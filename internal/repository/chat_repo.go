package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/muzz-matchmaker/internal/db"
	"github.com/oggyb/muzz-matchmaker/internal/utils/pagination"
)

// ChatRepository provides data access for chats and their messages.
type ChatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new repository bound to the given DB connection.
func NewChatRepository(database *gorm.DB) *ChatRepository {
	return &ChatRepository{db: database}
}

// EnsureForMatch returns the chat of matchID, creating it on first use.
// Insert-or-ignore on the unique match_id keeps it at one chat per match.
func (r *ChatRepository) EnsureForMatch(ctx context.Context, matchID uint64) (db.Chat, error) {
	chat := db.Chat{MatchID: matchID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "match_id"}}, DoNothing: true}).
		Create(&chat).Error
	if err != nil {
		return db.Chat{}, fmt.Errorf("ensure chat: %w", err)
	}

	var out db.Chat
	if err := r.db.WithContext(ctx).Where("match_id = ?", matchID).First(&out).Error; err != nil {
		return db.Chat{}, fmt.Errorf("reload chat: %w", err)
	}
	return out, nil
}

// FindByID returns gorm.ErrRecordNotFound when the chat does not exist.
func (r *ChatRepository) FindByID(ctx context.Context, id uint64) (db.Chat, error) {
	var c db.Chat
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return db.Chat{}, err
	}
	return c, nil
}

// ForMatches returns the chats of the given matches keyed by match id.
func (r *ChatRepository) ForMatches(ctx context.Context, matchIDs []uint64) (map[uint64]db.Chat, error) {
	out := make(map[uint64]db.Chat, len(matchIDs))
	if len(matchIDs) == 0 {
		return out, nil
	}

	var chats []db.Chat
	if err := r.db.WithContext(ctx).Where("match_id IN ?", matchIDs).Find(&chats).Error; err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	for _, c := range chats {
		out[c.MatchID] = c
	}
	return out, nil
}

// AppendMessage stores a new message; messages are never edited afterwards.
func (r *ChatRepository) AppendMessage(ctx context.Context, chatID, senderID uint64, content string) (db.Message, error) {
	msg := db.Message{ChatID: chatID, SenderID: senderID, Content: content}
	if err := r.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return db.Message{}, fmt.Errorf("append message: %w", err)
	}
	return msg, nil
}

// Messages lists a chat oldest first.
//
// Behavior:
//   - Ordered by id ASC (ids grow with insertion).
//   - Supports cursor-based pagination via paginationToken.
func (r *ChatRepository) Messages(
	ctx context.Context,
	chatID uint64,
	paginationToken *string,
	limit int,
) ([]db.Message, *string, error) {
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("id ASC").
		Limit(limit + 1)
	if cursor.ID > 0 {
		query = query.Where("id > ?", cursor.ID)
	}

	var msgs []db.Message
	if err := query.Find(&msgs).Error; err != nil {
		return nil, nil, fmt.Errorf("list messages: %w", err)
	}

	var nextToken *string
	if len(msgs) > limit {
		token, _ := pagination.Encode(pagination.Cursor{ID: msgs[limit-1].ID})
		nextToken = &token
		msgs = msgs[:limit]
	}
	return msgs, nextToken, nil
}

// MarkRead stamps read_at on every unread message in chatID not sent by readerID.
func (r *ChatRepository) MarkRead(ctx context.Context, chatID, readerID uint64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("chat_id = ? AND sender_id <> ? AND read_at IS NULL", chatID, readerID).
		Update("read_at", r.db.NowFunc())
	if res.Error != nil {
		return 0, fmt.Errorf("mark read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// LastMessages returns the newest message of each chat that has one.
func (r *ChatRepository) LastMessages(ctx context.Context, chatIDs []uint64) (map[uint64]db.Message, error) {
	out := make(map[uint64]db.Message, len(chatIDs))
	if len(chatIDs) == 0 {
		return out, nil
	}

	latest := r.db.Model(&db.Message{}).
		Select("MAX(id)").
		Where("chat_id IN ?", chatIDs).
		Group("chat_id")

	var msgs []db.Message
	if err := r.db.WithContext(ctx).Where("id IN (?)", latest).Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("last messages: %w", err)
	}
	for _, m := range msgs {
		out[m.ChatID] = m
	}
	return out, nil
}

// UnreadCounts counts, per chat, messages readerID has not read yet.
func (r *ChatRepository) UnreadCounts(ctx context.Context, chatIDs []uint64, readerID uint64) (map[uint64]int64, error) {
	out := make(map[uint64]int64, len(chatIDs))
	if len(chatIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		ChatID uint64
		Unread int64
	}
	err := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Select("chat_id, COUNT(*) AS unread").
		Where("chat_id IN ? AND sender_id <> ? AND read_at IS NULL", chatIDs, readerID).
		Group("chat_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("unread counts: %w", err)
	}
	for _, row := range rows {
		out[row.ChatID] = row.Unread
	}
	return out, nil
}
