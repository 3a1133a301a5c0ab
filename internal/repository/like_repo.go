package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/muzz-matchmaker/internal/db"
	"github.com/oggyb/muzz-matchmaker/internal/utils/pagination"
)

// LikeRepository provides data access methods for the Like model.
// Like rows are never deleted: mutual-like detection relies on existence.
type LikeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new repository bound to the given DB connection.
func NewLikeRepository(database *gorm.DB) *LikeRepository {
	return &LikeRepository{db: database}
}

// Insert records userID → targetID if absent.
//
// Behavior:
//   - Insert-or-ignore on the composite PK: a repeated like is not an error.
//   - Returns true only when a new row was written.
//
// Example:
//
//	created, err := repo.Insert(ctx, 1, 2) // user 1 liked user 2
func (r *LikeRepository) Insert(ctx context.Context, userID, targetID uint64) (bool, error) {
	like := db.Like{UserID: userID, TargetID: targetID}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&like)
	if res.Error != nil {
		return false, fmt.Errorf("insert like: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Exists checks whether userID has liked targetID.
func (r *LikeRepository) Exists(ctx context.Context, userID, targetID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("user_id = ? AND target_id = ?", userID, targetID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("lookup like: %w", err)
	}
	return count > 0, nil
}

// LikersAmong returns which of userIDs have liked targetID.
func (r *LikeRepository) LikersAmong(ctx context.Context, targetID uint64, userIDs []uint64) (map[uint64]bool, error) {
	out := make(map[uint64]bool, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	var likers []uint64
	err := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("target_id = ? AND user_id IN ?", targetID, userIDs).
		Pluck("user_id", &likers).Error
	if err != nil {
		return nil, fmt.Errorf("lookup likers: %w", err)
	}
	for _, id := range likers {
		out[id] = true
	}
	return out, nil
}

// incoming selects likes received by recipientID that were not liked back.
// An active match always implies a like back, so matched users drop out too.
func (r *LikeRepository) incoming(ctx context.Context, recipientID uint64) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("likes l").
		Where("l.target_id = ?", recipientID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM likes mine
				WHERE mine.user_id = ?
				  AND mine.target_id = l.user_id
			)`, recipientID)
}

// Incoming returns likes received by recipientID that it has not returned.
//
// Behavior:
//   - Ordered by created_at DESC, user_id DESC.
//   - Supports cursor-based pagination via paginationToken.
//
// Example:
//
//	repo.Incoming(ctx, 42, nil, 20) // first 20 people waiting on user 42
func (r *LikeRepository) Incoming(
	ctx context.Context,
	recipientID uint64,
	paginationToken *string,
	limit int,
) ([]db.Like, *string, error) {
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.incoming(ctx, recipientID).
		Select("l.*").
		Order("l.created_at DESC, l.user_id DESC").
		Limit(limit + 1)

	if !cursor.IsZero() {
		ts := time.UnixMilli(cursor.CreatedUnix).UTC()
		query = query.Where(
			"(l.created_at < ? OR (l.created_at = ? AND l.user_id < ?))",
			ts, ts, cursor.ID,
		)
	}

	var likes []db.Like
	if err := query.Find(&likes).Error; err != nil {
		return nil, nil, fmt.Errorf("list incoming likes: %w", err)
	}

	var nextToken *string
	if len(likes) > limit {
		last := likes[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			ID:          last.UserID,
			CreatedUnix: last.CreatedAt.UnixMilli(),
		})
		nextToken = &token
		likes = likes[:limit]
	}

	return likes, nextToken, nil
}

// CountIncoming counts the same population as Incoming.
func (r *LikeRepository) CountIncoming(ctx context.Context, recipientID uint64) (int64, error) {
	var count int64
	if err := r.incoming(ctx, recipientID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count incoming likes: %w", err)
	}
	return count, nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
