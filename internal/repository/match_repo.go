package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/muzz-matchmaker/internal/db"
)

// MatchRepository provides data access methods for the Match model.
// Rows are keyed by the normalized pair (user_a_id < user_b_id).
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new repository bound to the given DB connection.
func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// FindByID returns gorm.ErrRecordNotFound when the match does not exist.
func (r *MatchRepository) FindByID(ctx context.Context, id uint64) (db.Match, error) {
	var m db.Match
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return db.Match{}, err
	}
	return m, nil
}

// FindByPair looks a match up by its two users, in any order.
func (r *MatchRepository) FindByPair(ctx context.Context, x, y uint64) (db.Match, error) {
	a, b := Normalize(x, y)

	var m db.Match
	err := r.db.WithContext(ctx).
		Where("user_a_id = ? AND user_b_id = ?", a, b).
		First(&m).Error
	if err != nil {
		return db.Match{}, err
	}
	return m, nil
}

// UpsertActive makes the pair's match active and returns the row.
//
// Behavior:
//   - No row for the pair → one is inserted with status=active.
//   - Existing row (active or terminal) → status is set back to active; the
//     id and created_at are kept.
//   - The unique pair index is the arbiter, so concurrent callers converge
//     on a single row.
//
// Example:
//
//	m, err := repo.UpsertActive(ctx, 7, 3) // stored as (3,7)
func (r *MatchRepository) UpsertActive(ctx context.Context, x, y uint64) (db.Match, error) {
	a, b := Normalize(x, y)

	m := db.Match{UserAID: a, UserBID: b, Status: db.MatchActive}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_a_id"}, {Name: "user_b_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"status":     string(db.MatchActive),
				"updated_at": r.db.NowFunc(),
			}),
		}).
		Create(&m).Error
	if err != nil {
		return db.Match{}, fmt.Errorf("upsert match: %w", err)
	}

	// re-read: on conflict the driver does not reliably report the existing id
	m, err = r.FindByPair(ctx, a, b)
	if err != nil {
		return db.Match{}, fmt.Errorf("reload match: %w", err)
	}
	return m, nil
}

// Transition moves an active match to a terminal status on behalf of actorID.
//
// Behavior:
//   - Conditional update: only rows that are active and have actorID as a
//     participant change.
//   - Returns false when nothing matched (absent, terminal or foreign match).
func (r *MatchRepository) Transition(ctx context.Context, matchID, actorID uint64, to db.MatchStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("id = ? AND status = ?", matchID, string(db.MatchActive)).
		Where("user_a_id = ? OR user_b_id = ?", actorID, actorID).
		Updates(map[string]interface{}{
			"status":     string(to),
			"updated_at": r.db.NowFunc(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("transition match: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ListActiveForUser returns userID's active matches, newest first.
func (r *MatchRepository) ListActiveForUser(ctx context.Context, userID uint64) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("status = ?", string(db.MatchActive)).
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Find(&matches).Error
	if err != nil {
		return nil, fmt.Errorf("list active matches: %w", err)
	}
	return matches, nil
}
