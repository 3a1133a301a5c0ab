package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/muzz-matchmaker/internal/db"
)

// RevealRepository stores each match participant's current photo-reveal consent.
// Only the latest value is kept; there is no toggle history.
type RevealRepository struct {
	db *gorm.DB
}

// NewRevealRepository creates a new repository bound to the given DB connection.
func NewRevealRepository(database *gorm.DB) *RevealRepository {
	return &RevealRepository{db: database}
}

// Upsert sets userID's consent for matchID, overwriting value and timestamp.
func (r *RevealRepository) Upsert(ctx context.Context, matchID, userID uint64, consent bool) error {
	reveal := db.PhotoReveal{
		MatchID:    matchID,
		UserID:     userID,
		Consent:    consent,
		RevealedAt: r.db.NowFunc(),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "match_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"consent", "revealed_at"}),
		}).
		Create(&reveal).Error
	if err != nil {
		return fmt.Errorf("upsert photo reveal: %w", err)
	}
	return nil
}

// ForMatch returns the consent rows recorded for matchID.
func (r *RevealRepository) ForMatch(ctx context.Context, matchID uint64) ([]db.PhotoReveal, error) {
	var reveals []db.PhotoReveal
	err := r.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("user_id ASC").
		Find(&reveals).Error
	if err != nil {
		return nil, fmt.Errorf("list photo reveals: %w", err)
	}
	return reveals, nil
}

// ForMatches groups consent rows by match id.
func (r *RevealRepository) ForMatches(ctx context.Context, matchIDs []uint64) (map[uint64][]db.PhotoReveal, error) {
	out := make(map[uint64][]db.PhotoReveal, len(matchIDs))
	if len(matchIDs) == 0 {
		return out, nil
	}

	var reveals []db.PhotoReveal
	if err := r.db.WithContext(ctx).Where("match_id IN ?", matchIDs).Find(&reveals).Error; err != nil {
		return nil, fmt.Errorf("list photo reveals: %w", err)
	}
	for _, rv := range reveals {
		out[rv.MatchID] = append(out[rv.MatchID], rv)
	}
	return out, nil
}

// MutualReveal is true exactly when both participants of m currently consent.
func MutualReveal(m db.Match, reveals []db.PhotoReveal) bool {
	var a, b bool
	for _, rv := range reveals {
		switch rv.UserID {
		case m.UserAID:
			a = rv.Consent
		case m.UserBID:
			b = rv.Consent
		}
	}
	return a && b
}
