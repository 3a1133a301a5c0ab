package repository

import (
	"context"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/oggyb/muzz-matchmaker/internal/db"
)

// UserRepository provides data access for profiles and suggestion candidates.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// FindByID returns gorm.ErrRecordNotFound when the user does not exist.
func (r *UserRepository) FindByID(ctx context.Context, id uint64) (db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return db.User{}, err
	}
	return u, nil
}

// FindByIDs loads users keyed by id; unknown ids are simply absent.
func (r *UserRepository) FindByIDs(ctx context.Context, ids []uint64) (map[uint64]db.User, error) {
	out := make(map[uint64]db.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var users []db.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// ProfileUpdate carries the owner-editable profile fields. All of them are
// written, including empty values.
type ProfileUpdate struct {
	Bio         string
	Interests   []string
	Personality db.Personality
	Photos      []string
}

// UpdateProfile overwrites the editable profile fields of user id.
func (r *UserRepository) UpdateProfile(ctx context.Context, id uint64, p ProfileUpdate) error {
	err := r.db.WithContext(ctx).
		Model(&db.User{ID: id}).
		Select("bio", "interests", "personality", "photos", "updated_at").
		Updates(db.User{
			Bio:         p.Bio,
			Interests:   datatypes.NewJSONSlice(p.Interests),
			Personality: datatypes.NewJSONType(p.Personality),
			Photos:      datatypes.NewJSONSlice(p.Photos),
		}).Error
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// CandidateQuery selects profiles to rank for a requester.
type CandidateQuery struct {
	RequesterID uint64
	// ExcludeActivePartners also drops users in an active match with the requester.
	ExcludeActivePartners bool
	// AfterID resumes the scan after this user id; 0 starts from the beginning.
	AfterID uint64
	// Limit bounds one batch; 0 means unbounded.
	Limit int
}

// Candidates returns users the requester may be shown.
//
// Behavior:
//   - Excludes the requester and everyone the requester already liked
//     (pending or matched: like rows are never deleted).
//   - Optionally excludes active-match partners.
//   - Ordered by id ascending; callers walk the whole set batch by batch
//     with AfterID set to the last id seen.
//
// Example:
//
//	repo.Candidates(ctx, CandidateQuery{RequesterID: 42, AfterID: lastID, Limit: 500})
func (r *UserRepository) Candidates(ctx context.Context, q CandidateQuery) ([]db.User, error) {
	query := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("users.id <> ?", q.RequesterID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM likes l
				WHERE l.user_id = ?
				  AND l.target_id = users.id
			)`, q.RequesterID)

	if q.ExcludeActivePartners {
		query = query.Where(`
			NOT EXISTS (
				SELECT 1 FROM matches m
				WHERE m.status = ?
				  AND ((m.user_a_id = ? AND m.user_b_id = users.id)
				    OR (m.user_b_id = ? AND m.user_a_id = users.id))
			)`, string(db.MatchActive), q.RequesterID, q.RequesterID)
	}

	if q.AfterID > 0 {
		query = query.Where("users.id > ?", q.AfterID)
	}
	query = query.Order("users.id ASC")
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var users []db.User
	if err := query.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	return users, nil
}
