package profile

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"gorm.io/gorm"

	"github.com/oggyb/muzz-matchmaker/internal/app"
	"github.com/oggyb/muzz-matchmaker/internal/auth"
	"github.com/oggyb/muzz-matchmaker/internal/compatibility"
	"github.com/oggyb/muzz-matchmaker/internal/db"
	svcErr "github.com/oggyb/muzz-matchmaker/internal/errors"
	"github.com/oggyb/muzz-matchmaker/internal/repository"
)

// Summary is the public view of a user shown to other principals.
type Summary struct {
	ID          uint64             `json:"id"`
	Name        string             `json:"name"`
	Age         int                `json:"age"`
	Bio         string             `json:"bio"`
	Interests   []string           `json:"interests"`
	Personality map[string]float64 `json:"personality"`
	Photos      []string           `json:"photos"`
}

// Summarize builds the public view of u; collections are never nil.
func Summarize(u db.User) Summary {
	s := Summary{
		ID:          u.ID,
		Name:        u.Name,
		Age:         u.Age,
		Bio:         u.Bio,
		Interests:   []string(u.Interests),
		Personality: u.Personality.Data(),
		Photos:      []string(u.Photos),
	}
	if s.Interests == nil {
		s.Interests = []string{}
	}
	if s.Personality == nil {
		s.Personality = map[string]float64{}
	}
	if s.Photos == nil {
		s.Photos = []string{}
	}
	return s
}

type GetProfileRequest struct {
	UserID string `json:"user_id"`
}

type GetProfileResponse struct {
	Profile Summary `json:"profile"`
}

type UpdateProfileRequest struct {
	Bio         string             `json:"bio"`
	Interests   []string           `json:"interests"`
	Personality map[string]float64 `json:"personality"`
	Photos      []string           `json:"photos"`
}

type UpdateProfileResponse struct {
	Profile Summary `json:"profile"`
}

// Service implements the Profile gRPC API.
type Service struct {
	appCtx *app.AppContext
	store  *repository.Store
}

func NewProfileService(appCtx *app.AppContext) *Service {
	return &Service{appCtx: appCtx, store: appCtx.Store}
}

// GetProfile returns any user's public profile.
func (s *Service) GetProfile(ctx context.Context, req *GetProfileRequest) (*GetProfileResponse, error) {
	if _, err := auth.UserID(ctx); err != nil {
		return nil, svcErr.Map(err)
	}
	userID, err := auth.ParseID(req.UserID, "user_id")
	if err != nil {
		return nil, svcErr.Map(err)
	}

	u, err := s.store.Users.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.Map(svcErr.NotFound("user not found"))
	} else if err != nil {
		s.appCtx.Logger.Error("GetProfile failed", "user", userID, "err", err)
		return nil, svcErr.Map(err)
	}
	return &GetProfileResponse{Profile: Summarize(u)}, nil
}

// UpdateProfile overwrites the principal's own editable fields.
//
// Behavior:
//   - Interests are trimmed, lower-cased and de-duplicated; blanks are dropped.
//   - Personality keys must be one of the five axes, values within [0,1].
//   - Photos keep their order; blanks are dropped.
func (s *Service) UpdateProfile(ctx context.Context, req *UpdateProfileRequest) (*UpdateProfileResponse, error) {
	me, err := auth.UserID(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	personality, err := validatePersonality(req.Personality)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	if _, err := s.store.Users.FindByID(ctx, me); errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.Map(svcErr.NotFound("user not found"))
	} else if err != nil {
		return nil, svcErr.Map(err)
	}

	update := repository.ProfileUpdate{
		Bio:         strings.TrimSpace(req.Bio),
		Interests:   NormalizeInterests(req.Interests),
		Personality: personality,
		Photos:      compact(req.Photos),
	}
	if err := s.store.Users.UpdateProfile(ctx, me, update); err != nil {
		s.appCtx.Logger.Error("UpdateProfile failed", "user", me, "err", err)
		return nil, svcErr.Map(err)
	}

	u, err := s.store.Users.FindByID(ctx, me)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	s.appCtx.Logger.Debug("profile updated", "user", me, "interests", len(update.Interests))
	return &UpdateProfileResponse{Profile: Summarize(u)}, nil
}

// NormalizeInterests trims, lower-cases and de-duplicates, keeping first-seen order.
func NormalizeInterests(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, raw := range in {
		v := strings.ToLower(strings.TrimSpace(raw))
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func validatePersonality(in map[string]float64) (db.Personality, error) {
	out := make(db.Personality, len(in))
	for axis, v := range in {
		if !slices.Contains(compatibility.Axes, axis) {
			return nil, svcErr.InvalidArgument(fmt.Sprintf("unknown personality axis %q", axis))
		}
		if math.IsNaN(v) || v < 0 || v > 1 {
			return nil, svcErr.InvalidArgument(fmt.Sprintf("personality %s must be within [0,1]", axis))
		}
		out[axis] = v
	}
	return out, nil
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
