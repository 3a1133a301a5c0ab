package match

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/oggyb/muzz-matchmaker/internal/app"
	"github.com/oggyb/muzz-matchmaker/internal/auth"
	"github.com/oggyb/muzz-matchmaker/internal/db"
	svcErr "github.com/oggyb/muzz-matchmaker/internal/errors"
	"github.com/oggyb/muzz-matchmaker/internal/repository"
	"github.com/oggyb/muzz-matchmaker/internal/service/profile"
)

const (
	ActionLike = "like"
	ActionPass = "pass"
)

type ActRequest struct {
	TargetUserID string `json:"target_user_id"`
	Action       string `json:"action"`
}

type ActResponse struct {
	Matched bool   `json:"matched"`
	Message string `json:"message"`
	MatchID uint64 `json:"match_id,omitempty"`
	ChatID  uint64 `json:"chat_id,omitempty"`
}

type MatchRequest struct {
	MatchID string `json:"match_id"`
}

type TransitionResponse struct {
	Message string `json:"message"`
}

type SetPhotoRevealRequest struct {
	MatchID string `json:"match_id"`
	Consent bool   `json:"consent"`
}

type SetPhotoRevealResponse struct {
	Message string `json:"message"`
	Mutual  bool   `json:"mutual"`
}

type GetPhotoRevealResponse struct {
	// Consents maps participant user id → latest consent; participants that
	// never answered are absent.
	Consents map[string]bool `json:"consents"`
	Mutual   bool            `json:"mutual"`
}

type ListMatchesRequest struct{}

type Match struct {
	MatchID           uint64          `json:"match_id"`
	Partner           profile.Summary `json:"partner"`
	ChatID            uint64          `json:"chat_id"`
	MatchedAt         int64           `json:"matched_at"`
	MutualPhotoReveal bool            `json:"mutual_photo_reveal"`
}

type ListMatchesResponse struct {
	Matches []Match `json:"matches"`
}

// Service implements the Match gRPC API: the like → match → chat → reveal →
// unmatch/block lifecycle.
type Service struct {
	appCtx *app.AppContext
	store  *repository.Store
}

func NewMatchService(appCtx *app.AppContext) *Service {
	return &Service{appCtx: appCtx, store: appCtx.Store}
}

// Act records a like or a pass from the principal on a target user.
//
// Behavior:
//   - Validates ids (positive, different) and the action before any store access.
//   - pass → acknowledged, nothing is persisted.
//   - like → one serializable transaction: insert-or-ignore the like, check the
//     reciprocal like, and on mutual interest upsert the pair's match to active
//     and ensure its chat.
//   - Conflicting concurrent transactions are re-run by Store.Atomic, so
//     simultaneous reciprocal likes end with exactly one match and one chat.
//
// Example:
//
//	svc.Act(ctx, &ActRequest{TargetUserID: "2", Action: "like"})
func (s *Service) Act(ctx context.Context, req *ActRequest) (*ActResponse, error) {
	me, err := auth.UserID(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	target, err := auth.ParseID(req.TargetUserID, "target_user_id")
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if me == target {
		return nil, svcErr.Map(svcErr.InvalidArgument("cannot act on yourself"))
	}

	action := strings.ToLower(strings.TrimSpace(req.Action))
	switch action {
	case ActionPass:
		s.appCtx.Logger.Debug("pass acknowledged", "actor", me, "target", target)
		return &ActResponse{Message: "Passed"}, nil
	case ActionLike:
	default:
		return nil, svcErr.Map(svcErr.InvalidArgument("action must be like or pass"))
	}

	if _, err := s.store.Users.FindByID(ctx, target); errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.Map(svcErr.NotFound("user not found"))
	} else if err != nil {
		s.appCtx.Logger.Error("load target failed", "target", target, "err", err)
		return nil, svcErr.Map(err)
	}

	var (
		created bool
		resp    *ActResponse
	)
	err = s.store.Atomic(ctx, func(tx *repository.Store) error {
		var err error
		created, err = tx.Likes.Insert(ctx, me, target)
		if err != nil {
			return err
		}

		mutual, err := tx.Likes.Exists(ctx, target, me)
		if err != nil {
			return err
		}
		if !mutual {
			resp = &ActResponse{Message: "Like recorded"}
			return nil
		}

		m, err := tx.Matches.UpsertActive(ctx, me, target)
		if err != nil {
			return err
		}
		chat, err := tx.Chats.EnsureForMatch(ctx, m.ID)
		if err != nil {
			return err
		}
		resp = &ActResponse{Matched: true, Message: "It's a match!", MatchID: m.ID, ChatID: chat.ID}
		return nil
	})
	if err != nil {
		s.appCtx.Logger.Error("Act failed", "actor", me, "target", target, "err", err)
		return nil, svcErr.Map(err)
	}

	// a new like changes who is waiting on whom, on both sides
	if created && s.appCtx.RedisCache != nil {
		if err := s.appCtx.RedisCache.InvalidateIncomingLikes(ctx, target, me); err != nil {
			s.appCtx.Logger.Warn("like count invalidation failed", "err", err)
		}
	}

	s.appCtx.Logger.Debug("like recorded", "actor", me, "target", target, "matched", resp.Matched, "match_id", resp.MatchID)
	return resp, nil
}

// Unmatch closes an active match the principal takes part in.
func (s *Service) Unmatch(ctx context.Context, req *MatchRequest) (*TransitionResponse, error) {
	if err := s.transition(ctx, req.MatchID, db.MatchUnmatched); err != nil {
		return nil, err
	}
	return &TransitionResponse{Message: "Unmatched"}, nil
}

// Block closes an active match the principal takes part in, as blocked.
func (s *Service) Block(ctx context.Context, req *MatchRequest) (*TransitionResponse, error) {
	if err := s.transition(ctx, req.MatchID, db.MatchBlocked); err != nil {
		return nil, err
	}
	return &TransitionResponse{Message: "Blocked"}, nil
}

// transition checks and moves the match in one transaction.
//
// Behavior:
//   - Absent match → NotFound.
//   - Principal not a participant → Forbidden.
//   - Match already terminal → NotFound.
//   - Nothing is written unless every check passes.
func (s *Service) transition(ctx context.Context, rawMatchID string, to db.MatchStatus) error {
	me, err := auth.UserID(ctx)
	if err != nil {
		return svcErr.Map(err)
	}
	matchID, err := auth.ParseID(rawMatchID, "match_id")
	if err != nil {
		return svcErr.Map(err)
	}

	err = s.store.Atomic(ctx, func(tx *repository.Store) error {
		m, err := tx.Matches.FindByID(ctx, matchID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return svcErr.NotFound("match not found")
		} else if err != nil {
			return err
		}
		if !m.HasParticipant(me) {
			return svcErr.Forbidden("not a participant in this match")
		}
		if m.Status != db.MatchActive {
			return svcErr.NotFound("match not found or already closed")
		}

		ok, err := tx.Matches.Transition(ctx, matchID, me, to)
		if err != nil {
			return err
		}
		if !ok {
			return svcErr.NotFound("match not found or already closed")
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, svcErr.ErrNotFound) && !errors.Is(err, svcErr.ErrForbidden) {
			s.appCtx.Logger.Error("match transition failed", "match", matchID, "to", to, "err", err)
		}
		return svcErr.Map(err)
	}

	s.appCtx.Logger.Info("match closed", "match", matchID, "actor", me, "status", to)
	return nil
}

// SetPhotoReveal records the principal's consent and returns the mutual flag.
// The match must be active and the principal one of its participants.
func (s *Service) SetPhotoReveal(ctx context.Context, req *SetPhotoRevealRequest) (*SetPhotoRevealResponse, error) {
	me, err := auth.UserID(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	matchID, err := auth.ParseID(req.MatchID, "match_id")
	if err != nil {
		return nil, svcErr.Map(err)
	}

	var mutual bool
	err = s.store.Atomic(ctx, func(tx *repository.Store) error {
		m, err := tx.Matches.FindByID(ctx, matchID)
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && m.Status != db.MatchActive) {
			return svcErr.NotFound("match not found")
		} else if err != nil {
			return err
		}
		if !m.HasParticipant(me) {
			return svcErr.Forbidden("not a participant in this match")
		}

		if err := tx.Reveals.Upsert(ctx, matchID, me, req.Consent); err != nil {
			return err
		}
		reveals, err := tx.Reveals.ForMatch(ctx, matchID)
		if err != nil {
			return err
		}
		mutual = repository.MutualReveal(m, reveals)
		return nil
	})
	if err != nil {
		return nil, svcErr.Map(err)
	}

	return &SetPhotoRevealResponse{Message: "Photo reveal consent updated", Mutual: mutual}, nil
}

// GetPhotoReveal returns each participant's latest consent plus the derived mutual flag.
func (s *Service) GetPhotoReveal(ctx context.Context, req *MatchRequest) (*GetPhotoRevealResponse, error) {
	me, err := auth.UserID(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	matchID, err := auth.ParseID(req.MatchID, "match_id")
	if err != nil {
		return nil, svcErr.Map(err)
	}

	m, err := s.store.Matches.FindByID(ctx, matchID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.Map(svcErr.NotFound("match not found"))
	} else if err != nil {
		return nil, svcErr.Map(err)
	}
	if !m.HasParticipant(me) {
		return nil, svcErr.Map(svcErr.Forbidden("not a participant in this match"))
	}

	reveals, err := s.store.Reveals.ForMatch(ctx, matchID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	resp := &GetPhotoRevealResponse{
		Consents: make(map[string]bool, len(reveals)),
		Mutual:   repository.MutualReveal(m, reveals),
	}
	for _, rv := range reveals {
		if m.HasParticipant(rv.UserID) {
			resp.Consents[strconv.FormatUint(rv.UserID, 10)] = rv.Consent
		}
	}
	return resp, nil
}

// ListMatches returns the principal's active matches, newest first, with the
// partner's profile, the chat id and the mutual photo reveal flag.
func (s *Service) ListMatches(ctx context.Context, _ *ListMatchesRequest) (*ListMatchesResponse, error) {
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

	partners, err := s.store.Users.FindByIDs(ctx, partnerIDs)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	chats, err := s.store.Chats.ForMatches(ctx, matchIDs)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	reveals, err := s.store.Reveals.ForMatches(ctx, matchIDs)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	resp := &ListMatchesResponse{Matches: make([]Match, 0, len(matches))}
	for _, m := range matches {
		partner, ok := partners[m.Partner(me)]
		if !ok {
			continue
		}
		resp.Matches = append(resp.Matches, Match{
			MatchID:           m.ID,
			Partner:           profile.Summarize(partner),
			ChatID:            chats[m.ID].ID,
			MatchedAt:         m.CreatedAt.UnixMilli(),
			MutualPhotoReveal: repository.MutualReveal(m, reveals[m.ID]),
		})
	}
	sort.SliceStable(resp.Matches, func(i, j int) bool {
		return resp.Matches[i].MatchedAt > resp.Matches[j].MatchedAt
	})
	return resp, nil
}
