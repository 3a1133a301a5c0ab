package explore

import (
	"context"
	"errors"
	"sort"

	"gorm.io/gorm"

	"github.com/oggyb/muzz-matchmaker/internal/app"
	"github.com/oggyb/muzz-matchmaker/internal/auth"
	"github.com/oggyb/muzz-matchmaker/internal/compatibility"
	"github.com/oggyb/muzz-matchmaker/internal/db"
	svcErr "github.com/oggyb/muzz-matchmaker/internal/errors"
	"github.com/oggyb/muzz-matchmaker/internal/repository"
	"github.com/oggyb/muzz-matchmaker/internal/service/profile"
	"github.com/oggyb/muzz-matchmaker/internal/utils/pagination"
)

const (
	defaultSuggestions    = 10
	defaultMostCompatible = 20
	maxSuggestions        = 50
	incomingPageSize      = 20
	defaultCandidateBatch = 500
)

// Suggestion is a candidate profile ranked for the requester.
type Suggestion struct {
	profile.Summary
	SharedInterests []string `json:"shared_interests"`
	LikedMe         bool     `json:"liked_me"`
	Compatibility   int      `json:"compatibility"`
}

type SuggestionsRequest struct {
	Limit int32 `json:"limit"`
}

type SuggestionsResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
}

type MostCompatibleRequest struct {
	Limit int32 `json:"limit"`
}

type MostCompatibleResponse struct {
	Users []Suggestion `json:"users"`
}

type IncomingLikesRequest struct {
	PaginationToken *string `json:"pagination_token,omitempty"`
}

type Liker struct {
	profile.Summary
	LikedAt int64 `json:"liked_at"`
}

type IncomingLikesResponse struct {
	Likers              []Liker `json:"likers"`
	NextPaginationToken *string `json:"next_pagination_token,omitempty"`
}

type CountIncomingLikesRequest struct{}

type CountIncomingLikesResponse struct {
	Count uint64 `json:"count"`
}

// Service implements the Explore gRPC API.
// It contains the business logic on top of repository and cache layers.
type Service struct {
	appCtx *app.AppContext
	store  *repository.Store
}

// NewExploreService creates a new Explore service with dependencies from AppContext.
// Dependencies include:
//   - Relationship Store (users, likes, matches)
//   - RedisCache for incoming-like counters
func NewExploreService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx: appCtx,
		store:  appCtx.Store,
	}
}

// Suggestions ranks profiles the principal has not liked yet.
//
// Behavior:
//   - Limit 0 → 10, otherwise clamped to [1,50].
//   - Excludes the principal and everyone the principal already liked.
//   - Ordered by liked_me DESC, shared interest count DESC, id ASC.
//
// Example:
//
//	svc.Suggestions(ctx, &SuggestionsRequest{Limit: 10})
func (s *Service) Suggestions(ctx context.Context, req *SuggestionsRequest) (*SuggestionsResponse, error) {
	me, err := auth.UserID(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	limit := pagination.ClampLimit(int(req.Limit), defaultSuggestions, maxSuggestions)

	s.appCtx.Logger.Debug("Suggestions called", "requester", me, "limit", limit)

	ranked, err := s.rank(ctx, me, false, limit, nil, bySuggestionOrder)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	return &SuggestionsResponse{Suggestions: ranked}, nil
}

// MostCompatible lists candidates scoring at least 80.
//
// Behavior:
//   - Limit 0 → 20, otherwise clamped to [1,50].
//   - Also excludes users in an active match with the principal.
//   - The score filter runs over every eligible candidate before the limit,
//     so a full page is returned whenever enough candidates qualify.
//   - Ordered by shared interest count DESC, id ASC.
func (s *Service) MostCompatible(ctx context.Context, req *MostCompatibleRequest) (*MostCompatibleResponse, error) {
	me, err := auth.UserID(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	limit := pagination.ClampLimit(int(req.Limit), defaultMostCompatible, maxSuggestions)

	s.appCtx.Logger.Debug("MostCompatible called", "requester", me, "limit", limit)

	users, err := s.rank(ctx, me, true, limit, isMostCompatible, bySharedThenID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	return &MostCompatibleResponse{Users: users}, nil
}

// rank scores every eligible candidate against the requester and returns the
// best limit of those accepted by keep (nil keeps all), ordered by less.
//
// Behavior:
//   - Candidates are read in id order, MATCH_CANDIDATE_BATCH rows at a time,
//     until the whole exclusion-filtered set has been seen.
//   - Only the running top limit is held between batches; less must be a
//     total order so the merge is exact.
func (s *Service) rank(
	ctx context.Context,
	requesterID uint64,
	excludePartners bool,
	limit int,
	keep func(Suggestion) bool,
	less func(a, b Suggestion) bool,
) ([]Suggestion, error) {
	me, err := s.store.Users.FindByID(ctx, requesterID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("user not found")
	} else if err != nil {
		s.appCtx.Logger.Error("load requester failed", "requester", requesterID, "err", err)
		return nil, err
	}

	batch := s.appCtx.Config.Match.CandidateBatch
	if batch <= 0 {
		batch = defaultCandidateBatch
	}

	myInterests := []string(me.Interests)
	myPersonality := me.Personality.Data()

	top := make([]Suggestion, 0, limit)
	var after uint64
	for {
		candidates, err := s.store.Users.Candidates(ctx, repository.CandidateQuery{
			RequesterID:           requesterID,
			ExcludeActivePartners: excludePartners,
			AfterID:               after,
			Limit:                 batch,
		})
		if err != nil {
			s.appCtx.Logger.Error("Candidates failed", "requester", requesterID, "err", err)
			return nil, err
		}
		if len(candidates) == 0 {
			break
		}

		ids := make([]uint64, 0, len(candidates))
		for _, c := range candidates {
			ids = append(ids, c.ID)
		}
		likedMe, err := s.store.Likes.LikersAmong(ctx, requesterID, ids)
		if err != nil {
			return nil, err
		}

		for _, c := range candidates {
			sg := suggestionFor(myInterests, myPersonality, c, likedMe[c.ID])
			if keep == nil || keep(sg) {
				top = append(top, sg)
			}
		}
		sort.SliceStable(top, func(i, j int) bool { return less(top[i], top[j]) })
		if len(top) > limit {
			top = top[:limit]
		}

		if len(candidates) < batch {
			break
		}
		after = candidates[len(candidates)-1].ID
	}
	return top, nil
}

// bySuggestionOrder: liked me first, then more shared interests, then lower id.
func bySuggestionOrder(a, b Suggestion) bool {
	if a.LikedMe != b.LikedMe {
		return a.LikedMe
	}
	return bySharedThenID(a, b)
}

func bySharedThenID(a, b Suggestion) bool {
	if len(a.SharedInterests) != len(b.SharedInterests) {
		return len(a.SharedInterests) > len(b.SharedInterests)
	}
	return a.ID < b.ID
}

func isMostCompatible(sg Suggestion) bool {
	return sg.Compatibility >= compatibility.MostCompatibleThreshold
}

func suggestionFor(myInterests []string, myPersonality db.Personality, c db.User, likedMe bool) Suggestion {
	theirs := []string(c.Interests)
	return Suggestion{
		Summary:         profile.Summarize(c),
		SharedInterests: compatibility.SharedInterests(myInterests, theirs),
		LikedMe:         likedMe,
		Compatibility:   compatibility.Score(myInterests, myPersonality, theirs, c.Personality.Data()),
	}
}

// IncomingLikes returns people who liked the principal and are still waiting
// on a like back.
//
// Behavior:
//   - Newest first, 20 per page.
//   - Supports cursor-based pagination with paginationToken.
func (s *Service) IncomingLikes(ctx context.Context, req *IncomingLikesRequest) (*IncomingLikesResponse, error) {
	me, err := auth.UserID(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	s.appCtx.Logger.Debug("IncomingLikes called", "recipient", me)

	likes, nextToken, err := s.store.Likes.Incoming(ctx, me, req.PaginationToken, incomingPageSize)
	if errors.Is(err, pagination.ErrInvalidToken) {
		return nil, svcErr.Map(svcErr.InvalidArgument("pagination_token is invalid"))
	} else if err != nil {
		s.appCtx.Logger.Error("Incoming failed", "err", err)
		return nil, svcErr.Map(err)
	}

	ids := make([]uint64, 0, len(likes))
	for _, l := range likes {
		ids = append(ids, l.UserID)
	}
	users, err := s.store.Users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	resp := &IncomingLikesResponse{Likers: make([]Liker, 0, len(likes)), NextPaginationToken: nextToken}
	for _, l := range likes {
		u, ok := users[l.UserID]
		if !ok {
			continue
		}
		resp.Likers = append(resp.Likers, Liker{
			Summary: profile.Summarize(u),
			LikedAt: l.CreatedAt.UnixMilli(),
		})
	}
	return resp, nil
}

// CountIncomingLikes counts the IncomingLikes population.
// Cache-first strategy:
//  1. Attempts to read from Redis (likes:incoming:userID).
//  2. On a miss or Redis error, falls back to DB via CountIncoming.
//  3. On DB fetch, updates Redis with the configured TTL.
func (s *Service) CountIncomingLikes(ctx context.Context, _ *CountIncomingLikesRequest) (*CountIncomingLikesResponse, error) {
	me, err := auth.UserID(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	rc := s.appCtx.RedisCache
	if rc != nil {
		if n, ok, err := rc.GetIncomingLikes(ctx, me); err == nil && ok {
			return &CountIncomingLikesResponse{Count: uint64(n)}, nil
		} else if err != nil {
			s.appCtx.Logger.Warn("like count cache read failed", "recipient", me, "err", err)
		}
	}

	// fallback: DB
	count, err := s.store.Likes.CountIncoming(ctx, me)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	if rc != nil {
		_ = rc.SetIncomingLikes(ctx, me, count)
	}
	return &CountIncomingLikesResponse{Count: uint64(count)}, nil
}
