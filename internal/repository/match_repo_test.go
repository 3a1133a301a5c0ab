package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oggyb/muzz-matchmaker/internal/db"
	"github.com/oggyb/muzz-matchmaker/internal/repository"
)

func TestUpsertActive_NormalizesPair(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMatchRepository(setupTestDB(t))

	m, err := repo.UpsertActive(ctx, 9, 4)
	require.NoError(t, err)
	assert.NotZero(t, m.ID)
	assert.Equal(t, uint64(4), m.UserAID)
	assert.Equal(t, uint64(9), m.UserBID)
	assert.Equal(t, db.MatchActive, m.Status)

	// both orders find the same row
	again, err := repo.FindByPair(ctx, 4, 9)
	require.NoError(t, err)
	assert.Equal(t, m.ID, again.ID)
}

func TestUpsertActive_ReactivatesSameRow(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	m, err := repo.UpsertActive(ctx, 1, 2)
	require.NoError(t, err)

	ok, err := repo.Transition(ctx, m.ID, 1, db.MatchUnmatched)
	require.NoError(t, err)
	assert.True(t, ok)

	again, err := repo.UpsertActive(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, m.ID, again.ID)
	assert.Equal(t, db.MatchActive, again.Status)

	var count int64
	_ = dbase.Model(&db.Match{}).Count(&count).Error
	assert.Equal(t, int64(1), count)
}

func TestTransition(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMatchRepository(setupTestDB(t))

	m, err := repo.UpsertActive(ctx, 1, 2)
	require.NoError(t, err)

	// outsider cannot move it
	ok, err := repo.Transition(ctx, m.ID, 3, db.MatchBlocked)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.Transition(ctx, m.ID, 2, db.MatchBlocked)
	require.NoError(t, err)
	assert.True(t, ok)

	// terminal rows stay terminal
	ok, err = repo.Transition(ctx, m.ID, 1, db.MatchUnmatched)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, db.MatchBlocked, got.Status)
}

func TestFindByID_NotFound(t *testing.T) {
	repo := repository.NewMatchRepository(setupTestDB(t))
	_, err := repo.FindByID(context.Background(), 404)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListActiveForUser(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMatchRepository(setupTestDB(t))

	m12, _ := repo.UpsertActive(ctx, 1, 2)
	m13, _ := repo.UpsertActive(ctx, 3, 1)
	m14, _ := repo.UpsertActive(ctx, 1, 4)
	_, _ = repo.UpsertActive(ctx, 2, 3)
	_, _ = repo.Transition(ctx, m14.ID, 4, db.MatchUnmatched)

	matches, err := repo.ListActiveForUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	ids := []uint64{matches[0].ID, matches[1].ID}
	assert.ElementsMatch(t, []uint64{m12.ID, m13.ID}, ids)
}

func TestRevealUpsert_Overwrites(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	matches := repository.NewMatchRepository(dbase)
	reveals := repository.NewRevealRepository(dbase)

	m, err := matches.UpsertActive(ctx, 1, 2)
	require.NoError(t, err)

	require.NoError(t, reveals.Upsert(ctx, m.ID, 1, true))
	rows, err := reveals.ForMatch(ctx, m.ID)
	require.NoError(t, err)
	assert.False(t, repository.MutualReveal(m, rows))

	require.NoError(t, reveals.Upsert(ctx, m.ID, 2, true))
	rows, err = reveals.ForMatch(ctx, m.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.True(t, repository.MutualReveal(m, rows))

	// withdrawing consent flips mutual back, still one row per participant
	require.NoError(t, reveals.Upsert(ctx, m.ID, 1, false))
	rows, err = reveals.ForMatch(ctx, m.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.False(t, repository.MutualReveal(m, rows))

	grouped, err := reveals.ForMatches(ctx, []uint64{m.ID, 999})
	require.NoError(t, err)
	assert.Len(t, grouped[m.ID], 2)
	assert.Empty(t, grouped[999])
}

func TestMutualReveal_IgnoresOutsiders(t *testing.T) {
	m := db.Match{ID: 1, UserAID: 1, UserBID: 2}
	rows := []db.PhotoReveal{
		{MatchID: 1, UserID: 1, Consent: true},
		{MatchID: 1, UserID: 3, Consent: true},
	}
	assert.False(t, repository.MutualReveal(m, rows))
}
