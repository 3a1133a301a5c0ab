package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/muzz-matchmaker/internal/db"
	"github.com/oggyb/muzz-matchmaker/internal/repository"
)

func TestLikeInsert_Idempotent(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewLikeRepository(dbase)

	created, err := repo.Insert(ctx, 1, 2)
	assert.NoError(t, err)
	assert.True(t, created)

	// repeat like is ignored
	created, err = repo.Insert(ctx, 1, 2)
	assert.NoError(t, err)
	assert.False(t, created)

	var count int64
	_ = dbase.Model(&db.Like{}).Count(&count).Error
	assert.Equal(t, int64(1), count)

	liked, err := repo.Exists(ctx, 1, 2)
	assert.NoError(t, err)
	assert.True(t, liked)

	// direction matters
	liked, err = repo.Exists(ctx, 2, 1)
	assert.NoError(t, err)
	assert.False(t, liked)
}

func TestLikersAmong(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewLikeRepository(setupTestDB(t))

	_, _ = repo.Insert(ctx, 2, 1)
	_, _ = repo.Insert(ctx, 4, 1)
	_, _ = repo.Insert(ctx, 3, 9)

	likers, err := repo.LikersAmong(ctx, 1, []uint64{2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, map[uint64]bool{2: true, 4: true}, likers)

	likers, err = repo.LikersAmong(ctx, 1, nil)
	require.NoError(t, err)
	assert.Empty(t, likers)
}

func TestIncoming_ExcludesLikedBack(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewLikeRepository(setupTestDB(t))

	// 2 and 3 like 99, 99 likes 2 back → only 3 is waiting
	_, _ = repo.Insert(ctx, 2, 99)
	_, _ = repo.Insert(ctx, 3, 99)
	_, _ = repo.Insert(ctx, 99, 2)

	likes, next, err := repo.Incoming(ctx, 99, nil, 10)
	require.NoError(t, err)
	assert.Nil(t, next)
	require.Len(t, likes, 1)
	assert.Equal(t, uint64(3), likes[0].UserID)

	count, err := repo.CountIncoming(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestIncoming_Pagination(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewLikeRepository(dbase)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	// user 1 oldest ... user 5 newest; users 6 and 7 share a timestamp
	for i := 1; i <= 5; i++ {
		require.NoError(t, dbase.Create(&db.Like{UserID: uint64(i), TargetID: 100, CreatedAt: base.Add(time.Duration(i) * time.Minute)}).Error)
	}
	require.NoError(t, dbase.Create(&db.Like{UserID: 6, TargetID: 100, CreatedAt: base}).Error)
	require.NoError(t, dbase.Create(&db.Like{UserID: 7, TargetID: 100, CreatedAt: base}).Error)

	var got []uint64
	var token *string
	for page := 0; page < 10; page++ {
		likes, next, err := repo.Incoming(ctx, 100, token, 3)
		require.NoError(t, err)
		for _, l := range likes {
			got = append(got, l.UserID)
		}
		if next == nil {
			break
		}
		token = next
	}
	assert.Equal(t, []uint64{5, 4, 3, 2, 1, 7, 6}, got)
}

func TestIncoming_InvalidToken(t *testing.T) {
	repo := repository.NewLikeRepository(setupTestDB(t))
	bad := "%%%not-a-token"

	_, _, err := repo.Incoming(context.Background(), 1, &bad, 10)
	assert.Error(t, err)
}
