package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/muzz-matchmaker/internal/db"
	"github.com/oggyb/muzz-matchmaker/internal/repository"
)

func TestEnsureForMatch_Idempotent(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewChatRepository(dbase)

	c1, err := repo.EnsureForMatch(ctx, 7)
	require.NoError(t, err)
	c2, err := repo.EnsureForMatch(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, c1.ID, c2.ID)

	var count int64
	_ = dbase.Model(&db.Chat{}).Count(&count).Error
	assert.Equal(t, int64(1), count)

	byMatch, err := repo.ForMatches(ctx, []uint64{7, 8})
	require.NoError(t, err)
	assert.Equal(t, c1.ID, byMatch[7].ID)
	_, ok := byMatch[8]
	assert.False(t, ok)
}

func TestMessages_PaginationAndRead(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewChatRepository(setupTestDB(t))

	chat, err := repo.EnsureForMatch(ctx, 1)
	require.NoError(t, err)

	for _, m := range []struct {
		sender  uint64
		content string
	}{
		{1, "hi"}, {2, "hey"}, {2, "how are you?"}, {1, "good"}, {2, "nice"},
	} {
		_, err := repo.AppendMessage(ctx, chat.ID, m.sender, m.content)
		require.NoError(t, err)
	}

	page1, next, err := repo.Messages(ctx, chat.ID, nil, 3)
	require.NoError(t, err)
	require.Len(t, page1, 3)
	require.NotNil(t, next)
	assert.Equal(t, "hi", page1[0].Content)

	page2, next, err := repo.Messages(ctx, chat.ID, next, 3)
	require.NoError(t, err)
	assert.Nil(t, next)
	require.Len(t, page2, 2)
	assert.Equal(t, "good", page2[0].Content)

	unread, err := repo.UnreadCounts(ctx, []uint64{chat.ID}, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), unread[chat.ID])

	marked, err := repo.MarkRead(ctx, chat.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), marked)

	unread, err = repo.UnreadCounts(ctx, []uint64{chat.ID}, 1)
	require.NoError(t, err)
	assert.Zero(t, unread[chat.ID])

	// user 2 still has user 1's messages to read
	unread, err = repo.UnreadCounts(ctx, []uint64{chat.ID}, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread[chat.ID])
}

func TestLastMessages(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewChatRepository(setupTestDB(t))

	a, _ := repo.EnsureForMatch(ctx, 1)
	b, _ := repo.EnsureForMatch(ctx, 2)
	empty, _ := repo.EnsureForMatch(ctx, 3)

	_, _ = repo.AppendMessage(ctx, a.ID, 1, "first")
	_, _ = repo.AppendMessage(ctx, b.ID, 3, "other")
	_, _ = repo.AppendMessage(ctx, a.ID, 2, "second")

	last, err := repo.LastMessages(ctx, []uint64{a.ID, b.ID, empty.ID})
	require.NoError(t, err)
	assert.Equal(t, "second", last[a.ID].Content)
	assert.Equal(t, "other", last[b.ID].Content)
	_, ok := last[empty.ID]
	assert.False(t, ok)
}
