package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/muzz-matchmaker/internal/auth"
	svcErr "github.com/oggyb/muzz-matchmaker/internal/errors"
)

func TestUserID(t *testing.T) {
	ctx := auth.WithPrincipal(context.Background(), "42")
	assert.Equal(t, "42", auth.Principal(ctx))

	id, err := auth.UserID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
}

func TestUserID_Invalid(t *testing.T) {
	for _, raw := range []string{"", "abc", "0", "-3", "1.5"} {
		ctx := auth.WithPrincipal(context.Background(), raw)
		_, err := auth.UserID(ctx)
		assert.True(t, errors.Is(err, svcErr.ErrInvalidArgument), "raw=%q", raw)
	}

	// nothing on the context at all
	_, err := auth.UserID(context.Background())
	assert.True(t, errors.Is(err, svcErr.ErrInvalidArgument))
}

func TestParseID(t *testing.T) {
	id, err := auth.ParseID(" 7 ", "match_id")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), id)

	_, err = auth.ParseID("x", "match_id")
	assert.ErrorContains(t, err, "match_id")
}
