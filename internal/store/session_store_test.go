package store

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prodair/fieldinstall/internal/domain"
)

func TestSessionStoreRememberMe(t *testing.T) {
	blobs := NewSQLiteBlobStore(openTestDB(t))
	s := NewSessionStore(blobs, slog.Default())
	ctx := context.Background()

	remember, err := s.RememberMe(ctx)
	require.NoError(t, err)
	assert.False(t, remember)

	require.NoError(t, s.SetRememberMe(ctx, true))
	remember, err = s.RememberMe(ctx)
	require.NoError(t, err)
	assert.True(t, remember)

	raw, _, err := blobs.Get(ctx, KeyRememberMe)
	require.NoError(t, err)
	assert.Equal(t, "true", string(raw))

	require.NoError(t, s.SetRememberMe(ctx, false))
	remember, err = s.RememberMe(ctx)
	require.NoError(t, err)
	assert.False(t, remember)
}

func TestSessionStoreCurrentUser(t *testing.T) {
	s := NewSessionStore(NewSQLiteBlobStore(openTestDB(t)), slog.Default())
	ctx := context.Background()

	user, err := s.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, user)

	want := &domain.User{ID: "u-1", Name: "Youssef"}
	require.NoError(t, s.SetCurrentUser(ctx, want))
	user, err = s.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, user)

	require.NoError(t, s.SetCurrentUser(ctx, nil))
	user, err = s.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestSessionStoreMalformedUser(t *testing.T) {
	blobs := NewMemoryBlobStore()
	ctx := context.Background()
	require.NoError(t, blobs.Put(ctx, KeyCurrentUser, []byte("garbage")))

	user, err := NewSessionStore(blobs, slog.Default()).CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, user)
}
