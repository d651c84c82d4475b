package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"roomchat/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountRepository(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer Close(db)

	repo := NewAccountRepository(db)
	ctx := context.Background()

	account := &domain.Account{Username: "alice", PasswordHash: "hash", CreatedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, account))

	dup := &domain.Account{Username: "alice", PasswordHash: "other", CreatedAt: time.Now()}
	assert.ErrorIs(t, repo.Create(ctx, dup), domain.ErrAccountExists)

	got, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "hash", got.PasswordHash)

	_, err = repo.GetByUsername(ctx, "bob")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	exists, err := repo.Exists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, exists)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "accounts.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, Close(db))

	assert.FileExists(t, path)
}
