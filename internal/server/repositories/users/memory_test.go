package users

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/credcore/internal/common"
	"github.com/dmitrijs2005/credcore/internal/server/models"
)

func seed(t *testing.T, r *MemoryRepository, username, email string) *models.User {
	t.Helper()
	u, err := r.Create(context.Background(), &models.User{
		Username: username,
		Email:    email,
		Roles:    []string{common.RoleUser},
	})
	require.NoError(t, err)
	return u
}

func TestMemory_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	u := seed(t, r, "alice", "alice@x.com")

	assert.NotEmpty(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	byName, err := r.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	byEmail, err := r.GetByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	byID, err := r.GetByID(ctx, u.ID)
	require.NoError(t, err)

	assert.Equal(t, byName, byEmail)
	assert.Equal(t, byName, byID)

	_, err = r.GetByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMemory_Conflict(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	seed(t, r, "alice", "alice@x.com")

	_, err := r.Create(ctx, &models.User{Username: "alice", Email: "other@x.com"})
	assert.ErrorIs(t, err, common.ErrConflict)

	_, err = r.Create(ctx, &models.User{Username: "other", Email: "alice@x.com"})
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	u := seed(t, r, "alice", "alice@x.com")

	got, err := r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	got.Roles[0] = "hacked"
	got.PasswordHash = "x"

	again, err := r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{common.RoleUser}, again.Roles)
	assert.Empty(t, again.PasswordHash)
}

func TestMemory_RefreshHash(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	u := seed(t, r, "alice", "alice@x.com")

	require.NoError(t, r.SetRefreshTokenHash(ctx, u.ID, "fp1"))

	ok, err := r.RotateRefreshTokenHash(ctx, u.ID, "fp0", "fp2")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.RotateRefreshTokenHash(ctx, u.ID, "fp1", "fp2")
	require.NoError(t, err)
	assert.True(t, ok)

	got, _ := r.GetByID(ctx, u.ID)
	assert.Equal(t, "fp2", got.RefreshTokenHash)

	ok, err = r.RotateRefreshTokenHash(ctx, "missing", "fp2", "fp3")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, r.SetRefreshTokenHash(ctx, "missing", "x"), common.ErrorNotFound)
}

func TestMemory_RotateEmptyNeverMatches(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	u := seed(t, r, "alice", "alice@x.com")

	ok, err := r.RotateRefreshTokenHash(ctx, u.ID, "", "fp")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_ConcurrentRotateWinsOnce(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	u := seed(t, r, "alice", "alice@x.com")
	require.NoError(t, r.SetRefreshTokenHash(ctx, u.ID, "fp1"))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := r.RotateRefreshTokenHash(ctx, u.ID, "fp1", "next-"+string(rune('a'+i))); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestMemory_MarkVerifiedAndDelete(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	u := seed(t, r, "alice", "alice@x.com")

	require.NoError(t, r.MarkEmailVerified(ctx, u.ID))
	got, _ := r.GetByID(ctx, u.ID)
	assert.True(t, got.EmailVerified)

	require.NoError(t, r.Delete(ctx, u.ID))
	assert.ErrorIs(t, r.Delete(ctx, u.ID), common.ErrorNotFound)
	assert.ErrorIs(t, r.MarkEmailVerified(ctx, u.ID), common.ErrorNotFound)

	// username is free again
	seed(t, r, "alice", "alice@x.com")
}
