package users

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/credcore/internal/common"
	"github.com/dmitrijs2005/credcore/internal/server/models"
)

// MemoryRepository keeps users in process memory with the same uniqueness
// and compare-and-swap rules as the Postgres store. Callers get copies.
type MemoryRepository struct {
	mu   sync.RWMutex
	byID map[string]*models.User
	now  func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID: make(map[string]*models.User),
		now:  time.Now,
	}
}

func clone(u *models.User) *models.User {
	c := *u
	c.Roles = slices.Clone(u.Roles)
	return &c
}

func (r *MemoryRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.Username == user.Username || u.Email == user.Email {
			return nil, common.ErrConflict
		}
	}

	now := r.now().UTC()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Roles == nil {
		user.Roles = []string{}
	}

	r.byID[user.ID] = clone(user)
	return user, nil
}

func (r *MemoryRepository) find(ctx context.Context, match func(*models.User) bool) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.byID {
		if match(u) {
			return clone(u), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.find(ctx, func(u *models.User) bool { return u.Username == username })
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find(ctx, func(u *models.User) bool { return u.Email == email })
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.find(ctx, func(u *models.User) bool { return u.ID == id })
}

// update runs fn on the stored record under the write lock.
func (r *MemoryRepository) update(ctx context.Context, id string, fn func(u *models.User) bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return false, common.ErrorNotFound
	}
	if !fn(u) {
		return false, nil
	}
	u.UpdatedAt = r.now().UTC()
	return true, nil
}

func (r *MemoryRepository) SetRefreshTokenHash(ctx context.Context, id, hash string) error {
	_, err := r.update(ctx, id, func(u *models.User) bool {
		u.RefreshTokenHash = hash
		return true
	})
	return err
}

func (r *MemoryRepository) RotateRefreshTokenHash(ctx context.Context, id, old, next string) (bool, error) {
	swapped, err := r.update(ctx, id, func(u *models.User) bool {
		if old == "" || u.RefreshTokenHash != old {
			return false
		}
		u.RefreshTokenHash = next
		return true
	})
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	return swapped, err
}

func (r *MemoryRepository) MarkEmailVerified(ctx context.Context, id string) error {
	_, err := r.update(ctx, id, func(u *models.User) bool {
		u.EmailVerified = true
		return true
	})
	return err
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.byID, id)
	return nil
}
