// Package users persists identity records. Username and email are unique;
// violations surface as common.ErrConflict, missing rows as
// common.ErrorNotFound and backend failures wrap common.ErrStoreUnavailable.
package users

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/credcore/internal/server/models"
)

type Repository interface {
	// Create assigns ID and timestamps and inserts the user.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)

	// SetRefreshTokenHash overwrites the stored fingerprint; "" clears it.
	SetRefreshTokenHash(ctx context.Context, id, hash string) error

	// RotateRefreshTokenHash replaces old with next only if old is still the
	// stored value. It reports whether the swap happened. next may be "".
	RotateRefreshTokenHash(ctx context.Context, id, old, next string) (bool, error)

	MarkEmailVerified(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

func joinRoles(roles []string) string {
	return strings.Join(roles, ",")
}

func splitRoles(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	roles := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			roles = append(roles, p)
		}
	}
	return roles
}
