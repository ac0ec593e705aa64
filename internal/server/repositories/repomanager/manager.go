// Package repomanager selects the user store backend once at startup and
// hands repositories to the service layer.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/credcore/internal/server/repositories/users"
)

type RepositoryManager interface {
	// RunMigrations brings the schema up to date. No-op for memory.
	RunMigrations(ctx context.Context) error
	Users() users.Repository
	// InTx runs fn with a repository whose writes commit or roll back together.
	InTx(ctx context.Context, fn func(ctx context.Context, users users.Repository) error) error
	Ping(ctx context.Context) error
	Close() error
}
