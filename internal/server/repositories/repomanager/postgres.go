package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/credcore/internal/common"
	"github.com/dmitrijs2005/credcore/internal/dbx"
	"github.com/dmitrijs2005/credcore/internal/server/migrations"
	"github.com/dmitrijs2005/credcore/internal/server/repositories/users"
)

// PostgresRepositoryManager vends Postgres-backed repositories over one pool.
type PostgresRepositoryManager struct {
	db      *sql.DB
	timeout time.Duration
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// OpenPostgres opens a pgx-backed pool for dsn. The pool is lazy; use Ping to
// check reachability.
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", common.ErrStoreUnavailable, err)
	}
	return db, nil
}

// NewPostgresRepositoryManager binds a manager to db. timeout bounds every
// repository call.
func NewPostgresRepositoryManager(db *sql.DB, timeout time.Duration) *PostgresRepositoryManager {
	return &PostgresRepositoryManager{db: db, timeout: timeout}
}

func (m *PostgresRepositoryManager) Users() users.Repository {
	return users.NewPostgresRepository(m.db, m.timeout)
}

func (m *PostgresRepositoryManager) InTx(ctx context.Context, fn func(ctx context.Context, users users.Repository) error) error {
	return dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, users.NewPostgresRepository(tx, m.timeout))
	})
}

// RunMigrations sets up goose with the embedded migrations and runs them.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, m.db, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (m *PostgresRepositoryManager) Ping(ctx context.Context) error {
	ctx, cancel := dbx.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := m.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping database: %v", common.ErrStoreUnavailable, err)
	}
	return nil
}

func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}
