package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrijs2005/credcore/internal/common"
	"github.com/dmitrijs2005/credcore/internal/dbx"
	"github.com/dmitrijs2005/credcore/internal/server/models"
)

const uniqueViolation = "23505"

const selectColumns = `id, username, email, phone, password_hash, roles, refresh_token_hash, email_verified, created_at, updated_at`

// PostgresRepository works over dbx.DBTX, so it runs the same way on a pool
// or inside a transaction. Every call is bounded by timeout.
type PostgresRepository struct {
	db      dbx.DBTX
	timeout time.Duration
}

func NewPostgresRepository(db dbx.DBTX, timeout time.Duration) *PostgresRepository {
	return &PostgresRepository{db: db, timeout: timeout}
}

// classify maps driver errors onto the package's error contract.
func classify(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", common.ErrConflict, pgErr.ConstraintName)
		}
		return fmt.Errorf("db error: %w", err)
	}

	return fmt.Errorf("%w: db error: %v", common.ErrStoreUnavailable, err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u       models.User
		phone   sql.NullString
		pwHash  sql.NullString
		rtHash  sql.NullString
		roleStr string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &phone, &pwHash, &roleStr,
		&rtHash, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Phone = phone.String
	u.PasswordHash = pwHash.String
	u.RefreshTokenHash = rtHash.String
	u.Roles = splitRoles(roleStr)
	return &u, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	ctx, cancel := dbx.WithTimeout(ctx, r.timeout)
	defer cancel()

	query :=
		`INSERT INTO users (id, username, email, phone, password_hash, roles, email_verified)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at, updated_at`

	id := uuid.NewString()
	err := r.db.QueryRowContext(ctx, query,
		id, user.Username, user.Email, nullString(user.Phone), nullString(user.PasswordHash), joinRoles(user.Roles), user.EmailVerified,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, classify(err)
	}

	user.ID = id
	return user, nil
}

func (r *PostgresRepository) getBy(ctx context.Context, column, value string) (*models.User, error) {
	ctx, cancel := dbx.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + selectColumns + ` FROM users WHERE ` + column + ` = $1`

	u, err := scanUser(r.db.QueryRowContext(ctx, query, value))
	if err != nil {
		return nil, classify(err)
	}
	return u, nil
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getBy(ctx, "username", username)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getBy(ctx, "id", id)
}

// execOne runs query and maps "no row touched" to common.ErrorNotFound.
func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	ctx, cancel := dbx.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) SetRefreshTokenHash(ctx context.Context, id, hash string) error {
	return r.execOne(ctx,
		`UPDATE users SET refresh_token_hash = $2, updated_at = NOW() WHERE id = $1`,
		id, nullString(hash))
}

func (r *PostgresRepository) RotateRefreshTokenHash(ctx context.Context, id, old, next string) (bool, error) {
	ctx, cancel := dbx.WithTimeout(ctx, r.timeout)
	defer cancel()

	query :=
		`UPDATE users SET refresh_token_hash = $3, updated_at = NOW()
		 WHERE id = $1 AND refresh_token_hash = $2`

	res, err := r.db.ExecContext(ctx, query, id, old, nullString(next))
	if err != nil {
		return false, classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, classify(err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) MarkEmailVerified(ctx context.Context, id string) error {
	return r.execOne(ctx,
		`UPDATE users SET email_verified = TRUE, updated_at = NOW() WHERE id = $1`,
		id)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, `DELETE FROM users WHERE id = $1`, id)
}
