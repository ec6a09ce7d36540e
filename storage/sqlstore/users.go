package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	apperrors "github.com/jrsteele09/go-session-server/internal/errors"
	"github.com/jrsteele09/go-session-server/users"
)

// UserRepo stores identities in the users table.
type UserRepo struct {
	db *DB
}

var _ users.UserRepo = (*UserRepo)(nil)

func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Upsert(ctx context.Context, user *users.User) error {
	if user.ID == "" || user.Login == "" {
		return apperrors.Wrapf(apperrors.ErrValidation, "user id and login are required")
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}

	query := r.db.dialect.rebind(`
		INSERT INTO users (id, login, password_hash, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET login = excluded.login, password_hash = excluded.password_hash
	`)
	if _, err := r.db.ExecContext(ctx, query, user.ID, user.Login, user.PasswordHash, user.CreatedAt.Unix()); err != nil {
		if isUniqueViolation(err) {
			return users.ErrLoginTaken
		}
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByLogin(ctx context.Context, login string) (*users.User, error) {
	return r.getOne(ctx, `
		SELECT id, login, password_hash, created_at
		FROM users
		WHERE login = ?
	`, login)
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	return r.getOne(ctx, `
		SELECT id, login, password_hash, created_at
		FROM users
		WHERE id = ?
	`, id)
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg string) (*users.User, error) {
	var (
		u       users.User
		created int64
	)
	err := r.db.QueryRowContext(ctx, r.db.dialect.rebind(query), arg).
		Scan(&u.ID, &u.Login, &u.PasswordHash, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	u.CreatedAt = time.Unix(created, 0).UTC()
	return &u, nil
}

// isUniqueViolation matches the unique constraint errors of pgx and SQLite.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
