package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-auth/internal/platform/db"
	"github.com/odyssey-erp/odyssey-auth/internal/shared"
)

const uniqueViolation = "23505"

// Repository defines the credential store lookups used by the auth core.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Save(ctx context.Context, u *User) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const selectUser = `
	SELECT u.id, u.username, u.email, u.password_hash, u.first_name, u.last_name, u.is_active,
		u.created_at, u.updated_at,
		COALESCE(ARRAY(SELECT ur.role_id FROM user_roles ur WHERE ur.user_id = u.id ORDER BY ur.role_id), '{}')
	FROM users u`

// FindByUsername fetches a user by username.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	return r.findOne(ctx, selectUser+` WHERE u.username = $1`, strings.TrimSpace(username))
}

// FindByID fetches a user by id.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	return r.findOne(ctx, selectUser+` WHERE u.id = $1`, id)
}

// ExistsByUsername reports whether the username is taken.
func (r *PGRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, strings.TrimSpace(username))
}

// ExistsByEmail reports whether the email is taken. Comparison is exact.
func (r *PGRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, strings.TrimSpace(email))
}

// Save inserts a new user together with its role assignments.
func (r *PGRepository) Save(ctx context.Context, u *User) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO users (username, email, password_hash, first_name, last_name, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
			RETURNING id, created_at, updated_at`,
			u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Active,
		).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			return err
		}
		for _, roleID := range u.RoleIDs {
			if _, err := tx.Exec(ctx, `INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, u.ID, roleID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("auth: user %q exists: %w", u.Username, shared.ErrConflict)
		}
		return fmt.Errorf("auth: save user: %w", err)
	}
	return nil
}

func (r *PGRepository) findOne(ctx context.Context, sql string, arg any) (*User, error) {
	var u User
	err := r.pool.QueryRow(ctx, sql, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Active,
		&u.CreatedAt, &u.UpdatedAt, &u.RoleIDs,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("auth: find user: %w", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}

func (r *PGRepository) exists(ctx context.Context, sql string, arg any) (bool, error) {
	var ok bool
	if err := r.pool.QueryRow(ctx, sql, arg).Scan(&ok); err != nil {
		return false, fmt.Errorf("auth: exists: %w", err)
	}
	return ok, nil
}

var _ Repository = (*PGRepository)(nil)
