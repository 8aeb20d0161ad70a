package rbac

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

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// RoleStore is the read side of the role/permission store used by the auth core.
type RoleStore interface {
	FindRolesByIDs(ctx context.Context, ids []int64) ([]Role, error)
	FindRoleByName(ctx context.Context, name string) (Role, error)
}

// PGRoleStore implements RoleStore and the administrative role queries on PostgreSQL.
type PGRoleStore struct {
	pool *pgxpool.Pool
}

// NewPGRoleStore constructs a store backed by the provided pool.
func NewPGRoleStore(pool *pgxpool.Pool) *PGRoleStore {
	return &PGRoleStore{pool: pool}
}

const selectRoleColumns = `SELECT id, name, description, created_at, updated_at FROM roles`

// FindRolesByIDs loads the roles in ids together with their permissions. Unknown ids are skipped.
func (s *PGRoleStore) FindRolesByIDs(ctx context.Context, ids []int64) ([]Role, error) {
	if len(ids) == 0 {
		return []Role{}, nil
	}
	roles, err := s.queryRoles(ctx, selectRoleColumns+` WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	return roles, s.attachPermissions(ctx, roles)
}

// FindRoleByName fetches a role by its unique name.
func (s *PGRoleStore) FindRoleByName(ctx context.Context, name string) (Role, error) {
	roles, err := s.queryRoles(ctx, selectRoleColumns+` WHERE name = $1`, strings.TrimSpace(name))
	if err != nil {
		return Role{}, err
	}
	if len(roles) == 0 {
		return Role{}, shared.ErrNotFound
	}
	if err := s.attachPermissions(ctx, roles); err != nil {
		return Role{}, err
	}
	return roles[0], nil
}

// ListRoles returns all roles ordered by name.
func (s *PGRoleStore) ListRoles(ctx context.Context) ([]Role, error) {
	roles, err := s.queryRoles(ctx, selectRoleColumns+` ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return roles, s.attachPermissions(ctx, roles)
}

// ListPermissions returns all permissions ordered by name.
func (s *PGRoleStore) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, description, resource, action FROM permissions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("rbac: list permissions: %w", err)
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Resource, &p.Action); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// FindPermissionByID fetches one permission.
func (s *PGRoleStore) FindPermissionByID(ctx context.Context, id int64) (Permission, error) {
	var p Permission
	err := s.pool.QueryRow(ctx, `SELECT id, name, description, resource, action FROM permissions WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.Resource, &p.Action)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, shared.ErrNotFound
		}
		return Permission{}, fmt.Errorf("rbac: find permission: %w", err)
	}
	return p, nil
}

// GrantPermission attaches a permission to a role. Granting a held permission is a no-op.
func (s *PGRoleStore) GrantPermission(ctx context.Context, roleID, permissionID int64) error {
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, roleID, permissionID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `UPDATE roles SET updated_at = NOW() WHERE id = $1`, roleID)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return shared.ErrNotFound
		}
		return fmt.Errorf("rbac: grant permission: %w", err)
	}
	return nil
}

// RevokePermission detaches a permission from a role.
func (s *PGRoleStore) RevokePermission(ctx context.Context, roleID, permissionID int64) error {
	var removed int64
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`, roleID, permissionID)
		if err != nil {
			return err
		}
		if removed = tag.RowsAffected(); removed == 0 {
			return nil
		}
		_, err = tx.Exec(ctx, `UPDATE roles SET updated_at = NOW() WHERE id = $1`, roleID)
		return err
	})
	if err != nil {
		return fmt.Errorf("rbac: revoke permission: %w", err)
	}
	if removed == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// EnsurePermission upserts a permission by name and returns the stored row.
func (s *PGRoleStore) EnsurePermission(ctx context.Context, p Permission) (Permission, error) {
	if !p.Action.Valid() {
		return Permission{}, fmt.Errorf("rbac: permission %q: unknown action %q: %w", p.Name, p.Action, shared.ErrBadRequest)
	}
	var out Permission
	err := s.pool.QueryRow(ctx, `
		INSERT INTO permissions (name, description, resource, action)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description
		RETURNING id, name, description, resource, action`,
		strings.TrimSpace(p.Name), strings.TrimSpace(p.Description), p.Resource, string(p.Action),
	).Scan(&out.ID, &out.Name, &out.Description, &out.Resource, &out.Action)
	if err != nil {
		return Permission{}, fmt.Errorf("rbac: ensure permission %q: %w", p.Name, err)
	}
	return out, nil
}

// CreateRole inserts a role with the given permissions in one transaction.
func (s *PGRoleStore) CreateRole(ctx context.Context, name, description string, permissionIDs []int64) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("rbac: role name required: %w", shared.ErrBadRequest)
	}
	var role Role
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO roles (name, description, created_at, updated_at)
			VALUES ($1, $2, NOW(), NOW())
			RETURNING id, name, description, created_at, updated_at`,
			name, strings.TrimSpace(description),
		).Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
		if err != nil {
			return err
		}
		for _, id := range permissionIDs {
			if _, err := tx.Exec(ctx, `INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, role.ID, id); err != nil {
				return fmt.Errorf("attach permission %d: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Role{}, fmt.Errorf("rbac: role %q exists: %w", name, shared.ErrConflict)
		}
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return Role{}, fmt.Errorf("rbac: role %q: unknown permission: %w", name, shared.ErrBadRequest)
		}
		return Role{}, fmt.Errorf("rbac: create role %q: %w", name, err)
	}
	return role, nil
}

// Counts reports the number of stored permissions and roles.
func (s *PGRoleStore) Counts(ctx context.Context) (permissions, roles int, err error) {
	err = s.pool.QueryRow(ctx, `SELECT (SELECT COUNT(*) FROM permissions), (SELECT COUNT(*) FROM roles)`).Scan(&permissions, &roles)
	if err != nil {
		return 0, 0, fmt.Errorf("rbac: counts: %w", err)
	}
	return permissions, roles, nil
}

func (s *PGRoleStore) queryRoles(ctx context.Context, sql string, args ...any) ([]Role, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("rbac: query roles: %w", err)
	}
	defer rows.Close()
	roles := []Role{}
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (s *PGRoleStore) attachPermissions(ctx context.Context, roles []Role) error {
	if len(roles) == 0 {
		return nil
	}
	ids := make([]int64, len(roles))
	index := make(map[int64]int, len(roles))
	for i, role := range roles {
		ids[i] = role.ID
		index[role.ID] = i
	}
	rows, err := s.pool.Query(ctx, `
		SELECT rp.role_id, p.id, p.name, p.description, p.resource, p.action
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = ANY($1)
		ORDER BY p.name`, ids)
	if err != nil {
		return fmt.Errorf("rbac: query role permissions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var roleID int64
		var p Permission
		if err := rows.Scan(&roleID, &p.ID, &p.Name, &p.Description, &p.Resource, &p.Action); err != nil {
			return err
		}
		if i, ok := index[roleID]; ok {
			roles[i].Permissions = append(roles[i].Permissions, p)
		}
	}
	return rows.Err()
}

var _ RoleStore = (*PGRoleStore)(nil)
