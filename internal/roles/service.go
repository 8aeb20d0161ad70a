package roles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-auth/internal/rbac"
	"github.com/odyssey-erp/odyssey-auth/internal/shared"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]rbac.Role, error)
	FindRolesByIDs(ctx context.Context, ids []int64) ([]rbac.Role, error)
	FindPermissionByID(ctx context.Context, id int64) (rbac.Permission, error)
	CreateRole(ctx context.Context, name, description string, permissionIDs []int64) (rbac.Role, error)
	GrantPermission(ctx context.Context, roleID, permissionID int64) error
	RevokePermission(ctx context.Context, roleID, permissionID int64) error
}

// AuditPort records administrative changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CreateInput carries a new role and its initial permissions.
type CreateInput struct {
	Name          string  `json:"name" validate:"required,max=64"`
	Description   string  `json:"description" validate:"max=255"`
	PermissionIDs []int64 `json:"permission_ids"`
}

// Service handles role administration. Holders of a changed role see the
// new authorities on their next request.
type Service struct {
	repo     RepositoryPort
	audit    AuditPort
	logger   *slog.Logger
	validate *validator.Validate
}

// NewService builds Service instance. audit may be nil.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, validate: validator.New()}
}

// ListRoles returns all roles with their permissions.
func (s *Service) ListRoles(ctx context.Context) ([]rbac.Role, error) {
	roles, err := s.repo.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	for i := range roles {
		roles[i] = withPermissions(roles[i])
	}
	return roles, nil
}

// GetRole returns one role with its permissions.
func (s *Service) GetRole(ctx context.Context, id int64) (rbac.Role, error) {
	if id <= 0 {
		return rbac.Role{}, fmt.Errorf("invalid role id: %w", shared.ErrBadRequest)
	}
	roles, err := s.repo.FindRolesByIDs(ctx, []int64{id})
	if err != nil {
		return rbac.Role{}, err
	}
	if len(roles) == 0 {
		return rbac.Role{}, shared.ErrNotFound
	}
	return withPermissions(roles[0]), nil
}

// CreateRole stores a new role. Unknown permission ids are rejected.
func (s *Service) CreateRole(ctx context.Context, actor *shared.Identity, in CreateInput) (rbac.Role, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := s.validate.Struct(in); err != nil {
		return rbac.Role{}, fmt.Errorf("invalid role: %w", shared.ErrBadRequest)
	}
	ids := make([]int64, 0, len(in.PermissionIDs))
	seen := make(map[int64]struct{}, len(in.PermissionIDs))
	for _, id := range in.PermissionIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		if err := s.checkPermission(ctx, id); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return rbac.Role{}, fmt.Errorf("unknown permission id %d: %w", id, shared.ErrBadRequest)
			}
			return rbac.Role{}, err
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	role, err := s.repo.CreateRole(ctx, in.Name, in.Description, ids)
	if err != nil {
		return rbac.Role{}, err
	}
	s.logger.Info("role created", slog.Int64("role_id", role.ID), slog.String("name", role.Name), slog.String("by", actorName(actor)))
	s.record(ctx, actor, "roles:create", role.ID, map[string]any{"name": role.Name, "permission_ids": ids})
	return s.GetRole(ctx, role.ID)
}

// GrantPermission attaches a permission to a role.
func (s *Service) GrantPermission(ctx context.Context, actor *shared.Identity, roleID, permissionID int64) error {
	if _, err := s.GetRole(ctx, roleID); err != nil {
		return err
	}
	if err := s.checkPermission(ctx, permissionID); err != nil {
		return err
	}
	if err := s.repo.GrantPermission(ctx, roleID, permissionID); err != nil {
		return err
	}
	s.logger.Info("permission granted", slog.Int64("role_id", roleID), slog.Int64("permission_id", permissionID), slog.String("by", actorName(actor)))
	s.record(ctx, actor, "roles:grant_permission", roleID, map[string]any{"permission_id": permissionID})
	return nil
}

// RevokePermission detaches a permission from a role.
func (s *Service) RevokePermission(ctx context.Context, actor *shared.Identity, roleID, permissionID int64) error {
	if roleID <= 0 || permissionID <= 0 {
		return fmt.Errorf("invalid id: %w", shared.ErrBadRequest)
	}
	if err := s.repo.RevokePermission(ctx, roleID, permissionID); err != nil {
		return err
	}
	s.logger.Info("permission revoked", slog.Int64("role_id", roleID), slog.Int64("permission_id", permissionID), slog.String("by", actorName(actor)))
	s.record(ctx, actor, "roles:revoke_permission", roleID, map[string]any{"permission_id": permissionID})
	return nil
}

func (s *Service) checkPermission(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("invalid permission id %d: %w", id, shared.ErrBadRequest)
	}
	_, err := s.repo.FindPermissionByID(ctx, id)
	return err
}

func (s *Service) record(ctx context.Context, actor *shared.Identity, action string, roleID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	var actorID int64
	if actor != nil {
		actorID = actor.UserID
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "role",
		EntityID: strconv.FormatInt(roleID, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}

func withPermissions(role rbac.Role) rbac.Role {
	if role.Permissions == nil {
		role.Permissions = []rbac.Permission{}
	}
	return role
}

func actorName(id *shared.Identity) string {
	if id == nil {
		return ""
	}
	return id.Username
}

var _ RepositoryPort = (*rbac.PGRoleStore)(nil)
