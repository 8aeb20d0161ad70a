package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-auth/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, limit, offset int) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	SetPasswordHash(ctx context.Context, id int64, digest string) error
	UpdateProfile(ctx context.Context, id int64, in ProfileInput) error
	SetActive(ctx context.Context, id int64, active bool) error
	AddRole(ctx context.Context, userID, roleID int64) error
	RemoveRole(ctx context.Context, userID, roleID int64) error
	CountUsers(ctx context.Context) (int, error)
}

// PasswordHasher digests a new plaintext password.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
}

// AuditPort records administrative changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles user administration. Changes apply on the caller's next
// request because identities are resolved per request.
type Service struct {
	repo     RepositoryPort
	hasher   PasswordHasher
	audit    AuditPort
	logger   *slog.Logger
	validate *validator.Validate
}

// NewService builds Service instance. audit may be nil.
func NewService(repo RepositoryPort, hasher PasswordHasher, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, hasher: hasher, audit: audit, logger: logger, validate: validator.New()}
}

// ListUsers returns one page of users ordered by username.
func (s *Service) ListUsers(ctx context.Context, page, perPage int) ([]User, shared.Pagination, error) {
	total, err := s.repo.CountUsers(ctx)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	p := shared.NewPagination(page, perPage, total)
	list, err := s.repo.ListUsers(ctx, p.PerPage, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, p, nil
}

// GetUser returns one account.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	if id <= 0 {
		return User{}, fmt.Errorf("invalid user id: %w", shared.ErrBadRequest)
	}
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	if u.Roles == nil {
		u.Roles = []string{}
	}
	return u, nil
}

// ChangePassword replaces the password of an account. Issued tokens stay
// valid until they expire.
func (s *Service) ChangePassword(ctx context.Context, actor *shared.Identity, id int64, in PasswordInput) error {
	if id <= 0 {
		return fmt.Errorf("invalid user id: %w", shared.ErrBadRequest)
	}
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("password required: %w", shared.ErrBadRequest)
	}
	if s.hasher == nil {
		return errors.New("users: no password hasher configured")
	}
	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return err
	}
	if err := s.repo.SetPasswordHash(ctx, id, digest); err != nil {
		return err
	}
	s.logger.Info("password changed", slog.Int64("user_id", id), slog.String("by", actorName(actor)))
	s.record(ctx, actor, "users:change_password", id, nil)
	return nil
}

// UpdateProfile changes the email and names of an account and returns the
// stored result. An email held by another account yields shared.ErrConflict.
func (s *Service) UpdateProfile(ctx context.Context, actor *shared.Identity, id int64, in ProfileInput) (User, error) {
	if id <= 0 {
		return User{}, fmt.Errorf("invalid user id: %w", shared.ErrBadRequest)
	}
	in.Email = strings.TrimSpace(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if err := s.validate.Struct(in); err != nil {
		return User{}, fmt.Errorf("invalid profile: %w", shared.ErrBadRequest)
	}
	fields := changedFields(in)
	if len(fields) == 0 {
		return User{}, fmt.Errorf("nothing to update: %w", shared.ErrBadRequest)
	}
	if err := s.repo.UpdateProfile(ctx, id, in); err != nil {
		return User{}, err
	}
	s.logger.Info("profile updated", slog.Int64("user_id", id), slog.Any("fields", fields), slog.String("by", actorName(actor)))
	s.record(ctx, actor, "users:update_profile", id, map[string]any{"fields": fields})
	return s.GetUser(ctx, id)
}

func changedFields(in ProfileInput) []string {
	var fields []string
	if in.Email != "" {
		fields = append(fields, "email")
	}
	if in.FirstName != "" {
		fields = append(fields, "first_name")
	}
	if in.LastName != "" {
		fields = append(fields, "last_name")
	}
	return fields
}

// CountUsers returns the number of accounts.
func (s *Service) CountUsers(ctx context.Context) (int, error) {
	return s.repo.CountUsers(ctx)
}

// SetActive activates or deactivates an account.
func (s *Service) SetActive(ctx context.Context, actor *shared.Identity, id int64, active bool) error {
	if id <= 0 {
		return fmt.Errorf("invalid user id: %w", shared.ErrBadRequest)
	}
	if actor != nil && actor.UserID == id && !active {
		return fmt.Errorf("cannot deactivate own account: %w", shared.ErrBadRequest)
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return err
	}
	s.logger.Info("user status changed", slog.Int64("user_id", id), slog.Bool("active", active), slog.String("by", actorName(actor)))
	action := "users:activate"
	if !active {
		action = "users:deactivate"
	}
	s.record(ctx, actor, action, id, map[string]any{"active": active})
	return nil
}

// AddRole grants a role.
func (s *Service) AddRole(ctx context.Context, actor *shared.Identity, userID, roleID int64) error {
	if userID <= 0 || roleID <= 0 {
		return fmt.Errorf("invalid id: %w", shared.ErrBadRequest)
	}
	if err := s.repo.AddRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.logger.Info("role granted", slog.Int64("user_id", userID), slog.Int64("role_id", roleID), slog.String("by", actorName(actor)))
	s.record(ctx, actor, "users:grant_role", userID, map[string]any{"role_id": roleID})
	return nil
}

// RemoveRole revokes a role.
func (s *Service) RemoveRole(ctx context.Context, actor *shared.Identity, userID, roleID int64) error {
	if userID <= 0 || roleID <= 0 {
		return fmt.Errorf("invalid id: %w", shared.ErrBadRequest)
	}
	if err := s.repo.RemoveRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.logger.Info("role revoked", slog.Int64("user_id", userID), slog.Int64("role_id", roleID), slog.String("by", actorName(actor)))
	s.record(ctx, actor, "users:revoke_role", userID, map[string]any{"role_id": roleID})
	return nil
}

// record writes an audit entry. Audit failures never undo the change.
func (s *Service) record(ctx context.Context, actor *shared.Identity, action string, userID int64, meta map[string]any) {
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
		Entity:   "user",
		EntityID: strconv.FormatInt(userID, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}

func actorName(id *shared.Identity) string {
	if id == nil {
		return ""
	}
	return id.Username
}
