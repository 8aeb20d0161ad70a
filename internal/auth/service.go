package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-auth/internal/rbac"
	"github.com/odyssey-erp/odyssey-auth/internal/shared"
)

// EventRecorder receives auth outcomes for metrics.
type EventRecorder interface {
	AuthEvent(event, outcome string)
}

type noopRecorder struct{}

func (noopRecorder) AuthEvent(string, string) {}

// ServiceConfig carries the collaborators of Service.
type ServiceConfig struct {
	Repo        Repository
	Roles       rbac.RoleStore
	Hasher      *Hasher
	Tokens      *TokenService
	Throttle    Throttle
	Recorder    EventRecorder
	Logger      *slog.Logger
	DefaultRole string
}

// Service wraps registration, login and token validation rules.
type Service struct {
	repo        Repository
	roles       rbac.RoleStore
	hasher      *Hasher
	tokens      *TokenService
	throttle    Throttle
	recorder    EventRecorder
	logger      *slog.Logger
	validate    *validator.Validate
	defaultRole string
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		repo:        cfg.Repo,
		roles:       cfg.Roles,
		hasher:      cfg.Hasher,
		tokens:      cfg.Tokens,
		throttle:    cfg.Throttle,
		recorder:    cfg.Recorder,
		logger:      cfg.Logger,
		validate:    validator.New(),
		defaultRole: strings.TrimSpace(cfg.DefaultRole),
	}
	if s.recorder == nil {
		s.recorder = noopRecorder{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.hasher == nil {
		s.hasher = NewHasher(0)
	}
	if s.throttle == nil {
		s.throttle = (*LoginThrottle)(nil)
	}
	if s.defaultRole == "" {
		s.defaultRole = "USER"
	}
	return s
}

// Tokens exposes the token service used by the orchestrator.
func (s *Service) Tokens() *TokenService {
	return s.tokens
}

// Hasher exposes the password hasher so administrative password changes use
// the same cost.
func (s *Service) Hasher() *Hasher {
	return s.hasher
}

// Register creates an account and returns a token for it.
func (s *Service) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if err := s.validate.Struct(in); err != nil {
		s.recorder.AuthEvent("register", "invalid")
		return AuthResult{}, fmt.Errorf("%s: %w", describeValidation(err), shared.ErrBadRequest)
	}

	taken, err := s.repo.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return AuthResult{}, fmt.Errorf("auth: register: %w", err)
	}
	if taken {
		s.recorder.AuthEvent("register", "conflict")
		return AuthResult{}, fmt.Errorf("username already registered: %w", shared.ErrConflict)
	}
	taken, err = s.repo.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return AuthResult{}, fmt.Errorf("auth: register: %w", err)
	}
	if taken {
		s.recorder.AuthEvent("register", "conflict")
		return AuthResult{}, fmt.Errorf("email already registered: %w", shared.ErrConflict)
	}

	roleIDs, err := s.resolveRoleIDs(ctx, in.RoleIDs)
	if err != nil {
		if errors.Is(err, shared.ErrBadRequest) {
			s.recorder.AuthEvent("register", "invalid")
		}
		return AuthResult{}, err
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, shared.ErrBadRequest) {
			s.recorder.AuthEvent("register", "invalid")
		}
		return AuthResult{}, err
	}
	user := &User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: digest,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Active:       true,
		RoleIDs:      roleIDs,
	}
	if err := s.repo.Save(ctx, user); err != nil {
		if errors.Is(err, shared.ErrConflict) {
			s.recorder.AuthEvent("register", "conflict")
		}
		return AuthResult{}, err
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return AuthResult{}, err
	}
	s.recorder.AuthEvent("register", "success")
	s.logger.Info("user registered", slog.Int64("user_id", user.ID), slog.String("username", user.Username))
	return AuthResult{Token: token, Profile: ProfileOf(user)}, nil
}

// resolveRoleIDs checks requested role ids or falls back to the default role.
func (s *Service) resolveRoleIDs(ctx context.Context, requested []int64) ([]int64, error) {
	if len(requested) == 0 {
		role, err := s.roles.FindRoleByName(ctx, s.defaultRole)
		if err != nil {
			// Surfaces as a server fault, never as ErrNotFound.
			return nil, fmt.Errorf("auth: default role %q unavailable: %v", s.defaultRole, err)
		}
		return []int64{role.ID}, nil
	}
	unique := make([]int64, 0, len(requested))
	seen := make(map[int64]struct{}, len(requested))
	for _, id := range requested {
		if id <= 0 {
			return nil, fmt.Errorf("invalid role id %d: %w", id, shared.ErrBadRequest)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	roles, err := s.roles.FindRolesByIDs(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("auth: load roles: %w", err)
	}
	if len(roles) != len(unique) {
		return nil, fmt.Errorf("unknown role id: %w", shared.ErrBadRequest)
	}
	return unique, nil
}

// Login checks credentials and issues a token. Every credential failure yields
// the same shared.ErrUnauthorized.
func (s *Service) Login(ctx context.Context, in LoginInput) (AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := s.validate.Struct(in); err != nil {
		s.recorder.AuthEvent("login", "invalid")
		return AuthResult{}, fmt.Errorf("%s: %w", describeValidation(err), shared.ErrBadRequest)
	}

	if s.throttle.Locked(ctx, in.Username) {
		s.hasher.Waste(in.Password)
		s.recorder.AuthEvent("login", "locked")
		s.logger.Warn("login locked", slog.String("username", in.Username))
		return AuthResult{}, shared.ErrUnauthorized
	}

	user, err := s.repo.FindByUsername(ctx, in.Username)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return AuthResult{}, fmt.Errorf("auth: login lookup: %w", err)
		}
		s.hasher.Waste(in.Password)
		s.failLogin(ctx, in.Username)
		return AuthResult{}, shared.ErrUnauthorized
	}
	if !s.hasher.Verify(in.Password, user.PasswordHash) || !user.Active {
		s.failLogin(ctx, in.Username)
		return AuthResult{}, shared.ErrUnauthorized
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return AuthResult{}, err
	}
	s.throttle.Reset(ctx, in.Username)
	s.recorder.AuthEvent("login", "success")
	return AuthResult{Token: token, Profile: ProfileOf(user)}, nil
}

func (s *Service) failLogin(ctx context.Context, username string) {
	s.throttle.Fail(ctx, username)
	s.recorder.AuthEvent("login", "failure")
}

// Validate verifies token, reloads its user and echoes the login shape. The
// token may carry a "Bearer " scheme.
func (s *Service) Validate(ctx context.Context, token string) (AuthResult, error) {
	token, _ = bearerToken(token)
	username, err := s.tokens.Verify(token)
	if err != nil {
		s.recorder.AuthEvent("validate", "invalid")
		return AuthResult{}, shared.ErrUnauthorized
	}
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return AuthResult{}, fmt.Errorf("auth: validate lookup: %w", err)
		}
		s.recorder.AuthEvent("validate", "invalid")
		return AuthResult{}, shared.ErrUnauthorized
	}
	if !user.Active {
		s.recorder.AuthEvent("validate", "inactive")
		return AuthResult{}, shared.ErrUnauthorized
	}
	s.recorder.AuthEvent("validate", "success")
	return AuthResult{Token: token, Profile: ProfileOf(user)}, nil
}

// AdminAccount describes the bootstrap administrator.
type AdminAccount struct {
	Username string
	Email    string
	Password string
	Role     string
}

// EnsureAdmin creates the administrator account when it is absent. An existing
// account is left untouched. An empty password skips provisioning.
func (s *Service) EnsureAdmin(ctx context.Context, acct AdminAccount) (bool, error) {
	acct.Username = strings.TrimSpace(acct.Username)
	if acct.Username == "" || acct.Password == "" {
		s.logger.Info("admin provisioning skipped: no credentials configured")
		return false, nil
	}
	if acct.Role == "" {
		acct.Role = "ADMIN"
	}
	exists, err := s.repo.ExistsByUsername(ctx, acct.Username)
	if err != nil {
		return false, fmt.Errorf("auth: ensure admin: %w", err)
	}
	if exists {
		return false, nil
	}
	role, err := s.roles.FindRoleByName(ctx, acct.Role)
	if err != nil {
		return false, fmt.Errorf("auth: ensure admin role %q: %w", acct.Role, err)
	}
	digest, err := s.hasher.Hash(acct.Password)
	if err != nil {
		return false, err
	}
	admin := &User{
		Username:     acct.Username,
		Email:        strings.TrimSpace(acct.Email),
		PasswordHash: digest,
		FirstName:    "System",
		LastName:     "Administrator",
		Active:       true,
		RoleIDs:      []int64{role.ID},
	}
	if err := s.repo.Save(ctx, admin); err != nil {
		if errors.Is(err, shared.ErrConflict) {
			return false, nil
		}
		return false, err
	}
	s.logger.Info("admin account created", slog.String("username", admin.Username))
	return true, nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
