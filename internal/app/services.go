package app

import (
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-auth/internal/auth"
	"github.com/odyssey-erp/odyssey-auth/internal/rbac"
	"github.com/odyssey-erp/odyssey-auth/jobs"
)

// AuthDeps carries the stores shared by the server and the worker.
type AuthDeps struct {
	Users    auth.Repository
	Roles    rbac.RoleStore
	Throttle redis.Cmdable
	Recorder auth.EventRecorder
	Logger   *slog.Logger
}

// NewAuthService builds the token service and the credential flows from configuration.
// A nil throttle client disables login lockout.
func NewAuthService(cfg *Config, deps AuthDeps) (*auth.Service, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	if err != nil {
		return nil, err
	}
	var throttle auth.Throttle
	if deps.Throttle != nil && cfg.LoginMaxAttempts > 0 {
		throttle = auth.NewLoginThrottle(deps.Throttle, deps.Logger, cfg.LoginMaxAttempts, cfg.LoginLockout)
	}
	return auth.NewService(auth.ServiceConfig{
		Repo:        deps.Users,
		Roles:       deps.Roles,
		Hasher:      auth.NewHasher(cfg.BcryptCost),
		Tokens:      tokens,
		Throttle:    throttle,
		Recorder:    deps.Recorder,
		Logger:      deps.Logger,
		DefaultRole: cfg.DefaultRole,
	}), nil
}

// AdminAccount returns the configured bootstrap administrator.
func (c *Config) AdminAccount() auth.AdminAccount {
	return auth.AdminAccount{
		Username: c.BootstrapAdminUsername,
		Email:    c.BootstrapAdminEmail,
		Password: c.BootstrapAdminPassword,
	}
}

// NewBootstrapJob wires the RBAC seeder and admin provisioning for startup and the worker.
func NewBootstrapJob(cfg *Config, store rbac.BootstrapStore, admins jobs.AdminProvisioner, recorder jobs.JobRecorder, logger *slog.Logger) *jobs.BootstrapJob {
	return jobs.NewBootstrapJob(rbac.NewBootstrapper(store, logger), admins, cfg.AdminAccount(), logger, recorder)
}
