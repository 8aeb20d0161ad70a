package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-auth/internal/auth"
	"github.com/odyssey-erp/odyssey-auth/internal/rbac"
)

// Seeder seeds permissions and roles.
type Seeder interface {
	Seed(ctx context.Context) (rbac.SeedReport, error)
}

// AdminProvisioner creates the administrator account when missing.
type AdminProvisioner interface {
	EnsureAdmin(ctx context.Context, acct auth.AdminAccount) (bool, error)
}

// JobRecorder counts job outcomes.
type JobRecorder interface {
	JobEvent(task, outcome string)
}

// BootstrapResult summarises a bootstrap run.
type BootstrapResult struct {
	Seed         rbac.SeedReport
	AdminCreated bool
}

// BootstrapJob seeds RBAC data and provisions the admin account. It runs both
// synchronously at startup and as the rbac:bootstrap task.
type BootstrapJob struct {
	Seeder   Seeder
	Admins   AdminProvisioner
	Admin    auth.AdminAccount
	Logger   *slog.Logger
	Recorder JobRecorder
}

// NewBootstrapJob wires dependencies for the bootstrap handler.
func NewBootstrapJob(seeder Seeder, admins AdminProvisioner, admin auth.AdminAccount, logger *slog.Logger, recorder JobRecorder) *BootstrapJob {
	return &BootstrapJob{Seeder: seeder, Admins: admins, Admin: admin, Logger: logger, Recorder: recorder}
}

// Run executes the bootstrap once.
func (j *BootstrapJob) Run(ctx context.Context, skipAdmin bool) (result BootstrapResult, err error) {
	if j == nil || j.Seeder == nil {
		return result, errors.New("rbac bootstrap: job not configured")
	}
	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		if j.Recorder != nil {
			j.Recorder.JobEvent(TaskRBACBootstrap, outcome)
		}
	}()

	result.Seed, err = j.Seeder.Seed(ctx)
	if err != nil {
		return result, fmt.Errorf("rbac bootstrap: seed: %w", err)
	}
	if !skipAdmin && j.Admins != nil {
		result.AdminCreated, err = j.Admins.EnsureAdmin(ctx, j.Admin)
		if err != nil {
			return result, fmt.Errorf("rbac bootstrap: admin: %w", err)
		}
	}
	j.logger().Info("rbac bootstrap finished",
		slog.Int("permissions", result.Seed.Permissions),
		slog.Any("roles_created", result.Seed.RolesCreated),
		slog.Bool("admin_created", result.AdminCreated),
		slog.Duration("duration", time.Since(start)))
	return result, nil
}

// Handle processes rbac:bootstrap tasks.
func (j *BootstrapJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload BootstrapPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("rbac bootstrap: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	if payload.RequestedBy != "" {
		j.logger().Info("rbac bootstrap requested", slog.String("by", payload.RequestedBy))
	}
	_, err := j.Run(ctx, payload.SkipAdmin)
	return err
}

func (j *BootstrapJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger
}
