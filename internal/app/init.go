package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-auth/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-auth/internal/rbac"
	"github.com/odyssey-erp/odyssey-auth/internal/shared"
	"github.com/odyssey-erp/odyssey-auth/jobs"
)

// RBACCounter reports seeded catalogue sizes.
type RBACCounter interface {
	Counts(ctx context.Context) (permissions, roles int, err error)
	FindRoleByName(ctx context.Context, name string) (rbac.Role, error)
}

// UserCounter reports the number of accounts.
type UserCounter interface {
	CountUsers(ctx context.Context) (int, error)
}

// InitHandler exposes system initialisation status and the bootstrap trigger.
type InitHandler struct {
	logger *slog.Logger
	rbac   RBACCounter
	users  UserCounter
	jobs   jobs.Enqueuer
	guard  rbac.Middleware
}

// NewInitHandler constructs an InitHandler. A nil enqueuer disables the trigger.
func NewInitHandler(logger *slog.Logger, counter RBACCounter, users UserCounter, enqueuer jobs.Enqueuer, guard rbac.Middleware) *InitHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &InitHandler{logger: logger, rbac: counter, users: users, jobs: enqueuer, guard: guard}
}

// MountRoutes registers init routes.
func (h *InitHandler) MountRoutes(r chi.Router) {
	r.Get("/status", h.status)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(shared.PermAdminister))
		r.Post("/bootstrap", h.bootstrap)
	})
}

type initStatus struct {
	Initialized bool `json:"initialized"`
	Permissions int  `json:"permissions"`
	Roles       int  `json:"roles"`
	Users       int  `json:"users"`
	AdminRole   bool `json:"admin_role"`
}

// @Summary System initialisation status
// @Tags init
// @Produce json
// @Router /api/init/status [get]
func (h *InitHandler) status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	perms, roles, err := h.rbac.Counts(ctx)
	if err != nil {
		h.logger.Error("init status counts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	users, err := h.users.CountUsers(ctx)
	if err != nil {
		h.logger.Error("init status users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	adminRole := true
	if _, err := h.rbac.FindRoleByName(ctx, "ADMIN"); err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error("init status admin role", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		adminRole = false
	}
	httpx.JSON(w, http.StatusOK, initStatus{
		Initialized: perms > 0 && adminRole,
		Permissions: perms,
		Roles:       roles,
		Users:       users,
		AdminRole:   adminRole,
	})
}

// @Summary Enqueue the RBAC bootstrap job
// @Tags init
// @Security BearerAuth
// @Success 202
// @Router /api/init/bootstrap [post]
func (h *InitHandler) bootstrap(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "job queue not configured")
		return
	}
	requestedBy := ""
	if id := shared.IdentityFromContext(r.Context()); id != nil {
		requestedBy = id.Username
	}
	info, err := h.jobs.EnqueueBootstrap(r.Context(), jobs.BootstrapPayload{RequestedBy: requestedBy})
	if err != nil {
		if errors.Is(err, jobs.ErrAlreadyQueued) {
			httpx.JSON(w, http.StatusAccepted, map[string]any{"task": jobs.TaskRBACBootstrap, "status": "already queued"})
			return
		}
		h.logger.Error("enqueue bootstrap", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("bootstrap enqueued", slog.String("by", requestedBy), slog.String("task_id", info.ID))
	httpx.JSON(w, http.StatusAccepted, map[string]any{"task": jobs.TaskRBACBootstrap, "id": info.ID, "status": "queued"})
}
