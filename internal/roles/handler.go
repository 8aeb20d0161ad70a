package roles

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-auth/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-auth/internal/rbac"
	"github.com/odyssey-erp/odyssey-auth/internal/shared"
)

// Handler manages role endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermRolesRead))
		r.Get("/", h.listRoles)
		r.Get("/{id}", h.getRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermRolesCreate))
		r.Post("/", h.createRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermRolesUpdate))
		r.Post("/{id}/permissions/{permissionID}", h.grantPermission)
		r.Delete("/{id}/permissions/{permissionID}", h.revokePermission)
	})
}

// @Summary List roles with their permissions
// @Tags roles
// @Produce json
// @Security BearerAuth
// @Router /api/roles [get]
func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.fail(w, "list roles failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": roles})
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		h.fail(w, "get role failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

// @Summary Create a role
// @Tags roles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Router /api/roles [post]
func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, shared.ErrBadRequest)
		return
	}
	role, err := h.service.CreateRole(r.Context(), shared.IdentityFromContext(r.Context()), in)
	if err != nil {
		h.fail(w, "create role failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *Handler) grantPermission(w http.ResponseWriter, r *http.Request) {
	roleID, permissionID, ok := rolePermissionIDs(w, r)
	if !ok {
		return
	}
	if err := h.service.GrantPermission(r.Context(), shared.IdentityFromContext(r.Context()), roleID, permissionID); err != nil {
		h.fail(w, "grant permission failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) revokePermission(w http.ResponseWriter, r *http.Request) {
	roleID, permissionID, ok := rolePermissionIDs(w, r)
	if !ok {
		return
	}
	if err := h.service.RevokePermission(r.Context(), shared.IdentityFromContext(r.Context()), roleID, permissionID); err != nil {
		h.fail(w, "revoke permission failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if !errors.Is(err, shared.ErrNotFound) && !errors.Is(err, shared.ErrBadRequest) && !errors.Is(err, shared.ErrConflict) {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func rolePermissionIDs(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	roleID, ok := pathID(w, r, "id")
	if !ok {
		return 0, 0, false
	}
	permissionID, ok := pathID(w, r, "permissionID")
	if !ok {
		return 0, 0, false
	}
	return roleID, permissionID, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, shared.ErrBadRequest)
		return 0, false
	}
	return id, true
}
