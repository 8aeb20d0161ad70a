package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-auth/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-auth/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger  *slog.Logger
	service *Service
	users   Repository
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, users Repository) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, users: users}
}

// MountRoutes registers the public auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.Post("/validate", h.handleValidate)
	r.Post("/logout", h.handleLogout)
}

// handleRegister creates an account.
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterInput true "Registration details"
// @Success 201 {object} AuthResult
// @Failure 400 {object} httpx.ProblemDetail
// @Failure 409 {object} httpx.ProblemDetail
// @Router /api/auth/register [post]
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, shared.ErrBadRequest)
		return
	}
	result, err := h.service.Register(r.Context(), in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

// handleLogin exchanges credentials for a token.
// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginInput true "Credentials"
// @Success 200 {object} AuthResult
// @Failure 401 {object} httpx.ProblemDetail
// @Router /api/auth/login [post]
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, shared.ErrBadRequest)
		return
	}
	result, err := h.service.Login(r.Context(), in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

type validateRequest struct {
	Token string `json:"token"`
}

// handleValidate checks a token taken from the body or the token query parameter.
// @Summary Validate a token
// @Tags auth
// @Accept json
// @Produce json
// @Param token query string false "Token"
// @Success 200 {object} AuthResult
// @Failure 401 {object} httpx.ProblemDetail
// @Router /api/auth/validate [post]
func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		var body validateRequest
		if err := httpx.DecodeJSON(r, &body); err != nil && !errors.Is(err, io.EOF) {
			httpx.RespondError(w, shared.ErrBadRequest)
			return
		}
		token = body.Token
	}
	if token == "" {
		token = r.Header.Get("Authorization")
	}
	result, err := h.service.Validate(r.Context(), token)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

// handleLogout is a no-op for stateless tokens; clients discard theirs.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

type meResponse struct {
	Profile
	Authorities []string `json:"authorities"`
}

// Me returns the caller's profile and effective authorities.
// @Summary Current principal
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} meResponse
// @Failure 401 {object} httpx.ProblemDetail
// @Router /api/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())
	if !id.Authenticated() {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	user, err := h.users.FindByID(r.Context(), id.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.RespondError(w, shared.ErrUnauthorized)
			return
		}
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, meResponse{Profile: ProfileOf(user), Authorities: id.Authorities()})
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	if !isClientError(err) {
		h.logger.Error("auth request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func isClientError(err error) bool {
	for _, target := range []error{shared.ErrUnauthorized, shared.ErrInvalidToken, shared.ErrBadRequest, shared.ErrConflict, shared.ErrNotFound, shared.ErrForbidden} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
