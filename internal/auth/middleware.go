package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/odyssey-auth/internal/rbac"
	"github.com/odyssey-erp/odyssey-auth/internal/shared"
)

// AuthorityResolver expands a principal into its effective authorities.
type AuthorityResolver interface {
	Resolve(ctx context.Context, p rbac.Principal) (rbac.AuthoritySet, error)
}

// RouteMatcher reports whether a request targets the public surface.
type RouteMatcher func(r *http.Request) bool

// PublicRoutes builds a matcher from "METHOD /path" patterns. A trailing "/*"
// matches any sub-path and a "*" method matches every method.
func PublicRoutes(patterns ...string) RouteMatcher {
	type route struct {
		method string
		path   string
		prefix bool
	}
	routes := make([]route, 0, len(patterns))
	for _, p := range patterns {
		method, path, ok := strings.Cut(strings.TrimSpace(p), " ")
		if !ok {
			method, path = "*", method
		}
		rt := route{method: strings.ToUpper(method), path: strings.TrimSpace(path)}
		if strings.HasSuffix(rt.path, "/*") {
			rt.prefix = true
			rt.path = strings.TrimSuffix(rt.path, "*")
		}
		routes = append(routes, rt)
	}
	return func(r *http.Request) bool {
		for _, rt := range routes {
			if rt.method != "*" && rt.method != r.Method {
				continue
			}
			if rt.prefix && strings.HasPrefix(r.URL.Path, rt.path) {
				return true
			}
			if !rt.prefix && r.URL.Path == rt.path {
				return true
			}
		}
		return false
	}
}

// Authenticator establishes the request identity from a bearer token. It never
// rejects a request; authorization is left to rbac.Middleware.
type Authenticator struct {
	tokens   *TokenService
	users    Repository
	resolver AuthorityResolver
	public   RouteMatcher
	recorder EventRecorder
	logger   *slog.Logger
}

// NewAuthenticator constructs an Authenticator.
func NewAuthenticator(tokens *TokenService, users Repository, resolver AuthorityResolver, public RouteMatcher, recorder EventRecorder, logger *slog.Logger) *Authenticator {
	if public == nil {
		public = func(*http.Request) bool { return false }
	}
	if recorder == nil {
		recorder = noopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		tokens:   tokens,
		users:    users,
		resolver: resolver,
		public:   public,
		recorder: recorder,
		logger:   logger,
	}
}

// Middleware attaches a shared.Identity to the request context when a valid
// token is presented and always calls next.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := a.identify(r); id != nil {
			r = r.WithContext(shared.ContextWithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) identify(r *http.Request) *shared.Identity {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		a.recorder.AuthEvent("authenticate", "anonymous")
		return nil
	}
	if a.public(r) {
		a.recorder.AuthEvent("authenticate", "public")
		return nil
	}
	raw, ok := bearerToken(header)
	if !ok {
		a.logger.Debug("authorization header without bearer scheme", slog.String("path", r.URL.Path))
		a.recorder.AuthEvent("authenticate", "invalid")
		return nil
	}
	username, err := a.tokens.Verify(raw)
	if err != nil {
		a.logger.Warn("invalid bearer token",
			slog.String("path", r.URL.Path),
			slog.String("remote", r.RemoteAddr))
		a.recorder.AuthEvent("authenticate", "invalid")
		return nil
	}

	ctx := r.Context()
	user, err := a.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			a.logger.Debug("token subject unknown", slog.String("username", username))
		} else {
			a.logger.Warn("load token subject", slog.String("username", username), slog.Any("error", err))
		}
		a.recorder.AuthEvent("authenticate", "unknown")
		return nil
	}
	if !user.Active {
		a.recorder.AuthEvent("authenticate", "inactive")
		return shared.NewIdentity(user.ID, user.Username, false, nil)
	}
	authorities, err := a.resolver.Resolve(ctx, user)
	if err != nil {
		a.logger.Warn("resolve authorities", slog.String("username", username), slog.Any("error", err))
		a.recorder.AuthEvent("authenticate", "unknown")
		return nil
	}
	a.recorder.AuthEvent("authenticate", "authenticated")
	return shared.NewIdentity(user.ID, user.Username, true, authorities.Slice())
}

// bearerToken strips a case-insensitive "Bearer " scheme. ok is false when
// the scheme is missing or the token after it is empty.
func bearerToken(header string) (token string, ok bool) {
	const prefix = "bearer "
	header = strings.TrimSpace(header)
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return header, false
	}
	token = strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

var _ AuthorityResolver = (*rbac.Resolver)(nil)
