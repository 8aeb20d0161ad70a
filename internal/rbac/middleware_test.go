package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/odyssey-erp/odyssey-auth/internal/shared"
)

func serveWith(id *shared.Identity, mw func(http.Handler) http.Handler) *httptest.ResponseRecorder {
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	if id != nil {
		req = req.WithContext(shared.ContextWithIdentity(req.Context(), id))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRequireAnyAnonymousIsUnauthorized(t *testing.T) {
	rec := serveWith(nil, Middleware{}.RequireAny(shared.PermUsersRead))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestRequireAnyInactiveIsUnauthorized(t *testing.T) {
	id := shared.NewIdentity(1, "carol", false, []string{shared.PermUsersRead})
	rec := serveWith(id, Middleware{}.RequireAny(shared.PermUsersRead))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAnyForbiddenWithoutAuthority(t *testing.T) {
	id := shared.NewIdentity(1, "bob", true, []string{"PRODUCTS_READ"})
	rec := serveWith(id, Middleware{}.RequireAny(shared.PermUsersRead, shared.PermAdminister))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAnyAllowsMatchingAuthority(t *testing.T) {
	id := shared.NewIdentity(1, "alice", true, []string{shared.PermAdminister})
	rec := serveWith(id, Middleware{}.RequireAny(shared.PermUsersRead, " ADMINISTER "))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequireAnyIsCaseSensitive(t *testing.T) {
	id := shared.NewIdentity(1, "alice", true, []string{"users_read"})
	rec := serveWith(id, Middleware{}.RequireAny(shared.PermUsersRead))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAllNeedsEveryAuthority(t *testing.T) {
	partial := shared.NewIdentity(1, "bob", true, []string{shared.PermUsersRead})
	rec := serveWith(partial, Middleware{}.RequireAll(shared.PermUsersRead, shared.PermUsersUpdate))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	full := shared.NewIdentity(1, "alice", true, []string{shared.PermUsersRead, shared.PermUsersUpdate})
	rec = serveWith(full, Middleware{}.RequireAll(shared.PermUsersRead, shared.PermUsersUpdate))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequireAuthenticated(t *testing.T) {
	mw := Middleware{}.RequireAuthenticated
	assert.Equal(t, http.StatusUnauthorized, serveWith(nil, mw).Code)
	assert.Equal(t, http.StatusNoContent, serveWith(shared.NewIdentity(2, "bob", true, nil), mw).Code)
}
