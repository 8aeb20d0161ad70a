package users_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-auth/internal/auth"
	"github.com/odyssey-erp/odyssey-auth/internal/rbac"
	"github.com/odyssey-erp/odyssey-auth/internal/shared"
	"github.com/odyssey-erp/odyssey-auth/internal/testing/memstore"
	"github.com/odyssey-erp/odyssey-auth/internal/users"
)

type auditTrail struct {
	entries []shared.AuditLog
	err     error
}

func (a *auditTrail) Record(_ context.Context, log shared.AuditLog) error {
	a.entries = append(a.entries, log)
	return a.err
}

type fixture struct {
	audit   *auditTrail
	store   *memstore.Store
	service *users.Service
	admin   *shared.Identity
	bob     *auth.User
	seller  rbac.Role
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	base := store.AddRoleWithPermissions("USER", "PRODUCTS_READ")
	seller := store.AddRoleWithPermissions("SELLER", "SALES_CREATE")
	bob := &auth.User{Username: "bob", Email: "bob@example.com", PasswordHash: "x", Active: true, RoleIDs: []int64{base.ID}}
	require.NoError(t, store.Save(context.Background(), bob))
	admin := shared.NewIdentity(99, "root", true, []string{shared.PermUsersRead, shared.PermUsersUpdate})
	audit := &auditTrail{}
	return &fixture{audit: audit, store: store, service: users.NewService(store, auth.NewHasher(bcrypt.MinCost), audit, nil), admin: admin, bob: bob, seller: seller}
}

func TestSetActiveTogglesAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.service.SetActive(ctx, f.admin, f.bob.ID, false))
	u, err := f.store.FindByID(ctx, f.bob.ID)
	require.NoError(t, err)
	require.False(t, u.Active)

	require.ErrorIs(t, f.service.SetActive(ctx, f.admin, 404, true), shared.ErrNotFound)
	require.ErrorIs(t, f.service.SetActive(ctx, f.admin, 0, true), shared.ErrBadRequest)

	require.Len(t, f.audit.entries, 1)
	entry := f.audit.entries[0]
	require.Equal(t, "users:deactivate", entry.Action)
	require.Equal(t, int64(99), entry.ActorID)
	require.Equal(t, itoa(f.bob.ID), entry.EntityID)
}

func TestAuditFailureDoesNotUndoChange(t *testing.T) {
	f := newFixture(t)
	f.audit.err = errors.New("audit table missing")

	require.NoError(t, f.service.AddRole(context.Background(), f.admin, f.bob.ID, f.seller.ID))
	u, err := f.store.FindByID(context.Background(), f.bob.ID)
	require.NoError(t, err)
	require.Contains(t, u.RoleIDs, f.seller.ID)
}

func TestListUsersPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, name := range []string{"carol", "dave", "erin"} {
		require.NoError(t, f.store.Save(ctx, &auth.User{Username: name, Email: name + "@example.com", PasswordHash: "x", Active: true}))
	}

	list, page, err := f.service.ListUsers(ctx, 2, 3)
	require.NoError(t, err)
	require.Equal(t, 4, page.Total)
	require.Equal(t, 2, page.TotalPages)
	require.Len(t, list, 1)
	require.Equal(t, "erin", list[0].Username)

	rec := serve(t, f, f.admin, http.MethodGet, "/api/users?page=1&per_page=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Users      []users.User      `json:"users"`
		Pagination shared.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Users, 2)
	require.Equal(t, "bob", body.Users[0].Username)
	require.Equal(t, 2, body.Pagination.PerPage)
}

func TestSetActiveRefusesSelfDeactivation(t *testing.T) {
	f := newFixture(t)
	self := shared.NewIdentity(f.bob.ID, "bob", true, []string{shared.PermUsersUpdate})

	err := f.service.SetActive(context.Background(), self, f.bob.ID, false)
	require.ErrorIs(t, err, shared.ErrBadRequest)
	require.NoError(t, f.service.SetActive(context.Background(), self, f.bob.ID, true))
}

func TestRoleGrantAndRevoke(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.service.AddRole(ctx, f.admin, f.bob.ID, f.seller.ID))
	require.NoError(t, f.service.AddRole(ctx, f.admin, f.bob.ID, f.seller.ID))
	list, page, err := f.service.ListUsers(ctx, 1, 20)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, 1, page.Total)
	require.ElementsMatch(t, []string{"USER", "SELLER"}, list[0].Roles)

	require.NoError(t, f.service.RemoveRole(ctx, f.admin, f.bob.ID, f.seller.ID))
	require.ErrorIs(t, f.service.RemoveRole(ctx, f.admin, f.bob.ID, f.seller.ID), shared.ErrNotFound)
	require.ErrorIs(t, f.service.AddRole(ctx, f.admin, f.bob.ID, 999), shared.ErrNotFound)
	require.ErrorIs(t, f.service.AddRole(ctx, f.admin, -1, f.seller.ID), shared.ErrBadRequest)

	n, err := f.service.CountUsers(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func serve(t *testing.T, f *fixture, id *shared.Identity, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithIdentity(req.Context(), id)))
		})
	})
	r.Route("/api/users", users.NewHandler(nil, f.service, rbac.Middleware{}).MountRoutes)

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandlerRequiresAuthorities(t *testing.T) {
	f := newFixture(t)
	reader := shared.NewIdentity(7, "reader", true, []string{shared.PermUsersRead})

	require.Equal(t, http.StatusOK, serve(t, f, reader, http.MethodGet, "/api/users", "").Code)
	require.Equal(t, http.StatusForbidden, serve(t, f, reader, http.MethodPatch, "/api/users/1/status", `{"active":false}`).Code)
	require.Equal(t, http.StatusUnauthorized, serve(t, f, nil, http.MethodGet, "/api/users", "").Code)
}

func TestHandlerStatusAndRoles(t *testing.T) {
	f := newFixture(t)
	bobPath := "/api/users/" + itoa(f.bob.ID)

	rec := serve(t, f, f.admin, http.MethodPatch, bobPath+"/status", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, f, f.admin, http.MethodPatch, bobPath+"/status", `{"active":false}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(t, f, f.admin, http.MethodPost, bobPath+"/roles/"+itoa(f.seller.ID), "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(t, f, f.admin, http.MethodDelete, bobPath+"/roles/"+itoa(f.seller.ID), "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(t, f, f.admin, http.MethodDelete, bobPath+"/roles/"+itoa(f.seller.ID), "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, f, f.admin, http.MethodPost, "/api/users/abc/roles/1", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hasher := auth.NewHasher(bcrypt.MinCost)

	require.NoError(t, f.service.ChangePassword(ctx, f.admin, f.bob.ID, users.PasswordInput{Password: "n3w-pass"}))
	stored, err := f.store.FindByID(ctx, f.bob.ID)
	require.NoError(t, err)
	require.True(t, hasher.Verify("n3w-pass", stored.PasswordHash))

	require.Len(t, f.audit.entries, 1)
	require.Equal(t, "users:change_password", f.audit.entries[0].Action)

	require.ErrorIs(t, f.service.ChangePassword(ctx, f.admin, f.bob.ID, users.PasswordInput{}), shared.ErrBadRequest)
	require.ErrorIs(t, f.service.ChangePassword(ctx, f.admin, f.bob.ID, users.PasswordInput{Password: strings.Repeat("é", 40)}), shared.ErrBadRequest)
	require.ErrorIs(t, f.service.ChangePassword(ctx, f.admin, 404, users.PasswordInput{Password: "pw"}), shared.ErrNotFound)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, &auth.User{Username: "carol", Email: "carol@example.com", PasswordHash: "x", Active: true}))

	u, err := f.service.UpdateProfile(ctx, f.admin, f.bob.ID, users.ProfileInput{FirstName: " Robert ", Email: "robert@example.com"})
	require.NoError(t, err)
	require.Equal(t, "Robert", u.FirstName)
	require.Equal(t, "robert@example.com", u.Email)
	require.Equal(t, []string{"USER"}, u.Roles)
	require.Equal(t, "users:update_profile", f.audit.entries[0].Action)
	require.Equal(t, []string{"email", "first_name"}, f.audit.entries[0].Meta["fields"])

	_, err = f.service.UpdateProfile(ctx, f.admin, f.bob.ID, users.ProfileInput{Email: "carol@example.com"})
	require.ErrorIs(t, err, shared.ErrConflict)

	_, err = f.service.UpdateProfile(ctx, f.admin, f.bob.ID, users.ProfileInput{Email: "Carol@example.com"})
	require.NoError(t, err)

	_, err = f.service.UpdateProfile(ctx, f.admin, f.bob.ID, users.ProfileInput{})
	require.ErrorIs(t, err, shared.ErrBadRequest)
	_, err = f.service.UpdateProfile(ctx, f.admin, f.bob.ID, users.ProfileInput{Email: "not-an-email"})
	require.ErrorIs(t, err, shared.ErrBadRequest)
}

func TestHandlerGetUserAndPassword(t *testing.T) {
	f := newFixture(t)
	bobPath := "/api/users/" + itoa(f.bob.ID)

	rec := serve(t, f, f.admin, http.MethodGet, bobPath, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got users.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "bob", got.Username)
	require.NotContains(t, rec.Body.String(), "password")

	require.Equal(t, http.StatusNotFound, serve(t, f, f.admin, http.MethodGet, "/api/users/404", "").Code)

	reader := shared.NewIdentity(7, "reader", true, []string{shared.PermUsersRead})
	require.Equal(t, http.StatusForbidden, serve(t, f, reader, http.MethodPatch, bobPath+"/password", `{"password":"x"}`).Code)

	require.Equal(t, http.StatusNoContent, serve(t, f, f.admin, http.MethodPatch, bobPath+"/password", `{"password":"n3w"}`).Code)
	require.Equal(t, http.StatusBadRequest, serve(t, f, f.admin, http.MethodPatch, bobPath+"/password", `{"password":""}`).Code)

	rec = serve(t, f, f.admin, http.MethodPatch, bobPath+"/profile", `{"last_name":"Builder"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "Builder", got.LastName)
}
