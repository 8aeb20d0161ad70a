package roles_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-auth/internal/rbac"
	"github.com/odyssey-erp/odyssey-auth/internal/roles"
	"github.com/odyssey-erp/odyssey-auth/internal/shared"
	"github.com/odyssey-erp/odyssey-auth/internal/testing/memstore"
)

type auditTrail struct{ entries []shared.AuditLog }

func (a *auditTrail) Record(_ context.Context, log shared.AuditLog) error {
	a.entries = append(a.entries, log)
	return nil
}

type fixture struct {
	store   *memstore.Store
	audit   *auditTrail
	service *roles.Service
	admin   *shared.Identity
	auditor rbac.Role
	read    rbac.Permission
	update  rbac.Permission
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	auditor := store.AddRoleWithPermissions("AUDITOR", "USERS_READ")
	update, err := store.EnsurePermission(context.Background(), rbac.Permission{Name: "USERS_UPDATE", Resource: "USERS", Action: rbac.ActionUpdate})
	require.NoError(t, err)
	audit := &auditTrail{}
	admin := shared.NewIdentity(1, "root", true, []string{shared.PermRolesRead, shared.PermRolesCreate, shared.PermRolesUpdate})
	return &fixture{
		store:   store,
		audit:   audit,
		service: roles.NewService(store, audit, nil),
		admin:   admin,
		auditor: auditor,
		read:    auditor.Permissions[0],
		update:  update,
	}
}

func permissionNames(role rbac.Role) []string {
	names := make([]string, 0, len(role.Permissions))
	for _, p := range role.Permissions {
		names = append(names, p.Name)
	}
	return names
}

func TestCreateRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	role, err := f.service.CreateRole(ctx, f.admin, roles.CreateInput{
		Name: " SUPPORT ", Description: "Support desk", PermissionIDs: []int64{f.read.ID, f.read.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "SUPPORT", role.Name)
	assert.Equal(t, []string{"USERS_READ"}, permissionNames(role))
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, "roles:create", f.audit.entries[0].Action)
	assert.Equal(t, "role", f.audit.entries[0].Entity)

	_, err = f.service.CreateRole(ctx, f.admin, roles.CreateInput{Name: "SUPPORT"})
	assert.ErrorIs(t, err, shared.ErrConflict)
	_, err = f.service.CreateRole(ctx, f.admin, roles.CreateInput{Name: "  "})
	assert.ErrorIs(t, err, shared.ErrBadRequest)
	_, err = f.service.CreateRole(ctx, f.admin, roles.CreateInput{Name: "GHOST", PermissionIDs: []int64{999}})
	assert.ErrorIs(t, err, shared.ErrBadRequest)

	empty, err := f.service.CreateRole(ctx, f.admin, roles.CreateInput{Name: "EMPTY"})
	require.NoError(t, err)
	assert.NotNil(t, empty.Permissions)
}

func TestGrantAndRevokePermission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.service.GrantPermission(ctx, f.admin, f.auditor.ID, f.update.ID))
	require.NoError(t, f.service.GrantPermission(ctx, f.admin, f.auditor.ID, f.update.ID))
	role, err := f.service.GetRole(ctx, f.auditor.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"USERS_READ", "USERS_UPDATE"}, permissionNames(role))

	authorities, err := rbac.NewResolver(f.store).Resolve(ctx, principal{roles: []int64{f.auditor.ID}})
	require.NoError(t, err)
	assert.True(t, authorities.Has("USERS_UPDATE"))

	require.NoError(t, f.service.RevokePermission(ctx, f.admin, f.auditor.ID, f.update.ID))
	assert.ErrorIs(t, f.service.RevokePermission(ctx, f.admin, f.auditor.ID, f.update.ID), shared.ErrNotFound)
	role, err = f.service.GetRole(ctx, f.auditor.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"USERS_READ"}, permissionNames(role))

	assert.ErrorIs(t, f.service.GrantPermission(ctx, f.admin, 999, f.update.ID), shared.ErrNotFound)
	assert.ErrorIs(t, f.service.GrantPermission(ctx, f.admin, f.auditor.ID, 999), shared.ErrNotFound)
	assert.ErrorIs(t, f.service.RevokePermission(ctx, f.admin, 0, f.update.ID), shared.ErrBadRequest)

	actions := make([]string, 0, len(f.audit.entries))
	for _, e := range f.audit.entries {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []string{"roles:grant_permission", "roles:grant_permission", "roles:revoke_permission"}, actions)
}

type principal struct{ roles []int64 }

func (p principal) GetID() int64        { return 42 }
func (p principal) IsActive() bool      { return true }
func (p principal) GetRoleIDs() []int64 { return p.roles }

func serve(f *fixture, id *shared.Identity, method, target, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithIdentity(req.Context(), id)))
		})
	})
	r.Route("/api/roles", roles.NewHandler(nil, f.service, rbac.Middleware{}).MountRoutes)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandlerRoutes(t *testing.T) {
	f := newFixture(t)
	rolePath := "/api/roles/" + strconv.FormatInt(f.auditor.ID, 10)
	grantPath := rolePath + "/permissions/" + strconv.FormatInt(f.update.ID, 10)

	rec := serve(f, f.admin, http.MethodGet, rolePath, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var role rbac.Role
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &role))
	assert.Equal(t, "AUDITOR", role.Name)

	assert.Equal(t, http.StatusNotFound, serve(f, f.admin, http.MethodGet, "/api/roles/999", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(f, f.admin, http.MethodGet, "/api/roles/abc", "").Code)

	rec = serve(f, f.admin, http.MethodPost, "/api/roles", `{"name":"SUPPORT","permission_ids":[`+strconv.FormatInt(f.read.ID, 10)+`]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusConflict, serve(f, f.admin, http.MethodPost, "/api/roles", `{"name":"SUPPORT"}`).Code)

	assert.Equal(t, http.StatusNoContent, serve(f, f.admin, http.MethodPost, grantPath, "").Code)
	assert.Equal(t, http.StatusNoContent, serve(f, f.admin, http.MethodDelete, grantPath, "").Code)
	assert.Equal(t, http.StatusNotFound, serve(f, f.admin, http.MethodDelete, grantPath, "").Code)

	reader := shared.NewIdentity(2, "reader", true, []string{shared.PermRolesRead})
	assert.Equal(t, http.StatusOK, serve(f, reader, http.MethodGet, "/api/roles", "").Code)
	assert.Equal(t, http.StatusForbidden, serve(f, reader, http.MethodPost, "/api/roles", `{"name":"X"}`).Code)
	assert.Equal(t, http.StatusForbidden, serve(f, reader, http.MethodPost, grantPath, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(f, nil, http.MethodGet, "/api/roles", "").Code)
}
