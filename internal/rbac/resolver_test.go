package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-auth/internal/shared"
	_ "github.com/odyssey-erp/odyssey-auth/testing"
)

type stubPrincipal struct {
	id     int64
	active bool
	roles  []int64
}

func (p stubPrincipal) GetID() int64        { return p.id }
func (p stubPrincipal) IsActive() bool      { return p.active }
func (p stubPrincipal) GetRoleIDs() []int64 { return p.roles }

type fakeRoleStore struct {
	roles map[int64]Role
	err   error
	calls int
}

func (f *fakeRoleStore) FindRolesByIDs(_ context.Context, ids []int64) ([]Role, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []Role
	for _, id := range ids {
		if role, ok := f.roles[id]; ok {
			out = append(out, role)
		}
	}
	return out, nil
}

func (f *fakeRoleStore) FindRoleByName(_ context.Context, name string) (Role, error) {
	for _, role := range f.roles {
		if role.Name == name {
			return role, nil
		}
	}
	return Role{}, shared.ErrNotFound
}

func perm(name string) Permission {
	return Permission{Name: name}
}

func newFakeRoleStore() *fakeRoleStore {
	return &fakeRoleStore{roles: map[int64]Role{
		1: {ID: 1, Name: "USER", Permissions: []Permission{perm("PRODUCTS_READ"), perm("INVENTORY_READ")}},
		2: {ID: 2, Name: "SELLER", Permissions: []Permission{perm("PRODUCTS_READ"), perm("SALES_CREATE")}},
		3: {ID: 3, Name: "EMPTY"},
	}}
}

func TestResolveUnionsRolePermissions(t *testing.T) {
	store := newFakeRoleStore()
	resolver := NewResolver(store)

	set, err := resolver.Resolve(context.Background(), stubPrincipal{id: 7, active: true, roles: []int64{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, []string{"INVENTORY_READ", "PRODUCTS_READ", "SALES_CREATE"}, set.Slice())
	assert.True(t, set.Has("SALES_CREATE"))
	assert.False(t, set.Has("sales_create"))
}

func TestResolveInactivePrincipalHasNoAuthorities(t *testing.T) {
	store := newFakeRoleStore()
	resolver := NewResolver(store)

	set, err := resolver.Resolve(context.Background(), stubPrincipal{id: 7, active: false, roles: []int64{1, 2}})
	require.NoError(t, err)
	assert.Empty(t, set)
	assert.Zero(t, store.calls)
}

func TestResolveWithoutRoles(t *testing.T) {
	store := newFakeRoleStore()
	resolver := NewResolver(store)

	set, err := resolver.Resolve(context.Background(), stubPrincipal{id: 7, active: true})
	require.NoError(t, err)
	assert.Empty(t, set)

	set, err = resolver.Resolve(context.Background(), stubPrincipal{id: 7, active: true, roles: []int64{3}})
	require.NoError(t, err)
	assert.Empty(t, set)
}

func TestResolveNilPrincipal(t *testing.T) {
	set, err := NewResolver(newFakeRoleStore()).Resolve(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, set)
}

func TestResolvePropagatesStoreError(t *testing.T) {
	boom := errors.New("db down")
	store := &fakeRoleStore{err: boom}

	_, err := NewResolver(store).Resolve(context.Background(), stubPrincipal{id: 9, active: true, roles: []int64{1}})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestFlattenSkipsBlankNames(t *testing.T) {
	set := Flatten([]Role{{Permissions: []Permission{perm(""), perm("USERS_READ"), perm("USERS_READ")}}})
	assert.Equal(t, []string{"USERS_READ"}, set.Slice())
}
