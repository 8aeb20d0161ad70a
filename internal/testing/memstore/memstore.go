// Package memstore provides an in-memory credential store for tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/odyssey-erp/odyssey-auth/internal/auth"
	"github.com/odyssey-erp/odyssey-auth/internal/rbac"
	"github.com/odyssey-erp/odyssey-auth/internal/roles"
	"github.com/odyssey-erp/odyssey-auth/internal/shared"
	"github.com/odyssey-erp/odyssey-auth/internal/users"
)

// Store keeps users, roles and permissions in memory.
type Store struct {
	mu sync.RWMutex

	users       map[int64]*auth.User
	roles       map[int64]rbac.Role
	permissions map[string]rbac.Permission

	nextUser int64
	nextRole int64
	nextPerm int64

	// FailLookups makes every user lookup return the error when set.
	FailLookups error
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:       map[int64]*auth.User{},
		roles:       map[int64]rbac.Role{},
		permissions: map[string]rbac.Permission{},
	}
}

// FindByUsername implements auth.Repository.
func (s *Store) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailLookups != nil {
		return nil, s.FailLookups
	}
	for _, u := range s.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, shared.ErrNotFound
}

// FindByID implements auth.Repository.
func (s *Store) FindByID(_ context.Context, id int64) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailLookups != nil {
		return nil, s.FailLookups
	}
	u, ok := s.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneUser(u), nil
}

// ExistsByUsername implements auth.Repository.
func (s *Store) ExistsByUsername(_ context.Context, username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

// ExistsByEmail implements auth.Repository.
func (s *Store) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// Save implements auth.Repository. Duplicate usernames or emails yield shared.ErrConflict.
func (s *Store) Save(_ context.Context, u *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return shared.ErrConflict
		}
	}
	s.nextUser++
	now := time.Now().UTC()
	u.ID = s.nextUser
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = cloneUser(u)
	return nil
}

// FindRolesByIDs implements rbac.RoleStore.
func (s *Store) FindRolesByIDs(_ context.Context, ids []int64) ([]rbac.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []rbac.Role{}
	for _, id := range ids {
		if role, ok := s.roles[id]; ok {
			out = append(out, role)
		}
	}
	return out, nil
}

// FindRoleByName implements rbac.RoleStore.
func (s *Store) FindRoleByName(_ context.Context, name string) (rbac.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, role := range s.roles {
		if role.Name == name {
			return role, nil
		}
	}
	return rbac.Role{}, shared.ErrNotFound
}

// EnsurePermission implements rbac.BootstrapStore.
func (s *Store) EnsurePermission(_ context.Context, p rbac.Permission) (rbac.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.permissions[p.Name]; ok {
		return existing, nil
	}
	s.nextPerm++
	p.ID = s.nextPerm
	s.permissions[p.Name] = p
	return p, nil
}

// CreateRole implements rbac.BootstrapStore.
func (s *Store) CreateRole(_ context.Context, name, description string, permissionIDs []int64) (rbac.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, role := range s.roles {
		if role.Name == name {
			return rbac.Role{}, shared.ErrConflict
		}
	}
	byID := make(map[int64]rbac.Permission, len(s.permissions))
	for _, p := range s.permissions {
		byID[p.ID] = p
	}
	s.nextRole++
	now := time.Now().UTC()
	role := rbac.Role{ID: s.nextRole, Name: name, Description: description, CreatedAt: now, UpdatedAt: now}
	for _, id := range permissionIDs {
		if p, ok := byID[id]; ok {
			role.Permissions = append(role.Permissions, p)
		}
	}
	s.roles[role.ID] = role
	return role, nil
}

// AddRoleWithPermissions creates a role granting the named permissions, creating them as needed.
func (s *Store) AddRoleWithPermissions(name string, perms ...string) rbac.Role {
	ids := make([]int64, 0, len(perms))
	for _, p := range perms {
		resource, action, _ := strings.Cut(p, "_")
		saved, _ := s.EnsurePermission(context.Background(), rbac.Permission{Name: p, Resource: resource, Action: rbac.Action(action)})
		ids = append(ids, saved.ID)
	}
	role, _ := s.CreateRole(context.Background(), name, name, ids)
	return role
}

// ListRoles implements roles.RepositoryPort.
func (s *Store) ListRoles(_ context.Context) ([]rbac.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]rbac.Role, 0, len(s.roles))
	for _, role := range s.roles {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ListPermissions implements rbac.PermissionReader.
func (s *Store) ListPermissions(_ context.Context) ([]rbac.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]rbac.Permission, 0, len(s.permissions))
	for _, p := range s.permissions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// FindPermissionByID implements rbac.PermissionReader.
func (s *Store) FindPermissionByID(_ context.Context, id int64) (rbac.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.permissions {
		if p.ID == id {
			return p, nil
		}
	}
	return rbac.Permission{}, shared.ErrNotFound
}

// GrantPermission implements roles.RepositoryPort.
func (s *Store) GrantPermission(_ context.Context, roleID, permissionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	role, ok := s.roles[roleID]
	if !ok {
		return shared.ErrNotFound
	}
	var perm rbac.Permission
	found := false
	for _, p := range s.permissions {
		if p.ID == permissionID {
			perm, found = p, true
			break
		}
	}
	if !found {
		return shared.ErrNotFound
	}
	for _, p := range role.Permissions {
		if p.ID == permissionID {
			return nil
		}
	}
	granted := make([]rbac.Permission, 0, len(role.Permissions)+1)
	granted = append(granted, role.Permissions...)
	role.Permissions = append(granted, perm)
	role.UpdatedAt = time.Now().UTC()
	s.roles[roleID] = role
	return nil
}

// RevokePermission implements roles.RepositoryPort.
func (s *Store) RevokePermission(_ context.Context, roleID, permissionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	role, ok := s.roles[roleID]
	if !ok {
		return shared.ErrNotFound
	}
	kept := make([]rbac.Permission, 0, len(role.Permissions))
	for _, p := range role.Permissions {
		if p.ID != permissionID {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(role.Permissions) {
		return shared.ErrNotFound
	}
	role.Permissions = kept
	role.UpdatedAt = time.Now().UTC()
	s.roles[roleID] = role
	return nil
}

// Counts reports stored permissions and roles.
func (s *Store) Counts(_ context.Context) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.permissions), len(s.roles), nil
}

// ListUsers implements users.RepositoryPort.
func (s *Store) ListUsers(_ context.Context, limit, offset int) ([]users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]users.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, s.adminView(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	if offset >= len(out) {
		return []users.User{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// GetUser implements users.RepositoryPort.
func (s *Store) GetUser(_ context.Context, id int64) (users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return users.User{}, shared.ErrNotFound
	}
	return s.adminView(u), nil
}

// SetPasswordHash implements users.RepositoryPort.
func (s *Store) SetPasswordHash(_ context.Context, id int64, digest string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.PasswordHash = digest
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateProfile implements users.RepositoryPort.
func (s *Store) UpdateProfile(_ context.Context, id int64, in users.ProfileInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	if in.Email != "" {
		for _, other := range s.users {
			if other.ID != id && other.Email == in.Email {
				return shared.ErrConflict
			}
		}
		u.Email = in.Email
	}
	if in.FirstName != "" {
		u.FirstName = in.FirstName
	}
	if in.LastName != "" {
		u.LastName = in.LastName
	}
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// SetActive implements users.RepositoryPort.
func (s *Store) SetActive(_ context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.Active = active
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// AddRole implements users.RepositoryPort.
func (s *Store) AddRole(_ context.Context, userID, roleID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return shared.ErrNotFound
	}
	if _, ok := s.roles[roleID]; !ok {
		return shared.ErrNotFound
	}
	for _, id := range u.RoleIDs {
		if id == roleID {
			return nil
		}
	}
	u.RoleIDs = append(u.RoleIDs, roleID)
	return nil
}

// RemoveRole implements users.RepositoryPort.
func (s *Store) RemoveRole(_ context.Context, userID, roleID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return shared.ErrNotFound
	}
	for i, id := range u.RoleIDs {
		if id == roleID {
			u.RoleIDs = append(u.RoleIDs[:i:i], u.RoleIDs[i+1:]...)
			return nil
		}
	}
	return shared.ErrNotFound
}

// CountUsers implements users.RepositoryPort.
func (s *Store) CountUsers(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

func (s *Store) adminView(u *auth.User) users.User {
	names := []string{}
	for _, id := range u.RoleIDs {
		if role, ok := s.roles[id]; ok {
			names = append(names, role.Name)
		}
	}
	sort.Strings(names)
	return users.User{
		ID: u.ID, Username: u.Username, Email: u.Email,
		FirstName: u.FirstName, LastName: u.LastName, IsActive: u.Active,
		Roles: names, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
}

func cloneUser(u *auth.User) *auth.User {
	c := *u
	c.RoleIDs = append([]int64(nil), u.RoleIDs...)
	return &c
}

var (
	_ auth.Repository       = (*Store)(nil)
	_ rbac.RoleStore        = (*Store)(nil)
	_ rbac.BootstrapStore   = (*Store)(nil)
	_ rbac.PermissionReader = (*Store)(nil)
	_ users.RepositoryPort  = (*Store)(nil)
	_ roles.RepositoryPort  = (*Store)(nil)
)
