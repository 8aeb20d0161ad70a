package rbac

import (
	"context"
	"fmt"
	"sort"
)

// AuthoritySet is a deduplicated set of authority strings.
type AuthoritySet map[string]struct{}

// Has reports membership.
func (s AuthoritySet) Has(authority string) bool {
	_, ok := s[authority]
	return ok
}

// Slice returns the authorities in lexical order.
func (s AuthoritySet) Slice() []string {
	out := make([]string, 0, len(s))
	for a := range s {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Flatten unions the permission names of the given roles.
func Flatten(roles []Role) AuthoritySet {
	set := make(AuthoritySet)
	for _, role := range roles {
		for _, perm := range role.Permissions {
			if perm.Name == "" {
				continue
			}
			set[perm.Name] = struct{}{}
		}
	}
	return set
}

// Resolver expands a principal's roles into its effective authorities.
type Resolver struct {
	roles RoleStore
}

// NewResolver constructs a Resolver reading roles from store.
func NewResolver(store RoleStore) *Resolver {
	return &Resolver{roles: store}
}

// Resolve returns the effective authorities of p. Inactive principals and principals
// without roles resolve to an empty set.
func (r *Resolver) Resolve(ctx context.Context, p Principal) (AuthoritySet, error) {
	if p == nil || !p.IsActive() {
		return AuthoritySet{}, nil
	}
	ids := p.GetRoleIDs()
	if len(ids) == 0 {
		return AuthoritySet{}, nil
	}
	roles, err := r.roles.FindRolesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("rbac: resolve principal %d: %w", p.GetID(), err)
	}
	return Flatten(roles), nil
}
