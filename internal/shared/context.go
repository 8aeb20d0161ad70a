package shared

import (
	"context"
	"sort"
)

type identityContextKey struct{}

// Identity is the caller attached to a request by the authenticator.
type Identity struct {
	UserID   int64
	Username string
	Active   bool

	authorities map[string]struct{}
}

// NewIdentity builds an Identity. Inactive identities never carry authorities.
func NewIdentity(userID int64, username string, active bool, authorities []string) *Identity {
	id := &Identity{UserID: userID, Username: username, Active: active}
	if !active {
		return id
	}
	id.authorities = make(map[string]struct{}, len(authorities))
	for _, a := range authorities {
		if a == "" {
			continue
		}
		id.authorities[a] = struct{}{}
	}
	return id
}

// Authenticated reports whether the identity belongs to an active principal.
func (i *Identity) Authenticated() bool {
	return i != nil && i.Active
}

// HasAuthority reports whether the identity was granted the authority.
func (i *Identity) HasAuthority(authority string) bool {
	if !i.Authenticated() {
		return false
	}
	_, ok := i.authorities[authority]
	return ok
}

// Authorities returns the granted authorities in lexical order.
func (i *Identity) Authorities() []string {
	if !i.Authenticated() {
		return []string{}
	}
	out := make([]string, 0, len(i.authorities))
	for a := range i.authorities {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// ContextWithIdentity stores the identity in context.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity from context. Anonymous requests yield nil.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityContextKey{}).(*Identity)
	return id
}
