package rbac

import (
	"fmt"
	"time"
)

// Action is the verb a permission grants on its resource.
type Action string

const (
	ActionCreate     Action = "CREATE"
	ActionRead       Action = "READ"
	ActionUpdate     Action = "UPDATE"
	ActionDelete     Action = "DELETE"
	ActionAdminister Action = "ADMINISTER"
)

// Valid reports whether the action is one of the known verbs.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionAdminister:
		return true
	}
	return false
}

// Role represents a high-level permission grouping.
type Role struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Permissions []Permission `json:"permissions"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Permission represents an atomic capability. Name is the authority string.
type Permission struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Resource    string `json:"resource"`
	Action      Action `json:"action"`
}

// PermissionName builds the canonical RESOURCE_ACTION authority name.
func PermissionName(resource string, action Action) string {
	return fmt.Sprintf("%s_%s", resource, action)
}

// Principal describes the actor whose authorities are resolved.
type Principal interface {
	GetID() int64
	IsActive() bool
	GetRoleIDs() []int64
}
