package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/odyssey-erp/odyssey-auth/internal/shared"
)

// Business resources guarded by RESOURCE_ACTION permissions.
var catalogueResources = []string{
	"PRODUCTS", "SALES", "INVENTORY", "USERS", "ACCOUNTING",
	"EMPLOYEES", "CLIENTS", "SUPPLIERS", "ROLES", "PERMISSIONS",
}

var crudActions = []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete}

// RoleSpec describes a seeded role and which catalogue permissions it receives.
type RoleSpec struct {
	Name        string
	Description string
	Grants      func(Permission) bool
}

// DefaultPermissions returns the seeded permission catalogue.
func DefaultPermissions() []Permission {
	perms := make([]Permission, 0, len(catalogueResources)*len(crudActions)+1)
	for _, resource := range catalogueResources {
		for _, action := range crudActions {
			perms = append(perms, Permission{
				Name:        PermissionName(resource, action),
				Description: fmt.Sprintf("%s %s", action, resource),
				Resource:    resource,
				Action:      action,
			})
		}
	}
	perms = append(perms, Permission{
		Name:        shared.PermAdminister,
		Description: "Administer the system",
		Resource:    "SYSTEM",
		Action:      ActionAdminister,
	})
	return perms
}

// DefaultRoles returns the seeded roles. USER is the baseline role given on registration.
func DefaultRoles() []RoleSpec {
	return []RoleSpec{
		{Name: "ADMIN", Description: "System administrator", Grants: func(Permission) bool { return true }},
		{Name: "SELLER", Description: "Seller", Grants: onResources("PRODUCTS", "SALES", "INVENTORY", "CLIENTS")},
		{Name: "ACCOUNTANT", Description: "Accountant", Grants: onResources("ACCOUNTING", "SALES", "PRODUCTS", "CLIENTS")},
		{Name: "MANAGER", Description: "Manager", Grants: func(p Permission) bool {
			return onResources("PRODUCTS", "SALES", "INVENTORY", "CLIENTS", "EMPLOYEES", "ACCOUNTING", "SUPPLIERS")(p) &&
				(p.Action == ActionRead || p.Action == ActionUpdate)
		}},
		{Name: "USER", Description: "Baseline account", Grants: func(p Permission) bool {
			return p.Action == ActionRead && (p.Resource == "PRODUCTS" || p.Resource == "INVENTORY")
		}},
	}
}

func onResources(resources ...string) func(Permission) bool {
	set := make(map[string]struct{}, len(resources))
	for _, r := range resources {
		set[r] = struct{}{}
	}
	return func(p Permission) bool {
		_, ok := set[p.Resource]
		return ok
	}
}

// BootstrapStore is the write side needed to seed roles and permissions.
type BootstrapStore interface {
	EnsurePermission(ctx context.Context, p Permission) (Permission, error)
	FindRoleByName(ctx context.Context, name string) (Role, error)
	CreateRole(ctx context.Context, name, description string, permissionIDs []int64) (Role, error)
}

// SeedReport summarises a bootstrap run.
type SeedReport struct {
	Permissions  int
	RolesCreated []string
}

// Bootstrapper seeds the permission catalogue and default roles. Runs are idempotent:
// permissions are upserted and existing roles are left untouched.
type Bootstrapper struct {
	store  BootstrapStore
	logger *slog.Logger
}

// NewBootstrapper constructs a Bootstrapper.
func NewBootstrapper(store BootstrapStore, logger *slog.Logger) *Bootstrapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bootstrapper{store: store, logger: logger}
}

// Seed ensures the default catalogue and roles exist.
func (b *Bootstrapper) Seed(ctx context.Context) (SeedReport, error) {
	var report SeedReport
	stored := make([]Permission, 0, len(DefaultPermissions()))
	for _, p := range DefaultPermissions() {
		saved, err := b.store.EnsurePermission(ctx, p)
		if err != nil {
			return report, err
		}
		stored = append(stored, saved)
	}
	report.Permissions = len(stored)

	for _, spec := range DefaultRoles() {
		_, err := b.store.FindRoleByName(ctx, spec.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return report, fmt.Errorf("rbac: lookup role %q: %w", spec.Name, err)
		}
		ids := make([]int64, 0, len(stored))
		for _, p := range stored {
			if spec.Grants(p) {
				ids = append(ids, p.ID)
			}
		}
		if _, err := b.store.CreateRole(ctx, spec.Name, spec.Description, ids); err != nil {
			if errors.Is(err, shared.ErrConflict) {
				continue
			}
			return report, err
		}
		report.RolesCreated = append(report.RolesCreated, spec.Name)
	}
	b.logger.Info("rbac bootstrap complete",
		slog.Int("permissions", report.Permissions),
		slog.Any("roles_created", report.RolesCreated))
	return report, nil
}
