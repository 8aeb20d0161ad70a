package shared

// Core platform authorities. Names follow RESOURCE_ACTION.
const (
	PermUsersRead   = "USERS_READ"
	PermUsersUpdate = "USERS_UPDATE"

	PermRolesRead   = "ROLES_READ"
	PermRolesCreate = "ROLES_CREATE"
	PermRolesUpdate = "ROLES_UPDATE"

	PermPermissionsRead = "PERMISSIONS_READ"

	// PermAdminister grants system administration.
	PermAdminister = "ADMINISTER"
)

// CoreScopes lists the authorities checked by the auth core's own routes.
func CoreScopes() []string {
	return []string{
		PermUsersRead,
		PermUsersUpdate,
		PermRolesRead,
		PermRolesCreate,
		PermRolesUpdate,
		PermPermissionsRead,
		PermAdminister,
	}
}
