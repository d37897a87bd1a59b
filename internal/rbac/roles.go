package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
	RoleViewer   = "viewer"
	RoleService  = "service" // hidden role for machine-to-machine callers
)

func IsAdmin(role string) bool { return role == RoleAdmin }

func IsHiddenRole(role string) bool { return role == RoleService }
