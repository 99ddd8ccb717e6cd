package auth

// Role is the user role carried in the access token.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
	RoleSecurity   Role = "security"
	RoleUser       Role = "user"
)

type permissions struct {
	monitor bool
	trigger bool
}

var rolePermissions = map[Role]permissions{
	RoleAdmin:      {monitor: true, trigger: true},
	RoleSupervisor: {monitor: true, trigger: true},
	RoleSecurity:   {monitor: true, trigger: true},
	RoleUser:       {trigger: true},
}

// CanMonitor reports whether r may watch and attend panic alerts.
func (r Role) CanMonitor() bool { return rolePermissions[r].monitor }

// CanTrigger reports whether r may raise a panic alert.
func (r Role) CanTrigger() bool { return rolePermissions[r].trigger }
