package server

// Role is the closed set of account roles.
type Role int8

const (
	RoleUser Role = iota
	RoleDeveloper
	RoleAdmin
)

var roleNames = map[Role]string{
	RoleUser:      "user",
	RoleDeveloper: "developer",
	RoleAdmin:     "admin",
}

var rolesByName = map[string]Role{
	"user":      RoleUser,
	"developer": RoleDeveloper,
	"admin":     RoleAdmin,
}

func (r Role) String() string {
	return roleNames[r]
}

// ParseRole maps a stored role string onto the enum. Unknown strings are
// rejected rather than defaulted so a corrupt row cannot gain access.
func ParseRole(name string) (Role, bool) {
	role, ok := rolesByName[name]
	return role, ok
}

// Action is a permission-checked operation.
type Action int8

const (
	ActionSubmitScores Action = iota
	ActionPublishGames
	ActionManageUsers
	ActionViewAuditLog
)

// Can reports whether a role is allowed to perform an action. It is the
// single authorization rule for role-gated routes; ownership checks on
// individual games live with their handlers.
func Can(role Role, action Action) bool {
	switch action {
	case ActionSubmitScores:
		return true
	case ActionPublishGames:
		return role == RoleDeveloper || role == RoleAdmin
	case ActionManageUsers, ActionViewAuditLog:
		return role == RoleAdmin
	default:
		return false
	}
}
