package authdomain

// Role represents a caller's role for authorization purposes.
type Role string

const (
	RolePlayer   Role = "player"
	RoleOperator Role = "operator"
)

// IsValid checks if the role is a valid value.
func (r Role) IsValid() bool {
	switch r {
	case RolePlayer, RoleOperator:
		return true
	default:
		return false
	}
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}
