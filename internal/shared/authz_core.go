package shared

// Roles carried in session tokens.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ValidRole reports whether role is known.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleAdmin:
		return true
	}
	return false
}
