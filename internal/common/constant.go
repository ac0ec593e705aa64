package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// Role names. A user holds a set of these.
const (
	RoleUser      = "user"
	RoleSuperUser = "super_user"
)

// ValidRoles returns every role the service knows about.
func ValidRoles() []string {
	return []string{RoleUser, RoleSuperUser}
}

// IsValidRole reports whether role is one of ValidRoles.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles() {
		if r == role {
			return true
		}
	}
	return false
}
