package domain

// Role is a closed set. The guard refuses every policy to an identity whose
// stored role is outside it.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// Policy decides whether an authenticated identity may proceed.
type Policy func(Identity) bool

// RequireRole allows identities holding any of the given roles.
func RequireRole(roles ...Role) Policy {
	return func(id Identity) bool {
		for _, r := range roles {
			if id.Role == r {
				return true
			}
		}
		return false
	}
}
