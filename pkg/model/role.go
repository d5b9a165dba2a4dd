package model

// Role represents a chat caller's permission level.
type Role int

const (
	RoleUser  Role = iota // anyone not in the admin list
	RoleAdmin             // configured bot administrator
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// ParseRole converts a string to a Role. Anything but "admin" is a user.
func ParseRole(s string) Role {
	if s == "admin" {
		return RoleAdmin
	}
	return RoleUser
}
