package models

import "fmt"

// Role is the kind of actor making a request.
type Role string

const (
	RoleDonor Role = "donor"
	RoleNGO   Role = "ngo"
	RoleAdmin Role = "admin"
)

// ParseRole rejects any value outside the closed set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleDonor, RoleNGO, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Caller is the identity the identity provider resolved for a request.
// Tier is only meaningful for NGOs.
type Caller struct {
	Id   string
	Role Role
	Tier int
}
