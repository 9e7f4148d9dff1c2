package model

import "github.com/google/uuid"

// Role identifies what an authenticated user is allowed to do.
type Role string

const (
	RolePatient    Role = "PATIENT"
	RoleSpecialist Role = "SPECIALIST"
	RoleAdmin      Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleSpecialist, RoleAdmin:
		return true
	}
	return false
}

// Actor is the opaque descriptor the identity layer supplies with every
// request. The scheduling core trusts it and performs no authentication.
type Actor struct {
	ID   uuid.UUID `json:"id"`
	Role Role      `json:"role"`
}

func (a Actor) IsAdmin() bool      { return a.Role == RoleAdmin }
func (a Actor) IsPatient() bool    { return a.Role == RolePatient }
func (a Actor) IsSpecialist() bool { return a.Role == RoleSpecialist }
