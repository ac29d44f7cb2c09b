// Package user defines the account model for buyers, sellers and agents.
package user

import "time"

// Role classifies what a user does on the marketplace.
type Role string

const (
	RoleBuyer  Role = "BUYER"
	RoleSeller Role = "SELLER"
	RoleAgent  Role = "AGENT"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAgent:
		return true
	}
	return false
}

// User is a registered account.
type User struct {
	ID            string
	Email         string
	Phone         string
	Username      string
	PasswordHash  string `json:"-"`
	Role          Role
	Name          string
	City          string
	State         string
	EmailVerified bool
	PhoneVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
