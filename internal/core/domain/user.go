package domain

import "time"

const (
	RoleOwner    = "owner"
	RoleManager  = "manager"
	RoleCustomer = "customer"
)

// User models an authenticated actor. Every user is bound to an on-ledger
// principal address; ledger submissions made on the user's behalf use it as
// the caller.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Address      Principal `json:"address"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
