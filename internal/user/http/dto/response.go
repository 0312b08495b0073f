// Package dto provides data transfer objects for the user HTTP layer.
package dto

import (
	"time"

	"github.com/google/uuid"
)

// UserResponse is the external representation of an account. It never
// carries the password hash.
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	IsActive  bool      `json:"is_active"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListUsersResponse is a page of accounts.
type ListUsersResponse struct {
	Users  []UserResponse `json:"users"`
	Offset int            `json:"offset"`
	Limit  int            `json:"limit"`
}

// PublicIPResponse is a login source address observed for an account.
type PublicIPResponse struct {
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

// ListIPsResponse is the set of login source addresses for an account.
type ListIPsResponse struct {
	IPs []PublicIPResponse `json:"ips"`
}
