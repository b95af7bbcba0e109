package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// User is a session principal: a customer who owns accounts or an
// administrator who reviews transfers and adjusts balances.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      Role      `json:"role"`
	PINHash   string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
