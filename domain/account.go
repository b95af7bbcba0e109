package domain

import (
	"time"

	"github.com/google/uuid"

	"bank-backoffice/money"
)

type AccountStatus string

const (
	AccountActive AccountStatus = "active"
	AccountFrozen AccountStatus = "frozen"
	AccountClosed AccountStatus = "closed"
)

// ValidAccountStatus reports whether s is one of the persisted statuses.
func ValidAccountStatus(s AccountStatus) bool {
	switch s {
	case AccountActive, AccountFrozen, AccountClosed:
		return true
	}
	return false
}

// DefaultRoutingNumber is assigned to every account at creation.
const DefaultRoutingNumber = "021000021"

// Account is a monetary store owned by exactly one user. The stored balance
// is a cached projection of the account's transaction log; the two must
// always agree.
type Account struct {
	ID            uuid.UUID     `json:"id"`
	UserID        uuid.UUID     `json:"userId"`
	AccountNumber string        `json:"accountNumber"`
	RoutingNumber string        `json:"routingNumber"`
	AccountType   string        `json:"accountType"`
	Balance       money.Amount  `json:"balance"`
	Status        AccountStatus `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}
