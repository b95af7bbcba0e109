package domain

import (
	"time"

	"github.com/google/uuid"

	"bank-backoffice/money"
)

// TransactionType implies the sign of the entry: credit adds to the
// balance, debit/fee/tax subtract from it. Amount is always a positive
// magnitude.
type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
	TransactionFee    TransactionType = "fee"
	TransactionTax    TransactionType = "tax"
)

// Signed returns the amount with the sign implied by the entry type.
func (tt TransactionType) Signed(amount money.Amount) money.Amount {
	if tt == TransactionCredit {
		return amount
	}
	return amount.Neg()
}

// Transaction is an append-only ledger entry, never updated or deleted.
// BalanceAfter snapshots the account balance immediately after this entry
// was applied; for the latest entry it equals the stored balance.
type Transaction struct {
	ID           uuid.UUID       `json:"id"`
	AccountID    uuid.UUID       `json:"accountId"`
	TransferID   *uuid.UUID      `json:"transferId,omitempty"`
	Type         TransactionType `json:"type"`
	Amount       money.Amount    `json:"amount"`
	Description  string          `json:"description"`
	BalanceAfter money.Amount    `json:"balanceAfter"`
	CreatedAt    time.Time       `json:"createdAt"`
}
