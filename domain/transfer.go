package domain

import (
	"time"

	"github.com/google/uuid"

	"bank-backoffice/money"
)

type TransferStatus string

const (
	// TransferPending and TransferProcessing are reserved for future flows
	// and never reached by this version's state machine.
	TransferPending    TransferStatus = "pending"
	TransferProcessing TransferStatus = "processing"

	// TransferVerificationRequired is the initial state of every transfer,
	// pending administrator review.
	TransferVerificationRequired TransferStatus = "verification_required"

	// TransferApproved is an intermediate state reserved for multi-step
	// flows; the current flow settles straight to completed.
	TransferApproved TransferStatus = "approved"

	TransferCompleted TransferStatus = "completed"
	TransferRejected  TransferStatus = "rejected"
	TransferFailed    TransferStatus = "failed"
)

// Terminal reports whether no further transition is defined out of s.
func (s TransferStatus) Terminal() bool {
	switch s {
	case TransferCompleted, TransferRejected, TransferFailed:
		return true
	}
	return false
}

// Transfer is a request to move funds from an owned account to a possibly
// external destination. Fee and tax are fixed at creation time and never
// recomputed. A transfer settles at most once.
type Transfer struct {
	ID            uuid.UUID  `json:"id"`
	FromAccountID uuid.UUID  `json:"fromAccountId"`
	ToAccountID   *uuid.UUID `json:"toAccountId,omitempty"`

	// Destination descriptor; the destination may be outside the system.
	ToAccountNumber     string `json:"toAccountNumber,omitempty"`
	ToRoutingNumber     string `json:"toRoutingNumber,omitempty"`
	ToBankName          string `json:"toBankName,omitempty"`
	ToAccountHolderName string `json:"toAccountHolderName"`

	Amount      money.Amount `json:"amount"`
	Fee         money.Amount `json:"fee"`
	Tax         money.Amount `json:"tax"`
	Description string       `json:"description,omitempty"`

	Status          TransferStatus `json:"status"`
	RejectionReason string         `json:"rejectionReason,omitempty"`
	ApprovedBy      *uuid.UUID     `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time     `json:"approvedAt,omitempty"`
	CompletedAt     *time.Time     `json:"completedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Total is the full debit a settlement applies to the source account.
func (t *Transfer) Total() money.Amount {
	return t.Amount.Add(t.Fee).Add(t.Tax)
}
