// Package audit appends the immutable evidence trail for administrative
// actions. Each action kind has its own details payload, so the shape of a
// row's details is known from its action. The recorder only appends; there
// is no update or delete.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bank-backoffice/domain"
	"bank-backoffice/money"
)

// Details is the payload of one audit entry, tagged by its action kind.
type Details interface {
	Action() domain.AuditAction
}

type AccountCreated struct {
	AccountID     uuid.UUID `json:"accountId"`
	AccountNumber string    `json:"accountNumber"`
	AccountType   string    `json:"accountType"`
}

func (AccountCreated) Action() domain.AuditAction { return domain.AuditAccountCreated }

type AccountFrozen struct {
	AccountID uuid.UUID `json:"accountId"`
	Reason    string    `json:"reason"`
}

func (AccountFrozen) Action() domain.AuditAction { return domain.AuditAccountFrozen }

type AccountUnfrozen struct {
	AccountID uuid.UUID `json:"accountId"`
	Reason    string    `json:"reason"`
}

func (AccountUnfrozen) Action() domain.AuditAction { return domain.AuditAccountUnfrozen }

type AccountClosed struct {
	AccountID uuid.UUID `json:"accountId"`
	Reason    string    `json:"reason"`
}

func (AccountClosed) Action() domain.AuditAction { return domain.AuditAccountClosed }

type BalanceCredited struct {
	AccountID   uuid.UUID    `json:"accountId"`
	Amount      money.Amount `json:"amount"`
	Description string       `json:"description"`
	Balance     money.Amount `json:"balance"`
}

func (BalanceCredited) Action() domain.AuditAction { return domain.AuditBalanceCredited }

type BalanceDebited struct {
	AccountID   uuid.UUID    `json:"accountId"`
	Amount      money.Amount `json:"amount"`
	Description string       `json:"description"`
	Balance     money.Amount `json:"balance"`
}

func (BalanceDebited) Action() domain.AuditAction { return domain.AuditBalanceDebited }

type TransferApproved struct {
	TransferID uuid.UUID    `json:"transferId"`
	Amount     money.Amount `json:"amount"`
	Fee        money.Amount `json:"fee"`
	Tax        money.Amount `json:"tax"`
}

func (TransferApproved) Action() domain.AuditAction { return domain.AuditTransferApproved }

type TransferRejected struct {
	TransferID uuid.UUID `json:"transferId"`
	Reason     string    `json:"reason"`
}

func (TransferRejected) Action() domain.AuditAction { return domain.AuditTransferRejected }

// EmailSent is recorded by the notification collaborator when a bulk
// administrative dispatch goes out; the email content itself lives outside
// this system.
type EmailSent struct {
	Subject    string `json:"subject"`
	Recipients int    `json:"recipients"`
}

func (EmailSent) Action() domain.AuditAction { return domain.AuditEmailSent }

// Actor identifies who performed the action and from where.
type Actor struct {
	AdminID      uuid.UUID
	TargetUserID *uuid.UUID
	IPAddress    string
	UserAgent    string
}

// Appender is the single write the recorder needs from a storage scope.
type Appender interface {
	AppendAuditLog(ctx context.Context, entry *domain.AuditLog) error
}

// Recorder builds and appends audit entries inside the caller's atomic
// scope. A failed append fails the enclosing operation: an unaudited
// balance mutation is treated as a lost update.
type Recorder struct {
	now func() time.Time
}

// NewRecorder takes the clock used to timestamp entries; pass time.Now in
// production.
func NewRecorder(now func() time.Time) *Recorder {
	return &Recorder{now: now}
}

// Record appends one entry for the given actor and payload.
func (r *Recorder) Record(ctx context.Context, tx Appender, actor Actor, details Details) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("could not marshal audit details: %w", err)
	}
	entry := &domain.AuditLog{
		ID:           uuid.New(),
		AdminID:      actor.AdminID,
		TargetUserID: actor.TargetUserID,
		Action:       details.Action(),
		Details:      payload,
		IPAddress:    actor.IPAddress,
		UserAgent:    actor.UserAgent,
		CreatedAt:    r.now(),
	}
	if err := tx.AppendAuditLog(ctx, entry); err != nil {
		return fmt.Errorf("could not record audit entry: %w", err)
	}
	return nil
}
