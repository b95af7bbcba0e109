// Package transfer owns the transfer lifecycle: creation under the fee/tax
// policy, administrator review, and settlement. Settlement is the only code
// path that both mutates a balance and advances a transfer to completed,
// and it does both in one atomic unit.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bank-backoffice/audit"
	"bank-backoffice/domain"
	"bank-backoffice/ledger"
	"bank-backoffice/money"
	"bank-backoffice/store"
)

// MaxRejectionReasonLength bounds the admin-supplied rejection reason.
const MaxRejectionReasonLength = 500

// CreateRequest carries a customer's transfer request. The destination may
// be outside the system, so it is described rather than referenced.
type CreateRequest struct {
	FromAccountID       uuid.UUID
	ToAccountNumber     string
	ToRoutingNumber     string
	ToBankName          string
	ToAccountHolderName string
	Amount              money.Amount
	Description         string
}

// Service implements the transfer state machine and settlement executor.
type Service struct {
	store  store.Store
	ledger *ledger.Service
	audit  *audit.Recorder
	now    func() time.Time
}

// NewService wires the transfer engine. The ledger service performs every
// balance mutation on this service's behalf.
func NewService(st store.Store, ledgerSvc *ledger.Service, recorder *audit.Recorder, now func() time.Time) *Service {
	return &Service{store: st, ledger: ledgerSvc, audit: recorder, now: now}
}

// Create validates a customer's request and persists the transfer in
// verification_required. Fee and tax are computed here, once, and frozen
// into the record. No balance is touched.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req CreateRequest) (*domain.Transfer, error) {
	if req.ToAccountHolderName == "" {
		return nil, fmt.Errorf("%w: destination account holder name is required", domain.ErrValidation)
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: transfer amount must be positive", domain.ErrValidation)
	}

	account, err := s.store.GetAccount(ctx, req.FromAccountID)
	if err != nil {
		return nil, err
	}
	if account.UserID != userID {
		return nil, fmt.Errorf("account %s: %w", account.ID, domain.ErrForbidden)
	}
	if account.Status != domain.AccountActive {
		return nil, fmt.Errorf("source account is %s: %w", account.Status, domain.ErrInvalidState)
	}

	fee, tax := ComputeFeeAndTax(req.Amount)
	total := req.Amount.Add(fee).Add(tax)
	if account.Balance.LessThan(total) {
		return nil, fmt.Errorf("transfer total %s exceeds balance %s: %w", total, account.Balance, domain.ErrInsufficientFunds)
	}

	now := s.now()
	transfer := &domain.Transfer{
		ID:                  uuid.New(),
		FromAccountID:       account.ID,
		ToAccountNumber:     req.ToAccountNumber,
		ToRoutingNumber:     req.ToRoutingNumber,
		ToBankName:          req.ToBankName,
		ToAccountHolderName: req.ToAccountHolderName,
		Amount:              req.Amount,
		Fee:                 fee,
		Tax:                 tax,
		Description:         req.Description,
		Status:              domain.TransferVerificationRequired,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	// An in-system destination account is linked when the number matches.
	if req.ToAccountNumber != "" {
		if dest, err := s.store.GetAccountByNumber(ctx, req.ToAccountNumber); err == nil {
			transfer.ToAccountID = &dest.ID
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}

	err = s.store.Atomically(ctx, func(tx store.Tx) error {
		return tx.CreateTransfer(ctx, transfer)
	})
	if err != nil {
		return nil, err
	}
	return transfer, nil
}

// Approve settles a transfer: it re-checks the status under lock, debits
// the source account for amount+fee+tax through the ledger, advances the
// transfer to completed and records the audit entry, all in one atomic
// unit. A transfer no longer awaiting review fails with ErrInvalidState and
// nothing changes, so a retried or double-clicked approval cannot re-debit.
func (s *Service) Approve(ctx context.Context, transferID uuid.UUID, actor audit.Actor) (*domain.Transfer, error) {
	var approved *domain.Transfer
	err := s.store.Atomically(ctx, func(tx store.Tx) error {
		transfer, err := tx.GetTransferForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		if transfer.Status != domain.TransferVerificationRequired {
			return fmt.Errorf("transfer is %s: %w", transfer.Status, domain.ErrInvalidState)
		}

		account, err := s.ledger.SettleTransferDebit(ctx, tx, transfer)
		if err != nil {
			return err
		}

		now := s.now()
		transfer.Status = domain.TransferCompleted
		transfer.ApprovedBy = &actor.AdminID
		transfer.ApprovedAt = &now
		transfer.CompletedAt = &now
		transfer.UpdatedAt = now
		if err := tx.UpdateTransfer(ctx, transfer); err != nil {
			return err
		}

		approved = transfer
		actor.TargetUserID = &account.UserID
		return s.audit.Record(ctx, tx, actor, audit.TransferApproved{
			TransferID: transfer.ID,
			Amount:     transfer.Amount,
			Fee:        transfer.Fee,
			Tax:        transfer.Tax,
		})
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

// Reject closes a transfer without touching any balance. The reason is
// required and bounded; it ends up on the transfer and in the audit trail.
func (s *Service) Reject(ctx context.Context, transferID uuid.UUID, reason string, actor audit.Actor) (*domain.Transfer, error) {
	if reason == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", domain.ErrValidation)
	}
	if len(reason) > MaxRejectionReasonLength {
		return nil, fmt.Errorf("%w: rejection reason exceeds %d characters", domain.ErrValidation, MaxRejectionReasonLength)
	}

	var rejected *domain.Transfer
	err := s.store.Atomically(ctx, func(tx store.Tx) error {
		transfer, err := tx.GetTransferForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		if transfer.Status != domain.TransferVerificationRequired {
			return fmt.Errorf("transfer is %s: %w", transfer.Status, domain.ErrInvalidState)
		}

		account, err := tx.GetAccount(ctx, transfer.FromAccountID)
		if err != nil {
			return err
		}

		now := s.now()
		transfer.Status = domain.TransferRejected
		transfer.RejectionReason = reason
		transfer.ApprovedBy = &actor.AdminID
		transfer.ApprovedAt = &now
		transfer.UpdatedAt = now
		if err := tx.UpdateTransfer(ctx, transfer); err != nil {
			return err
		}

		rejected = transfer
		actor.TargetUserID = &account.UserID
		return s.audit.Record(ctx, tx, actor, audit.TransferRejected{
			TransferID: transfer.ID,
			Reason:     reason,
		})
	})
	if err != nil {
		return nil, err
	}
	return rejected, nil
}

// Get returns a transfer for its owner.
func (s *Service) Get(ctx context.Context, transferID, userID uuid.UUID) (*domain.Transfer, error) {
	transfer, err := s.store.GetTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}
	account, err := s.store.GetAccount(ctx, transfer.FromAccountID)
	if err != nil {
		return nil, err
	}
	if account.UserID != userID {
		return nil, fmt.Errorf("transfer %s: %w", transfer.ID, domain.ErrForbidden)
	}
	return transfer, nil
}

// ListForUser returns a user's transfers, newest first.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Transfer, error) {
	return s.store.ListTransfersByUser(ctx, userID)
}

// ListPending returns the transfers awaiting administrator review, oldest
// first.
func (s *Service) ListPending(ctx context.Context) ([]*domain.Transfer, error) {
	return s.store.ListTransfersByStatus(ctx, domain.TransferVerificationRequired)
}
