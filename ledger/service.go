// Package ledger is the sole authority for account balance and status
// mutation. Every mutation commits together with the transaction rows it
// generates and the audit entry describing it, so the stored balance always
// agrees with the transaction log.
package ledger

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"bank-backoffice/audit"
	"bank-backoffice/domain"
	"bank-backoffice/money"
	"bank-backoffice/store"
)

// Service implements the account ledger operations.
type Service struct {
	store store.Store
	audit *audit.Recorder
	now   func() time.Time
}

// NewService wires the ledger against its store and audit recorder. The
// clock is injected; pass time.Now in production.
func NewService(st store.Store, recorder *audit.Recorder, now func() time.Time) *Service {
	return &Service{store: st, audit: recorder, now: now}
}

// CreateAccount opens an account with balance 0.00 and status active,
// assigning a unique random 10-digit account number.
func (s *Service) CreateAccount(ctx context.Context, userID uuid.UUID, accountType string, actor audit.Actor) (*domain.Account, error) {
	if accountType == "" {
		accountType = "checking"
	}

	number, err := s.uniqueAccountNumber(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	account := &domain.Account{
		ID:            uuid.New(),
		UserID:        userID,
		AccountNumber: number,
		RoutingNumber: domain.DefaultRoutingNumber,
		AccountType:   accountType,
		Balance:       money.Zero,
		Status:        domain.AccountActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.store.Atomically(ctx, func(tx store.Tx) error {
		if err := tx.CreateAccount(ctx, account); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, actor, audit.AccountCreated{
			AccountID:     account.ID,
			AccountNumber: account.AccountNumber,
			AccountType:   account.AccountType,
		})
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Credit atomically adds amount to the account balance, appends the credit
// transaction with the resulting balance, and records the audit entry.
func (s *Service) Credit(ctx context.Context, accountID uuid.UUID, amount money.Amount, description string, actor audit.Actor) (*domain.Account, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: credit amount must be positive", domain.ErrValidation)
	}

	var updated *domain.Account
	err := s.store.Atomically(ctx, func(tx store.Tx) error {
		account, err := tx.GetAccountForUpdate(ctx, accountID)
		if err != nil {
			return err
		}

		newBalance := account.Balance.Add(amount)
		if err := tx.UpdateAccountBalance(ctx, account.ID, newBalance); err != nil {
			return err
		}
		if err := tx.AppendTransaction(ctx, s.entry(account.ID, nil, domain.TransactionCredit, amount, description, newBalance)); err != nil {
			return err
		}

		account.Balance = newBalance
		updated = account

		actor.TargetUserID = &account.UserID
		return s.audit.Record(ctx, tx, actor, audit.BalanceCredited{
			AccountID:   account.ID,
			Amount:      amount,
			Description: description,
			Balance:     newBalance,
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Debit atomically subtracts amount from the account balance. A debit that
// would take the balance below zero fails with ErrInsufficientFunds and
// leaves no trace: no balance change, no transaction row, no audit entry.
func (s *Service) Debit(ctx context.Context, accountID uuid.UUID, amount money.Amount, description string, actor audit.Actor) (*domain.Account, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: debit amount must be positive", domain.ErrValidation)
	}

	var updated *domain.Account
	err := s.store.Atomically(ctx, func(tx store.Tx) error {
		account, err := tx.GetAccountForUpdate(ctx, accountID)
		if err != nil {
			return err
		}

		newBalance := account.Balance.Sub(amount)
		if newBalance.IsNegative() {
			return fmt.Errorf("debit of %s from balance %s: %w", amount, account.Balance, domain.ErrInsufficientFunds)
		}
		if err := tx.UpdateAccountBalance(ctx, account.ID, newBalance); err != nil {
			return err
		}
		if err := tx.AppendTransaction(ctx, s.entry(account.ID, nil, domain.TransactionDebit, amount, description, newBalance)); err != nil {
			return err
		}

		account.Balance = newBalance
		updated = account

		actor.TargetUserID = &account.UserID
		return s.audit.Record(ctx, tx, actor, audit.BalanceDebited{
			AccountID:   account.ID,
			Amount:      amount,
			Description: description,
			Balance:     newBalance,
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SetStatus changes an account's status without touching balance or
// transaction log. The audit kind follows the new status.
func (s *Service) SetStatus(ctx context.Context, accountID uuid.UUID, status domain.AccountStatus, reason string, actor audit.Actor) (*domain.Account, error) {
	if !domain.ValidAccountStatus(status) {
		return nil, fmt.Errorf("%w: unknown account status %q", domain.ErrValidation, status)
	}

	var updated *domain.Account
	err := s.store.Atomically(ctx, func(tx store.Tx) error {
		account, err := tx.GetAccountForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if account.Status == status {
			return fmt.Errorf("account already %s: %w", status, domain.ErrInvalidState)
		}
		if err := tx.UpdateAccountStatus(ctx, account.ID, status); err != nil {
			return err
		}

		account.Status = status
		updated = account

		actor.TargetUserID = &account.UserID
		var details audit.Details
		switch status {
		case domain.AccountFrozen:
			details = audit.AccountFrozen{AccountID: account.ID, Reason: reason}
		case domain.AccountClosed:
			details = audit.AccountClosed{AccountID: account.ID, Reason: reason}
		default:
			details = audit.AccountUnfrozen{AccountID: account.ID, Reason: reason}
		}
		return s.audit.Record(ctx, tx, actor, details)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SettleTransferDebit applies a transfer's full debit inside the caller's
// atomic scope: principal, then fee, then tax, each entry snapshotting the
// balance immediately after it. Invoked only by the settlement executor.
// Returns the account with the balance after all entries.
func (s *Service) SettleTransferDebit(ctx context.Context, tx store.Tx, transfer *domain.Transfer) (*domain.Account, error) {
	account, err := tx.GetAccountForUpdate(ctx, transfer.FromAccountID)
	if err != nil {
		return nil, err
	}

	total := transfer.Total()
	if account.Balance.Sub(total).IsNegative() {
		return nil, fmt.Errorf("settlement of %s from balance %s: %w", total, account.Balance, domain.ErrInsufficientFunds)
	}

	balance := account.Balance.Sub(transfer.Amount)
	description := fmt.Sprintf("Transfer to %s", transfer.ToAccountHolderName)
	if err := tx.AppendTransaction(ctx, s.entry(account.ID, &transfer.ID, domain.TransactionDebit, transfer.Amount, description, balance)); err != nil {
		return nil, err
	}

	if transfer.Fee.IsPositive() {
		balance = balance.Sub(transfer.Fee)
		if err := tx.AppendTransaction(ctx, s.entry(account.ID, &transfer.ID, domain.TransactionFee, transfer.Fee, "Transfer fee", balance)); err != nil {
			return nil, err
		}
	}
	if transfer.Tax.IsPositive() {
		balance = balance.Sub(transfer.Tax)
		if err := tx.AppendTransaction(ctx, s.entry(account.ID, &transfer.ID, domain.TransactionTax, transfer.Tax, "Transfer tax", balance)); err != nil {
			return nil, err
		}
	}

	if err := tx.UpdateAccountBalance(ctx, account.ID, balance); err != nil {
		return nil, err
	}
	account.Balance = balance
	return account, nil
}

func (s *Service) entry(accountID uuid.UUID, transferID *uuid.UUID, entryType domain.TransactionType, amount money.Amount, description string, balanceAfter money.Amount) *domain.Transaction {
	return &domain.Transaction{
		ID:           uuid.New(),
		AccountID:    accountID,
		TransferID:   transferID,
		Type:         entryType,
		Amount:       amount,
		Description:  description,
		BalanceAfter: balanceAfter,
		CreatedAt:    s.now(),
	}
}

const accountNumberAttempts = 5

func (s *Service) uniqueAccountNumber(ctx context.Context) (string, error) {
	for i := 0; i < accountNumberAttempts; i++ {
		number, err := generateAccountNumber()
		if err != nil {
			return "", err
		}
		_, err = s.store.GetAccountByNumber(ctx, number)
		if errors.Is(err, domain.ErrNotFound) {
			return number, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("could not find a free account number after %d attempts", accountNumberAttempts)
}

// generateAccountNumber draws a random 10-digit number in
// [1000000000, 9999999999].
func generateAccountNumber() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9_000_000_000))
	if err != nil {
		return "", fmt.Errorf("could not generate account number: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+1_000_000_000), nil
}
