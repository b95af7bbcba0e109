// Package store is the persistence boundary. Services receive a Store and
// never touch database/sql directly, so the settlement invariants can be
// tested against the in-memory implementation.
package store

import (
	"context"

	"github.com/google/uuid"

	"bank-backoffice/domain"
	"bank-backoffice/money"
)

// Reader bundles the read operations available outside an atomic scope.
// Lookups return domain.ErrNotFound (wrapped) when the row does not exist.
type Reader interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetAccountByNumber(ctx context.Context, number string) (*domain.Account, error)
	ListAccountsByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Account, error)

	// ListTransactions returns an account's ledger entries newest first.
	ListTransactions(ctx context.Context, accountID uuid.UUID) ([]*domain.Transaction, error)

	GetTransfer(ctx context.Context, id uuid.UUID) (*domain.Transfer, error)
	ListTransfersByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Transfer, error)
	ListTransfersByStatus(ctx context.Context, status domain.TransferStatus) ([]*domain.Transfer, error)

	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Tx is the write surface of one atomic unit. Every mutation performed
// through a Tx commits or aborts together with the rest of the unit:
// a balance update, the transaction rows it generates and the audit entry
// describing it always land as one.
type Tx interface {
	Reader

	// GetAccountForUpdate reads an account and serializes concurrent
	// read-then-write sequences against it until the unit ends.
	GetAccountForUpdate(ctx context.Context, id uuid.UUID) (*domain.Account, error)

	// GetTransferForUpdate locks a transfer row for the settlement
	// idempotency re-check.
	GetTransferForUpdate(ctx context.Context, id uuid.UUID) (*domain.Transfer, error)

	CreateAccount(ctx context.Context, account *domain.Account) error
	UpdateAccountBalance(ctx context.Context, id uuid.UUID, balance money.Amount) error
	UpdateAccountStatus(ctx context.Context, id uuid.UUID, status domain.AccountStatus) error

	AppendTransaction(ctx context.Context, entry *domain.Transaction) error

	CreateTransfer(ctx context.Context, transfer *domain.Transfer) error
	UpdateTransfer(ctx context.Context, transfer *domain.Transfer) error

	AppendAuditLog(ctx context.Context, entry *domain.AuditLog) error

	CreateUser(ctx context.Context, user *domain.User) error
}

// Store is the full persistence contract.
type Store interface {
	Reader

	// Atomically runs fn inside one atomic unit. If fn returns an error or
	// the commit fails, none of the unit's writes are visible. A failed
	// commit is reported as domain.ErrPersistence.
	Atomically(ctx context.Context, fn func(tx Tx) error) error

	Ping(ctx context.Context) error
	Close() error
}
