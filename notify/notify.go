// Package notify is the boundary to the notification dispatcher. Delivery
// is best effort: a notification failing after a successful settlement must
// never roll the settlement back, so callers log dispatch errors and move
// on.
package notify

import (
	"context"
	"log/slog"

	"bank-backoffice/domain"
)

// Notifier is informed of ledger outcomes. Implementations contain no
// settlement logic.
type Notifier interface {
	TransferCompleted(ctx context.Context, transfer *domain.Transfer) error
	TransferRejected(ctx context.Context, transfer *domain.Transfer) error
	BalanceChanged(ctx context.Context, account *domain.Account) error
	AccountStatusChanged(ctx context.Context, account *domain.Account) error
}

// LogNotifier records outcomes to the structured log. It stands in for the
// real email dispatcher in development and tests.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) TransferCompleted(_ context.Context, transfer *domain.Transfer) error {
	n.Logger.Info("transfer completed",
		"transfer_id", transfer.ID,
		"amount", transfer.Amount.String(),
		"fee", transfer.Fee.String(),
		"tax", transfer.Tax.String(),
	)
	return nil
}

func (n LogNotifier) TransferRejected(_ context.Context, transfer *domain.Transfer) error {
	n.Logger.Info("transfer rejected",
		"transfer_id", transfer.ID,
		"reason", transfer.RejectionReason,
	)
	return nil
}

func (n LogNotifier) BalanceChanged(_ context.Context, account *domain.Account) error {
	n.Logger.Info("balance changed",
		"account_id", account.ID,
		"balance", account.Balance.String(),
	)
	return nil
}

func (n LogNotifier) AccountStatusChanged(_ context.Context, account *domain.Account) error {
	n.Logger.Info("account status changed",
		"account_id", account.ID,
		"status", account.Status,
	)
	return nil
}
