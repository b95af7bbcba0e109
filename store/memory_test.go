package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"bank-backoffice/domain"
	"bank-backoffice/money"
)

func TestAtomicallyRollsBackOnError(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()
	accountID := uuid.New()

	err := st.Atomically(ctx, func(tx Tx) error {
		if err := tx.CreateAccount(ctx, &domain.Account{
			ID:            accountID,
			UserID:        uuid.New(),
			AccountNumber: "1234567890",
			Balance:       money.Zero,
			Status:        domain.AccountActive,
		}); err != nil {
			return err
		}
		return errors.New("something downstream failed")
	})
	if err == nil {
		t.Fatal("the unit should have failed")
	}

	if _, err := st.GetAccount(ctx, accountID); !errors.Is(err, domain.ErrNotFound) {
		t.Error("failed unit published its staged account")
	}
}

func TestAtomicallyPublishesOnSuccess(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()
	accountID := uuid.New()

	err := st.Atomically(ctx, func(tx Tx) error {
		return tx.CreateAccount(ctx, &domain.Account{
			ID:            accountID,
			UserID:        uuid.New(),
			AccountNumber: "1234567890",
			Balance:       money.New(75, 0),
			Status:        domain.AccountActive,
		})
	})
	if err != nil {
		t.Fatalf("Atomically failed: %v", err)
	}

	account, err := st.GetAccount(ctx, accountID)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if account.Balance.String() != "75.00" {
		t.Errorf("balance = %s, want 75.00", account.Balance)
	}
}

func TestListTransactionsNewestFirst(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()
	accountID := uuid.New()

	err := st.Atomically(ctx, func(tx Tx) error {
		for i, desc := range []string{"first", "second", "third"} {
			entry := &domain.Transaction{
				ID:          uuid.New(),
				AccountID:   accountID,
				Type:        domain.TransactionCredit,
				Amount:      money.New(int64(i+1), 0),
				Description: desc,
				CreatedAt:   time.Now(),
			}
			if err := tx.AppendTransaction(ctx, entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	entries, err := st.ListTransactions(ctx, accountID)
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Description != "third" || entries[2].Description != "first" {
		t.Error("entries are not newest first")
	}
}

func TestDuplicateAccountNumberRejected(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()

	create := func(number string) error {
		return st.Atomically(ctx, func(tx Tx) error {
			return tx.CreateAccount(ctx, &domain.Account{
				ID:            uuid.New(),
				UserID:        uuid.New(),
				AccountNumber: number,
				Balance:       money.Zero,
				Status:        domain.AccountActive,
			})
		})
	}

	if err := create("5555555555"); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if err := create("5555555555"); err == nil {
		t.Error("duplicate account number should be rejected")
	}
}
