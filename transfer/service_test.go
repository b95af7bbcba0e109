package transfer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"bank-backoffice/audit"
	"bank-backoffice/domain"
	"bank-backoffice/ledger"
	"bank-backoffice/money"
	"bank-backoffice/store"
)

func newTestService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	recorder := audit.NewRecorder(time.Now)
	ledgerSvc := ledger.NewService(st, recorder, time.Now)
	return NewService(st, ledgerSvc, recorder, time.Now), st
}

func seedAccount(t *testing.T, st *store.Memory, userID uuid.UUID, number string, balance money.Amount) *domain.Account {
	t.Helper()
	now := time.Now()
	account := &domain.Account{
		ID:            uuid.New(),
		UserID:        userID,
		AccountNumber: number,
		RoutingNumber: domain.DefaultRoutingNumber,
		AccountType:   "checking",
		Balance:       balance,
		Status:        domain.AccountActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := st.Atomically(context.Background(), func(tx store.Tx) error {
		return tx.CreateAccount(context.Background(), account)
	})
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return account
}

func adminActor() audit.Actor {
	return audit.Actor{AdminID: uuid.New(), IPAddress: "10.0.0.2", UserAgent: "test"}
}

func request(account *domain.Account, amount string) CreateRequest {
	a, _ := money.Parse(amount)
	return CreateRequest{
		FromAccountID:       account.ID,
		ToAccountNumber:     "9876543210",
		ToRoutingNumber:     "021000021",
		ToBankName:          "First External",
		ToAccountHolderName: "Casey Miller",
		Amount:              a,
		Description:         "Rent",
	}
}

func TestCreateFreezesFeeAndTax(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	account := seedAccount(t, st, userID, "1111111111", money.New(5000, 0))

	transfer, err := svc.Create(ctx, userID, request(account, "2000.00"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if transfer.Status != domain.TransferVerificationRequired {
		t.Errorf("status = %s, want verification_required", transfer.Status)
	}
	if transfer.Fee.String() != "2.00" {
		t.Errorf("fee = %s, want 2.00", transfer.Fee)
	}
	if transfer.Tax.String() != "2.00" {
		t.Errorf("tax = %s, want 2.00", transfer.Tax)
	}
	if transfer.Total().String() != "2004.00" {
		t.Errorf("total = %s, want 2004.00", transfer.Total())
	}

	// Creation reserves nothing; the balance is untouched until approval.
	stored, _ := st.GetAccount(ctx, account.ID)
	if stored.Balance.String() != "5000.00" {
		t.Errorf("balance after create = %s, want 5000.00", stored.Balance)
	}
}

func TestCreateRejectsInsufficientBalance(t *testing.T) {
	svc, st := newTestService(t)
	userID := uuid.New()
	account := seedAccount(t, st, userID, "1111111111", money.New(500, 0))

	_, err := svc.Create(context.Background(), userID, request(account, "1500.00"))
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("got %v, want ErrInsufficientFunds", err)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	account := seedAccount(t, st, userID, "1111111111", money.New(500, 0))

	req := request(account, "100.00")
	req.ToAccountHolderName = ""
	if _, err := svc.Create(ctx, userID, req); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("missing holder name got %v, want ErrValidation", err)
	}

	req = request(account, "0.00")
	if _, err := svc.Create(ctx, userID, req); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("zero amount got %v, want ErrValidation", err)
	}

	if _, err := svc.Create(ctx, uuid.New(), request(account, "100.00")); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("foreign account got %v, want ErrForbidden", err)
	}
}

func TestCreateRejectsInactiveAccount(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	account := seedAccount(t, st, userID, "1111111111", money.New(500, 0))

	err := st.Atomically(ctx, func(tx store.Tx) error {
		return tx.UpdateAccountStatus(ctx, account.ID, domain.AccountFrozen)
	})
	if err != nil {
		t.Fatalf("freeze account: %v", err)
	}

	if _, err := svc.Create(ctx, userID, request(account, "100.00")); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("frozen source got %v, want ErrInvalidState", err)
	}
}

func TestCreateLinksInternalDestination(t *testing.T) {
	svc, st := newTestService(t)
	userID := uuid.New()
	source := seedAccount(t, st, userID, "1111111111", money.New(500, 0))
	dest := seedAccount(t, st, uuid.New(), "2222222222", money.Zero)

	req := request(source, "100.00")
	req.ToAccountNumber = dest.AccountNumber
	transfer, err := svc.Create(context.Background(), userID, req)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if transfer.ToAccountID == nil || *transfer.ToAccountID != dest.ID {
		t.Error("internal destination was not linked")
	}
}

func TestApproveSettles(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	account := seedAccount(t, st, userID, "1111111111", money.New(500, 0))

	// 400.00 is under the fee threshold: fee 0.00, tax 0.40.
	transfer, err := svc.Create(ctx, userID, request(account, "400.00"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	approved, err := svc.Approve(ctx, transfer.ID, adminActor())
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if approved.Status != domain.TransferCompleted {
		t.Errorf("status = %s, want completed", approved.Status)
	}
	if approved.ApprovedBy == nil || approved.ApprovedAt == nil || approved.CompletedAt == nil {
		t.Error("approval provenance not recorded")
	}

	stored, _ := st.GetAccount(ctx, account.ID)
	if stored.Balance.String() != "99.60" {
		t.Errorf("balance after settlement = %s, want 99.60", stored.Balance)
	}

	entries, _ := st.ListTransactions(ctx, account.ID)
	if len(entries) != 2 {
		t.Fatalf("got %d transaction rows, want 2 (debit and tax, no fee)", len(entries))
	}
	// Newest first: tax entry, then the principal debit.
	if entries[0].Type != domain.TransactionTax || entries[0].Amount.String() != "0.40" || entries[0].BalanceAfter.String() != "99.60" {
		t.Errorf("tax row = %s %s -> %s, want tax 0.40 -> 99.60", entries[0].Type, entries[0].Amount, entries[0].BalanceAfter)
	}
	if entries[1].Type != domain.TransactionDebit || entries[1].Amount.String() != "400.00" || entries[1].BalanceAfter.String() != "100.00" {
		t.Errorf("debit row = %s %s -> %s, want debit 400.00 -> 100.00", entries[1].Type, entries[1].Amount, entries[1].BalanceAfter)
	}
	for _, e := range entries {
		if e.TransferID == nil || *e.TransferID != transfer.ID {
			t.Error("settlement row not linked to the transfer")
		}
	}

	audits := st.AuditEntries()
	if len(audits) != 1 || audits[0].Action != domain.AuditTransferApproved {
		t.Fatalf("got audit trail %v, want one transfer_approved entry", audits)
	}
}

func TestApproveIsIdempotent(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	account := seedAccount(t, st, userID, "1111111111", money.New(500, 0))

	transfer, err := svc.Create(ctx, userID, request(account, "400.00"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svc.Approve(ctx, transfer.ID, adminActor()); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	_, err = svc.Approve(ctx, transfer.ID, adminActor())
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("second approval got %v, want ErrInvalidState", err)
	}

	// The retry must not re-debit.
	stored, _ := st.GetAccount(ctx, account.ID)
	if stored.Balance.String() != "99.60" {
		t.Errorf("balance after retried approval = %s, want 99.60", stored.Balance)
	}
	entries, _ := st.ListTransactions(ctx, account.ID)
	if len(entries) != 2 {
		t.Errorf("retried approval grew the ledger to %d rows", len(entries))
	}
}

func TestApproveFailsWhenBalanceDropped(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	account := seedAccount(t, st, userID, "1111111111", money.New(500, 0))

	transfer, err := svc.Create(ctx, userID, request(account, "400.00"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// The balance drops between creation and review.
	err = st.Atomically(ctx, func(tx store.Tx) error {
		return tx.UpdateAccountBalance(ctx, account.ID, money.New(100, 0))
	})
	if err != nil {
		t.Fatalf("drain account: %v", err)
	}

	_, err = svc.Approve(ctx, transfer.ID, adminActor())
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("got %v, want ErrInsufficientFunds", err)
	}

	stored, _ := st.GetTransfer(ctx, transfer.ID)
	if stored.Status != domain.TransferVerificationRequired {
		t.Errorf("failed settlement moved transfer to %s", stored.Status)
	}
}

func TestRejectIsBalanceNeutral(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	account := seedAccount(t, st, userID, "1111111111", money.New(500, 0))

	transfer, err := svc.Create(ctx, userID, request(account, "400.00"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	rejected, err := svc.Reject(ctx, transfer.ID, "destination bank unverified", adminActor())
	if err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if rejected.Status != domain.TransferRejected {
		t.Errorf("status = %s, want rejected", rejected.Status)
	}
	if rejected.RejectionReason != "destination bank unverified" {
		t.Errorf("reason = %q", rejected.RejectionReason)
	}
	if rejected.ApprovedBy == nil || rejected.ApprovedAt == nil {
		t.Error("reviewer provenance not recorded")
	}

	stored, _ := st.GetAccount(ctx, account.ID)
	if stored.Balance.String() != "500.00" {
		t.Errorf("rejection changed balance to %s", stored.Balance)
	}
	entries, _ := st.ListTransactions(ctx, account.ID)
	if len(entries) != 0 {
		t.Errorf("rejection wrote %d transaction rows", len(entries))
	}

	audits := st.AuditEntries()
	if len(audits) != 1 || audits[0].Action != domain.AuditTransferRejected {
		t.Fatalf("got audit trail %v, want one transfer_rejected entry", audits)
	}
}

func TestRejectReasonValidation(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	account := seedAccount(t, st, userID, "1111111111", money.New(500, 0))

	transfer, err := svc.Create(ctx, userID, request(account, "400.00"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := svc.Reject(ctx, transfer.ID, "", adminActor()); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("empty reason got %v, want ErrValidation", err)
	}

	long := make([]byte, MaxRejectionReasonLength+1)
	for i := range long {
		long[i] = 'x'
	}
	if _, err := svc.Reject(ctx, transfer.ID, string(long), adminActor()); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("oversized reason got %v, want ErrValidation", err)
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	account := seedAccount(t, st, userID, "1111111111", money.New(500, 0))

	transfer, err := svc.Create(ctx, userID, request(account, "100.00"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := svc.Get(ctx, transfer.ID, userID); err != nil {
		t.Errorf("owner Get failed: %v", err)
	}
	if _, err := svc.Get(ctx, transfer.ID, uuid.New()); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("foreign Get got %v, want ErrForbidden", err)
	}
}
