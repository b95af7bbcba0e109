package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"bank-backoffice/domain"
	"bank-backoffice/money"
)

// Memory is an in-memory Store used to test service logic without a
// database. Atomic units stage their writes against a copy of the state and
// publish it only when the unit succeeds, so a failing step leaves nothing
// behind. The single mutex serializes units, which also satisfies the
// per-account serialization the services rely on.
type Memory struct {
	mu    sync.Mutex
	state *memState

	writeErr      error
	auditWriteErr error
}

type memState struct {
	accounts     map[uuid.UUID]*domain.Account
	transactions []*domain.Transaction
	transfers    map[uuid.UUID]*domain.Transfer
	audits       []*domain.AuditLog
	users        map[uuid.UUID]*domain.User
}

func newMemState() *memState {
	return &memState{
		accounts:  make(map[uuid.UUID]*domain.Account),
		transfers: make(map[uuid.UUID]*domain.Transfer),
		users:     make(map[uuid.UUID]*domain.User),
	}
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{state: newMemState()}
}

// FailWrites makes every subsequent write operation return err. Pass nil to
// clear the fault.
func (m *Memory) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// FailAuditWrites makes only AppendAuditLog return err, for exercising the
// rule that an unauditable mutation must not commit.
func (m *Memory) FailAuditWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auditWriteErr = err
}

// AuditEntries snapshots the recorded audit trail, oldest first.
func (m *Memory) AuditEntries() []*domain.AuditLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.AuditLog, len(m.state.audits))
	for i, e := range m.state.audits {
		out[i] = copyAuditLog(e)
	}
	return out
}

func (m *Memory) Ping(context.Context) error { return nil }
func (m *Memory) Close() error               { return nil }

// Atomically stages fn's writes and publishes them only on success.
func (m *Memory) Atomically(_ context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	staged := m.state.clone()
	tx := &memTx{store: m, state: staged}
	if err := fn(tx); err != nil {
		return err
	}
	m.state = staged
	return nil
}

func (m *Memory) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.getAccount(id)
}

func (m *Memory) GetAccountByNumber(ctx context.Context, number string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.getAccountByNumber(number)
}

func (m *Memory) ListAccountsByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.listAccountsByUser(userID)
}

func (m *Memory) ListTransactions(ctx context.Context, accountID uuid.UUID) ([]*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.listTransactions(accountID)
}

func (m *Memory) GetTransfer(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.getTransfer(id)
}

func (m *Memory) ListTransfersByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.listTransfersByUser(userID)
}

func (m *Memory) ListTransfersByStatus(ctx context.Context, status domain.TransferStatus) ([]*domain.Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.listTransfersByStatus(status)
}

func (m *Memory) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.getUser(id)
}

func (m *Memory) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.getUserByEmail(email)
}

// --- Transaction scope ---

type memTx struct {
	store *Memory
	state *memState
}

func (t *memTx) GetAccount(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	return t.state.getAccount(id)
}

func (t *memTx) GetAccountByNumber(_ context.Context, number string) (*domain.Account, error) {
	return t.state.getAccountByNumber(number)
}

func (t *memTx) GetAccountForUpdate(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	return t.state.getAccount(id)
}

func (t *memTx) ListAccountsByUser(_ context.Context, userID uuid.UUID) ([]*domain.Account, error) {
	return t.state.listAccountsByUser(userID)
}

func (t *memTx) ListTransactions(_ context.Context, accountID uuid.UUID) ([]*domain.Transaction, error) {
	return t.state.listTransactions(accountID)
}

func (t *memTx) GetTransfer(_ context.Context, id uuid.UUID) (*domain.Transfer, error) {
	return t.state.getTransfer(id)
}

func (t *memTx) GetTransferForUpdate(_ context.Context, id uuid.UUID) (*domain.Transfer, error) {
	return t.state.getTransfer(id)
}

func (t *memTx) ListTransfersByUser(_ context.Context, userID uuid.UUID) ([]*domain.Transfer, error) {
	return t.state.listTransfersByUser(userID)
}

func (t *memTx) ListTransfersByStatus(_ context.Context, status domain.TransferStatus) ([]*domain.Transfer, error) {
	return t.state.listTransfersByStatus(status)
}

func (t *memTx) GetUser(_ context.Context, id uuid.UUID) (*domain.User, error) {
	return t.state.getUser(id)
}

func (t *memTx) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	return t.state.getUserByEmail(email)
}

func (t *memTx) CreateAccount(_ context.Context, account *domain.Account) error {
	if err := t.store.writeErr; err != nil {
		return err
	}
	for _, existing := range t.state.accounts {
		if existing.AccountNumber == account.AccountNumber {
			return fmt.Errorf("could not create account: duplicate account number %s", account.AccountNumber)
		}
	}
	t.state.accounts[account.ID] = copyAccount(account)
	return nil
}

func (t *memTx) UpdateAccountBalance(_ context.Context, id uuid.UUID, balance money.Amount) error {
	if err := t.store.writeErr; err != nil {
		return err
	}
	account, ok := t.state.accounts[id]
	if !ok {
		return fmt.Errorf("account: %w", domain.ErrNotFound)
	}
	account.Balance = balance
	account.UpdatedAt = time.Now()
	return nil
}

func (t *memTx) UpdateAccountStatus(_ context.Context, id uuid.UUID, status domain.AccountStatus) error {
	if err := t.store.writeErr; err != nil {
		return err
	}
	account, ok := t.state.accounts[id]
	if !ok {
		return fmt.Errorf("account: %w", domain.ErrNotFound)
	}
	account.Status = status
	account.UpdatedAt = time.Now()
	return nil
}

func (t *memTx) AppendTransaction(_ context.Context, entry *domain.Transaction) error {
	if err := t.store.writeErr; err != nil {
		return err
	}
	t.state.transactions = append(t.state.transactions, copyTransaction(entry))
	return nil
}

func (t *memTx) CreateTransfer(_ context.Context, transfer *domain.Transfer) error {
	if err := t.store.writeErr; err != nil {
		return err
	}
	t.state.transfers[transfer.ID] = copyTransfer(transfer)
	return nil
}

func (t *memTx) UpdateTransfer(_ context.Context, transfer *domain.Transfer) error {
	if err := t.store.writeErr; err != nil {
		return err
	}
	if _, ok := t.state.transfers[transfer.ID]; !ok {
		return fmt.Errorf("transfer: %w", domain.ErrNotFound)
	}
	t.state.transfers[transfer.ID] = copyTransfer(transfer)
	return nil
}

func (t *memTx) AppendAuditLog(_ context.Context, entry *domain.AuditLog) error {
	if err := t.store.auditWriteErr; err != nil {
		return err
	}
	if err := t.store.writeErr; err != nil {
		return err
	}
	t.state.audits = append(t.state.audits, copyAuditLog(entry))
	return nil
}

func (t *memTx) CreateUser(_ context.Context, user *domain.User) error {
	if err := t.store.writeErr; err != nil {
		return err
	}
	for _, existing := range t.state.users {
		if existing.Email == user.Email {
			return fmt.Errorf("could not create user: duplicate email %s", user.Email)
		}
	}
	u := *user
	t.state.users[user.ID] = &u
	return nil
}

// --- State access ---

func (s *memState) getAccount(id uuid.UUID) (*domain.Account, error) {
	account, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account: %w", domain.ErrNotFound)
	}
	return copyAccount(account), nil
}

func (s *memState) getAccountByNumber(number string) (*domain.Account, error) {
	for _, account := range s.accounts {
		if account.AccountNumber == number {
			return copyAccount(account), nil
		}
	}
	return nil, fmt.Errorf("account: %w", domain.ErrNotFound)
}

func (s *memState) listAccountsByUser(userID uuid.UUID) ([]*domain.Account, error) {
	var accounts []*domain.Account
	for _, account := range s.accounts {
		if account.UserID == userID {
			accounts = append(accounts, copyAccount(account))
		}
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
	return accounts, nil
}

func (s *memState) listTransactions(accountID uuid.UUID) ([]*domain.Transaction, error) {
	var entries []*domain.Transaction
	for i := len(s.transactions) - 1; i >= 0; i-- {
		if s.transactions[i].AccountID == accountID {
			entries = append(entries, copyTransaction(s.transactions[i]))
		}
	}
	return entries, nil
}

func (s *memState) getTransfer(id uuid.UUID) (*domain.Transfer, error) {
	transfer, ok := s.transfers[id]
	if !ok {
		return nil, fmt.Errorf("transfer: %w", domain.ErrNotFound)
	}
	return copyTransfer(transfer), nil
}

func (s *memState) listTransfersByUser(userID uuid.UUID) ([]*domain.Transfer, error) {
	var transfers []*domain.Transfer
	for _, transfer := range s.transfers {
		account, ok := s.accounts[transfer.FromAccountID]
		if ok && account.UserID == userID {
			transfers = append(transfers, copyTransfer(transfer))
		}
	}
	sort.Slice(transfers, func(i, j int) bool {
		return transfers[i].CreatedAt.After(transfers[j].CreatedAt)
	})
	return transfers, nil
}

func (s *memState) listTransfersByStatus(status domain.TransferStatus) ([]*domain.Transfer, error) {
	var transfers []*domain.Transfer
	for _, transfer := range s.transfers {
		if transfer.Status == status {
			transfers = append(transfers, copyTransfer(transfer))
		}
	}
	sort.Slice(transfers, func(i, j int) bool {
		return transfers[i].CreatedAt.Before(transfers[j].CreatedAt)
	})
	return transfers, nil
}

func (s *memState) getUser(id uuid.UUID) (*domain.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user: %w", domain.ErrNotFound)
	}
	u := *user
	return &u, nil
}

func (s *memState) getUserByEmail(email string) (*domain.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			u := *user
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user: %w", domain.ErrNotFound)
}

func (s *memState) clone() *memState {
	next := newMemState()
	for id, account := range s.accounts {
		next.accounts[id] = copyAccount(account)
	}
	next.transactions = make([]*domain.Transaction, len(s.transactions))
	for i, entry := range s.transactions {
		next.transactions[i] = copyTransaction(entry)
	}
	for id, transfer := range s.transfers {
		next.transfers[id] = copyTransfer(transfer)
	}
	next.audits = make([]*domain.AuditLog, len(s.audits))
	for i, entry := range s.audits {
		next.audits[i] = copyAuditLog(entry)
	}
	for id, user := range s.users {
		u := *user
		next.users[id] = &u
	}
	return next
}

// --- Copy helpers ---

func copyAccount(a *domain.Account) *domain.Account {
	c := *a
	return &c
}

func copyTransaction(e *domain.Transaction) *domain.Transaction {
	c := *e
	if e.TransferID != nil {
		id := *e.TransferID
		c.TransferID = &id
	}
	return &c
}

func copyTransfer(tr *domain.Transfer) *domain.Transfer {
	c := *tr
	if tr.ToAccountID != nil {
		id := *tr.ToAccountID
		c.ToAccountID = &id
	}
	if tr.ApprovedBy != nil {
		id := *tr.ApprovedBy
		c.ApprovedBy = &id
	}
	if tr.ApprovedAt != nil {
		at := *tr.ApprovedAt
		c.ApprovedAt = &at
	}
	if tr.CompletedAt != nil {
		at := *tr.CompletedAt
		c.CompletedAt = &at
	}
	return &c
}

func copyAuditLog(e *domain.AuditLog) *domain.AuditLog {
	c := *e
	if e.TargetUserID != nil {
		id := *e.TargetUserID
		c.TargetUserID = &id
	}
	c.Details = append([]byte(nil), e.Details...)
	return &c
}
