package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"bank-backoffice/domain"
	"bank-backoffice/money"
)

// Postgres implements Store on a single consistent relational database.
// Atomic units map to SQL transactions; per-account serialization uses
// SELECT ... FOR UPDATE row locks.
type Postgres struct {
	db *sql.DB
}

// Open connects to Postgres and verifies the connection.
func Open(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not ping database: %w", err)
	}
	return &Postgres{db: db}, nil
}

// NewPostgres wraps an existing connection pool.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

// Migrate creates the schema when it does not exist yet.
func (p *Postgres) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("could not run migration: %w", err)
		}
	}
	return nil
}

// Atomically runs fn inside one SQL transaction.
func (p *Postgres) Atomically(ctx context.Context, fn func(tx Tx) error) error {
	sqlTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: could not begin transaction: %v", domain.ErrPersistence, err)
	}
	defer sqlTx.Rollback()

	if err := fn(&pgTx{q: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("%w: could not commit transaction: %v", domain.ErrPersistence, err)
	}
	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx so the read methods can
// be shared between the pool and an open transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (p *Postgres) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return getAccount(ctx, p.db, accountByIDQuery, id)
}

func (p *Postgres) GetAccountByNumber(ctx context.Context, number string) (*domain.Account, error) {
	return getAccount(ctx, p.db, accountByNumberQuery, number)
}

func (p *Postgres) ListAccountsByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Account, error) {
	return listAccountsByUser(ctx, p.db, userID)
}

func (p *Postgres) ListTransactions(ctx context.Context, accountID uuid.UUID) ([]*domain.Transaction, error) {
	return listTransactions(ctx, p.db, accountID)
}

func (p *Postgres) GetTransfer(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	return getTransfer(ctx, p.db, transferByIDQuery, id)
}

func (p *Postgres) ListTransfersByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Transfer, error) {
	return listTransfers(ctx, p.db, transfersByUserQuery, userID)
}

func (p *Postgres) ListTransfersByStatus(ctx context.Context, status domain.TransferStatus) ([]*domain.Transfer, error) {
	return listTransfers(ctx, p.db, transfersByStatusQuery, status)
}

func (p *Postgres) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return getUser(ctx, p.db, userByIDQuery, id)
}

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return getUser(ctx, p.db, userByEmailQuery, email)
}

// --- Transaction scope ---

type pgTx struct {
	q querier
}

func (t *pgTx) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return getAccount(ctx, t.q, accountByIDQuery, id)
}

func (t *pgTx) GetAccountByNumber(ctx context.Context, number string) (*domain.Account, error) {
	return getAccount(ctx, t.q, accountByNumberQuery, number)
}

func (t *pgTx) GetAccountForUpdate(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return getAccount(ctx, t.q, accountByIDQuery+" FOR UPDATE", id)
}

func (t *pgTx) ListAccountsByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Account, error) {
	return listAccountsByUser(ctx, t.q, userID)
}

func (t *pgTx) ListTransactions(ctx context.Context, accountID uuid.UUID) ([]*domain.Transaction, error) {
	return listTransactions(ctx, t.q, accountID)
}

func (t *pgTx) GetTransfer(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	return getTransfer(ctx, t.q, transferByIDQuery, id)
}

func (t *pgTx) GetTransferForUpdate(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	return getTransfer(ctx, t.q, transferByIDQuery+" FOR UPDATE", id)
}

func (t *pgTx) ListTransfersByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Transfer, error) {
	return listTransfers(ctx, t.q, transfersByUserQuery, userID)
}

func (t *pgTx) ListTransfersByStatus(ctx context.Context, status domain.TransferStatus) ([]*domain.Transfer, error) {
	return listTransfers(ctx, t.q, transfersByStatusQuery, status)
}

func (t *pgTx) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return getUser(ctx, t.q, userByIDQuery, id)
}

func (t *pgTx) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return getUser(ctx, t.q, userByEmailQuery, email)
}

func (t *pgTx) CreateAccount(ctx context.Context, account *domain.Account) error {
	query := `INSERT INTO accounts (id, user_id, account_number, routing_number, account_type, balance, status, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := t.q.ExecContext(ctx, query,
		account.ID, account.UserID, account.AccountNumber, account.RoutingNumber,
		account.AccountType, account.Balance, account.Status, account.CreatedAt, account.UpdatedAt)
	if err != nil {
		return fmt.Errorf("could not create account: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateAccountBalance(ctx context.Context, id uuid.UUID, balance money.Amount) error {
	query := `UPDATE accounts SET balance = $1, updated_at = NOW() WHERE id = $2`
	res, err := t.q.ExecContext(ctx, query, balance, id)
	if err != nil {
		return fmt.Errorf("could not update account balance: %w", err)
	}
	return requireOneRow(res, "account")
}

func (t *pgTx) UpdateAccountStatus(ctx context.Context, id uuid.UUID, status domain.AccountStatus) error {
	query := `UPDATE accounts SET status = $1, updated_at = NOW() WHERE id = $2`
	res, err := t.q.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("could not update account status: %w", err)
	}
	return requireOneRow(res, "account")
}

func (t *pgTx) AppendTransaction(ctx context.Context, entry *domain.Transaction) error {
	query := `INSERT INTO transactions (id, account_id, transfer_id, type, amount, description, balance_after, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := t.q.ExecContext(ctx, query,
		entry.ID, entry.AccountID, nullUUID(entry.TransferID), entry.Type,
		entry.Amount, entry.Description, entry.BalanceAfter, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("could not append transaction: %w", err)
	}
	return nil
}

func (t *pgTx) CreateTransfer(ctx context.Context, transfer *domain.Transfer) error {
	query := `INSERT INTO transfers (id, from_account_id, to_account_id, to_account_number, to_routing_number,
				to_bank_name, to_account_holder_name, amount, fee, tax, description, status,
				rejection_reason, approved_by, approved_at, completed_at, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := t.q.ExecContext(ctx, query,
		transfer.ID, transfer.FromAccountID, nullUUID(transfer.ToAccountID),
		transfer.ToAccountNumber, transfer.ToRoutingNumber, transfer.ToBankName,
		transfer.ToAccountHolderName, transfer.Amount, transfer.Fee, transfer.Tax,
		transfer.Description, transfer.Status, transfer.RejectionReason,
		nullUUID(transfer.ApprovedBy), nullTime(transfer.ApprovedAt), nullTime(transfer.CompletedAt),
		transfer.CreatedAt, transfer.UpdatedAt)
	if err != nil {
		return fmt.Errorf("could not create transfer: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateTransfer(ctx context.Context, transfer *domain.Transfer) error {
	query := `UPDATE transfers SET status = $1, rejection_reason = $2, approved_by = $3,
				approved_at = $4, completed_at = $5, updated_at = $6
			  WHERE id = $7`
	res, err := t.q.ExecContext(ctx, query,
		transfer.Status, transfer.RejectionReason, nullUUID(transfer.ApprovedBy),
		nullTime(transfer.ApprovedAt), nullTime(transfer.CompletedAt), transfer.UpdatedAt, transfer.ID)
	if err != nil {
		return fmt.Errorf("could not update transfer: %w", err)
	}
	return requireOneRow(res, "transfer")
}

func (t *pgTx) AppendAuditLog(ctx context.Context, entry *domain.AuditLog) error {
	query := `INSERT INTO audit_logs (id, admin_id, target_user_id, action, details, ip_address, user_agent, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := t.q.ExecContext(ctx, query,
		entry.ID, entry.AdminID, nullUUID(entry.TargetUserID), entry.Action,
		[]byte(entry.Details), entry.IPAddress, entry.UserAgent, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("could not append audit log: %w", err)
	}
	return nil
}

func (t *pgTx) CreateUser(ctx context.Context, user *domain.User) error {
	query := `INSERT INTO users (id, email, full_name, role, pin_hash, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := t.q.ExecContext(ctx, query,
		user.ID, user.Email, user.FullName, user.Role, user.PINHash, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("could not create user: %w", err)
	}
	return nil
}

// --- Row mapping ---

const accountColumns = `id, user_id, account_number, routing_number, account_type, balance, status, created_at, updated_at`

const accountByIDQuery = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
const accountByNumberQuery = `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1`

func getAccount(ctx context.Context, q querier, query string, arg any) (*domain.Account, error) {
	account := &domain.Account{}
	err := q.QueryRowContext(ctx, query, arg).Scan(
		&account.ID, &account.UserID, &account.AccountNumber, &account.RoutingNumber,
		&account.AccountType, &account.Balance, &account.Status, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("could not get account: %w", err)
	}
	return account, nil
}

func listAccountsByUser(ctx context.Context, q querier, userID uuid.UUID) ([]*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 ORDER BY created_at`
	rows, err := q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("could not list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account := &domain.Account{}
		err := rows.Scan(&account.ID, &account.UserID, &account.AccountNumber, &account.RoutingNumber,
			&account.AccountType, &account.Balance, &account.Status, &account.CreatedAt, &account.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("could not scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

func listTransactions(ctx context.Context, q querier, accountID uuid.UUID) ([]*domain.Transaction, error) {
	query := `SELECT id, account_id, transfer_id, type, amount, description, balance_after, created_at
			  FROM transactions WHERE account_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := q.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("could not list transactions: %w", err)
	}
	defer rows.Close()

	var entries []*domain.Transaction
	for rows.Next() {
		entry := &domain.Transaction{}
		var transferID uuid.NullUUID
		err := rows.Scan(&entry.ID, &entry.AccountID, &transferID, &entry.Type,
			&entry.Amount, &entry.Description, &entry.BalanceAfter, &entry.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("could not scan transaction: %w", err)
		}
		if transferID.Valid {
			id := transferID.UUID
			entry.TransferID = &id
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return entries, nil
}

const transferColumns = `id, from_account_id, to_account_id, to_account_number, to_routing_number,
	to_bank_name, to_account_holder_name, amount, fee, tax, description, status,
	rejection_reason, approved_by, approved_at, completed_at, created_at, updated_at`

const transferByIDQuery = `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1`

const transfersByUserQuery = `SELECT ` + transferColumns + ` FROM transfers
	WHERE from_account_id IN (SELECT id FROM accounts WHERE user_id = $1)
	ORDER BY created_at DESC`

const transfersByStatusQuery = `SELECT ` + transferColumns + ` FROM transfers
	WHERE status = $1 ORDER BY created_at`

type transferScanner interface {
	Scan(dest ...any) error
}

func scanTransfer(row transferScanner) (*domain.Transfer, error) {
	transfer := &domain.Transfer{}
	var (
		toAccountID uuid.NullUUID
		approvedBy  uuid.NullUUID
		approvedAt  sql.NullTime
		completedAt sql.NullTime
	)
	err := row.Scan(&transfer.ID, &transfer.FromAccountID, &toAccountID,
		&transfer.ToAccountNumber, &transfer.ToRoutingNumber, &transfer.ToBankName,
		&transfer.ToAccountHolderName, &transfer.Amount, &transfer.Fee, &transfer.Tax,
		&transfer.Description, &transfer.Status, &transfer.RejectionReason,
		&approvedBy, &approvedAt, &completedAt, &transfer.CreatedAt, &transfer.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if toAccountID.Valid {
		id := toAccountID.UUID
		transfer.ToAccountID = &id
	}
	if approvedBy.Valid {
		id := approvedBy.UUID
		transfer.ApprovedBy = &id
	}
	if approvedAt.Valid {
		at := approvedAt.Time
		transfer.ApprovedAt = &at
	}
	if completedAt.Valid {
		at := completedAt.Time
		transfer.CompletedAt = &at
	}
	return transfer, nil
}

func getTransfer(ctx context.Context, q querier, query string, id uuid.UUID) (*domain.Transfer, error) {
	transfer, err := scanTransfer(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transfer: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("could not get transfer: %w", err)
	}
	return transfer, nil
}

func listTransfers(ctx context.Context, q querier, query string, arg any) ([]*domain.Transfer, error) {
	rows, err := q.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("could not list transfers: %w", err)
	}
	defer rows.Close()

	var transfers []*domain.Transfer
	for rows.Next() {
		transfer, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan transfer: %w", err)
		}
		transfers = append(transfers, transfer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transfers: %w", err)
	}
	return transfers, nil
}

const userByIDQuery = `SELECT id, email, full_name, role, pin_hash, created_at FROM users WHERE id = $1`
const userByEmailQuery = `SELECT id, email, full_name, role, pin_hash, created_at FROM users WHERE email = $1`

func getUser(ctx context.Context, q querier, query string, arg any) (*domain.User, error) {
	user := &domain.User{}
	err := q.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.FullName, &user.Role, &user.PINHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("could not get user: %w", err)
	}
	return user, nil
}

// --- Helpers ---

func requireOneRow(res sql.Result, entity string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not check affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", entity, domain.ErrNotFound)
	}
	return nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// --- Schema ---

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT UNIQUE NOT NULL,
		full_name TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'customer',
		pin_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users (id),
		account_number TEXT UNIQUE NOT NULL,
		routing_number TEXT NOT NULL,
		account_type TEXT NOT NULL DEFAULT 'checking',
		balance NUMERIC(15, 2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
		status TEXT NOT NULL DEFAULT 'active',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS transfers (
		id UUID PRIMARY KEY,
		from_account_id UUID NOT NULL REFERENCES accounts (id),
		to_account_id UUID REFERENCES accounts (id),
		to_account_number TEXT NOT NULL DEFAULT '',
		to_routing_number TEXT NOT NULL DEFAULT '',
		to_bank_name TEXT NOT NULL DEFAULT '',
		to_account_holder_name TEXT NOT NULL,
		amount NUMERIC(15, 2) NOT NULL CHECK (amount > 0),
		fee NUMERIC(15, 2) NOT NULL DEFAULT 0,
		tax NUMERIC(15, 2) NOT NULL DEFAULT 0,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'verification_required',
		rejection_reason TEXT NOT NULL DEFAULT '',
		approved_by UUID REFERENCES users (id),
		approved_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id UUID PRIMARY KEY,
		account_id UUID NOT NULL REFERENCES accounts (id),
		transfer_id UUID REFERENCES transfers (id),
		type TEXT NOT NULL,
		amount NUMERIC(15, 2) NOT NULL CHECK (amount > 0),
		description TEXT NOT NULL DEFAULT '',
		balance_after NUMERIC(15, 2) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id UUID PRIMARY KEY,
		admin_id UUID NOT NULL REFERENCES users (id),
		target_user_id UUID REFERENCES users (id),
		action TEXT NOT NULL,
		details JSONB NOT NULL DEFAULT '{}',
		ip_address TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_accounts_user ON accounts (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions (account_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_transfers_status ON transfers (status)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_admin ON audit_logs (admin_id)`,
}
