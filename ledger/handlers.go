package ledger

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"bank-backoffice/audit"
	"bank-backoffice/auth"
	"bank-backoffice/domain"
	"bank-backoffice/money"
	"bank-backoffice/notify"
	"bank-backoffice/store"
)

// --- Requests ---

type CreateAccountRequest struct {
	AccountType string `json:"account_type"`
}

type AdjustBalanceRequest struct {
	AccountID   string `json:"account_id"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

type SetStatusRequest struct {
	AccountID string `json:"account_id"`
	Status    string `json:"status"`
	Reason    string `json:"reason"`
}

// --- Handlers ---

type Env struct {
	Ledger   *Service
	Store    store.Store
	Notifier notify.Notifier
	Logger   *slog.Logger
}

// CreateAccountHandler opens an account for the authenticated customer.
func (env *Env) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Actor(r)
	if err != nil {
		auth.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	account, err := env.Ledger.CreateAccount(r.Context(), actor.AdminID, req.AccountType, actor)
	if err != nil {
		auth.RespondWithDomainError(w, err)
		return
	}
	auth.JSON(w, http.StatusCreated, account)
}

// AccountsHandler lists the authenticated customer's accounts.
func (env *Env) AccountsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r)
	if err != nil {
		auth.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	accounts, err := env.Store.ListAccountsByUser(r.Context(), userID)
	if err != nil {
		auth.RespondWithDomainError(w, err)
		return
	}
	if accounts == nil {
		accounts = []*domain.Account{}
	}
	auth.JSON(w, http.StatusOK, accounts)
}

// TransactionsHandler returns an account's ledger entries, newest first.
// Customers see only their own accounts; admins see any.
func (env *Env) TransactionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r)
	if err != nil {
		auth.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	accountID, err := uuid.Parse(r.URL.Query().Get("account_id"))
	if err != nil {
		auth.RespondWithError(w, http.StatusBadRequest, "Invalid account_id")
		return
	}

	account, err := env.Store.GetAccount(r.Context(), accountID)
	if err != nil {
		auth.RespondWithDomainError(w, err)
		return
	}
	if account.UserID != userID && auth.RoleFromContext(r) != domain.RoleAdmin {
		auth.RespondWithError(w, http.StatusForbidden, "Account does not belong to the caller")
		return
	}

	entries, err := env.Store.ListTransactions(r.Context(), accountID)
	if err != nil {
		auth.RespondWithDomainError(w, err)
		return
	}
	if entries == nil {
		entries = []*domain.Transaction{}
	}
	auth.JSON(w, http.StatusOK, entries)
}

// CreditHandler is the admin balance-credit endpoint.
func (env *Env) CreditHandler(w http.ResponseWriter, r *http.Request) {
	env.adjustBalance(w, r, env.Ledger.Credit)
}

// DebitHandler is the admin balance-debit endpoint.
func (env *Env) DebitHandler(w http.ResponseWriter, r *http.Request) {
	env.adjustBalance(w, r, env.Ledger.Debit)
}

type adjustFunc func(ctx context.Context, accountID uuid.UUID, amount money.Amount, description string, actor audit.Actor) (*domain.Account, error)

func (env *Env) adjustBalance(w http.ResponseWriter, r *http.Request, adjust adjustFunc) {
	actor, err := auth.Actor(r)
	if err != nil {
		auth.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req AdjustBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		auth.RespondWithError(w, http.StatusBadRequest, "Invalid account_id")
		return
	}
	amount, err := money.ParsePositive(req.Amount)
	if err != nil {
		auth.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	account, err := adjust(r.Context(), accountID, amount, req.Description, actor)
	if err != nil {
		auth.RespondWithDomainError(w, err)
		return
	}

	if err := env.Notifier.BalanceChanged(r.Context(), account); err != nil {
		env.Logger.Warn("balance change notification failed", "account_id", account.ID, "error", err)
	}
	auth.JSON(w, http.StatusOK, account)
}

// SetStatusHandler is the admin account freeze/unfreeze/close endpoint.
func (env *Env) SetStatusHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Actor(r)
	if err != nil {
		auth.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		auth.RespondWithError(w, http.StatusBadRequest, "Invalid account_id")
		return
	}

	account, err := env.Ledger.SetStatus(r.Context(), accountID, domain.AccountStatus(req.Status), req.Reason, actor)
	if err != nil {
		auth.RespondWithDomainError(w, err)
		return
	}

	if err := env.Notifier.AccountStatusChanged(r.Context(), account); err != nil {
		env.Logger.Warn("status change notification failed", "account_id", account.ID, "error", err)
	}
	auth.JSON(w, http.StatusOK, account)
}
