package transfer

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"bank-backoffice/auth"
	"bank-backoffice/domain"
	"bank-backoffice/money"
	"bank-backoffice/notify"
)

// --- Requests ---

type CreateTransferRequest struct {
	FromAccountID       string `json:"from_account_id"`
	ToAccountNumber     string `json:"to_account_number"`
	ToRoutingNumber     string `json:"to_routing_number"`
	ToBankName          string `json:"to_bank_name"`
	ToAccountHolderName string `json:"to_account_holder_name"`
	Amount              string `json:"amount"`
	Description         string `json:"description"`
}

type ApproveTransferRequest struct {
	TransferID string `json:"transfer_id"`
}

type RejectTransferRequest struct {
	TransferID string `json:"transfer_id"`
	Reason     string `json:"reason"`
}

// --- Handlers ---

type Env struct {
	Transfers *Service
	Notifier  notify.Notifier
	Logger    *slog.Logger
}

// CreateHandler accepts a customer transfer request; the transfer enters
// review and no balance moves yet.
func (env *Env) CreateHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r)
	if err != nil {
		auth.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req CreateTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	fromAccountID, err := uuid.Parse(req.FromAccountID)
	if err != nil {
		auth.RespondWithError(w, http.StatusBadRequest, "Invalid from_account_id")
		return
	}
	amount, err := money.ParsePositive(req.Amount)
	if err != nil {
		auth.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	transfer, err := env.Transfers.Create(r.Context(), userID, CreateRequest{
		FromAccountID:       fromAccountID,
		ToAccountNumber:     req.ToAccountNumber,
		ToRoutingNumber:     req.ToRoutingNumber,
		ToBankName:          req.ToBankName,
		ToAccountHolderName: req.ToAccountHolderName,
		Amount:              amount,
		Description:         req.Description,
	})
	if err != nil {
		auth.RespondWithDomainError(w, err)
		return
	}
	auth.JSON(w, http.StatusCreated, transfer)
}

// ListHandler returns the authenticated customer's transfers.
func (env *Env) ListHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r)
	if err != nil {
		auth.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	transfers, err := env.Transfers.ListForUser(r.Context(), userID)
	if err != nil {
		auth.RespondWithDomainError(w, err)
		return
	}
	if transfers == nil {
		transfers = []*domain.Transfer{}
	}
	auth.JSON(w, http.StatusOK, transfers)
}

// PendingHandler lists transfers awaiting review, for the admin queue.
func (env *Env) PendingHandler(w http.ResponseWriter, r *http.Request) {
	transfers, err := env.Transfers.ListPending(r.Context())
	if err != nil {
		auth.RespondWithDomainError(w, err)
		return
	}
	if transfers == nil {
		transfers = []*domain.Transfer{}
	}
	auth.JSON(w, http.StatusOK, transfers)
}

// ApproveHandler settles a transfer. Notification is best effort; a failed
// dispatch never rolls back a committed settlement.
func (env *Env) ApproveHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Actor(r)
	if err != nil {
		auth.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req ApproveTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	transferID, err := uuid.Parse(req.TransferID)
	if err != nil {
		auth.RespondWithError(w, http.StatusBadRequest, "Invalid transfer_id")
		return
	}

	transfer, err := env.Transfers.Approve(r.Context(), transferID, actor)
	if err != nil {
		auth.RespondWithDomainError(w, err)
		return
	}

	if err := env.Notifier.TransferCompleted(r.Context(), transfer); err != nil {
		env.Logger.Warn("completion notification failed", "transfer_id", transfer.ID, "error", err)
	}
	auth.JSON(w, http.StatusOK, transfer)
}

// RejectHandler closes a transfer with a reason; balances are untouched.
func (env *Env) RejectHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Actor(r)
	if err != nil {
		auth.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req RejectTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	transferID, err := uuid.Parse(req.TransferID)
	if err != nil {
		auth.RespondWithError(w, http.StatusBadRequest, "Invalid transfer_id")
		return
	}

	transfer, err := env.Transfers.Reject(r.Context(), transferID, req.Reason, actor)
	if err != nil {
		auth.RespondWithDomainError(w, err)
		return
	}

	if err := env.Notifier.TransferRejected(r.Context(), transfer); err != nil {
		env.Logger.Warn("rejection notification failed", "transfer_id", transfer.ID, "error", err)
	}
	auth.JSON(w, http.StatusOK, transfer)
}
