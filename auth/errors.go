package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"bank-backoffice/domain"
)

// --- Error Handling ---

type ErrorResponse struct {
	Error string `json:"error"`
}

func JSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	JSON(w, code, ErrorResponse{Error: message})
}

// RespondWithDomainError maps the domain error taxonomy onto HTTP status
// codes. Unrecognized errors become an opaque 500 so internal detail never
// leaks to the caller.
func RespondWithDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		RespondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrInvalidState):
		RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds):
		RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrValidation):
		RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrPersistence):
		RespondWithError(w, http.StatusServiceUnavailable, "Temporary storage failure, please retry")
	default:
		RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
