package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"bank-backoffice/domain"
)

// --- Context Keys ---

type contextKey string

const (
	userIDKey contextKey = "userID"
	roleKey   contextKey = "role"
)

// UserIDFromContext returns the authenticated caller's ID.
func UserIDFromContext(r *http.Request) (uuid.UUID, error) {
	id, ok := r.Context().Value(userIDKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, errors.New("unauthorized")
	}
	return id, nil
}

// RoleFromContext returns the authenticated caller's role.
func RoleFromContext(r *http.Request) domain.Role {
	role, _ := r.Context().Value(roleKey).(domain.Role)
	return role
}

// --- Middleware ---

// Middleware authenticates bearer tokens and gates routes by role.
type Middleware struct {
	Sessions *Sessions
}

// Authenticate validates the bearer token and stores the caller's identity
// in the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			RespondWithError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			RespondWithError(w, http.StatusUnauthorized, "Invalid token format")
			return
		}

		claims, err := m.Sessions.Validate(tokenString)
		if err != nil {
			RespondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			RespondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		ctx = context.WithValue(ctx, roleKey, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects authenticated callers without the admin role. It
// must run after Authenticate.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if RoleFromContext(r) != domain.RoleAdmin {
			RespondWithError(w, http.StatusForbidden, "Administrator role required")
			return
		}
		next.ServeHTTP(w, r)
	}))
}
