// Package auth is the session collaborator for the ledger's HTTP surface:
// PIN login, bearer-token sessions and the middleware that gates customer
// and administrator routes. It contains no settlement logic.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"bank-backoffice/domain"
	"bank-backoffice/store"
)

// --- Models ---

type SignupRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

type LoginRequest struct {
	Email string `json:"email"`
	Pin   string `json:"pin"`
}

type Claims struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// --- Sessions ---

// Sessions issues and validates the signed bearer tokens used by both
// customers and administrators.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessions(secret string, ttl time.Duration, now func() time.Time) *Sessions {
	return &Sessions{secret: []byte(secret), ttl: ttl, now: now}
}

func (s *Sessions) Generate(user *domain.User) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID: user.ID.String(),
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Sessions) Validate(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// --- Handlers ---

type Env struct {
	Store    store.Store
	Sessions *Sessions
}

// SignupHandler registers a customer and returns the generated PIN once;
// only its bcrypt hash is stored.
func (env *Env) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.FullName == "" {
		RespondWithError(w, http.StatusBadRequest, "Full name and email are required")
		return
	}

	pin, pinHash, err := GeneratePINAndHash()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to generate PIN")
		return
	}

	user := &domain.User{
		ID:        uuid.New(),
		Email:     req.Email,
		FullName:  req.FullName,
		Role:      domain.RoleCustomer,
		PINHash:   pinHash,
		CreatedAt: time.Now(),
	}
	err = env.Store.Atomically(r.Context(), func(tx store.Tx) error {
		return tx.CreateUser(r.Context(), user)
	})
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	JSON(w, http.StatusCreated, map[string]string{"user_id": user.ID.String(), "pin": pin})
}

// LoginHandler exchanges email+PIN for a bearer token.
func (env *Env) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := env.Store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		RespondWithError(w, http.StatusUnauthorized, "Invalid email or PIN")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PINHash), []byte(req.Pin)); err != nil {
		RespondWithError(w, http.StatusUnauthorized, "Invalid email or PIN")
		return
	}

	token, err := env.Sessions.Generate(user)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"token": token})
}

// EnsureAdmin creates the administrator account when it does not exist yet,
// for bootstrapping a fresh deployment.
func EnsureAdmin(ctx context.Context, st store.Store, email, fullName, pin string) error {
	_, err := st.GetUserByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	pinHash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("could not hash admin PIN: %w", err)
	}
	admin := &domain.User{
		ID:        uuid.New(),
		Email:     email,
		FullName:  fullName,
		Role:      domain.RoleAdmin,
		PINHash:   string(pinHash),
		CreatedAt: time.Now(),
	}
	return st.Atomically(ctx, func(tx store.Tx) error {
		return tx.CreateUser(ctx, admin)
	})
}
