package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"bank-backoffice/domain"
)

func TestSessionsRoundTrip(t *testing.T) {
	sessions := NewSessions("test-secret", time.Hour, time.Now)
	user := &domain.User{ID: uuid.New(), Role: domain.RoleAdmin}

	token, err := sessions.Generate(user)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	claims, err := sessions.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.UserID != user.ID.String() {
		t.Errorf("user id = %s, want %s", claims.UserID, user.ID)
	}
	if claims.Role != domain.RoleAdmin {
		t.Errorf("role = %s, want admin", claims.Role)
	}
}

func TestSessionsRejectsExpiredToken(t *testing.T) {
	issued := time.Now().Add(-2 * time.Hour)
	sessions := NewSessions("test-secret", time.Hour, func() time.Time { return issued })
	user := &domain.User{ID: uuid.New(), Role: domain.RoleCustomer}

	token, err := sessions.Generate(user)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if _, err := sessions.Validate(token); err == nil {
		t.Error("expired token should not validate")
	}
}

func TestSessionsRejectsWrongSecret(t *testing.T) {
	issuer := NewSessions("secret-a", time.Hour, time.Now)
	verifier := NewSessions("secret-b", time.Hour, time.Now)
	user := &domain.User{ID: uuid.New(), Role: domain.RoleCustomer}

	token, err := issuer.Generate(user)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if _, err := verifier.Validate(token); err == nil {
		t.Error("token signed with another secret should not validate")
	}
}

func TestGeneratePINAndHash(t *testing.T) {
	pin, hash, err := GeneratePINAndHash()
	if err != nil {
		t.Fatalf("GeneratePINAndHash failed: %v", err)
	}
	if len(pin) != 6 || strings.TrimLeft(pin, "0123456789") != "" {
		t.Errorf("pin %q is not 6 digits", pin)
	}
	if hash == pin || hash == "" {
		t.Error("hash must not expose the pin")
	}
}
