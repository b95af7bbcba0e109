package auth

import (
	"crypto/rand"
	"fmt"
	"net"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"bank-backoffice/audit"
)

// Actor builds the audit actor for the authenticated request, capturing
// request provenance for the evidence trail.
func Actor(r *http.Request) (audit.Actor, error) {
	id, err := UserIDFromContext(r)
	if err != nil {
		return audit.Actor{}, err
	}
	ip := r.RemoteAddr
	if host, _, splitErr := net.SplitHostPort(r.RemoteAddr); splitErr == nil {
		ip = host
	}
	return audit.Actor{
		AdminID:   id,
		IPAddress: ip,
		UserAgent: r.UserAgent(),
	}, nil
}

// GeneratePINAndHash returns a fresh 6-digit PIN and its bcrypt hash. The
// plain PIN is shown to the user exactly once; only the hash is stored.
func GeneratePINAndHash() (string, string, error) {
	pin, err := generatePIN(6)
	if err != nil {
		return "", "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}
	return pin, string(hash), nil
}

func generatePIN(n int) (string, error) {
	const digits = "0123456789"
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("could not generate random bytes: %w", err)
	}
	for i := range b {
		b[i] = digits[int(b[i])%len(digits)]
	}
	return string(b), nil
}
