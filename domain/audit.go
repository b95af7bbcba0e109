package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditAccountCreated   AuditAction = "account_created"
	AuditAccountFrozen    AuditAction = "account_frozen"
	AuditAccountUnfrozen  AuditAction = "account_unfrozen"
	AuditAccountClosed    AuditAction = "account_closed"
	AuditBalanceCredited  AuditAction = "balance_credited"
	AuditBalanceDebited   AuditAction = "balance_debited"
	AuditTransferApproved AuditAction = "transfer_approved"
	AuditTransferRejected AuditAction = "transfer_rejected"
	AuditEmailSent        AuditAction = "email_sent"
)

// AuditLog is the non-repudiable evidence trail for a balance-affecting or
// status-affecting administrative act. Rows are append-only and never
// mutated. Details carries the payload specific to the action kind.
type AuditLog struct {
	ID           uuid.UUID       `json:"id"`
	AdminID      uuid.UUID       `json:"adminId"`
	TargetUserID *uuid.UUID      `json:"targetUserId,omitempty"`
	Action       AuditAction     `json:"action"`
	Details      json.RawMessage `json:"details"`
	IPAddress    string          `json:"ipAddress,omitempty"`
	UserAgent    string          `json:"userAgent,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}
