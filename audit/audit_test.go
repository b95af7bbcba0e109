package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"bank-backoffice/domain"
	"bank-backoffice/money"
)

type captureAppender struct {
	entries []*domain.AuditLog
	err     error
}

func (c *captureAppender) AppendAuditLog(_ context.Context, entry *domain.AuditLog) error {
	if c.err != nil {
		return c.err
	}
	c.entries = append(c.entries, entry)
	return nil
}

func TestRecord(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	recorder := NewRecorder(func() time.Time { return at })
	sink := &captureAppender{}

	target := uuid.New()
	actor := Actor{
		AdminID:      uuid.New(),
		TargetUserID: &target,
		IPAddress:    "192.0.2.7",
		UserAgent:    "curl/8.0",
	}
	details := BalanceCredited{
		AccountID:   uuid.New(),
		Amount:      money.New(25, 0),
		Description: "Promo credit",
		Balance:     money.New(125, 0),
	}

	if err := recorder.Record(context.Background(), sink, actor, details); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if len(sink.entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(sink.entries))
	}

	entry := sink.entries[0]
	if entry.Action != domain.AuditBalanceCredited {
		t.Errorf("action = %s, want %s", entry.Action, domain.AuditBalanceCredited)
	}
	if entry.AdminID != actor.AdminID || entry.TargetUserID == nil || *entry.TargetUserID != target {
		t.Error("actor identity not carried onto the entry")
	}
	if entry.IPAddress != actor.IPAddress || entry.UserAgent != actor.UserAgent {
		t.Error("request provenance not carried onto the entry")
	}
	if !entry.CreatedAt.Equal(at) {
		t.Errorf("created at = %s, want %s", entry.CreatedAt, at)
	}

	var decoded BalanceCredited
	if err := json.Unmarshal(entry.Details, &decoded); err != nil {
		t.Fatalf("details do not decode: %v", err)
	}
	if decoded.AccountID != details.AccountID || !decoded.Amount.Equal(details.Amount) {
		t.Error("details payload does not match what was recorded")
	}
}

func TestRecordAppendFailure(t *testing.T) {
	recorder := NewRecorder(time.Now)
	sink := &captureAppender{err: errors.New("append refused")}

	err := recorder.Record(context.Background(), sink, Actor{AdminID: uuid.New()}, EmailSent{
		Subject:    "Transfer completed",
		Recipients: 1,
	})
	if err == nil {
		t.Fatal("a refused append must fail the record")
	}
}
