package shared

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

type recordingExec struct {
	sql  string
	args []any
}

func (r *recordingExec) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	r.sql = sql
	r.args = args
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func TestAuditLoggerRecord(t *testing.T) {
	db := &recordingExec{}
	logger := NewAuditLogger(db)

	err := logger.Record(context.Background(), AuditLog{ActorID: 3, Action: "post", Entity: "journal_entry", EntityID: "42"})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(db.args) != 6 {
		t.Fatalf("expected 6 args, got %d", len(db.args))
	}
	var meta map[string]any
	if err := json.Unmarshal(db.args[4].([]byte), &meta); err != nil || meta == nil {
		t.Fatalf("expected empty meta object, got %s (%v)", db.args[4], err)
	}
	if at := db.args[5].(*time.Time); at != nil {
		t.Fatalf("expected nil timestamp for zero At, got %v", at)
	}

	when := time.Date(2024, 6, 1, 10, 0, 0, 0, time.FixedZone("IST", 19800))
	err = logger.Record(context.Background(), AuditLog{Action: "reverse", Entity: "journal_entry", EntityID: "43", At: when, Meta: map[string]any{"reason": "duplicate"}})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if at := db.args[5].(*time.Time); at == nil || !at.Equal(when) || at.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp, got %v", at)
	}
}

func TestAuditLoggerRejectsIncompleteLog(t *testing.T) {
	logger := NewAuditLogger(&recordingExec{})
	if err := logger.Record(context.Background(), AuditLog{Action: "post"}); !errors.Is(err, ErrAuditIncomplete) {
		t.Fatalf("expected ErrAuditIncomplete, got %v", err)
	}
	var nilLogger *AuditLogger
	if err := nilLogger.Record(context.Background(), AuditLog{Action: "post", Entity: "e", EntityID: "1"}); err == nil {
		t.Fatalf("expected error from nil logger")
	}
}
