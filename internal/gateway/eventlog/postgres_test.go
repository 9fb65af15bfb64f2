package eventlog

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/vladislavdragonenkov/billing/internal/domain"
)

func TestPostgresEventLog_Publish(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("create sqlmock: %v", err)
	}
	defer db.Close()

	billing := domain.NewBilling("order-1", 100)
	event := domain.NewEvent(domain.EventTypeEntityCreated, billing)

	mock.ExpectExec("INSERT INTO events").
		WithArgs(event.ID, domain.StreamBilling, string(domain.EventTypeEntityCreated),
			sqlmock.AnyArg(), sqlmock.AnyArg(), event.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	eventLog := NewPostgresEventLog(db)
	if err := eventLog.Publish(context.Background(), domain.StreamBilling, event); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresEventLog_PublishFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO events").WillReturnError(errors.New("connection reset"))

	eventLog := NewPostgresEventLog(db)
	event := domain.NewEvent(domain.EventTypeEntityUpdated, domain.NewBilling("order-1", 100))

	publishErr := eventLog.Publish(context.Background(), domain.StreamBilling, event)
	if publishErr == nil {
		t.Fatal("expected publish failure")
	}
	if !domain.IsUpstream(publishErr) {
		t.Errorf("expected event-store error, got %v", publishErr)
	}
}

func TestPostgresEventLog_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectPing()

	eventLog := NewPostgresEventLog(db)
	if err := eventLog.Ping(context.Background()); err != nil {
		t.Errorf("expected healthy ping, got %v", err)
	}
}

func TestPostgresEventLog_NotInitialized(t *testing.T) {
	var eventLog *PostgresEventLog
	if err := eventLog.Publish(context.Background(), domain.StreamBilling, domain.Event{}); err == nil {
		t.Error("expected error from uninitialized event log")
	}
	if err := eventLog.Ping(context.Background()); err == nil {
		t.Error("expected ping error from uninitialized event log")
	}
	if err := eventLog.Close(); err != nil {
		t.Errorf("close on uninitialized event log must be a no-op, got %v", err)
	}
}
