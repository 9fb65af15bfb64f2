package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/vladislavdragonenkov/billing/internal/domain"
)

const (
	defaultConnTimeout     = 5 * time.Second
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 25
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute

	opTimeout = 5 * time.Second
)

// PostgresEventLog — адаптер к event store, хранящему события в PostgreSQL.
// Сам event store остаётся внешним коллаборатором: сервис только дописывает
// события в его append-only таблицу и никогда их не читает.
type PostgresEventLog struct {
	db *sql.DB
}

// OpenPostgres открывает подключение к event store и проверяет его доступность.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresEventLog, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open event store connection: %w", err)
	}
	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping event store: %w", err)
	}

	return &PostgresEventLog{db: db}, nil
}

// NewPostgresEventLog оборачивает готовое подключение (для тестов).
func NewPostgresEventLog(db *sql.DB) *PostgresEventLog {
	return &PostgresEventLog{db: db}
}

// Publish дописывает событие в таблицу events. Порядок внутри потока
// обеспечивает bigserial position на стороне хранилища.
func (l *PostgresEventLog) Publish(ctx context.Context, stream string, event domain.Event) error {
	if l == nil || l.db == nil {
		return domain.NewEventStoreError(fmt.Errorf("postgres event log is not initialized"))
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return domain.NewEventStoreError(fmt.Errorf("marshal event payload: %w", err))
	}
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return domain.NewEventStoreError(fmt.Errorf("marshal event metadata: %w", err))
	}

	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err = l.db.ExecContext(opCtx, `
		INSERT INTO events (
			event_id, stream, event_type, payload, metadata, created_at
		) VALUES ($1,$2,$3,$4,$5,$6)
	`,
		event.ID, stream, string(event.Type), payload, metadata, event.CreatedAt,
	)
	if err != nil {
		return domain.NewEventStoreError(fmt.Errorf("append event: %w", err))
	}

	return nil
}

// Ping проверяет доступность event store (для health checks).
func (l *PostgresEventLog) Ping(ctx context.Context) error {
	if l == nil || l.db == nil {
		return fmt.Errorf("postgres event log is not initialized")
	}
	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	return l.db.PingContext(pingCtx)
}

// Close закрывает подключение к event store.
func (l *PostgresEventLog) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

var _ domain.EventLog = (*PostgresEventLog)(nil)
