package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// PostgresStore is the durable Store. Every mutating call commits a
// transaction before returning; the whole-set batch write of an evaluation
// cycle is a single transaction so the next cycle never observes a partial
// commit.
//
// Insertion order is materialized by a bigserial position column rather
// than created_at, so order is stable even for alerts created in the same
// microsecond.
type PostgresStore struct {
	db     *pgxpool.Pool
	logger zerolog.Logger
	now    func() time.Time
}

// NewPostgresStore creates a store backed by the given pool. The schema is
// created by cmd/migrate.
func NewPostgresStore(db *pgxpool.Pool, logger zerolog.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: logger.With().Str("component", "alert-store").Logger(),
		now:    time.Now,
	}
}

const alertColumns = `id, type, symbol, condition, threshold, active, triggered, triggered_at, created_at, last_price, avg_volume`

func (s *PostgresStore) Create(ctx context.Context, req CreateRequest) (*Alert, error) {
	threshold, err := req.Validate()
	if err != nil {
		return nil, err
	}

	alert := &Alert{
		ID:        uuid.New().String(),
		Type:      req.Type,
		Symbol:    req.Symbol,
		Condition: req.Condition,
		Threshold: threshold,
		Active:    true,
		CreatedAt: s.now().UTC(),
	}

	query := `
		INSERT INTO alerts (id, type, symbol, condition, threshold, active, triggered, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := s.db.Exec(ctx, query,
		alert.ID, alert.Type, alert.Symbol, alert.Condition,
		alert.Threshold, alert.Active, alert.Triggered, alert.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("insert alert: %w", err)
	}

	s.logger.Debug().Str("alert_id", alert.ID).Str("type", string(alert.Type)).Msg("alert created")
	return alert, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*Alert, error) {
	return s.query(ctx, fmt.Sprintf(`SELECT %s FROM alerts ORDER BY position`, alertColumns))
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]*Alert, error) {
	return s.query(ctx, fmt.Sprintf(`SELECT %s FROM alerts WHERE active AND NOT triggered ORDER BY position`, alertColumns))
}

func (s *PostgresStore) query(ctx context.Context, sql string, args ...any) ([]*Alert, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var out []*Alert
	for rows.Next() {
		var a Alert
		if err := rows.Scan(
			&a.ID, &a.Type, &a.Symbol, &a.Condition, &a.Threshold,
			&a.Active, &a.Triggered, &a.TriggeredAt, &a.CreatedAt,
			&a.LastPrice, &a.AvgVolume,
		); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

const updateAlertQuery = `
	UPDATE alerts SET
		symbol = $2,
		condition = $3,
		threshold = $4,
		active = $5,
		triggered = $6,
		triggered_at = $7,
		last_price = $8,
		avg_volume = $9
	WHERE id = $1
`

func (s *PostgresStore) Update(ctx context.Context, alert *Alert) error {
	tag, err := s.db.Exec(ctx, updateAlertQuery, updateArgs(alert)...)
	if err != nil {
		return fmt.Errorf("update alert %s: %w", alert.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update: alert %s not found", alert.ID)
	}
	return nil
}

func (s *PostgresStore) UpdateBatch(ctx context.Context, alerts []*Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch update: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, a := range alerts {
		batch.Queue(updateAlertQuery, updateArgs(a)...)
	}

	results := tx.SendBatch(ctx, batch)
	for _, a := range alerts {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			return fmt.Errorf("batch update alert %s: %w", a.ID, err)
		}
		if tag.RowsAffected() == 0 {
			results.Close()
			return fmt.Errorf("batch update: alert %s not found", a.ID)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit batch update: %w", err)
	}

	s.logger.Debug().Int("count", len(alerts)).Msg("persisted alert batch")
	return nil
}

func updateArgs(a *Alert) []any {
	return []any{
		a.ID, a.Symbol, a.Condition, a.Threshold,
		a.Active, a.Triggered, a.TriggeredAt,
		a.LastPrice, a.AvgVolume,
	}
}

func (s *PostgresStore) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM alerts WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete alert %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM alerts`); err != nil {
		return fmt.Errorf("clear alerts: %w", err)
	}
	return nil
}

// PostgresAuditLog persists triggering events to the alert_log table and
// trims it to the most recent auditCapacity rows after each append batch.
type PostgresAuditLog struct {
	db     *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresAuditLog creates an audit log backed by the given pool.
func NewPostgresAuditLog(db *pgxpool.Pool, logger zerolog.Logger) *PostgresAuditLog {
	return &PostgresAuditLog{
		db:     db,
		logger: logger.With().Str("component", "audit-log").Logger(),
	}
}

func (l *PostgresAuditLog) Append(ctx context.Context, entries []AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := l.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin audit append: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`
			INSERT INTO alert_log (time, alert_id, symbol, type, condition, value, triggered_value)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			e.Timestamp, e.AlertID, e.Symbol, e.Type, e.Condition, e.Value, e.TriggeredValue,
		)
	}
	// FIFO truncation: keep only the newest auditCapacity rows.
	batch.Queue(`
		DELETE FROM alert_log WHERE position NOT IN (
			SELECT position FROM alert_log ORDER BY position DESC LIMIT $1
		)`, auditCapacity)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("append audit entries: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit audit append: %w", err)
	}

	l.logger.Debug().Int("count", len(entries)).Msg("appended audit entries")
	return nil
}

func (l *PostgresAuditLog) Recent(ctx context.Context, n int) ([]AuditEntry, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := l.db.Query(ctx, `
		SELECT time, alert_id, symbol, type, condition, value, triggered_value
		FROM (
			SELECT position, time, alert_id, symbol, type, condition, value, triggered_value
			FROM alert_log ORDER BY position DESC LIMIT $1
		) latest
		ORDER BY position ASC`, n)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.Timestamp, &e.AlertID, &e.Symbol, &e.Type, &e.Condition, &e.Value, &e.TriggeredValue); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
