package alerts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bl8ckfz/market-alerts-backend/internal/market"
)

// SentimentSource supplies the side-channel sentiment scalar (0-100) read
// independently of the main snapshot. ok=false means the value is
// unavailable this cycle; sentiment alerts then simply do not fire.
type SentimentSource interface {
	OverallSentiment(ctx context.Context) (value float64, ok bool)
}

// Engine runs evaluation cycles: one pass over all active alerts against
// one snapshot. Cycles are serialized; concurrent RunCycle calls queue on
// an engine-wide mutex because a cycle's batch write touches the full
// alert set atomically.
type Engine struct {
	store     Store
	audit     AuditLog
	sentiment SentimentSource
	logger    zerolog.Logger

	mu  sync.Mutex
	now func() time.Time
}

// NewEngine creates an evaluation engine. sentiment may be nil, in which
// case sentiment alerts never fire.
func NewEngine(store Store, audit AuditLog, sentiment SentimentSource, logger zerolog.Logger) *Engine {
	return &Engine{
		store:     store,
		audit:     audit,
		sentiment: sentiment,
		logger:    logger.With().Str("component", "alert-engine").Logger(),
		now:       time.Now,
	}
}

// SetClock overrides the trigger timestamp source. Test hook.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// RunCycle evaluates every active, untriggered alert against the snapshot
// and returns the alerts that fired, in evaluation order. Carry-state
// mutations are persisted even for alerts that did not fire. The batch
// write is all-or-nothing: if it fails no alert is marked triggered and
// the error is returned so the caller can retry on the next snapshot.
//
// Notification dispatch is the caller's responsibility; by the time
// RunCycle returns, every fired alert is already durable.
func (e *Engine) RunCycle(ctx context.Context, snap *market.Snapshot) ([]*Alert, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	active, err := e.store.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active alerts: %w", err)
	}
	if len(active) == 0 {
		return nil, nil
	}

	var sentiment *float64
	if e.sentiment != nil {
		if v, ok := e.sentiment.OverallSentiment(ctx); ok {
			sentiment = &v
		}
	}

	now := e.now().UTC()

	var (
		dirty   []*Alert
		fired   []*Alert
		entries []AuditEntry
	)

	for _, stored := range active {
		a := stored.Clone()
		res := evaluate(a, snap, sentiment)

		if res.Fired {
			a.Triggered = true
			triggeredAt := now
			a.TriggeredAt = &triggeredAt

			fired = append(fired, a)
			entries = append(entries, AuditEntry{
				Timestamp:      now,
				AlertID:        a.ID,
				Symbol:         a.Symbol,
				Type:           a.Type,
				Condition:      a.Condition,
				Value:          a.Threshold,
				TriggeredValue: res.Observed,
			})
			dirty = append(dirty, a)

			e.logger.Info().
				Str("alert_id", a.ID).
				Str("symbol", a.Symbol).
				Str("type", string(a.Type)).
				Str("condition", string(a.Condition)).
				Float64("threshold", a.Threshold).
				Float64("observed", res.Observed).
				Msg("alert triggered")
		} else if res.Mutated {
			dirty = append(dirty, a)
		}
	}

	if len(dirty) > 0 {
		if err := e.store.UpdateBatch(ctx, dirty); err != nil {
			// Nothing committed; the same alerts stay eligible and the
			// cycle is effectively retried on the next snapshot.
			return nil, fmt.Errorf("persist cycle mutations: %w", err)
		}
	}

	if len(entries) > 0 {
		if err := e.audit.Append(ctx, entries); err != nil {
			// The trigger transitions are already durable; losing audit
			// entries is logged, not escalated.
			e.logger.Error().Err(err).Int("count", len(entries)).Msg("failed to append audit entries")
		}
	}

	e.logger.Debug().
		Int("evaluated", len(active)).
		Int("mutated", len(dirty)).
		Int("fired", len(fired)).
		Msg("evaluation cycle complete")

	return fired, nil
}
