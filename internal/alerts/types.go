package alerts

import (
	"encoding/json"
	"fmt"
	"time"
)

// Type identifies which metric an alert watches.
type Type string

const (
	TypePrice     Type = "price"
	TypeVolume    Type = "volume"
	TypeChange    Type = "change"
	TypeSentiment Type = "sentiment"
)

// Condition is the comparator applied to the watched metric. The valid set
// depends on the alert type; an unrecognized condition is accepted at
// creation and simply never fires (see CreateRequest.Validate).
type Condition string

const (
	CondAbove        Condition = "above"
	CondBelow        Condition = "below"
	CondCrossesAbove Condition = "crosses_above"
	CondCrossesBelow Condition = "crosses_below"
	CondIncrease     Condition = "increase"
	CondDecrease     Condition = "decrease"
	CondVolatility   Condition = "volatility"
	// Volume alerts carry no explicit comparator; the spike check is implied.
	CondSpike Condition = "spike"
)

// Alert is a user-registered condition over the market feed. Once Triggered
// flips true the alert is permanently excluded from evaluation; it never
// re-arms.
//
// LastPrice and AvgVolume are evaluator-private carry-state: LastPrice
// remembers the previous observation for edge-crossing detection, AvgVolume
// is the smoothed running average for volume-spike alerts. Both are nil
// until first observed and are persisted with the alert so crossing logic
// survives restarts.
type Alert struct {
	ID          string     `json:"id"`
	Type        Type       `json:"type"`
	Symbol      string     `json:"symbol,omitempty"`
	Condition   Condition  `json:"condition"`
	Threshold   float64    `json:"value"`
	Active      bool       `json:"active"`
	Triggered   bool       `json:"triggered"`
	TriggeredAt *time.Time `json:"triggered_at,omitempty"`
	CreatedAt   time.Time  `json:"created"`

	LastPrice *float64 `json:"last_price,omitempty"`
	AvgVolume *float64 `json:"avg_volume,omitempty"`
}

// Clone returns a deep copy. Evaluators mutate clones so an aborted cycle
// never leaks partial state back into the store's view.
func (a *Alert) Clone() *Alert {
	c := *a
	if a.TriggeredAt != nil {
		t := *a.TriggeredAt
		c.TriggeredAt = &t
	}
	if a.LastPrice != nil {
		v := *a.LastPrice
		c.LastPrice = &v
	}
	if a.AvgVolume != nil {
		v := *a.AvgVolume
		c.AvgVolume = &v
	}
	return &c
}

// AuditEntry is the immutable record written once per triggering event.
// Entries outlive the alerts they describe.
type AuditEntry struct {
	Timestamp      time.Time `json:"timestamp"`
	AlertID        string    `json:"alert_id"`
	Symbol         string    `json:"symbol,omitempty"`
	Type           Type      `json:"type"`
	Condition      Condition `json:"condition"`
	Value          float64   `json:"value"`
	TriggeredValue float64   `json:"triggered_value"`
}

// CreateRequest is the producer-supplied alert creation payload. Value is
// kept as a json.Number so a non-numeric threshold is rejected at creation
// rather than surfacing as a per-cycle evaluation error.
type CreateRequest struct {
	Type      Type        `json:"type"`
	Symbol    string      `json:"symbol,omitempty"`
	Condition Condition   `json:"condition"`
	Value     json.Number `json:"value"`
}

// ValidationError reports a creation payload the store refuses to accept.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid alert %s: %s", e.Field, e.Reason)
}

// Validate checks the creation-time rules: the type must be known and the
// threshold numeric. Conditions are deliberately not validated against the
// type — a mismatched condition is accepted and evaluates to not-fired
// every cycle, which keeps creation tolerant of forward-compatible payloads.
func (r *CreateRequest) Validate() (float64, error) {
	switch r.Type {
	case TypePrice, TypeVolume, TypeChange, TypeSentiment:
	default:
		return 0, &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown alert type %q", r.Type)}
	}

	threshold, err := r.Value.Float64()
	if err != nil {
		return 0, &ValidationError{Field: "value", Reason: fmt.Sprintf("threshold %q is not numeric", r.Value.String())}
	}

	return threshold, nil
}
