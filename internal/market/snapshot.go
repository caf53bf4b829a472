package market

import (
	"strings"
	"time"
)

// Quote holds the observed metrics for a single symbol in one snapshot.
// Missing fields decode to zero; a symbol that is absent from the snapshot
// entirely is the only "no data" case for alert evaluation.
type Quote struct {
	Price     float64 `json:"price"`
	Volume24h float64 `json:"volume24h"`
	Change24h float64 `json:"change24h"`
}

// Snapshot is one immutable observation of the market, produced once per
// refresh cycle by the upstream data pipeline and published over NATS.
type Snapshot struct {
	Timestamp time.Time        `json:"timestamp"`
	Quotes    map[string]Quote `json:"quotes"`
}

// Lookup finds a symbol's quote by case-insensitive match. The common case
// is an exact uppercase hit; the fold scan covers feeds that publish
// mixed-case keys.
func (s *Snapshot) Lookup(symbol string) (Quote, bool) {
	if s == nil || len(s.Quotes) == 0 {
		return Quote{}, false
	}

	if q, ok := s.Quotes[strings.ToUpper(symbol)]; ok {
		return q, true
	}

	for k, q := range s.Quotes {
		if strings.EqualFold(k, symbol) {
			return q, true
		}
	}

	return Quote{}, false
}

// Symbols returns the symbols present in the snapshot, unordered.
func (s *Snapshot) Symbols() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.Quotes))
	for k := range s.Quotes {
		out = append(out, k)
	}
	return out
}
