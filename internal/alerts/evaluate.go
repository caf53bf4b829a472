package alerts

import (
	"math"

	"github.com/bl8ckfz/market-alerts-backend/internal/market"
)

// Exponential smoothing weights for the volume-spike running average.
const (
	avgCarry  = 0.7
	avgUpdate = 0.3
)

// Result is the outcome of evaluating one alert against one snapshot.
// Observed is the metric value that satisfied the condition and is only
// meaningful when Fired is true. Mutated reports whether carry-state on the
// alert changed, which must be persisted whether or not the alert fired.
type Result struct {
	Fired    bool
	Mutated  bool
	Observed float64
}

// evaluate dispatches on the alert type and applies the matching condition
// check to the snapshot. The alert is mutated in place (carry-state only;
// the engine owns the trigger transition). An unknown type is treated as a
// disabled alert, never an error.
//
// sentiment is the side-channel scalar for sentiment alerts; nil means the
// value is unavailable this cycle.
func evaluate(a *Alert, snap *market.Snapshot, sentiment *float64) Result {
	switch a.Type {
	case TypePrice:
		return evaluatePrice(a, snap)
	case TypeVolume:
		return evaluateVolume(a, snap)
	case TypeChange:
		return evaluateChange(a, snap)
	case TypeSentiment:
		return evaluateSentiment(a, sentiment)
	default:
		return Result{}
	}
}

func evaluatePrice(a *Alert, snap *market.Snapshot) Result {
	q, ok := snap.Lookup(a.Symbol)
	if !ok {
		return Result{}
	}

	price := q.Price

	switch a.Condition {
	case CondAbove:
		return Result{Fired: price > a.Threshold, Observed: price}

	case CondBelow:
		return Result{Fired: price < a.Threshold, Observed: price}

	case CondCrossesAbove:
		// First observation seeds LastPrice with the current price, so a
		// crossing can only be detected from the second cycle on.
		prev := price
		if a.LastPrice != nil {
			prev = *a.LastPrice
		}
		a.LastPrice = &price
		return Result{
			Fired:    prev <= a.Threshold && price > a.Threshold,
			Mutated:  true,
			Observed: price,
		}

	case CondCrossesBelow:
		prev := price
		if a.LastPrice != nil {
			prev = *a.LastPrice
		}
		a.LastPrice = &price
		return Result{
			Fired:    prev >= a.Threshold && price < a.Threshold,
			Mutated:  true,
			Observed: price,
		}
	}

	return Result{}
}

// evaluateVolume fires when current 24h volume exceeds the running average
// scaled by the threshold, which is a percentage multiplier (200 means
// 200% of average), unlike the absolute thresholds of the other types.
// The running average is seeded to the current volume on first observation
// and re-smoothed only when the alert fires.
func evaluateVolume(a *Alert, snap *market.Snapshot) Result {
	q, ok := snap.Lookup(a.Symbol)
	if !ok {
		return Result{}
	}

	volume := q.Volume24h
	mutated := false
	if a.AvgVolume == nil {
		seed := volume
		a.AvgVolume = &seed
		mutated = true
	}

	avg := *a.AvgVolume
	if volume > avg*(a.Threshold/100) {
		smoothed := avg*avgCarry + volume*avgUpdate
		a.AvgVolume = &smoothed
		return Result{Fired: true, Mutated: true, Observed: volume}
	}

	return Result{Mutated: mutated}
}

func evaluateChange(a *Alert, snap *market.Snapshot) Result {
	q, ok := snap.Lookup(a.Symbol)
	if !ok {
		return Result{}
	}

	change := q.Change24h

	switch a.Condition {
	case CondIncrease:
		return Result{Fired: change > a.Threshold, Observed: change}
	case CondDecrease:
		return Result{Fired: change < -a.Threshold, Observed: change}
	case CondVolatility:
		return Result{Fired: math.Abs(change) > a.Threshold, Observed: change}
	}

	return Result{}
}

func evaluateSentiment(a *Alert, sentiment *float64) Result {
	if sentiment == nil {
		return Result{}
	}

	switch a.Condition {
	case CondAbove:
		return Result{Fired: *sentiment > a.Threshold, Observed: *sentiment}
	case CondBelow:
		return Result{Fired: *sentiment < a.Threshold, Observed: *sentiment}
	}

	return Result{}
}
