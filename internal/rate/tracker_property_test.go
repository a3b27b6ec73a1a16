package rate

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestObserveNeverNegative_PropertyBased asserts the central invariant of the
// tracker: whatever the counter and clock do between two observations, the
// derived rate is never negative.
func TestObserveNeverNegative_PropertyBased(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("rate is non-negative for any counter/clock movement", prop.ForAll(
		func(first, second int64, stepSeconds int64) bool {
			store := NewMemoryStore()
			tr := NewTracker(store, discardLogger())
			t0 := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

			tr.now = fixedClock(t0)
			if _, err := tr.Observe(first); err != nil {
				return false
			}

			// stepSeconds may be negative: the clock is allowed to jump back.
			tr.now = fixedClock(t0.Add(time.Duration(stepSeconds) * time.Second))
			rps, err := tr.Observe(second)
			if err != nil {
				return false
			}
			return rps >= 0
		},
		gen.Int64Range(0, 1<<40),
		gen.Int64Range(0, 1<<40),
		gen.Int64Range(-3600, 3600),
	))

	properties.TestingRun(t)
}

// TestObserveExactQuotient_PropertyBased asserts that under normal conditions
// (counter monotonic, clock advancing) the rate is exactly the counter delta
// over the elapsed seconds.
func TestObserveExactQuotient_PropertyBased(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("rate = delta/elapsed for monotonic counter and forward clock", prop.ForAll(
		func(base, delta int64, stepSeconds int64) bool {
			store := NewMemoryStore()
			tr := NewTracker(store, discardLogger())
			t0 := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

			tr.now = fixedClock(t0)
			if _, err := tr.Observe(base); err != nil {
				return false
			}

			tr.now = fixedClock(t0.Add(time.Duration(stepSeconds) * time.Second))
			rps, err := tr.Observe(base + delta)
			if err != nil {
				return false
			}
			// Timestamps round-trip through float64 Unix seconds, so allow a
			// small relative error.
			want := float64(delta) / float64(stepSeconds)
			return math.Abs(rps-want) <= 1e-6*math.Max(1, want)
		},
		gen.Int64Range(0, 1<<40),
		gen.Int64Range(0, 1<<20),
		gen.Int64Range(1, 86400),
	))

	properties.TestingRun(t)
}
