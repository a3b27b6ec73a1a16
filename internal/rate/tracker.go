// Package rate derives a per-second rate from a cumulative counter using a
// prior reading persisted across invocations.
package rate

import (
	"fmt"
	"log/slog"
	"time"

	"hostprobe-agent/internal/model"
)

type Tracker struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewTracker(store Store, logger *slog.Logger) *Tracker {
	return &Tracker{store: store, logger: logger, now: time.Now}
}

// Observe converts the current counter reading into a rate against the
// persisted prior reading, then persists {current, now} unconditionally.
//
// Degrade paths, none of which fail the call:
//   - no prior state: baseline is created, rate is 0.0;
//   - unreadable state: treated as a baseline equal to the current reading,
//     so this observation also yields 0.0;
//   - clock went backwards or did not advance: elapsed clamps to 1.0s;
//   - counter went backwards (upstream restart): diff clamps to 0.
//
// Only a failure to persist the new state is returned as an error.
func (t *Tracker) Observe(current int64) (float64, error) {
	now := float64(t.now().UnixNano()) / float64(time.Second)

	st, ok, err := t.store.Load()
	if err != nil {
		t.logger.Warn("rate state unreadable, re-baselining", "error", err)
		st = model.RateState{LastCounter: current, LastTime: now}
		ok = true
	}
	if !ok {
		if err := t.store.Save(model.RateState{LastCounter: current, LastTime: now}); err != nil {
			return 0, fmt.Errorf("persist rate state: %w", err)
		}
		return 0, nil
	}

	// Partially written state decodes with a zero time; treat it as "just
	// now" so the elapsed clamp below applies instead of a huge window.
	if st.LastTime <= 0 {
		st.LastTime = now
	}
	elapsed := now - st.LastTime
	if elapsed <= 0 {
		elapsed = 1.0
	}
	diff := current - st.LastCounter
	if diff < 0 {
		diff = 0
	}
	rps := float64(diff) / elapsed

	if err := t.store.Save(model.RateState{LastCounter: current, LastTime: now}); err != nil {
		return rps, fmt.Errorf("persist rate state: %w", err)
	}
	return rps, nil
}
