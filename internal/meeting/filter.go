// Package meeting contains the event selection and notification state
// machine: eligibility filtering, primary selection, status projection and
// the per-event milestone scheduler. Everything here is pure or owns its
// state exclusively; no I/O happens in this package except through the
// injected oracle and sink interfaces.
package meeting

import (
	"time"

	"nextcall/internal/model"
)

// Eligible returns the ordered sub-sequence of events that carry a video
// link and start within the alert window (or have already started). There is
// deliberately no upper bound on elapsed time since start: an in-progress
// meeting stays eligible until the scheduler's eviction cutoff handles it,
// so a stalled poll loop can never silently drop a running call.
//
// The filter is stable: input order (time-ascending) is preserved, and
// events with identical start times keep their relative feed order.
// Malformed events with no resolvable start are excluded here.
func Eligible(events []model.Event, now time.Time, window time.Duration) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if ev.Start.IsZero() {
			continue
		}
		if !ev.HasVideoLink() {
			continue
		}
		if ev.Start.Sub(now) > window {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Primary picks the single event that drives the visible countdown: the
// earliest-starting eligible event. The eligible sequence is time-ordered,
// so this is its first element; equal starts fall back to feed order, which
// is stable across polls and keeps the display from flickering. Returns
// false when the sequence is empty.
func Primary(eligible []model.Event) (model.Event, bool) {
	if len(eligible) == 0 {
		return model.Event{}, false
	}
	return eligible[0], true
}
