package meeting

import (
	"context"
	"time"

	appLog "nextcall/internal/log"
	"nextcall/internal/model"
)

// Oracle is the deferral check queried before each due delivery. A busy
// oracle postpones a notification to the next cycle; it can never cancel
// one. Cheap, synchronous, side-effect free.
type Oracle interface {
	Busy() bool
}

// Sink delivers a notification for one (event, milestone) pair. Idempotency
// is the scheduler's responsibility, not the sink's: the sink may be called
// again for the same pair only if the previous call returned an error or was
// never made.
type Sink interface {
	Deliver(ctx context.Context, ev model.Event, m model.Milestone) error
}

// record is the per-event-identity notification state. Fired flags grow
// monotonically and never reset while the record exists.
type record struct {
	event         model.Event
	firstObserved time.Time
	fired         map[model.Milestone]bool
}

func (r *record) allFired() bool {
	for _, m := range model.Milestones {
		if !r.fired[m] {
			return false
		}
	}
	return true
}

// ageBasis is the instant record age is measured from: the later of first
// observation and the event's start. Measuring from the same instant as the
// recreation guard keeps a continuously-eligible event from being evicted
// while a fresh record could still be admitted, which would re-fire every
// milestone.
func (r *record) ageBasis() time.Time {
	if r.event.Start.After(r.firstObserved) {
		return r.event.Start
	}
	return r.firstObserved
}

// Scheduler tracks milestone state per event identity and emits at most one
// notification per (identity, milestone), gated by the deferral oracle.
//
// The records map is owned exclusively by the Scheduler; callers only ever
// invoke Step. Step is not safe for concurrent use — the poll driver
// guarantees mutual exclusion between cycles.
type Scheduler struct {
	oracle Oracle
	sink   Sink

	// maxTrackedAge bounds record retention for events that stay eligible
	// indefinitely. Past this age (see ageBasis) the record is evicted and
	// never recreated for the same (still running) event.
	maxTrackedAge time.Duration

	records map[string]*record
}

// NewScheduler creates a Scheduler. maxTrackedAge <= 0 disables the age
// cutoff (records then live exactly as long as their event stays eligible).
func NewScheduler(oracle Oracle, sink Sink, maxTrackedAge time.Duration) *Scheduler {
	return &Scheduler{
		oracle:        oracle,
		sink:          sink,
		maxTrackedAge: maxTrackedAge,
		records:       make(map[string]*record),
	}
}

// StepResult summarizes one scheduler cycle.
type StepResult struct {
	Delivered []model.Milestone
	Deferred  int
	Failed    int
	Evicted   int
}

// Step evaluates every eligible event against the three milestones, fires
// whatever is due and unblocked, and evicts records that are no longer
// relevant. Events beyond the age cutoff never get a record, so a meeting
// that stays eligible forever goes quiet instead of re-firing after each
// eviction.
func (s *Scheduler) Step(ctx context.Context, now time.Time, eligible []model.Event) StepResult {
	var res StepResult

	seen := make(map[string]bool, len(eligible))

	for _, ev := range eligible {
		seen[ev.Key] = true

		rec, ok := s.records[ev.Key]
		if !ok {
			if s.maxTrackedAge > 0 && now.Sub(ev.Start) > s.maxTrackedAge {
				// Too stale to start tracking.
				continue
			}
			rec = &record{
				event:         ev,
				firstObserved: now,
				fired:         make(map[model.Milestone]bool, len(model.Milestones)),
			}
			s.records[ev.Key] = rec
			appLog.Debug("tracking event", "key", ev.Key, "summary", ev.Summary, "start", ev.Start)
		}
		// Keep the stored event fresh; the feed may amend the link or title.
		rec.event = ev

		s.fireDue(ctx, now, rec, &res)
	}

	// Eviction pass: drop records whose event left the eligible set, and
	// records past the age cutoff.
	for key, rec := range s.records {
		if seen[key] && (s.maxTrackedAge <= 0 || now.Sub(rec.ageBasis()) <= s.maxTrackedAge) {
			continue
		}
		delete(s.records, key)
		res.Evicted++
		appLog.Debug("evicting event record", "key", key, "all_fired", rec.allFired())
	}

	return res
}

// fireDue walks the milestones of one record in offset order. The loop
// breaks on the first deferred or failed milestone so a later milestone can
// never overtake an earlier one, even if several became due in the same
// cycle.
func (s *Scheduler) fireDue(ctx context.Context, now time.Time, rec *record, res *StepResult) {
	for _, m := range model.Milestones {
		if rec.fired[m] {
			continue
		}
		due := rec.event.Start.Add(m.Offset())
		if now.Before(due) {
			// Not yet due; later milestones cannot be due either.
			return
		}

		if s.oracle != nil && s.oracle.Busy() {
			appLog.Info("notification deferred, device busy",
				"key", rec.event.Key, "milestone", m.String())
			res.Deferred++
			return
		}

		if err := s.sink.Deliver(ctx, rec.event, m); err != nil {
			// Failed delivery stays pending, identically to the busy path:
			// retried next cycle, never double-fired, never dropped.
			appLog.Error("notification delivery failed", err,
				"key", rec.event.Key, "milestone", m.String())
			res.Failed++
			return
		}

		rec.fired[m] = true
		res.Delivered = append(res.Delivered, m)
		appLog.Info("notification delivered",
			"key", rec.event.Key, "summary", rec.event.Summary, "milestone", m.String())
	}
}

// TrackedCount reports how many event records are currently held. Exposed
// for the status API and tests.
func (s *Scheduler) TrackedCount() int {
	return len(s.records)
}
