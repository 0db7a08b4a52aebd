// Package poll drives the core pipeline on a fixed cadence and publishes
// the resulting display state for the presentation layer.
package poll

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "nextcall/internal/log"
	"nextcall/internal/meeting"
	"nextcall/internal/model"
	"nextcall/internal/notify"
)

// EventSource produces a freshly fetched, time-ordered event sequence on
// demand. It may be slow (network); a failure must not corrupt core state.
type EventSource interface {
	Fetch(ctx context.Context, now time.Time) ([]model.Event, error)
}

// Snapshot is the per-cycle state the presentation layer consumes.
type Snapshot struct {
	Status   model.Status
	Primary  *model.Event
	Eligible []model.Event

	// UpdatedAt is when the last cycle committed; FetchedAt when the event
	// set was last refreshed from the network. Stale means the cycle ran on
	// the previous good set because the fetch failed.
	UpdatedAt time.Time
	FetchedAt time.Time
	Stale     bool

	Tracked int
}

// Driver runs fetch -> filter -> select -> project -> schedule once per
// cycle. Cycles are mutually exclusive: a cycle's scheduler mutation fully
// commits before the next one starts, which the cron wrapper plus the cycle
// mutex guarantee even if a fetch overruns the cadence.
type Driver struct {
	source EventSource
	sched  *meeting.Scheduler
	window time.Duration

	// Now is the clock; overridable in tests.
	Now func() time.Time

	cycleMu  sync.Mutex
	lastGood []model.Event
	haveGood bool
	lastLog  string

	stateMu sync.RWMutex
	snap    Snapshot

	cron *cron.Cron
}

// NewDriver wires an EventSource and a Scheduler into a poll driver.
// window is the eligibility lead window (how soon before start an event
// becomes relevant).
func NewDriver(source EventSource, sched *meeting.Scheduler, window time.Duration) *Driver {
	return &Driver{
		source: source,
		sched:  sched,
		window: window,
		Now:    time.Now,
	}
}

// Start schedules RunCycle under the given cron spec (e.g. "@every 10s")
// and runs until ctx is canceled. The cadence must stay under the smallest
// inter-milestone gap (2 minutes) for reminder ordering to hold.
func (d *Driver) Start(ctx context.Context, spec string) error {
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLogger{}),
	))
	if _, err := c.AddFunc(spec, func() { d.RunCycle(ctx) }); err != nil {
		return err
	}
	d.cron = c

	// First cycle immediately; the cron spec only fires after one period.
	go d.RunCycle(ctx)

	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return nil
}

// RunCycle executes one full pipeline pass. On fetch failure it re-uses the
// last good event set (display degrades to stale data); if there has never
// been a good fetch it short-circuits before touching scheduler state.
func (d *Driver) RunCycle(ctx context.Context) {
	d.cycleMu.Lock()
	defer d.cycleMu.Unlock()

	now := d.Now()

	events, err := d.source.Fetch(ctx, now)
	stale := false
	if err != nil {
		appLog.Error("event fetch failed", err)
		if !d.haveGood {
			d.stateMu.Lock()
			d.snap.UpdatedAt = now
			d.snap.Stale = true
			d.stateMu.Unlock()
			return
		}
		events = d.lastGood
		stale = true
	} else {
		d.lastGood = events
		d.haveGood = true
	}

	eligible := meeting.Eligible(events, now, d.window)

	var primary *model.Event
	if p, ok := meeting.Primary(eligible); ok {
		primary = &p
	}
	status := meeting.Project(primary, now)

	d.logUpcoming(primary, now)

	d.sched.Step(ctx, now, eligible)

	d.stateMu.Lock()
	fetchedAt := d.snap.FetchedAt
	if !stale {
		fetchedAt = now
	}
	d.snap = Snapshot{
		Status:    status,
		Primary:   primary,
		Eligible:  eligible,
		UpdatedAt: now,
		FetchedAt: fetchedAt,
		Stale:     stale,
		Tracked:   d.sched.TrackedCount(),
	}
	d.stateMu.Unlock()
}

// Snapshot returns the latest committed cycle state.
func (d *Driver) Snapshot() Snapshot {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()

	snap := d.snap
	snap.Eligible = append([]model.Event(nil), d.snap.Eligible...)
	return snap
}

// logUpcoming emits a line about the next call, de-duplicated so a 10s
// cadence does not spam the log with identical lines.
func (d *Driver) logUpcoming(primary *model.Event, now time.Time) {
	if primary == nil || !primary.Start.After(now) {
		d.lastLog = ""
		return
	}
	line := primary.Key + "/" + notify.DisplayInterval(int64(primary.Start.Sub(now).Seconds()))
	if line == d.lastLog {
		return
	}
	d.lastLog = line
	appLog.Info("next call",
		"summary", primary.Summary,
		"start", primary.Start.Format(time.RFC3339),
		"in", notify.DisplayInterval(int64(primary.Start.Sub(now).Seconds())),
	)
}

// cronLogger adapts the app logger to the cron.Logger interface so skipped
// overlapping cycles show up in our log format.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...interface{}) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...interface{}) {
	appLog.Error("cron: "+msg, err, kv...)
}
