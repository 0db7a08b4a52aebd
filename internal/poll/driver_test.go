package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"nextcall/internal/meeting"
	"nextcall/internal/model"
)

var baseTime = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

// fakeSource returns a scripted event set or error per call.
type fakeSource struct {
	events []model.Event
	err    error
	calls  int
}

func (f *fakeSource) Fetch(_ context.Context, _ time.Time) ([]model.Event, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

type freeOracle struct{}

func (freeOracle) Busy() bool { return false }

// countingSink counts deliveries.
type countingSink struct {
	delivered int
}

func (s *countingSink) Deliver(_ context.Context, _ model.Event, _ model.Milestone) error {
	s.delivered++
	return nil
}

func testEvent(key string, start time.Time) model.Event {
	return model.Event{
		Key:       key,
		UID:       key,
		Summary:   "call " + key,
		VideoLink: "https://zoom.us/j/" + key,
		Start:     start,
		End:       start.Add(30 * time.Minute),
	}
}

func newTestDriver(source EventSource, sink meeting.Sink) *Driver {
	sched := meeting.NewScheduler(freeOracle{}, sink, 6*time.Hour)
	d := NewDriver(source, sched, 10*time.Minute)
	d.Now = func() time.Time { return baseTime }
	return d
}

func TestRunCycleProjectsAndSchedules(t *testing.T) {
	source := &fakeSource{events: []model.Event{
		testEvent("a", baseTime.Add(3*time.Minute)),
		testEvent("b", baseTime.Add(30*time.Minute)),
		testEvent("far", baseTime.Add(2*time.Hour)),
	}}
	sink := &countingSink{}
	d := newTestDriver(source, sink)

	d.RunCycle(context.Background())

	snap := d.Snapshot()
	if snap.Status.Kind != model.StatusCountdown || snap.Status.Minutes != 3 {
		t.Errorf("status = %+v, want countdown 3", snap.Status)
	}
	if snap.Primary == nil || snap.Primary.Key != "a" {
		t.Errorf("primary = %+v, want a", snap.Primary)
	}
	// "b" starts in 30m, outside the 10m alert window; "far" likewise.
	if len(snap.Eligible) != 1 {
		t.Errorf("eligible = %d events, want 1", len(snap.Eligible))
	}
	if snap.Stale {
		t.Error("fresh cycle marked stale")
	}
	if sink.delivered != 0 {
		t.Errorf("delivered %d notifications before start", sink.delivered)
	}
}

func TestRunCycleFetchFailureBeforeFirstSuccess(t *testing.T) {
	source := &fakeSource{err: errors.New("network down")}
	sink := &countingSink{}
	d := newTestDriver(source, sink)

	d.RunCycle(context.Background())

	snap := d.Snapshot()
	if !snap.Stale {
		t.Error("failed first cycle should be marked stale")
	}
	if snap.Status.Kind != model.StatusIdle {
		t.Errorf("status = %v, want idle", snap.Status.Kind)
	}
	if sink.delivered != 0 {
		t.Error("scheduler state touched on short-circuited cycle")
	}
}

func TestRunCycleReusesLastGoodOnFailure(t *testing.T) {
	started := testEvent("a", baseTime)
	source := &fakeSource{events: []model.Event{started}}
	sink := &countingSink{}
	d := newTestDriver(source, sink)

	// First cycle: fresh fetch, Start milestone fires.
	d.RunCycle(context.Background())
	if sink.delivered != 1 {
		t.Fatalf("delivered = %d, want 1", sink.delivered)
	}

	// Second cycle: fetch fails, last good set carries the display.
	source.err = errors.New("feed unavailable")
	d.Now = func() time.Time { return baseTime.Add(10 * time.Second) }
	d.RunCycle(context.Background())

	snap := d.Snapshot()
	if !snap.Stale {
		t.Error("degraded cycle not marked stale")
	}
	if snap.Status.Kind != model.StatusStarted {
		t.Errorf("status = %v, want started (from last good set)", snap.Status.Kind)
	}
	if snap.Primary == nil || snap.Primary.Key != "a" {
		t.Errorf("primary lost on degraded cycle: %+v", snap.Primary)
	}
	// No duplicate delivery on the degraded cycle.
	if sink.delivered != 1 {
		t.Errorf("delivered = %d after degraded cycle, want 1", sink.delivered)
	}
}

func TestRunCycleAdvancesMilestonesAcrossCycles(t *testing.T) {
	ev := testEvent("a", baseTime)
	source := &fakeSource{events: []model.Event{ev}}
	sink := &countingSink{}
	d := newTestDriver(source, sink)

	for i, offset := range []time.Duration{0, 2 * time.Minute, 5 * time.Minute, 6 * time.Minute} {
		now := baseTime.Add(offset)
		d.Now = func() time.Time { return now }
		d.RunCycle(context.Background())

		want := i + 1
		if want > 3 {
			want = 3
		}
		if sink.delivered != want {
			t.Fatalf("after cycle at +%v: delivered = %d, want %d", offset, sink.delivered, want)
		}
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	source := &fakeSource{events: []model.Event{testEvent("a", baseTime.Add(time.Minute))}}
	d := newTestDriver(source, &countingSink{})
	d.RunCycle(context.Background())

	snap := d.Snapshot()
	if len(snap.Eligible) != 1 {
		t.Fatalf("eligible = %d, want 1", len(snap.Eligible))
	}
	snap.Eligible[0].Summary = "mutated"

	if d.Snapshot().Eligible[0].Summary == "mutated" {
		t.Error("snapshot shares backing array with driver state")
	}
}
