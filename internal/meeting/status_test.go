package meeting

import (
	"testing"
	"time"

	"nextcall/internal/model"
)

func TestProjectNoPrimary(t *testing.T) {
	st := Project(nil, baseTime)
	if st.Kind != model.StatusIdle {
		t.Errorf("Project(nil) = %v, want idle", st.Kind)
	}
}

func TestProjectTable(t *testing.T) {
	now := baseTime

	tests := []struct {
		name        string
		until       time.Duration
		wantKind    model.StatusKind
		wantMinutes int
	}{
		{"exactly 60m away", 60 * time.Minute, model.StatusCountdown, 60},
		{"60m 1s away is idle", 60*time.Minute + time.Second, model.StatusIdle, 0},
		{"2h away", 2 * time.Hour, model.StatusIdle, 0},
		{"30m away", 30 * time.Minute, model.StatusCountdown, 30},
		{"90s away rounds up", 90 * time.Second, model.StatusCountdown, 2},
		{"30s away shows 1, never 0", 30 * time.Second, model.StatusCountdown, 1},
		{"starting right now", 0, model.StatusStarted, 0},
		{"started 4m ago", -4 * time.Minute, model.StatusStarted, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := makeEvent("p", now.Add(tt.until), "https://zoom.us/j/1")
			st := Project(&ev, now)
			if st.Kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", st.Kind, tt.wantKind)
			}
			if st.Kind == model.StatusCountdown && st.Minutes != tt.wantMinutes {
				t.Errorf("minutes = %d, want %d", st.Minutes, tt.wantMinutes)
			}
		})
	}
}

// As now advances toward the start, the countdown must never increase, and
// the switch to Started happens exactly once, at now == start.
func TestProjectMonotonicNearZero(t *testing.T) {
	start := baseTime.Add(10 * time.Minute)
	ev := makeEvent("m", start, "https://zoom.us/j/1")

	prevMinutes := int(^uint(0) >> 1)
	started := false

	for now := baseTime; !now.After(start.Add(time.Minute)); now = now.Add(10 * time.Second) {
		st := Project(&ev, now)
		switch st.Kind {
		case model.StatusCountdown:
			if started {
				t.Fatalf("countdown observed after started at now=%v", now)
			}
			if st.Minutes > prevMinutes {
				t.Fatalf("countdown increased from %d to %d at now=%v", prevMinutes, st.Minutes, now)
			}
			if st.Minutes < 1 {
				t.Fatalf("countdown reached %d before start", st.Minutes)
			}
			prevMinutes = st.Minutes
		case model.StatusStarted:
			if !started && now.Before(start) {
				t.Fatalf("started before start time at now=%v", now)
			}
			started = true
		default:
			t.Fatalf("unexpected idle at now=%v", now)
		}
	}

	if !started {
		t.Fatal("never transitioned to started")
	}
	// The boundary itself belongs to Started, not Countdown.
	if st := Project(&ev, start); st.Kind != model.StatusStarted {
		t.Errorf("at now==start: kind = %v, want started", st.Kind)
	}
}

// Projection must not depend on notification history or repeated calls.
func TestProjectIsPure(t *testing.T) {
	ev := makeEvent("p", baseTime.Add(7*time.Minute), "https://zoom.us/j/1")
	first := Project(&ev, baseTime)
	for i := 0; i < 5; i++ {
		if got := Project(&ev, baseTime); got != first {
			t.Fatalf("projection changed across calls: %+v vs %+v", got, first)
		}
	}
}
