package meeting

import (
	"time"

	"nextcall/internal/model"
)

const idleThreshold = 60 * time.Minute

// Project maps the primary event's time-to-start into the display status.
// Pure and total: the same (event, now) pair always projects the same
// status, independent of any notification history.
//
//	no primary, or start more than 60m away -> Idle
//	0 < start-now <= 60m                    -> Countdown(ceil minutes)
//	start-now <= 0                          -> Started
//
// Countdown minutes round up, so a meeting 30 seconds away shows 1, never 0,
// until it has actually started.
func Project(primary *model.Event, now time.Time) model.Status {
	if primary == nil {
		return model.Status{Kind: model.StatusIdle}
	}

	until := primary.Start.Sub(now)
	switch {
	case until <= 0:
		return model.Status{Kind: model.StatusStarted}
	case until > idleThreshold:
		return model.Status{Kind: model.StatusIdle}
	default:
		return model.Status{Kind: model.StatusCountdown, Minutes: ceilMinutes(until)}
	}
}

// ceilMinutes returns d in whole minutes, rounded up. d is always > 0 here.
func ceilMinutes(d time.Duration) int {
	n := int(d / time.Minute)
	if d%time.Minute != 0 {
		n++
	}
	return n
}
