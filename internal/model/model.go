package model

import "time"

// Event is a single concrete calendar occurrence after recurrence expansion
// and timezone normalization. The core pipeline (filter/select/project/
// schedule) operates on values of this type and never mutates them.
type Event struct {
	SourceID string // calendar source ID (config ICS ID)
	UID      string // iCalendar UID, or a fallback derived from start+summary

	// Key uniquely identifies one occurrence of one event. Recurring events
	// produce one Key per expanded instance.
	Key string

	Summary     string
	Description string
	Location    string

	// VideoLink is the resolved meeting URL, empty if extraction failed.
	VideoLink string

	Start time.Time
	End   time.Time
}

// HasVideoLink reports whether a meeting URL was resolved for this event.
func (e Event) HasVideoLink() bool {
	return e.VideoLink != ""
}

// Milestone is one of the fixed trigger points relative to an event's start
// at which a notification may be due.
type Milestone int

const (
	MilestoneStart Milestone = iota
	MilestonePlusTwoMinutes
	MilestonePlusFiveMinutes
)

// Milestones lists all milestones in increasing offset order. The scheduler
// iterates this slice, so order matters.
var Milestones = []Milestone{
	MilestoneStart,
	MilestonePlusTwoMinutes,
	MilestonePlusFiveMinutes,
}

// Offset returns the milestone's offset from the event start.
func (m Milestone) Offset() time.Duration {
	switch m {
	case MilestonePlusTwoMinutes:
		return 2 * time.Minute
	case MilestonePlusFiveMinutes:
		return 5 * time.Minute
	default:
		return 0
	}
}

func (m Milestone) String() string {
	switch m {
	case MilestoneStart:
		return "start"
	case MilestonePlusTwoMinutes:
		return "plus_2m"
	case MilestonePlusFiveMinutes:
		return "plus_5m"
	default:
		return "unknown"
	}
}

// StatusKind is the discrete display state derived from the primary event.
type StatusKind int

const (
	// StatusIdle means no primary event, or the primary event is more than
	// an hour away. Rendered as "...".
	StatusIdle StatusKind = iota
	// StatusCountdown means the primary event starts within the hour.
	StatusCountdown
	// StatusStarted means the primary event has begun. Rendered as an
	// emphasized "0".
	StatusStarted
)

func (k StatusKind) String() string {
	switch k {
	case StatusIdle:
		return "idle"
	case StatusCountdown:
		return "countdown"
	case StatusStarted:
		return "started"
	default:
		return "unknown"
	}
}

// Status is the projection of the primary event's time-to-start into what
// the persistent indicator should show.
type Status struct {
	Kind StatusKind
	// Minutes is the whole minutes remaining until start, rounded up.
	// Only meaningful when Kind == StatusCountdown; always >= 1 there.
	Minutes int
}
