package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "nextcall/internal/log"
	"nextcall/internal/model"
)

const (
	defaultMaxOccurrencesPerEvent = 1000
)

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// RangeStart / RangeEnd define the inclusive time window for occurrences.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps expansion per event to avoid pathological
	// rules. If zero, defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int
}

// ExpandOccurrences takes ParsedEvents (for one or more ICS sources) and
// expands them into concrete model.Events within the given time range:
//
//   - Single non-recurring events
//   - RRULE-based recurrence with EXDATE exceptions
//   - RECURRENCE-ID overrides
//
// All-day events are dropped here: they carry no meaningful start instant to
// count down to and never represent a dial-in meeting.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) ([]model.Event, error) {
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return nil, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	// Group base events and overrides by UID.
	baseByUID := make(map[string][]ParsedEvent)
	overridesByUID := make(map[string][]ParsedEvent)

	for _, ev := range events {
		if ev.AllDay {
			appLog.Debug("expand: skipping all-day event", "uid", ev.UID)
			continue
		}
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
		} else {
			baseByUID[ev.UID] = append(baseByUID[ev.UID], ev)
		}
	}

	out := make([]model.Event, 0)

	for uid, baseEvents := range baseByUID {
		ov := overridesByUID[uid]
		truncated := false

		for _, ev := range baseEvents {
			occ, hitCap := expandEvent(ev, ov, cfg)
			if hitCap {
				truncated = true
			}
			out = append(out, occ...)
		}

		if truncated {
			appLog.Warn("expand: occurrence cap hit", "uid", uid, "cap", cfg.MaxOccurrencesPerEvent)
		}
	}

	return out, nil
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.Event, bool) {
	if ev.RawRRule == "" {
		return expandSingleEvent(ev, overrides, cfg), false
	}
	return expandRecurringEvent(ev, overrides, cfg)
}

func expandSingleEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) []model.Event {
	end := ev.End
	if end.IsZero() {
		end = ev.Start
	}
	if !timeRangesOverlap(ev.Start, end, cfg.RangeStart, cfg.RangeEnd) {
		return nil
	}

	baseStart := ev.Start
	baseEnd := ev.End
	if o, ok := findOverrideForStart(overrides, baseStart); ok {
		baseStart = o.Start
		baseEnd = o.End
		ev = o
	}

	return []model.Event{makeEvent(ev, baseStart, baseEnd)}
}

func expandRecurringEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.Event, bool) {
	out := make([]model.Event, 0)
	hitCap := false

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Warn("expand: failed to parse RRULE", "err", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return out, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)

	for _, ex := range ev.ExDates {
		// Align EXDATE location with the event's start.
		set.ExDate(ex.In(ev.Start.Location()))
	}

	rangeStart := cfg.RangeStart.In(ev.Start.Location())
	rangeEnd := cfg.RangeEnd.In(ev.Start.Location())

	occTimes := set.Between(rangeStart, rangeEnd, true)
	if len(occTimes) > cfg.MaxOccurrencesPerEvent {
		occTimes = occTimes[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	// A VEVENT without DTEND carries zero duration, same as the single path.
	end := ev.End
	if end.IsZero() {
		end = ev.Start
	}
	dur := end.Sub(ev.Start)

	for _, occStart := range occTimes {
		occEnd := occStart.Add(dur)

		baseStart := occStart
		baseEnd := occEnd
		baseEv := ev

		if o, ok := findOverrideForStart(overrides, occStart); ok {
			baseStart = o.Start
			baseEnd = o.End
			baseEv = o
		}

		out = append(out, makeEvent(baseEv, baseStart, baseEnd))
	}

	return out, hitCap
}

// findOverrideForStart finds an override event whose RECURRENCE-ID matches
// the given occurrence start with exact time equality.
func findOverrideForStart(overrides []ParsedEvent, occStart time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence == nil {
			continue
		}
		if ov.Recurrence.In(occStart.Location()).Equal(occStart) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

// makeEvent converts a (possibly overridden) ParsedEvent plus a concrete
// start/end into a model.Event. The occurrence key combines the UID with the
// instance start so each occurrence of a recurring event tracks its own
// notification state.
func makeEvent(ev ParsedEvent, start, end time.Time) model.Event {
	return model.Event{
		SourceID:    ev.Source.ID,
		UID:         ev.UID,
		Key:         ev.UID + "@" + start.UTC().Format(time.RFC3339),
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		VideoLink:   ev.VideoLink,
		Start:       start,
		End:         end,
	}
}

func timeRangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aEnd.Before(bStart) {
		return false
	}
	if bEnd.Before(aStart) {
		return false
	}
	return true
}
