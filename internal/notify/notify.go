// Package notify delivers desktop notifications and spoken announcements
// for fired milestones. It is a dumb sink: the scheduler owns idempotency
// and retry; this package just tries once and reports the error.
package notify

import (
	"context"
	"fmt"

	appLog "nextcall/internal/log"
	"nextcall/internal/model"
)

// Desktop sends OS notifications, optionally followed by a spoken
// announcement. Implements meeting.Sink.
type Desktop struct {
	speaker *Speaker // nil disables speech
}

// NewDesktop creates a Desktop sink. speaker may be nil.
func NewDesktop(speaker *Speaker) *Desktop {
	return &Desktop{speaker: speaker}
}

// Deliver shows the notification for one (event, milestone) pair. A speech
// failure is logged but does not fail the delivery: the visual notification
// already went out and must not be repeated next cycle.
func (d *Desktop) Deliver(ctx context.Context, ev model.Event, m model.Milestone) error {
	title, body := milestoneText(ev, m)

	if err := send(ctx, title, ev.Summary, body, ev.VideoLink); err != nil {
		return fmt.Errorf("notify: %w", err)
	}

	if d.speaker != nil {
		if err := d.speaker.Say(ctx, spokenText(ev, m)); err != nil {
			appLog.Warn("speech failed", "err", err, "key", ev.Key)
		}
	}
	return nil
}

// Send pushes a standalone notification outside the milestone flow, e.g.
// the startup warning when no ICS source is configured.
func Send(ctx context.Context, title, subtitle, body string) error {
	return send(ctx, title, subtitle, body, "")
}

func milestoneText(ev model.Event, m model.Milestone) (title, body string) {
	minutes := int(m.Offset().Minutes())
	if minutes == 0 {
		title = "Call has just started"
	} else {
		title = fmt.Sprintf("Call started %d %s ago", minutes, minuteWord(minutes))
	}
	if ev.VideoLink != "" {
		body = ev.VideoLink
	}
	return title, body
}

func spokenText(ev model.Event, m model.Milestone) string {
	minutes := int(m.Offset().Minutes())
	if minutes == 0 {
		return fmt.Sprintf("Your call %q has just started", ev.Summary)
	}
	return fmt.Sprintf("Your call %q started %s %s ago, JOIN IT NOW!",
		ev.Summary, intAsWord(minutes), minuteWord(minutes))
}

func minuteWord(n int) string {
	if n == 1 {
		return "minute"
	}
	return "minutes"
}
