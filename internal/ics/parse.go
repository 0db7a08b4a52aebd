package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "nextcall/internal/log"
)

// ParsedEvent is the normalized representation of a VEVENT as produced by the
// ICS parser. Recurrence expansion (expand.go) operates on this type.
type ParsedEvent struct {
	Source Source

	UID string

	Summary     string
	Description string
	Location    string

	// VideoLink is the meeting URL resolved by extractVideoLink, empty if
	// no heuristic matched.
	VideoLink string

	Start  time.Time
	End    time.Time
	AllDay bool

	RawRRule   string
	ExDates    []time.Time
	Recurrence *time.Time // RECURRENCE-ID (if present)
	IsOverride bool       // true if this VEVENT overrides a recurring instance
}

// ParseICS parses a single ICS payload into a list of ParsedEvent.
//
//   - It relies on the library's VTIMEZONE/TZID handling to construct proper
//     time.Time values.
//   - Events with no resolvable DTSTART are skipped, never fatal.
//   - RRULE/EXDATE/RECURRENCE-ID are recorded but not expanded here.
func ParseICS(src Source, body []byte) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	// Cheap sanity check before handing the payload to the parser: feeds
	// behind auth walls tend to answer with an HTML login page.
	trimmed := bytes.TrimSpace(body)
	if !bytes.HasPrefix(trimmed, []byte("BEGIN:VCALENDAR")) {
		return nil, errors.New("payload does not start with BEGIN:VCALENDAR")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, err
	}

	events := make([]ParsedEvent, 0)

	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(src, comp)
		if perr != nil {
			// Log and skip this event, but keep parsing others.
			appLog.Warn("ics vevent skipped", "reason", perr, "id", src.ID)
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics parse completed", "id", src.ID, "event_count", len(events))
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent) (ParsedEvent, error) {
	var out ParsedEvent
	out.Source = src

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}

	// Cancelled events never reach the pipeline.
	if p := ve.GetProperty(ical.ComponentPropertyStatus); p != nil && strings.EqualFold(p.Value, "CANCELLED") {
		return out, errors.New("event is cancelled")
	}

	// DTSTART / DTEND via the library's timezone-aware helpers. Date-only
	// DTSTARTs go through the all-day variant.
	start, err := ve.GetStartAt()
	if err != nil {
		allDayStart, allDayErr := ve.GetAllDayStartAt()
		if allDayErr != nil {
			return out, errors.New("missing or unparsable DTSTART")
		}
		start = allDayStart
		out.AllDay = true
	}
	if start.IsZero() {
		return out, errors.New("missing or unparsable DTSTART")
	}
	end, err := ve.GetEndAt()
	if err != nil {
		end, _ = ve.GetAllDayEndAt()
	}

	out.Start = start
	out.End = end

	// Detect all-day: VALUE=DATE or no time component in DTSTART.
	if dtStartProp := ve.GetProperty(ical.ComponentPropertyDtStart); dtStartProp != nil {
		if params := dtStartProp.ICalParameters; params != nil {
			if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
				out.AllDay = true
			}
		}
		if !strings.Contains(dtStartProp.Value, "T") {
			out.AllDay = true
		}
	}

	// UID, with a deterministic fallback for feeds that omit it.
	if uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId); uidProp != nil && uidProp.Value != "" {
		out.UID = uidProp.Value
	} else {
		out.UID = src.ID + "-" + out.Start.UTC().Format(time.RFC3339) + "-" + out.Summary
	}

	out.VideoLink = extractVideoLink(ve, out.Location, out.Description)

	// RRULE (raw string only; expansion lives in expand.go).
	if rruleProp := ve.GetProperty(ical.ComponentPropertyRrule); rruleProp != nil {
		out.RawRRule = rruleProp.Value
	}

	// EXDATE (can appear multiple times, comma-separated values).
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	// RECURRENCE-ID (overridden instance).
	if ridProp := ve.GetProperty("RECURRENCE-ID"); ridProp != nil {
		if t, err := parseICSTime(ridProp.Value); err == nil {
			out.Recurrence = &t
			out.IsOverride = true
		}
	}

	return out, nil
}

// videoHosts are substrings that mark a line in DESCRIPTION as carrying a
// meeting URL.
var videoHosts = []string{"zoom.us", "meet.google.com", "teams.microsoft.com"}

// extractVideoLink resolves a meeting URL from a VEVENT, in priority order:
// X-GOOGLE-CONFERENCE, URL, an http(s) LOCATION, then known conferencing
// hosts inside DESCRIPTION lines.
func extractVideoLink(ve *ical.VEvent, location, description string) string {
	if p := ve.GetProperty("X-GOOGLE-CONFERENCE"); p != nil && strings.HasPrefix(p.Value, "http") {
		return p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyUrl); p != nil && strings.HasPrefix(p.Value, "http") {
		return p.Value
	}
	if strings.HasPrefix(location, "http") {
		return location
	}

	for _, line := range strings.Split(description, "\n") {
		if !containsVideoHost(line) {
			continue
		}
		start := strings.Index(line, "http")
		if start < 0 {
			continue
		}
		url := line[start:]
		// URL ends at the first whitespace.
		if end := strings.IndexFunc(url, isSpace); end >= 0 {
			url = url[:end]
		}
		return url
	}

	return ""
}

func containsVideoHost(line string) bool {
	for _, h := range videoHosts {
		if strings.Contains(line, h) {
			return true
		}
	}
	return false
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n'
}

// parseICSTime parses a basic ICS date/date-time string into time.Time.
// Simplified helper for EXDATE/RECURRENCE-ID where full parameter context is
// not available; expansion handles tz normalization later.
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	// UTC form, e.g., 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		const layout = "20060102T150405Z"
		return time.Parse(layout, v)
	}

	// Local date-time, e.g., 20250101T090000
	if strings.Contains(v, "T") {
		const layout = "20060102T150405"
		return time.ParseInLocation(layout, v, time.Local)
	}

	// Date-only (all-day), e.g., 20250101
	const layoutDate = "20060102"
	return time.ParseInLocation(layoutDate, v, time.Local)
}
