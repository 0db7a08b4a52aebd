package ics

import (
	"context"
	"errors"
	"sort"
	"time"

	appLog "nextcall/internal/log"
	"nextcall/internal/model"
)

// FeedSource turns the configured ICS subscriptions into the event sequence
// the core pipeline consumes: fetch, parse, expand recurrences, sort. It is
// the concrete implementation of the poll driver's EventSource.
type FeedSource struct {
	fetcher  *Fetcher
	sources  []Source
	lookback time.Duration
	horizon  time.Duration
}

// NewFeedSource creates a FeedSource. lookback controls how far into the
// past expansion reaches (so in-progress meetings are present); horizon how
// far into the future.
func NewFeedSource(fetcher *Fetcher, sources []Source, lookback, horizon time.Duration) *FeedSource {
	return &FeedSource{
		fetcher:  fetcher,
		sources:  sources,
		lookback: lookback,
		horizon:  horizon,
	}
}

// Fetch returns the current occurrence set, ascending by start time. Events
// with equal starts keep their feed order (stable sort), so downstream
// primary selection is deterministic across polls.
//
// Individual source failures are tolerated as long as at least one source
// yields a body; Fetch only errors when every source failed.
func (f *FeedSource) Fetch(ctx context.Context, now time.Time) ([]model.Event, error) {
	results, errs := f.fetcher.FetchAll(ctx, f.sources)
	if len(results) == 0 {
		if len(errs) > 0 {
			return nil, errors.Join(errs...)
		}
		return []model.Event{}, nil
	}

	parsed := make([]ParsedEvent, 0)
	for _, res := range results {
		events, err := ParseICS(res.Source, res.Body)
		if err != nil {
			// A feed that fetched but does not parse is skipped, not fatal:
			// the other feeds still count.
			appLog.Error("ics parse failed, skipping source", err, "id", res.Source.ID)
			continue
		}
		parsed = append(parsed, events...)
	}

	occurrences, err := ExpandOccurrences(parsed, ExpandConfig{
		RangeStart: now.Add(-f.lookback),
		RangeEnd:   now.Add(f.horizon),
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(occurrences, func(i, j int) bool {
		return occurrences[i].Start.Before(occurrences[j].Start)
	})

	return occurrences, nil
}
