/*
timesheet.go - Read-side query assembly

PURPOSE:
  Builds the three read views over stored punches:
    - Today: the in-progress day with its live summary
    - Period: a flat, ordered punch list across calendar days
    - Day detail: one day's punches with evidence flags (never payloads)
  plus the explicitly scoped evidence payload lookup.

All views recompute; nothing here is cached or persisted.
*/
package timeclock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/warp/punch-engine/punch"
)

// ErrInvalidPeriod is returned when a period's end precedes its start or a
// date fails to parse.
var ErrInvalidPeriod = errors.New("invalid period")

const dateLayout = "2006-01-02"

// =============================================================================
// VIEW TYPES
// =============================================================================

// TodayView is the current day's punches, summary, and progression state.
type TodayView struct {
	Date         string
	Punches      []punch.Punch
	LastPunch    *punch.Punch
	NextExpected *punch.Type
	IsComplete   bool
	Summary      punch.DaySummary
}

// PeriodView is a flat punch list for [from, to], ordered by OccurredAt
// then ordinal. Per-day aggregation is left to the caller.
type PeriodView struct {
	From    string
	To      string
	Punches []punch.Punch
}

// DayRecord is one punch annotated with its evidence flag. The payload is
// never included; clients fetch it through Photo when authorized.
type DayRecord struct {
	Punch       punch.Punch
	HasEvidence bool
}

// DayDetailView is one day's punches with evidence flags and the day's
// summary.
type DayDetailView struct {
	Date    string
	Records []DayRecord
	Summary punch.DaySummary
}

// =============================================================================
// QUERIES
// =============================================================================

// Today returns the current day's view for scope.
func (s *Service) Today(ctx context.Context, scope punch.ScopeKey) (TodayView, error) {
	now := s.now()

	loc, err := s.locationFor(ctx, scope)
	if err != nil {
		return TodayView{}, err
	}
	day := punch.DayKey(now, loc)

	punches, err := s.store.FindDay(ctx, scope, day)
	if err != nil {
		return TodayView{}, fmt.Errorf("load day: %w", err)
	}

	summary := punch.Summarize(punches, now, s.dailyTarget)

	view := TodayView{
		Date:         day,
		Punches:      punches,
		NextExpected: summary.NextExpected,
		IsComplete:   summary.IsComplete,
		Summary:      summary,
	}
	if n := len(punches); n > 0 {
		view.LastPunch = &punches[n-1]
	}
	return view, nil
}

// Period returns all punches in the closed window [dayStart(from),
// dayEnd(to)], both dates in YYYY-MM-DD form.
func (s *Service) Period(ctx context.Context, scope punch.ScopeKey, from, to string) (PeriodView, error) {
	loc, err := s.locationFor(ctx, scope)
	if err != nil {
		return PeriodView{}, err
	}

	fromDate, err := time.ParseInLocation(dateLayout, from, loc)
	if err != nil {
		return PeriodView{}, fmt.Errorf("%w: from %q", ErrInvalidPeriod, from)
	}
	toDate, err := time.ParseInLocation(dateLayout, to, loc)
	if err != nil {
		return PeriodView{}, fmt.Errorf("%w: to %q", ErrInvalidPeriod, to)
	}
	if toDate.Before(fromDate) {
		return PeriodView{}, fmt.Errorf("%w: end before start", ErrInvalidPeriod)
	}

	window := punch.PeriodWindow(fromDate, toDate, loc)
	punches, err := s.store.FindRange(ctx, scope, window)
	if err != nil {
		return PeriodView{}, fmt.Errorf("load range: %w", err)
	}

	return PeriodView{From: from, To: to, Punches: punches}, nil
}

// Day returns one calendar day's punches with evidence flags.
func (s *Service) Day(ctx context.Context, scope punch.ScopeKey, date string) (DayDetailView, error) {
	loc, err := s.locationFor(ctx, scope)
	if err != nil {
		return DayDetailView{}, err
	}
	if _, err := time.ParseInLocation(dateLayout, date, loc); err != nil {
		return DayDetailView{}, fmt.Errorf("%w: date %q", ErrInvalidPeriod, date)
	}

	punches, err := s.store.FindDay(ctx, scope, date)
	if err != nil {
		return DayDetailView{}, fmt.Errorf("load day: %w", err)
	}

	records := make([]DayRecord, len(punches))
	for i, p := range punches {
		records[i] = DayRecord{Punch: p, HasEvidence: p.HasEvidence()}
	}

	return DayDetailView{
		Date:    date,
		Records: records,
		Summary: punch.Summarize(punches, s.now(), s.dailyTarget),
	}, nil
}

// Photo returns the evidence payload for one punch, scoped to (org, worker)
// so a leaked punch id can never cross a tenant boundary.
func (s *Service) Photo(ctx context.Context, scope punch.ScopeKey, id punch.PunchID) (punch.Evidence, error) {
	p, err := s.store.FindPunch(ctx, scope, id)
	if err != nil {
		return punch.Evidence{}, err
	}
	if !p.HasEvidence() {
		return punch.Evidence{}, punch.ErrNoEvidence
	}
	return s.evidence.Load(ctx, p.EvidenceRef)
}

func (s *Service) locationFor(ctx context.Context, scope punch.ScopeKey) (*time.Location, error) {
	worker, err := s.directory.FindWorker(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("resolve worker: %w", err)
	}
	return punch.ResolveLocation(worker.OrgTimezone), nil
}
