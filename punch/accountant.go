package punch

import "time"

// =============================================================================
// TIME ACCOUNTANT - Worked/break/balance from a day's punches
// =============================================================================

// Summarize computes the DaySummary for one day's punches, ordered by
// ordinal ascending. It is pure and idempotent: the same punches, now, and
// target always yield the same summary. On an open day a later now changes
// only WorkedSeconds/BalanceSeconds, never the historical fields.
//
// The computation is deliberately defensive. The sequencer makes malformed
// days unreachable under normal operation, but the accountant still takes
// the FIRST IN, the LAST OUT, and the FIRST break pair, producing a
// best-effort summary instead of failing on bad data.
func Summarize(punches []Punch, now time.Time, dailyTargetSeconds int64) DaySummary {
	var inAt, outAt, breakStartAt, breakEndAt *time.Time

	for i := range punches {
		p := punches[i]
		switch p.Type {
		case TypeIn:
			if inAt == nil {
				inAt = &p.OccurredAt
			}
		case TypeBreakStart:
			if breakStartAt == nil {
				breakStartAt = &p.OccurredAt
			}
		case TypeBreakEnd:
			if breakEndAt == nil {
				breakEndAt = &p.OccurredAt
			}
		case TypeOut:
			outAt = &p.OccurredAt // keep scanning: last OUT wins
		}
	}

	var breakSeconds int64
	if breakStartAt != nil && breakEndAt != nil {
		breakSeconds = flooredSeconds(*breakStartAt, *breakEndAt)
	}

	var workedSeconds int64
	if inAt != nil {
		effectiveEnd := now // open day: provisional up to the current instant
		if outAt != nil {
			effectiveEnd = *outAt
		}
		workedSeconds = flooredSeconds(*inAt, effectiveEnd) - breakSeconds
		if workedSeconds < 0 {
			workedSeconds = 0
		}
	}

	summary := DaySummary{
		WorkedSeconds:      workedSeconds,
		BreakSeconds:       breakSeconds,
		BalanceSeconds:     workedSeconds - dailyTargetSeconds,
		DailyTargetSeconds: dailyTargetSeconds,
	}

	if n := len(punches); n > 0 {
		last := punches[n-1]
		summary.IsComplete = last.Type == TypeOut
		if !summary.IsComplete {
			if next, err := NextType(last.Type); err == nil {
				summary.NextExpected = &next
			}
		}
	} else {
		next := TypeIn
		summary.NextExpected = &next
	}

	return summary
}

// flooredSeconds returns max(0, floor(to-from)) in whole seconds.
func flooredSeconds(from, to time.Time) int64 {
	d := to.Sub(from)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}
