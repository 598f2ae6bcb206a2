/*
Package punch provides the core punch-clock engine.

PURPOSE:
  This package contains the domain types and algorithms for a four-punch
  workday: clock-in, break-start, break-end, clock-out. It validates punch
  order, assigns stable ordinal positions within a day, and computes
  worked/break/balance durations from timestamped events.

KEY CONCEPTS IN THIS FILE (types.go):
  - Type: The closed punch enumeration (IN -> BREAK_START -> BREAK_END -> OUT)
  - Punch: One immutable clock event, bound to a GPS fix and photo evidence
  - ScopeKey: The (organization, worker) pair every operation is confined to
  - DaySummary: Derived worked/break/balance seconds for one day

DESIGN PRINCIPLES:
  1. Purity: Sequencer and Accountant are pure functions over punch slices
  2. Immutability: Punches are created once, never mutated or deleted
  3. Scoping: Nothing in this package crosses a ScopeKey boundary
  4. Defensiveness: Malformed day data degrades gracefully, never panics

USAGE:
  ordinal, err := punch.ProposeNext(day, punch.TypeIn)
  summary := punch.Summarize(day, time.Now().UTC(), punch.DefaultDailyTargetSeconds)

SEE ALSO:
  - sequencer.go: Next-punch validation and ordinal assignment
  - accountant.go: Worked/break/balance computation
  - day.go: Local-midnight day boundary resolution
  - store.go: Persistence, audit, and evidence collaborator interfaces
*/
package punch

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PUNCH TYPE - Closed, ordered enumeration
// =============================================================================

// Type identifies one of the four daily clock events. The order is fixed:
// a day's punches always form a prefix of [IN, BREAK_START, BREAK_END, OUT].
type Type string

const (
	TypeIn         Type = "IN"
	TypeBreakStart Type = "BREAK_START"
	TypeBreakEnd   Type = "BREAK_END"
	TypeOut        Type = "OUT"
)

// Sequence is the canonical punch order for a complete day.
var Sequence = [4]Type{TypeIn, TypeBreakStart, TypeBreakEnd, TypeOut}

// MaxPunchesPerDay caps a day at one full IN/BREAK_START/BREAK_END/OUT cycle.
const MaxPunchesPerDay = 4

// ParseType converts a wire string into a Type.
func ParseType(s string) (Type, bool) {
	switch Type(s) {
	case TypeIn, TypeBreakStart, TypeBreakEnd, TypeOut:
		return Type(s), true
	default:
		return "", false
	}
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type PunchID string

// ScopeKey is the composite identity every core operation is confined to.
// A punch belongs to exactly one worker within exactly one organization.
type ScopeKey struct {
	OrgID    string
	WorkerID string
}

func (k ScopeKey) IsZero() bool { return k.OrgID == "" || k.WorkerID == "" }

// =============================================================================
// PUNCH - One immutable clock event
// =============================================================================

// Location is the GPS fix captured with a punch. Informational only: the
// engine stores it and echoes it back, it never validates coordinates.
type Location struct {
	Latitude  float64
	Longitude float64
	AccuracyM float64
}

// Punch is a single recorded clock event. Created once by the accept path,
// never mutated, never deleted.
type Punch struct {
	ID    PunchID
	Scope ScopeKey
	Type  Type

	// Ordinal is the 1-based position within the (scope, day) sequence.
	// It is the authoritative tie-break order, independent of clock time.
	Ordinal int

	// OccurredAt is stored in UTC. Day grouping uses the organization's
	// local-midnight cutoff, see day.go.
	OccurredAt time.Time

	Location Location

	// EvidenceRef points at the stored selfie. Empty means no evidence.
	// The payload itself never passes through this package.
	EvidenceRef string
}

// HasEvidence reports whether photo evidence was captured with this punch.
func (p Punch) HasEvidence() bool { return p.EvidenceRef != "" }

// =============================================================================
// DAY SUMMARY - Derived state, recomputed on every read
// =============================================================================

// DefaultDailyTargetSeconds is the standard eight-hour workday.
const DefaultDailyTargetSeconds int64 = 8 * 60 * 60

// DaySummary is the worked/break/balance accounting for one day.
// It has no independent lifecycle; see accountant.go.
type DaySummary struct {
	WorkedSeconds      int64
	BreakSeconds       int64
	BalanceSeconds     int64 // signed: negative means under target
	DailyTargetSeconds int64

	// IsComplete is true when the last punch by ordinal is OUT.
	IsComplete bool

	// NextExpected is the type the worker should submit next.
	// Nil when the day is complete.
	NextExpected *Type
}

// WorkedHours returns the worked time in decimal hours, rounded to two
// places for display and payroll export.
func (s DaySummary) WorkedHours() decimal.Decimal {
	return secondsToHours(s.WorkedSeconds)
}

// BalanceHours returns the signed balance in decimal hours.
func (s DaySummary) BalanceHours() decimal.Decimal {
	return secondsToHours(s.BalanceSeconds)
}

func secondsToHours(seconds int64) decimal.Decimal {
	return decimal.NewFromInt(seconds).Div(decimal.NewFromInt(3600)).Round(2)
}
