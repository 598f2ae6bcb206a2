/*
sequencer.go - Punch order validation and ordinal assignment

PURPOSE:
  Decides whether a submitted punch type is a valid next step for a day and,
  if so, which ordinal it gets. This is the write-time guardian of the
  invariant that a day's types, read in ordinal order, always form a prefix
  of [IN, BREAK_START, BREAK_END, OUT].

DETERMINISM:
  ProposeNext is a pure function of its inputs. Identical inputs always
  yield identical results, which makes client retries after a timed-out
  submission safe: re-running the proposal cannot diverge.

PERSISTENCE:
  ProposeNext performs no I/O. The caller persists the accepted punch and
  relies on the store's (scope, day, ordinal) uniqueness guarantee to settle
  concurrent submissions.

SEE ALSO:
  - accountant.go: Consumes the sequences this file guards
  - timeclock/recorder.go: The accept path wrapping ProposeNext
*/
package punch

import "fmt"

// =============================================================================
// NEXT-TYPE TABLE
// =============================================================================

// NextType returns the punch type expected after last. The zero value
// (empty day) expects IN. After OUT the day is closed and
// ErrSequenceComplete is returned.
func NextType(last Type) (Type, error) {
	switch last {
	case "":
		return TypeIn, nil
	case TypeIn:
		return TypeBreakStart, nil
	case TypeBreakStart:
		return TypeBreakEnd, nil
	case TypeBreakEnd:
		return TypeOut, nil
	case TypeOut:
		return "", ErrSequenceComplete
	default:
		return "", fmt.Errorf("%w: unknown type %q", ErrMalformedDayData, last)
	}
}

// =============================================================================
// SEQUENCER
// =============================================================================

// ProposeNext validates submitted against the day's existing punches and
// returns the ordinal the new punch should take.
//
// Preconditions: existing holds exactly one worker's one day's punches,
// ordered by ordinal ascending. The caller is responsible for the fetch.
//
// Checks, in order:
//  1. ErrLimitExceeded when the day already holds MaxPunchesPerDay punches.
//  2. ErrSequenceComplete when the last punch is OUT: the day is closed
//     even if earlier records are suspect.
//  3. ErrMalformedDayData when existing violates the prefix invariant;
//     appending on top of corruption would only compound it.
//  4. UnexpectedTypeError when submitted differs from the expected type.
func ProposeNext(existing []Punch, submitted Type) (int, error) {
	if len(existing) >= MaxPunchesPerDay {
		return 0, ErrLimitExceeded
	}

	var last Type
	if n := len(existing); n > 0 {
		last = existing[n-1].Type
	}

	expected, err := NextType(last)
	if err != nil {
		return 0, err
	}

	if err := ValidateDay(existing); err != nil {
		return 0, err
	}

	if submitted != expected {
		return 0, &UnexpectedTypeError{Submitted: submitted, Expected: expected}
	}

	return len(existing) + 1, nil
}

// ValidateDay checks the prefix invariant: ordinals contiguous from 1 and
// types matching the canonical sequence position-by-position.
func ValidateDay(existing []Punch) error {
	if len(existing) > MaxPunchesPerDay {
		return &MalformedDayError{
			Scope:  scopeOf(existing),
			Detail: fmt.Sprintf("%d punches exceed the daily limit", len(existing)),
		}
	}
	for i, p := range existing {
		if p.Ordinal != i+1 {
			return &MalformedDayError{
				Scope:  scopeOf(existing),
				Detail: fmt.Sprintf("ordinal %d at position %d, want %d", p.Ordinal, i, i+1),
			}
		}
		if p.Type != Sequence[i] {
			return &MalformedDayError{
				Scope:  scopeOf(existing),
				Detail: fmt.Sprintf("type %s at ordinal %d, want %s", p.Type, p.Ordinal, Sequence[i]),
			}
		}
	}
	return nil
}

func scopeOf(punches []Punch) ScopeKey {
	if len(punches) == 0 {
		return ScopeKey{}
	}
	return punches[0].Scope
}
