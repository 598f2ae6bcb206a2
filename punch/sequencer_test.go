package punch_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/punch-engine/punch"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dayAt(types ...punch.Type) []punch.Punch {
	base := time.Date(2026, time.February, 3, 8, 0, 0, 0, time.UTC)
	punches := make([]punch.Punch, len(types))
	for i, typ := range types {
		punches[i] = punch.Punch{
			ID:         punch.PunchID("p-" + string(rune('1'+i))),
			Scope:      punch.ScopeKey{OrgID: "org-1", WorkerID: "w-1"},
			Type:       typ,
			Ordinal:    i + 1,
			OccurredAt: base.Add(time.Duration(i) * time.Hour),
		}
	}
	return punches
}

// =============================================================================
// HAPPY PATH - Every valid prefix accepts exactly the next type
// =============================================================================

func TestProposeNext_ValidPrefixes_AcceptNextInSequence(t *testing.T) {
	// GIVEN: Each valid prefix of [IN, BREAK_START, BREAK_END, OUT]
	// WHEN: Submitting the next element of the full sequence
	// THEN: It succeeds with ordinal = len(prefix)+1

	for prefixLen := 0; prefixLen < len(punch.Sequence); prefixLen++ {
		existing := dayAt(punch.Sequence[:prefixLen]...)
		next := punch.Sequence[prefixLen]

		ordinal, err := punch.ProposeNext(existing, next)
		require.NoError(t, err, "prefix of %d should accept %s", prefixLen, next)
		assert.Equal(t, prefixLen+1, ordinal)
	}
}

func TestProposeNext_ValidPrefixes_RejectEverythingElse(t *testing.T) {
	// GIVEN: Each valid prefix
	// WHEN: Submitting any type other than the expected next
	// THEN: It fails with UnexpectedTypeError carrying the expected type

	for prefixLen := 0; prefixLen < len(punch.Sequence); prefixLen++ {
		existing := dayAt(punch.Sequence[:prefixLen]...)
		expected := punch.Sequence[prefixLen]

		for _, submitted := range punch.Sequence {
			if submitted == expected {
				continue
			}

			_, err := punch.ProposeNext(existing, submitted)
			require.Error(t, err)

			var ute *punch.UnexpectedTypeError
			require.ErrorAs(t, err, &ute)
			assert.Equal(t, expected, ute.Expected)
			assert.Equal(t, submitted, ute.Submitted)
			assert.True(t, punch.IsRetryable(err), "wrong type is retryable after re-fetch")
		}
	}
}

// =============================================================================
// TERMINAL STATES
// =============================================================================

func TestProposeNext_FullDay_LimitExceeded(t *testing.T) {
	// GIVEN: A day that already holds four punches
	// WHEN: Submitting a fifth punch of any type
	// THEN: It fails with ErrLimitExceeded regardless of type

	existing := dayAt(punch.TypeIn, punch.TypeBreakStart, punch.TypeBreakEnd, punch.TypeOut)

	for _, submitted := range punch.Sequence {
		_, err := punch.ProposeNext(existing, submitted)
		assert.ErrorIs(t, err, punch.ErrLimitExceeded)
		assert.False(t, punch.IsRetryable(err), "limit is terminal for the day")
	}
}

func TestProposeNext_AfterOut_SequenceComplete(t *testing.T) {
	// GIVEN: A day whose last recorded punch is OUT but that still has a
	// free slot (only reachable when older data is suspect)
	// WHEN: Submitting any type
	// THEN: It fails with ErrSequenceComplete - the day is closed

	existing := []punch.Punch{
		{Type: punch.TypeIn, Ordinal: 1},
		{Type: punch.TypeOut, Ordinal: 2},
	}

	for _, submitted := range punch.Sequence {
		_, err := punch.ProposeNext(existing, submitted)
		assert.ErrorIs(t, err, punch.ErrSequenceComplete)
	}

	_, err := punch.NextType(punch.TypeOut)
	assert.ErrorIs(t, err, punch.ErrSequenceComplete)
}

// =============================================================================
// MALFORMED DAY DATA
// =============================================================================

func TestProposeNext_MalformedDay_RefusesToAppend(t *testing.T) {
	// GIVEN: Stored days violating the prefix invariant
	// WHEN: Submitting any punch on top of them
	// THEN: The sequencer refuses with ErrMalformedDayData

	tests := []struct {
		name     string
		existing []punch.Punch
	}{
		{
			name: "two INs",
			existing: []punch.Punch{
				{Type: punch.TypeIn, Ordinal: 1},
				{Type: punch.TypeIn, Ordinal: 2},
			},
		},
		{
			name: "ordinals not contiguous from 1",
			existing: []punch.Punch{
				{Type: punch.TypeIn, Ordinal: 2},
			},
		},
		{
			name: "gap in ordinals",
			existing: []punch.Punch{
				{Type: punch.TypeIn, Ordinal: 1},
				{Type: punch.TypeBreakStart, Ordinal: 3},
			},
		},
		{
			name: "break end without break start",
			existing: []punch.Punch{
				{Type: punch.TypeIn, Ordinal: 1},
				{Type: punch.TypeBreakEnd, Ordinal: 2},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := punch.ProposeNext(tt.existing, punch.TypeBreakStart)
			assert.ErrorIs(t, err, punch.ErrMalformedDayData)
			assert.True(t, punch.IsClientError(err))
		})
	}
}

func TestProposeNext_Deterministic(t *testing.T) {
	// GIVEN: The same inputs
	// WHEN: Proposing twice
	// THEN: Identical results, so client retries after a timeout are safe

	existing := dayAt(punch.TypeIn)

	first, err1 := punch.ProposeNext(existing, punch.TypeBreakStart)
	second, err2 := punch.ProposeNext(existing, punch.TypeBreakStart)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, first, second)
}
