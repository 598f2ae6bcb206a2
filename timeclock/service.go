/*
Package timeclock assembles the punch engine and its collaborators into the
operations the product exposes: submitting a punch and reading a worker's
day, period, and evidence.

PURPOSE:
  The punch package is pure computation. This package owns the control
  flow around it: fetch the day's punches, run the sequencer, persist the
  accepted punch, emit the audit record, and build the read views.

SCOPING:
  Every operation takes a ScopeKey supplied by the authentication layer.
  Nothing here authenticates; nothing here crosses a scope boundary.

CLOCK DISCIPLINE:
  "Now" is captured once per operation and threaded through, never re-read
  mid-computation, so a single request sees one consistent instant for day
  boundary math and open-day accounting.

SEE ALSO:
  - recorder.go: The submit/accept path
  - timesheet.go: Today, period, and single-day views
*/
package timeclock

import (
	"log/slog"
	"time"

	"github.com/warp/punch-engine/punch"
)

// =============================================================================
// SERVICE
// =============================================================================

// Service coordinates the punch engine with its collaborators.
type Service struct {
	store     punch.Store
	evidence  punch.EvidenceStore
	audit     punch.AuditSink
	directory punch.Directory
	log       *slog.Logger

	now         func() time.Time
	dailyTarget int64
}

// Config carries Service dependencies.
type Config struct {
	Store     punch.Store
	Evidence  punch.EvidenceStore
	Audit     punch.AuditSink
	Directory punch.Directory
	Logger    *slog.Logger

	// Now overrides the clock, for tests. Defaults to time.Now in UTC.
	Now func() time.Time

	// DailyTargetSeconds defaults to the standard eight-hour day.
	DailyTargetSeconds int64
}

// New creates a Service from cfg, applying defaults for Logger, Now, and
// DailyTargetSeconds.
func New(cfg Config) *Service {
	s := &Service{
		store:       cfg.Store,
		evidence:    cfg.Evidence,
		audit:       cfg.Audit,
		directory:   cfg.Directory,
		log:         cfg.Logger,
		now:         cfg.Now,
		dailyTarget: cfg.DailyTargetSeconds,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.dailyTarget == 0 {
		s.dailyTarget = punch.DefaultDailyTargetSeconds
	}
	return s
}
