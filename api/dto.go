/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - auth.go: Login request/response
*/
package api

import (
	"time"

	"github.com/warp/punch-engine/punch"
	"github.com/warp/punch-engine/timeclock"
)

// =============================================================================
// PUNCH TYPES
// =============================================================================

// SubmitPunchRequest is one punch attempt. The photo travels as raw base64
// without a data: prefix.
type SubmitPunchRequest struct {
	Type        string  `json:"type"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	AccuracyM   float64 `json:"accuracy_m"`
	PhotoBase64 string  `json:"photo_base64,omitempty"`
	PhotoMime   string  `json:"photo_mime,omitempty"`
}

// PunchDTO represents one punch in API responses. Evidence payloads are
// never embedded; has_photo plus photo_id point at the scoped download.
type PunchDTO struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	Ordinal    int     `json:"ordinal"`
	OccurredAt string  `json:"occurred_at"`
	Latitude   float64 `json:"latitude,omitempty"`
	Longitude  float64 `json:"longitude,omitempty"`
	AccuracyM  float64 `json:"accuracy_m,omitempty"`
	HasPhoto   bool    `json:"has_photo"`
	PhotoID    *string `json:"photo_id,omitempty"`
}

// SummaryDTO is the day accounting block.
type SummaryDTO struct {
	WorkedSeconds      int64  `json:"worked_seconds"`
	BreakSeconds       int64  `json:"break_seconds"`
	BalanceSeconds     int64  `json:"balance_seconds"`
	DailyTargetSeconds int64  `json:"daily_target_seconds"`
	WorkedHours        string `json:"worked_hours"`
	BalanceHours       string `json:"balance_hours"`
}

// TodayResponse is the current day's state.
type TodayResponse struct {
	Date         string     `json:"date"`
	Punches      []PunchDTO `json:"punches"`
	LastPunch    *PunchDTO  `json:"last_punch"`
	NextExpected *string    `json:"next_expected"`
	IsComplete   bool       `json:"is_complete"`
	Summary      SummaryDTO `json:"summary"`
}

// PeriodResponse is a flat punch list across days.
type PeriodResponse struct {
	From  string     `json:"from"`
	To    string     `json:"to"`
	Items []PunchDTO `json:"items"`
}

// DayResponse is one day's punches with evidence flags.
type DayResponse struct {
	Date    string     `json:"date"`
	Items   []PunchDTO `json:"items"`
	Summary SummaryDTO `json:"summary"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`

	// Expected carries the next valid punch type on sequence errors so
	// clients can re-prompt without another round trip.
	Expected string `json:"expected,omitempty"`
}

// =============================================================================
// MAPPING HELPERS
// =============================================================================

func punchToDTO(p punch.Punch, withLocation bool) PunchDTO {
	dto := PunchDTO{
		ID:         string(p.ID),
		Type:       string(p.Type),
		Ordinal:    p.Ordinal,
		OccurredAt: p.OccurredAt.UTC().Format(time.RFC3339),
		HasPhoto:   p.HasEvidence(),
	}
	if withLocation {
		dto.Latitude = p.Location.Latitude
		dto.Longitude = p.Location.Longitude
		dto.AccuracyM = p.Location.AccuracyM
	}
	if p.HasEvidence() {
		id := string(p.ID)
		dto.PhotoID = &id
	}
	return dto
}

func punchesToDTOs(punches []punch.Punch, withLocation bool) []PunchDTO {
	dtos := make([]PunchDTO, len(punches))
	for i, p := range punches {
		dtos[i] = punchToDTO(p, withLocation)
	}
	return dtos
}

func summaryToDTO(s punch.DaySummary) SummaryDTO {
	return SummaryDTO{
		WorkedSeconds:      s.WorkedSeconds,
		BreakSeconds:       s.BreakSeconds,
		BalanceSeconds:     s.BalanceSeconds,
		DailyTargetSeconds: s.DailyTargetSeconds,
		WorkedHours:        s.WorkedHours().String(),
		BalanceHours:       s.BalanceHours().String(),
	}
}

func todayToResponse(v timeclock.TodayView) TodayResponse {
	resp := TodayResponse{
		Date:       v.Date,
		Punches:    punchesToDTOs(v.Punches, false),
		IsComplete: v.IsComplete,
		Summary:    summaryToDTO(v.Summary),
	}
	if v.LastPunch != nil {
		dto := punchToDTO(*v.LastPunch, false)
		resp.LastPunch = &dto
	}
	if v.NextExpected != nil {
		next := string(*v.NextExpected)
		resp.NextExpected = &next
	}
	return resp
}
