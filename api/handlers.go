/*
handlers.go - HTTP API handlers for the punch clock

PURPOSE:
  Exposes the punch engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the timeclock service.

ENDPOINTS:
  POST   /api/login               Authenticate, get bearer token
  POST   /api/punches             Submit a punch (IN/BREAK_START/BREAK_END/OUT)
  GET    /api/punches/today       Current day with live summary
  GET    /api/punches?from=&to=   Flat punch history for a period
  GET    /api/punches/day/{date}  One day with evidence flags
  GET    /api/punches/{id}/photo  Selfie payload (scoped by token)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation and sequence errors (limit, closed day, wrong type)
  - 401: Missing/invalid token
  - 404: Punch or photo not found
  - 409: Concurrent submission claimed the ordinal; client should retry
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - auth.go: Token issuance and the scope middleware
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/warp/punch-engine/punch"
	"github.com/warp/punch-engine/timeclock"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *timeclock.Service
	Auth    *Auth
	Log     *slog.Logger
}

// NewHandler creates a new handler.
func NewHandler(service *timeclock.Service, auth *Auth, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{Service: service, Auth: auth, Log: log}
}

// =============================================================================
// PUNCH HANDLERS
// =============================================================================

// SubmitPunch validates and records one punch for the authenticated worker.
func (h *Handler) SubmitPunch(w http.ResponseWriter, r *http.Request) {
	scope, ok := ScopeFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}

	var req SubmitPunchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	punchType, ok := punch.ParseType(req.Type)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid punch type", nil)
		return
	}

	var photo []byte
	if req.PhotoBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.PhotoBase64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid photo encoding", err)
			return
		}
		photo = decoded
	}

	accepted, err := h.Service.Submit(r.Context(), scope, timeclock.Submission{
		Type: punchType,
		Location: punch.Location{
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
			AccuracyM: req.AccuracyM,
		},
		Photo:     photo,
		PhotoMIME: req.PhotoMime,
		Source:    "MOBILE",
	})
	if err != nil {
		h.writePunchError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, punchToDTO(accepted, false))
}

// GetToday returns the current day's punches and live summary.
func (h *Handler) GetToday(w http.ResponseWriter, r *http.Request) {
	scope, ok := ScopeFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}

	view, err := h.Service.Today(r.Context(), scope)
	if err != nil {
		if errors.Is(err, punch.ErrNotFound) {
			// Valid token for a since-removed worker.
			writeError(w, http.StatusUnauthorized, "Unauthorized", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load today", err)
		return
	}

	writeJSON(w, http.StatusOK, todayToResponse(view))
}

// ListPeriod returns the punch history for [from, to].
func (h *Handler) ListPeriod(w http.ResponseWriter, r *http.Request) {
	scope, ok := ScopeFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}

	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, "from and to are required (YYYY-MM-DD)", nil)
		return
	}

	view, err := h.Service.Period(r.Context(), scope, from, to)
	if err != nil {
		if errors.Is(err, timeclock.ErrInvalidPeriod) {
			writeError(w, http.StatusBadRequest, "Invalid period", err)
			return
		}
		if errors.Is(err, punch.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "Unauthorized", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load period", err)
		return
	}

	writeJSON(w, http.StatusOK, PeriodResponse{
		From:  view.From,
		To:    view.To,
		Items: punchesToDTOs(view.Punches, false),
	})
}

// GetDay returns one day's punches with GPS and evidence flags. The photo
// payload itself is never embedded here.
func (h *Handler) GetDay(w http.ResponseWriter, r *http.Request) {
	scope, ok := ScopeFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}

	date := chi.URLParam(r, "date")
	view, err := h.Service.Day(r.Context(), scope, date)
	if err != nil {
		if errors.Is(err, timeclock.ErrInvalidPeriod) {
			writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
			return
		}
		if errors.Is(err, punch.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "Unauthorized", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load day", err)
		return
	}

	items := make([]PunchDTO, len(view.Records))
	for i, rec := range view.Records {
		items[i] = punchToDTO(rec.Punch, true)
	}

	writeJSON(w, http.StatusOK, DayResponse{
		Date:    view.Date,
		Items:   items,
		Summary: summaryToDTO(view.Summary),
	})
}

// GetPhoto streams the selfie for one punch, scoped to the token's
// (org, worker).
func (h *Handler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	scope, ok := ScopeFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}

	id := punch.PunchID(chi.URLParam(r, "id"))
	ev, err := h.Service.Photo(r.Context(), scope, id)
	if err != nil {
		if errors.Is(err, punch.ErrNotFound) || errors.Is(err, punch.ErrNoEvidence) {
			writeError(w, http.StatusNotFound, "Photo not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load photo", err)
		return
	}

	mime := ev.MIME
	if mime == "" {
		mime = "image/jpeg"
	}
	w.Header().Set("Content-Type", mime)
	w.WriteHeader(http.StatusOK)
	w.Write(ev.Payload)
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func (h *Handler) writePunchError(w http.ResponseWriter, err error) {
	var ute *punch.UnexpectedTypeError
	switch {
	case errors.As(err, &ute):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:    ute.Error(),
			Expected: string(ute.Expected),
		})
	case errors.Is(err, punch.ErrStateChanged):
		writeError(w, http.StatusConflict, "Punch state changed, retry", nil)
	case errors.Is(err, punch.ErrNotFound):
		writeError(w, http.StatusUnauthorized, "Unauthorized", nil)
	case punch.IsClientError(err):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		h.Log.Error("punch submission failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to submit punch", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	// Internal details stay out of client responses.
	if err != nil && status < http.StatusInternalServerError {
		message = fmt.Sprintf("%s: %v", message, err)
	}
	writeJSON(w, status, ErrorResponse{Error: message})
}
