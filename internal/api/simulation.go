package api

import (
	"encoding/json"
	"net/http"

	"github.com/foundryworks/foundry-core/internal/audit"
)

// handleSimulationStatus returns the current clock reading.
func (s *Server) handleSimulationStatus(w http.ResponseWriter, _ *http.Request) {
	if s.clock == nil {
		writeNotFound(w, "simulation clock is not configured")
		return
	}
	writeJSON(w, http.StatusOK, s.clock.Status())
}

// setSpeedRequest is the request body for PUT /simulation/speed.
type setSpeedRequest struct {
	Speed float64 `json:"speed"`
}

// handleSetSpeed changes the simulation speed multiplier. Out-of-range
// values are clamped rather than rejected; the response carries the applied
// value.
func (s *Server) handleSetSpeed(w http.ResponseWriter, r *http.Request) {
	if s.clock == nil {
		writeNotFound(w, "simulation clock is not configured")
		return
	}

	var req setSpeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	applied := s.clock.SetSpeed(req.Speed)
	s.auditLog(r.Context(), &audit.Event{
		Category: "simulation",
		Action:   "set_speed",
		Detail:   map[string]any{"requested": req.Speed, "applied": applied},
	})
	writeJSON(w, http.StatusOK, s.clock.Status())
}

// handlePause freezes the simulation clock. Machines hold their exact
// mid-cycle state until resume.
func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if s.clock == nil {
		writeNotFound(w, "simulation clock is not configured")
		return
	}

	s.clock.Pause()
	s.auditLog(r.Context(), &audit.Event{
		Category: "simulation",
		Action:   "pause",
	})
	writeJSON(w, http.StatusOK, s.clock.Status())
}

// handleResume unfreezes the simulation clock.
func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if s.clock == nil {
		writeNotFound(w, "simulation clock is not configured")
		return
	}

	s.clock.Resume()
	s.auditLog(r.Context(), &audit.Event{
		Category: "simulation",
		Action:   "resume",
	})
	writeJSON(w, http.StatusOK, s.clock.Status())
}
