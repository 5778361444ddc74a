package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/foundryworks/foundry-core/internal/audit"
	"github.com/foundryworks/foundry-core/internal/grid"
	"github.com/foundryworks/foundry-core/internal/machine"
)

// handleListMachines returns all machines, with optional query filters.
//
// Query parameters:
//   - state: filter by lifecycle state (idle, processing, ...)
//   - class: filter by class (processor, extractor, storage)
//   - type: filter by catalog type ID
func (s *Server) handleListMachines(w http.ResponseWriter, r *http.Request) {
	views := s.registry.Views()

	q := r.URL.Query()
	state := q.Get("state")
	class := q.Get("class")
	typeID := q.Get("type")

	if state != "" || class != "" || typeID != "" {
		filtered := views[:0]
		for _, v := range views {
			if state != "" && string(v.State) != state {
				continue
			}
			if class != "" && string(v.Class) != class {
				continue
			}
			if typeID != "" && v.TypeID != typeID {
				continue
			}
			filtered = append(filtered, v)
		}
		views = filtered
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"machines": views,
		"count":    len(views),
	})
}

// placeMachineRequest is the request body for POST /machines.
type placeMachineRequest struct {
	TypeID   string           `json:"type_id"`
	Name     string           `json:"name,omitempty"`
	Position machine.Position `json:"position"`
	Rotation int              `json:"rotation,omitempty"`
}

// handlePlaceMachine creates a machine of a catalog type at a grid position.
func (s *Server) handlePlaceMachine(w http.ResponseWriter, r *http.Request) {
	var req placeMachineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.TypeID == "" {
		writeBadRequest(w, "type_id is required")
		return
	}

	view, err := s.registry.Place(r.Context(), req.TypeID, req.Name, req.Position, req.Rotation)
	if err != nil {
		switch {
		case errors.Is(err, grid.ErrOccupied), errors.Is(err, grid.ErrAlreadyClaimed):
			writeConflict(w, "placement overlaps an occupied cell")
		case errors.Is(err, grid.ErrOutOfBounds):
			writeBadRequest(w, "placement is outside the factory grid")
		default:
			writeBadRequest(w, err.Error())
		}
		return
	}

	s.auditLog(r.Context(), &audit.Event{
		Category: "machine",
		Action:   "place",
		Subject:  view.ID,
		Detail: map[string]any{
			"type_id": view.TypeID,
			"x":       view.Position.X,
			"y":       view.Position.Y,
		},
	})
	writeJSON(w, http.StatusCreated, view)
}

// handleGetMachine returns a single machine by ID.
func (s *Server) handleGetMachine(w http.ResponseWriter, r *http.Request) {
	view, err := s.registry.View(chi.URLParam(r, "id"))
	if err != nil {
		writeNotFound(w, "machine not found")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleRemoveMachine tears a machine down and frees its grid cells.
func (s *Server) handleRemoveMachine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.registry.Remove(r.Context(), id); err != nil {
		if errors.Is(err, machine.ErrNotFound) {
			writeNotFound(w, "machine not found")
			return
		}
		s.logger.Error("failed to remove machine", "machine_id", id, "error", err)
		writeInternalError(w, "failed to remove machine")
		return
	}

	if s.effects != nil {
		s.effects.ClearRetainedState(id)
	}
	s.auditLog(r.Context(), &audit.Event{
		Category: "machine",
		Action:   "remove",
		Subject:  id,
	})
	w.WriteHeader(http.StatusNoContent)
}

// handleMachineStats returns aggregate registry statistics.
func (s *Server) handleMachineStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Stats())
}

// handleGetMachineState returns the runtime slice of a machine view: state,
// progress, time remaining and effective power draw.
func (s *Server) handleGetMachineState(w http.ResponseWriter, r *http.Request) {
	view, err := s.registry.View(chi.URLParam(r, "id"))
	if err != nil {
		writeNotFound(w, "machine not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"machine_id":     view.ID,
		"state":          view.State,
		"progress":       view.Progress,
		"time_remaining": view.TimeRemaining,
		"recipe_id":      view.RecipeID,
		"enabled":        view.Enabled,
		"powered":        view.Powered,
		"power_draw":     view.PowerDraw,
	})
}

// handleMachineHistory returns recent state transitions for a machine.
func (s *Server) handleMachineHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeNotFound(w, "state history is not configured")
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := s.registry.View(id); err != nil {
		writeNotFound(w, "machine not found")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.history.GetHistory(r.Context(), id, limit)
	if err != nil {
		s.logger.Error("failed to load machine history", "machine_id", id, "error", err)
		writeInternalError(w, "failed to load history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"machine_id": id,
		"entries":    entries,
		"count":      len(entries),
	})
}

// setRecipeRequest is the request body for PUT /machines/{id}/recipe.
type setRecipeRequest struct {
	RecipeID string `json:"recipe_id"`
}

// handleSetRecipe activates a recipe on a machine. Switching mid-cycle
// cancels the in-flight cycle without consuming inputs.
func (s *Server) handleSetRecipe(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req setRecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.RecipeID == "" {
		writeBadRequest(w, "recipe_id is required")
		return
	}

	effects, err := s.registry.SetRecipe(r.Context(), id, req.RecipeID)
	if err != nil {
		switch {
		case errors.Is(err, machine.ErrNotFound):
			writeNotFound(w, "machine not found")
		case errors.Is(err, machine.ErrUnknownRecipe):
			writeNotFound(w, "recipe not in the machine's available set")
		default:
			// Recipe validation sentinels: tier gate, class rules, bad stacks.
			writeValidationError(w, err.Error())
		}
		return
	}

	s.dispatchEffects(r.Context(), id, effects)
	s.auditLog(r.Context(), &audit.Event{
		Category: "machine",
		Action:   "set_recipe",
		Subject:  id,
		Detail:   map[string]any{"recipe_id": req.RecipeID},
	})
	s.writeUpdatedView(w, id)
}

// handleClearRecipe unsets the active recipe, cancelling any in-flight cycle.
func (s *Server) handleClearRecipe(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	effects, err := s.registry.ClearRecipe(r.Context(), id)
	if err != nil {
		if errors.Is(err, machine.ErrNotFound) {
			writeNotFound(w, "machine not found")
			return
		}
		writeInternalError(w, "failed to clear recipe")
		return
	}

	s.dispatchEffects(r.Context(), id, effects)
	s.auditLog(r.Context(), &audit.Event{
		Category: "machine",
		Action:   "clear_recipe",
		Subject:  id,
	})
	s.writeUpdatedView(w, id)
}

// setPowerRequest is the request body for PUT /machines/{id}/power.
type setPowerRequest struct {
	Powered bool `json:"powered"`
}

// handleSetPower toggles a machine's power flag. Power loss mid-cycle
// preserves progress; restoring power resumes exactly where it stopped.
func (s *Server) handleSetPower(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req setPowerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	effects, err := s.registry.SetPowered(r.Context(), id, req.Powered)
	if err != nil {
		if errors.Is(err, machine.ErrNotFound) {
			writeNotFound(w, "machine not found")
			return
		}
		writeInternalError(w, "failed to set power")
		return
	}

	s.dispatchEffects(r.Context(), id, effects)
	s.auditLog(r.Context(), &audit.Event{
		Category: "machine",
		Action:   "set_power",
		Subject:  id,
		Detail:   map[string]any{"powered": req.Powered},
	})
	s.writeUpdatedView(w, id)
}

// setEnabledRequest is the request body for PUT /machines/{id}/enabled.
type setEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// handleSetEnabled toggles a machine's enable flag. Disabling cancels any
// in-flight cycle.
func (s *Server) handleSetEnabled(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req setEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	effects, err := s.registry.SetEnabled(r.Context(), id, req.Enabled)
	if err != nil {
		if errors.Is(err, machine.ErrNotFound) {
			writeNotFound(w, "machine not found")
			return
		}
		writeInternalError(w, "failed to set enabled")
		return
	}

	s.dispatchEffects(r.Context(), id, effects)
	s.auditLog(r.Context(), &audit.Event{
		Category: "machine",
		Action:   "set_enabled",
		Subject:  id,
		Detail:   map[string]any{"enabled": req.Enabled},
	})
	s.writeUpdatedView(w, id)
}

// setTierRequest is the request body for PUT /machines/{id}/tier.
type setTierRequest struct {
	Tier int `json:"tier"`
}

// handleSetTier changes a machine's performance tier and recomputes its
// speed and efficiency multipliers.
func (s *Server) handleSetTier(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req setTierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Tier < 1 {
		writeValidationError(w, "tier must be at least 1")
		return
	}

	if err := s.registry.SetTier(r.Context(), id, req.Tier); err != nil {
		if errors.Is(err, machine.ErrNotFound) {
			writeNotFound(w, "machine not found")
			return
		}
		writeInternalError(w, "failed to set tier")
		return
	}

	s.dispatchEffects(r.Context(), id, nil)
	s.auditLog(r.Context(), &audit.Event{
		Category: "machine",
		Action:   "set_tier",
		Subject:  id,
		Detail:   map[string]any{"tier": req.Tier},
	})
	s.writeUpdatedView(w, id)
}

// portRequest is the request body for the port add/extract endpoints.
type portRequest struct {
	Kind   string `json:"kind"`
	Amount int    `json:"amount"`
}

// handleAddToIntake inserts resources into an intake port. The add is
// all-or-nothing: a full port rejects the whole amount.
func (s *Server) handleAddToIntake(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	index, ok := parsePortIndex(w, r)
	if !ok {
		return
	}

	var req portRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Kind == "" || req.Amount <= 0 {
		writeBadRequest(w, "kind and a positive amount are required")
		return
	}

	added, err := s.registry.AddToIntake(r.Context(), id, index, req.Kind, req.Amount)
	if err != nil {
		writePortError(w, err)
		return
	}
	if !added {
		writeConflict(w, "port cannot accept the amount (capacity reached)")
		return
	}

	s.dispatchEffects(r.Context(), id, nil)
	writeJSON(w, http.StatusOK, map[string]any{
		"machine_id": id,
		"port":       index,
		"kind":       req.Kind,
		"added":      req.Amount,
	})
}

// handleExtractFromIntake pulls resources back out of an intake port,
// returning however much was actually available.
func (s *Server) handleExtractFromIntake(w http.ResponseWriter, r *http.Request) {
	s.handleExtract(w, r, s.registry.ExtractFromIntake)
}

// handleExtractFromOutput pulls produced resources from an output port.
func (s *Server) handleExtractFromOutput(w http.ResponseWriter, r *http.Request) {
	s.handleExtract(w, r, s.registry.ExtractFromOutput)
}

// handleExtract implements the shared extract flow for both directions.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request,
	extract func(ctx context.Context, id string, port int, kind string, amount int) (int, error),
) {
	id := chi.URLParam(r, "id")
	index, ok := parsePortIndex(w, r)
	if !ok {
		return
	}

	var req portRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Kind == "" || req.Amount <= 0 {
		writeBadRequest(w, "kind and a positive amount are required")
		return
	}

	removed, err := extract(r.Context(), id, index, req.Kind, req.Amount)
	if err != nil {
		writePortError(w, err)
		return
	}

	s.dispatchEffects(r.Context(), id, nil)
	writeJSON(w, http.StatusOK, map[string]any{
		"machine_id": id,
		"port":       index,
		"kind":       req.Kind,
		"requested":  req.Amount,
		"removed":    removed,
	})
}

// parsePortIndex reads the {index} URL parameter, writing a 400 on failure.
func parsePortIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		writeBadRequest(w, "port index must be a non-negative integer")
		return 0, false
	}
	return index, true
}

// writePortError maps registry port mutation errors onto HTTP statuses.
func writePortError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, machine.ErrNotFound):
		writeNotFound(w, "machine not found")
	case errors.Is(err, machine.ErrPortIndex):
		writeBadRequest(w, "port index out of range")
	default:
		writeInternalError(w, "port operation failed")
	}
}

// writeUpdatedView responds with the machine's fresh view after a mutation.
func (s *Server) writeUpdatedView(w http.ResponseWriter, id string) {
	view, err := s.registry.View(id)
	if err != nil {
		writeNotFound(w, "machine not found")
		return
	}
	writeJSON(w, http.StatusOK, view)
}
