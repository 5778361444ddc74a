package api

import (
	"net/http"
)

// handleSystemInfo returns site identity and high-level factory counts.
func (s *Server) handleSystemInfo(w http.ResponseWriter, _ *http.Request) {
	info := map[string]any{
		"site": map[string]any{
			"id":       s.siteCfg.ID,
			"name":     s.siteCfg.Name,
			"timezone": s.siteCfg.Timezone,
		},
		"version":  s.version,
		"machines": s.registry.Stats(),
	}
	if s.clock != nil {
		info["simulation"] = s.clock.Status()
	}
	if s.grid != nil {
		info["grid"] = s.grid.Stats()
	}
	writeJSON(w, http.StatusOK, info)
}

// handleSystemHealth reports component-level health. The API server itself
// answering is the baseline; collaborators report their own state.
func (s *Server) handleSystemHealth(w http.ResponseWriter, _ *http.Request) {
	components := map[string]string{
		"api": "ok",
	}

	if s.clock != nil {
		if s.clock.Status().Running {
			components["simulation"] = "ok"
		} else {
			components["simulation"] = "stopped"
		}
	}
	if s.hub != nil {
		components["websocket"] = "ok"
	}
	if s.auditRepo != nil {
		components["audit"] = "ok"
	}

	status := "ok"
	for _, v := range components {
		if v != "ok" {
			status = "degraded"
			break
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     status,
		"components": components,
	})
}

// handleGetGrid returns the occupancy summary of the factory floor.
func (s *Server) handleGetGrid(w http.ResponseWriter, _ *http.Request) {
	if s.grid == nil {
		writeNotFound(w, "grid is not configured")
		return
	}

	width, height := s.grid.Size()
	writeJSON(w, http.StatusOK, map[string]any{
		"width":  width,
		"height": height,
		"stats":  s.grid.Stats(),
	})
}

// handleGetLedger returns the factory-wide resource totals mirror.
func (s *Server) handleGetLedger(w http.ResponseWriter, _ *http.Request) {
	if s.ledger == nil {
		writeNotFound(w, "resource ledger is not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"totals": s.ledger.Snapshot(),
	})
}
