package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Health check (no auth required, used by orchestration probes)
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Auth endpoints (no auth required)
		r.Post("/auth/token", s.handleIssueToken)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/auth/me", s.handleAuthMe)

			// System endpoints
			r.Get("/system/info", s.handleSystemInfo)
			r.Get("/system/health", s.handleSystemHealth)

			// Machine endpoints
			r.Route("/machines", func(r chi.Router) {
				r.Get("/", s.handleListMachines)
				r.With(s.requireMutate).Post("/", s.handlePlaceMachine)
				r.Get("/stats", s.handleMachineStats)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetMachine)
					r.With(s.requireMutate).Delete("/", s.handleRemoveMachine)
					r.Get("/state", s.handleGetMachineState)
					r.Get("/history", s.handleMachineHistory)

					r.Group(func(r chi.Router) {
						r.Use(s.requireMutate)
						r.Put("/recipe", s.handleSetRecipe)
						r.Delete("/recipe", s.handleClearRecipe)
						r.Put("/power", s.handleSetPower)
						r.Put("/enabled", s.handleSetEnabled)
						r.Put("/tier", s.handleSetTier)
						r.Post("/ports/intake/{index}/add", s.handleAddToIntake)
						r.Post("/ports/intake/{index}/extract", s.handleExtractFromIntake)
						r.Post("/ports/output/{index}/extract", s.handleExtractFromOutput)
					})
				})
			})

			// Catalog endpoints (read-only by design)
			r.Route("/catalog", func(r chi.Router) {
				r.Get("/types", s.handleListTypes)
				r.Get("/types/{id}", s.handleGetType)
				r.Get("/recipes", s.handleListRecipes)
				r.Get("/recipes/{id}", s.handleGetRecipe)
			})

			// Simulation clock endpoints
			r.Route("/simulation", func(r chi.Router) {
				r.Get("/", s.handleSimulationStatus)
				r.Group(func(r chi.Router) {
					r.Use(s.requireMutate)
					r.Put("/speed", s.handleSetSpeed)
					r.Post("/pause", s.handlePause)
					r.Post("/resume", s.handleResume)
				})
			})

			// Spatial and resource queries
			r.Get("/grid", s.handleGetGrid)
			r.Get("/ledger", s.handleGetLedger)

			// Blueprint import/export
			r.Route("/blueprint", func(r chi.Router) {
				r.Get("/export", s.handleBlueprintExport)
				r.With(s.requireAdmin).Post("/import", s.handleBlueprintImport)
			})

			// Audit trail
			r.Get("/audit", s.handleListAudit)
		})

		// WebSocket sits outside the bearer-token group: browsers cannot
		// set headers on WebSocket dials, so the handler validates a token
		// query parameter itself.
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
