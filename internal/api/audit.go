package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/foundryworks/foundry-core/internal/audit"
)

// auditLog enqueues an audit event for asynchronous write (best-effort).
// If the channel is full the entry is dropped and a warning is logged.
func (s *Server) auditLog(ctx context.Context, ev *audit.Event) {
	if s.auditRepo == nil || s.auditCh == nil {
		return
	}
	if ev.Actor == "" {
		ev.Actor = actorFrom(ctx)
	}
	if ev.Source == "" {
		ev.Source = "api"
	}

	select {
	case s.auditCh <- ev:
	default:
		s.logger.Warn("audit log channel full, dropping entry",
			"category", ev.Category,
			"action", ev.Action,
		)
	}
}

// drainAuditLog reads events from the audit channel and writes them serially.
// This avoids unbounded goroutine creation and is kinder to SQLite's serial
// write model. It runs until the context is cancelled, then drains remaining
// entries.
func (s *Server) drainAuditLog(ctx context.Context) {
	for {
		select {
		case ev := <-s.auditCh:
			if err := s.auditRepo.Log(context.Background(), ev); err != nil {
				s.logger.Error("audit log write failed",
					"category", ev.Category,
					"action", ev.Action,
					"error", err,
				)
			}
		case <-ctx.Done():
			for {
				select {
				case ev := <-s.auditCh:
					if err := s.auditRepo.Log(context.Background(), ev); err != nil {
						s.logger.Error("audit log write failed during shutdown",
							"action", ev.Action,
							"error", err,
						)
					}
				default:
					return
				}
			}
		}
	}
}

// handleListAudit returns paginated audit events with optional filters.
//
// Query parameters:
//   - category: filter by category (machine, simulation, blueprint, auth)
//   - action: filter by action (place, remove, import, pause, ...)
//   - subject: filter by subject (machine ID, username)
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.auditRepo == nil {
		writeNotFound(w, "audit trail is not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Category: q.Get("category"),
		Action:   q.Get("action"),
		Subject:  q.Get("subject"),
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			writeBadRequest(w, "offset must be a non-negative integer")
			return
		}
		filter.Offset = offset
	}

	result, err := s.auditRepo.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list audit events", "error", err)
		writeInternalError(w, "failed to list audit events")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
