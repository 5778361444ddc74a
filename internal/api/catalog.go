package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleListTypes returns all machine types in the catalog.
func (s *Server) handleListTypes(w http.ResponseWriter, _ *http.Request) {
	if s.catalog == nil {
		writeNotFound(w, "catalog is not configured")
		return
	}
	types := s.catalog.Types()
	writeJSON(w, http.StatusOK, map[string]any{
		"types": types,
		"count": len(types),
	})
}

// handleGetType returns one machine type with its available recipes.
func (s *Server) handleGetType(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		writeNotFound(w, "catalog is not configured")
		return
	}

	id := chi.URLParam(r, "id")
	t, ok := s.catalog.Type(id)
	if !ok {
		writeNotFound(w, "machine type not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"type":    t,
		"recipes": s.catalog.RecipesFor(id),
	})
}

// handleListRecipes returns all recipes in the catalog.
func (s *Server) handleListRecipes(w http.ResponseWriter, _ *http.Request) {
	if s.catalog == nil {
		writeNotFound(w, "catalog is not configured")
		return
	}
	recipes := s.catalog.Recipes()
	writeJSON(w, http.StatusOK, map[string]any{
		"recipes": recipes,
		"count":   len(recipes),
	})
}

// handleGetRecipe returns one recipe by ID.
func (s *Server) handleGetRecipe(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		writeNotFound(w, "catalog is not configured")
		return
	}

	rec := s.catalog.Recipe(chi.URLParam(r, "id"))
	if rec == nil {
		writeNotFound(w, "recipe not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
