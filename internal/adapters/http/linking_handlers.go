package httpadapter

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/construo/opsportal/internal/core/domain"
)

func (rt *Router) linkEntity(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	}

	var req struct {
		Kind     string `json:"kind"`
		EntityID string `json:"entity_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json"})
		return
	}
	kind, err := domain.ParseFolderKind(req.Kind)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if req.EntityID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "entity_id is required"})
		return
	}

	folder, err := rt.linking.Link(r.Context(), session, chi.URLParam(r, "startupFolderID"), kind, req.EntityID)
	rt.recordOperation("linking", "link", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, folder)
}

func (rt *Router) unlinkEntity(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	}

	kind, err := domain.ParseFolderKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	unlinked, err := rt.linking.Unlink(
		r.Context(), session,
		chi.URLParam(r, "startupFolderID"), kind, chi.URLParam(r, "entityID"),
	)
	rt.recordOperation("linking", "unlink", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"unlinked": unlinked})
}

func (rt *Router) listLinkCandidates(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	}

	kind, err := domain.ParseFolderKind(r.URL.Query().Get("kind"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	candidates, err := rt.linking.ListCandidates(r.Context(), session, chi.URLParam(r, "startupFolderID"), kind)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, candidates)
}
