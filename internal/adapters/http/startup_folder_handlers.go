package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/construo/opsportal/internal/core/domain"
	"github.com/construo/opsportal/internal/core/ports"
)

func (rt *Router) createStartupFolder(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	}

	var req struct {
		Name             string `json:"name"`
		Type             string `json:"type"`
		ExtendedDuration bool   `json:"extended_duration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json"})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "name is required"})
		return
	}
	folderType, err := domain.ParseStartupFolderType(req.Type)
	if err != nil {
		writeError(w, r, err)
		return
	}

	folder, err := rt.startupFolders.Create(r.Context(), session, ports.CreateStartupFolderInput{
		CompanyID:        session.CompanyID,
		Type:             folderType,
		Name:             req.Name,
		ExtendedDuration: req.ExtendedDuration,
	})
	rt.recordOperation("startup_folders", "create", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, folder)
}

func (rt *Router) getStartupFolder(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	}

	view, err := rt.startupFolders.Get(r.Context(), session, chi.URLParam(r, "startupFolderID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (rt *Router) renameStartupFolder(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json"})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "name is required"})
		return
	}

	folder, err := rt.startupFolders.Rename(r.Context(), session, chi.URLParam(r, "startupFolderID"), req.Name)
	rt.recordOperation("startup_folders", "rename", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, folder)
}

func (rt *Router) deleteStartupFolder(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	}

	err := rt.startupFolders.Delete(r.Context(), session, chi.URLParam(r, "startupFolderID"))
	rt.recordOperation("startup_folders", "delete", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) recordOperation(module, operation string, err error) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.RecordOperation(rt.opts.ServiceName, module, operation, err)
}
