package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/construo/opsportal/internal/core/domain"
	"github.com/construo/opsportal/internal/core/ports"
)

const expirationLayout = "2006-01-02"

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	}
	folderID := chi.URLParam(r, "folderID")

	r.Body = http.MaxBytesReader(w, r.Body, rt.opts.MaxUploadBytes)
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	docType := r.FormValue("document_type")
	if strings.TrimSpace(docType) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "document_type is required"})
		return
	}
	expiration, err := parseExpiration(r.FormValue("expiration_date"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	// The blob lands in storage before the transaction opens; a failed create
	// leaves at worst an orphaned blob, never a dangling URL.
	key := folderID + "/" + uuid.NewString() + "/" + filepath.Base(fileHeader.Filename)
	url, err := rt.blobs.Put(r.Context(), key, file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	doc, err := rt.documents.Create(r.Context(), session, ports.CreateDocumentInput{
		FolderID:       folderID,
		DocumentType:   docType,
		Name:           fileHeader.Filename,
		URL:            url,
		Size:           fileHeader.Size,
		MimeType:       fileHeader.Header.Get("Content-Type"),
		ExpirationDate: expiration,
	})
	rt.recordOperation("documents", "create", err)
	if err != nil {
		if deleteErr := rt.blobs.Delete(r.Context(), url); deleteErr != nil {
			slog.Warn("orphan_blob_cleanup_failed", "url", url, "error", deleteErr)
		}
		writeError(w, r, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.ObserveUploadSize(rt.opts.ServiceName, fileHeader.Size)
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (rt *Router) updateDocument(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	}
	documentID := chi.URLParam(r, "documentID")

	in := ports.UpdateDocumentInput{DocumentID: documentID}
	var uploadedURL string

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		r.Body = http.MaxBytesReader(w, r.Body, rt.opts.MaxUploadBytes)
		file, fileHeader, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "multipart field 'file' is required"})
			return
		}
		defer file.Close()

		key := documentID + "/" + uuid.NewString() + "/" + filepath.Base(fileHeader.Filename)
		url, err := rt.blobs.Put(r.Context(), key, file)
		if err != nil {
			writeError(w, r, err)
			return
		}
		uploadedURL = url
		in.NewURL = &url
		name := fileHeader.Filename
		in.NewName = &name

		if raw := r.FormValue("expiration_date"); raw != "" {
			expiration, err := parseExpiration(raw)
			if err != nil {
				writeError(w, r, err)
				return
			}
			in.NewExpiration = expiration
		}
		in.ClearExpiration = r.FormValue("clear_expiration") == "true"
	} else {
		var req struct {
			Name            *string `json:"name"`
			ExpirationDate  *string `json:"expiration_date"`
			ClearExpiration bool    `json:"clear_expiration"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json"})
			return
		}
		in.NewName = req.Name
		in.ClearExpiration = req.ClearExpiration
		if req.ExpirationDate != nil {
			expiration, err := parseExpiration(*req.ExpirationDate)
			if err != nil {
				writeError(w, r, err)
				return
			}
			in.NewExpiration = expiration
		}
	}

	doc, err := rt.documents.Update(r.Context(), session, in)
	rt.recordOperation("documents", "update", err)
	if err != nil {
		if uploadedURL != "" {
			if deleteErr := rt.blobs.Delete(r.Context(), uploadedURL); deleteErr != nil {
				slog.Warn("orphan_blob_cleanup_failed", "url", uploadedURL, "error", deleteErr)
			}
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) reviewDocument(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	}

	var req struct {
		Decision string `json:"decision"`
		Reason   string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json"})
		return
	}
	decision, err := domain.ParseReviewDecision(req.Decision)
	if err != nil {
		writeError(w, r, err)
		return
	}

	doc, err := rt.documents.Review(r.Context(), session, chi.URLParam(r, "documentID"), decision, req.Reason)
	rt.recordOperation("documents", "review", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordReviewDecision(rt.opts.ServiceName, string(decision))
	}
	writeJSON(w, http.StatusOK, doc)
}

func parseExpiration(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(expirationLayout, raw)
	if err != nil {
		return nil, domain.WrapError(domain.ErrValidation, "parse expiration date", err)
	}
	t = t.UTC()
	return &t, nil
}
