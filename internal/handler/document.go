// Package handler contains the HTTP handlers for the MindGrove API.
//
// This file implements the document endpoints.
//
// Routes (all require auth):
//   - POST   /api/documents                   -> Upload
//   - GET    /api/documents                   -> List
//   - GET    /api/documents/{id}              -> Get
//   - GET    /api/documents/{id}/download-url -> DownloadURL
//   - DELETE /api/documents/{id}              -> Delete
//   - GET    /api/documents/{id}/materials    -> Materials
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mindgrove-app/mindgrove/internal/auth"
	"github.com/mindgrove-app/mindgrove/internal/domain"
	"github.com/mindgrove-app/mindgrove/internal/service"
)

// multipartMemoryBytes is how much of a multipart form is held in memory
// before spilling to disk.
const multipartMemoryBytes = 4 << 20 // 4 MB

// DocumentHandler handles document endpoints.
type DocumentHandler struct {
	documents service.DocumentService
	streaks   service.StreakService
	logger    *slog.Logger
	maxBytes  int64
}

// NewDocumentHandler creates a new DocumentHandler. maxBytes caps upload
// request bodies and should match the document service's limit.
func NewDocumentHandler(documents service.DocumentService, streaks service.StreakService, logger *slog.Logger, maxBytes int64) *DocumentHandler {
	return &DocumentHandler{
		documents: documents,
		streaks:   streaks,
		logger:    logger,
		maxBytes:  maxBytes,
	}
}

// documentResponse is the public JSON shape of a document. The storage key
// stays server-side; clients fetch content through the download URL.
type documentResponse struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	ContentType string                `json:"content_type"`
	SizeBytes   int64                 `json:"size_bytes"`
	Status      domain.DocumentStatus `json:"status"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

func toDocumentResponse(d *domain.Document) documentResponse {
	return documentResponse{
		ID:          d.ID.String(),
		Title:       d.Title,
		ContentType: d.ContentType,
		SizeBytes:   d.SizeBytes,
		Status:      d.Status,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// pathDocumentID parses the {id} path segment.
func pathDocumentID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, domain.Invalid("", "Invalid document ID.")
	}
	return id, nil
}

// Upload accepts a multipart form with a "file" part and an optional
// "title" field.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	// Leave headroom over the file cap for the multipart framing.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartMemoryBytes)

	if err := r.ParseMultipartForm(multipartMemoryBytes); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "Expected a multipart form upload."))
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "A \"file\" form field is required."))
		return
	}
	defer file.Close()

	doc, err := h.documents.Upload(r.Context(), user, domain.UploadDocumentParams{
		UserID:      user.ID,
		Title:       r.FormValue("title"),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		SizeBytes:   header.Size,
	}, file)
	if err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}

	// Uploading a document counts as activity for the daily streak.
	if _, err := h.streaks.RecordActivity(r.Context(), user.ID); err != nil {
		h.logger.Warn("streak update on upload failed", "user_id", user.ID, "error", err)
	}

	respondJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

// List returns the user's documents, newest first.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	docs, err := h.documents.List(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]documentResponse, 0, len(docs))
	for i := range docs {
		out = append(out, toDocumentResponse(&docs[i]))
	}
	respondJSON(w, http.StatusOK, map[string][]documentResponse{"documents": out})
}

// Get returns a single document.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	id, err := pathDocumentID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	doc, err := h.documents.Get(r.Context(), user.ID, id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toDocumentResponse(doc))
}

// DownloadURL returns a time-limited URL for the document blob.
func (h *DocumentHandler) DownloadURL(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	id, err := pathDocumentID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	url, err := h.documents.DownloadURL(r.Context(), user.ID, id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"url": url})
}

// Delete removes a document and its stored blob.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	id, err := pathDocumentID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.documents.Delete(r.Context(), user.ID, id); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// materialResponse is the public JSON shape of a study material. Content is
// the provider's structured output, embedded verbatim.
type materialResponse struct {
	ID         string                   `json:"id"`
	DocumentID string                   `json:"document_id"`
	Kind       domain.StudyMaterialKind `json:"kind"`
	Content    json.RawMessage          `json:"content"`
	CreatedAt  time.Time                `json:"created_at"`
}

// Materials returns the AI-generated study materials for a document.
func (h *DocumentHandler) Materials(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	id, err := pathDocumentID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	materials, err := h.documents.Materials(r.Context(), user.ID, id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]materialResponse, 0, len(materials))
	for _, m := range materials {
		out = append(out, materialResponse{
			ID:         m.ID.String(),
			DocumentID: m.DocumentID.String(),
			Kind:       m.Kind,
			Content:    json.RawMessage(m.Content),
			CreatedAt:  m.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, map[string][]materialResponse{"materials": out})
}
