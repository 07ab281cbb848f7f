// Document HTTP handlers.
//
// This file exposes REST endpoints for document resources:
//   - POST   /sessions/{id}/documents            (upload, async extraction)
//   - GET    /sessions/{id}/documents            (list with statuses)
//   - GET    /sessions/{id}/documents/{docID}    (fetch one)
//   - GET    /sessions/{id}/documents/{docID}/url (signed download link)
//   - POST   /sessions/{id}/documents/{docID}/reprocess (retry failed extraction)
//   - DELETE /sessions/{id}/documents/{docID}    (delete)
//
// Upload returns 202 Accepted: the response carries the PENDING document and
// clients poll the list endpoint to observe extraction progress.
package handlers

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/caky/go-study-backend/internal/domain"
)

// DocumentService defines document operations consumed by HTTP handlers.
type DocumentService interface {
	Upload(ctx context.Context, userID, sessionID, fileName string, data []byte) (*domain.Document, error)
	List(ctx context.Context, userID, sessionID string) ([]domain.Document, error)
	Get(ctx context.Context, userID, sessionID, docID string) (*domain.Document, error)
	DownloadURL(ctx context.Context, userID, sessionID, docID string) (string, error)
	Reprocess(ctx context.Context, userID, sessionID, docID string) (*domain.Document, error)
	Delete(ctx context.Context, userID, sessionID, docID string) error
}

// UploadDocument accepts a multipart PDF upload and schedules extraction.
func (h *Handlers) UploadDocument(c *gin.Context) {
	sessionID, okID := pathUUID(c, "id")
	if !okID {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "multipart field 'file' required")
		return
	}
	if !strings.EqualFold(strings.TrimSpace(fh.Header.Get("Content-Type")), "application/pdf") &&
		!strings.HasSuffix(strings.ToLower(fh.Filename), ".pdf") {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "only PDF uploads are supported")
		return
	}

	f, err := fh.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable upload")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable upload")
		return
	}
	if len(data) == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "empty upload")
		return
	}

	doc, err := h.docSvc.Upload(c.Request.Context(), userID(c), sessionID, fh.Filename, data)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusAccepted, doc)
}

// ListDocuments returns the session's documents with their extraction statuses.
func (h *Handlers) ListDocuments(c *gin.Context) {
	sessionID, okID := pathUUID(c, "id")
	if !okID {
		return
	}
	docs, err := h.docSvc.List(c.Request.Context(), userID(c), sessionID)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"documents": docs})
}

// GetDocument fetches one document of a session.
func (h *Handlers) GetDocument(c *gin.Context) {
	sessionID, okID := pathUUID(c, "id")
	if !okID {
		return
	}
	docID, okID := pathUUID(c, "docID")
	if !okID {
		return
	}
	doc, err := h.docSvc.Get(c.Request.Context(), userID(c), sessionID, docID)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, doc)
}

// DocumentURL returns a time-limited download link for the raw file.
func (h *Handlers) DocumentURL(c *gin.Context) {
	sessionID, okID := pathUUID(c, "id")
	if !okID {
		return
	}
	docID, okID := pathUUID(c, "docID")
	if !okID {
		return
	}
	url, err := h.docSvc.DownloadURL(c.Request.Context(), userID(c), sessionID, docID)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"url": url})
}

// ReprocessDocument re-queues extraction for a document whose previous run
// failed. Like upload, it returns 202 Accepted with the PENDING document.
func (h *Handlers) ReprocessDocument(c *gin.Context) {
	sessionID, okID := pathUUID(c, "id")
	if !okID {
		return
	}
	docID, okID := pathUUID(c, "docID")
	if !okID {
		return
	}
	doc, err := h.docSvc.Reprocess(c.Request.Context(), userID(c), sessionID, docID)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusAccepted, doc)
}

// DeleteDocument removes a document and its stored file.
func (h *Handlers) DeleteDocument(c *gin.Context) {
	sessionID, okID := pathUUID(c, "id")
	if !okID {
		return
	}
	docID, okID := pathUUID(c, "docID")
	if !okID {
		return
	}
	if err := h.docSvc.Delete(c.Request.Context(), userID(c), sessionID, docID); err != nil {
		failService(c, err)
		return
	}
	noContent(c)
}
