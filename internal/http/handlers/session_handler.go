// Session HTTP handlers.
//
// This file exposes REST endpoints for study session resources:
//   - POST   /sessions                (create)
//   - GET    /sessions                (list, paginated)
//   - GET    /sessions/{id}          (fetch)
//   - PUT    /sessions/{id}/title    (rename)
//   - POST   /sessions/{id}/complete (finish studying)
//   - DELETE /sessions/{id}          (delete)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/caky/go-study-backend/internal/domain"
	"github.com/caky/go-study-backend/internal/utils"
)

// SessionService defines session lifecycle operations consumed by HTTP handlers.
type SessionService interface {
	Create(ctx context.Context, userID, title string, description *string) (*domain.Session, error)
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Session, int64, error)
	Get(ctx context.Context, userID, sessionID string) (*domain.Session, error)
	UpdateTitle(ctx context.Context, userID, sessionID, title string) error
	Complete(ctx context.Context, userID, sessionID string) error
	Delete(ctx context.Context, userID, sessionID string) error
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

// pathUUID validates that the named path parameter is a UUID.
func pathUUID(c *gin.Context, name string) (string, bool) {
	id := c.Param(name)
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, name+" must be a UUID")
		return "", false
	}
	return id, true
}

// CreateSessionRequest is the JSON payload for creating a session.
type CreateSessionRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

// UpdateSessionTitleRequest is the JSON payload for renaming a session.
type UpdateSessionTitleRequest struct {
	Title string `json:"title" binding:"required,min=1,max=255"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListSessionsResponse wraps a page of sessions and pagination information.
type ListSessionsResponse struct {
	Sessions   []domain.Session `json:"sessions"`
	Pagination Pagination       `json:"pagination"`
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// CreateSession creates a session for the current user; it starts in
// PLANNING and returns 201 with the session resource.
func (h *Handlers) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	sess, err := h.sessionSvc.Create(c.Request.Context(), userID(c), strings.TrimSpace(req.Title), req.Description)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, sess)
}

// ListSessions returns a page of the user's sessions.
func (h *Handlers) ListSessions(c *gin.Context) {
	page, pageSize := clampPagination(c)

	items, total, err := h.sessionSvc.ListPage(c.Request.Context(), userID(c), page, pageSize)
	if err != nil {
		failService(c, err)
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListSessionsResponse{
		Sessions: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetSession fetches one session owned by the current user.
func (h *Handlers) GetSession(c *gin.Context) {
	id, okID := pathUUID(c, "id")
	if !okID {
		return
	}
	sess, err := h.sessionSvc.Get(c.Request.Context(), userID(c), id)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, sess)
}

// UpdateSessionTitle renames a session owned by the current user.
func (h *Handlers) UpdateSessionTitle(c *gin.Context) {
	id, okID := pathUUID(c, "id")
	if !okID {
		return
	}
	var req UpdateSessionTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title required (1–255 chars)")
		return
	}
	if err := h.sessionSvc.UpdateTitle(c.Request.Context(), userID(c), id, req.Title); err != nil {
		failService(c, err)
		return
	}
	noContent(c)
}

// CompleteSession transitions an ACTIVE session to COMPLETED.
func (h *Handlers) CompleteSession(c *gin.Context) {
	id, okID := pathUUID(c, "id")
	if !okID {
		return
	}
	if err := h.sessionSvc.Complete(c.Request.Context(), userID(c), id); err != nil {
		failService(c, err)
		return
	}
	noContent(c)
}

// DeleteSession removes a session and everything under it.
func (h *Handlers) DeleteSession(c *gin.Context) {
	id, okID := pathUUID(c, "id")
	if !okID {
		return
	}
	if err := h.sessionSvc.Delete(c.Request.Context(), userID(c), id); err != nil {
		failService(c, err)
		return
	}
	noContent(c)
}
