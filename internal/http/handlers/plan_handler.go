// Plan HTTP handlers.
//
// This file exposes REST endpoints for the versioned study plan:
//   - POST   /sessions/{id}/plan/generate          (initial generation)
//   - POST   /sessions/{id}/plan/revisions         (revise with instruction)
//   - DELETE /sessions/{id}/plan/revisions/latest  (undo)
//   - GET    /sessions/{id}/plan/revisions         (history, newest first)
//   - PATCH  /sessions/{id}/plan/topics/{topicID}  (draft completion toggle)
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/caky/go-study-backend/internal/domain"
)

// PlanService defines plan revision operations consumed by HTTP handlers.
type PlanService interface {
	Generate(ctx context.Context, userID, sessionID, lang string) (*domain.PlanRevision, error)
	Revise(ctx context.Context, userID, sessionID, instruction, lang string) (*domain.PlanRevision, error)
	Undo(ctx context.Context, userID, sessionID string) (*domain.PlanRevision, error)
	History(ctx context.Context, userID, sessionID string) ([]domain.PlanRevision, error)
	SetDraftTopicCompletion(ctx context.Context, userID, sessionID, topicID string, done bool) (*domain.DraftPlan, error)
}

// GeneratePlanRequest is the JSON payload for initial plan generation.
type GeneratePlanRequest struct {
	Language string `json:"language"`
}

// RevisePlanRequest is the JSON payload for a plan revision.
type RevisePlanRequest struct {
	Instruction string `json:"instruction" binding:"required"`
	Language    string `json:"language"`
}

// PatchTopicRequest toggles a topic's completion flag.
type PatchTopicRequest struct {
	IsCompleted *bool `json:"is_completed" binding:"required"`
}

// PlanRevisionResponse is the wire shape of one revision; the stored JSON is
// embedded verbatim so clients see exactly the persisted bytes.
type PlanRevisionResponse struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"session_id"`
	Version     int             `json:"version"`
	Content     json.RawMessage `json:"content"`
	Instruction *string         `json:"instruction,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

func revisionResponse(r *domain.PlanRevision) PlanRevisionResponse {
	return PlanRevisionResponse{
		ID:          r.ID,
		SessionID:   r.SessionID,
		Version:     r.Version,
		Content:     json.RawMessage(r.ContentJSON),
		Instruction: r.Instruction,
		CreatedAt:   r.CreatedAt,
	}
}

// GeneratePlan creates revision 1 from the session's processed documents.
func (h *Handlers) GeneratePlan(c *gin.Context) {
	sessionID, okID := pathUUID(c, "id")
	if !okID {
		return
	}
	var req GeneratePlanRequest
	_ = c.ShouldBindJSON(&req) // body optional

	rev, err := h.planSvc.Generate(c.Request.Context(), userID(c), sessionID, req.Language)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, revisionResponse(rev))
}

// RevisePlan applies a student instruction, appending a new revision.
func (h *Handlers) RevisePlan(c *gin.Context) {
	sessionID, okID := pathUUID(c, "id")
	if !okID {
		return
	}
	var req RevisePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Instruction) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "instruction required")
		return
	}

	rev, err := h.planSvc.Revise(c.Request.Context(), userID(c), sessionID, req.Instruction, req.Language)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, revisionResponse(rev))
}

// UndoPlanRevision deletes the latest revision and returns the restored one.
func (h *Handlers) UndoPlanRevision(c *gin.Context) {
	sessionID, okID := pathUUID(c, "id")
	if !okID {
		return
	}
	rev, err := h.planSvc.Undo(c.Request.Context(), userID(c), sessionID)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, revisionResponse(rev))
}

// PlanHistory lists all revisions, newest first.
func (h *Handlers) PlanHistory(c *gin.Context) {
	sessionID, okID := pathUUID(c, "id")
	if !okID {
		return
	}
	revs, err := h.planSvc.History(c.Request.Context(), userID(c), sessionID)
	if err != nil {
		failService(c, err)
		return
	}
	out := make([]PlanRevisionResponse, 0, len(revs))
	for i := range revs {
		out = append(out, revisionResponse(&revs[i]))
	}
	ok(c, http.StatusOK, gin.H{"revisions": out})
}

// PatchDraftTopic toggles completion of one draft plan topic. For
// materialized topics, PatchTopic on the study routes applies instead.
func (h *Handlers) PatchDraftTopic(c *gin.Context) {
	sessionID, okID := pathUUID(c, "id")
	if !okID {
		return
	}
	topicID := c.Param("topicID")
	if strings.TrimSpace(topicID) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "topicID required")
		return
	}
	var req PatchTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsCompleted == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "is_completed required")
		return
	}

	draft, err := h.planSvc.SetDraftTopicCompletion(c.Request.Context(), userID(c), sessionID, topicID, *req.IsCompleted)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, draft)
}
