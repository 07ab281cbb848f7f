// Study-stage and chat HTTP handlers.
//
// This file exposes REST endpoints for materialization and tutoring chats:
//   - POST  /sessions/{id}/start                     (materialize plan)
//   - GET   /sessions/{id}/topics                    (list topics)
//   - PATCH /sessions/{id}/topics/{topicID}          (completion toggle)
//   - GET   /sessions/{id}/chats                     (list chats)
//   - GET   /sessions/{id}/chats/{chatID}            (fetch one)
//   - GET   /sessions/{id}/chats/{chatID}/messages   (history, paginated)
//   - POST  /sessions/{id}/chats/{chatID}/messages   (send)
//
// Send honors Idempotency-Key: a repeated key within its TTL serves the
// stored exchange instead of running the model again.
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/caky/go-study-backend/internal/domain"
	"github.com/caky/go-study-backend/internal/http/middleware"
	"github.com/caky/go-study-backend/internal/repo"
	"github.com/caky/go-study-backend/internal/services"
)

// StudyService defines materialization operations consumed by HTTP handlers.
type StudyService interface {
	StartStudying(ctx context.Context, userID, sessionID, lang string) (*services.StartResult, error)
	ListTopics(ctx context.Context, userID, sessionID string) ([]domain.Topic, error)
	SetTopicCompletion(ctx context.Context, userID, sessionID, topicID string, done bool) error
}

// ChatService defines chat operations consumed by HTTP handlers.
type ChatService interface {
	ListChats(ctx context.Context, userID, sessionID string) ([]domain.Chat, error)
	GetChat(ctx context.Context, userID, sessionID, chatID string) (*domain.Chat, error)
	ListMessages(ctx context.Context, userID, sessionID, chatID string, page, pageSize int) ([]domain.Message, int64, error)
	Send(ctx context.Context, userID, sessionID, chatID, content, lang string) (*services.SendResult, error)
}

// StartStudyingRequest is the JSON payload for materialization.
type StartStudyingRequest struct {
	Language string `json:"language"`
}

// SendMessageRequest is the JSON payload for a chat message.
type SendMessageRequest struct {
	Content  string `json:"content" binding:"required"`
	Language string `json:"language"`
}

// StartStudying materializes the draft plan into topics and chats and flips
// the session to ACTIVE. Welcome messages are generated asynchronously.
func (h *Handlers) StartStudying(c *gin.Context) {
	sessionID, okID := pathUUID(c, "id")
	if !okID {
		return
	}
	var req StartStudyingRequest
	_ = c.ShouldBindJSON(&req) // body optional

	res, err := h.studySvc.StartStudying(c.Request.Context(), userID(c), sessionID, req.Language)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{
		"session": res.Session,
		"topics":  res.Topics,
		"chats":   res.Chats,
	})
}

// ListTopics returns the materialized topics of a session in study order.
func (h *Handlers) ListTopics(c *gin.Context) {
	sessionID, okID := pathUUID(c, "id")
	if !okID {
		return
	}
	topics, err := h.studySvc.ListTopics(c.Request.Context(), userID(c), sessionID)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"topics": topics})
}

// PatchTopic toggles completion of a materialized topic.
func (h *Handlers) PatchTopic(c *gin.Context) {
	sessionID, okID := pathUUID(c, "id")
	if !okID {
		return
	}
	topicID, okID := pathUUID(c, "topicID")
	if !okID {
		return
	}
	var req PatchTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsCompleted == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "is_completed required")
		return
	}
	if err := h.studySvc.SetTopicCompletion(c.Request.Context(), userID(c), sessionID, topicID, *req.IsCompleted); err != nil {
		failService(c, err)
		return
	}
	noContent(c)
}

// ListChats returns the chats of a session, topic chats first.
func (h *Handlers) ListChats(c *gin.Context) {
	sessionID, okID := pathUUID(c, "id")
	if !okID {
		return
	}
	chats, err := h.chatSvc.ListChats(c.Request.Context(), userID(c), sessionID)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"chats": chats})
}

// GetChat fetches one chat of a session.
func (h *Handlers) GetChat(c *gin.Context) {
	sessionID, okID := pathUUID(c, "id")
	if !okID {
		return
	}
	chatID, okID := pathUUID(c, "chatID")
	if !okID {
		return
	}
	chat, err := h.chatSvc.GetChat(c.Request.Context(), userID(c), sessionID, chatID)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, chat)
}

// ListMessagesResponse wraps a page of messages and pagination information.
type ListMessagesResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

// ListMessages returns a page of a chat's messages in chronological order.
func (h *Handlers) ListMessages(c *gin.Context) {
	sessionID, okID := pathUUID(c, "id")
	if !okID {
		return
	}
	chatID, okID := pathUUID(c, "chatID")
	if !okID {
		return
	}
	page, pageSize := clampPagination(c)

	msgs, total, err := h.chatSvc.ListMessages(c.Request.Context(), userID(c), sessionID, chatID, page, pageSize)
	if err != nil {
		failService(c, err)
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListMessagesResponse{
		Messages: msgs,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// SendMessage posts a student message and returns both persisted sides of
// the exchange. When the request carries an Idempotency-Key already recorded
// for this user and chat, the stored exchange is served with a 200 and an
// Idempotency-Replayed header instead of invoking the model again.
func (h *Handlers) SendMessage(c *gin.Context) {
	sessionID, okID := pathUUID(c, "id")
	if !okID {
		return
	}
	chatID, okID := pathUUID(c, "chatID")
	if !okID {
		return
	}
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}

	ctx := c.Request.Context()
	currentUser := userID(c)

	idemKey, _ := middleware.GetIdempotencyKey(c)
	svc, okSvc := h.chatSvc.(*services.ChatService)
	if idemKey != "" && okSvc && svc.DB != nil {
		if rec, err := repo.GetIdempotency(ctx, svc.DB, currentUser, chatID, idemKey, time.Now().UTC()); err == nil && rec != nil {
			if assistant, err2 := repo.GetMessage(ctx, svc.DB, rec.ResourceID, chatID); err2 == nil {
				userMsg, _ := repo.LastUserMessageBefore(ctx, svc.DB, chatID, assistant.CreatedAt)
				c.Header("Idempotency-Replayed", "true")
				ok(c, http.StatusOK, gin.H{
					"user_message":      userMsg,
					"assistant_message": assistant,
				})
				return
			}
		}
	}

	res, err := h.chatSvc.Send(ctx, currentUser, sessionID, chatID, req.Content, req.Language)
	if err != nil {
		failService(c, err)
		return
	}

	if idemKey != "" && okSvc && svc.DB != nil {
		// Best effort; a failed write must not fail the send.
		_, _ = repo.CreateIdempotency(ctx, svc.DB, currentUser, chatID, idemKey, res.AssistantMessage.ID, http.StatusCreated, svc.IdempotencyTTL)
	}

	ok(c, http.StatusCreated, gin.H{
		"user_message":      res.UserMessage,
		"assistant_message": res.AssistantMessage,
	})
}
