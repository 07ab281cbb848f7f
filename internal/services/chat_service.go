// Package services – ChatService
//
// This file implements the ChatService, which handles tutoring
// conversations in materialized sessions. Each send assembles a system
// prompt from the chat kind, the session's study plan progress, and the
// extracted document texts, replays a bounded window of recent history,
// and persists both sides of the exchange.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"github.com/caky/go-study-backend/internal/domain"
	"github.com/caky/go-study-backend/internal/llm"
	"github.com/caky/go-study-backend/internal/repo"
)

// chatHistoryLimit is the number of prior messages replayed to the model.
const chatHistoryLimit = 20

// SendResult carries both persisted sides of one exchange.
type SendResult struct {
	UserMessage      *domain.Message
	AssistantMessage *domain.Message
}

// ChatService answers student messages in topic and review chats.
type ChatService struct {
	DB        *gorm.DB
	Completer llm.Completer

	// Model is the completion model used for chat replies.
	Model string
	// MaxPromptLen caps user messages by rune length.
	MaxPromptLen int
	// DefaultLanguage is the BCP 47 code used when a request carries none.
	DefaultLanguage string
	// IdempotencyTTL bounds how long a stored send can be replayed.
	IdempotencyTTL time.Duration
}

// NewChatService constructs a ChatService with sane defaults.
func NewChatService(db *gorm.DB, c llm.Completer, model string) *ChatService {
	return &ChatService{
		DB:              db,
		Completer:       c,
		Model:           model,
		MaxPromptLen:    8000,
		DefaultLanguage: "en",
		IdempotencyTTL:  24 * time.Hour,
	}
}

// ListChats returns the chats of a session, topic chats first.
func (s *ChatService) ListChats(ctx context.Context, userID, sessionID string) ([]domain.Chat, error) {
	if _, err := s.session(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return repo.ListChats(ctx, s.DB, sessionID)
}

// GetChat fetches one chat of a session.
func (s *ChatService) GetChat(ctx context.Context, userID, sessionID, chatID string) (*domain.Chat, error) {
	if _, err := s.session(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	chat, err := repo.GetChat(ctx, s.DB, chatID, sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrChatNotFound
	}
	return chat, err
}

// ListMessages returns one page of a chat's messages in chronological order
// along with the total count.
func (s *ChatService) ListMessages(ctx context.Context, userID, sessionID, chatID string, page, pageSize int) ([]domain.Message, int64, error) {
	if _, err := s.GetChat(ctx, userID, sessionID, chatID); err != nil {
		return nil, 0, err
	}
	total, err := repo.CountMessages(ctx, s.DB, chatID)
	if err != nil {
		return nil, 0, err
	}
	msgs, err := repo.ListMessagesPage(ctx, s.DB, chatID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

// Send persists the student's message, asks the tutor model for a reply
// with the recent history replayed, and persists the reply. The first user
// message in a chat also flips is_started.
//
// The user message is persisted before the model call: if the upstream
// fails, the student's words are not lost and a retry replays them as
// history.
func (s *ChatService) Send(ctx context.Context, userID, sessionID, chatID, content, lang string) (*SendResult, error) {
	ctx, span := otel.Tracer("services/chat").Start(ctx, "ChatService.Send")
	defer span.End()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyPrompt
	}
	if s.MaxPromptLen > 0 && utf8.RuneCountInString(content) > s.MaxPromptLen {
		return nil, ErrTooLong
	}

	sess, err := s.session(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != domain.SessionActive {
		return nil, ErrInvalidState
	}

	chat, err := repo.GetChat(ctx, s.DB, chatID, sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, err
	}

	system, err := s.systemPrompt(ctx, chat, lang)
	if err != nil {
		return nil, err
	}

	// History window is read before the new message is inserted.
	history, err := repo.ListRecentMessages(ctx, s.DB, chatID, chatHistoryLimit)
	if err != nil {
		return nil, err
	}

	userMsg, err := repo.CreateMessage(ctx, s.DB, chatID, "user", content)
	if err != nil {
		return nil, err
	}
	if !chat.IsStarted {
		if err := repo.MarkChatStarted(ctx, s.DB, chatID); err != nil {
			return nil, err
		}
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.System(system))
	for _, m := range history {
		messages = append(messages, llm.Message{Role: m.Role, Text: m.Content})
	}
	messages = append(messages, llm.User(content))

	reply, err := s.Completer.Complete(ctx, s.Model, messages, 0)
	if err != nil {
		return nil, err
	}

	assistantMsg, err := repo.CreateMessage(ctx, s.DB, chatID, "assistant", reply)
	if err != nil {
		return nil, err
	}
	return &SendResult{UserMessage: userMsg, AssistantMessage: assistantMsg}, nil
}

// systemPrompt assembles the tutor persona for one chat from the session's
// documents and topic progress.
func (s *ChatService) systemPrompt(ctx context.Context, chat *domain.Chat, lang string) (string, error) {
	docs, err := repo.ListCompletedDocuments(ctx, s.DB, chat.SessionID)
	if err != nil {
		return "", err
	}
	docCtx := noMaterialsChat
	if len(docs) > 0 {
		docCtx = materialContext(docs, "\n\n")
	}

	topics, err := repo.ListTopics(ctx, s.DB, chat.SessionID)
	if err != nil {
		return "", err
	}
	plan := studyPlanContext(topics)

	if chat.IsTopicChat() {
		topic, err := repo.GetTopic(ctx, s.DB, *chat.TopicID, chat.SessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", ErrTopicNotFound
			}
			return "", err
		}
		return renderTopicPrompt(topic.Title, plan, docCtx, s.lang(lang)), nil
	}
	return renderReviewPrompt(plan, docCtx, s.lang(lang)), nil
}

func (s *ChatService) session(ctx context.Context, userID, sessionID string) (*domain.Session, error) {
	sess, err := repo.GetSession(ctx, s.DB, sessionID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	return sess, err
}

func (s *ChatService) lang(code string) string {
	if code == "" {
		return s.DefaultLanguage
	}
	return code
}
