// Package services – StudyService
//
// This file implements the stage materializer: the single transaction that
// turns a PLANNING session with a draft plan into an ACTIVE session with
// topics and chats, plus the detached welcome-message fan-out that runs
// after the transaction commits.
package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/caky/go-study-backend/internal/domain"
	"github.com/caky/go-study-backend/internal/llm"
	"github.com/caky/go-study-backend/internal/repo"
	"github.com/caky/go-study-backend/internal/tasks"
)

// welcomeConcurrency caps parallel welcome-message generations per session.
const welcomeConcurrency = 4

// noMaterialsWelcome is the stand-in context for welcome prompts when no
// document finished extraction.
const noMaterialsWelcome = "Nenhum material de estudo foi processado ainda."

// StartResult is what materialization produced.
type StartResult struct {
	Session *domain.Session
	Topics  []domain.Topic
	Chats   []domain.Chat
}

// StudyService materializes draft plans and fans out welcome messages.
type StudyService struct {
	DB        *gorm.DB
	Completer llm.Completer
	Spawner   tasks.Spawner

	// Model is the completion model used for welcome messages.
	Model string
	// DefaultLanguage is the BCP 47 code used when a request carries none.
	DefaultLanguage string
}

// NewStudyService constructs a StudyService.
func NewStudyService(db *gorm.DB, c llm.Completer, sp tasks.Spawner, model string) *StudyService {
	return &StudyService{DB: db, Completer: c, Spawner: sp, Model: model, DefaultLanguage: "en"}
}

// StartStudying materializes the session's draft plan: every draft topic
// becomes a Topic row (order preserved, completion flags carried over),
// each topic gets a TOPIC_SPECIFIC chat, one GENERAL_REVIEW chat is added,
// and the session flips to ACTIVE with its draft cleared — all in one
// transaction. Either the full study stage exists afterwards or nothing
// changed.
//
// After the commit a detached job generates a welcome message per chat.
// Welcome failures never undo materialization; an unwelcomed chat just
// waits for the student's first message.
func (s *StudyService) StartStudying(ctx context.Context, userID, sessionID, lang string) (*StartResult, error) {
	ctx, span := otel.Tracer("services/study").Start(ctx, "StudyService.StartStudying")
	defer span.End()

	sess, err := repo.GetSession(ctx, s.DB, sessionID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if sess.Status != domain.SessionPlanning {
		return nil, ErrInvalidState
	}
	if sess.DraftPlan == nil {
		return nil, ErrNoPlan
	}
	draft, err := domain.ParseDraftPlan(*sess.DraftPlan)
	if err != nil {
		return nil, err
	}
	if len(draft.Topics) == 0 {
		return nil, ErrNoPlan
	}

	var (
		topics []domain.Topic
		chats  []domain.Chat
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		topics, err = repo.CreateTopics(ctx, tx, sessionID, draft.Topics)
		if err != nil {
			return err
		}
		chats = make([]domain.Chat, 0, len(topics)+1)
		for _, t := range topics {
			chats = append(chats, repo.NewTopicChat(sessionID, t.ID))
		}
		chats = append(chats, repo.NewReviewChat(sessionID))
		if err := repo.CreateChats(ctx, tx, chats); err != nil {
			return err
		}
		if err := repo.ActivateSession(ctx, tx, sessionID, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Lost a race with a concurrent start.
				return ErrInvalidState
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sess.Status = domain.SessionActive
	sess.DraftPlan = nil

	langCode := s.lang(lang)
	s.Spawner.Go("welcome-fanout", func(jobCtx context.Context) {
		s.fanOutWelcomes(jobCtx, sessionID, topics, chats, langCode)
	})

	return &StartResult{Session: sess, Topics: topics, Chats: chats}, nil
}

// fanOutWelcomes generates one welcome message per chat. Each chat is an
// independent job inside the group; a failure is logged against its chat
// and does not cancel the siblings.
func (s *StudyService) fanOutWelcomes(ctx context.Context, sessionID string, topics []domain.Topic, chats []domain.Chat, lang string) {
	ctx, span := otel.Tracer("services/study").Start(ctx, "StudyService.fanOutWelcomes")
	defer span.End()

	titles := make(map[string]string, len(topics))
	completed := 0
	for _, t := range topics {
		titles[t.ID] = t.Title
		if t.IsCompleted {
			completed++
		}
	}

	docs, err := repo.ListCompletedDocuments(ctx, s.DB, sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("welcome fan-out: load documents")
		return
	}
	docCtx := noMaterialsWelcome
	if len(docs) > 0 {
		docCtx = materialContext(docs, "\n\n")
	}

	var g errgroup.Group
	g.SetLimit(welcomeConcurrency)
	for _, chat := range chats {
		g.Go(func() error {
			var system, instruction string
			if chat.IsTopicChat() {
				topicName := titles[*chat.TopicID]
				system = renderTopicPrompt(topicName, "", docCtx, lang)
				instruction = welcomeTopicInstruction(topicName)
			} else {
				system = renderReviewPrompt("", docCtx, lang)
				instruction = welcomeReviewInstruction(completed, len(topics))
			}

			text, err := s.Completer.Complete(ctx, s.Model, []llm.Message{llm.System(system), llm.User(instruction)}, 0)
			if err != nil {
				log.Error().Err(err).Str("chat_id", chat.ID).Msg("welcome generation failed")
				return nil
			}
			if _, err := repo.CreateMessage(ctx, s.DB, chat.ID, "assistant", text); err != nil {
				log.Error().Err(err).Str("chat_id", chat.ID).Msg("persist welcome message")
				return nil
			}
			if err := repo.MarkChatStarted(ctx, s.DB, chat.ID); err != nil {
				log.Error().Err(err).Str("chat_id", chat.ID).Msg("mark chat started")
			}
			return nil
		})
	}
	g.Wait()
	log.Info().Str("session_id", sessionID).Int("chats", len(chats)).Msg("welcome fan-out finished")
}

// ListTopics returns the materialized topics of a session in study order.
func (s *StudyService) ListTopics(ctx context.Context, userID, sessionID string) ([]domain.Topic, error) {
	if _, err := repo.GetSession(ctx, s.DB, sessionID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return repo.ListTopics(ctx, s.DB, sessionID)
}

// SetTopicCompletion toggles a materialized topic's completion flag.
// Draft-stage toggles go through PlanService instead.
func (s *StudyService) SetTopicCompletion(ctx context.Context, userID, sessionID, topicID string, done bool) error {
	sess, err := repo.GetSession(ctx, s.DB, sessionID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrSessionNotFound
	}
	if err != nil {
		return err
	}
	if sess.Status != domain.SessionActive {
		return ErrInvalidState
	}
	err = repo.SetTopicCompleted(ctx, s.DB, topicID, sessionID, done)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrTopicNotFound
	}
	return err
}

func (s *StudyService) lang(code string) string {
	if code == "" {
		return s.DefaultLanguage
	}
	return code
}
