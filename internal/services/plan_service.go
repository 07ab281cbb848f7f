// Package services – PlanService
//
// This file implements the PlanService, which owns the versioned plan
// revision log and its mirror, the session's draft plan. Every write keeps
// the two in lockstep inside one transaction: a revision row is appended
// (or, on undo, deleted) and the draft is replaced in the same commit.
//
// Version numbers are derived from the current maximum inside the
// transaction, so after undoing version 3 the next revision is version 3
// again — the log never has gaps.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"github.com/caky/go-study-backend/internal/domain"
	"github.com/caky/go-study-backend/internal/llm"
	"github.com/caky/go-study-backend/internal/repo"
)

// planDocSeparator joins document sections in planning prompts.
const planDocSeparator = "\n\n---\n\n"

// PlanService generates, revises, and undoes study plan revisions.
type PlanService struct {
	DB        *gorm.DB
	Completer llm.Completer

	// Model is the completion model used for plan generation.
	Model string
	// DefaultLanguage is the BCP 47 code used when a request carries none.
	DefaultLanguage string
}

// NewPlanService constructs a PlanService.
func NewPlanService(db *gorm.DB, c llm.Completer, model string) *PlanService {
	return &PlanService{DB: db, Completer: c, Model: model, DefaultLanguage: "en"}
}

// Generate produces the initial plan (version 1) from the session's
// processed documents. The session must be in PLANNING and must not have
// been generated before; iteration happens through Revise.
func (s *PlanService) Generate(ctx context.Context, userID, sessionID, lang string) (*domain.PlanRevision, error) {
	ctx, span := otel.Tracer("services/plan").Start(ctx, "PlanService.Generate")
	defer span.End()

	sess, err := s.planningSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	count, err := repo.CountPlanRevisions(ctx, s.DB, sessionID)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrInvalidState
	}

	docCtx, err := s.documentContext(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	desc := ""
	if sess.Description != nil {
		desc = *sess.Description
	}
	prompt := renderGeneratePrompt(sess.Title, desc, docCtx, s.lang(lang))

	raw, err := s.Completer.Complete(ctx, s.Model, []llm.Message{llm.User(prompt)}, 0)
	if err != nil {
		return nil, err
	}

	content, err := parsePlanJSON(raw)
	if err != nil {
		return nil, err
	}
	return s.appendRevision(ctx, userID, sessionID, content, nil)
}

// Revise applies a student instruction to the latest revision, appending a
// new version and replacing the draft.
func (s *PlanService) Revise(ctx context.Context, userID, sessionID, instruction, lang string) (*domain.PlanRevision, error) {
	ctx, span := otel.Tracer("services/plan").Start(ctx, "PlanService.Revise")
	defer span.End()

	if strings.TrimSpace(instruction) == "" {
		return nil, ErrEmptyPrompt
	}
	if _, err := s.planningSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	latest, err := repo.LatestPlanRevision(ctx, s.DB, sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoPlan
	}
	if err != nil {
		return nil, err
	}

	docCtx, err := s.documentContext(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	prompt := renderRevisePrompt(string(latest.ContentJSON), instruction, docCtx, s.lang(lang))
	raw, err := s.Completer.Complete(ctx, s.Model, []llm.Message{llm.User(prompt)}, 0)
	if err != nil {
		return nil, err
	}

	content, err := parsePlanJSON(raw)
	if err != nil {
		return nil, err
	}
	return s.appendRevision(ctx, userID, sessionID, content, &instruction)
}

// Undo deletes the latest revision and restores the draft from the one
// before it, byte for byte. Version 1 cannot be undone.
func (s *PlanService) Undo(ctx context.Context, userID, sessionID string) (*domain.PlanRevision, error) {
	ctx, span := otel.Tracer("services/plan").Start(ctx, "PlanService.Undo")
	defer span.End()

	if _, err := s.planningSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	var restored *domain.PlanRevision
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		max, err := repo.MaxPlanVersion(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		switch {
		case max == 0:
			return ErrNoPlan
		case max == 1:
			return ErrBaselineRevision
		}

		if err := repo.DeletePlanRevision(ctx, tx, sessionID, max); err != nil {
			return err
		}
		prev, err := repo.GetPlanRevision(ctx, tx, sessionID, max-1)
		if err != nil {
			return err
		}

		var content domain.PlanContent
		if err := json.Unmarshal(prev.ContentJSON, &content); err != nil {
			return fmt.Errorf("decode stored revision: %w", err)
		}
		draft, err := domain.EncodeDraftPlan(domain.DraftFromContent(&content))
		if err != nil {
			return err
		}
		if err := repo.UpdateSessionDraftPlan(ctx, tx, sessionID, userID, &draft); err != nil {
			return err
		}
		restored = prev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return restored, nil
}

// History returns all revisions of a session, newest first.
func (s *PlanService) History(ctx context.Context, userID, sessionID string) ([]domain.PlanRevision, error) {
	if _, err := s.session(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return repo.ListPlanRevisions(ctx, s.DB, sessionID)
}

// SetDraftTopicCompletion toggles one topic's completion flag on the draft
// plan. Only meaningful while the session is in PLANNING; after
// materialization, completion lives on Topic rows.
func (s *PlanService) SetDraftTopicCompletion(ctx context.Context, userID, sessionID, topicID string, done bool) (*domain.DraftPlan, error) {
	sess, err := s.planningSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.DraftPlan == nil {
		return nil, ErrNoPlan
	}
	draft, err := domain.ParseDraftPlan(*sess.DraftPlan)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range draft.Topics {
		if draft.Topics[i].ID == topicID {
			draft.Topics[i].IsCompleted = done
			found = true
			break
		}
	}
	if !found {
		return nil, ErrTopicNotFound
	}

	encoded, err := domain.EncodeDraftPlan(draft)
	if err != nil {
		return nil, err
	}
	if err := repo.UpdateSessionDraftPlan(ctx, s.DB, sessionID, userID, &encoded); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return draft, nil
}

// appendRevision writes the next revision and the refreshed draft in one
// transaction. ContentJSON is the canonical serialization of content; the
// bytes written here are the bytes History and Undo return later.
func (s *PlanService) appendRevision(ctx context.Context, userID, sessionID string, content *domain.PlanContent, instruction *string) (*domain.PlanRevision, error) {
	contentJSON, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}
	draft, err := domain.EncodeDraftPlan(domain.DraftFromContent(content))
	if err != nil {
		return nil, err
	}

	var rev *domain.PlanRevision
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		max, err := repo.MaxPlanVersion(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		rev, err = repo.CreatePlanRevision(ctx, tx, sessionID, max+1, contentJSON, instruction)
		if err != nil {
			return err
		}
		return repo.UpdateSessionDraftPlan(ctx, tx, sessionID, userID, &draft)
	})
	if err != nil {
		return nil, err
	}
	return rev, nil
}

// documentContext joins the session's processed documents for planning
// prompts, failing with ErrNoDocuments when none completed extraction.
func (s *PlanService) documentContext(ctx context.Context, sessionID string) (string, error) {
	docs, err := repo.ListCompletedDocuments(ctx, s.DB, sessionID)
	if err != nil {
		return "", err
	}
	if len(docs) == 0 {
		return "", ErrNoDocuments
	}
	return materialContext(docs, planDocSeparator), nil
}

func (s *PlanService) session(ctx context.Context, userID, sessionID string) (*domain.Session, error) {
	sess, err := repo.GetSession(ctx, s.DB, sessionID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	return sess, err
}

func (s *PlanService) planningSession(ctx context.Context, userID, sessionID string) (*domain.Session, error) {
	sess, err := s.session(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != domain.SessionPlanning {
		return nil, ErrInvalidState
	}
	return sess, nil
}

func (s *PlanService) lang(code string) string {
	if strings.TrimSpace(code) == "" {
		return s.DefaultLanguage
	}
	return code
}

// parsePlanJSON extracts and validates the JSON plan from a model response.
// Models occasionally wrap output in markdown fences or prose; everything
// outside the outermost braces is discarded before decoding.
func parsePlanJSON(raw string) (*domain.PlanContent, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object in response", ErrMalformedGeneration)
	}
	var content domain.PlanContent
	if err := json.Unmarshal([]byte(raw[start:end+1]), &content); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedGeneration, err)
	}
	if err := content.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedGeneration, err)
	}
	return &content, nil
}
