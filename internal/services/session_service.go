// Package services – SessionService
//
// This file implements the SessionService, which manages study session
// metadata and the coarse lifecycle transitions that need no orchestration:
// creation (always in PLANNING), listing with pagination, title updates,
// completion, and deletion. The PLANNING → ACTIVE transition is owned by
// StudyService, which materializes the plan atomically with it.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/caky/go-study-backend/internal/domain"
	"github.com/caky/go-study-backend/internal/repo"
)

// SessionService provides CRUD-level operations on study sessions.
type SessionService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// TitleMaxLen caps stored titles by rune length.
	TitleMaxLen int
}

// NewSessionService constructs a SessionService with sane defaults.
func NewSessionService(db *gorm.DB) *SessionService {
	return &SessionService{DB: db, TitleMaxLen: 120}
}

// Create inserts a new session owned by userID, starting in PLANNING.
// Titles are normalized, trimmed, clipped, and a default fallback is applied.
func (s *SessionService) Create(ctx context.Context, userID, title string, description *string) (*domain.Session, error) {
	title = normalizeTitle(title)
	if title == "" {
		title = "New session"
	}
	return repo.CreateSession(ctx, s.DB, userID, s.clip(title), description)
}

// List returns all sessions for a user (non-paginated).
func (s *SessionService) List(ctx context.Context, userID string) ([]domain.Session, error) {
	return repo.ListSessions(ctx, s.DB, userID)
}

// ListPage returns a page of sessions for a user, plus the total count.
// It applies defaults for invalid page/pageSize.
func (s *SessionService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Session, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountSessions(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Session{}, 0, nil
	}

	items, err := repo.ListSessionsPage(ctx, s.DB, userID, offset, pageSize)
	return items, total, err
}

// Get fetches a session by ID, enforcing ownership.
func (s *SessionService) Get(ctx context.Context, userID, sessionID string) (*domain.Session, error) {
	sess, err := repo.GetSession(ctx, s.DB, sessionID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	return sess, err
}

// UpdateTitle updates a session's title. Falls back to "Untitled" if blank.
func (s *SessionService) UpdateTitle(ctx context.Context, userID, sessionID, title string) error {
	title = normalizeTitle(title)
	if title == "" {
		title = "Untitled"
	}
	err := repo.UpdateSessionTitle(ctx, s.DB, sessionID, userID, s.clip(title))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrSessionNotFound
	}
	return err
}

// Complete transitions an ACTIVE session to COMPLETED.
func (s *SessionService) Complete(ctx context.Context, userID, sessionID string) error {
	sess, err := s.Get(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if sess.Status != domain.SessionActive {
		return ErrInvalidState
	}
	err = repo.UpdateSessionStatus(ctx, s.DB, sessionID, userID, domain.SessionCompleted)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrSessionNotFound
	}
	return err
}

// Delete removes a session and, via FK cascades, everything under it.
func (s *SessionService) Delete(ctx context.Context, userID, sessionID string) error {
	err := repo.DeleteSession(ctx, s.DB, sessionID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrSessionNotFound
	}
	return err
}

// clip truncates a title to the configured maximum rune length.
func (s *SessionService) clip(title string) string {
	if s.TitleMaxLen > 0 && utf8.RuneCountInString(title) > s.TitleMaxLen {
		return string([]rune(title)[:s.TitleMaxLen])
	}
	return title
}

// normalizeTitle trims whitespace and collapses multiple spaces to one.
func normalizeTitle(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
