// Package services – DocumentService
//
// This file implements the DocumentService, which owns the document status
// ledger. Upload stores the raw file, records a PENDING row, and spawns a
// detached extraction job; the job drives the row through PROCESSING to
// COMPLETED or FAILED. The HTTP request never waits on extraction.
package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"github.com/caky/go-study-backend/internal/domain"
	"github.com/caky/go-study-backend/internal/ingest"
	"github.com/caky/go-study-backend/internal/repo"
	"github.com/caky/go-study-backend/internal/storage"
	"github.com/caky/go-study-backend/internal/tasks"
)

// Extractor turns a raw PDF into document text; *ingest.Pipeline is the
// production implementation.
type Extractor interface {
	Extract(ctx context.Context, pdf []byte) (*ingest.Result, error)
}

// DocumentService manages document upload, extraction, and retrieval.
type DocumentService struct {
	DB        *gorm.DB
	Store     storage.Store
	Extractor Extractor
	Spawner   tasks.Spawner

	// SignedURLTTL bounds download links handed to clients.
	SignedURLTTL time.Duration
}

// NewDocumentService constructs a DocumentService with a 15-minute
// download-link TTL.
func NewDocumentService(db *gorm.DB, store storage.Store, ex Extractor, sp tasks.Spawner) *DocumentService {
	return &DocumentService{
		DB:           db,
		Store:        store,
		Extractor:    ex,
		Spawner:      sp,
		SignedURLTTL: 15 * time.Minute,
	}
}

// Upload stores the file, records a PENDING document, and spawns the
// extraction job. It returns as soon as the row exists; callers observe
// extraction progress through the document's processing_status.
//
// Uploads are only accepted while the session is in PLANNING.
func (s *DocumentService) Upload(ctx context.Context, userID, sessionID, fileName string, data []byte) (*domain.Document, error) {
	ctx, span := otel.Tracer("services/document").Start(ctx, "DocumentService.Upload")
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

	fileName = sanitizeFileName(fileName)
	filePath := path.Join("sessions", sessionID, fmt.Sprintf("%d-%s", time.Now().UTC().UnixNano(), fileName))

	if err := s.Store.Put(ctx, filePath, "application/pdf", data); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	doc, err := repo.CreateDocument(ctx, s.DB, sessionID, fileName, filePath)
	if err != nil {
		return nil, err
	}

	s.Spawner.Go("extract-document", func(jobCtx context.Context) {
		s.process(jobCtx, doc.ID, filePath)
	})
	return doc, nil
}

// Reprocess re-queues extraction for a FAILED document. The row is reclaimed
// back to PENDING with its failure reason cleared, and a fresh extraction job
// drives it through PROCESSING again. Documents in any other state cannot be
// reprocessed.
func (s *DocumentService) Reprocess(ctx context.Context, userID, sessionID, docID string) (*domain.Document, error) {
	ctx, span := otel.Tracer("services/document").Start(ctx, "DocumentService.Reprocess")
	defer span.End()

	doc, err := s.Get(ctx, userID, sessionID, docID)
	if err != nil {
		return nil, err
	}
	if doc.ProcessingStatus != domain.ProcessingFailed {
		return nil, ErrInvalidState
	}

	if err := repo.ReclaimFailedDocument(ctx, s.DB, docID, sessionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Lost a race with a concurrent reprocess.
			return nil, ErrInvalidState
		}
		return nil, err
	}
	doc.ProcessingStatus = domain.ProcessingPending
	doc.ProcessingError = nil

	filePath := doc.FilePath
	s.Spawner.Go("extract-document", func(jobCtx context.Context) {
		s.process(jobCtx, docID, filePath)
	})
	return doc, nil
}

// process is the detached extraction job. Every failure path lands the
// document in FAILED with a queryable reason; nothing is retried here, the
// client re-uploads or calls Reprocess instead.
func (s *DocumentService) process(ctx context.Context, docID, filePath string) {
	ctx, span := otel.Tracer("services/document").Start(ctx, "DocumentService.process")
	defer span.End()

	logger := log.With().Str("document_id", docID).Logger()

	if err := repo.MarkDocumentProcessing(ctx, s.DB, docID); err != nil {
		// Row gone or not PENDING anymore; nothing to do.
		logger.Warn().Err(err).Msg("document not claimable for processing")
		return
	}

	pdf, err := s.Store.Get(ctx, filePath)
	if err != nil {
		s.fail(ctx, logger, docID, "download source file: "+err.Error())
		return
	}

	res, err := s.Extractor.Extract(ctx, pdf)
	if err != nil {
		s.fail(ctx, logger, docID, err.Error())
		return
	}

	if err := repo.CompleteDocument(ctx, s.DB, docID, res.Text, res.PageCount); err != nil {
		logger.Error().Err(err).Msg("persist extraction result")
		return
	}
	logger.Info().Int("pages", res.PageCount).Msg("document extraction completed")
}

func (s *DocumentService) fail(ctx context.Context, logger zerolog.Logger, docID, reason string) {
	logger.Error().Str("reason", reason).Msg("document extraction failed")
	if err := repo.FailDocument(ctx, s.DB, docID, reason); err != nil {
		logger.Error().Err(err).Msg("persist extraction failure")
	}
}

// List returns a session's documents in upload order.
func (s *DocumentService) List(ctx context.Context, userID, sessionID string) ([]domain.Document, error) {
	if _, err := s.session(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return repo.ListDocuments(ctx, s.DB, sessionID)
}

// Get fetches one document of a session.
func (s *DocumentService) Get(ctx context.Context, userID, sessionID, docID string) (*domain.Document, error) {
	if _, err := s.session(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	doc, err := repo.GetDocument(ctx, s.DB, docID, sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDocumentNotFound
	}
	return doc, err
}

// DownloadURL returns a time-limited link to the raw uploaded file.
func (s *DocumentService) DownloadURL(ctx context.Context, userID, sessionID, docID string) (string, error) {
	doc, err := s.Get(ctx, userID, sessionID, docID)
	if err != nil {
		return "", err
	}
	return s.Store.SignedURL(ctx, doc.FilePath, s.SignedURLTTL)
}

// Delete removes the document row and best-effort deletes the stored file.
func (s *DocumentService) Delete(ctx context.Context, userID, sessionID, docID string) error {
	doc, err := s.Get(ctx, userID, sessionID, docID)
	if err != nil {
		return err
	}
	if err := repo.DeleteDocument(ctx, s.DB, docID, sessionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDocumentNotFound
		}
		return err
	}
	if err := s.Store.Delete(ctx, doc.FilePath); err != nil {
		// The row is gone; an orphaned object is tolerable.
		log.Warn().Err(err).Str("path", doc.FilePath).Msg("delete stored object")
	}
	return nil
}

func (s *DocumentService) session(ctx context.Context, userID, sessionID string) (*domain.Session, error) {
	sess, err := repo.GetSession(ctx, s.DB, sessionID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	return sess, err
}

// sanitizeFileName strips path separators and control characters so the
// client-supplied name is safe to embed in an object path.
func sanitizeFileName(name string) string {
	name = strings.TrimSpace(path.Base(strings.ReplaceAll(name, "\\", "/")))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == "/" {
		return "document.pdf"
	}
	return name
}
