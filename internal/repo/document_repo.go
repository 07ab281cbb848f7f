// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Document
// model and its extraction status ledger.
//
// Status transitions are expressed as guarded UPDATEs: the expected current
// status appears in the WHERE clause, so a transition that lost a race (or
// targets a deleted document) affects zero rows and returns ErrNotFound
// instead of silently overwriting a terminal state.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caky/go-study-backend/internal/domain"
)

// CreateDocument inserts a new Document row in PENDING state.
func CreateDocument(ctx context.Context, db *gorm.DB, sessionID, fileName, filePath string) (*domain.Document, error) {
	d := &domain.Document{
		ID:               uuid.NewString(),
		SessionID:        sessionID,
		FileName:         fileName,
		FilePath:         filePath,
		ProcessingStatus: domain.ProcessingPending,
		CreatedAt:        time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

// ListDocuments returns all documents of a session, oldest first (upload order).
func ListDocuments(ctx context.Context, db *gorm.DB, sessionID string) ([]domain.Document, error) {
	var out []domain.Document
	err := db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// ListCompletedDocuments returns the session's documents whose extraction
// finished successfully, oldest first. Only these contribute material to
// plan generation and chat context.
func ListCompletedDocuments(ctx context.Context, db *gorm.DB, sessionID string) ([]domain.Document, error) {
	var out []domain.Document
	err := db.WithContext(ctx).
		Where("session_id = ? AND processing_status = ?", sessionID, domain.ProcessingCompleted).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// GetDocument fetches a single document by ID within a session.
func GetDocument(ctx context.Context, db *gorm.DB, id, sessionID string) (*domain.Document, error) {
	var d domain.Document
	err := db.WithContext(ctx).
		Where("id = ? AND session_id = ?", id, sessionID).
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// MarkDocumentProcessing transitions PENDING → PROCESSING.
func MarkDocumentProcessing(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("id = ? AND processing_status = ?", id, domain.ProcessingPending).
		Update("processing_status", domain.ProcessingProcessing)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CompleteDocument transitions PROCESSING → COMPLETED, storing the extracted
// text and page count in the same UPDATE.
func CompleteDocument(ctx context.Context, db *gorm.DB, id, content string, pageCount int) error {
	res := db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("id = ? AND processing_status = ?", id, domain.ProcessingProcessing).
		Updates(map[string]any{
			"content_text":      content,
			"page_count":        pageCount,
			"processing_status": domain.ProcessingCompleted,
			"processing_error":  nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FailDocument transitions PROCESSING → FAILED, recording the failure reason.
func FailDocument(ctx context.Context, db *gorm.DB, id, reason string) error {
	res := db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("id = ? AND processing_status = ?", id, domain.ProcessingProcessing).
		Updates(map[string]any{
			"processing_status": domain.ProcessingFailed,
			"processing_error":  reason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ReclaimFailedDocument transitions FAILED → PENDING, clearing the recorded
// failure reason so extraction can run again.
func ReclaimFailedDocument(ctx context.Context, db *gorm.DB, id, sessionID string) error {
	res := db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("id = ? AND session_id = ? AND processing_status = ?", id, sessionID, domain.ProcessingFailed).
		Updates(map[string]any{
			"processing_status": domain.ProcessingPending,
			"processing_error":  nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteDocument removes a document row. Returns ErrNotFound when no row matches.
func DeleteDocument(ctx context.Context, db *gorm.DB, id, sessionID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND session_id = ?", id, sessionID).
		Delete(&domain.Document{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
