// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// PlanRevision model — the append-only versioned log of a session's plan.
//
// Version numbers are always derived from the current maximum inside the
// caller's transaction, never cached: after an undo removes version 3, the
// next revision is version 3 again. The unique (session_id, version) index
// backstops any race the transaction misses.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caky/go-study-backend/internal/domain"
)

// MaxPlanVersion returns the highest revision version for a session, or 0
// when the session has no revisions.
func MaxPlanVersion(ctx context.Context, db *gorm.DB, sessionID string) (int, error) {
	var max *int
	err := db.WithContext(ctx).
		Model(&domain.PlanRevision{}).
		Where("session_id = ?", sessionID).
		Select("MAX(version)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

// CreatePlanRevision appends a revision with the given version. ContentJSON
// is stored exactly as passed, byte for byte.
func CreatePlanRevision(ctx context.Context, db *gorm.DB, sessionID string, version int, contentJSON []byte, instruction *string) (*domain.PlanRevision, error) {
	r := &domain.PlanRevision{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		Version:     version,
		ContentJSON: contentJSON,
		Instruction: instruction,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// GetPlanRevision fetches one revision by session and version.
func GetPlanRevision(ctx context.Context, db *gorm.DB, sessionID string, version int) (*domain.PlanRevision, error) {
	var r domain.PlanRevision
	err := db.WithContext(ctx).
		Where("session_id = ? AND version = ?", sessionID, version).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// LatestPlanRevision fetches the highest-versioned revision of a session.
func LatestPlanRevision(ctx context.Context, db *gorm.DB, sessionID string) (*domain.PlanRevision, error) {
	var r domain.PlanRevision
	err := db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("version desc").
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListPlanRevisions returns all revisions of a session, newest version first.
func ListPlanRevisions(ctx context.Context, db *gorm.DB, sessionID string) ([]domain.PlanRevision, error) {
	var out []domain.PlanRevision
	err := db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("version desc").
		Find(&out).Error
	return out, err
}

// CountPlanRevisions returns the number of revisions a session has.
func CountPlanRevisions(ctx context.Context, db *gorm.DB, sessionID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.PlanRevision{}).
		Where("session_id = ?", sessionID).
		Count(&total).Error
	return total, err
}

// DeletePlanRevision removes one revision by session and version.
// Returns ErrNotFound when no row matches.
func DeletePlanRevision(ctx context.Context, db *gorm.DB, sessionID string, version int) error {
	res := db.WithContext(ctx).
		Where("session_id = ? AND version = ?", sessionID, version).
		Delete(&domain.PlanRevision{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
