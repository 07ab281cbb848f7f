// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Topic model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caky/go-study-backend/internal/domain"
)

// CreateTopics inserts all topics of a session in a single batch, assigning
// UUIDs and sequential order indices from the slice order. The materializer
// calls this inside a transaction; topics are never inserted one by one.
func CreateTopics(ctx context.Context, db *gorm.DB, sessionID string, drafts []domain.DraftTopic) ([]domain.Topic, error) {
	now := time.Now().UTC()
	topics := make([]domain.Topic, 0, len(drafts))
	for i, dt := range drafts {
		var desc *string
		if dt.Description != "" {
			d := dt.Description
			desc = &d
		}
		topics = append(topics, domain.Topic{
			ID:          uuid.NewString(),
			SessionID:   sessionID,
			Title:       dt.Title,
			Description: desc,
			OrderIndex:  i,
			IsCompleted: dt.IsCompleted,
			CreatedAt:   now,
		})
	}
	if len(topics) == 0 {
		return topics, nil
	}
	if err := db.WithContext(ctx).Create(&topics).Error; err != nil {
		return nil, err
	}
	return topics, nil
}

// ListTopics returns the topics of a session in study order.
func ListTopics(ctx context.Context, db *gorm.DB, sessionID string) ([]domain.Topic, error) {
	var out []domain.Topic
	err := db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("order_index asc").
		Find(&out).Error
	return out, err
}

// GetTopic fetches a single topic by ID within a session.
func GetTopic(ctx context.Context, db *gorm.DB, id, sessionID string) (*domain.Topic, error) {
	var t domain.Topic
	err := db.WithContext(ctx).
		Where("id = ? AND session_id = ?", id, sessionID).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// SetTopicCompleted updates the completion flag of a materialized topic.
func SetTopicCompleted(ctx context.Context, db *gorm.DB, id, sessionID string, done bool) error {
	res := db.WithContext(ctx).
		Model(&domain.Topic{}).
		Where("id = ? AND session_id = ?", id, sessionID).
		Update("is_completed", done)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
