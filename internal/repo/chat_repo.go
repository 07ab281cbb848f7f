// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Chat model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caky/go-study-backend/internal/domain"
)

// NewTopicChat builds (without persisting) a TOPIC_SPECIFIC chat bound to a
// topic. The materializer collects these and inserts them with CreateChats.
func NewTopicChat(sessionID, topicID string) domain.Chat {
	return domain.Chat{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Kind:      domain.ChatTopicSpecific,
		TopicID:   &topicID,
		CreatedAt: time.Now().UTC(),
	}
}

// NewReviewChat builds (without persisting) the session's GENERAL_REVIEW chat.
func NewReviewChat(sessionID string) domain.Chat {
	return domain.Chat{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Kind:      domain.ChatGeneralReview,
		CreatedAt: time.Now().UTC(),
	}
}

// CreateChats inserts a batch of chats in one statement.
func CreateChats(ctx context.Context, db *gorm.DB, chats []domain.Chat) error {
	if len(chats) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&chats).Error
}

// ListChats returns the chats of a session: topic chats first in topic study
// order, then the general review chat.
func ListChats(ctx context.Context, db *gorm.DB, sessionID string) ([]domain.Chat, error) {
	var out []domain.Chat
	err := db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("kind desc"). // TOPIC_SPECIFIC sorts after GENERAL_REVIEW lexically; desc puts topics first
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// GetChat fetches a single chat by ID within a session.
func GetChat(ctx context.Context, db *gorm.DB, id, sessionID string) (*domain.Chat, error) {
	var c domain.Chat
	err := db.WithContext(ctx).
		Where("id = ? AND session_id = ?", id, sessionID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetChatByTopic fetches the TOPIC_SPECIFIC chat bound to a topic.
func GetChatByTopic(ctx context.Context, db *gorm.DB, sessionID, topicID string) (*domain.Chat, error) {
	var c domain.Chat
	err := db.WithContext(ctx).
		Where("session_id = ? AND topic_id = ? AND kind = ?", sessionID, topicID, domain.ChatTopicSpecific).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// MarkChatStarted flips is_started false → true. The guard makes the flip
// idempotent under races between the welcome job and the first user message:
// the loser affects zero rows, which is not an error here.
func MarkChatStarted(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).
		Model(&domain.Chat{}).
		Where("id = ? AND is_started = ?", id, false).
		Update("is_started", true).Error
}
