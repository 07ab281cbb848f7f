// Package domain defines the persistence models for study sessions,
// documents, topics, chats, messages, and plan revisions. These types are
// mapped with GORM and form the core data layer of the study backend.
package domain

import (
	"time"
)

// SessionStatus is the lifecycle stage of a study session.
type SessionStatus string

const (
	// SessionPlanning: the session is collecting documents and iterating
	// on a draft plan. The only stage in which a DraftPlan may exist.
	SessionPlanning SessionStatus = "PLANNING"
	// SessionActive: the draft plan has been materialized into topics and
	// chats and the student is studying.
	SessionActive SessionStatus = "ACTIVE"
	// SessionCompleted: the student finished the session.
	SessionCompleted SessionStatus = "COMPLETED"
)

// ProcessingStatus tracks a document through the extraction pipeline.
// Transitions only ever follow PENDING → PROCESSING → COMPLETED|FAILED.
type ProcessingStatus string

const (
	ProcessingPending    ProcessingStatus = "PENDING"
	ProcessingProcessing ProcessingStatus = "PROCESSING"
	ProcessingCompleted  ProcessingStatus = "COMPLETED"
	ProcessingFailed     ProcessingStatus = "FAILED"
)

// ChatKind distinguishes the two chat behaviors. A TOPIC_SPECIFIC chat
// carries a TopicID; a GENERAL_REVIEW chat never does.
type ChatKind string

const (
	ChatTopicSpecific ChatKind = "TOPIC_SPECIFIC"
	ChatGeneralReview ChatKind = "GENERAL_REVIEW"
)

// Session represents a study session owned by a user. While the session is
// in PLANNING it may hold a serialized draft plan (JSON); the draft is
// cleared in the same update that flips the status to ACTIVE.
type Session struct {
	ID          string         `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID      string         `json:"user_id"     gorm:"type:varchar(64);not null;index:idx_user_sessions"`
	Title       string         `json:"title"       gorm:"type:varchar(255);not null"`
	Description *string        `json:"description,omitempty" gorm:"type:text"`
	Status      SessionStatus  `json:"status"      gorm:"type:varchar(16);not null;default:'PLANNING';check:status IN ('PLANNING','ACTIVE','COMPLETED')"`
	DraftPlan   *string        `json:"draft_plan,omitempty" gorm:"type:text"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TableName returns the database table name for Session.
func (Session) TableName() string { return "study_sessions" }

// Document represents an uploaded source document. ContentText and
// PageCount are set together, exactly once, when extraction completes.
// ProcessingError holds the failure reason when extraction fails, so the
// cause is queryable instead of living only in logs.
type Document struct {
	ID               string           `json:"id"           gorm:"type:char(36);primaryKey"`
	SessionID        string           `json:"session_id"   gorm:"type:char(36);not null;index:idx_session_docs"`
	FileName         string           `json:"file_name"    gorm:"type:varchar(255);not null"`
	FilePath         string           `json:"file_path"    gorm:"type:varchar(512);not null"`
	ContentText      *string          `json:"-"            gorm:"type:text"`
	PageCount        *int             `json:"page_count,omitempty"`
	ProcessingStatus ProcessingStatus `json:"processing_status" gorm:"type:varchar(16);not null;default:'PENDING';check:processing_status IN ('PENDING','PROCESSING','COMPLETED','FAILED')"`
	ProcessingError  *string          `json:"processing_error,omitempty" gorm:"type:text"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`

	Session Session `json:"-" gorm:"foreignKey:SessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Document.
func (Document) TableName() string { return "documents" }

// Topic is one materialized study unit. Topics are created in bulk by the
// stage materializer, preserving draft order via OrderIndex; they are never
// created individually afterwards.
type Topic struct {
	ID          string    `json:"id"          gorm:"type:char(36);primaryKey"`
	SessionID   string    `json:"session_id"  gorm:"type:char(36);not null;index:idx_session_topics"`
	Title       string    `json:"title"       gorm:"type:varchar(255);not null"`
	Description *string   `json:"description,omitempty" gorm:"type:text"`
	OrderIndex  int       `json:"order_index" gorm:"not null"`
	IsCompleted bool      `json:"is_completed" gorm:"not null;default:false"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Session Session `json:"-" gorm:"foreignKey:SessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Topic.
func (Topic) TableName() string { return "topics" }

// Chat represents a conversation within a session. Exactly one
// GENERAL_REVIEW chat and one TOPIC_SPECIFIC chat per topic are created,
// atomically with the topics, when the session is materialized.
//
// IsStarted flips false→true exactly once: either by the welcome-message
// job for that chat or by the first real user message, whichever comes
// first.
type Chat struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	SessionID string    `json:"session_id" gorm:"type:char(36);not null;index:idx_session_chats"`
	Kind      ChatKind  `json:"kind"       gorm:"type:varchar(16);not null;check:kind IN ('TOPIC_SPECIFIC','GENERAL_REVIEW')"`
	TopicID   *string   `json:"topic_id,omitempty" gorm:"type:char(36);index"`
	IsStarted bool      `json:"is_started" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Session Session `json:"-" gorm:"foreignKey:SessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Chat.
func (Chat) TableName() string { return "chats" }

// IsTopicChat reports whether the chat is bound to a specific topic.
func (c *Chat) IsTopicChat() bool { return c.Kind == ChatTopicSpecific && c.TopicID != nil }

// Message represents a single utterance within a chat, authored either by
// the "user" or the "assistant".
type Message struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	ChatID    string    `json:"chat_id"   gorm:"type:char(36);not null;index:idx_chat_msgs,priority:1"`
	Role      string    `json:"role"      gorm:"type:varchar(16);not null;check:role IN ('user','assistant')"`
	Content   string    `json:"content"   gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_chat_msgs,priority:2"`
	UpdatedAt time.Time `json:"updated_at"`

	Chat Chat `json:"-" gorm:"foreignKey:ChatID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// PlanRevision is one immutable, versioned snapshot of a session's study
// plan. Versions are 1-based and strictly increasing per session; version
// numbers are derived from the current maximum, so undoing from 3 back to
// 2 and revising again produces version 3 again.
//
// ContentJSON stores the serialized plan content byte-for-byte as it was
// persisted, so an undo returns exactly the bytes of the prior version.
type PlanRevision struct {
	ID          string    `json:"id"          gorm:"type:char(36);primaryKey"`
	SessionID   string    `json:"session_id"  gorm:"type:char(36);not null;uniqueIndex:ux_session_version,priority:1"`
	Version     int       `json:"version"     gorm:"not null;uniqueIndex:ux_session_version,priority:2"`
	ContentJSON []byte    `json:"content"     gorm:"type:text;not null"`
	Instruction *string   `json:"instruction,omitempty" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`

	Session Session `json:"-" gorm:"foreignKey:SessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for PlanRevision.
func (PlanRevision) TableName() string { return "plan_revisions" }
