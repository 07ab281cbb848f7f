package domain

import "time"

// Idempotency records a completed mutating request so that a retry with the
// same Idempotency-Key replays the original outcome instead of repeating the
// side effect. ScopeID is the resource the request targeted (a session or
// chat id); ResourceID is the id of whatever the original request created.
type Idempotency struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID     string    `json:"user_id"     gorm:"type:varchar(64);not null;uniqueIndex:ux_idem,priority:1"`
	ScopeID    string    `json:"scope_id"    gorm:"type:char(36);not null;uniqueIndex:ux_idem,priority:2"`
	Key        string    `json:"key"         gorm:"type:varchar(128);not null;uniqueIndex:ux_idem,priority:3"`
	ResourceID string    `json:"resource_id" gorm:"type:char(36);not null"`
	Status     int       `json:"status"      gorm:"not null"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"  gorm:"index"`
}

// TableName returns the database table name for Idempotency.
func (Idempotency) TableName() string { return "idempotency_keys" }
