package repo

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/caky/go-study-backend/internal/domain"
)

func newMessageRepoDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("msg_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(&domain.Session{}, &domain.Chat{}, &domain.Message{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedMessages(t *testing.T, db *gorm.DB, chatID string, n int) {
	t.Helper()
	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		m := domain.Message{
			ID:        fmt.Sprintf("%s-m%02d", chatID, i),
			ChatID:    chatID,
			Role:      "user",
			Content:   fmt.Sprintf("msg %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := db.Create(&m).Error; err != nil {
			t.Fatalf("seed %s: %v", m.ID, err)
		}
	}
}

func TestCreateMessage_PersistsRoleAndContent(t *testing.T) {
	db := newMessageRepoDB(t)

	m, err := CreateMessage(context.Background(), db, "c1", "assistant", "hello")
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if m.ID == "" || m.Role != "assistant" || m.Content != "hello" {
		t.Fatalf("unexpected message: %+v", m)
	}
}

func TestListMessages_Chronological(t *testing.T) {
	db := newMessageRepoDB(t)
	seedMessages(t, db, "c1", 3)

	list, err := ListMessages(context.Background(), db, "c1")
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(list) != 3 || list[0].ID != "c1-m00" || list[2].ID != "c1-m02" {
		t.Fatalf("unexpected order: %#v", list)
	}
}

func TestListRecentMessages_WindowInChronologicalOrder(t *testing.T) {
	db := newMessageRepoDB(t)
	seedMessages(t, db, "c1", 30)

	recent, err := ListRecentMessages(context.Background(), db, "c1", 20)
	if err != nil {
		t.Fatalf("ListRecentMessages: %v", err)
	}
	if len(recent) != 20 {
		t.Fatalf("expected 20 messages, got %d", len(recent))
	}
	// The newest 20, oldest first: m10 .. m29.
	if recent[0].ID != "c1-m10" || recent[19].ID != "c1-m29" {
		t.Fatalf("unexpected window: first=%s last=%s", recent[0].ID, recent[19].ID)
	}
}

func TestCountMessages(t *testing.T) {
	db := newMessageRepoDB(t)
	seedMessages(t, db, "c1", 4)
	seedMessages(t, db, "c2", 2)

	total, err := CountMessages(context.Background(), db, "c1")
	if err != nil || total != 4 {
		t.Fatalf("CountMessages = %d, %v; want 4", total, err)
	}
}
