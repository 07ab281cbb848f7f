package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/caky/go-study-backend/internal/domain"
)

func newTopicRepoDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("topic_repo_test_%d.db", time.Now().UnixNano()))
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
	if err := db.AutoMigrate(&domain.Session{}, &domain.Topic{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestCreateTopics_PreservesDraftOrder(t *testing.T) {
	db := newTopicRepoDB(t)
	ctx := context.Background()

	s, err := CreateSession(ctx, db, "u1", "t", nil)
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}

	drafts := []domain.DraftTopic{
		{ID: "a", Title: "Cells", Description: "intro"},
		{ID: "b", Title: "Mitosis", IsCompleted: true},
		{ID: "c", Title: "Meiosis"},
	}
	topics, err := CreateTopics(ctx, db, s.ID, drafts)
	if err != nil {
		t.Fatalf("CreateTopics: %v", err)
	}
	if len(topics) != 3 {
		t.Fatalf("expected 3 topics, got %d", len(topics))
	}
	for i, tp := range topics {
		if tp.OrderIndex != i {
			t.Fatalf("topic %d has order_index %d", i, tp.OrderIndex)
		}
		if tp.ID == "" {
			t.Fatalf("topic %d missing id", i)
		}
	}
	if !topics[1].IsCompleted {
		t.Fatalf("completion flag must carry over from draft")
	}
	if topics[0].Description == nil || *topics[0].Description != "intro" {
		t.Fatalf("description not persisted: %+v", topics[0].Description)
	}
	if topics[1].Description != nil {
		t.Fatalf("blank descriptions must stay nil, got %q", *topics[1].Description)
	}

	list, err := ListTopics(ctx, db, s.ID)
	if err != nil {
		t.Fatalf("ListTopics: %v", err)
	}
	if len(list) != 3 || list[0].Title != "Cells" || list[2].Title != "Meiosis" {
		t.Fatalf("unexpected study order: %#v", list)
	}
}

func TestCreateTopics_EmptyDraftIsNoop(t *testing.T) {
	db := newTopicRepoDB(t)

	topics, err := CreateTopics(context.Background(), db, "s1", nil)
	if err != nil {
		t.Fatalf("CreateTopics: %v", err)
	}
	if len(topics) != 0 {
		t.Fatalf("expected empty result, got %d", len(topics))
	}
}

func TestSetTopicCompleted(t *testing.T) {
	db := newTopicRepoDB(t)
	ctx := context.Background()

	s, err := CreateSession(ctx, db, "u1", "t", nil)
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
	topics, err := CreateTopics(ctx, db, s.ID, []domain.DraftTopic{{ID: "a", Title: "Cells"}})
	if err != nil {
		t.Fatalf("CreateTopics: %v", err)
	}

	if err := SetTopicCompleted(ctx, db, topics[0].ID, s.ID, true); err != nil {
		t.Fatalf("SetTopicCompleted: %v", err)
	}
	got, err := GetTopic(ctx, db, topics[0].ID, s.ID)
	if err != nil {
		t.Fatalf("GetTopic: %v", err)
	}
	if !got.IsCompleted {
		t.Fatalf("completion flag not persisted")
	}

	err = SetTopicCompleted(ctx, db, "missing", s.ID, true)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
