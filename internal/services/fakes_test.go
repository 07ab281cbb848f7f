package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/caky/go-study-backend/internal/domain"
	"github.com/caky/go-study-backend/internal/ingest"
	"github.com/caky/go-study-backend/internal/llm"
	"github.com/caky/go-study-backend/internal/repo"
)

func newServicesDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("services_test_%d.db", time.Now().UnixNano()))
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
	if err := db.AutoMigrate(
		&domain.Session{}, &domain.Document{}, &domain.Topic{},
		&domain.Chat{}, &domain.Message{}, &domain.PlanRevision{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedSession(t *testing.T, db *gorm.DB, userID string) *domain.Session {
	t.Helper()
	s, err := repo.CreateSession(context.Background(), db, userID, "Physics", nil)
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return s
}

func seedCompletedDoc(t *testing.T, db *gorm.DB, sessionID, name, content string) *domain.Document {
	t.Helper()
	ctx := context.Background()
	d, err := repo.CreateDocument(ctx, db, sessionID, name, "sessions/"+sessionID+"/"+name)
	if err != nil {
		t.Fatalf("seed document: %v", err)
	}
	if err := repo.MarkDocumentProcessing(ctx, db, d.ID); err != nil {
		t.Fatalf("claim document: %v", err)
	}
	if err := repo.CompleteDocument(ctx, db, d.ID, content, 1); err != nil {
		t.Fatalf("complete document: %v", err)
	}
	return d
}

// ----- Fake completer -----

type completerCall struct {
	model     string
	messages  []llm.Message
	maxTokens int
}

// fakeCompleter replays canned replies in call order; once exhausted it keeps
// returning the last one. A non-nil err fails every call.
type fakeCompleter struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   []completerCall
}

func (f *fakeCompleter) Complete(_ context.Context, model string, messages []llm.Message, maxTokens int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, completerCall{model: model, messages: messages, maxTokens: maxTokens})
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "ok", nil
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply, nil
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// ----- Fake store -----

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	getErr  error
	delErr  error
	deleted []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Put(_ context.Context, path, _ string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.objects[path] = data
	return nil
}

func (f *fakeStore) Get(_ context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[path]
	if !ok {
		return nil, fmt.Errorf("object %q not found", path)
	}
	return data, nil
}

func (f *fakeStore) Delete(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, path)
	if f.delErr != nil {
		return f.delErr
	}
	delete(f.objects, path)
	return nil
}

func (f *fakeStore) SignedURL(_ context.Context, path string, _ time.Duration) (string, error) {
	return "https://signed.example/" + path, nil
}

// ----- Fake extractor -----

type fakeExtractor struct {
	result *ingest.Result
	err    error
	gotPDF []byte
}

func (f *fakeExtractor) Extract(_ context.Context, pdf []byte) (*ingest.Result, error) {
	f.gotPDF = pdf
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}
