package repo

import (
	"bytes"
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

func newPlanRepoDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("plan_repo_test_%d.db", time.Now().UnixNano()))
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
	if err := db.AutoMigrate(&domain.Session{}, &domain.PlanRevision{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestMaxPlanVersion_ZeroWithoutRevisions(t *testing.T) {
	db := newPlanRepoDB(t)

	max, err := MaxPlanVersion(context.Background(), db, "no-such-session")
	if err != nil {
		t.Fatalf("MaxPlanVersion: %v", err)
	}
	if max != 0 {
		t.Fatalf("max = %d; want 0", max)
	}
}

func TestPlanRevisions_VersionDerivation(t *testing.T) {
	db := newPlanRepoDB(t)
	ctx := context.Background()

	s, err := CreateSession(ctx, db, "u1", "t", nil)
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}

	v1 := []byte(`{"topics":[{"title":"Cells"}]}`)
	if _, err := CreatePlanRevision(ctx, db, s.ID, 1, v1, nil); err != nil {
		t.Fatalf("create v1: %v", err)
	}
	instr := "add mitosis"
	v2 := []byte(`{"topics":[{"title":"Cells"},{"title":"Mitosis"}]}`)
	if _, err := CreatePlanRevision(ctx, db, s.ID, 2, v2, &instr); err != nil {
		t.Fatalf("create v2: %v", err)
	}

	max, err := MaxPlanVersion(ctx, db, s.ID)
	if err != nil || max != 2 {
		t.Fatalf("max = %d, %v; want 2", max, err)
	}

	latest, err := LatestPlanRevision(ctx, db, s.ID)
	if err != nil {
		t.Fatalf("LatestPlanRevision: %v", err)
	}
	if latest.Version != 2 || !bytes.Equal(latest.ContentJSON, v2) {
		t.Fatalf("latest mismatch: v=%d content=%s", latest.Version, latest.ContentJSON)
	}
	if latest.Instruction == nil || *latest.Instruction != "add mitosis" {
		t.Fatalf("instruction not stored: %+v", latest.Instruction)
	}

	// Undo v2, then the next version is 2 again.
	if err := DeletePlanRevision(ctx, db, s.ID, 2); err != nil {
		t.Fatalf("DeletePlanRevision: %v", err)
	}
	max, err = MaxPlanVersion(ctx, db, s.ID)
	if err != nil || max != 1 {
		t.Fatalf("max after undo = %d, %v; want 1", max, err)
	}
	if _, err := CreatePlanRevision(ctx, db, s.ID, 2, v2, nil); err != nil {
		t.Fatalf("re-create v2 after undo: %v", err)
	}
}

func TestCreatePlanRevision_UniquePerSessionVersion(t *testing.T) {
	db := newPlanRepoDB(t)
	ctx := context.Background()

	s, err := CreateSession(ctx, db, "u1", "t", nil)
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
	if _, err := CreatePlanRevision(ctx, db, s.ID, 1, []byte(`{}`), nil); err != nil {
		t.Fatalf("create v1: %v", err)
	}
	if _, err := CreatePlanRevision(ctx, db, s.ID, 1, []byte(`{}`), nil); err == nil {
		t.Fatalf("expected unique violation for duplicate (session, version)")
	}
}

func TestPlanRevisionContent_ByteStable(t *testing.T) {
	db := newPlanRepoDB(t)
	ctx := context.Background()

	s, err := CreateSession(ctx, db, "u1", "t", nil)
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}

	// Key order and whitespace must survive the round-trip untouched.
	raw := []byte(`{"z":1,  "a": [2,3],"nested":{"y":true,"x":false}}`)
	if _, err := CreatePlanRevision(ctx, db, s.ID, 1, raw, nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := GetPlanRevision(ctx, db, s.ID, 1)
	if err != nil {
		t.Fatalf("GetPlanRevision: %v", err)
	}
	if !bytes.Equal(got.ContentJSON, raw) {
		t.Fatalf("content not byte-stable:\n got %s\nwant %s", got.ContentJSON, raw)
	}
}

func TestListPlanRevisions_NewestFirst(t *testing.T) {
	db := newPlanRepoDB(t)
	ctx := context.Background()

	s, err := CreateSession(ctx, db, "u1", "t", nil)
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
	for v := 1; v <= 3; v++ {
		if _, err := CreatePlanRevision(ctx, db, s.ID, v, []byte(`{}`), nil); err != nil {
			t.Fatalf("create v%d: %v", v, err)
		}
	}

	list, err := ListPlanRevisions(ctx, db, s.ID)
	if err != nil {
		t.Fatalf("ListPlanRevisions: %v", err)
	}
	if len(list) != 3 || list[0].Version != 3 || list[2].Version != 1 {
		t.Fatalf("unexpected order: %#v", list)
	}

	total, err := CountPlanRevisions(ctx, db, s.ID)
	if err != nil || total != 3 {
		t.Fatalf("CountPlanRevisions = %d, %v; want 3", total, err)
	}
}

func TestDeletePlanRevision_NotFoundOnZeroRows(t *testing.T) {
	db := newPlanRepoDB(t)

	err := DeletePlanRevision(context.Background(), db, "nope", 1)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
