package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nijaru/yt-mp3/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndListConversions(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	first := &models.Conversion{RequestID: "req-1", VideoID: "dQw4w9WgXcQ", Action: models.ActionInfo, Status: models.StatusSucceeded, ElapsedMS: 120}
	second := &models.Conversion{RequestID: "req-2", VideoID: "dQw4w9WgXcQ", Action: models.ActionConvert, Status: models.StatusFailed, ElapsedMS: 3000}

	for _, c := range []*models.Conversion{first, second} {
		if err := store.RecordConversion(ctx, c); err != nil {
			t.Fatalf("Failed to record conversion: %v", err)
		}
		if c.ID == 0 {
			t.Error("expected ID to be set after insert")
		}
	}

	got, err := store.RecentConversions(ctx, 10)
	if err != nil {
		t.Fatalf("Failed to list conversions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 conversions, got %d", len(got))
	}
	if got[0].RequestID != "req-2" || got[0].Action != models.ActionConvert || got[0].Status != models.StatusFailed {
		t.Errorf("expected newest first, got %+v", got[0])
	}
	if got[1].ElapsedMS != 120 {
		t.Errorf("expected elapsed 120, got %d", got[1].ElapsedMS)
	}
}

func TestRecentConversions_Limit(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	for i := 0; i < 5; i++ {
		c := &models.Conversion{RequestID: "req", Action: models.ActionInfo, Status: models.StatusRejected}
		if err := store.RecordConversion(ctx, c); err != nil {
			t.Fatalf("Failed to record conversion: %v", err)
		}
	}

	got, err := store.RecentConversions(ctx, 3)
	if err != nil {
		t.Fatalf("Failed to list conversions: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("expected 3 conversions, got %d", len(got))
	}
}

func TestRecentConversions_Empty(t *testing.T) {
	got, err := openTestStore(t).RecentConversions(context.Background(), 0)
	if err != nil {
		t.Fatalf("Failed to list conversions: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
}

func TestOpen_Error(t *testing.T) {
	if _, err := Open("/proc/invalid/path/to/db"); err == nil {
		t.Fatal("expected error, got nil")
	}
}
