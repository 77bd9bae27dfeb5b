package device

import (
	"context"
	"testing"
	"time"
)

func TestSQLiteStateHistory_RecordAndGet(t *testing.T) {
	ctx := context.Background()
	db := openMigratedDB(t)
	if err := NewSQLiteRepository(db.DB).Create(ctx, testDevice("ac-1", "Living room")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	history := NewSQLiteStateHistoryRepository(db.DB)

	for i, mode := range []string{"cool", "heat", "dry"} {
		source := StateHistorySourceCommand
		if i == 0 {
			source = StateHistorySourceRestore
		}
		if err := history.RecordStateChange(ctx, "ac-1", State{"hvac_mode": mode}, source); err != nil {
			t.Fatalf("RecordStateChange() error = %v", err)
		}
	}

	entries, err := history.GetHistory(ctx, "ac-1", 0)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}
	if entries[0].State["hvac_mode"] != "dry" {
		t.Errorf("newest entry = %v, want dry", entries[0].State["hvac_mode"])
	}
	if entries[2].Source != StateHistorySourceRestore {
		t.Errorf("oldest source = %q, want restore", entries[2].Source)
	}

	limited, err := history.GetHistory(ctx, "ac-1", 1)
	if err != nil {
		t.Fatalf("GetHistory(limit 1) error = %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("len(limited) = %d, want 1", len(limited))
	}
}

func TestSQLiteStateHistory_RequiresDeviceID(t *testing.T) {
	history := NewSQLiteStateHistoryRepository(openMigratedDB(t).DB)
	if err := history.RecordStateChange(context.Background(), "", State{}, ""); err == nil {
		t.Error("RecordStateChange() with empty id should fail")
	}
	if _, err := history.GetHistory(context.Background(), "", 10); err == nil {
		t.Error("GetHistory() with empty id should fail")
	}
}

func TestSQLiteStateHistory_CascadeOnDelete(t *testing.T) {
	ctx := context.Background()
	db := openMigratedDB(t)
	repo := NewSQLiteRepository(db.DB)
	if err := repo.Create(ctx, testDevice("ac-1", "Living room")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	history := NewSQLiteStateHistoryRepository(db.DB)
	if err := history.RecordStateChange(ctx, "ac-1", State{"hvac_mode": "cool"}, ""); err != nil {
		t.Fatalf("RecordStateChange() error = %v", err)
	}

	if err := repo.Delete(ctx, "ac-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	entries, err := history.GetHistory(ctx, "ac-1", 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("len(entries) = %d, want 0 after device delete", len(entries))
	}
}

func TestSQLiteStateHistory_Prune(t *testing.T) {
	ctx := context.Background()
	db := openMigratedDB(t)
	if err := NewSQLiteRepository(db.DB).Create(ctx, testDevice("ac-1", "Living room")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	old := time.Now().UTC().Add(-48 * time.Hour).Format(time.RFC3339)
	if _, err := db.ExecContext(ctx,
		"INSERT INTO state_history (device_id, state, source, created_at) VALUES (?, ?, ?, ?)",
		"ac-1", `{"hvac_mode":"cool"}`, "command", old); err != nil {
		t.Fatalf("seeding history: %v", err)
	}
	history := NewSQLiteStateHistoryRepository(db.DB)
	if err := history.RecordStateChange(ctx, "ac-1", State{"hvac_mode": "heat"}, ""); err != nil {
		t.Fatalf("RecordStateChange() error = %v", err)
	}

	n, err := history.PruneHistory(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("PruneHistory() error = %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d rows, want 1", n)
	}
	if _, err := history.PruneHistory(ctx, 0); err == nil {
		t.Error("PruneHistory(0) should fail")
	}
}
