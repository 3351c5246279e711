package storage

import (
	"context"
	"testing"
	"time"
)

func TestDocumentRoundTrip(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ctx := context.Background()
	saved := map[string]map[string]int{"g1": {"u1": 3}}
	if err := store.SaveDocument(ctx, "warnings", saved); err != nil {
		t.Fatalf("save document: %v", err)
	}

	saved["g1"]["u1"] = 4
	if err := store.SaveDocument(ctx, "warnings", saved); err != nil {
		t.Fatalf("overwrite document: %v", err)
	}

	loaded := map[string]map[string]int{}
	if err := store.LoadDocument(ctx, "warnings", &loaded); err != nil {
		t.Fatalf("load document: %v", err)
	}
	if loaded["g1"]["u1"] != 4 {
		t.Fatalf("expected 4, got %d", loaded["g1"]["u1"])
	}
}

func TestLoadMissingDocument(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	loaded := map[string]int{"keep": 1}
	if err := store.LoadDocument(context.Background(), "levels", &loaded); err != nil {
		t.Fatalf("load missing document: %v", err)
	}
	if loaded["keep"] != 1 {
		t.Fatalf("missing document must leave dest untouched")
	}
}

func TestModLogs(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ctx := context.Background()
	entry := ModLog{GuildID: "g1", UserID: "u1", Event: "invite_blocked", Details: "x", CreatedAt: time.Now()}
	if err := store.AddModLog(ctx, entry); err != nil {
		t.Fatalf("add mod log: %v", err)
	}

	logs, err := store.ListModLogs(ctx, "g1", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("list mod logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Event != "invite_blocked" {
		t.Fatalf("unexpected logs: %+v", logs)
	}
}
