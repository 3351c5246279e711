package guildcfg

import (
	"context"
	"testing"

	"guildwarden/internal/storage"

	"go.uber.org/zap"
)

func newTestStore(t *testing.T) (*Store, *storage.Store) {
	t.Helper()
	db, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(db.Close)
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store, err := NewStore(context.Background(), db, zap.NewNop())
	if err != nil {
		t.Fatalf("new config store: %v", err)
	}
	return store, db
}

func TestGetSynthesizesDefaults(t *testing.T) {
	store, _ := newTestStore(t)

	cfg := store.Get(context.Background(), "g1")
	if !cfg.AntiSpamEnabled {
		t.Fatalf("expected anti-spam enabled by default")
	}
	if !cfg.InviteFilterEnabled {
		t.Fatalf("expected invite filter enabled by default")
	}
	if cfg.LinkFilterEnabled {
		t.Fatalf("expected link filter disabled by default")
	}
	if len(cfg.BlacklistWords) != 0 {
		t.Fatalf("expected empty blacklist")
	}
	if cfg.LogChannelID != "" || cfg.AutoRoleID != "" || cfg.VerifyRoleID != "" {
		t.Fatalf("expected channel and role refs unset")
	}
}

func TestUpdatePatchSemantics(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	channel := "c1"
	if _, err := store.Update(ctx, "g1", Patch{LogChannelID: &channel}); err != nil {
		t.Fatalf("update: %v", err)
	}

	words := []string{"a", " b ", ""}
	cfg, err := store.Update(ctx, "g1", Patch{BlacklistWords: &words})
	if err != nil {
		t.Fatalf("update blacklist: %v", err)
	}
	if len(cfg.BlacklistWords) != 2 || cfg.BlacklistWords[0] != "a" || cfg.BlacklistWords[1] != "b" {
		t.Fatalf("expected trimmed blacklist [a b], got %v", cfg.BlacklistWords)
	}
	if cfg.LogChannelID != "c1" {
		t.Fatalf("absent patch field must not touch log channel, got %q", cfg.LogChannelID)
	}

	empty := ""
	cfg, err = store.Update(ctx, "g1", Patch{LogChannelID: &empty})
	if err != nil {
		t.Fatalf("clear channel: %v", err)
	}
	if cfg.LogChannelID != "" {
		t.Fatalf("explicit empty value must clear the ref")
	}
}

func TestUpdatePersistsAcrossRestart(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	enabled := true
	if _, err := store.Update(ctx, "g1", Patch{LinkFilterEnabled: &enabled}); err != nil {
		t.Fatalf("update: %v", err)
	}

	reloaded, err := NewStore(ctx, db, zap.NewNop())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.Get(ctx, "g1").LinkFilterEnabled {
		t.Fatalf("expected link filter persisted")
	}
}
