package reactionroles

import (
	"context"
	"testing"

	"guildwarden/internal/storage"

	"go.uber.org/zap"
)

func newTestRegistry(t *testing.T) (*Registry, *storage.Store) {
	t.Helper()
	db, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(db.Close)
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	registry, err := NewRegistry(context.Background(), db, zap.NewNop())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return registry, db
}

func TestRegisterResolve(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	if err := registry.Register(ctx, "g1", "m1", "🎉", "r1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	roleID, ok := registry.Resolve("g1", "m1", "🎉")
	if !ok || roleID != "r1" {
		t.Fatalf("expected r1, got %q ok=%t", roleID, ok)
	}

	if _, ok := registry.Resolve("g1", "m1", "🔥"); ok {
		t.Fatalf("non-matching emoji must not resolve")
	}
	if _, ok := registry.Resolve("g1", "m2", "🎉"); ok {
		t.Fatalf("non-matching message must not resolve")
	}
}

func TestFirstRegisteredWins(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	_ = registry.Register(ctx, "g1", "m1", "🎉", "r1")
	_ = registry.Register(ctx, "g1", "m1", "🎉", "r2")

	roleID, ok := registry.Resolve("g1", "m1", "🎉")
	if !ok || roleID != "r1" {
		t.Fatalf("double-bound pair must resolve to first binding, got %q", roleID)
	}
}

func TestBindingsPersistAcrossRestart(t *testing.T) {
	registry, db := newTestRegistry(t)
	ctx := context.Background()
	_ = registry.Register(ctx, "g1", "m1", "123456", "r1")

	reloaded, err := NewRegistry(ctx, db, zap.NewNop())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	roleID, ok := reloaded.Resolve("g1", "m1", "123456")
	if !ok || roleID != "r1" {
		t.Fatalf("expected persisted binding, got %q ok=%t", roleID, ok)
	}
}

func TestEmojiKey(t *testing.T) {
	if key := EmojiKey("<:party:123456789>"); key != "123456789" {
		t.Fatalf("custom emoji keys by id, got %q", key)
	}
	if key := EmojiKey("<a:spin:987>"); key != "987" {
		t.Fatalf("animated emoji keys by id, got %q", key)
	}
	if key := EmojiKey("🎉"); key != "🎉" {
		t.Fatalf("standard emoji keys by glyph, got %q", key)
	}
}
