package logsink

import (
	"context"
	"strings"
	"testing"
	"time"

	"guildwarden/internal/storage"

	"go.uber.org/zap"
)

func TestEmitPersistsAndNotifies(t *testing.T) {
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	sink := New(store, zap.NewNop())
	var delivered *Event
	sink.SetNotifier(func(ctx context.Context, guildID string, event Event) {
		delivered = &event
	})

	sink.Emit(context.Background(), "g1", "u1", Event{
		Title:       "Invite Blocked",
		Description: "deleted invite link",
		Fields:      []Field{{Name: "Content", Value: "discord.gg/x"}},
	})

	if delivered == nil || delivered.Title != "Invite Blocked" {
		t.Fatalf("expected notifier delivery")
	}

	logs, err := store.ListModLogs(context.Background(), "g1", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("list mod logs: %v", err)
	}
	if len(logs) != 1 || !strings.Contains(logs[0].Details, "Content=discord.gg/x") {
		t.Fatalf("unexpected persisted logs: %+v", logs)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abcdef", 3); got != "abc" {
		t.Fatalf("expected abc, got %q", got)
	}
	if got := Truncate("ab", 3); got != "ab" {
		t.Fatalf("expected ab, got %q", got)
	}
}
