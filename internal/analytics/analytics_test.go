package analytics

import (
	"context"
	"testing"
	"time"

	"guildwarden/internal/storage"
)

func TestReportCountsByEvent(t *testing.T) {
	db, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ctx := context.Background()
	now := time.Now()
	entries := []storage.ModLog{
		{GuildID: "g1", UserID: "u1", Event: "Spam Detected", CreatedAt: now},
		{GuildID: "g1", UserID: "u2", Event: "Spam Detected", CreatedAt: now},
		{GuildID: "g1", UserID: "u1", Event: "User Warned", CreatedAt: now},
		{GuildID: "g2", UserID: "u9", Event: "Invite Blocked", CreatedAt: now},
	}
	for _, entry := range entries {
		if err := db.AddModLog(ctx, entry); err != nil {
			t.Fatalf("add mod log: %v", err)
		}
	}

	service := New(db)
	report, err := service.Report(ctx, "g1", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Total != 3 {
		t.Fatalf("expected 3 events for g1, got %d", report.Total)
	}
	if report.ByEvent["Spam Detected"] != 2 || report.ByEvent["User Warned"] != 1 {
		t.Fatalf("unexpected breakdown: %+v", report.ByEvent)
	}
	if _, ok := report.ByEvent["Invite Blocked"]; ok {
		t.Fatalf("other guild's events must not leak into the report")
	}
}

func TestReportHonorsSince(t *testing.T) {
	db, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ctx := context.Background()
	now := time.Now()
	old := storage.ModLog{GuildID: "g1", UserID: "u1", Event: "Link Blocked", CreatedAt: now.Add(-48 * time.Hour)}
	fresh := storage.ModLog{GuildID: "g1", UserID: "u1", Event: "Link Blocked", CreatedAt: now}
	if err := db.AddModLog(ctx, old); err != nil {
		t.Fatalf("add old: %v", err)
	}
	if err := db.AddModLog(ctx, fresh); err != nil {
		t.Fatalf("add fresh: %v", err)
	}

	report, err := New(db).Report(ctx, "g1", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Total != 1 {
		t.Fatalf("expected only events inside the window, got %d", report.Total)
	}
}
