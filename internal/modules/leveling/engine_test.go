package leveling

import (
	"context"
	"testing"
	"time"

	"guildwarden/internal/storage"

	"go.uber.org/zap"
)

func newTestEngine(t *testing.T) (*Engine, *storage.Store) {
	t.Helper()
	db, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(db.Close)
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	engine, err := NewEngine(context.Background(), 10, 45*time.Second, db, zap.NewNop())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine, db
}

func TestLevelForXP(t *testing.T) {
	cases := []struct{ xp, level int }{
		{0, 0},
		{99, 0},
		{100, 1},
		{399, 1},
		{400, 2},
		{900, 3},
	}
	for _, c := range cases {
		if got := LevelForXP(c.xp); got != c.level {
			t.Fatalf("xp=%d: expected level %d, got %d", c.xp, c.level, got)
		}
	}
}

func TestCooldownGatesGrants(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	start := time.Unix(0, 0)

	engine.Grant(ctx, "g1", "u1", start)
	engine.Grant(ctx, "g1", "u1", start.Add(10*time.Second))
	if record := engine.Rank("g1", "u1"); record.XP != 10 {
		t.Fatalf("second grant inside cooldown must be a no-op, got xp=%d", record.XP)
	}

	engine.Grant(ctx, "g1", "u1", start.Add(45*time.Second))
	if record := engine.Rank("g1", "u1"); record.XP != 20 {
		t.Fatalf("expected xp=20 after cooldown expiry, got %d", record.XP)
	}
}

func TestLevelUpEvent(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	now := time.Unix(0, 0)

	// 10 qualifying grants reach xp=100 and level 1.
	var up LevelUp
	var leveled bool
	for i := 0; i < 10; i++ {
		up, leveled = engine.Grant(ctx, "g1", "u1", now.Add(time.Duration(i)*time.Minute))
	}
	if !leveled || up.NewLevel != 1 {
		t.Fatalf("expected level up to 1, got %+v leveled=%t", up, leveled)
	}

	record := engine.Rank("g1", "u1")
	if record.XP != 100 || record.Level != 1 {
		t.Fatalf("expected xp=100 level=1, got %+v", record)
	}
}

func TestLevelNeverRegresses(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	now := time.Unix(0, 0)

	last := 0
	for i := 0; i < 50; i++ {
		engine.Grant(ctx, "g1", "u1", now.Add(time.Duration(i)*time.Minute))
		record := engine.Rank("g1", "u1")
		if record.Level < last {
			t.Fatalf("level regressed from %d to %d", last, record.Level)
		}
		last = record.Level
	}
}

func TestGrantsPersistAcrossRestart(t *testing.T) {
	engine, db := newTestEngine(t)
	ctx := context.Background()
	engine.Grant(ctx, "g1", "u1", time.Unix(0, 0))

	reloaded, err := NewEngine(ctx, 10, 45*time.Second, db, zap.NewNop())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if record := reloaded.Rank("g1", "u1"); record.XP != 10 {
		t.Fatalf("expected persisted xp=10, got %d", record.XP)
	}
}

func TestLeaderboardOrdering(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	now := time.Unix(0, 0)

	for i := 0; i < 12; i++ {
		engine.Grant(ctx, "g1", "u1", now.Add(time.Duration(i)*time.Minute))
	}
	for i := 0; i < 3; i++ {
		engine.Grant(ctx, "g1", "u2", now.Add(time.Duration(i)*time.Minute))
	}
	engine.Grant(ctx, "g1", "u3", now)

	board := engine.Leaderboard("g1", 2)
	if len(board) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(board))
	}
	if board[0].UserID != "u1" || board[1].UserID != "u2" {
		t.Fatalf("unexpected ordering: %+v", board)
	}
}
