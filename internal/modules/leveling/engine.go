package leveling

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"guildwarden/internal/storage"

	"go.uber.org/zap"
)

const document = "levels"

// Record is one user's durable progress. Level is always derived from XP and
// both only ever move up.
type Record struct {
	XP    int `json:"xp"`
	Level int `json:"level"`
}

type LevelUp struct {
	NewLevel int
}

type RankEntry struct {
	UserID string
	XP     int
	Level  int
}

// Engine accumulates XP per (guild,user) behind a fixed cooldown. The grant
// decision and state write happen under one lock; the document save runs after
// and its failure never rolls the in-memory state back.
type Engine struct {
	mu           sync.Mutex
	records      map[string]map[string]Record
	lastGrant    map[string]time.Time
	xpPerMessage int
	cooldown     time.Duration
	store        *storage.Store
	logger       *zap.Logger
}

func NewEngine(ctx context.Context, xpPerMessage int, cooldown time.Duration, store *storage.Store, logger *zap.Logger) (*Engine, error) {
	e := &Engine{
		records:      make(map[string]map[string]Record),
		lastGrant:    make(map[string]time.Time),
		xpPerMessage: xpPerMessage,
		cooldown:     cooldown,
		store:        store,
		logger:       logger,
	}
	if err := store.LoadDocument(ctx, document, &e.records); err != nil {
		return nil, err
	}
	return e, nil
}

// LevelForXP is the leveling curve: floor(0.1 * sqrt(xp)).
func LevelForXP(xp int) int {
	return int(math.Floor(0.1 * math.Sqrt(float64(xp))))
}

// Grant adds XP for one message. A message inside the cooldown is a silent
// no-op. The second return is true only when the grant crossed a level.
func (e *Engine) Grant(ctx context.Context, guildID, userID string, now time.Time) (LevelUp, bool) {
	e.mu.Lock()

	key := guildID + ":" + userID
	if last, ok := e.lastGrant[key]; ok && now.Sub(last) < e.cooldown {
		e.mu.Unlock()
		return LevelUp{}, false
	}
	e.lastGrant[key] = now

	guild := e.records[guildID]
	if guild == nil {
		guild = make(map[string]Record)
		e.records[guildID] = guild
	}

	record := guild[userID]
	record.XP += e.xpPerMessage

	leveled := false
	if next := LevelForXP(record.XP); next > record.Level {
		record.Level = next
		leveled = true
	}
	guild[userID] = record

	snapshot := e.snapshotLocked()
	e.mu.Unlock()

	if err := e.store.SaveDocument(ctx, document, snapshot); err != nil {
		e.logger.Warn("levels persist failed", zap.Error(err))
	}

	if !leveled {
		return LevelUp{}, false
	}
	return LevelUp{NewLevel: record.Level}, true
}

func (e *Engine) Rank(guildID, userID string) Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.records[guildID][userID]
}

// Leaderboard returns the top entries by level, XP breaking ties.
func (e *Engine) Leaderboard(guildID string, limit int) []RankEntry {
	if limit <= 0 {
		return nil
	}
	e.mu.Lock()
	entries := make([]RankEntry, 0, len(e.records[guildID]))
	for userID, record := range e.records[guildID] {
		entries = append(entries, RankEntry{UserID: userID, XP: record.XP, Level: record.Level})
	}
	e.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Level != entries[j].Level {
			return entries[i].Level > entries[j].Level
		}
		return entries[i].XP > entries[j].XP
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

func (e *Engine) snapshotLocked() map[string]map[string]Record {
	snapshot := make(map[string]map[string]Record, len(e.records))
	for guildID, guild := range e.records {
		users := make(map[string]Record, len(guild))
		for userID, record := range guild {
			users[userID] = record
		}
		snapshot[guildID] = users
	}
	return snapshot
}
