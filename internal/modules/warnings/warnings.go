package warnings

import (
	"context"
	"sync"

	"guildwarden/internal/storage"

	"go.uber.org/zap"
)

const document = "warnings"

// Counter tracks per (guild,user) warning totals. Totals only go up; each
// increment persists the full collection.
type Counter struct {
	mu     sync.Mutex
	counts map[string]map[string]int
	store  *storage.Store
	logger *zap.Logger
}

func NewCounter(ctx context.Context, store *storage.Store, logger *zap.Logger) (*Counter, error) {
	c := &Counter{
		counts: make(map[string]map[string]int),
		store:  store,
		logger: logger,
	}
	if err := store.LoadDocument(ctx, document, &c.counts); err != nil {
		return nil, err
	}
	return c, nil
}

// Add records one warning and returns the new total.
func (c *Counter) Add(ctx context.Context, guildID, userID string) (int, error) {
	c.mu.Lock()
	guild := c.counts[guildID]
	if guild == nil {
		guild = make(map[string]int)
		c.counts[guildID] = guild
	}
	guild[userID]++
	total := guild[userID]
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	err := c.store.SaveDocument(ctx, document, snapshot)
	if err != nil {
		c.logger.Warn("warnings persist failed", zap.Error(err))
	}
	return total, err
}

func (c *Counter) Count(guildID, userID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[guildID][userID]
}

func (c *Counter) snapshotLocked() map[string]map[string]int {
	snapshot := make(map[string]map[string]int, len(c.counts))
	for guildID, guild := range c.counts {
		users := make(map[string]int, len(guild))
		for userID, count := range guild {
			users[userID] = count
		}
		snapshot[guildID] = users
	}
	return snapshot
}
