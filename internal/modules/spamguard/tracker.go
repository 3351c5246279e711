package spamguard

import (
	"sync"
	"time"
)

// bucket is the per (guild,user) state. count and windowStart reset together
// when the window elapses; flagged only resets with them, which bounds the
// tracker to one fired decision per window.
type bucket struct {
	count       int
	windowStart time.Time
	flagged     bool
}

type Decision struct {
	Fired bool
	Count int
}

// Tracker counts messages per (guild,user) inside a fixed re-anchoring window.
// The read-decide-write step runs under one lock with no I/O, so back-to-back
// messages from the same user cannot observe the same pre-increment state.
type Tracker struct {
	mu          sync.Mutex
	buckets     map[string]*bucket
	maxMessages int
	window      time.Duration
}

func New(maxMessages int, window time.Duration) *Tracker {
	return &Tracker{
		buckets:     make(map[string]*bucket),
		maxMessages: maxMessages,
		window:      window,
	}
}

func (t *Tracker) Record(guildID, userID string, now time.Time) Decision {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := guildID + ":" + userID
	b := t.buckets[key]
	if b == nil {
		b = &bucket{windowStart: now}
		t.buckets[key] = b
	}

	if now.Sub(b.windowStart) > t.window {
		b.count = 0
		b.windowStart = now
		b.flagged = false
	}

	b.count++
	if b.count > t.maxMessages && !b.flagged {
		b.flagged = true
		return Decision{Fired: true, Count: b.count}
	}
	return Decision{Fired: false, Count: b.count}
}
