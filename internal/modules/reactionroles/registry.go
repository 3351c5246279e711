package reactionroles

import (
	"context"
	"regexp"
	"sync"

	"guildwarden/internal/storage"

	"go.uber.org/zap"
)

const document = "reactionroles"

// Binding is an immutable (message, emoji, role) association. Bindings are
// append-only and never pruned, even when the source message is gone.
type Binding struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
	RoleID    string `json:"roleId"`
}

var customEmojiPattern = regexp.MustCompile(`^<a?:\w+:(\d+)>$`)

// EmojiKey normalizes an emoji to its registry key: custom emoji by numeric
// id, standard emoji by their literal glyph.
func EmojiKey(input string) string {
	if match := customEmojiPattern.FindStringSubmatch(input); match != nil {
		return match[1]
	}
	return input
}

type Registry struct {
	mu       sync.Mutex
	bindings map[string][]Binding
	store    *storage.Store
	logger   *zap.Logger
}

func NewRegistry(ctx context.Context, store *storage.Store, logger *zap.Logger) (*Registry, error) {
	r := &Registry{
		bindings: make(map[string][]Binding),
		store:    store,
		logger:   logger,
	}
	if err := store.LoadDocument(ctx, document, &r.bindings); err != nil {
		return nil, err
	}
	return r, nil
}

// Register appends a binding and persists the whole per-guild binding list.
func (r *Registry) Register(ctx context.Context, guildID, messageID, emojiKey, roleID string) error {
	r.mu.Lock()
	r.bindings[guildID] = append(r.bindings[guildID], Binding{
		MessageID: messageID,
		Emoji:     emojiKey,
		RoleID:    roleID,
	})
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	err := r.store.SaveDocument(ctx, document, snapshot)
	if err != nil {
		r.logger.Warn("reaction roles persist failed", zap.Error(err))
	}
	return err
}

// Resolve returns the role bound to (messageID, emojiKey), first registered
// wins. Add and remove reaction events resolve identically; direction is the
// caller's concern.
func (r *Registry) Resolve(guildID, messageID, emojiKey string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, binding := range r.bindings[guildID] {
		if binding.MessageID == messageID && binding.Emoji == emojiKey {
			return binding.RoleID, true
		}
	}
	return "", false
}

func (r *Registry) snapshotLocked() map[string][]Binding {
	snapshot := make(map[string][]Binding, len(r.bindings))
	for guildID, bindings := range r.bindings {
		snapshot[guildID] = append([]Binding(nil), bindings...)
	}
	return snapshot
}
