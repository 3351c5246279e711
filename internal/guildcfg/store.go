package guildcfg

import (
	"context"
	"strings"
	"sync"

	"guildwarden/internal/storage"

	"go.uber.org/zap"
)

const document = "config"

// GuildConfig is the per-guild moderation policy. A record exists for every
// guild once it has been referenced the first time; defaults are synthesized,
// never partial.
type GuildConfig struct {
	LogChannelID        string   `json:"logChannelId"`
	WelcomeChannelID    string   `json:"welcomeChannelId"`
	WelcomeMessage      string   `json:"welcomeMessage"`
	GoodbyeChannelID    string   `json:"goodbyeChannelId"`
	GoodbyeMessage      string   `json:"goodbyeMessage"`
	AutoRoleID          string   `json:"autoRoleId"`
	VerifyRoleID        string   `json:"verifyRoleId"`
	AntiSpamEnabled     bool     `json:"antiSpamEnabled"`
	LinkFilterEnabled   bool     `json:"linkFilterEnabled"`
	InviteFilterEnabled bool     `json:"inviteFilterEnabled"`
	BlacklistWords      []string `json:"blacklistWords"`
}

// Patch is an explicit optional-field update: nil means leave unchanged, a
// non-nil pointer overwrites, including an overwrite with the empty value.
type Patch struct {
	LogChannelID        *string
	WelcomeChannelID    *string
	WelcomeMessage      *string
	GoodbyeChannelID    *string
	GoodbyeMessage      *string
	AutoRoleID          *string
	VerifyRoleID        *string
	AntiSpamEnabled     *bool
	LinkFilterEnabled   *bool
	InviteFilterEnabled *bool
	BlacklistWords      *[]string
}

func Defaults() GuildConfig {
	return GuildConfig{
		WelcomeMessage:      "Welcome {user} to {server}!",
		GoodbyeMessage:      "{user} left the server.",
		AntiSpamEnabled:     true,
		LinkFilterEnabled:   false,
		InviteFilterEnabled: true,
		BlacklistWords:      []string{},
	}
}

// Store owns the in-memory config map. The map is authoritative; every mutation
// persists the whole collection and a failed persist only surfaces as an error.
type Store struct {
	mu      sync.Mutex
	configs map[string]GuildConfig
	store   *storage.Store
	logger  *zap.Logger
}

func NewStore(ctx context.Context, store *storage.Store, logger *zap.Logger) (*Store, error) {
	s := &Store{
		configs: make(map[string]GuildConfig),
		store:   store,
		logger:  logger,
	}
	if err := store.LoadDocument(ctx, document, &s.configs); err != nil {
		return nil, err
	}
	return s, nil
}

// Get never fails: an unseen guild gets defaults, which are scheduled for a
// durability write immediately.
func (s *Store) Get(ctx context.Context, guildID string) GuildConfig {
	s.mu.Lock()
	cfg, ok := s.configs[guildID]
	if !ok {
		cfg = Defaults()
		s.configs[guildID] = cfg
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if !ok {
		s.persist(ctx, snapshot)
	}
	return cfg
}

// Update applies the patch and persists the full collection. The in-memory
// value is updated even when the persist fails.
func (s *Store) Update(ctx context.Context, guildID string, patch Patch) (GuildConfig, error) {
	s.mu.Lock()
	cfg, ok := s.configs[guildID]
	if !ok {
		cfg = Defaults()
	}

	applyString(&cfg.LogChannelID, patch.LogChannelID)
	applyString(&cfg.WelcomeChannelID, patch.WelcomeChannelID)
	applyString(&cfg.WelcomeMessage, patch.WelcomeMessage)
	applyString(&cfg.GoodbyeChannelID, patch.GoodbyeChannelID)
	applyString(&cfg.GoodbyeMessage, patch.GoodbyeMessage)
	applyString(&cfg.AutoRoleID, patch.AutoRoleID)
	applyString(&cfg.VerifyRoleID, patch.VerifyRoleID)
	if patch.AntiSpamEnabled != nil {
		cfg.AntiSpamEnabled = *patch.AntiSpamEnabled
	}
	if patch.LinkFilterEnabled != nil {
		cfg.LinkFilterEnabled = *patch.LinkFilterEnabled
	}
	if patch.InviteFilterEnabled != nil {
		cfg.InviteFilterEnabled = *patch.InviteFilterEnabled
	}
	if patch.BlacklistWords != nil {
		cfg.BlacklistWords = cleanWords(*patch.BlacklistWords)
	}

	s.configs[guildID] = cfg
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	err := s.persist(ctx, snapshot)
	return cfg, err
}

func (s *Store) snapshotLocked() map[string]GuildConfig {
	snapshot := make(map[string]GuildConfig, len(s.configs))
	for id, cfg := range s.configs {
		snapshot[id] = cfg
	}
	return snapshot
}

func (s *Store) persist(ctx context.Context, snapshot map[string]GuildConfig) error {
	err := s.store.SaveDocument(ctx, document, snapshot)
	if err != nil {
		s.logger.Warn("config persist failed", zap.Error(err))
	}
	return err
}

func applyString(dest *string, value *string) {
	if value != nil {
		*dest = *value
	}
}

func cleanWords(words []string) []string {
	clean := make([]string, 0, len(words))
	for _, word := range words {
		trimmed := strings.TrimSpace(word)
		if trimmed == "" {
			continue
		}
		clean = append(clean, trimmed)
	}
	return clean
}
