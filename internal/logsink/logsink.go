package logsink

import (
	"context"
	"strings"
	"time"

	"guildwarden/internal/storage"

	"go.uber.org/zap"
)

// Event is the structured record handed to the operator-facing log channel.
type Event struct {
	Title       string
	Description string
	Fields      []Field
}

type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Sink persists events, mirrors them to the process log, and hands them to an
// optional notifier for channel delivery. Delivery is best-effort: a guild
// without a log channel drops the event silently.
type Sink struct {
	store  *storage.Store
	logger *zap.Logger
	notify func(context.Context, string, Event)
}

func New(store *storage.Store, logger *zap.Logger) *Sink {
	return &Sink{store: store, logger: logger}
}

func (s *Sink) SetNotifier(notify func(ctx context.Context, guildID string, event Event)) {
	s.notify = notify
}

func (s *Sink) Emit(ctx context.Context, guildID, userID string, event Event) {
	if s.store != nil {
		entry := storage.ModLog{
			GuildID:   guildID,
			UserID:    userID,
			Event:     event.Title,
			Details:   flatten(event),
			CreatedAt: time.Now(),
		}
		if err := s.store.AddModLog(ctx, entry); err != nil {
			s.logger.Warn("mod log persist failed", zap.Error(err))
		}
	}
	if s.notify != nil {
		s.notify(ctx, guildID, event)
	}
	s.logger.Info("mod event",
		zap.String("guild_id", guildID),
		zap.String("user_id", userID),
		zap.String("title", event.Title),
		zap.String("description", event.Description),
	)
}

func flatten(event Event) string {
	parts := make([]string, 0, len(event.Fields)+1)
	if event.Description != "" {
		parts = append(parts, event.Description)
	}
	for _, field := range event.Fields {
		parts = append(parts, field.Name+"="+field.Value)
	}
	return strings.Join(parts, " | ")
}

// Truncate caps user-supplied content before it is embedded in an event.
func Truncate(content string, limit int) string {
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit])
}
