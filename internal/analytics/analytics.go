package analytics

import (
	"context"
	"time"

	"guildwarden/internal/storage"
)

// Service summarizes persisted mod_logs rows for the moderation report
// surface. It reads only; the log sink owns writes.
type Service struct {
	store *storage.Store
}

func New(store *storage.Store) *Service {
	return &Service{store: store}
}

type Report struct {
	Total   int
	ByEvent map[string]int
}

func (s *Service) Report(ctx context.Context, guildID string, since time.Time) (Report, error) {
	logs, err := s.store.ListModLogs(ctx, guildID, since)
	if err != nil {
		return Report{}, err
	}

	report := Report{ByEvent: make(map[string]int)}
	for _, log := range logs {
		report.Total++
		report.ByEvent[log.Event]++
	}
	return report, nil
}
