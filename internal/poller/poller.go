package poller

import (
	"context"
	"log"
	"time"

	"carshop-display-backend/config"
	"carshop-display-backend/internal/slots"
)

// Refresher reloads the table from the system of record.
type Refresher interface {
	Refresh(ctx context.Context) (slots.Table, error)
}

// Service periodically re-reads every screen and feeds the result in as one bulk replace.
type Service struct {
	enabled  bool
	interval time.Duration
	hub      Refresher
}

// NewService creates a poller from the upstream config.
func NewService(cfg *config.UpstreamConfig, hub Refresher) *Service {
	return &Service{
		enabled:  cfg.PollEnabled,
		interval: cfg.Interval,
		hub:      hub,
	}
}

// Run polls until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	if !s.enabled || s.interval <= 0 {
		log.Println("Poller is disabled. Not starting.")
		return
	}
	log.Printf("Starting poller, interval %s", s.interval)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Poller shutting down.")
			return
		case <-timer.C:
			s.PollOnce(ctx)
			timer.Reset(s.interval)
		}
	}
}

// PollOnce performs a single reload. On failure the table is left as it was.
func (s *Service) PollOnce(ctx context.Context) {
	table, err := s.hub.Refresh(ctx)
	if err != nil {
		log.Printf("Poll cycle aborted, keeping current screens: %v", err)
		return
	}
	log.Printf("Poll cycle finished: version %d, %d of %d screens occupied", table.Version, table.Occupied(), len(table.Slots))
}
