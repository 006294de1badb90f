package storage

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// CleanupScheduler periodically removes expired uploads.
type CleanupScheduler struct {
	cron   *cron.Cron
	store  *FileStore
	maxAge time.Duration
	log    zerolog.Logger
}

// NewCleanupScheduler registers a cleanup job on schedule, a standard
// 5-field cron spec or a descriptor such as "@daily".
func NewCleanupScheduler(store *FileStore, schedule string, maxAge time.Duration, log zerolog.Logger) (*CleanupScheduler, error) {
	cronLog := log.With().Str("component", "cleanup").Logger()
	c := cron.New(cron.WithLogger(cron.PrintfLogger(&cronLog)))

	s := &CleanupScheduler{cron: c, store: store, maxAge: maxAge, log: log}
	if _, err := c.AddFunc(schedule, func() { s.RunNow() }); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins running the job in the background.
func (s *CleanupScheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.cron.Entries())).Dur("max_age", s.maxAge).Msg("cleanup scheduler started")
}

// Stop stops the scheduler; the returned context is done once a running
// job has finished.
func (s *CleanupScheduler) Stop() context.Context {
	s.log.Info().Msg("cleanup scheduler stopping")
	return s.cron.Stop()
}

// RunNow runs one cleanup pass synchronously.
func (s *CleanupScheduler) RunNow() int {
	removed, err := s.store.Cleanup(s.maxAge)
	if err != nil {
		s.log.Error().Err(err).Int("removed", removed).Msg("cleanup failed")
		return removed
	}
	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("expired uploads removed")
	}
	return removed
}
