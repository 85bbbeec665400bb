package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// SessionPurger deletes expired session tokens.
type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

// Scheduler runs periodic maintenance.
type Scheduler struct {
	cron     *cron.Cron
	purger   SessionPurger
	schedule string
	log      zerolog.Logger
}

// NewScheduler runs the session purge on schedule, a standard five-field
// cron spec or a descriptor such as "@hourly".
func NewScheduler(purger SessionPurger, schedule string, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		purger:   purger,
		schedule: schedule,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if s.purger == nil || s.schedule == "" {
		return nil
	}
	if _, err := s.cron.AddFunc(s.schedule, s.purgeSessions); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info().Str("schedule", s.schedule).Msg("session cleanup scheduled")
	return nil
}

// Stop halts the scheduler and waits up to five seconds for a running job.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) purgeSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	n, err := s.purger.PurgeExpiredSessions(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("purge expired sessions failed")
		return
	}
	if n > 0 {
		s.log.Info().Int64("deleted", n).Msg("expired sessions purged")
	}
}
