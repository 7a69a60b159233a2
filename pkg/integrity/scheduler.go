package integrity

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the sweeper on a cron schedule.
type Scheduler struct {
	sweeper *Sweeper
	cron    *cron.Cron
}

// NewScheduler schedules periodic sweeps. The schedule accepts standard
// cron expressions and the @every form.
func NewScheduler(sweeper *Sweeper, schedule string) (*Scheduler, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := sweeper.Run(ctx); err != nil {
			sweeper.log.WithError(err).Error("integrity sweep failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid integrity schedule %q: %w", schedule, err)
	}

	return &Scheduler{sweeper: sweeper, cron: c}, nil
}

// Start begins running sweeps in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
