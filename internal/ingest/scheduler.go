package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler fires the pipeline runner on a fixed interval. Each run is
// a self-contained batch job; overlapping runs are prevented by
// skipping a tick while the previous run is still in flight.
type Scheduler struct {
	runner *Runner
	cron   *cron.Cron
}

func NewScheduler(runner *Runner, loc *time.Location) *Scheduler {
	return &Scheduler{
		runner: runner,
		cron:   cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// Start runs one pipeline batch immediately, then schedules repeats at
// the given interval until Stop is called.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) error {
	s.runner.RunOnce(ctx)

	spec := fmt.Sprintf("@every %s", interval)
	if _, err := s.cron.AddFunc(spec, func() { s.runner.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule pipeline: %w", err)
	}
	s.cron.Start()
	log.Printf("scheduler: pipeline scheduled every %s", interval)
	return nil
}

// Stop halts the schedule and waits for any in-flight run to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("scheduler: stopped")
}
