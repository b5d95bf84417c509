// Package scheduler runs periodic housekeeping jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vbonduro/propertypassport/internal/apicache"
	"github.com/vbonduro/propertypassport/internal/domain"
)

// InvitationRetention is how long an expired, unaccepted invitation is kept.
const InvitationRetention = 30 * 24 * time.Hour

// Recorder receives the outcome of each job run.
type Recorder interface {
	JobRun(job string, err error)
}

type Job struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) error
}

type Scheduler struct {
	cron     *cron.Cron
	recorder Recorder
	ctx      context.Context
	cancel   context.CancelFunc
}

func New(recorder Recorder) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		recorder: recorder,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Add registers job. Schedule accepts standard five-field expressions and
// descriptors such as "@every 1h" or "@daily".
func (s *Scheduler) Add(job Job) error {
	if _, err := s.cron.AddFunc(job.Schedule, func() { s.run(job) }); err != nil {
		return fmt.Errorf("failed to schedule %s %q: %w", job.Name, job.Schedule, err)
	}
	slog.Info("scheduled job", "job", job.Name, "schedule", job.Schedule)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs, cancels running jobs and waits for them to return
// or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	s.cancel()
	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("scheduler stop timed out")
	}
}

func (s *Scheduler) run(job Job) {
	start := time.Now()
	err := job.Run(s.ctx)
	if s.recorder != nil {
		s.recorder.JobRun(job.Name, err)
	}
	if err != nil {
		slog.Error("scheduled job failed", "job", job.Name, "error", err)
		return
	}
	slog.Debug("scheduled job finished", "job", job.Name, "duration", time.Since(start))
}

func CachePurgeJob(cache apicache.Cache, schedule string) Job {
	return Job{
		Name:     "cache-purge",
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			n, err := cache.Purge(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				slog.Info("purged expired cache entries", "count", n)
			}
			return nil
		},
	}
}

// InvitationPurger deletes unaccepted invitations that expired before cutoff.
type InvitationPurger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

func InvitationPurgeJob(invitations InvitationPurger) Job {
	return Job{
		Name:     "invitation-purge",
		Schedule: "@daily",
		Run: func(ctx context.Context) error {
			n, err := invitations.PurgeExpired(ctx, domain.Now().Add(-InvitationRetention))
			if err != nil {
				return err
			}
			if n > 0 {
				slog.Info("purged expired invitations", "count", n)
			}
			return nil
		},
	}
}
