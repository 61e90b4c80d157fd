package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"github.com/i474232898/current-conditions/internal/presenter"
)

// Target is what the scheduler drives; *presenter.Presenter satisfies it.
type Target interface {
	Refresh(ctx context.Context) error
	Tick(now time.Time)
}

// Options configure the two jobs.
type Options struct {
	// RefreshInterval is used unless RefreshCron is set.
	RefreshInterval time.Duration
	RefreshCron     string
	RefreshTimeout  time.Duration
	ClockInterval   time.Duration

	// AfterRefresh and AfterTick, if set, run on the job goroutine once the
	// display has been updated.
	AfterRefresh func(err error)
	AfterTick    func()
}

// Scheduler periodically refreshes the weather display and advances its clock.
type Scheduler struct {
	scheduler *gocron.Scheduler
	target    Target
	opts      Options
	log       zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// New creates a new Scheduler. Jobs run in the local time zone so cron
// expressions read like wall-clock times.
func New(target Target, opts Options, log zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.Local),
		target:    target,
		opts:      opts,
		log:       log.With().Str("component", "scheduler").Logger(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start schedules both jobs and starts the underlying scheduler. The first
// refresh runs immediately.
func (s *Scheduler) Start() error {
	if s.opts.ClockInterval <= 0 {
		return fmt.Errorf("clock interval must be positive, got %s", s.opts.ClockInterval)
	}

	var job *gocron.Scheduler
	if s.opts.RefreshCron != "" {
		job = s.scheduler.Cron(s.opts.RefreshCron).StartImmediately()
	} else {
		if s.opts.RefreshInterval <= 0 {
			return fmt.Errorf("refresh interval must be positive, got %s", s.opts.RefreshInterval)
		}
		job = s.scheduler.Every(s.opts.RefreshInterval)
	}
	if _, err := job.Tag("refresh").Do(s.runRefresh); err != nil {
		return fmt.Errorf("schedule refresh job: %w", err)
	}

	if _, err := s.scheduler.Every(s.opts.ClockInterval).SingletonMode().Tag("clock").Do(s.runTick); err != nil {
		return fmt.Errorf("schedule clock job: %w", err)
	}

	ev := s.log.Info().Dur("clock_interval", s.opts.ClockInterval)
	if s.opts.RefreshCron != "" {
		ev = ev.Str("refresh_cron", s.opts.RefreshCron)
	} else {
		ev = ev.Dur("refresh_interval", s.opts.RefreshInterval)
	}
	ev.Msg("Scheduler started")

	s.scheduler.StartAsync()
	return nil
}

// RefreshNow runs one refresh outside the schedule, e.g. on user request.
func (s *Scheduler) RefreshNow(ctx context.Context) error {
	return s.refresh(ctx)
}

func (s *Scheduler) runRefresh() {
	_ = s.refresh(s.ctx)
}

func (s *Scheduler) refresh(ctx context.Context) error {
	if s.opts.RefreshTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RefreshTimeout)
		defer cancel()
	}

	s.log.Debug().Msg("Running refresh job")
	err := s.target.Refresh(ctx)
	switch {
	case errors.Is(err, presenter.ErrSuperseded):
		s.log.Debug().Msg("Refresh superseded by a newer cycle")
		return err
	case err != nil:
		// the presenter already reported the failure; it retries on the next run
		s.log.Debug().Err(err).Msg("Refresh job failed")
	}

	if s.opts.AfterRefresh != nil {
		s.opts.AfterRefresh(err)
	}
	return err
}

func (s *Scheduler) runTick() {
	s.target.Tick(time.Now())
	if s.opts.AfterTick != nil {
		s.opts.AfterTick()
	}
}

// Stop stops the scheduler, cancels any in-flight refresh and future jobs.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		s.cancel()
		if s.scheduler != nil {
			s.scheduler.Stop()
		}
		s.log.Info().Msg("Scheduler stopped")
	})
}
