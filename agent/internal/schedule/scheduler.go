package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sostawatch/sostawatch/agent/internal/config"
)

// Job is invoked once per trigger with the time the trigger fired.
type Job func(ctx context.Context, fired time.Time)

// Scheduler runs a Job every day at the configured local time. Overlapping
// triggers are skipped while a previous run is still in progress.
type Scheduler struct {
	job    Job
	parser cron.Parser

	mu    sync.Mutex
	cron  *cron.Cron
	entry cron.EntryID
	spec  string

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a Scheduler for cfg. Call Start to begin firing.
func NewScheduler(cfg config.ScheduleConfig, job Job) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		job:    job,
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		ctx:    ctx,
		cancel: cancel,
	}
	c, entry, spec, err := s.build(cfg)
	if err != nil {
		cancel()
		return nil, err
	}
	s.cron, s.entry, s.spec = c, entry, spec
	return s, nil
}

// Spec returns the cron expression currently armed, e.g. "30 7 * * *".
func (s *Scheduler) Spec() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spec
}

// Next returns the next scheduled trigger time.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron.Entry(s.entry).Next
}

// Start begins firing triggers in the background.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cron.Start()
	slog.Info("schedule: started", "spec", s.spec, "timezone", s.cron.Location().String(),
		"next", s.cron.Entry(s.entry).Next)
}

// Reschedule replaces the trigger with one built from cfg. A run already in
// progress is allowed to finish.
func (s *Scheduler) Reschedule(cfg config.ScheduleConfig) error {
	c, entry, spec, err := s.build(cfg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	old := s.cron
	s.cron, s.entry, s.spec = c, entry, spec
	c.Start()
	s.mu.Unlock()

	old.Stop()
	slog.Info("schedule: rescheduled", "spec", spec, "timezone", c.Location().String(),
		"next", c.Entry(entry).Next)
	return nil
}

// Stop halts triggering, cancels the context passed to a running job and
// waits for it to return.
func (s *Scheduler) Stop() {
	s.cancel()
	s.mu.Lock()
	c := s.cron
	s.mu.Unlock()

	<-c.Stop().Done()
	slog.Info("schedule: stopped")
}

func (s *Scheduler) build(cfg config.ScheduleConfig) (*cron.Cron, cron.EntryID, string, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, 0, "", fmt.Errorf("schedule: timezone %q: %w", cfg.Timezone, err)
	}
	spec := fmt.Sprintf("%d %d * * *", cfg.Minute, cfg.Hour)

	logger := slogLogger{}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithParser(s.parser),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	entry, err := c.AddFunc(spec, func() {
		s.job(s.ctx, time.Now().In(loc))
	})
	if err != nil {
		return nil, 0, "", fmt.Errorf("schedule: add %q: %w", spec, err)
	}
	return c, entry, spec, nil
}

// slogLogger adapts cron's logger interface to the default slog logger.
type slogLogger struct{}

func (slogLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (slogLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
