package main

import (
	"context"
	"io"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sostawatch/sostawatch/agent/internal/config"
	"github.com/sostawatch/sostawatch/agent/internal/runner"
	"github.com/sostawatch/sostawatch/agent/internal/schedule"
)

func newDaemonCommand(a *app) *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run every day at the scheduled time until stopped",
		Long: `Stay in the foreground and perform a run every day at schedule.hour:schedule.minute
in schedule.timezone. When --config is set the file is watched and changes
are applied without restarting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			d, err := newDaemon(a, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return d.run(ctx, runNow)
		},
	}
	cmd.Flags().BoolVar(&runNow, "run-now", false, "perform a forced run immediately on startup")
	return cmd
}

// daemon owns the scheduler and the runner it triggers. The runner is
// replaced whenever the config file changes.
type daemon struct {
	configPath string
	logLevel   string
	logOut     io.Writer

	sched *schedule.Scheduler

	mu      sync.Mutex
	current *runner.Runner
}

func newDaemon(a *app, logOut io.Writer) (*daemon, error) {
	r, err := runner.New(a.cfg)
	if err != nil {
		return nil, err
	}
	d := &daemon{
		configPath: a.configPath,
		logLevel:   a.logLevel,
		logOut:     logOut,
		current:    r,
	}
	d.sched, err = schedule.NewScheduler(a.cfg.Agent.Schedule, d.job)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (d *daemon) runner() *runner.Runner {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

func (d *daemon) job(ctx context.Context, fired time.Time) {
	// Errors are logged by the runner; the daemon keeps going.
	_, _ = d.runner().Run(ctx, fired, false)
}

// apply switches to updated: a new runner, a re-armed trigger and a new
// default logger. Nothing changes if the runner cannot be built or the
// trigger cannot be re-armed.
func (d *daemon) apply(updated *config.Config) error {
	next, err := runner.New(updated)
	if err != nil {
		return err
	}
	if err := d.sched.Reschedule(updated.Agent.Schedule); err != nil {
		return err
	}
	d.mu.Lock()
	d.current = next
	d.mu.Unlock()

	if logger, err := newLogger(d.logOut, updated.Agent.Logging, d.logLevel); err == nil {
		slog.SetDefault(logger)
	}
	slog.Info("daemon: config applied",
		"sources", len(updated.Agent.Sources), "next_run", d.sched.Next())
	return nil
}

// run starts the trigger and blocks until ctx is cancelled.
func (d *daemon) run(ctx context.Context, runNow bool) error {
	slog.Info("sostawatch-agent starting", "config", d.configPath)

	d.sched.Start()
	defer d.sched.Stop()

	if runNow {
		_, _ = d.runner().Run(ctx, time.Now(), true)
	}

	if d.configPath != "" {
		go func() {
			if err := config.Watch(ctx, d.configPath, func(updated *config.Config) {
				if err := d.apply(updated); err != nil {
					slog.Error("daemon: config reload rejected", "err", err)
				}
			}); err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	<-ctx.Done()
	slog.Info("sostawatch-agent shutting down")
	return nil
}
