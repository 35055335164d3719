package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sostawatch/sostawatch/agent/internal/config"
	"github.com/sostawatch/sostawatch/agent/internal/detect"
	"github.com/sostawatch/sostawatch/agent/internal/metrics"
	"github.com/sostawatch/sostawatch/agent/internal/notify"
	"github.com/sostawatch/sostawatch/agent/internal/relevance"
	"github.com/sostawatch/sostawatch/agent/internal/schedule"
	"github.com/sostawatch/sostawatch/agent/internal/scraper"
	"github.com/sostawatch/sostawatch/agent/internal/store"
	"github.com/sostawatch/sostawatch/pkg/types"
)

// Notifier delivers a summary of detected changes.
type Notifier interface {
	Notify(ctx context.Context, events []types.ChangeEvent, ts time.Time) error
}

// Deps are the collaborators of a Runner.
type Deps struct {
	Sources  []types.Source
	Store    *store.Store
	Detector *detect.Detector
	Notifier Notifier

	// Gate is consulted before any work. Nil disables the check.
	Gate *schedule.Gate

	// MetricsPath is the Prometheus textfile to write. Empty disables export.
	MetricsPath string
}

// Runner performs monitoring runs.
type Runner struct {
	deps Deps
}

// Outcome describes a finished (or skipped) run.
type Outcome struct {
	RunID string

	// Skipped is true when the gate was closed and nothing was done.
	Skipped bool

	Changes []types.ChangeEvent
	Stats   detect.Stats
}

// New wires a Runner from cfg using the HTTP fetcher, keyword filter,
// JSON store and configured notification channels.
func New(cfg *config.Config) (*Runner, error) {
	a := cfg.Agent

	loc, err := a.Schedule.Location()
	if err != nil {
		return nil, fmt.Errorf("runner: %w", err)
	}

	var gate *schedule.Gate
	if a.Schedule.Gate {
		if gate, err = schedule.NewGate(a.Schedule); err != nil {
			return nil, fmt.Errorf("runner: %w", err)
		}
	}

	return NewWithDeps(Deps{
		Sources:     a.Sources,
		Store:       store.New(a.StatePath),
		Detector:    detect.New(scraper.New(a.Fetch), relevance.New(a.Keywords.Topic, a.Keywords.Domain)),
		Notifier:    notify.New(a.Notify, loc),
		Gate:        gate,
		MetricsPath: a.Metrics.TextfilePath,
	}), nil
}

// NewWithDeps returns a Runner using the given collaborators.
func NewWithDeps(deps Deps) *Runner {
	return &Runner{deps: deps}
}

// Run performs one invocation at now. Unless force is set, a closed gate ends
// the run before any fetch, state write or notification.
//
// The updated fingerprints are saved before notifying; a delivery failure is
// returned but does not roll them back.
func (r *Runner) Run(ctx context.Context, now time.Time, force bool) (Outcome, error) {
	out := Outcome{RunID: uuid.NewString()}
	log := slog.With("run_id", out.RunID)

	if r.deps.Gate != nil && !force && !r.deps.Gate.Open(now) {
		out.Skipped = true
		log.Info("runner: outside scheduled minute, skipping",
			"now", now.In(r.deps.Gate.Location()).Format(time.RFC3339),
			"next", r.deps.Gate.Next(now).Format(time.RFC3339))
		return out, nil
	}

	started := time.Now()
	log.Info("runner: run started", "sources", len(r.deps.Sources), "forced", force)

	var notifyErr error
	err := r.run(ctx, log, now, &out, &notifyErr)

	r.exportMetrics(log, metrics.Run{
		Started:   started,
		Duration:  time.Since(started),
		Stats:     out.Stats,
		Err:       err,
		NotifyErr: notifyErr,
	})

	if err != nil {
		log.Error("runner: run failed", "err", err)
		return out, err
	}
	log.Info("runner: run finished",
		"checked", out.Stats.Checked,
		"failed", out.Stats.Failed(),
		"irrelevant", out.Stats.Irrelevant,
		"baselines", out.Stats.Baselines,
		"unchanged", out.Stats.Unchanged,
		"changed", out.Stats.Changed,
		"duration", time.Since(started))
	return out, nil
}

func (r *Runner) run(ctx context.Context, log *slog.Logger, now time.Time, out *Outcome, notifyErr *error) error {
	prev, err := r.deps.Store.Load()
	if err != nil {
		return fmt.Errorf("runner: load state: %w", err)
	}
	log.Debug("runner: state loaded", "path", r.deps.Store.Path(), "entries", prev.Len())

	res := r.deps.Detector.Detect(ctx, r.deps.Sources, prev)
	out.Changes = res.Changes
	out.Stats = res.Stats

	if err := r.deps.Store.Save(res.Fingerprints); err != nil {
		return fmt.Errorf("runner: save state: %w", err)
	}
	log.Debug("runner: state saved", "path", r.deps.Store.Path(), "entries", res.Fingerprints.Len())

	if len(res.Changes) == 0 {
		log.Info("runner: no changes detected")
		return nil
	}
	if err := r.deps.Notifier.Notify(ctx, res.Changes, now); err != nil {
		*notifyErr = err
		return fmt.Errorf("runner: notify: %w", err)
	}
	return nil
}

func (r *Runner) exportMetrics(log *slog.Logger, m metrics.Run) {
	if r.deps.MetricsPath == "" {
		return
	}
	if err := metrics.WriteTextfile(r.deps.MetricsPath, m); err != nil {
		log.Warn("runner: metrics export failed", "path", r.deps.MetricsPath, "err", err)
	}
}
