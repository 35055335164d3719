package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sostawatch/sostawatch/agent/internal/config"
)

// app holds the global flags and the configuration they resolve to.
type app struct {
	configPath string
	envFiles   []string
	logLevel   string

	cfg *config.Config
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "agent",
		Short: "Watch parking pages for hybrid-vehicle news",
		Long: `sostawatch-agent fetches a fixed list of municipal pages, keeps those that
mention both hybrid vehicles and parking, and notifies when their content
changes between runs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "",
		"path to YAML config file (compiled-in defaults when empty)")
	root.PersistentFlags().StringSliceVar(&a.envFiles, "env-file", []string{".env"},
		"dotenv files to load before reading the environment; missing files are ignored")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "",
		"override logging.level (debug|info|warn|error)")

	root.AddCommand(
		newRunCommand(a),
		newDaemonCommand(a),
		newStateCommand(a),
		newCheckCommand(a),
	)
	return root
}

// setup loads env files and config, then installs the default logger. Logs go
// to logOut so stdout stays free for command output.
func (a *app) setup(logOut io.Writer) error {
	if err := config.LoadEnv(a.envFiles...); err != nil {
		return err
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := newLogger(logOut, cfg.Agent.Logging, a.logLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	slog.Debug("config loaded",
		"config", a.configPath,
		"sources", len(cfg.Agent.Sources),
		"state_path", cfg.Agent.StatePath,
		"timezone", cfg.Agent.Schedule.Timezone,
	)
	return nil
}

// newLogger builds the slog logger selected by cfg. A non-empty levelOverride
// takes precedence over cfg.Level.
func newLogger(w io.Writer, cfg config.LoggingConfig, levelOverride string) (*slog.Logger, error) {
	name := cfg.Level
	if levelOverride != "" {
		name = levelOverride
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(name))); err != nil {
		return nil, fmt.Errorf("log level %q: %w", name, err)
	}

	opts := &slog.HandlerOptions{Level: level}
	switch cfg.Format {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "", "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("log format %q: must be json or text", cfg.Format)
	}
}
