package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sostawatch/sostawatch/agent/internal/runner"
)

func newRunCommand(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Perform one monitoring run",
		Long: `Perform one monitoring run. Unless --force is given or schedule.gate is
false, the run only proceeds when the local time in schedule.timezone is
exactly schedule.hour:schedule.minute; otherwise it exits without doing
anything. This suits external schedulers that fire more often than needed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			r, err := runner.New(a.cfg)
			if err != nil {
				return err
			}
			_, err = r.Run(ctx, time.Now(), force)
			return err
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "run regardless of the time gate")
	return cmd
}
