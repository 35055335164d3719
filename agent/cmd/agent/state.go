package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/sostawatch/sostawatch/agent/internal/store"
)

func newStateCommand(a *app) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Print the stored page fingerprints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if path == "" {
				path = a.cfg.Agent.StatePath
			}
			fp, err := store.New(path).Load()
			if err != nil {
				return err
			}
			renderState(cmd.OutOrStdout(), path, fp)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "state file to read (defaults to agent.state_path)")
	return cmd
}

func renderState(w io.Writer, path string, fp *store.Fingerprints) {
	if fp.Len() == 0 {
		fmt.Fprintf(w, "No fingerprints stored in %s\n", path)
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Source", "URL", "Fingerprint"})
	for _, key := range fp.Keys() {
		hash, _ := fp.Get(key)
		source, url, ok := strings.Cut(key, "::")
		if !ok {
			source, url = "", key
		}
		t.AppendRow(table.Row{source, url, hash})
	}
	t.AppendFooter(table.Row{"", "Total", fp.Len()})
	t.Render()
}
