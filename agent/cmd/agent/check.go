package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/sostawatch/sostawatch/agent/internal/detect"
	"github.com/sostawatch/sostawatch/agent/internal/relevance"
	"github.com/sostawatch/sostawatch/agent/internal/scraper"
	"github.com/sostawatch/sostawatch/agent/internal/security"
)

func newCheckCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <url>",
		Short: "Fetch one page and show how it would be classified",
		Long: `Fetch a single URL with the configured fetch settings and print whether it
passes the relevance filter, the keywords it matched and its fingerprint.
For HTTPS pages the served certificate is inspected as well. The state file
is not read or written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := args[0]
			text, err := scraper.New(a.cfg.Agent.Fetch).Fetch(cmd.Context(), url)
			if err != nil {
				return err
			}
			kw := a.cfg.Agent.Keywords
			m := relevance.New(kw.Topic, kw.Domain).Match(text)
			cert := security.Check(cmd.Context(), url, nil, time.Now())
			renderCheck(cmd.OutOrStdout(), url, text, m, cert)
			return nil
		},
	}
}

func renderCheck(w io.Writer, url, text string, m relevance.Match, cert *security.CertStatus) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendRows([]table.Row{
		{"URL", url},
		{"Text length", fmt.Sprintf("%d chars", len([]rune(text)))},
		{"Topic hits", joinOrDash(m.Topic)},
		{"Domain hits", joinOrDash(m.Domain)},
		{"Relevant", m.Relevant()},
		{"Fingerprint", detect.Fingerprint(text)},
	})
	if cert != nil {
		tlsInfo := cert.Status
		if !cert.NotAfter.IsZero() {
			tlsInfo = fmt.Sprintf("%s, expires %s (%d days), issuer %s",
				cert.Status, cert.NotAfter.Format("2006-01-02"), cert.DaysLeft, cert.Issuer)
		}
		t.AppendRow(table.Row{"TLS certificate", tlsInfo})
	}
	t.Render()
}

func joinOrDash(s []string) string {
	if len(s) == 0 {
		return "-"
	}
	return strings.Join(s, ", ")
}
