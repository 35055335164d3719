// Command agent monitors municipal parking pages for news about hybrid
// vehicles and reports changes.
package main

import (
	"log/slog"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		slog.Error("sostawatch-agent: exiting", "err", err)
		os.Exit(1)
	}
}
