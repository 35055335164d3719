package schedule

import (
	"time"

	"github.com/sostawatch/sostawatch/agent/internal/config"
)

// Gate admits a run only when the local wall-clock time equals hour:minute.
type Gate struct {
	loc    *time.Location
	hour   int
	minute int
}

// NewGate builds a Gate from cfg. It fails only if the time zone is unknown.
func NewGate(cfg config.ScheduleConfig) (*Gate, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return &Gate{loc: loc, hour: cfg.Hour, minute: cfg.Minute}, nil
}

// Open reports whether now, converted to the gate's zone, falls in the
// configured minute. Seconds are ignored.
func (g *Gate) Open(now time.Time) bool {
	local := now.In(g.loc)
	return local.Hour() == g.hour && local.Minute() == g.minute
}

// Location returns the gate's time zone.
func (g *Gate) Location() *time.Location { return g.loc }

// Next returns the first instant after now at which the gate opens.
func (g *Gate) Next(now time.Time) time.Time {
	local := now.In(g.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), g.hour, g.minute, 0, 0, g.loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, g.hour, g.minute, 0, 0, g.loc)
	}
	return next
}
