package detect

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"

	"github.com/sostawatch/sostawatch/agent/internal/relevance"
	"github.com/sostawatch/sostawatch/agent/internal/scraper"
	"github.com/sostawatch/sostawatch/agent/internal/store"
	"github.com/sostawatch/sostawatch/pkg/types"
)

// ReasonOther labels fetch failures that did not come back as a
// *scraper.FetchError.
const ReasonOther scraper.Reason = "other"

// Fetcher returns the normalized text of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Matcher reports keyword hits for normalized text.
type Matcher interface {
	Match(text string) relevance.Match
}

// Stats counts what happened to each page during one Detect call.
type Stats struct {
	Checked       int
	FetchFailures map[scraper.Reason]int
	Irrelevant    int
	Baselines     int
	Unchanged     int
	Changed       int
}

// Failed returns the total number of fetch failures.
func (s Stats) Failed() int {
	var n int
	for _, c := range s.FetchFailures {
		n += c
	}
	return n
}

// Result is the outcome of one Detect call.
type Result struct {
	// Fingerprints is the updated mapping to persist.
	Fingerprints *store.Fingerprints

	// Changes lists changed pages in source/url iteration order.
	Changes []types.ChangeEvent

	Stats Stats
}

// Detector compares fetched pages against stored fingerprints.
type Detector struct {
	fetcher Fetcher
	matcher Matcher
}

// New returns a Detector that fetches with f and filters with m.
func New(f Fetcher, m Matcher) *Detector {
	return &Detector{fetcher: f, matcher: m}
}

// Fingerprint returns the hex SHA-256 digest of normalized text.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Detect processes every page of sources sequentially against prev.
// prev is left untouched; the updated mapping is returned in Result. A nil
// prev is treated as an empty mapping.
func (d *Detector) Detect(ctx context.Context, sources []types.Source, prev *store.Fingerprints) Result {
	if prev == nil {
		prev = store.NewFingerprints()
	}
	res := Result{
		Fingerprints: prev.Clone(),
		Stats:        Stats{FetchFailures: make(map[scraper.Reason]int)},
	}

	for _, src := range sources {
		for _, url := range src.URLs {
			res.Stats.Checked++
			d.process(ctx, src.Name, url, &res)
		}
	}
	return res
}

func (d *Detector) process(ctx context.Context, source, url string, res *Result) {
	text, err := d.fetcher.Fetch(ctx, url)
	if err != nil {
		reason := ReasonOther
		var fe *scraper.FetchError
		if errors.As(err, &fe) {
			reason = fe.Reason
		}
		res.Stats.FetchFailures[reason]++
		slog.Warn("detect: fetch failed, skipping page",
			"source", source, "url", url, "reason", reason, "err", err)
		return
	}

	m := d.matcher.Match(text)
	if !m.Relevant() {
		res.Stats.Irrelevant++
		slog.Info("detect: page not relevant, skipping",
			"source", source, "url", url,
			"topic_hits", m.Topic, "domain_hits", m.Domain)
		return
	}

	hash := Fingerprint(text)
	key := store.Key(source, url)
	previous, seen := res.Fingerprints.Get(key)

	// An empty stored hash (hand-edited state) counts as no baseline.
	switch {
	case !seen || previous == "":
		res.Stats.Baselines++
		slog.Info("detect: baseline recorded", "source", source, "url", url, "hash", hash)
	case previous != hash:
		res.Stats.Changed++
		res.Changes = append(res.Changes, types.ChangeEvent{
			Source:       source,
			URL:          url,
			PreviousHash: previous,
			CurrentHash:  hash,
		})
		slog.Info("detect: change detected",
			"source", source, "url", url, "previous", previous, "current", hash)
	default:
		res.Stats.Unchanged++
		slog.Debug("detect: unchanged", "source", source, "url", url)
	}

	res.Fingerprints.Set(key, hash)
}
