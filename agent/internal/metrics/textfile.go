package metrics

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/sostawatch/sostawatch/agent/internal/detect"
	"github.com/sostawatch/sostawatch/agent/internal/scraper"
)

const namespace = "sostawatch"

// Metric names written to the textfile.
const (
	MetricLastRunTimestamp = namespace + "_last_run_timestamp_seconds"
	MetricLastRunDuration  = namespace + "_last_run_duration_seconds"
	MetricLastRunSuccess   = namespace + "_last_run_success"
	MetricPagesChecked     = namespace + "_pages_checked"
	MetricFetchFailures    = namespace + "_fetch_failures"
	MetricPagesIrrelevant  = namespace + "_pages_irrelevant"
	MetricBaselines        = namespace + "_baselines_recorded"
	MetricPagesUnchanged   = namespace + "_pages_unchanged"
	MetricChanges          = namespace + "_changes_detected"
	MetricNotifySuccess    = namespace + "_notification_success"
)

// failureReasons fixes the label set so every series is present on each run.
var failureReasons = []scraper.Reason{
	scraper.ReasonNetwork,
	scraper.ReasonTimeout,
	scraper.ReasonStatus,
	scraper.ReasonRead,
	detect.ReasonOther,
}

// Run summarizes one completed monitoring run.
type Run struct {
	Started  time.Time
	Duration time.Duration
	Stats    detect.Stats

	// Err is the error that ended the run, if any.
	Err error

	// NotifyErr is the delivery error, if notification was attempted and failed.
	NotifyErr error
}

// Families converts r into metric families, sorted by name.
func Families(r Run) []*dto.MetricFamily {
	s := r.Stats
	mfs := []*dto.MetricFamily{
		gauge(MetricLastRunTimestamp, "Unix time the last run started.",
			float64(r.Started.UnixNano())/1e9),
		gauge(MetricLastRunDuration, "Wall-clock duration of the last run.",
			r.Duration.Seconds()),
		gauge(MetricLastRunSuccess, "1 if the last run completed without error.",
			boolValue(r.Err == nil)),
		gauge(MetricPagesChecked, "Pages processed in the last run.", float64(s.Checked)),
		gauge(MetricPagesIrrelevant, "Pages skipped by the relevance filter in the last run.", float64(s.Irrelevant)),
		gauge(MetricBaselines, "Pages fingerprinted for the first time in the last run.", float64(s.Baselines)),
		gauge(MetricPagesUnchanged, "Relevant pages whose content did not change in the last run.", float64(s.Unchanged)),
		gauge(MetricChanges, "Pages whose content changed in the last run.", float64(s.Changed)),
		gauge(MetricNotifySuccess, "1 unless notification delivery failed in the last run.",
			boolValue(r.NotifyErr == nil)),
	}

	failures := &dto.MetricFamily{
		Name: proto.String(MetricFetchFailures),
		Help: proto.String("Pages that could not be fetched in the last run, by reason."),
		Type: dto.MetricType_GAUGE.Enum(),
	}
	for _, reason := range failureReasons {
		failures.Metric = append(failures.Metric, &dto.Metric{
			Label: []*dto.LabelPair{{Name: proto.String("reason"), Value: proto.String(string(reason))}},
			Gauge: &dto.Gauge{Value: proto.Float64(float64(s.FetchFailures[reason]))},
		})
	}
	mfs = append(mfs, failures)

	sortFamilies(mfs)
	return mfs
}

// WriteTextfile renders r and atomically replaces the file at path. The
// textfile collector must never observe a partially written file.
func WriteTextfile(path string, r Run) error {
	var buf bytes.Buffer
	for _, mf := range Families(r) {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return fmt.Errorf("metrics: encode %s: %w", mf.GetName(), err)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("metrics: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("metrics: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("metrics: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("metrics: close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("metrics: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("metrics: rename: %w", err)
	}
	return nil
}

func gauge(name, help string, v float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(name),
		Help:   proto.String(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{{Gauge: &dto.Gauge{Value: proto.Float64(v)}}},
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func sortFamilies(mfs []*dto.MetricFamily) {
	sort.Slice(mfs, func(i, j int) bool { return mfs[i].GetName() < mfs[j].GetName() })
}
