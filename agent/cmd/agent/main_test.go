package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sostawatch/sostawatch/agent/internal/config"
	"github.com/sostawatch/sostawatch/agent/internal/detect"
	"github.com/sostawatch/sostawatch/agent/internal/store"
)

const relevantPage = `<html><head><script>var x = "ibrid";</script></head>
<body><h1>Strisce blu</h1><p>Sosta gratuita per le auto IBRIDE.</p></body></html>`

// execute runs the root command with args and returns what it wrote to stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append(args, "--env-file", ""))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, config.LoggingConfig{Level: "warn", Format: "json"}, "")
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "source", "Roma Capitale")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"source":"Roma Capitale"`)
}

func TestNewLogger_OverrideAndText(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, config.LoggingConfig{Level: "error", Format: "text"}, "debug")
	require.NoError(t, err)

	logger.Debug("visible")
	assert.Contains(t, buf.String(), "msg=visible")
}

func TestNewLogger_Invalid(t *testing.T) {
	_, err := newLogger(io.Discard, config.LoggingConfig{Level: "chatty", Format: "json"}, "")
	assert.Error(t, err)

	_, err = newLogger(io.Discard, config.LoggingConfig{Level: "info", Format: "xml"}, "")
	assert.Error(t, err)
}

func TestStateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	fp := store.NewFingerprints()
	fp.Set(store.Key("Roma Mobilità", "https://romamobilita.it/it"), "abc123")
	require.NoError(t, store.New(path).Save(fp))

	out, err := execute(t, "state", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Roma Mobilità")
	assert.Contains(t, out, "https://romamobilita.it/it")
	assert.Contains(t, out, "abc123")
}

func TestStateCommand_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	out, err := execute(t, "state", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "No fingerprints stored")
}

func TestStateCommand_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o644))

	_, err := execute(t, "state", "--path", path)
	assert.ErrorIs(t, err, store.ErrCorrupt)
}

func TestCheckCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, relevantPage)
	}))
	defer srv.Close()

	out, err := execute(t, "check", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "ibrid")
	assert.Contains(t, out, "strisce blu, sosta, gratuit")
	assert.Contains(t, out, "true")
	assert.Contains(t, out, detect.Fingerprint("strisce blu sosta gratuita per le auto ibride."))
}

func TestCheckCommand_FetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := execute(t, "check", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 503")
}

func TestCheckCommand_RequiresURL(t *testing.T) {
	_, err := execute(t, "check")
	assert.Error(t, err)
}

func TestRunCommand_WritesState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, relevantPage)
	}))
	defer srv.Close()

	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(`
agent:
  state_path: %s
  sources:
    - name: Test
      urls: ["%s/sosta"]
  schedule:
    gate: true
  notify:
    channels: []
`, statePath, srv.URL)), 0o600))

	_, err := execute(t, "run", "--force", "--config", cfgPath)
	require.NoError(t, err)

	fp, err := store.New(statePath).Load()
	require.NoError(t, err)
	assert.Equal(t, []string{store.Key("Test", srv.URL+"/sosta")}, fp.Keys())
}

func TestRootCommand_BadConfig(t *testing.T) {
	_, err := execute(t, "state", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func writeDaemonConfig(t *testing.T, path, statePath string, hour, minute int, level string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(`
agent:
  state_path: %s
  schedule:
    timezone: Europe/Rome
    hour: %d
    minute: %d
  notify:
    channels: []
  logging:
    level: %s
`, statePath, hour, minute, level)), 0o600))
}

func TestDaemon_ReloadsConfig(t *testing.T) {
	prevLogger := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prevLogger) })

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	statePath := filepath.Join(dir, "state.json")
	writeDaemonConfig(t, cfgPath, statePath, 7, 30, "info")

	a := &app{configPath: cfgPath}
	require.NoError(t, a.setup(io.Discard))

	d, err := newDaemon(a, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "30 7 * * *", d.sched.Spec())
	before := d.runner()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.run(ctx, false) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeDaemonConfig(t, cfgPath, statePath, 18, 5, "debug")

	// The logger is installed last, after the trigger and runner are swapped.
	applied := func() bool {
		return d.sched.Spec() == "5 18 * * *" && slog.Default().Enabled(context.Background(), slog.LevelDebug)
	}
	deadline := time.Now().Add(5 * time.Second)
	for !applied() && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	assert.Equal(t, "5 18 * * *", d.sched.Spec())
	assert.NotSame(t, before, d.runner(), "runner rebuilt from the new config")
	assert.True(t, slog.Default().Enabled(context.Background(), slog.LevelDebug), "logger reinstalled at the new level")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop after cancel")
	}
}

func TestDaemon_ApplyRejectsBadScheduleAndKeepsRunner(t *testing.T) {
	prevLogger := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prevLogger) })

	a := &app{}
	require.NoError(t, a.setup(io.Discard))
	a.cfg.Agent.StatePath = filepath.Join(t.TempDir(), "state.json")

	d, err := newDaemon(a, io.Discard)
	require.NoError(t, err)
	before := d.runner()

	bad := config.Defaults()
	bad.Agent.Schedule.Timezone = "Nowhere/Special"
	require.Error(t, d.apply(bad))

	assert.Equal(t, "30 7 * * *", d.sched.Spec())
	assert.Same(t, before, d.runner())
}
