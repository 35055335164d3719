package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sostawatch/sostawatch/agent/internal/config"
)

func testFetchConfig() config.FetchConfig {
	return config.FetchConfig{
		Timeout:      2 * time.Second,
		UserAgent:    "Mozilla/5.0",
		MaxBodyBytes: 1 << 20,
	}
}

func newTestFetcher(srv *httptest.Server, cfg config.FetchConfig) *HTTPFetcher {
	return NewWithTransport(srv.Client().Transport, cfg)
}

func TestFetch_NormalizesPage(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><script>x()</script><h1>Strisce  Blu</h1><p>Ibridi</p></body></html>`))
	}))
	defer srv.Close()

	f := newTestFetcher(srv, testFetchConfig())
	text, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "strisce blu ibridi", text)
	assert.Equal(t, "Mozilla/5.0", gotUA)
}

func TestFetch_DecodesDeclaredCharset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		// "Mobilità" in Latin-1.
		_, _ = w.Write([]byte("<p>Mobilit\xe0</p>"))
	}))
	defer srv.Close()

	text, err := newTestFetcher(srv, testFetchConfig()).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "mobilità", text)
}

func TestFetch_NonSuccessStatus(t *testing.T) {
	for _, code := range []int{http.StatusNotFound, http.StatusInternalServerError, http.StatusForbidden} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(code)
		}))

		_, err := newTestFetcher(srv, testFetchConfig()).Fetch(context.Background(), srv.URL)
		srv.Close()

		var fe *FetchError
		require.ErrorAs(t, err, &fe, "status %d", code)
		assert.Equal(t, ReasonStatus, fe.Reason)
		assert.Equal(t, code, fe.Status)
		assert.Equal(t, srv.URL, fe.URL)
	}
}

func TestFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	cfg := testFetchConfig()
	cfg.Timeout = 50 * time.Millisecond

	_, err := newTestFetcher(srv, cfg).Fetch(context.Background(), srv.URL)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, ReasonTimeout, fe.Reason)
}

func TestFetch_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	transport := srv.Client().Transport
	srv.Close()

	_, err := NewWithTransport(transport, testFetchConfig()).Fetch(context.Background(), url)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, ReasonNetwork, fe.Reason)
	assert.NotNil(t, errors.Unwrap(fe))
}

func TestFetch_InvalidURL(t *testing.T) {
	_, err := New(testFetchConfig()).Fetch(context.Background(), "://not a url")
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, ReasonNetwork, fe.Reason)
}

func TestFetch_BodyCappedAtMaxBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<p>sosta " + strings.Repeat("x", 100) + " ibridi</p>"))
	}))
	defer srv.Close()

	cfg := testFetchConfig()
	cfg.MaxBodyBytes = 20

	text, err := newTestFetcher(srv, cfg).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "sosta x"))
	assert.NotContains(t, text, "ibridi")
}

func TestFetchError_Messages(t *testing.T) {
	statusErr := &FetchError{URL: "https://a.example", Reason: ReasonStatus, Status: 503}
	assert.Equal(t, "fetch https://a.example: unexpected status 503", statusErr.Error())

	netErr := &FetchError{URL: "https://a.example", Reason: ReasonNetwork, Err: errors.New("connection refused")}
	assert.Equal(t, "fetch https://a.example: network: connection refused", netErr.Error())
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ReasonTimeout, classify(context.DeadlineExceeded))
	assert.Equal(t, ReasonNetwork, classify(errors.New("dial tcp: connection refused")))
}
