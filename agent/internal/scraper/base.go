package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/net/html/charset"

	"github.com/sostawatch/sostawatch/agent/internal/config"
)

// HTTPFetcher retrieves pages over HTTP and normalizes their text.
// It builds the HTTP client once and reuses it across Fetch calls.
type HTTPFetcher struct {
	client  *http.Client
	maxBody int64
}

// New returns an HTTPFetcher configured from cfg.
func New(cfg config.FetchConfig) *HTTPFetcher {
	return NewWithTransport(http.DefaultTransport, cfg)
}

// NewWithTransport returns an HTTPFetcher whose requests go through base.
// Tests pass an httptest server's transport here.
func NewWithTransport(base http.RoundTripper, cfg config.FetchConfig) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{
			Transport: &userAgentRoundTripper{base: base, userAgent: cfg.UserAgent},
			Timeout:   cfg.Timeout,
		},
		maxBody: cfg.MaxBodyBytes,
	}
}

// userAgentRoundTripper sets the User-Agent header on every outgoing request.
type userAgentRoundTripper struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.userAgent != "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}
	return t.base.RoundTrip(req)
}

// Fetch GETs url and returns its normalized text. Any failure is a
// *FetchError; there are no retries.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &FetchError{URL: url, Reason: ReasonNetwork, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: url, Reason: classify(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &FetchError{URL: url, Reason: ReasonStatus, Status: resp.StatusCode}
	}

	var body io.Reader = resp.Body
	if f.maxBody > 0 {
		body = io.LimitReader(body, f.maxBody)
	}

	// Decode legacy encodings (ISO-8859-1 is still common on municipal
	// sites) to UTF-8 before parsing.
	contentType := resp.Header.Get("Content-Type")
	decoded, err := charset.NewReader(body, contentType)
	if err != nil {
		slog.Debug("scraper: charset detection failed, reading raw body",
			"url", url, "content_type", contentType, "err", err)
		decoded = body
	}

	text, err := Normalize(decoded)
	if err != nil {
		return "", &FetchError{URL: url, Reason: classifyRead(err), Err: err}
	}
	return text, nil
}

// classifyRead distinguishes a body read cut short by the client timeout from
// other read failures.
func classifyRead(err error) Reason {
	if classify(err) == ReasonTimeout {
		return ReasonTimeout
	}
	return ReasonRead
}
