package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Reason classifies why a fetch failed.
type Reason string

const (
	ReasonNetwork Reason = "network"
	ReasonTimeout Reason = "timeout"
	ReasonStatus  Reason = "status"
	ReasonRead    Reason = "read"
)

// FetchError is returned by Fetch for any failure that makes a page unusable
// for this run. Callers skip the page; nothing about it is recorded.
type FetchError struct {
	URL    string
	Reason Reason
	// Status is the HTTP status code when Reason is ReasonStatus.
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Reason == ReasonStatus {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Reason, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// classify maps a transport error to a Reason.
func classify(err error) Reason {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ReasonTimeout
	}
	return ReasonNetwork
}
