// Package scraper fetches monitored pages and reduces them to normalized text.
//
// HTTPFetcher.Fetch performs a single GET with a browser-like User-Agent and
// a bounded timeout. The User-Agent is injected by a RoundTripper so every
// request made through the client carries it. Failures are returned as
// *FetchError with a Reason (network, timeout, status, read) so callers can
// log why a page was skipped.
//
// Normalize turns an HTML document into the text used for relevance checks
// and fingerprinting: script, style and noscript elements are dropped, the
// remaining text nodes are joined with spaces, whitespace runs collapse to a
// single space, and the result is trimmed and lowercased. The same input
// always yields the same output.
package scraper
