// Package detect decides which monitored pages changed since the last useful
// run.
//
// Detector.Detect walks every (source, url) pair in configured order:
//
//	fetch + normalize → relevance check → SHA-256 → compare → record
//
// A fetch failure or an irrelevant page is skipped without touching the
// stored fingerprint. The first relevant observation of a page records a
// baseline and emits nothing. Later observations emit a ChangeEvent when the
// hash differs. The stored fingerprint is overwritten whenever the page was
// fetched and relevant.
//
// The fingerprint mapping is passed in and returned explicitly; Detect works
// on a clone and never mutates its argument.
package detect
