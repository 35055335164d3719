// Package runner executes one monitoring invocation: check the time gate,
// load the fingerprint store, detect changes, persist the updated mapping,
// notify and export run metrics.
package runner
