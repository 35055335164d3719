// Package metrics exports the outcome of a run in the Prometheus text
// exposition format, for collection through node_exporter's textfile
// collector.
package metrics
