// Package types defines the shared Go types passed between the agent's
// packages: the monitored Source and the transient ChangeEvent.
package types
