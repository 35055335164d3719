// Package schedule decides when a monitoring run may proceed.
//
// Gate implements the exact-minute check applied to one-shot runs started by
// an external scheduler. Scheduler triggers runs itself from a daily cron
// entry expressed in the configured time zone, and can be re-armed when the
// configuration is reloaded.
package schedule
