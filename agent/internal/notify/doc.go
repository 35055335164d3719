// Package notify formats the change summary and delivers it to the configured
// channels: Telegram (sendMessage with HTML parse mode), Slack incoming
// webhooks, or a generic HTTP JSON endpoint.
//
// One message is sent per run and lists at most max_entries changed pages.
// Any delivery failure is returned as a *DeliveryError and is meant to abort
// the run; the fingerprint state has been saved by then.
package notify
