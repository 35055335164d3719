// Package store persists the last-seen content fingerprint of every monitored
// page between runs.
//
// Fingerprints is an in-memory ordered mapping from "source::url" keys to
// hex digests. Store loads it from and saves it to a flat JSON object on disk.
// A missing file loads as an empty mapping; a file that is not a JSON object
// of strings is reported as ErrCorrupt. Saves are atomic (temp file + rename)
// and keep key order: keys already in the file stay where they were, new keys
// are appended. Store assumes a single writer and does no locking.
package store
