// Package cache stores raw completion text on disk so that re-running a
// review over an unchanged pull request does not spend another model call.
//
// Entries are keyed by a SHA-256 hash of the provider, model, and the full
// request payload (messages, token cap, temperature). Only successful
// responses are stored. Entries older than the TTL are ignored on read and
// removed by [Cache.Prune]. Patches are redacted before they reach the
// request payload, so nothing stored here has skipped secret redaction.
//
// The default directory is $XDG_CACHE_HOME/patchpilot (or the OS equivalent).
package cache
