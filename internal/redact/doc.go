// Package redact removes secrets from diff patches before they are sent to
// any completion provider.
//
// Detection uses regex heuristics covering common secret shapes: API keys,
// JWTs, private keys, AWS access key IDs and secret access keys, bearer
// tokens, database connection strings, and provider-specific tokens
// (OpenAI, Google, GitHub, Slack).
//
// Path-based redaction is also supported: patches for files whose paths match
// configured glob patterns have every content line replaced with [REDACTED].
// Redaction never adds or removes lines, so added-line ordinals stay valid.
package redact
