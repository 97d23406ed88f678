// Package pipeline runs one review of a pull request from start to finish.
//
// A run is strictly sequential: fetch the pull request and its files in host
// order, keep the files matching the target globs, redact and truncate their
// patches for the prompt, ask the model once, validate (and at most once
// repair) the answer, then publish comments and commit generated files.
// Position lookups always use the full, unredacted patch.
package pipeline
