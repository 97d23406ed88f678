// Package cli wires together the Cobra command tree for the patchpilot binary.
//
// It defines the root command and its subcommands (run, config, models,
// cache, version), binds flags, reads configuration, connects the GitHub host
// and the completion client to the review pipeline, and maps failures onto
// exit codes for CI.
package cli
