// Package config loads and merges patchpilot configuration from multiple
// sources into one immutable Config value.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (PATCHPILOT_PROVIDER, PATCHPILOT_MODEL, PATCHPILOT_MAX_COMMENTS, etc.)
//  3. Config file (.github/patchpilot.json, .github/patchpilot.toml, or $XDG_CONFIG_HOME/patchpilot/config.json)
//  4. Built-in defaults
//
// A missing or malformed config file falls back to the defaults. Use [Load]
// to obtain a merged [Config], [Save] to write one, and [SetField] to update
// a single key.
package config
