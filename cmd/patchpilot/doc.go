// Patchpilot reviews GitHub pull requests with a completion model.
//
// It sends the changed files' patches to the model, validates the structured
// answer, and publishes it: inline review comments anchored to added lines,
// a single summary comment when inline placement fails, and generated tests
// and docs committed to the pull request branch.
//
// Usage:
//
//	patchpilot run                      # inside GitHub Actions on a pull_request event
//	patchpilot run --repo o/r --pr 12   # explicit target
//	patchpilot run --dry-run --format markdown
//	patchpilot config init
//
// See https://github.com/dshills/patchpilot for full documentation.
package main
