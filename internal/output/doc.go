// Package output renders a run result for the terminal or for other tools.
//
// Formats:
//   - text: the publish plan for a terminal (default)
//   - json: the full [pipeline.Result]
//   - markdown: a summary suitable for a job summary or a comment
//   - sarif: SARIF v2.1.0 with one result per proposed comment
//
// [GetWriter] picks a [Writer] by name; [WriteReport] also picks the
// destination.
package output
