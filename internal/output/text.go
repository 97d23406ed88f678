package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dshills/patchpilot/internal/dispatch"
	"github.com/dshills/patchpilot/internal/pipeline"
	"github.com/dshills/patchpilot/internal/review"
)

// TextWriter outputs the publish plan as human-readable text.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, res *pipeline.Result) error {
	ew := &errWriter{w: w}
	pr := res.PullRequest

	title := "patchpilot run " + res.RunID
	if res.DryRun {
		title += " (dry run)"
	}
	ew.println(title)
	ew.printf("Pull request: #%d %s\n", pr.Number, pr.Title)
	if pr.HeadRef != "" {
		ew.printf("Head: %s @ %s\n", pr.HeadRef, shortSHA(pr.HeadSHA))
	}
	ew.println(strings.Repeat("─", 60))

	ew.printf("Files reviewed: %d, skipped: %d\n", len(res.Reviewed), len(res.Skipped))
	truncated := make(map[string]bool, len(res.Truncated))
	for _, p := range res.Truncated {
		truncated[p] = true
	}
	for _, p := range res.Reviewed {
		if truncated[p] {
			ew.printf("  + %s (patch truncated in prompt)\n", p)
			continue
		}
		ew.printf("  + %s\n", p)
	}
	for _, s := range res.Skipped {
		ew.printf("  - %s (%s)\n", s.Path, s.Reason)
	}

	plan := res.Plan
	ew.println(strings.Repeat("─", 60))
	ew.printf("Comments: %d total (%d inline, %d unanchored)\n",
		len(plan.Anchored)+len(plan.Unanchored), len(plan.Anchored), len(plan.Unanchored))

	if len(plan.Anchored)+len(plan.Unanchored) == 0 && len(plan.Files) == 0 {
		ew.println("\nNothing to publish.")
	}

	for _, c := range plan.Anchored {
		loc := fmt.Sprintf("%s @ position %d", c.Path, c.Position)
		if c.FileLine > 0 {
			loc += fmt.Sprintf(" (file line %d)", c.FileLine)
		}
		writeTextComment(ew, "[inline]", loc, c.Comment)
	}
	for _, c := range plan.Unanchored {
		loc := c.Path
		if label := lineLabel(c); label != "" {
			loc += " (" + label + ", not in diff)"
		}
		writeTextComment(ew, "[fallback]", loc, c)
	}

	if len(plan.Files) > 0 {
		ew.printf("\nFiles to commit on %s:\n", pr.HeadRef)
		for _, f := range plan.Files {
			ew.printf("  %-4s %s%s\n", f.Kind, f.Path, appendNote(f))
		}
	}

	ew.printf("\n%s\n", strings.Repeat("─", 60))
	if !res.DryRun {
		ew.printf("Published: %s", res.Published.Mode)
		if res.Published.Rejected {
			ew.printf(" (inline review rejected)")
		}
		if res.Published.Listed > 0 {
			ew.printf(" (%d listed in review body)", res.Published.Listed)
		}
		ew.println("")
		if res.Commit.CommitSHA != "" {
			ew.printf("Committed %d file(s) as %s\n", len(res.Commit.Paths), shortSHA(res.Commit.CommitSHA))
		}
	}
	ew.printf("Completed in %dms (fetch: %dms, model: %dms, publish: %dms)\n",
		res.Timing.TotalMs, res.Timing.FetchMs, res.Timing.ModelMs, res.Timing.PublishMs)

	return ew.err
}

func writeTextComment(ew *errWriter, tag, loc string, c review.Comment) {
	ew.printf("\n  %s %s\n", tag, loc)
	for _, line := range wrapText(c.Body, 70) {
		ew.printf("    %s\n", line)
	}
	if c.Suggestion != "" {
		ew.println("  Suggestion:")
		for _, line := range strings.Split(c.Suggestion, "\n") {
			ew.printf("    %s\n", line)
		}
	}
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

// lineLabel describes the added-line ordinals a comment refers to.
func lineLabel(c review.Comment) string {
	switch {
	case c.Line == nil:
		return ""
	case c.StartLine != nil && *c.StartLine != *c.Line:
		return fmt.Sprintf("lines %d-%d", *c.StartLine, *c.Line)
	default:
		return fmt.Sprintf("line %d", *c.Line)
	}
}

func appendNote(f dispatch.FileChange) string {
	if f.Append {
		return " (append)"
	}
	return ""
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

func wrapText(text string, width int) []string {
	if len(text) <= width {
		return []string{text}
	}
	var lines []string
	words := strings.Fields(text)
	var current strings.Builder
	for _, word := range words {
		if current.Len()+len(word)+1 > width && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
