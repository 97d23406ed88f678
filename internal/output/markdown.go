package output

import (
	"io"
	"path"
	"strings"

	"github.com/dshills/patchpilot/internal/dispatch"
	"github.com/dshills/patchpilot/internal/pipeline"
	"github.com/dshills/patchpilot/internal/review"
)

// MarkdownWriter outputs a run summary in markdown, e.g. for a job summary.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, res *pipeline.Result) error {
	ew := &errWriter{w: w}
	plan := res.Plan

	ew.printf("## patchpilot: #%d %s\n\n", res.PullRequest.Number, res.PullRequest.Title)
	if res.DryRun {
		ew.println("> Dry run: nothing was published.\n")
	}

	ew.println("| Item | Count |")
	ew.println("|------|-------|")
	ew.printf("| Files reviewed | %d |\n", len(res.Reviewed))
	ew.printf("| Files skipped | %d |\n", len(res.Skipped))
	ew.printf("| Inline comments | %d |\n", len(plan.Anchored))
	ew.printf("| Unanchored comments | %d |\n", len(plan.Unanchored))
	ew.printf("| Generated files | %d |\n\n", len(plan.Files))

	if len(plan.Anchored)+len(plan.Unanchored) == 0 && len(plan.Files) == 0 {
		ew.println("No comments or generated files. :white_check_mark:")
		return ew.err
	}

	if len(plan.Anchored) > 0 {
		ew.printf("<details>\n<summary>Inline comments (%d)</summary>\n\n", len(plan.Anchored))
		for _, c := range plan.Anchored {
			ew.printf("**`%s`** at diff position %d", c.Path, c.Position)
			if c.FileLine > 0 {
				ew.printf(" (line %d)", c.FileLine)
			}
			ew.println("\n")
			writeMarkdownComment(ew, c.Comment)
		}
		ew.println("</details>\n")
	}

	if len(plan.Unanchored) > 0 {
		ew.printf("<details>\n<summary>Unanchored comments (%d)</summary>\n\n", len(plan.Unanchored))
		for _, c := range plan.Unanchored {
			ew.printf("**`%s`**", c.Path)
			if label := lineLabel(c); label != "" {
				ew.printf(" (%s)", label)
			}
			ew.println("\n")
			writeMarkdownComment(ew, c)
		}
		ew.println("</details>\n")
	}

	if len(plan.Files) > 0 {
		ew.println("### Generated files\n")
		for _, f := range plan.Files {
			ew.printf("- %s `%s`%s\n", kindLabel(f.Kind), f.Path, appendNote(f))
		}
		ew.println("")
	}

	if !res.DryRun && res.Published.Mode == dispatch.ModeFallback && res.Published.Rejected {
		ew.println("The inline review was rejected; comments were posted as one summary comment.\n")
	}
	ew.printf("*Run %s in %dms (model: %dms)*\n", res.RunID, res.Timing.TotalMs, res.Timing.ModelMs)

	return ew.err
}

func writeMarkdownComment(ew *errWriter, c review.Comment) {
	ew.printf("%s\n\n", c.Body)
	if c.Suggestion != "" {
		ew.printf("```%s\n%s\n```\n\n", inferLang(c.Path), c.Suggestion)
	}
	ew.println("---\n")
}

func kindLabel(k dispatch.FileKind) string {
	if k == dispatch.KindTest {
		return "Test"
	}
	return "Doc"
}

var langByExt = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".tsx":  "tsx",
	".jsx":  "jsx",
	".rs":   "rust",
	".java": "java",
	".rb":   "ruby",
	".c":    "c",
	".cpp":  "cpp",
	".cs":   "csharp",
	".php":  "php",
	".sh":   "bash",
	".sql":  "sql",
	".yaml": "yaml",
	".yml":  "yaml",
	".json": "json",
	".md":   "markdown",
}

func inferLang(p string) string {
	return langByExt[strings.ToLower(path.Ext(p))]
}
