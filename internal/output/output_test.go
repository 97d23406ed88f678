package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/dshills/patchpilot/internal/dispatch"
	"github.com/dshills/patchpilot/internal/pipeline"
	"github.com/dshills/patchpilot/internal/review"
)

func intPtr(n int) *int { return &n }

func sampleResult() *pipeline.Result {
	inline := review.Comment{Path: "src/a.go", Line: intPtr(2), Body: "Check the error.", Suggestion: "if err != nil {\n\treturn err\n}"}
	loose := review.Comment{Path: "src/b.go", Line: intPtr(9), StartLine: intPtr(7), Body: "Range outside the diff."}
	return &pipeline.Result{
		RunID:       "01TESTRUN",
		Version:     "0.1.0",
		Provider:    "openai",
		PullRequest: dispatch.PullRequest{Number: 42, Title: "Add parser", HeadSHA: "abcdef1234567", HeadRef: "feature/parser"},
		Reviewed:    []string{"src/a.go", "src/b.go"},
		Truncated:   []string{"src/b.go"},
		Skipped:     []pipeline.SkippedFile{{Path: "docs/x.md", Reason: pipeline.SkipNotTargeted}},
		Output: review.Output{
			Comments: []review.Comment{inline, loose},
			Tests:    []review.TestFile{{Path: "src/a_test.go", Content: "package a"}},
			Docs:     []review.DocFile{},
		},
		Plan: dispatch.Plan{
			Comments:   []review.Comment{inline, loose},
			Anchored:   []dispatch.ResolvedComment{{Comment: inline, Position: 4, FileLine: 3}},
			Unanchored: []review.Comment{loose},
			Files:      []dispatch.FileChange{{Kind: dispatch.KindTest, Path: "src/a_test.go", Content: "package a"}},
		},
		DryRun: true,
		Timing: pipeline.Timing{FetchMs: 10, ModelMs: 200, TotalMs: 215},
	}
}

func emptyResult() *pipeline.Result {
	return &pipeline.Result{
		RunID:       "01EMPTY",
		Version:     "0.1.0",
		PullRequest: dispatch.PullRequest{Number: 7, Title: "Docs only"},
		Output:      review.Output{Comments: []review.Comment{}, Tests: []review.TestFile{}, Docs: []review.DocFile{}},
	}
}

func TestGetWriter(t *testing.T) {
	for _, format := range Formats {
		if _, err := GetWriter(format); err != nil {
			t.Errorf("GetWriter(%q) error: %v", format, err)
		}
	}
	if _, err := GetWriter("xml"); err == nil {
		t.Error("GetWriter(xml) should fail")
	}
}

func TestTextWriter_Plan(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TextWriter{}).Write(&buf, sampleResult()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"(dry run)",
		"#42 Add parser",
		"feature/parser @ abcdef1",
		"Files reviewed: 2, skipped: 1",
		"src/b.go (patch truncated in prompt)",
		"docs/x.md (not matched by target globs)",
		"Comments: 2 total (1 inline, 1 unanchored)",
		"[inline] src/a.go @ position 4 (file line 3)",
		"[fallback] src/b.go (lines 7-9, not in diff)",
		"Suggestion:",
		"test src/a_test.go",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "Published:") {
		t.Error("dry run should not report a publish mode")
	}
}

func TestTextWriter_PublishedListed(t *testing.T) {
	res := sampleResult()
	res.DryRun = false
	res.Published = dispatch.PublishResult{Mode: dispatch.ModeReview, Inline: 1, Listed: 1}

	var buf bytes.Buffer
	if err := (&TextWriter{}).Write(&buf, res); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if out := buf.String(); !strings.Contains(out, "Published: review (1 listed in review body)") {
		t.Errorf("missing listed count:\n%s", out)
	}
}

func TestTextWriter_Published(t *testing.T) {
	res := sampleResult()
	res.DryRun = false
	res.Published = dispatch.PublishResult{Mode: dispatch.ModeFallback, Rejected: true}
	res.Commit = dispatch.CommitResult{CommitSHA: "1234567890", Paths: []string{"src/a_test.go"}}

	var buf bytes.Buffer
	if err := (&TextWriter{}).Write(&buf, res); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Published: fallback (inline review rejected)") {
		t.Errorf("missing publish line:\n%s", out)
	}
	if !strings.Contains(out, "Committed 1 file(s) as 1234567") {
		t.Errorf("missing commit line:\n%s", out)
	}
}

func TestTextWriter_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TextWriter{}).Write(&buf, emptyResult()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if !strings.Contains(buf.String(), "Nothing to publish.") {
		t.Errorf("empty plan should say so:\n%s", buf.String())
	}
}

func TestMarkdownWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&MarkdownWriter{}).Write(&buf, sampleResult()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"## patchpilot: #42 Add parser",
		"Dry run",
		"| Inline comments | 1 |",
		"| Unanchored comments | 1 |",
		"<summary>Inline comments (1)</summary>",
		"**`src/a.go`** at diff position 4 (line 3)",
		"**`src/b.go`** (lines 7-9)",
		"```go\nif err != nil {",
		"- Test `src/a_test.go`",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q\n%s", want, out)
		}
	}
}

func TestMarkdownWriter_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := (&MarkdownWriter{}).Write(&buf, emptyResult()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if !strings.Contains(buf.String(), "No comments or generated files.") {
		t.Errorf("unexpected markdown:\n%s", buf.String())
	}
}

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONWriter{}).Write(&buf, sampleResult()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got["runId"] != "01TESTRUN" {
		t.Errorf("runId = %v", got["runId"])
	}
	plan, ok := got["plan"].(map[string]any)
	if !ok {
		t.Fatalf("plan missing: %v", got)
	}
	anchored := plan["anchored"].([]any)
	if len(anchored) != 1 {
		t.Fatalf("anchored = %v", anchored)
	}
	first := anchored[0].(map[string]any)
	if first["position"] != float64(4) || first["path"] != "src/a.go" {
		t.Errorf("anchored[0] = %v", first)
	}
	if _, dup := plan["Comments"]; dup {
		t.Error("plan should not repeat the comment list")
	}
}

func TestSARIFWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&SARIFWriter{}).Write(&buf, sampleResult()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	var log sarifLog
	if err := json.Unmarshal(buf.Bytes(), &log); err != nil {
		t.Fatalf("invalid SARIF JSON: %v", err)
	}
	if log.Version != "2.1.0" || len(log.Runs) != 1 {
		t.Fatalf("unexpected log: %+v", log)
	}
	run := log.Runs[0]
	if run.Tool.Driver.Version != "0.1.0" {
		t.Errorf("driver version = %q", run.Tool.Driver.Version)
	}
	if len(run.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(run.Results))
	}

	inline := run.Results[0]
	if inline.RuleID != RuleInline || inline.Level != "warning" {
		t.Errorf("inline result = %+v", inline)
	}
	region := inline.Locations[0].PhysicalLocation.Region
	if region == nil || region.StartLine != 3 {
		t.Errorf("inline region = %+v, want startLine 3", region)
	}
	if len(inline.Fixes) != 1 {
		t.Errorf("suggestion should become a fix")
	}

	loose := run.Results[1]
	if loose.RuleID != RuleFile || loose.Locations[0].PhysicalLocation.Region != nil {
		t.Errorf("unanchored result should be file level: %+v", loose)
	}
}

func TestSARIFWriter_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := (&SARIFWriter{}).Write(&buf, emptyResult()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if !strings.Contains(buf.String(), `"results": []`) {
		t.Errorf("empty run should carry an empty results array:\n%s", buf.String())
	}
}
