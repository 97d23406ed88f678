package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/XiaoConstantine/dspy-go/pkg/logging"
	"github.com/oklog/ulid/v2"

	"github.com/dshills/patchpilot/internal/config"
	"github.com/dshills/patchpilot/internal/dispatch"
	"github.com/dshills/patchpilot/internal/glob"
	"github.com/dshills/patchpilot/internal/providers"
	"github.com/dshills/patchpilot/internal/redact"
	"github.com/dshills/patchpilot/internal/review"
)

// Version is the release reported in run results and SARIF output.
const Version = "0.1.0"

// Skip reasons recorded for files left out of the prompt.
const (
	SkipNotTargeted = "not matched by target globs"
	SkipNoPatch     = "no patch (binary or too large)"
)

// SkippedFile is a changed file that was not sent to the model.
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Timing contains performance metrics.
type Timing struct {
	FetchMs   int64 `json:"fetchMs"`
	ModelMs   int64 `json:"modelMs"`
	PublishMs int64 `json:"publishMs"`
	TotalMs   int64 `json:"totalMs"`
}

// Result summarises one run.
type Result struct {
	RunID       string                 `json:"runId"`
	Version     string                 `json:"version"`
	Provider    string                 `json:"provider"`
	PullRequest dispatch.PullRequest   `json:"pullRequest"`
	Reviewed    []string               `json:"reviewed"`
	Truncated   []string               `json:"truncated,omitempty"`
	Skipped     []SkippedFile          `json:"skipped,omitempty"`
	Output      review.Output          `json:"output"`
	Plan        dispatch.Plan          `json:"plan"`
	Published   dispatch.PublishResult `json:"published"`
	Commit      dispatch.CommitResult  `json:"commit"`
	DryRun      bool                   `json:"dryRun"`
	Timing      Timing                 `json:"timing"`
}

// Runner wires a host and a completion client to one configuration.
type Runner struct {
	host      dispatch.Host
	completer providers.Completer
	cfg       config.Config
	readFile  func(name string) ([]byte, error)
	now       func() time.Time
}

// New returns a Runner. cfg is copied and never modified.
func New(host dispatch.Host, completer providers.Completer, cfg config.Config) *Runner {
	return &Runner{
		host:      host,
		completer: completer,
		cfg:       cfg,
		readFile:  os.ReadFile,
		now:       time.Now,
	}
}

// Run reviews pull request number. With dryRun set, everything up to the
// publish plan happens but nothing is written to the host.
func (r *Runner) Run(ctx context.Context, number int, dryRun bool) (*Result, error) {
	logger := logging.GetLogger()
	start := r.now()
	res := &Result{
		RunID:    ulid.Make().String(),
		Version:  Version,
		Provider: r.completer.Name(),
		DryRun:   dryRun,
		Output:   review.Output{Comments: []review.Comment{}, Tests: []review.TestFile{}, Docs: []review.DocFile{}},
	}
	logger.Info(ctx, "Run %s: reviewing pull request #%d", res.RunID, number)

	targets, err := glob.NewSet(r.cfg.Review.TargetGlobs)
	if err != nil {
		return nil, fmt.Errorf("compiling target globs: %w", err)
	}

	pr, err := r.host.GetPullRequest(ctx, number)
	if err != nil {
		return nil, err
	}
	res.PullRequest = pr

	files, err := r.host.ListFiles(ctx, number)
	if err != nil {
		return nil, err
	}

	patches := make(map[string]string)
	var promptFiles []review.PromptFile
	for _, f := range files {
		switch {
		case !targets.Match(f.Path):
			res.Skipped = append(res.Skipped, SkippedFile{Path: f.Path, Reason: SkipNotTargeted})
			continue
		case f.Patch == "":
			res.Skipped = append(res.Skipped, SkippedFile{Path: f.Path, Reason: SkipNoPatch})
			continue
		}
		patches[f.Path] = f.Patch

		shown := f.Patch
		if r.cfg.Privacy.RedactSecrets {
			shown = redact.Patch(shown, f.Path, r.cfg.Privacy.RedactPaths)
		}
		shown, cut := review.TruncatePatch(shown, r.cfg.Review.MaxPatchChars)
		if cut {
			res.Truncated = append(res.Truncated, f.Path)
		}
		promptFiles = append(promptFiles, review.PromptFile{Path: f.Path, Status: f.Status, Patch: shown, Truncated: cut})
		res.Reviewed = append(res.Reviewed, f.Path)
	}
	logger.Info(ctx, "%d of %d changed files in scope", len(promptFiles), len(files))

	if len(promptFiles) == 0 {
		res.Timing.FetchMs = r.since(start)
		res.Timing.TotalMs = res.Timing.FetchMs
		logger.Info(ctx, "Nothing to review")
		return res, nil
	}

	input := review.PromptInput{
		Title:        pr.Title,
		Description:  pr.Body,
		Files:        promptFiles,
		README:       r.readme(ctx, pr.HeadSHA),
		Addendum:     r.addendum(ctx),
		MaxComments:  r.cfg.Review.MaxComments,
		TestsEnabled: r.cfg.Tests.Enabled,
		DocsEnabled:  r.cfg.Docs.Enabled,
	}
	res.Timing.FetchMs = r.since(start)

	modelStart := r.now()
	messages := review.BuildMessages(input)
	maxTokens := r.cfg.Review.MaxOutputTokens
	raw, err := r.completer.Complete(ctx, messages, maxTokens)
	if err != nil {
		return nil, fmt.Errorf("completion: %w", err)
	}
	out, err := review.NewValidator(r.cfg.Review.MaxComments).
		Validate(ctx, raw, review.NewRepairer(r.completer, messages, raw, maxTokens))
	if err != nil {
		return nil, err
	}
	res.Output = out
	res.Timing.ModelMs = r.since(modelStart)

	res.Plan = dispatch.BuildPlan(out, patches, dispatch.Features{
		Tests: r.cfg.Tests.Enabled,
		Docs:  r.cfg.Docs.Enabled,
	})
	logger.Info(ctx, "Model proposed %d comments (%d anchorable), %d tests, %d docs",
		len(out.Comments), len(res.Plan.Anchored), len(out.Tests), len(out.Docs))

	if dryRun {
		res.Timing.TotalMs = r.since(start)
		return res, nil
	}

	publishStart := r.now()
	res.Published, err = dispatch.Publish(ctx, r.host, pr.Number, pr.HeadSHA, res.Plan)
	if err != nil {
		return nil, err
	}
	res.Commit, err = dispatch.CommitFiles(ctx, r.host, pr.HeadRef, pr.HeadSHA, res.Plan.Files)
	if err != nil {
		return nil, err
	}
	res.Timing.PublishMs = r.since(publishStart)
	res.Timing.TotalMs = r.since(start)
	return res, nil
}

func (r *Runner) readme(ctx context.Context, ref string) string {
	if r.cfg.Prompt.ReadmePath == "" || r.cfg.Prompt.ReadmeChars <= 0 {
		return ""
	}
	content, found, err := r.host.GetFileContent(ctx, r.cfg.Prompt.ReadmePath, ref)
	if err != nil {
		logging.GetLogger().Warn(ctx, "Could not fetch %s, continuing without it: %v", r.cfg.Prompt.ReadmePath, err)
		return ""
	}
	if !found {
		return ""
	}
	return review.Excerpt(content, r.cfg.Prompt.ReadmeChars)
}

func (r *Runner) addendum(ctx context.Context) string {
	if r.cfg.Prompt.AddendumPath == "" {
		return ""
	}
	data, err := r.readFile(r.cfg.Prompt.AddendumPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logging.GetLogger().Warn(ctx, "Could not read prompt addendum %s: %v", r.cfg.Prompt.AddendumPath, err)
		}
		return ""
	}
	return string(data)
}

func (r *Runner) since(t time.Time) int64 {
	return r.now().Sub(t).Milliseconds()
}
