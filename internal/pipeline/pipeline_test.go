package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/patchpilot/internal/config"
	"github.com/dshills/patchpilot/internal/dispatch"
	"github.com/dshills/patchpilot/internal/dispatch/dispatchtest"
	"github.com/dshills/patchpilot/internal/providers"
	"github.com/dshills/patchpilot/internal/review"
)

const patchA = "@@ -1,2 +1,3 @@\n context\n+line1\n+line2"

const answer = `{
  "comments": [
    {"path": "src/a.go", "line": 2, "body": "check line2"},
    {"path": "src/a.go", "line": 3, "body": "beyond the additions"}
  ],
  "tests": [{"path": "src/a_test.go", "content": "package a"}],
  "docs": [{"path": "docs/a.md", "content": "# A"}]
}`

// scriptedCompleter replies with the next scripted answer on each call.
type scriptedCompleter struct {
	replies []string
	err     error
	calls   [][]providers.Message
}

func (s *scriptedCompleter) Complete(_ context.Context, msgs []providers.Message, _ int) (string, error) {
	s.calls = append(s.calls, msgs)
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return "", errors.New("no scripted reply left")
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

func (s *scriptedCompleter) Name() string { return "scripted" }

func newFixture(files ...dispatch.ChangedFile) *dispatchtest.Host {
	if len(files) == 0 {
		files = []dispatch.ChangedFile{
			{Path: "src/a.go", Status: "modified", Patch: patchA},
			{Path: "README.md", Status: "modified", Patch: "@@ -1 +1 @@\n-a\n+b"},
			{Path: "src/logo.png", Status: "added"},
		}
	}
	return dispatchtest.New(dispatch.PullRequest{
		Number:  7,
		Title:   "Add lines",
		HeadSHA: "head",
		HeadRef: "feature",
	}, files...)
}

func newRunner(h dispatch.Host, c providers.Completer, cfg config.Config) *Runner {
	r := New(h, c, cfg)
	r.readFile = func(string) ([]byte, error) { return nil, fs.ErrNotExist }
	return r
}

func TestRun_EndToEnd(t *testing.T) {
	h := newFixture()
	h.SetContent("head", "README.md", "# Widgets\nA widget library.")
	c := &scriptedCompleter{replies: []string{answer}}

	res, err := newRunner(h, c, config.Default()).Run(context.Background(), 7, false)
	require.NoError(t, err)

	assert.Len(t, res.RunID, 26, "ULID string")
	assert.Equal(t, "scripted", res.Provider)
	assert.Equal(t, []string{"src/a.go"}, res.Reviewed)
	assert.Equal(t, []SkippedFile{
		{Path: "README.md", Reason: SkipNotTargeted},
		{Path: "src/logo.png", Reason: SkipNoPatch},
	}, res.Skipped)

	require.Len(t, c.calls, 1, "valid answer needs no repair")
	prompt := c.calls[0]
	assert.Contains(t, prompt[1].Content, "A widget library.")
	last := prompt[len(prompt)-1].Content
	assert.Contains(t, last, "--- FILE: src/a.go (modified) ---")
	assert.NotContains(t, last, "README.md")

	require.Len(t, h.Reviews, 1)
	require.Len(t, h.Reviews[0].Comments, 1)
	assert.Equal(t, 4, h.Reviews[0].Comments[0].Position)
	assert.Contains(t, h.Reviews[0].Body, "beyond the additions", "the unanchored comment is listed in the review body")
	assert.Empty(t, h.Comments)
	assert.Equal(t, dispatch.ModeReview, res.Published.Mode)
	assert.Equal(t, 1, res.Published.Listed)

	assert.Equal(t, []string{"package a", "# A"}, h.Blobs)
	assert.Equal(t, "commit1", h.Refs["feature"])
	assert.Equal(t, "commit1", res.Commit.CommitSHA)
}

func TestRun_TestsDisabled(t *testing.T) {
	h := newFixture()
	cfg := config.Default()
	cfg.Tests.Enabled = false
	c := &scriptedCompleter{replies: []string{answer}}

	_, err := newRunner(h, c, cfg).Run(context.Background(), 7, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"# A"}, h.Blobs, "no test file is ever published")
	assert.Contains(t, c.calls[0][0].Content, `"tests" must be an empty array`)
}

func TestRun_DryRunPublishesNothing(t *testing.T) {
	h := newFixture()
	c := &scriptedCompleter{replies: []string{answer}}

	res, err := newRunner(h, c, config.Default()).Run(context.Background(), 7, true)
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Len(t, res.Plan.Anchored, 1)
	assert.Len(t, res.Plan.Unanchored, 1)
	assert.Len(t, res.Plan.Files, 2)
	for _, call := range h.Calls {
		assert.NotContains(t, []string{"CreateReview", "CreateComment", "CreateBlob", "UpdateRef"}, call)
	}
}

func TestRun_NoFilesInScopeSkipsModel(t *testing.T) {
	h := newFixture(dispatch.ChangedFile{Path: "test/a_test.go", Patch: "@@ -0,0 +1 @@\n+x"})
	c := &scriptedCompleter{}

	res, err := newRunner(h, c, config.Default()).Run(context.Background(), 7, false)
	require.NoError(t, err)
	assert.Empty(t, c.calls)
	assert.Empty(t, res.Reviewed)
	assert.Equal(t, []string{"GetPullRequest", "ListFiles"}, h.Calls)
}

func TestRun_RepairsOnce(t *testing.T) {
	h := newFixture()
	c := &scriptedCompleter{replies: []string{"Looks good to me!", answer}}

	res, err := newRunner(h, c, config.Default()).Run(context.Background(), 7, true)
	require.NoError(t, err)
	require.Len(t, c.calls, 2)
	assert.Len(t, c.calls[1], len(c.calls[0])+2)
	assert.Equal(t, "Looks good to me!", c.calls[1][len(c.calls[0])].Content)
	assert.Len(t, res.Output.Comments, 2)
}

func TestRun_SchemaFailureAbortsBeforePublishing(t *testing.T) {
	h := newFixture()
	c := &scriptedCompleter{replies: []string{"prose", "still prose"}}

	_, err := newRunner(h, c, config.Default()).Run(context.Background(), 7, false)
	require.Error(t, err)
	assert.True(t, review.IsSchemaValidationError(err))
	assert.Empty(t, h.Reviews)
	assert.Empty(t, h.Comments)
	assert.Empty(t, h.Blobs)
}

func TestRun_CompletionErrorIsFatal(t *testing.T) {
	h := newFixture()
	boom := &providers.FatalQuotaError{StatusCode: 429, Body: "insufficient_quota"}
	c := &scriptedCompleter{err: boom}

	_, err := newRunner(h, c, config.Default()).Run(context.Background(), 7, false)
	require.Error(t, err)
	assert.True(t, providers.IsQuotaError(err))
}

func TestRun_TruncationOnlyAffectsPrompt(t *testing.T) {
	long := "@@ -1,1 +1,4 @@\n context\n+" + strings.Repeat("a", 40) + "\n+" + strings.Repeat("b", 40) + "\n+tail"
	h := newFixture(dispatch.ChangedFile{Path: "lib/long.go", Status: "modified", Patch: long})
	cfg := config.Default()
	cfg.Review.MaxPatchChars = 60
	c := &scriptedCompleter{replies: []string{
		`{"comments":[{"path":"lib/long.go","line":3,"body":"tail"}],"tests":[],"docs":[]}`,
	}}

	res, err := newRunner(h, c, cfg).Run(context.Background(), 7, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"lib/long.go"}, res.Truncated)
	last := c.calls[0][len(c.calls[0])-1].Content
	assert.NotContains(t, last, "+tail")
	assert.Contains(t, last, "[patch truncated")

	require.Len(t, h.Reviews, 1)
	assert.Equal(t, 5, h.Reviews[0].Comments[0].Position, "ordinals resolve against the full patch")
}

func TestRun_RedactsSecretsInPrompt(t *testing.T) {
	patch := "@@ -0,0 +1,2 @@\n+const key = \"sk-abcdefghijklmnopqrstuvwxyz\"\n+func f() {}"
	h := newFixture(dispatch.ChangedFile{Path: "src/key.go", Status: "added", Patch: patch})
	c := &scriptedCompleter{replies: []string{`{"comments":[],"tests":[],"docs":[]}`}}

	_, err := newRunner(h, c, config.Default()).Run(context.Background(), 7, false)
	require.NoError(t, err)
	last := c.calls[0][len(c.calls[0])-1].Content
	assert.NotContains(t, last, "sk-abcdefghij")
	assert.Contains(t, last, "+func f() {}")
}

func TestRun_AddendumIncluded(t *testing.T) {
	h := newFixture()
	cfg := config.Default()
	cfg.Prompt.ReadmeChars = 0
	c := &scriptedCompleter{replies: []string{answer}}
	r := New(h, c, cfg)
	var asked string
	r.readFile = func(name string) ([]byte, error) {
		asked = name
		return []byte("Always check error returns."), nil
	}

	_, err := r.Run(context.Background(), 7, true)
	require.NoError(t, err)
	assert.Equal(t, ".github/patchpilot.md", asked)
	require.Len(t, c.calls[0], 3, "system, addendum, diff")
	assert.Contains(t, c.calls[0][1].Content, "Always check error returns.")
	assert.NotContains(t, h.Calls, "GetFileContent", "README fetch disabled")
}

func TestRun_FallbackWhenRejected(t *testing.T) {
	h := newFixture()
	h.ReviewErr = &dispatch.PublishRejectedError{StatusCode: 422, Message: "Unprocessable Entity"}
	c := &scriptedCompleter{replies: []string{answer}}

	res, err := newRunner(h, c, config.Default()).Run(context.Background(), 7, false)
	require.NoError(t, err)
	assert.True(t, res.Published.Rejected)
	require.Len(t, h.Comments, 1)
	assert.Contains(t, h.Comments[0], "check line2")
	assert.Contains(t, h.Comments[0], "beyond the additions")
	assert.Equal(t, "commit1", res.Commit.CommitSHA, "files are committed regardless of anchoring")
}

func TestRun_RefConflictIsFatal(t *testing.T) {
	h := newFixture()
	h.RefErr = &dispatch.RefUpdateConflictError{Branch: "feature", Message: "not a fast forward"}
	c := &scriptedCompleter{replies: []string{answer}}

	_, err := newRunner(h, c, config.Default()).Run(context.Background(), 7, false)
	require.Error(t, err)
	assert.True(t, dispatch.IsRefConflict(err))
}
