// Package dispatchtest provides an in-memory dispatch.Host for tests.
package dispatchtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/dshills/patchpilot/internal/dispatch"
)

// Review is a review recorded by Host.
type Review struct {
	Number    int
	CommitSHA string
	Body      string
	Comments  []dispatch.InlineComment
}

// Commit is a commit recorded by Host.
type Commit struct {
	Message string
	Tree    string
	Parents []string
}

// Host records every call and serves canned pull request data. Set the
// *Err fields to make the matching call fail.
type Host struct {
	mu sync.Mutex

	PR    dispatch.PullRequest
	Files []dispatch.ChangedFile

	// Contents maps "ref:path" to file content.
	Contents map[string]string

	ReviewErr  error
	CommentErr error
	RefErr     error

	Calls    []string
	Reviews  []Review
	Comments []string
	Blobs    []string
	Trees    [][]dispatch.TreeEntry
	Commits  []Commit
	Refs     map[string]string
}

// New returns a Host serving pr and files.
func New(pr dispatch.PullRequest, files ...dispatch.ChangedFile) *Host {
	return &Host{PR: pr, Files: files, Contents: map[string]string{}, Refs: map[string]string{}}
}

// SetContent stores a file served by GetFileContent.
func (h *Host) SetContent(ref, path, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Contents[ref+":"+path] = content
}

func (h *Host) record(call string) {
	h.mu.Lock()
	h.Calls = append(h.Calls, call)
	h.mu.Unlock()
}

func (h *Host) GetPullRequest(_ context.Context, number int) (dispatch.PullRequest, error) {
	h.record("GetPullRequest")
	if number != h.PR.Number {
		return dispatch.PullRequest{}, fmt.Errorf("pull request %d not found", number)
	}
	return h.PR, nil
}

func (h *Host) ListFiles(_ context.Context, _ int) ([]dispatch.ChangedFile, error) {
	h.record("ListFiles")
	return h.Files, nil
}

func (h *Host) GetFileContent(_ context.Context, path, ref string) (string, bool, error) {
	h.record("GetFileContent")
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.Contents[ref+":"+path]
	return c, ok, nil
}

func (h *Host) CreateReview(_ context.Context, number int, commitSHA, body string, comments []dispatch.InlineComment) error {
	h.record("CreateReview")
	if h.ReviewErr != nil {
		return h.ReviewErr
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Reviews = append(h.Reviews, Review{Number: number, CommitSHA: commitSHA, Body: body, Comments: comments})
	return nil
}

func (h *Host) CreateComment(_ context.Context, _ int, body string) error {
	h.record("CreateComment")
	if h.CommentErr != nil {
		return h.CommentErr
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Comments = append(h.Comments, body)
	return nil
}

func (h *Host) CreateBlob(_ context.Context, content string) (string, error) {
	h.record("CreateBlob")
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Blobs = append(h.Blobs, content)
	return fmt.Sprintf("blob%d", len(h.Blobs)), nil
}

func (h *Host) GetCommitTree(_ context.Context, commitSHA string) (string, error) {
	h.record("GetCommitTree")
	return "tree-of-" + commitSHA, nil
}

func (h *Host) CreateTree(_ context.Context, baseTree string, entries []dispatch.TreeEntry) (string, error) {
	h.record("CreateTree")
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Trees = append(h.Trees, entries)
	return fmt.Sprintf("%s+%d", baseTree, len(entries)), nil
}

func (h *Host) CreateCommit(_ context.Context, message, tree string, parents []string) (string, error) {
	h.record("CreateCommit")
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Commits = append(h.Commits, Commit{Message: message, Tree: tree, Parents: parents})
	return fmt.Sprintf("commit%d", len(h.Commits)), nil
}

func (h *Host) UpdateRef(_ context.Context, branch, commitSHA string) error {
	h.record("UpdateRef")
	if h.RefErr != nil {
		return h.RefErr
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Refs[branch] = commitSHA
	return nil
}

var _ dispatch.Host = (*Host)(nil)
