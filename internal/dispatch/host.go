package dispatch

import (
	"context"
	"errors"
	"fmt"
)

// PullRequest is the subset of change metadata the pipeline needs.
type PullRequest struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Body    string `json:"body,omitempty"`
	HeadSHA string `json:"headSha"`
	HeadRef string `json:"headRef"`
	BaseRef string `json:"baseRef"`
}

// ChangedFile is one file of a pull request with its unified diff patch.
// Patch is empty for binary files and very large diffs.
type ChangedFile struct {
	Path   string
	Status string
	Patch  string
}

// InlineComment is a review comment placed at a diff position.
type InlineComment struct {
	Path     string
	Position int
	Body     string
}

// TreeEntry maps a repository path to a blob.
type TreeEntry struct {
	Path    string
	BlobSHA string
}

// Host is the change-hosting service a run reads from and publishes to.
type Host interface {
	GetPullRequest(ctx context.Context, number int) (PullRequest, error)
	ListFiles(ctx context.Context, number int) ([]ChangedFile, error)
	// GetFileContent returns the file at ref. found is false when the file
	// does not exist.
	GetFileContent(ctx context.Context, path, ref string) (content string, found bool, err error)

	// CreateReview publishes comments as one review on commitSHA. A batch the
	// host refuses to place returns *PublishRejectedError.
	CreateReview(ctx context.Context, number int, commitSHA, body string, comments []InlineComment) error
	CreateComment(ctx context.Context, number int, body string) error

	CreateBlob(ctx context.Context, content string) (string, error)
	// GetCommitTree returns the tree SHA of commitSHA.
	GetCommitTree(ctx context.Context, commitSHA string) (string, error)
	CreateTree(ctx context.Context, baseTree string, entries []TreeEntry) (string, error)
	CreateCommit(ctx context.Context, message, tree string, parents []string) (string, error)
	// UpdateRef moves branch to commitSHA without forcing. A non fast-forward
	// update returns *RefUpdateConflictError.
	UpdateRef(ctx context.Context, branch, commitSHA string) error
}

// PublishRejectedError is returned when the host refuses a batched review,
// typically because a position does not exist in the diff.
type PublishRejectedError struct {
	StatusCode int
	Message    string
}

func (e *PublishRejectedError) Error() string {
	return fmt.Sprintf("review rejected by host (HTTP %d): %s", e.StatusCode, e.Message)
}

// RefUpdateConflictError is returned when the branch moved underneath a
// commit and the update would not be a fast-forward.
type RefUpdateConflictError struct {
	Branch  string
	Message string
}

func (e *RefUpdateConflictError) Error() string {
	return fmt.Sprintf("branch %s was updated concurrently; refusing to overwrite: %s", e.Branch, e.Message)
}

// IsPublishRejected reports whether err is a PublishRejectedError.
func IsPublishRejected(err error) bool {
	var target *PublishRejectedError
	return errors.As(err, &target)
}

// IsRefConflict reports whether err is a RefUpdateConflictError.
func IsRefConflict(err error) bool {
	var target *RefUpdateConflictError
	return errors.As(err, &target)
}
