package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/XiaoConstantine/dspy-go/pkg/logging"
)

// CommitMessage is the message of every generated-files commit.
const CommitMessage = "chore(patchpilot): add generated tests and docs"

// CommitResult describes a generated-files commit.
type CommitResult struct {
	CommitSHA string   `json:"commitSha,omitempty"`
	Paths     []string `json:"paths,omitempty"`
}

// CommitFiles commits files on top of headSHA and advances branch to the new
// commit. Blobs are created one at a time in the order of files. Docs marked
// Append are added to the end of the file at headSHA. No files means no
// commit and an empty result.
func CommitFiles(ctx context.Context, host Host, branch, headSHA string, files []FileChange) (CommitResult, error) {
	if len(files) == 0 {
		return CommitResult{}, nil
	}
	logger := logging.GetLogger()

	entries := make([]TreeEntry, 0, len(files))
	paths := make([]string, 0, len(files))
	for _, f := range files {
		content, err := fileContent(ctx, host, headSHA, f)
		if err != nil {
			return CommitResult{}, err
		}
		sha, err := host.CreateBlob(ctx, content)
		if err != nil {
			return CommitResult{}, fmt.Errorf("creating blob for %s: %w", f.Path, err)
		}
		entries = append(entries, TreeEntry{Path: f.Path, BlobSHA: sha})
		paths = append(paths, f.Path)
	}

	baseTree, err := host.GetCommitTree(ctx, headSHA)
	if err != nil {
		return CommitResult{}, fmt.Errorf("reading head commit %s: %w", headSHA, err)
	}
	tree, err := host.CreateTree(ctx, baseTree, entries)
	if err != nil {
		return CommitResult{}, fmt.Errorf("creating tree: %w", err)
	}
	commit, err := host.CreateCommit(ctx, CommitMessage, tree, []string{headSHA})
	if err != nil {
		return CommitResult{}, fmt.Errorf("creating commit: %w", err)
	}
	if err := host.UpdateRef(ctx, branch, commit); err != nil {
		return CommitResult{}, fmt.Errorf("updating branch %s: %w", branch, err)
	}

	logger.Info(ctx, "Committed %d generated files to %s as %s", len(files), branch, shortSHA(commit))
	return CommitResult{CommitSHA: commit, Paths: paths}, nil
}

func fileContent(ctx context.Context, host Host, ref string, f FileChange) (string, error) {
	if !f.Append {
		return f.Content, nil
	}
	existing, found, err := host.GetFileContent(ctx, f.Path, ref)
	if err != nil {
		return "", fmt.Errorf("reading %s for append: %w", f.Path, err)
	}
	if !found || existing == "" {
		return f.Content, nil
	}
	if !strings.HasSuffix(existing, "\n") {
		existing += "\n"
	}
	return existing + "\n" + f.Content, nil
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
