package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	gh "github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"

	"github.com/dshills/patchpilot/internal/dispatch"
)

const defaultAPIURL = "https://api.github.com/"

// AuthError reports a missing or rejected GitHub token.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// IsAuthError reports whether err is an AuthError.
func IsAuthError(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

// Token returns the GitHub token from PATCHPILOT_GITHUB_TOKEN or GITHUB_TOKEN.
func Token() (string, error) {
	for _, name := range []string{"PATCHPILOT_GITHUB_TOKEN", "GITHUB_TOKEN"} {
		if v := os.Getenv(name); v != "" {
			return v, nil
		}
	}
	return "", &AuthError{Message: "GITHUB_TOKEN environment variable is not set"}
}

// NewClient returns a go-github client authenticated with token. apiURL
// overrides the API root; empty uses GITHUB_API_URL, then api.github.com.
func NewClient(ctx context.Context, token, apiURL string) (*gh.Client, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := gh.NewClient(oauth2.NewClient(ctx, ts))

	if apiURL == "" {
		apiURL = os.Getenv("GITHUB_API_URL")
	}
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	base, err := url.Parse(strings.TrimRight(apiURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parsing API URL %q: %w", apiURL, err)
	}
	client.BaseURL = base
	return client, nil
}

// Host is a dispatch.Host for one GitHub repository.
type Host struct {
	client *gh.Client
	owner  string
	repo   string
}

// NewHost returns a Host operating on owner/repo.
func NewHost(client *gh.Client, owner, repo string) *Host {
	return &Host{client: client, owner: owner, repo: repo}
}

// Repo returns "owner/repo".
func (h *Host) Repo() string {
	return h.owner + "/" + h.repo
}

func (h *Host) GetPullRequest(ctx context.Context, number int) (dispatch.PullRequest, error) {
	pr, resp, err := h.client.PullRequests.Get(ctx, h.owner, h.repo, number)
	if err != nil {
		if statusOf(resp) == http.StatusNotFound {
			return dispatch.PullRequest{}, fmt.Errorf("PR #%d not found in %s", number, h.Repo())
		}
		return dispatch.PullRequest{}, h.wrap("fetching pull request", resp, err)
	}
	return dispatch.PullRequest{
		Number:  pr.GetNumber(),
		Title:   pr.GetTitle(),
		Body:    pr.GetBody(),
		HeadSHA: pr.GetHead().GetSHA(),
		HeadRef: pr.GetHead().GetRef(),
		BaseRef: pr.GetBase().GetRef(),
	}, nil
}

// ListFiles returns every changed file in the order GitHub reports them.
func (h *Host) ListFiles(ctx context.Context, number int) ([]dispatch.ChangedFile, error) {
	var files []dispatch.ChangedFile
	opts := &gh.ListOptions{PerPage: 100}
	for {
		page, resp, err := h.client.PullRequests.ListFiles(ctx, h.owner, h.repo, number, opts)
		if err != nil {
			return nil, h.wrap("listing pull request files", resp, err)
		}
		for _, f := range page {
			files = append(files, dispatch.ChangedFile{
				Path:   f.GetFilename(),
				Status: f.GetStatus(),
				Patch:  f.GetPatch(),
			})
		}
		if resp.NextPage == 0 {
			return files, nil
		}
		opts.Page = resp.NextPage
	}
}

func (h *Host) GetFileContent(ctx context.Context, path, ref string) (string, bool, error) {
	opts := &gh.RepositoryContentGetOptions{Ref: ref}
	file, _, resp, err := h.client.Repositories.GetContents(ctx, h.owner, h.repo, path, opts)
	if err != nil {
		if statusOf(resp) == http.StatusNotFound {
			return "", false, nil
		}
		return "", false, h.wrap("fetching "+path, resp, err)
	}
	if file == nil {
		return "", false, fmt.Errorf("%s is a directory", path)
	}
	content, err := file.GetContent()
	if err != nil {
		return "", false, fmt.Errorf("decoding %s: %w", path, err)
	}
	return content, true, nil
}

func (h *Host) CreateReview(ctx context.Context, number int, commitSHA, body string, comments []dispatch.InlineComment) error {
	drafts := make([]*gh.DraftReviewComment, 0, len(comments))
	for _, c := range comments {
		drafts = append(drafts, &gh.DraftReviewComment{
			Path:     gh.Ptr(c.Path),
			Position: gh.Ptr(c.Position),
			Body:     gh.Ptr(c.Body),
		})
	}
	req := &gh.PullRequestReviewRequest{
		CommitID: gh.Ptr(commitSHA),
		Body:     gh.Ptr(body),
		Event:    gh.Ptr("COMMENT"),
		Comments: drafts,
	}
	_, resp, err := h.client.PullRequests.CreateReview(ctx, h.owner, h.repo, number, req)
	if err != nil {
		if statusOf(resp) == http.StatusUnprocessableEntity {
			return &dispatch.PublishRejectedError{StatusCode: http.StatusUnprocessableEntity, Message: errorMessage(err)}
		}
		return h.wrap("creating review", resp, err)
	}
	return nil
}

func (h *Host) CreateComment(ctx context.Context, number int, body string) error {
	_, resp, err := h.client.Issues.CreateComment(ctx, h.owner, h.repo, number, &gh.IssueComment{Body: gh.Ptr(body)})
	if err != nil {
		return h.wrap("creating comment", resp, err)
	}
	return nil
}

func (h *Host) CreateBlob(ctx context.Context, content string) (string, error) {
	blob, resp, err := h.client.Git.CreateBlob(ctx, h.owner, h.repo, &gh.Blob{
		Content:  gh.Ptr(content),
		Encoding: gh.Ptr("utf-8"),
	})
	if err != nil {
		return "", h.wrap("creating blob", resp, err)
	}
	return blob.GetSHA(), nil
}

func (h *Host) GetCommitTree(ctx context.Context, commitSHA string) (string, error) {
	commit, resp, err := h.client.Git.GetCommit(ctx, h.owner, h.repo, commitSHA)
	if err != nil {
		return "", h.wrap("fetching commit", resp, err)
	}
	return commit.GetTree().GetSHA(), nil
}

func (h *Host) CreateTree(ctx context.Context, baseTree string, entries []dispatch.TreeEntry) (string, error) {
	ghEntries := make([]*gh.TreeEntry, 0, len(entries))
	for _, e := range entries {
		ghEntries = append(ghEntries, &gh.TreeEntry{
			Path: gh.Ptr(e.Path),
			Mode: gh.Ptr("100644"),
			Type: gh.Ptr("blob"),
			SHA:  gh.Ptr(e.BlobSHA),
		})
	}
	tree, resp, err := h.client.Git.CreateTree(ctx, h.owner, h.repo, baseTree, ghEntries)
	if err != nil {
		return "", h.wrap("creating tree", resp, err)
	}
	return tree.GetSHA(), nil
}

func (h *Host) CreateCommit(ctx context.Context, message, tree string, parents []string) (string, error) {
	commit := &gh.Commit{
		Message: gh.Ptr(message),
		Tree:    &gh.Tree{SHA: gh.Ptr(tree)},
	}
	for _, p := range parents {
		commit.Parents = append(commit.Parents, &gh.Commit{SHA: gh.Ptr(p)})
	}
	created, resp, err := h.client.Git.CreateCommit(ctx, h.owner, h.repo, commit, nil)
	if err != nil {
		return "", h.wrap("creating commit", resp, err)
	}
	return created.GetSHA(), nil
}

func (h *Host) UpdateRef(ctx context.Context, branch, commitSHA string) error {
	ref := &gh.Reference{
		Ref:    gh.Ptr("refs/heads/" + branch),
		Object: &gh.GitObject{SHA: gh.Ptr(commitSHA)},
	}
	_, resp, err := h.client.Git.UpdateRef(ctx, h.owner, h.repo, ref, false)
	if err != nil {
		if statusOf(resp) == http.StatusUnprocessableEntity {
			return &dispatch.RefUpdateConflictError{Branch: branch, Message: errorMessage(err)}
		}
		return h.wrap("updating ref", resp, err)
	}
	return nil
}

func (h *Host) wrap(op string, resp *gh.Response, err error) error {
	if statusOf(resp) == http.StatusUnauthorized {
		return &AuthError{Message: fmt.Sprintf("authentication failed while %s: %s", op, errorMessage(err))}
	}
	return fmt.Errorf("%s in %s: %w", op, h.Repo(), err)
}

func statusOf(resp *gh.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}

func errorMessage(err error) string {
	var er *gh.ErrorResponse
	if errors.As(err, &er) && er.Message != "" {
		return er.Message
	}
	return err.Error()
}

var _ dispatch.Host = (*Host)(nil)
