package github

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
)

// Target names the pull request a run reviews.
type Target struct {
	Owner  string
	Repo   string
	Number int
}

func (t Target) String() string {
	return fmt.Sprintf("%s/%s#%d", t.Owner, t.Repo, t.Number)
}

// actionsEvent is the part of a GitHub Actions event payload that carries
// the pull request number.
type actionsEvent struct {
	Number      int `json:"number"`
	PullRequest struct {
		Number int `json:"number"`
	} `json:"pull_request"`
}

// ResolveTarget fills in owner/repo and the pull request number. repoFlag
// ("owner/repo") and number take precedence; missing parts come from
// GITHUB_REPOSITORY and GITHUB_EVENT_PATH, and the repository finally from
// the origin remote.
func ResolveTarget(repoFlag string, number int) (Target, error) {
	var t Target
	var err error

	repoSpec := repoFlag
	if repoSpec == "" {
		repoSpec = os.Getenv("GITHUB_REPOSITORY")
	}
	if repoSpec != "" {
		t.Owner, t.Repo, err = ParseRepo(repoSpec)
	} else {
		t.Owner, t.Repo, err = DetectRepo()
	}
	if err != nil {
		return Target{}, err
	}

	t.Number = number
	if t.Number == 0 {
		if path := os.Getenv("GITHUB_EVENT_PATH"); path != "" {
			t.Number, err = EventPRNumber(path)
			if err != nil {
				return Target{}, err
			}
		}
	}
	if t.Number <= 0 {
		return Target{}, fmt.Errorf("no pull request number: pass --pr or run on a pull_request event")
	}
	return t, nil
}

// ParseRepo splits "owner/repo".
func ParseRepo(s string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("invalid repository %q, want owner/repo", s)
	}
	return owner, repo, nil
}

// EventPRNumber reads the pull request number from an Actions event file.
func EventPRNumber(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading event payload: %w", err)
	}
	var ev actionsEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return 0, fmt.Errorf("parsing event payload: %w", err)
	}
	if ev.PullRequest.Number != 0 {
		return ev.PullRequest.Number, nil
	}
	return ev.Number, nil
}

var (
	httpsRemoteRe = regexp.MustCompile(`https?://[^/]+/([^/]+)/([^/.\s]+)`)
	sshRemoteRe   = regexp.MustCompile(`[^@]+@[^:]+:([^/]+)/([^/.\s]+)`)
)

// DetectRepo parses owner/repo from the git remote origin URL.
func DetectRepo() (owner, repo string, err error) {
	out, err := exec.Command("git", "remote", "get-url", "origin").Output()
	if err != nil {
		return "", "", fmt.Errorf("cannot detect repo: git remote get-url origin failed: %w", err)
	}
	return ParseRemoteURL(strings.TrimSpace(string(out)))
}

// ParseRemoteURL extracts owner/repo from a git remote URL.
func ParseRemoteURL(url string) (owner, repo string, err error) {
	url = strings.TrimSuffix(url, ".git")

	if m := httpsRemoteRe.FindStringSubmatch(url); len(m) == 3 {
		return m[1], m[2], nil
	}
	if m := sshRemoteRe.FindStringSubmatch(url); len(m) == 3 {
		return m[1], m[2], nil
	}
	return "", "", fmt.Errorf("cannot parse owner/repo from remote URL: %s", url)
}
