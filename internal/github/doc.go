// Package github implements dispatch.Host on the GitHub REST API using
// go-github, authenticated with an oauth2 static token.
//
// It also resolves which pull request to review: explicit flags first, then
// the GitHub Actions environment (GITHUB_REPOSITORY and the event payload at
// GITHUB_EVENT_PATH), then the local git remote.
package github
