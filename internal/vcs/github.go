package vcs

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v47/github"
	"golang.org/x/oauth2"

	qerrors "github.com/poliacredita/qdigest/internal/errors"
)

// GitHubSource reads commits through the GitHub REST API.
type GitHubSource struct {
	client *github.Client
	owner  string
	repo   string
}

// NewGitHubSource creates a source for t. An empty token gives unauthenticated access.
func NewGitHubSource(ctx context.Context, t Target, token string) (*GitHubSource, error) {
	var httpClient *http.Client
	if token != "" {
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}

	client := github.NewClient(httpClient)
	if t.APIURL != "" && t.APIURL != "https://api.github.com" {
		var err error
		client, err = github.NewEnterpriseClient(t.APIURL, t.APIURL, httpClient)
		if err != nil {
			return nil, qerrors.New(qerrors.KindConfiguration, "vcs.github", err)
		}
	}
	return &GitHubSource{client: client, owner: t.Owner, repo: t.Repo}, nil
}

// LatestCommit lists one commit from the default branch and then fetches its file list.
func (s *GitHubSource) LatestCommit(ctx context.Context) (*Commit, error) {
	const op = "vcs.github.latest_commit"

	commits, _, err := s.client.Repositories.ListCommits(ctx, s.owner, s.repo, &github.CommitsListOptions{
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		return nil, qerrors.New(qerrors.KindTransport, op, err)
	}
	if len(commits) == 0 {
		return nil, notFound(op, "repository %s/%s has no commits", s.owner, s.repo)
	}

	sha := commits[0].GetSHA()
	details, _, err := s.client.Repositories.GetCommit(ctx, s.owner, s.repo, sha, &github.ListOptions{PerPage: 100})
	if err != nil {
		return nil, qerrors.New(qerrors.KindTransport, op, fmt.Errorf("commit %s: %w", sha, err))
	}

	files := make([]string, 0, len(details.Files))
	for _, f := range details.Files {
		files = append(files, f.GetFilename())
	}
	return NewCommit(sha, details.GetCommit().GetMessage(), files), nil
}
