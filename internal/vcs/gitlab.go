package vcs

import (
	"context"
	"fmt"

	"github.com/xanzy/go-gitlab"

	qerrors "github.com/poliacredita/qdigest/internal/errors"
)

// GitLabSource reads commits through the GitLab REST API.
type GitLabSource struct {
	client  *gitlab.Client
	project string
}

// NewGitLabSource creates a source for the project owner/repo.
func NewGitLabSource(t Target, token string) (*GitLabSource, error) {
	var opts []gitlab.ClientOptionFunc
	if t.APIURL != "" {
		opts = append(opts, gitlab.WithBaseURL(t.APIURL))
	}
	client, err := gitlab.NewClient(token, opts...)
	if err != nil {
		return nil, qerrors.New(qerrors.KindConfiguration, "vcs.gitlab", err)
	}
	return &GitLabSource{client: client, project: t.FullName()}, nil
}

// LatestCommit lists one commit from the default branch and collects the paths its diff touches.
func (s *GitLabSource) LatestCommit(ctx context.Context) (*Commit, error) {
	const op = "vcs.gitlab.latest_commit"

	commits, _, err := s.client.Commits.ListCommits(s.project, &gitlab.ListCommitsOptions{
		ListOptions: gitlab.ListOptions{PerPage: 1},
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, qerrors.New(qerrors.KindTransport, op, err)
	}
	if len(commits) == 0 {
		return nil, notFound(op, "project %s has no commits", s.project)
	}

	c := commits[0]
	diffs, _, err := s.client.Commits.GetCommitDiff(s.project, c.ID, &gitlab.GetCommitDiffOptions{
		ListOptions: gitlab.ListOptions{PerPage: 100},
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, qerrors.New(qerrors.KindTransport, op, fmt.Errorf("commit %s: %w", c.ID, err))
	}

	files := make([]string, 0, len(diffs))
	for _, d := range diffs {
		path := d.NewPath
		if d.DeletedFile {
			path = d.OldPath
		}
		files = append(files, path)
	}
	return NewCommit(c.ID, c.Message, files), nil
}
