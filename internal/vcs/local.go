package vcs

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5"

	qerrors "github.com/poliacredita/qdigest/internal/errors"
)

// LocalSource reads HEAD of a checkout on disk.
type LocalSource struct {
	path string
}

// NewLocalSource creates a source for the checkout containing path.
func NewLocalSource(path string) *LocalSource {
	return &LocalSource{path: path}
}

// LatestCommit returns the HEAD commit and the files it changed relative to its first parent.
func (s *LocalSource) LatestCommit(_ context.Context) (*Commit, error) {
	const op = "vcs.local.latest_commit"

	repo, err := openRepository(s.path)
	if err != nil {
		return nil, qerrors.New(qerrors.KindNotFound, op, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, notFound(op, "unable to resolve HEAD: %v", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, notFound(op, "unable to read commit %s: %v", head.Hash(), err)
	}

	stats, err := commit.Stats()
	if err != nil {
		return nil, qerrors.New(qerrors.KindNotFound, op, fmt.Errorf("unable to diff commit %s: %w", head.Hash(), err))
	}
	files := make([]string, 0, len(stats))
	for _, st := range stats {
		files = append(files, st.Name)
	}
	return NewCommit(commit.Hash.String(), commit.Message, files), nil
}

// OriginURL returns the first URL of the origin remote of the checkout containing path.
func OriginURL(path string) (string, error) {
	repo, err := openRepository(path)
	if err != nil {
		return "", err
	}
	remote, err := repo.Remote("origin")
	if err != nil {
		return "", err
	}
	if cfg := remote.Config(); cfg != nil && len(cfg.URLs) > 0 {
		return cfg.URLs[0], nil
	}
	return "", fmt.Errorf("origin remote has no URL")
}

// openRepository opens the repository at path or at the closest parent folder that holds one.
func openRepository(path string) (*git.Repository, error) {
	if path == "" {
		return nil, fmt.Errorf("repository path is not set")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("%s is not a git repository: %w", path, err)
	}
	return repo, nil
}
