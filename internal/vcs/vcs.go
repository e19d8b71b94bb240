// Package vcs retrieves the latest commit of the analysed repository.
package vcs

import (
	"context"
	"fmt"
	"strings"

	"github.com/gitsight/go-vcsurl"
	"github.com/hashicorp/go-hclog"

	"github.com/poliacredita/qdigest/internal/ci"
	"github.com/poliacredita/qdigest/internal/config"
	qerrors "github.com/poliacredita/qdigest/internal/errors"
)

const (
	ProviderGitHub = "github"
	ProviderGitLab = "gitlab"
	ProviderLocal  = "local"
)

// Commit is the commit a quality report is written for.
type Commit struct {
	SHA         string
	Title       string
	Description string
	Message     string
	Files       []string
}

// ShortSHA returns the first seven characters of the hash.
func (c Commit) ShortSHA() string {
	if len(c.SHA) > 7 {
		return c.SHA[:7]
	}
	return c.SHA
}

// Source returns the most recent commit of one repository.
type Source interface {
	LatestCommit(ctx context.Context) (*Commit, error)
}

// NewCommit splits message into its title line and the remaining description.
func NewCommit(sha, message string, files []string) *Commit {
	lines := strings.Split(strings.ReplaceAll(message, "\r\n", "\n"), "\n")
	return &Commit{
		SHA:         sha,
		Title:       strings.TrimSpace(lines[0]),
		Description: strings.TrimSpace(strings.Join(lines[1:], "\n")),
		Message:     message,
		Files:       files,
	}
}

// Target is a resolved repository location.
type Target struct {
	Provider string
	Owner    string
	Repo     string
	APIURL   string
}

// FullName returns owner/repo.
func (t Target) FullName() string {
	return t.Owner + "/" + t.Repo
}

// ResolveTarget fills the repository coordinates from configuration first, then from the CI job
// environment, then from the origin remote of the local checkout.
func ResolveTarget(cfg config.VCS, env ci.Environment, detected bool, logger hclog.Logger) (Target, error) {
	t := Target{
		Provider: strings.ToLower(strings.TrimSpace(cfg.Provider)),
		Owner:    cfg.Owner,
		Repo:     cfg.Repository,
		APIURL:   cfg.APIURL,
	}

	if detected {
		if t.Provider == "" {
			t.Provider = env.Kind.String()
		}
		if t.Owner == "" && t.Repo == "" {
			t.Owner, t.Repo = env.Owner, env.Repository
			logger.Debug("repository resolved from CI environment", "repository", env.FullName)
		}
		if t.APIURL == "" {
			t.APIURL = env.APIURL
		}
	}

	if (t.Owner == "" || t.Repo == "") && cfg.LocalPath != "" {
		if origin, err := OriginURL(cfg.LocalPath); err == nil {
			if info, err := vcsurl.Parse(origin); err == nil {
				t.Owner, t.Repo = ownerAndRepo(info)
				if t.Provider == "" {
					t.Provider = providerForHost(string(info.Host))
				}
				logger.Debug("repository resolved from origin remote", "origin", origin)
			}
		}
	}

	if t.Provider == "" && cfg.LocalPath != "" {
		t.Provider = ProviderLocal
	}

	switch t.Provider {
	case ProviderLocal:
		return t, nil
	case ProviderGitHub, ProviderGitLab:
		if t.Owner == "" || t.Repo == "" {
			return t, qerrors.Newf(qerrors.KindConfiguration, "vcs.resolve", "repository owner and name are required (OWNER, REPO)")
		}
		return t, nil
	case "":
		return t, qerrors.Newf(qerrors.KindConfiguration, "vcs.resolve", "unable to detect the VCS provider; set vcs.provider")
	default:
		return t, qerrors.Newf(qerrors.KindConfiguration, "vcs.resolve", "unsupported VCS provider %q", t.Provider)
	}
}

// NewSource builds the commit source for the resolved target.
func NewSource(ctx context.Context, cfg config.VCS, logger hclog.Logger) (Source, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	env, detected := ci.Detect()
	t, err := ResolveTarget(cfg, env, detected, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("commit source selected", "provider", t.Provider, "repository", t.FullName())
	switch t.Provider {
	case ProviderGitHub:
		return NewGitHubSource(ctx, t, cfg.Token)
	case ProviderGitLab:
		return NewGitLabSource(t, cfg.Token)
	default:
		return NewLocalSource(cfg.LocalPath), nil
	}
}

func ownerAndRepo(info *vcsurl.VCS) (string, string) {
	if i := strings.LastIndex(info.FullName, "/"); i > 0 {
		return info.FullName[:i], info.FullName[i+1:]
	}
	return info.Username, info.Name
}

func providerForHost(host string) string {
	switch {
	case strings.Contains(host, "github"):
		return ProviderGitHub
	case strings.Contains(host, "gitlab"):
		return ProviderGitLab
	default:
		return ""
	}
}

func notFound(op, format string, args ...interface{}) error {
	return qerrors.New(qerrors.KindNotFound, op, fmt.Errorf(format, args...))
}
