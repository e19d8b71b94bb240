// Package ci discovers the repository coordinates of the pipeline job that runs qdigest.
package ci

import (
	"fmt"
	"os"
	"strings"
)

// CIKind represents the type of CI.
type CIKind int

const (
	// CIUnknown indicates the CI provider could not be identified.
	CIUnknown CIKind = iota
	// CIGitHub identifies GitHub Actions.
	CIGitHub
	// CIGitLab identifies GitLab CI.
	CIGitLab
)

// LookupFunc fetches environment variables and defaults to os.Getenv.
type LookupFunc func(string) string

// Environment is the commit and repository the job was triggered for.
type Environment struct {
	Kind       CIKind
	CommitSHA  string
	ServerURL  string // scheme and host of the VCS server
	APIURL     string
	Branch     string
	Owner      string // owner, organization or group path
	Repository string // repository slug without namespace
	FullName   string // namespace-qualified repository name
}

// String returns the provider name used in configuration.
func (c CIKind) String() string {
	switch c {
	case CIGitHub:
		return "github"
	case CIGitLab:
		return "gitlab"
	default:
		return "unknown"
	}
}

// ParseCIKind converts a provider name into a CIKind value.
func ParseCIKind(raw string) (CIKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "github":
		return CIGitHub, nil
	case "gitlab":
		return CIGitLab, nil
	default:
		return CIUnknown, fmt.Errorf("unsupported ci kind %q", raw)
	}
}

// Detect reads the job environment of the running process.
func Detect() (Environment, bool) {
	return detectWithLookup(os.Getenv)
}

func detectWithLookup(lookup LookupFunc) (Environment, bool) {
	if lookup == nil {
		lookup = os.Getenv
	}

	switch {
	case lookup("GITHUB_REPOSITORY") != "" || lookup("GITHUB_SHA") != "":
		return githubEnvironment(lookup), true
	case strings.EqualFold(lookup("GITLAB_CI"), "true") || lookup("CI_PROJECT_PATH") != "":
		return gitlabEnvironment(lookup), true
	default:
		return Environment{}, false
	}
}

// githubEnvironment builds the Environment from GitHub Actions variables.
// See https://docs.github.com/en/actions/reference/workflows-and-actions/variables.
func githubEnvironment(lookup LookupFunc) Environment {
	fullName := lookup("GITHUB_REPOSITORY")
	owner, repo, _ := strings.Cut(fullName, "/")
	if o := lookup("GITHUB_REPOSITORY_OWNER"); o != "" {
		owner = o
	}

	return Environment{
		Kind:       CIGitHub,
		CommitSHA:  lookup("GITHUB_SHA"),
		ServerURL:  lookup("GITHUB_SERVER_URL"),
		APIURL:     lookup("GITHUB_API_URL"),
		Branch:     lookup("GITHUB_REF_NAME"),
		Owner:      owner,
		Repository: repo,
		FullName:   fullName,
	}
}

// gitlabEnvironment builds the Environment from GitLab CI predefined variables.
// See https://docs.gitlab.com/ci/variables/predefined_variables/.
func gitlabEnvironment(lookup LookupFunc) Environment {
	return Environment{
		Kind:       CIGitLab,
		CommitSHA:  lookup("CI_COMMIT_SHA"),
		ServerURL:  lookup("CI_SERVER_URL"),
		APIURL:     lookup("CI_API_V4_URL"),
		Branch:     lookup("CI_COMMIT_REF_NAME"),
		Owner:      lookup("CI_PROJECT_NAMESPACE"),
		Repository: lookup("CI_PROJECT_NAME"),
		FullName:   lookup("CI_PROJECT_PATH"),
	}
}
