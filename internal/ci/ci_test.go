package ci

import (
	"testing"
)

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) string {
		if values == nil {
			return ""
		}
		return values[key]
	}
}

func TestCIKindString(t *testing.T) {
	testCases := []struct {
		name string
		kind CIKind
		want string
	}{
		{name: "GitHub", kind: CIGitHub, want: "github"},
		{name: "GitLab", kind: CIGitLab, want: "gitlab"},
		{name: "Unknown", kind: CIUnknown, want: "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.kind.String(); got != tc.want {
				t.Fatalf("CIKind.String() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseCIKind(t *testing.T) {
	testCases := []struct {
		input   string
		want    CIKind
		wantErr bool
	}{
		{input: "github", want: CIGitHub},
		{input: " GitLab ", want: CIGitLab},
		{input: "bitbucket", want: CIUnknown, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseCIKind(tc.input)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseCIKind(%q) error = %v, wantErr %v", tc.input, err, tc.wantErr)
			}
			if got != tc.want {
				t.Fatalf("ParseCIKind(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	t.Run("GitHub", func(t *testing.T) {
		got, ok := detectWithLookup(mapLookup(map[string]string{
			"GITHUB_REPOSITORY":       "poliacredita/front",
			"GITHUB_REPOSITORY_OWNER": "poliacredita",
			"GITHUB_SHA":              "abcdef123456",
			"GITHUB_SERVER_URL":       "https://github.com",
			"GITHUB_API_URL":          "https://api.github.com",
			"GITHUB_REF_NAME":         "main",
		}))
		if !ok {
			t.Fatal("expected GitHub environment to be detected")
		}

		want := Environment{
			Kind:       CIGitHub,
			CommitSHA:  "abcdef123456",
			ServerURL:  "https://github.com",
			APIURL:     "https://api.github.com",
			Branch:     "main",
			Owner:      "poliacredita",
			Repository: "front",
			FullName:   "poliacredita/front",
		}
		if got != want {
			t.Fatalf("GitHub env = %+v, want %+v", got, want)
		}
	})

	t.Run("GitLab", func(t *testing.T) {
		got, ok := detectWithLookup(mapLookup(map[string]string{
			"GITLAB_CI":            "true",
			"CI_COMMIT_SHA":        "deadbeef",
			"CI_SERVER_URL":        "https://gitlab.example.com",
			"CI_API_V4_URL":        "https://gitlab.example.com/api/v4",
			"CI_COMMIT_REF_NAME":   "develop",
			"CI_PROJECT_NAMESPACE": "group/sub",
			"CI_PROJECT_NAME":      "demo",
			"CI_PROJECT_PATH":      "group/sub/demo",
		}))
		if !ok {
			t.Fatal("expected GitLab environment to be detected")
		}
		if got.Kind != CIGitLab || got.FullName != "group/sub/demo" || got.Owner != "group/sub" {
			t.Fatalf("GitLab env = %+v", got)
		}
	})

	t.Run("None", func(t *testing.T) {
		if _, ok := detectWithLookup(mapLookup(nil)); ok {
			t.Fatal("expected no CI environment")
		}
	})
}
