package sarif

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poliacredita/qdigest/internal/findings"
)

const semgrepLog = `{
  "version": "2.1.0",
  "runs": [{
    "tool": {"driver": {"name": "Semgrep", "rules": [{"id": "py.null", "shortDescription": {"text": "null deref"}}]}},
    "results": [
      {"ruleId": "py.null", "level": "error", "message": {"text": ""},
       "locations": [{"physicalLocation": {"artifactLocation": {"uri": "foo.py"}, "region": {"startLine": 12}}}]},
      {"ruleId": "py.sql", "message": {"text": "tainted query"},
       "locations": [{"physicalLocation": {"artifactLocation": {"uri": "db.py"}}}]},
      {"ruleId": "py.skip", "level": "note", "message": {"text": "ignored"},
       "suppressions": [{"kind": "inSource"}]}
    ]
  }]
}`

func TestFlatten(t *testing.T) {
	report, err := Parse([]byte(semgrepLog))
	require.NoError(t, err)

	got := Flatten(report)
	assert.Equal(t, "ERROR [py.null] foo.py:12 null deref\nWARNING [py.sql] db.py tainted query\n", got)
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse([]byte("not json"))
	assert.Error(t, err)
}

func TestExportIssuesRoundTrip(t *testing.T) {
	issues := []findings.Issue{
		{RuleID: "java:S2259", Severity: "CRITICAL", FilePath: "src/A.java", Line: 7, Message: "NPE"},
		{RuleID: "java:S2259", Severity: "MINOR", FilePath: "src/B.java", Message: "NPE again"},
	}

	report, err := ExportIssues("SonarCloud", issues)
	require.NoError(t, err)
	require.Len(t, report.Runs, 1)
	assert.Len(t, report.Runs[0].Tool.Driver.Rules, 1)

	path := filepath.Join(t.TempDir(), "issues.sarif")
	require.NoError(t, WriteReport(path, report))

	back, err := ReadReport(path)
	require.NoError(t, err)
	assert.Equal(t, "ERROR [java:S2259] src/A.java:7 NPE\nNOTE [java:S2259] src/B.java NPE again\n", Flatten(back))
}

func TestLevelForSeverity(t *testing.T) {
	assert.Equal(t, "error", LevelForSeverity("blocker"))
	assert.Equal(t, "warning", LevelForSeverity("MAJOR"))
	assert.Equal(t, "note", LevelForSeverity("INFO"))
}
