package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poliacredita/qdigest/internal/debtreport"
	qerrors "github.com/poliacredita/qdigest/internal/errors"
	"github.com/poliacredita/qdigest/internal/findings"
	"github.com/poliacredita/qdigest/internal/sonar"
	"github.com/poliacredita/qdigest/internal/vcs"
)

type fakeSource struct {
	commit *vcs.Commit
	err    error
}

func (f fakeSource) LatestCommit(context.Context) (*vcs.Commit, error) {
	return f.commit, f.err
}

type fakeQuality struct {
	metrics     map[string]string
	metricsErr  error
	issues      []findings.Issue
	issuesErr   error
	issuesCalls int
}

func (f *fakeQuality) Metrics(context.Context) (map[string]string, error) {
	return f.metrics, f.metricsErr
}

func (f *fakeQuality) Issues(context.Context, []string, []string) ([]findings.Issue, error) {
	f.issuesCalls++
	return f.issues, f.issuesErr
}

type fakeDescriber struct {
	text string
	err  error
}

func (f fakeDescriber) Describe(context.Context, string) (string, error) {
	return f.text, f.err
}

func newCommitReport(t *testing.T, q *fakeQuality, d Describer, dist Distributor) (*CommitReport, string) {
	t.Helper()
	dir := t.TempDir()
	c := &CommitReport{
		Commits:    fakeSource{commit: vcs.NewCommit("abcdef0123456", "feat: login\n\nAdds the form.", []string{"src/login.tsx"})},
		Quality:    q,
		Describer:  d,
		Policy:     debtreport.NewMetricPolicy(nil),
		ProjectKey: "org_front",
		Model:      "gemini-2.5-pro",
		OutputDir:  dir,
		DebtFile:   "deuda.txt",
		ReportFile: "commit.txt",
		Recipients: []string{"team@example.com"},
		RunID:      "run-2",
	}
	if dist != nil {
		c.Distributor = dist
	}
	return c, dir
}

func sampleIssues() []findings.Issue {
	return []findings.Issue{
		{Key: "1", Type: sonar.TypeBug, Severity: "BLOCKER", FilePath: "src/a.ts", Line: 3, RuleID: "ts:S1", Message: "m"},
		{Key: "2", Type: sonar.TypeCodeSmell, Severity: "MINOR", FilePath: "src/b.ts", Line: 9, RuleID: "ts:S2", Message: "n"},
	}
}

func TestCommitReportFullRunCleansUp(t *testing.T) {
	q := &fakeQuality{metrics: map[string]string{sonar.MetricBugs: "1", sonar.MetricCoverage: "64.0"}, issues: sampleIssues()}
	dist := &fakeDistributor{}
	c, dir := newCommitReport(t, q, fakeDescriber{text: "Agrega el login."}, dist)

	got := c.Run(context.Background())

	require.NoError(t, got.Err)
	assert.Equal(t, []Stage{StageStart, StageCommitFetched, StageMetricsFetched, StageIssuesFetched,
		StageDebtReportWritten, StageDescribed, StageRendered, StageDistributed, StageEnd}, got.Stages)

	require.Equal(t, 1, dist.calls)
	assert.Equal(t, "Informe de Calidad: Commit abcdef0 - 'feat: login...'", dist.env.Subject)
	assert.Contains(t, dist.env.Body, "Agrega el login.")
	require.Len(t, dist.env.Attachments, 2)
	assert.Equal(t, "deuda.txt", dist.env.Attachments[0].Name)
	assert.Contains(t, string(dist.env.Attachments[0].Data), "DETALLE DE ISSUES: BUGS 🐛 (1)")
	assert.Equal(t, dist.env.Body, string(dist.env.Attachments[1].Data))

	assert.Empty(t, got.Artifacts)
	assert.NoFileExists(t, filepath.Join(dir, "deuda.txt"))
	assert.NoFileExists(t, filepath.Join(dir, "commit.txt"))
	assert.Len(t, got.Issues[sonar.TypeBug], 1)
}

func TestCommitReportKeepArtifactsAndSARIF(t *testing.T) {
	q := &fakeQuality{metrics: map[string]string{sonar.MetricBugs: "1"}, issues: sampleIssues()}
	c, dir := newCommitReport(t, q, fakeDescriber{text: "d"}, &fakeDistributor{})
	c.KeepArtifacts = true
	c.SARIFPath = filepath.Join(dir, "sonar.sarif")

	got := c.Run(context.Background())

	require.NoError(t, got.Err)
	assert.FileExists(t, filepath.Join(dir, "deuda.txt"))
	assert.FileExists(t, filepath.Join(dir, "commit.txt"))
	assert.FileExists(t, c.SARIFPath)
	assert.Len(t, got.Artifacts, 2)
}

func TestCommitReportWithoutMetricsSkipsIssues(t *testing.T) {
	q := &fakeQuality{metricsErr: qerrors.Newf(qerrors.KindTransport, "sonar.metrics", "404")}
	c, dir := newCommitReport(t, q, fakeDescriber{text: "d"}, nil)

	got := c.Run(context.Background())

	require.NoError(t, got.Err)
	assert.Zero(t, q.issuesCalls)
	assert.False(t, got.Reached(StageMetricsFetched))
	assert.False(t, got.Reached(StageIssuesFetched))
	assert.Equal(t, debtreport.Placeholder, got.Metrics[sonar.MetricBugs])

	debt, err := os.ReadFile(filepath.Join(dir, "deuda.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(debt), "ATENCIÓN")
	assert.Contains(t, string(debt), "- Bugs: N/A\n")
}

func TestCommitReportRequiredMetricAborts(t *testing.T) {
	q := &fakeQuality{metrics: map[string]string{sonar.MetricBugs: "1"}}
	c, dir := newCommitReport(t, q, fakeDescriber{text: "d"}, &fakeDistributor{})
	c.Policy = debtreport.NewMetricPolicy([]string{sonar.MetricCoverage})

	got := c.Run(context.Background())

	assert.ErrorIs(t, got.Err, qerrors.ErrNotFound)
	assert.True(t, got.Abandoned)
	assert.NoFileExists(t, filepath.Join(dir, "deuda.txt"))
}

func TestCommitReportDescriptionFallback(t *testing.T) {
	q := &fakeQuality{metrics: map[string]string{sonar.MetricBugs: "0"}}
	c, dir := newCommitReport(t, q, fakeDescriber{err: qerrors.New(qerrors.KindTransport, "extraction.describe", errors.New("quota exceeded"))}, nil)

	got := c.Run(context.Background())

	require.NoError(t, got.Err)
	assert.True(t, got.Reached(StageDescribed))
	body, err := os.ReadFile(filepath.Join(dir, "commit.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(body), "Error en el análisis de IA:")
	assert.Contains(t, string(body), "quota exceeded")
}

func TestCommitReportMissingCommitAborts(t *testing.T) {
	q := &fakeQuality{}
	dist := &fakeDistributor{}
	c, _ := newCommitReport(t, q, fakeDescriber{}, dist)
	c.Commits = fakeSource{err: qerrors.Newf(qerrors.KindNotFound, "vcs.github.latest_commit", "no commits")}

	got := c.Run(context.Background())

	assert.ErrorIs(t, got.Err, qerrors.ErrNotFound)
	assert.True(t, got.Abandoned)
	assert.Equal(t, []Stage{StageStart, StageFailed, StageEnd}, got.Stages)
	assert.Zero(t, dist.calls)
}

func TestCommitReportDeliveryFailureKeepsArtifacts(t *testing.T) {
	q := &fakeQuality{metrics: map[string]string{sonar.MetricBugs: "0"}}
	dist := &fakeDistributor{err: qerrors.Newf(qerrors.KindDelivery, "mailer.distribute", "connection refused")}
	c, dir := newCommitReport(t, q, fakeDescriber{text: "d"}, dist)

	got := c.Run(context.Background())

	assert.ErrorIs(t, got.Err, qerrors.ErrDelivery)
	assert.False(t, got.Abandoned)
	assert.FileExists(t, filepath.Join(dir, "deuda.txt"))
	assert.FileExists(t, filepath.Join(dir, "commit.txt"))
}
