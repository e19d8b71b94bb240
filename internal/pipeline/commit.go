package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/poliacredita/qdigest/internal/archive"
	"github.com/poliacredita/qdigest/internal/debtreport"
	qerrors "github.com/poliacredita/qdigest/internal/errors"
	"github.com/poliacredita/qdigest/internal/findings"
	"github.com/poliacredita/qdigest/internal/mailer"
	"github.com/poliacredita/qdigest/internal/sarif"
	"github.com/poliacredita/qdigest/internal/sonar"
	"github.com/poliacredita/qdigest/internal/telemetry"
	"github.com/poliacredita/qdigest/internal/vcs"
)

const PipelineCommitReport = "commit-report"

// QualityService is the code-quality backend the commit report reads from.
type QualityService interface {
	Metrics(ctx context.Context) (map[string]string, error)
	Issues(ctx context.Context, types, severities []string) ([]findings.Issue, error)
}

// Describer writes a functional description of a commit message.
type Describer interface {
	Describe(ctx context.Context, commitMessage string) (string, error)
}

// CommitReport wires the commit and metrics stages.
type CommitReport struct {
	Commits     vcs.Source
	Quality     QualityService
	Describer   Describer
	Distributor Distributor
	Archiver    Archiver
	Telemetry   Recorder
	Policy      debtreport.MetricPolicy

	ProjectKey    string
	Model         string
	OutputDir     string
	DebtFile      string
	ReportFile    string
	SARIFPath     string
	KeepArtifacts bool
	Recipients    []string
	RunID         string
	Logger        hclog.Logger
}

// Run executes one pass. Only a missing commit, a missing required metric or an unwritable output
// directory abandon the run; unavailable metrics, issues or description degrade the report instead.
// Artifacts are removed after a successful delivery unless KeepArtifacts is set.
func (c *CommitReport) Run(ctx context.Context) Outcome {
	logger := withDefaults(c.Logger)
	out := Outcome{RunID: c.RunID}
	out.reach(StageStart)

	run := telemetry.Run{Pipeline: PipelineCommitReport}
	defer func() { finish(ctx, &out, logger, c.Telemetry, run) }()

	commit, err := c.Commits.LatestCommit(ctx)
	if err != nil {
		out.abandon(logger, err)
		return out
	}
	out.Commit = commit
	out.reach(StageCommitFetched)
	logger.Info("latest commit fetched", "sha", commit.ShortSHA(), "title", commit.Title, "files", len(commit.Files))

	raw, err := c.Quality.Metrics(ctx)
	if err != nil {
		logger.Warn("unable to fetch project metrics", "error", err)
		raw = nil
	}
	metricsOK := len(raw) > 0
	if metricsOK {
		out.reach(StageMetricsFetched)
	}
	metrics, err := c.Policy.Resolve(raw)
	if err != nil {
		out.abandon(logger, err)
		return out
	}
	out.Metrics = metrics

	var issues []findings.Issue
	if metricsOK {
		issues, err = c.Quality.Issues(ctx, sonar.IssueTypes, sonar.Severities)
		if err != nil {
			logger.Warn("unable to fetch issue details", "error", err)
			issues = nil
		} else {
			out.reach(StageIssuesFetched)
		}
	} else {
		logger.Warn("metrics unavailable, issue details skipped")
	}
	out.Issues = sonar.GroupByType(issues)
	run.Findings = len(issues)

	if err := os.MkdirAll(c.OutputDir, 0o755); err != nil {
		out.abandon(logger, qerrors.New(qerrors.KindUnknown, "commit_report.write", err))
		return out
	}
	debtPath := filepath.Join(c.OutputDir, c.DebtFile)
	debt := debtreport.Render(debtreport.Debt{ProjectKey: c.ProjectKey, Metrics: metrics, Issues: out.Issues})
	if err := os.WriteFile(debtPath, []byte(debt), 0o644); err != nil {
		out.abandon(logger, qerrors.New(qerrors.KindUnknown, "commit_report.write", fmt.Errorf("%s: %w", debtPath, err)))
		return out
	}
	out.Artifacts = append(out.Artifacts, debtPath)
	out.reach(StageDebtReportWritten)

	if c.SARIFPath != "" {
		c.exportSARIF(logger, issues)
	}

	description, err := c.Describer.Describe(ctx, commit.Message)
	if err != nil {
		logger.Warn("commit description unavailable, using placeholder", "kind", qerrors.KindOf(err).String(), "error", err)
		description = debtreport.DescriptionFallback(err)
	}
	out.reach(StageDescribed)

	body := debtreport.RenderCommitReport(commit, c.Model, description, metrics)
	reportPath := filepath.Join(c.OutputDir, c.ReportFile)
	if err := os.WriteFile(reportPath, []byte(body), 0o644); err != nil {
		out.abandon(logger, qerrors.New(qerrors.KindUnknown, "commit_report.write", fmt.Errorf("%s: %w", reportPath, err)))
		return out
	}
	out.Artifacts = append(out.Artifacts, reportPath)
	out.reach(StageRendered)

	archiveFiles(ctx, c.Archiver, c.RunID, logger,
		archive.File{Name: debtPath, ContentType: mailer.ContentTypeText, Data: []byte(debt)},
		archive.File{Name: reportPath, ContentType: mailer.ContentTypeText, Data: []byte(body)},
	)

	if c.Distributor == nil {
		logger.Info("dry run, distribution skipped")
		return out
	}

	env := mailer.Envelope{
		Subject:    debtreport.CommitSubject(commit),
		Body:       body,
		Recipients: c.Recipients,
		Attachments: []mailer.Attachment{
			{Name: c.DebtFile, ContentType: mailer.ContentTypeText, Data: []byte(debt)},
			{Name: c.ReportFile, ContentType: mailer.ContentTypeText, Data: []byte(body)},
		},
	}
	if err := c.Distributor.Distribute(ctx, env); err != nil {
		out.fail(logger, err)
		logger.Warn("artifacts kept on disk", "paths", out.Artifacts)
		return out
	}
	out.reach(StageDistributed)

	if !c.KeepArtifacts {
		c.cleanup(logger, &out)
	}
	return out
}

func (c *CommitReport) exportSARIF(logger hclog.Logger, issues []findings.Issue) {
	report, err := sarif.ExportIssues("SonarCloud", issues)
	if err == nil {
		err = sarif.WriteReport(c.SARIFPath, report)
	}
	if err != nil {
		logger.Warn("unable to export issues as SARIF", "path", c.SARIFPath, "error", err)
		return
	}
	logger.Info("issues exported as SARIF", "path", c.SARIFPath, "count", len(issues))
}

func (c *CommitReport) cleanup(logger hclog.Logger, out *Outcome) {
	var kept []string
	for _, path := range out.Artifacts {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn("unable to remove artifact", "path", path, "error", err)
			kept = append(kept, path)
		}
	}
	out.Artifacts = kept
}
