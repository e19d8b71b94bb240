package commitreport

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/poliacredita/qdigest/internal/config"
	"github.com/poliacredita/qdigest/internal/debtreport"
	"github.com/poliacredita/qdigest/internal/errors"
	"github.com/poliacredita/qdigest/internal/extraction"
	"github.com/poliacredita/qdigest/internal/httpclient"
	"github.com/poliacredita/qdigest/internal/logger"
	"github.com/poliacredita/qdigest/internal/pipeline"
	"github.com/poliacredita/qdigest/internal/sonar"
	"github.com/poliacredita/qdigest/internal/vcs"
)

// RunOptions holds flags for the commit-report command.
type RunOptions struct {
	Provider      string `json:"provider,omitempty"`
	RepoPath      string `json:"repo_path,omitempty"`
	OutputDir     string `json:"output_dir,omitempty"`
	SARIFOut      string `json:"sarif_out,omitempty"`
	KeepArtifacts bool   `json:"keep_artifacts,omitempty"`
	DryRun        bool   `json:"dry_run,omitempty"`
	Strict        bool   `json:"strict,omitempty"`
}

var (
	AppConfig *config.Config
	opts      RunOptions

	exampleCommitReportUsage = `  # Report the latest commit of the repository detected from the CI job
  qdigest commit-report

  # Report the HEAD of a local checkout and keep the technical-debt dump for the prioritize command
  qdigest commit-report --provider local --repo-path . --keep-artifacts --dry-run

  # Also export the SonarCloud issues as SARIF
  OWNER=poliacredita REPO=front qdigest commit-report --provider github --sarif-out sonar.sarif`

	// CommitReportCmd represents the command that reports the latest commit together with its quality metrics.
	CommitReportCmd = &cobra.Command{
		Use:                   "commit-report [--provider github|gitlab|local] [--repo-path PATH] [--output-dir DIR] [--sarif-out PATH] [--keep-artifacts] [--dry-run] [--strict]",
		Short:                 "Describe the latest commit with Gemini and mail it with the SonarCloud technical-debt dump",
		Example:               exampleCommitReportUsage,
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		RunE:                  runCommitReport,
	}
)

// Init wires config into this command.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func runCommitReport(cmd *cobra.Command, args []string) error {
	lg, runID := logger.WithRunID(logger.NewLogger(AppConfig, "commit-report"))

	applyOverrides(AppConfig, cmd.Flags(), &opts)
	if err := validate(AppConfig, &opts); err != nil {
		lg.Error("invalid configuration", "error", err)
		return errors.NewCommandError(err, pipeline.ExitConfiguration)
	}

	ctx := cmd.Context()
	source, err := vcs.NewSource(ctx, AppConfig.VCS, lg)
	if err != nil {
		lg.Error("unable to resolve the repository", "error", err)
		return errors.NewCommandError(err, pipeline.ExitConfiguration)
	}

	httpc := httpclient.InitializeRestyClient(lg, &AppConfig.HTTPClient)
	gen, err := extraction.NewGeminiGenerator(ctx, AppConfig.Gemini, httpclient.StandardClient(httpc))
	if err != nil {
		lg.Error("unable to create Gemini client", "error", err)
		return errors.NewCommandError(err, pipeline.ExitConfiguration)
	}
	client := extraction.NewClient(gen, AppConfig.Gemini.Model, AppConfig.Gemini.Timeout, lg)

	c := &pipeline.CommitReport{
		Commits:       source,
		Quality:       sonar.New(AppConfig.Sonar, httpc, lg),
		Describer:     extraction.NewDescriber(client),
		Policy:        debtreport.NewMetricPolicy(AppConfig.Sonar.RequiredMetrics),
		ProjectKey:    AppConfig.Sonar.ProjectKey,
		Model:         AppConfig.Gemini.Model,
		OutputDir:     AppConfig.Report.OutputDir,
		DebtFile:      AppConfig.Report.DebtReportFile,
		ReportFile:    AppConfig.Report.CommitReportFile,
		SARIFPath:     opts.SARIFOut,
		KeepArtifacts: opts.KeepArtifacts || opts.DryRun,
		Recipients:    AppConfig.Email.Recipients,
		RunID:         runID,
		Logger:        lg,
	}
	wireOptional(c, AppConfig, opts.DryRun, lg)

	lg.Info("starting commit report", "project", c.ProjectKey, "model", c.Model, "dry_run", opts.DryRun)
	outcome := c.Run(ctx)
	printOutcome(cmd, outcome)

	if code := pipeline.ExitCode(outcome, opts.Strict); code != pipeline.ExitOK {
		return errors.NewCommandError(fmt.Errorf("commit report failed: %w", outcome.Err), code)
	}
	return nil
}

func init() {
	CommitReportCmd.Flags().StringVar(&opts.Provider, "provider", "", "Commit source: github, gitlab or local (detected from the CI job or the origin remote when unset)")
	CommitReportCmd.Flags().StringVar(&opts.RepoPath, "repo-path", "", "Path of the local checkout, used by the local provider and for origin detection")
	CommitReportCmd.Flags().StringVar(&opts.OutputDir, "output-dir", "", "Directory the report artifacts are written to")
	CommitReportCmd.Flags().StringVar(&opts.SARIFOut, "sarif-out", "", "Optional: also write the SonarCloud issues to this SARIF file")
	CommitReportCmd.Flags().BoolVar(&opts.KeepArtifacts, "keep-artifacts", false, "Keep the text artifacts after they were mailed")
	CommitReportCmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Render the artifacts without sending mail (implies --keep-artifacts)")
	CommitReportCmd.Flags().BoolVar(&opts.Strict, "strict", false, "Exit non-zero when the run is abandoned (2) or the mail cannot be delivered (3)")
	CommitReportCmd.Flags().BoolP("help", "h", false, "Show help for commit-report command.")
}
