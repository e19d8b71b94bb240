package prioritize

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/poliacredita/qdigest/internal/config"
	"github.com/poliacredita/qdigest/internal/corpus"
	"github.com/poliacredita/qdigest/internal/errors"
	"github.com/poliacredita/qdigest/internal/extraction"
	"github.com/poliacredita/qdigest/internal/httpclient"
	"github.com/poliacredita/qdigest/internal/logger"
	"github.com/poliacredita/qdigest/internal/pipeline"
	"github.com/poliacredita/qdigest/internal/report"
)

// RunOptions holds flags for the prioritize command.
type RunOptions struct {
	IssuesFile string   `json:"issues_file,omitempty"`
	OutputDir  string   `json:"output_dir,omitempty"`
	ProjectTag string   `json:"project_tag,omitempty"`
	Recipients []string `json:"recipients,omitempty"`
	DryRun     bool     `json:"dry_run,omitempty"`
	Strict     bool     `json:"strict,omitempty"`
}

var (
	AppConfig *config.Config
	opts      RunOptions

	examplePrioritizeUsage = `  # Prioritize the dump written by commit-report and mail the digest
  qdigest prioritize

  # Read the dump from a bucket and keep the artifacts in ./out without sending mail
  qdigest prioritize --issues-file s3://quality-dumps/front/deuda_tecnica_informe.txt --output-dir out --dry-run

  # Prioritize a SARIF report and fail the job when the digest cannot be produced or delivered
  qdigest prioritize --issues-file results.sarif --project-tag front --strict`

	// PrioritizeCmd represents the command that ranks the ten most critical issues with Gemini.
	PrioritizeCmd = &cobra.Command{
		Use:                   "prioritize [--issues-file PATH] [--output-dir DIR] [--project-tag TAG] [--recipients a@b[,c@d]] [--dry-run] [--strict]",
		Short:                 "Rank the ten most critical issues of a static-analysis dump and mail the digest",
		Example:               examplePrioritizeUsage,
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		RunE:                  runPrioritize,
	}
)

// Init wires config into this command.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func runPrioritize(cmd *cobra.Command, args []string) error {
	lg, runID := logger.WithRunID(logger.NewLogger(AppConfig, "prioritize"))

	applyOverrides(AppConfig, cmd.Flags(), &opts)
	if err := validate(AppConfig, &opts); err != nil {
		lg.Error("invalid configuration", "error", err)
		return errors.NewCommandError(err, pipeline.ExitConfiguration)
	}

	ctx := cmd.Context()
	gen, err := extraction.NewGeminiGenerator(ctx, AppConfig.Gemini, httpclient.StandardClient(httpclient.InitializeRestyClient(lg, &AppConfig.HTTPClient)))
	if err != nil {
		lg.Error("unable to create Gemini client", "error", err)
		return errors.NewCommandError(err, pipeline.ExitConfiguration)
	}

	p := &pipeline.Prioritization{
		Reader:     corpus.NewReader(AppConfig.Corpus.MaxInputChars, lg, corpus.WithRegion(AppConfig.Corpus.S3Region)),
		Extractor:  extraction.NewClient(gen, AppConfig.Gemini.Model, AppConfig.Gemini.Timeout, lg),
		Renderer:   report.NewRenderer(AppConfig.Report.JSONFile, AppConfig.Report.TextFile),
		Location:   AppConfig.Corpus.Path,
		OutputDir:  AppConfig.Report.OutputDir,
		ProjectTag: AppConfig.Report.ProjectTag,
		Recipients: AppConfig.Email.Recipients,
		RunID:      runID,
		Logger:     lg,
	}
	wireOptional(p, AppConfig, opts.DryRun, lg)

	lg.Info("starting prioritization", "issues_file", p.Location, "model", AppConfig.Gemini.Model, "dry_run", opts.DryRun)
	outcome := p.Run(ctx)
	printOutcome(cmd, outcome)

	if code := pipeline.ExitCode(outcome, opts.Strict); code != pipeline.ExitOK {
		return errors.NewCommandError(fmt.Errorf("prioritization failed: %w", outcome.Err), code)
	}
	return nil
}

func init() {
	PrioritizeCmd.Flags().StringVar(&opts.IssuesFile, "issues-file", "", "Path or s3:// location of the static-analysis dump (defaults to $ISSUES_FILE)")
	PrioritizeCmd.Flags().StringVar(&opts.OutputDir, "output-dir", "", "Directory the report artifacts are written to (defaults to $QDIGEST_OUTPUT_DIR or the working directory)")
	PrioritizeCmd.Flags().StringVar(&opts.ProjectTag, "project-tag", "", "Project tag written into the report (defaults to $PROJECT_TAG)")
	PrioritizeCmd.Flags().StringSliceVar(&opts.Recipients, "recipients", nil, "Mail recipients (repeat flag or use comma-separated values; defaults to $EMAIL_RECIPIENTS)")
	PrioritizeCmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Render the artifacts without sending mail")
	PrioritizeCmd.Flags().BoolVar(&opts.Strict, "strict", false, "Exit non-zero when the run is abandoned (2) or the mail cannot be delivered (3)")
	PrioritizeCmd.Flags().BoolP("help", "h", false, "Show help for prioritize command.")
}
