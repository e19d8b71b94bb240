package commitreport

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/poliacredita/qdigest/internal/archive"
	"github.com/poliacredita/qdigest/internal/config"
	"github.com/poliacredita/qdigest/internal/debtreport"
	"github.com/poliacredita/qdigest/internal/mailer"
	"github.com/poliacredita/qdigest/internal/pipeline"
	"github.com/poliacredita/qdigest/internal/telemetry"
)

// applyOverrides copies the flags set on the command line over the loaded configuration.
func applyOverrides(cfg *config.Config, flags *pflag.FlagSet, o *RunOptions) {
	if cfg == nil {
		return
	}
	if flags.Changed("provider") {
		cfg.VCS.Provider = o.Provider
	}
	if flags.Changed("repo-path") {
		cfg.VCS.LocalPath = o.RepoPath
	}
	if cfg.VCS.LocalPath == "" {
		cfg.VCS.LocalPath = "."
	}
	if flags.Changed("output-dir") {
		cfg.Report.OutputDir = o.OutputDir
	}
}

// wireOptional attaches the distributor, archiver and telemetry recorder the configuration asks for.
func wireOptional(c *pipeline.CommitReport, cfg *config.Config, dryRun bool, lg hclog.Logger) {
	if !dryRun {
		c.Distributor = mailer.NewDistributor(cfg.Email.Sender, mailer.NewSMTPSender(cfg.Email), lg)
	}
	if cfg.Archive.Bucket != "" {
		a, err := archive.New(cfg.Archive, lg)
		if err != nil {
			lg.Warn("archive disabled", "error", err)
		} else {
			c.Archiver = a
		}
	}
	if rec := telemetry.New(cfg.Metrics, lg); rec != nil {
		c.Telemetry = rec
	}
}

func printOutcome(cmd *cobra.Command, o pipeline.Outcome) {
	out := cmd.OutOrStdout()
	if o.Commit != nil {
		fmt.Fprintf(out, "Commit %s - %s\n", o.Commit.ShortSHA(), o.Commit.Title)
	}
	if o.Metrics != nil {
		fmt.Fprintln(out, debtreport.SummaryTable(o.Metrics, o.Issues))
	}
	switch {
	case o.Err == nil && o.Reached(pipeline.StageDistributed):
		fmt.Fprintln(out, "Commit report delivered")
	case o.Err == nil:
		fmt.Fprintf(out, "Commit report written: %v\n", o.Artifacts)
	case o.Abandoned:
		fmt.Fprintf(out, "Run abandoned, no report produced: %v\n", o.Err)
	default:
		fmt.Fprintf(out, "Commit report written but not delivered (%v): %v\n", o.Err, o.Artifacts)
	}
}
