package prioritize

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/poliacredita/qdigest/internal/archive"
	"github.com/poliacredita/qdigest/internal/config"
	"github.com/poliacredita/qdigest/internal/mailer"
	"github.com/poliacredita/qdigest/internal/pipeline"
	"github.com/poliacredita/qdigest/internal/telemetry"
)

// applyOverrides copies the flags set on the command line over the loaded configuration.
func applyOverrides(cfg *config.Config, flags *pflag.FlagSet, o *RunOptions) {
	if cfg == nil {
		return
	}
	if flags.Changed("issues-file") {
		cfg.Corpus.Path = o.IssuesFile
	}
	if flags.Changed("output-dir") {
		cfg.Report.OutputDir = o.OutputDir
	}
	if flags.Changed("project-tag") {
		cfg.Report.ProjectTag = o.ProjectTag
	}
	if flags.Changed("recipients") {
		cfg.Email.Recipients = o.Recipients
	}
}

// wireOptional attaches the distributor, archiver and telemetry recorder the configuration asks for.
func wireOptional(p *pipeline.Prioritization, cfg *config.Config, dryRun bool, lg hclog.Logger) {
	if !dryRun {
		p.Distributor = mailer.NewDistributor(cfg.Email.Sender, mailer.NewSMTPSender(cfg.Email), lg)
	}
	if cfg.Archive.Bucket != "" {
		a, err := archive.New(cfg.Archive, lg)
		if err != nil {
			lg.Warn("archive disabled", "error", err)
		} else {
			p.Archiver = a
		}
	}
	if rec := telemetry.New(cfg.Metrics, lg); rec != nil {
		p.Telemetry = rec
	}
}

func printOutcome(cmd *cobra.Command, o pipeline.Outcome) {
	out := cmd.OutOrStdout()
	switch {
	case o.Err == nil && o.Reached(pipeline.StageDistributed):
		fmt.Fprintf(out, "Report with %d finding(s) delivered: %v\n", len(o.Result.Findings), o.Artifacts)
	case o.Err == nil:
		fmt.Fprintf(out, "Report with %d finding(s) written: %v\n", len(o.Result.Findings), o.Artifacts)
	case o.Abandoned:
		fmt.Fprintf(out, "Run abandoned, no report produced: %v\n", o.Err)
	default:
		fmt.Fprintf(out, "Report written but not delivered (%v): %v\n", o.Err, o.Artifacts)
	}
}
