// Package pipeline runs the report pipelines as explicit, single-pass state machines.
package pipeline

import (
	"context"

	"github.com/hashicorp/go-hclog"

	"github.com/poliacredita/qdigest/internal/archive"
	qerrors "github.com/poliacredita/qdigest/internal/errors"
	"github.com/poliacredita/qdigest/internal/findings"
	"github.com/poliacredita/qdigest/internal/mailer"
	"github.com/poliacredita/qdigest/internal/telemetry"
	"github.com/poliacredita/qdigest/internal/vcs"
)

// Stage is a state a run has reached.
type Stage string

const (
	StageStart             Stage = "START"
	StageCorpusRead        Stage = "CORPUS_READ"
	StageRequestBuilt      Stage = "REQUEST_BUILT"
	StageExtractionCalled  Stage = "EXTRACTION_CALLED"
	StageResultValidated   Stage = "RESULT_VALIDATED"
	StageCommitFetched     Stage = "COMMIT_FETCHED"
	StageMetricsFetched    Stage = "METRICS_FETCHED"
	StageIssuesFetched     Stage = "ISSUES_FETCHED"
	StageDebtReportWritten Stage = "DEBT_REPORT_WRITTEN"
	StageDescribed         Stage = "DESCRIBED"
	StageRendered          Stage = "RENDERED"
	StageDistributed       Stage = "DISTRIBUTED"
	StageFailed            Stage = "FAILED"
	StageEnd               Stage = "END"
)

// Distributor sends a composed report. A nil Distributor on a pipeline means dry run.
type Distributor interface {
	Distribute(ctx context.Context, env mailer.Envelope) error
}

// Archiver stores rendered artifacts durably.
type Archiver interface {
	Archive(ctx context.Context, runID string, files ...archive.File) ([]string, error)
}

// Recorder publishes the summary of a finished run.
type Recorder interface {
	Record(ctx context.Context, run telemetry.Run) error
}

// Outcome is the record of one run. Err is the failure that ended it, if any. Abandoned is set when
// the run stopped before anything was rendered; a delivery failure leaves it false and keeps Artifacts.
type Outcome struct {
	RunID     string
	Stages    []Stage
	Result    *findings.AnalysisResult
	Commit    *vcs.Commit
	Metrics   map[string]string
	Issues    map[string][]findings.Issue
	Artifacts []string
	Err       error
	Abandoned bool
}

// Reached reports whether the run went through stage.
func (o Outcome) Reached(stage Stage) bool {
	for _, s := range o.Stages {
		if s == stage {
			return true
		}
	}
	return false
}

// Succeeded reports whether the run finished without error.
func (o Outcome) Succeeded() bool {
	return o.Err == nil && o.Reached(StageEnd)
}

func (o *Outcome) reach(stage Stage) {
	o.Stages = append(o.Stages, stage)
}

// abandon ends a run that produced nothing.
func (o *Outcome) abandon(logger hclog.Logger, err error) {
	o.Abandoned = true
	o.fail(logger, err)
}

func (o *Outcome) fail(logger hclog.Logger, err error) {
	o.Err = err
	o.reach(StageFailed)
	logger.Error("pipeline failed", "kind", qerrors.KindOf(err).String(), "error", err)
}

// finish closes the run and pushes its metrics when a recorder is set. Telemetry never changes the outcome.
func finish(ctx context.Context, o *Outcome, logger hclog.Logger, rec Recorder, run telemetry.Run) {
	o.reach(StageEnd)
	if rec == nil {
		return
	}
	run.RunID = o.RunID
	run.Success = o.Err == nil
	if err := rec.Record(ctx, run); err != nil {
		logger.Warn("unable to push run metrics", "error", err)
	}
}

func archiveFiles(ctx context.Context, a Archiver, runID string, logger hclog.Logger, files ...archive.File) {
	if a == nil {
		return
	}
	locations, err := a.Archive(ctx, runID, files...)
	if err != nil {
		logger.Warn("unable to archive artifacts", "error", err)
		return
	}
	logger.Info("artifacts archived", "locations", locations)
}

func withDefaults(logger hclog.Logger) hclog.Logger {
	if logger == nil {
		return hclog.NewNullLogger()
	}
	return logger
}
