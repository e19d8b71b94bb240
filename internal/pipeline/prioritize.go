package pipeline

import (
	"context"

	"github.com/hashicorp/go-hclog"

	"github.com/poliacredita/qdigest/internal/archive"
	qerrors "github.com/poliacredita/qdigest/internal/errors"
	"github.com/poliacredita/qdigest/internal/extraction"
	"github.com/poliacredita/qdigest/internal/findings"
	"github.com/poliacredita/qdigest/internal/mailer"
	"github.com/poliacredita/qdigest/internal/prioritization"
	"github.com/poliacredita/qdigest/internal/report"
	"github.com/poliacredita/qdigest/internal/telemetry"
)

const PipelinePrioritize = "prioritize"

// CorpusReader loads the issue corpus.
type CorpusReader interface {
	Read(ctx context.Context, location string) (*findings.IssueCorpus, error)
}

// Extractor performs the structured model call.
type Extractor interface {
	Extract(ctx context.Context, req prioritization.Request) (*extraction.Extraction, error)
}

// Prioritization wires the issue-prioritization stages.
type Prioritization struct {
	Reader      CorpusReader
	Extractor   Extractor
	Renderer    *report.Renderer
	Distributor Distributor
	Archiver    Archiver
	Telemetry   Recorder

	Location   string
	OutputDir  string
	ProjectTag string
	Recipients []string
	RunID      string
	Logger     hclog.Logger
}

// Run executes one pass. Failures while reading the corpus or calling the model end the run with
// nothing written; a delivery failure keeps the artifacts on disk.
func (p *Prioritization) Run(ctx context.Context) Outcome {
	logger := withDefaults(p.Logger)
	out := Outcome{RunID: p.RunID}
	out.reach(StageStart)

	var run telemetry.Run
	run.Pipeline = PipelinePrioritize
	defer func() { finish(ctx, &out, logger, p.Telemetry, run) }()

	corpus, err := p.Reader.Read(ctx, p.Location)
	if err != nil {
		out.abandon(logger, err)
		return out
	}
	out.reach(StageCorpusRead)
	logger.Info("issue corpus loaded", "source", corpus.Source, "characters", corpus.Length, "truncated", corpus.Truncated)

	req := prioritization.Build(corpus)
	out.reach(StageRequestBuilt)

	ext, err := p.Extractor.Extract(ctx, req)
	out.reach(StageExtractionCalled)
	if err != nil {
		out.abandon(logger, err)
		return out
	}
	run.LatencyMs = ext.LatencyMs
	out.reach(StageResultValidated)

	result := findings.NewAnalysisResult(p.ProjectTag, ext.Model, ext.Timestamp, ext.LatencyMs, ext.Findings)
	out.Result = &result
	run.Findings = len(result.Findings)

	arts, err := p.Renderer.WriteArtifacts(p.OutputDir, result)
	if err != nil {
		out.abandon(logger, qerrors.New(qerrors.KindUnknown, "report.write", err))
		return out
	}
	out.Artifacts = []string{arts.TextPath, arts.JSONPath}
	out.reach(StageRendered)
	logger.Info("report rendered", "text", arts.TextPath, "json", arts.JSONPath, "findings", len(result.Findings))

	archiveFiles(ctx, p.Archiver, p.RunID, logger,
		archive.File{Name: arts.TextPath, ContentType: mailer.ContentTypeText, Data: []byte(arts.Text)},
		archive.File{Name: arts.JSONPath, ContentType: mailer.ContentTypeJSON, Data: arts.JSON},
	)

	if p.Distributor == nil {
		logger.Info("dry run, distribution skipped")
		return out
	}

	env := mailer.Envelope{
		Subject:    report.Subject(p.ProjectTag),
		Body:       report.Body(p.ProjectTag, arts.TextPath, arts.JSONPath),
		Recipients: p.Recipients,
		Attachments: []mailer.Attachment{
			{Name: p.Renderer.TextFile, ContentType: mailer.ContentTypeText, Data: []byte(arts.Text)},
			{Name: p.Renderer.JSONFile, ContentType: mailer.ContentTypeJSON, Data: arts.JSON},
		},
	}
	if err := p.Distributor.Distribute(ctx, env); err != nil {
		out.fail(logger, err)
		logger.Warn("artifacts kept on disk", "paths", out.Artifacts)
		return out
	}
	out.reach(StageDistributed)
	return out
}
