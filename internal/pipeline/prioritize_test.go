package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/poliacredita/qdigest/internal/archive"
	"github.com/poliacredita/qdigest/internal/corpus"
	qerrors "github.com/poliacredita/qdigest/internal/errors"
	"github.com/poliacredita/qdigest/internal/extraction"
	"github.com/poliacredita/qdigest/internal/findings"
	"github.com/poliacredita/qdigest/internal/mailer"
	"github.com/poliacredita/qdigest/internal/prioritization"
	"github.com/poliacredita/qdigest/internal/report"
	"github.com/poliacredita/qdigest/internal/telemetry"
)

type stubExtractor struct {
	result *extraction.Extraction
	err    error
	calls  int
	req    prioritization.Request
}

func (s *stubExtractor) Extract(_ context.Context, req prioritization.Request) (*extraction.Extraction, error) {
	s.calls++
	s.req = req
	return s.result, s.err
}

type blockingGenerator struct{}

func (blockingGenerator) GenerateContent(ctx context.Context, _ string, _ []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type fakeDistributor struct {
	err   error
	calls int
	env   mailer.Envelope
}

func (f *fakeDistributor) Distribute(_ context.Context, env mailer.Envelope) error {
	f.calls++
	f.env = env
	return f.err
}

type fakeArchiver struct {
	names []string
	err   error
}

func (f *fakeArchiver) Archive(_ context.Context, runID string, files ...archive.File) ([]string, error) {
	for _, file := range files {
		f.names = append(f.names, runID+"/"+filepath.Base(file.Name))
	}
	return f.names, f.err
}

type fakeRecorder struct {
	runs []telemetry.Run
	err  error
}

func (f *fakeRecorder) Record(_ context.Context, run telemetry.Run) error {
	f.runs = append(f.runs, run)
	return f.err
}

func oneFinding() *extraction.Extraction {
	return &extraction.Extraction{
		Findings: []findings.PrioritizedFinding{{
			Priority:          1,
			OriginalSeverity:  "CRITICAL",
			AffectedFile:      "foo.py",
			RiskJustification: "Availability risk...",
			CodeFix:           "if x is not None: ...",
		}},
		LatencyMs: 840,
		Timestamp: time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
		Model:     "gemini-2.5-flash",
	}
}

func newPrioritization(t *testing.T, corpusText string, ext Extractor, dist Distributor) (*Prioritization, string) {
	t.Helper()
	dir := t.TempDir()
	issues := filepath.Join(dir, "deuda_tecnica_informe.txt")
	require.NoError(t, os.WriteFile(issues, []byte(corpusText), 0o644))

	out := filepath.Join(dir, "out")
	p := &Prioritization{
		Reader:     corpus.NewReader(70000, nil),
		Extractor:  ext,
		Renderer:   report.NewRenderer("result.json", "report.txt"),
		Location:   issues,
		OutputDir:  out,
		ProjectTag: "front",
		Recipients: []string{"team@example.com"},
		RunID:      "run-1",
	}
	if dist != nil {
		p.Distributor = dist
	}
	return p, out
}

func TestPrioritizationSingleFindingScenario(t *testing.T) {
	ext := &stubExtractor{result: oneFinding()}
	dist := &fakeDistributor{}
	p, outDir := newPrioritization(t, "BUG [CRITICAL] foo.py:12 null deref", ext, dist)

	got := p.Run(context.Background())

	require.NoError(t, got.Err)
	assert.True(t, got.Succeeded())
	assert.False(t, got.Abandoned)
	assert.Equal(t, []Stage{StageStart, StageCorpusRead, StageRequestBuilt, StageExtractionCalled,
		StageResultValidated, StageRendered, StageDistributed, StageEnd}, got.Stages)
	assert.Contains(t, ext.req.UserQuery, "BUG [CRITICAL] foo.py:12 null deref")

	text, err := os.ReadFile(filepath.Join(outDir, "report.txt"))
	require.NoError(t, err)
	block := "PRIORIDAD (1-10): 1 | SEVERIDAD SONAR: CRITICAL\nARCHIVO AFECTADO: foo.py\n"
	assert.Contains(t, string(text), block)
	assert.Equal(t, strings.Index(string(text), "PRIORIDAD (1-10):"), strings.Index(string(text), block))

	require.Equal(t, 1, dist.calls)
	assert.Equal(t, "Informe Crítico de Deuda Técnica: front", dist.env.Subject)
	require.Len(t, dist.env.Attachments, 2)
	assert.Equal(t, "report.txt", dist.env.Attachments[0].Name)
	assert.Equal(t, mailer.ContentTypeJSON, dist.env.Attachments[1].ContentType)

	require.NotNil(t, got.Result)
	assert.Equal(t, "gemini-2.5-flash", got.Result.Model)
	assert.Equal(t, []string{filepath.Join(outDir, "report.txt"), filepath.Join(outDir, "result.json")}, got.Artifacts)
}

func TestPrioritizationTimeoutWritesNothing(t *testing.T) {
	client := extraction.NewClient(blockingGenerator{}, "gemini-2.5-flash", 20*time.Millisecond, nil)
	dist := &fakeDistributor{}
	p, outDir := newPrioritization(t, "BUG [CRITICAL] foo.py:12 null deref", client, dist)

	got := p.Run(context.Background())

	require.Error(t, got.Err)
	assert.ErrorIs(t, got.Err, qerrors.ErrTransport)
	assert.True(t, got.Abandoned)
	assert.True(t, got.Reached(StageExtractionCalled))
	assert.False(t, got.Reached(StageResultValidated))
	assert.Equal(t, StageEnd, got.Stages[len(got.Stages)-1])
	assert.Zero(t, dist.calls)
	assert.Empty(t, got.Artifacts)
	assert.NoDirExists(t, outDir)
}

func TestPrioritizationEmptyCorpusSkipsModel(t *testing.T) {
	ext := &stubExtractor{result: oneFinding()}
	dist := &fakeDistributor{}
	p, _ := newPrioritization(t, " \n\t ", ext, dist)

	got := p.Run(context.Background())

	assert.ErrorIs(t, got.Err, qerrors.ErrEmpty)
	assert.True(t, got.Abandoned)
	assert.Equal(t, []Stage{StageStart, StageFailed, StageEnd}, got.Stages)
	assert.Zero(t, ext.calls)
	assert.Zero(t, dist.calls)
}

func TestPrioritizationMissingCorpus(t *testing.T) {
	ext := &stubExtractor{}
	p, _ := newPrioritization(t, "x", ext, nil)
	p.Location = filepath.Join(t.TempDir(), "absent.txt")

	got := p.Run(context.Background())
	assert.ErrorIs(t, got.Err, qerrors.ErrNotFound)
	assert.Zero(t, ext.calls)
}

func TestPrioritizationMalformedResponseWritesNothing(t *testing.T) {
	ext := &stubExtractor{err: qerrors.Newf(qerrors.KindMalformedResponse, "extraction.parse", "expected 10 findings, got 9")}
	dist := &fakeDistributor{}
	p, outDir := newPrioritization(t, "issues", ext, dist)

	got := p.Run(context.Background())

	assert.ErrorIs(t, got.Err, qerrors.ErrMalformedResponse)
	assert.Nil(t, got.Result)
	assert.NoDirExists(t, outDir)
	assert.Zero(t, dist.calls)
}

func TestPrioritizationDeliveryFailureKeepsArtifacts(t *testing.T) {
	ext := &stubExtractor{result: oneFinding()}
	dist := &fakeDistributor{err: qerrors.New(qerrors.KindAuthentication, "mailer.distribute", errors.New("535 auth failed"))}
	rec := &fakeRecorder{}
	p, outDir := newPrioritization(t, "issues", ext, dist)
	p.Telemetry = rec

	got := p.Run(context.Background())

	assert.ErrorIs(t, got.Err, qerrors.ErrAuthentication)
	assert.False(t, got.Abandoned)
	assert.True(t, got.Reached(StageRendered))
	assert.False(t, got.Reached(StageDistributed))
	assert.FileExists(t, filepath.Join(outDir, "report.txt"))
	assert.FileExists(t, filepath.Join(outDir, "result.json"))
	assert.Len(t, got.Artifacts, 2)

	require.Len(t, rec.runs, 1)
	assert.False(t, rec.runs[0].Success)
	assert.Equal(t, int64(840), rec.runs[0].LatencyMs)
	assert.Equal(t, "run-1", rec.runs[0].RunID)
}

func TestPrioritizationDryRunArchivesAndRecords(t *testing.T) {
	ext := &stubExtractor{result: oneFinding()}
	arch := &fakeArchiver{}
	rec := &fakeRecorder{err: errors.New("gateway down")}
	p, outDir := newPrioritization(t, "issues", ext, nil)
	p.Archiver = arch
	p.Telemetry = rec

	got := p.Run(context.Background())

	require.NoError(t, got.Err)
	assert.True(t, got.Succeeded())
	assert.False(t, got.Reached(StageDistributed))
	assert.FileExists(t, filepath.Join(outDir, "result.json"))
	assert.Equal(t, []string{"run-1/report.txt", "run-1/result.json"}, arch.names)
	require.Len(t, rec.runs, 1)
	assert.True(t, rec.runs[0].Success)
	assert.Equal(t, 1, rec.runs[0].Findings)
	assert.Equal(t, PipelinePrioritize, rec.runs[0].Pipeline)
}
