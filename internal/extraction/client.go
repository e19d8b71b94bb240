// Package extraction calls the generative model once and validates what it returns.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"google.golang.org/genai"

	"github.com/poliacredita/qdigest/internal/config"
	qerrors "github.com/poliacredita/qdigest/internal/errors"
	"github.com/poliacredita/qdigest/internal/findings"
	"github.com/poliacredita/qdigest/internal/prioritization"
)

// Generator is the model endpoint. *genai.Models satisfies it.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Extraction is a validated model answer together with the call measurements.
type Extraction struct {
	Findings  []findings.PrioritizedFinding
	LatencyMs int64
	Timestamp time.Time
	Model     string
}

// Client performs exactly one generation call per Extract. It never retries.
type Client struct {
	gen     Generator
	model   string
	timeout time.Duration
	now     func() time.Time
	logger  hclog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithClock replaces the wall clock used for latency and the completion timestamp.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient wraps gen. A non-positive timeout falls back to the default model timeout.
func NewClient(gen Generator, model string, timeout time.Duration, logger hclog.Logger, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = config.DefaultModelTimeout
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	c := &Client{gen: gen, model: model, timeout: timeout, now: time.Now, logger: logger}
	for _, o := range opts {
		o(c)
	}
	return c
}

// NewGeminiGenerator creates the SDK client for the Gemini API backend.
func NewGeminiGenerator(ctx context.Context, cfg config.Gemini, httpClient *http.Client) (Generator, error) {
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	cli, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, qerrors.New(qerrors.KindConfiguration, "gemini.client", err)
	}
	return cli.Models, nil
}

// Model returns the model identifier the client calls.
func (c *Client) Model() string {
	return c.model
}

// Extract submits req and returns the validated findings. Any SDK, network or deadline failure is a
// TransportError; an answer that does not honour the schema is a MalformedResponse.
func (c *Client) Extract(ctx context.Context, req prioritization.Request) (*Extraction, error) {
	const op = "extraction.extract"

	text, latency, err := c.generate(ctx, op, req.Contents(), req.GenerateContentConfig())
	if err != nil {
		return nil, err
	}
	completed := c.now().UTC()

	ff, err := ParseFindings(text)
	if err != nil {
		return nil, qerrors.New(qerrors.KindMalformedResponse, op, err)
	}

	c.logger.Info("model answer validated", "model", c.model, "latency_ms", latency, "findings", len(ff))
	return &Extraction{
		Findings:  ff,
		LatencyMs: latency,
		Timestamp: completed,
		Model:     c.model,
	}, nil
}

func (c *Client) generate(ctx context.Context, op string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.logger.Debug("calling generative model", "model", c.model, "timeout", c.timeout)
	start := c.now()
	resp, err := c.gen.GenerateContent(ctx, c.model, contents, cfg)
	latency := c.now().Sub(start).Milliseconds()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", latency, qerrors.New(qerrors.KindTransport, op, fmt.Errorf("model call timed out after %s: %w", c.timeout, err))
		}
		return "", latency, qerrors.New(qerrors.KindTransport, op, err)
	}

	text, err := responseText(resp)
	if err != nil {
		return "", latency, qerrors.New(qerrors.KindMalformedResponse, op, err)
	}
	return text, latency, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("response has no candidates")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return "", fmt.Errorf("candidate has no content (finish reason %q)", cand.FinishReason)
	}
	var b strings.Builder
	for _, p := range cand.Content.Parts {
		if p != nil {
			b.WriteString(p.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", errors.New("candidate text is empty")
	}
	return text, nil
}
