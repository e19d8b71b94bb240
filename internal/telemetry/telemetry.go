// Package telemetry pushes per-run metrics to a Prometheus Pushgateway.
package telemetry

import (
	"context"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/poliacredita/qdigest/internal/config"
	qerrors "github.com/poliacredita/qdigest/internal/errors"
)

// Run is the summary of one pipeline run.
type Run struct {
	Pipeline  string
	RunID     string
	LatencyMs int64
	Findings  int
	Success   bool
}

type Recorder struct {
	url    string
	job    string
	logger hclog.Logger
}

// New returns nil when no Pushgateway is configured.
func New(cfg config.Metrics, logger hclog.Logger) *Recorder {
	if strings.TrimSpace(cfg.PushgatewayURL) == "" {
		return nil
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Recorder{url: cfg.PushgatewayURL, job: cfg.Job, logger: logger.Named("telemetry")}
}

// Registry builds a registry holding the gauges for run.
func Registry(run Run) *prometheus.Registry {
	latency := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "qdigest_model_latency_ms",
		Help: "Latency of the generative model call in milliseconds.",
	})
	total := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "qdigest_findings_total",
		Help: "Number of findings in the rendered report.",
	})
	success := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "qdigest_run_success",
		Help: "1 if the last run produced and distributed its report, 0 otherwise.",
	})

	latency.Set(float64(run.LatencyMs))
	total.Set(float64(run.Findings))
	if run.Success {
		success.Set(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(latency, total, success)
	return reg
}

// Record pushes the metrics of run, replacing the previous values for the same pipeline.
func (r *Recorder) Record(ctx context.Context, run Run) error {
	err := push.New(r.url, r.job).
		Gatherer(Registry(run)).
		Grouping("pipeline", run.Pipeline).
		PushContext(ctx)
	if err != nil {
		return qerrors.New(qerrors.KindTransport, "telemetry.push", err)
	}
	r.logger.Debug("run metrics pushed", "pipeline", run.Pipeline, "run_id", run.RunID)
	return nil
}
