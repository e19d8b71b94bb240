package commitreport

import (
	"fmt"
	"strings"

	"github.com/poliacredita/qdigest/internal/config"
	"github.com/poliacredita/qdigest/internal/sonar"
	"github.com/poliacredita/qdigest/internal/vcs"
)

// validate checks the effective configuration for the commit-report command.
func validate(cfg *config.Config, o *RunOptions) error {
	if cfg == nil {
		return fmt.Errorf("configuration is not loaded")
	}
	if err := config.RequireCommitReport(cfg, !o.DryRun); err != nil {
		return err
	}

	switch strings.ToLower(cfg.VCS.Provider) {
	case "", vcs.ProviderGitHub, vcs.ProviderGitLab:
	case vcs.ProviderLocal:
		if cfg.VCS.LocalPath == "" {
			return fmt.Errorf("--repo-path is required for the local provider")
		}
	default:
		return fmt.Errorf("unsupported provider %q", cfg.VCS.Provider)
	}

	for _, m := range cfg.Sonar.RequiredMetrics {
		if !isMetricKey(m) {
			return fmt.Errorf("sonar.required_metrics: unknown metric %q", m)
		}
	}
	return nil
}

func isMetricKey(key string) bool {
	for _, k := range sonar.MetricKeys {
		if k == key {
			return true
		}
	}
	return false
}
