package commitreport

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poliacredita/qdigest/internal/config"
	"github.com/poliacredita/qdigest/internal/pipeline"
)

func baseConfig() *config.Config {
	return &config.Config{
		Gemini: config.Gemini{APIKey: "key"},
		Sonar:  config.Sonar{Token: "token", ProjectKey: "org_front"},
		Email:  config.Email{Sender: "bot@example.com", Password: "secret", Recipients: []string{"team@example.com"}},
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*config.Config)
		dryRun  bool
		wantErr bool
	}{
		{name: "complete", mutate: func(*config.Config) {}},
		{name: "missing sonar token", mutate: func(c *config.Config) { c.Sonar.Token = "" }, wantErr: true},
		{name: "dry run without mail", mutate: func(c *config.Config) { c.Email = config.Email{} }, dryRun: true},
		{name: "local without path", mutate: func(c *config.Config) { c.VCS.Provider = "local" }, wantErr: true},
		{name: "local with path", mutate: func(c *config.Config) { c.VCS = config.VCS{Provider: "local", LocalPath: "."} }},
		{name: "unknown provider", mutate: func(c *config.Config) { c.VCS.Provider = "bitbucket" }, wantErr: true},
		{name: "unknown required metric", mutate: func(c *config.Config) { c.Sonar.RequiredMetrics = []string{"ncloc"} }, wantErr: true},
		{name: "known required metric", mutate: func(c *config.Config) { c.Sonar.RequiredMetrics = []string{"coverage"} }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := baseConfig()
			tc.mutate(cfg)
			err := validate(cfg, &RunOptions{DryRun: tc.dryRun})
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := baseConfig()
	var o RunOptions
	fs := pflag.NewFlagSet("commit-report", pflag.ContinueOnError)
	fs.StringVar(&o.Provider, "provider", "", "")
	fs.StringVar(&o.RepoPath, "repo-path", "", "")
	fs.StringVar(&o.OutputDir, "output-dir", "", "")
	require.NoError(t, fs.Parse([]string{"--provider", "gitlab"}))

	applyOverrides(cfg, fs, &o)

	assert.Equal(t, "gitlab", cfg.VCS.Provider)
	assert.Equal(t, ".", cfg.VCS.LocalPath)
	assert.Empty(t, cfg.Report.OutputDir)
}

func TestWireOptionalDryRun(t *testing.T) {
	c := &pipeline.CommitReport{}
	wireOptional(c, baseConfig(), true, nil)
	assert.Nil(t, c.Distributor)
	assert.Nil(t, c.Telemetry)
}
