package logger

import (
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"

	"github.com/poliacredita/qdigest/internal/config"
)

func TestParseLogLevel(t *testing.T) {
	testCases := []struct {
		in   string
		want hclog.Level
	}{
		{"TRACE", hclog.Trace},
		{"DEBUG", hclog.Debug},
		{"INFO", hclog.Info},
		{"WARNING", hclog.Warn},
		{"ERROR", hclog.Error},
		{"LOUD", hclog.Info},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, parseLogLevel(tc.in))
		})
	}
}

func TestEnvironmentLevelWins(t *testing.T) {
	t.Setenv(LogLevelEnv, "error")
	assert.Equal(t, hclog.Error, determineLogLevel("debug"))
}

func TestConfiguredLevel(t *testing.T) {
	t.Setenv(LogLevelEnv, "")
	assert.Equal(t, hclog.Debug, determineLogLevel("debug"))
	assert.Equal(t, hclog.Info, determineLogLevel(""))
}

func TestNewLoggerWithRunID(t *testing.T) {
	t.Setenv(LogLevelEnv, "")
	l := NewLogger(&config.Config{Logger: config.Logger{Level: "warn"}}, "qdigest")
	assert.True(t, l.IsWarn())
	assert.False(t, l.IsInfo())

	_, id := WithRunID(l)
	assert.Len(t, id, 36)
}
