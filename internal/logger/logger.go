package logger

import (
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/poliacredita/qdigest/internal/config"
)

// LogLevelEnv overrides the level configured in the YAML file.
const LogLevelEnv = "QDIGEST_LOG_LEVEL"

// NewLogger creates a new hclog.Logger instance based on the YAML configuration and the provided name.
func NewLogger(cfg *config.Config, name string) hclog.Logger {
	var lc config.Logger
	if cfg != nil {
		lc = cfg.Logger
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:            name,
		DisableTime:     config.BoolValue(lc.DisableTime, true),
		JSONFormat:      config.BoolValue(lc.JSONFormat, false),
		IncludeLocation: config.BoolValue(lc.IncludeLocation, false),
		Output:          os.Stdout,
		Level:           determineLogLevel(lc.Level),
	})
}

// WithRunID returns a sub-logger tagged with a fresh run identifier, and the identifier itself.
func WithRunID(logger hclog.Logger) (hclog.Logger, string) {
	id := uuid.NewString()
	return logger.With("run_id", id), id
}

// determineLogLevel returns a log level determined first by an environment variable, and if not set, by the configuration.
// If neither specifies a log level, it defaults to INFO.
func determineLogLevel(configured string) hclog.Level {
	if logLevelEnv := os.Getenv(LogLevelEnv); logLevelEnv != "" {
		return parseLogLevel(strings.ToUpper(logLevelEnv))
	}
	if configured == "" {
		return hclog.Info
	}
	return parseLogLevel(strings.ToUpper(configured))
}

// parseLogLevel converts a string level to hclog.Level.
func parseLogLevel(levelStr string) hclog.Level {
	switch levelStr {
	case "TRACE":
		return hclog.Trace
	case "DEBUG":
		return hclog.Debug
	case "INFO":
		return hclog.Info
	case "WARN", "WARNING":
		return hclog.Warn
	case "ERROR":
		return hclog.Error
	default:
		hclog.New(&hclog.LoggerOptions{
			Level:       hclog.Warn,
			DisableTime: true,
			Output:      os.Stdout,
		}).Warn("Unrecognized log level, defaulting to INFO", "providedLevel", levelStr)
		return hclog.Info
	}
}
