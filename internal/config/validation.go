package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	qerrors "github.com/poliacredita/qdigest/internal/errors"
)

// placeholderValues are the template values shipped with the original pipeline configuration.
var placeholderValues = []string{
	"TU_API_KEY_AQUI",
	"tu_password_de_aplicacion",
	"changeme",
}

// ValidateConfig checks if the global configurations have valid values.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("YAML global config: configuration object is nil")
	}
	if err := ValidateHTTPConfig(&cfg.HTTPClient); err != nil {
		return fmt.Errorf("YAML global config: http_client directive is invalid: %w", err)
	}
	if err := ValidateGeminiConfig(&cfg.Gemini); err != nil {
		return fmt.Errorf("YAML global config: gemini directive is invalid: %w", err)
	}
	if cfg.Corpus.MaxInputChars <= 0 {
		return fmt.Errorf("YAML global config: corpus.max_input_chars must be positive, got %d", cfg.Corpus.MaxInputChars)
	}
	if err := validatePort(cfg.Email.SMTPPort); err != nil {
		return fmt.Errorf("YAML global config: email.smtp_port is invalid: %w", err)
	}
	if cfg.Sonar.PageSize < 1 || cfg.Sonar.PageSize > 500 {
		return fmt.Errorf("YAML global config: sonar.page_size must be between 1 and 500, got %d", cfg.Sonar.PageSize)
	}
	return nil
}

// ValidateGeminiConfig checks the generative model settings.
func ValidateGeminiConfig(g *Gemini) error {
	if g == nil {
		return fmt.Errorf("gemini configuration is nil")
	}
	if g.Temperature < 0 || g.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2: %v", g.Temperature)
	}
	if err := validateDuration(g.Timeout, "timeout", 10*time.Minute); err != nil {
		return err
	}
	if g.BaseURL != "" {
		if _, err := url.Parse(g.BaseURL); err != nil {
			return fmt.Errorf("invalid base_url: %w", err)
		}
	}
	return nil
}

// ValidateHTTPConfig checks if the HTTP configurations have valid values.
func ValidateHTTPConfig(httpConfig *HTTPClient) error {
	if httpConfig == nil {
		return fmt.Errorf("HTTP configuration is nil")
	}
	if httpConfig.RetryCount < 0 || httpConfig.RetryCount > 20 {
		return fmt.Errorf("retry_count must be between 0 and 20: %d", httpConfig.RetryCount)
	}

	durations := map[string]time.Duration{
		"RetryMaxWaitTime": httpConfig.RetryMaxWaitTime,
		"RetryWaitTime":    httpConfig.RetryWaitTime,
		"Timeout":          httpConfig.Timeout,
	}
	for name, duration := range durations {
		if err := validateDuration(duration, name, 100*time.Second); err != nil {
			return err
		}
	}

	if err := validateProxy(&httpConfig.Proxy); err != nil {
		return err
	}

	return nil
}

// RequirePrioritization reports every setting the prioritization pipeline cannot run without.
// Email settings are only required when the report is going to be distributed.
func RequirePrioritization(cfg *Config, distribute bool) error {
	var missing []string
	requireValue(&missing, "GEMINI_API_KEY", cfg.Gemini.APIKey)
	requireValue(&missing, "ISSUES_FILE", cfg.Corpus.Path)
	if distribute {
		missing = append(missing, missingEmail(cfg)...)
	}
	return missingError("prioritize", missing)
}

// RequireCommitReport reports every setting the commit report pipeline cannot run without.
func RequireCommitReport(cfg *Config, distribute bool) error {
	var missing []string
	requireValue(&missing, "GEMINI_API_KEY", cfg.Gemini.APIKey)
	requireValue(&missing, "SONAR_TOKEN", cfg.Sonar.Token)
	requireValue(&missing, "SONAR_PROJECT_KEY", cfg.Sonar.ProjectKey)
	if distribute {
		missing = append(missing, missingEmail(cfg)...)
	}
	return missingError("commit-report", missing)
}

func missingEmail(cfg *Config) []string {
	var missing []string
	requireValue(&missing, "EMAIL_USER", cfg.Email.Sender)
	requireValue(&missing, "EMAIL_PASS", cfg.Email.Password)
	if len(cfg.Email.Recipients) == 0 {
		missing = append(missing, "EMAIL_RECIPIENTS")
	}
	return missing
}

func requireValue(missing *[]string, name, value string) {
	if IsPlaceholder(value) {
		*missing = append(*missing, name)
	}
}

func missingError(op string, missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	return qerrors.Newf(qerrors.KindConfiguration, op, "missing or placeholder settings: %s", strings.Join(missing, ", "))
}

// IsPlaceholder reports whether value is empty or one of the known template placeholders.
func IsPlaceholder(value string) bool {
	v := strings.TrimSpace(value)
	if v == "" {
		return true
	}
	for _, p := range placeholderValues {
		if strings.EqualFold(v, p) {
			return true
		}
	}
	return false
}

// validateDuration checks that a time.Duration is valid and within a specified maximum duration.
func validateDuration(d time.Duration, name string, max time.Duration) error {
	if d < 0 {
		return fmt.Errorf("invalid duration for %s: %v cannot be negative", name, d)
	}
	if d > max {
		return fmt.Errorf("%s duration is too long: %v exceeds maximum of %v", name, d, max)
	}
	return nil
}

// validateProxy checks if the given Proxy settings are valid.
func validateProxy(proxy *Proxy) error {
	if proxy == nil {
		return fmt.Errorf("proxy configuration is nil")
	}

	// If host or port is not set, skip further validation
	if proxy.Host == "" || proxy.Port == 0 {
		return nil
	}

	if err := validateHost(&proxy.Host); err != nil {
		return err
	}

	return validatePort(proxy.Port)
}

// validateHost ensures the host includes a scheme; adds "http" if missing.
func validateHost(host *string) error {
	if host == nil {
		return fmt.Errorf("host string pointer is nil")
	}

	if !strings.Contains(*host, "://") {
		*host = "http://" + *host
	}
	*host = strings.TrimRight(*host, "/")

	if _, err := url.Parse(*host); err != nil {
		return fmt.Errorf("invalid host URL: %w", err)
	}
	return nil
}

// validatePort checks if the port is in the valid TCP range.
func validatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}
