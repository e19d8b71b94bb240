package httpclient

import (
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/poliacredita/qdigest/internal/config"
)

// HclogAdapter adapts an hclog.Logger to be compatible with the resty log.Logger interface.
type HclogAdapter struct {
	logger hclog.Logger
}

// NewHclogAdapter creates a new adapter that will forward messages to a hclog.Logger.
func NewHclogAdapter(logger hclog.Logger) resty.Logger {
	return &HclogAdapter{logger: logger}
}

// Errorf logs a message at error level.
func (a *HclogAdapter) Errorf(format string, v ...interface{}) {
	a.logger.Error(fmt.Sprintf(format, v...))
}

// Warnf logs a message at warning level.
func (a *HclogAdapter) Warnf(format string, v ...interface{}) {
	a.logger.Warn(fmt.Sprintf(format, v...))
}

// Debugf logs a message at debug level.
func (a *HclogAdapter) Debugf(format string, v ...interface{}) {
	a.logger.Debug(fmt.Sprintf(format, v...))
}

// InitializeRestyClient initializes and configures a resty client based on the provided configuration.
func InitializeRestyClient(logger hclog.Logger, httpConfig *config.HTTPClient) *resty.Client {
	client := resty.New()
	if logger != nil {
		client.SetLogger(NewHclogAdapter(logger))
	}

	restyConfig := applyHTTPClientConfig(httpConfig)
	client.
		SetDebug(restyConfig.Debug).
		SetRetryCount(restyConfig.RetryCount).
		SetRetryWaitTime(restyConfig.RetryWaitTime).
		SetRetryMaxWaitTime(restyConfig.RetryMaxWaitTime).
		SetTimeout(restyConfig.Timeout).
		SetTLSClientConfig(restyConfig.TLSClientConfig)
	if restyConfig.Proxy != "" {
		client.SetProxy(restyConfig.Proxy)
	}

	return client
}

// applyHTTPClientConfig applies the http_client configuration or uses default values.
func applyHTTPClientConfig(httpConfig *config.HTTPClient) config.RestyHTTPClientConfig {
	cfg := config.DefaultRestyConfig()
	if httpConfig == nil {
		return cfg
	}

	cfg.Debug = config.BoolValue(httpConfig.Debug, cfg.Debug)
	cfg.RetryCount = config.SetThen(httpConfig.RetryCount, cfg.RetryCount)
	cfg.RetryWaitTime = config.SetThen(httpConfig.RetryWaitTime, cfg.RetryWaitTime)
	cfg.RetryMaxWaitTime = config.SetThen(httpConfig.RetryMaxWaitTime, cfg.RetryMaxWaitTime)
	cfg.Timeout = config.SetThen(httpConfig.Timeout, cfg.Timeout)
	cfg.TLSClientConfig.InsecureSkipVerify = !config.BoolValue(httpConfig.TLSClientConfig.Verify, true)

	if httpConfig.Proxy.Host != "" && httpConfig.Proxy.Port != 0 {
		cfg.Proxy = fmt.Sprintf("%s:%d", httpConfig.Proxy.Host, httpConfig.Proxy.Port)
	}
	return cfg
}

// StandardClient returns a copy of the underlying http.Client of c without its per-request timeout,
// for callers that bound their requests with a context deadline instead.
func StandardClient(c *resty.Client) *http.Client {
	hc := *c.GetClient()
	hc.Timeout = 0
	return &hc
}
