// Package sonar reads project metrics and issues from the SonarCloud web API.
package sonar

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/time/rate"

	"github.com/poliacredita/qdigest/internal/config"
	qerrors "github.com/poliacredita/qdigest/internal/errors"
	"github.com/poliacredita/qdigest/internal/findings"
)

const (
	MetricBugs            = "bugs"
	MetricVulnerabilities = "vulnerabilities"
	MetricCodeSmells      = "code_smells"
	MetricComplexity      = "complexity"
	MetricCoverage        = "coverage"

	TypeBug           = "BUG"
	TypeVulnerability = "VULNERABILITY"
	TypeCodeSmell     = "CODE_SMELL"

	// the issues endpoint refuses to page past this many results
	maxResults = 10000
)

// MetricKeys are the measures requested for the commit report, in display order.
var MetricKeys = []string{MetricBugs, MetricVulnerabilities, MetricCodeSmells, MetricComplexity, MetricCoverage}

// IssueTypes are the issue types reported, in display order.
var IssueTypes = []string{TypeBug, TypeVulnerability, TypeCodeSmell}

// Severities are all severities, most severe first.
var Severities = []string{"BLOCKER", "CRITICAL", "MAJOR", "MINOR", "INFO"}

type Client struct {
	httpc      *resty.Client
	projectKey string
	pageSize   int
	limiter    *rate.Limiter
	logger     hclog.Logger
}

// New creates a client for one project. httpc is configured in place with the base URL and the
// token, which SonarCloud expects as the basic-auth user name with an empty password.
func New(cfg config.Sonar, httpc *resty.Client, logger hclog.Logger) *Client {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	httpc.SetBaseURL(strings.TrimRight(cfg.URL, "/"))
	httpc.SetBasicAuth(cfg.Token, "")

	limit := rate.Inf
	if cfg.RequestsPerSec > 0 {
		limit = rate.Limit(cfg.RequestsPerSec)
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > 500 {
		pageSize = 500
	}

	return &Client{
		httpc:      httpc,
		projectKey: cfg.ProjectKey,
		pageSize:   pageSize,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger.Named("sonar"),
	}
}

type measure struct {
	Metric string `json:"metric"`
	Value  string `json:"value"`
}

type measuresResponse struct {
	Component struct {
		Key      string    `json:"key"`
		Measures []measure `json:"measures"`
	} `json:"component"`
}

type paging struct {
	PageIndex int `json:"pageIndex"`
	PageSize  int `json:"pageSize"`
	Total     int `json:"total"`
}

type issue struct {
	Key       string `json:"key"`
	Rule      string `json:"rule"`
	Severity  string `json:"severity"`
	Component string `json:"component"`
	Line      int    `json:"line"`
	Message   string `json:"message"`
	Type      string `json:"type"`
}

type issuesResponse struct {
	Total  int     `json:"total"`
	Paging paging  `json:"paging"`
	Issues []issue `json:"issues"`
}

// Metrics returns the value of every requested measure the service reported.
// Measures the project does not have are absent from the map.
func (c *Client) Metrics(ctx context.Context) (map[string]string, error) {
	const op = "sonar.metrics"

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, qerrors.New(qerrors.KindTransport, op, err)
	}

	var r measuresResponse
	resp, err := c.httpc.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"component":  c.projectKey,
			"metricKeys": strings.Join(MetricKeys, ","),
		}).
		SetResult(&r).
		Get("/api/measures/component")
	if err != nil {
		return nil, qerrors.New(qerrors.KindTransport, op, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, qerrors.Newf(qerrors.KindTransport, op, "%d on getting measures for '%s'", resp.StatusCode(), c.projectKey)
	}

	values := make(map[string]string, len(r.Component.Measures))
	for _, m := range r.Component.Measures {
		values[m.Metric] = m.Value
	}
	c.logger.Debug("measures fetched", "project", c.projectKey, "count", len(values))
	return values, nil
}

// Issues returns every open issue of the given types and severities, sorted by severity.
func (c *Client) Issues(ctx context.Context, types, severities []string) ([]findings.Issue, error) {
	const op = "sonar.issues"

	var all []findings.Issue
	for page := 1; ; page++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, qerrors.New(qerrors.KindTransport, op, err)
		}

		var r issuesResponse
		resp, err := c.httpc.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"componentKeys": c.projectKey,
				"types":         strings.Join(types, ","),
				"severities":    strings.Join(severities, ","),
				"p":             strconv.Itoa(page),
				"ps":            strconv.Itoa(c.pageSize),
				"s":             "SEVERITY",
			}).
			SetResult(&r).
			Get("/api/issues/search")
		if err != nil {
			return nil, qerrors.New(qerrors.KindTransport, op, err)
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, qerrors.Newf(qerrors.KindTransport, op, "%d on getting issues page %d", resp.StatusCode(), page)
		}

		for _, i := range r.Issues {
			all = append(all, toIssue(i))
		}

		total := r.Paging.Total
		if total == 0 {
			total = r.Total
		}
		c.logger.Debug("issues page fetched", "page", page, "received", len(r.Issues), "collected", len(all), "total", total)

		if len(r.Issues) == 0 || len(all) >= total || page*c.pageSize >= maxResults {
			break
		}
	}
	return all, nil
}

func toIssue(i issue) findings.Issue {
	return findings.Issue{
		Key:       i.Key,
		RuleID:    i.Rule,
		Type:      i.Type,
		Severity:  i.Severity,
		Component: i.Component,
		FilePath:  FilePath(i.Component),
		Line:      i.Line,
		Message:   i.Message,
	}
}

// FilePath strips the project key prefix from a component key ("org_proj:src/a.ts" -> "src/a.ts").
func FilePath(component string) string {
	if i := strings.LastIndex(component, ":"); i >= 0 {
		return component[i+1:]
	}
	return component
}

// GroupByType buckets issues by type, keeping the service order inside each bucket.
func GroupByType(issues []findings.Issue) map[string][]findings.Issue {
	grouped := make(map[string][]findings.Issue, len(IssueTypes))
	for _, i := range issues {
		grouped[i.Type] = append(grouped[i.Type], i)
	}
	return grouped
}
