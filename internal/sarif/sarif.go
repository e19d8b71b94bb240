// Package sarif converts between SARIF logs and the plain-text issue corpus.
package sarif

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/poliacredita/qdigest/internal/findings"
)

const defaultLevel = "warning"

// ReadReport decodes a SARIF log from path.
func ReadReport(path string) (*sarif.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a SARIF log held in memory.
func Parse(data []byte) (*sarif.Report, error) {
	var report sarif.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("invalid SARIF document: %w", err)
	}
	return &report, nil
}

// Flatten renders every unsuppressed result as one "LEVEL [ruleId] path:line message" line.
func Flatten(report *sarif.Report) string {
	var b strings.Builder
	for _, run := range report.Runs {
		rules := ruleDescriptions(run)
		for _, result := range run.Results {
			if len(result.Suppressions) > 0 {
				continue
			}
			ruleID := deref(result.RuleID)
			msg := deref(result.Message.Text)
			if msg == "" {
				msg = rules[ruleID]
			}
			level := deref(result.Level)
			if level == "" {
				level = defaultLevel
			}
			fmt.Fprintf(&b, "%s [%s] %s %s\n", strings.ToUpper(level), ruleID, resultLocation(result), strings.TrimSpace(msg))
		}
	}
	return b.String()
}

func ruleDescriptions(run *sarif.Run) map[string]string {
	out := map[string]string{}
	if run.Tool.Driver == nil {
		return out
	}
	for _, rule := range run.Tool.Driver.Rules {
		if rule.ShortDescription != nil && rule.ShortDescription.Text != nil {
			out[rule.ID] = *rule.ShortDescription.Text
		}
	}
	return out
}

func resultLocation(result *sarif.Result) string {
	if len(result.Locations) == 0 || result.Locations[0].PhysicalLocation == nil {
		return "-"
	}
	pl := result.Locations[0].PhysicalLocation
	path := "-"
	if pl.ArtifactLocation != nil && pl.ArtifactLocation.URI != nil {
		path = strings.TrimPrefix(*pl.ArtifactLocation.URI, "file://")
	}
	if pl.Region != nil && pl.Region.StartLine != nil {
		return fmt.Sprintf("%s:%d", path, *pl.Region.StartLine)
	}
	return path
}

// ExportIssues builds a single-run SARIF log from code-quality issues.
func ExportIssues(toolName string, issues []findings.Issue) (*sarif.Report, error) {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	driver := &sarif.ToolComponent{Name: toolName}
	run := &sarif.Run{Tool: sarif.Tool{Driver: driver}}

	for _, issue := range issues {
		ruleID := issue.RuleID
		if ruleID != "" && !seen[ruleID] {
			seen[ruleID] = true
			driver.Rules = append(driver.Rules, &sarif.ReportingDescriptor{ID: ruleID})
		}

		level := LevelForSeverity(issue.Severity)
		msg := issue.Message
		result := &sarif.Result{
			RuleID:  &ruleID,
			Level:   &level,
			Message: sarif.Message{Text: &msg},
		}

		if path := issue.FilePath; path != "" {
			location := &sarif.PhysicalLocation{
				ArtifactLocation: &sarif.ArtifactLocation{URI: &path},
			}
			if issue.Line > 0 {
				line := issue.Line
				location.Region = &sarif.Region{StartLine: &line}
			}
			result.Locations = []*sarif.Location{{PhysicalLocation: location}}
		}
		run.Results = append(run.Results, result)
	}

	report.Runs = append(report.Runs, run)
	return report, nil
}

// WriteReport writes report to path as indented JSON.
func WriteReport(path string, report *sarif.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode SARIF report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LevelForSeverity maps a code-quality severity onto a SARIF level.
func LevelForSeverity(severity string) string {
	switch strings.ToUpper(severity) {
	case "BLOCKER", "CRITICAL":
		return "error"
	case "MAJOR":
		return "warning"
	default:
		return "note"
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
