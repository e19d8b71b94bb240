// Package findings holds the domain model shared by the pipeline stages.
package findings

import (
	"strconv"
	"time"
)

// ExpectedFindings is the number of ranked findings a successful run produces.
const ExpectedFindings = 10

const (
	MinPriority = 1
	MaxPriority = 10
)

// IssueCorpus is the raw static-analysis dump submitted to the model.
// Length and OriginalLength count characters, not bytes.
type IssueCorpus struct {
	Text           string
	Length         int
	OriginalLength int
	Truncated      bool
	Source         string
}

// PrioritizedFinding is one ranked issue returned by the model.
type PrioritizedFinding struct {
	Priority          int    `json:"priority"`
	OriginalSeverity  string `json:"original_severity"`
	AffectedFile      string `json:"affected_file"`
	RiskJustification string `json:"risk_justification"`
	CodeFix           string `json:"code_fix"`
}

// AnalysisResult is the output of one prioritization run.
type AnalysisResult struct {
	ProjectTag string               `json:"project_tag"`
	Timestamp  time.Time            `json:"experiment_timestamp"`
	LatencyMs  int64                `json:"analysis_latency_ms"`
	Model      string               `json:"gemini_model"`
	Findings   []PrioritizedFinding `json:"gemini_diagnosis"`
}

// NewAnalysisResult builds a result that owns a private copy of the findings.
func NewAnalysisResult(projectTag, model string, ts time.Time, latencyMs int64, ff []PrioritizedFinding) AnalysisResult {
	owned := make([]PrioritizedFinding, len(ff))
	copy(owned, ff)
	return AnalysisResult{
		ProjectTag: projectTag,
		Timestamp:  ts.UTC(),
		LatencyMs:  latencyMs,
		Model:      model,
		Findings:   owned,
	}
}

// Issue is a minimal static-analysis issue as reported by the code-quality service or a SARIF file.
type Issue struct {
	Key       string `json:"key"`
	RuleID    string `json:"rule_id"`
	Type      string `json:"type"`
	Severity  string `json:"severity"`
	Component string `json:"component"`
	FilePath  string `json:"file_path"`
	Line      int    `json:"line"`
	Message   string `json:"message"`
}

// Location renders the issue position as path:line, or just the path when the line is unknown.
func (i Issue) Location() string {
	path := i.FilePath
	if path == "" {
		path = i.Component
	}
	if i.Line > 0 {
		return path + ":" + strconv.Itoa(i.Line)
	}
	return path
}

