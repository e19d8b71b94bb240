// Package report renders an AnalysisResult as a JSON record and as a plain-text report.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/poliacredita/qdigest/internal/findings"
)

var (
	headerRule  = strings.Repeat("=", 66)
	findingRule = strings.Repeat("-", 70)
	codeRule    = strings.Repeat("-", 50)
)

// Artifacts are the rendered outputs of one run, as written to disk.
type Artifacts struct {
	JSONPath string
	TextPath string
	JSON     []byte
	Text     string
}

// Renderer writes the two sibling artifacts under fixed file names.
type Renderer struct {
	JSONFile string
	TextFile string
}

// NewRenderer returns a Renderer for the given artifact file names.
func NewRenderer(jsonFile, textFile string) *Renderer {
	return &Renderer{JSONFile: jsonFile, TextFile: textFile}
}

// MarshalJSON serializes result with a four space indent. Findings keep the order the model returned.
func MarshalJSON(result findings.AnalysisResult) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(result); err != nil {
		return nil, fmt.Errorf("failed to encode analysis result: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ParseJSON is the inverse of MarshalJSON.
func ParseJSON(data []byte) (findings.AnalysisResult, error) {
	var result findings.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return findings.AnalysisResult{}, fmt.Errorf("failed to decode analysis result: %w", err)
	}
	result.Timestamp = result.Timestamp.UTC()
	return result, nil
}

// SortedFindings returns a copy of ff ordered by ascending priority. Ties keep their relative order.
func SortedFindings(ff []findings.PrioritizedFinding) []findings.PrioritizedFinding {
	out := make([]findings.PrioritizedFinding, len(ff))
	copy(out, ff)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

// RenderText produces the human-readable report. Identical input always renders to identical bytes.
func RenderText(result findings.AnalysisResult) string {
	lines := []string{
		headerRule,
		"INFORME DE PRIORIZACIÓN DE DEUDA TÉCNICA CRÍTICA",
		"PROYECTO: " + result.ProjectTag,
		"FECHA DE ANÁLISIS: " + result.Timestamp.UTC().Format(time.RFC3339),
		"MODELO GEMINI USADO: " + result.Model,
		headerRule,
		fmt.Sprintf("\n✅ TOP %d ISSUES CRÍTICOS PRIORIZADOS POR RIESGO (Seguridad > Confiabilidad > Mantenibilidad)\n", findings.ExpectedFindings),
	}

	for _, f := range SortedFindings(result.Findings) {
		lines = append(lines,
			findingRule,
			fmt.Sprintf("PRIORIDAD (1-10): %d | SEVERIDAD SONAR: %s", f.Priority, f.OriginalSeverity),
			"ARCHIVO AFECTADO: "+f.AffectedFile,
			"\nJUSTIFICACIÓN DE RIESGO:",
			"  > "+f.RiskJustification,
			"\nSOLUCIÓN DE CÓDIGO SUGERIDA:",
			codeRule,
			f.CodeFix,
			codeRule,
			"\n",
		)
	}

	lines = append(lines,
		headerRule,
		fmt.Sprintf("FIN DEL INFORME: %d hallazgos priorizados, latencia del modelo %d ms", len(result.Findings), result.LatencyMs),
		headerRule,
	)
	return strings.Join(lines, "\n") + "\n"
}

// WriteArtifacts renders result and writes both artifacts into dir.
func (r *Renderer) WriteArtifacts(dir string, result findings.AnalysisResult) (Artifacts, error) {
	data, err := MarshalJSON(result)
	if err != nil {
		return Artifacts{}, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Artifacts{}, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	a := Artifacts{
		JSONPath: filepath.Join(dir, r.JSONFile),
		TextPath: filepath.Join(dir, r.TextFile),
		JSON:     data,
		Text:     RenderText(result),
	}
	if err := os.WriteFile(a.JSONPath, a.JSON, 0o644); err != nil {
		return Artifacts{}, fmt.Errorf("failed to write %s: %w", a.JSONPath, err)
	}
	if err := os.WriteFile(a.TextPath, []byte(a.Text), 0o644); err != nil {
		return Artifacts{}, fmt.Errorf("failed to write %s: %w", a.TextPath, err)
	}
	return a, nil
}

// Subject is the email subject line of a prioritization report.
func Subject(projectTag string) string {
	return "Informe Crítico de Deuda Técnica: " + projectTag
}

// Body is the email body that introduces both attachments.
func Body(projectTag, textFile, jsonFile string) string {
	return fmt.Sprintf("Adjunto encontrará el informe de priorización de deuda técnica para el proyecto %s.\n\n"+
		"1. %s: Informe legible y priorizado para el equipo.\n"+
		"2. %s: Archivo JSON original de la respuesta de Gemini (para registro técnico).\n",
		projectTag, filepath.Base(textFile), filepath.Base(jsonFile))
}
