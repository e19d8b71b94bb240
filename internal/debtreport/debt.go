// Package debtreport renders the technical-debt dump and the commit quality report.
package debtreport

import (
	"fmt"
	"strconv"
	"strings"

	qerrors "github.com/poliacredita/qdigest/internal/errors"
	"github.com/poliacredita/qdigest/internal/findings"
	"github.com/poliacredita/qdigest/internal/sonar"
)

// Placeholder stands in for any value the code-quality service did not report.
const Placeholder = "N/A"

const (
	sectionRule = "================================"
	issueRule   = "--------------------------------"
)

var sectionTitles = map[string]string{
	sonar.TypeBug:           "BUGS 🐛",
	sonar.TypeVulnerability: "VULNERABILIDADES 🛡️",
	sonar.TypeCodeSmell:     "CODE SMELLS 👃",
}

// MetricPolicy decides what happens when a measure is missing: required metrics abort the run,
// every other metric is replaced by Placeholder.
type MetricPolicy struct {
	Required    []string
	Placeholder string
}

// NewMetricPolicy returns a policy with the default placeholder.
func NewMetricPolicy(required []string) MetricPolicy {
	return MetricPolicy{Required: required, Placeholder: Placeholder}
}

// Resolve returns a value for every key in sonar.MetricKeys.
func (p MetricPolicy) Resolve(values map[string]string) (map[string]string, error) {
	placeholder := p.Placeholder
	if placeholder == "" {
		placeholder = Placeholder
	}

	var missing []string
	for _, key := range p.Required {
		if strings.TrimSpace(values[key]) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, qerrors.Newf(qerrors.KindNotFound, "debtreport.metrics", "required metrics not reported: %s", strings.Join(missing, ", "))
	}

	resolved := make(map[string]string, len(sonar.MetricKeys))
	for _, key := range sonar.MetricKeys {
		v := strings.TrimSpace(values[key])
		if v == "" {
			v = placeholder
		}
		resolved[key] = v
	}
	return resolved, nil
}

// Debt is everything the technical-debt dump is built from.
type Debt struct {
	ProjectKey string
	// Metrics must already be resolved by a MetricPolicy.
	Metrics map[string]string
	Issues  map[string][]findings.Issue
}

// Render produces the technical-debt dump. The output is also the corpus the prioritization
// pipeline reads, so the layout is stable.
func Render(d Debt) string {
	var b strings.Builder

	b.WriteString("--- INFORME DETALLADO DE DEUDA TÉCNICA (SonarCloud) ---\n")
	fmt.Fprintf(&b, "Proyecto: %s\n\n", d.ProjectKey)

	b.WriteString("--- RESUMEN DE MÉTRICAS GLOBALES ---\n")
	fmt.Fprintf(&b, "- Bugs: %s\n", metric(d.Metrics, sonar.MetricBugs))
	fmt.Fprintf(&b, "- Vulnerabilidades: %s\n", metric(d.Metrics, sonar.MetricVulnerabilities))
	fmt.Fprintf(&b, "- Code Smells: %s\n", metric(d.Metrics, sonar.MetricCodeSmells))
	fmt.Fprintf(&b, "- Complejidad Ciclomática: %s\n", metric(d.Metrics, sonar.MetricComplexity))
	fmt.Fprintf(&b, "- Cobertura de Tests: %s%%\n\n", metric(d.Metrics, sonar.MetricCoverage))

	total := 0
	for _, issueType := range sonar.IssueTypes {
		issues := d.Issues[issueType]
		total += len(issues)

		b.WriteString(sectionRule + "\n")
		fmt.Fprintf(&b, "DETALLE DE ISSUES: %s (%d)\n", sectionTitles[issueType], len(issues))
		b.WriteString(sectionRule + "\n")

		if len(issues) == 0 {
			b.WriteString("No se encontraron issues de este tipo.\n\n")
			continue
		}
		for n, issue := range issues {
			writeIssue(&b, n+1, issue)
		}
		b.WriteString("\n")
	}

	if total == 0 && countAll(d.Issues) == 0 {
		b.WriteString("\nATENCIÓN: No se pudo recuperar el detalle de issues, probablemente debido a un error de conexión o permisos con SonarCloud. Las métricas del resumen superior reflejan el estado del proyecto.\n")
	}
	return b.String()
}

func writeIssue(b *strings.Builder, n int, issue findings.Issue) {
	line := Placeholder
	if issue.Line > 0 {
		line = strconv.Itoa(issue.Line)
	}
	fmt.Fprintf(b, "%d. [%s / Línea %s] en %s\n", n, orPlaceholder(issue.Severity), line, orPlaceholder(issue.FilePath))
	fmt.Fprintf(b, "   - Regla: %s\n", orPlaceholder(issue.RuleID))
	message := issue.Message
	if message == "" {
		message = "Sin descripción"
	}
	fmt.Fprintf(b, "   - Mensaje: %s\n", message)
	b.WriteString(issueRule + "\n")
}

func countAll(grouped map[string][]findings.Issue) int {
	n := 0
	for _, issues := range grouped {
		n += len(issues)
	}
	return n
}

func metric(values map[string]string, key string) string {
	if v, ok := values[key]; ok && v != "" {
		return v
	}
	return Placeholder
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}
