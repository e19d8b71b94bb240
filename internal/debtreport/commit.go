package debtreport

import (
	"fmt"
	"strings"

	"github.com/poliacredita/qdigest/internal/sonar"
	"github.com/poliacredita/qdigest/internal/vcs"
)

const subjectTitleRunes = 50

// DescriptionFallback is written in place of the generated description when the model call fails.
func DescriptionFallback(err error) string {
	return fmt.Sprintf("Error en el análisis de IA: %v", err)
}

// CommitSubject returns the mail subject for a commit report.
func CommitSubject(c *vcs.Commit) string {
	title := []rune(c.Title)
	if len(title) > subjectTitleRunes {
		title = title[:subjectTitleRunes]
	}
	return fmt.Sprintf("Informe de Calidad: Commit %s - '%s...'", c.ShortSHA(), string(title))
}

// RenderCommitReport renders the commit report. The same text is the mail body and the attached report.
func RenderCommitReport(c *vcs.Commit, model, description string, metrics map[string]string) string {
	var b strings.Builder

	b.WriteString("--- Informe de Commit y Calidad de Código ---\n\n")
	fmt.Fprintf(&b, "⭐ **Commit Analizado:** %s\n", c.SHA)
	fmt.Fprintf(&b, "📝 **Título:** %s\n", c.Title)
	fmt.Fprintf(&b, "📖 **Descripción original:**\n%s\n", c.Description)

	fmt.Fprintf(&b, "\n--- Descripción Funcional (%s) ---\n", model)
	fmt.Fprintf(&b, "%s\n", description)

	b.WriteString("\n--- Archivos Modificados ---\n")
	if len(c.Files) == 0 {
		b.WriteString("- Ninguno detectado o error al obtener.\n")
	}
	for _, f := range c.Files {
		fmt.Fprintf(&b, "- %s\n", f)
	}

	b.WriteString("\n--- Resumen de Métricas Clave de SonarCloud ---\n")
	fmt.Fprintf(&b, "Bugs: %s | Vulnerabilidades: %s | Code Smells: %s | Complejidad: %s | Cobertura: %s\n",
		metric(metrics, sonar.MetricBugs),
		metric(metrics, sonar.MetricVulnerabilities),
		metric(metrics, sonar.MetricCodeSmells),
		metric(metrics, sonar.MetricComplexity),
		metric(metrics, sonar.MetricCoverage),
	)

	b.WriteString("\nEl informe detallado de Deuda Técnica (TXT) con la lista de issues y este informe general (TXT) están adjuntos.")
	return b.String()
}
