package debtreport

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/poliacredita/qdigest/internal/findings"
	"github.com/poliacredita/qdigest/internal/sonar"
)

var titleCaser = cases.Title(language.Spanish)

// Title turns an API key such as CODE_SMELL or code_smells into a display title.
func Title(key string) string {
	return titleCaser.String(strings.ReplaceAll(strings.ToLower(key), "_", " "))
}

// SummaryTable renders the metrics and issue counts for the console.
func SummaryTable(metrics map[string]string, issues map[string][]findings.Issue) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Métrica", "Valor"})
	for _, key := range sonar.MetricKeys {
		t.AppendRow(table.Row{Title(key), metric(metrics, key)})
	}
	t.AppendSeparator()
	for _, issueType := range sonar.IssueTypes {
		t.AppendRow(table.Row{"Issues: " + Title(issueType), len(issues[issueType])})
	}
	return t.Render()
}
