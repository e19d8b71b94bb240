// Package prioritization composes the structured-generation request that ranks the issue corpus.
package prioritization

import (
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/poliacredita/qdigest/internal/findings"
)

const (
	// Temperature is kept low so the selection is conservative and close to reproducible.
	Temperature float32 = 0.2

	ResponseMIMEType = "application/json"

	// CorpusMarker separates the instructions from the embedded corpus in the user query.
	CorpusMarker = "--- ISSUES A ANALIZAR ---"
)

// Field names of one ranked finding, in the order the model must emit them.
const (
	FieldPriority          = "priority"
	FieldOriginalSeverity  = "original_severity"
	FieldAffectedFile      = "affected_file"
	FieldRiskJustification = "risk_justification"
	FieldCodeFix           = "code_fix"
)

// FieldOrder is the fixed property ordering of a finding.
var FieldOrder = []string{
	FieldPriority,
	FieldOriginalSeverity,
	FieldAffectedFile,
	FieldRiskJustification,
	FieldCodeFix,
}

const systemInstruction = "Eres un analista senior de DevOps especializado en seguridad, calidad de código y CI/CD. " +
	"Tu tarea es analizar issues detectados por SonarCloud y priorizarlos según riesgo operacional y de seguridad. " +
	"La prioridad debe ser: 1. Vulnerabilidades de Seguridad, 2. Bugs de Confiabilidad, " +
	"3. Code Smells de Mantenibilidad (solo si son de alta severidad). " +
	"Los Code Smells de severidad baja se excluyen salvo que no existan issues de mayor nivel. " +
	"Para cada issue seleccionado, debes proporcionar una corrección concreta en forma de un bloque de código que resuelva el problema. " +
	"La respuesta debe ser únicamente un JSON válido, sin explicaciones fuera del JSON."

// Request is a complete structured-generation request. It holds no reference to the corpus it was built from.
type Request struct {
	SystemInstruction string
	UserQuery         string
	Schema            *genai.Schema
	Temperature       float32
	ResponseMIMEType  string
}

// Build composes the request for corpus. It performs no I/O.
func Build(corpus *findings.IssueCorpus) Request {
	text := ""
	if corpus != nil {
		text = corpus.Text
	}
	return Request{
		SystemInstruction: systemInstruction,
		UserQuery:         userQuery(text),
		Schema:            ResponseSchema(),
		Temperature:       Temperature,
		ResponseMIMEType:  ResponseMIMEType,
	}
}

func userQuery(corpus string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analiza el siguiente bloque de issues de SonarCloud y selecciona los %d más críticos, ", findings.ExpectedFindings)
	b.WriteString("priorizando explícitamente: Vulnerabilidades (Seguridad), Bugs (Confiabilidad), y luego Code Smells (Mantenibilidad). ")
	b.WriteString("Los issues seleccionados deben impactar la seguridad, la disponibilidad, o el MTTR del pipeline CI/CD. ")
	fmt.Fprintf(&b, "Para cada uno de los %d issues seleccionados, incluye lo siguiente:\n", findings.ExpectedFindings)
	fmt.Fprintf(&b, "- %s: %d al %d (1 es el más urgente, siguiendo la jerarquía de riesgo: Seguridad > Confiabilidad > Mantenibilidad)\n",
		FieldPriority, findings.MinPriority, findings.MaxPriority)
	fmt.Fprintf(&b, "- %s: severidad reportada por SonarCloud\n", FieldOriginalSeverity)
	fmt.Fprintf(&b, "- %s: archivo donde ocurre el issue\n", FieldAffectedFile)
	fmt.Fprintf(&b, "- %s: explica el riesgo de forma concreta, detallando si es un riesgo de Seguridad, Disponibilidad o MTTR\n", FieldRiskJustification)
	fmt.Fprintf(&b, "- %s: bloque de código con la corrección ESPECÍFICA del issue (máximo 20 líneas)\n\n", FieldCodeFix)
	fmt.Fprintf(&b, "Devuelve únicamente un array JSON con esos %d objetos.\n", findings.ExpectedFindings)
	b.WriteString(CorpusMarker)
	b.WriteString("\n")
	b.WriteString(corpus)
	return b.String()
}

// ResponseSchema describes an array of exactly ten findings with every field required.
func ResponseSchema() *genai.Schema {
	count := int64(findings.ExpectedFindings)
	return &genai.Schema{
		Type:        genai.TypeArray,
		Description: "Lista de los 10 issues más críticos para el riesgo operativo.",
		MinItems:    genai.Ptr(count),
		MaxItems:    genai.Ptr(count),
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				FieldPriority: {
					Type:    genai.TypeInteger,
					Minimum: genai.Ptr(float64(findings.MinPriority)),
					Maximum: genai.Ptr(float64(findings.MaxPriority)),
				},
				FieldOriginalSeverity:  {Type: genai.TypeString},
				FieldAffectedFile:      {Type: genai.TypeString},
				FieldRiskJustification: {Type: genai.TypeString},
				FieldCodeFix:           {Type: genai.TypeString},
			},
			Required:         append([]string(nil), FieldOrder...),
			PropertyOrdering: append([]string(nil), FieldOrder...),
		},
	}
}

// GenerateContentConfig translates the request into the SDK generation config.
func (r Request) GenerateContentConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(r.SystemInstruction, genai.RoleUser),
		Temperature:       genai.Ptr(r.Temperature),
		ResponseMIMEType:  r.ResponseMIMEType,
		ResponseSchema:    r.Schema,
	}
}

// Contents returns the single user turn carrying the query and the corpus.
func (r Request) Contents() []*genai.Content {
	return []*genai.Content{genai.NewContentFromText(r.UserQuery, genai.RoleUser)}
}

// EmbeddedCorpus returns the corpus text carried by the user query.
func (r Request) EmbeddedCorpus() string {
	_, corpus, _ := strings.Cut(r.UserQuery, CorpusMarker+"\n")
	return corpus
}
