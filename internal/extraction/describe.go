package extraction

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/poliacredita/qdigest/internal/prioritization"
)

const describePrompt = `Eres un asistente de documentación. Analiza el siguiente mensaje de commit y genera una **Descripción Funcional Detallada** del commit.

Tu respuesta DEBE comenzar y terminar SOLAMENTE con la descripción generada.

Ejemplo de formato de salida:
Este commit introduce una nueva ruta para el cálculo de impuestos en el módulo de facturación, asegurando que se aplique la tasa del 12%% para transacciones mayores a $100.

---
Commit a analizar:
%s
`

// Describer asks the model for a free-text functional description of a commit.
type Describer struct {
	client *Client
}

// NewDescriber reuses the transport, timeout and clock of client.
func NewDescriber(client *Client) *Describer {
	return &Describer{client: client}
}

// Describe returns the trimmed description for commitMessage. Like Extract it makes a single attempt.
func (d *Describer) Describe(ctx context.Context, commitMessage string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(fmt.Sprintf(describePrompt, commitMessage), genai.RoleUser)}
	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr(prioritization.Temperature)}

	text, latency, err := d.client.generate(ctx, "extraction.describe", contents, cfg)
	if err != nil {
		return "", err
	}
	d.client.logger.Info("commit description generated", "model", d.client.model, "latency_ms", latency)
	return text, nil
}
