package extraction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/poliacredita/qdigest/internal/findings"
	"github.com/poliacredita/qdigest/internal/prioritization"
)

var errNotArray = errors.New("response is not a JSON array")

// ParseFindings decodes and validates the model text. The text must be a JSON array of exactly
// ExpectedFindings objects, each carrying every field with the declared type and a priority in range.
func ParseFindings(text string) ([]findings.PrioritizedFinding, error) {
	data := bytes.TrimSpace([]byte(text))
	if !json.Valid(data) {
		return nil, errors.New("response is not valid JSON")
	}
	if len(data) == 0 || data[0] != '[' {
		return nil, errNotArray
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, errNotArray
	}
	if len(items) != findings.ExpectedFindings {
		return nil, fmt.Errorf("expected %d findings, got %d", findings.ExpectedFindings, len(items))
	}

	out := make([]findings.PrioritizedFinding, 0, len(items))
	for i, item := range items {
		f, err := parseFinding(item)
		if err != nil {
			return nil, fmt.Errorf("finding %d: %w", i, err)
		}
		out = append(out, f)
	}
	return out, nil
}

func parseFinding(item json.RawMessage) (findings.PrioritizedFinding, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
		return findings.PrioritizedFinding{}, errors.New("not a JSON object")
	}

	for _, name := range prioritization.FieldOrder {
		raw, ok := fields[name]
		if !ok || string(bytes.TrimSpace(raw)) == "null" {
			return findings.PrioritizedFinding{}, fmt.Errorf("missing required field %q", name)
		}
	}

	var f findings.PrioritizedFinding
	rawPriority := bytes.TrimSpace(fields[prioritization.FieldPriority])
	if len(rawPriority) > 0 && rawPriority[0] == '"' {
		return f, fmt.Errorf("field %q is not an integer", prioritization.FieldPriority)
	}
	var priority json.Number
	dec := json.NewDecoder(bytes.NewReader(rawPriority))
	dec.UseNumber()
	if err := dec.Decode(&priority); err != nil {
		return f, fmt.Errorf("field %q is not an integer", prioritization.FieldPriority)
	}
	p, err := priority.Int64()
	if err != nil {
		return f, fmt.Errorf("field %q is not an integer: %s", prioritization.FieldPriority, priority)
	}
	if p < findings.MinPriority || p > findings.MaxPriority {
		return f, fmt.Errorf("field %q out of range [%d,%d]: %d", prioritization.FieldPriority, findings.MinPriority, findings.MaxPriority, p)
	}
	f.Priority = int(p)

	strFields := map[string]*string{
		prioritization.FieldOriginalSeverity:  &f.OriginalSeverity,
		prioritization.FieldAffectedFile:      &f.AffectedFile,
		prioritization.FieldRiskJustification: &f.RiskJustification,
		prioritization.FieldCodeFix:           &f.CodeFix,
	}
	for name, dst := range strFields {
		if err := json.Unmarshal(fields[name], dst); err != nil {
			return f, fmt.Errorf("field %q is not a string", name)
		}
	}
	return f, nil
}
