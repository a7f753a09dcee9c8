// Package prompt assembles the message lists sent to the generation service.
package prompt

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/renderinc/notion-architect/internal/llm"
)

//go:embed defaults.json
var defaultsJSON []byte

// Example is a few-shot example: a request and the output that answered it.
type Example struct {
	Prompt    string          `json:"prompt"`
	Response  string          `json:"response"`
	Blueprint json.RawMessage `json:"blueprint"`
}

// Output renders the example as a compact assistant turn in the wire format,
// "response" first.
func (e Example) Output() (string, error) {
	var bp bytes.Buffer
	if err := json.Compact(&bp, e.Blueprint); err != nil {
		return "", fmt.Errorf("compact blueprint: %w", err)
	}
	out, err := json.Marshal(struct {
		Response  string          `json:"response"`
		Blueprint json.RawMessage `json:"blueprint"`
	}{e.Response, bp.Bytes()})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Defaults returns the built-in examples.
func Defaults() []Example {
	var out []Example
	if err := json.Unmarshal(defaultsJSON, &out); err != nil {
		panic(fmt.Sprintf("prompt: embedded defaults: %v", err))
	}
	return out
}

// Source picks the few-shot examples for a description.
type Source interface {
	Examples(ctx context.Context, description string, n int) ([]Example, error)
}

// Static is a Source that always returns the same examples.
type Static []Example

func (s Static) Examples(_ context.Context, _ string, n int) ([]Example, error) {
	if n > 0 && n < len(s) {
		return s[:n], nil
	}
	return s, nil
}

// Build returns the first request of a run: the system instruction, one
// user/assistant pair per example, then the description.
func Build(description string, examples []Example) ([]llm.Message, error) {
	msgs := make([]llm.Message, 0, 2+2*len(examples))
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: System})
	for _, ex := range examples {
		out, err := ex.Output()
		if err != nil {
			return nil, fmt.Errorf("example %q: %w", ex.Prompt, err)
		}
		msgs = append(msgs,
			llm.Message{Role: llm.RoleUser, Content: ex.Prompt},
			llm.Message{Role: llm.RoleAssistant, Content: out},
		)
	}
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: description}), nil
}

// Retry extends base with the rejected output and the reason it was
// rejected. base is not modified.
func Retry(base []llm.Message, failed, reason string) []llm.Message {
	msgs := make([]llm.Message, len(base), len(base)+2)
	copy(msgs, base)
	return append(msgs,
		llm.Message{Role: llm.RoleAssistant, Content: failed},
		llm.Message{Role: llm.RoleUser, Content: fmt.Sprintf(Correction, reason)},
	)
}
