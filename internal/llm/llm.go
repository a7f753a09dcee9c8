// Package llm talks to text-generation services. Every provider streams its
// output as a sequence of text chunks.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Role of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Sampling holds the sampling parameters of a request.
type Sampling struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	// JSONMode asks the service to constrain its output to a JSON object.
	JSONMode bool `json:"json_mode"`
}

// Override returns s with the given values replacing its own. Nil
// pointers keep the current value; jsonMode only ever turns JSON mode on.
func (s Sampling) Override(temperature, topP *float64, jsonMode bool) Sampling {
	if temperature != nil {
		s.Temperature = *temperature
	}
	if topP != nil {
		s.TopP = *topP
	}
	s.JSONMode = s.JSONMode || jsonMode
	return s
}

// Validate checks that temperature is in [0, 2] and top_p in (0, 1].
func (s Sampling) Validate() error {
	if s.Temperature < 0 || s.Temperature > 2 {
		return fmt.Errorf("temperature %g out of range [0, 2]", s.Temperature)
	}
	if s.TopP <= 0 || s.TopP > 1 {
		return fmt.Errorf("top_p %g out of range (0, 1]", s.TopP)
	}
	return nil
}

// Request is a single generation request.
type Request struct {
	Messages []Message
	Sampling Sampling
}

// Stream is a pull-based sequence of text chunks. Callers must Close it.
type Stream interface {
	// Next returns the next chunk. done is true once the output is complete;
	// the final call may carry a last chunk together with done.
	Next() (chunk string, done bool, err error)
	Close() error
}

// Generator is the interface for generation providers (Ollama, OpenAI-compatible, replay)
type Generator interface {
	// Stream starts a generation and returns its output stream
	Stream(ctx context.Context, req Request) (Stream, error)

	// Health checks if the service is available and the model is loaded
	Health(ctx context.Context) error

	// Name identifies the provider and model, e.g. "ollama/llama3"
	Name() string
}

// Generate runs req to completion and returns the whole output.
func Generate(ctx context.Context, g Generator, req Request) (string, error) {
	s, err := g.Stream(ctx, req)
	if err != nil {
		return "", err
	}
	defer s.Close()

	var sb strings.Builder
	for {
		chunk, done, err := s.Next()
		sb.WriteString(chunk)
		if err != nil {
			return sb.String(), err
		}
		if done {
			return sb.String(), nil
		}
	}
}

// NewGenerator creates a generation client based on the provider type.
// Supported providers: "ollama", "openai", "lmstudio", "replay". For
// "replay", baseURL is the path of a recorded response file or directory.
func NewGenerator(provider, baseURL, model, apiKey string) (Generator, error) {
	if baseURL == "" {
		baseURL = DefaultURL(provider)
	}
	if model == "" {
		model = DefaultModel(provider)
	}

	switch provider {
	case "ollama":
		return NewOllamaClient(baseURL, model), nil
	case "openai", "lmstudio":
		return NewOpenAIClient(baseURL, model, apiKey), nil
	case "replay":
		return NewReplayFromPath(baseURL)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s (supported: ollama, openai, lmstudio, replay)", provider)
	}
}

// DefaultURL returns the default base URL for a given provider
func DefaultURL(provider string) string {
	switch provider {
	case "ollama":
		return "http://localhost:11434"
	case "openai":
		return "https://api.openai.com"
	case "lmstudio":
		return "http://localhost:1234"
	default:
		return ""
	}
}

// DefaultModel returns the default model name for a given provider
func DefaultModel(provider string) string {
	switch provider {
	case "ollama":
		return "llama3.1"
	case "openai":
		return "gpt-4o-mini"
	default:
		return ""
	}
}
