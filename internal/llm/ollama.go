package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/buger/jsonparser"
)

// Ensure OllamaClient implements Generator interface at compile time
var _ Generator = (*OllamaClient)(nil)

// OllamaClient streams chat completions from Ollama's /api/chat endpoint.
type OllamaClient struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaClient creates a new Ollama generation client. Streams are bounded
// by the request context rather than a client timeout.
func NewOllamaClient(baseURL, model string) *OllamaClient {
	return &OllamaClient{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{},
	}
}

func (c *OllamaClient) Name() string { return "ollama/" + c.model }

// chatRequest is the request format for Ollama's /api/chat endpoint
type chatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Format   string         `json:"format,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
}

// Stream starts a chat completion. Each NDJSON line of the response carries
// {"message":{"content":...},"done":bool}.
func (c *OllamaClient) Stream(ctx context.Context, req Request) (Stream, error) {
	body := chatRequest{
		Model:    c.model,
		Messages: req.Messages,
		Stream:   true,
		Options: map[string]any{
			"temperature": req.Sampling.Temperature,
			"top_p":       req.Sampling.TopP,
		},
	}
	if req.Sampling.JSONMode {
		body.Format = "json"
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &StreamError{Provider: "ollama", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError("ollama", resp)
	}

	return newLineStream("ollama", resp.Body, parseOllamaLine), nil
}

func parseOllamaLine(line []byte) (string, bool, error) {
	if msg, err := jsonparser.GetString(line, "error"); err == nil && msg != "" {
		return "", false, fmt.Errorf("%w: ollama: %s", ErrUnavailable, msg)
	}
	chunk, err := jsonparser.GetString(line, "message", "content")
	if err != nil && err != jsonparser.KeyPathNotFoundError {
		return "", false, &StreamError{Provider: "ollama", Err: fmt.Errorf("decode line: %w", err)}
	}
	done, _ := jsonparser.GetBoolean(line, "done")
	return chunk, done, nil
}

// Health checks if the Ollama service is available and the model is pulled
func (c *OllamaClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama not available: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var tagsResp struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tagsResp); err != nil {
		return fmt.Errorf("decode tags response: %w", err)
	}

	for _, m := range tagsResp.Models {
		if m.Name == c.model || m.Name == c.model+":latest" {
			return nil
		}
	}
	return fmt.Errorf("model %s not found in ollama (run: ollama pull %s)", c.model, c.model)
}
