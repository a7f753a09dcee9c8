package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/buger/jsonparser"
)

// Ensure OpenAIClient implements Generator interface at compile time
var _ Generator = (*OpenAIClient)(nil)

// OpenAIClient streams from an OpenAI-compatible /v1/chat/completions
// endpoint (OpenAI, LM Studio, vLLM, ...).
type OpenAIClient struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

// NewOpenAIClient creates a new OpenAI-compatible generation client
func NewOpenAIClient(baseURL, model, apiKey string) *OpenAIClient {
	return &OpenAIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
		client:  &http.Client{},
	}
}

func (c *OpenAIClient) Name() string { return "openai/" + c.model }

type responseFormat struct {
	Type string `json:"type"`
}

type completionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Stream         bool            `json:"stream"`
	Temperature    float64         `json:"temperature"`
	TopP           float64         `json:"top_p"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

func (c *OpenAIClient) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Stream starts a chat completion and reads its server-sent events.
func (c *OpenAIClient) Stream(ctx context.Context, req Request) (Stream, error) {
	body := completionRequest{
		Model:       c.model,
		Messages:    req.Messages,
		Stream:      true,
		Temperature: req.Sampling.Temperature,
		TopP:        req.Sampling.TopP,
	}
	if req.Sampling.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := c.newRequest(ctx, http.MethodPost, "/v1/chat/completions", payload)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &StreamError{Provider: "openai", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, statusError("openai", resp)
	}

	return newLineStream("openai", resp.Body, parseSSELine), nil
}

func parseSSELine(line []byte) (string, bool, error) {
	if !bytes.HasPrefix(line, []byte("data:")) {
		return "", false, nil
	}
	data := bytes.TrimSpace(bytes.TrimPrefix(line, []byte("data:")))
	if string(data) == "[DONE]" {
		return "", true, nil
	}
	if msg, err := jsonparser.GetString(data, "error", "message"); err == nil {
		return "", false, fmt.Errorf("%w: openai: %s", ErrUnavailable, msg)
	}
	chunk, err := jsonparser.GetString(data, "choices", "[0]", "delta", "content")
	if err != nil && err != jsonparser.KeyPathNotFoundError {
		// Unparseable events are skipped.
		return "", false, nil
	}
	return chunk, false, nil
}

// Health checks that the endpoint answers and lists the configured model
func (c *OpenAIClient) Health(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/models", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("openai endpoint not available: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError("openai", resp)
	}

	var modelsResp struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&modelsResp); err != nil {
		return fmt.Errorf("decode models response: %w", err)
	}
	// The configured model is not required to be listed; some compatible
	// servers accept any model name.
	if len(modelsResp.Data) == 0 {
		return fmt.Errorf("no models available")
	}
	return nil
}
