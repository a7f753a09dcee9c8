package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/renderinc/notion-architect/internal/metrics"
)

const (
	DefaultBaseURL = "https://api.notion.com"
	DefaultVersion = "2022-06-28"

	// maxAppend is the most children one append request may carry.
	maxAppend = 100
)

// Client is a Notion REST API client
type Client struct {
	baseURL    string
	version    string
	token      string
	httpClient *http.Client
	log        zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API host, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithVersion sets the Notion-Version header.
func WithVersion(v string) Option {
	return func(c *Client) {
		if v != "" {
			c.version = v
		}
	}
}

// WithHTTPClient sets the HTTP client used for every request.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithLogger sets the logger for request tracing.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a new Notion API client
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		version: DefaultVersion,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do performs a request and decodes the response into result
func (c *Client) do(ctx context.Context, op, method, path string, body, result any) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Notion-Version", c.version)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.RemoteCalls.WithLabelValues(op, "error").Inc()
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	metrics.RemoteCalls.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()
	metrics.RemoteLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.log.Debug().Str("op", op).Str("path", path).Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).Msg("notion request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

type pageParent struct {
	Type   string `json:"type"`
	PageID string `json:"page_id"`
}

// CreatePage creates a page titled title under the page parentID
func (c *Client) CreatePage(ctx context.Context, parentID, title, icon string) (*Page, error) {
	req := struct {
		Parent     pageParent     `json:"parent"`
		Icon       *Icon          `json:"icon,omitempty"`
		Properties map[string]any `json:"properties"`
	}{
		Parent: pageParent{Type: "page_id", PageID: parentID},
		Icon:   EmojiIcon(icon),
		Properties: map[string]any{
			"title": map[string]any{"title": SplitText(title, nil)},
		},
	}

	var page Page
	if err := c.do(ctx, "create_page", http.MethodPost, "/v1/pages", req, &page); err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	return &page, nil
}

// CreateDatabase creates a database under the page parentID
func (c *Client) CreateDatabase(ctx context.Context, parentID string, db *Database) (*Database, error) {
	req := struct {
		Parent pageParent `json:"parent"`
		*Database
	}{pageParent{Type: "page_id", PageID: parentID}, db}

	var created Database
	if err := c.do(ctx, "create_database", http.MethodPost, "/v1/databases", req, &created); err != nil {
		return nil, fmt.Errorf("create database: %w", err)
	}
	return &created, nil
}

// AppendChildren appends blocks to blockID in order and returns the created
// top-level blocks. More than 100 children are sent in several requests.
func (c *Client) AppendChildren(ctx context.Context, blockID string, children []Block) ([]Block, error) {
	var created []Block
	for start := 0; start < len(children); start += maxAppend {
		end := start + maxAppend
		if end > len(children) {
			end = len(children)
		}
		req := struct {
			Children []Block `json:"children"`
		}{children[start:end]}

		var resp listResponse
		path := "/v1/blocks/" + url.PathEscape(blockID) + "/children"
		if err := c.do(ctx, "append_children", http.MethodPatch, path, req, &resp); err != nil {
			return created, fmt.Errorf("append children: %w", err)
		}
		created = append(created, resp.Results...)
	}
	return created, nil
}

// ListChildren returns every child of blockID, following pagination
func (c *Client) ListChildren(ctx context.Context, blockID string) ([]Block, error) {
	var all []Block
	cursor := ""
	for {
		q := url.Values{"page_size": {"100"}}
		if cursor != "" {
			q.Set("start_cursor", cursor)
		}
		path := "/v1/blocks/" + url.PathEscape(blockID) + "/children?" + q.Encode()

		var resp listResponse
		if err := c.do(ctx, "list_children", http.MethodGet, path, nil, &resp); err != nil {
			return nil, fmt.Errorf("list children: %w", err)
		}
		all = append(all, resp.Results...)

		if !resp.HasMore || resp.NextCursor == nil {
			return all, nil
		}
		cursor = *resp.NextCursor
	}
}

// RetrievePage fetches a page's metadata
func (c *Client) RetrievePage(ctx context.Context, pageID string) (*Page, error) {
	var page Page
	if err := c.do(ctx, "retrieve_page", http.MethodGet, "/v1/pages/"+url.PathEscape(pageID), nil, &page); err != nil {
		return nil, fmt.Errorf("retrieve page: %w", err)
	}
	return &page, nil
}

// RetrieveDatabase fetches a database's metadata and schema
func (c *Client) RetrieveDatabase(ctx context.Context, databaseID string) (*Database, error) {
	var db Database
	if err := c.do(ctx, "retrieve_database", http.MethodGet, "/v1/databases/"+url.PathEscape(databaseID), nil, &db); err != nil {
		return nil, fmt.Errorf("retrieve database: %w", err)
	}
	return &db, nil
}

// DeleteBlock archives a block
func (c *Client) DeleteBlock(ctx context.Context, blockID string) error {
	if err := c.do(ctx, "delete_block", http.MethodDelete, "/v1/blocks/"+url.PathEscape(blockID), nil, nil); err != nil {
		return fmt.Errorf("delete block: %w", err)
	}
	return nil
}

// SplitText builds rich text for content, split into objects no longer than
// MaxTextLength characters.
func SplitText(content string, ann *Annotations) []RichText {
	runes := []rune(content)
	if len(runes) <= MaxTextLength {
		return []RichText{NewText(content, ann)}
	}
	var out []RichText
	for start := 0; start < len(runes); start += MaxTextLength {
		end := start + MaxTextLength
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, NewText(string(runes[start:end]), ann))
	}
	return out
}
