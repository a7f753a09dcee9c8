package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/renderinc/notion-architect/internal/architect"
	"github.com/renderinc/notion-architect/internal/blueprint"
	"github.com/renderinc/notion-architect/internal/generate"
	"github.com/renderinc/notion-architect/internal/render"
	"github.com/renderinc/notion-architect/internal/search"
)

// Version is reported to MCP clients.
const Version = "0.1.0"

// GeneratePageRequest are the arguments of generate_page.
type GeneratePageRequest struct {
	Description string   `json:"description"`           // What the page is for
	ParentID    string   `json:"parent_id,omitempty"`   // Page to create it under
	Preview     bool     `json:"preview,omitempty"`     // Generate without writing
	Temperature *float64 `json:"temperature,omitempty"` // First-attempt temperature
	TopP        *float64 `json:"top_p,omitempty"`       // First-attempt top_p
	JSONMode    bool     `json:"json_mode,omitempty"`   // Ask for a JSON object
}

// GeneratePageResponse is the result of generate_page. RunID and PageID are
// empty for a preview.
type GeneratePageResponse struct {
	RunID     string          `json:"run_id,omitempty"`
	PageID    string          `json:"page_id,omitempty"`
	Attempts  int             `json:"attempts,omitempty"`
	Narrative string          `json:"narrative"`
	Blueprint *blueprint.Page `json:"blueprint"`
}

// ReconstructPageRequest are the arguments of reconstruct_page.
type ReconstructPageRequest struct {
	PageID string `json:"page_id"`
	Format string `json:"format,omitempty"` // "json" (default) or "markdown"
}

// SearchExamplesRequest are the arguments of search_examples.
type SearchExamplesRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// SearchExamplesResponse is the result of search_examples.
type SearchExamplesResponse struct {
	Results []*search.SearchResult `json:"results"`
	Count   int                    `json:"count"`
}

// Deps are the components the tools call into.
type Deps struct {
	Controller *generate.Controller
	Store      architect.Store
	Index      *search.Index // optional
	ParentID   string
	Log        zerolog.Logger
}

// NewServer creates an MCP server with the generate_page, reconstruct_page
// and search_examples tools.
func NewServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"Notion Architect",
		Version,
		server.WithToolCapabilities(false),
	)

	generateTool := mcp.NewTool("generate_page",
		mcp.WithDescription("Generate a Notion page from a description and create it in the workspace"),
		mcp.WithString("description",
			mcp.Required(),
			mcp.Description("What the page should be for, e.g. 'a reading tracker with a database of books'"),
		),
		mcp.WithString("parent_id",
			mcp.Description("ID of the page to create it under; defaults to the configured parent page"),
		),
		mcp.WithBoolean("preview",
			mcp.Description("Return the generated blueprint without creating anything"),
		),
		mcp.WithNumber("temperature",
			mcp.Description("Sampling temperature of the first attempt, 0 to 2; retries lower it"),
		),
		mcp.WithNumber("top_p",
			mcp.Description("Nucleus sampling threshold of the first attempt, above 0 up to 1"),
		),
		mcp.WithBoolean("json_mode",
			mcp.Description("Constrain the model's output to a JSON object"),
		),
	)
	s.AddTool(generateTool, mcp.NewTypedToolHandler(generatePageHandler(deps)))

	reconstructTool := mcp.NewTool("reconstruct_page",
		mcp.WithDescription("Read an existing Notion page back as a blueprint or as markdown"),
		mcp.WithString("page_id",
			mcp.Required(),
			mcp.Description("ID of the page to read"),
		),
		mcp.WithString("format",
			mcp.Description("Output format"),
			mcp.Enum("json", "markdown"),
		),
	)
	s.AddTool(reconstructTool, mcp.NewTypedToolHandler(reconstructPageHandler(deps)))

	if deps.Index != nil {
		searchTool := mcp.NewTool("search_examples",
			mcp.WithDescription("Search the imported few-shot examples"),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Bleve query string, e.g. 'tracker +database'"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of results (default 10)"),
			),
		)
		s.AddTool(searchTool, mcp.NewTypedToolHandler(searchExamplesHandler(deps.Index)))
	}

	return s
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func generatePageHandler(deps Deps) func(ctx context.Context, request mcp.CallToolRequest, args GeneratePageRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args GeneratePageRequest) (*mcp.CallToolResult, error) {
		if args.Description == "" {
			return mcp.NewToolResultError("description is required"), nil
		}
		controller := deps.Controller
		if args.Temperature != nil || args.TopP != nil || args.JSONMode {
			sampling := controller.Sampling().Override(args.Temperature, args.TopP, args.JSONMode)
			if err := sampling.Validate(); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			controller = controller.With(generate.WithSampling(sampling))
		}
		emit := func(ev generate.Event) {
			if ev.Kind == generate.KindState {
				deps.Log.Info().Str("run", ev.RunID).Msg(ev.Summary())
			}
		}

		if args.Preview {
			res, err := controller.Generate(ctx, args.Description, emit)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("generation failed: %v", err)), nil
			}
			return jsonResult(GeneratePageResponse{Narrative: res.Narrative, Blueprint: res.Document})
		}

		parentID := args.ParentID
		if parentID == "" {
			parentID = deps.ParentID
		}
		if parentID == "" {
			return mcp.NewToolResultError("parent_id is required when no parent page is configured"), nil
		}

		res, err := controller.Run(ctx, parentID, args.Description, emit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("generation failed: %v", err)), nil
		}
		return jsonResult(GeneratePageResponse{
			RunID:     res.RunID,
			PageID:    res.PageID,
			Attempts:  res.Attempts,
			Narrative: res.Narrative,
			Blueprint: res.Document,
		})
	}
}

func reconstructPageHandler(deps Deps) func(ctx context.Context, request mcp.CallToolRequest, args ReconstructPageRequest) (*mcp.CallToolResult, error) {
	reader := architect.NewReconstructor(deps.Store, deps.Log)
	return func(ctx context.Context, request mcp.CallToolRequest, args ReconstructPageRequest) (*mcp.CallToolResult, error) {
		if args.PageID == "" {
			return mcp.NewToolResultError("page_id is required"), nil
		}

		page, err := reader.Reconstruct(ctx, args.PageID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read page: %v", err)), nil
		}

		switch args.Format {
		case "", "json":
			return jsonResult(page)
		case "markdown":
			md, err := render.Markdown(page)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("failed to render markdown: %v", err)), nil
			}
			return mcp.NewToolResultText(md), nil
		default:
			return mcp.NewToolResultError(fmt.Sprintf("unknown format %q", args.Format)), nil
		}
	}
}

func searchExamplesHandler(idx *search.Index) func(ctx context.Context, request mcp.CallToolRequest, args SearchExamplesRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args SearchExamplesRequest) (*mcp.CallToolResult, error) {
		if args.Query == "" {
			return mcp.NewToolResultError("query is required"), nil
		}
		limit := args.Limit
		if limit <= 0 || limit > 100 {
			limit = 10
		}

		results, err := idx.Search(args.Query, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}
		if results == nil {
			results = []*search.SearchResult{}
		}
		return jsonResult(SearchExamplesResponse{Results: results, Count: len(results)})
	}
}
