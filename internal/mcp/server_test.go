package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/avast/retry-go/v4"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renderinc/notion-architect/internal/architect"
	"github.com/renderinc/notion-architect/internal/blueprint"
	"github.com/renderinc/notion-architect/internal/generate"
	"github.com/renderinc/notion-architect/internal/llm"
	"github.com/renderinc/notion-architect/internal/notion"
	"github.com/renderinc/notion-architect/internal/search"
	"github.com/renderinc/notion-architect/internal/storage"
)

const rootID = "root"

const validOutput = `{"response":"A garden journal.","blueprint":{"type":"page","title":"Garden","children":[` +
	`{"type":"heading_1","text":"Beds"},{"type":"bulleted_list","items":["Tomatoes","Basil"]}]}}`

func newDeps(t *testing.T) (Deps, *notion.MemoryStore) {
	t.Helper()
	store := notion.NewMemoryStore(rootID, "Root")
	ctrl := generate.New(llm.NewReplay(validOutput), architect.NewMaterializer(store, zerolog.Nop()), zerolog.Nop(),
		generate.WithDelay(0, retry.FixedDelay), generate.WithMaxAttempts(2))
	return Deps{Controller: ctrl, Store: store, ParentID: rootID, Log: zerolog.Nop()}, store
}

func call(name string, args any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Request: mcp.Request{Method: "tools/call"},
		Params:  mcp.CallToolParams{Name: name, Arguments: args},
	}
}

func text(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", result.Content[0])
	return tc.Text
}

func TestNewServer(t *testing.T) {
	deps, _ := newDeps(t)
	assert.NotNil(t, NewServer(deps))
}

func TestGeneratePage(t *testing.T) {
	deps, store := newDeps(t)
	handler := generatePageHandler(deps)
	args := GeneratePageRequest{Description: "a garden journal"}

	result, err := handler(context.Background(), call("generate_page", args), args)
	require.NoError(t, err)
	require.False(t, result.IsError, text(t, result))

	var resp GeneratePageResponse
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &resp))
	assert.NotEmpty(t, resp.PageID)
	assert.Equal(t, 1, resp.Attempts)
	assert.Equal(t, "A garden journal.", resp.Narrative)

	page, err := store.RetrievePage(context.Background(), resp.PageID)
	require.NoError(t, err)
	assert.Equal(t, "Garden", page.Title)
}

func TestGeneratePage_Preview(t *testing.T) {
	deps, store := newDeps(t)
	handler := generatePageHandler(deps)
	args := GeneratePageRequest{Description: "a garden journal", Preview: true}

	result, err := handler(context.Background(), call("generate_page", args), args)
	require.NoError(t, err)
	require.False(t, result.IsError, text(t, result))
	assert.Contains(t, text(t, result), `"title":"Garden"`)
	assert.Empty(t, store.Calls())
}

func TestGeneratePage_Validation(t *testing.T) {
	deps, _ := newDeps(t)
	handler := generatePageHandler(deps)

	args := GeneratePageRequest{}
	result, err := handler(context.Background(), call("generate_page", args), args)
	require.NoError(t, err)
	assert.True(t, result.IsError)

	deps.ParentID = ""
	handler = generatePageHandler(deps)
	args = GeneratePageRequest{Description: "x"}
	result, err = handler(context.Background(), call("generate_page", args), args)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, text(t, result), "parent_id")
}

func TestGeneratePage_Sampling(t *testing.T) {
	store := notion.NewMemoryStore(rootID, "Root")
	gen := llm.NewReplay(validOutput)
	ctrl := generate.New(gen, architect.NewMaterializer(store, zerolog.Nop()), zerolog.Nop(),
		generate.WithDelay(0, retry.FixedDelay), generate.WithMaxAttempts(2))
	handler := generatePageHandler(Deps{Controller: ctrl, Store: store, ParentID: rootID, Log: zerolog.Nop()})

	topP := 0.7
	args := GeneratePageRequest{Description: "a garden journal", Preview: true, TopP: &topP, JSONMode: true}
	result, err := handler(context.Background(), call("generate_page", args), args)
	require.NoError(t, err)
	require.False(t, result.IsError, text(t, result))

	reqs := gen.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, llm.Sampling{Temperature: generate.DefaultSampling.Temperature, TopP: 0.7, JSONMode: true}, reqs[0].Sampling)
	assert.Equal(t, generate.DefaultSampling, ctrl.Sampling())

	hot := 3.0
	args = GeneratePageRequest{Description: "a garden journal", Temperature: &hot}
	result, err = handler(context.Background(), call("generate_page", args), args)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, text(t, result), "temperature")
	assert.Len(t, gen.Requests(), 1)
}

func TestReconstructPage(t *testing.T) {
	deps, store := newDeps(t)
	ctx := context.Background()
	doc := &blueprint.Page{Title: "Notes", Children: []blueprint.Block{
		&blueprint.Heading{Level: 2, Text: "Ideas"},
	}}
	pageID, err := architect.NewMaterializer(store, zerolog.Nop()).Materialize(ctx, rootID, doc)
	require.NoError(t, err)

	handler := reconstructPageHandler(deps)

	args := ReconstructPageRequest{PageID: pageID}
	result, err := handler(ctx, call("reconstruct_page", args), args)
	require.NoError(t, err)
	require.False(t, result.IsError, text(t, result))
	assert.JSONEq(t, `{"type":"page","title":"Notes","children":[{"type":"heading_2","text":"Ideas"}]}`, text(t, result))

	args = ReconstructPageRequest{PageID: pageID, Format: "markdown"}
	result, err = handler(ctx, call("reconstruct_page", args), args)
	require.NoError(t, err)
	assert.Contains(t, text(t, result), "# Notes")
	assert.Contains(t, text(t, result), "### Ideas")

	args = ReconstructPageRequest{PageID: pageID, Format: "yaml"}
	result, err = handler(ctx, call("reconstruct_page", args), args)
	require.NoError(t, err)
	assert.True(t, result.IsError)

	args = ReconstructPageRequest{PageID: "missing"}
	result, err = handler(ctx, call("reconstruct_page", args), args)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestSearchExamples(t *testing.T) {
	dir := t.TempDir()
	idx, err := search.Open(filepath.Join(dir, "bleve"))
	require.NoError(t, err)
	defer idx.Close()

	doc, err := search.NewIndexedExample(&storage.Example{
		ID:        "ex-1",
		Prompt:    "a garden journal",
		Response:  "A garden journal.",
		Blueprint: `{"type":"page","title":"Garden","children":[{"type":"heading_1","text":"Beds"},{"type":"divider"}]}`,
	})
	require.NoError(t, err)
	require.NoError(t, idx.IndexExample(doc))

	handler := searchExamplesHandler(idx)
	args := SearchExamplesRequest{Query: "garden"}
	result, err := handler(context.Background(), call("search_examples", args), args)
	require.NoError(t, err)
	require.False(t, result.IsError, text(t, result))

	var resp SearchExamplesResponse
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "ex-1", resp.Results[0].ID)

	args = SearchExamplesRequest{}
	result, err = handler(context.Background(), call("search_examples", args), args)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
