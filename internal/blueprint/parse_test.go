package blueprint_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renderinc/notion-architect/internal/blueprint"
)

const validDocument = `{
  "response": "Here is your reading tracker.",
  "blueprint": {
    "type": "page",
    "title": "Reading Tracker",
    "icon": "📚",
    "children": [
      {"type": "heading_1", "text": "Books"},
      {"type": "paragraph", "content": [
        {"text": "Track what you "},
        {"text": "read", "style": ["bold", "italic"]}
      ]},
      {"type": "bulleted_list", "items": ["Fiction", "Non-fiction"]},
      {"type": "to_do_list", "items": [{"text": "Pick a book", "checked": true}]},
      {"type": "toggle", "text": "More", "children": [{"type": "divider"}]},
      {"type": "column_list", "columns": [
        {"type": "column", "children": [{"type": "quote", "content": [{"text": "Read more"}]}]},
        {"type": "column", "children": [{"type": "callout", "icon": "💡", "color": "blue_background", "content": [{"text": "Tip"}]}]}
      ]},
      {"type": "database", "title": "Books", "is_inline": true, "schema": {
        "Name": {"type": "title"},
        "Rating": {"type": "number", "format": "number"},
        "Status": {"type": "select", "options": [{"name": "Reading", "color": "green"}]}
      }},
      {"type": "table_of_contents"}
    ]
  }
}`

func TestParse(t *testing.T) {
	result, err := blueprint.Parse([]byte(validDocument))
	require.NoError(t, err)

	assert.Equal(t, "Here is your reading tracker.", result.Narrative)
	page := result.Document
	require.NotNil(t, page)
	assert.Equal(t, "Reading Tracker", page.Title)
	assert.Equal(t, "📚", page.Icon)
	require.Len(t, page.Children, 8)

	assert.Equal(t, &blueprint.Heading{Level: 1, Text: "Books"}, page.Children[0])
	assert.Equal(t, &blueprint.Paragraph{Content: []blueprint.RichSpan{
		{Text: "Track what you "},
		{Text: "read", Styles: []blueprint.Style{blueprint.StyleBold, blueprint.StyleItalic}},
	}}, page.Children[1])
	assert.Equal(t, &blueprint.List{Items: []string{"Fiction", "Non-fiction"}}, page.Children[2])
	assert.Equal(t, &blueprint.ToDoList{Items: []blueprint.ToDoItem{{Text: "Pick a book", Checked: true}}}, page.Children[3])

	cl, ok := page.Children[5].(*blueprint.ColumnList)
	require.True(t, ok)
	require.Len(t, cl.Columns, 2)
	assert.IsType(t, &blueprint.Quote{}, cl.Columns[0].Children[0])
	callout := cl.Columns[1].Children[0].(*blueprint.Callout)
	assert.Equal(t, blueprint.Color("blue_background"), callout.Color)
	assert.Nil(t, callout.Children)

	db, ok := page.Children[6].(*blueprint.Database)
	require.True(t, ok)
	assert.True(t, db.IsInline)
	assert.Equal(t, []string{"Name", "Rating", "Status"}, db.Schema.Names())
	title, ok := db.Schema.TitleProperty()
	assert.True(t, ok)
	assert.Equal(t, "Name", title)
}

func TestParse_Malformed(t *testing.T) {
	_, err := blueprint.Parse([]byte(`{"response": "hi", "blueprint": {`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, blueprint.ErrMalformed))
	assert.False(t, errors.Is(err, blueprint.ErrInvalid))

	var merr *blueprint.MalformedDocumentError
	require.True(t, errors.As(err, &merr))
}

func violations(t *testing.T, raw string) *blueprint.ValidationError {
	t.Helper()
	_, err := blueprint.Parse([]byte(raw))
	require.Error(t, err)
	require.True(t, errors.Is(err, blueprint.ErrInvalid), "expected a validation error, got %v", err)
	var verr *blueprint.ValidationError
	require.True(t, errors.As(err, &verr))
	return verr
}

func TestParse_Violations(t *testing.T) {
	t.Run("DegenerateRoot", func(t *testing.T) {
		verr := violations(t, `{"response": "", "blueprint": {"type": "page", "title": "T", "children": [{"type": "divider"}]}}`)
		assert.True(t, verr.Has(blueprint.CodeDegenerate))
	})

	t.Run("RootNotPage", func(t *testing.T) {
		verr := violations(t, `{"response": "", "blueprint": {"type": "divider"}}`)
		assert.True(t, verr.Has(blueprint.CodeNotAllowed))
	})

	t.Run("MissingResponse", func(t *testing.T) {
		verr := violations(t, `{"blueprint": {"type": "page", "title": "T", "children": [{"type": "divider"}, {"type": "divider"}]}}`)
		require.Len(t, verr.Violations, 1)
		assert.Equal(t, "response", verr.Violations[0].Path)
		assert.Equal(t, blueprint.CodeMissingField, verr.Violations[0].Code)
	})

	t.Run("NoTitleProperty", func(t *testing.T) {
		verr := violations(t, wrap(`{"type": "database", "title": "D", "schema": {"Notes": {"type": "rich_text"}}}`))
		assert.True(t, verr.Has(blueprint.CodeTitleCount))
	})

	t.Run("TwoTitleProperties", func(t *testing.T) {
		verr := violations(t, wrap(`{"type": "database", "title": "D", "schema": {"A": {"type": "title"}, "B": {"type": "title"}}}`))
		assert.True(t, verr.Has(blueprint.CodeTitleCount))
	})

	t.Run("SelectWithoutOptions", func(t *testing.T) {
		verr := violations(t, wrap(`{"type": "database", "title": "D", "schema": {"Name": {"type": "title"}, "Status": {"type": "select"}}}`))
		require.Len(t, verr.Violations, 1)
		assert.Equal(t, blueprint.CodeMissingOptions, verr.Violations[0].Code)
		assert.Equal(t, "blueprint.children[1].schema.Status.options", verr.Violations[0].Path)
	})

	t.Run("NumberWithoutFormat", func(t *testing.T) {
		verr := violations(t, wrap(`{"type": "database", "title": "D", "schema": {"Name": {"type": "title"}, "N": {"type": "number"}}}`))
		assert.True(t, verr.Has(blueprint.CodeNumberFormat))
	})

	t.Run("UnknownBlockType", func(t *testing.T) {
		verr := violations(t, wrap(`{"type": "image", "url": "x"}`))
		require.Len(t, verr.Violations, 1)
		assert.Equal(t, blueprint.CodeUnknownBlockType, verr.Violations[0].Code)
		assert.Equal(t, "blueprint.children[1].type", verr.Violations[0].Path)
	})

	t.Run("BadColors", func(t *testing.T) {
		verr := violations(t, wrap(`{"type": "callout", "icon": "!", "color": "blue", "content": []}`))
		assert.True(t, verr.Has(blueprint.CodeInvalidValue))
	})

	t.Run("BadStyle", func(t *testing.T) {
		verr := violations(t, wrap(`{"type": "paragraph", "content": [{"text": "x", "style": ["blink"]}]}`))
		assert.Equal(t, "blueprint.children[1].content[0].style[0]", verr.Violations[0].Path)
	})

	t.Run("PageInsideToggle", func(t *testing.T) {
		verr := violations(t, wrap(`{"type": "toggle", "text": "t", "children": [{"type": "page", "title": "p", "children": []}]}`))
		assert.True(t, verr.Has(blueprint.CodeNotAllowed))
	})

	t.Run("ColumnListInsideCallout", func(t *testing.T) {
		verr := violations(t, wrap(`{"type": "callout", "icon": "!", "color": "default", "content": [], "children": [
			{"type": "column_list", "columns": [
				{"type": "column", "children": [{"type": "divider"}]},
				{"type": "column", "children": [{"type": "divider"}]}
			]}
		]}`))
		assert.True(t, verr.Has(blueprint.CodeNotAllowed))
	})

	t.Run("ColumnOutsideColumnList", func(t *testing.T) {
		verr := violations(t, wrap(`{"type": "column", "children": [{"type": "divider"}]}`))
		assert.True(t, verr.Has(blueprint.CodeNotAllowed))
	})

	t.Run("SingleColumn", func(t *testing.T) {
		verr := violations(t, wrap(`{"type": "column_list", "columns": [{"type": "column", "children": [{"type": "divider"}]}]}`))
		assert.True(t, verr.Has(blueprint.CodeTooFewColumns))
	})

	t.Run("EmptyColumn", func(t *testing.T) {
		verr := violations(t, wrap(`{"type": "column_list", "columns": [
			{"type": "column", "children": []},
			{"type": "column", "children": [{"type": "divider"}]}
		]}`))
		assert.True(t, verr.Has(blueprint.CodeEmptyColumn))
	})

	t.Run("EmptyLists", func(t *testing.T) {
		for _, block := range []string{
			`{"type": "bulleted_list", "items": []}`,
			`{"type": "numbered_list", "items": []}`,
			`{"type": "to_do_list", "items": []}`,
		} {
			verr := violations(t, wrap(block))
			require.Len(t, verr.Violations, 1, block)
			assert.Equal(t, blueprint.CodeInvalidValue, verr.Violations[0].Code)
			assert.Equal(t, "blueprint.children[1].items", verr.Violations[0].Path)
			assert.Contains(t, verr.Violations[0].Message, "at least one item")
		}
	})

	t.Run("CollectsEveryViolation", func(t *testing.T) {
		verr := violations(t, `{"response": 3, "blueprint": {"type": "page", "children": [
			{"type": "heading_2"},
			{"type": "bulleted_list", "items": ["ok", 7]},
			{"type": "to_do_list", "items": [{"text": "x"}]}
		]}}`)
		paths := make([]string, len(verr.Violations))
		for i, v := range verr.Violations {
			paths[i] = v.Path
		}
		assert.Equal(t, []string{
			"response",
			"blueprint.title",
			"blueprint.children[0].text",
			"blueprint.children[1].items[1]",
			"blueprint.children[2].items[0].checked",
		}, paths)
	})
}

func wrap(block string) string {
	return `{"response": "", "blueprint": {"type": "page", "title": "T", "children": [{"type": "divider"}, ` + block + `]}}`
}

func TestParsePage(t *testing.T) {
	page, err := blueprint.ParsePage([]byte(`{"type": "page", "title": "T", "children": [{"type": "divider"}, {"type": "table_of_contents"}]}`))
	require.NoError(t, err)
	assert.Equal(t, []blueprint.Block{&blueprint.Divider{}, &blueprint.TableOfContents{}}, page.Children)
}

func TestParse_CoalescesAdjacentLists(t *testing.T) {
	page, err := blueprint.ParsePage([]byte(`{"type": "page", "title": "T", "children": [
		{"type": "bulleted_list", "items": ["a", "b"]},
		{"type": "bulleted_list", "items": ["c"]},
		{"type": "numbered_list", "items": ["1"]},
		{"type": "numbered_list", "items": ["2"]},
		{"type": "bulleted_list", "items": ["d"]},
		{"type": "divider"},
		{"type": "to_do_list", "items": [{"text": "x", "checked": true}]},
		{"type": "to_do_list", "items": [{"text": "y", "checked": false}]},
		{"type": "column_list", "columns": [
			{"type": "column", "children": [
				{"type": "numbered_list", "items": ["p"]},
				{"type": "numbered_list", "items": ["q"]}
			]},
			{"type": "column", "children": [{"type": "divider"}]}
		]}
	]}`))
	require.NoError(t, err)

	assert.Equal(t, []blueprint.Block{
		&blueprint.List{Items: []string{"a", "b", "c"}},
		&blueprint.List{Ordered: true, Items: []string{"1", "2"}},
		&blueprint.List{Items: []string{"d"}},
		&blueprint.Divider{},
		&blueprint.ToDoList{Items: []blueprint.ToDoItem{{Text: "x", Checked: true}, {Text: "y"}}},
		&blueprint.ColumnList{Columns: []*blueprint.Column{
			{Children: []blueprint.Block{&blueprint.List{Ordered: true, Items: []string{"p", "q"}}}},
			{Children: []blueprint.Block{&blueprint.Divider{}}},
		}},
	}, page.Children)
}

func TestParse_CoalescedRootCanBeDegenerate(t *testing.T) {
	verr := violations(t, `{"response": "", "blueprint": {"type": "page", "title": "T", "children": [
		{"type": "bulleted_list", "items": ["a"]},
		{"type": "bulleted_list", "items": ["b"]}
	]}}`)
	assert.True(t, verr.Has(blueprint.CodeDegenerate))
}

func TestCoalesce_KeepsInputs(t *testing.T) {
	first := &blueprint.List{Items: []string{"a"}}
	second := &blueprint.List{Items: []string{"b"}}
	in := []blueprint.Block{first, second}

	out := blueprint.Coalesce(in)
	require.Len(t, out, 1)
	assert.Equal(t, &blueprint.List{Items: []string{"a", "b"}}, out[0])
	assert.Equal(t, []string{"a"}, first.Items)
	assert.Same(t, first, in[0])
	assert.Empty(t, blueprint.Coalesce(nil))
}

func TestParse_DatabaseIconOptional(t *testing.T) {
	result, err := blueprint.Parse([]byte(wrap(`{"type": "database", "title": "D", "schema": {"Name": {"type": "title"}}}`)))
	require.NoError(t, err)
	db, ok := result.Document.Children[1].(*blueprint.Database)
	require.True(t, ok)
	assert.Empty(t, db.Icon)

	result, err = blueprint.Parse([]byte(wrap(`{"type": "database", "title": "D", "icon": "📚", "schema": {"Name": {"type": "title"}}}`)))
	require.NoError(t, err)
	assert.Equal(t, "📚", result.Document.Children[1].(*blueprint.Database).Icon)
}

func TestEncodeRoundTrip(t *testing.T) {
	result, err := blueprint.Parse([]byte(validDocument))
	require.NoError(t, err)

	raw, err := blueprint.Encode(result.Document)
	require.NoError(t, err)

	again, err := blueprint.ParsePage(raw)
	require.NoError(t, err)
	assert.Equal(t, result.Document, again)

	d, err := blueprint.Diff(result.Document, again)
	require.NoError(t, err)
	assert.Empty(t, d)
}

func TestEncode_EmptyArrays(t *testing.T) {
	raw, err := blueprint.Encode(&blueprint.Toggle{Text: "t"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type": "toggle", "text": "t", "children": []}`, string(raw))

	raw, err = blueprint.Encode(&blueprint.Heading{Level: 2, Text: "h"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type": "heading_2", "text": "h"}`, string(raw))
}

func TestDiff(t *testing.T) {
	a := &blueprint.Heading{Level: 1, Text: "one"}
	b := &blueprint.Heading{Level: 1, Text: "two"}

	d, err := blueprint.Diff(a, b)
	require.NoError(t, err)
	assert.Contains(t, d, `- `)
	assert.Contains(t, d, `+ `)
	assert.Contains(t, d, `"two"`)
	assert.False(t, blueprint.Equal(a, b))
	assert.True(t, blueprint.Equal(a, &blueprint.Heading{Level: 1, Text: "one"}))
}

// sides rebuilds the old and new text from a Diff.
func sides(d string) (before, after string) {
	for _, line := range strings.SplitAfter(d, "\n") {
		if len(line) < 2 {
			continue
		}
		switch line[:2] {
		case "  ":
			before += line[2:]
			after += line[2:]
		case "- ":
			before += line[2:]
		case "+ ":
			after += line[2:]
		}
	}
	return before, after
}

func TestDiff_RebuildsBothSides(t *testing.T) {
	want := &blueprint.Page{Title: "Trip", Children: []blueprint.Block{
		&blueprint.Heading{Level: 1, Text: "Days"},
		&blueprint.List{Items: []string{"Tokyo", "Kyoto"}},
		&blueprint.Divider{},
		&blueprint.Paragraph{Content: []blueprint.RichSpan{{Text: "end"}}},
	}}
	got := &blueprint.Page{Title: "Trip", Children: []blueprint.Block{
		&blueprint.Heading{Level: 2, Text: "Days"},
		&blueprint.List{Items: []string{"Tokyo", "Osaka", "Kyoto"}},
		&blueprint.Paragraph{Content: []blueprint.RichSpan{{Text: "end", Styles: []blueprint.Style{blueprint.StyleBold}}}},
		&blueprint.TableOfContents{},
	}}

	d, err := blueprint.Diff(want, got)
	require.NoError(t, err)

	a, err := blueprint.Encode(want)
	require.NoError(t, err)
	b, err := blueprint.Encode(got)
	require.NoError(t, err)

	before, after := sides(d)
	assert.Equal(t, string(a)+"\n", before)
	assert.Equal(t, string(b)+"\n", after)
}

func TestDescribe(t *testing.T) {
	_, err := blueprint.Parse([]byte(wrap(`{"type": "image"}`)))
	require.Error(t, err)
	assert.Contains(t, blueprint.Describe(err), `"error":"validation_error"`)
	assert.Contains(t, blueprint.Describe(err), `"unknown_block_type"`)
}
