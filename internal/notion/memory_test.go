package notion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paragraph(text string) Block {
	return Block{Type: TypeParagraph, Paragraph: &TextBlock{RichText: SplitText(text, nil)}}
}

func TestMemoryStore_PagesAndNesting(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("root", "Root")

	page, err := s.CreatePage(ctx, "root", "Child", "📄")
	require.NoError(t, err)
	got, err := s.RetrievePage(ctx, page.ID)
	require.NoError(t, err)
	assert.Equal(t, "Child", got.Title)
	assert.Equal(t, "📄", EmojiOf(got.Icon))

	toggle := Block{Type: TypeToggle, Toggle: &TextBlock{
		RichText: SplitText("more", nil),
		Children: []Block{paragraph("inside"), paragraph("also")},
	}}
	created, err := s.AppendChildren(ctx, page.ID, []Block{paragraph("first"), toggle})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.True(t, created[1].HasChildren)
	assert.Empty(t, created[1].Toggle.Children, "listed blocks carry no nested children")

	top, err := s.ListChildren(ctx, "root")
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, TypeChildPage, top[0].Type)
	assert.Equal(t, "Child", top[0].ChildPage.Title)
	assert.True(t, top[0].HasChildren)

	nested, err := s.ListChildren(ctx, created[1].ID)
	require.NoError(t, err)
	require.Len(t, nested, 2)
	assert.Equal(t, "also", PlainText(nested[1].Paragraph.RichText))

	// root, page, paragraph, toggle and its two children
	assert.Equal(t, 6, s.Len())
}

func TestMemoryStore_Databases(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("root", "Root")

	_, err := s.CreateDatabase(ctx, "root", &Database{
		Title:      SplitText("No title", nil),
		Properties: map[string]Property{"Cost": {Type: "number"}},
	})
	assert.ErrorIs(t, err, ErrValidation)

	db, err := s.CreateDatabase(ctx, "root", &Database{
		Title:    SplitText("Tasks", nil),
		IsInline: true,
		Properties: map[string]Property{
			"Name":  {Type: "title"},
			"Stage": {Type: "select", Options: []SelectOption{{Name: "Open"}}},
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, db.Properties["Name"].ID)

	got, err := s.RetrieveDatabase(ctx, db.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tasks", PlainText(got.Title))
	assert.True(t, got.IsInline)
	assert.Equal(t, "Open", got.Properties["Stage"].Options[0].Name)

	top, err := s.ListChildren(ctx, "root")
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, TypeChildDatabase, top[0].Type)

	_, err = s.CreatePage(ctx, db.ID, "Row", "")
	assert.ErrorIs(t, err, ErrNotFound, "pages cannot be created under a database")
}

func TestMemoryStore_ColumnRules(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("root", "Root")
	column := func(children ...Block) Block {
		return Block{Type: TypeColumn, Column: &ContainerBlock{Children: children}}
	}
	list := func(cols ...Block) Block {
		return Block{Type: TypeColumnList, ColumnList: &ContainerBlock{Children: cols}}
	}

	_, err := s.AppendChildren(ctx, "root", []Block{list(column(paragraph("only")))})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.AppendChildren(ctx, "root", []Block{list(column(paragraph("a")), column())})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.AppendChildren(ctx, "root", []Block{column(paragraph("loose"))})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.AppendChildren(ctx, "root", []Block{{Type: TypeChildPage, ChildPage: &ChildTitle{Title: "x"}}})
	assert.ErrorIs(t, err, ErrValidation)

	assert.Equal(t, 1, s.Len(), "rejected appends create nothing")

	created, err := s.AppendChildren(ctx, "root", []Block{list(column(paragraph("a")), column(paragraph("b")))})
	require.NoError(t, err)
	cols, err := s.ListChildren(ctx, created[0].ID)
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, TypeColumn, cols[0].Type)
	assert.True(t, cols[1].HasChildren)
}

func TestMemoryStore_AppendLimit(t *testing.T) {
	s := NewMemoryStore("root", "Root")
	blocks := make([]Block, maxAppend+1)
	for i := range blocks {
		blocks[i] = Block{Type: TypeDivider, Divider: &Empty{}}
	}
	_, err := s.AppendChildren(context.Background(), "root", blocks)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMemoryStore_DeleteBlock(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("root", "Root")

	quote := Block{Type: TypeQuote, Quote: &TextBlock{RichText: SplitText("q", nil), Children: []Block{paragraph("nested")}}}
	created, err := s.AppendChildren(ctx, "root", []Block{paragraph("keep"), quote})
	require.NoError(t, err)

	require.NoError(t, s.DeleteBlock(ctx, created[1].ID))
	left, err := s.ListChildren(ctx, "root")
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, created[0].ID, left[0].ID)
	assert.Equal(t, 2, s.Len())

	assert.ErrorIs(t, s.DeleteBlock(ctx, created[1].ID), ErrNotFound)
	assert.ErrorIs(t, s.DeleteBlock(ctx, "root"), ErrNotFound)
}

func TestMemoryStore_CallsAndFailOn(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("root", "Root")
	boom := errors.New("boom")
	s.FailOn = func(c Call) error {
		if c.Op == "append_children" && c.Count > 1 {
			return boom
		}
		return nil
	}

	_, err := s.AppendChildren(ctx, "root", []Block{paragraph("a")})
	require.NoError(t, err)
	_, err = s.AppendChildren(ctx, "root", []Block{paragraph("a"), paragraph("b")})
	assert.ErrorIs(t, err, boom)
	_, err = s.ListChildren(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, []Call{
		{Op: "append_children", Target: "root", Count: 1},
		{Op: "append_children", Target: "root", Count: 2},
		{Op: "list_children", Target: "missing"},
	}, s.Calls())
	assert.Equal(t, 2, s.CountCalls("append_children"))
}

func TestMemoryStore_Cancelled(t *testing.T) {
	s := NewMemoryStore("root", "Root")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.CreatePage(ctx, "root", "x", "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, s.Len())
}
