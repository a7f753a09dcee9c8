package architect

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/renderinc/notion-architect/internal/blueprint"
	"github.com/renderinc/notion-architect/internal/notion"
)

// Reconstructor reads a remote page tree back into a document.
type Reconstructor struct {
	store Store
	log   zerolog.Logger
}

// NewReconstructor creates a Reconstructor reading from store.
func NewReconstructor(store Store, log zerolog.Logger) *Reconstructor {
	return &Reconstructor{store: store, log: log}
}

// Reconstruct rebuilds the page pageID and everything below it. Runs of
// adjacent list items of the same kind become one list block. Block types
// the document model has no variant for are skipped.
func (r *Reconstructor) Reconstruct(ctx context.Context, pageID string) (*blueprint.Page, error) {
	meta, err := r.store.RetrievePage(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("retrieve page %s: %w", pageID, err)
	}
	children, err := r.children(ctx, pageID)
	if err != nil {
		return nil, err
	}
	return &blueprint.Page{
		Title:    meta.Title,
		Icon:     notion.EmojiOf(meta.Icon),
		Children: children,
	}, nil
}

func richTextOf(nb notion.Block) []notion.RichText {
	switch {
	case nb.Text() != nil:
		return nb.Text().RichText
	case nb.ToDo != nil:
		return nb.ToDo.RichText
	case nb.Callout != nil:
		return nb.Callout.RichText
	}
	return nil
}

func (r *Reconstructor) children(ctx context.Context, parentID string) ([]blueprint.Block, error) {
	remote, err := r.store.ListChildren(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("list children of %s: %w", parentID, err)
	}

	var out []blueprint.Block
	var run blueprint.Block // *List or *ToDoList being coalesced
	flush := func() {
		if run != nil {
			out = append(out, run)
			run = nil
		}
	}

	for _, nb := range remote {
		if nb.HasChildren && isListItem(nb.Type) {
			r.log.Warn().Str("id", nb.ID).Str("type", nb.Type).Msg("nested list item children are not reconstructed")
		}

		switch nb.Type {
		case notion.TypeBulletedListItem, notion.TypeNumberedListItem:
			ordered := nb.Type == notion.TypeNumberedListItem
			list, ok := run.(*blueprint.List)
			if !ok || list.Ordered != ordered {
				flush()
				list = &blueprint.List{Ordered: ordered}
				run = list
			}
			list.Items = append(list.Items, notion.PlainText(richTextOf(nb)))
			continue

		case notion.TypeToDo:
			todos, ok := run.(*blueprint.ToDoList)
			if !ok {
				flush()
				todos = &blueprint.ToDoList{}
				run = todos
			}
			checked := nb.ToDo != nil && nb.ToDo.Checked
			todos.Items = append(todos.Items, blueprint.ToDoItem{Text: notion.PlainText(richTextOf(nb)), Checked: checked})
			continue
		}

		flush()
		b, err := r.block(ctx, nb)
		if err != nil {
			return nil, err
		}
		if b != nil {
			out = append(out, b)
		}
	}
	flush()
	return out, nil
}

func isListItem(t string) bool {
	return t == notion.TypeBulletedListItem || t == notion.TypeNumberedListItem || t == notion.TypeToDo
}

// nested lists nb's children when it declares any.
func (r *Reconstructor) nested(ctx context.Context, nb notion.Block) ([]blueprint.Block, error) {
	if !nb.HasChildren {
		return nil, nil
	}
	return r.children(ctx, nb.ID)
}

func (r *Reconstructor) block(ctx context.Context, nb notion.Block) (blueprint.Block, error) {
	switch nb.Type {
	case notion.TypeChildPage:
		return r.Reconstruct(ctx, nb.ID)

	case notion.TypeChildDatabase:
		db, err := r.store.RetrieveDatabase(ctx, nb.ID)
		if err != nil {
			return nil, fmt.Errorf("retrieve database %s: %w", nb.ID, err)
		}
		return &blueprint.Database{
			Title:    notion.PlainText(db.Title),
			Icon:     notion.EmojiOf(db.Icon),
			IsInline: db.IsInline,
			Schema:   schema(db.Properties),
		}, nil

	case notion.TypeDivider:
		return &blueprint.Divider{}, nil

	case notion.TypeTableOfContents:
		return &blueprint.TableOfContents{}, nil

	case notion.TypeHeading1, notion.TypeHeading2, notion.TypeHeading3:
		level := int(nb.Type[len(nb.Type)-1] - '0')
		return &blueprint.Heading{Level: level, Text: notion.PlainText(richTextOf(nb))}, nil

	case notion.TypeParagraph:
		return &blueprint.Paragraph{Content: spans(richTextOf(nb))}, nil

	case notion.TypeToggle:
		children, err := r.nested(ctx, nb)
		if err != nil {
			return nil, err
		}
		return &blueprint.Toggle{Text: notion.PlainText(richTextOf(nb)), Children: children}, nil

	case notion.TypeQuote:
		children, err := r.nested(ctx, nb)
		if err != nil {
			return nil, err
		}
		return &blueprint.Quote{Content: spans(richTextOf(nb)), Children: children}, nil

	case notion.TypeCallout:
		children, err := r.nested(ctx, nb)
		if err != nil {
			return nil, err
		}
		c := &blueprint.Callout{Content: spans(richTextOf(nb)), Children: children}
		if nb.Callout != nil {
			c.Icon = notion.EmojiOf(nb.Callout.Icon)
			c.Color = blueprint.Color(nb.Callout.Color)
		}
		return c, nil

	case notion.TypeColumnList:
		remote, err := r.store.ListChildren(ctx, nb.ID)
		if err != nil {
			return nil, fmt.Errorf("list columns of %s: %w", nb.ID, err)
		}
		cl := &blueprint.ColumnList{}
		for _, col := range remote {
			if col.Type != notion.TypeColumn {
				continue
			}
			children, err := r.nested(ctx, col)
			if err != nil {
				return nil, err
			}
			cl.Columns = append(cl.Columns, &blueprint.Column{Children: children})
		}
		return cl, nil
	}

	r.log.Warn().Str("id", nb.ID).Str("type", nb.Type).Msg("skipping unsupported block type")
	return nil, nil
}
