package architect

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/renderinc/notion-architect/internal/blueprint"
	"github.com/renderinc/notion-architect/internal/metrics"
	"github.com/renderinc/notion-architect/internal/notion"
)

// Materializer writes documents to a Store, one remote call per node, depth
// first and in document order.
type Materializer struct {
	store Store
	log   zerolog.Logger
}

// NewMaterializer creates a Materializer writing to store.
func NewMaterializer(store Store, log zerolog.Logger) *Materializer {
	return &Materializer{store: store, log: log}
}

// Preflight runs the checks Materialize would otherwise hit at call time,
// without touching the store. It returns a *blueprint.ValidationError.
func Preflight(root blueprint.Block) error {
	var violations []blueprint.Violation
	var walk func(path string, b blueprint.Block)
	walk = func(path string, b blueprint.Block) {
		switch b := b.(type) {
		case *blueprint.Database:
			for _, name := range b.Schema.Names() {
				if kind := b.Schema[name].Kind; unsupportedKinds[kind] {
					violations = append(violations, blueprint.Violation{
						Path:    path + ".schema." + name + ".type",
						Code:    blueprint.CodeUnsupportedProperty,
						Message: (&UnsupportedPropertyTypeError{Property: name, Kind: kind}).Error(),
					})
				}
			}
		case *blueprint.List:
			if len(b.Items) == 0 {
				violations = append(violations, emptyList(path))
			}
		case *blueprint.ToDoList:
			if len(b.Items) == 0 {
				violations = append(violations, emptyList(path))
			}
		case *blueprint.ColumnList:
			if len(b.Columns) < 2 {
				violations = append(violations, blueprint.Violation{
					Path: path + ".columns", Code: blueprint.CodeTooFewColumns,
					Message: fmt.Sprintf("a column list needs at least 2 columns, got %d", len(b.Columns)),
				})
			}
			for i, col := range b.Columns {
				cpath := fmt.Sprintf("%s.columns[%d]", path, i)
				if len(col.Children) == 0 {
					violations = append(violations, blueprint.Violation{
						Path: cpath + ".children", Code: blueprint.CodeEmptyColumn,
						Message: "a column needs at least one child",
					})
				}
				for j, child := range col.Children {
					walk(fmt.Sprintf("%s.children[%d]", cpath, j), child)
				}
			}
			return
		case *blueprint.Column:
			violations = append(violations, blueprint.Violation{
				Path: path, Code: blueprint.CodeNotAllowed,
				Message: "a column can only appear inside a column list",
			})
		}
		for i, child := range blueprint.Children(b) {
			walk(fmt.Sprintf("%s.children[%d]", path, i), child)
		}
	}
	walk("blueprint", root)

	if len(violations) > 0 {
		return &blueprint.ValidationError{Violations: violations}
	}
	return nil
}

func emptyList(path string) blueprint.Violation {
	return blueprint.Violation{
		Path: path + ".items", Code: blueprint.CodeInvalidValue,
		Message: "a list needs at least one item",
	}
}

// Materialize creates b and its descendants under parentID and returns the
// ID of the node created for b ("" for leaf blocks). Invalid documents are
// rejected by Preflight before any remote call. A failed remote call stops
// the walk and is returned as a *MaterializationError.
func (m *Materializer) Materialize(ctx context.Context, parentID string, b blueprint.Block) (string, error) {
	if err := Preflight(b); err != nil {
		return "", err
	}
	w := &walker{ctx: ctx, store: m.store, log: m.log}
	id, err := w.block(parentID, nil, b)
	metrics.NodesCreated.Add(float64(w.created))
	m.log.Debug().Int("created", w.created).Err(err).Msg("materialize finished")
	return id, err
}

type walker struct {
	ctx     context.Context
	store   Store
	log     zerolog.Logger
	created int
}

func (w *walker) fail(path []int, op string, err error) error {
	var merr *MaterializationError
	if errors.As(err, &merr) {
		return err
	}
	return &MaterializationError{Path: append([]int(nil), path...), Op: op, Created: w.created, Err: err}
}

func (w *walker) append(parentID string, path []int, op string, blocks ...notion.Block) ([]notion.Block, error) {
	created, err := w.store.AppendChildren(w.ctx, parentID, blocks)
	if err != nil {
		return nil, w.fail(path, op, err)
	}
	w.created += len(blocks)
	return created, nil
}

// appendContainer appends a single block and returns its ID.
func (w *walker) appendContainer(parentID string, path []int, op string, b notion.Block) (string, error) {
	created, err := w.append(parentID, path, op, b)
	if err != nil {
		return "", err
	}
	if len(created) == 0 || created[0].ID == "" {
		return "", w.fail(path, op, fmt.Errorf("append returned no block id"))
	}
	return created[0].ID, nil
}

func (w *walker) children(parentID string, path []int, children []blueprint.Block) error {
	for i, child := range children {
		if _, err := w.block(parentID, append(path, i), child); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) block(parentID string, path []int, b blueprint.Block) (string, error) {
	if err := w.ctx.Err(); err != nil {
		return "", w.fail(path, string(b.Type()), err)
	}
	w.log.Debug().Str("type", string(b.Type())).Str("path", FormatPath(path)).Msg("materialize")

	switch b := b.(type) {
	case *blueprint.Page:
		page, err := w.store.CreatePage(w.ctx, parentID, b.Title, b.Icon)
		if err != nil {
			return "", w.fail(path, "create_page", err)
		}
		w.created++
		return page.ID, w.children(page.ID, path, b.Children)

	case *blueprint.Database:
		props, err := properties(b.Schema)
		if err != nil {
			return "", w.fail(path, "create_database", err)
		}
		db, err := w.store.CreateDatabase(w.ctx, parentID, &notion.Database{
			Title:      plainText(b.Title),
			Icon:       notion.EmojiIcon(b.Icon),
			IsInline:   b.IsInline,
			Properties: props,
		})
		if err != nil {
			return "", w.fail(path, "create_database", err)
		}
		w.created++
		return db.ID, nil

	case *blueprint.Divider:
		_, err := w.append(parentID, path, "append_divider", notion.Block{Type: notion.TypeDivider, Divider: &notion.Empty{}})
		return "", err

	case *blueprint.TableOfContents:
		_, err := w.append(parentID, path, "append_table_of_contents", notion.Block{Type: notion.TypeTableOfContents, TableOfContents: &notion.Empty{}})
		return "", err

	case *blueprint.Heading:
		nb := notion.Block{Type: string(b.Type())}
		text := &notion.TextBlock{RichText: plainText(b.Text)}
		switch b.Level {
		case 1:
			nb.Heading1 = text
		case 2:
			nb.Heading2 = text
		default:
			nb.Heading3 = text
		}
		_, err := w.append(parentID, path, "append_heading", nb)
		return "", err

	case *blueprint.Paragraph:
		_, err := w.append(parentID, path, "append_paragraph", notion.Block{
			Type:      notion.TypeParagraph,
			Paragraph: &notion.TextBlock{RichText: richText(b.Content)},
		})
		return "", err

	case *blueprint.List:
		items := make([]notion.Block, len(b.Items))
		for i, item := range b.Items {
			text := &notion.TextBlock{RichText: plainText(item)}
			if b.Ordered {
				items[i] = notion.Block{Type: notion.TypeNumberedListItem, NumberedListItem: text}
			} else {
				items[i] = notion.Block{Type: notion.TypeBulletedListItem, BulletedListItem: text}
			}
		}
		_, err := w.append(parentID, path, "append_list", items...)
		return "", err

	case *blueprint.ToDoList:
		items := make([]notion.Block, len(b.Items))
		for i, item := range b.Items {
			items[i] = notion.Block{Type: notion.TypeToDo, ToDo: &notion.ToDoBlock{
				RichText: plainText(item.Text),
				Checked:  item.Checked,
			}}
		}
		_, err := w.append(parentID, path, "append_to_do_list", items...)
		return "", err

	case *blueprint.Toggle:
		id, err := w.appendContainer(parentID, path, "append_toggle", notion.Block{
			Type:   notion.TypeToggle,
			Toggle: &notion.TextBlock{RichText: plainText(b.Text)},
		})
		if err != nil {
			return "", err
		}
		return id, w.children(id, path, b.Children)

	case *blueprint.Callout:
		id, err := w.appendContainer(parentID, path, "append_callout", notion.Block{
			Type: notion.TypeCallout,
			Callout: &notion.CalloutBlock{
				RichText: richText(b.Content),
				Icon:     notion.EmojiIcon(b.Icon),
				Color:    string(b.Color),
			},
		})
		if err != nil {
			return "", err
		}
		return id, w.children(id, path, b.Children)

	case *blueprint.Quote:
		id, err := w.appendContainer(parentID, path, "append_quote", notion.Block{
			Type:  notion.TypeQuote,
			Quote: &notion.TextBlock{RichText: richText(b.Content)},
		})
		if err != nil {
			return "", err
		}
		return id, w.children(id, path, b.Children)

	case *blueprint.ColumnList:
		return w.columnList(parentID, path, b)

	case *blueprint.Column:
		return "", w.fail(path, "append_column", fmt.Errorf("column outside a column list"))
	}
	return "", w.fail(path, "materialize", fmt.Errorf("unknown block type %s", b.Type()))
}

func placeholder() notion.Block {
	return notion.Block{Type: notion.TypeParagraph, Paragraph: &notion.TextBlock{RichText: []notion.RichText{}}}
}

// columnList provisions every column in one append, each holding a
// placeholder paragraph because the API refuses empty columns. The column
// and placeholder IDs are then listed, the columns filled, and the
// placeholders deleted.
func (w *walker) columnList(parentID string, path []int, b *blueprint.ColumnList) (string, error) {
	columns := make([]notion.Block, len(b.Columns))
	for i := range b.Columns {
		columns[i] = notion.Block{
			Type:   notion.TypeColumn,
			Column: &notion.ContainerBlock{Children: []notion.Block{placeholder()}},
		}
	}
	listID, err := w.appendContainer(parentID, path, "append_column_list", notion.Block{
		Type:       notion.TypeColumnList,
		ColumnList: &notion.ContainerBlock{Children: columns},
	})
	if err != nil {
		return "", err
	}
	w.created += len(columns)

	remote, err := w.store.ListChildren(w.ctx, listID)
	if err != nil {
		return "", w.fail(path, "list_columns", err)
	}
	if len(remote) != len(b.Columns) {
		return "", w.fail(path, "list_columns", fmt.Errorf("expected %d columns, found %d", len(b.Columns), len(remote)))
	}

	for i, col := range b.Columns {
		colPath := append(path, i)
		placeholders, err := w.store.ListChildren(w.ctx, remote[i].ID)
		if err != nil {
			return "", w.fail(colPath, "list_column", err)
		}
		if err := w.children(remote[i].ID, colPath, col.Children); err != nil {
			return "", err
		}
		for _, p := range placeholders {
			if err := w.store.DeleteBlock(w.ctx, p.ID); err != nil {
				return "", w.fail(colPath, "delete_placeholder", err)
			}
		}
	}
	return listID, nil
}
