package blueprint

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/buger/jsonparser"
)

// container identifies where a block sits, which decides the variants it may be.
type container int

const (
	inPage container = iota
	inToggle
	inNested // column, callout, quote
)

func (c container) String() string {
	switch c {
	case inPage:
		return "page"
	case inToggle:
		return "toggle"
	default:
		return "column, callout or quote"
	}
}

func (c container) allows(t Type) bool {
	switch t {
	case TypeColumn:
		return false
	case TypePage, TypeDatabase:
		return c == inPage
	case TypeColumnList:
		return c != inNested
	default:
		return true
	}
}

var knownTypes = func() map[Type]bool {
	m := make(map[Type]bool, len(AllTypes))
	for _, t := range AllTypes {
		m[t] = true
	}
	return m
}()

// Parse decodes the raw output of one generation attempt, the JSON object
// {"response": string, "blueprint": page}, and checks every invariant of the
// document model. It returns *MalformedDocumentError when raw is not JSON and
// *ValidationError listing all violations otherwise.
func Parse(raw []byte) (*GenerationResult, error) {
	if err := checkSyntax(raw); err != nil {
		return nil, err
	}

	d := &decoder{}
	top, ok := d.object("$", raw)
	if !ok {
		return nil, d.err()
	}

	result := &GenerationResult{}
	result.Narrative = d.str(top, "response", true)

	if bp, ok := top.fields["blueprint"]; ok && !isNull(bp) {
		result.Document = d.root("blueprint", bp)
	} else {
		d.add("blueprint", CodeMissingField, "field is required")
	}

	if err := d.err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ParsePage decodes a bare page blueprint (no narrative envelope) with the
// same invariants as Parse.
func ParsePage(raw []byte) (*Page, error) {
	if err := checkSyntax(raw); err != nil {
		return nil, err
	}
	d := &decoder{}
	page := d.root("$", raw)
	if err := d.err(); err != nil {
		return nil, err
	}
	return page, nil
}

func checkSyntax(raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		var serr *json.SyntaxError
		if errors.As(err, &serr) {
			return &MalformedDocumentError{Offset: serr.Offset, Err: err}
		}
		return &MalformedDocumentError{Err: err}
	}
	return nil
}

type object struct {
	path   string
	fields map[string]json.RawMessage
}

type decoder struct {
	violations []Violation
}

func (d *decoder) add(path string, code Code, format string, args ...any) {
	d.violations = append(d.violations, Violation{Path: path, Code: code, Message: fmt.Sprintf(format, args...)})
}

func (d *decoder) err() error {
	if len(d.violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: d.violations}
}

func (d *decoder) root(path string, raw json.RawMessage) *Page {
	b := d.block(path, raw, inPage)
	if b == nil {
		return nil
	}
	page, ok := b.(*Page)
	if !ok {
		d.add(path, CodeNotAllowed, "root block must be a page, got %s", b.Type())
		return nil
	}
	if len(page.Children) <= 1 {
		d.add(path+".children", CodeDegenerate, "root page must have more than one child, got %d", len(page.Children))
	}
	return page
}

func (d *decoder) object(path string, raw json.RawMessage) (object, bool) {
	o := object{path: path}
	if err := json.Unmarshal(raw, &o.fields); err != nil || o.fields == nil {
		d.add(path, CodeInvalidValue, "expected an object")
		return o, false
	}
	return o, true
}

func (d *decoder) field(o object, key string, required bool) (json.RawMessage, bool) {
	raw, ok := o.fields[key]
	if !ok || isNull(raw) {
		if required {
			d.add(o.path+"."+key, CodeMissingField, "field is required")
		}
		return nil, false
	}
	return raw, true
}

func (d *decoder) str(o object, key string, required bool) string {
	raw, ok := d.field(o, key, required)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		d.add(o.path+"."+key, CodeInvalidValue, "expected a string")
		return ""
	}
	return s
}

func (d *decoder) boolean(o object, key string, required bool) bool {
	raw, ok := d.field(o, key, required)
	if !ok {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		d.add(o.path+"."+key, CodeInvalidValue, "expected a boolean")
		return false
	}
	return b
}

func (d *decoder) array(o object, key string, required bool) ([]json.RawMessage, bool) {
	raw, ok := d.field(o, key, required)
	if !ok {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		d.add(o.path+"."+key, CodeInvalidValue, "expected an array")
		return nil, false
	}
	return items, true
}

func (d *decoder) block(path string, raw json.RawMessage, in container) Block {
	o, ok := d.object(path, raw)
	if !ok {
		return nil
	}

	value, dataType, _, err := jsonparser.Get(raw, "type")
	if dataType == jsonparser.NotExist || dataType == jsonparser.Null {
		d.add(path+".type", CodeUnknownBlockType, "block type is missing")
		return nil
	}
	if err != nil || dataType != jsonparser.String {
		d.add(path+".type", CodeUnknownBlockType, "block type must be a string")
		return nil
	}
	typ, err := jsonparser.ParseString(value)
	if err != nil {
		d.add(path+".type", CodeUnknownBlockType, "block type must be a string")
		return nil
	}

	t := Type(typ)
	if !knownTypes[t] {
		d.add(path+".type", CodeUnknownBlockType, "unknown block type %q", typ)
		return nil
	}
	if !in.allows(t) {
		d.add(path+".type", CodeNotAllowed, "%s is not allowed inside a %s", t, in)
	}

	switch t {
	case TypePage:
		return &Page{
			Title:    d.str(o, "title", true),
			Icon:     d.str(o, "icon", false),
			Children: d.children(o, "children", true, inPage),
		}
	case TypeDatabase:
		return d.database(o)
	case TypeDivider:
		return &Divider{}
	case TypeTableOfContents:
		return &TableOfContents{}
	case TypeHeading1, TypeHeading2, TypeHeading3:
		return &Heading{Level: int(t[len(t)-1] - '0'), Text: d.str(o, "text", true)}
	case TypeParagraph:
		return &Paragraph{Content: d.spans(o, "content", true)}
	case TypeBulletedList, TypeNumberedList:
		return &List{Ordered: t == TypeNumberedList, Items: d.items(o)}
	case TypeToDoList:
		return &ToDoList{Items: d.todos(o)}
	case TypeToggle:
		return &Toggle{
			Text:     d.str(o, "text", true),
			Children: d.children(o, "children", true, inToggle),
		}
	case TypeColumnList:
		return d.columnList(o)
	case TypeCallout:
		c := &Callout{
			Icon:     d.str(o, "icon", true),
			Color:    Color(d.str(o, "color", true)),
			Content:  d.spans(o, "content", true),
			Children: d.children(o, "children", false, inNested),
		}
		if c.Color != "" && !isColor(c.Color, BackgroundColors) {
			d.add(o.path+".color", CodeInvalidValue, "unknown background color %q", c.Color)
		}
		return c
	case TypeQuote:
		return &Quote{
			Content:  d.spans(o, "content", true),
			Children: d.children(o, "children", false, inNested),
		}
	case TypeColumn:
		// Reachable only for a column outside a column list, already
		// reported as not allowed.
		return &Column{Children: d.children(o, "children", false, inNested)}
	}
	d.add(path+".type", CodeUnknownBlockType, "unknown block type %q", typ)
	return nil
}

func (d *decoder) children(o object, key string, required bool, in container) []Block {
	items, ok := d.array(o, key, required)
	if !ok || len(items) == 0 {
		return nil
	}
	out := make([]Block, 0, len(items))
	for i, raw := range items {
		out = append(out, d.block(fmt.Sprintf("%s.%s[%d]", o.path, key, i), raw, in))
	}
	return Coalesce(out)
}

// Coalesce merges runs of adjacent lists of the same kind (bulleted,
// numbered or to-do) into one block holding every item in order. The
// remote store keeps list items as individual siblings, so adjacent lists
// of one kind cannot be told apart once written.
func Coalesce(blocks []Block) []Block {
	out := blocks[:0:0]
	for _, b := range blocks {
		if n := len(out); n > 0 {
			switch cur := b.(type) {
			case *List:
				if prev, ok := out[n-1].(*List); ok && prev.Ordered == cur.Ordered {
					out[n-1] = &List{Ordered: prev.Ordered, Items: append(append([]string(nil), prev.Items...), cur.Items...)}
					continue
				}
			case *ToDoList:
				if prev, ok := out[n-1].(*ToDoList); ok {
					out[n-1] = &ToDoList{Items: append(append([]ToDoItem(nil), prev.Items...), cur.Items...)}
					continue
				}
			}
		}
		out = append(out, b)
	}
	return out
}

func (d *decoder) columnList(o object) *ColumnList {
	items, ok := d.array(o, "columns", true)
	if !ok {
		return &ColumnList{}
	}
	if len(items) < 2 {
		d.add(o.path+".columns", CodeTooFewColumns, "a column list needs at least 2 columns, got %d", len(items))
	}
	cl := &ColumnList{Columns: make([]*Column, 0, len(items))}
	for i, raw := range items {
		path := fmt.Sprintf("%s.columns[%d]", o.path, i)
		co, ok := d.object(path, raw)
		if !ok {
			continue
		}
		if typ := d.str(co, "type", true); typ != "" && Type(typ) != TypeColumn {
			d.add(path+".type", CodeNotAllowed, "column list entries must be columns, got %q", typ)
		}
		col := &Column{Children: d.children(co, "children", true, inNested)}
		if _, present := co.fields["children"]; present && len(col.Children) == 0 {
			d.add(path+".children", CodeEmptyColumn, "a column needs at least one child")
		}
		cl.Columns = append(cl.Columns, col)
	}
	return cl
}

func (d *decoder) spans(o object, key string, required bool) []RichSpan {
	items, ok := d.array(o, key, required)
	if !ok || len(items) == 0 {
		return nil
	}
	out := make([]RichSpan, 0, len(items))
	for i, raw := range items {
		path := fmt.Sprintf("%s.%s[%d]", o.path, key, i)
		so, ok := d.object(path, raw)
		if !ok {
			continue
		}
		span := RichSpan{Text: d.str(so, "text", true)}
		styles, _ := d.array(so, "style", false)
		for j, sraw := range styles {
			var s string
			if err := json.Unmarshal(sraw, &s); err != nil || !isStyle(Style(s)) {
				d.add(fmt.Sprintf("%s.style[%d]", path, j), CodeInvalidValue, "unknown text style %s", bytes.TrimSpace(sraw))
				continue
			}
			span.Styles = append(span.Styles, Style(s))
		}
		span.Styles = canonicalStyles(span.Styles)
		out = append(out, span)
	}
	return out
}

// canonicalStyles orders styles as AllStyles does and drops duplicates.
func canonicalStyles(styles []Style) []Style {
	if len(styles) == 0 {
		return nil
	}
	var out []Style
	for _, st := range AllStyles {
		for _, s := range styles {
			if s == st {
				out = append(out, st)
				break
			}
		}
	}
	return out
}

func isStyle(s Style) bool {
	for _, st := range AllStyles {
		if st == s {
			return true
		}
	}
	return false
}

func (d *decoder) items(o object) []string {
	items, ok := d.array(o, "items", true)
	if !ok {
		return nil
	}
	if len(items) == 0 {
		d.add(o.path+".items", CodeInvalidValue, "a list needs at least one item")
		return nil
	}
	out := make([]string, 0, len(items))
	for i, raw := range items {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			d.add(fmt.Sprintf("%s.items[%d]", o.path, i), CodeInvalidValue, "expected a string")
			continue
		}
		out = append(out, s)
	}
	return out
}

func (d *decoder) todos(o object) []ToDoItem {
	items, ok := d.array(o, "items", true)
	if !ok {
		return nil
	}
	if len(items) == 0 {
		d.add(o.path+".items", CodeInvalidValue, "a list needs at least one item")
		return nil
	}
	out := make([]ToDoItem, 0, len(items))
	for i, raw := range items {
		io, ok := d.object(fmt.Sprintf("%s.items[%d]", o.path, i), raw)
		if !ok {
			continue
		}
		out = append(out, ToDoItem{
			Text:    d.str(io, "text", true),
			Checked: d.boolean(io, "checked", true),
		})
	}
	return out
}

func (d *decoder) database(o object) *Database {
	db := &Database{
		Title:    d.str(o, "title", true),
		Icon:     d.str(o, "icon", false),
		IsInline: d.boolean(o, "is_inline", false),
	}
	raw, ok := d.field(o, "schema", true)
	if !ok {
		return db
	}
	so, ok := d.object(o.path+".schema", raw)
	if !ok {
		return db
	}

	db.Schema = make(Schema, len(so.fields))
	for name, praw := range so.fields {
		db.Schema[name] = d.property(so.path+"."+name, praw)
	}

	titles := 0
	for _, p := range db.Schema {
		if p.Kind == KindTitle {
			titles++
		}
	}
	if titles != 1 {
		d.add(so.path, CodeTitleCount, "there must be exactly one property with type 'title', got %d", titles)
	}
	return db
}

func (d *decoder) property(path string, raw json.RawMessage) PropertyDescriptor {
	po, ok := d.object(path, raw)
	if !ok {
		return PropertyDescriptor{}
	}
	p := PropertyDescriptor{
		Kind:   PropertyKind(d.str(po, "type", true)),
		Format: d.str(po, "format", false),
	}
	if p.Kind != "" && !propertyKinds[p.Kind] {
		d.add(path+".type", CodeInvalidValue, "unknown property type %q", p.Kind)
	}

	switch p.Kind {
	case KindNumber:
		if p.Format == "" {
			d.add(path+".format", CodeNumberFormat, "property with type 'number' requires 'format' to be specified")
		} else if !isNumberFormat(p.Format) {
			d.add(path+".format", CodeNumberFormat, "unknown number format %q", p.Format)
		}
	case KindSelect, KindMultiSelect:
		options, _ := d.array(po, "options", false)
		if len(options) == 0 {
			d.add(path+".options", CodeMissingOptions, "property with type '%s' requires 'options' to be specified", p.Kind)
		}
		for i, oraw := range options {
			opath := fmt.Sprintf("%s.options[%d]", path, i)
			oo, ok := d.object(opath, oraw)
			if !ok {
				continue
			}
			opt := Option{Name: d.str(oo, "name", true), Color: Color(d.str(oo, "color", true))}
			if opt.Color != "" && !isColor(opt.Color, Colors) {
				d.add(opath+".color", CodeInvalidValue, "unknown color %q", opt.Color)
			}
			p.Options = append(p.Options, opt)
		}
	}
	return p
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
