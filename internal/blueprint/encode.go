package blueprint

import "encoding/json"

// The MarshalJSON methods below add the "type" discriminator and write
// required arrays as [] rather than null, so that an encoded document parses
// back to an equal one.

// MarshalJSON encodes the page with its type, title, icon and children.
func (p *Page) MarshalJSON() ([]byte, error) {
	type alias Page
	return json.Marshal(struct {
		Type Type `json:"type"`
		*alias
		Children []Block `json:"children"`
	}{TypePage, (*alias)(p), blocks(p.Children)})
}

// MarshalJSON encodes the database with its schema.
func (d *Database) MarshalJSON() ([]byte, error) {
	type alias Database
	schema := d.Schema
	if schema == nil {
		schema = Schema{}
	}
	return json.Marshal(struct {
		Type Type `json:"type"`
		*alias
		Schema Schema `json:"schema"`
	}{TypeDatabase, (*alias)(d), schema})
}

// MarshalJSON encodes the divider as its bare type.
func (*Divider) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type Type `json:"type"`
	}{TypeDivider})
}

// MarshalJSON encodes the table of contents as its bare type.
func (*TableOfContents) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type Type `json:"type"`
	}{TypeTableOfContents})
}

// MarshalJSON encodes the heading, its level carried by the type (heading_1..3).
func (h *Heading) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type Type   `json:"type"`
		Text string `json:"text"`
	}{h.Type(), h.Text})
}

// MarshalJSON encodes the paragraph's spans.
func (p *Paragraph) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    Type       `json:"type"`
		Content []RichSpan `json:"content"`
	}{TypeParagraph, spans(p.Content)})
}

// MarshalJSON encodes the list as bulleted_list or numbered_list.
func (l *List) MarshalJSON() ([]byte, error) {
	items := l.Items
	if items == nil {
		items = []string{}
	}
	return json.Marshal(struct {
		Type  Type     `json:"type"`
		Items []string `json:"items"`
	}{l.Type(), items})
}

// MarshalJSON encodes the to-do items with their checked state.
func (t *ToDoList) MarshalJSON() ([]byte, error) {
	items := t.Items
	if items == nil {
		items = []ToDoItem{}
	}
	return json.Marshal(struct {
		Type  Type       `json:"type"`
		Items []ToDoItem `json:"items"`
	}{TypeToDoList, items})
}

// MarshalJSON encodes the toggle's text and children.
func (t *Toggle) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     Type    `json:"type"`
		Text     string  `json:"text"`
		Children []Block `json:"children"`
	}{TypeToggle, t.Text, blocks(t.Children)})
}

// MarshalJSON encodes the columns in order.
func (c *ColumnList) MarshalJSON() ([]byte, error) {
	columns := c.Columns
	if columns == nil {
		columns = []*Column{}
	}
	return json.Marshal(struct {
		Type    Type      `json:"type"`
		Columns []*Column `json:"columns"`
	}{TypeColumnList, columns})
}

// MarshalJSON encodes the column's children.
func (c *Column) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     Type    `json:"type"`
		Children []Block `json:"children"`
	}{TypeColumn, blocks(c.Children)})
}

// MarshalJSON encodes the callout's icon, color, spans and children.
func (c *Callout) MarshalJSON() ([]byte, error) {
	type alias Callout
	return json.Marshal(struct {
		Type Type `json:"type"`
		*alias
		Content []RichSpan `json:"content"`
	}{TypeCallout, (*alias)(c), spans(c.Content)})
}

// MarshalJSON encodes the quote's spans and children.
func (q *Quote) MarshalJSON() ([]byte, error) {
	type alias Quote
	return json.Marshal(struct {
		Type Type `json:"type"`
		*alias
		Content []RichSpan `json:"content"`
	}{TypeQuote, (*alias)(q), spans(q.Content)})
}

// MarshalJSON encodes the result in the generation envelope
// {"response": ..., "blueprint": ...}.
func (r *GenerationResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Response  string `json:"response"`
		Blueprint *Page  `json:"blueprint"`
	}{r.Narrative, r.Document})
}

// Encode renders a block as indented JSON.
func Encode(b Block) ([]byte, error) {
	return json.MarshalIndent(b, "", "  ")
}

func blocks(b []Block) []Block {
	if b == nil {
		return []Block{}
	}
	return b
}

func spans(s []RichSpan) []RichSpan {
	if s == nil {
		return []RichSpan{}
	}
	return s
}
