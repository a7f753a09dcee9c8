package blueprint

// Type is the wire discriminator of a block ("type" field)
type Type string

const (
	TypePage            Type = "page"
	TypeDatabase        Type = "database"
	TypeDivider         Type = "divider"
	TypeTableOfContents Type = "table_of_contents"
	TypeHeading1        Type = "heading_1"
	TypeHeading2        Type = "heading_2"
	TypeHeading3        Type = "heading_3"
	TypeParagraph       Type = "paragraph"
	TypeBulletedList    Type = "bulleted_list"
	TypeNumberedList    Type = "numbered_list"
	TypeToDoList        Type = "to_do_list"
	TypeToggle          Type = "toggle"
	TypeColumnList      Type = "column_list"
	TypeColumn          Type = "column"
	TypeCallout         Type = "callout"
	TypeQuote           Type = "quote"
)

// AllTypes lists every block type in declaration order.
var AllTypes = []Type{
	TypePage, TypeDatabase, TypeDivider, TypeTableOfContents,
	TypeHeading1, TypeHeading2, TypeHeading3, TypeParagraph,
	TypeBulletedList, TypeNumberedList, TypeToDoList, TypeToggle,
	TypeColumnList, TypeColumn, TypeCallout, TypeQuote,
}

// Block is one node of the document tree. The variant set is closed:
// every implementation lives in this file.
type Block interface {
	Type() Type
	block()
}

// Page is a titled container. It is the root of every generated document.
type Page struct {
	Title    string  `json:"title"`
	Icon     string  `json:"icon,omitempty"`
	Children []Block `json:"children"`
}

// Database is a titled table with a property schema. It owns no blocks.
type Database struct {
	Title    string `json:"title"`
	Icon     string `json:"icon,omitempty"`
	IsInline bool   `json:"is_inline,omitempty"`
	Schema   Schema `json:"schema"`
}

// Divider is a horizontal rule.
type Divider struct{}

// TableOfContents lists the headings of the page it sits in.
type TableOfContents struct{}

// Heading is a level 1-3 heading.
type Heading struct {
	Level int    `json:"-"`
	Text  string `json:"text"`
}

// Paragraph is a run of styled text.
type Paragraph struct {
	Content []RichSpan `json:"content"`
}

// List holds the items of a run of bulleted (or numbered) list items.
type List struct {
	Ordered bool     `json:"-"`
	Items   []string `json:"items"`
}

// ToDoItem is one checkbox entry of a ToDoList.
type ToDoItem struct {
	Text    string `json:"text"`
	Checked bool   `json:"checked"`
}

// ToDoList holds the items of a run of to-do blocks.
type ToDoList struct {
	Items []ToDoItem `json:"items"`
}

// Toggle is a collapsible line of text whose children are hidden until opened.
type Toggle struct {
	Text     string  `json:"text"`
	Children []Block `json:"children"`
}

// ColumnList lays out its columns side by side. It needs at least two.
type ColumnList struct {
	Columns []*Column `json:"columns"`
}

// Column is one column of a ColumnList and holds at least one block.
type Column struct {
	Children []Block `json:"children"`
}

// Callout is highlighted text with an emoji icon and a background color.
type Callout struct {
	Icon     string     `json:"icon"`
	Color    Color      `json:"color"`
	Content  []RichSpan `json:"content"`
	Children []Block    `json:"children,omitempty"`
}

// Quote is a block quotation, optionally with nested blocks.
type Quote struct {
	Content  []RichSpan `json:"content"`
	Children []Block    `json:"children,omitempty"`
}

func (*Page) Type() Type            { return TypePage }
func (*Database) Type() Type        { return TypeDatabase }
func (*Divider) Type() Type         { return TypeDivider }
func (*TableOfContents) Type() Type { return TypeTableOfContents }
func (*Paragraph) Type() Type       { return TypeParagraph }
func (*ToDoList) Type() Type        { return TypeToDoList }
func (*Toggle) Type() Type          { return TypeToggle }
func (*ColumnList) Type() Type      { return TypeColumnList }
func (*Column) Type() Type          { return TypeColumn }
func (*Callout) Type() Type         { return TypeCallout }
func (*Quote) Type() Type           { return TypeQuote }

func (h *Heading) Type() Type {
	switch h.Level {
	case 1:
		return TypeHeading1
	case 2:
		return TypeHeading2
	default:
		return TypeHeading3
	}
}

func (l *List) Type() Type {
	if l.Ordered {
		return TypeNumberedList
	}
	return TypeBulletedList
}

func (*Page) block()            {}
func (*Database) block()        {}
func (*Divider) block()         {}
func (*TableOfContents) block() {}
func (*Heading) block()         {}
func (*Paragraph) block()       {}
func (*List) block()            {}
func (*ToDoList) block()        {}
func (*Toggle) block()          {}
func (*ColumnList) block()      {}
func (*Column) block()          {}
func (*Callout) block()         {}
func (*Quote) block()           {}

// Children returns the ordered child blocks of a container variant, or nil
// for leaves. A ColumnList's children are its columns.
func Children(b Block) []Block {
	switch b := b.(type) {
	case *Page:
		return b.Children
	case *Toggle:
		return b.Children
	case *Column:
		return b.Children
	case *Callout:
		return b.Children
	case *Quote:
		return b.Children
	case *ColumnList:
		out := make([]Block, len(b.Columns))
		for i, c := range b.Columns {
			out[i] = c
		}
		return out
	default:
		return nil
	}
}

// GenerationResult is the parsed output of one generation attempt.
type GenerationResult struct {
	Narrative string
	Document  *Page
}

// RichSpan is a piece of text with inline styles. A sequence of spans is
// rendered by concatenation.
type RichSpan struct {
	Text   string  `json:"text"`
	Styles []Style `json:"style,omitempty"`
}

// Style is an inline text style.
type Style string

const (
	StyleBold          Style = "bold"
	StyleItalic        Style = "italic"
	StyleStrikethrough Style = "strikethrough"
	StyleUnderline     Style = "underline"
	StyleCode          Style = "code"
)

// AllStyles lists the styles in canonical order.
var AllStyles = []Style{StyleBold, StyleItalic, StyleStrikethrough, StyleUnderline, StyleCode}

// Has reports whether the span carries style s.
func (r RichSpan) Has(s Style) bool {
	for _, st := range r.Styles {
		if st == s {
			return true
		}
	}
	return false
}

// Color is a text or background color name.
type Color string

// Colors are the colors a select option may take.
var Colors = []Color{
	"blue", "brown", "default", "gray", "green", "orange", "pink", "purple", "red", "yellow",
}

// BackgroundColors are the colors a callout may take.
var BackgroundColors = []Color{
	"blue_background", "brown_background", "default", "gray_background", "green_background",
	"orange_background", "pink_background", "purple_background", "red_background", "yellow_background",
}

func isColor(c Color, palette []Color) bool {
	for _, p := range palette {
		if p == c {
			return true
		}
	}
	return false
}
