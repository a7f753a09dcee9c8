package notion

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/buger/jsonparser"
)

// MaxTextLength is the longest content the API accepts in one rich text object.
const MaxTextLength = 2000

// Block types as they appear on the wire.
const (
	TypeParagraph        = "paragraph"
	TypeHeading1         = "heading_1"
	TypeHeading2         = "heading_2"
	TypeHeading3         = "heading_3"
	TypeBulletedListItem = "bulleted_list_item"
	TypeNumberedListItem = "numbered_list_item"
	TypeToDo             = "to_do"
	TypeToggle           = "toggle"
	TypeQuote            = "quote"
	TypeCallout          = "callout"
	TypeDivider          = "divider"
	TypeTableOfContents  = "table_of_contents"
	TypeColumnList       = "column_list"
	TypeColumn           = "column"
	TypeChildPage        = "child_page"
	TypeChildDatabase    = "child_database"
)

// RichText is a text object with annotations
type RichText struct {
	Type        string       `json:"type"`
	Text        *TextContent `json:"text,omitempty"`
	Annotations *Annotations `json:"annotations,omitempty"`
	PlainText   string       `json:"plain_text,omitempty"`
}

// TextContent is the text of a rich text object.
type TextContent struct {
	Content string `json:"content"`
}

// Annotations are the style flags of a rich text object.
type Annotations struct {
	Bold          bool   `json:"bold"`
	Italic        bool   `json:"italic"`
	Strikethrough bool   `json:"strikethrough"`
	Underline     bool   `json:"underline"`
	Code          bool   `json:"code"`
	Color         string `json:"color,omitempty"`
}

// Content returns the text of r, preferring text.content over plain_text.
func (r RichText) Content() string {
	if r.Text != nil {
		return r.Text.Content
	}
	return r.PlainText
}

// NewText builds a plain text object.
func NewText(content string, ann *Annotations) RichText {
	return RichText{Type: "text", Text: &TextContent{Content: content}, Annotations: ann}
}

// PlainText joins the content of every rich text object.
func PlainText(rt []RichText) string {
	var sb strings.Builder
	for _, r := range rt {
		sb.WriteString(r.Content())
	}
	return sb.String()
}

// Icon is an emoji icon
type Icon struct {
	Type  string `json:"type"`
	Emoji string `json:"emoji,omitempty"`
}

// EmojiIcon returns nil for an empty emoji.
func EmojiIcon(emoji string) *Icon {
	if emoji == "" {
		return nil
	}
	return &Icon{Type: "emoji", Emoji: emoji}
}

// EmojiOf returns the emoji of i, or "" for nil and non-emoji icons.
func EmojiOf(i *Icon) string {
	if i == nil {
		return ""
	}
	return i.Emoji
}

// TextBlock is the payload of paragraph, heading, list item, toggle and quote blocks.
type TextBlock struct {
	RichText []RichText `json:"rich_text"`
	Color    string     `json:"color,omitempty"`
	Children []Block    `json:"children,omitempty"`
}

// ToDoBlock is the payload of a to_do block.
type ToDoBlock struct {
	RichText []RichText `json:"rich_text"`
	Checked  bool       `json:"checked"`
	Children []Block    `json:"children,omitempty"`
}

// CalloutBlock is the payload of a callout block.
type CalloutBlock struct {
	RichText []RichText `json:"rich_text"`
	Icon     *Icon      `json:"icon,omitempty"`
	Color    string     `json:"color,omitempty"`
	Children []Block    `json:"children,omitempty"`
}

// ContainerBlock is the payload of column_list and column blocks.
type ContainerBlock struct {
	Children []Block `json:"children,omitempty"`
}

// ChildTitle is the payload of child_page and child_database blocks.
type ChildTitle struct {
	Title string `json:"title"`
}

// Empty is the payload of blocks that carry no content, such as divider.
type Empty struct{}

// Block is a block object. Exactly one payload field is set, matching Type.
type Block struct {
	Object      string `json:"object,omitempty"`
	ID          string `json:"id,omitempty"`
	Type        string `json:"type"`
	HasChildren bool   `json:"has_children,omitempty"`

	Paragraph        *TextBlock      `json:"paragraph,omitempty"`
	Heading1         *TextBlock      `json:"heading_1,omitempty"`
	Heading2         *TextBlock      `json:"heading_2,omitempty"`
	Heading3         *TextBlock      `json:"heading_3,omitempty"`
	BulletedListItem *TextBlock      `json:"bulleted_list_item,omitempty"`
	NumberedListItem *TextBlock      `json:"numbered_list_item,omitempty"`
	Toggle           *TextBlock      `json:"toggle,omitempty"`
	Quote            *TextBlock      `json:"quote,omitempty"`
	ToDo             *ToDoBlock      `json:"to_do,omitempty"`
	Callout          *CalloutBlock   `json:"callout,omitempty"`
	Divider          *Empty          `json:"divider,omitempty"`
	TableOfContents  *Empty          `json:"table_of_contents,omitempty"`
	ColumnList       *ContainerBlock `json:"column_list,omitempty"`
	Column           *ContainerBlock `json:"column,omitempty"`
	ChildPage        *ChildTitle     `json:"child_page,omitempty"`
	ChildDatabase    *ChildTitle     `json:"child_database,omitempty"`
}

// Text returns the payload of a text-carrying block, or nil.
func (b *Block) Text() *TextBlock {
	switch b.Type {
	case TypeParagraph:
		return b.Paragraph
	case TypeHeading1:
		return b.Heading1
	case TypeHeading2:
		return b.Heading2
	case TypeHeading3:
		return b.Heading3
	case TypeBulletedListItem:
		return b.BulletedListItem
	case TypeNumberedListItem:
		return b.NumberedListItem
	case TypeToggle:
		return b.Toggle
	case TypeQuote:
		return b.Quote
	default:
		return nil
	}
}

// Detach returns a copy of b without nested children, and the children
// that were removed.
func (b Block) Detach() (Block, []Block) {
	detachText := func(t **TextBlock) []Block {
		if *t == nil {
			return nil
		}
		c := **t
		kids := c.Children
		c.Children = nil
		*t = &c
		return kids
	}

	var kids []Block
	switch b.Type {
	case TypeParagraph:
		kids = detachText(&b.Paragraph)
	case TypeHeading1:
		kids = detachText(&b.Heading1)
	case TypeHeading2:
		kids = detachText(&b.Heading2)
	case TypeHeading3:
		kids = detachText(&b.Heading3)
	case TypeBulletedListItem:
		kids = detachText(&b.BulletedListItem)
	case TypeNumberedListItem:
		kids = detachText(&b.NumberedListItem)
	case TypeToggle:
		kids = detachText(&b.Toggle)
	case TypeQuote:
		kids = detachText(&b.Quote)
	case TypeToDo:
		if b.ToDo != nil {
			c := *b.ToDo
			kids, c.Children = c.Children, nil
			b.ToDo = &c
		}
	case TypeCallout:
		if b.Callout != nil {
			c := *b.Callout
			kids, c.Children = c.Children, nil
			b.Callout = &c
		}
	case TypeColumnList:
		if b.ColumnList != nil {
			kids = b.ColumnList.Children
			b.ColumnList = &ContainerBlock{}
		}
	case TypeColumn:
		if b.Column != nil {
			kids = b.Column.Children
			b.Column = &ContainerBlock{}
		}
	}
	return b, kids
}

// Page is a page object. Title is extracted from the title property.
type Page struct {
	ID    string
	Icon  *Icon
	Title string
}

func (p *Page) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID   string `json:"id"`
		Icon *Icon  `json:"icon"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.ID = raw.ID
	p.Icon = raw.Icon
	p.Title = titleProperty(data)
	return nil
}

// titleProperty finds the property of type "title" and joins its text.
func titleProperty(page []byte) string {
	var title string
	_ = jsonparser.ObjectEach(page, func(_ []byte, value []byte, dataType jsonparser.ValueType, _ int) error {
		if dataType != jsonparser.Object {
			return nil
		}
		if typ, _ := jsonparser.GetString(value, "type"); typ != "title" {
			return nil
		}
		var sb strings.Builder
		_, _ = jsonparser.ArrayEach(value, func(item []byte, _ jsonparser.ValueType, _ int, _ error) {
			if text, err := jsonparser.GetString(item, "plain_text"); err == nil {
				sb.WriteString(text)
			} else if text, err := jsonparser.GetString(item, "text", "content"); err == nil {
				sb.WriteString(text)
			}
		}, "title")
		title = sb.String()
		return nil
	}, "properties")
	return title
}

// Database is a database object
type Database struct {
	ID         string              `json:"id,omitempty"`
	Title      []RichText          `json:"title"`
	Icon       *Icon               `json:"icon,omitempty"`
	IsInline   bool                `json:"is_inline"`
	Properties map[string]Property `json:"properties"`
}

// SelectOption is one choice of a select or multi_select property.
type SelectOption struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Property is a database property schema. On the wire its configuration is
// keyed by its type: {"number": {"format": "dollar"}}.
type Property struct {
	ID      string
	Type    string
	Format  string
	Options []SelectOption
}

func (p Property) MarshalJSON() ([]byte, error) {
	var config any = Empty{}
	switch p.Type {
	case "number":
		config = struct {
			Format string `json:"format,omitempty"`
		}{p.Format}
	case "select", "multi_select":
		options := p.Options
		if options == nil {
			options = []SelectOption{}
		}
		config = struct {
			Options []SelectOption `json:"options"`
		}{options}
	}
	return json.Marshal(map[string]any{p.Type: config})
}

func (p *Property) UnmarshalJSON(data []byte) error {
	typ, err := jsonparser.GetString(data, "type")
	if err != nil {
		return fmt.Errorf("property type: %w", err)
	}
	p.Type = typ
	p.ID, _ = jsonparser.GetString(data, "id")
	p.Format, _ = jsonparser.GetString(data, typ, "format")
	p.Options = nil
	if options, _, _, err := jsonparser.Get(data, typ, "options"); err == nil {
		if err := json.Unmarshal(options, &p.Options); err != nil {
			return fmt.Errorf("property options: %w", err)
		}
	}
	return nil
}

// listResponse is one page of a paginated list.
type listResponse struct {
	Results    []Block `json:"results"`
	NextCursor *string `json:"next_cursor"`
	HasMore    bool    `json:"has_more"`
}
