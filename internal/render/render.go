// Package render turns documents into HTML and markdown.
package render

import (
	"bytes"
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/renderinc/notion-architect/internal/blueprint"
)

// Node builds the HTML tree of a page. The page title is the only <h1>;
// document headings start at <h2>.
func Node(page *blueprint.Page) *html.Node {
	r := &renderer{page: page}
	article := el(atom.Article)
	article.AppendChild(withText(el(atom.H1), title(page.Icon, page.Title)))
	r.blocks(article, page.Children, 0)
	return article
}

// HTML renders a page as an HTML fragment.
func HTML(page *blueprint.Page) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, Node(page)); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}

// Markdown renders a page as markdown.
func Markdown(page *blueprint.Page) (string, error) {
	out, err := htmltomarkdown.ConvertNode(Node(page))
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}
	return string(out), nil
}

func el(a atom.Atom, children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func withText(n *html.Node, s string) *html.Node {
	n.AppendChild(text(s))
	return n
}

func title(icon, t string) string {
	if icon == "" {
		return t
	}
	return icon + " " + t
}

var styleAtoms = map[blueprint.Style]atom.Atom{
	blueprint.StyleBold:          atom.Strong,
	blueprint.StyleItalic:        atom.Em,
	blueprint.StyleStrikethrough: atom.Del,
	blueprint.StyleUnderline:     atom.U,
	blueprint.StyleCode:          atom.Code,
}

func spans(parent *html.Node, content []blueprint.RichSpan) *html.Node {
	for _, span := range content {
		n := text(span.Text)
		// code innermost so the other styles wrap it
		for i := len(blueprint.AllStyles) - 1; i >= 0; i-- {
			if s := blueprint.AllStyles[i]; span.Has(s) {
				n = el(styleAtoms[s], n)
			}
		}
		parent.AppendChild(n)
	}
	return parent
}

type renderer struct {
	page *blueprint.Page
}

// heading maps a document heading level to an HTML heading below depth
// levels of nested pages, capped at <h6>.
func heading(level, depth int) atom.Atom {
	hs := []atom.Atom{atom.H2, atom.H3, atom.H4, atom.H5, atom.H6}
	i := level - 1 + depth
	if i >= len(hs) {
		i = len(hs) - 1
	}
	return hs[i]
}

func (r *renderer) blocks(parent *html.Node, blocks []blueprint.Block, depth int) {
	for _, b := range blocks {
		r.block(parent, b, depth)
	}
}

func (r *renderer) block(parent *html.Node, b blueprint.Block, depth int) {
	switch b := b.(type) {
	case *blueprint.Page:
		section := el(atom.Section, withText(el(heading(1, depth)), title(b.Icon, b.Title)))
		r.blocks(section, b.Children, depth+1)
		parent.AppendChild(section)

	case *blueprint.Database:
		parent.AppendChild(withText(el(heading(2, depth)), title(b.Icon, b.Title)))
		ul := el(atom.Ul)
		for _, name := range b.Schema.Names() {
			p := b.Schema[name]
			li := el(atom.Li, withText(el(atom.Code), name), text(": "+describe(p)))
			ul.AppendChild(li)
		}
		parent.AppendChild(ul)

	case *blueprint.Divider:
		parent.AppendChild(el(atom.Hr))

	case *blueprint.TableOfContents:
		ul := el(atom.Ul)
		for _, h := range headings(r.page) {
			ul.AppendChild(withText(el(atom.Li), strings.Repeat("  ", h.Level-1)+h.Text))
		}
		if ul.FirstChild != nil {
			parent.AppendChild(ul)
		}

	case *blueprint.Heading:
		parent.AppendChild(withText(el(heading(b.Level, depth)), b.Text))

	case *blueprint.Paragraph:
		parent.AppendChild(spans(el(atom.P), b.Content))

	case *blueprint.List:
		list := el(atom.Ul)
		if b.Ordered {
			list = el(atom.Ol)
		}
		for _, item := range b.Items {
			list.AppendChild(withText(el(atom.Li), item))
		}
		parent.AppendChild(list)

	case *blueprint.ToDoList:
		ul := el(atom.Ul)
		for _, item := range b.Items {
			box := "☐ "
			if item.Checked {
				box = "☑ "
			}
			ul.AppendChild(withText(el(atom.Li), box+item.Text))
		}
		parent.AppendChild(ul)

	case *blueprint.Toggle:
		parent.AppendChild(el(atom.P, withText(el(atom.Strong), "▸ "+b.Text)))
		if len(b.Children) > 0 {
			quote := el(atom.Blockquote)
			r.blocks(quote, b.Children, depth)
			parent.AppendChild(quote)
		}

	case *blueprint.ColumnList:
		row := el(atom.Div)
		for _, col := range b.Columns {
			r.block(row, col, depth)
		}
		parent.AppendChild(row)

	case *blueprint.Column:
		div := el(atom.Div)
		r.blocks(div, b.Children, depth)
		parent.AppendChild(div)

	case *blueprint.Callout:
		p := el(atom.P)
		if b.Icon != "" {
			p.AppendChild(text(b.Icon + " "))
		}
		quote := el(atom.Blockquote, spans(p, b.Content))
		r.blocks(quote, b.Children, depth)
		parent.AppendChild(quote)

	case *blueprint.Quote:
		quote := el(atom.Blockquote, spans(el(atom.P), b.Content))
		r.blocks(quote, b.Children, depth)
		parent.AppendChild(quote)
	}
}

func describe(p blueprint.PropertyDescriptor) string {
	s := strings.ReplaceAll(string(p.Kind), "_", " ")
	switch {
	case p.Format != "":
		s += " (" + p.Format + ")"
	case len(p.Options) > 0:
		names := make([]string, len(p.Options))
		for i, o := range p.Options {
			names[i] = o.Name
		}
		s += " (" + strings.Join(names, ", ") + ")"
	}
	return s
}

// headings lists every heading of the page, skipping nested pages.
func headings(page *blueprint.Page) []*blueprint.Heading {
	var out []*blueprint.Heading
	var walk func([]blueprint.Block)
	walk = func(blocks []blueprint.Block) {
		for _, b := range blocks {
			switch b := b.(type) {
			case *blueprint.Heading:
				out = append(out, b)
			case *blueprint.Page:
				continue
			}
			walk(blueprint.Children(b))
		}
	}
	walk(page.Children)
	return out
}
