package architect

import (
	"unicode/utf8"

	"github.com/renderinc/notion-architect/internal/blueprint"
	"github.com/renderinc/notion-architect/internal/notion"
)

// unsupportedKinds are read-only property kinds the API computes itself.
var unsupportedKinds = map[blueprint.PropertyKind]bool{
	blueprint.KindCreatedBy:      true,
	blueprint.KindCreatedTime:    true,
	blueprint.KindLastEditedBy:   true,
	blueprint.KindLastEditedTime: true,
}

func annotations(span blueprint.RichSpan) *notion.Annotations {
	return &notion.Annotations{
		Bold:          span.Has(blueprint.StyleBold),
		Italic:        span.Has(blueprint.StyleItalic),
		Strikethrough: span.Has(blueprint.StyleStrikethrough),
		Underline:     span.Has(blueprint.StyleUnderline),
		Code:          span.Has(blueprint.StyleCode),
	}
}

func styles(a *notion.Annotations) []blueprint.Style {
	if a == nil {
		return nil
	}
	var out []blueprint.Style
	for _, s := range []struct {
		on    bool
		style blueprint.Style
	}{
		{a.Bold, blueprint.StyleBold},
		{a.Italic, blueprint.StyleItalic},
		{a.Strikethrough, blueprint.StyleStrikethrough},
		{a.Underline, blueprint.StyleUnderline},
		{a.Code, blueprint.StyleCode},
	} {
		if s.on {
			out = append(out, s.style)
		}
	}
	return out
}

// richText converts spans, splitting any span longer than the API limit.
func richText(spans []blueprint.RichSpan) []notion.RichText {
	out := make([]notion.RichText, 0, len(spans))
	for _, span := range spans {
		out = append(out, notion.SplitText(span.Text, annotations(span))...)
	}
	return out
}

func plainText(text string) []notion.RichText {
	return notion.SplitText(text, nil)
}

// spans is the inverse of richText. A rich text object of exactly
// MaxTextLength characters followed by one with the same annotations is
// taken to be a split span and joined back.
func spans(rt []notion.RichText) []blueprint.RichSpan {
	var out []blueprint.RichSpan
	prevFull := false
	for _, r := range rt {
		span := blueprint.RichSpan{Text: r.Content(), Styles: styles(r.Annotations)}
		if n := len(out); n > 0 && prevFull && sameStyles(out[n-1].Styles, span.Styles) {
			out[n-1].Text += span.Text
		} else {
			out = append(out, span)
		}
		prevFull = utf8.RuneCountInString(r.Content()) == notion.MaxTextLength
	}
	return out
}

func sameStyles(a, b []blueprint.Style) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// properties translates a schema into remote property descriptors.
func properties(schema blueprint.Schema) (map[string]notion.Property, error) {
	out := make(map[string]notion.Property, len(schema))
	for _, name := range schema.Names() {
		p := schema[name]
		if unsupportedKinds[p.Kind] {
			return nil, &UnsupportedPropertyTypeError{Property: name, Kind: p.Kind}
		}
		prop := notion.Property{Type: string(p.Kind), Format: p.Format}
		for _, o := range p.Options {
			prop.Options = append(prop.Options, notion.SelectOption{Name: o.Name, Color: string(o.Color)})
		}
		out[name] = prop
	}
	return out, nil
}

func schema(props map[string]notion.Property) blueprint.Schema {
	out := make(blueprint.Schema, len(props))
	for name, p := range props {
		d := blueprint.PropertyDescriptor{Kind: blueprint.PropertyKind(p.Type)}
		if p.Type == string(blueprint.KindNumber) {
			d.Format = p.Format
		}
		for _, o := range p.Options {
			color := o.Color
			if color == "" {
				color = "default"
			}
			d.Options = append(d.Options, blueprint.Option{Name: o.Name, Color: blueprint.Color(color)})
		}
		out[name] = d
	}
	return out
}
