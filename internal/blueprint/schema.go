package blueprint

import "sort"

// PropertyKind is the kind of a database property.
type PropertyKind string

const (
	KindTitle          PropertyKind = "title"
	KindRichText       PropertyKind = "rich_text"
	KindNumber         PropertyKind = "number"
	KindCheckbox       PropertyKind = "checkbox"
	KindDate           PropertyKind = "date"
	KindPeople         PropertyKind = "people"
	KindFiles          PropertyKind = "files"
	KindURL            PropertyKind = "url"
	KindEmail          PropertyKind = "email"
	KindPhoneNumber    PropertyKind = "phone_number"
	KindSelect         PropertyKind = "select"
	KindMultiSelect    PropertyKind = "multi_select"
	KindCreatedBy      PropertyKind = "created_by"
	KindCreatedTime    PropertyKind = "created_time"
	KindLastEditedBy   PropertyKind = "last_edited_by"
	KindLastEditedTime PropertyKind = "last_edited_time"
)

var propertyKinds = map[PropertyKind]bool{
	KindTitle: true, KindRichText: true, KindNumber: true, KindCheckbox: true,
	KindDate: true, KindPeople: true, KindFiles: true, KindURL: true, KindEmail: true,
	KindPhoneNumber: true, KindSelect: true, KindMultiSelect: true, KindCreatedBy: true,
	KindCreatedTime: true, KindLastEditedBy: true, KindLastEditedTime: true,
}

// NumberFormats is the closed set of display formats for number properties.
var NumberFormats = []string{
	"argentinepeso", "baht", "australiandollar", "canadiandollar", "chileanpeso",
	"colombianpeso", "danishkrone", "dirham", "dollar", "euro", "forint", "franc",
	"hongkongdollar", "koruna", "krona", "leu", "lira", "mexicanpeso", "newtaiwandollar",
	"newzealanddollar", "norwegiankrone", "number", "numberwithcommas", "percent",
	"philippinepeso", "pound", "peruviansol", "rand", "real", "ringgit", "riyal", "ruble",
	"rupee", "rupiah", "shekel", "singaporedollar", "uruguayanpeso", "yen", "yuan", "won",
	"zloty",
}

func isNumberFormat(f string) bool {
	for _, nf := range NumberFormats {
		if nf == f {
			return true
		}
	}
	return false
}

// Schema maps property names to their descriptors.
type Schema map[string]PropertyDescriptor

// PropertyDescriptor describes one database column.
type PropertyDescriptor struct {
	Kind    PropertyKind `json:"type"`
	Format  string       `json:"format,omitempty"`
	Options []Option     `json:"options,omitempty"`
}

// Option is a select / multi-select choice.
type Option struct {
	Name  string `json:"name"`
	Color Color  `json:"color"`
}

// Names returns the property names in sorted order.
func (s Schema) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TitleProperty returns the name of the title property, if there is exactly one.
func (s Schema) TitleProperty() (string, bool) {
	var found string
	count := 0
	for name, p := range s {
		if p.Kind == KindTitle {
			found = name
			count++
		}
	}
	return found, count == 1
}
