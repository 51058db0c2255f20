package translation

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Attribute names a locale-specific display field.
type Attribute string

const (
	AttrTitle           Attribute = "title"
	AttrSlug            Attribute = "slug"
	AttrExcerpt         Attribute = "excerpt"
	AttrBody            Attribute = "body"
	AttrMetaTitle       Attribute = "meta_title"
	AttrMetaDescription Attribute = "meta_description"
)

// Attributes lists every translatable attribute.
var Attributes = []Attribute{AttrTitle, AttrSlug, AttrExcerpt, AttrBody, AttrMetaTitle, AttrMetaDescription}

// ErrUnknownAttribute is returned for attribute names outside Attributes.
var ErrUnknownAttribute = eris.New("unknown translation attribute")

// ParseAttribute validates a raw attribute name.
func ParseAttribute(raw string) (Attribute, error) {
	candidate := Attribute(strings.ToLower(strings.TrimSpace(raw)))
	for _, attr := range Attributes {
		if attr == candidate {
			return attr, nil
		}
	}
	return "", eris.Wrapf(ErrUnknownAttribute, "attribute %s", raw)
}

// Translation is the locale-scoped display data of one content entity.
type Translation struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	OwnerID         uint      `gorm:"column:content_id;not null;uniqueIndex:idx_content_translations_owner_locale,priority:1" json:"content_id"`
	Locale          string    `gorm:"size:16;not null;uniqueIndex:idx_content_translations_owner_locale,priority:2;index:idx_content_translations_locale_slug,priority:1" json:"locale"`
	Title           string    `gorm:"size:255;not null;default:''" json:"title"`
	Slug            string    `gorm:"size:191;not null;default:'';index:idx_content_translations_locale_slug,priority:2" json:"slug"`
	Excerpt         string    `gorm:"type:text;not null;default:''" json:"excerpt"`
	Body            string    `gorm:"type:text;not null;default:''" json:"body"`
	MetaTitle       string    `gorm:"size:255;not null;default:''" json:"meta_title"`
	MetaDescription string    `gorm:"type:text;not null;default:''" json:"meta_description"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName defines the table name for translations.
func (Translation) TableName() string {
	return "content_translations"
}

// Value returns the stored value of attr.
func (t *Translation) Value(attr Attribute) string {
	if t == nil {
		return ""
	}
	switch attr {
	case AttrTitle:
		return t.Title
	case AttrSlug:
		return t.Slug
	case AttrExcerpt:
		return t.Excerpt
	case AttrBody:
		return t.Body
	case AttrMetaTitle:
		return t.MetaTitle
	case AttrMetaDescription:
		return t.MetaDescription
	default:
		return ""
	}
}

// Fields carries the attributes of a write. Nil pointers are left untouched.
type Fields struct {
	Title           *string `json:"title,omitempty"`
	Slug            *string `json:"slug,omitempty"`
	Excerpt         *string `json:"excerpt,omitempty"`
	Body            *string `json:"body,omitempty"`
	MetaTitle       *string `json:"meta_title,omitempty"`
	MetaDescription *string `json:"meta_description,omitempty"`
}

// Empty reports whether no attribute is set.
func (f Fields) Empty() bool {
	return len(f.columns()) == 0
}

// columns returns the column names of the set attributes, in a stable order.
func (f Fields) columns() []string {
	var cols []string
	if f.Title != nil {
		cols = append(cols, string(AttrTitle))
	}
	if f.Slug != nil {
		cols = append(cols, string(AttrSlug))
	}
	if f.Excerpt != nil {
		cols = append(cols, string(AttrExcerpt))
	}
	if f.Body != nil {
		cols = append(cols, string(AttrBody))
	}
	if f.MetaTitle != nil {
		cols = append(cols, string(AttrMetaTitle))
	}
	if f.MetaDescription != nil {
		cols = append(cols, string(AttrMetaDescription))
	}
	return cols
}

// Apply copies the set attributes onto t.
func (f Fields) Apply(t *Translation) {
	if f.Title != nil {
		t.Title = strings.TrimSpace(*f.Title)
	}
	if f.Slug != nil {
		t.Slug = strings.TrimSpace(*f.Slug)
	}
	if f.Excerpt != nil {
		t.Excerpt = strings.TrimSpace(*f.Excerpt)
	}
	if f.Body != nil {
		t.Body = *f.Body
	}
	if f.MetaTitle != nil {
		t.MetaTitle = strings.TrimSpace(*f.MetaTitle)
	}
	if f.MetaDescription != nil {
		t.MetaDescription = strings.TrimSpace(*f.MetaDescription)
	}
}

// NormalizeLocale lowercases a locale tag and unifies separators ("en_US" -> "en-us").
func NormalizeLocale(locale string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(locale)), "_", "-")
}

// FieldsOf returns every attribute of t as a fully populated Fields.
func FieldsOf(t Translation) Fields {
	return Fields{
		Title:           &t.Title,
		Slug:            &t.Slug,
		Excerpt:         &t.Excerpt,
		Body:            &t.Body,
		MetaTitle:       &t.MetaTitle,
		MetaDescription: &t.MetaDescription,
	}
}
