package content

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"folio/app/internal/revision"
	"folio/app/internal/translation"
	"folio/app/internal/workflow"
)

// Type is the kind of content an entity holds.
type Type string

const (
	TypeArticle Type = "article"
	TypePage    Type = "page"
	TypeProduct Type = "product"
	TypeService Type = "service"
	TypeEvent   Type = "event"
	TypePlan    Type = "plan"
)

// Types lists every content type.
var Types = []Type{TypeArticle, TypePage, TypeProduct, TypeService, TypeEvent, TypePlan}

// ParseType validates a raw content type.
func ParseType(raw string) (Type, error) {
	candidate := Type(strings.ToLower(strings.TrimSpace(raw)))
	for _, typ := range Types {
		if typ == candidate {
			return typ, nil
		}
	}
	return "", eris.Wrapf(ErrUnknownType, "type %s", raw)
}

// Entity is a content row. Display fields live in its translations.
type Entity struct {
	gorm.Model
	Type       Type   `gorm:"size:32;not null;index:idx_contents_group,priority:1"`
	ParentID   *uint  `gorm:"index:idx_contents_group,priority:2"`
	Ordering   int    `gorm:"not null;default:0"`
	AuthorID   string `gorm:"size:191"`
	Attributes datatypes.JSONMap
	workflow.State
	Translations []translation.Translation `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
}

// TableName defines the table name for content entities.
func (Entity) TableName() string {
	return "contents"
}

// OwnerType is the polymorphic owner type of content revisions.
const OwnerType = "content"

// Translation returns the loaded translation for locale, or nil.
func (e *Entity) Translation(locale string) *translation.Translation {
	locale = translation.NormalizeLocale(locale)
	for i := range e.Translations {
		if e.Translations[i].Locale == locale {
			return &e.Translations[i]
		}
	}
	return nil
}

// snapshot is the revisionable state of an entity.
type snapshot struct {
	Type       Type           `json:"type"`
	ParentID   *uint          `json:"parent_id"`
	Ordering   int            `json:"ordering"`
	AuthorID   string         `json:"author_id"`
	Attributes map[string]any `json:"attributes"`
	workflow.State
	Translations map[string]translation.Fields `json:"translations"`
}

var _ revision.Revisable = (*Entity)(nil)

// RevisionOwner identifies the entity for the revision tracker.
func (e *Entity) RevisionOwner() revision.Owner {
	return revision.Owner{Type: OwnerType, ID: e.ID}
}

// RevisionFields returns the entity and its loaded translations as a field map.
func (e *Entity) RevisionFields() (map[string]any, error) {
	snap := snapshot{
		Type:         e.Type,
		ParentID:     e.ParentID,
		Ordering:     e.Ordering,
		AuthorID:     e.AuthorID,
		Attributes:   map[string]any(e.Attributes),
		State:        e.State,
		Translations: make(map[string]translation.Fields, len(e.Translations)),
	}
	for _, t := range e.Translations {
		snap.Translations[t.Locale] = translation.FieldsOf(t)
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, eris.Wrap(err, "encoding content snapshot")
	}

	fields := map[string]any{}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&fields); err != nil {
		return nil, eris.Wrap(err, "decoding content snapshot")
	}
	fields["id"] = e.ID
	return fields, nil
}

// ApplyRevisionFields overwrites the entity and its in-memory translations from data.
// Fields missing from data keep their current value.
func (e *Entity) ApplyRevisionFields(data map[string]any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return eris.Wrap(err, "encoding revision data")
	}

	snap := snapshot{
		Type:       e.Type,
		ParentID:   e.ParentID,
		Ordering:   e.Ordering,
		AuthorID:   e.AuthorID,
		Attributes: map[string]any(e.Attributes),
		State:      e.State,
	}
	if _, ok := data["attributes"]; ok {
		snap.Attributes = nil
	}
	if err := json.Unmarshal(raw, &snap); err != nil {
		return eris.Wrap(err, "decoding revision data")
	}

	e.Type = snap.Type
	e.ParentID = snap.ParentID
	e.Ordering = snap.Ordering
	e.AuthorID = snap.AuthorID
	e.Attributes = datatypes.JSONMap(snap.Attributes)
	e.State = snap.State

	if _, ok := data["translations"]; ok {
		e.Translations = e.restoredTranslations(snap.Translations)
	}
	return nil
}

func (e *Entity) restoredTranslations(byLocale map[string]translation.Fields) []translation.Translation {
	locales := make([]string, 0, len(byLocale))
	for locale := range byLocale {
		locales = append(locales, locale)
	}
	sort.Strings(locales)

	restored := make([]translation.Translation, 0, len(locales))
	for _, locale := range locales {
		row := translation.Translation{OwnerID: e.ID, Locale: translation.NormalizeLocale(locale)}
		if current := e.Translation(locale); current != nil {
			row = *current
		}
		byLocale[locale].Apply(&row)
		restored = append(restored, row)
	}
	return restored
}
