package translation

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"folio/app/internal/slug"
)

// DefaultFallbackLocale is consulted when a requested locale has no value.
const DefaultFallbackLocale = "en"

// SlugScope narrows the slug uniqueness check to the rows that compete with ownerID,
// for example translations of entities of the same content type.
type SlugScope func(db *gorm.DB, ownerID uint) *gorm.DB

// SlugFallback names the slug source used when a title yields no slug characters,
// such as a title made only of symbols.
type SlugFallback func(ctx context.Context, db *gorm.DB, ownerID uint) (string, error)

// Options configures a Store.
type Options struct {
	DefaultLocale  string
	FallbackLocale string
	Slugs          *slug.Generator
	SlugScope      SlugScope
	SlugFallback   SlugFallback
	Logger         *logrus.Logger
}

// Store resolves and writes translations using a Gorm connection.
type Store struct {
	db             *gorm.DB
	defaultLocale  string
	fallbackLocale string
	slugs          *slug.Generator
	scope          SlugScope
	fallbackSlug   SlugFallback
	logger         *logrus.Logger
}

// NewStore constructs a Gorm-backed translation store.
func NewStore(db *gorm.DB, opts Options) (*Store, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	fallback := NormalizeLocale(opts.FallbackLocale)
	if fallback == "" {
		fallback = DefaultFallbackLocale
	}
	defaultLocale := NormalizeLocale(opts.DefaultLocale)
	if defaultLocale == "" {
		defaultLocale = fallback
	}

	slugs := opts.Slugs
	if slugs == nil {
		slugs = slug.NewGenerator(slug.DefaultMaxLength)
	}

	return &Store{
		db:             db,
		defaultLocale:  defaultLocale,
		fallbackLocale: fallback,
		slugs:          slugs,
		scope:          opts.SlugScope,
		fallbackSlug:   opts.SlugFallback,
		logger:         opts.Logger,
	}, nil
}

// WithTx returns a copy of the store bound to tx.
func (s *Store) WithTx(tx *gorm.DB) *Store {
	clone := *s
	clone.db = tx
	return &clone
}

// DefaultLocale returns the locale used when a caller passes none.
func (s *Store) DefaultLocale() string {
	return s.defaultLocale
}

// FallbackLocale returns the locale consulted on a miss.
func (s *Store) FallbackLocale() string {
	return s.fallbackLocale
}

func (s *Store) locale(raw string) string {
	if normalized := NormalizeLocale(raw); normalized != "" {
		return normalized
	}
	return s.defaultLocale
}

// Find returns the translation of ownerID in locale, or nil when none exists.
func (s *Store) Find(ctx context.Context, ownerID uint, locale string) (*Translation, error) {
	locale = s.locale(locale)

	var row Translation
	err := s.db.WithContext(ctx).Where("content_id = ? AND locale = ?", ownerID, locale).Take(&row).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		s.logError(logrus.Fields{"content_id": ownerID, "locale": locale}, err, "fetching translation")
		return nil, eris.Wrapf(err, "fetching translation %d/%s", ownerID, locale)
	}

	return &row, nil
}

// List returns every translation of ownerID ordered by locale.
func (s *Store) List(ctx context.Context, ownerID uint) ([]Translation, error) {
	var rows []Translation
	if err := s.db.WithContext(ctx).Where("content_id = ?", ownerID).Order("locale ASC").Find(&rows).Error; err != nil {
		s.logError(logrus.Fields{"content_id": ownerID}, err, "listing translations")
		return nil, eris.Wrapf(err, "listing translations of %d", ownerID)
	}
	return rows, nil
}

// Translate resolves attr of ownerID in locale. When the locale has no row or an empty
// value and fallback is enabled, the fallback locale is consulted once. A nil result
// means no value exists.
func (s *Store) Translate(ctx context.Context, ownerID uint, attr Attribute, locale string, fallback bool) (*string, error) {
	if _, err := ParseAttribute(string(attr)); err != nil {
		return nil, err
	}

	locale = s.locale(locale)
	row, err := s.Find(ctx, ownerID, locale)
	if err != nil {
		return nil, err
	}

	if value := row.Value(attr); value != "" {
		return &value, nil
	}

	if fallback && locale != s.fallbackLocale {
		return s.Translate(ctx, ownerID, attr, s.fallbackLocale, false)
	}

	return nil, nil
}

// Set upserts the translation of ownerID in locale. Only attributes present in fields
// are written. A slug is derived from the title when the row has none, and an excerpt
// from the body when none was given.
func (s *Store) Set(ctx context.Context, ownerID uint, locale string, fields Fields) (*Translation, error) {
	if ownerID == 0 {
		return nil, eris.New("translation owner is required")
	}
	locale = s.locale(locale)

	existing, err := s.Find(ctx, ownerID, locale)
	if err != nil {
		return nil, err
	}

	if err := s.deriveSlug(ctx, ownerID, locale, existing, &fields); err != nil {
		return nil, err
	}
	deriveExcerpt(existing, &fields)

	cols := fields.columns()
	if len(cols) == 0 && existing != nil {
		return existing, nil
	}

	row := Translation{OwnerID: ownerID, Locale: locale}
	fields.Apply(&row)

	onConflict := clause.OnConflict{
		Columns: []clause.Column{{Name: "content_id"}, {Name: "locale"}},
	}
	if len(cols) == 0 {
		onConflict.DoNothing = true
	} else {
		onConflict.DoUpdates = clause.AssignmentColumns(append(cols, "updated_at"))
	}

	if err := s.db.WithContext(ctx).Clauses(onConflict).Create(&row).Error; err != nil {
		s.logError(logrus.Fields{"content_id": ownerID, "locale": locale}, err, "upserting translation")
		return nil, eris.Wrapf(err, "upserting translation %d/%s", ownerID, locale)
	}

	stored, err := s.Find(ctx, ownerID, locale)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, eris.Errorf("translation %d/%s missing after upsert", ownerID, locale)
	}
	return stored, nil
}

// SetMany upserts several locales in a stable locale order.
func (s *Store) SetMany(ctx context.Context, ownerID uint, byLocale map[string]Fields) ([]Translation, error) {
	locales := make([]string, 0, len(byLocale))
	for locale := range byLocale {
		locales = append(locales, locale)
	}
	sort.Strings(locales)

	result := make([]Translation, 0, len(locales))
	for _, locale := range locales {
		row, err := s.Set(ctx, ownerID, locale, byLocale[locale])
		if err != nil {
			return nil, err
		}
		result = append(result, *row)
	}
	return result, nil
}

// Delete removes one locale of ownerID.
func (s *Store) Delete(ctx context.Context, ownerID uint, locale string) error {
	locale = s.locale(locale)
	if err := s.db.WithContext(ctx).Where("content_id = ? AND locale = ?", ownerID, locale).Delete(&Translation{}).Error; err != nil {
		s.logError(logrus.Fields{"content_id": ownerID, "locale": locale}, err, "deleting translation")
		return eris.Wrapf(err, "deleting translation %d/%s", ownerID, locale)
	}
	return nil
}

// DeleteAll removes every translation of ownerID.
func (s *Store) DeleteAll(ctx context.Context, ownerID uint) error {
	if err := s.db.WithContext(ctx).Where("content_id = ?", ownerID).Delete(&Translation{}).Error; err != nil {
		s.logError(logrus.Fields{"content_id": ownerID}, err, "deleting translations")
		return eris.Wrapf(err, "deleting translations of %d", ownerID)
	}
	return nil
}

// FindOwnerBySlug returns the owner id holding slug in locale within scope, or zero.
func (s *Store) FindOwnerBySlug(ctx context.Context, scope func(*gorm.DB) *gorm.DB, locale, value string) (uint, error) {
	locale = s.locale(locale)

	query := s.db.WithContext(ctx).Model(&Translation{})
	if scope != nil {
		query = scope(query)
	}

	var ids []uint
	err := query.
		Where("content_translations.locale = ? AND content_translations.slug = ?", locale, strings.TrimSpace(value)).
		Limit(1).
		Pluck("content_translations.content_id", &ids).Error
	if err != nil {
		s.logError(logrus.Fields{"locale": locale, "slug": value}, err, "resolving slug")
		return 0, eris.Wrapf(err, "resolving slug %s/%s", locale, value)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return ids[0], nil
}

func (s *Store) deriveSlug(ctx context.Context, ownerID uint, locale string, existing *Translation, fields *Fields) error {
	var source string
	switch {
	case fields.Slug != nil && strings.TrimSpace(*fields.Slug) != "":
		source = *fields.Slug
	case existing != nil && existing.Slug != "" && fields.Slug == nil:
		return nil
	case fields.Title != nil:
		source = *fields.Title
	case existing != nil:
		source = existing.Title
	}

	if strings.TrimSpace(source) == "" {
		return nil
	}

	if slug.Slugify(source, s.slugs.MaxLength()) == "" {
		fallback, err := s.slugFallback(ctx, ownerID)
		if err != nil {
			return eris.Wrapf(err, "deriving fallback slug for %d/%s", ownerID, locale)
		}
		source = fallback
	}

	unique, err := s.slugs.Unique(ctx, source, s.slugExists(ownerID, locale))
	if err != nil {
		return eris.Wrapf(err, "generating slug for %d/%s", ownerID, locale)
	}

	fields.Slug = &unique
	return nil
}

func (s *Store) slugFallback(ctx context.Context, ownerID uint) (string, error) {
	if s.fallbackSlug == nil {
		return "item-" + strconv.FormatUint(uint64(ownerID), 10), nil
	}
	return s.fallbackSlug(ctx, s.db.WithContext(ctx), ownerID)
}

func (s *Store) slugExists(ownerID uint, locale string) slug.ExistsFunc {
	return func(ctx context.Context, candidate string) (bool, error) {
		query := s.db.WithContext(ctx).Model(&Translation{})
		if s.scope != nil {
			query = s.scope(query, ownerID)
		}

		var count int64
		err := query.
			Where("content_translations.locale = ? AND content_translations.slug = ? AND content_translations.content_id <> ?", locale, candidate, ownerID).
			Count(&count).Error
		if err != nil {
			return false, err
		}
		return count > 0, nil
	}
}

func deriveExcerpt(existing *Translation, fields *Fields) {
	if fields.Body == nil || fields.Excerpt != nil {
		return
	}
	if existing != nil && existing.Excerpt != "" {
		return
	}

	excerpt := Excerpt(*fields.Body, ExcerptLength)
	if excerpt == "" {
		return
	}
	fields.Excerpt = &excerpt
}

func (s *Store) logError(fields logrus.Fields, err error, message string) {
	if s.logger == nil || err == nil {
		return
	}

	entry := s.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}
