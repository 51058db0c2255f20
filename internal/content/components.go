package content

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"folio/app/internal/lock"
	"folio/app/internal/ordering"
	"folio/app/internal/revision"
	"folio/app/internal/slug"
	"folio/app/internal/translation"
)

// Group columns of the content sibling sets.
var orderingGroup = []string{"type", "parent_id"}

// Fields not tracked by content revisions. Rank changes are not revisioned and the
// content type never changes after creation.
var untrackedFields = []string{"ordering", "type"}

// SameTypeScope limits slug competition to translations of contents sharing the owner's type.
func SameTypeScope(db *gorm.DB, ownerID uint) *gorm.DB {
	return db.
		Joins("JOIN contents ON contents.id = content_translations.content_id AND contents.deleted_at IS NULL").
		Where("contents.type = (SELECT c.type FROM contents c WHERE c.id = ?)", ownerID)
}

// TypeScope limits a slug lookup to contents of typ.
func TypeScope(typ Type) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Joins("JOIN contents ON contents.id = content_translations.content_id AND contents.deleted_at IS NULL").
			Where("contents.type = ?", typ)
	}
}

// TypeIDSlug names a content by type and id, as in article-12, when its title has no
// slug characters.
func TypeIDSlug(ctx context.Context, db *gorm.DB, ownerID uint) (string, error) {
	var types []string
	if err := db.WithContext(ctx).Model(&Entity{}).Unscoped().Where("id = ?", ownerID).Pluck("type", &types).Error; err != nil {
		return "", eris.Wrapf(err, "fetching type of content %d", ownerID)
	}
	if len(types) == 0 {
		return "", eris.Wrapf(ErrContentNotFound, "content %d", ownerID)
	}
	return types[0] + "-" + strconv.FormatUint(uint64(ownerID), 10), nil
}

// StoreOptions configures NewTranslationStore.
type StoreOptions struct {
	DefaultLocale  string
	FallbackLocale string
	SlugMaxLength  int
	Logger         *logrus.Logger
}

// NewTranslationStore builds the translation store for content, with slugs unique per
// content type and locale.
func NewTranslationStore(db *gorm.DB, opts StoreOptions) (*translation.Store, error) {
	return translation.NewStore(db, translation.Options{
		DefaultLocale:  opts.DefaultLocale,
		FallbackLocale: opts.FallbackLocale,
		Slugs:          slug.NewGenerator(opts.SlugMaxLength),
		SlugScope:      SameTypeScope,
		SlugFallback:   TypeIDSlug,
		Logger:         opts.Logger,
	})
}

// NewRevisionTracker builds the revision tracker for content.
func NewRevisionTracker(db *gorm.DB, locker lock.Locker, logger *logrus.Logger) (*revision.Tracker, error) {
	return revision.NewTracker(db, revision.Options{
		Exclude: untrackedFields,
		Locker:  locker,
		Logger:  logger,
	})
}

// NewOrderingManager builds the rank manager for content siblings.
func NewOrderingManager(db *gorm.DB, locker lock.Locker, logger *logrus.Logger) (*ordering.Manager, error) {
	return ordering.NewManager(db, ordering.Options{
		Table:            Entity{}.TableName(),
		RankColumn:       "ordering",
		GroupColumns:     orderingGroup,
		SoftDeleteColumn: "deleted_at",
		Locker:           locker,
		Logger:           logger,
	})
}
