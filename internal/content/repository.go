package content

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"folio/app/internal/workflow"
)

// Filter narrows a content listing. Zero values match everything.
type Filter struct {
	Type     Type
	Status   workflow.Status
	ParentID *uint
	// RootsOnly restricts the listing to entities without a parent. It is ignored when ParentID is set.
	RootsOnly bool
	Limit     int
	Offset    int
}

// Repository defines persistence operations for content entities.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Get(ctx context.Context, id uint) (*Entity, error)
	List(ctx context.Context, filter Filter) ([]Entity, error)
	Create(ctx context.Context, entity *Entity) error
	Save(ctx context.Context, entity *Entity) error
	Delete(ctx context.Context, id uint) error
	ReadyToPublish(ctx context.Context, now time.Time, limit int) ([]Entity, error)
}

// GormRepository persists content using a Gorm database connection.
type GormRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewRepository constructs a Gorm-backed repository implementation.
func NewRepository(db *gorm.DB, logger *logrus.Logger) (*GormRepository, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &GormRepository{db: db, logger: logger}, nil
}

var _ Repository = (*GormRepository)(nil)

// WithTx returns a repository bound to tx.
func (r *GormRepository) WithTx(tx *gorm.DB) Repository {
	return &GormRepository{db: tx, logger: r.logger}
}

// Get returns the entity with its translations, or nil when not found.
func (r *GormRepository) Get(ctx context.Context, id uint) (*Entity, error) {
	var entity Entity
	err := r.db.WithContext(ctx).
		Preload("Translations", func(db *gorm.DB) *gorm.DB { return db.Order("locale ASC") }).
		First(&entity, id).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"content_id": id}, err, "fetching content")
		return nil, eris.Wrapf(err, "fetching content %d", id)
	}

	return &entity, nil
}

// List returns entities ordered by type, parent and rank.
func (r *GormRepository) List(ctx context.Context, filter Filter) ([]Entity, error) {
	query := r.db.WithContext(ctx).
		Preload("Translations", func(db *gorm.DB) *gorm.DB { return db.Order("locale ASC") })

	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	switch {
	case filter.ParentID != nil:
		query = query.Where("parent_id = ?", *filter.ParentID)
	case filter.RootsOnly:
		query = query.Where("parent_id IS NULL")
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var entities []Entity
	if err := query.Order("type ASC, parent_id ASC, ordering ASC, id ASC").Find(&entities).Error; err != nil {
		r.logError(nil, err, "listing contents")
		return nil, eris.Wrap(err, "listing contents")
	}

	return entities, nil
}

// Create inserts the entity row. Translations are written through the translation store.
func (r *GormRepository) Create(ctx context.Context, entity *Entity) error {
	if entity == nil {
		return eris.New("content is nil")
	}

	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(entity).Error; err != nil {
		r.logError(logrus.Fields{"type": entity.Type}, err, "creating content")
		return eris.Wrapf(err, "creating %s content", entity.Type)
	}

	return nil
}

// Save updates every column of the entity row except the rank, which the ordering
// manager owns.
func (r *GormRepository) Save(ctx context.Context, entity *Entity) error {
	if entity == nil {
		return eris.New("content is nil")
	}
	if entity.ID == 0 {
		return eris.New("content id is required")
	}

	if err := r.db.WithContext(ctx).Omit(clause.Associations, "Ordering").Save(entity).Error; err != nil {
		r.logError(logrus.Fields{"content_id": entity.ID}, err, "saving content")
		return eris.Wrapf(err, "saving content %d", entity.ID)
	}

	return nil
}

// Delete soft-deletes the entity row.
func (r *GormRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&Entity{}, id).Error; err != nil {
		r.logError(logrus.Fields{"content_id": id}, err, "deleting content")
		return eris.Wrapf(err, "deleting content %d", id)
	}

	return nil
}

// ReadyToPublish returns scheduled entities whose schedule date is not after now,
// earliest first.
func (r *GormRepository) ReadyToPublish(ctx context.Context, now time.Time, limit int) ([]Entity, error) {
	query := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?", workflow.StatusScheduled, now.UTC()).
		Order("scheduled_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var entities []Entity
	if err := query.Find(&entities).Error; err != nil {
		r.logError(nil, err, "querying due contents")
		return nil, eris.Wrap(err, "querying due contents")
	}

	return entities, nil
}

func (r *GormRepository) logError(fields logrus.Fields, err error, message string) {
	if r.logger == nil {
		return
	}

	entry := r.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}
