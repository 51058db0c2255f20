package content

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/getsentry/sentry-go"
	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"folio/app/internal/db"
	"folio/app/internal/lock"
	"folio/app/internal/ordering"
	"folio/app/internal/revision"
	"folio/app/internal/translation"
	"folio/app/internal/workflow"
)

// Service defines content operations composed from the workflow, revision, translation
// and ordering behaviours.
type Service interface {
	Create(ctx context.Context, actor string, input CreateInput) (*Entity, error)
	Get(ctx context.Context, id uint) (*Entity, error)
	GetBySlug(ctx context.Context, typ Type, locale, slug string) (*Entity, error)
	List(ctx context.Context, filter Filter) ([]Entity, error)
	Update(ctx context.Context, id uint, actor string, input UpdateInput) (*Entity, error)
	Delete(ctx context.Context, id uint) error

	SetTranslation(ctx context.Context, id uint, actor, locale string, fields translation.Fields) (*translation.Translation, error)
	DeleteTranslation(ctx context.Context, id uint, actor, locale string) error
	Translate(ctx context.Context, id uint, attr translation.Attribute, locale string, fallback bool) (*string, error)

	Transition(ctx context.Context, id uint, actor string, action workflow.Action, input TransitionInput) (*Entity, error)
	PublishDue(ctx context.Context, actor string) ([]uint, error)

	Revisions(ctx context.Context, id uint) ([]revision.Revision, error)
	RestoreRevision(ctx context.Context, id uint, actor string, number int) (*Entity, *revision.Revision, error)
	CompareRevisions(ctx context.Context, id uint, from, to int) (revision.Comparison, error)
	PruneRevisions(ctx context.Context, id uint, keep int) (int64, error)
	PruneAllRevisions(ctx context.Context, keep int) (int64, error)

	MoveUp(ctx context.Context, id uint) (bool, error)
	MoveDown(ctx context.Context, id uint) (bool, error)
	MoveTo(ctx context.Context, id uint, position int) (int, error)
	Siblings(ctx context.Context, id uint) ([]ordering.Position, error)
}

var (
	// ErrContentNotFound indicates the content id does not exist or was deleted.
	ErrContentNotFound = eris.New("content not found")
	// ErrUnknownType is returned for content types outside Types.
	ErrUnknownType = eris.New("unknown content type")
	// ErrParentNotFound is returned when a parent id does not exist.
	ErrParentNotFound = eris.New("parent content not found")
	// ErrInvalidParent is returned when a parent assignment would create a cycle.
	ErrInvalidParent = eris.New("content cannot be its own ancestor")
	// ErrHasChildren is returned when deleting a content that still has children.
	ErrHasChildren = eris.New("content has children")
	// ErrInvalidInput marks requests the service cannot act on.
	ErrInvalidInput = eris.New("invalid content input")
)

const (
	defaultPublishBatch = 100
	maxTreeDepth        = 64
)

var errNotDue = eris.New("content is no longer due")

var discardLogger = func() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}()

// CreateInput carries the fields of a new content entity. Position places the entity
// among its siblings; zero appends it.
type CreateInput struct {
	Type         Type
	ParentID     *uint
	Position     int
	Attributes   map[string]any
	Translations map[string]translation.Fields
}

// UpdateInput carries a partial update. Nil fields are left untouched.
type UpdateInput struct {
	ParentID     *uint
	DetachParent bool
	Attributes   map[string]any
}

// TransitionInput carries the optional arguments of workflow actions.
type TransitionInput struct {
	Notes string
	At    *time.Time
}

// Dependencies wires the content service.
type Dependencies struct {
	DB           *gorm.DB
	Repository   Repository
	Translations *translation.Store
	Revisions    *revision.Tracker
	Ordering     *ordering.Manager
	Workflow     *workflow.Machine
	Clock        clockwork.Clock
	Locker       lock.Locker
	Logger       *logrus.Logger
	SentryHub    *sentry.Hub
	PublishBatch int
}

type service struct {
	db           *gorm.DB
	repo         Repository
	translations *translation.Store
	revisions    *revision.Tracker
	ordering     *ordering.Manager
	workflow     *workflow.Machine
	clock        clockwork.Clock
	locker       lock.Locker
	logger       *logrus.Logger
	sentryHub    *sentry.Hub
	publishBatch int
}

var _ Service = (*service)(nil)

// NewService wires the content service with its dependencies.
func NewService(deps Dependencies) (Service, error) {
	if deps.DB == nil {
		return nil, eris.New("gorm DB is required")
	}
	if deps.Translations == nil {
		return nil, eris.New("translation store is required")
	}
	if deps.Revisions == nil {
		return nil, eris.New("revision tracker is required")
	}
	if deps.Ordering == nil {
		return nil, eris.New("ordering manager is required")
	}
	if deps.Workflow == nil {
		return nil, eris.New("workflow machine is required")
	}

	repo := deps.Repository
	if repo == nil {
		gormRepo, err := NewRepository(deps.DB, deps.Logger)
		if err != nil {
			return nil, err
		}
		repo = gormRepo
	}

	clk := deps.Clock
	if clk == nil {
		clk = clockwork.NewRealClock()
	}

	locker := deps.Locker
	if locker == nil {
		locker = lock.NewLocal()
	}

	batch := deps.PublishBatch
	if batch <= 0 {
		batch = defaultPublishBatch
	}

	return &service{
		db:           deps.DB,
		repo:         repo,
		translations: deps.Translations,
		revisions:    deps.Revisions,
		ordering:     deps.Ordering,
		workflow:     deps.Workflow,
		clock:        clk,
		locker:       locker,
		logger:       deps.Logger,
		sentryHub:    deps.SentryHub,
		publishBatch: batch,
	}, nil
}

func (s *service) Create(ctx context.Context, actor string, input CreateInput) (*Entity, error) {
	typ, err := ParseType(string(input.Type))
	if err != nil {
		return nil, err
	}

	entity := &Entity{
		Type:       typ,
		ParentID:   input.ParentID,
		AuthorID:   strings.TrimSpace(actor),
		Attributes: datatypes.JSONMap(input.Attributes),
		State:      workflow.NewState(),
	}

	err = db.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if input.ParentID != nil {
			if err := s.checkParent(ctx, repo, 0, *input.ParentID); err != nil {
				return err
			}
		}

		if err := repo.Create(ctx, entity); err != nil {
			return err
		}

		ranks := s.ordering.WithTx(tx)
		if _, err := ranks.Append(ctx, entity.ID); err != nil {
			return err
		}
		if input.Position > 0 {
			if _, err := ranks.MoveTo(ctx, entity.ID, input.Position); err != nil {
				return err
			}
		}

		if len(input.Translations) > 0 {
			if _, err := s.translations.WithTx(tx).SetMany(ctx, entity.ID, input.Translations); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.recordError(logrus.Fields{"type": typ}, err, "creating content")
		return nil, eris.Wrapf(err, "creating %s content", typ)
	}

	s.log(logrus.Fields{"content_id": entity.ID, "type": typ}).Info("content created")
	return s.Get(ctx, entity.ID)
}

func (s *service) Get(ctx context.Context, id uint) (*Entity, error) {
	return s.load(ctx, s.repo, id)
}

func (s *service) GetBySlug(ctx context.Context, typ Type, locale, slug string) (*Entity, error) {
	typ, err := ParseType(string(typ))
	if err != nil {
		return nil, err
	}

	ownerID, err := s.translations.FindOwnerBySlug(ctx, TypeScope(typ), locale, slug)
	if err != nil {
		s.recordError(logrus.Fields{"type": typ, "locale": locale, "slug": slug}, err, "resolving content slug")
		return nil, eris.Wrapf(err, "resolving %s slug %s", typ, slug)
	}
	if ownerID == 0 {
		return nil, eris.Wrapf(ErrContentNotFound, "%s with slug %s/%s", typ, locale, slug)
	}

	return s.Get(ctx, ownerID)
}

func (s *service) List(ctx context.Context, filter Filter) ([]Entity, error) {
	if filter.Type != "" {
		typ, err := ParseType(string(filter.Type))
		if err != nil {
			return nil, err
		}
		filter.Type = typ
	}

	entities, err := s.repo.List(ctx, filter)
	if err != nil {
		s.recordError(nil, err, "listing contents")
		return nil, eris.Wrap(err, "listing contents")
	}
	return entities, nil
}

func (s *service) Update(ctx context.Context, id uint, actor string, input UpdateInput) (*Entity, error) {
	return s.mutate(ctx, id, actor, func(ctx context.Context, tx *gorm.DB, entity *Entity) error {
		repo := s.repo.WithTx(tx)
		previousParent := entity.ParentID

		switch {
		case input.DetachParent:
			entity.ParentID = nil
		case input.ParentID != nil:
			if err := s.checkParent(ctx, repo, entity.ID, *input.ParentID); err != nil {
				return err
			}
			parent := *input.ParentID
			entity.ParentID = &parent
		}

		if input.Attributes != nil {
			entity.Attributes = datatypes.JSONMap(input.Attributes)
		}

		if err := repo.Save(ctx, entity); err != nil {
			return err
		}
		return s.regroup(ctx, tx, entity, previousParent)
	})
}

func (s *service) Delete(ctx context.Context, id uint) error {
	unlock, err := s.lockContent(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	err = db.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		entity, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}

		children, err := repo.List(ctx, Filter{ParentID: &entity.ID, Limit: 1})
		if err != nil {
			return err
		}
		if len(children) > 0 {
			return eris.Wrapf(ErrHasChildren, "content %d", id)
		}

		if err := s.translations.WithTx(tx).DeleteAll(ctx, id); err != nil {
			return err
		}
		if err := repo.Delete(ctx, id); err != nil {
			return err
		}
		return s.ordering.WithTx(tx).Resequence(ctx, groupOf(entity.Type, entity.ParentID))
	})
	if err != nil {
		s.recordError(logrus.Fields{"content_id": id}, err, "deleting content")
		return eris.Wrapf(err, "deleting content %d", id)
	}

	s.log(logrus.Fields{"content_id": id}).Info("content deleted")
	return nil
}

func (s *service) SetTranslation(ctx context.Context, id uint, actor, locale string, fields translation.Fields) (*translation.Translation, error) {
	var stored *translation.Translation
	_, err := s.mutate(ctx, id, actor, func(ctx context.Context, tx *gorm.DB, entity *Entity) error {
		store := s.translations.WithTx(tx)
		row, err := store.Set(ctx, entity.ID, locale, fields)
		if err != nil {
			return err
		}
		stored = row
		return s.reloadTranslations(ctx, store, entity)
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *service) DeleteTranslation(ctx context.Context, id uint, actor, locale string) error {
	_, err := s.mutate(ctx, id, actor, func(ctx context.Context, tx *gorm.DB, entity *Entity) error {
		store := s.translations.WithTx(tx)
		if err := store.Delete(ctx, entity.ID, locale); err != nil {
			return err
		}
		return s.reloadTranslations(ctx, store, entity)
	})
	return err
}

func (s *service) Translate(ctx context.Context, id uint, attr translation.Attribute, locale string, fallback bool) (*string, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.translations.Translate(ctx, id, attr, locale, fallback)
}

func (s *service) Transition(ctx context.Context, id uint, actor string, action workflow.Action, input TransitionInput) (*Entity, error) {
	var from workflow.Status
	entity, err := s.mutate(ctx, id, actor, func(ctx context.Context, tx *gorm.DB, entity *Entity) error {
		from = entity.Current()
		if err := s.apply(&entity.State, action, actor, input); err != nil {
			return err
		}
		return s.repo.WithTx(tx).Save(ctx, entity)
	})
	if err != nil {
		return nil, err
	}

	s.log(logrus.Fields{"content_id": id, "action": action, "from": from, "to": entity.Status}).Info("content transitioned")
	return entity, nil
}

func (s *service) PublishDue(ctx context.Context, actor string) ([]uint, error) {
	now := s.clock.Now().UTC()
	due, err := s.repo.ReadyToPublish(ctx, now, s.publishBatch)
	if err != nil {
		s.recordError(nil, err, "querying due contents")
		return nil, eris.Wrap(err, "querying due contents")
	}

	published := make([]uint, 0, len(due))
	failures := 0
	for _, candidate := range due {
		_, err := s.mutate(ctx, candidate.ID, actor, func(ctx context.Context, tx *gorm.DB, entity *Entity) error {
			if !workflow.Due(&entity.State, now) {
				return errNotDue
			}
			if err := s.workflow.Publish(&entity.State); err != nil {
				return err
			}
			return s.repo.WithTx(tx).Save(ctx, entity)
		})
		switch {
		case err == nil:
			published = append(published, candidate.ID)
		case eris.Is(err, errNotDue), eris.Is(err, ErrContentNotFound):
		default:
			failures++
			s.recordError(logrus.Fields{"content_id": candidate.ID}, err, "publishing due content")
		}
	}

	if len(published) > 0 {
		s.log(logrus.Fields{"published": len(published)}).Info("published due contents")
	}
	if failures > 0 {
		return published, eris.Errorf("%d of %d due contents failed to publish", failures, len(due))
	}
	return published, nil
}

func (s *service) Revisions(ctx context.Context, id uint) ([]revision.Revision, error) {
	entity, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.revisions.List(ctx, entity.RevisionOwner())
}

func (s *service) RestoreRevision(ctx context.Context, id uint, actor string, number int) (*Entity, *revision.Revision, error) {
	unlock, err := s.lockContent(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	var (
		restored *Entity
		snapshot *revision.Revision
	)
	err = db.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		entity, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		previousParent := entity.ParentID

		snapshot, err = s.revisions.WithTx(tx).Restore(ctx, entity, number, actor, func(ctx context.Context) error {
			if entity.ParentID != nil && !sameParent(previousParent, entity.ParentID) {
				if err := s.checkParent(ctx, repo, entity.ID, *entity.ParentID); err != nil {
					return err
				}
			}
			if err := repo.Save(ctx, entity); err != nil {
				return err
			}
			if err := s.syncTranslations(ctx, tx, entity); err != nil {
				return err
			}
			return s.regroup(ctx, tx, entity, previousParent)
		})
		if err != nil {
			return err
		}
		restored = entity
		return nil
	})
	if err != nil {
		s.recordError(logrus.Fields{"content_id": id, "revision": number}, err, "restoring revision")
		return nil, nil, eris.Wrapf(err, "restoring revision %d of content %d", number, id)
	}

	return restored, snapshot, nil
}

func (s *service) CompareRevisions(ctx context.Context, id uint, from, to int) (revision.Comparison, error) {
	entity, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.revisions.Compare(ctx, entity.RevisionOwner(), from, to)
}

func (s *service) PruneRevisions(ctx context.Context, id uint, keep int) (int64, error) {
	entity, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if keep < 0 {
		return 0, eris.Wrapf(ErrInvalidInput, "keep %d", keep)
	}
	return s.revisions.Prune(ctx, entity.RevisionOwner(), keep)
}

func (s *service) PruneAllRevisions(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		return 0, eris.Wrapf(ErrInvalidInput, "keep %d", keep)
	}

	deleted, err := s.revisions.PruneAll(ctx, keep)
	if err != nil {
		s.recordError(logrus.Fields{"keep": keep}, err, "pruning revisions")
		return deleted, eris.Wrap(err, "pruning revisions")
	}
	return deleted, nil
}

func (s *service) MoveUp(ctx context.Context, id uint) (bool, error) {
	var moved bool
	err := s.reorder(ctx, id, func(ranks *ordering.Manager) (err error) {
		moved, err = ranks.MoveUp(ctx, id)
		return err
	})
	return moved, err
}

func (s *service) MoveDown(ctx context.Context, id uint) (bool, error) {
	var moved bool
	err := s.reorder(ctx, id, func(ranks *ordering.Manager) (err error) {
		moved, err = ranks.MoveDown(ctx, id)
		return err
	})
	return moved, err
}

func (s *service) MoveTo(ctx context.Context, id uint, position int) (int, error) {
	var applied int
	err := s.reorder(ctx, id, func(ranks *ordering.Manager) (err error) {
		applied, err = ranks.MoveTo(ctx, id, position)
		return err
	})
	return applied, err
}

func (s *service) Siblings(ctx context.Context, id uint) ([]ordering.Position, error) {
	entity, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.ordering.Siblings(ctx, groupOf(entity.Type, entity.ParentID))
}

// mutate loads the entity under its lock and inside a transaction, runs fn and records
// an automatic revision when a tracked field changed.
func (s *service) mutate(ctx context.Context, id uint, actor string, fn func(ctx context.Context, tx *gorm.DB, entity *Entity) error) (*Entity, error) {
	unlock, err := s.lockContent(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var result *Entity
	err = db.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		entity, err := s.load(ctx, s.repo.WithTx(tx), id)
		if err != nil {
			return err
		}

		before, err := entity.RevisionFields()
		if err != nil {
			return err
		}
		if err := fn(ctx, tx, entity); err != nil {
			return err
		}
		after, err := entity.RevisionFields()
		if err != nil {
			return err
		}

		if _, err := s.revisions.WithTx(tx).Capture(ctx, entity.RevisionOwner(), before, after, actor); err != nil {
			return err
		}
		result = entity
		return nil
	})
	if err != nil {
		if !eris.Is(err, errNotDue) {
			s.recordError(logrus.Fields{"content_id": id}, err, "updating content")
		}
		return nil, err
	}
	return result, nil
}

func (s *service) reorder(ctx context.Context, id uint, fn func(ranks *ordering.Manager) error) error {
	err := db.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		return fn(s.ordering.WithTx(tx))
	})
	if err != nil {
		if eris.Is(err, ordering.ErrRowNotFound) {
			return eris.Wrapf(ErrContentNotFound, "content %d", id)
		}
		s.recordError(logrus.Fields{"content_id": id}, err, "reordering content")
		return eris.Wrapf(err, "reordering content %d", id)
	}
	return nil
}

func (s *service) apply(state *workflow.State, action workflow.Action, actor string, input TransitionInput) error {
	switch action {
	case workflow.ActionSubmitForReview:
		return s.workflow.SubmitForReview(state)
	case workflow.ActionStartReview:
		if strings.TrimSpace(actor) == "" {
			return eris.Wrap(ErrInvalidInput, "reviewer is required")
		}
		return s.workflow.StartReview(state, actor)
	case workflow.ActionApprove:
		return s.workflow.Approve(state, input.Notes)
	case workflow.ActionReject:
		return s.workflow.Reject(state, input.Notes)
	case workflow.ActionPublish:
		return s.workflow.Publish(state)
	case workflow.ActionSchedule:
		if input.At == nil || input.At.IsZero() {
			return eris.Wrap(ErrInvalidInput, "schedule date is required")
		}
		return s.workflow.Schedule(state, *input.At)
	case workflow.ActionCancelSchedule:
		return s.workflow.CancelSchedule(state)
	case workflow.ActionUnpublish:
		return s.workflow.Unpublish(state)
	case workflow.ActionArchive:
		return s.workflow.Archive(state)
	case workflow.ActionUnarchive:
		return s.workflow.Unarchive(state)
	default:
		return eris.Wrapf(workflow.ErrUnknownAction, "action %s", action)
	}
}

func (s *service) load(ctx context.Context, repo Repository, id uint) (*Entity, error) {
	entity, err := repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, eris.Wrapf(ErrContentNotFound, "content %d", id)
	}
	return entity, nil
}

// checkParent verifies parentID exists and is not id or one of its descendants.
func (s *service) checkParent(ctx context.Context, repo Repository, id, parentID uint) error {
	if id != 0 && parentID == id {
		return eris.Wrapf(ErrInvalidParent, "content %d", id)
	}

	current := parentID
	for depth := 0; depth < maxTreeDepth; depth++ {
		ancestor, err := repo.Get(ctx, current)
		if err != nil {
			return err
		}
		if ancestor == nil {
			if depth == 0 {
				return eris.Wrapf(ErrParentNotFound, "parent %d", parentID)
			}
			return nil
		}
		if ancestor.ParentID == nil {
			return nil
		}
		if id != 0 && *ancestor.ParentID == id {
			return eris.Wrapf(ErrInvalidParent, "content %d under %d", id, parentID)
		}
		current = *ancestor.ParentID
	}
	return eris.Wrapf(ErrInvalidParent, "content tree deeper than %d", maxTreeDepth)
}

// regroup appends the entity to its new sibling group and closes the gap it left when
// its parent changed.
func (s *service) regroup(ctx context.Context, tx *gorm.DB, entity *Entity, previousParent *uint) error {
	if sameParent(previousParent, entity.ParentID) {
		return nil
	}

	ranks := s.ordering.WithTx(tx)
	rank, err := ranks.Append(ctx, entity.ID)
	if err != nil {
		return err
	}
	entity.Ordering = rank

	return ranks.Resequence(ctx, groupOf(entity.Type, previousParent))
}

// syncTranslations writes the entity's in-memory translations and removes stored
// locales it no longer has.
func (s *service) syncTranslations(ctx context.Context, tx *gorm.DB, entity *Entity) error {
	store := s.translations.WithTx(tx)

	stored, err := store.List(ctx, entity.ID)
	if err != nil {
		return err
	}

	keep := mapset.NewThreadUnsafeSet[string]()
	for _, row := range entity.Translations {
		keep.Add(row.Locale)
		if _, err := store.Set(ctx, entity.ID, row.Locale, translation.FieldsOf(row)); err != nil {
			return err
		}
	}
	for _, row := range stored {
		if keep.Contains(row.Locale) {
			continue
		}
		if err := store.Delete(ctx, entity.ID, row.Locale); err != nil {
			return err
		}
	}

	return s.reloadTranslations(ctx, store, entity)
}

func (s *service) reloadTranslations(ctx context.Context, store *translation.Store, entity *Entity) error {
	rows, err := store.List(ctx, entity.ID)
	if err != nil {
		return err
	}
	entity.Translations = rows
	return nil
}

func (s *service) lockContent(ctx context.Context, id uint) (func(), error) {
	unlock, err := s.locker.Lock(ctx, "content:"+strconv.FormatUint(uint64(id), 10))
	if err != nil {
		return nil, eris.Wrapf(err, "locking content %d", id)
	}
	return unlock, nil
}

func (s *service) log(fields logrus.Fields) *logrus.Entry {
	if s.logger == nil {
		return logrus.NewEntry(discardLogger)
	}
	return s.logger.WithFields(fields)
}

func (s *service) recordError(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		entry.Error(message)
	}

	if s.sentryHub != nil && !isExpected(err) {
		s.sentryHub.CaptureException(err)
	}
}

// isExpected reports errors caused by the request rather than the system.
func isExpected(err error) bool {
	for _, target := range []error{
		ErrContentNotFound,
		ErrUnknownType,
		ErrParentNotFound,
		ErrInvalidParent,
		ErrHasChildren,
		ErrInvalidInput,
		revision.ErrRevisionNotFound,
		workflow.ErrIllegalTransition,
		workflow.ErrScheduleInPast,
		workflow.ErrUnknownAction,
		translation.ErrUnknownAttribute,
	} {
		if eris.Is(err, target) {
			return true
		}
	}
	return false
}

func groupOf(typ Type, parentID *uint) ordering.Group {
	group := ordering.Group{"type": string(typ), "parent_id": nil}
	if parentID != nil {
		group["parent_id"] = *parentID
	}
	return group
}

func sameParent(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
