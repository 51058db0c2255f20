package revision

import (
	"context"
	"io"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"folio/app/internal/db"
	"folio/app/internal/lock"
)

const defaultAttempts = 3

var discard = &logrus.Logger{Out: io.Discard, Formatter: new(logrus.JSONFormatter), Hooks: make(logrus.LevelHooks), Level: logrus.PanicLevel}

// SystemColumns are never tracked.
var SystemColumns = []string{"id", "created_at", "updated_at", "deleted_at"}

// Options configures a Tracker.
type Options struct {
	// Exclude lists fields that are not revisionable in addition to SystemColumns.
	Exclude  []string
	Locker   lock.Locker
	Logger   *logrus.Logger
	Attempts int
}

// Tracker captures, restores, compares and prunes revisions.
type Tracker struct {
	db       *gorm.DB
	exclude  mapset.Set[string]
	locker   lock.Locker
	logger   *logrus.Logger
	attempts int
}

// NewTracker constructs a Tracker over db.
func NewTracker(db *gorm.DB, opts Options) (*Tracker, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	exclude := mapset.NewSet[string](SystemColumns...)
	for _, field := range opts.Exclude {
		if field = strings.TrimSpace(field); field != "" {
			exclude.Add(field)
		}
	}

	locker := opts.Locker
	if locker == nil {
		locker = lock.NewLocal()
	}

	attempts := opts.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}

	return &Tracker{
		db:       db,
		exclude:  exclude,
		locker:   locker,
		logger:   opts.Logger,
		attempts: attempts,
	}, nil
}

// WithTx returns a copy of the tracker bound to tx.
func (t *Tracker) WithTx(tx *gorm.DB) *Tracker {
	clone := *t
	clone.db = tx
	return &clone
}

// Tracked reports whether field takes part in snapshots.
func (t *Tracker) Tracked(field string) bool {
	return !t.exclude.Contains(field)
}

// Snapshot returns the tracked, JSON-normalised fields of entity.
func (t *Tracker) Snapshot(entity Revisable) (map[string]any, error) {
	fields, err := entity.RevisionFields()
	if err != nil {
		return nil, eris.Wrapf(err, "reading fields of %s", entity.RevisionOwner())
	}
	return t.filter(fields)
}

// Capture stores an automatic revision holding the pre-update snapshot when any tracked
// field differs between before and after. It returns nil when nothing changed.
func (t *Tracker) Capture(ctx context.Context, owner Owner, before, after map[string]any, actor string) (*Revision, error) {
	before, err := t.filter(before)
	if err != nil {
		return nil, err
	}
	after, err = t.filter(after)
	if err != nil {
		return nil, err
	}

	changes := Diff(before, after)
	if len(changes) == 0 {
		return nil, nil
	}

	return t.record(ctx, owner, before, changes, true, actor)
}

// Restore overwrites entity with the data of revision number. The current state is first
// stored as a manual revision so the restore can itself be undone. persist writes the
// entity and must not capture another revision.
func (t *Tracker) Restore(ctx context.Context, entity Revisable, number int, actor string, persist func(context.Context) error) (*Revision, error) {
	owner := entity.RevisionOwner()

	target, err := t.Get(ctx, owner, number)
	if err != nil {
		return nil, err
	}

	current, err := t.Snapshot(entity)
	if err != nil {
		return nil, err
	}

	data := map[string]any(target.Data)
	manual, err := t.record(ctx, owner, current, Diff(current, data), false, actor)
	if err != nil {
		return nil, err
	}

	if err := entity.ApplyRevisionFields(data); err != nil {
		return nil, eris.Wrapf(err, "applying revision %d to %s", number, owner)
	}

	if persist != nil {
		if err := persist(ctx); err != nil {
			return nil, eris.Wrapf(err, "persisting restore of %s", owner)
		}
	}

	t.log(logrus.Fields{"owner": owner.String(), "revision": number, "snapshot": manual.RevisionNumber}).Info("revision restored")
	return manual, nil
}

// Compare returns the fields that differ between revisions a and b.
func (t *Tracker) Compare(ctx context.Context, owner Owner, a, b int) (Comparison, error) {
	from, err := t.Get(ctx, owner, a)
	if err != nil {
		return nil, err
	}
	to, err := t.Get(ctx, owner, b)
	if err != nil {
		return nil, err
	}

	comparison := Comparison{}
	for key, change := range Diff(from.Data, to.Data) {
		comparison[key] = Delta{From: change.Old, To: change.New}
	}
	return comparison, nil
}

// List returns the revisions of owner, newest first.
func (t *Tracker) List(ctx context.Context, owner Owner) ([]Revision, error) {
	var revisions []Revision
	err := t.db.WithContext(ctx).
		Where("owner_type = ? AND owner_id = ?", owner.Type, owner.ID).
		Order("revision_number DESC").
		Find(&revisions).Error
	if err != nil {
		t.logError(owner, err, "listing revisions")
		return nil, eris.Wrapf(err, "listing revisions of %s", owner)
	}
	return revisions, nil
}

// Get returns revision number of owner.
func (t *Tracker) Get(ctx context.Context, owner Owner, number int) (*Revision, error) {
	var revision Revision
	err := t.db.WithContext(ctx).
		Where("owner_type = ? AND owner_id = ? AND revision_number = ?", owner.Type, owner.ID, number).
		Take(&revision).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, eris.Wrapf(ErrRevisionNotFound, "revision %d of %s", number, owner)
		}
		t.logError(owner, err, "fetching revision")
		return nil, eris.Wrapf(err, "fetching revision %d of %s", number, owner)
	}
	return &revision, nil
}

// Latest returns the highest revision number of owner, or zero.
func (t *Tracker) Latest(ctx context.Context, owner Owner) (int, error) {
	var latest int
	err := t.db.WithContext(ctx).
		Model(&Revision{}).
		Where("owner_type = ? AND owner_id = ?", owner.Type, owner.ID).
		Select("COALESCE(MAX(revision_number), 0)").
		Scan(&latest).Error
	if err != nil {
		return 0, eris.Wrapf(err, "reading latest revision of %s", owner)
	}
	return latest, nil
}

// Prune keeps the keep newest revisions of owner and deletes the rest.
func (t *Tracker) Prune(ctx context.Context, owner Owner, keep int) (int64, error) {
	if keep < 0 {
		return 0, eris.Errorf("keep must not be negative, got %d", keep)
	}

	var cutoff []int
	err := t.db.WithContext(ctx).
		Model(&Revision{}).
		Where("owner_type = ? AND owner_id = ?", owner.Type, owner.ID).
		Order("revision_number DESC").
		Offset(keep).
		Limit(1).
		Pluck("revision_number", &cutoff).Error
	if err != nil {
		return 0, eris.Wrapf(err, "locating prune cutoff for %s", owner)
	}
	if len(cutoff) == 0 {
		return 0, nil
	}

	result := t.db.WithContext(ctx).
		Where("owner_type = ? AND owner_id = ? AND revision_number <= ?", owner.Type, owner.ID, cutoff[0]).
		Delete(&Revision{})
	if result.Error != nil {
		t.logError(owner, result.Error, "pruning revisions")
		return 0, eris.Wrapf(result.Error, "pruning revisions of %s", owner)
	}
	return result.RowsAffected, nil
}

// PruneAll applies Prune to every owner holding more than keep revisions.
func (t *Tracker) PruneAll(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		return 0, eris.Errorf("keep must not be negative, got %d", keep)
	}

	var owners []struct {
		OwnerType string
		OwnerID   uint
	}
	err := t.db.WithContext(ctx).
		Model(&Revision{}).
		Select("owner_type, owner_id").
		Group("owner_type, owner_id").
		Having("COUNT(*) > ?", keep).
		Scan(&owners).Error
	if err != nil {
		return 0, eris.Wrap(err, "listing revision owners")
	}

	var total int64
	for _, row := range owners {
		deleted, err := t.Prune(ctx, Owner{Type: row.OwnerType, ID: row.OwnerID}, keep)
		if err != nil {
			return total, err
		}
		total += deleted
	}
	return total, nil
}

// record numbers and stores a revision. Numbering holds the owner's lock and retries
// when another writer took the number first.
func (t *Tracker) record(ctx context.Context, owner Owner, data map[string]any, changes Changes, auto bool, actor string) (*Revision, error) {
	if owner.Type == "" || owner.ID == 0 {
		return nil, eris.New("revision owner is required")
	}

	unlock, err := t.locker.Lock(ctx, "revision:"+owner.String())
	if err != nil {
		return nil, eris.Wrapf(err, "locking revisions of %s", owner)
	}
	defer unlock()

	var author *string
	if actor = strings.TrimSpace(actor); actor != "" {
		author = &actor
	}

	for attempt := 1; ; attempt++ {
		latest, err := t.Latest(ctx, owner)
		if err != nil {
			return nil, err
		}

		revision := &Revision{
			OwnerType:      owner.Type,
			OwnerID:        owner.ID,
			RevisionNumber: latest + 1,
			Data:           datatypes.JSONMap(data),
			Changes:        datatypes.NewJSONType(changes),
			IsAuto:         auto,
			AuthorID:       author,
		}

		err = t.db.WithContext(ctx).Create(revision).Error
		if err == nil {
			return revision, nil
		}
		if !db.IsUniqueViolation(err) || attempt >= t.attempts {
			t.logError(owner, err, "storing revision")
			return nil, eris.Wrapf(err, "storing revision %d of %s", latest+1, owner)
		}

		t.log(logrus.Fields{"owner": owner.String(), "attempt": attempt}).Warn("revision number taken, retrying")
	}
}

func (t *Tracker) filter(fields map[string]any) (map[string]any, error) {
	tracked := make(map[string]any, len(fields))
	for key, value := range fields {
		if t.Tracked(key) {
			tracked[key] = value
		}
	}
	return normalize(tracked)
}

func (t *Tracker) log(fields logrus.Fields) *logrus.Entry {
	if t.logger == nil {
		return discard.WithFields(fields)
	}
	return t.logger.WithFields(fields)
}

func (t *Tracker) logError(owner Owner, err error, message string) {
	if t.logger == nil || err == nil {
		return
	}
	t.logger.WithFields(logrus.Fields{"owner": owner.String(), "error": err.Error()}).Error(message)
}
