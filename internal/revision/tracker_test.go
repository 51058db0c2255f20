package revision

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/app/internal/db"
	"folio/app/internal/lock"
)

type note struct {
	ID        uint
	Title     string
	Body      string
	Views     int
	UpdatedAt time.Time
}

func (n *note) RevisionOwner() Owner {
	return Owner{Type: "note", ID: n.ID}
}

func (n *note) RevisionFields() (map[string]any, error) {
	return map[string]any{
		"id":         n.ID,
		"title":      n.Title,
		"body":       n.Body,
		"views":      n.Views,
		"updated_at": n.UpdatedAt,
	}, nil
}

func (n *note) ApplyRevisionFields(data map[string]any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var fields struct {
		Title string `json:"title"`
		Body  string `json:"body"`
		Views int    `json:"views"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}
	n.Title, n.Body, n.Views = fields.Title, fields.Body, fields.Views
	return nil
}

func TestCaptureNumbersRevisionsWithoutGaps(t *testing.T) {
	t.Parallel()

	tracker := setupTracker(t, Options{})
	ctx := context.Background()
	subject := &note{ID: 1, Title: "v0"}

	for i := 1; i <= 5; i++ {
		rev := mutate(t, tracker, subject, func(n *note) { n.Title = "v" + string(rune('0'+i)) })
		require.NotNil(t, rev)
		assert.Equal(t, i, rev.RevisionNumber)
	}

	revisions, err := tracker.List(ctx, subject.RevisionOwner())
	require.NoError(t, err)
	require.Len(t, revisions, 5)

	numbers := make([]int, 0, len(revisions))
	for _, rev := range revisions {
		numbers = append(numbers, rev.RevisionNumber)
		assert.True(t, rev.IsAuto)
	}
	sort.Ints(numbers)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, numbers)

	first, err := tracker.Get(ctx, subject.RevisionOwner(), 1)
	require.NoError(t, err)
	assert.Equal(t, "v0", first.Data["title"])
	assert.Equal(t, FieldChange{Old: "v0", New: "v1"}, first.Changes.Data()["title"])
	require.NotNil(t, first.AuthorID)
	assert.Equal(t, "editor-1", *first.AuthorID)
}

func TestCaptureSkipsUntrackedChanges(t *testing.T) {
	t.Parallel()

	tracker := setupTracker(t, Options{Exclude: []string{"views"}})
	subject := &note{ID: 7, Title: "Draft"}

	rev := mutate(t, tracker, subject, func(n *note) {
		n.UpdatedAt = n.UpdatedAt.Add(time.Hour)
		n.Views++
	})
	assert.Nil(t, rev)

	rev = mutate(t, tracker, subject, func(n *note) {})
	assert.Nil(t, rev)

	rev = mutate(t, tracker, subject, func(n *note) { n.Body = "text" })
	require.NotNil(t, rev)
	assert.Equal(t, 1, rev.RevisionNumber)
	assert.NotContains(t, rev.Data, "views")
	assert.NotContains(t, rev.Data, "updated_at")
	assert.NotContains(t, rev.Data, "id")
	assert.Equal(t, []string{"body"}, keys(rev.Changes.Data()))
}

func TestRestoreOfRestoreReturnsToRestoredState(t *testing.T) {
	t.Parallel()

	tracker := setupTracker(t, Options{})
	ctx := context.Background()
	subject := &note{ID: 3, Title: "first", Views: 1}

	mutate(t, tracker, subject, func(n *note) { n.Title = "second" })
	mutate(t, tracker, subject, func(n *note) { n.Title = "third"; n.Views = 9 })

	persisted := 0
	persist := func(context.Context) error {
		persisted++
		return nil
	}

	snapshot, err := tracker.Restore(ctx, subject, 1, "editor-2", persist)
	require.NoError(t, err)
	assert.False(t, snapshot.IsAuto)
	assert.Equal(t, 3, snapshot.RevisionNumber)
	assert.Equal(t, "third", snapshot.Data["title"])
	assert.Equal(t, "first", subject.Title)
	assert.Equal(t, 1, subject.Views)
	restored := *subject

	undo, err := tracker.Restore(ctx, subject, snapshot.RevisionNumber, "editor-2", persist)
	require.NoError(t, err)
	assert.Equal(t, "third", subject.Title)
	assert.Equal(t, 9, subject.Views)

	_, err = tracker.Restore(ctx, subject, undo.RevisionNumber, "editor-2", persist)
	require.NoError(t, err)
	assert.Equal(t, restored, *subject)
	assert.Equal(t, 3, persisted)

	latest, err := tracker.Latest(ctx, subject.RevisionOwner())
	require.NoError(t, err)
	assert.Equal(t, 5, latest)
}

func TestRestoreMissingRevisionLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	tracker := setupTracker(t, Options{})
	ctx := context.Background()
	subject := &note{ID: 4, Title: "kept"}
	mutate(t, tracker, subject, func(n *note) { n.Title = "current" })

	_, err := tracker.Restore(ctx, subject, 42, "editor", func(context.Context) error {
		require.FailNow(t, "persist must not run")
		return nil
	})
	require.ErrorIs(t, err, ErrRevisionNotFound)
	assert.Equal(t, "current", subject.Title)

	revisions, err := tracker.List(ctx, subject.RevisionOwner())
	require.NoError(t, err)
	assert.Len(t, revisions, 1)
}

func TestCompareIsSymmetric(t *testing.T) {
	t.Parallel()

	tracker := setupTracker(t, Options{})
	ctx := context.Background()
	subject := &note{ID: 5, Title: "alpha", Body: "same", Views: 2}

	mutate(t, tracker, subject, func(n *note) { n.Title = "beta"; n.Views = 3 })
	mutate(t, tracker, subject, func(n *note) { n.Title = "gamma" })

	forward, err := tracker.Compare(ctx, subject.RevisionOwner(), 1, 2)
	require.NoError(t, err)
	backward, err := tracker.Compare(ctx, subject.RevisionOwner(), 2, 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"title", "views"}, forward.Keys())
	assert.Equal(t, forward.Keys(), backward.Keys())
	for _, key := range forward.Keys() {
		assert.Equal(t, forward[key].From, backward[key].To)
		assert.Equal(t, forward[key].To, backward[key].From)
	}
	assert.Equal(t, Delta{From: "alpha", To: "beta"}, forward["title"])

	_, err = tracker.Compare(ctx, subject.RevisionOwner(), 1, 99)
	require.ErrorIs(t, err, ErrRevisionNotFound)
}

func TestPruneKeepsNewestRevisions(t *testing.T) {
	t.Parallel()

	tracker := setupTracker(t, Options{})
	ctx := context.Background()
	subject := &note{ID: 6}
	other := &note{ID: 8}

	for i := 0; i < 6; i++ {
		mutate(t, tracker, subject, func(n *note) { n.Views++ })
	}
	for i := 0; i < 2; i++ {
		mutate(t, tracker, other, func(n *note) { n.Views++ })
	}

	deleted, err := tracker.Prune(ctx, subject.RevisionOwner(), 2)
	require.NoError(t, err)
	assert.EqualValues(t, 4, deleted)

	revisions, err := tracker.List(ctx, subject.RevisionOwner())
	require.NoError(t, err)
	require.Len(t, revisions, 2)
	assert.Equal(t, 6, revisions[0].RevisionNumber)
	assert.Equal(t, 5, revisions[1].RevisionNumber)

	next := mutate(t, tracker, subject, func(n *note) { n.Views++ })
	assert.Equal(t, 7, next.RevisionNumber)

	deleted, err = tracker.PruneAll(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 3, deleted)

	_, err = tracker.Prune(ctx, subject.RevisionOwner(), -1)
	require.Error(t, err)
}

func TestConcurrentCapturesGetDistinctNumbers(t *testing.T) {
	t.Parallel()

	tracker := setupTracker(t, Options{Locker: lock.NewLocal()})
	ctx := context.Background()
	owner := Owner{Type: "note", ID: 11}

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := tracker.Capture(ctx, owner, map[string]any{"views": i}, map[string]any{"views": i + 1}, "")
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	revisions, err := tracker.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, revisions, writers)
	for i, rev := range revisions {
		assert.Equal(t, writers-i, rev.RevisionNumber)
		assert.Nil(t, rev.AuthorID)
	}
}

func TestDiffReportsOneSidedKeys(t *testing.T) {
	t.Parallel()

	changes := Diff(map[string]any{"a": 1, "b": "x"}, map[string]any{"b": "y", "c": true})
	assert.Equal(t, Changes{
		"a": {Old: 1, New: nil},
		"b": {Old: "x", New: "y"},
		"c": {Old: nil, New: true},
	}, changes)
}

func mutate(t *testing.T, tracker *Tracker, subject *note, fn func(*note)) *Revision {
	t.Helper()

	before, err := subject.RevisionFields()
	require.NoError(t, err)
	fn(subject)
	after, err := subject.RevisionFields()
	require.NoError(t, err)

	rev, err := tracker.Capture(context.Background(), subject.RevisionOwner(), before, after, "editor-1")
	require.NoError(t, err)
	return rev
}

func keys(changes Changes) []string {
	out := make([]string, 0, len(changes))
	for key := range changes {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func setupTracker(t *testing.T, opts Options) *Tracker {
	t.Helper()

	gormDB, err := db.Open(db.Options{Path: filepath.Join(t.TempDir(), "revisions.db")})
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, db.Close(gormDB))
	})

	require.NoError(t, gormDB.AutoMigrate(&Revision{}))

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	opts.Logger = logger

	tracker, err := NewTracker(gormDB, opts)
	require.NoError(t, err)
	return tracker
}
