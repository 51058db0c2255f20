package content

import (
	"context"
	"io"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/app/internal/db"
	"folio/app/internal/lock"
	"folio/app/internal/revision"
	"folio/app/internal/translation"
	"folio/app/internal/workflow"
)

var epoch = time.Date(2030, time.January, 1, 9, 0, 0, 0, time.UTC)

func TestCreateAssignsRanksAndUniqueSlugs(t *testing.T) {
	t.Parallel()

	svc, _ := setupService(t)
	ctx := context.Background()

	first := create(t, svc, TypeArticle, nil, "Launch Notes")
	second := create(t, svc, TypeArticle, nil, "Launch Notes")
	page := create(t, svc, TypePage, nil, "Launch Notes")

	assert.Equal(t, "launch-notes", first.Translation("en").Slug)
	assert.Equal(t, "launch-notes-1", second.Translation("en").Slug)
	assert.Equal(t, "launch-notes", page.Translation("en").Slug)

	assert.Equal(t, 1, first.Ordering)
	assert.Equal(t, 2, second.Ordering)
	assert.Equal(t, 1, page.Ordering)
	assert.Equal(t, workflow.StatusDraft, first.Status)
	assert.Equal(t, "author-1", first.AuthorID)

	found, err := svc.GetBySlug(ctx, TypeArticle, "en", "launch-notes-1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, found.ID)

	_, err = svc.GetBySlug(ctx, TypeEvent, "en", "launch-notes")
	require.ErrorIs(t, err, ErrContentNotFound)

	_, err = svc.Create(ctx, "author-1", CreateInput{Type: "podcast"})
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestCreateSlugsNonLatinTitles(t *testing.T) {
	t.Parallel()

	svc, _ := setupService(t)
	ctx := context.Background()

	for _, title := range []string{"Привет мир", "مرحبا بالعالم", "東京ガイド"} {
		first := create(t, svc, TypeArticle, nil, title)
		second := create(t, svc, TypeArticle, nil, title)

		firstSlug := first.Translation("en").Slug
		require.NotEmpty(t, firstSlug, "title %q", title)
		assert.Equal(t, firstSlug+"-1", second.Translation("en").Slug, "title %q", title)

		found, err := svc.GetBySlug(ctx, TypeArticle, "en", firstSlug)
		require.NoError(t, err)
		assert.Equal(t, first.ID, found.ID)
	}

	symbols := create(t, svc, TypeEvent, nil, "***")
	assert.Equal(t, "event-"+strconv.FormatUint(uint64(symbols.ID), 10), symbols.Translation("en").Slug)
}

func TestCreateAtExplicitPosition(t *testing.T) {
	t.Parallel()

	svc, _ := setupService(t)
	ctx := context.Background()

	a := create(t, svc, TypePage, nil, "A")
	b := create(t, svc, TypePage, nil, "B")

	c, err := svc.Create(ctx, "author-1", CreateInput{
		Type:         TypePage,
		Position:     1,
		Translations: map[string]translation.Fields{"en": {Title: ptr("C")}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, c.Ordering)

	assertOrder(t, svc, c.ID, []uint{c.ID, a.ID, b.ID})
}

func TestScheduleThenCancelReturnsToDraft(t *testing.T) {
	t.Parallel()

	svc, _ := setupService(t)
	ctx := context.Background()
	entity := create(t, svc, TypeEvent, nil, "Open Day")

	at := time.Date(2099, time.January, 1, 0, 0, 0, 0, time.UTC)
	scheduled, err := svc.Transition(ctx, entity.ID, "editor", workflow.ActionSchedule, TransitionInput{At: &at})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusScheduled, scheduled.Status)
	require.NotNil(t, scheduled.ScheduledAt)
	assert.True(t, scheduled.ScheduledAt.Equal(at))

	cancelled, err := svc.Transition(ctx, entity.ID, "editor", workflow.ActionCancelSchedule, TransitionInput{})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusDraft, cancelled.Status)
	assert.Nil(t, cancelled.ScheduledAt)

	stored, err := svc.Get(ctx, entity.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusDraft, stored.Status)
	assert.Nil(t, stored.ScheduledAt)

	revisions, err := svc.Revisions(ctx, entity.ID)
	require.NoError(t, err)
	assert.Len(t, revisions, 2)
}

func TestIllegalTransitionLeavesNoTrace(t *testing.T) {
	t.Parallel()

	svc, _ := setupService(t)
	ctx := context.Background()
	entity := create(t, svc, TypeArticle, nil, "Draft")

	_, err := svc.Transition(ctx, entity.ID, "editor", workflow.ActionUnpublish, TransitionInput{})
	require.ErrorIs(t, err, workflow.ErrIllegalTransition)

	past := epoch.Add(-time.Hour)
	_, err = svc.Transition(ctx, entity.ID, "editor", workflow.ActionSchedule, TransitionInput{At: &past})
	require.ErrorIs(t, err, workflow.ErrScheduleInPast)

	_, err = svc.Transition(ctx, entity.ID, "editor", workflow.ActionSchedule, TransitionInput{})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Transition(ctx, entity.ID, "editor", workflow.Action("teleport"), TransitionInput{})
	require.ErrorIs(t, err, workflow.ErrUnknownAction)

	revisions, err := svc.Revisions(ctx, entity.ID)
	require.NoError(t, err)
	assert.Empty(t, revisions)
}

func TestReviewCycleRecordsReviewer(t *testing.T) {
	t.Parallel()

	svc, _ := setupService(t)
	ctx := context.Background()
	entity := create(t, svc, TypeService, nil, "Consulting")

	steps := []struct {
		action workflow.Action
		input  TransitionInput
		want   workflow.Status
	}{
		{workflow.ActionSubmitForReview, TransitionInput{}, workflow.StatusPendingReview},
		{workflow.ActionStartReview, TransitionInput{}, workflow.StatusInReview},
		{workflow.ActionApprove, TransitionInput{Notes: "ship it"}, workflow.StatusApproved},
		{workflow.ActionPublish, TransitionInput{}, workflow.StatusPublished},
		{workflow.ActionArchive, TransitionInput{}, workflow.StatusArchived},
		{workflow.ActionUnarchive, TransitionInput{}, workflow.StatusDraft},
	}

	var current *Entity
	for _, step := range steps {
		var err error
		current, err = svc.Transition(ctx, entity.ID, "reviewer-9", step.action, step.input)
		require.NoError(t, err, step.action)
		assert.Equal(t, step.want, current.Status, step.action)
	}

	require.NotNil(t, current.ReviewedBy)
	assert.Equal(t, "reviewer-9", *current.ReviewedBy)
	require.NotNil(t, current.ReviewNotes)
	assert.Equal(t, "ship it", *current.ReviewNotes)
	require.NotNil(t, current.PublishedAt)
	assert.True(t, current.PublishedAt.Equal(epoch))
	assert.Nil(t, current.ArchivedAt)

	revisions, err := svc.Revisions(ctx, entity.ID)
	require.NoError(t, err)
	require.Len(t, revisions, len(steps))
	for i, rev := range revisions {
		assert.Equal(t, len(steps)-i, rev.RevisionNumber)
		assert.True(t, rev.IsAuto)
	}
}

func TestUpdatesAreRevisionedWithoutGaps(t *testing.T) {
	t.Parallel()

	svc, _ := setupService(t)
	ctx := context.Background()
	entity := create(t, svc, TypeProduct, nil, "Kettle")

	for _, price := range []int{10, 12, 15} {
		_, err := svc.Update(ctx, entity.ID, "editor", UpdateInput{Attributes: map[string]any{"price": price}})
		require.NoError(t, err)
	}
	_, err := svc.Update(ctx, entity.ID, "editor", UpdateInput{Attributes: map[string]any{"price": 15}})
	require.NoError(t, err)

	revisions, err := svc.Revisions(ctx, entity.ID)
	require.NoError(t, err)
	require.Len(t, revisions, 3)
	assert.Equal(t, []int{3, 2, 1}, numbers(revisions))

	changes := revisions[0].Changes.Data()
	require.Contains(t, changes, "attributes")
	assert.NotContains(t, changes, "updated_at")
	assert.NotContains(t, changes, "ordering")
}

func TestRestoreRevisionRoundTrip(t *testing.T) {
	t.Parallel()

	svc, _ := setupService(t)
	ctx := context.Background()
	entity := create(t, svc, TypeArticle, nil, "Original")

	_, err := svc.SetTranslation(ctx, entity.ID, "editor", "en", translation.Fields{Title: ptr("Changed")})
	require.NoError(t, err)
	_, err = svc.SetTranslation(ctx, entity.ID, "editor", "de", translation.Fields{Title: ptr("Geändert")})
	require.NoError(t, err)

	restored, snapshot, err := svc.RestoreRevision(ctx, entity.ID, "editor", 1)
	require.NoError(t, err)
	assert.False(t, snapshot.IsAuto)
	assert.Equal(t, 3, snapshot.RevisionNumber)
	assert.Equal(t, "Original", restored.Translation("en").Title)
	assert.Equal(t, "original", restored.Translation("en").Slug)
	assert.Nil(t, restored.Translation("de"))

	title, err := svc.Translate(ctx, entity.ID, translation.AttrTitle, "de", true)
	require.NoError(t, err)
	require.NotNil(t, title)
	assert.Equal(t, "Original", *title)

	_, undo, err := svc.RestoreRevision(ctx, entity.ID, "editor", snapshot.RevisionNumber)
	require.NoError(t, err)
	current, err := svc.Get(ctx, entity.ID)
	require.NoError(t, err)
	assert.Equal(t, "Geändert", current.Translation("de").Title)

	again, _, err := svc.RestoreRevision(ctx, entity.ID, "editor", undo.RevisionNumber)
	require.NoError(t, err)
	assert.Equal(t, "Original", again.Translation("en").Title)
	assert.Nil(t, again.Translation("de"))

	_, _, err = svc.RestoreRevision(ctx, entity.ID, "editor", 99)
	require.ErrorIs(t, err, revision.ErrRevisionNotFound)
}

func TestCompareRevisionsIsSymmetric(t *testing.T) {
	t.Parallel()

	svc, _ := setupService(t)
	ctx := context.Background()
	entity := create(t, svc, TypePlan, nil, "Starter")

	_, err := svc.Update(ctx, entity.ID, "editor", UpdateInput{Attributes: map[string]any{"seats": 5}})
	require.NoError(t, err)
	_, err = svc.Transition(ctx, entity.ID, "editor", workflow.ActionPublish, TransitionInput{})
	require.NoError(t, err)

	forward, err := svc.CompareRevisions(ctx, entity.ID, 1, 2)
	require.NoError(t, err)
	backward, err := svc.CompareRevisions(ctx, entity.ID, 2, 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"attributes"}, forward.Keys())
	assert.Equal(t, forward.Keys(), backward.Keys())
	assert.Equal(t, forward["attributes"].From, backward["attributes"].To)
	assert.Equal(t, forward["attributes"].To, backward["attributes"].From)

	deleted, err := svc.PruneRevisions(ctx, entity.ID, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
}

func TestMovesAndDeleteKeepRanksDense(t *testing.T) {
	t.Parallel()

	svc, _ := setupService(t)
	ctx := context.Background()

	a := create(t, svc, TypePage, nil, "A")
	b := create(t, svc, TypePage, nil, "B")
	c := create(t, svc, TypePage, nil, "C")
	d := create(t, svc, TypePage, nil, "D")

	applied, err := svc.MoveTo(ctx, d.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
	assertOrder(t, svc, a.ID, []uint{d.ID, a.ID, b.ID, c.ID})

	moved, err := svc.MoveDown(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, moved)
	assertOrder(t, svc, a.ID, []uint{d.ID, b.ID, a.ID, c.ID})

	moved, err = svc.MoveUp(ctx, d.ID)
	require.NoError(t, err)
	assert.False(t, moved)

	require.NoError(t, svc.Delete(ctx, b.ID))
	assertOrder(t, svc, a.ID, []uint{d.ID, a.ID, c.ID})

	_, err = svc.Get(ctx, b.ID)
	require.ErrorIs(t, err, ErrContentNotFound)
	_, err = svc.MoveUp(ctx, b.ID)
	require.ErrorIs(t, err, ErrContentNotFound)

	replacement := create(t, svc, TypePage, nil, "B")
	assert.Equal(t, "b", replacement.Translation("en").Slug)
}

func TestParentChangeRegroupsSiblings(t *testing.T) {
	t.Parallel()

	svc, _ := setupService(t)
	ctx := context.Background()

	a := create(t, svc, TypePage, nil, "A")
	b := create(t, svc, TypePage, nil, "B")
	c := create(t, svc, TypePage, nil, "C")

	moved, err := svc.Update(ctx, b.ID, "editor", UpdateInput{ParentID: &a.ID})
	require.NoError(t, err)
	require.NotNil(t, moved.ParentID)
	assert.Equal(t, a.ID, *moved.ParentID)
	assert.Equal(t, 1, moved.Ordering)

	assertOrder(t, svc, a.ID, []uint{a.ID, c.ID})

	child := create(t, svc, TypePage, &a.ID, "D")
	assert.Equal(t, 2, child.Ordering)

	_, err = svc.Update(ctx, a.ID, "editor", UpdateInput{ParentID: &b.ID})
	require.ErrorIs(t, err, ErrInvalidParent)

	missing := uint(999)
	_, err = svc.Update(ctx, c.ID, "editor", UpdateInput{ParentID: &missing})
	require.ErrorIs(t, err, ErrParentNotFound)

	err = svc.Delete(ctx, a.ID)
	require.ErrorIs(t, err, ErrHasChildren)

	detached, err := svc.Update(ctx, b.ID, "editor", UpdateInput{DetachParent: true})
	require.NoError(t, err)
	assert.Nil(t, detached.ParentID)
	assert.Equal(t, 3, detached.Ordering)
	assertOrder(t, svc, child.ID, []uint{child.ID})

	roots, err := svc.List(ctx, Filter{Type: TypePage, RootsOnly: true})
	require.NoError(t, err)
	assert.Len(t, roots, 3)
}

func TestPublishDuePublishesOnlyDueContent(t *testing.T) {
	t.Parallel()

	svc, clk := setupService(t)
	ctx := context.Background()

	soon := create(t, svc, TypeEvent, nil, "Soon")
	later := create(t, svc, TypeEvent, nil, "Later")
	draft := create(t, svc, TypeEvent, nil, "Draft")

	soonAt := epoch.Add(time.Hour)
	laterAt := epoch.Add(2 * time.Hour)
	_, err := svc.Transition(ctx, soon.ID, "editor", workflow.ActionSchedule, TransitionInput{At: &soonAt})
	require.NoError(t, err)
	_, err = svc.Transition(ctx, later.ID, "editor", workflow.ActionSchedule, TransitionInput{At: &laterAt})
	require.NoError(t, err)

	published, err := svc.PublishDue(ctx, "scheduler")
	require.NoError(t, err)
	assert.Empty(t, published)

	clk.Advance(90 * time.Minute)

	published, err = svc.PublishDue(ctx, "scheduler")
	require.NoError(t, err)
	assert.Equal(t, []uint{soon.ID}, published)

	live, err := svc.Get(ctx, soon.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusPublished, live.Status)
	assert.Nil(t, live.ScheduledAt)
	require.NotNil(t, live.PublishedAt)
	assert.True(t, live.PublishedAt.Equal(clk.Now()))

	waiting, err := svc.Get(ctx, later.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusScheduled, waiting.Status)

	untouched, err := svc.Get(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusDraft, untouched.Status)
}

func TestTranslateFallsBackForContent(t *testing.T) {
	t.Parallel()

	svc, _ := setupService(t)
	ctx := context.Background()
	entity := create(t, svc, TypeArticle, nil, "Hello")

	title, err := svc.Translate(ctx, entity.ID, translation.AttrTitle, "fr", true)
	require.NoError(t, err)
	require.NotNil(t, title)
	assert.Equal(t, "Hello", *title)

	title, err = svc.Translate(ctx, entity.ID, translation.AttrTitle, "fr", false)
	require.NoError(t, err)
	assert.Nil(t, title)

	require.NoError(t, svc.DeleteTranslation(ctx, entity.ID, "editor", "en"))
	title, err = svc.Translate(ctx, entity.ID, translation.AttrTitle, "en", true)
	require.NoError(t, err)
	assert.Nil(t, title)

	_, err = svc.Translate(ctx, 404, translation.AttrTitle, "en", true)
	require.ErrorIs(t, err, ErrContentNotFound)
}

func create(t *testing.T, svc Service, typ Type, parent *uint, title string) *Entity {
	t.Helper()

	entity, err := svc.Create(context.Background(), "author-1", CreateInput{
		Type:         typ,
		ParentID:     parent,
		Translations: map[string]translation.Fields{"en": {Title: ptr(title)}},
	})
	require.NoError(t, err)
	return entity
}

func assertOrder(t *testing.T, svc Service, member uint, want []uint) {
	t.Helper()

	siblings, err := svc.Siblings(context.Background(), member)
	require.NoError(t, err)

	got := make([]uint, 0, len(siblings))
	for i, sibling := range siblings {
		assert.Equal(t, i+1, sibling.Rank)
		got = append(got, sibling.ID)
	}
	assert.Equal(t, want, got)
}

func numbers(revisions []revision.Revision) []int {
	out := make([]int, 0, len(revisions))
	for _, rev := range revisions {
		out = append(out, rev.RevisionNumber)
	}
	return out
}

func ptr(value string) *string {
	return &value
}

func setupService(t *testing.T) (Service, *clockwork.FakeClock) {
	t.Helper()

	gormDB, err := db.Open(db.Options{Path: filepath.Join(t.TempDir(), "content.db")})
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, db.Close(gormDB))
	})

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	require.NoError(t, Migrate(context.Background(), gormDB, logger))

	clk := clockwork.NewFakeClockAt(epoch)
	locker := lock.NewLocal()

	store, err := NewTranslationStore(gormDB, StoreOptions{DefaultLocale: "en", FallbackLocale: "en", Logger: logger})
	require.NoError(t, err)
	tracker, err := NewRevisionTracker(gormDB, locker, logger)
	require.NoError(t, err)
	ranks, err := NewOrderingManager(gormDB, locker, logger)
	require.NoError(t, err)

	svc, err := NewService(Dependencies{
		DB:           gormDB,
		Translations: store,
		Revisions:    tracker,
		Ordering:     ranks,
		Workflow:     workflow.NewMachine(clk, workflow.Strict),
		Clock:        clk,
		Locker:       locker,
		Logger:       logger,
	})
	require.NoError(t, err)
	return svc, clk
}
