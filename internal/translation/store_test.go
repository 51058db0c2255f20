package translation

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/app/internal/db"
	"folio/app/internal/slug"
)

func TestTranslateFallsBackToFallbackLocale(t *testing.T) {
	t.Parallel()

	store := setupStore(t)
	ctx := context.Background()

	_, err := store.Set(ctx, 1, "en", Fields{Title: ptr("Hello")})
	require.NoError(t, err)

	got, err := store.Translate(ctx, 1, AttrTitle, "fr", true)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Hello", *got)

	got, err = store.Translate(ctx, 1, AttrTitle, "fr", false)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTranslateFallsBackWhenAttributeEmpty(t *testing.T) {
	t.Parallel()

	store := setupStore(t)
	ctx := context.Background()

	_, err := store.Set(ctx, 1, "en", Fields{Title: ptr("Hello"), MetaTitle: ptr("Hello | Folio")})
	require.NoError(t, err)
	_, err = store.Set(ctx, 1, "de", Fields{Title: ptr("Hallo")})
	require.NoError(t, err)

	title, err := store.Translate(ctx, 1, AttrTitle, "de", true)
	require.NoError(t, err)
	require.NotNil(t, title)
	assert.Equal(t, "Hallo", *title)

	meta, err := store.Translate(ctx, 1, AttrMetaTitle, "DE", true)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "Hello | Folio", *meta)

	missing, err := store.Translate(ctx, 1, AttrBody, "de", true)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTranslateRejectsUnknownAttribute(t *testing.T) {
	t.Parallel()

	store := setupStore(t)
	_, err := store.Translate(context.Background(), 1, Attribute("colour"), "en", true)
	assert.ErrorIs(t, err, ErrUnknownAttribute)
}

func TestSetUpsertsOnlyPassedAttributes(t *testing.T) {
	t.Parallel()

	store := setupStore(t)
	ctx := context.Background()

	first, err := store.Set(ctx, 7, "en", Fields{Title: ptr("Pricing"), MetaDescription: ptr("Plans and prices")})
	require.NoError(t, err)
	assert.Equal(t, "pricing", first.Slug)

	second, err := store.Set(ctx, 7, "en", Fields{Title: ptr("Pricing plans")})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Pricing plans", second.Title)
	assert.Equal(t, "Plans and prices", second.MetaDescription)
	assert.Equal(t, "pricing", second.Slug, "an existing slug is kept when the title changes")

	rows, err := store.List(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSetGeneratesUniqueSlugsPerLocale(t *testing.T) {
	t.Parallel()

	store := setupStore(t)
	ctx := context.Background()

	a, err := store.Set(ctx, 1, "en", Fields{Title: ptr("Release Notes")})
	require.NoError(t, err)
	b, err := store.Set(ctx, 2, "en", Fields{Title: ptr("Release Notes")})
	require.NoError(t, err)
	c, err := store.Set(ctx, 3, "de", Fields{Title: ptr("Release Notes")})
	require.NoError(t, err)

	assert.Equal(t, "release-notes", a.Slug)
	assert.Equal(t, "release-notes-1", b.Slug)
	assert.Equal(t, "release-notes", c.Slug)

	again, err := store.Set(ctx, 1, "en", Fields{Slug: ptr("Release Notes")})
	require.NoError(t, err)
	assert.Equal(t, "release-notes", again.Slug, "an owner does not collide with itself")

	owner, err := store.FindOwnerBySlug(ctx, nil, "en", "release-notes-1")
	require.NoError(t, err)
	assert.Equal(t, uint(2), owner)
}

func TestSetTransliteratesNonLatinTitles(t *testing.T) {
	t.Parallel()

	store := setupStore(t)
	ctx := context.Background()

	for _, title := range []string{"Привет мир", "مرحبا بالعالم"} {
		first, err := store.Set(ctx, 10, "en", Fields{Title: ptr(title)})
		require.NoError(t, err)
		second, err := store.Set(ctx, 11, "en", Fields{Title: ptr(title)})
		require.NoError(t, err)

		require.NotEmpty(t, first.Slug, "title %q", title)
		assert.Equal(t, first.Slug+"-1", second.Slug, "title %q", title)

		require.NoError(t, store.DeleteAll(ctx, 10))
		require.NoError(t, store.DeleteAll(ctx, 11))
	}

	row, err := store.Set(ctx, 12, "en", Fields{Title: ptr("Привет мир")})
	require.NoError(t, err)
	assert.Equal(t, "privet-mir", row.Slug)
}

func TestSetFallsBackWhenTitleHasNoSlugCharacters(t *testing.T) {
	t.Parallel()

	store := setupStore(t)
	ctx := context.Background()

	row, err := store.Set(ctx, 4, "en", Fields{Title: ptr("!!!")})
	require.NoError(t, err)
	assert.Equal(t, "item-4", row.Slug)
}

func TestSetDerivesExcerptFromBody(t *testing.T) {
	t.Parallel()

	store := setupStore(t)
	row, err := store.Set(context.Background(), 4, "en", Fields{
		Title: ptr("Event"),
		Body:  ptr("<h2>Doors</h2><p>Open at <b>7pm</b>.</p><script>track()</script>"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Doors Open at 7pm.", row.Excerpt)
}

func TestSetManyAndDelete(t *testing.T) {
	t.Parallel()

	store := setupStore(t)
	ctx := context.Background()

	rows, err := store.SetMany(ctx, 9, map[string]Fields{
		"fr": {Title: ptr("Bonjour")},
		"en": {Title: ptr("Hello")},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "en", rows[0].Locale)
	assert.Equal(t, "fr", rows[1].Locale)

	require.NoError(t, store.Delete(ctx, 9, "fr"))
	row, err := store.Find(ctx, 9, "fr")
	require.NoError(t, err)
	assert.Nil(t, row)

	require.NoError(t, store.DeleteAll(ctx, 9))
	remaining, err := store.List(ctx, 9)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestExcerptTruncatesAtWordBoundary(t *testing.T) {
	t.Parallel()

	got := Excerpt("<p>alpha beta gamma delta</p>", 12)
	assert.Equal(t, "alpha beta…", got)
	assert.Equal(t, "short", Excerpt("short", 12))
}

func setupStore(t *testing.T) *Store {
	t.Helper()

	gormDB, err := db.Open(db.Options{Path: filepath.Join(t.TempDir(), "translations.db")})
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, db.Close(gormDB))
	})

	require.NoError(t, gormDB.AutoMigrate(&Translation{}))

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store, err := NewStore(gormDB, Options{
		DefaultLocale:  "en",
		FallbackLocale: "en",
		Slugs:          slug.NewGenerator(0),
		Logger:         logger,
	})
	require.NoError(t, err)
	return store
}

func ptr(s string) *string {
	return &s
}
