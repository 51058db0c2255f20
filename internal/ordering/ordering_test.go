package ordering

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"folio/app/internal/db"
)

type item struct {
	ID        uint `gorm:"primaryKey"`
	Name      string
	ParentID  *uint
	Ordering  int
	DeletedAt gorm.DeletedAt
}

func TestAppendRanksPerGroup(t *testing.T) {
	t.Parallel()

	manager, gormDB := setupManager(t)
	ctx := context.Background()
	parent := uint(1)

	roots := insertItems(t, gormDB, nil, "a", "b", "c")
	children := insertItems(t, gormDB, &parent, "x", "y")

	for i, id := range roots {
		rank, err := manager.Append(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, i+1, rank)
	}
	for i, id := range children {
		rank, err := manager.Append(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, i+1, rank)
	}

	next, err := manager.NextRank(ctx, Group{"parent_id": nil})
	require.NoError(t, err)
	assert.Equal(t, 4, next)

	group, err := manager.GroupOf(ctx, children[0])
	require.NoError(t, err)
	assert.EqualValues(t, 1, group["parent_id"])
}

func TestMoveUpAndDownSwapNeighbours(t *testing.T) {
	t.Parallel()

	manager, gormDB := setupManager(t)
	ctx := context.Background()
	ids := appendItems(t, manager, gormDB, "a", "b", "c")

	moved, err := manager.MoveUp(ctx, ids[2])
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, []string{"a", "c", "b"}, names(t, gormDB, nil))

	moved, err = manager.MoveUp(ctx, ids[0])
	require.NoError(t, err)
	assert.False(t, moved)

	moved, err = manager.MoveDown(ctx, ids[1])
	require.NoError(t, err)
	assert.False(t, moved)

	moved, err = manager.MoveDown(ctx, ids[0])
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, []string{"c", "a", "b"}, names(t, gormDB, nil))
}

func TestMoveToClampsAndResequences(t *testing.T) {
	t.Parallel()

	manager, gormDB := setupManager(t)
	ctx := context.Background()
	ids := appendItems(t, manager, gormDB, "a", "b", "c", "d")

	applied, err := manager.MoveTo(ctx, ids[3], 2)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)
	assert.Equal(t, []string{"a", "d", "b", "c"}, names(t, gormDB, nil))

	applied, err = manager.MoveTo(ctx, ids[0], 99)
	require.NoError(t, err)
	assert.Equal(t, 4, applied)
	assert.Equal(t, []string{"d", "b", "c", "a"}, names(t, gormDB, nil))

	applied, err = manager.MoveTo(ctx, ids[2], -3)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
	assert.Equal(t, []string{"c", "d", "b", "a"}, names(t, gormDB, nil))
	assertDense(t, manager, Group{"parent_id": nil}, 4)
}

func TestRandomMovesKeepRanksDense(t *testing.T) {
	t.Parallel()

	manager, gormDB := setupManager(t)
	ctx := context.Background()
	ids := appendItems(t, manager, gormDB, "a", "b", "c", "d", "e", "f")

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 60; i++ {
		id := ids[rng.Intn(len(ids))]
		var err error
		switch rng.Intn(3) {
		case 0:
			_, err = manager.MoveUp(ctx, id)
		case 1:
			_, err = manager.MoveDown(ctx, id)
		default:
			_, err = manager.MoveTo(ctx, id, rng.Intn(len(ids)+2)-1)
		}
		require.NoError(t, err)
		assertDense(t, manager, Group{"parent_id": nil}, len(ids))
	}
}

func TestResequenceSkipsDeletedRows(t *testing.T) {
	t.Parallel()

	manager, gormDB := setupManager(t)
	ctx := context.Background()
	ids := appendItems(t, manager, gormDB, "a", "b", "c")

	require.NoError(t, gormDB.Delete(&item{}, ids[1]).Error)
	require.NoError(t, manager.Resequence(ctx, Group{"parent_id": nil}))

	assertDense(t, manager, Group{"parent_id": nil}, 2)
	assert.Equal(t, []string{"a", "c"}, names(t, gormDB, nil))
}

func TestMissingRowIsReported(t *testing.T) {
	t.Parallel()

	manager, _ := setupManager(t)
	ctx := context.Background()

	_, err := manager.MoveUp(ctx, 404)
	require.ErrorIs(t, err, ErrRowNotFound)

	_, err = manager.Append(ctx, 404)
	require.ErrorIs(t, err, ErrRowNotFound)
}

func assertDense(t *testing.T, manager *Manager, group Group, n int) {
	t.Helper()

	siblings, err := manager.Siblings(context.Background(), group)
	require.NoError(t, err)
	require.Len(t, siblings, n)
	for i, sibling := range siblings {
		assert.Equal(t, i+1, sibling.Rank)
	}
}

func names(t *testing.T, gormDB *gorm.DB, parent *uint) []string {
	t.Helper()

	var rows []item
	query := gormDB.Order("ordering ASC, id ASC")
	if parent == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *parent)
	}
	require.NoError(t, query.Find(&rows).Error)

	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Name)
	}
	return out
}

func appendItems(t *testing.T, manager *Manager, gormDB *gorm.DB, labels ...string) []uint {
	t.Helper()

	ids := insertItems(t, gormDB, nil, labels...)
	for _, id := range ids {
		_, err := manager.Append(context.Background(), id)
		require.NoError(t, err)
	}
	return ids
}

func insertItems(t *testing.T, gormDB *gorm.DB, parent *uint, labels ...string) []uint {
	t.Helper()

	ids := make([]uint, 0, len(labels))
	for _, label := range labels {
		row := item{Name: label, ParentID: parent}
		require.NoError(t, gormDB.Create(&row).Error)
		ids = append(ids, row.ID)
	}
	return ids
}

func setupManager(t *testing.T) (*Manager, *gorm.DB) {
	t.Helper()

	gormDB, err := db.Open(db.Options{Path: filepath.Join(t.TempDir(), "ordering.db")})
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, db.Close(gormDB))
	})

	require.NoError(t, gormDB.AutoMigrate(&item{}))

	manager, err := NewManager(gormDB, Options{
		Table:            "items",
		GroupColumns:     []string{"parent_id"},
		SoftDeleteColumn: "deleted_at",
	})
	require.NoError(t, err)
	return manager, gormDB
}
