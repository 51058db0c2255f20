package ordering

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"folio/app/internal/lock"
)

// DefaultRankColumn is the rank column used when Options leaves it empty.
const DefaultRankColumn = "ordering"

// ErrRowNotFound is returned when the row being ranked does not exist.
var ErrRowNotFound = eris.New("ordered row not found")

// Group holds the grouping column values of a sibling set. A nil value matches NULL.
type Group map[string]any

// Key renders the group deterministically.
func (g Group) Key() string {
	cols := make([]string, 0, len(g))
	for col := range g {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	parts := make([]string, 0, len(cols))
	for _, col := range cols {
		if g[col] == nil {
			parts = append(parts, col+"=NULL")
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%v", col, g[col]))
	}
	return strings.Join(parts, ",")
}

// Position is one sibling and its rank.
type Position struct {
	ID   uint `gorm:"column:id" json:"id"`
	Rank int  `gorm:"column:sibling_rank" json:"rank"`
}

// Options configures a Manager.
type Options struct {
	Table        string
	RankColumn   string
	GroupColumns []string
	// SoftDeleteColumn hides rows whose column is not NULL, for tables using gorm.DeletedAt.
	SoftDeleteColumn string
	Locker           lock.Locker
	Logger           *logrus.Logger
}

// Manager keeps a dense 1..N rank among the rows of each sibling group of a table.
type Manager struct {
	db         *gorm.DB
	table      string
	rank       string
	groupBy    []string
	softDelete string
	locker     lock.Locker
	logger     *logrus.Logger
}

// NewManager constructs a Manager for one table.
func NewManager(db *gorm.DB, opts Options) (*Manager, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}
	if strings.TrimSpace(opts.Table) == "" {
		return nil, eris.New("ordering table is required")
	}

	rank := opts.RankColumn
	if rank == "" {
		rank = DefaultRankColumn
	}

	locker := opts.Locker
	if locker == nil {
		locker = lock.NewLocal()
	}

	groupBy := append([]string(nil), opts.GroupColumns...)
	sort.Strings(groupBy)

	return &Manager{
		db:         db,
		table:      opts.Table,
		rank:       rank,
		groupBy:    groupBy,
		softDelete: opts.SoftDeleteColumn,
		locker:     locker,
		logger:     opts.Logger,
	}, nil
}

// WithTx returns a copy of the manager bound to tx.
func (m *Manager) WithTx(tx *gorm.DB) *Manager {
	clone := *m
	clone.db = tx
	return &clone
}

// GroupOf reads the grouping column values of row id.
func (m *Manager) GroupOf(ctx context.Context, id uint) (Group, error) {
	group := Group{}
	if len(m.groupBy) == 0 {
		if _, err := m.rankOf(ctx, id); err != nil {
			return nil, err
		}
		return group, nil
	}

	row := map[string]any{}
	err := m.rows(ctx).Select(m.groupBy).Where(clause.Eq{Column: clause.Column{Name: "id"}, Value: id}).Take(&row).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, eris.Wrapf(ErrRowNotFound, "%s row %d", m.table, id)
		}
		return nil, eris.Wrapf(err, "reading group of %s row %d", m.table, id)
	}

	for _, col := range m.groupBy {
		group[col] = row[col]
	}
	return group, nil
}

// NextRank returns max(rank in group) + 1.
func (m *Manager) NextRank(ctx context.Context, group Group) (int, error) {
	return m.nextRank(ctx, group, 0)
}

// Siblings returns the rows of group in rank order.
func (m *Manager) Siblings(ctx context.Context, group Group) ([]Position, error) {
	var positions []Position
	err := m.inGroup(ctx, group).
		Select(fmt.Sprintf("id, %s AS sibling_rank", m.quoted(m.rank))).
		Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: clause.Column{Name: m.rank}},
			{Column: clause.Column{Name: "id"}},
		}}).
		Scan(&positions).Error
	if err != nil {
		return nil, eris.Wrapf(err, "listing siblings in %s [%s]", m.table, group.Key())
	}
	return positions, nil
}

// Append gives row id the next rank of its group and returns it.
func (m *Manager) Append(ctx context.Context, id uint) (int, error) {
	group, err := m.GroupOf(ctx, id)
	if err != nil {
		return 0, err
	}

	unlock, err := m.lock(ctx, group)
	if err != nil {
		return 0, err
	}
	defer unlock()

	next, err := m.nextRank(ctx, group, id)
	if err != nil {
		return 0, err
	}
	if err := m.setRank(ctx, id, next); err != nil {
		return 0, err
	}
	return next, nil
}

// MoveUp swaps row id with the sibling ranked directly above it. It reports false when
// the row is already first.
func (m *Manager) MoveUp(ctx context.Context, id uint) (bool, error) {
	return m.shift(ctx, id, -1)
}

// MoveDown swaps row id with the sibling ranked directly below it. It reports false when
// the row is already last.
func (m *Manager) MoveDown(ctx context.Context, id uint) (bool, error) {
	return m.shift(ctx, id, 1)
}

// MoveTo places row id at position, clamped to 1..N, and ranks the other siblings
// densely around it. It returns the applied position.
func (m *Manager) MoveTo(ctx context.Context, id uint, position int) (int, error) {
	var applied int
	err := m.withGroup(ctx, id, func(siblings []Position, index int) ([]Position, error) {
		mover := siblings[index]
		rest := append(append([]Position(nil), siblings[:index]...), siblings[index+1:]...)

		applied = position
		if applied < 1 {
			applied = 1
		}
		if applied > len(siblings) {
			applied = len(siblings)
		}

		ordered := make([]Position, 0, len(siblings))
		ordered = append(ordered, rest[:applied-1]...)
		ordered = append(ordered, mover)
		ordered = append(ordered, rest[applied-1:]...)
		return ordered, nil
	})
	if err != nil {
		return 0, err
	}
	return applied, nil
}

// Resequence ranks the rows of group densely 1..N in their current order.
func (m *Manager) Resequence(ctx context.Context, group Group) error {
	unlock, err := m.lock(ctx, group)
	if err != nil {
		return err
	}
	defer unlock()

	siblings, err := m.Siblings(ctx, group)
	if err != nil {
		return err
	}
	return m.write(ctx, siblings)
}

func (m *Manager) shift(ctx context.Context, id uint, step int) (bool, error) {
	moved := false
	err := m.withGroup(ctx, id, func(siblings []Position, index int) ([]Position, error) {
		target := index + step
		if target < 0 || target >= len(siblings) {
			return siblings, nil
		}
		siblings[index], siblings[target] = siblings[target], siblings[index]
		moved = true
		return siblings, nil
	})
	return moved, err
}

// withGroup locks the group of row id, lets reorder rearrange its siblings and writes the
// result back as dense ranks.
func (m *Manager) withGroup(ctx context.Context, id uint, reorder func(siblings []Position, index int) ([]Position, error)) error {
	group, err := m.GroupOf(ctx, id)
	if err != nil {
		return err
	}

	unlock, err := m.lock(ctx, group)
	if err != nil {
		return err
	}
	defer unlock()

	siblings, err := m.Siblings(ctx, group)
	if err != nil {
		return err
	}

	index := -1
	for i, sibling := range siblings {
		if sibling.ID == id {
			index = i
			break
		}
	}
	if index < 0 {
		return eris.Wrapf(ErrRowNotFound, "%s row %d", m.table, id)
	}

	ordered, err := reorder(siblings, index)
	if err != nil {
		return err
	}
	return m.write(ctx, ordered)
}

// write assigns rank i+1 to ordered[i], touching only rows whose rank changes.
func (m *Manager) write(ctx context.Context, ordered []Position) error {
	for i, position := range ordered {
		want := i + 1
		if position.Rank == want {
			continue
		}
		if err := m.setRank(ctx, position.ID, want); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) setRank(ctx context.Context, id uint, rank int) error {
	err := m.db.WithContext(ctx).
		Table(m.table).
		Where(clause.Eq{Column: clause.Column{Name: "id"}, Value: id}).
		UpdateColumn(m.rank, rank).Error
	if err != nil {
		m.logError(logrus.Fields{"id": id, "rank": rank}, err, "updating rank")
		return eris.Wrapf(err, "setting rank of %s row %d", m.table, id)
	}
	return nil
}

func (m *Manager) rankOf(ctx context.Context, id uint) (int, error) {
	var ranks []int
	err := m.rows(ctx).Where(clause.Eq{Column: clause.Column{Name: "id"}, Value: id}).Pluck(m.rank, &ranks).Error
	if err != nil {
		return 0, eris.Wrapf(err, "reading rank of %s row %d", m.table, id)
	}
	if len(ranks) == 0 {
		return 0, eris.Wrapf(ErrRowNotFound, "%s row %d", m.table, id)
	}
	return ranks[0], nil
}

func (m *Manager) nextRank(ctx context.Context, group Group, exclude uint) (int, error) {
	query := m.inGroup(ctx, group)
	if exclude != 0 {
		query = query.Where(clause.Neq{Column: clause.Column{Name: "id"}, Value: exclude})
	}

	var highest int
	err := query.Select(fmt.Sprintf("COALESCE(MAX(%s), 0)", m.quoted(m.rank))).Scan(&highest).Error
	if err != nil {
		return 0, eris.Wrapf(err, "reading highest rank in %s [%s]", m.table, group.Key())
	}
	return highest + 1, nil
}

func (m *Manager) rows(ctx context.Context) *gorm.DB {
	query := m.db.WithContext(ctx).Table(m.table)
	if m.softDelete != "" {
		query = query.Where(clause.Eq{Column: clause.Column{Name: m.softDelete}, Value: nil})
	}
	return query
}

func (m *Manager) inGroup(ctx context.Context, group Group) *gorm.DB {
	query := m.rows(ctx)
	for _, col := range m.groupBy {
		query = query.Where(clause.Eq{Column: clause.Column{Name: col}, Value: group[col]})
	}
	return query
}

func (m *Manager) lock(ctx context.Context, group Group) (func(), error) {
	unlock, err := m.locker.Lock(ctx, "ordering:"+m.table+":"+group.Key())
	if err != nil {
		return nil, eris.Wrapf(err, "locking %s [%s]", m.table, group.Key())
	}
	return unlock, nil
}

func (m *Manager) quoted(col string) string {
	return m.db.Statement.Quote(col)
}

func (m *Manager) logError(fields logrus.Fields, err error, message string) {
	if m.logger == nil || err == nil {
		return
	}
	m.logger.WithFields(fields).WithField("error", err.Error()).Error(message)
}
