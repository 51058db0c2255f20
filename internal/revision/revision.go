package revision

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/rotisserie/eris"
	"gorm.io/datatypes"
)

// Owner identifies the entity a revision belongs to.
type Owner struct {
	Type string
	ID   uint
}

func (o Owner) String() string {
	return fmt.Sprintf("%s:%d", o.Type, o.ID)
}

// Revisable is implemented by entities whose field state can be snapshotted and restored.
type Revisable interface {
	RevisionOwner() Owner
	// RevisionFields returns the current field values keyed by column name.
	RevisionFields() (map[string]any, error)
	// ApplyRevisionFields overwrites the entity's fields from a snapshot.
	ApplyRevisionFields(data map[string]any) error
}

// FieldChange records one field's value before and after a mutation.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// Changes maps field names to their change.
type Changes map[string]FieldChange

// Delta is one differing field between two revisions.
type Delta struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// Comparison maps field names to their delta.
type Comparison map[string]Delta

// Keys returns the compared field names in sorted order.
func (c Comparison) Keys() []string {
	keys := make([]string, 0, len(c))
	for key := range c {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Revision is a numbered snapshot of an owner's field values.
type Revision struct {
	ID             uint                        `gorm:"primaryKey" json:"id"`
	OwnerType      string                      `gorm:"size:64;not null;uniqueIndex:idx_revisions_owner_number,priority:1" json:"owner_type"`
	OwnerID        uint                        `gorm:"not null;uniqueIndex:idx_revisions_owner_number,priority:2" json:"owner_id"`
	RevisionNumber int                         `gorm:"not null;uniqueIndex:idx_revisions_owner_number,priority:3" json:"revision_number"`
	Data           datatypes.JSONMap           `gorm:"not null" json:"data"`
	Changes        datatypes.JSONType[Changes] `json:"changes"`
	IsAuto         bool                        `gorm:"not null" json:"is_auto"`
	AuthorID       *string                     `gorm:"size:191" json:"author_id"`
	CreatedAt      time.Time                   `json:"created_at"`
}

// TableName defines the table name for revisions.
func (Revision) TableName() string {
	return "revisions"
}

// Owner returns the owner reference of the revision.
func (r *Revision) Owner() Owner {
	return Owner{Type: r.OwnerType, ID: r.OwnerID}
}

// Diff returns the fields whose values differ between before and after.
// Keys present on only one side are reported with a nil counterpart.
func Diff(before, after map[string]any) Changes {
	changes := Changes{}
	for _, key := range unionKeys(before, after) {
		from, to := before[key], after[key]
		if reflect.DeepEqual(from, to) {
			continue
		}
		changes[key] = FieldChange{Old: from, New: to}
	}
	return changes
}

func unionKeys(a, b map[string]any) []string {
	keys := mapset.NewThreadUnsafeSet[string]()
	for key := range a {
		keys.Add(key)
	}
	for key := range b {
		keys.Add(key)
	}

	sorted := keys.ToSlice()
	sort.Strings(sorted)
	return sorted
}

// normalize round-trips values through JSON, decoding numbers the way datatypes.JSONMap
// does, so in-memory snapshots compare equal to stored ones.
func normalize(values map[string]any) (map[string]any, error) {
	if values == nil {
		return map[string]any{}, nil
	}

	raw, err := json.Marshal(values)
	if err != nil {
		return nil, eris.Wrap(err, "encoding snapshot")
	}

	out := map[string]any{}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&out); err != nil {
		return nil, eris.Wrap(err, "decoding snapshot")
	}
	return out, nil
}

// ErrRevisionNotFound is returned when a revision number does not exist for an owner.
var ErrRevisionNotFound = eris.New("revision not found")
