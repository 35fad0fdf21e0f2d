// Package differ compares field values of raw payloads and canonical records.
package differ

import (
	"fmt"
	"strings"

	"github.com/agentstation/lineup/pkg/types"
)

// ChangeType represents the type of change.
type ChangeType string

const (
	// ChangeTypeAdd indicates a field gained a value.
	ChangeTypeAdd ChangeType = "add"
	// ChangeTypeUpdate indicates a field value changed.
	ChangeTypeUpdate ChangeType = "update"
	// ChangeTypeRemove indicates a field lost its value.
	ChangeTypeRemove ChangeType = "remove"
)

// FieldChange represents a change to a single field.
type FieldChange struct {
	Field  types.Field     `json:"field" yaml:"field"`
	Old    string          `json:"old" yaml:"old"`
	New    string          `json:"new" yaml:"new"`
	Type   ChangeType      `json:"type" yaml:"type"`
	Source types.SourceTag `json:"source,omitempty" yaml:"source,omitempty"` // source that caused the change
}

// Changeset is the set of field changes of one record, in field order.
type Changeset struct {
	Entity  types.EntityType `json:"entity" yaml:"entity"`
	ID      uint             `json:"id,omitempty" yaml:"id,omitempty"`
	Changes []FieldChange    `json:"changes" yaml:"changes"`
}

// HasChanges returns true if the changeset contains any change.
func (c *Changeset) HasChanges() bool {
	return len(c.Changes) > 0
}

// Fields returns the changed fields in order.
func (c *Changeset) Fields() []types.Field {
	out := make([]types.Field, len(c.Changes))
	for i, ch := range c.Changes {
		out[i] = ch.Field
	}
	return out
}

// Get returns the change of a field.
func (c *Changeset) Get(f types.Field) (FieldChange, bool) {
	for _, ch := range c.Changes {
		if ch.Field == f {
			return ch, true
		}
	}
	return FieldChange{}, false
}

// Filter returns a changeset with only the changes of the given types.
func (c *Changeset) Filter(kinds ...ChangeType) *Changeset {
	keep := make(map[ChangeType]bool, len(kinds))
	for _, k := range kinds {
		keep[k] = true
	}
	out := &Changeset{Entity: c.Entity, ID: c.ID}
	for _, ch := range c.Changes {
		if keep[ch.Type] {
			out.Changes = append(out.Changes, ch)
		}
	}
	return out
}

// Summary returns a one-line description such as
// "venue 3: 2 changes (1 added, 1 updated, 0 removed)".
func (c *Changeset) Summary() string {
	var added, updated, removed int
	for _, ch := range c.Changes {
		switch ch.Type {
		case ChangeTypeAdd:
			added++
		case ChangeTypeUpdate:
			updated++
		case ChangeTypeRemove:
			removed++
		}
	}
	name := string(c.Entity)
	if c.ID != 0 {
		name = fmt.Sprintf("%s %d", c.Entity, c.ID)
	}
	noun := "changes"
	if len(c.Changes) == 1 {
		noun = "change"
	}
	return fmt.Sprintf("%s: %d %s (%d added, %d updated, %d removed)", name, len(c.Changes), noun, added, updated, removed)
}

// String renders one change per line as "field: old -> new".
func (c *Changeset) String() string {
	var b strings.Builder
	for _, ch := range c.Changes {
		fmt.Fprintf(&b, "%s: %q -> %q\n", ch.Field, ch.Old, ch.New)
	}
	return b.String()
}
