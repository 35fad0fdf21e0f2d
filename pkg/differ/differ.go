package differ

import (
	"github.com/agentstation/lineup/pkg/catalogs"
	"github.com/agentstation/lineup/pkg/types"
)

// Normalizer folds values before comparison.
type Normalizer interface {
	Text(s string) string
}

// Differ compares field values.
type Differ struct {
	ignore map[types.Field]bool
	norm   Normalizer
}

// New creates a Differ.
func New(opts ...Option) *Differ {
	d := &Differ{ignore: make(map[types.Field]bool)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Values compares two value maps over kind's tracked fields.
func (d *Differ) Values(kind types.EntityType, before, after map[types.Field]string, source types.SourceTag) *Changeset {
	cs := &Changeset{Entity: kind}
	for _, f := range types.FieldsOf(kind) {
		if d.ignore[f] {
			continue
		}
		old, cur := before[f], after[f]
		if d.equal(old, cur) {
			continue
		}
		ch := FieldChange{Field: f, Old: old, New: cur, Source: source, Type: ChangeTypeUpdate}
		switch {
		case old == "":
			ch.Type = ChangeTypeAdd
		case cur == "":
			ch.Type = ChangeTypeRemove
		}
		cs.Changes = append(cs.Changes, ch)
	}
	return cs
}

// Raw returns what a re-scrape changed in raw since its last fold. Old is
// the folded value and New the current one.
func (d *Differ) Raw(raw *catalogs.RawRecord) *Changeset {
	before := raw.Synced.Data()
	after := raw.Data()
	cs := d.Values(raw.EntityType, project(raw.EntityType, before), project(raw.EntityType, after), raw.Source)
	cs.ID = raw.ID
	return cs
}

// Canonical compares a canonical record against candidate values. Fields
// missing from values are not compared.
func (d *Differ) Canonical(c catalogs.Canonical, values map[types.Field]string, source types.SourceTag) *Changeset {
	before := make(map[types.Field]string, len(values))
	for f := range values {
		before[f] = c.Value(f)
	}
	cs := d.Values(c.Kind(), before, values, source)
	cs.ID = c.Key()
	return cs
}

func (d *Differ) equal(a, b string) bool {
	if a == b {
		return true
	}
	if d.norm == nil {
		return false
	}
	return d.norm.Text(a) == d.norm.Text(b)
}

// project is Fields.Get over every tracked field, event venue included.
func project(kind types.EntityType, f catalogs.Fields) map[types.Field]string {
	out := make(map[types.Field]string)
	for _, field := range types.FieldsOf(kind) {
		out[field] = f.Get(field)
	}
	return out
}
