package differ_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/lineup/pkg/catalogs"
	"github.com/agentstation/lineup/pkg/differ"
	"github.com/agentstation/lineup/pkg/normalize"
	"github.com/agentstation/lineup/pkg/types"
)

func TestRawChanges(t *testing.T) {
	raw := &catalogs.RawRecord{ID: 9, EntityType: types.EntityEvent, Source: "ra", Version: 1}
	raw.SetData(catalogs.Fields{Name: "Nina Kraviz", Date: "2026-05-01", Venue: "Berghain", ImageURL: "a.jpg"})
	raw.MarkSynced()

	raw.SetData(catalogs.Fields{Name: "Nina Kraviz b2b", Date: "2026-05-01", Venue: "Panorama Bar", TicketURL: "t"})
	cs := differ.New().Raw(raw)

	require.True(t, cs.HasChanges())
	assert.Equal(t, []types.Field{types.FieldTitle, types.FieldVenue, types.FieldImageURL, types.FieldTicketURL}, cs.Fields())

	title, ok := cs.Get(types.FieldTitle)
	require.True(t, ok)
	assert.Equal(t, differ.ChangeTypeUpdate, title.Type)
	assert.Equal(t, "Nina Kraviz", title.Old)
	assert.Equal(t, types.SourceTag("ra"), title.Source)

	img, _ := cs.Get(types.FieldImageURL)
	assert.Equal(t, differ.ChangeTypeRemove, img.Type)
	ticket, _ := cs.Get(types.FieldTicketURL)
	assert.Equal(t, differ.ChangeTypeAdd, ticket.Type)

	assert.Equal(t, "event 9: 4 changes (1 added, 2 updated, 1 removed)", cs.Summary())
	assert.Len(t, cs.Filter(differ.ChangeTypeAdd, differ.ChangeTypeUpdate).Changes, 3)
}

func TestCanonicalChanges(t *testing.T) {
	v := &catalogs.Venue{ID: 3, Name: "Watergate", City: "Berlin"}

	d := differ.New(differ.WithNormalizer(normalize.New()), differ.WithIgnoredFields(types.FieldCity))
	cs := d.Canonical(v, map[types.Field]string{
		types.FieldName:    "WATERGATE",
		types.FieldCity:    "Hamburg",
		types.FieldWebsite: "https://water-gate.de",
	}, "dice")

	assert.Equal(t, []types.Field{types.FieldWebsite}, cs.Fields())
	assert.Equal(t, "venue 3: 1 change (1 added, 0 updated, 0 removed)", cs.Summary())
	assert.Contains(t, cs.String(), `website: "" -> "https://water-gate.de"`)
}

func TestNoChanges(t *testing.T) {
	a := &catalogs.Artist{ID: 1, Name: "Ben Klock"}
	cs := differ.New().Canonical(a, map[types.Field]string{types.FieldName: "Ben Klock"}, "ra")
	assert.False(t, cs.HasChanges())
	assert.Empty(t, cs.Fields())
}
