package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/lineup/pkg/catalogs"
	"github.com/agentstation/lineup/pkg/types"
)

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"table", "JSON", "yaml", ""} {
		_, err := ParseFormat(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestPrint(t *testing.T) {
	raws := []catalogs.RawRecord{
		{ID: 7, EntityType: types.EntityVenue, Source: "ra", SourceID: "v-1", City: "Berlin", Label: "Berghain", Version: 2, HasChanges: true},
	}

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, FormatTable, raws, func() Data { return RawsTable(raws, 3) }))
	out := strings.ToLower(buf.String())
	assert.Contains(t, out, "source id")
	assert.Contains(t, out, "berghain")
	assert.Contains(t, out, "pending")
	assert.Contains(t, out, "showing 1 of 3")

	buf.Reset()
	require.NoError(t, Print(&buf, FormatJSON, raws, nil))
	assert.Contains(t, buf.String(), `"source_id": "v-1"`)

	buf.Reset()
	require.NoError(t, Print(&buf, FormatYAML, map[string]int{"merged": 2}, nil))
	assert.Equal(t, "merged: 2\n", buf.String())
}

func TestTableFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatTable).Format(&buf, map[string]string{"status": "idle"}))
	assert.JSONEq(t, `{"status":"idle"}`, buf.String())
}

func TestCanonicalTable(t *testing.T) {
	e := &catalogs.Event{ID: 3, Title: "Open Air", City: "Berlin", State: types.StateManualDraft}
	e.SetOwner(types.FieldTitle, types.Curated)

	data := CanonicalTable(e, []catalogs.Link{{RawID: 9, Source: types.Curated, Confidence: 1, IsPrimary: true}})
	assert.Contains(t, data.Rows, []string{"state", "MANUAL_DRAFT", ""})
	assert.Contains(t, data.Rows, []string{"title", "Open Air", "curated"})
	assert.Contains(t, data.Rows, []string{"primary link", "raw 9 (curated)", "1.00"})
}
