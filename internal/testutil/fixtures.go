package testutil

import (
	"context"
	"testing"

	"github.com/agentstation/lineup/internal/store"
	"github.com/agentstation/lineup/pkg/catalogs"
	"github.com/agentstation/lineup/pkg/types"
)

// Raw stores an observation and returns the raw record.
func Raw(tb testing.TB, s *store.Store, kind types.EntityType, source types.SourceTag, sourceID, city string, f catalogs.Fields) *catalogs.RawRecord {
	tb.Helper()
	raw, _, err := s.UpsertRaw(context.Background(), store.RawInput{
		EntityType: kind,
		Source:     source,
		SourceID:   sourceID,
		City:       city,
		Fields:     f,
	})
	if err != nil {
		tb.Fatalf("upsert raw: %v", err)
	}
	return raw
}

// Venue inserts a canonical venue.
func Venue(tb testing.TB, s *store.Store, v *catalogs.Venue) *catalogs.Venue {
	tb.Helper()
	if err := s.CreateCanonical(context.Background(), v); err != nil {
		tb.Fatalf("create venue: %v", err)
	}
	return v
}

// Event inserts a canonical event, defaulting its state to SCRAPED_DRAFT.
func Event(tb testing.TB, s *store.Store, e *catalogs.Event) *catalogs.Event {
	tb.Helper()
	if e.State == "" {
		e.State = types.StateScrapedDraft
	}
	if err := s.CreateCanonical(context.Background(), e); err != nil {
		tb.Fatalf("create event: %v", err)
	}
	return e
}

// Artist inserts a canonical artist.
func Artist(tb testing.TB, s *store.Store, a *catalogs.Artist) *catalogs.Artist {
	tb.Helper()
	if err := s.CreateCanonical(context.Background(), a); err != nil {
		tb.Fatalf("create artist: %v", err)
	}
	return a
}

// Link inserts a link.
func Link(tb testing.TB, s *store.Store, raw *catalogs.RawRecord, canonicalID uint, primary bool) *catalogs.Link {
	tb.Helper()
	link := &catalogs.Link{
		RawID:       raw.ID,
		EntityType:  raw.EntityType,
		CanonicalID: canonicalID,
		Source:      raw.Source,
		Confidence:  1,
		IsPrimary:   primary,
	}
	if _, err := s.InsertLink(context.Background(), link); err != nil {
		tb.Fatalf("insert link: %v", err)
	}
	return link
}
