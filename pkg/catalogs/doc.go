// Package catalogs defines the persisted records of the lineup catalog.
//
// A RawRecord is one source's observation of an event, venue or artist. The
// canonical Event, Venue and Artist records are the unified entities exposed
// downstream; each raw record links to at most one canonical record through a
// Link. Every canonical field carries a provenance tag naming the source that
// last set it, with the curated tag marking values a human owns.
//
// Canonical records share the Canonical interface so matching, provenance
// and deduplication can treat the three entity types uniformly.
package catalogs
