// Package provenance folds raw records into canonical records while
// respecting field ownership.
//
// Every tracked canonical field records the source tag that last set it.
// Scraped values flow into fields owned by any source, but a field owned by
// the curated tag is never overwritten automatically: a diverging re-scrape
// is recorded as a diff on the raw record and waits for an explicit apply.
// Manual edits tag the edited fields as curated and maintain a synthetic
// curated raw record so the same rules apply to them.
//
// All writes of one operation (field values, provenance tags, the raw
// record's diff) happen in one transaction.
package provenance
