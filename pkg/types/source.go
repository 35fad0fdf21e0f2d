package types

// SourceTag identifies where a record or a field value came from.
// Scraped sources use their connector id; a few tags are reserved.
type SourceTag string

// Reserved source tags.
const (
	// Curated marks values set by a human curator. Fields owned by this tag are
	// never overwritten automatically.
	Curated SourceTag = "curated"

	// Enrichment marks values derived by the enrichment phase.
	Enrichment SourceTag = "enrichment"

	// Merged marks values a keeper inherited from a deduplicated loser whose
	// own provenance was unknown.
	Merged SourceTag = "merged"
)

// String returns the string representation of a source tag.
func (s SourceTag) String() string {
	return string(s)
}

// IsCurated reports whether s is the curator tag.
func (s SourceTag) IsCurated() bool {
	return s == Curated
}

// IsReserved reports whether s is one of the tags connectors may not use.
func (s SourceTag) IsReserved() bool {
	switch s {
	case Curated, Enrichment, Merged:
		return true
	}
	return false
}
