package sync

import (
	"fmt"
	"strings"

	"github.com/agentstation/lineup/pkg/types"
)

// Result aggregates the outcome of a sync job.
type Result struct {
	Sources []SourceResult                    `json:"sources" yaml:"sources"`
	Match   map[types.EntityType]*MatchStats  `json:"match,omitempty" yaml:"match,omitempty"`
	Enrich  map[types.EntityType]*EnrichStats `json:"enrich,omitempty" yaml:"enrich,omitempty"`
	Dedupe  map[types.EntityType]*DedupeStats `json:"dedupe,omitempty" yaml:"dedupe,omitempty"`
}

// NewResult returns an empty result ready for aggregation.
func NewResult() *Result {
	return &Result{
		Match:  make(map[types.EntityType]*MatchStats),
		Enrich: make(map[types.EntityType]*EnrichStats),
		Dedupe: make(map[types.EntityType]*DedupeStats),
	}
}

// SourceResult is the scrape outcome for one (city, source) pair.
type SourceResult struct {
	City      string `json:"city" yaml:"city"`
	Source    string `json:"source" yaml:"source"`
	Observed  int    `json:"observed" yaml:"observed"`
	Created   int    `json:"created" yaml:"created"`
	Updated   int    `json:"updated" yaml:"updated"`
	Unchanged int    `json:"unchanged" yaml:"unchanged"`
	Invalid   int    `json:"invalid" yaml:"invalid"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the pair could not be scraped.
func (s SourceResult) Failed() bool {
	return s.Error != ""
}

// MatchStats counts what the match phase did for one entity type.
type MatchStats struct {
	Processed      int `json:"processed" yaml:"processed"`
	Created        int `json:"created" yaml:"created"`                 // new canonical records
	Linked         int `json:"linked" yaml:"linked"`                   // linked to an existing record
	Folded         int `json:"folded" yaml:"folded"`                   // re-scrapes folded into canonical
	Flagged        int `json:"flagged" yaml:"flagged"`                 // raws newly flagged for review
	DuplicateLinks int `json:"duplicate_links" yaml:"duplicate_links"` // already-linked no-ops
	Failed         int `json:"failed" yaml:"failed"`
}

// Add accumulates o into m.
func (m *MatchStats) Add(o MatchStats) {
	m.Processed += o.Processed
	m.Created += o.Created
	m.Linked += o.Linked
	m.Folded += o.Folded
	m.Flagged += o.Flagged
	m.DuplicateLinks += o.DuplicateLinks
	m.Failed += o.Failed
}

// EnrichStats counts enrichment for one entity type.
type EnrichStats struct {
	Examined int `json:"examined" yaml:"examined"`
	Enriched int `json:"enriched" yaml:"enriched"`
	Failed   int `json:"failed" yaml:"failed"`
}

// DedupeStats counts merges for one entity type.
type DedupeStats struct {
	Passes    int      `json:"passes" yaml:"passes"`
	Merged    int      `json:"merged" yaml:"merged"`
	Conflicts int      `json:"conflicts" yaml:"conflicts"`
	Errors    []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Add accumulates o into s.
func (s *DedupeStats) Add(o DedupeStats) {
	s.Passes += o.Passes
	s.Merged += o.Merged
	s.Conflicts += o.Conflicts
	s.Errors = append(s.Errors, o.Errors...)
}

// FailedSources returns the (city, source) pairs that failed.
func (r *Result) FailedSources() []SourceResult {
	var out []SourceResult
	for _, s := range r.Sources {
		if s.Failed() {
			out = append(out, s)
		}
	}
	return out
}

// Summary returns a human-readable summary of the result.
func (r *Result) Summary() string {
	observed := 0
	for _, s := range r.Sources {
		observed += s.Observed
	}
	parts := []string{fmt.Sprintf("%d records observed from %d sources", observed, len(r.Sources))}
	if failed := len(r.FailedSources()); failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", failed))
	}
	for _, kind := range types.EntityTypes() {
		if m := r.Match[kind]; m != nil && m.Processed > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d new, %d linked, %d flagged", kind, m.Created, m.Linked, m.Flagged))
		}
	}
	merged := 0
	for _, d := range r.Dedupe {
		merged += d.Merged
	}
	if merged > 0 {
		parts = append(parts, fmt.Sprintf("%d merged", merged))
	}
	return strings.Join(parts, "; ")
}

// Clone returns a copy of r that shares no mutable state with it.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	out := NewResult()
	out.Sources = append([]SourceResult(nil), r.Sources...)
	for kind, m := range r.Match {
		c := *m
		out.Match[kind] = &c
	}
	for kind, e := range r.Enrich {
		c := *e
		out.Enrich[kind] = &c
	}
	for kind, d := range r.Dedupe {
		c := *d
		c.Errors = append([]string(nil), d.Errors...)
		out.Dedupe[kind] = &c
	}
	return out
}
