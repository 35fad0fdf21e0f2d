// Package matcher scores raw records against canonical records of the same
// entity type and picks the best match above a per-type threshold.
//
// Labels are normalized before scoring. Two labels whose compact forms are
// equal are an exact match and score 1 regardless of the fuzzy scorer.
// Candidates are expected to be scoped by the caller (same city for venues,
// same date for events); the matcher only compares labels and, for event
// deduplication, the date and venue signals.
package matcher

import (
	"context"
	"sort"

	"github.com/agentstation/lineup/pkg/catalogs"
	"github.com/agentstation/lineup/pkg/logging"
	"github.com/agentstation/lineup/pkg/normalize"
	"github.com/agentstation/lineup/pkg/similarity"
	"github.com/agentstation/lineup/pkg/types"
)

// Normalizer prepares labels for comparison.
type Normalizer interface {
	Text(s string) string
	Compact(s string) string
}

// Mode selects which threshold tier applies.
type Mode int

const (
	// Link compares a raw record against canonical records.
	Link Mode = iota
	// Dedupe compares two canonical records.
	Dedupe
)

// String returns a string representation of the Mode.
func (m Mode) String() string {
	switch m {
	case Link:
		return "link"
	case Dedupe:
		return "dedupe"
	default:
		return "unknown"
	}
}

// Match is the outcome of a successful comparison.
type Match struct {
	Canonical catalogs.Canonical
	Score     float64
	Exact     bool
}

// Matcher compares labels with a Normalizer and a similarity Scorer.
// It holds no mutable state and is safe for concurrent use.
type Matcher struct {
	norm       Normalizer
	scorer     similarity.Scorer
	thresholds Thresholds
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithNormalizer replaces the default English normalizer.
func WithNormalizer(n Normalizer) Option {
	return func(m *Matcher) {
		if n != nil {
			m.norm = n
		}
	}
}

// WithScorer replaces the default trigram scorer.
func WithScorer(s similarity.Scorer) Option {
	return func(m *Matcher) {
		if s != nil {
			m.scorer = s
		}
	}
}

// WithThresholds replaces the default thresholds.
func WithThresholds(t Thresholds) Option {
	return func(m *Matcher) {
		m.thresholds = t
	}
}

// New creates a Matcher.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		norm:       normalize.New(),
		scorer:     similarity.Default(),
		thresholds: DefaultThresholds(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Thresholds returns the active thresholds.
func (m *Matcher) Thresholds() Thresholds {
	return m.thresholds
}

// Normalizer returns the active normalizer.
func (m *Matcher) Normalizer() Normalizer {
	return m.norm
}

// Compare scores two free-text labels.
func (m *Matcher) Compare(a, b string) (score float64, exact bool) {
	ca, cb := m.norm.Compact(a), m.norm.Compact(b)
	if ca == "" || cb == "" {
		return 0, false
	}
	if ca == cb {
		return 1, true
	}
	return m.scorer.Score(m.norm.Text(a), m.norm.Text(b)), false
}

// Best returns the candidate whose label best matches label, provided it
// reaches the link threshold of kind. Ties go to the earliest created
// candidate, then the lowest id.
func (m *Matcher) Best(ctx context.Context, kind types.EntityType, label string, candidates []catalogs.Canonical) (Match, bool) {
	return m.best(ctx, kind, label, candidates, m.thresholds.For(kind, Link))
}

func (m *Matcher) best(ctx context.Context, kind types.EntityType, label string, candidates []catalogs.Canonical, threshold float64) (Match, bool) {
	logger := logging.FromContext(ctx)

	var scored []Match
	for _, c := range candidates {
		if c.Kind() != kind {
			continue
		}
		score, exact := m.Compare(label, c.Label())
		logger.Trace().
			Str("label", label).
			Str("candidate", catalogs.Ref(c)).
			Float64("score", score).
			Bool("exact", exact).
			Msg("Scored candidate")
		if exact || score >= threshold {
			scored = append(scored, Match{Canonical: c, Score: score, Exact: exact})
		}
	}
	if len(scored) == 0 {
		return Match{}, false
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return ranks(scored[i], scored[j])
	})
	return scored[0], true
}

// ranks reports whether a outranks b.
func ranks(a, b Match) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	ta, tb := a.Canonical.Created(), b.Canonical.Created()
	if !ta.Equal(tb) {
		return ta.Before(tb)
	}
	return a.Canonical.Key() < b.Canonical.Key()
}

// Duplicate scores two canonical records of the same type for merging and
// reports whether they reach the dedupe threshold. Events must share a date
// and a venue reference; the title score then decides.
func (m *Matcher) Duplicate(a, b catalogs.Canonical) (float64, bool) {
	if a.Kind() != b.Kind() || a.Key() == b.Key() {
		return 0, false
	}
	score := m.PairScore(a, b)
	return score, score > 0 && score >= m.thresholds.For(a.Kind(), Dedupe)
}

// PairScore is the combined dedupe score of two canonical records.
func (m *Matcher) PairScore(a, b catalogs.Canonical) float64 {
	switch a.Kind() {
	case types.EntityEvent:
		if a.Value(types.FieldDate) != b.Value(types.FieldDate) {
			return 0
		}
		if a.Value(types.FieldVenue) != b.Value(types.FieldVenue) {
			return 0
		}
		if a.Value(types.FieldVenue) == "" && !sameText(m.norm, a.Scope(), b.Scope()) {
			return 0
		}
	case types.EntityVenue:
		if !sameText(m.norm, a.Scope(), b.Scope()) {
			return 0
		}
	}
	score, _ := m.Compare(a.Label(), b.Label())
	return score
}

func sameText(n Normalizer, a, b string) bool {
	return n.Compact(a) == n.Compact(b)
}
