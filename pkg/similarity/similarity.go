// Package similarity scores how alike two normalized strings are.
//
// Scores are in [0, 1]. Identical non-empty inputs score 1 and an empty input
// scores 0 against anything. Inputs are expected to be normalized already.
package similarity

import (
	"fmt"
	"strings"
)

// Scorer computes a similarity score between two strings.
type Scorer interface {
	Name() string
	Score(a, b string) float64
}

// ByName returns the scorer registered under name.
func ByName(name string) (Scorer, error) {
	switch strings.ToLower(name) {
	case "", "trigram":
		return Trigram{}, nil
	case "jaro-winkler", "jarowinkler", "jw":
		return JaroWinkler{}, nil
	case "max":
		return Max{Trigram{}, JaroWinkler{}}, nil
	}
	return nil, fmt.Errorf("unknown similarity scorer %q", name)
}

// Default returns the trigram scorer.
func Default() Scorer {
	return Trigram{}
}

// Max scores with each scorer and keeps the highest result.
type Max []Scorer

// Name implements Scorer.
func (m Max) Name() string {
	names := make([]string, len(m))
	for i, s := range m {
		names[i] = s.Name()
	}
	return "max(" + strings.Join(names, ",") + ")"
}

// Score implements Scorer.
func (m Max) Score(a, b string) float64 {
	best := 0.0
	for _, s := range m {
		if v := s.Score(a, b); v > best {
			best = v
		}
	}
	return best
}

// trivial handles the identical and empty cases shared by all scorers.
func trivial(a, b string) (float64, bool) {
	if a == "" || b == "" {
		return 0, true
	}
	if a == b {
		return 1, true
	}
	return 0, false
}
