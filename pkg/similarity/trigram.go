package similarity

import "strings"

// Trigram scores the Jaccard overlap of word trigram sets. Each word is
// padded with two leading blanks and one trailing blank, so short words and
// word starts weigh more than a plain character n-gram.
type Trigram struct{}

// Name implements Scorer.
func (Trigram) Name() string { return "trigram" }

// Score implements Scorer.
func (Trigram) Score(a, b string) float64 {
	if v, ok := trivial(a, b); ok {
		return v
	}
	ta, tb := trigrams(a), trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	shared := 0
	for g := range ta {
		if _, ok := tb[g]; ok {
			shared++
		}
	}
	union := len(ta) + len(tb) - shared
	return float64(shared) / float64(union)
}

func trigrams(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, word := range strings.Fields(s) {
		r := []rune("  " + word + " ")
		for i := 0; i+3 <= len(r); i++ {
			set[string(r[i:i+3])] = struct{}{}
		}
	}
	return set
}
