package similarity

// JaroWinkler scores with the Jaro distance boosted for a shared prefix of
// up to four runes.
type JaroWinkler struct{}

// Name implements Scorer.
func (JaroWinkler) Name() string { return "jaro-winkler" }

// Score implements Scorer.
func (JaroWinkler) Score(a, b string) float64 {
	if v, ok := trivial(a, b); ok {
		return v
	}
	ra, rb := []rune(a), []rune(b)
	j := jaro(ra, rb)

	prefix := 0
	for prefix < len(ra) && prefix < len(rb) && prefix < 4 && ra[prefix] == rb[prefix] {
		prefix++
	}
	return j + float64(prefix)*0.1*(1-j)
}

func jaro(a, b []rune) float64 {
	window := max(len(a), len(b))/2 - 1
	if window < 0 {
		window = 0
	}

	matchedA := make([]bool, len(a))
	matchedB := make([]bool, len(b))
	matches := 0
	for i := range a {
		lo := max(0, i-window)
		hi := min(len(b), i+window+1)
		for k := lo; k < hi; k++ {
			if matchedB[k] || a[i] != b[k] {
				continue
			}
			matchedA[i], matchedB[k] = true, true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0
	}

	transpositions := 0
	k := 0
	for i := range a {
		if !matchedA[i] {
			continue
		}
		for !matchedB[k] {
			k++
		}
		if a[i] != b[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	return (m/float64(len(a)) + m/float64(len(b)) + (m-float64(transpositions)/2)/m) / 3
}
