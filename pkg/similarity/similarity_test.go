package similarity_test

import (
	"testing"

	"github.com/agentstation/lineup/pkg/similarity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrigram(t *testing.T) {
	s := similarity.Trigram{}

	assert.Equal(t, 1.0, s.Score("watergate", "watergate"))
	assert.Equal(t, 0.0, s.Score("", "watergate"))
	assert.Equal(t, 0.0, s.Score("", ""))
	assert.Equal(t, 0.0, s.Score("abc", "xyz"))

	// "ab" and "abc" share "  a" and " ab" out of five distinct trigrams
	assert.InDelta(t, 2.0/5.0, s.Score("ab", "abc"), 1e-9)

	close := s.Score("berghain panorama bar", "berghain panoramabar")
	far := s.Score("berghain", "tresor")
	assert.Greater(t, close, 0.5)
	assert.Less(t, far, 0.2)
	assert.Equal(t, 1.0, s.Score("a b", "b a"), "word order does not matter")
}

func TestTrigramSymmetric(t *testing.T) {
	s := similarity.Trigram{}
	pairs := [][2]string{
		{"nina kraviz", "nina kravitz"},
		{"about blank", "aboutblank"},
		{"sisyphos", "sisyfos"},
	}
	for _, p := range pairs {
		assert.Equal(t, s.Score(p[0], p[1]), s.Score(p[1], p[0]))
	}
}

func TestJaroWinkler(t *testing.T) {
	s := similarity.JaroWinkler{}

	assert.Equal(t, 1.0, s.Score("martha", "martha"))
	assert.Equal(t, 0.0, s.Score("martha", ""))
	assert.Equal(t, 0.0, s.Score("abc", "xyz"))
	assert.InDelta(t, 0.961, s.Score("martha", "marhta"), 0.001)
	assert.InDelta(t, 0.840, s.Score("dwayne", "duane"), 0.001)
	assert.InDelta(t, 0.813, s.Score("dixon", "dicksonx"), 0.001)
}

func TestByName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"", "trigram"},
		{"trigram", "trigram"},
		{"JW", "jaro-winkler"},
		{"max", "max(trigram,jaro-winkler)"},
	}
	for _, tt := range tests {
		s, err := similarity.ByName(tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.want, s.Name())
	}

	_, err := similarity.ByName("cosine")
	assert.Error(t, err)
}

func TestMax(t *testing.T) {
	m := similarity.Max{similarity.Trigram{}, similarity.JaroWinkler{}}
	a, b := "dwayne", "duane"
	assert.Equal(t, similarity.JaroWinkler{}.Score(a, b), m.Score(a, b))
}
