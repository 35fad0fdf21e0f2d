package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Hints carries known location context stripped from addresses.
type Hints struct {
	City    string
	Country string
}

// Address is the best-effort structure extracted from a free-text address.
type Address struct {
	Street     string
	PostalCode string
}

// Normalizer applies a RuleSet. It holds no mutable state and is safe for
// concurrent use.
type Normalizer struct {
	rules RuleSet
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLocale selects the registered rule set for locale.
func WithLocale(locale string) Option {
	return func(n *Normalizer) {
		n.rules = Rules(locale)
	}
}

// WithRules uses rs instead of a registered rule set.
func WithRules(rs RuleSet) Option {
	return func(n *Normalizer) {
		n.rules = rs
	}
}

// New returns a Normalizer using English rules unless configured otherwise.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{rules: Rules("en")}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Locale returns the locale of the active rule set.
func (n *Normalizer) Locale() string {
	return n.rules.Locale
}

// Text returns s trimmed, accent-stripped, case-folded, with punctuation
// turned into single spaces.
func (n *Normalizer) Text(s string) string {
	return strings.Join(n.tokens(s, n.rules.Tokens), " ")
}

// Compact is Text with all spaces removed. Equal compact forms are treated as
// an exact match.
func (n *Normalizer) Compact(s string) string {
	return strings.Join(n.tokens(s, n.rules.Tokens), "")
}

// Address extracts the street and postal code from a free-text address,
// dropping tokens that repeat the hinted city or country.
func (n *Normalizer) Address(s string, hints Hints) Address {
	if !utf8.ValidString(s) {
		return Address{}
	}

	drop := map[string]bool{}
	for _, hint := range []string{hints.City, hints.Country} {
		for _, tok := range n.tokens(hint, nil) {
			drop[tok] = true
		}
	}
	for _, tok := range n.rules.Noise {
		drop[tok] = true
	}

	var (
		out      Address
		segments [][]string
	)
	for _, seg := range strings.Split(s, ",") {
		toks := n.tokens(seg, n.rules.Address)
		if len(toks) > 0 {
			segments = append(segments, toks)
		}
	}

	// the postal code is searched right to left, and only in the first
	// segment when the address has a single segment
	for i := len(segments) - 1; i >= 0 && out.PostalCode == ""; i-- {
		if i == 0 && len(segments) > 1 {
			break
		}
		toks := segments[i]
		for j := len(toks) - 1; j >= 0; j-- {
			if i == 0 && j == 0 {
				break
			}
			if isPostalCode(toks[j]) {
				out.PostalCode = toks[j]
				segments[i] = append(toks[:j:j], toks[j+1:]...)
				break
			}
		}
	}

	for _, toks := range segments {
		var kept []string
		for _, tok := range toks {
			if !drop[tok] {
				kept = append(kept, tok)
			}
		}
		if len(kept) > 0 {
			out.Street = strings.Join(kept, " ")
			break
		}
	}
	return out
}

// tokens folds s and splits it into words, applying rewrite to each word.
func (n *Normalizer) tokens(s string, rewrite map[string]string) []string {
	if s == "" || !utf8.ValidString(s) {
		return nil
	}

	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		return nil
	}
	folded := cases.Fold().String(stripped)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '\'' || r == '’' || r == '`':
			// "Nina's" and "Ninas" compare equal
		default:
			if word, ok := n.rules.Symbols[r]; ok {
				b.WriteByte(' ')
				b.WriteString(word)
			}
			b.WriteByte(' ')
		}
	}

	toks := strings.Fields(b.String())
	if rewrite == nil {
		return toks
	}
	out := toks[:0]
	for _, tok := range toks {
		if repl, ok := rewrite[tok]; ok {
			tok = repl
		}
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

func isPostalCode(tok string) bool {
	if len(tok) < 4 || len(tok) > 6 {
		return false
	}
	for _, r := range tok {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
