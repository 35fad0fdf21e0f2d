package normalize

import (
	"sync"

	"golang.org/x/text/language"
)

// RuleSet holds the locale specific rewrites applied during normalization.
type RuleSet struct {
	// Locale is the base language the rules apply to.
	Locale string

	// Symbols maps single runes to replacement words, e.g. '&' to "and".
	Symbols map[rune]string

	// Tokens rewrites whole tokens in names.
	Tokens map[string]string

	// Address rewrites whole tokens in addresses (abbreviations).
	Address map[string]string

	// Noise lists tokens dropped from addresses (e.g. "germany").
	Noise []string
}

var (
	rulesMu sync.RWMutex
	rules   = map[string]RuleSet{
		"en": {
			Locale:  "en",
			Symbols: map[rune]string{'&': "and", '+': "and"},
			Address: map[string]string{
				"st":   "street",
				"rd":   "road",
				"ave":  "avenue",
				"av":   "avenue",
				"blvd": "boulevard",
				"sq":   "square",
				"ln":   "lane",
				"dr":   "drive",
			},
		},
		"de": {
			Locale:  "de",
			Symbols: map[rune]string{'&': "und", '+': "und"},
			Address: map[string]string{
				"str": "strasse",
				"pl":  "platz",
			},
			Noise: []string{"deutschland", "germany"},
		},
		"fr": {
			Locale:  "fr",
			Symbols: map[rune]string{'&': "et", '+': "et"},
			Address: map[string]string{
				"bd":  "boulevard",
				"bld": "boulevard",
				"av":  "avenue",
				"pl":  "place",
				"r":   "rue",
			},
			Noise: []string{"france"},
		},
	}
)

// Register adds or replaces the rule set for its locale.
func Register(rs RuleSet) {
	rulesMu.Lock()
	defer rulesMu.Unlock()
	rules[baseLocale(rs.Locale)] = rs
}

// Rules returns the rule set for locale, falling back to English.
func Rules(locale string) RuleSet {
	rulesMu.RLock()
	defer rulesMu.RUnlock()
	if rs, ok := rules[baseLocale(locale)]; ok {
		return rs
	}
	return rules["en"]
}

// baseLocale reduces a BCP 47 tag like "de-AT" to its base language "de".
func baseLocale(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return locale
	}
	base, _ := tag.Base()
	return base.String()
}
