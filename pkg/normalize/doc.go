// Package normalize cleans free-text names and addresses so that two
// observations of the same entity compare equal.
//
// Normalization is pure and never fails. Text is decomposed, stripped of
// diacritics, case-folded, and punctuation is collapsed to single spaces.
// Invalid UTF-8 normalizes to the empty string.
//
// Locale specific rules (connector words, street abbreviations) live in
// RuleSets selected with WithLocale or supplied with WithRules:
//
//	n := normalize.New(normalize.WithLocale("de"))
//	n.Text("Berghain & Panorama Bar")          // "berghain und panorama bar"
//	n.Address("Am Wriezener Bahnhof, 10243 Berlin", normalize.Hints{City: "Berlin"})
package normalize
