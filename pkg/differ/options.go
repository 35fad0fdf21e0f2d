package differ

import "github.com/agentstation/lineup/pkg/types"

// Option is a functional option for configuring Differ.
type Option func(*Differ)

// WithIgnoredFields sets fields to ignore during comparison.
func WithIgnoredFields(fields ...types.Field) Option {
	return func(d *Differ) {
		for _, field := range fields {
			d.ignore[field] = true
		}
	}
}

// WithNormalizer treats values that normalize to the same text as equal.
func WithNormalizer(n Normalizer) Option {
	return func(d *Differ) {
		d.norm = n
	}
}
