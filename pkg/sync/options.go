// Package sync defines the request, progress and result types of a sync job.
package sync

import (
	"slices"
	"strings"

	"github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/lineup/pkg/types"
)

// Request selects what one sync job does.
type Request struct {
	Cities  []string          `json:"cities" yaml:"cities"`
	Sources []types.SourceTag `json:"sources" yaml:"sources"`
	Enrich  bool              `json:"enrich" yaml:"enrich"` // run the enrich phase after matching
	Dedupe  bool              `json:"dedupe" yaml:"dedupe"` // run the dedupe phase last
	Actor   string            `json:"actor,omitempty" yaml:"actor,omitempty"`
}

// Option is a function that configures a Request.
type Option func(*Request)

// Defaults returns a request without cities or sources.
func Defaults() *Request {
	return &Request{}
}

// Apply applies the given options to the request.
func (r *Request) Apply(opts ...Option) *Request {
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithCities adds cities to scrape, in order.
func WithCities(cities ...string) Option {
	return func(r *Request) {
		for _, c := range cities {
			if c = strings.TrimSpace(c); c != "" && !slices.Contains(r.Cities, c) {
				r.Cities = append(r.Cities, c)
			}
		}
	}
}

// WithSources adds sources to scrape in every city.
func WithSources(sources ...types.SourceTag) Option {
	return func(r *Request) {
		for _, s := range sources {
			if s != "" && !slices.Contains(r.Sources, s) {
				r.Sources = append(r.Sources, s)
			}
		}
	}
}

// WithEnrich enables the enrich phase.
func WithEnrich(enabled bool) Option {
	return func(r *Request) {
		r.Enrich = enabled
	}
}

// WithDedupe enables the dedupe phase.
func WithDedupe(enabled bool) Option {
	return func(r *Request) {
		r.Dedupe = enabled
	}
}

// WithActor records who triggered the job.
func WithActor(actor string) Option {
	return func(r *Request) {
		r.Actor = actor
	}
}

// Validate checks that the request names at least one city and source.
func (r *Request) Validate() error {
	if len(r.Cities) == 0 {
		return errors.NewValidationError("cities", r.Cities, "at least one city is required")
	}
	if len(r.Sources) == 0 {
		return errors.NewValidationError("sources", r.Sources, "at least one source is required")
	}
	for _, s := range r.Sources {
		if s.IsReserved() {
			return errors.NewValidationError("sources", s, "reserved source tag")
		}
	}
	return nil
}

// Steps returns the number of progress steps the request takes.
func (r *Request) Steps() int {
	steps := len(r.Cities)*len(r.Sources) + len(types.EntityTypes())
	if r.Enrich {
		steps += len(types.EntityTypes())
	}
	if r.Dedupe {
		steps += len(types.EntityTypes())
	}
	return steps
}
