// Package sources defines the contract between the catalog and the external
// systems records are scraped from.
//
// A Connector scrapes one source for one city and emits Observations. The
// registry maps source tags to connectors, and Ingest stores what a
// connector emits as raw records.
//
// Example usage:
//
//	reg := sources.NewRegistry()
//	if err := reg.Register(fixture.New("ra", "fixtures")); err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := sources.Ingest(ctx, store, conn, "Berlin")
//	if err != nil {
//	    // the source was unavailable; result.Error says why
//	}
package sources

import (
	"context"
	"slices"
	"sync"

	"github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/lineup/pkg/types"
)

// Connector scrapes one external source.
type Connector interface {
	// ID returns the source tag records from this connector carry
	ID() types.SourceTag

	// Scrape reports every record the source lists for city through emit.
	// An error from emit aborts the scrape and is returned unchanged.
	Scrape(ctx context.Context, city string, emit func(Observation) error) error
}

// ScrapeFunc is the signature of a Connector's Scrape method.
type ScrapeFunc func(ctx context.Context, city string, emit func(Observation) error) error

// funcConnector adapts a ScrapeFunc to Connector.
type funcConnector struct {
	id     types.SourceTag
	scrape ScrapeFunc
}

// NewFunc returns a Connector for id backed by fn.
func NewFunc(id types.SourceTag, fn ScrapeFunc) Connector {
	return &funcConnector{id: id, scrape: fn}
}

func (c *funcConnector) ID() types.SourceTag { return c.id }

func (c *funcConnector) Scrape(ctx context.Context, city string, emit func(Observation) error) error {
	return c.scrape(ctx, city, emit)
}

// Registry is a thread-safe container of connectors keyed by source tag.
type Registry struct {
	mu         sync.RWMutex
	connectors map[types.SourceTag]Connector
}

// NewRegistry creates a registry holding connectors.
func NewRegistry(connectors ...Connector) (*Registry, error) {
	r := &Registry{connectors: make(map[types.SourceTag]Connector)}
	for _, c := range connectors {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a connector. Reserved and duplicate tags are rejected.
func (r *Registry) Register(c Connector) error {
	id := c.ID()
	if id == "" || id.IsReserved() {
		return errors.NewValidationError("source", id, "connector needs an unreserved source tag")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, found := r.connectors[id]; found {
		return &errors.ResourceError{Operation: "register", Resource: "connector", ID: string(id), Err: errors.ErrAlreadyExists}
	}
	r.connectors[id] = c
	return nil
}

// Get returns the connector for id.
func (r *Registry) Get(id types.SourceTag) (Connector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, found := r.connectors[id]
	return c, found
}

// Len returns the number of connectors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connectors)
}

// IDs returns the registered source tags in sorted order.
func (r *Registry) IDs() []types.SourceTag {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]types.SourceTag, 0, len(r.connectors))
	for id := range r.connectors {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
