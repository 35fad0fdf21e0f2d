// Package lineup provides the main entry point for the lineup record-linkage
// engine. It reconciles events, venues and artists scraped from independent
// sources into one canonical catalog with field-level provenance, a review
// queue for scraped changes, deduplication and an event publishing
// lifecycle.
//
// A Client wraps a *gorm.DB holding the migrated schema:
//
//	db, err := store.Open("sqlite", "lineup.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := store.Migrate(ctx, db); err != nil {
//	    log.Fatal(err)
//	}
//
//	lu, err := lineup.New(db,
//	    lineup.WithConnectors(ra, tixly),
//	    lineup.WithAutoSweep(true),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer lu.Close()
//
//	lu.OnSyncFinished(func(job lineup.JobSnapshot) {
//	    log.Printf("sync %s %s", job.ID, job.Status)
//	})
//
//	// Start a sync in the background; a second call while it runs
//	// returns the running job and an *errors.JobRunningError.
//	job, err := lu.TriggerSync(ctx,
//	    sync.WithCities("Berlin", "Hamburg"),
//	    sync.WithDedupe(true),
//	)
package lineup

import (
	"context"
	"strconv"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/agentstation/lineup/internal/jobs"
	"github.com/agentstation/lineup/internal/matcher"
	"github.com/agentstation/lineup/internal/store"
	"github.com/agentstation/lineup/internal/utils/ptr"
	"github.com/agentstation/lineup/pkg/catalogs"
	"github.com/agentstation/lineup/pkg/dedupe"
	"github.com/agentstation/lineup/pkg/differ"
	"github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/lineup/pkg/linker"
	"github.com/agentstation/lineup/pkg/logging"
	"github.com/agentstation/lineup/pkg/normalize"
	"github.com/agentstation/lineup/pkg/pipeline"
	"github.com/agentstation/lineup/pkg/provenance"
	"github.com/agentstation/lineup/pkg/publish"
	"github.com/agentstation/lineup/pkg/sources"
	"github.com/agentstation/lineup/pkg/types"
)

// Types shared with the internal packages.
type (
	// JobSnapshot is the state of one sync job.
	JobSnapshot = jobs.Snapshot

	// Merge describes one deduplication merge.
	Merge = dedupe.Merge

	// Page selects a window of a listing.
	Page = store.Page

	// RawQuery filters raw record listings.
	RawQuery = store.RawQuery

	// CanonicalQuery filters canonical record listings.
	CanonicalQuery = store.CanonicalQuery

	// BulkResult is the outcome of one event in a bulk transition.
	BulkResult = publish.BulkResult

	// SweepResult summarizes an expiry sweep.
	SweepResult = publish.SweepResult
)

// Compile-time interface checks to ensure proper implementation.
var (
	_ Client  = (*client)(nil)
	_ Queries = (*client)(nil)
	_ Curator = (*client)(nil)
)

// Client manages the catalog, its sync jobs and the event lifecycle.
type Client interface {

	// Queries reads raw and canonical records
	Queries

	// Curator edits canonical records and resolves flagged changes
	Curator

	// Syncer runs and inspects sync jobs
	Syncer

	// Lifecycle moves events through their publishing states
	Lifecycle

	// AutoSweeper controls the periodic expiry sweep
	AutoSweeper

	// Hooks provides access to event callback registration
	Hooks

	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// Close stops the expiry sweep and waits for background sync jobs.
	Close() error
}

// Queries reads raw and canonical records.
type Queries interface {
	// ListRaws returns matching raw records and the total count.
	ListRaws(ctx context.Context, q RawQuery) ([]catalogs.RawRecord, int64, error)

	// GetRaw returns one raw record.
	GetRaw(ctx context.Context, id uint) (*catalogs.RawRecord, error)

	// ReviewQueue returns raw records with changes waiting for a curator.
	ReviewQueue(ctx context.Context, kind types.EntityType, page Page) ([]catalogs.RawRecord, int64, error)

	// PendingChanges returns the flagged changes of a raw record.
	PendingChanges(ctx context.Context, rawID uint) (*differ.Changeset, error)

	// ListCanonicals returns matching canonical records and the total count.
	ListCanonicals(ctx context.Context, q CanonicalQuery) ([]catalogs.Canonical, int64, error)

	// GetCanonical returns a canonical record with its links.
	GetCanonical(ctx context.Context, kind types.EntityType, id uint) (*CanonicalDetail, error)
}

// Curator edits canonical records and resolves flagged changes.
type Curator interface {
	// CreateCanonical creates a canonical record from curated values.
	CreateCanonical(ctx context.Context, kind types.EntityType, values map[types.Field]string) (catalogs.Canonical, error)

	// UpdateCanonical applies curated values to a canonical record.
	UpdateCanonical(ctx context.Context, kind types.EntityType, id uint, values map[types.Field]string) (catalogs.Canonical, error)

	// DeleteCanonical deletes a canonical record and unlinks its raws.
	DeleteCanonical(ctx context.Context, kind types.EntityType, id uint) error

	// ApplyChanges copies flagged changes of a raw record into its
	// canonical record. Without fields every flagged change is applied.
	ApplyChanges(ctx context.Context, rawID uint, fields ...types.Field) ([]types.Field, error)

	// DismissChanges hides the flagged changes of a raw record.
	DismissChanges(ctx context.Context, rawID uint) error

	// ManualLink links the raw record of source and sourceID to a
	// canonical record.
	ManualLink(ctx context.Context, kind types.EntityType, canonicalID uint, source types.SourceTag, sourceID string) (*catalogs.Link, error)

	// PurgeRaw deletes a raw record and its link.
	PurgeRaw(ctx context.Context, id uint) error
}

// CanonicalDetail is a canonical record with its links.
type CanonicalDetail struct {
	Record catalogs.Canonical `json:"record" yaml:"record"`
	Links  []catalogs.Link    `json:"links" yaml:"links"`
}

// client is the internal implementation of the Client interface.
type client struct {

	// options are the configured options for the client
	options *options

	// components
	store    *store.Store
	norm     *normalize.Normalizer
	matcher  *matcher.Matcher
	registry *sources.Registry
	locker   jobs.Locker
	unifier  *provenance.Unifier
	linker   *linker.Linker
	pipeline *pipeline.Orchestrator
	machine  *publish.Machine
	dedupe   *dedupe.Deduplicator

	// auto sweep state
	mu          sync.Mutex
	sweepTicker *time.Ticker       // ticker triggering expiry sweeps
	stopCh      chan struct{}      // stop channel to stop the sweep loop
	sweepCancel context.CancelFunc // cancel function for the sweep goroutine

	hooks *hooks // event hooks for sync and lifecycle events
}

// New creates a new Client over db with the given options. The schema must
// already be migrated.
func New(db *gorm.DB, opts ...Option) (Client, error) {
	if db == nil {
		return nil, &errors.ConfigError{Component: "database", Message: "database is nil"}
	}
	o, err := defaults().apply(opts...)
	if err != nil {
		return nil, err
	}

	registry, err := sources.NewRegistry(o.connectors...)
	if err != nil {
		return nil, errors.WrapResource("create", "registry", "", err)
	}

	s := store.New(db)
	norm := normalize.New(normalize.WithLocale(o.locale))
	m := matcher.New(matcher.WithNormalizer(norm), matcher.WithThresholds(o.thresholds))

	c := &client{
		options:  o,
		store:    s,
		norm:     norm,
		matcher:  m,
		registry: registry,
		locker:   o.locker,
		stopCh:   make(chan struct{}),
		hooks:    newHooks(),
	}
	if c.locker == nil {
		c.locker = jobs.NewDBLocker(db)
	}

	c.unifier = provenance.New(s,
		provenance.WithMetrics(o.metrics),
		provenance.WithResurfaceDismissed(o.resurface),
	)
	c.linker = linker.New(s, linker.WithMetrics(o.metrics))

	pipelineOpts := []pipeline.Option{
		pipeline.WithLocker(c.locker),
		pipeline.WithMatcher(m),
		pipeline.WithNormalizer(norm),
		pipeline.WithMetrics(o.metrics),
		pipeline.WithResurfaceDismissed(o.resurface),
		pipeline.WithCityDelay(o.cityDelay),
		pipeline.WithLease(o.leaseTTL, o.heartbeat),
		pipeline.WithOnProgress(c.hooks.syncProgress),
		pipeline.WithOnFinished(c.hooks.syncFinished),
		pipeline.WithOnMerge(c.hooks.merged),
	}
	if o.holder != "" {
		pipelineOpts = append(pipelineOpts, pipeline.WithHolder(o.holder))
	}
	c.pipeline = pipeline.New(s, registry, pipelineOpts...)

	machineOpts := []publish.Option{
		publish.WithNormalizer(norm),
		publish.WithMetrics(o.metrics),
		publish.WithLocation(o.location),
		publish.WithOnTransition(c.hooks.transitioned),
	}
	if len(o.sweepStates) > 0 {
		machineOpts = append(machineOpts, publish.WithSweepStates(o.sweepStates...))
	}
	c.machine = publish.New(s, machineOpts...)

	c.dedupe = dedupe.New(s,
		dedupe.WithMatcher(m),
		dedupe.WithMetrics(o.metrics),
		dedupe.WithOnMerge(c.hooks.merged),
	)

	logging.Debug().
		Int("connectors", registry.Len()).
		Str("locale", norm.Locale()).
		Msg("Lineup client created")

	if o.autoSweepEnabled {
		if err := c.AutoSweepOn(); err != nil {
			return nil, errors.WrapResource("start", "auto-sweep", "", err)
		}
	}

	return c, nil
}

// Ping checks the database connection.
func (c *client) Ping(ctx context.Context) error {
	db, err := c.store.DB().DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// Close stops the expiry sweep and waits for background sync jobs.
func (c *client) Close() error {
	err := c.AutoSweepOff()
	c.pipeline.Wait()
	return err
}

// ListRaws returns matching raw records and the total count.
func (c *client) ListRaws(ctx context.Context, q RawQuery) ([]catalogs.RawRecord, int64, error) {
	if q.EntityType != "" && !q.EntityType.IsValid() {
		return nil, 0, errors.NewValidationError("entity_type", q.EntityType, "unknown entity type")
	}
	return c.store.ListRaws(ctx, q)
}

// GetRaw returns one raw record.
func (c *client) GetRaw(ctx context.Context, id uint) (*catalogs.RawRecord, error) {
	return c.store.GetRaw(ctx, id)
}

// ReviewQueue returns raw records of kind with undismissed changes. An
// empty kind lists every type.
func (c *client) ReviewQueue(ctx context.Context, kind types.EntityType, page Page) ([]catalogs.RawRecord, int64, error) {
	return c.ListRaws(ctx, RawQuery{EntityType: kind, HasChanges: ptr.To(true), Page: page})
}

// PendingChanges returns the flagged changes of a raw record.
func (c *client) PendingChanges(ctx context.Context, rawID uint) (*differ.Changeset, error) {
	raw, err := c.store.GetRaw(ctx, rawID)
	if err != nil {
		return nil, err
	}
	return provenance.PendingChanges(raw), nil
}

// ListCanonicals returns matching canonical records and the total count.
func (c *client) ListCanonicals(ctx context.Context, q CanonicalQuery) ([]catalogs.Canonical, int64, error) {
	if !q.EntityType.IsValid() {
		return nil, 0, errors.NewValidationError("entity_type", q.EntityType, "unknown entity type")
	}
	return c.store.ListCanonicals(ctx, q)
}

// GetCanonical returns a canonical record with its links, primary first.
func (c *client) GetCanonical(ctx context.Context, kind types.EntityType, id uint) (*CanonicalDetail, error) {
	rec, err := c.store.GetCanonical(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	links, err := c.store.LinksFor(ctx, kind, id)
	if err != nil {
		return nil, errors.WrapResource("list", "links", strconv.FormatUint(uint64(id), 10), err)
	}
	return &CanonicalDetail{Record: rec, Links: links}, nil
}

// CreateCanonical creates a canonical record from curated values. Events
// start in MANUAL_DRAFT.
func (c *client) CreateCanonical(ctx context.Context, kind types.EntityType, values map[types.Field]string) (catalogs.Canonical, error) {
	rec, err := catalogs.New(kind)
	if err != nil {
		return nil, err
	}
	if e, ok := rec.(*catalogs.Event); ok {
		e.State = publish.InitialState(true)
	}
	if err := c.unifier.CreateCurated(ctx, rec, values); err != nil {
		return nil, err
	}
	return rec, nil
}

// UpdateCanonical applies curated values to a canonical record.
func (c *client) UpdateCanonical(ctx context.Context, kind types.EntityType, id uint, values map[types.Field]string) (catalogs.Canonical, error) {
	return c.unifier.Edit(ctx, kind, id, values)
}

// DeleteCanonical deletes a canonical record and unlinks its raws.
func (c *client) DeleteCanonical(ctx context.Context, kind types.EntityType, id uint) error {
	if err := c.store.DeleteCanonical(ctx, kind, id); err != nil {
		return err
	}
	logging.FromContext(ctx).Info().
		Str("entity", string(kind)).
		Uint("id", id).
		Msg("Canonical record deleted")
	return nil
}

// ApplyChanges copies flagged changes of a raw record into its canonical
// record.
func (c *client) ApplyChanges(ctx context.Context, rawID uint, fields ...types.Field) ([]types.Field, error) {
	return c.unifier.ApplyChanges(ctx, rawID, fields...)
}

// DismissChanges hides the flagged changes of a raw record.
func (c *client) DismissChanges(ctx context.Context, rawID uint) error {
	return c.unifier.DismissChanges(ctx, rawID)
}

// ManualLink links the raw record of source and sourceID to a canonical
// record at full confidence.
func (c *client) ManualLink(ctx context.Context, kind types.EntityType, canonicalID uint, source types.SourceTag, sourceID string) (*catalogs.Link, error) {
	_, link, err := c.linker.ManualLink(ctx, kind, canonicalID, source, sourceID)
	return link, err
}

// PurgeRaw deletes a raw record and its link. When the link was primary
// another link of the canonical record is promoted.
func (c *client) PurgeRaw(ctx context.Context, id uint) error {
	return c.store.Tx(ctx, func(tx *store.Store) error {
		_, err := linker.New(tx, linker.WithMetrics(c.options.metrics)).Unlink(ctx, id)
		if err != nil && !errors.IsNotFound(err) {
			return err
		}
		return tx.PurgeRaw(ctx, id)
	})
}
