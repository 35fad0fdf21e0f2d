package lineup

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/agentstation/lineup/pkg/constants"
	"github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/lineup/pkg/logging"
	pkgsync "github.com/agentstation/lineup/pkg/sync"
	"github.com/agentstation/lineup/pkg/types"
)

// Compile-time interface check to ensure proper implementation.
var _ Syncer = (*client)(nil)

// Syncer runs and inspects sync jobs.
type Syncer interface {
	// TriggerSync starts a sync job in the background and returns its first
	// snapshot. While another job runs, it returns that job's snapshot and
	// an *errors.JobRunningError.
	TriggerSync(ctx context.Context, opts ...pkgsync.Option) (JobSnapshot, error)

	// RunSync runs a sync job to completion.
	RunSync(ctx context.Context, opts ...pkgsync.Option) (JobSnapshot, error)

	// SyncStatus returns the running job, or nil when idle.
	SyncStatus(ctx context.Context) (*JobSnapshot, error)

	// Job returns one job.
	Job(ctx context.Context, id string) (JobSnapshot, error)

	// Jobs returns the most recent jobs, newest first.
	Jobs(ctx context.Context, limit int) ([]JobSnapshot, error)

	// ResetJob releases the sync lease and abandons running jobs.
	ResetJob(ctx context.Context) (int64, error)

	// Dedupe merges duplicate canonical records of the given kinds, or of
	// every kind when none is given.
	Dedupe(ctx context.Context, kinds ...types.EntityType) (map[types.EntityType]*pkgsync.DedupeStats, error)

	// Sources returns the registered source tags.
	Sources() []types.SourceTag
}

// TriggerSync starts a sync job in the background. Without sources every
// registered connector is scraped.
func (c *client) TriggerSync(ctx context.Context, opts ...pkgsync.Option) (JobSnapshot, error) {
	return c.pipeline.Trigger(ctx, c.request(opts...))
}

// RunSync runs a sync job to completion.
func (c *client) RunSync(ctx context.Context, opts ...pkgsync.Option) (JobSnapshot, error) {
	return c.pipeline.Run(ctx, c.request(opts...))
}

// request builds a sync request from opts.
func (c *client) request(opts ...pkgsync.Option) pkgsync.Request {
	req := pkgsync.Defaults().Apply(opts...)
	if len(req.Sources) == 0 {
		req.Apply(pkgsync.WithSources(c.registry.IDs()...))
	}
	if req.Actor == "" {
		req.Actor = constants.SystemActor
	}
	return *req
}

// SyncStatus returns the running job, or nil when idle.
func (c *client) SyncStatus(ctx context.Context) (*JobSnapshot, error) {
	return c.pipeline.Status(ctx)
}

// Job returns one job.
func (c *client) Job(ctx context.Context, id string) (JobSnapshot, error) {
	return c.pipeline.Job(ctx, id)
}

// Jobs returns the most recent jobs, newest first.
func (c *client) Jobs(ctx context.Context, limit int) ([]JobSnapshot, error) {
	return c.pipeline.Jobs(ctx, limit)
}

// ResetJob releases the sync lease and abandons running jobs.
func (c *client) ResetJob(ctx context.Context) (int64, error) {
	return c.pipeline.Reset(ctx)
}

// Sources returns the registered source tags.
func (c *client) Sources() []types.SourceTag {
	return c.registry.IDs()
}

// Dedupe merges duplicate canonical records outside a sync job. It holds
// the sync lease for the whole run so it never races a sync's dedupe phase.
func (c *client) Dedupe(ctx context.Context, kinds ...types.EntityType) (map[types.EntityType]*pkgsync.DedupeStats, error) {
	for _, k := range kinds {
		if !k.IsValid() {
			return nil, errors.NewValidationError("entity_type", k, "unknown entity type")
		}
	}
	if len(kinds) == 0 {
		kinds = types.EntityTypes()
	}

	var stats map[types.EntityType]*pkgsync.DedupeStats
	err := c.exclusive(ctx, "dedupe", func(ctx context.Context) error {
		var err error
		stats, err = c.dedupe.RunAll(ctx, kinds...)
		return err
	})
	return stats, err
}

// exclusive runs fn while holding the sync lease, renewing it every
// heartbeat. A lost lease cancels fn's context.
func (c *client) exclusive(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	holder := operation + ":" + uuid.NewString()
	if err := c.locker.Acquire(ctx, constants.SyncLeaseName, holder, c.options.leaseTTL); err != nil {
		return err
	}
	defer func() {
		if err := c.locker.Release(context.WithoutCancel(ctx), constants.SyncLeaseName, holder); err != nil {
			logging.FromContext(ctx).Warn().Err(err).Str("holder", holder).Msg("Lease release failed")
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(c.options.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := c.locker.Renew(ctx, constants.SyncLeaseName, holder, c.options.leaseTTL); err != nil {
					logging.FromContext(ctx).Error().Err(err).Str("operation", operation).Msg("Lost sync lease")
					cancel()
					return
				}
			}
		}
	}()

	return fn(ctx)
}
