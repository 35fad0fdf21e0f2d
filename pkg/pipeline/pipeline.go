// Package pipeline runs sync jobs: scrape every requested (city, source)
// pair, match the new raw records, then optionally enrich and deduplicate.
//
// At most one job runs at a time across every process sharing the
// database. Exclusivity comes from a lease taken through a jobs.Locker;
// the job itself is a row in sync_jobs so its progress can be queried from
// anywhere and a crashed run can be recognised and reset.
//
// Example usage:
//
//	orc := pipeline.New(store, registry, pipeline.WithMetrics(m))
//
//	snap, err := orc.Trigger(ctx, *pkgsync.Defaults().Apply(
//	    pkgsync.WithCities("Berlin", "Hamburg"),
//	    pkgsync.WithSources("ra"),
//	    pkgsync.WithDedupe(true),
//	))
//	if errors.IsJobRunning(err) {
//	    fmt.Println("already running:", snap.ID, snap.Progress.Percent)
//	}
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/agentstation/lineup/internal/jobs"
	"github.com/agentstation/lineup/internal/matcher"
	"github.com/agentstation/lineup/internal/metrics"
	"github.com/agentstation/lineup/internal/store"
	"github.com/agentstation/lineup/pkg/constants"
	"github.com/agentstation/lineup/pkg/dedupe"
	"github.com/agentstation/lineup/pkg/enhancer"
	"github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/lineup/pkg/logging"
	"github.com/agentstation/lineup/pkg/normalize"
	"github.com/agentstation/lineup/pkg/reconciler"
	"github.com/agentstation/lineup/pkg/sources"
	pkgsync "github.com/agentstation/lineup/pkg/sync"
	"github.com/agentstation/lineup/pkg/types"
	"github.com/agentstation/utc"
)

// Orchestrator runs sync jobs.
type Orchestrator struct {
	store    *store.Store
	registry *sources.Registry
	jobs     *jobs.Store
	locker   jobs.Locker

	matcher   *matcher.Matcher
	norm      *normalize.Normalizer
	metrics   *metrics.Metrics
	resurface bool
	enhancers []enhancer.Enhancer

	cityDelay time.Duration
	leaseTTL  time.Duration
	heartbeat time.Duration
	sleep     SleepFunc
	holder    string

	onProgress []SnapshotFunc
	onFinished []SnapshotFunc
	onMerge    []dedupe.MergeFunc

	wg sync.WaitGroup
}

// New creates an orchestrator over s scraping the connectors in registry.
func New(s *store.Store, registry *sources.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:     s,
		registry:  registry,
		jobs:      jobs.NewStore(s.DB()),
		locker:    jobs.NewDBLocker(s.DB()),
		matcher:   matcher.New(),
		norm:      normalize.New(),
		cityDelay: constants.DefaultCityDelay,
		leaseTTL:  constants.DefaultLeaseTTL,
		heartbeat: constants.DefaultHeartbeat,
		sleep:     sleep,
		holder:    hostname(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.enhancers == nil {
		o.enhancers = enhancer.Defaults(o.matcher, o.norm)
	}
	return o
}

// Trigger starts a job in the background and returns its first snapshot.
//
// When a job is already running nothing is started: the running job's
// snapshot is returned with a *errors.JobRunningError.
func (o *Orchestrator) Trigger(ctx context.Context, req pkgsync.Request) (jobs.Snapshot, error) {
	r, err := o.start(ctx, req)
	if err != nil {
		return o.busy(ctx, err)
	}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		_, _ = o.execute(context.WithoutCancel(ctx), r)
	}()
	return r.snapshot(jobs.StatusRunning), nil
}

// Run executes a job and returns its final snapshot. The returned error is
// the fatal error that failed the job, if any.
func (o *Orchestrator) Run(ctx context.Context, req pkgsync.Request) (jobs.Snapshot, error) {
	r, err := o.start(ctx, req)
	if err != nil {
		return o.busy(ctx, err)
	}
	return o.execute(ctx, r)
}

// Wait blocks until every triggered job has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Status returns the running job, or nil when idle.
func (o *Orchestrator) Status(ctx context.Context) (*jobs.Snapshot, error) {
	job, err := o.jobs.Running(ctx)
	if err != nil || job == nil {
		return nil, err
	}
	snap := job.Snapshot()
	return &snap, nil
}

// Job returns a job by id.
func (o *Orchestrator) Job(ctx context.Context, id string) (jobs.Snapshot, error) {
	job, err := o.jobs.Get(ctx, id)
	if err != nil {
		return jobs.Snapshot{}, err
	}
	return job.Snapshot(), nil
}

// Jobs returns the most recent jobs, newest first.
func (o *Orchestrator) Jobs(ctx context.Context, limit int) ([]jobs.Snapshot, error) {
	list, err := o.jobs.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]jobs.Snapshot, 0, len(list))
	for i := range list {
		out = append(out, list[i].Snapshot())
	}
	return out, nil
}

// Reset force-releases the sync lease and abandons every running job. It
// is the operator's way out after a crashed run.
func (o *Orchestrator) Reset(ctx context.Context) (int64, error) {
	if err := o.locker.ForceRelease(ctx, constants.SyncLeaseName); err != nil {
		return 0, errors.WrapResource("release", "lease", constants.SyncLeaseName, err)
	}
	n, err := o.jobs.AbandonRunning(ctx, "", "reset by operator")
	if err != nil {
		return 0, errors.WrapResource("abandon", "sync_job", "", err)
	}
	logging.FromContext(ctx).Warn().Int64("abandoned", n).Msg("Sync lease reset")
	return n, nil
}

// start validates req, takes the lease and records the job.
func (o *Orchestrator) start(ctx context.Context, req pkgsync.Request) (*run, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	id := uuid.NewString()
	if err := o.locker.Acquire(ctx, constants.SyncLeaseName, id, o.leaseTTL); err != nil {
		return nil, err
	}

	// the lease was free or lapsed, so any running row is stale
	abandoned, err := o.jobs.AbandonRunning(ctx, "", "lease expired")
	if err == nil {
		var job *jobs.Job
		job, err = o.jobs.Create(ctx, id, o.holder, req)
		if err == nil {
			if abandoned > 0 {
				logging.FromContext(ctx).Warn().Int64("abandoned", abandoned).Msg("Abandoned stale sync jobs")
			}
			return newRun(job), nil
		}
	}
	if rerr := o.locker.Release(ctx, constants.SyncLeaseName, id); rerr != nil {
		logging.FromContext(ctx).Error().Err(rerr).Msg("Failed to release sync lease")
	}
	return nil, err
}

// busy turns a lost lease race into the running job's snapshot.
func (o *Orchestrator) busy(ctx context.Context, err error) (jobs.Snapshot, error) {
	if !errors.IsLeaseHeld(err) {
		return jobs.Snapshot{}, err
	}
	current, serr := o.Status(ctx)
	if serr != nil {
		return jobs.Snapshot{}, serr
	}
	if current == nil {
		// a job holds the lease under its own id and may not have written
		// its row yet; standalone operations such as a dedupe run don't
		var held *errors.LeaseHeldError
		if errors.As(err, &held) && uuid.Validate(held.Holder) == nil {
			return jobs.Snapshot{ID: held.Holder, Status: jobs.StatusRunning},
				&errors.JobRunningError{JobID: held.Holder, Status: string(jobs.StatusRunning)}
		}
		return jobs.Snapshot{}, err
	}
	return *current, &errors.JobRunningError{JobID: current.ID, Status: string(current.Status)}
}

// execute runs r to completion and records the outcome.
func (o *Orchestrator) execute(ctx context.Context, r *run) (jobs.Snapshot, error) {
	ctx = logging.WithJob(ctx, r.id)
	logger := logging.FromContext(ctx)
	logger.Info().
		Strs("cities", r.req.Cities).
		Int("sources", len(r.req.Sources)).
		Bool("enrich", r.req.Enrich).
		Bool("dedupe", r.req.Dedupe).
		Msg("Sync started")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := o.keepAlive(runCtx, r.id, cancel)
	jobErr := o.phases(runCtx, r)
	stop()

	status := jobs.StatusSucceeded
	if jobErr != nil {
		status = jobs.StatusFailed
	} else {
		r.finish()
	}

	// the run context may be gone with a lost lease
	done := context.WithoutCancel(ctx)
	snap := r.snapshot(status)
	finished := utc.Now().Time
	snap.FinishedAt = &finished
	if jobErr != nil {
		snap.Error = jobErr.Error()
	}
	if err := o.jobs.Finish(done, r.id, status, snap.Progress, snap.Result, jobErr); err != nil {
		logger.Error().Err(err).Msg("Failed to record sync outcome")
	}
	if err := o.locker.Release(done, constants.SyncLeaseName, r.id); err != nil {
		logger.Error().Err(err).Msg("Failed to release sync lease")
	}
	took := time.Since(r.started)
	o.metrics.SyncFinished(string(status), took)

	if jobErr != nil {
		logger.Error().Err(jobErr).Dur("took", took).Msg("Sync failed")
	} else {
		logger.Info().Dur("took", took).Str("summary", snap.Result.Summary()).Msg("Sync finished")
	}
	for _, fn := range o.onFinished {
		fn(done, snap)
	}
	return snap, jobErr
}

// keepAlive renews the lease until stop is called. Losing the lease
// cancels the run.
func (o *Orchestrator) keepAlive(ctx context.Context, id string, cancel context.CancelFunc) (stop func()) {
	quit := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(o.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-quit:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := o.locker.Renew(ctx, constants.SyncLeaseName, id, o.leaseTTL); err != nil {
					if errors.IsLeaseHeld(err) {
						logging.FromContext(ctx).Error().Err(err).Msg("Sync lease lost")
						cancel()
						return
					}
					logging.FromContext(ctx).Warn().Err(err).Msg("Failed to renew sync lease")
					continue
				}
				if err := o.jobs.Heartbeat(ctx, id); err != nil {
					logging.FromContext(ctx).Warn().Err(err).Msg("Failed to record heartbeat")
				}
			}
		}
	}()
	return func() {
		close(quit)
		wg.Wait()
	}
}

func (o *Orchestrator) phases(ctx context.Context, r *run) error {
	if err := o.scrape(ctx, r); err != nil {
		return err
	}
	if err := o.match(ctx, r); err != nil {
		return err
	}
	if r.req.Enrich {
		if err := o.enrich(ctx, r); err != nil {
			return err
		}
	}
	if r.req.Dedupe {
		return o.dedupe(ctx, r)
	}
	return nil
}

// scrape visits cities in order, pausing between them. A failing source is
// recorded and skipped.
func (o *Orchestrator) scrape(ctx context.Context, r *run) error {
	ingester := sources.NewIngester(o.store, sources.WithMetrics(o.metrics))
	for i, city := range r.req.Cities {
		if i > 0 {
			if err := o.sleep(ctx, o.cityDelay); err != nil {
				return err
			}
		}
		for _, tag := range r.req.Sources {
			r.update(func(p *pkgsync.Progress) {
				p.Phase, p.City, p.Source = pkgsync.PhaseScrape, city, string(tag)
			})
			o.report(ctx, r)

			var result pkgsync.SourceResult
			var err error
			if conn, ok := o.registry.Get(tag); ok {
				result, err = ingester.Ingest(ctx, conn, city)
			} else {
				err = &errors.SourceUnavailableError{City: city, Source: string(tag), Err: errors.NewNotFoundError("connector", string(tag))}
				result = pkgsync.SourceResult{City: city, Source: string(tag), Error: err.Error()}
				o.metrics.SourceFailed(string(tag))
				logging.FromContext(ctx).Warn().Err(err).Msg("Unknown source")
			}
			r.update(func(p *pkgsync.Progress) {
				r.result.Sources = append(r.result.Sources, result)
				p.Step()
			})
			if err != nil && !errors.IsSourceUnavailable(err) {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
	o.report(ctx, r)
	return nil
}

func (o *Orchestrator) match(ctx context.Context, r *run) error {
	rec, err := reconciler.New(o.store,
		reconciler.WithMatcher(o.matcher),
		reconciler.WithMetrics(o.metrics),
		reconciler.WithResurfaceDismissed(o.resurface),
	)
	if err != nil {
		return err
	}
	return o.parallel(ctx, r, pkgsync.PhaseMatch, func(ctx context.Context, kind types.EntityType) error {
		stats, err := rec.All(ctx, kind)
		if stats != nil {
			r.update(func(*pkgsync.Progress) { r.result.Match[kind] = stats })
		}
		return err
	})
}

func (o *Orchestrator) enrich(ctx context.Context, r *run) error {
	p := enhancer.NewPipeline(o.store, o.enhancers...)
	return o.parallel(ctx, r, pkgsync.PhaseEnrich, func(ctx context.Context, kind types.EntityType) error {
		stats, err := p.Run(ctx, kind)
		if stats != nil {
			r.update(func(*pkgsync.Progress) { r.result.Enrich[kind] = stats })
		}
		return err
	})
}

func (o *Orchestrator) dedupe(ctx context.Context, r *run) error {
	opts := []dedupe.Option{dedupe.WithMatcher(o.matcher), dedupe.WithMetrics(o.metrics)}
	for _, fn := range o.onMerge {
		opts = append(opts, dedupe.WithOnMerge(fn))
	}
	r.update(func(p *pkgsync.Progress) {
		p.Phase, p.City, p.Source = pkgsync.PhaseDedupe, "", ""
	})
	o.report(ctx, r)

	stats, err := dedupe.New(o.store, opts...).RunAll(ctx)
	r.update(func(p *pkgsync.Progress) {
		for _, kind := range types.EntityTypes() {
			if s, ok := stats[kind]; ok {
				r.result.Dedupe[kind] = s
			}
			p.Step()
		}
	})
	o.report(ctx, r)
	if err != nil {
		return errors.WrapResource(string(pkgsync.PhaseDedupe), "", "", err)
	}
	return nil
}

// stages orders entity types for the match and enrich phases. Events
// resolve their venue and line-up against canonical venues and artists,
// so those are settled first.
var stages = [][]types.EntityType{
	{types.EntityVenue, types.EntityArtist},
	{types.EntityEvent},
}

// parallel runs fn once per entity type, stage by stage, with the types of
// a stage running concurrently. Progress steps as each type finishes.
func (o *Orchestrator) parallel(ctx context.Context, r *run, phase pkgsync.Phase, fn func(context.Context, types.EntityType) error) error {
	r.update(func(p *pkgsync.Progress) {
		p.Phase, p.City, p.Source = phase, "", ""
	})
	o.report(ctx, r)

	for _, stage := range stages {
		g, gctx := errgroup.WithContext(ctx)
		for _, kind := range stage {
			g.Go(func() error {
				err := fn(gctx, kind)
				r.update(func(p *pkgsync.Progress) { p.Step() })
				o.report(ctx, r)
				if err != nil {
					return errors.WrapResource(string(phase), string(kind), "", err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// report persists and publishes the current progress.
func (o *Orchestrator) report(ctx context.Context, r *run) {
	r.reporting.Lock()
	defer r.reporting.Unlock()

	snap := r.snapshot(jobs.StatusRunning)
	if err := o.jobs.SaveProgress(context.WithoutCancel(ctx), r.id, snap.Progress, snap.Result); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("Failed to save sync progress")
	}
	o.metrics.SyncProgress(snap.Progress.Percent)
	for _, fn := range o.onProgress {
		fn(ctx, snap)
	}
}

// run is the in-memory state of the job this process executes.
type run struct {
	id      string
	req     pkgsync.Request
	started time.Time

	mu       sync.Mutex
	progress pkgsync.Progress
	result   *pkgsync.Result

	reporting sync.Mutex
}

func newRun(job *jobs.Job) *run {
	return &run{
		id:       job.ID,
		req:      job.Request.Data(),
		started:  job.StartedAt,
		progress: job.Progress.Data(),
		result:   pkgsync.NewResult(),
	}
}

// update applies fn to the progress while holding the run's lock. fn may
// also write to r.result.
func (r *run) update(fn func(p *pkgsync.Progress)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.progress)
	r.progress.UpdatedAt = utc.Now()
}

func (r *run) finish() {
	r.update(func(p *pkgsync.Progress) { p.Finish() })
}

func (r *run) snapshot(status jobs.Status) jobs.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return jobs.Snapshot{
		ID:        r.id,
		Status:    status,
		Request:   r.req,
		Progress:  r.progress,
		Result:    r.result.Clone(),
		StartedAt: r.started,
	}
}
