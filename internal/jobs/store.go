package jobs

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	pkgerrors "github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/lineup/pkg/sync"
	"github.com/agentstation/utc"
)

// Store reads and writes sync job rows.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore returns a job store over db.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: func() time.Time { return utc.Now().Time }}
}

// Create inserts a new running job.
func (s *Store) Create(ctx context.Context, id, holder string, req sync.Request) (*Job, error) {
	now := s.now()
	job := &Job{
		ID:          id,
		Status:      StatusRunning,
		Holder:      holder,
		Request:     datatypes.NewJSONType(req),
		Progress:    datatypes.NewJSONType(sync.Progress{Phase: sync.PhaseScrape, Total: req.Steps(), UpdatedAt: utc.New(now)}),
		Result:      datatypes.NewJSONType(sync.NewResult()),
		HeartbeatAt: now,
		StartedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, pkgerrors.WrapResource("create", "sync_job", id, err)
	}
	return job, nil
}

// Get returns a job by id.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	var job Job
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.NewNotFoundError("sync_job", id)
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// Running returns the most recent running job, or nil when idle.
func (s *Store) Running(ctx context.Context) (*Job, error) {
	var job Job
	err := s.db.WithContext(ctx).
		Where("status = ?", StatusRunning).
		Order("started_at DESC").
		Limit(1).
		Find(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == "" {
		return nil, nil
	}
	return &job, nil
}

// List returns the most recent jobs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []Job
	err := s.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&out).Error
	return out, err
}

// SaveProgress stores the job's progress and partial result and refreshes its heartbeat.
func (s *Store) SaveProgress(ctx context.Context, id string, p sync.Progress, r *sync.Result) error {
	now := s.now()
	p.UpdatedAt = utc.New(now)
	return s.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status = ?", id, StatusRunning).
		Updates(map[string]any{
			"progress":     datatypes.NewJSONType(p),
			"result":       datatypes.NewJSONType(r),
			"heartbeat_at": now,
			"updated_at":   now,
		}).Error
}

// Heartbeat refreshes the job's heartbeat.
func (s *Store) Heartbeat(ctx context.Context, id string) error {
	now := s.now()
	return s.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status = ?", id, StatusRunning).
		Updates(map[string]any{"heartbeat_at": now, "updated_at": now}).Error
}

// Finish moves a running job to a terminal status.
func (s *Store) Finish(ctx context.Context, id string, status Status, p sync.Progress, r *sync.Result, jobErr error) error {
	now := s.now()
	p.UpdatedAt = utc.New(now)
	updates := map[string]any{
		"status":       status,
		"progress":     datatypes.NewJSONType(p),
		"result":       datatypes.NewJSONType(r),
		"finished_at":  now,
		"heartbeat_at": now,
		"updated_at":   now,
	}
	if jobErr != nil {
		updates["error"] = jobErr.Error()
	}
	return s.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status = ?", id, StatusRunning).
		Updates(updates).Error
}

// AbandonRunning marks every running job other than keep abandoned and
// returns how many were changed.
func (s *Store) AbandonRunning(ctx context.Context, keep string, reason string) (int64, error) {
	now := s.now()
	q := s.db.WithContext(ctx).Model(&Job{}).Where("status = ?", StatusRunning)
	if keep != "" {
		q = q.Where("id <> ?", keep)
	}
	res := q.Updates(map[string]any{
		"status":      StatusAbandoned,
		"error":       reason,
		"finished_at": now,
		"updated_at":  now,
	})
	return res.RowsAffected, res.Error
}
