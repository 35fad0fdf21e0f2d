// Package jobs persists sync job rows and the leases that keep at most one
// job running at a time.
package jobs

import (
	"time"

	"gorm.io/datatypes"

	"github.com/agentstation/lineup/pkg/sync"
)

// Status is the lifecycle status of a sync job.
type Status string

// Job statuses.
const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusAbandoned Status = "abandoned" // holder vanished without finishing
)

// IsTerminal reports whether s is a finished status.
func (s Status) IsTerminal() bool {
	return s != StatusRunning
}

// Job is one sync run.
type Job struct {
	ID          string                            `gorm:"primaryKey;size:36" json:"id"`
	Status      Status                            `gorm:"size:16;not null;index" json:"status"`
	Holder      string                            `gorm:"size:64;not null" json:"holder"`
	Request     datatypes.JSONType[sync.Request]  `json:"request"`
	Progress    datatypes.JSONType[sync.Progress] `json:"progress"`
	Result      datatypes.JSONType[*sync.Result]  `json:"result"`
	Error       string                            `gorm:"type:text" json:"error,omitempty"`
	HeartbeatAt time.Time                         `json:"heartbeat_at"`
	StartedAt   time.Time                         `gorm:"index" json:"started_at"`
	FinishedAt  *time.Time                        `json:"finished_at,omitempty"`
	UpdatedAt   time.Time                         `json:"updated_at"`
}

// TableName implements gorm's tabler.
func (Job) TableName() string { return "sync_jobs" }

// Snapshot is the read-only view of a job returned to callers.
type Snapshot struct {
	ID         string        `json:"id" yaml:"id"`
	Status     Status        `json:"status" yaml:"status"`
	Request    sync.Request  `json:"request" yaml:"request"`
	Progress   sync.Progress `json:"progress" yaml:"progress"`
	Result     *sync.Result  `json:"result,omitempty" yaml:"result,omitempty"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
}

// Snapshot returns the job's read-only view.
func (j *Job) Snapshot() Snapshot {
	return Snapshot{
		ID:         j.ID,
		Status:     j.Status,
		Request:    j.Request.Data(),
		Progress:   j.Progress.Data(),
		Result:     j.Result.Data(),
		Error:      j.Error,
		StartedAt:  j.StartedAt,
		FinishedAt: j.FinishedAt,
	}
}

// Lease is a named, expiring exclusive claim.
type Lease struct {
	Name      string    `gorm:"primaryKey;size:64" json:"name"`
	Holder    string    `gorm:"size:64;not null" json:"holder"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName implements gorm's tabler.
func (Lease) TableName() string { return "sync_leases" }

// Expired reports whether the lease has lapsed at now.
func (l *Lease) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

// Models returns the tables owned by this package, for migrations.
func Models() []any {
	return []any{&Job{}, &Lease{}}
}
