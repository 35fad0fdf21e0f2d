package errors_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	pkgerrors "github.com/agentstation/lineup/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotFoundError(t *testing.T) {
	t.Run("basic error", func(t *testing.T) {
		err := pkgerrors.NewNotFoundError("venue", "12")
		assert.Equal(t, "venue with ID 12 not found", err.Error())
		assert.True(t, errors.Is(err, pkgerrors.ErrNotFound))
	})

	t.Run("wrapped error", func(t *testing.T) {
		wrapped := fmt.Errorf("loading: %w", pkgerrors.NewNotFoundError("event", "3"))
		assert.True(t, pkgerrors.IsNotFound(wrapped))
	})
}

func TestValidationError(t *testing.T) {
	t.Run("with field", func(t *testing.T) {
		err := pkgerrors.NewValidationError("state", "NOPE", "unknown state")
		assert.Equal(t, "validation failed for field state: unknown state", err.Error())
		assert.True(t, pkgerrors.IsValidationError(err))
	})

	t.Run("without field", func(t *testing.T) {
		err := &pkgerrors.ValidationError{Message: "bad"}
		assert.Equal(t, "validation failed: bad", err.Error())
	})
}

func TestDuplicateLinkError(t *testing.T) {
	err := &pkgerrors.DuplicateLinkError{RawID: 4, CanonicalID: 9}
	assert.Equal(t, "raw record 4 already linked to 9", err.Error())
	assert.True(t, pkgerrors.IsDuplicateLink(fmt.Errorf("link: %w", err)))

	var dup *pkgerrors.DuplicateLinkError
	require.True(t, errors.As(fmt.Errorf("x: %w", err), &dup))
	assert.Equal(t, uint(9), dup.CanonicalID)
}

func TestInvalidTransitionError(t *testing.T) {
	err := &pkgerrors.InvalidTransitionError{EventID: 1, From: "REJECTED", To: "PUBLISHED"}
	assert.Contains(t, err.Error(), "REJECTED")
	assert.True(t, pkgerrors.IsInvalidTransition(err))
	assert.False(t, errors.Is(err, pkgerrors.ErrPublishValidation))
}

func TestPublishValidationError(t *testing.T) {
	err := &pkgerrors.PublishValidationError{
		EventID:  7,
		Target:   "READY_TO_PUBLISH",
		Missing:  []string{"venue"},
		Unedited: []string{"title", "description"},
	}
	assert.Equal(t, "event 7 not valid for READY_TO_PUBLISH: missing venue; unedited title, description", err.Error())
	assert.True(t, errors.Is(err, pkgerrors.ErrPublishValidation))
	assert.True(t, pkgerrors.IsValidationError(err))
}

func TestSourceUnavailableError(t *testing.T) {
	base := errors.New("connection refused")
	err := &pkgerrors.SourceUnavailableError{City: "Berlin", Source: "ra", Err: base}
	assert.True(t, errors.Is(err, pkgerrors.ErrSourceUnavailable))
	assert.True(t, errors.Is(err, base))
	assert.Contains(t, err.Error(), "Berlin")
}

func TestMergeConflictError(t *testing.T) {
	err := &pkgerrors.MergeConflictError{Entity: "venue", KeeperID: 1, LoserID: 2, Err: errors.New("boom")}
	assert.True(t, errors.Is(err, pkgerrors.ErrMergeConflict))
	assert.Equal(t, "merge conflict for venue 1 <- 2: boom", err.Error())
}

func TestJobAndLeaseErrors(t *testing.T) {
	job := &pkgerrors.JobRunningError{JobID: "abc", Status: "running"}
	assert.True(t, pkgerrors.IsJobRunning(job))
	assert.Equal(t, "sync job already running", (&pkgerrors.JobRunningError{}).Error())

	lease := &pkgerrors.LeaseHeldError{Name: "sync", Holder: "w1", ExpiresAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	assert.True(t, pkgerrors.IsLeaseHeld(lease))
	assert.Equal(t, "lease sync held by w1 until 2026-01-02T03:04:05Z", lease.Error())
}

func TestWrapHelpers(t *testing.T) {
	assert.NoError(t, pkgerrors.WrapResource("create", "event", "", nil))
	assert.NoError(t, pkgerrors.WrapParse("yaml", "x.yaml", nil))

	base := errors.New("disk full")
	err := pkgerrors.WrapResource("create", "event", "5", base)
	assert.Equal(t, "failed to create event 5: disk full", err.Error())
	assert.True(t, errors.Is(err, base))

	perr := pkgerrors.WrapParse("yaml", "ra.yaml", base)
	assert.Equal(t, "parse error in yaml file ra.yaml: disk full", perr.Error())
}

func TestDomainPredicates(t *testing.T) {
	assert.True(t, pkgerrors.IsPublishValidation(&pkgerrors.PublishValidationError{EventID: 1}))
	assert.True(t, pkgerrors.IsSourceUnavailable(&pkgerrors.SourceUnavailableError{City: "Berlin", Source: "ra"}))
	assert.True(t, pkgerrors.IsMergeConflict(&pkgerrors.MergeConflictError{Entity: "artist"}))
	assert.False(t, pkgerrors.IsMergeConflict(errors.New("other")))
}

func TestWrapValidation(t *testing.T) {
	assert.NoError(t, pkgerrors.WrapValidation("date", "x", nil))

	err := pkgerrors.WrapValidation("date", "31-12", errors.New("bad layout"))
	assert.True(t, pkgerrors.IsValidationError(err))
	var ve *pkgerrors.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "date", ve.Field)

	inner := pkgerrors.NewValidationError("start_time", "25:00", "expected HH:MM")
	assert.Same(t, inner, pkgerrors.WrapValidation("date", "x", inner))
}
