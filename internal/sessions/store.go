// Package sessions persists booking wizards between HTTP requests.
package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/consult-booking/internal/booking"
)

var (
	// ErrNotFound is returned for unknown or expired sessions.
	ErrNotFound = errors.New("sessions: not found")
	// ErrStale is returned by Save when the record was saved by someone else
	// after it was read.
	ErrStale = errors.New("sessions: record changed since it was read")
)

// DefaultTTL bounds how long an idle wizard is kept.
const DefaultTTL = 24 * time.Hour

// SubmitLockTTL caps a submit lock left behind by a crashed request. Holders
// keep it alive with RefreshSubmit for as long as the remote call runs.
const SubmitLockTTL = 2 * time.Minute

// Record is one persisted wizard. Version counts saves.
type Record struct {
	ID        string           `json:"id"`
	Version   int64            `json:"version"`
	Snapshot  booking.Snapshot `json:"snapshot"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// Store keeps wizard snapshots and the per-session submit lock that stands in
// for the wizard's busy flag across requests.
type Store interface {
	Create(ctx context.Context, snap booking.Snapshot) (*Record, error)
	Get(ctx context.Context, id string) (*Record, error)
	// Save writes rec when the stored version still equals rec.Version and
	// then bumps rec.Version. Otherwise it returns ErrStale.
	Save(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, id string) error

	// AcquireSubmit takes the submit lock and returns the owner token. ok is
	// false when another submission holds the lock.
	AcquireSubmit(ctx context.Context, id string) (token string, ok bool, err error)
	// RefreshSubmit extends the lock. It reports false once token no longer
	// owns it.
	RefreshSubmit(ctx context.Context, id, token string) (bool, error)
	// ReleaseSubmit frees the lock only while token still owns it.
	ReleaseSubmit(ctx context.Context, id, token string) error
	Submitting(ctx context.Context, id string) (bool, error)
}

func newRecord(snap booking.Snapshot, now time.Time) *Record {
	return &Record{
		ID:        uuid.NewString(),
		Snapshot:  snap,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
