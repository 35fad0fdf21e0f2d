package jobs

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	pkgerrors "github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/utc"
)

// Locker hands out named, expiring, exclusive leases.
type Locker interface {
	// Acquire takes the lease for holder or returns a *errors.LeaseHeldError.
	// An expired lease is taken over. Re-acquiring an own lease renews it.
	Acquire(ctx context.Context, name, holder string, ttl time.Duration) error
	// Renew extends an own lease. A lost lease returns a *errors.LeaseHeldError.
	Renew(ctx context.Context, name, holder string, ttl time.Duration) error
	// Release drops an own lease. Releasing a lease held by someone else is a no-op.
	Release(ctx context.Context, name, holder string) error
	// ForceRelease drops the lease whoever holds it.
	ForceRelease(ctx context.Context, name string) error
	// Current returns the live lease, or nil when free.
	Current(ctx context.Context, name string) (*Lease, error)
}

// DBLocker keeps leases in the sync_leases table.
type DBLocker struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDBLocker returns a database-backed locker.
func NewDBLocker(db *gorm.DB) *DBLocker {
	return &DBLocker{db: db, now: func() time.Time { return utc.Now().Time }}
}

// Acquire implements Locker.
func (l *DBLocker) Acquire(ctx context.Context, name, holder string, ttl time.Duration) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := l.now()
		var lease Lease
		err := lockRow(tx).Where("name = ?", name).First(&lease).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&Lease{
				Name:      name,
				Holder:    holder,
				ExpiresAt: now.Add(ttl),
			})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return &pkgerrors.LeaseHeldError{Name: name}
			}
			return nil
		}
		if err != nil {
			return err
		}
		if lease.Holder != holder && !lease.Expired(now) {
			return &pkgerrors.LeaseHeldError{Name: name, Holder: lease.Holder, ExpiresAt: lease.ExpiresAt}
		}
		return tx.Model(&Lease{}).Where("name = ?", name).Updates(map[string]any{
			"holder":     holder,
			"expires_at": now.Add(ttl),
			"updated_at": now,
		}).Error
	})
}

// Renew implements Locker.
func (l *DBLocker) Renew(ctx context.Context, name, holder string, ttl time.Duration) error {
	now := l.now()
	res := l.db.WithContext(ctx).Model(&Lease{}).
		Where("name = ? AND holder = ?", name, holder).
		Updates(map[string]any{"expires_at": now.Add(ttl), "updated_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		current, err := l.Current(ctx, name)
		if err != nil {
			return err
		}
		held := &pkgerrors.LeaseHeldError{Name: name}
		if current != nil {
			held.Holder, held.ExpiresAt = current.Holder, current.ExpiresAt
		}
		return held
	}
	return nil
}

// Release implements Locker.
func (l *DBLocker) Release(ctx context.Context, name, holder string) error {
	return l.db.WithContext(ctx).Where("name = ? AND holder = ?", name, holder).Delete(&Lease{}).Error
}

// ForceRelease implements Locker.
func (l *DBLocker) ForceRelease(ctx context.Context, name string) error {
	return l.db.WithContext(ctx).Where("name = ?", name).Delete(&Lease{}).Error
}

// Current implements Locker.
func (l *DBLocker) Current(ctx context.Context, name string) (*Lease, error) {
	var lease Lease
	err := l.db.WithContext(ctx).Where("name = ?", name).First(&lease).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if lease.Expired(l.now()) {
		return nil, nil
	}
	return &lease, nil
}

// lockRow adds FOR UPDATE where the dialect has row locks.
func lockRow(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
