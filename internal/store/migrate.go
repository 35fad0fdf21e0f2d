package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/agentstation/lineup/internal/jobs"
	"github.com/agentstation/lineup/pkg/catalogs"
	"github.com/agentstation/lineup/pkg/logging"
	"github.com/agentstation/utc"
)

// SchemaMigration records one applied migration.
type SchemaMigration struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:128;not null"`
	AppliedAt time.Time `gorm:"not null"`
}

// TableName implements gorm's tabler.
func (SchemaMigration) TableName() string { return "schema_migrations" }

// Migration is one numbered schema change.
type Migration struct {
	Version int
	Name    string
	Up      func(tx *gorm.DB) error
}

// Migrations returns the schema history in order.
func Migrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "catalog",
			Up: func(tx *gorm.DB) error {
				return tx.Migrator().CreateTable(
					&catalogs.RawRecord{},
					&catalogs.Venue{},
					&catalogs.Artist{},
					&catalogs.Event{},
					&catalogs.EventArtist{},
					&catalogs.Link{},
					&catalogs.StateTransition{},
				)
			},
		},
		{
			Version: 2,
			Name:    "sync jobs",
			Up: func(tx *gorm.DB) error {
				return tx.Migrator().CreateTable(jobs.Models()...)
			},
		},
	}
}

// Migrate applies every migration newer than the recorded schema version.
// It returns the versions it applied.
func Migrate(ctx context.Context, db *gorm.DB) ([]int, error) {
	db = db.WithContext(ctx)
	if err := db.AutoMigrate(&SchemaMigration{}); err != nil {
		return nil, fmt.Errorf("schema_migrations: %w", err)
	}

	var applied []SchemaMigration
	if err := db.Find(&applied).Error; err != nil {
		return nil, err
	}
	done := make(map[int]bool, len(applied))
	for _, m := range applied {
		done[m.Version] = true
	}

	migrations := Migrations()
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })

	var ran []int
	for _, m := range migrations {
		if done[m.Version] {
			continue
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.Up(tx); err != nil {
				return err
			}
			return tx.Create(&SchemaMigration{Version: m.Version, Name: m.Name, AppliedAt: utc.Now().Time}).Error
		})
		if err != nil {
			return ran, fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
		logging.FromContext(ctx).Info().Int("version", m.Version).Str("name", m.Name).Msg("Applied migration")
		ran = append(ran, m.Version)
	}
	return ran, nil
}

// Version returns the highest applied migration, 0 for an empty database.
func Version(ctx context.Context, db *gorm.DB) (int, error) {
	var v int
	err := db.WithContext(ctx).Model(&SchemaMigration{}).Select("COALESCE(MAX(version), 0)").Scan(&v).Error
	return v, err
}
