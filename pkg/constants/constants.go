// Package constants provides shared constants used throughout the lineup codebase.
// This includes match thresholds, sync timings, limits and default paths that
// should be consistent across the application.
package constants

import "time"

// Match threshold constants. A candidate is accepted when its similarity score
// is at or above the threshold.
const (
	// VenueLinkThreshold is the minimum name similarity for linking a raw venue
	VenueLinkThreshold = 0.7

	// VenueDedupeThreshold is the minimum name similarity for merging two venues
	VenueDedupeThreshold = 0.7

	// ArtistLinkThreshold is the minimum name similarity for linking a raw artist
	ArtistLinkThreshold = 0.85

	// ArtistDedupeThreshold is the minimum name similarity for merging two artists
	ArtistDedupeThreshold = 0.85

	// EventLinkThreshold is the minimum title similarity for linking a raw event
	EventLinkThreshold = 0.6

	// EventDedupeThreshold is the minimum combined date, venue and title score
	// for merging two events
	EventDedupeThreshold = 0.5

	// ExactMatchScore is reported when two values are identical after compaction
	ExactMatchScore = 1.0

	// CuratedLinkConfidence is the confidence of curator-created links
	CuratedLinkConfidence = 1.0
)

// Timing constants
const (
	// DefaultCityDelay is the pause between cities during a sync run
	DefaultCityDelay = 10 * time.Second

	// DefaultLeaseTTL is how long a sync lease is valid without renewal
	DefaultLeaseTTL = 2 * time.Minute

	// DefaultHeartbeat is how often a running sync renews its lease
	DefaultHeartbeat = 30 * time.Second

	// DefaultSweepInterval is the interval between automatic expiry sweeps
	DefaultSweepInterval = 1 * time.Hour

	// SweepTimeout bounds one automatic expiry sweep
	SweepTimeout = 5 * time.Minute

	// SourceTimeout bounds one scrape of one source for one city
	SourceTimeout = 5 * time.Minute

	// ShutdownTimeout bounds graceful shutdown of the worker server
	ShutdownTimeout = 10 * time.Second
)

// Limit constants
const (
	// MaxDedupePasses caps repeated dedupe passes per entity type
	MaxDedupePasses = 10

	// DefaultPageSize is the default number of rows for list queries
	DefaultPageSize = 100

	// MaxPageSize is the maximum allowed page size for list queries
	MaxPageSize = 1000

	// ChannelBufferSize is the default buffer size for channels
	ChannelBufferSize = 100
)

// Identity constants
const (
	// SyncLeaseName is the lease that serializes sync jobs
	SyncLeaseName = "sync"

	// SystemExpiryActor is recorded on transitions made by the expiry sweep
	SystemExpiryActor = "system:expiry"

	// SystemActor is recorded on transitions made by automated callers
	SystemActor = "system"
)

// File permission constants
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Default values
const (
	// DefaultDatabaseDriver is used when no driver is configured
	DefaultDatabaseDriver = "sqlite"

	// DefaultDatabaseDSN is the sqlite file used when no DSN is configured
	DefaultDatabaseDSN = "lineup.db"

	// DefaultServerAddr is where the worker listens by default
	DefaultServerAddr = ":8080"

	// DefaultFixturesDir holds fixture connector files
	DefaultFixturesDir = "fixtures"

	// DefaultLocale selects the normalizer rule set
	DefaultLocale = "en"
)

// Format constants
const (
	// DateFormat is the layout of event dates
	DateFormat = "2006-01-02"

	// TimeFormat is the layout of event start times
	TimeFormat = "15:04"
)
