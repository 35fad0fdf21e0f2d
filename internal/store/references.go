package store

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/agentstation/lineup/pkg/catalogs"
	"github.com/agentstation/lineup/pkg/types"
)

// RepointEventVenues moves every event at venue from to venue to.
func (s *Store) RepointEventVenues(ctx context.Context, from, to uint) (int64, error) {
	res := s.conn(ctx).Model(&catalogs.Event{}).Where("venue_id = ?", from).Update("venue_id", to)
	return res.RowsAffected, res.Error
}

// RepointEventArtists moves artist from's line-up entries to artist to,
// dropping entries that would duplicate one to already has.
func (s *Store) RepointEventArtists(ctx context.Context, from, to uint) error {
	db := s.conn(ctx)
	if err := db.Where("artist_id = ? AND event_id IN (?)", from,
		s.db.Model(&catalogs.EventArtist{}).Select("event_id").Where("artist_id = ?", to)).
		Delete(&catalogs.EventArtist{}).Error; err != nil {
		return err
	}
	return db.Model(&catalogs.EventArtist{}).Where("artist_id = ?", from).Update("artist_id", to).Error
}

// RepointEventLineup moves event from's line-up to event to.
func (s *Store) RepointEventLineup(ctx context.Context, from, to uint) error {
	db := s.conn(ctx)
	if err := db.Where("event_id = ? AND artist_id IN (?)", from,
		s.db.Model(&catalogs.EventArtist{}).Select("artist_id").Where("event_id = ?", to)).
		Delete(&catalogs.EventArtist{}).Error; err != nil {
		return err
	}
	return db.Model(&catalogs.EventArtist{}).Where("event_id = ?", from).Update("event_id", to).Error
}

// AddEventArtist puts an artist on an event's line-up. Existing entries
// are left alone.
func (s *Store) AddEventArtist(ctx context.Context, eventID, artistID uint, source types.SourceTag) error {
	return s.conn(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&catalogs.EventArtist{EventID: eventID, ArtistID: artistID, Source: source}).Error
}

// Lineup returns the artists on an event's line-up, by id.
func (s *Store) Lineup(ctx context.Context, eventID uint) ([]catalogs.Artist, error) {
	var out []catalogs.Artist
	err := s.conn(ctx).
		Where("id IN (?)", s.db.Model(&catalogs.EventArtist{}).Select("artist_id").Where("event_id = ?", eventID)).
		Order("id").
		Find(&out).Error
	return out, err
}

// EventsAtVenue counts events referencing a venue.
func (s *Store) EventsAtVenue(ctx context.Context, venueID uint) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&catalogs.Event{}).Where("venue_id = ?", venueID).Count(&n).Error
	return n, err
}
