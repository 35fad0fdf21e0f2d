package reconciler

import (
	"context"
	"strconv"
	"strings"

	"github.com/agentstation/lineup/internal/matcher"
	"github.com/agentstation/lineup/internal/store"
	"github.com/agentstation/lineup/pkg/catalogs"
	"github.com/agentstation/lineup/pkg/provenance"
	"github.com/agentstation/lineup/pkg/types"
)

// Resolver returns the value resolver the match phase folds raw records
// with. Event venue names resolve to the best matching canonical venue in
// the event's city; a missing city falls back to the city the record was
// scraped for.
func Resolver(m *matcher.Matcher) provenance.Resolver {
	return provenance.ResolverFunc(func(ctx context.Context, tx *store.Store, raw *catalogs.RawRecord, f types.Field, observed string) (string, error) {
		switch {
		case f == types.FieldCity && observed == "":
			return raw.City, nil
		case raw.EntityType == types.EntityEvent && f == types.FieldVenue:
			if observed == "" {
				return "", nil
			}
			venue, ok, err := ResolveVenue(ctx, tx, m, CityOf(raw), observed)
			if err != nil || !ok {
				return "", err
			}
			return strconv.FormatUint(uint64(venue.Key()), 10), nil
		}
		return observed, nil
	})
}

// ResolveVenue finds the canonical venue in city whose name best matches
// name at the venue link threshold.
func ResolveVenue(ctx context.Context, s *store.Store, m *matcher.Matcher, city, name string) (catalogs.Canonical, bool, error) {
	if strings.TrimSpace(name) == "" {
		return nil, false, nil
	}
	candidates, err := s.Candidates(ctx, types.EntityVenue, store.Scope{City: city})
	if err != nil {
		return nil, false, err
	}
	match, ok := m.Best(ctx, types.EntityVenue, name, candidates)
	if !ok {
		return nil, false, nil
	}
	return match.Canonical, true, nil
}

// CityOf returns the city a raw record reports, or the city it was scraped
// for.
func CityOf(raw *catalogs.RawRecord) string {
	if city := strings.TrimSpace(raw.Data().City); city != "" {
		return city
	}
	return raw.City
}

// scope returns the candidate scope for linking raw.
func scope(raw *catalogs.RawRecord) store.Scope {
	switch raw.EntityType {
	case types.EntityVenue:
		return store.Scope{City: CityOf(raw)}
	case types.EntityEvent:
		return store.Scope{City: CityOf(raw), Date: raw.Data().Date}
	}
	return store.Scope{}
}

// lineup puts the artists an event raw names on the event's line-up. Names
// that match no canonical artist are skipped; the artist match phase
// creates them from the artist sources.
func (r *reconciler) lineup(ctx context.Context, tx *store.Store, raw *catalogs.RawRecord, eventID uint) (int, error) {
	names := raw.Data().Artists
	if len(names) == 0 {
		return 0, nil
	}
	artists, err := tx.Candidates(ctx, types.EntityArtist, store.Scope{})
	if err != nil {
		return 0, err
	}
	added := 0
	for _, name := range names {
		match, ok := r.matcher.Best(ctx, types.EntityArtist, name, artists)
		if !ok {
			continue
		}
		if err := tx.AddEventArtist(ctx, eventID, match.Canonical.Key(), raw.Source); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}
