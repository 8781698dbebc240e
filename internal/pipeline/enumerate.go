package pipeline

import (
	"time"

	"github.com/pfrederiksen/keiba-results/internal/config"
	"github.com/pfrederiksen/keiba-results/internal/race"
)

// Days returns n consecutive calendar days starting at start.
func Days(start time.Time, n int) []time.Time {
	days := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		days = append(days, start.AddDate(0, 0, i))
	}
	return days
}

// Combinatorial synthesises every race id for year from the configured
// ranges, venue outermost and race number innermost. Most of these ids do not
// correspond to a race that was held.
func Combinatorial(year int, r config.Ranges) []race.RaceID {
	ids := make([]race.RaceID, 0, len(r.Venues)*len(r.Meetings)*len(r.Days)*len(r.Races))
	for _, venue := range r.Venues {
		for _, meeting := range r.Meetings {
			for _, day := range r.Days {
				for _, number := range r.Races {
					id, err := race.NewRaceID(year, venue, meeting, day, number)
					if err != nil {
						continue
					}
					ids = append(ids, id)
				}
			}
		}
	}
	return ids
}
