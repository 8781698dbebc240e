package pipeline

import "github.com/pfrederiksen/keiba-results/internal/race"

// Report counts what happened to each identifier during a run.
type Report struct {
	Days          int `json:"days,omitempty"`
	Listed        int `json:"listed,omitempty"`
	Races         int `json:"races"`
	Fetched       int `json:"fetched"`
	FetchFailed   int `json:"fetch_failed"`
	ParseFailed   int `json:"parse_failed"`
	Rejected      int `json:"rejected"`
	Persisted     int `json:"persisted"`
	PersistFailed int `json:"persist_failed"`
	PartialJoins  int `json:"partial_joins"`

	Horses         int `json:"horses,omitempty"`
	HorsesFailed   int `json:"horses_failed,omitempty"`
	HistorySaved   int `json:"history_saved,omitempty"`
	PedigreesSaved int `json:"pedigrees_saved,omitempty"`

	// HorseIDs lists the horses discovered in persisted results, first seen first.
	HorseIDs []race.HorseID `json:"horse_ids,omitempty"`

	seenHorses map[race.HorseID]bool
}

func (r *Report) addHorse(id race.HorseID) {
	if r.seenHorses == nil {
		r.seenHorses = make(map[race.HorseID]bool)
	}
	if r.seenHorses[id] {
		return
	}
	r.seenHorses[id] = true
	r.HorseIDs = append(r.HorseIDs, id)
}
