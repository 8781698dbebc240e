// Package filter decides which races are kept by venue and month.
//
// A race passes when its venue text contains the configured venue substring
// and the month of its date is one of the accepted months. A race whose date
// cannot be parsed is rejected. Filtering can be switched off entirely for
// bulk collection.
//
// Example usage:
//
//	f := filter.New("京都", []int{6, 7, 8}, false)
//	if d := f.Check(rec); !d.Accepted {
//	    log.Info("Race excluded", logger.Fields{"reason": d.Reason})
//	}
package filter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pfrederiksen/keiba-results/internal/race"
)

// Filter represents race filtering criteria
type Filter struct {
	// Venue is matched as a substring of the race's venue text.
	Venue string
	// Disabled accepts every race.
	Disabled bool

	months map[int]bool
}

// Decision is the outcome of checking one race.
type Decision struct {
	Accepted bool
	Reason   string
}

// New creates a filter for venue and the accepted months.
func New(venue string, months []int, disabled bool) *Filter {
	set := make(map[int]bool, len(months))
	for _, m := range months {
		set[m] = true
	}
	return &Filter{Venue: venue, Disabled: disabled, months: set}
}

// Months returns the accepted months in ascending order.
func (f *Filter) Months() []int {
	out := make([]int, 0, len(f.months))
	for m := range f.months {
		out = append(out, m)
	}
	sort.Ints(out)
	return out
}

// Check applies the filter to an extracted race record.
func (f *Filter) Check(rec *race.Record) Decision {
	if f.Disabled {
		return Decision{Accepted: true, Reason: "filter disabled"}
	}
	if rec == nil {
		return Decision{Reason: "no race record"}
	}
	if !rec.Venue.OK() {
		return Decision{Reason: "venue unknown"}
	}
	if !rec.Date.OK() {
		return Decision{Reason: "date unknown"}
	}
	return f.Match(rec.Venue.Value, rec.Date.Value)
}

// Match checks venue and date text directly.
func (f *Filter) Match(venue, date string) Decision {
	if f.Disabled {
		return Decision{Accepted: true, Reason: "filter disabled"}
	}

	if !strings.Contains(venue, f.Venue) {
		return Decision{Reason: fmt.Sprintf("venue %q does not contain %q", venue, f.Venue)}
	}

	t, err := race.ParseJapaneseDate(date)
	if err != nil {
		return Decision{Reason: fmt.Sprintf("unparsable date: %v", err)}
	}

	if !f.months[int(t.Month())] {
		return Decision{Reason: fmt.Sprintf("month %d not in %v", int(t.Month()), f.Months())}
	}

	return Decision{Accepted: true}
}
