package race

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	ErrInvalidRaceID  = errors.New("invalid race id")
	ErrInvalidHorseID = errors.New("invalid horse id")
)

const (
	RaceIDLength  = 12
	HorseIDLength = 10
)

// Venues maps the two-digit JRA venue code embedded in a RaceID to its name.
var Venues = map[int]string{
	1:  "札幌",
	2:  "函館",
	3:  "福島",
	4:  "新潟",
	5:  "東京",
	6:  "中山",
	7:  "中京",
	8:  "京都",
	9:  "阪神",
	10: "小倉",
}

// RaceID is a fixed-width race identifier: YYYY VV MM DD RR
// (year, venue code, meeting, day of meeting, race number).
type RaceID string

// ParseRaceID validates s and returns it as a RaceID.
func ParseRaceID(s string) (RaceID, error) {
	if len(s) != RaceIDLength || !allDigits(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRaceID, s)
	}
	return RaceID(s), nil
}

// NewRaceID builds a RaceID from its parts.
func NewRaceID(year, venue, meeting, day, number int) (RaceID, error) {
	if year < 1000 || year > 9999 {
		return "", fmt.Errorf("%w: year %d", ErrInvalidRaceID, year)
	}
	for _, part := range []int{venue, meeting, day, number} {
		if part < 0 || part > 99 {
			return "", fmt.Errorf("%w: part %d out of range", ErrInvalidRaceID, part)
		}
	}
	return RaceID(fmt.Sprintf("%04d%02d%02d%02d%02d", year, venue, meeting, day, number)), nil
}

func (id RaceID) String() string { return string(id) }

func (id RaceID) Year() int    { return id.part(0, 4) }
func (id RaceID) Venue() int   { return id.part(4, 6) }
func (id RaceID) Meeting() int { return id.part(6, 8) }
func (id RaceID) Day() int     { return id.part(8, 10) }
func (id RaceID) Number() int  { return id.part(10, 12) }

// VenueName returns the venue name for the id's venue code, or Unknown.
func (id RaceID) VenueName() string {
	if name, ok := Venues[id.Venue()]; ok {
		return name
	}
	return Unknown
}

func (id RaceID) part(from, to int) int {
	if len(id) != RaceIDLength {
		return 0
	}
	n, err := strconv.Atoi(string(id[from:to]))
	if err != nil {
		return 0
	}
	return n
}

// HorseID is the 10-digit identifier of a horse (birth year followed by a serial).
type HorseID string

// ParseHorseID validates s and returns it as a HorseID.
func ParseHorseID(s string) (HorseID, error) {
	if len(s) != HorseIDLength || !allDigits(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidHorseID, s)
	}
	return HorseID(s), nil
}

func (id HorseID) String() string { return string(id) }

// DateToken formats t as the 8-digit YYYYMMDD token used by the race listing pages.
func DateToken(t time.Time) string {
	return t.Format("20060102")
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
