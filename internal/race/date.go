package race

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"
)

var japaneseDatePattern = regexp.MustCompile(`^(\d{4})年(\d{1,2})月(?:(\d{1,2})日)?`)

// ParseJapaneseDate parses "2024年06月05日", "2024年6月5日" or the month-only
// prefix form "2024年6月". Full-width digits are accepted. A missing day yields
// the first of the month.
func ParseJapaneseDate(text string) (time.Time, error) {
	s := width.Narrow.String(strings.TrimSpace(text))
	m := japaneseDatePattern.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, fmt.Errorf("unrecognised date %q", text)
	}

	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day := 1
	if m[3] != "" {
		day, _ = strconv.Atoi(m[3])
	}

	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("month out of range in %q", text)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalises overflow; a day that rolls into the next month is invalid.
	if t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, fmt.Errorf("day out of range in %q", text)
	}
	return t, nil
}
