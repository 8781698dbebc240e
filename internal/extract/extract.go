package extract

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/multierr"

	"github.com/pfrederiksen/keiba-results/internal/race"
)

var (
	ErrTableNotFound = errors.New("table not found")
	ErrJoinMismatch  = errors.New("identifier count does not match row count")
	ErrListNotFound  = errors.New("race list not found")
	ErrFieldNotFound = errors.New("field not found")
)

// Parse builds a document from a decoded page body.
func Parse(body string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return doc, nil
}

// Record extracts the descriptive fields of a race page. The returned record
// is never nil; the error lists every field that fell back to race.Unknown.
func Record(doc *goquery.Document, id race.RaceID) (*race.Record, error) {
	rec := &race.Record{
		ID:             id,
		Name:           race.Missing(),
		Course:         race.Missing(),
		Weather:        race.Missing(),
		TrackCondition: race.Missing(),
		StartTime:      race.Missing(),
		Date:           race.Missing(),
		Venue:          race.Missing(),
		Class:          race.Missing(),
	}
	var errs error

	if name := collapse(doc.Find(RaceNameSelector).First().Text()); name != "" {
		rec.Name = race.Known(name)
	} else {
		errs = multierr.Append(errs, fmt.Errorf("race name: %w", ErrFieldNotFound))
	}

	intro := doc.Find(IntroSelector).First()
	paragraphs := intro.Find("p")
	if paragraphs.Length() < 2 {
		errs = multierr.Append(errs, fmt.Errorf("intro block has %d paragraphs, want 2: %w",
			paragraphs.Length(), ErrFieldNotFound))
	}

	if paragraphs.Length() >= 1 {
		conditions := Conditions(paragraphs.Eq(0).Find("span").First().Text())
		assign(conditions, &rec.Extras, &rec.Course, &rec.Weather, &rec.TrackCondition, &rec.StartTime)
		if len(conditions) < 4 {
			errs = multierr.Append(errs, fmt.Errorf("conditions line has %d parts, want 4", len(conditions)))
		}
	}

	if paragraphs.Length() >= 2 {
		schedule := Schedule(paragraphs.Eq(1).Text())
		assign(schedule, &rec.Extras, &rec.Date, &rec.Venue, &rec.Class)
		if len(schedule) < 2 {
			errs = multierr.Append(errs, fmt.Errorf("schedule line has %d parts, want at least 2", len(schedule)))
		}
	}

	return rec, errs
}

// assign fills fields positionally from values; surplus values go to extras.
func assign(values []string, extras *[]string, fields ...*race.Field) {
	for i, v := range values {
		if i < len(fields) {
			*fields[i] = race.FieldFrom(v)
			continue
		}
		*extras = append(*extras, v)
	}
}

// Conditions splits the course/weather/going/start line on "/".
func Conditions(text string) []string {
	text = strings.ReplaceAll(text, nbsp, "")
	if strings.TrimSpace(text) == "" {
		return nil
	}
	parts := strings.Split(text, conditionsDelimiter)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// Schedule splits the date/meeting/class line on whitespace.
func Schedule(text string) []string {
	return strings.Fields(strings.ReplaceAll(text, nbsp, ""))
}

// Results extracts the finishing order table with horse and jockey ids
// joined by row order. When either id sequence does not match the row count
// every row is still returned, ids are left blank, and the error wraps
// ErrJoinMismatch.
func Results(doc *goquery.Document, id race.RaceID) (*race.Results, error) {
	table := doc.Find(ResultsTableSelector).First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("results table: %w", ErrTableNotFound)
	}

	parsed := ParseTable(table)
	horseIDs := IDsFromTable(table, "horse")
	jockeyIDs := IDsFromTable(table, "jockey")

	res := &race.Results{
		RaceID: id,
		Header: parsed.Header,
		Rows:   make([]race.EntrantRow, 0, len(parsed.Rows)),
		Join: race.Join{
			Rows:      len(parsed.Rows),
			HorseIDs:  len(horseIDs),
			JockeyIDs: len(jockeyIDs),
		},
	}

	valid := res.Join.Valid()
	for i, cells := range parsed.Rows {
		row := race.EntrantRow{RaceID: id, Cells: cells}
		if valid {
			row.HorseID = horseIDs[i]
			row.JockeyID = jockeyIDs[i]
		}
		res.Rows = append(res.Rows, row)
	}

	if !valid {
		return res, fmt.Errorf("%w: %d rows, %d horse ids, %d jockey ids",
			ErrJoinMismatch, res.Join.Rows, res.Join.HorseIDs, res.Join.JockeyIDs)
	}
	return res, nil
}

// IDsFromTable returns, in document order, the first digit run of every
// anchor whose path starts with "/"+target.
func IDsFromTable(table *goquery.Selection, target string) []string {
	prefix := "/" + target
	var ids []string
	table.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		path := linkPath(a.AttrOr("href", ""))
		if !strings.HasPrefix(path, prefix) {
			return
		}
		if m := digitRun.FindString(path); m != "" {
			ids = append(ids, m)
		}
	})
	return ids
}

func linkPath(href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return u.Path
}

// Returns extracts the payout rows of a race page. body is the raw decoded
// markup: line breaks are replaced with a marker before parsing so that
// multi-value cells ("3<br>5<br>8") expand into one row per value.
func Returns(body string, id race.RaceID) ([]race.ReturnRow, error) {
	doc, err := Parse(brTag.ReplaceAllString(body, lineBreakMarker))
	if err != nil {
		return nil, err
	}

	tables := doc.Find(PayoutTableSelector)
	if tables.Length() == 0 {
		all := doc.Find("table")
		if all.Length() <= PayoutTableFrom {
			return nil, fmt.Errorf("payout tables: %w", ErrTableNotFound)
		}
		to := PayoutTableTo
		if all.Length() < to {
			to = all.Length()
		}
		tables = all.Slice(PayoutTableFrom, to)
	}

	var rows []race.ReturnRow
	tables.Each(func(_ int, table *goquery.Selection) {
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			rows = append(rows, payoutRows(tr, id)...)
		})
	})
	return rows, nil
}

func payoutRows(tr *goquery.Selection, id race.RaceID) []race.ReturnRow {
	kind := collapse(tr.ChildrenFiltered("th").First().Text())
	tds := tr.ChildrenFiltered("td")
	if kind == "" || tds.Length() == 0 {
		return nil
	}

	columns := make([][]string, 3)
	n := 0
	tds.Each(func(i int, td *goquery.Selection) {
		if i >= len(columns) {
			return
		}
		columns[i] = splitValues(td.Text())
		if len(columns[i]) > n {
			n = len(columns[i])
		}
	})

	at := func(col []string, i int) string {
		if i < len(col) {
			return col[i]
		}
		return ""
	}

	out := make([]race.ReturnRow, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, race.ReturnRow{
			RaceID:      id,
			Kind:        kind,
			Combination: at(columns[0], i),
			Payout:      at(columns[1], i),
			Popularity:  at(columns[2], i),
		})
	}
	return out
}

func splitValues(text string) []string {
	var out []string
	for _, v := range strings.Split(text, lineBreakMarker) {
		if v = collapse(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// RaceIDs extracts the distinct race ids linked from a daily listing page,
// in first-seen order.
func RaceIDs(doc *goquery.Document) ([]race.RaceID, error) {
	list := doc.Find(RaceListSelector)
	if list.Length() == 0 {
		return nil, ErrListNotFound
	}

	seen := make(map[race.RaceID]bool)
	var ids []race.RaceID
	list.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		m := raceIDPattern.FindString(a.AttrOr("href", ""))
		if m == "" {
			return
		}
		id := race.RaceID(m)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	})
	return ids, nil
}

// History extracts the race history table of a horse page.
func History(doc *goquery.Document, id race.HorseID) (*race.History, error) {
	table := doc.Find(HistoryTableSelector).First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("history table: %w", ErrTableNotFound)
	}

	parsed := ParseTable(table)
	h := &race.History{HorseID: id, Header: parsed.Header}
	for _, cells := range parsed.Rows {
		h.Rows = append(h.Rows, race.HistoryRow{HorseID: id, Cells: cells})
	}
	return h, nil
}

// Pedigree extracts the ancestors of a horse in document order. The
// generation of each cell follows from its rowspan relative to the number of
// rows in the table.
func Pedigree(doc *goquery.Document, id race.HorseID) ([]race.PedigreeRow, error) {
	table := doc.Find(PedigreeTableSelector).First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("pedigree table: %w", ErrTableNotFound)
	}

	total := table.Find("tr").Length()
	var rows []race.PedigreeRow
	table.Find("td").Each(func(i int, td *goquery.Selection) {
		span, err := strconv.Atoi(td.AttrOr("rowspan", "1"))
		if err != nil || span < 1 {
			span = 1
		}

		row := race.PedigreeRow{
			HorseID:    id,
			Position:   i + 1,
			Generation: generation(total, span),
		}

		if a := td.Find("a[href]").First(); a.Length() > 0 {
			row.Name = collapse(a.Text())
			if m := horseLink.FindStringSubmatch(linkPath(a.AttrOr("href", ""))); m != nil {
				row.AncestorID = m[1]
			}
		}
		if row.Name == "" {
			row.Name = firstLine(td.Text())
		}
		rows = append(rows, row)
	})
	return rows, nil
}

func generation(totalRows, rowspan int) int {
	g := 0
	for ratio := totalRows / rowspan; ratio > 1; ratio /= 2 {
		g++
	}
	if g < 1 {
		g = 1
	}
	return g
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line = collapse(line); line != "" {
			return line
		}
	}
	return ""
}
