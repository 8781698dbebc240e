package extract

import "regexp"

// Selectors for each named extraction rule.
const (
	// RaceNameSelector locates the race title inside the race header block.
	RaceNameSelector = "dl.racedata h1"
	// IntroSelector locates the block holding the conditions and schedule lines.
	IntroSelector = "div.data_intro"
	// ResultsTableSelector locates the finishing order table by its summary.
	ResultsTableSelector = `table[summary="レース結果"]`
	// PayoutTableSelector locates the payout tables.
	PayoutTableSelector = "table.pay_table_01"
	// RaceListSelector locates the block of race links on a daily listing page.
	RaceListSelector = "div.race_list"
	// HistoryTableSelector locates the race history table on a horse page.
	HistoryTableSelector = "table.db_h_race_results"
	// PedigreeTableSelector locates the five generation pedigree table.
	PedigreeTableSelector = "table.blood_table"
)

// When no table matches PayoutTableSelector, the payout tables are taken
// positionally from all tables on the page, [PayoutTableFrom, PayoutTableTo).
const (
	PayoutTableFrom = 1
	PayoutTableTo   = 3
)

// Conditions line: "芝右1600m / 天候 : 晴 / 芝 : 良 / 発走 : 15:40".
const conditionsDelimiter = "/"

// lineBreakMarker replaces <br> tags in payout markup so that multi-value
// cells keep their value boundaries once reduced to text.
const lineBreakMarker = "\x1f"

const nbsp = "\u00a0"

var (
	raceIDPattern = regexp.MustCompile(`\d{12}`)
	digitRun      = regexp.MustCompile(`\d+`)
	horseLink     = regexp.MustCompile(`^/horse/([0-9A-Za-z]+)/?$`)
	brTag         = regexp.MustCompile(`(?i)<br\s*/?>`)
)
