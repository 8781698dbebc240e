package race

// Unknown is the sentinel stored in any field that could not be extracted.
const Unknown = "unknown"

// Status describes how a single field was obtained.
type Status int

const (
	// StatusOK means the field was found and parsed.
	StatusOK Status = iota
	// StatusUnknown means the page did not contain the field.
	StatusUnknown
	// StatusFailed means the field was present but could not be parsed.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUnknown:
		return "unknown"
	case StatusFailed:
		return "failed"
	default:
		return "invalid"
	}
}

// Field is one extracted value together with its extraction status.
type Field struct {
	Value  string
	Status Status
}

// Known returns an OK field holding v.
func Known(v string) Field {
	return Field{Value: v, Status: StatusOK}
}

// Missing returns a field holding the Unknown sentinel.
func Missing() Field {
	return Field{Value: Unknown, Status: StatusUnknown}
}

// Failed returns a field for a value that was present but unparseable.
func Failed() Field {
	return Field{Value: Unknown, Status: StatusFailed}
}

// FieldFrom returns Known(v) unless v is the Unknown sentinel or empty.
func FieldFrom(v string) Field {
	if v == "" || v == Unknown {
		return Missing()
	}
	return Known(v)
}

// OK reports whether the field was extracted.
func (f Field) OK() bool { return f.Status == StatusOK }

// Record holds the descriptive fields of one race page.
type Record struct {
	ID             RaceID
	Name           Field
	Course         Field
	Weather        Field
	TrackCondition Field
	StartTime      Field
	Date           Field
	Venue          Field
	Class          Field
	// Extras holds any further free-text fields in page order.
	Extras []string
}

// NamedFields returns the named fields in their canonical order.
func (r *Record) NamedFields() []Field {
	return []Field{
		r.Name, r.Course, r.Weather, r.TrackCondition,
		r.StartTime, r.Date, r.Venue, r.Class,
	}
}

// Fields flattens the record to the ordered values written to the summary file.
func (r *Record) Fields() []string {
	named := r.NamedFields()
	out := make([]string, 0, len(named)+len(r.Extras))
	for _, f := range named {
		out = append(out, f.Value)
	}
	return append(out, r.Extras...)
}

// Complete reports whether every named field was extracted.
func (r *Record) Complete() bool {
	for _, f := range r.NamedFields() {
		if !f.OK() {
			return false
		}
	}
	return true
}

// RecordFromFields is the inverse of Fields.
func RecordFromFields(id RaceID, values []string) *Record {
	get := func(i int) Field {
		if i < len(values) {
			return FieldFrom(values[i])
		}
		return Missing()
	}
	r := &Record{
		ID:             id,
		Name:           get(0),
		Course:         get(1),
		Weather:        get(2),
		TrackCondition: get(3),
		StartTime:      get(4),
		Date:           get(5),
		Venue:          get(6),
		Class:          get(7),
	}
	if len(values) > 8 {
		r.Extras = append([]string(nil), values[8:]...)
	}
	return r
}

// EntrantRow is one row of a race result table, in finishing order.
type EntrantRow struct {
	RaceID   RaceID
	Cells    []string
	HorseID  string
	JockeyID string
}

// Join records how the horse and jockey anchors lined up with the table rows.
type Join struct {
	Rows      int
	HorseIDs  int
	JockeyIDs int
}

// Valid reports whether both identifier sequences match the row count.
func (j Join) Valid() bool {
	return j.HorseIDs == j.Rows && j.JockeyIDs == j.Rows
}

// Results is the entrant table of one race.
type Results struct {
	RaceID RaceID
	Header []string
	Rows   []EntrantRow
	Join   Join
}

// Empty reports whether there is nothing to persist.
func (r *Results) Empty() bool {
	return r == nil || len(r.Rows) == 0
}

// HorseIDs returns the joined horse identifiers in row order, skipping blanks.
func (r *Results) HorseIDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		if row.HorseID != "" {
			ids = append(ids, row.HorseID)
		}
	}
	return ids
}

// ReturnRow is one payout line: a bet kind, the winning combination and its payout.
type ReturnRow struct {
	RaceID      RaceID
	Kind        string
	Combination string
	Payout      string
	Popularity  string
}

// HistoryRow is one row of a horse's race history table.
type HistoryRow struct {
	HorseID HorseID
	Cells   []string
}

// History is the race history table of one horse.
type History struct {
	HorseID HorseID
	Header  []string
	Rows    []HistoryRow
}

// Empty reports whether there is nothing to persist.
func (h *History) Empty() bool {
	return h == nil || len(h.Rows) == 0
}

// PedigreeRow is one ancestor cell of a pedigree table.
type PedigreeRow struct {
	HorseID    HorseID
	Position   int
	Generation int
	Name       string
	AncestorID string
}
