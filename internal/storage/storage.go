package storage

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/pfrederiksen/keiba-results/internal/race"
)

const (
	SummaryFile   = "race_info.csv"
	HistoryDir    = "horse"
	PedigreeDir   = "ped"
	resultsPrefix = "horse_info_"
	returnsPrefix = "return_info_"
	historyPrefix = "horse_results_"
	pedPrefix     = "ped_"
	csvExt        = ".csv"
)

// bom is the UTF-8 byte-order mark written at the start of every file.
var bom = []byte{0xEF, 0xBB, 0xBF}

// ErrEmpty is returned when asked to persist a record with no rows.
var ErrEmpty = errors.New("nothing to write")

// Kind selects a per-horse output directory.
type Kind int

const (
	KindHistory Kind = iota
	KindPedigree
)

// Storage writes CSV output below a data directory.
type Storage struct {
	fs      afero.Fs
	dataDir string
}

// New creates a new Storage instance rooted at dataDir on fs
func New(fs afero.Fs, dataDir string) (*Storage, error) {
	// Expand ~ to home directory
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	for _, dir := range []string{dataDir, filepath.Join(dataDir, HistoryDir), filepath.Join(dataDir, PedigreeDir)} {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	return &Storage{fs: fs, dataDir: dataDir}, nil
}

// Dir returns the data directory.
func (s *Storage) Dir() string { return s.dataDir }

func (s *Storage) ResultsPath(id race.RaceID) string {
	return filepath.Join(s.dataDir, resultsPrefix+id.String()+csvExt)
}

func (s *Storage) ReturnsPath(id race.RaceID) string {
	return filepath.Join(s.dataDir, returnsPrefix+id.String()+csvExt)
}

func (s *Storage) SummaryPath() string {
	return filepath.Join(s.dataDir, SummaryFile)
}

func (s *Storage) HistoryPath(id race.HorseID) string {
	return filepath.Join(s.dataDir, HistoryDir, historyPrefix+id.String()+csvExt)
}

func (s *Storage) PedigreePath(id race.HorseID) string {
	return filepath.Join(s.dataDir, PedigreeDir, pedPrefix+id.String()+csvExt)
}

// SaveResults writes the entrant table of a race, replacing any earlier file.
func (s *Storage) SaveResults(res *race.Results) (string, error) {
	if res.Empty() {
		return "", ErrEmpty
	}

	records := make([][]string, 0, len(res.Rows)+1)
	header := append([]string{"race_id"}, res.Header...)
	records = append(records, append(header, "horse_id", "jockey_id"))
	for _, row := range res.Rows {
		rec := append([]string{row.RaceID.String()}, row.Cells...)
		records = append(records, append(rec, row.HorseID, row.JockeyID))
	}

	path := s.ResultsPath(res.RaceID)
	return path, s.writeCSV(path, records)
}

// SaveReturns writes the payout rows of a race, replacing any earlier file.
func (s *Storage) SaveReturns(id race.RaceID, rows []race.ReturnRow) (string, error) {
	if len(rows) == 0 {
		return "", ErrEmpty
	}

	records := [][]string{{"race_id", "kind", "combination", "payout", "popularity"}}
	for _, r := range rows {
		records = append(records, []string{r.RaceID.String(), r.Kind, r.Combination, r.Payout, r.Popularity})
	}

	path := s.ReturnsPath(id)
	return path, s.writeCSV(path, records)
}

// AppendSummary appends one line, the race id followed by the flattened
// record fields, to the shared summary file.
func (s *Storage) AppendSummary(rec *race.Record) error {
	if rec == nil {
		return ErrEmpty
	}

	path := s.SummaryPath()
	f, err := s.fs.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening summary file: %w", err)
	}
	defer f.Close() // nolint:errcheck

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("checking summary file: %w", err)
	}

	var buf bytes.Buffer
	if info.Size() == 0 {
		buf.Write(bom)
	}
	w := csv.NewWriter(&buf)
	if err := w.Write(append([]string{rec.ID.String()}, rec.Fields()...)); err != nil {
		return fmt.Errorf("encoding summary line: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encoding summary line: %w", err)
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing summary line: %w", err)
	}
	return nil
}

// ReadSummary reads back every summary line in file order.
func (s *Storage) ReadSummary() ([]*race.Record, error) {
	data, err := afero.ReadFile(s.fs, s.SummaryPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading summary file: %w", err)
	}

	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, bom)))
	r.FieldsPerRecord = -1
	lines, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing summary file: %w", err)
	}

	records := make([]*race.Record, 0, len(lines))
	for i, line := range lines {
		id, err := race.ParseRaceID(line[0])
		if err != nil {
			return nil, fmt.Errorf("summary line %d: %w", i+1, err)
		}
		records = append(records, race.RecordFromFields(id, line[1:]))
	}
	return records, nil
}

// SaveHistory writes the race history of a horse.
func (s *Storage) SaveHistory(h *race.History) (string, error) {
	if h.Empty() {
		return "", ErrEmpty
	}

	records := [][]string{append([]string{"horse_id"}, h.Header...)}
	for _, row := range h.Rows {
		records = append(records, append([]string{row.HorseID.String()}, row.Cells...))
	}

	path := s.HistoryPath(h.HorseID)
	return path, s.writeCSV(path, records)
}

// SavePedigree writes the ancestors of a horse.
func (s *Storage) SavePedigree(id race.HorseID, rows []race.PedigreeRow) (string, error) {
	if len(rows) == 0 {
		return "", ErrEmpty
	}

	records := [][]string{{"horse_id", "position", "generation", "name", "ancestor_id"}}
	for _, r := range rows {
		records = append(records, []string{
			r.HorseID.String(),
			strconv.Itoa(r.Position),
			strconv.Itoa(r.Generation),
			r.Name,
			r.AncestorID,
		})
	}

	path := s.PedigreePath(id)
	return path, s.writeCSV(path, records)
}

// ListHorseIDs returns the horses with a persisted file of the given kind.
// Files whose name does not carry a well-formed horse id are ignored.
func (s *Storage) ListHorseIDs(kind Kind) ([]race.HorseID, error) {
	dir, prefix := filepath.Join(s.dataDir, HistoryDir), historyPrefix
	if kind == KindPedigree {
		dir, prefix = filepath.Join(s.dataDir, PedigreeDir), pedPrefix
	}

	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	var ids []race.HorseID
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, csvExt) {
			continue
		}
		id, err := race.ParseHorseID(strings.TrimSuffix(strings.TrimPrefix(name, prefix), csvExt))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Storage) writeCSV(path string, records [][]string) error {
	var buf bytes.Buffer
	buf.Write(bom)
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}

	if err := afero.WriteFile(s.fs, path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}
