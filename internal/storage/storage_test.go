package storage

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/keiba-results/internal/race"
)

const raceID = race.RaceID("202408030811")

func newStorage(t *testing.T) (*Storage, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	s, err := New(fs, "race_data")
	require.NoError(t, err)
	return s, fs
}

func readFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, bom), "%s has no BOM", path)
	return string(data[len(bom):])
}

func sampleResults() *race.Results {
	return &race.Results{
		RaceID: raceID,
		Header: []string{"着順", "馬名"},
		Rows: []race.EntrantRow{
			{RaceID: raceID, Cells: []string{"1", "ブローザホーン"}, HorseID: "2020105240", JockeyID: "01160"},
			{RaceID: raceID, Cells: []string{"2", "ソールオリエンス"}, HorseID: "2019105219", JockeyID: "01091"},
		},
		Join: race.Join{Rows: 2, HorseIDs: 2, JockeyIDs: 2},
	}
}

func sampleRecord() *race.Record {
	return &race.Record{
		ID:             raceID,
		Name:           race.Known("宝塚記念(G1)"),
		Course:         race.Known("芝右2200m"),
		Weather:        race.Known("天候 : 雨"),
		TrackCondition: race.Known("芝 : 稍重"),
		StartTime:      race.Known("発走 : 15:40"),
		Date:           race.Known("2024年06月23日"),
		Venue:          race.Known("3回京都8日目"),
		Class:          race.Known("3歳以上オープン, 国際"),
		Extras:         []string{`"quoted"`},
	}
}

func TestNew_CreatesDirectories(t *testing.T) {
	s, fs := newStorage(t)

	for _, dir := range []string{"race_data", filepath.Join("race_data", HistoryDir), filepath.Join("race_data", PedigreeDir)} {
		ok, err := afero.DirExists(fs, dir)
		require.NoError(t, err)
		assert.True(t, ok, dir)
	}
	assert.Equal(t, "race_data", s.Dir())
}

func TestSaveResults(t *testing.T) {
	s, fs := newStorage(t)

	path, err := s.SaveResults(sampleResults())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("race_data", "horse_info_202408030811.csv"), path)

	want := "race_id,着順,馬名,horse_id,jockey_id\n" +
		"202408030811,1,ブローザホーン,2020105240,01160\n" +
		"202408030811,2,ソールオリエンス,2019105219,01091\n"
	assert.Equal(t, want, readFile(t, fs, path))
}

func TestSaveResults_Overwrites(t *testing.T) {
	s, fs := newStorage(t)

	_, err := s.SaveResults(sampleResults())
	require.NoError(t, err)

	res := sampleResults()
	res.Rows = res.Rows[:1]
	path, err := s.SaveResults(res)
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(readFile(t, fs, path), "\n"))
}

func TestSave_EmptyIsNotWritten(t *testing.T) {
	s, fs := newStorage(t)

	_, err := s.SaveResults(&race.Results{RaceID: raceID})
	assert.ErrorIs(t, err, ErrEmpty)
	_, err = s.SaveResults(nil)
	assert.ErrorIs(t, err, ErrEmpty)
	_, err = s.SaveReturns(raceID, nil)
	assert.ErrorIs(t, err, ErrEmpty)
	_, err = s.SaveHistory(&race.History{HorseID: "2020105240"})
	assert.ErrorIs(t, err, ErrEmpty)
	_, err = s.SavePedigree("2020105240", nil)
	assert.ErrorIs(t, err, ErrEmpty)
	assert.ErrorIs(t, s.AppendSummary(nil), ErrEmpty)

	for _, path := range []string{s.ResultsPath(raceID), s.ReturnsPath(raceID), s.SummaryPath(), s.HistoryPath("2020105240"), s.PedigreePath("2020105240")} {
		ok, err := afero.Exists(fs, path)
		require.NoError(t, err)
		assert.False(t, ok, path)
	}
}

func TestSaveReturns(t *testing.T) {
	s, fs := newStorage(t)

	rows := []race.ReturnRow{
		{RaceID: raceID, Kind: "単勝", Combination: "10", Payout: "640", Popularity: "3"},
		{RaceID: raceID, Kind: "馬連", Combination: "10 - 13", Payout: "4,910", Popularity: "19"},
	}
	path, err := s.SaveReturns(raceID, rows)
	require.NoError(t, err)

	want := "race_id,kind,combination,payout,popularity\n" +
		"202408030811,単勝,10,640,3\n" +
		"202408030811,馬連,10 - 13,\"4,910\",19\n"
	assert.Equal(t, want, readFile(t, fs, path))
}

func TestSummaryRoundTrip(t *testing.T) {
	s, fs := newStorage(t)

	rec := sampleRecord()
	require.NoError(t, s.AppendSummary(rec))

	back, err := s.ReadSummary()
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.Equal(t, rec, back[0])
	assert.Equal(t, rec.Fields(), back[0].Fields())

	// only the first line carries the BOM
	require.NoError(t, s.AppendSummary(rec))
	data, err := afero.ReadFile(fs, s.SummaryPath())
	require.NoError(t, err)
	assert.Equal(t, 1, bytes.Count(data, bom))
}

func TestSummary_DuplicatesOnRerun(t *testing.T) {
	s, _ := newStorage(t)

	for i := 0; i < 2; i++ {
		require.NoError(t, s.AppendSummary(sampleRecord()))
		_, err := s.SaveResults(sampleResults())
		require.NoError(t, err)
	}

	back, err := s.ReadSummary()
	require.NoError(t, err)
	require.Len(t, back, 2)
	assert.Equal(t, raceID, back[0].ID)
	assert.Equal(t, raceID, back[1].ID)
}

func TestReadSummary_Missing(t *testing.T) {
	s, _ := newStorage(t)
	back, err := s.ReadSummary()
	require.NoError(t, err)
	assert.Empty(t, back)
}

func TestReadSummary_BadID(t *testing.T) {
	s, fs := newStorage(t)
	require.NoError(t, afero.WriteFile(fs, s.SummaryPath(), []byte("not-an-id,x\n"), 0644))

	_, err := s.ReadSummary()
	assert.ErrorIs(t, err, race.ErrInvalidRaceID)
}

func TestSaveHistoryAndPedigree(t *testing.T) {
	s, fs := newStorage(t)

	h := &race.History{
		HorseID: "2020105240",
		Header:  []string{"日付", "レース名"},
		Rows:    []race.HistoryRow{{HorseID: "2020105240", Cells: []string{"2024/06/23", "宝塚記念(G1)"}}},
	}
	path, err := s.SaveHistory(h)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("race_data", "horse", "horse_results_2020105240.csv"), path)
	assert.Equal(t, "horse_id,日付,レース名\n2020105240,2024/06/23,宝塚記念(G1)\n", readFile(t, fs, path))

	ped := []race.PedigreeRow{{HorseID: "2020105240", Position: 1, Generation: 1, Name: "ゴールドシップ", AncestorID: "000a011155"}}
	path, err = s.SavePedigree("2020105240", ped)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("race_data", "ped", "ped_2020105240.csv"), path)
	assert.Equal(t, "horse_id,position,generation,name,ancestor_id\n2020105240,1,1,ゴールドシップ,000a011155\n", readFile(t, fs, path))
}

func TestListHorseIDs(t *testing.T) {
	s, fs := newStorage(t)

	files := []string{
		"horse/horse_results_2020105240.csv",
		"horse/horse_results_2019105219.csv",
		"horse/horse_results_abc.csv",
		"horse/notes.txt",
		"ped/ped_2019105219.csv",
		"ped/ped_20191052190.csv",
	}
	for _, f := range files {
		require.NoError(t, afero.WriteFile(fs, filepath.Join("race_data", f), []byte("x"), 0644))
	}
	require.NoError(t, fs.MkdirAll(filepath.Join("race_data", "horse", "horse_results_2018105219.csv"), 0755))

	history, err := s.ListHorseIDs(KindHistory)
	require.NoError(t, err)
	assert.Equal(t, []race.HorseID{"2019105219", "2020105240"}, history)

	ped, err := s.ListHorseIDs(KindPedigree)
	require.NoError(t, err)
	assert.Equal(t, []race.HorseID{"2019105219"}, ped)
}
