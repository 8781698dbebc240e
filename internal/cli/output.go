package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/pfrederiksen/keiba-results/internal/pipeline"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// OutputResult contains data to be output
type OutputResult struct {
	Strategy    string           `json:"strategy"`
	StartedAt   time.Time        `json:"started_at"`
	FinishedAt  time.Time        `json:"finished_at"`
	OutputDir   string           `json:"output_dir"`
	Interrupted bool             `json:"interrupted,omitempty"`
	Report      *pipeline.Report `json:"report"`
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, result *OutputResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// writeText outputs the report as a table
func writeText(w io.Writer, result *OutputResult) error {
	r := result.Report

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("%s run (%s)", result.Strategy, result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond)))
	t.AppendHeader(table.Row{"Step", "Count"})

	rows := []struct {
		label string
		count int
		show  bool
	}{
		{"Days scanned", r.Days, r.Days > 0},
		{"Races listed", r.Listed, r.Days > 0},
		{"Races", r.Races, r.Races > 0},
		{"Fetched", r.Fetched, r.Races > 0},
		{"Fetch failed", r.FetchFailed, r.Races > 0},
		{"Parse failed", r.ParseFailed, r.Races > 0},
		{"Rejected by filter", r.Rejected, r.Races > 0},
		{"Partial joins", r.PartialJoins, r.Races > 0},
		{"Persisted", r.Persisted, r.Races > 0},
		{"Persist failed", r.PersistFailed, r.Races > 0},
		{"Horses", r.Horses, r.Horses > 0},
		{"Histories saved", r.HistorySaved, r.Horses > 0},
		{"Pedigrees saved", r.PedigreesSaved, r.Horses > 0},
		{"Horse failures", r.HorsesFailed, r.Horses > 0},
	}
	shown := 0
	for _, row := range rows {
		if row.show {
			t.AppendRow(table.Row{row.label, row.count})
			shown++
		}
	}
	if shown == 0 {
		fmt.Fprintln(w, "Nothing to do.")
		return nil
	}

	t.Render()
	fmt.Fprintf(w, "Output: %s\n", result.OutputDir)
	if result.Interrupted {
		fmt.Fprintln(w, "Run was interrupted before completion.")
	}
	return nil
}
