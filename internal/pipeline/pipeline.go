package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/multierr"

	"github.com/pfrederiksen/keiba-results/internal/extract"
	"github.com/pfrederiksen/keiba-results/internal/fetcher"
	"github.com/pfrederiksen/keiba-results/internal/filter"
	"github.com/pfrederiksen/keiba-results/internal/logger"
	"github.com/pfrederiksen/keiba-results/internal/race"
	"github.com/pfrederiksen/keiba-results/internal/storage"
)

// Source fetches decoded pages. *fetcher.Fetcher implements it.
type Source interface {
	RaceList(ctx context.Context, day time.Time) (*fetcher.Page, error)
	Race(ctx context.Context, id race.RaceID) (*fetcher.Page, error)
	Horse(ctx context.Context, id race.HorseID) (*fetcher.Page, error)
	Pedigree(ctx context.Context, id race.HorseID) (*fetcher.Page, error)
}

// Sink persists extracted data. *storage.Storage implements it.
type Sink interface {
	SaveResults(res *race.Results) (string, error)
	SaveReturns(id race.RaceID, rows []race.ReturnRow) (string, error)
	AppendSummary(rec *race.Record) error
	SaveHistory(h *race.History) (string, error)
	SavePedigree(id race.HorseID, rows []race.PedigreeRow) (string, error)
	ListHorseIDs(kind storage.Kind) ([]race.HorseID, error)
}

// Pipeline processes identifiers one at a time.
type Pipeline struct {
	src    Source
	sink   Sink
	filter *filter.Filter
	pacer  *Pacer
	log    *logger.Logger
}

// New creates a new Pipeline
func New(src Source, sink Sink, f *filter.Filter, pacer *Pacer, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	if pacer == nil {
		pacer = NewPacer(0, 0, nil)
	}
	return &Pipeline{src: src, sink: sink, filter: f, pacer: pacer, log: log}
}

// CollectByDate fetches the listing page of each day and returns the distinct
// race ids found, in first-seen order. Days whose listing cannot be fetched or
// parsed are logged and skipped.
func (p *Pipeline) CollectByDate(ctx context.Context, start time.Time, days int, report *Report) ([]race.RaceID, error) {
	seen := make(map[race.RaceID]bool)
	var ids []race.RaceID

	for _, day := range Days(start, days) {
		if err := p.pacer.Wait(ctx); err != nil {
			return ids, err
		}
		report.Days++

		token := race.DateToken(day)
		page, err := p.src.RaceList(ctx, day)
		if err != nil {
			p.log.Error("Error fetching race list", fetchFields(logger.Fields{"date": token}, err), err)
			continue
		}

		doc, err := extract.Parse(page.Body)
		if err != nil {
			p.log.Error("Error parsing race list", logger.Fields{"date": token}, err)
			continue
		}

		found, err := extract.RaceIDs(doc)
		if err != nil {
			p.log.Warn("No races found", logger.Fields{"date": token, "error": err.Error()})
			continue
		}
		p.log.Debug("Extracted race IDs", logger.Fields{"date": token, "count": len(found)})

		for _, id := range found {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	report.Listed = len(ids)
	p.log.Info("Collected race IDs", logger.Fields{"count": len(ids), "days": report.Days})
	return ids, nil
}

// RunRaces processes each race id in order. It only returns an error when ctx
// is cancelled; per-race failures are logged and counted in report.
func (p *Pipeline) RunRaces(ctx context.Context, ids []race.RaceID, report *Report) error {
	for _, id := range ids {
		if err := p.pacer.Wait(ctx); err != nil {
			return err
		}
		report.Races++
		p.processRace(ctx, id, report)
	}
	return nil
}

func (p *Pipeline) processRace(ctx context.Context, id race.RaceID, report *Report) {
	fields := logger.Fields{"race_id": id.String()}

	page, err := p.src.Race(ctx, id)
	if err != nil {
		report.FetchFailed++
		p.log.Error("Error fetching race", fetchFields(fields, err), err)
		return
	}
	report.Fetched++

	doc, err := extract.Parse(page.Body)
	if err != nil {
		report.ParseFailed++
		p.log.Error("Error parsing race page", fields, err)
		return
	}

	rec, err := extract.Record(doc, id)
	if err != nil {
		p.log.Warn("Partial race info", logger.Fields{"race_id": id.String(), "error": err.Error()})
	}

	if d := p.filter.Check(rec); !d.Accepted {
		report.Rejected++
		p.log.Info("Race excluded", logger.Fields{"race_id": id.String(), "reason": d.Reason})
		return
	}

	results, err := extract.Results(doc, id)
	switch {
	case errors.Is(err, extract.ErrJoinMismatch):
		report.PartialJoins++
		p.log.Warn("Horse and jockey IDs not joined", logger.Fields{"race_id": id.String(), "error": err.Error()})
	case err != nil:
		report.ParseFailed++
		p.log.Error("Error extracting results", fields, err)
		return
	}

	returns, err := extract.Returns(page.Body, id)
	if err != nil {
		p.log.Warn("No return table", logger.Fields{"race_id": id.String(), "error": err.Error()})
	}

	if err := p.persistRace(id, rec, results, returns); err != nil {
		report.PersistFailed++
		return
	}
	report.Persisted++

	for _, raw := range results.HorseIDs() {
		if h, err := race.ParseHorseID(raw); err == nil {
			report.addHorse(h)
		}
	}
}

// persistRace attempts every artifact even when an earlier one fails.
func (p *Pipeline) persistRace(id race.RaceID, rec *race.Record, results *race.Results, returns []race.ReturnRow) error {
	var errs error
	save := func(artifact string, err error) {
		if err == nil || errors.Is(err, storage.ErrEmpty) {
			return
		}
		p.log.Error("Error saving output", logger.Fields{"race_id": id.String(), "artifact": artifact}, err)
		errs = multierr.Append(errs, err)
	}

	_, err := p.sink.SaveResults(results)
	save("results", err)
	_, err = p.sink.SaveReturns(id, returns)
	save("returns", err)
	save("summary", p.sink.AppendSummary(rec))
	return errs
}

// RunHorses fetches and persists the history and pedigree of each horse.
func (p *Pipeline) RunHorses(ctx context.Context, ids []race.HorseID, report *Report) error {
	for _, id := range ids {
		report.Horses++
		if err := p.processHistory(ctx, id, report); err != nil {
			return err
		}
		if err := p.processPedigree(ctx, id, report); err != nil {
			return err
		}
	}
	return nil
}

// PendingPedigrees returns horses that have a persisted history but no
// persisted pedigree.
func (p *Pipeline) PendingPedigrees() ([]race.HorseID, error) {
	history, err := p.sink.ListHorseIDs(storage.KindHistory)
	if err != nil {
		return nil, err
	}
	done, err := p.sink.ListHorseIDs(storage.KindPedigree)
	if err != nil {
		return nil, err
	}

	have := make(map[race.HorseID]bool, len(done))
	for _, id := range done {
		have[id] = true
	}
	var pending []race.HorseID
	for _, id := range history {
		if !have[id] {
			pending = append(pending, id)
		}
	}
	return pending, nil
}

// ResumePedigree runs the pedigree pass for every pending horse.
func (p *Pipeline) ResumePedigree(ctx context.Context, report *Report) error {
	pending, err := p.PendingPedigrees()
	if err != nil {
		return err
	}
	p.log.Info("Resuming pedigree pass", logger.Fields{"pending": len(pending)})

	for _, id := range pending {
		report.Horses++
		if err := p.processPedigree(ctx, id, report); err != nil {
			return err
		}
	}
	return nil
}

// processHistory returns an error only when ctx is done.
func (p *Pipeline) processHistory(ctx context.Context, id race.HorseID, report *Report) error {
	if err := p.pacer.Wait(ctx); err != nil {
		return err
	}
	fields := logger.Fields{"horse_id": id.String()}

	page, err := p.src.Horse(ctx, id)
	if err != nil {
		report.HorsesFailed++
		p.log.Error("Error fetching horse", fetchFields(fields, err), err)
		return nil
	}

	doc, err := extract.Parse(page.Body)
	if err != nil {
		report.HorsesFailed++
		p.log.Error("Error parsing horse page", fields, err)
		return nil
	}

	h, err := extract.History(doc, id)
	if err != nil {
		report.HorsesFailed++
		p.log.Error("Error extracting horse history", fields, err)
		return nil
	}

	if _, err := p.sink.SaveHistory(h); err != nil {
		if !errors.Is(err, storage.ErrEmpty) {
			p.log.Error("Error saving output", logger.Fields{"horse_id": id.String(), "artifact": "history"}, err)
		}
		return nil
	}
	report.HistorySaved++
	return nil
}

// processPedigree returns an error only when ctx is done.
func (p *Pipeline) processPedigree(ctx context.Context, id race.HorseID, report *Report) error {
	if err := p.pacer.Wait(ctx); err != nil {
		return err
	}
	fields := logger.Fields{"horse_id": id.String()}

	page, err := p.src.Pedigree(ctx, id)
	if err != nil {
		report.HorsesFailed++
		p.log.Error("Error fetching pedigree", fetchFields(fields, err), err)
		return nil
	}

	doc, err := extract.Parse(page.Body)
	if err != nil {
		report.HorsesFailed++
		p.log.Error("Error parsing pedigree page", fields, err)
		return nil
	}

	rows, err := extract.Pedigree(doc, id)
	if err != nil {
		report.HorsesFailed++
		p.log.Error("Error extracting pedigree", fields, err)
		return nil
	}

	if _, err := p.sink.SavePedigree(id, rows); err != nil {
		if !errors.Is(err, storage.ErrEmpty) {
			p.log.Error("Error saving output", logger.Fields{"horse_id": id.String(), "artifact": "pedigree"}, err)
		}
		return nil
	}
	report.PedigreesSaved++
	return nil
}

// fetchFields adds the HTTP status to fields when err carries one.
func fetchFields(fields logger.Fields, err error) logger.Fields {
	out := make(logger.Fields, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	var statusErr *fetcher.StatusError
	if errors.As(err, &statusErr) {
		out["status"] = statusErr.Code
	}
	return out
}
