package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/pfrederiksen/keiba-results/internal/config"
	"github.com/pfrederiksen/keiba-results/internal/fetcher"
	"github.com/pfrederiksen/keiba-results/internal/filter"
	"github.com/pfrederiksen/keiba-results/internal/logger"
	"github.com/pfrederiksen/keiba-results/internal/pipeline"
	"github.com/pfrederiksen/keiba-results/internal/race"
	"github.com/pfrederiksen/keiba-results/internal/storage"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var (
	flagConfig    string
	flagDebug     bool
	flagFormat    string
	flagOutputDir string
	flagNoFilter  bool
	flagHorses    bool
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keiba-results",
		Short: "Collect horse racing results from netkeiba",
		Long: `A CLI tool to collect race results, payouts, horse histories and pedigrees
from db.netkeiba.com into CSV files. Races are filtered by venue and month.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default ./config.yaml)")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Debug mode: short date window, verbose console log")
	cmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "Report format: text or json")
	cmd.PersistentFlags().StringVar(&flagOutputDir, "output-dir", "", "Override the output directory")
	cmd.PersistentFlags().BoolVar(&flagNoFilter, "no-filter", false, "Keep every race regardless of venue and month")

	cmd.AddCommand(newByDateCmd(), newCombinatorialCmd(), newHorsesCmd(), newPedigreeCmd())
	return cmd
}

func newByDateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "by-date",
		Short: "Enumerate races from the daily listing pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, "by-date", func(ctx context.Context, r *runner, report *pipeline.Report) error {
				ids, err := r.pipe.CollectByDate(ctx, r.cfg.StartDate, r.cfg.DaysToFetch, report)
				if err != nil {
					return err
				}
				return r.races(ctx, ids, report)
			})
		},
	}
	cmd.Flags().BoolVar(&flagHorses, "horses", false, "Also fetch history and pedigree of every horse found")
	return cmd
}

func newCombinatorialCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "combinatorial",
		Short: "Enumerate every venue/meeting/day/race id of the target year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, "combinatorial", func(ctx context.Context, r *runner, report *pipeline.Report) error {
				ids := pipeline.Combinatorial(r.cfg.TargetYear, r.cfg.Combinatorial)
				r.log.Info("Synthesised race IDs", logger.Fields{"count": len(ids), "year": r.cfg.TargetYear})
				return r.races(ctx, ids, report)
			})
		},
	}
	cmd.Flags().BoolVar(&flagHorses, "horses", false, "Also fetch history and pedigree of every horse found")
	return cmd
}

func newHorsesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "horses HORSE_ID...",
		Short: "Fetch history and pedigree of the given horses",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]race.HorseID, 0, len(args))
			for _, arg := range args {
				id, err := race.ParseHorseID(strings.TrimSpace(arg))
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			return run(cmd, "horses", func(ctx context.Context, r *runner, report *pipeline.Report) error {
				return r.pipe.RunHorses(ctx, ids, report)
			})
		},
	}
}

func newPedigreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pedigree",
		Short: "Resume the pedigree pass for horses with history but no pedigree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, "pedigree", func(ctx context.Context, r *runner, report *pipeline.Report) error {
				return r.pipe.ResumePedigree(ctx, report)
			})
		},
	}
}

// runner holds the components built from one configuration.
type runner struct {
	cfg  *config.Config
	log  *logger.Logger
	pipe *pipeline.Pipeline
}

func (r *runner) races(ctx context.Context, ids []race.RaceID, report *pipeline.Report) error {
	if err := r.pipe.RunRaces(ctx, ids, report); err != nil {
		return err
	}
	if !flagHorses {
		return nil
	}
	return r.pipe.RunHorses(ctx, report.HorseIDs, report)
}

func loadConfig() (*config.Config, error) {
	var opts []config.Option
	if flagDebug {
		opts = append(opts, config.WithOverride("debug", true))
	}
	if flagOutputDir != "" {
		opts = append(opts, config.WithOverride("output_dir", flagOutputDir))
	}
	if flagNoFilter {
		opts = append(opts, config.WithOverride("disable_filter", true))
	}
	return config.Load(flagConfig, opts...)
}

func run(cmd *cobra.Command, strategy string, fn func(context.Context, *runner, *pipeline.Report) error) error {
	format := OutputFormat(strings.ToLower(flagFormat))
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, closeLog, err := logger.Open(cfg.LogFile, logger.ParseLevel(cfg.LogLevel), cfg.Debug)
	if err != nil {
		return err
	}
	defer closeLog() // nolint:errcheck

	store, err := storage.New(afero.NewOsFs(), cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	src := fetcher.New(fetcher.Options{
		BaseURL:         cfg.BaseURL,
		Timeout:         cfg.Timeout,
		RandomUserAgent: cfg.RandomUserAgent,
	})
	f := filter.New(cfg.Track, cfg.Months, cfg.DisableFilter)
	pacer := pipeline.NewPacer(cfg.MinDelay, cfg.MaxDelay, nil)

	log = log.With(logger.Fields{"strategy": strategy})
	r := &runner{cfg: cfg, log: log, pipe: pipeline.New(src, store, f, pacer, log)}

	result := &OutputResult{
		Strategy:  strategy,
		StartedAt: time.Now().UTC(),
		OutputDir: store.Dir(),
		Report:    &pipeline.Report{},
	}
	log.Info("Run started", logger.Fields{
		"track":     cfg.Track,
		"months":    f.Months(),
		"filter":    !cfg.DisableFilter,
		"output":    store.Dir(),
		"min_delay": cfg.MinDelay.String(),
		"max_delay": cfg.MaxDelay.String(),
	})

	runErr := fn(cmd.Context(), r, result.Report)
	result.FinishedAt = time.Now().UTC()
	result.Interrupted = runErr != nil

	if runErr != nil {
		log.Error("Run stopped", nil, runErr)
	} else {
		log.Info("Run finished", logger.Fields{"persisted": result.Report.Persisted})
	}

	if err := WriteOutput(cmd.OutOrStdout(), result, format); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return runErr
}

// Execute runs the CLI
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(ExitError)
	}
}
