package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-sv/internal/analyse"
	"github.com/inodb/vibe-sv/internal/config"
	"github.com/inodb/vibe-sv/internal/duckdb"
	"github.com/inodb/vibe-sv/internal/output"
	"github.com/inodb/vibe-sv/internal/sv"
	"github.com/inodb/vibe-sv/internal/svfile"
)

// Output table file names written to --out-dir.
const (
	clustersFile = "clusters.tsv"
	chainsFile   = "chains.tsv"
	auditFile    = "sv_audit.tsv"
)

type runOptions struct {
	svFile     string
	eventsFile string
	dbPath     string
	outDir     string
}

func newRunCmd(verbose *bool) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run [sv-file]",
		Short: "Cluster and chain the SVs of one sample",
		Long: `Cluster and chain structural variants read from a tab-separated SV table
(plain or gzipped, '-' for stdin) or from a DuckDB database loaded by an
earlier run.`,
		Example: `  vibe-sv run svs.tsv --events loh.tsv --out-dir results/
  vibe-sv run svs.tsv.gz --db sample.duckdb
  vibe-sv run --db sample.duckdb --out-dir results/   # reuse loaded inputs`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.svFile = args[0]
			}
			logger, err := newLogger(*verbose)
			if err != nil {
				return fmt.Errorf("creating logger: %w", err)
			}
			defer logger.Sync()

			p, err := config.FromViper(viper.GetViper())
			if err != nil {
				return err
			}
			return runAnalysis(opts, p, logger, cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.eventsFile, "events", "", "LOH and hom-loss event table")
	f.StringVar(&opts.dbPath, "db", "", "DuckDB database for inputs and results")
	f.StringVarP(&opts.outDir, "out-dir", "o", "", "Directory for cluster, chain and audit tables")
	f.Int("workers", 0, "Parallel chaining workers (default: number of CPUs)")
	f.Int64("proximity-distance", 0, "Maximum distance for proximity clustering")
	f.Float64("ploidy-tolerance", 0, "Ploidy tolerance for matching and validation")
	viper.BindPFlag("clustering.workers", f.Lookup("workers"))
	viper.BindPFlag("clustering.proximity-distance", f.Lookup("proximity-distance"))
	viper.BindPFlag("clustering.ploidy-tolerance", f.Lookup("ploidy-tolerance"))

	return cmd
}

func runAnalysis(opts runOptions, p config.Params, logger *zap.Logger, summary io.Writer) error {
	if opts.svFile == "" && opts.dbPath == "" {
		return errors.New("an SV file or --db is required")
	}

	var store *duckdb.Store
	if opts.dbPath != "" {
		var err error
		if store, err = duckdb.Open(opts.dbPath); err != nil {
			return err
		}
		defer store.Close()
	}

	variants, lohs, err := loadInputs(opts, store, logger)
	if err != nil {
		return err
	}

	res, err := analyseSample(p, logger, variants, lohs)
	if err != nil {
		// a result failing validation is not trusted, so nothing is written
		return err
	}

	if store != nil {
		if err := store.WriteResult(res); err != nil {
			return fmt.Errorf("storing results: %w", err)
		}
		logger.Info("results stored", zap.String("db", opts.dbPath), zap.String("runID", res.RunID))
	}
	if opts.outDir != "" {
		if err := writeTables(res, opts.outDir); err != nil {
			return err
		}
	}

	output.Summarize(res).WriteSummary(summary)
	return nil
}

// analyseSample clusters, chains and validates one sample.
var analyseSample = func(p config.Params, logger *zap.Logger, variants []*sv.Variant, lohs []*sv.LohEvent) (*analyse.Result, error) {
	a := analyse.New(p)
	a.SetLogger(logger)
	return a.Run(variants, lohs)
}

// loadInputs reads SVs and events from files, loading them into the store
// when one is open, or from the store alone when no SV file is given.
func loadInputs(opts runOptions, store *duckdb.Store, logger *zap.Logger) ([]*sv.Variant, []*sv.LohEvent, error) {
	if opts.svFile == "" {
		variants, err := store.LoadVariants()
		if err != nil {
			return nil, nil, fmt.Errorf("loading variants: %w", err)
		}
		lohs, err := store.LoadEvents()
		if err != nil {
			return nil, nil, fmt.Errorf("loading events: %w", err)
		}
		logger.Info("inputs loaded from database", zap.Int("variants", len(variants)), zap.Int("loh", len(lohs)))
		return variants, lohs, nil
	}

	variants, err := svfile.ReadVariants(opts.svFile)
	if err != nil {
		return nil, nil, err
	}
	var lohs []*sv.LohEvent
	if opts.eventsFile != "" {
		if lohs, err = svfile.ReadEvents(opts.eventsFile); err != nil {
			return nil, nil, err
		}
	}
	logger.Info("inputs read", zap.String("svFile", opts.svFile), zap.Int("variants", len(variants)), zap.Int("loh", len(lohs)))

	if store != nil {
		if err := importInputs(store, opts, variants, lohs, logger); err != nil {
			return nil, nil, err
		}
	}
	return variants, lohs, nil
}

// importInputs replaces the stored inputs unless they were loaded from an
// unchanged file.
func importInputs(store *duckdb.Store, opts runOptions, variants []*sv.Variant, lohs []*sv.LohEvent, logger *zap.Logger) error {
	fp, err := duckdb.StatFile(opts.svFile)
	if err == nil {
		current, err := store.InputCurrent("sv_calls", fp)
		if err != nil {
			return err
		}
		if current && opts.eventsFile == "" {
			logger.Debug("stored inputs are current", zap.String("svFile", opts.svFile))
			return nil
		}
	}

	if err := store.ClearVariants(); err != nil {
		return fmt.Errorf("clearing stored inputs: %w", err)
	}
	if err := store.WriteVariants(variants); err != nil {
		return fmt.Errorf("storing variants: %w", err)
	}
	if err := store.WriteEvents(lohs); err != nil {
		return fmt.Errorf("storing events: %w", err)
	}
	if fp.Path != "" {
		if err := store.RecordInput("sv_calls", fp); err != nil {
			return err
		}
	}
	return nil
}

func writeTables(res *analyse.Result, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	var files []*os.File
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()
	create := func(name string) (*os.File, error) {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", name, err)
		}
		files = append(files, f)
		return f, nil
	}

	clusters, err := create(clustersFile)
	if err != nil {
		return err
	}
	chains, err := create(chainsFile)
	if err != nil {
		return err
	}
	audit, err := create(auditFile)
	if err != nil {
		return err
	}
	return output.WriteTables(res, clusters, chains, audit)
}
