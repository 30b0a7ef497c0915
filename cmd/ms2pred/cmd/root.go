// Package cmd provides CLI command implementations
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/ms2pred/pkg/annotate"
	"github.com/ChrisMcGann/ms2pred/pkg/cache"
	"github.com/ChrisMcGann/ms2pred/pkg/config"
	"github.com/ChrisMcGann/ms2pred/pkg/core"
	"github.com/ChrisMcGann/ms2pred/pkg/filter"
	"github.com/ChrisMcGann/ms2pred/pkg/predict"
	"github.com/ChrisMcGann/ms2pred/pkg/reader/proxi"
)

var (
	// Global flags
	configFile string
	verbose    bool

	// Shared command flags
	archives     string
	predictURL   string
	model        string
	toleranceStr string
	cachePath    string
	noCache      bool
	outputFile   string
	modLocations string
	mgfFile      string

	// Peak filter flags
	topN          int
	cutoffPercent float64
	ionTypes      string
	minMZ         float64
	maxMZ         float64
)

var rootCmd = &cobra.Command{
	Use:   "ms2pred",
	Short: "ms2pred - Fetch, predict and compare peptide fragmentation spectra",
	Long: `ms2pred works with MS2 peptide fragmentation spectra:

- Fetch observed spectra from PROXI archives by Universal Spectrum Identifier
- Compute theoretical b/y fragment ladders or request ML-predicted spectra
- Annotate observed peaks with fragment ion labels
- Score observed against predicted spectra (Pearson, cosine, spectral angle)

Fetched and predicted spectra are cached locally in SQLite.`,
	Version: "1.0.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(annotateCmd)
	rootCmd.AddCommand(compareCmd)

	for _, c := range []*cobra.Command{fetchCmd, annotateCmd, compareCmd} {
		c.Flags().StringVar(&archives, "archives", "", "Comma-separated PROXI base URLs (overrides config)")
		c.Flags().StringVar(&cachePath, "cache", "", "SQLite spectrum cache path (overrides config)")
		c.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the spectrum cache")
		c.Flags().StringVar(&mgfFile, "mgf", "", "Resolve the USI against a local MGF file instead of PROXI archives")
	}
	for _, c := range []*cobra.Command{predictCmd, compareCmd} {
		c.Flags().StringVar(&predictURL, "predict-url", "", "Prediction service base URL (overrides config)")
		c.Flags().StringVar(&model, "model", "", "Prediction model name (overrides config)")
	}
	for _, c := range []*cobra.Command{annotateCmd, compareCmd} {
		c.Flags().StringVar(&toleranceStr, "tolerance", "", "Fragment match tolerance, e.g. '0.02Da' or '20ppm'")
	}
	for _, c := range []*cobra.Command{fetchCmd, predictCmd, annotateCmd} {
		c.Flags().StringVarP(&outputFile, "out", "o", "", "Write output to file instead of stdout")
	}

	predictCmd.Flags().StringVar(&modLocations, "mods", "", "Modification location string, e.g. '0|Acetyl|5|Oxidation'")
	annotateCmd.Flags().StringVar(&modLocations, "mods", "", "Modification location string, e.g. '0|Acetyl|5|Oxidation'")

	for _, c := range []*cobra.Command{fetchCmd, predictCmd, annotateCmd} {
		c.Flags().IntVar(&topN, "top-n", 0, "Keep only top N most intense peaks (0 = no limit)")
		c.Flags().Float64Var(&cutoffPercent, "cutoff", 0, "Intensity cutoff as % of base peak (0 = no cutoff)")
		c.Flags().StringVar(&ionTypes, "ion-types", "", "Comma-separated ion types to keep (e.g., 'b,y')")
	}
	for _, c := range []*cobra.Command{fetchCmd, predictCmd, annotateCmd, compareCmd} {
		c.Flags().Float64Var(&minMZ, "min-mz", 0, "Drop peaks below this m/z (0 = no lower bound)")
		c.Flags().Float64Var(&maxMZ, "max-mz", 0, "Drop peaks above this m/z (0 = no upper bound)")
	}
}

// newLogger returns a stderr logger, silent unless --verbose is set.
func newLogger() logr.Logger {
	if !verbose {
		return logr.Discard()
	}
	log := funcr.New(func(prefix, args string) {
		fmt.Fprintln(os.Stderr, prefix, args)
	}, funcr.Options{Verbosity: 1})
	return log.WithName("ms2pred")
}

// loadConfig reads the config file (when given) and layers command line
// flag overrides on top.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if archives != "" {
		cfg.Archives = splitList(archives)
	}
	if predictURL != "" {
		cfg.PredictURL = predictURL
	}
	if model != "" {
		cfg.Model = model
	}
	if toleranceStr != "" {
		cfg.Tolerance = toleranceStr
	}
	if cachePath != "" {
		cfg.CachePath = cachePath
	}
	if noCache {
		cfg.CachePath = ""
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// openCache opens the configured spectrum cache, or returns nil when
// caching is disabled.
func openCache(cfg *config.Config, log logr.Logger) (*cache.Cache, error) {
	if cfg.CachePath == "" {
		return nil, nil
	}
	return cache.Open(cfg.CachePath, log)
}

// fetchSpectrum resolves a USI to an observed spectrum: from a local
// MGF file when --mgf is given, otherwise consulting the cache before
// the PROXI archives.
func fetchSpectrum(ctx context.Context, cfg *config.Config, store *cache.Cache, log logr.Logger, rawUSI string) (*core.Spectrum, error) {
	if mgfFile != "" {
		return loadFromMGF(mgfFile, rawUSI)
	}

	if store != nil {
		if spec, err := store.Get(ctx, rawUSI); err == nil {
			log.V(1).Info("cache hit", "usi", rawUSI)
			return spec, nil
		}
	}

	client := proxi.NewClient(cfg.Archives, log)
	spec, err := client.Fetch(ctx, rawUSI)
	if err != nil {
		return nil, err
	}

	if store != nil {
		if err := store.Put(ctx, rawUSI, spec); err != nil {
			log.V(1).Info("failed to cache spectrum", "usi", rawUSI, "error", err.Error())
		}
	}
	return spec, nil
}

// predictSpectrum runs a prediction request, consulting the cache first
// and falling back to the theoretical ladder when no service is
// configured.
func predictSpectrum(ctx context.Context, cfg *config.Config, store *cache.Cache, log logr.Logger, req predict.Request) (*core.Spectrum, error) {
	if store != nil {
		if spec, err := store.Get(ctx, req.Key()); err == nil {
			log.V(1).Info("cache hit", "key", req.Key())
			return spec, nil
		}
	}

	var predictor predict.Predictor
	if cfg.PredictURL != "" {
		predictor = predict.NewClient(cfg.PredictURL, log)
	} else {
		log.V(1).Info("no prediction service configured, using theoretical ladder")
		predictor = &predict.Theoretical{}
	}

	spec, err := predictor.Predict(ctx, req)
	if err != nil {
		return nil, err
	}

	if store != nil {
		if err := store.Put(ctx, req.Key(), spec); err != nil {
			log.V(1).Info("failed to cache prediction", "key", req.Key(), "error", err.Error())
		}
	}
	return spec, nil
}

// parsePeptidoformArg parses a "SEQUENCE/CHARGE" argument plus an
// optional modification location string into a prediction request.
func parsePeptidoformArg(arg string, cfg *config.Config) (predict.Request, error) {
	parts := strings.Split(arg, "/")
	if len(parts) != 2 {
		return predict.Request{}, fmt.Errorf("invalid peptide '%s', expected 'SEQUENCE/CHARGE'", arg)
	}
	sequence := strings.ToUpper(strings.TrimSpace(parts[0]))
	if sequence == "" {
		return predict.Request{}, fmt.Errorf("invalid peptide '%s', empty sequence", arg)
	}

	var charge int
	if _, err := fmt.Sscanf(parts[1], "%d", &charge); err != nil || charge < 1 {
		return predict.Request{}, fmt.Errorf("invalid charge in '%s'", arg)
	}

	req := predict.Request{
		Sequence: sequence,
		Charge:   charge,
		Model:    cfg.Model,
	}

	if modLocations != "" {
		modDB, err := cfg.ModDatabase()
		if err != nil {
			return predict.Request{}, err
		}
		mods, err := modDB.Resolve(sequence, modLocations)
		if err != nil {
			return predict.Request{}, err
		}
		req.Modifications = mods
	}

	return req, nil
}

// peakFilter builds the filter configuration from the shared flags.
func peakFilter() *filter.Config {
	fc := &filter.Config{
		TopN:            topN,
		IntensityCutoff: cutoffPercent,
		MinMZ:           minMZ,
		MaxMZ:           maxMZ,
	}
	if ionTypes != "" {
		fc.IonTypes = splitList(ionTypes)
	}
	return fc
}

// filterSpectrum applies the peak filters to a spectrum. An emptied
// peak list is reported as a filter outcome, not a validation failure.
func filterSpectrum(spec *core.Spectrum, fc *filter.Config) error {
	filter.RemoveZeroIntensityPeaks(spec)
	if err := fc.Apply(spec); err != nil {
		return fmt.Errorf("failed to filter spectrum: %w", err)
	}
	if len(spec.Peaks) == 0 {
		return fmt.Errorf("filters removed every peak from %s", spec.Name())
	}
	return nil
}

// outputWriter returns the destination for command output, stdout or
// the file named by --out.
func outputWriter() (*os.File, func(), error) {
	if outputFile == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(outputFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

// matchTolerance returns the configured fragment match tolerance.
func matchTolerance(cfg *config.Config) annotate.Tolerance {
	tol, err := cfg.MatchTolerance()
	if err != nil {
		return annotate.DefaultTolerance
	}
	return tol
}
