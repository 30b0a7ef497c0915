package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/ms2pred/pkg/compare"
	"github.com/ChrisMcGann/ms2pred/pkg/core"
	"github.com/ChrisMcGann/ms2pred/pkg/filter"
	"github.com/ChrisMcGann/ms2pred/pkg/predict"
)

var (
	compareSqrt    bool
	compareNoNorm  bool
	compareLibrary string
	compareAgainst string
)

var compareCmd = &cobra.Command{
	Use:   "compare <usi>",
	Short: "Score an observed spectrum against its prediction",
	Long: `Fetch an observed spectrum by USI, predict the spectrum for its peptide
interpretation and report how well the two agree: Pearson correlation,
cosine similarity and normalized spectral angle.

The reference spectrum can also be a second observed spectrum (--against)
or an entry from a local MSP library (--library). Both spectra are scaled
to their base peak before alignment unless --no-normalize is given.

Examples:
  ms2pred compare "mzspec:PXD002437:run01:scan:10951:EMEVLSFHNLK/2"
  ms2pred compare --predict-url https://koina.example.org --sqrt "mzspec:PXD002437:run01:scan:10951:EMEVLSFHNLK/2"
  ms2pred compare --against "mzspec:PXD002437:run02:scan:9841" "mzspec:PXD002437:run01:scan:10951"`,
	Args: cobra.ExactArgs(1),
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().BoolVar(&compareSqrt, "sqrt", false, "Apply square-root intensity transform before scoring")
	compareCmd.Flags().BoolVar(&compareNoNorm, "no-normalize", false, "Skip base peak normalization")
	compareCmd.Flags().StringVar(&compareLibrary, "library", "", "Compare against an MSP library entry instead of a prediction")
	compareCmd.Flags().StringVar(&compareAgainst, "against", "", "Compare against a second observed spectrum given by USI")
}

func runCompare(cmd *cobra.Command, args []string) error {
	log := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openCache(cfg, log)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	observed, err := fetchSpectrum(cmd.Context(), cfg, store, log, args[0])
	if err != nil {
		return err
	}

	// Observed-vs-observed comparison needs no peptide interpretation.
	if compareAgainst == "" {
		if err := resolvePeptide(observed, cfg); err != nil {
			return err
		}
		if observed.Charge < 1 {
			return fmt.Errorf("observed spectrum has no precursor charge")
		}
	}

	var predicted *core.Spectrum
	if compareAgainst != "" {
		predicted, err = fetchSpectrum(cmd.Context(), cfg, store, log, compareAgainst)
		if err != nil {
			return err
		}
	} else if compareLibrary != "" {
		modDB, err := cfg.ModDatabase()
		if err != nil {
			return err
		}
		predicted, err = loadFromLibrary(compareLibrary, observed.Sequence, observed.Charge, modDB)
		if err != nil {
			return err
		}
	} else {
		req := predict.Request{
			Sequence:      observed.Sequence,
			Charge:        observed.Charge,
			Modifications: observed.Modifications,
			Model:         cfg.Model,
		}
		predicted, err = predictSpectrum(cmd.Context(), cfg, store, log, req)
		if err != nil {
			return err
		}
	}

	// Trim both sides to the same m/z window before scoring, typically
	// to exclude the precursor region.
	if minMZ > 0 || maxMZ > 0 {
		rangeFilter := &filter.Config{MinMZ: minMZ, MaxMZ: maxMZ}
		if err := filterSpectrum(observed, rangeFilter); err != nil {
			return err
		}
		if err := filterSpectrum(predicted, rangeFilter); err != nil {
			return err
		}
	}

	tol := matchTolerance(cfg)
	opts := compare.Options{Normalize: !compareNoNorm, Sqrt: compareSqrt}
	res := compare.Spectra(observed, predicted, tol, opts)

	out := os.Stdout
	fmt.Fprintf(out, "USI:            %s\n", observed.USI)
	if observed.Sequence != "" {
		fmt.Fprintf(out, "Peptide:        %s/%d\n", observed.Sequence, observed.Charge)
	}
	fmt.Fprintf(out, "Reference:      %s", predicted.Source)
	if predicted.Model != "" {
		fmt.Fprintf(out, " (%s)", predicted.Model)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Tolerance:      %s\n", tol)
	fmt.Fprintf(out, "Aligned peaks:  %d shared of %d\n", res.Matched, res.Pairs)
	fmt.Fprintf(out, "Pearson:        %.4f\n", res.Pearson)
	fmt.Fprintf(out, "Cosine:         %.4f\n", res.Cosine)
	fmt.Fprintf(out, "Spectral angle: %.4f\n", res.SpectralAngle)

	return nil
}
