package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/ms2pred/pkg/annotate"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <usi>",
	Short: "Fetch an observed spectrum from PROXI archives by USI",
	Long: `Fetch an MS2 spectrum identified by a Universal Spectrum Identifier
from the configured PROXI archives and print its peak list as TSV.

Examples:
  # Fetch a spectrum from the default archives
  ms2pred fetch "mzspec:PXD000561:Adult_Frontalcortex_bRP_Elite_85_f09:scan:17555"

  # Keep only the 50 most intense peaks and write to a file
  ms2pred fetch --top-n 50 --out peaks.tsv "mzspec:PXD000561:run01:scan:17555"`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func runFetch(cmd *cobra.Command, args []string) error {
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

	spec, err := fetchSpectrum(cmd.Context(), cfg, store, log, args[0])
	if err != nil {
		return err
	}

	if err := filterSpectrum(spec, peakFilter()); err != nil {
		return err
	}

	if err := spec.Validate(); err != nil {
		return fmt.Errorf("fetched spectrum is invalid: %w", err)
	}

	out, done, err := outputWriter()
	if err != nil {
		return err
	}
	defer done()

	fmt.Fprintf(out, "# %s\n", spec.USI)
	if spec.Sequence != "" {
		mods := ""
		if len(spec.Modifications) > 0 {
			mods = " mods " + spec.ModString()
		}
		fmt.Fprintf(out, "# interpretation %s/%d%s\n", spec.Sequence, spec.Charge, mods)
	}
	if spec.PrecursorMZ > 0 {
		fmt.Fprintf(out, "# precursor m/z %.4f charge %d\n", spec.PrecursorMZ, spec.Charge)
	}
	fmt.Fprintf(out, "# %d peaks, base peak %.4f\n", len(spec.Peaks), spec.BasePeak())

	return annotate.WritePeakTable(out, spec)
}
