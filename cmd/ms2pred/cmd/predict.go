package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/ms2pred/pkg/annotate"
)

var predictCmd = &cobra.Command{
	Use:   "predict <sequence/charge>",
	Short: "Predict the fragmentation spectrum of a peptidoform",
	Long: `Predict the MS2 spectrum for a peptide sequence and precursor charge.

With a prediction service configured (--predict-url or the config file)
the spectrum comes from the service's ML model; otherwise the theoretical
b/y fragment ladder with uniform intensities is printed.

Examples:
  # Theoretical ladder for a doubly charged peptide
  ms2pred predict PEPTIDE/2

  # Predicted spectrum with an N-terminal acetylation
  ms2pred predict --predict-url https://koina.example.org --mods "0|Acetyl" PEPTIDE/2`,
	Args: cobra.ExactArgs(1),
	RunE: runPredict,
}

func runPredict(cmd *cobra.Command, args []string) error {
	log := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	req, err := parsePeptidoformArg(args[0], cfg)
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

	spec, err := predictSpectrum(cmd.Context(), cfg, store, log, req)
	if err != nil {
		return err
	}

	if err := filterSpectrum(spec, peakFilter()); err != nil {
		return err
	}

	out, done, err := outputWriter()
	if err != nil {
		return err
	}
	defer done()

	fmt.Fprintf(out, "# %s source %s", spec.Name(), spec.Source)
	if spec.Model != "" {
		fmt.Fprintf(out, " model %s", spec.Model)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "# precursor m/z %.4f charge %d\n", spec.PrecursorMZ, spec.Charge)
	if len(spec.Modifications) > 0 {
		fmt.Fprintf(out, "# mods %s\n", spec.ModString())
	}

	return annotate.WritePeakTable(out, spec)
}
