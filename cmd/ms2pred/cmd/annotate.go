package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/ms2pred/pkg/annotate"
	"github.com/ChrisMcGann/ms2pred/pkg/config"
	"github.com/ChrisMcGann/ms2pred/pkg/core"
)

var annotateCmd = &cobra.Command{
	Use:   "annotate <usi>",
	Short: "Annotate an observed spectrum with fragment ion labels",
	Long: `Fetch an observed spectrum by USI, compute the theoretical b/y fragment
ladder for its peptide interpretation and label the peaks that match
within the tolerance. Prints the fragment match table as TSV.

The USI must carry a peptide interpretation (e.g. ...:PEPT[Phospho]IDE/2),
or the peptide must be supplied with --peptide and --mods.

Examples:
  ms2pred annotate "mzspec:PXD002437:run01:scan:10951:EMEVLSFHNLK/2"
  ms2pred annotate --tolerance 20ppm --peptide EMEVLSFHNLK/2 "mzspec:PXD002437:run01:scan:10951"`,
	Args: cobra.ExactArgs(1),
	RunE: runAnnotate,
}

var peptideArg string

func init() {
	annotateCmd.Flags().StringVar(&peptideArg, "peptide", "", "Peptide as 'SEQUENCE/CHARGE' when the USI has no interpretation")
	compareCmd.Flags().StringVar(&peptideArg, "peptide", "", "Peptide as 'SEQUENCE/CHARGE' when the USI has no interpretation")
}

func runAnnotate(cmd *cobra.Command, args []string) error {
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

	if err := resolvePeptide(spec, cfg); err != nil {
		return err
	}

	if err := filterSpectrum(spec, peakFilter()); err != nil {
		return err
	}

	maxZ := spec.Charge - 1
	if maxZ < 1 {
		maxZ = 1
	}
	frags, err := core.FragmentLadder(spec.Sequence, spec.Modifications, maxZ)
	if err != nil {
		return err
	}

	tol := matchTolerance(cfg)
	annotated, matches := annotate.Spectrum(spec, frags, tol)

	out, done, err := outputWriter()
	if err != nil {
		return err
	}
	defer done()

	fmt.Fprintf(out, "# %s\n", spec.USI)
	fmt.Fprintf(out, "# peptide %s/%d tolerance %s\n", spec.Sequence, spec.Charge, tol)
	fmt.Fprintf(out, "# %s\n", annotate.Summary(annotated, matches))

	return annotate.WriteMatchTable(out, matches)
}

// resolvePeptide fills in sequence, charge and modifications from the
// --peptide and --mods flags. A --mods location string replaces any
// modifications carried by the USI interpretation.
func resolvePeptide(spec *core.Spectrum, cfg *config.Config) error {
	if peptideArg != "" {
		req, err := parsePeptidoformArg(peptideArg, cfg)
		if err != nil {
			return err
		}
		spec.Sequence = req.Sequence
		if spec.Charge == 0 {
			spec.Charge = req.Charge
		}
		if len(req.Modifications) > 0 {
			spec.Modifications = req.Modifications
		}
		return nil
	}

	if spec.Sequence == "" {
		return fmt.Errorf("spectrum has no peptide interpretation, supply one with --peptide")
	}

	if modLocations != "" {
		modDB, err := cfg.ModDatabase()
		if err != nil {
			return err
		}
		mods, err := modDB.Resolve(spec.Sequence, modLocations)
		if err != nil {
			return err
		}
		spec.Modifications = mods
	}
	return nil
}
