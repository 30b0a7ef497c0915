package annotate

import (
	"fmt"
	"io"
	"strings"

	"github.com/ChrisMcGann/ms2pred/pkg/core"
)

// WriteMatchTable renders the match table as TSV: one row per matched
// fragment with theoretical and observed m/z, mass error and intensity.
func WriteMatchTable(w io.Writer, matches []Match) error {
	if _, err := io.WriteString(w, "Ion\tTheoretical m/z\tObserved m/z\tError (ppm)\tIntensity\n"); err != nil {
		return fmt.Errorf("writing match table header: %w", err)
	}

	for _, m := range matches {
		line := fmt.Sprintf("%s\t%.4f\t%.4f\t%+.2f\t%.4f\n",
			m.Fragment.Annotation(),
			m.Fragment.MZ,
			m.ObservedMZ,
			m.ErrorPPM,
			m.Intensity,
		)
		if _, err := io.WriteString(w, line); err != nil {
			return fmt.Errorf("writing match table row: %w", err)
		}
	}

	return nil
}

// WritePeakTable renders a spectrum's peaks as TSV. Unannotated peaks
// get a "-" in the ion column.
func WritePeakTable(w io.Writer, spec *core.Spectrum) error {
	if _, err := io.WriteString(w, "m/z\tIntensity\tIon\n"); err != nil {
		return fmt.Errorf("writing peak table header: %w", err)
	}

	for _, peak := range spec.Peaks {
		ion := peak.Annotation
		if ion == "" {
			ion = "-"
		}
		line := fmt.Sprintf("%.4f\t%.4f\t%s\n", peak.MZ, peak.Intensity, ion)
		if _, err := io.WriteString(w, line); err != nil {
			return fmt.Errorf("writing peak table row: %w", err)
		}
	}

	return nil
}

// Summary returns a one-line description of annotation coverage.
func Summary(obs *core.Spectrum, matches []Match) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d peaks annotated", len(matches), len(obs.Peaks))
	if len(obs.Peaks) > 0 {
		fmt.Fprintf(&b, " (%.1f%% of intensity)", 100*MatchedFraction(obs, matches))
	}
	return b.String()
}
