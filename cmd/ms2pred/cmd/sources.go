package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/ChrisMcGann/ms2pred/pkg/core"
	"github.com/ChrisMcGann/ms2pred/pkg/reader/mgf"
	"github.com/ChrisMcGann/ms2pred/pkg/reader/msp"
	"github.com/ChrisMcGann/ms2pred/pkg/usi"
)

// loadFromMGF resolves a USI against a local MGF peak list instead of
// the PROXI archives. A block matches when its TITLE carries the same
// USI, or when its scan number equals the USI index.
func loadFromMGF(path, rawUSI string) (*core.Spectrum, error) {
	parsed, err := usi.Parse(rawUSI)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MGF file: %w", err)
	}
	defer f.Close()

	var scan int
	if parsed.IndexType == "scan" {
		scan, err = strconv.Atoi(parsed.Index)
		if err != nil {
			return nil, fmt.Errorf("invalid scan index %q in %s", parsed.Index, rawUSI)
		}
	}

	// MGF titles usually carry the USI without the interpretation suffix.
	base := *parsed
	base.Interpretation = ""
	baseUSI := base.String()

	r := mgf.NewReader(f)
	for r.Next() {
		spec := r.Spectrum()
		if spec.USI == rawUSI || spec.USI == baseUSI || (scan > 0 && spec.ScanNumber == scan) {
			spec.USI = rawUSI
			fillFromInterpretation(spec, parsed)
			return spec, nil
		}
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("failed to read MGF file: %w", err)
	}

	return nil, fmt.Errorf("no spectrum in %s matches %s", path, rawUSI)
}

// fillFromInterpretation copies the peptide interpretation from a parsed
// USI onto a spectrum loaded from a local file.
func fillFromInterpretation(spec *core.Spectrum, parsed *usi.USI) {
	if parsed.Interpretation == "" || spec.Sequence != "" {
		return
	}
	seq, charge, mods, err := parsed.Peptidoform(nil)
	if err != nil {
		return
	}
	spec.Sequence = seq
	if spec.Charge == 0 {
		spec.Charge = charge
	}
	spec.Modifications = mods
}

// loadFromLibrary finds the library entry for a peptidoform in an MSP
// spectral library.
func loadFromLibrary(path, sequence string, charge int, modDB *core.ModDatabase) (*core.Spectrum, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open library file: %w", err)
	}
	defer f.Close()

	r := msp.NewReader(f, modDB)
	for r.Next() {
		spec := r.Spectrum()
		if spec.Sequence == sequence && spec.Charge == charge {
			return spec, nil
		}
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("failed to read library file: %w", err)
	}

	return nil, fmt.Errorf("no library entry in %s for %s/%d", path, sequence, charge)
}
