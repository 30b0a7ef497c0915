package predict

import (
	"context"
	"fmt"

	"github.com/ChrisMcGann/ms2pred/pkg/core"
)

// Theoretical is an offline Predictor that emits the b/y fragment ladder
// with uniform intensities. It stands in when no prediction service is
// configured or reachable.
type Theoretical struct {
	// MaxFragmentCharge caps the fragment charge states generated.
	// Zero means precursor charge minus one, at least one.
	MaxFragmentCharge int
}

// Predict computes the theoretical spectrum for the requested peptidoform.
func (p *Theoretical) Predict(_ context.Context, req Request) (*core.Spectrum, error) {
	if req.Sequence == "" {
		return nil, fmt.Errorf("empty peptide sequence")
	}
	if req.Charge < 1 {
		return nil, fmt.Errorf("invalid precursor charge %d", req.Charge)
	}

	maxZ := p.MaxFragmentCharge
	if maxZ < 1 {
		maxZ = req.Charge - 1
		if maxZ < 1 {
			maxZ = 1
		}
	}

	frags, err := core.FragmentLadder(req.Sequence, req.Modifications, maxZ)
	if err != nil {
		return nil, fmt.Errorf("computing fragment ladder for %s: %w", req.Sequence, err)
	}

	spec := &core.Spectrum{
		Sequence:      req.Sequence,
		Charge:        req.Charge,
		Modifications: req.Modifications,
		PrecursorMZ:   core.CalculatePeptideMZ(req.Sequence, req.Charge, req.Modifications),
		Source:        "theoretical",
		Peaks:         make([]core.Peak, len(frags)),
	}
	for i, f := range frags {
		spec.Peaks[i] = core.Peak{
			MZ:         f.MZ,
			Intensity:  1.0,
			Annotation: f.Annotation(),
			Charge:     f.Charge,
		}
	}
	spec.SortPeaks()

	return spec, nil
}
