// Package predict produces predicted and theoretical fragmentation spectra
// for a peptidoform. ML intensity prediction is delegated to an external
// prediction service; the Theoretical predictor provides an offline
// fallback built from the b/y fragment ladder.
package predict

import (
	"context"
	"fmt"

	"github.com/ChrisMcGann/ms2pred/pkg/core"
)

// Request describes the peptidoform to predict a spectrum for.
type Request struct {
	Sequence      string
	Charge        int
	Modifications []core.Modification
	Model         string // Prediction model name, e.g. "HCD2021"
}

// Key returns a stable identifier for caching predictions.
func (r Request) Key() string {
	loc := core.FormatLocationString(r.Modifications, len(r.Sequence))
	return fmt.Sprintf("%s/%d:%s:%s", r.Sequence, r.Charge, loc, r.Model)
}

// Predictor produces a spectrum for a peptidoform.
type Predictor interface {
	Predict(ctx context.Context, req Request) (*core.Spectrum, error)
}
