package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-logr/logr"

	"github.com/ChrisMcGann/ms2pred/pkg/core"
)

// ErrServiceUnavailable indicates the prediction service could not be
// reached or kept failing after a retry.
var ErrServiceUnavailable = errors.New("prediction service unavailable")

const defaultTimeout = 60 * time.Second

// Client is a REST client for an external spectrum prediction service.
// The service owns the ML model; this client only formats requests and
// converts responses.
type Client struct {
	Base string
	HTTP *http.Client
	Log  logr.Logger
}

// NewClient creates a prediction client for the given base URL.
func NewClient(base string, log logr.Logger) *Client {
	return &Client{
		Base: base,
		HTTP: &http.Client{Timeout: defaultTimeout},
		Log:  log,
	}
}

// predictRequest is the JSON request body. Modifications travel in the
// pipe-delimited location-string convention.
type predictRequest struct {
	Peptide       string `json:"peptide"`
	Charge        int    `json:"charge"`
	Modifications string `json:"modifications"`
	Model         string `json:"model,omitempty"`
}

// predictResponse carries parallel peak arrays.
type predictResponse struct {
	Model       string    `json:"model"`
	MZs         []float64 `json:"mz"`
	Intensities []float64 `json:"intensities"`
	Annotations []string  `json:"annotations"`
}

// Predict requests a predicted spectrum from the service, retrying once
// on transient failure.
func (c *Client) Predict(ctx context.Context, req Request) (*core.Spectrum, error) {
	spec, err := c.doPredict(ctx, req)
	if err != nil && errors.Is(err, ErrServiceUnavailable) &&
		!errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		c.Log.V(1).Info("retrying prediction request", "peptide", req.Sequence, "error", err.Error())
		spec, err = c.doPredict(ctx, req)
	}
	return spec, err
}

func (c *Client) doPredict(ctx context.Context, req Request) (*core.Spectrum, error) {
	body := predictRequest{
		Peptide:       req.Sequence,
		Charge:        req.Charge,
		Modifications: core.FormatLocationString(req.Modifications, len(req.Sequence)),
		Model:         req.Model,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding prediction request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+"/predict", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building prediction request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrServiceUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("prediction service: unexpected status %d", resp.StatusCode)
	}

	var pr predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("decoding prediction response: %w", err)
	}

	return convertResponse(&pr, req)
}

// convertResponse maps the service response onto the core model.
func convertResponse(pr *predictResponse, req Request) (*core.Spectrum, error) {
	if len(pr.MZs) != len(pr.Intensities) {
		return nil, fmt.Errorf("mismatched peak arrays: %d m/z values, %d intensities",
			len(pr.MZs), len(pr.Intensities))
	}
	if len(pr.Annotations) > 0 && len(pr.Annotations) != len(pr.MZs) {
		return nil, fmt.Errorf("mismatched annotation array: %d annotations, %d peaks",
			len(pr.Annotations), len(pr.MZs))
	}
	if len(pr.MZs) == 0 {
		return nil, errors.New("prediction service returned no peaks")
	}

	model := pr.Model
	if model == "" {
		model = req.Model
	}

	spec := &core.Spectrum{
		Sequence:      req.Sequence,
		Charge:        req.Charge,
		Modifications: req.Modifications,
		PrecursorMZ:   core.CalculatePeptideMZ(req.Sequence, req.Charge, req.Modifications),
		Source:        "predicted",
		Model:         model,
		Peaks:         make([]core.Peak, len(pr.MZs)),
	}

	for i := range pr.MZs {
		peak := core.Peak{MZ: pr.MZs[i], Intensity: pr.Intensities[i], Charge: 1}
		if len(pr.Annotations) > 0 {
			peak.Annotation = pr.Annotations[i]
			if _, _, z, err := core.ParseAnnotation(peak.Annotation); err == nil {
				peak.Charge = z
			}
		}
		spec.Peaks[i] = peak
	}
	spec.SortPeaks()

	return spec, nil
}
