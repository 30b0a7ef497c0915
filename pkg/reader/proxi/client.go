// Package proxi fetches observed spectra by Universal Spectrum Identifier
// from PROXI-compliant archives (PeptideAtlas, PRIDE, MassIVE).
package proxi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-logr/logr"

	"github.com/ChrisMcGann/ms2pred/pkg/core"
	"github.com/ChrisMcGann/ms2pred/pkg/usi"
)

// Well-known PROXI endpoints.
const (
	PeptideAtlasBase = "https://proteomecentral.proteomexchange.org/api/proxi/v0.1"
	PRIDEBase        = "https://www.ebi.ac.uk/pride/proxi/archive/v0.1"
	MassIVEBase      = "https://massive.ucsd.edu/ProteoSAFe/proxi/v0.1"
)

// DefaultArchives is the fallback order used when no archives are configured.
var DefaultArchives = []string{PeptideAtlasBase, PRIDEBase, MassIVEBase}

// PSI-MS accessions carried in PROXI spectrum attributes.
const (
	accPrecursorMZ = "MS:1000744" // selected ion m/z
	accCharge      = "MS:1000041" // charge state
	accScanNumber  = "MS:1001115" // scan number
)

// ErrNotFound indicates that no configured archive holds the spectrum.
var ErrNotFound = errors.New("spectrum not found in any archive")

const defaultTimeout = 30 * time.Second

// Client fetches spectra from one or more PROXI archives, trying each in
// order until one succeeds.
type Client struct {
	Archives []string
	HTTP     *http.Client
	Log      logr.Logger
}

// NewClient creates a client for the given archive base URLs. A nil or
// empty list falls back to DefaultArchives.
func NewClient(archives []string, log logr.Logger) *Client {
	if len(archives) == 0 {
		archives = DefaultArchives
	}
	return &Client{
		Archives: archives,
		HTTP:     &http.Client{Timeout: defaultTimeout},
		Log:      log,
	}
}

// proxiSpectrum mirrors the PROXI JSON spectrum object.
type proxiSpectrum struct {
	USI        string           `json:"usi"`
	Attributes []proxiAttribute `json:"attributes"`
	MZs        []float64        `json:"mzs"`
	Intensity  []float64        `json:"intensities"`
}

type proxiAttribute struct {
	Accession string `json:"accession"`
	Name      string `json:"name"`
	Value     string `json:"value"`
}

// Fetch retrieves the spectrum for the given USI, consulting each archive
// in order. Transient failures (5xx, network errors) are retried once per
// archive before moving on; a 404 moves straight to the next archive.
func (c *Client) Fetch(ctx context.Context, rawUSI string) (*core.Spectrum, error) {
	parsed, err := usi.Parse(rawUSI)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, base := range c.Archives {
		spec, err := c.fetchFrom(ctx, base, rawUSI)
		if err == nil {
			c.fillInterpretation(spec, parsed)
			return spec, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		c.Log.V(1).Info("archive lookup failed", "archive", base, "usi", rawUSI, "error", err.Error())
		lastErr = err
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, lastErr)
	}
	return nil, ErrNotFound
}

// fetchFrom queries a single archive, retrying once on transient failure.
func (c *Client) fetchFrom(ctx context.Context, base, rawUSI string) (*core.Spectrum, error) {
	spec, err := c.doRequest(ctx, base, rawUSI)
	if err != nil && isTransient(err) {
		c.Log.V(1).Info("retrying archive request", "archive", base, "error", err.Error())
		spec, err = c.doRequest(ctx, base, rawUSI)
	}
	return spec, err
}

// transientError marks failures worth one retry.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

func (c *Client) doRequest(ctx context.Context, base, rawUSI string) (*core.Spectrum, error) {
	endpoint := fmt.Sprintf("%s/spectra?resultType=full&usi=%s", base, url.QueryEscape(rawUSI))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", base, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &transientError{fmt.Errorf("requesting %s: %w", base, err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("archive %s: spectrum not found", base)
	case resp.StatusCode >= 500:
		return nil, &transientError{fmt.Errorf("archive %s: status %d", base, resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("archive %s: unexpected status %d", base, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transientError{fmt.Errorf("reading response from %s: %w", base, err)}
	}

	var spectra []proxiSpectrum
	if err := json.Unmarshal(body, &spectra); err != nil {
		// Some archives return a single object rather than an array.
		var single proxiSpectrum
		if err2 := json.Unmarshal(body, &single); err2 != nil {
			return nil, fmt.Errorf("decoding response from %s: %w", base, err)
		}
		spectra = []proxiSpectrum{single}
	}
	if len(spectra) == 0 {
		return nil, fmt.Errorf("archive %s: empty response", base)
	}

	return convertSpectrum(&spectra[0], rawUSI)
}

// convertSpectrum maps a PROXI response object onto the core model.
func convertSpectrum(ps *proxiSpectrum, rawUSI string) (*core.Spectrum, error) {
	if len(ps.MZs) != len(ps.Intensity) {
		return nil, fmt.Errorf("mismatched peak arrays: %d m/z values, %d intensities",
			len(ps.MZs), len(ps.Intensity))
	}
	if len(ps.MZs) == 0 {
		return nil, errors.New("spectrum has no peaks")
	}

	spec := &core.Spectrum{
		USI:    rawUSI,
		Source: "proxi",
		Peaks:  make([]core.Peak, len(ps.MZs)),
	}
	for i := range ps.MZs {
		spec.Peaks[i] = core.Peak{MZ: ps.MZs[i], Intensity: ps.Intensity[i]}
	}
	spec.SortPeaks()

	for _, attr := range ps.Attributes {
		switch attr.Accession {
		case accPrecursorMZ:
			if v, err := strconv.ParseFloat(attr.Value, 64); err == nil {
				spec.PrecursorMZ = v
			}
		case accCharge:
			if v, err := strconv.Atoi(attr.Value); err == nil {
				spec.Charge = v
			}
		case accScanNumber:
			if v, err := strconv.Atoi(attr.Value); err == nil {
				spec.ScanNumber = v
			}
		}
	}

	return spec, nil
}

// fillInterpretation copies sequence, charge and modifications from the
// USI interpretation onto the fetched spectrum, when present.
func (c *Client) fillInterpretation(spec *core.Spectrum, parsed *usi.USI) {
	if parsed.Interpretation == "" {
		return
	}
	seq, charge, mods, err := parsed.Peptidoform(nil)
	if err != nil {
		c.Log.V(1).Info("ignoring unparseable interpretation",
			"interpretation", parsed.Interpretation, "error", err.Error())
		return
	}
	spec.Sequence = seq
	if spec.Charge == 0 {
		spec.Charge = charge
	}
	spec.Modifications = mods
}
