package annotate

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/ms2pred/pkg/core"
)

func TestParseTolerance(t *testing.T) {
	tests := []struct {
		input   string
		want    Tolerance
		wantErr bool
	}{
		{input: "0.02Da", want: Tolerance{Value: 0.02}},
		{input: "0.5da", want: Tolerance{Value: 0.5}},
		{input: "20ppm", want: Tolerance{Value: 20, PPM: true}},
		{input: " 10 ppm ", want: Tolerance{Value: 10, PPM: true}},
		{input: "0.02", wantErr: true},
		{input: "-5ppm", wantErr: true},
		{input: "0Da", wantErr: true},
		{input: "fastDa", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseTolerance(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestToleranceWindow(t *testing.T) {
	da := Tolerance{Value: 0.02}
	assert.Equal(t, 0.02, da.Window(500.0))
	assert.Equal(t, "0.02Da", da.String())

	ppm := Tolerance{Value: 20, PPM: true}
	assert.InDelta(t, 0.01, ppm.Window(500.0), 1e-12)
	assert.Equal(t, "20ppm", ppm.String())
}

func TestSpectrumMatching(t *testing.T) {
	frags, err := core.FragmentLadder("PEPTIDE", nil, 1)
	require.NoError(t, err)

	// Observed peaks at exact theoretical positions, except b6 is absent.
	intensities := map[string]float64{
		"b1": 0.05, "b2": 0.40, "b3": 0.15, "b4": 0.30, "b5": 0.20,
		"y1": 0.25, "y2": 0.35, "y3": 0.60, "y4": 1.00, "y5": 0.80, "y6": 0.45,
	}
	obs := &core.Spectrum{USI: "mzspec:TEST:run:scan:1"}
	for _, f := range frags {
		inten, ok := intensities[f.Annotation()]
		if !ok {
			continue
		}
		obs.Peaks = append(obs.Peaks, core.Peak{MZ: f.MZ, Intensity: inten})
	}
	obs.Peaks = append(obs.Peaks,
		core.Peak{MZ: 150.0, Intensity: 0.02},
		core.Peak{MZ: 500.0, Intensity: 0.03},
	)
	obs.SortPeaks()

	annotated, matches := Spectrum(obs, frags, Tolerance{Value: 0.02})
	require.Len(t, matches, 11)

	// b6 had no observed counterpart.
	for _, m := range matches {
		assert.NotEqual(t, "b6", m.Fragment.Annotation())
		assert.InDelta(t, 0, m.ErrorPPM, 1e-9)
	}

	// Matches come back ordered b1..b5 then y1..y6.
	assert.Equal(t, "b1", matches[0].Fragment.Annotation())
	assert.Equal(t, "y6", matches[10].Fragment.Annotation())

	// Noise peaks stay unannotated, matched peaks carry their ion label.
	labels := 0
	for _, peak := range annotated.Peaks {
		if peak.Annotation != "" {
			labels++
		}
	}
	assert.Equal(t, 11, labels)

	// The input spectrum is untouched.
	for _, peak := range obs.Peaks {
		assert.Empty(t, peak.Annotation)
	}
}

func TestSpectrumTieBreaksLow(t *testing.T) {
	frags := []core.Fragment{{Type: core.IonTypeB, Index: 1, Charge: 1, MZ: 100.0}}
	obs := &core.Spectrum{Peaks: []core.Peak{
		{MZ: 99.5, Intensity: 1.0},
		{MZ: 100.5, Intensity: 2.0},
	}}

	_, matches := Spectrum(obs, frags, Tolerance{Value: 1.0})
	require.Len(t, matches, 1)
	assert.Equal(t, 99.5, matches[0].ObservedMZ)
}

func TestSpectrumPeakUsedOnce(t *testing.T) {
	frags := []core.Fragment{
		{Type: core.IonTypeB, Index: 1, Charge: 1, MZ: 100.0},
		{Type: core.IonTypeB, Index: 2, Charge: 1, MZ: 100.3},
	}
	obs := &core.Spectrum{Peaks: []core.Peak{{MZ: 100.1, Intensity: 1.0}}}

	_, matches := Spectrum(obs, frags, Tolerance{Value: 0.5})
	require.Len(t, matches, 1)
	assert.Equal(t, 1, matches[0].Fragment.Index)
}

func TestMatchedFraction(t *testing.T) {
	obs := &core.Spectrum{Peaks: []core.Peak{
		{MZ: 100.0, Intensity: 3.0},
		{MZ: 200.0, Intensity: 1.0},
	}}
	matches := []Match{{Intensity: 3.0}}
	assert.InDelta(t, 0.75, MatchedFraction(obs, matches), 1e-12)

	empty := &core.Spectrum{}
	assert.Equal(t, 0.0, MatchedFraction(empty, nil))
}

func TestWriteMatchTableGolden(t *testing.T) {
	frags, err := core.FragmentLadder("PEPTIDE", nil, 1)
	require.NoError(t, err)

	intensities := map[string]float64{
		"b1": 0.05, "b2": 0.40, "b3": 0.15, "b4": 0.30, "b5": 0.20,
		"y1": 0.25, "y2": 0.35, "y3": 0.60, "y4": 1.00, "y5": 0.80, "y6": 0.45,
	}
	obs := &core.Spectrum{}
	for _, f := range frags {
		inten, ok := intensities[f.Annotation()]
		if !ok {
			continue
		}
		obs.Peaks = append(obs.Peaks, core.Peak{MZ: f.MZ, Intensity: inten})
	}
	obs.SortPeaks()

	_, matches := Spectrum(obs, frags, Tolerance{Value: 0.02})

	var buf bytes.Buffer
	require.NoError(t, WriteMatchTable(&buf, matches))

	g := goldie.New(t)
	g.Assert(t, "match_table", buf.Bytes())
}

func TestSummary(t *testing.T) {
	obs := &core.Spectrum{Peaks: []core.Peak{
		{MZ: 100.0, Intensity: 1.0},
		{MZ: 200.0, Intensity: 1.0},
	}}
	matches := []Match{{Intensity: 1.0}}
	assert.Equal(t, "1 of 2 peaks annotated (50.0% of intensity)", Summary(obs, matches))
}
