package core

import (
	"math"
	"testing"
)

func TestSpectrumValidation(t *testing.T) {
	tests := []struct {
		name    string
		spec    *Spectrum
		wantErr bool
	}{
		{
			name: "valid spectrum",
			spec: &Spectrum{
				Sequence:    "PEPTIDE",
				Charge:      2,
				PrecursorMZ: 400.5,
				Peaks: []Peak{
					{MZ: 100.0, Intensity: 1000.0},
					{MZ: 200.0, Intensity: 2000.0},
				},
			},
			wantErr: false,
		},
		{
			name: "uninterpreted observed spectrum",
			spec: &Spectrum{
				USI:         "mzspec:PXD000561:run:scan:17555",
				PrecursorMZ: 400.5,
				Peaks: []Peak{
					{MZ: 100.0, Intensity: 1000.0},
				},
			},
			wantErr: false,
		},
		{
			name: "negative charge",
			spec: &Spectrum{
				Sequence:    "PEPTIDE",
				Charge:      -1,
				PrecursorMZ: 400.5,
				Peaks: []Peak{
					{MZ: 100.0, Intensity: 1000.0},
				},
			},
			wantErr: true,
		},
		{
			name: "no peaks",
			spec: &Spectrum{
				Sequence:    "PEPTIDE",
				Charge:      2,
				PrecursorMZ: 400.5,
				Peaks:       []Peak{},
			},
			wantErr: true,
		},
		{
			name: "unsorted peaks",
			spec: &Spectrum{
				Sequence:    "PEPTIDE",
				Charge:      2,
				PrecursorMZ: 400.5,
				Peaks: []Peak{
					{MZ: 200.0, Intensity: 2000.0},
					{MZ: 100.0, Intensity: 1000.0},
				},
			},
			wantErr: true,
		},
		{
			name: "NaN m/z",
			spec: &Spectrum{
				Sequence:    "PEPTIDE",
				Charge:      2,
				PrecursorMZ: 400.5,
				Peaks: []Peak{
					{MZ: math.NaN(), Intensity: 1000.0},
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSortPeaks(t *testing.T) {
	spec := &Spectrum{
		Peaks: []Peak{
			{MZ: 300.0, Intensity: 100.0},
			{MZ: 100.0, Intensity: 200.0},
			{MZ: 200.0, Intensity: 150.0},
		},
	}

	spec.SortPeaks()

	if len(spec.Peaks) != 3 {
		t.Fatalf("Expected 3 peaks, got %d", len(spec.Peaks))
	}

	expected := []float64{100.0, 200.0, 300.0}
	for i, peak := range spec.Peaks {
		if peak.MZ != expected[i] {
			t.Errorf("Peak %d: expected m/z %.1f, got %.1f", i, expected[i], peak.MZ)
		}
	}
}

func TestBasePeakAndTIC(t *testing.T) {
	spec := &Spectrum{
		Peaks: []Peak{
			{MZ: 100.0, Intensity: 50.0},
			{MZ: 200.0, Intensity: 200.0},
			{MZ: 300.0, Intensity: 150.0},
		},
	}

	if got := spec.BasePeak(); got != 200.0 {
		t.Errorf("BasePeak() = %.1f, want 200.0", got)
	}
	if got := spec.TIC(); got != 400.0 {
		t.Errorf("TIC() = %.1f, want 400.0", got)
	}
}

func TestNormalizeToBasePeak(t *testing.T) {
	spec := &Spectrum{
		Peaks: []Peak{
			{MZ: 100.0, Intensity: 50.0},
			{MZ: 200.0, Intensity: 200.0},
		},
	}

	spec.NormalizeToBasePeak()

	if spec.Peaks[0].Intensity != 0.25 {
		t.Errorf("peak 0 intensity = %.3f, want 0.25", spec.Peaks[0].Intensity)
	}
	if spec.Peaks[1].Intensity != 1.0 {
		t.Errorf("peak 1 intensity = %.3f, want 1.0", spec.Peaks[1].Intensity)
	}

	// Empty spectrum is a no-op
	empty := &Spectrum{}
	empty.NormalizeToBasePeak()
}

func TestTotalModMass(t *testing.T) {
	spec := &Spectrum{
		Modifications: []Modification{
			{Mass: 57.021464, Position: 3},
			{Mass: 15.994915, Position: 7},
		},
	}

	total := spec.TotalModMass()
	expected := 57.021464 + 15.994915

	if math.Abs(total-expected) > 0.000001 {
		t.Errorf("Expected total mod mass %.6f, got %.6f", expected, total)
	}
}

func TestSpectrumName(t *testing.T) {
	spec := &Spectrum{
		Sequence: "PEPTIDE",
		Charge:   2,
	}

	if got := spec.Name(); got != "PEPTIDE/2" {
		t.Errorf("Expected name PEPTIDE/2, got %s", got)
	}

	uninterpreted := &Spectrum{USI: "mzspec:PXD000561:run:scan:17555"}
	if got := uninterpreted.Name(); got != "mzspec:PXD000561:run:scan:17555" {
		t.Errorf("Expected USI as name, got %s", got)
	}
}
