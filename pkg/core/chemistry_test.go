package core

import (
	"math"
	"testing"
)

func TestCalculatePeptideMZ(t *testing.T) {
	tests := []struct {
		name          string
		sequence      string
		charge        int
		modifications []Modification
		wantMZ        float64
		tolerance     float64
	}{
		{
			name:          "simple peptide charge 1",
			sequence:      "AAA",
			charge:        1,
			modifications: nil,
			wantMZ:        232.1292,
			tolerance:     0.001,
		},
		{
			name:          "simple peptide charge 2",
			sequence:      "AAA",
			charge:        2,
			modifications: nil,
			wantMZ:        116.5682,
			tolerance:     0.001,
		},
		{
			name:     "peptide with modification",
			sequence: "PEPTIDE",
			charge:   2,
			modifications: []Modification{
				{Mass: 57.021464, Position: 0}, // Carbamidomethyl on first residue
			},
			wantMZ:    429.2, // Approximate
			tolerance: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculatePeptideMZ(tt.sequence, tt.charge, tt.modifications)
			if math.Abs(got-tt.wantMZ) > tt.tolerance {
				t.Errorf("CalculatePeptideMZ() = %.4f, want %.4f (within %.4f)", got, tt.wantMZ, tt.tolerance)
			}
		})
	}
}

func TestCalculateNeutralMass(t *testing.T) {
	tests := []struct {
		name          string
		sequence      string
		modifications []Modification
		wantMass      float64
		tolerance     float64
	}{
		{
			name:          "simple tripeptide",
			sequence:      "AAA",
			modifications: nil,
			wantMass:      231.1219,
			tolerance:     0.001,
		},
		{
			name:     "with modification",
			sequence: "AAA",
			modifications: []Modification{
				{Mass: 57.021464, Position: 0},
			},
			wantMass:  288.1434,
			tolerance: 0.001,
		},
		{
			name:          "dipeptide",
			sequence:      "AG",
			modifications: nil,
			wantMass:      146.0691,
			tolerance:     0.001,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateNeutralMass(tt.sequence, tt.modifications)
			if math.Abs(got-tt.wantMass) > tt.tolerance {
				t.Errorf("CalculateNeutralMass() = %.4f, want %.4f (within %.4f)", got, tt.wantMass, tt.tolerance)
			}
		})
	}
}

func TestResidueMass(t *testing.T) {
	got, ok := ResidueMass('G')
	if !ok {
		t.Fatal("expected G to be a known residue")
	}
	if math.Abs(got-57.02146) > 0.001 {
		t.Errorf("ResidueMass('G') = %.5f, want 57.02146", got)
	}

	if _, ok := ResidueMass('X'); ok {
		t.Error("expected X to be unknown")
	}
}

func TestRoundFloat(t *testing.T) {
	tests := []struct {
		name      string
		val       float64
		precision int
		want      float64
	}{
		{"round to 2 decimals", 3.14159, 2, 3.14},
		{"round to 4 decimals", 3.14159, 4, 3.1416},
		{"round to 0 decimals", 3.6, 0, 4.0},
		{"round negative", -3.14159, 2, -3.14},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RoundFloat(tt.val, tt.precision)
			if got != tt.want {
				t.Errorf("RoundFloat() = %v, want %v", got, tt.want)
			}
		})
	}
}
