// Package core fragment ladder calculations for b- and y-ions
package core

import (
	"fmt"
	"regexp"
	"strconv"
)

// Ion series supported by the ladder calculation.
const (
	IonTypeB = "b"
	IonTypeY = "y"
)

// Fragment is a single theoretical fragment ion.
type Fragment struct {
	Type   string // "b" or "y"
	Index  int    // Number of residues in the fragment (1-based)
	Charge int    // Fragment charge state
	MZ     float64
}

// Annotation returns the fragment label in the shared grammar,
// e.g. "y3" for singly charged, "b2^2" for higher charges.
func (f Fragment) Annotation() string {
	if f.Charge <= 1 {
		return fmt.Sprintf("%s%d", f.Type, f.Index)
	}
	return fmt.Sprintf("%s%d^%d", f.Type, f.Index, f.Charge)
}

var annotationRe = regexp.MustCompile(`^([a-z])(\d+)(?:\^(\d+))?$`)

// ParseAnnotation parses fragment labels like "y3", "b2^2", "y10^3".
func ParseAnnotation(annotation string) (ionType string, index, charge int, err error) {
	matches := annotationRe.FindStringSubmatch(annotation)
	if matches == nil {
		return "", 0, 0, fmt.Errorf("invalid ion annotation format: %s", annotation)
	}

	ionType = matches[1]
	index, err = strconv.Atoi(matches[2])
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid position in annotation %s: %w", annotation, err)
	}

	charge = 1 // default charge
	if matches[3] != "" {
		charge, err = strconv.Atoi(matches[3])
		if err != nil {
			return "", 0, 0, fmt.Errorf("invalid charge in annotation %s: %w", annotation, err)
		}
	}

	return ionType, index, charge, nil
}

// FragmentLadder computes the b- and y-ion m/z values for every backbone
// cleavage position of the peptide, for fragment charges 1..maxCharge.
//
// Modification handling:
//   - An N-terminal modification (Position -1) shifts every b ion.
//   - A C-terminal modification (Position len(seq)) shifts every y ion.
//   - A residue modification shifts exactly the fragments that contain
//     the modified residue.
//
// Fragments are returned grouped by charge state, b ions before y ions,
// in ascending index order.
func FragmentLadder(sequence string, modifications []Modification, maxCharge int) ([]Fragment, error) {
	if len(sequence) < 2 {
		return nil, fmt.Errorf("sequence %q too short to fragment", sequence)
	}
	if maxCharge < 1 {
		maxCharge = 1
	}

	residues := []rune(sequence)
	n := len(residues)

	// Per-residue masses, with residue-level modification shifts folded in.
	masses := make([]float64, n)
	for i, aa := range residues {
		m, ok := ResidueMass(aa)
		if !ok {
			return nil, fmt.Errorf("unknown amino acid %q at position %d", string(aa), i+1)
		}
		masses[i] = m
	}

	var nTermShift, cTermShift float64
	for _, mod := range modifications {
		switch {
		case mod.Position == -1:
			nTermShift += mod.Mass
		case mod.Position == n:
			cTermShift += mod.Mass
		case mod.Position >= 0 && mod.Position < n:
			masses[mod.Position] += mod.Mass
		default:
			return nil, fmt.Errorf("modification %s position %d out of range for sequence of length %d",
				mod.Name, mod.Position, n)
		}
	}

	// Prefix sums from the N-terminus.
	prefix := make([]float64, n+1)
	for i := 0; i < n; i++ {
		prefix[i+1] = prefix[i] + masses[i]
	}
	total := prefix[n]

	var frags []Fragment
	for z := 1; z <= maxCharge; z++ {
		for i := 1; i < n; i++ {
			// b_i: residues 1..i plus the N-terminal shift.
			bNeutral := prefix[i] + nTermShift
			frags = append(frags, Fragment{
				Type:   IonTypeB,
				Index:  i,
				Charge: z,
				MZ:     (bNeutral + float64(z)*ProtonMass) / float64(z),
			})
		}
		for i := 1; i < n; i++ {
			// y_i: the last i residues plus water and the C-terminal shift.
			yNeutral := (total - prefix[n-i]) + MassH2O + cTermShift
			frags = append(frags, Fragment{
				Type:   IonTypeY,
				Index:  i,
				Charge: z,
				MZ:     (yNeutral + float64(z)*ProtonMass) / float64(z),
			})
		}
	}

	return frags, nil
}
