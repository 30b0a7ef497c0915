// Package core provides modification parsing and management
package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Terminus targets for modification definitions.
const (
	TargetNTerm = "N-term"
	TargetCTerm = "C-term"
)

// ModDef is a modification definition: a named mass shift with an
// applicability rule.
type ModDef struct {
	Name   string
	Mass   float64
	Fixed  bool   // Fixed mods apply to every matching residue/terminus
	Target string // Single residue letter, "N-term", "C-term", or "" for anywhere
}

// ModDatabase stores modification definitions
type ModDatabase struct {
	defs map[string]ModDef
}

// NewModDatabase creates an empty modification database
func NewModDatabase() *ModDatabase {
	return &ModDatabase{
		defs: make(map[string]ModDef),
	}
}

// Add adds or updates a variable modification with no target restriction.
func (db *ModDatabase) Add(name string, mass float64) {
	db.defs[name] = ModDef{Name: name, Mass: mass}
}

// AddDef adds or updates a full modification definition.
func (db *ModDatabase) AddDef(def ModDef) {
	db.defs[def.Name] = def
}

// GetMass returns the mass shift for a modification name
func (db *ModDatabase) GetMass(name string) (float64, bool) {
	def, ok := db.defs[name]
	return def.Mass, ok
}

// Get returns the full definition for a modification name.
func (db *ModDatabase) Get(name string) (ModDef, bool) {
	def, ok := db.defs[name]
	return def, ok
}

// ParseDefinition parses a modification definition string in the format
// "name,mass_delta,opt|fixed,residue_or_N-term", e.g.
// "Carbamidomethyl,57.021464,fixed,C" or "Acetyl,42.010565,opt,N-term".
func ParseDefinition(s string) (ModDef, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return ModDef{}, fmt.Errorf("invalid modification definition %q: expected 4 comma-separated fields", s)
	}

	name := strings.TrimSpace(parts[0])
	if name == "" {
		return ModDef{}, fmt.Errorf("invalid modification definition %q: empty name", s)
	}

	mass, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return ModDef{}, fmt.Errorf("invalid mass value %q in definition %q: %w", parts[1], s, err)
	}

	var fixed bool
	switch strings.TrimSpace(parts[2]) {
	case "fixed":
		fixed = true
	case "opt":
		fixed = false
	default:
		return ModDef{}, fmt.Errorf("invalid applicability %q in definition %q: expected opt or fixed", parts[2], s)
	}

	target := strings.TrimSpace(parts[3])
	switch {
	case target == TargetNTerm || target == TargetCTerm:
	case len(target) == 1 && strings.ContainsRune("ACDEFGHIKLMNPQRSTVWY", rune(target[0])):
	default:
		return ModDef{}, fmt.Errorf("invalid target %q in definition %q: expected residue letter, N-term or C-term", target, s)
	}

	return ModDef{Name: name, Mass: mass, Fixed: fixed, Target: target}, nil
}

// LoadDefinitions parses a list of definition strings into the database.
func (db *ModDatabase) LoadDefinitions(defs []string) error {
	for _, s := range defs {
		def, err := ParseDefinition(s)
		if err != nil {
			return err
		}
		db.AddDef(def)
	}
	return nil
}

// ParseLocationString parses a per-peptide modification location string:
// pipe-delimited alternating position and modification name, where position
// 0 denotes the N-terminus, -1 the C-terminus, and positive integers
// 1-indexed residues. "-" (or "") denotes no modifications.
//
// Example: "0|Acetyl|5|Oxidation" on a 10-residue peptide yields an
// N-terminal acetylation and an oxidation on residue 5.
//
// Positions are converted to the internal convention (-1 N-term, 0-based
// residues, len(seq) C-term).
func (db *ModDatabase) ParseLocationString(locStr, sequence string) ([]Modification, error) {
	locStr = strings.TrimSpace(locStr)
	if locStr == "" || locStr == "-" {
		return nil, nil
	}

	parts := strings.Split(locStr, "|")
	if len(parts)%2 != 0 {
		return nil, fmt.Errorf("invalid location string %q: expected position|name pairs", locStr)
	}

	seen := make(map[int]bool)
	var mods []Modification
	for i := 0; i < len(parts); i += 2 {
		pos, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return nil, fmt.Errorf("invalid position %q in location string %q: %w", parts[i], locStr, err)
		}

		name := strings.TrimSpace(parts[i+1])
		def, ok := db.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown modification %q", name)
		}

		internal, err := internalPosition(pos, sequence)
		if err != nil {
			return nil, fmt.Errorf("modification %s: %w", name, err)
		}

		if err := checkTarget(def, internal, sequence); err != nil {
			return nil, err
		}

		if seen[internal] {
			return nil, fmt.Errorf("duplicate modification position %d in %q", pos, locStr)
		}
		seen[internal] = true

		mods = append(mods, Modification{Mass: def.Mass, Position: internal, Name: name})
	}

	sort.Slice(mods, func(i, j int) bool { return mods[i].Position < mods[j].Position })
	return mods, nil
}

// internalPosition maps the external location convention (0 N-term,
// -1 C-term, 1-indexed residues) to the internal one.
func internalPosition(pos int, sequence string) (int, error) {
	switch {
	case pos == 0:
		return -1, nil // N-terminus
	case pos == -1:
		return len(sequence), nil // C-terminus
	case pos >= 1 && pos <= len(sequence):
		return pos - 1, nil
	default:
		return 0, fmt.Errorf("position %d out of range for sequence of length %d", pos, len(sequence))
	}
}

// checkTarget verifies a definition's applicability rule against the
// internal position it was placed at.
func checkTarget(def ModDef, internal int, sequence string) error {
	switch def.Target {
	case "":
		return nil
	case TargetNTerm:
		if internal != -1 {
			return fmt.Errorf("modification %s targets the N-terminus", def.Name)
		}
	case TargetCTerm:
		if internal != len(sequence) {
			return fmt.Errorf("modification %s targets the C-terminus", def.Name)
		}
	default:
		if internal < 0 || internal >= len(sequence) {
			return fmt.Errorf("modification %s targets residue %s, not a terminus", def.Name, def.Target)
		}
		if string(sequence[internal]) != def.Target {
			return fmt.Errorf("modification %s targets %s but position %d is %s",
				def.Name, def.Target, internal+1, string(sequence[internal]))
		}
	}
	return nil
}

// ApplyFixed returns the modifications implied by all fixed definitions
// for the given sequence.
func (db *ModDatabase) ApplyFixed(sequence string) []Modification {
	var names []string
	for name, def := range db.defs {
		if def.Fixed {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var mods []Modification
	for _, name := range names {
		def := db.defs[name]
		switch def.Target {
		case TargetNTerm:
			mods = append(mods, Modification{Mass: def.Mass, Position: -1, Name: def.Name})
		case TargetCTerm:
			mods = append(mods, Modification{Mass: def.Mass, Position: len(sequence), Name: def.Name})
		default:
			for i, aa := range sequence {
				if string(aa) == def.Target {
					mods = append(mods, Modification{Mass: def.Mass, Position: i, Name: def.Name})
				}
			}
		}
	}

	sort.Slice(mods, func(i, j int) bool { return mods[i].Position < mods[j].Position })
	return mods
}

// Resolve combines fixed modifications with the ones named in a location
// string. A fixed modification colliding with a located one is dropped in
// favor of the located modification.
func (db *ModDatabase) Resolve(sequence, locStr string) ([]Modification, error) {
	located, err := db.ParseLocationString(locStr, sequence)
	if err != nil {
		return nil, err
	}

	taken := make(map[int]bool)
	for _, mod := range located {
		taken[mod.Position] = true
	}

	mods := located
	for _, mod := range db.ApplyFixed(sequence) {
		if !taken[mod.Position] {
			mods = append(mods, mod)
		}
	}

	sort.Slice(mods, func(i, j int) bool { return mods[i].Position < mods[j].Position })
	return mods, nil
}

// FormatLocationString renders modifications back into the external
// pipe-delimited convention. Returns "-" for no modifications.
func FormatLocationString(mods []Modification, seqLen int) string {
	if len(mods) == 0 {
		return "-"
	}

	var parts []string
	for _, mod := range mods {
		pos := mod.Position + 1
		switch mod.Position {
		case -1:
			pos = 0 // N-terminus
		case seqLen:
			pos = -1 // C-terminus
		}
		parts = append(parts, fmt.Sprintf("%d|%s", pos, mod.Name))
	}
	return strings.Join(parts, "|")
}

// DefaultModDatabase returns a ModDatabase pre-loaded with common modifications
func DefaultModDatabase() *ModDatabase {
	db := NewModDatabase()

	// Common modifications from unimod
	db.Add("Acetyl", 42.010565)
	db.Add("Amidated", -0.984016)
	db.Add("Biotin", 226.077598)
	db.Add("Carbamidomethyl", 57.021464)
	db.Add("Carbamyl", 43.005814)
	db.Add("Carboxymethyl", 58.005479)
	db.Add("Deamidated", 0.984016)
	db.Add("Met->Hse", -29.992806)
	db.Add("Met->Hsl", -48.003371)
	db.Add("NIPCAM", 99.068414)
	db.Add("Phospho", 79.966331)
	db.Add("Dehydrated", -18.010565)
	db.Add("Propionamide", 71.037114)
	db.Add("Pyro-carbamidomethyl", 39.994915)
	db.Add("Glu->pyro-Glu", -18.010565)
	db.Add("Gln->pyro-Glu", -17.026549)
	db.Add("Cation:Na", 21.981943)
	db.Add("Methyl", 14.01565)
	db.Add("Oxidation", 15.994915)
	db.Add("Dimethyl", 28.0313)
	db.Add("Trimethyl", 42.04695)
	db.Add("Methylthio", 45.987721)
	db.Add("Sulfo", 79.956815)
	db.Add("Hex", 162.052824)
	db.Add("Lipoyl", 188.032956)
	db.Add("HexNAc", 203.079373)
	db.Add("Farnesyl", 204.187801)
	db.Add("Myristoyl", 210.198366)
	db.Add("PyridoxalPhosphate", 229.014009)
	db.Add("Palmitoyl", 238.229666)
	db.Add("GeranylGeranyl", 272.250401)
	db.Add("Phosphopantetheine", 340.085794)
	db.Add("FAD", 783.141486)
	db.Add("Guanidinyl", 42.021798)
	db.Add("HNE", 156.11503)
	db.Add("Glucuronyl", 176.032088)
	db.Add("Glutathione", 305.068156)
	db.Add("Propionyl", 56.026215)
	db.Add("TMT", 229.162932)
	db.Add("TMTPro", 304.207146)
	db.Add("TMT6plex", 229.162932)
	db.Add("TMT10plex", 229.162932)
	db.Add("TMT11plex", 229.162932)
	db.Add("TMT16plex", 304.207146)
	db.Add("iTRAQ4plex", 144.102063)
	db.Add("iTRAQ8plex", 304.205360)

	return db
}
