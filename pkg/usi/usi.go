// Package usi provides parsing and formatting of Universal Spectrum
// Identifiers (USI), the standardized strings referencing a specific
// spectrum within a public proteomics archive.
//
// The general form is:
//
//	mzspec:<collection>:<run>:<index type>:<index>[:<interpretation>]
//
// where the optional interpretation is "<peptidoform>/<charge>".
package usi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/ms2pred/pkg/core"
)

// Prefix is the required first field of every USI.
const Prefix = "mzspec"

// Index types defined by the USI specification.
var indexTypes = map[string]bool{
	"scan":     true,
	"index":    true,
	"nativeId": true,
}

// USI is a parsed Universal Spectrum Identifier.
type USI struct {
	Collection     string // Dataset identifier, e.g. "PXD000561"
	Run            string // Run (file) name, may itself contain colons
	IndexType      string // "scan", "index" or "nativeId"
	Index          string
	Interpretation string // "<peptidoform>/<charge>" or empty
}

// Parse parses a USI string. Run names containing colons are handled by
// locating the index-type token from the right.
func Parse(s string) (*USI, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 5 {
		return nil, fmt.Errorf("invalid USI %q: expected at least 5 colon-separated fields", s)
	}
	if parts[0] != Prefix {
		return nil, fmt.Errorf("invalid USI %q: must start with %q", s, Prefix)
	}
	if parts[1] == "" {
		return nil, fmt.Errorf("invalid USI %q: empty collection", s)
	}

	// The run name may contain colons, so scan from the right for the
	// index-type token. It must leave at least one field for the run and
	// one for the index.
	typeIdx := -1
	for i := len(parts) - 2; i >= 3; i-- {
		if indexTypes[parts[i]] {
			typeIdx = i
			break
		}
	}
	if typeIdx < 0 {
		return nil, fmt.Errorf("invalid USI %q: no index type (scan, index, nativeId) found", s)
	}

	u := &USI{
		Collection: parts[1],
		Run:        strings.Join(parts[2:typeIdx], ":"),
		IndexType:  parts[typeIdx],
		Index:      parts[typeIdx+1],
	}
	if u.Run == "" {
		return nil, fmt.Errorf("invalid USI %q: empty run", s)
	}
	if u.Index == "" {
		return nil, fmt.Errorf("invalid USI %q: empty index", s)
	}
	if len(parts) > typeIdx+2 {
		u.Interpretation = strings.Join(parts[typeIdx+2:], ":")
	}

	return u, nil
}

// String renders the USI back to its canonical form.
func (u *USI) String() string {
	fields := []string{Prefix, u.Collection, u.Run, u.IndexType, u.Index}
	if u.Interpretation != "" {
		fields = append(fields, u.Interpretation)
	}
	return strings.Join(fields, ":")
}

// Peptidoform resolves the interpretation into a plain sequence, charge
// and modification list. Bracketed notation is supported for both named
// and mass-delta modifications:
//
//	VLHPLEGAVVIIFK/2
//	PEPT[Phospho]IDE/2
//	PEPT[+79.9663]IDE/2
//	[Acetyl]-PEPTIDE/2
//
// Named modifications are resolved against db; mass deltas are taken
// verbatim. Returns an error if the USI carries no interpretation.
func (u *USI) Peptidoform(db *core.ModDatabase) (sequence string, charge int, mods []core.Modification, err error) {
	if u.Interpretation == "" {
		return "", 0, nil, fmt.Errorf("USI %s has no peptide interpretation", u.String())
	}
	if db == nil {
		db = core.DefaultModDatabase()
	}

	slash := strings.LastIndex(u.Interpretation, "/")
	if slash < 0 {
		return "", 0, nil, fmt.Errorf("invalid interpretation %q: missing /charge", u.Interpretation)
	}

	charge, err = strconv.Atoi(u.Interpretation[slash+1:])
	if err != nil || charge < 1 {
		return "", 0, nil, fmt.Errorf("invalid charge in interpretation %q", u.Interpretation)
	}

	sequence, mods, err = parsePeptidoform(u.Interpretation[:slash], db)
	if err != nil {
		return "", 0, nil, err
	}
	return sequence, charge, mods, nil
}

// parsePeptidoform strips bracketed modification annotations from a
// peptidoform string, accumulating them as modifications on the preceding
// residue (or the N-terminus for a leading "[...]-" group).
func parsePeptidoform(peptidoform string, db *core.ModDatabase) (string, []core.Modification, error) {
	var seq strings.Builder
	var mods []core.Modification

	rest := peptidoform

	// Leading "[Name]-" or "[+mass]-" is an N-terminal modification.
	if strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]")
		if end < 0 || end+1 >= len(rest) || rest[end+1] != '-' {
			return "", nil, fmt.Errorf("invalid N-terminal modification in %q", peptidoform)
		}
		mod, err := resolveBracket(rest[1:end], -1, db)
		if err != nil {
			return "", nil, err
		}
		mods = append(mods, mod)
		rest = rest[end+2:]
	}

	for len(rest) > 0 {
		c := rest[0]
		if c == '[' {
			end := strings.Index(rest, "]")
			if end < 0 {
				return "", nil, fmt.Errorf("unterminated modification bracket in %q", peptidoform)
			}
			if seq.Len() == 0 {
				return "", nil, fmt.Errorf("modification before first residue in %q", peptidoform)
			}
			mod, err := resolveBracket(rest[1:end], seq.Len()-1, db)
			if err != nil {
				return "", nil, err
			}
			mods = append(mods, mod)
			rest = rest[end+1:]
			continue
		}
		if _, ok := core.ResidueMass(rune(c)); !ok {
			return "", nil, fmt.Errorf("unknown amino acid %q in %q", string(c), peptidoform)
		}
		seq.WriteByte(c)
		rest = rest[1:]
	}

	if seq.Len() == 0 {
		return "", nil, fmt.Errorf("empty peptide sequence in %q", peptidoform)
	}
	return seq.String(), mods, nil
}

// resolveBracket turns a bracket body ("Phospho" or "+79.9663") into a
// modification at the given internal position.
func resolveBracket(body string, position int, db *core.ModDatabase) (core.Modification, error) {
	if strings.HasPrefix(body, "+") || strings.HasPrefix(body, "-") {
		mass, err := strconv.ParseFloat(body, 64)
		if err != nil {
			return core.Modification{}, fmt.Errorf("invalid modification mass %q: %w", body, err)
		}
		return core.Modification{Mass: mass, Position: position, Name: body}, nil
	}

	mass, ok := db.GetMass(body)
	if !ok {
		return core.Modification{}, fmt.Errorf("unknown modification %q", body)
	}
	return core.Modification{Mass: mass, Position: position, Name: body}, nil
}
