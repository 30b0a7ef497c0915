// Package mgf provides streaming readers for Mascot Generic Format peak lists
package mgf

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/ms2pred/pkg/core"
)

// Reader provides streaming access to MGF format files
type Reader struct {
	scanner     *bufio.Scanner
	lineNum     int
	currentSpec *core.Spectrum
	err         error
}

// NewReader creates a new MGF reader
func NewReader(r io.Reader) *Reader {
	return &Reader{
		scanner: bufio.NewScanner(r),
	}
}

// Next advances to the next spectrum. Returns false when no more spectra or error.
func (r *Reader) Next() bool {
	r.currentSpec = nil

	spec, err := r.readSpectrum()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		return false
	}

	r.currentSpec = spec
	return true
}

// Spectrum returns the current spectrum
func (r *Reader) Spectrum() *core.Spectrum {
	return r.currentSpec
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

// readSpectrum reads a single BEGIN IONS / END IONS block
func (r *Reader) readSpectrum() (*core.Spectrum, error) {
	inBlock := false
	spec := &core.Spectrum{
		Source: "mgf",
		Peaks:  []core.Peak{},
	}

	for r.scanner.Scan() {
		r.lineNum++
		line := strings.TrimSpace(r.scanner.Text())

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !inBlock {
			if line == "BEGIN IONS" {
				inBlock = true
			}
			// Global parameters before the first block are ignored
			continue
		}

		if line == "END IONS" {
			return spec, nil
		}

		if idx := strings.Index(line, "="); idx > 0 && !isPeakLine(line) {
			if err := r.parseParameter(spec, line[:idx], line[idx+1:]); err != nil {
				return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
			}
			continue
		}

		peak, err := r.parsePeak(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
		}
		spec.Peaks = append(spec.Peaks, peak)
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	if inBlock {
		return nil, fmt.Errorf("line %d: unterminated ion block, missing END IONS", r.lineNum)
	}

	return nil, io.EOF
}

// isPeakLine reports whether the line starts with a numeric m/z value.
// Parameter lines start with a key, peak lines with a number.
func isPeakLine(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	_, err := strconv.ParseFloat(fields[0], 64)
	return err == nil
}

// parseParameter handles one KEY=value line inside an ion block
func (r *Reader) parseParameter(spec *core.Spectrum, key, value string) error {
	switch strings.ToUpper(key) {
	case "TITLE":
		// TITLE is free text; a USI dropped in here survives round trips
		if strings.HasPrefix(value, "mzspec:") {
			spec.USI = value
		}

	case "PEPMASS":
		// PEPMASS=mz [intensity]
		fields := strings.Fields(value)
		if len(fields) == 0 {
			return fmt.Errorf("empty PEPMASS")
		}
		mz, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return fmt.Errorf("invalid PEPMASS value '%s': %w", fields[0], err)
		}
		spec.PrecursorMZ = mz

	case "CHARGE":
		charge, err := parseCharge(value)
		if err != nil {
			return err
		}
		spec.Charge = charge

	case "SEQ":
		spec.Sequence = value

	case "RTINSECONDS":
		rt, err := strconv.ParseFloat(value, 64)
		if err == nil {
			spec.RetentionTime = &rt
		}

	case "SCANS":
		scan, err := strconv.Atoi(value)
		if err == nil {
			spec.ScanNumber = scan
		}
	}

	return nil
}

// parseCharge handles MGF charge notation: "2+", "2", "3-"
func parseCharge(value string) (int, error) {
	value = strings.TrimSpace(value)
	// Multiple charges ("2+ and 3+") are not supported; take the first
	if idx := strings.IndexAny(value, " ,"); idx > 0 {
		value = value[:idx]
	}

	sign := 1
	switch {
	case strings.HasSuffix(value, "+"):
		value = strings.TrimSuffix(value, "+")
	case strings.HasSuffix(value, "-"):
		value = strings.TrimSuffix(value, "-")
		sign = -1
	}

	charge, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid CHARGE value '%s': %w", value, err)
	}
	if sign < 0 {
		return 0, fmt.Errorf("negative ion mode charge '%s' not supported", value)
	}
	return charge, nil
}

// parsePeak parses a single "mz intensity [charge]" line
func (r *Reader) parsePeak(line string) (core.Peak, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return core.Peak{}, fmt.Errorf("invalid peak format, expected at least 2 fields")
	}

	mz, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return core.Peak{}, fmt.Errorf("invalid m/z value: %w", err)
	}

	intensity, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return core.Peak{}, fmt.Errorf("invalid intensity value: %w", err)
	}

	peak := core.Peak{
		MZ:        mz,
		Intensity: intensity,
	}

	if len(fields) >= 3 {
		if z, err := strconv.Atoi(strings.TrimSuffix(fields[2], "+")); err == nil {
			peak.Charge = z
		}
	}

	return peak, nil
}
