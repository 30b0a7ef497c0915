// Package annotate matches observed peaks against theoretical fragment
// ladders and labels them with ion annotations.
package annotate

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/ms2pred/pkg/core"
)

// Tolerance is a mass tolerance window, absolute (Da) or relative (ppm).
type Tolerance struct {
	Value float64
	PPM   bool
}

// DefaultTolerance is used when no tolerance is configured.
var DefaultTolerance = Tolerance{Value: 0.02}

// ParseTolerance parses strings like "0.02Da", "0.5da", "20ppm".
func ParseTolerance(s string) (Tolerance, error) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)

	switch {
	case strings.HasSuffix(lower, "ppm"):
		v, err := strconv.ParseFloat(strings.TrimSpace(s[:len(s)-3]), 64)
		if err != nil || v <= 0 {
			return Tolerance{}, fmt.Errorf("invalid tolerance %q", s)
		}
		return Tolerance{Value: v, PPM: true}, nil
	case strings.HasSuffix(lower, "da"):
		v, err := strconv.ParseFloat(strings.TrimSpace(s[:len(s)-2]), 64)
		if err != nil || v <= 0 {
			return Tolerance{}, fmt.Errorf("invalid tolerance %q", s)
		}
		return Tolerance{Value: v}, nil
	default:
		return Tolerance{}, fmt.Errorf("invalid tolerance %q: expected Da or ppm suffix", s)
	}
}

// Window returns the absolute half-window in Da at the given m/z.
func (t Tolerance) Window(mz float64) float64 {
	if t.PPM {
		return mz * t.Value / 1e6
	}
	return t.Value
}

func (t Tolerance) String() string {
	if t.PPM {
		return fmt.Sprintf("%gppm", t.Value)
	}
	return fmt.Sprintf("%gDa", t.Value)
}

// Match pairs a theoretical fragment with the observed peak assigned to it.
type Match struct {
	Fragment   core.Fragment
	ObservedMZ float64
	Intensity  float64
	ErrorPPM   float64
}

// Spectrum matches the observed spectrum against the fragment ladder and
// returns an annotated copy plus the match table.
//
// Assignment is greedy per fragment, in ascending theoretical m/z order:
// the nearest unconsumed observed peak within tolerance wins, with ties
// broken toward the lower m/z peak. Each observed peak is assigned at
// most once.
func Spectrum(obs *core.Spectrum, frags []core.Fragment, tol Tolerance) (*core.Spectrum, []Match) {
	annotated := *obs
	annotated.Peaks = make([]core.Peak, len(obs.Peaks))
	copy(annotated.Peaks, obs.Peaks)
	annotated.SortPeaks()

	ordered := make([]core.Fragment, len(frags))
	copy(ordered, frags)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].MZ < ordered[j].MZ })

	used := make([]bool, len(annotated.Peaks))
	var matches []Match

	for _, frag := range ordered {
		idx := nearestPeak(annotated.Peaks, used, frag.MZ, tol.Window(frag.MZ))
		if idx < 0 {
			continue
		}
		used[idx] = true

		peak := &annotated.Peaks[idx]
		peak.Annotation = frag.Annotation()
		peak.Charge = frag.Charge

		matches = append(matches, Match{
			Fragment:   frag,
			ObservedMZ: peak.MZ,
			Intensity:  peak.Intensity,
			ErrorPPM:   (peak.MZ - frag.MZ) / frag.MZ * 1e6,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Fragment.Type != matches[j].Fragment.Type {
			return matches[i].Fragment.Type < matches[j].Fragment.Type
		}
		if matches[i].Fragment.Index != matches[j].Fragment.Index {
			return matches[i].Fragment.Index < matches[j].Fragment.Index
		}
		return matches[i].Fragment.Charge < matches[j].Fragment.Charge
	})

	return &annotated, matches
}

// nearestPeak finds the closest unused peak to mz within the window,
// preferring the lower-m/z peak on exact distance ties. Peaks must be
// sorted by m/z. Returns -1 when nothing qualifies.
func nearestPeak(peaks []core.Peak, used []bool, mz, window float64) int {
	lo := sort.Search(len(peaks), func(i int) bool { return peaks[i].MZ >= mz-window })

	best := -1
	bestDist := math.Inf(1)
	for i := lo; i < len(peaks) && peaks[i].MZ <= mz+window; i++ {
		if used[i] {
			continue
		}
		dist := math.Abs(peaks[i].MZ - mz)
		if dist < bestDist {
			best = i
			bestDist = dist
		}
	}
	return best
}

// MatchedFraction returns the fraction of observed intensity assigned to
// fragments, a quick readout of annotation coverage.
func MatchedFraction(obs *core.Spectrum, matches []Match) float64 {
	total := obs.TIC()
	if total <= 0 {
		return 0
	}
	matched := 0.0
	for _, m := range matches {
		matched += m.Intensity
	}
	return matched / total
}
