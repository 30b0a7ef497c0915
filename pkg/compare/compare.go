// Package compare aligns two spectra and scores how well they agree.
package compare

import (
	"math"
	"sort"

	"github.com/ChrisMcGann/ms2pred/pkg/annotate"
	"github.com/ChrisMcGann/ms2pred/pkg/core"
)

// Pair is one aligned position: intensities from both spectra at a
// shared m/z. A zero on either side means the peak was only present in
// the other spectrum.
type Pair struct {
	MZ float64
	A  float64
	B  float64
}

// Options controls intensity preprocessing before scoring.
type Options struct {
	// Normalize scales each spectrum to its base peak before alignment.
	Normalize bool
	// Sqrt applies a square-root transform after normalization, which
	// damps the dominance of the tallest peaks.
	Sqrt bool
}

// Result holds the similarity scores for one spectrum pair.
type Result struct {
	Pearson       float64
	Cosine        float64
	SpectralAngle float64
	// Matched counts aligned positions where both spectra had a peak.
	Matched int
	// Pairs counts all aligned positions, shared or one-sided.
	Pairs int
}

// Spectra aligns a against b within the tolerance and scores the
// aligned intensity vectors.
func Spectra(a, b *core.Spectrum, tol annotate.Tolerance, opts Options) Result {
	pairs := Align(a, b, tol, opts)

	x := make([]float64, len(pairs))
	y := make([]float64, len(pairs))
	matched := 0
	for i, p := range pairs {
		x[i] = p.A
		y[i] = p.B
		if p.A > 0 && p.B > 0 {
			matched++
		}
	}

	cos := Cosine(x, y)
	return Result{
		Pearson:       Pearson(x, y),
		Cosine:        cos,
		SpectralAngle: SpectralAngle(cos),
		Matched:       matched,
		Pairs:         len(pairs),
	}
}

// Align pairs peaks from a and b by m/z proximity. Each peak of b is
// consumed at most once; matching is greedy over a's peaks in ascending
// m/z order, nearest candidate first. Unmatched peaks on either side
// become one-sided pairs.
func Align(a, b *core.Spectrum, tol annotate.Tolerance, opts Options) []Pair {
	pa := preparePeaks(a, opts)
	pb := preparePeaks(b, opts)

	used := make([]bool, len(pb))
	var pairs []Pair

	for _, peak := range pa {
		idx := nearest(pb, used, peak.MZ, tol.Window(peak.MZ))
		if idx < 0 {
			pairs = append(pairs, Pair{MZ: peak.MZ, A: peak.Intensity})
			continue
		}
		used[idx] = true
		pairs = append(pairs, Pair{MZ: peak.MZ, A: peak.Intensity, B: pb[idx].Intensity})
	}

	for i, peak := range pb {
		if !used[i] {
			pairs = append(pairs, Pair{MZ: peak.MZ, B: peak.Intensity})
		}
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].MZ < pairs[j].MZ })
	return pairs
}

// preparePeaks copies, sorts and transforms a spectrum's peaks.
func preparePeaks(spec *core.Spectrum, opts Options) []core.Peak {
	peaks := make([]core.Peak, len(spec.Peaks))
	copy(peaks, spec.Peaks)
	sort.Slice(peaks, func(i, j int) bool { return peaks[i].MZ < peaks[j].MZ })

	if opts.Normalize {
		base := 0.0
		for _, p := range peaks {
			if p.Intensity > base {
				base = p.Intensity
			}
		}
		if base > 0 {
			for i := range peaks {
				peaks[i].Intensity /= base
			}
		}
	}
	if opts.Sqrt {
		for i := range peaks {
			peaks[i].Intensity = math.Sqrt(peaks[i].Intensity)
		}
	}
	return peaks
}

func nearest(peaks []core.Peak, used []bool, mz, window float64) int {
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

// Pearson computes the Pearson correlation coefficient of two equal
// length vectors. Zero variance on either side yields 0.
func Pearson(x, y []float64) float64 {
	n := len(x)
	if n == 0 || n != len(y) {
		return 0
	}

	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += x[i]
		sumY += y[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var cov, varX, varY float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}

// Cosine computes the cosine similarity of two equal length vectors.
// A zero vector on either side yields 0.
func Cosine(x, y []float64) float64 {
	n := len(x)
	if n == 0 || n != len(y) {
		return 0
	}

	var dot, normX, normY float64
	for i := 0; i < n; i++ {
		dot += x[i] * y[i]
		normX += x[i] * x[i]
		normY += y[i] * y[i]
	}
	if normX == 0 || normY == 0 {
		return 0
	}
	return dot / math.Sqrt(normX*normY)
}

// SpectralAngle converts a cosine similarity into the normalized
// spectral angle, 1 for identical spectra down to 0 for orthogonal.
func SpectralAngle(cos float64) float64 {
	// Clamp against floating point drift before acos.
	if cos > 1 {
		cos = 1
	}
	if cos < -1 {
		cos = -1
	}
	return 1 - 2*math.Acos(cos)/math.Pi
}
