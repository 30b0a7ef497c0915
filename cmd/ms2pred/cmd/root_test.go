package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/ms2pred/pkg/config"
	"github.com/ChrisMcGann/ms2pred/pkg/core"
	"github.com/ChrisMcGann/ms2pred/pkg/filter"
)

func TestFilterFlagsRegistered(t *testing.T) {
	peakFlagCmds := []*cobra.Command{fetchCmd, predictCmd, annotateCmd}
	for _, c := range peakFlagCmds {
		for _, name := range []string{"top-n", "cutoff", "ion-types", "min-mz", "max-mz"} {
			assert.NotNil(t, c.Flags().Lookup(name), "%s should register --%s", c.Name(), name)
		}
	}
	for _, name := range []string{"min-mz", "max-mz"} {
		assert.NotNil(t, compareCmd.Flags().Lookup(name), "compare should register --%s", name)
	}
}

func TestPeakFilterFromFlags(t *testing.T) {
	defer resetFilterFlags()
	topN = 5
	cutoffPercent = 1.5
	ionTypes = "b, y"
	minMZ = 200
	maxMZ = 1200

	fc := peakFilter()
	assert.Equal(t, 5, fc.TopN)
	assert.Equal(t, 1.5, fc.IntensityCutoff)
	assert.Equal(t, []string{"b", "y"}, fc.IonTypes)
	assert.Equal(t, 200.0, fc.MinMZ)
	assert.Equal(t, 1200.0, fc.MaxMZ)
}

func TestResolvePeptideAppliesModsToInterpretation(t *testing.T) {
	defer func() { modLocations = "" }()
	modLocations = "4|Phospho"

	spec := &core.Spectrum{Sequence: "PEPTIDE", Charge: 2}
	err := resolvePeptide(spec, config.Default())
	require.NoError(t, err)

	require.Len(t, spec.Modifications, 1)
	assert.Equal(t, "Phospho", spec.Modifications[0].Name)
	assert.Equal(t, 3, spec.Modifications[0].Position)
}

func TestResolvePeptideRequiresInterpretation(t *testing.T) {
	spec := &core.Spectrum{Charge: 2}
	err := resolvePeptide(spec, config.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--peptide")
}

func TestFilterSpectrumEmptied(t *testing.T) {
	spec := &core.Spectrum{
		USI: "mzspec:PXD000001:run01:scan:42",
		Peaks: []core.Peak{
			{MZ: 100.0, Intensity: 1.0},
			{MZ: 200.0, Intensity: 2.0},
		},
	}

	fc := &filter.Config{IonTypes: []string{"b", "y"}}
	err := filterSpectrum(spec, fc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "removed every peak")
}

func writeMGF(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.mgf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromMGFByScanNumber(t *testing.T) {
	path := writeMGF(t, `BEGIN IONS
PEPMASS=400.6873
CHARGE=2+
SCANS=41
100.0 1.0
END IONS
BEGIN IONS
PEPMASS=400.6873
CHARGE=2+
SCANS=42
129.1022 3.0
263.0874 5.0
END IONS
`)

	spec, err := loadFromMGF(path, "mzspec:PXD000001:run01:scan:42")
	require.NoError(t, err)
	assert.Equal(t, "mzspec:PXD000001:run01:scan:42", spec.USI)
	assert.Equal(t, 42, spec.ScanNumber)
	assert.Len(t, spec.Peaks, 2)
}

func TestLoadFromMGFInvalidScanIndex(t *testing.T) {
	path := writeMGF(t, `BEGIN IONS
PEPMASS=400.6873
CHARGE=2+
SCANS=42
100.0 1.0
END IONS
`)

	_, err := loadFromMGF(path, "mzspec:PXD000001:run01:scan:controllerType=0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid scan index")
}

func resetFilterFlags() {
	topN = 0
	cutoffPercent = 0
	ionTypes = ""
	minMZ = 0
	maxMZ = 0
}
