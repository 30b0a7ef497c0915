package mgf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMGF = `# exported peak list
MASS=Monoisotopic

BEGIN IONS
TITLE=mzspec:PXD000561:Adult_Frontalcortex_bRP_Elite_85_f09:scan:17555
PEPMASS=400.6873 12345.6
CHARGE=2+
SEQ=PEPTIDE
RTINSECONDS=1823.4
SCANS=17555
148.0604 250.0
227.1026 400.0 1+
376.1714 600.0
END IONS

BEGIN IONS
TITLE=fraction 12, scan 901
PEPMASS=512.30
CHARGE=3+
100.0 1.0
END IONS
`

func TestReaderTwoBlocks(t *testing.T) {
	r := NewReader(strings.NewReader(sampleMGF))

	require.True(t, r.Next())
	first := r.Spectrum()
	assert.Equal(t, "mzspec:PXD000561:Adult_Frontalcortex_bRP_Elite_85_f09:scan:17555", first.USI)
	assert.Equal(t, "PEPTIDE", first.Sequence)
	assert.Equal(t, 2, first.Charge)
	assert.Equal(t, 400.6873, first.PrecursorMZ)
	assert.Equal(t, 17555, first.ScanNumber)
	assert.Equal(t, "mgf", first.Source)
	require.NotNil(t, first.RetentionTime)
	assert.Equal(t, 1823.4, *first.RetentionTime)

	require.Len(t, first.Peaks, 3)
	assert.Equal(t, 148.0604, first.Peaks[0].MZ)
	assert.Equal(t, 1, first.Peaks[1].Charge)

	require.True(t, r.Next())
	second := r.Spectrum()
	assert.Empty(t, second.USI)
	assert.Equal(t, 3, second.Charge)
	require.Len(t, second.Peaks, 1)

	assert.False(t, r.Next())
	assert.NoError(t, r.Err())
}

func TestReaderUnterminatedBlock(t *testing.T) {
	input := "BEGIN IONS\nPEPMASS=400.0\n100.0 1.0\n"
	r := NewReader(strings.NewReader(input))

	assert.False(t, r.Next())
	require.Error(t, r.Err())
	assert.Contains(t, r.Err().Error(), "END IONS")
}

func TestReaderBadCharge(t *testing.T) {
	input := "BEGIN IONS\nCHARGE=two\n100.0 1.0\nEND IONS\n"
	r := NewReader(strings.NewReader(input))

	assert.False(t, r.Next())
	assert.Error(t, r.Err())
}

func TestReaderNegativeCharge(t *testing.T) {
	input := "BEGIN IONS\nCHARGE=2-\n100.0 1.0\nEND IONS\n"
	r := NewReader(strings.NewReader(input))

	assert.False(t, r.Next())
	assert.Error(t, r.Err())
}

func TestReaderBadPeak(t *testing.T) {
	input := "BEGIN IONS\n100.0\nEND IONS\n"
	r := NewReader(strings.NewReader(input))

	assert.False(t, r.Next())
	assert.Error(t, r.Err())
}

func TestReaderEmptyInput(t *testing.T) {
	r := NewReader(strings.NewReader(""))
	assert.False(t, r.Next())
	assert.NoError(t, r.Err())
}

func TestParseCharge(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{input: "2+", want: 2},
		{input: "2", want: 2},
		{input: "2+ and 3+", want: 2},
		{input: "3-", wantErr: true},
		{input: "x", wantErr: true},
	}

	for _, tt := range tests {
		got, err := parseCharge(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}
