package msp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMSP = `Name: PEPTIDE/2
MW: 799.36
Comment: Parent=400.69 Collision_energy=28 iRT=42.5 Mods=1/4,I,Oxidation
Num peaks: 4
148.0604	0.25	"y1/0.2ppm"
227.1026	0.40	"b2/-0.1ppm"
287.6396	0.05	"y5^2/1.1ppm"
376.1714	0.60	"y3/0.0ppm"

Name: LESLIE/1
MW: 688.39
Comment: Parent=689.40
Num peaks: 2
100.0	1.0
200.0	0.5
`

func TestReaderTwoEntries(t *testing.T) {
	r := NewReader(strings.NewReader(sampleMSP), nil)

	require.True(t, r.Next())
	first := r.Spectrum()
	assert.Equal(t, "PEPTIDE", first.Sequence)
	assert.Equal(t, 2, first.Charge)
	assert.Equal(t, 400.69, first.PrecursorMZ)
	assert.Equal(t, "msp", first.Source)
	require.NotNil(t, first.CollisionEnergy)
	assert.Equal(t, 28.0, *first.CollisionEnergy)
	require.NotNil(t, first.RetentionTime)
	assert.Equal(t, 42.5, *first.RetentionTime)

	require.Len(t, first.Modifications, 1)
	assert.Equal(t, "Oxidation", first.Modifications[0].Name)
	assert.Equal(t, 4, first.Modifications[0].Position)
	assert.InDelta(t, 15.994915, first.Modifications[0].Mass, 1e-6)

	require.Len(t, first.Peaks, 4)
	assert.Equal(t, "y1", first.Peaks[0].Annotation)
	assert.Equal(t, 1, first.Peaks[0].Charge)
	assert.Equal(t, "y5^2", first.Peaks[2].Annotation)
	assert.Equal(t, 2, first.Peaks[2].Charge)

	require.True(t, r.Next())
	second := r.Spectrum()
	assert.Equal(t, "LESLIE", second.Sequence)
	assert.Equal(t, 1, second.Charge)
	require.Len(t, second.Peaks, 2)
	assert.Empty(t, second.Peaks[0].Annotation)

	assert.False(t, r.Next())
	assert.NoError(t, r.Err())
}

func TestReaderBadName(t *testing.T) {
	input := "Name: NOCHARGE\nNum peaks: 1\n100.0\t1.0\n"
	r := NewReader(strings.NewReader(input), nil)

	assert.False(t, r.Next())
	assert.Error(t, r.Err())
}

func TestReaderBadPeakLine(t *testing.T) {
	input := "Name: PEPTIDE/2\nNum peaks: 1\nnot-a-number\t1.0\n"
	r := NewReader(strings.NewReader(input), nil)

	assert.False(t, r.Next())
	assert.Error(t, r.Err())
}

func TestReaderEmptyInput(t *testing.T) {
	r := NewReader(strings.NewReader(""), nil)
	assert.False(t, r.Next())
	assert.NoError(t, r.Err())
}
