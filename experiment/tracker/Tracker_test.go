package tracker

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReturnRoundTrip(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "returns.bin")
	track := NewReturn(filename)

	track.Track(1, 10, -97.5)
	track.Track(2, 14, -80.25)
	track.Track(3, 9, -60.0)
	require.NoError(t, track.Save())

	data, err := LoadData(filename)
	require.NoError(t, err)
	assert.Equal(t, []float64{-97.5, -80.25, -60.0}, data)
}

func TestEpisodeLengthRoundTrip(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "lengths.bin")
	track := NewEpisodeLength(filename)

	track.Track(1, 10, -97.5)
	track.Track(2, 14, -80.25)
	require.NoError(t, track.Save())

	data, err := LoadData(filename)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 14}, data)
}

func TestLoadDataMissingFile(t *testing.T) {
	_, err := LoadData(filepath.Join(t.TempDir(), "no-such-file.bin"))
	assert.Error(t, err)
}
