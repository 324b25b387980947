package checkpointer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// constObject serializes to a fixed payload and counts encodings
type constObject struct {
	payload []byte
	encoded int
}

func (c *constObject) GobEncode() ([]byte, error) {
	c.encoded++
	return c.payload, nil
}

func TestNIterCadence(t *testing.T) {
	dir := t.TempDir()
	object := &constObject{payload: []byte("weights")}

	check, err := NewNIter(2, object, Keyed(dir, "Pendulum", "DDPG", 14))
	require.NoError(t, err)

	// Off-cadence iterations write nothing
	require.NoError(t, check.Checkpoint(Status{Iteration: 1, TotalSteps: 100}))
	assert.Equal(t, 0, object.encoded)

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, files)

	// On-cadence iterations write one file keyed by progress
	status := Status{Iteration: 2, TotalSteps: 200, AverageReturn: -3.14159}
	require.NoError(t, check.Checkpoint(status))
	assert.Equal(t, 1, object.encoded)

	expected := filepath.Join(dir, "Pendulum_DDPG_s14_i2_st200_r-3.1.bin")
	data, err := os.ReadFile(expected)
	require.NoError(t, err)
	assert.Equal(t, []byte("weights"), data)
}

func TestNIterDistinctFilenames(t *testing.T) {
	dir := t.TempDir()
	object := &constObject{payload: []byte("weights")}

	check, err := NewNIter(1, object, Keyed(dir, "Pendulum", "DDPG", 14))
	require.NoError(t, err)

	require.NoError(t, check.Checkpoint(Status{Iteration: 1, TotalSteps: 10}))
	require.NoError(t, check.Checkpoint(Status{Iteration: 2, TotalSteps: 20}))

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestNIterInvalidInterval(t *testing.T) {
	_, err := NewNIter(0, &constObject{}, Keyed(t.TempDir(), "e", "a", 1))
	assert.Error(t, err)
}
