package expreplay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/cormackay/deepctrl/timestep"
)

// makeTransition creates a transition whose every field is derived from
// id, so sampled transitions can be traced back to their insertion
func makeTransition(id float64, featureSize, actionSize int,
	done bool) timestep.Transition {
	obs := mat.NewVecDense(featureSize, nil)
	nextObs := mat.NewVecDense(featureSize, nil)
	for i := 0; i < featureSize; i++ {
		obs.SetVec(i, id)
		nextObs.SetVec(i, id+0.5)
	}

	action := mat.NewVecDense(actionSize, nil)
	for i := 0; i < actionSize; i++ {
		action.SetVec(i, -id)
	}

	return timestep.NewTransition(obs, action, id, nextObs, done)
}

func TestSampleEmptyBuffer(t *testing.T) {
	buffer, err := New(5, 3, 2, 2, 1)
	require.NoError(t, err)

	_, _, _, _, _, err = buffer.Sample()
	require.Error(t, err)
	assert.True(t, IsEmptyBuffer(err))
}

func TestAddDimensionMismatch(t *testing.T) {
	buffer, err := New(5, 3, 2, 2, 1)
	require.NoError(t, err)

	err = buffer.Add(makeTransition(1, 4, 2, false))
	require.Error(t, err)
	assert.True(t, IsDimensionMismatch(err))

	err = buffer.Add(makeTransition(1, 3, 1, false))
	require.Error(t, err)
	assert.True(t, IsDimensionMismatch(err))

	// A failed Add leaves the buffer untouched
	assert.Equal(t, 0, buffer.Capacity())
}

func TestCapacityGrowsUntilFull(t *testing.T) {
	buffer, err := New(3, 2, 1, 1, 1)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, buffer.Add(makeTransition(float64(i), 2, 1, false)))
		expected := i + 1
		if expected > 3 {
			expected = 3
		}
		assert.Equal(t, expected, buffer.Capacity())
	}
	assert.Equal(t, 3, buffer.MaxCapacity())
}

// TestOverwritesOldest checks the circular overwrite: after capacity+k
// insertions, the k oldest transitions are gone and the k newest have
// taken their slots
func TestOverwritesOldest(t *testing.T) {
	buffer, err := New(4, 2, 1, 2, 1)
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		require.NoError(t, buffer.Add(makeTransition(float64(i), 2, 1,
			i%2 == 0)))
	}

	// Transitions 4 and 5 overwrote 0 and 1; 2 and 3 remain in place
	assert.Equal(t, []float64{4, 5, 2, 3}, buffer.rewardCache)
	assert.Equal(t, []float64{4, 4, 5, 5, 2, 2, 3, 3}, buffer.obsCache)
	assert.Equal(t, []float64{-4, -5, -2, -3}, buffer.actionCache)
	assert.Equal(t, []float64{1, 0, 1, 0}, buffer.doneCache)
	assert.Equal(t, 2, buffer.cursor)
	assert.Equal(t, 4, buffer.count)
}

// TestSampleParallelBatches checks that the five returned batches stay
// aligned: row i of every batch describes the same stored transition
func TestSampleParallelBatches(t *testing.T) {
	featureSize, actionSize, batchSize := 3, 2, 8

	buffer, err := New(10, featureSize, actionSize, batchSize, 42)
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		require.NoError(t, buffer.Add(makeTransition(float64(i), featureSize,
			actionSize, i == 5)))
	}

	obs, actions, rewards, nextObs, dones, err := buffer.Sample()
	require.NoError(t, err)
	assert.Len(t, obs, batchSize*featureSize)
	assert.Len(t, actions, batchSize*actionSize)
	assert.Len(t, rewards, batchSize)
	assert.Len(t, nextObs, batchSize*featureSize)
	assert.Len(t, dones, batchSize)

	for i := 0; i < batchSize; i++ {
		id := rewards[i]
		assert.GreaterOrEqual(t, id, 1.0)
		assert.LessOrEqual(t, id, 5.0)

		for j := 0; j < featureSize; j++ {
			assert.Equal(t, id, obs[i*featureSize+j])
			assert.Equal(t, id+0.5, nextObs[i*featureSize+j])
		}
		for j := 0; j < actionSize; j++ {
			assert.Equal(t, -id, actions[i*actionSize+j])
		}

		if id == 5.0 {
			assert.Equal(t, 1.0, dones[i])
		} else {
			assert.Equal(t, 0.0, dones[i])
		}
	}
}

// TestSampleWithReplacement checks that sampling works when the batch
// size exceeds the number of stored transitions
func TestSampleWithReplacement(t *testing.T) {
	buffer, err := New(10, 2, 1, 6, 7)
	require.NoError(t, err)

	require.NoError(t, buffer.Add(makeTransition(3, 2, 1, false)))

	_, _, rewards, _, _, err := buffer.Sample()
	require.NoError(t, err)
	for _, r := range rewards {
		assert.Equal(t, 3.0, r)
	}
}

func TestNewInvalidArguments(t *testing.T) {
	_, err := New(0, 2, 1, 1, 1)
	assert.Error(t, err)

	_, err = New(5, 0, 1, 1, 1)
	assert.Error(t, err)

	_, err = New(5, 2, 0, 1, 1)
	assert.Error(t, err)

	_, err = New(5, 2, 1, 0, 1)
	assert.Error(t, err)
}
