// Package expreplay implements the experience replay buffer used for
// off-policy learning.
package expreplay

import (
	"fmt"
	"math/rand"

	"github.com/cormackay/deepctrl/timestep"
)

// ExperienceReplayer implements an experience replay buffer
type ExperienceReplayer interface {
	// Add adds a transition to the buffer
	Add(t timestep.Transition) error

	// Sample samples a batch of experience from the buffer and returns
	// the batch as five parallel, flat []float64: observations,
	// actions, rewards, next observations, and done flags (0 or 1)
	Sample() ([]float64, []float64, []float64, []float64, []float64, error)

	// Capacity returns the current number of samples in the buffer
	Capacity() int

	// MaxCapacity returns the maximum allowable samples in the buffer
	MaxCapacity() int

	// BatchSize returns the number of samples returned by Sample()
	BatchSize() int
}

// Buffer implements a fixed-capacity circular experience replay
// buffer. Once the buffer is full, insertion overwrites the oldest
// transition, so memory use and the staleness of retained experience
// are both bounded. Sampling draws indices uniformly at random with
// replacement from the populated portion of the buffer.
type Buffer struct {
	obsCache     []float64
	actionCache  []float64
	rewardCache  []float64
	nextObsCache []float64
	doneCache    []float64

	// cursor is the index of the next slot to write into; count is the
	// number of populated slots. Invariant: count <= maxCapacity.
	cursor int
	count  int

	maxCapacity int
	featureSize int
	actionSize  int
	batchSize   int

	rng *rand.Rand
}

// New creates and returns a new circular experience replay buffer
// holding at most maxCapacity transitions of featureSize-dimensional
// observations and actionSize-dimensional actions. Sample() returns
// batchSize transitions drawn with the given seed's RNG.
func New(maxCapacity, featureSize, actionSize, batchSize int,
	seed int64) (*Buffer, error) {
	if maxCapacity < 1 {
		return nil, fmt.Errorf("new: maxCapacity must be >= 1")
	}
	if featureSize < 1 || actionSize < 1 {
		return nil, fmt.Errorf("new: feature size (%v) and action size "+
			"(%v) must be positive", featureSize, actionSize)
	}
	if batchSize < 1 {
		return nil, fmt.Errorf("new: batch size must be >= 1")
	}

	source := rand.NewSource(seed)

	return &Buffer{
		obsCache:     make([]float64, maxCapacity*featureSize),
		actionCache:  make([]float64, maxCapacity*actionSize),
		rewardCache:  make([]float64, maxCapacity),
		nextObsCache: make([]float64, maxCapacity*featureSize),
		doneCache:    make([]float64, maxCapacity),

		maxCapacity: maxCapacity,
		featureSize: featureSize,
		actionSize:  actionSize,
		batchSize:   batchSize,

		rng: rand.New(source),
	}, nil
}

// String returns the string representation of the Buffer
func (b *Buffer) String() string {
	baseStr := "Count: %v \nCursor: %v \nObservations: %v \nActions: %v " +
		"\nRewards: %v \nNext Observations: %v \nDone: %v"
	return fmt.Sprintf(baseStr, b.count, b.cursor, b.obsCache, b.actionCache,
		b.rewardCache, b.nextObsCache, b.doneCache)
}

// Add adds a transition to the buffer, overwriting the oldest
// transition if the buffer is at capacity. Add fails only if the
// transition's dimensions do not match those the buffer was built for.
func (b *Buffer) Add(t timestep.Transition) error {
	if t.Observation.Len() != b.featureSize ||
		t.NextObservation.Len() != b.featureSize {
		return &ExpReplayError{Op: "add", Err: errDimensionMismatch}
	}
	if t.Action.Len() != b.actionSize {
		return &ExpReplayError{Op: "add", Err: errDimensionMismatch}
	}

	obsInd := b.cursor * b.featureSize
	for i := 0; i < b.featureSize; i++ {
		b.obsCache[obsInd+i] = t.Observation.AtVec(i)
		b.nextObsCache[obsInd+i] = t.NextObservation.AtVec(i)
	}

	actionInd := b.cursor * b.actionSize
	for i := 0; i < b.actionSize; i++ {
		b.actionCache[actionInd+i] = t.Action.AtVec(i)
	}

	b.rewardCache[b.cursor] = t.Reward
	if t.Done {
		b.doneCache[b.cursor] = 1.0
	} else {
		b.doneCache[b.cursor] = 0.0
	}

	b.cursor = (b.cursor + 1) % b.maxCapacity
	if b.count < b.maxCapacity {
		b.count++
	}

	return nil
}

// Sample samples and returns a batch of transitions from the buffer.
// Indices are drawn uniformly at random with replacement, so the batch
// size may exceed the current number of stored transitions. Sampling
// an empty buffer is an error.
func (b *Buffer) Sample() ([]float64, []float64, []float64, []float64,
	[]float64, error) {
	if b.count == 0 {
		err := &ExpReplayError{
			Op:  "sample",
			Err: errEmptyBuffer,
		}
		return nil, nil, nil, nil, nil, err
	}

	indices := make([]int, b.batchSize)
	for i := range indices {
		indices[i] = b.rng.Intn(b.count)
	}

	obsBatch := make([]float64, b.batchSize*b.featureSize)
	nextObsBatch := make([]float64, b.batchSize*b.featureSize)
	for i, index := range indices {
		batchStartInd := i * b.featureSize
		expStartInd := index * b.featureSize
		copy(obsBatch[batchStartInd:batchStartInd+b.featureSize],
			b.obsCache[expStartInd:expStartInd+b.featureSize],
		)
		copy(nextObsBatch[batchStartInd:batchStartInd+b.featureSize],
			b.nextObsCache[expStartInd:expStartInd+b.featureSize],
		)
	}

	actionBatch := make([]float64, b.batchSize*b.actionSize)
	for i, index := range indices {
		batchStartInd := i * b.actionSize
		expStartInd := index * b.actionSize
		copy(actionBatch[batchStartInd:batchStartInd+b.actionSize],
			b.actionCache[expStartInd:expStartInd+b.actionSize],
		)
	}

	rewardBatch := make([]float64, b.batchSize)
	doneBatch := make([]float64, b.batchSize)
	for i, index := range indices {
		rewardBatch[i] = b.rewardCache[index]
		doneBatch[i] = b.doneCache[index]
	}

	return obsBatch, actionBatch, rewardBatch, nextObsBatch, doneBatch, nil
}

// Capacity returns the current number of transitions in the buffer
// that are available for sampling
func (b *Buffer) Capacity() int {
	return b.count
}

// MaxCapacity returns the maximum number of transitions that are
// allowed in the buffer
func (b *Buffer) MaxCapacity() int {
	return b.maxCapacity
}

// BatchSize returns the number of samples sampled using Sample()
func (b *Buffer) BatchSize() int {
	return b.batchSize
}
