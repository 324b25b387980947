// Package checkpointer implements periodic persistence of serializable
// objects, keyed by the progress of the experiment that owns them.
package checkpointer

import (
	"encoding/gob"
)

// Serializable is an object that can be saved/serialized
type Serializable interface {
	gob.GobEncoder
}

// Status describes the progress of an experiment at the point a
// checkpoint is considered
type Status struct {
	Iteration     int     // Completed training iterations
	TotalSteps    int     // Total environment steps taken so far
	AverageReturn float64 // Average evaluation return at this iteration
}

// Checkpointer checkpoints/saves serializable objects based on
// experiment progress
type Checkpointer interface {
	Checkpoint(Status) error
}
