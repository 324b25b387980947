package checkpointer

import (
	"fmt"
	"os"
	"path/filepath"
)

// nIter implements checkpointing every N iterations
type nIter struct {
	interval int
	object   Serializable // Object to save

	// filename returns the filename to save the object in, derived
	// from the experiment's progress so that successive checkpoints
	// never overwrite each other. Use Keyed to generate a naming
	// function that encodes the environment, algorithm, seed, and
	// progress into the filename.
	filename func(Status) string
}

// NewNIter returns a checkpointer that saves its object every n
// completed iterations.
func NewNIter(n int, object Serializable,
	filename func(Status) string) (Checkpointer, error) {
	if n < 1 {
		return nil, fmt.Errorf("newniter: interval must be >= 1 \n\thave(%v)",
			n)
	}
	return &nIter{
		interval: n,
		object:   object,
		filename: filename,
	}, nil
}

// Checkpoint serializes the tracked object to disk if the status marks
// an iteration on the checkpointer's cadence
func (n *nIter) Checkpoint(status Status) error {
	if status.Iteration%n.interval != 0 {
		return nil
	}

	data, err := n.object.GobEncode()
	if err != nil {
		return fmt.Errorf("checkpoint: could not serialize object: %v", err)
	}

	filename := n.filename(status)
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("checkpoint: could not write %v: %v", filename, err)
	}
	return nil
}

// Keyed returns a filename function that keys each checkpoint by the
// environment name, algorithm name, seed, and the experiment's
// progress, placing the files under dir.
func Keyed(dir, envName, algorithm string, seed uint64) func(Status) string {
	return func(s Status) string {
		name := fmt.Sprintf("%v_%v_s%v_i%v_st%v_r%.1f.bin", envName,
			algorithm, seed, s.Iteration, s.TotalSteps, s.AverageReturn)
		return filepath.Join(dir, name)
	}
}
