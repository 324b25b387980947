// Package network implements the function approximators used by
// learning agents. Networks are built on gorgonia computational
// graphs; a network's weights are adjusted either by a gorgonia solver
// (main networks) or by hard/soft synchronization from another network
// of the same architecture (target networks).
package network

import (
	"encoding/gob"

	G "gorgonia.org/gorgonia"
)

// NeuralNet implements a trainable, parameterized, differentiable
// mapping with a fixed input/output contract. Networks serialize with
// gob for checkpointing; Load reconstructs a serialized network.
type NeuralNet interface {
	gob.GobEncoder

	// Graph returns the computational graph the network was built on
	Graph() *G.ExprGraph

	// CloneWithBatch clones the network, including its current
	// weights, onto a fresh computational graph with a new input
	// batch size
	CloneWithBatch(int) (NeuralNet, error)

	BatchSize() int
	Features() int
	Outputs() int

	// Input returns the input node of the network
	Input() *G.Node

	// SetInput sets the value of the input node before the network's
	// graph is run
	SetInput([]float64) error

	// Set performs a hard synchronization, overwriting this network's
	// weights with those of source. Both networks must share an
	// architecture.
	Set(source NeuralNet) error

	// Polyak performs a soft synchronization, setting this network's
	// weights to tau*source + (1-tau)*current elementwise
	Polyak(source NeuralNet, tau float64) error

	// Learnables returns the nodes holding the network's weights
	Learnables() G.Nodes

	// Model returns the learnable nodes with their gradients, for
	// consumption by a gorgonia solver
	Model() []G.ValueGrad

	// Output returns the value of the network's prediction after its
	// graph has been run
	Output() G.Value

	// Prediction returns the node of the computational graph that
	// stores the network's prediction
	Prediction() *G.Node
}
