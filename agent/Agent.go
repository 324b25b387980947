// Package agent defines an agent interface
package agent

import (
	"gonum.org/v1/gonum/mat"

	"github.com/cormackay/deepctrl/environment"
)

// Agent determines the implementation details of an agent or
// algorithm.
//
// An Agent is composed of a Learner, which adapts the weights of the
// agent's function approximators, and a Policy, which chooses actions
// in each state. The interaction loop that drives an episode of
// environment interaction is owned by the Agent as well, since the
// learning cadence and the exploration schedule are both functions of
// the agent's internal step counter.
type Agent interface {
	Learner
	Policy

	// RunEpisode drives a single episode of environment interaction,
	// for at most maxStep steps, and returns the number of steps taken
	// and the total reward accumulated over the episode
	RunEpisode(maxStep int) (int, float64, error)

	// Logs returns the named scalar values the agent recorded during
	// its last episode, for external reporting
	Logs() map[string]float64
}

// Learner implements a learning algorithm that defines how weights are
// updated.
type Learner interface {
	// Step performs a single update to the learner
	Step() error
}

// Policy represents a policy that an agent can have.
//
// Policies determine how agents select actions. In training mode a
// policy is free to explore; in evaluation mode action selection is
// deterministic.
type Policy interface {
	SelectAction(obs mat.Vector) (*mat.VecDense, error)
	Eval()        // Set policy to evaluation mode
	Train()       // Set policy to training mode
	IsEval() bool // Indicates if in evaluation mode
}

// Config represents a configuration of an agent, from which the agent
// can be constructed.
type Config interface {
	// CreateAgent creates the agent described by the Config on the
	// given environment
	CreateAgent(env environment.Environment, seed uint64) (Agent, error)

	// ValidAgent returns whether the argument agent can be constructed
	// with this Config
	ValidAgent(Agent) bool

	// Validate ensures that the Config is a valid configuration
	Validate() error
}
