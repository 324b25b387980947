// Package environment outlines the interfaces and structs needed to
// implement concrete environments
package environment

import (
	"gonum.org/v1/gonum/mat"

	"github.com/cormackay/deepctrl/timestep"
)

// Starter implements a distribution of starting states and samples
// starting states for environments
type Starter interface {
	Start() mat.Vector
}

// Ender determines when an episode ends. If the episode should end,
// End modifies the timestep so that its StepType field is
// timestep.Last.
type Ender interface {
	End(*timestep.TimeStep) bool
}

// Task implements the reward scheme for taking actions in some
// environment, along with the starting-state distribution and the
// episode-ending conditions
type Task interface {
	Starter
	Ender

	// GetReward returns the reward for taking an action in some state,
	// leading to some next state
	GetReward(state, action, nextState mat.Vector) float64

	// AtGoal returns whether the argument state is a goal state
	AtGoal(state mat.Matrix) bool
}

// Environment implements a simulated environment that an agent
// interacts with. Observations and actions are dense vectors whose
// dimensions and bounds are described by the environment's Specs.
type Environment interface {
	// Reset resets the environment between episodes and returns the
	// first timestep of the new episode
	Reset() timestep.TimeStep

	// Step takes one environmental step given an action and returns
	// the next timestep and whether the episode has ended. Actions
	// outside the environment's action bounds are clipped.
	Step(action *mat.VecDense) (timestep.TimeStep, bool)

	// ObservationSpec describes the shape and bounds of observations
	ObservationSpec() Spec

	// ActionSpec describes the shape and bounds of legal actions
	ActionSpec() Spec

	// SampleAction draws an action uniformly at random from the
	// environment's legal action range
	SampleAction() *mat.VecDense
}
