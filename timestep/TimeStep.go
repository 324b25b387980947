// Package timestep implements timesteps of the agent-environment interaction
package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StepType denotes the type of step that a TimeStep can be, either the first
// environmental step, a middle step, or a last step
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// TimeStep packages together a single timestep in an environment
type TimeStep struct {
	StepType
	Reward      float64
	Discount    float64
	Observation mat.Vector
	Number      int
}

func New(t StepType, r, d float64, o mat.Vector, n int) TimeStep {
	return TimeStep{t, r, d, o, n}
}

// IsFirst returns whether a TimeStep is the first in an environment
func (t *TimeStep) IsFirst() bool {
	return t.StepType == First
}

// IsMid returns whether a TimeStep is a middle step in an environment
func (t *TimeStep) IsMid() bool {
	return t.StepType == Mid
}

// IsLast returns whether a TimeStep is the last step in an environment
func (t *TimeStep) IsLast() bool {
	return t.StepType == Last
}

func (t TimeStep) String() string {
	str := "TimeStep | Type: %v  |  Reward:  %.2f  |  Discount: %.2f  |  " +
		"Step Number:  %v"

	return fmt.Sprintf(str, t.StepType, t.Reward, t.Discount, t.Number)
}

// Transition packages together a single environmental transition
// (S, A, R, S', done). The observation and action vectors are copied on
// construction so that a Transition never aliases mutable environment
// or agent state.
type Transition struct {
	Observation     mat.Vector
	Action          mat.Vector
	Reward          float64
	NextObservation mat.Vector
	Done            bool
}

// NewTransition packages an environmental transition, deep-copying the
// observation and action vectors.
func NewTransition(obs, action mat.Vector, reward float64,
	nextObs mat.Vector, done bool) Transition {
	return Transition{
		Observation:     copyVec(obs),
		Action:          copyVec(action),
		Reward:          reward,
		NextObservation: copyVec(nextObs),
		Done:            done,
	}
}

func copyVec(v mat.Vector) mat.Vector {
	c := mat.NewVecDense(v.Len(), nil)
	c.CopyVec(v)
	return c
}
