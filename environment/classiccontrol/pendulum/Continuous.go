package pendulum

import (
	"gonum.org/v1/gonum/mat"

	"github.com/cormackay/deepctrl/environment"
	"github.com/cormackay/deepctrl/timestep"
	"github.com/cormackay/deepctrl/utils/floatutils"
)

// Continuous implements the pendulum environment with continuous,
// 1-dimensional actions: the torque applied to the pendulum at its
// fixed base. Actions outside [MinContinuousAction,
// MaxContinuousAction] are clipped to stay within this range.
//
// Continuous implements the environment.Environment interface
type Continuous struct {
	*base
}

// NewContinuous creates and returns a new Continuous pendulum
// environment
func NewContinuous(t environment.Task, discount float64,
	seed uint64) (*Continuous, timestep.TimeStep) {
	baseEnv, firstStep := newBase(t, discount, seed)

	return &Continuous{baseEnv}, firstStep
}

// Step takes one environmental step given action a and returns the
// next timestep and a bool indicating whether or not the episode has
// ended
func (p *Continuous) Step(action *mat.VecDense) (timestep.TimeStep, bool) {
	if action.Len() != ActionDims {
		panic("step: actions should be 1-dimensional")
	}

	torque := floatutils.Clip(action.AtVec(0), MinContinuousAction,
		MaxContinuousAction)

	nextState := p.nextState(p.lastStep, torque)

	return p.update(action, nextState)
}

// ActionSpec returns the action specification of the environment
func (p *Continuous) ActionSpec() environment.Spec {
	shape := mat.NewVecDense(ActionDims, nil)

	minAction, maxAction := p.torqueBounds.Min, p.torqueBounds.Max
	lowerBound := mat.NewVecDense(ActionDims, []float64{minAction})
	upperBound := mat.NewVecDense(ActionDims, []float64{maxAction})

	return environment.NewSpec(shape, environment.Action, lowerBound,
		upperBound, environment.Continuous)
}
