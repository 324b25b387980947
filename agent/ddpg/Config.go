package ddpg

import (
	"fmt"

	"github.com/cormackay/deepctrl/agent"
	env "github.com/cormackay/deepctrl/environment"
	"github.com/cormackay/deepctrl/initwfn"
	"github.com/cormackay/deepctrl/network"
	"github.com/cormackay/deepctrl/solver"
)

// Config implements a configuration for a DDPG agent
type Config struct {
	// Architecture of the hidden layers, shared by the policy and the
	// critic. The output layers (tanh-bounded action head for the
	// policy, linear scalar head for the critic) are added by the
	// network package.
	HiddenSizes []int
	Biases      []bool
	Activations []*network.Activation

	// Initialization algorithm for weights
	InitWFn *initwfn.InitWFn

	PolicySolver *solver.Solver // Adapts the policy weights
	CriticSolver *solver.Solver // Adapts the critic weights

	// Maximum L2 norm of the gradient for one update of each network.
	// A value <= 0 disables clipping.
	GradientClipPolicy float64
	GradientClipCritic float64

	BufferSize int // Replay buffer capacity
	BatchSize  int // Samples per learning step

	Gamma float64 // Discount factor for the critic's regression target
	Tau   float64 // Polyak averaging constant for target networks

	// ActionNoise is the standard deviation of the zero-mean Gaussian
	// exploration noise added to each action dimension in training
	// mode
	ActionNoise float64

	// StartSteps is the number of initial training steps during which
	// actions are sampled uniformly at random from the environment's
	// action range instead of from the policy
	StartSteps int
}

// NewDefaultConfig returns a Config with the hyperparameters the
// algorithm is conventionally run with.
func NewDefaultConfig() (Config, error) {
	init, err := initwfn.NewGlorotU(1.0)
	if err != nil {
		return Config{}, fmt.Errorf("newdefaultconfig: %v", err)
	}

	batchSize := 64

	policySolver, err := solver.NewDefaultAdam(1e-4, batchSize)
	if err != nil {
		return Config{}, fmt.Errorf("newdefaultconfig: %v", err)
	}
	criticSolver, err := solver.NewDefaultAdam(1e-3, batchSize)
	if err != nil {
		return Config{}, fmt.Errorf("newdefaultconfig: %v", err)
	}

	return Config{
		HiddenSizes: []int{128, 128},
		Biases:      []bool{true, true},
		Activations: []*network.Activation{network.ReLU(), network.ReLU()},
		InitWFn:     init,

		PolicySolver:       policySolver,
		CriticSolver:       criticSolver,
		GradientClipPolicy: 0.5,
		GradientClipCritic: 1.0,

		BufferSize: 10000,
		BatchSize:  batchSize,

		Gamma:       0.99,
		Tau:         0.005,
		ActionNoise: 0.1,
		StartSteps:  2000,
	}, nil
}

// Validate checks a Config to ensure it is a valid configuration of a
// DDPG agent.
func (c Config) Validate() error {
	if len(c.HiddenSizes) != len(c.Biases) {
		return fmt.Errorf("validate: invalid number of biases\n\twant(%v)"+
			"\n\thave(%v)", len(c.HiddenSizes), len(c.Biases))
	}

	if len(c.HiddenSizes) != len(c.Activations) {
		return fmt.Errorf("validate: invalid number of activations"+
			"\n\twant(%v)\n\thave(%v)", len(c.HiddenSizes),
			len(c.Activations))
	}

	if c.InitWFn == nil {
		return fmt.Errorf("validate: no weight initializer")
	}

	if c.PolicySolver == nil || c.CriticSolver == nil {
		return fmt.Errorf("validate: both policy and critic solvers are " +
			"required")
	}

	if c.BufferSize < 1 {
		return fmt.Errorf("validate: buffer size must be >= 1 \n\thave(%v)",
			c.BufferSize)
	}

	if c.BatchSize < 1 {
		return fmt.Errorf("validate: batch size must be >= 1 \n\thave(%v)",
			c.BatchSize)
	}

	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("validate: discount must be in [0, 1] "+
			"\n\thave(%v)", c.Gamma)
	}

	if c.Tau <= 0 || c.Tau > 1 {
		return fmt.Errorf("validate: tau must be in (0, 1] \n\thave(%v)",
			c.Tau)
	}

	if c.ActionNoise < 0 {
		return fmt.Errorf("validate: action noise scale cannot be negative"+
			" \n\thave(%v)", c.ActionNoise)
	}

	if c.StartSteps < 0 {
		return fmt.Errorf("validate: start steps cannot be negative"+
			" \n\thave(%v)", c.StartSteps)
	}

	return nil
}

// ValidAgent returns whether the agent is valid for the configuration.
// That is, whether Agent a can be constructed with Config c.
func (c Config) ValidAgent(a agent.Agent) bool {
	_, ok := a.(*DDPG)
	return ok
}

// CreateAgent creates a new DDPG agent based on the configuration
func (c Config) CreateAgent(e env.Environment, seed uint64) (agent.Agent,
	error) {
	return New(e, c, seed)
}
