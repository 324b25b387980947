// Package ddpg implements the Deep Deterministic Policy Gradient
// algorithm for continuous control.
//
// The agent maintains four function approximators: a deterministic
// policy, an action-value critic, and a slowly-tracking target copy of
// each. Transitions gathered from the environment are stored in a
// circular replay buffer; each learning step regresses the critic
// toward a bootstrapped target computed with the target networks and
// ascends the critic's estimate of the policy's own actions.
package ddpg

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/cormackay/deepctrl/environment"
	"github.com/cormackay/deepctrl/expreplay"
	"github.com/cormackay/deepctrl/network"
	"github.com/cormackay/deepctrl/solver"
	ts "github.com/cormackay/deepctrl/timestep"
	"github.com/cormackay/deepctrl/utils/floatutils"
)

// DDPG implements the Deep Deterministic Policy Gradient agent
type DDPG struct {
	env environment.Environment

	// Behaviour policy for single-observation action selection
	behaviour   network.NeuralNet
	behaviourVM G.VM

	// Policy whose weights are adapted. Its graph also contains a
	// frozen copy of the critic, wired to the policy's output node, so
	// that the policy loss -Q(s, π(s)) can be differentiated through
	// the policy alone.
	trainPolicy   network.NeuralNet
	policyCritic  network.NeuralNet
	policyVM      G.VM
	policySolver  G.Solver
	policyLossVal *G.Value

	// Critic whose weights are adapted
	trainCritic   network.NeuralNet
	criticVM      G.VM
	criticSolver  G.Solver
	backup        *G.Node
	criticLossVal *G.Value

	// Target networks, providing the update target. Never trained by
	// gradient descent; only overwritten by hard/soft synchronization.
	targetPolicy   network.NeuralNet
	targetPolicyVM G.VM
	targetCritic   network.NeuralNet
	targetCriticVM G.VM

	replay expreplay.ExperienceReplayer

	obsDim      int
	actionDims  int
	actionLimit float64

	gamma              float64
	tau                float64
	startSteps         int
	batchSize          int
	gradientClipPolicy float64
	gradientClipCritic float64

	noise distuv.Normal

	// steps counts environment interactions in training mode only; the
	// warm-up boundary is measured against this counter, so evaluation
	// episodes never advance the exploration schedule
	steps int
	eval  bool

	policyLosses []float64
	criticLosses []float64
	logs         map[string]float64
}

// New creates and returns a new DDPG agent interacting with e
func New(e environment.Environment, config Config, seed uint64) (*DDPG,
	error) {
	if e.ActionSpec().Cardinality != environment.Continuous {
		return nil, fmt.Errorf("ddpg: cannot use non-continuous actions")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	obsDim := e.ObservationSpec().Shape.Len()
	actionDims := e.ActionSpec().Shape.Len()

	// The action range must be symmetric about 0 so that a scaled tanh
	// output covers it exactly
	actionLimit := e.ActionSpec().UpperBound.AtVec(0)
	for i := 0; i < actionDims; i++ {
		upper := e.ActionSpec().UpperBound.AtVec(i)
		lower := e.ActionSpec().LowerBound.AtVec(i)
		if upper != actionLimit || lower != -actionLimit {
			return nil, fmt.Errorf("ddpg: action bounds must be "+
				"[-%v, %v] in every dimension \n\thave([%v, %v])",
				actionLimit, actionLimit, lower, upper)
		}
	}

	hiddenSizes := config.HiddenSizes
	biases := config.Biases
	activations := config.Activations
	init := config.InitWFn.InitWFn()
	batchSize := config.BatchSize

	// Critic training graph: MSE between the critic's estimate and the
	// externally computed regression target
	gCritic := G.NewGraph()
	trainCritic, err := network.NewCriticMLP(obsDim, actionDims, batchSize,
		gCritic, hiddenSizes, biases, init, activations, "critic")
	if err != nil {
		return nil, fmt.Errorf("ddpg: could not create critic: %v", err)
	}

	backup := G.NewMatrix(gCritic, tensor.Float64,
		G.WithShape(batchSize, 1), G.WithName("backup"))

	criticLoss := G.Must(G.Sub(trainCritic.Prediction(), backup))
	criticLoss = G.Must(G.Square(criticLoss))
	criticLoss = G.Must(G.Mean(criticLoss))

	criticLossVal := new(G.Value)
	G.Read(criticLoss, criticLossVal)

	if _, err := G.Grad(criticLoss, trainCritic.Learnables()...); err != nil {
		return nil, fmt.Errorf("ddpg: could not compute critic gradient: %v",
			err)
	}
	criticVM := G.NewTapeMachine(gCritic,
		G.BindDualValues(trainCritic.Learnables()...))

	// Policy training graph: the policy feeds a frozen critic copy,
	// and only the policy's learnables enter the gradient computation,
	// so the critic's parameters are read-only during the policy's
	// backward pass
	gPolicy := G.NewGraph()
	trainPolicy, err := network.NewPolicyMLP(obsDim, actionDims, batchSize,
		gPolicy, hiddenSizes, biases, init, activations, actionLimit,
		"policy")
	if err != nil {
		return nil, fmt.Errorf("ddpg: could not create policy: %v", err)
	}

	policyCritic, err := network.NewCriticMLPFromInputs(trainPolicy.Input(),
		trainPolicy.Prediction(), hiddenSizes, biases, init, activations,
		"critic")
	if err != nil {
		return nil, fmt.Errorf("ddpg: could not create policy-path critic:"+
			" %v", err)
	}

	policyLoss := G.Must(G.Mean(policyCritic.Prediction()))
	policyLoss = G.Must(G.Neg(policyLoss))

	policyLossVal := new(G.Value)
	G.Read(policyLoss, policyLossVal)

	if _, err := G.Grad(policyLoss, trainPolicy.Learnables()...); err != nil {
		return nil, fmt.Errorf("ddpg: could not compute policy gradient: %v",
			err)
	}
	policyVM := G.NewTapeMachine(gPolicy,
		G.BindDualValues(trainPolicy.Learnables()...))

	// Behaviour policy for action selection on single observations
	behaviourClone, err := trainPolicy.CloneWithBatch(1)
	if err != nil {
		return nil, fmt.Errorf("ddpg: could not create behaviour policy: %v",
			err)
	}
	behaviourVM := G.NewTapeMachine(behaviourClone.Graph())

	// Target networks
	targetPolicyClone, err := trainPolicy.CloneWithBatch(batchSize)
	if err != nil {
		return nil, fmt.Errorf("ddpg: could not create target policy: %v",
			err)
	}
	targetPolicyVM := G.NewTapeMachine(targetPolicyClone.Graph())

	targetCriticClone, err := trainCritic.CloneWithBatch(batchSize)
	if err != nil {
		return nil, fmt.Errorf("ddpg: could not create target critic: %v",
			err)
	}
	targetCriticVM := G.NewTapeMachine(targetCriticClone.Graph())

	// Initialize target parameters to match main parameters, and align
	// the frozen critic copy in the policy graph with the critic
	if err := targetPolicyClone.Set(trainPolicy); err != nil {
		return nil, fmt.Errorf("ddpg: could not initialize target policy:"+
			" %v", err)
	}
	if err := targetCriticClone.Set(trainCritic); err != nil {
		return nil, fmt.Errorf("ddpg: could not initialize target critic:"+
			" %v", err)
	}
	if err := policyCritic.Set(trainCritic); err != nil {
		return nil, fmt.Errorf("ddpg: could not initialize policy-path "+
			"critic: %v", err)
	}

	// Experience replay buffer
	replay, err := expreplay.New(config.BufferSize, obsDim, actionDims,
		batchSize, int64(seed))
	if err != nil {
		return nil, fmt.Errorf("ddpg: could not create experience replay "+
			"buffer: %v", err)
	}

	noise := distuv.Normal{
		Mu:    0,
		Sigma: config.ActionNoise,
		Src:   rand.NewSource(seed),
	}

	return &DDPG{
		env: e,

		behaviour:   behaviourClone,
		behaviourVM: behaviourVM,

		trainPolicy:   trainPolicy,
		policyCritic:  policyCritic,
		policyVM:      policyVM,
		policySolver:  config.PolicySolver.Solver,
		policyLossVal: policyLossVal,

		trainCritic:   trainCritic,
		criticVM:      criticVM,
		criticSolver:  config.CriticSolver.Solver,
		backup:        backup,
		criticLossVal: criticLossVal,

		targetPolicy:   targetPolicyClone,
		targetPolicyVM: targetPolicyVM,
		targetCritic:   targetCriticClone,
		targetCriticVM: targetCriticVM,

		replay: replay,

		obsDim:      obsDim,
		actionDims:  actionDims,
		actionLimit: actionLimit,

		gamma:              config.Gamma,
		tau:                config.Tau,
		startSteps:         config.StartSteps,
		batchSize:          batchSize,
		gradientClipPolicy: config.GradientClipPolicy,
		gradientClipCritic: config.GradientClipCritic,

		noise: noise,

		policyLosses: make([]float64, 0),
		criticLosses: make([]float64, 0),
		logs:         make(map[string]float64),
	}, nil
}

// SelectAction evaluates the policy on obs and returns an
// environment-ready action clipped to the legal action range. In
// training mode, independent zero-mean Gaussian noise is added to
// every action dimension before clipping; in evaluation mode the
// policy's output is returned unmodified except for the clipping.
func (d *DDPG) SelectAction(obs mat.Vector) (*mat.VecDense, error) {
	if obs.Len() != d.obsDim {
		return nil, fmt.Errorf("selectaction: observation dimension "+
			"mismatch \n\twant(%v)\n\thave(%v)", d.obsDim, obs.Len())
	}

	in := make([]float64, d.obsDim)
	for i := range in {
		in[i] = obs.AtVec(i)
	}
	if err := d.behaviour.SetInput(in); err != nil {
		return nil, fmt.Errorf("selectaction: %v", err)
	}

	if err := d.behaviourVM.RunAll(); err != nil {
		return nil, fmt.Errorf("selectaction: could not run policy: %v", err)
	}
	action := make([]float64, d.actionDims)
	copy(action, d.behaviour.Output().Data().([]float64))
	d.behaviourVM.Reset()

	if !d.eval {
		for i := range action {
			action[i] += d.noise.Rand()
		}
	}
	floatutils.ClipSlice(action, -d.actionLimit, d.actionLimit)

	return mat.NewVecDense(d.actionDims, action), nil
}

// Step performs a single learning update: one gradient step on the
// critic toward the bootstrapped regression target, one gradient step
// on the policy up the critic's estimate, and a soft synchronization
// of both target networks.
func (d *DDPG) Step() error {
	obs, actions, rewards, nextObs, dones, err := d.replay.Sample()
	if err != nil {
		return fmt.Errorf("step: could not sample buffer: %v", err)
	}

	// Target action for each next observation: π‾(s')
	if err := d.targetPolicy.SetInput(nextObs); err != nil {
		return fmt.Errorf("step: could not set target policy input: %v", err)
	}
	if err := d.targetPolicyVM.RunAll(); err != nil {
		return fmt.Errorf("step: could not run target policy: %v", err)
	}
	nextActions := make([]float64, d.batchSize*d.actionDims)
	copy(nextActions, d.targetPolicy.Output().Data().([]float64))
	d.targetPolicyVM.Reset()

	// Q‾(s', π‾(s'))
	targetIn := concatRows(nextObs, d.obsDim, nextActions, d.actionDims,
		d.batchSize)
	if err := d.targetCritic.SetInput(targetIn); err != nil {
		return fmt.Errorf("step: could not set target critic input: %v", err)
	}
	if err := d.targetCriticVM.RunAll(); err != nil {
		return fmt.Errorf("step: could not run target critic: %v", err)
	}
	qPiTarget := make([]float64, d.batchSize)
	copy(qPiTarget, d.targetCritic.Output().Data().([]float64))
	d.targetCriticVM.Reset()

	// Regression target for the critic, computed outside any graph so
	// it is a fixed label for this step
	backup := make([]float64, d.batchSize)
	for i := range backup {
		backup[i] = rewards[i] + d.gamma*(1-dones[i])*qPiTarget[i]
	}

	// Critic update
	criticIn := concatRows(obs, d.obsDim, actions, d.actionDims, d.batchSize)
	if err := d.trainCritic.SetInput(criticIn); err != nil {
		return fmt.Errorf("step: could not set critic input: %v", err)
	}
	backupTensor := tensor.New(tensor.WithBacking(backup),
		tensor.WithShape(d.batchSize, 1))
	if err := G.Let(d.backup, backupTensor); err != nil {
		return fmt.Errorf("step: could not set regression target: %v", err)
	}
	if err := d.criticVM.RunAll(); err != nil {
		return fmt.Errorf("step: could not run critic update: %v", err)
	}
	if err := solver.ClipNorm(d.trainCritic.Model(),
		d.gradientClipCritic); err != nil {
		return fmt.Errorf("step: could not clip critic gradient: %v", err)
	}
	if err := d.criticSolver.Step(d.trainCritic.Model()); err != nil {
		return fmt.Errorf("step: could not step critic solver: %v", err)
	}
	criticLoss := (*d.criticLossVal).Data().(float64)
	d.criticVM.Reset()

	// Policy update against the newly adapted critic, whose copy in
	// the policy graph stays fixed during the backward pass
	if err := d.policyCritic.Set(d.trainCritic); err != nil {
		return fmt.Errorf("step: could not sync policy-path critic: %v", err)
	}
	if err := d.trainPolicy.SetInput(obs); err != nil {
		return fmt.Errorf("step: could not set policy input: %v", err)
	}
	if err := d.policyVM.RunAll(); err != nil {
		return fmt.Errorf("step: could not run policy update: %v", err)
	}
	if err := solver.ClipNorm(d.trainPolicy.Model(),
		d.gradientClipPolicy); err != nil {
		return fmt.Errorf("step: could not clip policy gradient: %v", err)
	}
	if err := d.policySolver.Step(d.trainPolicy.Model()); err != nil {
		return fmt.Errorf("step: could not step policy solver: %v", err)
	}
	policyLoss := (*d.policyLossVal).Data().(float64)
	d.policyVM.Reset()

	if math.IsNaN(criticLoss) || math.IsInf(criticLoss, 0) ||
		math.IsNaN(policyLoss) || math.IsInf(policyLoss, 0) {
		return fmt.Errorf("step: non-finite loss \n\tpolicy(%v)"+
			"\n\tcritic(%v)", policyLoss, criticLoss)
	}

	// The behaviour policy follows the trained policy
	if err := d.behaviour.Set(d.trainPolicy); err != nil {
		return fmt.Errorf("step: could not sync behaviour policy: %v", err)
	}

	// Polyak averaging for target parameters
	if err := d.targetPolicy.Polyak(d.trainPolicy, d.tau); err != nil {
		return fmt.Errorf("step: could not sync target policy: %v", err)
	}
	if err := d.targetCritic.Polyak(d.trainCritic, d.tau); err != nil {
		return fmt.Errorf("step: could not sync target critic: %v", err)
	}

	d.policyLosses = append(d.policyLosses, policyLoss)
	d.criticLosses = append(d.criticLosses, criticLoss)

	return nil
}

// RunEpisode drives a single episode of environment interaction for at
// most maxStep steps, returning the number of steps taken and the
// total reward accumulated.
//
// In training mode, each interaction increments the agent's step
// counter, stores the transition, and, once more steps have been taken
// than the batch size, performs one learning step. Until the step
// counter exceeds the warm-up threshold, actions are sampled uniformly
// at random from the environment's action range for better
// exploration. In evaluation mode, the deterministic policy drives the
// environment and nothing is stored or learned.
func (d *DDPG) RunEpisode(maxStep int) (int, float64, error) {
	stepNumber := 0
	totalReward := 0.0

	step := d.env.Reset()
	obs := step.Observation
	done := false

	for !(done || stepNumber == maxStep) {
		var action *mat.VecDense
		var err error

		if d.eval {
			if action, err = d.SelectAction(obs); err != nil {
				return stepNumber, totalReward, err
			}

			step, done = d.env.Step(action)
		} else {
			d.steps++

			// Until StartSteps have elapsed, sample actions uniformly
			// at random for better exploration; afterwards, use the
			// learned policy
			if d.steps > d.startSteps {
				if action, err = d.SelectAction(obs); err != nil {
					return stepNumber, totalReward, err
				}
			} else {
				action = d.env.SampleAction()
			}

			step, done = d.env.Step(action)

			transition := ts.NewTransition(obs, action, step.Reward,
				step.Observation, done)
			if err := d.replay.Add(transition); err != nil {
				return stepNumber, totalReward, fmt.Errorf("runepisode: "+
					"could not store transition: %v", err)
			}

			// Start learning once there is more experience than one
			// batch
			if d.steps > d.batchSize {
				if err := d.Step(); err != nil {
					return stepNumber, totalReward, err
				}
			}
		}

		totalReward += step.Reward
		stepNumber++
		obs = step.Observation
	}

	d.logs["LossPi"] = round(floatutils.Mean(d.policyLosses), 5)
	d.logs["LossQ"] = round(floatutils.Mean(d.criticLosses), 5)

	return stepNumber, totalReward, nil
}

// Logs returns the named scalar values recorded at the end of the last
// episode
func (d *DDPG) Logs() map[string]float64 {
	return d.logs
}

// Eval sets the agent into evaluation mode
func (d *DDPG) Eval() {
	d.eval = true
}

// Train sets the agent into training mode
func (d *DDPG) Train() {
	d.eval = false
}

// IsEval returns whether the agent is in evaluation mode
func (d *DDPG) IsEval() bool {
	return d.eval
}

// TotalSteps returns the number of training-mode environment
// interactions the agent has taken
func (d *DDPG) TotalSteps() int {
	return d.steps
}

// Policy returns the agent's trained policy network, e.g. for
// checkpoint persistence
func (d *DDPG) Policy() network.NeuralNet {
	return d.trainPolicy
}

// concatRows concatenates two row-major batches along the feature
// dimension: row i of the result is row i of a followed by row i of b.
func concatRows(a []float64, aDim int, b []float64, bDim, batch int) []float64 {
	rowLen := aDim + bDim
	out := make([]float64, batch*rowLen)
	for i := 0; i < batch; i++ {
		copy(out[i*rowLen:], a[i*aDim:(i+1)*aDim])
		copy(out[i*rowLen+aDim:], b[i*bDim:(i+1)*bDim])
	}
	return out
}

// round rounds x to the given number of decimal places
func round(x float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	return math.Round(x*shift) / shift
}
