// Package experiment implements functionality for running an
// experiment: alternating phases of training interaction and held-out
// evaluation, with per-episode data tracked by Trackers and the agent's
// policy periodically persisted by Checkpointers.
package experiment

import (
	"fmt"
	"log/slog"

	"github.com/cormackay/deepctrl/agent"
	"github.com/cormackay/deepctrl/environment"
	"github.com/cormackay/deepctrl/experiment/checkpointer"
	"github.com/cormackay/deepctrl/experiment/tracker"
	"github.com/cormackay/deepctrl/utils/floatutils"
)

// Online runs an experiment as a sequence of iterations. Each iteration
// trains the agent for at least StepsPerIter environment steps (whole
// episodes only), then evaluates the deterministic policy for
// EvalEpisodes episodes without learning. Training episodes are
// reported to the registered Trackers; after each iteration the
// registered Checkpointers are offered the experiment's progress.
type Online struct {
	env   environment.Environment
	agent agent.Agent

	iterations   int
	stepsPerIter int
	maxStep      int
	evalEpisodes int

	trackers      []tracker.Tracker
	checkpointers []checkpointer.Checkpointer

	logger *slog.Logger

	totalSteps int
	episode    int
}

// NewOnline creates and returns a new Online experiment. A nil logger
// uses the default slog logger.
func NewOnline(env environment.Environment, a agent.Agent, iterations,
	stepsPerIter, maxStep, evalEpisodes int, trackers []tracker.Tracker,
	checkpointers []checkpointer.Checkpointer,
	logger *slog.Logger) (*Online, error) {
	if iterations < 1 || stepsPerIter < 1 || maxStep < 1 {
		return nil, fmt.Errorf("newonline: iterations (%v), steps per "+
			"iteration (%v), and max episode steps (%v) must be positive",
			iterations, stepsPerIter, maxStep)
	}
	if evalEpisodes < 0 {
		return nil, fmt.Errorf("newonline: evaluation episodes cannot be "+
			"negative \n\thave(%v)", evalEpisodes)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Online{
		env:   env,
		agent: a,

		iterations:   iterations,
		stepsPerIter: stepsPerIter,
		maxStep:      maxStep,
		evalEpisodes: evalEpisodes,

		trackers:      trackers,
		checkpointers: checkpointers,

		logger: logger,
	}, nil
}

// Register adds a new tracker.Tracker to the (possibly already
// running) experiment
func (o *Online) Register(t tracker.Tracker) {
	o.trackers = append(o.trackers, t)
}

// Run runs the full experiment: every iteration of training and
// evaluation, then saves all tracked data to disk.
func (o *Online) Run() error {
	for iter := 1; iter <= o.iterations; iter++ {
		trainReturn, trainEpisodes, err := o.train()
		if err != nil {
			return fmt.Errorf("run: iteration %v: %v", iter, err)
		}

		evalReturn, err := o.evaluate()
		if err != nil {
			return fmt.Errorf("run: iteration %v: %v", iter, err)
		}

		logs := o.agent.Logs()
		o.logger.Info("iteration complete",
			"iteration", iter,
			"totalSteps", o.totalSteps,
			"trainEpisodes", trainEpisodes,
			"trainReturn", trainReturn,
			"evalReturn", evalReturn,
			"lossPi", logs["LossPi"],
			"lossQ", logs["LossQ"],
		)

		status := checkpointer.Status{
			Iteration:     iter,
			TotalSteps:    o.totalSteps,
			AverageReturn: evalReturn,
		}
		for _, c := range o.checkpointers {
			if err := c.Checkpoint(status); err != nil {
				return fmt.Errorf("run: iteration %v: %v", iter, err)
			}
		}
	}

	return o.Save()
}

// train runs whole training episodes until at least stepsPerIter
// environment steps have elapsed, returning the average episodic
// return and the number of episodes run
func (o *Online) train() (float64, int, error) {
	o.agent.Train()

	stepsThisIter := 0
	episodes := 0
	returns := make([]float64, 0)

	for stepsThisIter < o.stepsPerIter {
		steps, totalReward, err := o.agent.RunEpisode(o.maxStep)
		if err != nil {
			return 0, episodes, fmt.Errorf("could not run training "+
				"episode: %v", err)
		}

		o.episode++
		stepsThisIter += steps
		o.totalSteps += steps
		returns = append(returns, totalReward)

		for _, t := range o.trackers {
			t.Track(o.episode, steps, totalReward)
		}
	}
	episodes = len(returns)

	return floatutils.Mean(returns), episodes, nil
}

// evaluate runs evaluation episodes with the deterministic policy and
// returns the average episodic return. The agent is left in training
// mode.
func (o *Online) evaluate() (float64, error) {
	if o.evalEpisodes == 0 {
		return 0, nil
	}

	o.agent.Eval()
	defer o.agent.Train()

	returns := make([]float64, o.evalEpisodes)
	for i := range returns {
		_, totalReward, err := o.agent.RunEpisode(o.maxStep)
		if err != nil {
			return 0, fmt.Errorf("could not run evaluation episode: %v", err)
		}
		returns[i] = totalReward
	}

	return floatutils.Mean(returns), nil
}

// Save saves all tracked data to disk
func (o *Online) Save() error {
	for _, t := range o.trackers {
		if err := t.Save(); err != nil {
			return fmt.Errorf("save: %v", err)
		}
	}
	return nil
}

// TotalSteps returns the total number of training environment steps
// taken so far
func (o *Online) TotalSteps() int {
	return o.totalSteps
}
