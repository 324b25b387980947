// Command deepctrl trains a DDPG agent on the pendulum swing-up task,
// periodically evaluating the deterministic policy and checkpointing
// its weights.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/spatial/r1"

	"github.com/cormackay/deepctrl/agent/ddpg"
	"github.com/cormackay/deepctrl/environment"
	"github.com/cormackay/deepctrl/environment/classiccontrol/pendulum"
	"github.com/cormackay/deepctrl/experiment"
	"github.com/cormackay/deepctrl/experiment/checkpointer"
	"github.com/cormackay/deepctrl/experiment/tracker"
	"github.com/cormackay/deepctrl/solver"
)

func main() {
	var (
		seed = flag.Uint64("seed", 14, "random seed for the environment, "+
			"agent, and replay buffer")

		iterations = flag.Int("iterations", 200, "number of training "+
			"iterations")
		stepsPerIter = flag.Int("steps-per-iter", 2000, "minimum number of "+
			"environment steps per training iteration")
		maxStep = flag.Int("max-step", 200, "maximum number of steps per "+
			"episode")
		evalEpisodes = flag.Int("eval-episodes", 10, "number of evaluation "+
			"episodes per iteration")
		checkpointEvery = flag.Int("checkpoint-every", 20, "iterations "+
			"between policy checkpoints")
		saveDir = flag.String("save-dir", "results", "directory for tracked "+
			"data and checkpoints")

		policyLR = flag.Float64("policy-lr", 1e-4, "policy learning rate")
		criticLR = flag.Float64("critic-lr", 1e-3, "critic learning rate")
		gamma    = flag.Float64("gamma", 0.99, "discount factor")
		tau      = flag.Float64("tau", 0.005, "Polyak averaging constant "+
			"for target networks")
		actionNoise = flag.Float64("action-noise", 0.1, "standard deviation "+
			"of Gaussian exploration noise")
		startSteps = flag.Int("start-steps", 2000, "steps of uniform random "+
			"exploration before the policy takes over")
		bufferSize = flag.Int("buffer-size", 10000, "replay buffer capacity")
		batchSize  = flag.Int("batch-size", 64, "samples per learning step")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	config, err := ddpg.NewDefaultConfig()
	if err != nil {
		logger.Error("could not create agent configuration", "error", err)
		os.Exit(1)
	}
	config.Gamma = *gamma
	config.Tau = *tau
	config.ActionNoise = *actionNoise
	config.StartSteps = *startSteps
	config.BufferSize = *bufferSize
	config.BatchSize = *batchSize
	if config.PolicySolver, err = solver.NewDefaultAdam(*policyLR,
		*batchSize); err != nil {
		logger.Error("could not create policy solver", "error", err)
		os.Exit(1)
	}
	if config.CriticSolver, err = solver.NewDefaultAdam(*criticLR,
		*batchSize); err != nil {
		logger.Error("could not create critic solver", "error", err)
		os.Exit(1)
	}

	if err := run(config, *seed, *iterations, *stepsPerIter, *maxStep,
		*evalEpisodes, *checkpointEvery, *saveDir, logger); err != nil {
		logger.Error("experiment failed", "error", err)
		os.Exit(1)
	}
}

func run(config ddpg.Config, seed uint64, iterations, stepsPerIter, maxStep,
	evalEpisodes, checkpointEvery int, saveDir string,
	logger *slog.Logger) error {
	if err := os.MkdirAll(saveDir, 0755); err != nil {
		return fmt.Errorf("could not create save directory: %v", err)
	}

	// Episodes start at a uniformly random angle with a small angular
	// velocity
	starter := environment.NewUniformStarter([]r1.Interval{
		{Min: -pendulum.AngleBound, Max: pendulum.AngleBound},
		{Min: -1.0, Max: 1.0},
	}, seed)
	task := pendulum.NewSwingUp(starter, maxStep)
	env, _ := pendulum.NewContinuous(task, 1.0, seed)

	a, err := config.CreateAgent(env, seed)
	if err != nil {
		return fmt.Errorf("could not create agent: %v", err)
	}

	trackers := []tracker.Tracker{
		tracker.NewReturn(filepath.Join(saveDir, "returns.bin")),
		tracker.NewEpisodeLength(filepath.Join(saveDir, "lengths.bin")),
	}

	check, err := checkpointer.NewNIter(checkpointEvery,
		a.(*ddpg.DDPG).Policy(),
		checkpointer.Keyed(saveDir, "Pendulum", "DDPG", seed))
	if err != nil {
		return fmt.Errorf("could not create checkpointer: %v", err)
	}

	exp, err := experiment.NewOnline(env, a, iterations, stepsPerIter,
		maxStep, evalEpisodes, trackers,
		[]checkpointer.Checkpointer{check}, logger)
	if err != nil {
		return fmt.Errorf("could not create experiment: %v", err)
	}

	logger.Info("starting experiment",
		"environment", "Pendulum",
		"algorithm", "DDPG",
		"seed", seed,
		"iterations", iterations,
		"stepsPerIter", stepsPerIter,
	)

	return exp.Run()
}
