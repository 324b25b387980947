package network

import (
	"bytes"
	"encoding/gob"
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// mlp implements a multi-layered perceptron with a single prediction
// head. The same implementation backs both policy-shaped networks
// (observation in, bounded action out) and critic-shaped networks
// (observation ⧺ action in, scalar value estimate out).
type mlp struct {
	g          *G.ExprGraph
	layers     []Layer
	input      *G.Node
	numOutputs int
	numInputs  int
	batchSize  int

	// scale is the saturating output bound: the final prediction is
	// multiplied by scale after the last activation. Policy networks
	// use a tanh final activation with scale equal to the action
	// limit; critic networks use scale 1 with an identity final
	// activation.
	scale float64

	// Architecture data, needed for cloning and gobbing
	hiddenSizes []int
	biases      []bool
	activations []*Activation
	prefix      string

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    G.Value
}

// NewPolicyMLP creates and returns a policy-shaped MLP that maps
// batches of features-dimensional observations to actions-dimensional
// actions in [-actionLimit, actionLimit]. The bound is enforced by a
// final tanh layer scaled by actionLimit. The graph g is populated
// with the MLP, and layer node names are prefixed with prefix.
func NewPolicyMLP(features, actions, batch int, g *G.ExprGraph,
	hiddenSizes []int, biases []bool, init G.InitWFn,
	activations []*Activation, actionLimit float64,
	prefix string) (NeuralNet, error) {
	if actionLimit <= 0 {
		return nil, fmt.Errorf("newpolicymlp: action limit must be "+
			"positive \n\thave(%v)", actionLimit)
	}

	// Final layer saturates to ±1 before scaling to the action bounds
	hiddenSizes = append(append([]int{}, hiddenSizes...), actions)
	biases = append(append([]bool{}, biases...), true)
	activations = append(append([]*Activation{}, activations...), TanH())

	input := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, features),
		G.WithName(prefix+"Input"), G.WithInit(G.Zeroes()))

	return newMLP(input, features, actions, actionLimit, g, hiddenSizes,
		biases, init, activations, prefix)
}

// NewCriticMLP creates and returns a critic-shaped MLP that maps
// batches of concatenated observation-action vectors to scalar value
// estimates. Callers provide the observation and action portions of
// the input already concatenated, observation first.
func NewCriticMLP(obsFeatures, actionFeatures, batch int, g *G.ExprGraph,
	hiddenSizes []int, biases []bool, init G.InitWFn,
	activations []*Activation, prefix string) (NeuralNet, error) {
	features := obsFeatures + actionFeatures

	// Final linear layer predicts the scalar action value
	hiddenSizes = append(append([]int{}, hiddenSizes...), 1)
	biases = append(append([]bool{}, biases...), true)
	activations = append(append([]*Activation{}, activations...), Identity())

	input := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, features),
		G.WithName(prefix+"Input"), G.WithInit(G.Zeroes()))

	return newMLP(input, features, 1, 1.0, g, hiddenSizes, biases, init,
		activations, prefix)
}

// NewCriticMLPFromInputs creates a critic-shaped MLP whose input is
// the in-graph concatenation of the given observation and action
// nodes. This is used to wire a critic to a policy's output node so
// that the policy loss -Q(s, π(s)) can be differentiated through the
// policy while the critic's own weights stay out of the gradient
// computation.
func NewCriticMLPFromInputs(obs, action *G.Node, hiddenSizes []int,
	biases []bool, init G.InitWFn, activations []*Activation,
	prefix string) (NeuralNet, error) {
	if obs.Graph() != action.Graph() {
		return nil, fmt.Errorf("newcriticmlpfrominputs: observation and " +
			"action nodes must share a graph")
	}
	if !obs.IsMatrix() || !action.IsMatrix() {
		return nil, fmt.Errorf("newcriticmlpfrominputs: inputs must be " +
			"matrix nodes")
	}

	input := G.Must(G.Concat(1, obs, action))
	features := input.Shape()[1]

	hiddenSizes = append(append([]int{}, hiddenSizes...), 1)
	biases = append(append([]bool{}, biases...), true)
	activations = append(append([]*Activation{}, activations...), Identity())

	return newMLP(input, features, 1, 1.0, obs.Graph(), hiddenSizes, biases,
		init, activations, prefix)
}

// newMLP constructs the MLP on a pre-built input node. The hiddenSizes,
// biases, and activations arguments describe every layer, including
// the final prediction layer.
func newMLP(input *G.Node, features, outputs int, scale float64,
	g *G.ExprGraph, hiddenSizes []int, biases []bool, init G.InitWFn,
	activations []*Activation, prefix string) (*mlp, error) {
	if len(hiddenSizes) != len(activations) {
		return nil, fmt.Errorf("newmlp: invalid number of activations"+
			"\n\twant(%d)\n\thave(%d)", len(hiddenSizes), len(activations))
	}
	if len(hiddenSizes) != len(biases) {
		return nil, fmt.Errorf("newmlp: invalid number of biases"+
			"\n\twant(%d)\n\thave(%d)", len(hiddenSizes), len(biases))
	}
	if !input.IsMatrix() {
		return nil, fmt.Errorf("newmlp: input must be a matrix node")
	}

	batch := input.Shape()[0]
	layers := makeLayers(g, features, hiddenSizes, biases, activations, init,
		prefix)

	network := &mlp{
		g:           g,
		layers:      layers,
		input:       input,
		numOutputs:  outputs,
		numInputs:   features,
		batchSize:   batch,
		scale:       scale,
		hiddenSizes: hiddenSizes,
		biases:      biases,
		activations: activations,
		prefix:      prefix,
	}
	if err := network.fwd(input); err != nil {
		return nil, fmt.Errorf("newmlp: could not compute forward pass: %v",
			err)
	}

	return network, nil
}

// fwd performs the forward pass of the mlp on the input node
func (e *mlp) fwd(input *G.Node) error {
	pred := input
	var err error
	for i, l := range e.layers {
		if pred, err = l.fwd(pred); err != nil {
			return fmt.Errorf("fwd: could not compute forward pass of "+
				"layer %v: %v", i, err)
		}
	}

	if e.scale != 1.0 {
		pred = G.Must(G.Mul(pred, G.NewConstant(e.scale)))
	}

	e.prediction = pred
	G.Read(e.prediction, &e.predVal)

	return nil
}

// Graph returns the computational graph of the mlp
func (e *mlp) Graph() *G.ExprGraph {
	return e.g
}

// CloneWithBatch clones the mlp, including its current weights, onto a
// new computational graph with a new input batch size.
func (e *mlp) CloneWithBatch(batchSize int) (NeuralNet, error) {
	graph := G.NewGraph()

	input := G.NewMatrix(
		graph,
		tensor.Float64,
		G.WithShape(batchSize, e.numInputs),
		G.WithName(e.prefix+"Input"),
		G.WithInit(G.Zeroes()),
	)

	layers := make([]Layer, len(e.layers))
	for i := range e.layers {
		layers[i] = e.layers[i].CloneTo(graph)
	}

	network := &mlp{
		g:           graph,
		layers:      layers,
		input:       input,
		numOutputs:  e.numOutputs,
		numInputs:   e.numInputs,
		batchSize:   batchSize,
		scale:       e.scale,
		hiddenSizes: e.hiddenSizes,
		biases:      e.biases,
		activations: e.activations,
		prefix:      e.prefix,
	}
	if err := network.fwd(input); err != nil {
		return nil, fmt.Errorf("clonewithbatch: could not clone: %v", err)
	}

	return network, nil
}

// BatchSize returns the batch size of inputs to the network
func (e *mlp) BatchSize() int {
	return e.batchSize
}

// Features returns the number of features in a single input vector
func (e *mlp) Features() int {
	return e.numInputs
}

// Outputs returns the number of outputs of the network
func (e *mlp) Outputs() int {
	return e.numOutputs
}

// Input returns the input node of the network
func (e *mlp) Input() *G.Node {
	return e.input
}

// SetInput sets the value of the input node before running the
// network's graph.
func (e *mlp) SetInput(input []float64) error {
	if len(input) != e.numInputs*e.batchSize {
		return fmt.Errorf("setinput: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", e.numInputs*e.batchSize, len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(e.input.Shape()...),
	)
	return G.Let(e.input, inputTensor)
}

// Set sets the weights of the mlp to be equal to the weights of
// another NeuralNet of the same architecture
func (dest *mlp) Set(source NeuralNet) error {
	sourceNodes := source.Learnables()
	nodes := dest.Learnables()
	if len(sourceNodes) != len(nodes) {
		return fmt.Errorf("set: source network has %v learnables, "+
			"destination has %v", len(sourceNodes), len(nodes))
	}

	for i, destLearnable := range nodes {
		sourceLearnable := sourceNodes[i].Clone()
		err := G.Let(destLearnable, sourceLearnable.(*G.Node).Value())
		if err != nil {
			return err
		}
	}
	return nil
}

// Polyak sets the weights of the mlp to be a Polyak average between
// its existing weights and the weights of another NeuralNet of the
// same architecture
func (dest *mlp) Polyak(source NeuralNet, tau float64) error {
	sourceNodes := source.Learnables()
	nodes := dest.Learnables()
	if len(sourceNodes) != len(nodes) {
		return fmt.Errorf("polyak: source network has %v learnables, "+
			"destination has %v", len(sourceNodes), len(nodes))
	}

	for i := range nodes {
		weights := nodes[i].Value().(*tensor.Dense)
		sourceWeights := sourceNodes[i].Value().(*tensor.Dense)

		weights, err := weights.MulScalar(1-tau, true)
		if err != nil {
			return err
		}

		sourceWeights, err = sourceWeights.MulScalar(tau, true)
		if err != nil {
			return err
		}

		var newWeights *tensor.Dense
		newWeights, err = weights.Add(sourceWeights)
		if err != nil {
			return err
		}

		if err := G.Let(nodes[i], newWeights); err != nil {
			return err
		}
	}
	return nil
}

// Learnables returns the learnable nodes in the mlp
func (e *mlp) Learnables() G.Nodes {
	// Lazy instantiation
	if e.learnables == nil {
		learnables := make([]*G.Node, 0, 2*len(e.layers))
		for i := range e.layers {
			learnables = append(learnables, e.layers[i].Weights())
			if bias := e.layers[i].Bias(); bias != nil {
				learnables = append(learnables, bias)
			}
		}
		e.learnables = G.Nodes(learnables)
	}
	return e.learnables
}

// Model returns the learnable nodes with their gradients
func (e *mlp) Model() []G.ValueGrad {
	// Lazy instantiation
	if e.model == nil {
		model := make([]G.ValueGrad, 0, 2*len(e.layers))
		for _, node := range e.Learnables() {
			model = append(model, node)
		}
		e.model = model
	}
	return e.model
}

// Output returns the value of the mlp's prediction after its graph has
// been run
func (e *mlp) Output() G.Value {
	return e.predVal
}

// Prediction returns the node of the computational graph that stores
// the output of the mlp
func (e *mlp) Prediction() *G.Node {
	return e.prediction
}

// GobEncode implements the gob.GobEncoder interface, serializing the
// network's architecture and weights
func (e *mlp) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	if err := enc.Encode(e.numInputs); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode number of "+
			"inputs: %v", err)
	}
	if err := enc.Encode(e.numOutputs); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode number of "+
			"outputs: %v", err)
	}
	if err := enc.Encode(e.batchSize); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode batch size: %v",
			err)
	}
	if err := enc.Encode(e.scale); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode scale: %v", err)
	}
	if err := enc.Encode(e.hiddenSizes); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode hidden sizes: %v",
			err)
	}
	if err := enc.Encode(e.biases); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode biases: %v", err)
	}
	if err := enc.Encode(e.activations); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode activations: %v",
			err)
	}
	if err := enc.Encode(e.prefix); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode prefix: %v", err)
	}

	for i, learnable := range e.Learnables() {
		value := learnable.Value().(*tensor.Dense)
		if err := enc.Encode([]int(value.Shape())); err != nil {
			return nil, fmt.Errorf("gobencode: could not encode shape of "+
				"learnable %v: %v", i, err)
		}
		if err := enc.Encode(value.Data().([]float64)); err != nil {
			return nil, fmt.Errorf("gobencode: could not encode learnable "+
				"%v: %v", i, err)
		}
	}

	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface
func (e *mlp) GobDecode(in []byte) error {
	buf := bytes.NewReader(in)
	dec := gob.NewDecoder(buf)

	var numInputs, numOutputs, batchSize int
	var scale float64
	var hiddenSizes []int
	var biases []bool
	var activations []*Activation
	var prefix string

	if err := dec.Decode(&numInputs); err != nil {
		return fmt.Errorf("gobdecode: could not decode number of inputs: %v",
			err)
	}
	if err := dec.Decode(&numOutputs); err != nil {
		return fmt.Errorf("gobdecode: could not decode number of outputs: %v",
			err)
	}
	if err := dec.Decode(&batchSize); err != nil {
		return fmt.Errorf("gobdecode: could not decode batch size: %v", err)
	}
	if err := dec.Decode(&scale); err != nil {
		return fmt.Errorf("gobdecode: could not decode scale: %v", err)
	}
	if err := dec.Decode(&hiddenSizes); err != nil {
		return fmt.Errorf("gobdecode: could not decode hidden sizes: %v", err)
	}
	if err := dec.Decode(&biases); err != nil {
		return fmt.Errorf("gobdecode: could not decode biases: %v", err)
	}
	if err := dec.Decode(&activations); err != nil {
		return fmt.Errorf("gobdecode: could not decode activations: %v", err)
	}
	if err := dec.Decode(&prefix); err != nil {
		return fmt.Errorf("gobdecode: could not decode prefix: %v", err)
	}

	g := G.NewGraph()
	input := G.NewMatrix(g, tensor.Float64,
		G.WithShape(batchSize, numInputs), G.WithName(prefix+"Input"),
		G.WithInit(G.Zeroes()))
	newNet, err := newMLP(input, numInputs, numOutputs, scale, g,
		hiddenSizes, biases, G.Zeroes(), activations, prefix)
	if err != nil {
		return fmt.Errorf("gobdecode: could not construct new MLP: %v", err)
	}

	for i, learnable := range newNet.Learnables() {
		var shape []int
		if err := dec.Decode(&shape); err != nil {
			return fmt.Errorf("gobdecode: could not decode shape of "+
				"learnable %v: %v", i, err)
		}
		var data []float64
		if err := dec.Decode(&data); err != nil {
			return fmt.Errorf("gobdecode: could not decode learnable %v: %v",
				i, err)
		}

		weights := tensor.New(tensor.WithShape(shape...),
			tensor.WithBacking(data))
		if err := G.Let(learnable, weights); err != nil {
			return fmt.Errorf("gobdecode: could not set learnable %v: %v",
				i, err)
		}
	}

	*e = *newNet
	return nil
}

// Load reconstructs a NeuralNet from its gob serialization, as written
// by GobEncode.
func Load(data []byte) (NeuralNet, error) {
	var e mlp
	if err := e.GobDecode(data); err != nil {
		return nil, err
	}
	return &e, nil
}
