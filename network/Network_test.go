package network

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func policyNet(t *testing.T, batch int, limit float64,
	init G.InitWFn) NeuralNet {
	t.Helper()

	g := G.NewGraph()
	net, err := NewPolicyMLP(3, 2, batch, g, []int{8}, []bool{true},
		init, []*Activation{ReLU()}, limit, "policy")
	require.NoError(t, err)
	return net
}

func learnableData(net NeuralNet) [][]float64 {
	values := make([][]float64, 0, len(net.Learnables()))
	for _, node := range net.Learnables() {
		data := node.Value().Data().([]float64)
		values = append(values, append([]float64{}, data...))
	}
	return values
}

// TestPolicyOutputBounded checks that the policy head's output stays
// within the action bounds for any input, because of the scaled tanh
func TestPolicyOutputBounded(t *testing.T) {
	limit := 2.0
	net := policyNet(t, 1, limit, G.GlorotU(1.0))

	vm := G.NewTapeMachine(net.Graph())
	defer vm.Close()

	inputs := [][]float64{
		{0, 0, 0},
		{1, -1, 0.5},
		{100, -250, 3000},
	}
	for _, in := range inputs {
		require.NoError(t, net.SetInput(in))
		require.NoError(t, vm.RunAll())

		out := net.Output().Data().([]float64)
		require.Len(t, out, 2)
		for _, a := range out {
			assert.LessOrEqual(t, math.Abs(a), limit)
		}
		vm.Reset()
	}
}

// TestSetCopiesAllWeights checks the hard update: after Set, every
// learnable of the destination equals the corresponding learnable of
// the source
func TestSetCopiesAllWeights(t *testing.T) {
	source := policyNet(t, 1, 1.0, G.ValuesOf(3.0))
	dest := policyNet(t, 1, 1.0, G.ValuesOf(-1.0))

	require.NoError(t, dest.Set(source))

	sourceData := learnableData(source)
	destData := learnableData(dest)
	require.Equal(t, len(sourceData), len(destData))
	for i := range sourceData {
		assert.Equal(t, sourceData[i], destData[i])
	}
}

// TestSetDoesNotAlias checks that updating the source after a hard
// update leaves the destination untouched
func TestSetDoesNotAlias(t *testing.T) {
	source := policyNet(t, 1, 1.0, G.ValuesOf(3.0))
	dest := policyNet(t, 1, 1.0, G.ValuesOf(-1.0))

	require.NoError(t, dest.Set(source))

	weights := source.Learnables()[0].Value().(*tensor.Dense)
	backing := weights.Data().([]float64)
	backing[0] = 99.0

	assert.Equal(t, 3.0, dest.Learnables()[0].Value().Data().([]float64)[0])
}

// TestPolyak checks the soft update law elementwise: every parameter
// moves to (1-tau)*old + tau*source
func TestPolyak(t *testing.T) {
	tau := 0.25
	source := policyNet(t, 1, 1.0, G.ValuesOf(4.0))
	dest := policyNet(t, 1, 1.0, G.ValuesOf(2.0))

	oldDest := learnableData(dest)
	sourceData := learnableData(source)

	require.NoError(t, dest.Polyak(source, tau))

	newDest := learnableData(dest)
	for i := range newDest {
		for j := range newDest[i] {
			expected := (1-tau)*oldDest[i][j] + tau*sourceData[i][j]
			assert.InDelta(t, expected, newDest[i][j], 1e-12)
		}
	}
}

// TestCloneWithBatchPreservesWeights checks that cloning to a new batch
// size keeps the weights and forward function but changes the input
// shape
func TestCloneWithBatchPreservesWeights(t *testing.T) {
	net := policyNet(t, 1, 1.0, G.GlorotU(1.0))

	clone, err := net.CloneWithBatch(4)
	require.NoError(t, err)

	assert.Equal(t, 4, clone.BatchSize())
	assert.Equal(t, net.Features(), clone.Features())
	assert.Equal(t, net.Outputs(), clone.Outputs())
	assert.NotEqual(t, net.Graph(), clone.Graph())

	netData := learnableData(net)
	cloneData := learnableData(clone)
	require.Equal(t, len(netData), len(cloneData))
	for i := range netData {
		assert.Equal(t, netData[i], cloneData[i])
	}
}

// TestSetInputDimensions checks the input length validation
func TestSetInputDimensions(t *testing.T) {
	net := policyNet(t, 2, 1.0, G.GlorotU(1.0))

	assert.Error(t, net.SetInput(make([]float64, 3)))
	assert.NoError(t, net.SetInput(make([]float64, 6)))
}

// TestCriticFromInputsSharesPolicyGraph checks that a critic built on a
// policy's output node lives in the policy's graph and predicts a
// scalar per batch row
func TestCriticFromInputsSharesPolicyGraph(t *testing.T) {
	g := G.NewGraph()
	policy, err := NewPolicyMLP(3, 2, 4, g, []int{8}, []bool{true},
		G.GlorotU(1.0), []*Activation{ReLU()}, 1.0, "policy")
	require.NoError(t, err)

	critic, err := NewCriticMLPFromInputs(policy.Input(), policy.Prediction(),
		[]int{8}, []bool{true}, G.GlorotU(1.0), []*Activation{ReLU()},
		"critic")
	require.NoError(t, err)

	assert.Equal(t, g, critic.Graph())
	assert.Equal(t, 5, critic.Features())
	assert.Equal(t, 1, critic.Outputs())

	vm := G.NewTapeMachine(g)
	defer vm.Close()

	require.NoError(t, policy.SetInput(make([]float64, 12)))
	require.NoError(t, vm.RunAll())

	q := critic.Output().Data().([]float64)
	assert.Len(t, q, 4)
}

// TestGobRoundTrip checks that serializing and reloading a network
// preserves its architecture and weights
func TestGobRoundTrip(t *testing.T) {
	net := policyNet(t, 1, 2.0, G.GlorotU(1.0))

	data, err := net.(*mlp).GobEncode()
	require.NoError(t, err)

	loaded, err := Load(data)
	require.NoError(t, err)

	assert.Equal(t, net.BatchSize(), loaded.BatchSize())
	assert.Equal(t, net.Features(), loaded.Features())
	assert.Equal(t, net.Outputs(), loaded.Outputs())

	netData := learnableData(net)
	loadedData := learnableData(loaded)
	require.Equal(t, len(netData), len(loadedData))
	for i := range netData {
		assert.Equal(t, netData[i], loadedData[i])
	}
}
