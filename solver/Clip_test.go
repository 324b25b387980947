package solver

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// gradModel builds a one-parameter graph whose loss is the sum of
// squares of the weights, runs it, and returns the weight node with its
// gradient computed. The gradient of each element w is 2w.
func gradModel(t *testing.T, weights []float64) *G.Node {
	t.Helper()

	g := G.NewGraph()
	w := G.NewMatrix(g, tensor.Float64, G.WithShape(1, len(weights)),
		G.WithName("W"), G.WithValue(tensor.New(
			tensor.WithBacking(weights), tensor.WithShape(1, len(weights)))))

	loss := G.Must(G.Sum(G.Must(G.Square(w))))
	_, err := G.Grad(loss, w)
	require.NoError(t, err)

	vm := G.NewTapeMachine(g, G.BindDualValues(w))
	defer vm.Close()
	require.NoError(t, vm.RunAll())

	return w
}

func gradNorm(t *testing.T, w *G.Node) float64 {
	t.Helper()

	grad, err := w.Grad()
	require.NoError(t, err)

	total := 0.0
	for _, g := range grad.Data().([]float64) {
		total += g * g
	}
	return math.Sqrt(total)
}

// TestClipNormScalesDown checks that an oversized gradient is rescaled
// to exactly the maximum norm, preserving its direction
func TestClipNormScalesDown(t *testing.T) {
	w := gradModel(t, []float64{3.0, 4.0})

	// Gradient is (6, 8), norm 10
	require.InDelta(t, 10.0, gradNorm(t, w), 1e-12)

	require.NoError(t, ClipNorm([]G.ValueGrad{w}, 2.5))

	assert.InDelta(t, 2.5, gradNorm(t, w), 1e-12)

	grad, err := w.Grad()
	require.NoError(t, err)
	data := grad.Data().([]float64)
	assert.InDelta(t, 6.0/8.0, data[0]/data[1], 1e-12)
}

// TestClipNormWithinBound checks that a gradient already within the
// bound is left untouched
func TestClipNormWithinBound(t *testing.T) {
	w := gradModel(t, []float64{3.0, 4.0})

	require.NoError(t, ClipNorm([]G.ValueGrad{w}, 50.0))

	grad, err := w.Grad()
	require.NoError(t, err)
	assert.Equal(t, []float64{6.0, 8.0}, grad.Data().([]float64))
}

// TestClipNormDisabled checks that a non-positive maximum disables
// clipping entirely
func TestClipNormDisabled(t *testing.T) {
	w := gradModel(t, []float64{30.0, 40.0})

	require.NoError(t, ClipNorm([]G.ValueGrad{w}, 0))
	require.NoError(t, ClipNorm([]G.ValueGrad{w}, -1))

	assert.InDelta(t, 100.0, gradNorm(t, w), 1e-12)
}
