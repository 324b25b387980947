package solver

import (
	"fmt"
	"math"

	G "gorgonia.org/gorgonia"
)

// ClipNorm rescales the gradients of model in place so that their
// global L2 norm does not exceed maxNorm. Gradients are left unchanged
// when their norm is already within the bound. A maxNorm <= 0 disables
// clipping.
//
// ClipNorm must be called after the gradients have been computed by
// running the network's graph and before the solver consumes them.
func ClipNorm(model []G.ValueGrad, maxNorm float64) error {
	if maxNorm <= 0 {
		return nil
	}

	grads := make([][]float64, 0, len(model))
	total := 0.0
	for i, vg := range model {
		grad, err := vg.Grad()
		if err != nil {
			return fmt.Errorf("clipnorm: could not get gradient %v: %v", i,
				err)
		}

		data, ok := grad.Data().([]float64)
		if !ok {
			return fmt.Errorf("clipnorm: gradient %v is not float64-backed",
				i)
		}

		for _, g := range data {
			total += g * g
		}
		grads = append(grads, data)
	}

	norm := math.Sqrt(total)
	if norm <= maxNorm || norm == 0 {
		return nil
	}

	scale := maxNorm / norm
	for _, data := range grads {
		for i := range data {
			data[i] *= scale
		}
	}

	return nil
}
