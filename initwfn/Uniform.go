package initwfn

import G "gorgonia.org/gorgonia"

// UniformConfig implements a configuration of a uniform random weight
// initializer on [Low, High].
type UniformConfig struct {
	Low  float64
	High float64
}

// NewUniform returns a new uniform random weight initializer
func NewUniform(low, high float64) (*InitWFn, error) {
	config := UniformConfig{
		Low:  low,
		High: high,
	}

	return newInitWFn(config)
}

// Type returns the type of the weight initializer created using this
// config
func (u UniformConfig) Type() Type {
	return Uniform
}

// Create creates the Gorgonia weight initializer from this
// initializer config
func (u UniformConfig) Create() G.InitWFn {
	return G.Uniform(u.Low, u.High)
}
