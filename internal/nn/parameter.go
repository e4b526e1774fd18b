package nn

import (
	"github.com/seam-ml/seam/internal/tensor"
)

// Parameter is a trainable tensor: a weight or bias whose gradient
// tracking is permanently enabled. Wrapping a tensor in a Parameter marks
// it as tracked; the flag is never cleared for the lifetime of the
// parameter, so every forward pass over a recording tape includes it in
// the graph.
//
// The gradient lives in the tensor's accumulator slot. Backward passes add
// into it; ZeroGrad resets it between iterations.
type Parameter[B tensor.Backend] struct {
	name   string
	tensor *tensor.Tensor[float32, B]
}

// NewParameter creates a trainable parameter from an initialized tensor
// and enables gradient tracking on it.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	t.RequireGrad()
	return &Parameter[B]{
		name:   name,
		tensor: t,
	}
}

// Name returns the parameter name (e.g. "weight", "bias").
func (p *Parameter[B]) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[float32, B] {
	return p.tensor
}

// Grad returns the accumulated gradient, or nil if no backward pass has
// populated it since the last ZeroGrad.
func (p *Parameter[B]) Grad() *tensor.Tensor[float32, B] {
	return p.tensor.Grad()
}

// ZeroGrad resets the gradient slot to zero. Call before each training
// iteration so gradients from the previous step do not accumulate into
// the next one.
func (p *Parameter[B]) ZeroGrad() {
	p.tensor.ZeroGrad()
}
