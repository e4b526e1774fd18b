package nn

import (
	"github.com/seam-ml/seam/internal/tensor"
)

// Sequential chains modules into a pipeline: each module's output becomes
// the next module's input.
type Sequential[B tensor.Backend] struct {
	modules []Module[B]
}

// NewSequential creates a Sequential container over the given modules.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return &Sequential[B]{modules: modules}
}

// Add appends a module to the sequence.
func (s *Sequential[B]) Add(m Module[B]) {
	s.modules = append(s.modules, m)
}

// Forward applies all modules in order.
func (s *Sequential[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	output := input
	for _, module := range s.modules {
		output = module.Forward(output)
	}
	return output
}

// Parameters returns the trainable parameters of all modules, in order.
func (s *Sequential[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, module := range s.modules {
		params = append(params, module.Parameters()...)
	}
	return params
}
