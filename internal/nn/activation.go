package nn

import (
	"github.com/seam-ml/seam/internal/tensor"
)

// ReLUBackend is satisfied by backends that support the ReLU activation.
type ReLUBackend interface {
	ReLU(*tensor.RawTensor) *tensor.RawTensor
}

// SigmoidBackend is satisfied by backends that support the sigmoid
// activation.
type SigmoidBackend interface {
	Sigmoid(*tensor.RawTensor) *tensor.RawTensor
}

// ReLU is the rectified linear unit module: f(x) = max(0, x).
type ReLU[B tensor.Backend] struct{}

// NewReLU creates a new ReLU activation module.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return &ReLU[B]{}
}

// Forward applies ReLU element-wise.
func (r *ReLU[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	backend := input.Backend()
	rb, ok := any(backend).(ReLUBackend)
	if !ok {
		panic("ReLU: backend must implement the ReLU operation (use autodiff.AutodiffBackend)")
	}
	return tensor.New[float32, B](rb.ReLU(input.Raw()), backend)
}

// Parameters returns an empty slice; ReLU has no trainable state.
func (r *ReLU[B]) Parameters() []*Parameter[B] {
	return nil
}

// Sigmoid is the logistic activation module: f(x) = 1 / (1 + exp(-x)).
type Sigmoid[B tensor.Backend] struct{}

// NewSigmoid creates a new Sigmoid activation module.
func NewSigmoid[B tensor.Backend]() *Sigmoid[B] {
	return &Sigmoid[B]{}
}

// Forward applies sigmoid element-wise.
func (s *Sigmoid[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	backend := input.Backend()
	sb, ok := any(backend).(SigmoidBackend)
	if !ok {
		panic("Sigmoid: backend must implement the Sigmoid operation (use autodiff.AutodiffBackend)")
	}
	return tensor.New[float32, B](sb.Sigmoid(input.Raw()), backend)
}

// Parameters returns an empty slice; Sigmoid has no trainable state.
func (s *Sigmoid[B]) Parameters() []*Parameter[B] {
	return nil
}
