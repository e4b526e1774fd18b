package nn

import (
	"github.com/seam-ml/seam/internal/tensor"
)

// Linear implements a fully connected layer: y = x @ W^T + b, where
//   - x is [batch, in_features]
//   - W is [out_features, in_features], Xavier-initialized
//   - b is [out_features], zero-initialized
//   - y is [batch, out_features]
type Linear[B tensor.Backend] struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter[B]
	bias        *Parameter[B]
	backend     B
}

// NewLinear creates a Linear layer with Xavier-initialized weights and
// zero biases.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B) *Linear[B] {
	weight := NewParameter("weight",
		Xavier(inFeatures, outFeatures, tensor.Shape{outFeatures, inFeatures}, backend))
	bias := NewParameter("bias",
		tensor.Zeros[float32](tensor.Shape{outFeatures}, backend))

	return &Linear[B]{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      weight,
		bias:        bias,
		backend:     backend,
	}
}

// Forward computes y = x @ W^T + b.
//
// Panics with ErrShapeMismatch when the input is not 2D or its feature
// width disagrees with the layer.
func (l *Linear[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) != 2 {
		panic(tensor.ShapeMismatchf("linear input must be 2D [batch, features], got %v", shape))
	}
	if shape[1] != l.inFeatures {
		panic(tensor.ShapeMismatchf("linear expects %d input features, got %d", l.inFeatures, shape[1]))
	}

	// [batch, in] @ [in, out] = [batch, out]
	output := input.MatMul(l.weight.Tensor().T())

	// Bias broadcasts as [1, out] over the batch dimension.
	return output.Add(l.bias.Tensor().Reshape(1, l.outFeatures))
}

// Parameters returns [weight, bias].
func (l *Linear[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{l.weight, l.bias}
}

// Weight returns the weight parameter.
func (l *Linear[B]) Weight() *Parameter[B] {
	return l.weight
}

// Bias returns the bias parameter.
func (l *Linear[B]) Bias() *Parameter[B] {
	return l.bias
}

// InFeatures returns the input width.
func (l *Linear[B]) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the output width.
func (l *Linear[B]) OutFeatures() int {
	return l.outFeatures
}
