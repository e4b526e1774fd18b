package ops

import "github.com/seam-ml/seam/internal/tensor"

// ReshapeOp represents a shape change that preserves element order.
// The gradient simply flows back reshaped to the input's shape.
type ReshapeOp struct {
	inputs []*tensor.RawTensor // [x]
	output *tensor.RawTensor   // x reshaped
}

// NewReshapeOp creates a new ReshapeOp.
func NewReshapeOp(x, output *tensor.RawTensor) *ReshapeOp {
	return &ReshapeOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
	}
}

// Backward reshapes the output gradient back to the input's shape.
func (op *ReshapeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0]
	return []*tensor.RawTensor{backend.Reshape(outputGrad, x.Shape())}
}

// Inputs returns the input tensor [x].
func (op *ReshapeOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the reshaped output tensor.
func (op *ReshapeOp) Output() *tensor.RawTensor {
	return op.output
}
