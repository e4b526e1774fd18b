package ops

import "github.com/seam-ml/seam/internal/tensor"

// TransposeOp represents an axis permutation: output = transpose(x, axes).
// The gradient flows back through the inverse permutation.
type TransposeOp struct {
	inputs []*tensor.RawTensor // [x]
	output *tensor.RawTensor   // x transposed
	axes   []int
}

// NewTransposeOp creates a new TransposeOp. axes is the permutation
// applied in the forward pass (empty means reversed axes).
func NewTransposeOp(x, output *tensor.RawTensor, axes []int) *TransposeOp {
	if len(axes) == 0 {
		ndim := len(x.Shape())
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	return &TransposeOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
		axes:   axes,
	}
}

// Backward applies the inverse permutation to the output gradient.
func (op *TransposeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	inverse := make([]int, len(op.axes))
	for i, a := range op.axes {
		inverse[a] = i
	}
	return []*tensor.RawTensor{backend.Transpose(outputGrad, inverse...)}
}

// Inputs returns the input tensor [x].
func (op *TransposeOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the transposed output tensor.
func (op *TransposeOp) Output() *tensor.RawTensor {
	return op.output
}
