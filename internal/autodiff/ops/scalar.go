package ops

import "github.com/seam-ml/seam/internal/tensor"

// AddScalarOp represents output = x + c for a scalar constant c.
// The constant carries no gradient; grad_x = outputGrad.
type AddScalarOp struct {
	inputs []*tensor.RawTensor // [x]
	output *tensor.RawTensor   // x + c
}

// NewAddScalarOp creates a new AddScalarOp.
func NewAddScalarOp(x, output *tensor.RawTensor) *AddScalarOp {
	return &AddScalarOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
	}
}

// Backward passes the output gradient through unchanged.
func (op *AddScalarOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{outputGrad.Clone()}
}

// Inputs returns the input tensor [x].
func (op *AddScalarOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the output tensor x + c.
func (op *AddScalarOp) Output() *tensor.RawTensor {
	return op.output
}

// MulScalarOp represents output = x * c for a scalar constant c.
// grad_x = outputGrad * c.
type MulScalarOp struct {
	inputs []*tensor.RawTensor // [x]
	output *tensor.RawTensor   // x * c
	scalar float64
}

// NewMulScalarOp creates a new MulScalarOp.
func NewMulScalarOp(x, output *tensor.RawTensor, scalar float64) *MulScalarOp {
	return &MulScalarOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
		scalar: scalar,
	}
}

// Backward scales the output gradient by the constant.
func (op *MulScalarOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.MulScalar(outputGrad, op.scalar)}
}

// Inputs returns the input tensor [x].
func (op *MulScalarOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the output tensor x * c.
func (op *MulScalarOp) Output() *tensor.RawTensor {
	return op.output
}
