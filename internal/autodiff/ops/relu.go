package ops

import "github.com/seam-ml/seam/internal/tensor"

// ReLUOp represents the rectified linear unit: output = max(x, 0).
//
// Backward pass: grad_x = outputGrad where x > 0, else 0.
type ReLUOp struct {
	inputs []*tensor.RawTensor // [x]
	output *tensor.RawTensor   // max(x, 0)
}

// NewReLUOp creates a new ReLUOp.
func NewReLUOp(x, output *tensor.RawTensor) *ReLUOp {
	return &ReLUOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
	}
}

// Backward masks the output gradient by the sign of the input.
func (op *ReLUOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0]
	grad := zerosLike(x)

	switch x.DType() {
	case tensor.Float32:
		xs, gs, out := x.AsFloat32(), outputGrad.AsFloat32(), grad.AsFloat32()
		for i := range xs {
			if xs[i] > 0 {
				out[i] = gs[i]
			}
		}
	case tensor.Float64:
		xs, gs, out := x.AsFloat64(), outputGrad.AsFloat64(), grad.AsFloat64()
		for i := range xs {
			if xs[i] > 0 {
				out[i] = gs[i]
			}
		}
	}

	return []*tensor.RawTensor{grad}
}

// Inputs returns the input tensor [x].
func (op *ReLUOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the output tensor max(x, 0).
func (op *ReLUOp) Output() *tensor.RawTensor {
	return op.output
}
