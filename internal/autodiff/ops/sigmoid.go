package ops

import "github.com/seam-ml/seam/internal/tensor"

// SigmoidOp represents the logistic function: output = 1 / (1 + exp(-x)).
//
// Backward pass reuses the saved output: grad_x = outputGrad * s * (1 - s).
type SigmoidOp struct {
	inputs []*tensor.RawTensor // [x]
	output *tensor.RawTensor   // sigmoid(x)
}

// NewSigmoidOp creates a new SigmoidOp.
func NewSigmoidOp(x, output *tensor.RawTensor) *SigmoidOp {
	return &SigmoidOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
	}
}

// Backward computes grad_x = outputGrad * s * (1 - s) from the saved output.
func (op *SigmoidOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	s := op.output
	grad := zerosLike(s)

	switch s.DType() {
	case tensor.Float32:
		ss, gs, out := s.AsFloat32(), outputGrad.AsFloat32(), grad.AsFloat32()
		for i := range ss {
			out[i] = gs[i] * ss[i] * (1 - ss[i])
		}
	case tensor.Float64:
		ss, gs, out := s.AsFloat64(), outputGrad.AsFloat64(), grad.AsFloat64()
		for i := range ss {
			out[i] = gs[i] * ss[i] * (1 - ss[i])
		}
	}

	return []*tensor.RawTensor{grad}
}

// Inputs returns the input tensor [x].
func (op *SigmoidOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the output tensor sigmoid(x).
func (op *SigmoidOp) Output() *tensor.RawTensor {
	return op.output
}
