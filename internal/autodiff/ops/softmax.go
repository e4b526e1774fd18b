package ops

import "github.com/seam-ml/seam/internal/tensor"

// SoftmaxOp represents row-wise softmax over the last dimension of a
// 2D tensor [batch, classes].
//
// Backward pass per row, with s the saved softmax output:
//
//	grad_x = s * (outputGrad - sum(outputGrad * s))
type SoftmaxOp struct {
	inputs []*tensor.RawTensor // [x]
	output *tensor.RawTensor   // softmax(x)
}

// NewSoftmaxOp creates a new SoftmaxOp.
func NewSoftmaxOp(x, output *tensor.RawTensor) *SoftmaxOp {
	return &SoftmaxOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
	}
}

// Backward computes the Jacobian-vector product row by row.
func (op *SoftmaxOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	s := op.output
	shape := s.Shape()
	classes := shape[len(shape)-1]
	rows := shape.NumElements() / classes

	grad := zerosLike(s)

	switch s.DType() {
	case tensor.Float32:
		ss, gs, out := s.AsFloat32(), outputGrad.AsFloat32(), grad.AsFloat32()
		for r := 0; r < rows; r++ {
			base := r * classes
			var dot float32
			for j := 0; j < classes; j++ {
				dot += gs[base+j] * ss[base+j]
			}
			for j := 0; j < classes; j++ {
				out[base+j] = ss[base+j] * (gs[base+j] - dot)
			}
		}
	case tensor.Float64:
		ss, gs, out := s.AsFloat64(), outputGrad.AsFloat64(), grad.AsFloat64()
		for r := 0; r < rows; r++ {
			base := r * classes
			var dot float64
			for j := 0; j < classes; j++ {
				dot += gs[base+j] * ss[base+j]
			}
			for j := 0; j < classes; j++ {
				out[base+j] = ss[base+j] * (gs[base+j] - dot)
			}
		}
	}

	return []*tensor.RawTensor{grad}
}

// SoftmaxForward computes row-wise softmax over the last dimension.
// Panics with ErrShapeMismatch on non-float input.
func SoftmaxForward(x *tensor.RawTensor) *tensor.RawTensor {
	shape := x.Shape()
	classes := shape[len(shape)-1]
	rows := shape.NumElements() / classes

	out := zerosLike(x)

	switch x.DType() {
	case tensor.Float32:
		xs, os := x.AsFloat32(), out.AsFloat32()
		for r := 0; r < rows; r++ {
			copy(os[r*classes:(r+1)*classes], softmaxRow(xs[r*classes:(r+1)*classes]))
		}
	case tensor.Float64:
		xs, os := x.AsFloat64(), out.AsFloat64()
		for r := 0; r < rows; r++ {
			copy(os[r*classes:(r+1)*classes], softmaxRow(xs[r*classes:(r+1)*classes]))
		}
	default:
		panic("softmax: only float32 and float64 are supported")
	}

	return out
}

// Inputs returns the input tensor [x].
func (op *SoftmaxOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the output tensor softmax(x).
func (op *SoftmaxOp) Output() *tensor.RawTensor {
	return op.output
}
