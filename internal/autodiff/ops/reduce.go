package ops

import "github.com/seam-ml/seam/internal/tensor"

// SumOp represents a full reduction to a single element: output = sum(x).
//
// Backward pass: every input element receives the scalar output gradient.
type SumOp struct {
	inputs []*tensor.RawTensor // [x]
	output *tensor.RawTensor   // sum(x), shape [1]
}

// NewSumOp creates a new SumOp.
func NewSumOp(x, output *tensor.RawTensor) *SumOp {
	return &SumOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
	}
}

// Backward broadcasts the scalar gradient to the input shape.
func (op *SumOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0]
	return []*tensor.RawTensor{fillLike(x, outputGrad, 1)}
}

// Inputs returns the input tensor [x].
func (op *SumOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the output tensor sum(x).
func (op *SumOp) Output() *tensor.RawTensor {
	return op.output
}

// MeanOp represents a full reduction to the average: output = sum(x) / n.
//
// Backward pass: every input element receives outputGrad / n.
type MeanOp struct {
	inputs []*tensor.RawTensor // [x]
	output *tensor.RawTensor   // mean(x), shape [1]
}

// NewMeanOp creates a new MeanOp.
func NewMeanOp(x, output *tensor.RawTensor) *MeanOp {
	return &MeanOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
	}
}

// Backward broadcasts outputGrad / n to the input shape.
func (op *MeanOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0]
	n := x.Shape().NumElements()
	return []*tensor.RawTensor{fillLike(x, outputGrad, 1/float64(n))}
}

// Inputs returns the input tensor [x].
func (op *MeanOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the output tensor mean(x).
func (op *MeanOp) Output() *tensor.RawTensor {
	return op.output
}

// SumDimOp represents a reduction along one dimension, with the reduced
// dimension kept as size 1: output = sum(x, dim).
//
// Backward pass: the output gradient broadcasts back along the reduced
// dimension, which element-wise addition with a zero tensor of the input
// shape performs directly.
type SumDimOp struct {
	inputs []*tensor.RawTensor // [x]
	output *tensor.RawTensor   // sum over dim, that dim kept as 1
}

// NewSumDimOp creates a new SumDimOp.
func NewSumDimOp(x, output *tensor.RawTensor) *SumDimOp {
	return &SumDimOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
	}
}

// Backward broadcasts the output gradient along the reduced dimension.
func (op *SumDimOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0]
	return []*tensor.RawTensor{backend.Add(outputGrad, zerosLike(x))}
}

// Inputs returns the input tensor [x].
func (op *SumDimOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the reduced output tensor.
func (op *SumDimOp) Output() *tensor.RawTensor {
	return op.output
}

// fillLike returns a tensor shaped like x whose every element is the
// first element of grad scaled by factor.
func fillLike(x, grad *tensor.RawTensor, factor float64) *tensor.RawTensor {
	out := zerosLike(x)
	switch x.DType() {
	case tensor.Float32:
		v := grad.AsFloat32()[0] * float32(factor)
		data := out.AsFloat32()
		for i := range data {
			data[i] = v
		}
	case tensor.Float64:
		v := grad.AsFloat64()[0] * factor
		data := out.AsFloat64()
		for i := range data {
			data[i] = v
		}
	}
	return out
}
