package ops

import (
	"math"

	"github.com/seam-ml/seam/internal/tensor"
)

// BCEWithLogitsOp is the fused sigmoid + binary cross-entropy loss.
//
// Forward, per element with z the logit and y the 0/1 target, uses the
// stable formulation that never exponentiates a positive argument:
//
//	l = max(z, 0) - z*y + log(1 + exp(-|z|))
//	loss = mean(l)
//
// Backward:
//
//	dL/dz = (sigmoid(z) - y) / n
//
// Logits and targets share a shape; targets are constants.
type BCEWithLogitsOp struct {
	logits  *tensor.RawTensor
	targets *tensor.RawTensor
	output  *tensor.RawTensor // scalar mean loss
}

// NewBCEWithLogitsOp creates a new BCEWithLogitsOp.
func NewBCEWithLogitsOp(logits, targets, output *tensor.RawTensor) *BCEWithLogitsOp {
	return &BCEWithLogitsOp{
		logits:  logits,
		targets: targets,
		output:  output,
	}
}

// Backward computes the gradient with respect to the logits.
func (op *BCEWithLogitsOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	grad := zerosLike(op.logits)

	switch op.logits.DType() {
	case tensor.Float32:
		bceGradKernel(op.logits.AsFloat32(), op.targets.AsFloat32(), outputGrad.AsFloat32()[0], grad.AsFloat32())
	case tensor.Float64:
		bceGradKernel(op.logits.AsFloat64(), op.targets.AsFloat64(), outputGrad.AsFloat64()[0], grad.AsFloat64())
	default:
		panic("BCEWithLogitsOp: only float32 and float64 logits are supported")
	}

	return []*tensor.RawTensor{grad}
}

// Inputs returns the differentiable input tensors [logits].
func (op *BCEWithLogitsOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.logits}
}

// Output returns the scalar loss tensor.
func (op *BCEWithLogitsOp) Output() *tensor.RawTensor {
	return op.output
}

// BCEWithLogitsForward computes the mean binary cross-entropy over logits.
// Panics with ErrShapeMismatch when logits and targets disagree in shape.
func BCEWithLogitsForward(logits, targets *tensor.RawTensor) *tensor.RawTensor {
	if !logits.Shape().Equal(targets.Shape()) {
		panic(tensor.ShapeMismatchf("bce logits shape %v does not match targets shape %v",
			logits.Shape(), targets.Shape()))
	}

	output, err := tensor.NewRaw(tensor.Shape{1}, logits.DType(), logits.Device())
	if err != nil {
		panic(err)
	}

	switch logits.DType() {
	case tensor.Float32:
		output.AsFloat32()[0] = bceKernel(logits.AsFloat32(), targets.AsFloat32())
	case tensor.Float64:
		output.AsFloat64()[0] = bceKernel(logits.AsFloat64(), targets.AsFloat64())
	default:
		panic("bce: only float32 and float64 logits are supported")
	}

	return output
}

func bceKernel[T float32 | float64](logits, targets []T) T {
	var total float64
	for i, z := range logits {
		zf, yf := float64(z), float64(targets[i])
		total += math.Max(zf, 0) - zf*yf + math.Log1p(math.Exp(-math.Abs(zf)))
	}
	return T(total / float64(len(logits)))
}

func bceGradKernel[T float32 | float64](logits, targets []T, scale T, grad []T) {
	n := T(len(logits))
	for i, z := range logits {
		s := T(1 / (1 + math.Exp(-float64(z))))
		grad[i] = scale * (s - targets[i]) / n
	}
}
