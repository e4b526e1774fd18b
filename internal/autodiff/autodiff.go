// Package autodiff implements reverse-mode automatic differentiation using
// the decorator pattern.
//
// AutodiffBackend wraps any tensor.Backend and adds gradient tracking
// through a GradientTape:
//
//   - During the forward pass, every operation that touches a tracked
//     tensor (RequiresGrad) is recorded on the tape, and its output is
//     marked as tracked in turn.
//   - Backward walks the tape in reverse and adds each tensor's gradient
//     contribution into its gradient slot.
//
// Usage:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//
//	x := tensor.FromSlice([]float32{2}, tensor.Shape{1}, backend)
//	x.RequireGrad()
//	y := x.Mul(x) // y = x²
//
//	err := autodiff.Backward(y, backend)
//	fmt.Println(x.Grad()) // dy/dx = 2x = 4
package autodiff

import (
	"math"

	"github.com/seam-ml/seam/internal/autodiff/ops"
	"github.com/seam-ml/seam/internal/tensor"
)

// AutodiffBackend wraps a Backend and adds automatic differentiation.
// It implements tensor.Backend; tensors constructed over it behave exactly
// as over the inner backend until recording is enabled.
type AutodiffBackend[B tensor.Backend] struct {
	inner B
	tape  *GradientTape
}

// New creates an AutodiffBackend wrapping the given backend.
func New[B tensor.Backend](backend B) *AutodiffBackend[B] {
	return &AutodiffBackend[B]{
		inner: backend,
		tape:  NewGradientTape(),
	}
}

// Tape returns the gradient tape for recording control and clearing.
func (b *AutodiffBackend[B]) Tape() *GradientTape {
	return b.tape
}

// Inner returns the wrapped backend.
func (b *AutodiffBackend[B]) Inner() B {
	return b.inner
}

// NoGrad runs fn with gradient recording disabled, restoring the previous
// recording state afterwards.
func (b *AutodiffBackend[B]) NoGrad(fn func()) {
	b.tape.NoGrad(fn)
}

// Name returns the backend name.
func (b *AutodiffBackend[B]) Name() string {
	return "Autodiff(" + b.inner.Name() + ")"
}

// Device returns the compute device.
func (b *AutodiffBackend[B]) Device() tensor.Device {
	return b.inner.Device()
}

// track records op on the tape when recording is active and any of the
// given inputs is tracked, and marks the output tracked so downstream
// operations keep recording.
func (b *AutodiffBackend[B]) track(output *tensor.RawTensor, makeOp func() ops.Operation, inputs ...*tensor.RawTensor) {
	if !b.tape.IsRecording() {
		return
	}
	tracked := false
	for _, in := range inputs {
		if in.RequiresGrad() {
			tracked = true
			break
		}
	}
	if !tracked {
		return
	}
	output.SetRequiresGrad(true)
	b.tape.Record(makeOp())
}

// Add performs element-wise addition and records the operation.
func (b *AutodiffBackend[B]) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Add(x, y)
	b.track(result, func() ops.Operation { return ops.NewAddOp(x, y, result) }, x, y)
	return result
}

// Sub performs element-wise subtraction and records the operation.
func (b *AutodiffBackend[B]) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Sub(x, y)
	b.track(result, func() ops.Operation { return ops.NewSubOp(x, y, result) }, x, y)
	return result
}

// Mul performs element-wise multiplication and records the operation.
func (b *AutodiffBackend[B]) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Mul(x, y)
	b.track(result, func() ops.Operation { return ops.NewMulOp(x, y, result) }, x, y)
	return result
}

// Div performs element-wise division and records the operation.
func (b *AutodiffBackend[B]) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Div(x, y)
	b.track(result, func() ops.Operation { return ops.NewDivOp(x, y, result) }, x, y)
	return result
}

// MatMul performs matrix multiplication and records the operation.
func (b *AutodiffBackend[B]) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.MatMul(x, y)
	b.track(result, func() ops.Operation { return ops.NewMatMulOp(x, y, result) }, x, y)
	return result
}

// Reshape changes the tensor's shape and records the operation.
func (b *AutodiffBackend[B]) Reshape(x *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	result := b.inner.Reshape(x, newShape)
	b.track(result, func() ops.Operation { return ops.NewReshapeOp(x, result) }, x)
	return result
}

// Transpose permutes the tensor's axes and records the operation.
func (b *AutodiffBackend[B]) Transpose(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	result := b.inner.Transpose(x, axes...)
	b.track(result, func() ops.Operation { return ops.NewTransposeOp(x, result, axes) }, x)
	return result
}

// AddScalar adds a scalar to every element and records the operation.
func (b *AutodiffBackend[B]) AddScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	result := b.inner.AddScalar(x, scalar)
	b.track(result, func() ops.Operation { return ops.NewAddScalarOp(x, result) }, x)
	return result
}

// MulScalar multiplies every element by a scalar and records the operation.
func (b *AutodiffBackend[B]) MulScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	result := b.inner.MulScalar(x, scalar)
	b.track(result, func() ops.Operation { return ops.NewMulScalarOp(x, result, scalar) }, x)
	return result
}

// Sum reduces the tensor to its total and records the operation.
func (b *AutodiffBackend[B]) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Sum(x)
	b.track(result, func() ops.Operation { return ops.NewSumOp(x, result) }, x)
	return result
}

// Mean reduces the tensor to its average and records the operation.
func (b *AutodiffBackend[B]) Mean(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Mean(x)
	b.track(result, func() ops.Operation { return ops.NewMeanOp(x, result) }, x)
	return result
}

// SumDim sums along one dimension and records the operation.
func (b *AutodiffBackend[B]) SumDim(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	result := b.inner.SumDim(x, dim)
	b.track(result, func() ops.Operation { return ops.NewSumDimOp(x, result) }, x)
	return result
}

// Argmax returns indices of maxima along a dimension. Index selection is
// not differentiable, so nothing is recorded.
func (b *AutodiffBackend[B]) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	return b.inner.Argmax(x, dim)
}

// ReLU applies max(x, 0) and records the operation.
func (b *AutodiffBackend[B]) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	result := zerosLikeRaw(x)

	switch x.DType() {
	case tensor.Float32:
		xs, rs := x.AsFloat32(), result.AsFloat32()
		for i, v := range xs {
			if v > 0 {
				rs[i] = v
			}
		}
	case tensor.Float64:
		xs, rs := x.AsFloat64(), result.AsFloat64()
		for i, v := range xs {
			if v > 0 {
				rs[i] = v
			}
		}
	default:
		panic("ReLU: only float32 and float64 are supported")
	}

	b.track(result, func() ops.Operation { return ops.NewReLUOp(x, result) }, x)
	return result
}

// Sigmoid applies 1/(1+exp(-x)) and records the operation.
func (b *AutodiffBackend[B]) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	result := zerosLikeRaw(x)

	switch x.DType() {
	case tensor.Float32:
		xs, rs := x.AsFloat32(), result.AsFloat32()
		for i, v := range xs {
			rs[i] = float32(1 / (1 + math.Exp(float64(-v))))
		}
	case tensor.Float64:
		xs, rs := x.AsFloat64(), result.AsFloat64()
		for i, v := range xs {
			rs[i] = 1 / (1 + math.Exp(-v))
		}
	default:
		panic("Sigmoid: only float32 and float64 are supported")
	}

	b.track(result, func() ops.Operation { return ops.NewSigmoidOp(x, result) }, x)
	return result
}

// Softmax applies row-wise softmax over the last dimension and records
// the operation.
func (b *AutodiffBackend[B]) Softmax(x *tensor.RawTensor) *tensor.RawTensor {
	result := ops.SoftmaxForward(x)
	b.track(result, func() ops.Operation { return ops.NewSoftmaxOp(x, result) }, x)
	return result
}

// CrossEntropy computes the fused softmax + negative-log-likelihood loss
// for class-index targets and records the operation. Only the logits are
// differentiated.
func (b *AutodiffBackend[B]) CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor {
	result := ops.CrossEntropyForward(logits, targets)
	b.track(result, func() ops.Operation { return ops.NewCrossEntropyOp(logits, targets, result) }, logits)
	return result
}

// BCEWithLogits computes the fused sigmoid + binary cross-entropy loss and
// records the operation. Only the logits are differentiated.
func (b *AutodiffBackend[B]) BCEWithLogits(logits, targets *tensor.RawTensor) *tensor.RawTensor {
	result := ops.BCEWithLogitsForward(logits, targets)
	b.track(result, func() ops.Operation { return ops.NewBCEWithLogitsOp(logits, targets, result) }, logits)
	return result
}

func zerosLikeRaw(x *tensor.RawTensor) *tensor.RawTensor {
	raw, err := tensor.NewRaw(x.Shape(), x.DType(), x.Device())
	if err != nil {
		panic(err)
	}
	return raw
}
