// Package cpu implements the pure-Go CPU backend.
package cpu

import (
	"fmt"

	"github.com/seam-ml/seam/internal/tensor"
)

// CPUBackend implements tensor operations on CPU.
type CPUBackend struct {
	device tensor.Device
}

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{
		device: tensor.CPU,
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("add", a, b,
		func(x, y float32) float32 { return x + y },
		func(x, y float64) float64 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("sub", a, b,
		func(x, y float32) float32 { return x - y },
		func(x, y float64) float64 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("mul", a, b,
		func(x, y float32) float32 { return x * y },
		func(x, y float64) float64 { return x * y })
}

// Div performs element-wise division with broadcasting.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("div", a, b,
		func(x, y float32) float32 { return x / y },
		func(x, y float64) float64 { return x / y })
}

// binaryOp dispatches an element-wise binary operation by dtype, with
// broadcasting. Shape-incompatible operands panic with an
// ErrShapeMismatch-wrapped error; the autodiff boundary converts the panic
// back to an error return.
func (cpu *CPUBackend) binaryOp(
	name string,
	a, b *tensor.RawTensor,
	f32 func(x, y float32) float32,
	f64 func(x, y float64) float64,
) *tensor.RawTensor {
	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(err)
	}
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch %s vs %s", name, a.DType(), b.DType()))
	}

	result, err := tensor.NewRaw(outShape, a.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", name, err))
	}

	switch a.DType() {
	case tensor.Float32:
		if needsBroadcast {
			broadcastKernel(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), a.Shape(), b.Shape(), outShape, f32)
		} else {
			vectorKernel(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), f32)
		}
	case tensor.Float64:
		if needsBroadcast {
			broadcastKernel(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), a.Shape(), b.Shape(), outShape, f64)
		} else {
			vectorKernel(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), f64)
		}
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, a.DType()))
	}

	return result
}

// vectorKernel applies f element-wise over same-shape operands.
func vectorKernel[T float32 | float64](dst, a, b []T, f func(x, y T) T) {
	for i := range dst {
		dst[i] = f(a[i], b[i])
	}
}

// broadcastKernel applies f over broadcast operands by walking the output
// index space and mapping each position back through broadcast strides
// (stride 0 for broadcast dimensions).
func broadcastKernel[T float32 | float64](
	dst, a, b []T,
	aShape, bShape, outShape tensor.Shape,
	f func(x, y T) T,
) {
	outStrides := outShape.ComputeStrides()
	aStrides := broadcastStrides(aShape, outShape)
	bStrides := broadcastStrides(bShape, outShape)

	for i := range dst {
		dst[i] = f(a[flatIndex(i, outStrides, aStrides)], b[flatIndex(i, outStrides, bStrides)])
	}
}

// broadcastStrides computes strides for broadcasting inShape to outShape.
// Dimensions of size 1 (and padded leading dimensions) get stride 0.
func broadcastStrides(inShape, outShape tensor.Shape) []int {
	outDim := len(outShape)
	strides := make([]int, outDim)

	inDim := len(inShape)
	offset := outDim - inDim
	origStrides := inShape.ComputeStrides()

	for i := 0; i < outDim; i++ {
		inIdx := i - offset
		switch {
		case inIdx < 0:
			strides[i] = 0 // Padded dimension
		case inShape[inIdx] == 1:
			strides[i] = 0 // Broadcast dimension
		default:
			strides[i] = origStrides[inIdx]
		}
	}

	return strides
}

// flatIndex maps an output flat index to the source flat index using the
// output strides and the broadcast-adjusted input strides.
func flatIndex(outIdx int, outStrides, inStrides []int) int {
	idx := 0
	for i := range outStrides {
		coord := outIdx / outStrides[i]
		outIdx %= outStrides[i]
		idx += coord * inStrides[i]
	}
	return idx
}
