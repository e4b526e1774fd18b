package cpu

import (
	"fmt"

	"github.com/seam-ml/seam/internal/tensor"
)

// Reshape returns a copy of the tensor with a new shape.
// The new shape must have the same number of elements.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if t.NumElements() != newShape.NumElements() {
		panic(tensor.ShapeMismatchf("reshape: cannot reshape %v (%d elements) to %v (%d elements)",
			t.Shape(), t.NumElements(), newShape, newShape.NumElements()))
	}

	result, err := tensor.NewRaw(newShape, t.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}

	copy(result.Data(), t.Data())
	return result
}

// Transpose permutes the tensor's dimensions.
// With no axes, all dimensions are reversed (standard transpose for 2D).
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		panic(tensor.ShapeMismatchf("transpose: %d axes for %dD tensor", len(axes), ndim))
	}

	seen := make([]bool, ndim)
	outShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		if ax < 0 || ax >= ndim || seen[ax] {
			panic(fmt.Sprintf("transpose: invalid axes %v for shape %v", axes, shape))
		}
		seen[ax] = true
		outShape[i] = shape[ax]
	}

	result, err := tensor.NewRaw(outShape, t.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("transpose: %v", err))
	}

	switch t.DType() {
	case tensor.Float32:
		transposeKernel(t.AsFloat32(), result.AsFloat32(), shape, outShape, axes)
	case tensor.Float64:
		transposeKernel(t.AsFloat64(), result.AsFloat64(), shape, outShape, axes)
	case tensor.Int32:
		transposeKernel(t.AsInt32(), result.AsInt32(), shape, outShape, axes)
	default:
		panic(fmt.Sprintf("transpose: unsupported dtype %s", t.DType()))
	}

	return result
}

func transposeKernel[T float32 | float64 | int32](src, dst []T, inShape, outShape tensor.Shape, axes []int) {
	inStrides := inShape.ComputeStrides()
	outStrides := outShape.ComputeStrides()

	for outIdx := range dst {
		// Convert output index to coordinates, then map back through axes.
		rem := outIdx
		inIdx := 0
		for d := range outShape {
			coord := rem / outStrides[d]
			rem %= outStrides[d]
			inIdx += coord * inStrides[axes[d]]
		}
		dst[outIdx] = src[inIdx]
	}
}
