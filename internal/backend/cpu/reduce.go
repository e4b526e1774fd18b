package cpu

import (
	"fmt"

	"github.com/seam-ml/seam/internal/tensor"
)

// Sum reduces to the total sum, returned as a single-element tensor of
// shape [1].
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	result, err := tensor.NewRaw(tensor.Shape{1}, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("sum: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		result.AsFloat32()[0] = sumKernel(x.AsFloat32())
	case tensor.Float64:
		result.AsFloat64()[0] = sumKernel(x.AsFloat64())
	default:
		panic(fmt.Sprintf("sum: unsupported dtype %s", x.DType()))
	}

	return result
}

// Mean reduces to the total mean, returned as a single-element tensor of
// shape [1].
func (cpu *CPUBackend) Mean(x *tensor.RawTensor) *tensor.RawTensor {
	result := cpu.Sum(x)
	n := float64(x.NumElements())

	switch x.DType() {
	case tensor.Float32:
		result.AsFloat32()[0] /= float32(n)
	case tensor.Float64:
		result.AsFloat64()[0] /= n
	}

	return result
}

func sumKernel[T float32 | float64](data []T) T {
	var sum T
	for _, v := range data {
		sum += v
	}
	return sum
}

// SumDim sums along the given dimension. The reduced dimension is kept with
// size 1, which is what the broadcast-reduction in the backward pass needs.
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)
	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("sumdim: dimension %d out of range for %dD tensor", dim, ndim))
	}

	outShape := shape.Clone()
	outShape[dim] = 1

	result, err := tensor.NewRaw(outShape, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("sumdim: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		sumDimKernel(x.AsFloat32(), result.AsFloat32(), shape, dim)
	case tensor.Float64:
		sumDimKernel(x.AsFloat64(), result.AsFloat64(), shape, dim)
	default:
		panic(fmt.Sprintf("sumdim: unsupported dtype %s", x.DType()))
	}

	return result
}

// sumDimKernel accumulates every input element into the output position
// obtained by zeroing its coordinate along dim.
func sumDimKernel[T float32 | float64](data, result []T, shape tensor.Shape, dim int) {
	inStrides := shape.ComputeStrides()

	outShape := shape.Clone()
	outShape[dim] = 1
	outStrides := outShape.ComputeStrides()

	for i, v := range data {
		rem := i
		outIdx := 0
		for d := range shape {
			coord := rem / inStrides[d]
			rem %= inStrides[d]
			if d != dim {
				outIdx += coord * outStrides[d]
			}
		}
		result[outIdx] += v
	}
}

// Argmax returns the index of the maximum value along dim, as an int32
// tensor with the reduced dimension removed.
func (cpu *CPUBackend) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)
	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("argmax: dimension %d out of range for %dD tensor", dim, ndim))
	}

	outShape := make(tensor.Shape, 0, ndim-1)
	for i := 0; i < ndim; i++ {
		if i != dim {
			outShape = append(outShape, shape[i])
		}
	}
	if len(outShape) == 0 {
		outShape = tensor.Shape{1}
	}

	result, err := tensor.NewRaw(outShape, tensor.Int32, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("argmax: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		argmaxKernel(x.AsFloat32(), result.AsInt32(), shape, dim)
	case tensor.Float64:
		argmaxKernel(x.AsFloat64(), result.AsInt32(), shape, dim)
	default:
		panic(fmt.Sprintf("argmax: unsupported dtype %s", x.DType()))
	}

	return result
}

func argmaxKernel[T float32 | float64](data []T, result []int32, shape tensor.Shape, dim int) {
	strides := shape.ComputeStrides()
	dimSize := shape[dim]
	dimStride := strides[dim]

	// Iterate over every position of the reduced output; for each, scan the
	// dim axis in the input.
	outer := shape.NumElements() / dimSize
	for o := 0; o < outer; o++ {
		// Reconstruct base input offset for this output position.
		base := 0
		rem := o
		for d := len(shape) - 1; d >= 0; d-- {
			if d == dim {
				continue
			}
			coord := rem % shape[d]
			rem /= shape[d]
			base += coord * strides[d]
		}

		best := data[base]
		bestIdx := 0
		for j := 1; j < dimSize; j++ {
			if v := data[base+j*dimStride]; v > best {
				best = v
				bestIdx = j
			}
		}
		result[o] = int32(bestIdx) //nolint:gosec // G115: dimension sizes fit in int32
	}
}
