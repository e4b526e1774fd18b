package ops

import (
	"github.com/seam-ml/seam/internal/tensor"
)

// reduceBroadcast reduces a gradient tensor to match the target shape.
// Needed when broadcasting was used in the forward pass: gradients along
// broadcast dimensions must be summed back down.
//
// Example:
//
//	Forward: a[1,4] + b[3,4] -> c[3,4]  (a was broadcast along dim 0)
//	Backward: grad_c[3,4] -> grad_a[1,4] (sum along dim 0)
func reduceBroadcast(grad *tensor.RawTensor, targetShape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	gradShape := grad.Shape()

	// Clone on the matching path so callers never alias the upstream gradient.
	if gradShape.Equal(targetShape) {
		return grad.Clone()
	}

	// NumPy broadcasting aligns shapes from the right: sum away extra
	// leading dimensions first.
	result := grad
	for len(result.Shape()) > len(targetShape) {
		summed := backend.SumDim(result, 0)
		result = backend.Reshape(summed, summed.Shape()[1:])
	}

	// Then sum along dimensions where the target is 1.
	for i, dim := range targetShape {
		if dim == 1 && result.Shape()[i] > 1 {
			result = backend.SumDim(result, i)
		}
	}

	if !result.Shape().Equal(targetShape) {
		result = backend.Reshape(result, targetShape)
	}

	return result
}

// zerosLike returns a zero tensor with the same shape and dtype as t.
func zerosLike(t *tensor.RawTensor) *tensor.RawTensor {
	raw, err := tensor.NewRaw(t.Shape(), t.DType(), t.Device())
	if err != nil {
		panic(err)
	}
	return raw
}

// onesLike returns a tensor of ones with the same shape and dtype as t.
func onesLike(t *tensor.RawTensor) *tensor.RawTensor {
	raw, err := tensor.NewRaw(t.Shape(), t.DType(), t.Device())
	if err != nil {
		panic(err)
	}
	switch t.DType() {
	case tensor.Float32:
		data := raw.AsFloat32()
		for i := range data {
			data[i] = 1
		}
	case tensor.Float64:
		data := raw.AsFloat64()
		for i := range data {
			data[i] = 1
		}
	default:
		panic("onesLike: unsupported dtype")
	}
	return raw
}
