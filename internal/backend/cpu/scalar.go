package cpu

import (
	"fmt"

	"github.com/seam-ml/seam/internal/tensor"
)

// AddScalar adds a scalar to every element.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	return cpu.scalarOp("addscalar", x, scalar,
		func(v float32, s float32) float32 { return v + s },
		func(v float64, s float64) float64 { return v + s })
}

// MulScalar multiplies every element by a scalar.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	return cpu.scalarOp("mulscalar", x, scalar,
		func(v float32, s float32) float32 { return v * s },
		func(v float64, s float64) float64 { return v * s })
}

func (cpu *CPUBackend) scalarOp(
	name string,
	x *tensor.RawTensor,
	scalar float64,
	f32 func(v, s float32) float32,
	f64 func(v, s float64) float64,
) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", name, err))
	}

	switch x.DType() {
	case tensor.Float32:
		src := x.AsFloat32()
		dst := result.AsFloat32()
		s := float32(scalar)
		for i := range dst {
			dst[i] = f32(src[i], s)
		}
	case tensor.Float64:
		src := x.AsFloat64()
		dst := result.AsFloat64()
		for i := range dst {
			dst[i] = f64(src[i], scalar)
		}
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, x.DType()))
	}

	return result
}
