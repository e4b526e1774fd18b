package tensor

import (
	"fmt"
	"unsafe"
)

// Device represents the compute device for tensor operations.
type Device int

// Supported compute devices. Only CPU ships today; the enum keeps the
// seam for accelerator backends.
const (
	CPU Device = iota
	CUDA
	WebGPU
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	case CUDA:
		return "CUDA"
	case WebGPU:
		return "WebGPU"
	default:
		return "Unknown"
	}
}

// RawTensor is the low-level tensor representation: a flat byte buffer plus
// shape/stride/dtype metadata, and the autodiff bookkeeping that the engine
// needs on every node:
//
//   - requiresGrad: whether operations consuming this tensor should be
//     recorded for differentiation. Leaf parameters have it permanently
//     enabled; outputs of recorded operations inherit it.
//   - grad: the gradient accumulator, same shape as the value, lazily
//     allocated on the first backward pass. Backward ADDS into it; callers
//     zero it explicitly between iterations.
type RawTensor struct {
	data   []byte
	shape  Shape
	stride []int
	dtype  DataType
	device Device

	requiresGrad bool
	grad         *RawTensor
}

// NewRaw creates a new RawTensor with the given shape and type.
// Memory is allocated and zero-initialized.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	byteSize := shape.NumElements() * dtype.Size()

	return &RawTensor{
		data:   make([]byte, byteSize),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
		device: device,
	}, nil
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Strides returns the tensor's memory strides.
func (r *RawTensor) Strides() []int {
	return r.stride
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// Device returns the tensor's compute device.
func (r *RawTensor) Device() Device {
	return r.device
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// ByteSize returns the total memory size in bytes.
func (r *RawTensor) ByteSize() int {
	return r.NumElements() * r.dtype.Size()
}

// Data returns the raw byte slice.
// WARNING: Direct access to underlying memory. Use with caution.
func (r *RawTensor) Data() []byte {
	return r.data
}

// AsFloat32 interprets the data as []float32.
// Panics if the tensor's dtype is not Float32.
func (r *RawTensor) AsFloat32() []float32 {
	if r.dtype != Float32 {
		panic(fmt.Sprintf("tensor dtype is %s, not float32", r.dtype))
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*float32)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsFloat64 interprets the data as []float64.
// Panics if the tensor's dtype is not Float64.
func (r *RawTensor) AsFloat64() []float64 {
	if r.dtype != Float64 {
		panic(fmt.Sprintf("tensor dtype is %s, not float64", r.dtype))
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*float64)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsInt32 interprets the data as []int32.
// Panics if the tensor's dtype is not Int32.
func (r *RawTensor) AsInt32() []int32 {
	if r.dtype != Int32 {
		panic(fmt.Sprintf("tensor dtype is %s, not int32", r.dtype))
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*int32)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsUint8 interprets the data as []uint8.
// Panics if the tensor's dtype is not Uint8.
func (r *RawTensor) AsUint8() []uint8 {
	if r.dtype != Uint8 {
		panic(fmt.Sprintf("tensor dtype is %s, not uint8", r.dtype))
	}
	return r.data
}

// Clone creates a deep copy of the RawTensor's value.
// The clone carries no gradient and no tracking flag.
func (r *RawTensor) Clone() *RawTensor {
	data := make([]byte, len(r.data))
	copy(data, r.data)
	return &RawTensor{
		data:   data,
		shape:  r.shape.Clone(),
		stride: append([]int(nil), r.stride...),
		dtype:  r.dtype,
		device: r.device,
	}
}

// RequiresGrad reports whether operations on this tensor should be tracked.
func (r *RawTensor) RequiresGrad() bool {
	return r.requiresGrad
}

// SetRequiresGrad marks or unmarks this tensor for gradient tracking.
func (r *RawTensor) SetRequiresGrad(requires bool) {
	r.requiresGrad = requires
}

// Grad returns the gradient accumulator, or nil if no backward pass has
// reached this tensor yet.
func (r *RawTensor) Grad() *RawTensor {
	return r.grad
}

// AccumGrad adds contrib into the gradient slot, allocating a zero tensor of
// the value's shape on first use. Repeated backward passes without an
// intervening ZeroGrad sum into the existing gradient.
//
// Returns ErrShapeMismatch if contrib's shape differs from the value's shape:
// a propagation rule that produces a misshapen gradient is a bug in the rule,
// not something to silently reshape away.
func (r *RawTensor) AccumGrad(contrib *RawTensor) error {
	if !contrib.Shape().Equal(r.shape) {
		return ShapeMismatchf("gradient shape %v does not match value shape %v", contrib.Shape(), r.shape)
	}
	if contrib.DType() != r.dtype {
		return ShapeMismatchf("gradient dtype %s does not match value dtype %s", contrib.DType(), r.dtype)
	}

	if r.grad == nil {
		g, err := NewRaw(r.shape, r.dtype, r.device)
		if err != nil {
			return err
		}
		r.grad = g
	}

	switch r.dtype {
	case Float32:
		dst := r.grad.AsFloat32()
		src := contrib.AsFloat32()
		for i := range dst {
			dst[i] += src[i]
		}
	case Float64:
		dst := r.grad.AsFloat64()
		src := contrib.AsFloat64()
		for i := range dst {
			dst[i] += src[i]
		}
	default:
		return fmt.Errorf("AccumGrad: unsupported dtype %s", r.dtype)
	}
	return nil
}

// ZeroGrad resets the gradient slot to the zero value of its shape.
// A never-populated slot stays nil; zeroing is cheap and keeps the
// allocation for the next backward pass.
func (r *RawTensor) ZeroGrad() {
	if r.grad == nil {
		return
	}
	clear(r.grad.data)
}
