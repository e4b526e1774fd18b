// Copyright 2026 Seam ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for tensor operations in Seam.
//
// The package defines core interfaces and types for type-safe tensor
// operations:
//   - Tensor[T, B]: high-level generic tensor
//   - RawTensor: low-level representation with gradient bookkeeping
//   - Backend: interface for compute implementations
//   - Shape, DataType, Device: core type definitions
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	y := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
//	z := x.Add(y)
package tensor

import (
	"github.com/seam-ml/seam/internal/tensor"
)

// DType is a constraint for tensor data types.
// Supported types: float32, float64, int32, uint8.
type DType = tensor.DType

// DataType represents the underlying data type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
	Int32   DataType = tensor.Int32
	Uint8   DataType = tensor.Uint8
)

// Device represents the device where tensor data resides.
type Device = tensor.Device

// Device constants.
const (
	CPU    Device = tensor.CPU
	CUDA   Device = tensor.CUDA
	WebGPU Device = tensor.WebGPU
)

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} is a 3D tensor with dimensions 2×3×4.
type Shape = tensor.Shape

// Backend is the interface every compute backend implements.
type Backend = tensor.Backend

// RawTensor is the untyped tensor representation carrying the value, the
// tracking flag and the gradient accumulator slot.
type RawTensor = tensor.RawTensor

// Tensor is a generic type-safe tensor over a data type and a backend.
type Tensor[T DType, B Backend] = tensor.Tensor[T, B]

// ErrShapeMismatch indicates incompatible operand or gradient dimensions.
var ErrShapeMismatch = tensor.ErrShapeMismatch

// New creates a Tensor from a RawTensor and backend.
func New[T DType, B Backend](raw *RawTensor, b B) *Tensor[T, B] {
	return tensor.New[T, B](raw, b)
}

// NewRaw creates a zero-initialized RawTensor.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// Zeros creates a tensor filled with zeros.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Zeros[T, B](shape, b)
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Ones[T, B](shape, b)
}

// Full creates a tensor filled with a specific value.
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	return tensor.Full[T, B](shape, value, b)
}

// Randn creates a tensor with values drawn from N(0, 1).
func Randn[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Randn[T, B](shape, b)
}

// Rand creates a tensor with values drawn from U(0, 1).
func Rand[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Rand[T, B](shape, b)
}

// FromSlice creates a tensor from a Go slice.
//
// Example:
//
//	x, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
func FromSlice[T DType, B Backend](data []T, shape Shape, b B) (*Tensor[T, B], error) {
	return tensor.FromSlice[T, B](data, shape, b)
}

// BroadcastShapes computes the NumPy-style broadcast result shape, a flag
// indicating whether broadcasting is needed, and an ErrShapeMismatch-wrapped
// error when the shapes are incompatible.
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	return tensor.BroadcastShapes(a, b)
}
