// Copyright 2026 Seam ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation.
//
// It wraps any backend with a gradient tape that records operations
// during the forward pass and propagates gradients in reverse:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//
//	x, _ := tensor.FromSlice([]float32{2}, tensor.Shape{1}, backend)
//	x.RequireGrad()
//	y := x.Mul(x)
//
//	if err := autodiff.Backward(y, backend); err != nil { ... }
//	fmt.Println(x.Grad()) // dy/dx = 2x = 4
package autodiff

import (
	"github.com/seam-ml/seam/internal/autodiff"
	"github.com/seam-ml/seam/internal/tensor"
)

// Backend is the autodiff-enabled backend decorator.
type Backend[B tensor.Backend] = autodiff.AutodiffBackend[B]

// New creates an autodiff backend wrapping the given backend.
func New[B tensor.Backend](backend B) *Backend[B] {
	return autodiff.New(backend)
}

// GradientTape records operations for reverse-mode differentiation.
type GradientTape = autodiff.GradientTape

// NewGradientTape creates a new, non-recording gradient tape.
func NewGradientTape() *GradientTape {
	return autodiff.NewGradientTape()
}

// BackwardCapable is satisfied by backends that carry a gradient tape.
type BackwardCapable = autodiff.BackwardCapable

// ErrGraph indicates a backward request the recorded graph cannot satisfy.
var ErrGraph = autodiff.ErrGraph

// Backward propagates gradients from a scalar output into the gradient
// slot of every tracked tensor that contributed to it.
func Backward[T tensor.DType, B BackwardCapable](t *tensor.Tensor[T, B], backend B) error {
	return autodiff.Backward(t, backend)
}

// BackwardWithSeed is Backward with an explicit output gradient, for
// non-scalar outputs.
func BackwardWithSeed[T tensor.DType, B BackwardCapable](t, seed *tensor.Tensor[T, B], backend B) error {
	return autodiff.BackwardWithSeed(t, seed, backend)
}
