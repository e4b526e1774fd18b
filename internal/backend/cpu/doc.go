// Package cpu provides the reference CPU implementation of tensor.Backend.
//
// All kernels are plain Go loops over the flat data buffers, with generic
// float32/float64 dispatch. Broadcasting follows NumPy rules via
// stride-0 virtual dimensions.
//
// Error convention: kernels panic with ErrShapeMismatch-wrapped errors on
// incompatible operands. The autodiff engine's backward entry point and the
// training loop convert these panics back into error returns at the API
// boundary.
package cpu
