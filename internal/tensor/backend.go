package tensor

// Backend defines the interface that all compute backends must implement.
// Backends handle the actual computation for tensor operations.
//
// Implementations:
//   - CPU: pure Go (internal/backend/cpu)
//   - Autodiff: decorator recording operations for differentiation
//     (internal/autodiff), wrapping any other backend
//
// Backends panic with ErrShapeMismatch-wrapped errors on incompatible
// operands; callers that need errors recover at the API boundary.
type Backend interface {
	// Element-wise binary operations with NumPy-style broadcasting
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Matrix operations (2D)
	MatMul(a, b *RawTensor) *RawTensor

	// Shape operations
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor

	// Scalar operations (element-wise with a scalar)
	AddScalar(x *RawTensor, scalar float64) *RawTensor
	MulScalar(x *RawTensor, scalar float64) *RawTensor

	// Reduction operations
	Sum(x *RawTensor) *RawTensor                 // total sum (single-element result)
	Mean(x *RawTensor) *RawTensor                // total mean (single-element result)
	SumDim(x *RawTensor, dim int) *RawTensor     // sum along dimension (dim kept as size 1)
	Argmax(x *RawTensor, dim int) *RawTensor     // index of maximum along dimension (int32)

	// Metadata
	Name() string
	Device() Device
}
