// Package ops defines operation records for automatic differentiation.
//
// Each operation implements the Operation interface: the forward value is
// computed by the backend, and the record captures the operand nodes plus
// the rule for propagating an output gradient back to them (the local
// Jacobian-vector product).
//
// Supported operations:
//   - AddOp, SubOp, MulOp, DivOp: element-wise arithmetic (broadcast-aware)
//   - MatMulOp: matrix multiplication (d(A@B)/dA = grad@Bᵀ, d(A@B)/dB = Aᵀ@grad)
//   - ReshapeOp, TransposeOp: shape moves (gradient reshaped/permuted back)
//   - AddScalarOp, MulScalarOp: scalar arithmetic
//   - ReLUOp, SigmoidOp, SoftmaxOp: activations
//   - SumOp, MeanOp: full reductions
//   - CrossEntropyOp: fused log-softmax + NLL classification loss
//   - BCEWithLogitsOp: binary cross-entropy on raw logits
package ops

import "github.com/seam-ml/seam/internal/tensor"

// Operation is one record in the computation graph. It is created during a
// tracked forward pass and owned by the tape until the tape is cleared.
type Operation interface {
	// Backward computes gradients for inputs given the output gradient.
	// Returns a slice of gradients corresponding to each input tensor;
	// a nil entry means no gradient flows to that input.
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the operand tensors of this operation.
	Inputs() []*tensor.RawTensor

	// Output returns the tensor produced by this operation.
	Output() *tensor.RawTensor
}
