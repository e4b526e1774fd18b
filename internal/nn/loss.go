package nn

import (
	"github.com/seam-ml/seam/internal/tensor"
)

// CrossEntropyBackend is satisfied by backends that support the fused
// softmax + negative-log-likelihood loss.
type CrossEntropyBackend interface {
	CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor
}

// BCEWithLogitsBackend is satisfied by backends that support the fused
// sigmoid + binary cross-entropy loss.
type BCEWithLogitsBackend interface {
	BCEWithLogits(logits, targets *tensor.RawTensor) *tensor.RawTensor
}

// CrossEntropyLoss computes the mean cross-entropy between raw logits
// [batch, classes] and int32 class indices [batch]. The softmax is fused
// into the loss for numerical stability, so the model should output raw
// logits, not probabilities.
type CrossEntropyLoss[B tensor.Backend] struct{}

// NewCrossEntropyLoss creates a new CrossEntropyLoss module.
func NewCrossEntropyLoss[B tensor.Backend]() *CrossEntropyLoss[B] {
	return &CrossEntropyLoss[B]{}
}

// Forward returns the scalar mean loss over the batch.
func (l *CrossEntropyLoss[B]) Forward(logits *tensor.Tensor[float32, B], targets *tensor.Tensor[int32, B]) *tensor.Tensor[float32, B] {
	backend := logits.Backend()
	cb, ok := any(backend).(CrossEntropyBackend)
	if !ok {
		panic("CrossEntropyLoss: backend must implement the CrossEntropy operation (use autodiff.AutodiffBackend)")
	}
	return tensor.New[float32, B](cb.CrossEntropy(logits.Raw(), targets.Raw()), backend)
}

// BCEWithLogitsLoss computes the mean binary cross-entropy between raw
// logits and 0/1 float targets of the same shape. The sigmoid is fused
// into the loss using the log-sum-exp-stable formulation.
type BCEWithLogitsLoss[B tensor.Backend] struct{}

// NewBCEWithLogitsLoss creates a new BCEWithLogitsLoss module.
func NewBCEWithLogitsLoss[B tensor.Backend]() *BCEWithLogitsLoss[B] {
	return &BCEWithLogitsLoss[B]{}
}

// Forward returns the scalar mean loss over all elements.
func (l *BCEWithLogitsLoss[B]) Forward(logits, targets *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	backend := logits.Backend()
	bb, ok := any(backend).(BCEWithLogitsBackend)
	if !ok {
		panic("BCEWithLogitsLoss: backend must implement the BCEWithLogits operation (use autodiff.AutodiffBackend)")
	}
	return tensor.New[float32, B](bb.BCEWithLogits(logits.Raw(), targets.Raw()), backend)
}
