package autodiff

import (
	"github.com/seam-ml/seam/internal/tensor"
)

// BackwardCapable is satisfied by backends that carry a gradient tape.
// AutodiffBackend implements it.
type BackwardCapable interface {
	tensor.Backend
	GetTape() *GradientTape
}

// GetTape returns the gradient tape (implements BackwardCapable).
func (b *AutodiffBackend[B]) GetTape() *GradientTape {
	return b.tape
}

// Backward propagates gradients from a scalar output back through every
// recorded operation, adding each tensor's contribution into its gradient
// slot. The implicit seed is 1.
//
// Returns ErrGraph when t is not tracked, when the tape is empty, or when
// t has more than one element. A non-scalar output needs an explicit seed;
// use BackwardWithSeed.
//
// Backward is idempotent on the tape: calling it again without clearing
// re-walks the same operations, so gradient slots receive a second copy of
// every contribution.
func Backward[T tensor.DType, B BackwardCapable](t *tensor.Tensor[T, B], backend B) error {
	if !t.Raw().RequiresGrad() {
		return Graphf("backward on a tensor that is not tracked")
	}
	if backend.GetTape().NumOps() == 0 {
		return Graphf("backward with no recorded operations (is the tape recording?)")
	}
	if t.NumElements() != 1 {
		return Graphf("backward on a non-scalar tensor of shape %v requires an explicit gradient seed", t.Shape())
	}

	seed, err := onesRaw(t.Shape(), t.DType(), backend.Device())
	if err != nil {
		return err
	}
	return backend.GetTape().Backward(t.Raw(), seed, backend)
}

// BackwardWithSeed is Backward with an explicit output gradient, for
// non-scalar outputs or scaled propagation. The seed must match t's shape.
func BackwardWithSeed[T tensor.DType, B BackwardCapable](t, seed *tensor.Tensor[T, B], backend B) error {
	if !t.Raw().RequiresGrad() {
		return Graphf("backward on a tensor that is not tracked")
	}
	if backend.GetTape().NumOps() == 0 {
		return Graphf("backward with no recorded operations (is the tape recording?)")
	}
	if !seed.Shape().Equal(t.Shape()) {
		return tensor.ShapeMismatchf("gradient seed shape %v does not match output shape %v", seed.Shape(), t.Shape())
	}

	return backend.GetTape().Backward(t.Raw(), seed.Raw().Clone(), backend)
}

func onesRaw(shape tensor.Shape, dtype tensor.DataType, device tensor.Device) (*tensor.RawTensor, error) {
	raw, err := tensor.NewRaw(shape, dtype, device)
	if err != nil {
		return nil, err
	}
	switch dtype {
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
		return nil, Graphf("backward seed requires a float tensor, got %s", dtype)
	}
	return raw, nil
}
