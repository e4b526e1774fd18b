// Package optim implements optimization algorithms for training:
//   - Optimizer interface
//   - SGD: stochastic gradient descent with optional momentum
//   - Adam: adaptive moment estimation with bias correction
//
// Design inspired by PyTorch's torch.optim but adapted for Go generics.
//
// Optimizers read gradients directly from each parameter's accumulator
// slot, populated by autodiff.Backward:
//
//	loss := lossFn.Forward(model.Forward(x), y)
//	if err := autodiff.Backward(loss, backend); err != nil { ... }
//	if err := optimizer.Step(); err != nil { ... }
//	optimizer.ZeroGrad()
package optim

// Optimizer is the base interface for all optimization algorithms.
type Optimizer interface {
	// Step applies one gradient update to all parameters, reading each
	// parameter's accumulated gradient slot. Returns ErrGraph-wrapped
	// "no gradient available" when no parameter has a populated
	// gradient, which almost always means Backward was never called.
	Step() error

	// ZeroGrad resets every parameter's gradient slot. Call between
	// iterations so updates do not compound stale gradients.
	ZeroGrad()

	// LR returns the current learning rate.
	LR() float32
}
