// Package nn implements neural network building blocks:
//   - Module interface: base interface for all components
//   - Parameter: trainable tensors with permanently enabled gradient tracking
//   - Linear: fully connected layer
//   - Activations: ReLU, Sigmoid
//   - Loss modules: CrossEntropyLoss, BCEWithLogitsLoss
//   - Sequential: container for stacking layers
//
// Design inspired by PyTorch's nn.Module but adapted for Go generics.
package nn

import (
	"github.com/seam-ml/seam/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Modules compose into architectures:
//
//	model := nn.NewSequential[Backend](
//	    nn.NewLinear(784, 128, backend),
//	    nn.NewReLU[Backend](),
//	    nn.NewLinear(128, 10, backend),
//	)
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all trainable parameters of this module,
	// including those of nested modules. Modules without trainable
	// state return an empty slice.
	Parameters() []*Parameter[B]
}
