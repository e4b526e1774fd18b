// Copyright 2026 Seam ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides optimization algorithms for training.
//
// Example:
//
//	optimizer := optim.NewAdam(model.Parameters(), optim.AdamConfig{LR: 0.001})
//
//	// per iteration:
//	//   autodiff.Backward(loss, backend)
//	//   optimizer.Step()
//	//   optimizer.ZeroGrad()
package optim

import (
	"github.com/seam-ml/seam/internal/nn"
	"github.com/seam-ml/seam/internal/optim"
	"github.com/seam-ml/seam/internal/tensor"
)

// Optimizer is the base interface for all optimization algorithms.
type Optimizer = optim.Optimizer

// SGD is stochastic gradient descent with optional momentum.
type SGD[B tensor.Backend] = optim.SGD[B]

// SGDConfig holds configuration for SGD.
type SGDConfig = optim.SGDConfig

// NewSGD creates an SGD optimizer over the given parameters.
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], config SGDConfig) *SGD[B] {
	return optim.NewSGD(params, config)
}

// Adam is the adaptive moment estimation optimizer.
type Adam[B tensor.Backend] = optim.Adam[B]

// AdamConfig holds configuration for Adam.
type AdamConfig = optim.AdamConfig

// NewAdam creates an Adam optimizer over the given parameters.
func NewAdam[B tensor.Backend](params []*nn.Parameter[B], config AdamConfig) *Adam[B] {
	return optim.NewAdam(params, config)
}
