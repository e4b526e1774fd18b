// Copyright 2026 Seam ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides neural network building blocks: modules,
// parameters, layers, activations and loss functions.
//
// Example:
//
//	model := nn.NewSequential[*autodiff.Backend[*cpu.Backend]](
//	    nn.NewLinear(784, 128, backend),
//	    nn.NewReLU[*autodiff.Backend[*cpu.Backend]](),
//	    nn.NewLinear(128, 10, backend),
//	)
package nn

import (
	"github.com/seam-ml/seam/internal/nn"
	"github.com/seam-ml/seam/internal/tensor"
)

// Module is the base interface for all neural network components.
type Module[B tensor.Backend] = nn.Module[B]

// Parameter is a trainable tensor with permanently enabled gradient
// tracking.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NewParameter creates a trainable parameter from an initialized tensor.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// Linear is a fully connected layer: y = x @ W^T + b.
type Linear[B tensor.Backend] = nn.Linear[B]

// NewLinear creates a Linear layer with Xavier-initialized weights.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B) *Linear[B] {
	return nn.NewLinear(inFeatures, outFeatures, backend)
}

// ReLU is the rectified linear unit activation module.
type ReLU[B tensor.Backend] = nn.ReLU[B]

// NewReLU creates a ReLU activation module.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return nn.NewReLU[B]()
}

// Sigmoid is the logistic activation module.
type Sigmoid[B tensor.Backend] = nn.Sigmoid[B]

// NewSigmoid creates a Sigmoid activation module.
func NewSigmoid[B tensor.Backend]() *Sigmoid[B] {
	return nn.NewSigmoid[B]()
}

// Sequential chains modules into a pipeline.
type Sequential[B tensor.Backend] = nn.Sequential[B]

// NewSequential creates a Sequential container over the given modules.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return nn.NewSequential(modules...)
}

// CrossEntropyLoss is the fused softmax + negative-log-likelihood loss.
type CrossEntropyLoss[B tensor.Backend] = nn.CrossEntropyLoss[B]

// NewCrossEntropyLoss creates a CrossEntropyLoss module.
func NewCrossEntropyLoss[B tensor.Backend]() *CrossEntropyLoss[B] {
	return nn.NewCrossEntropyLoss[B]()
}

// BCEWithLogitsLoss is the fused sigmoid + binary cross-entropy loss.
type BCEWithLogitsLoss[B tensor.Backend] = nn.BCEWithLogitsLoss[B]

// NewBCEWithLogitsLoss creates a BCEWithLogitsLoss module.
func NewBCEWithLogitsLoss[B tensor.Backend]() *BCEWithLogitsLoss[B] {
	return nn.NewBCEWithLogitsLoss[B]()
}

// Xavier returns a Glorot-uniform initialized tensor.
func Xavier[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return nn.Xavier(fanIn, fanOut, shape, backend)
}
