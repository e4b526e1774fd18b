package data

import (
	"math/rand"
)

// Synthetic builds a deterministic ten-class dataset: each class has a
// fixed random center in feature space, and examples are the center plus
// Gaussian noise. A linear model separates it easily, so a training run
// over it should drive the loss down fast; useful for tests and for
// exercising the training loop without downloading anything.
func Synthetic(examples, width, classes int, seed int64) *InMemory {
	rng := rand.New(rand.NewSource(seed))

	centers := make([]float32, classes*width)
	for i := range centers {
		centers[i] = float32(rng.NormFloat64()) * 2
	}

	features := make([]float32, examples*width)
	labels := make([]int32, examples)
	for i := 0; i < examples; i++ {
		class := i % classes
		labels[i] = int32(class)
		for j := 0; j < width; j++ {
			features[i*width+j] = centers[class*width+j] + float32(rng.NormFloat64())*0.3
		}
	}

	return NewInMemory(features, labels, width, classes)
}
