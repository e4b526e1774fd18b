// Package data provides dataset access and batching for training:
//   - Dataset: flat float32 features plus int32 class labels
//   - Batches: fixed-size batching over a dataset
//   - MNIST: IDX-format loader with gzip support and HTTP download
//   - Synthetic: deterministic ten-class dataset for tests and demos
package data

import (
	"math/rand"

	"github.com/seam-ml/seam/internal/tensor"
)

// Dataset is a finite collection of labeled examples. Features are flat
// float32 vectors of a fixed width; labels are class indices.
type Dataset interface {
	// Len returns the number of examples.
	Len() int

	// FeatureWidth returns the length of every feature vector.
	FeatureWidth() int

	// NumClasses returns the number of distinct classes.
	NumClasses() int

	// Example copies the i-th feature vector into features and returns
	// its label. features must have length FeatureWidth.
	Example(i int, features []float32) int32
}

// Batch is a contiguous slice of examples packed for a forward pass.
type Batch struct {
	Features []float32 // [Size * Width], row-major
	Labels   []int32   // [Size]
	Size     int
	Width    int
}

// FeatureTensor packs the batch features into a [Size, Width] tensor.
func (b *Batch) FeatureTensor(backend tensor.Backend) (*tensor.RawTensor, error) {
	raw, err := tensor.NewRaw(tensor.Shape{b.Size, b.Width}, tensor.Float32, backend.Device())
	if err != nil {
		return nil, err
	}
	copy(raw.AsFloat32(), b.Features)
	return raw, nil
}

// LabelTensor packs the batch labels into a [Size] tensor.
func (b *Batch) LabelTensor(backend tensor.Backend) (*tensor.RawTensor, error) {
	raw, err := tensor.NewRaw(tensor.Shape{b.Size}, tensor.Int32, backend.Device())
	if err != nil {
		return nil, err
	}
	copy(raw.AsInt32(), b.Labels)
	return raw, nil
}

// Batches splits ds into fixed-size batches in the given order. perm may
// be nil for dataset order; otherwise it must be a permutation of the
// example indices.
//
// A batch size larger than the dataset yields exactly one batch covering
// every example. The final batch may be smaller than batchSize.
func Batches(ds Dataset, batchSize int, perm []int) []Batch {
	n := ds.Len()
	if batchSize > n {
		batchSize = n
	}
	width := ds.FeatureWidth()

	var batches []Batch
	for start := 0; start < n; start += batchSize {
		end := start + batchSize
		if end > n {
			end = n
		}
		size := end - start

		batch := Batch{
			Features: make([]float32, size*width),
			Labels:   make([]int32, size),
			Size:     size,
			Width:    width,
		}
		for i := 0; i < size; i++ {
			idx := start + i
			if perm != nil {
				idx = perm[idx]
			}
			batch.Labels[i] = ds.Example(idx, batch.Features[i*width:(i+1)*width])
		}
		batches = append(batches, batch)
	}
	return batches
}

// Perm returns a random permutation of the dataset's indices.
func Perm(ds Dataset, rng *rand.Rand) []int {
	return rng.Perm(ds.Len())
}

// InMemory is a Dataset backed by slices.
type InMemory struct {
	features []float32
	labels   []int32
	width    int
	classes  int
}

// NewInMemory creates an in-memory dataset. features is row-major
// [len(labels) * width].
func NewInMemory(features []float32, labels []int32, width, classes int) *InMemory {
	return &InMemory{
		features: features,
		labels:   labels,
		width:    width,
		classes:  classes,
	}
}

// Len returns the number of examples.
func (d *InMemory) Len() int { return len(d.labels) }

// FeatureWidth returns the feature vector length.
func (d *InMemory) FeatureWidth() int { return d.width }

// NumClasses returns the number of classes.
func (d *InMemory) NumClasses() int { return d.classes }

// Example copies the i-th feature row and returns its label.
func (d *InMemory) Example(i int, features []float32) int32 {
	copy(features, d.features[i*d.width:(i+1)*d.width])
	return d.labels[i]
}
