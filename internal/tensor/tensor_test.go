package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seam-ml/seam/internal/backend/cpu"
	"github.com/seam-ml/seam/internal/tensor"
)

func TestFromSlice(t *testing.T) {
	backend := cpu.New()

	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 3}, x.Shape())
	assert.Equal(t, tensor.Float32, x.DType())
	assert.Equal(t, float32(6), x.At(1, 2))
}

func TestFromSlice_WrongLength(t *testing.T) {
	backend := cpu.New()

	_, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{2, 3}, backend)
	require.Error(t, err)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

func TestItem(t *testing.T) {
	backend := cpu.New()

	x, err := tensor.FromSlice([]float32{42}, tensor.Shape{1}, backend)
	require.NoError(t, err)
	assert.Equal(t, float32(42), x.Item())

	y := tensor.Ones[float32](tensor.Shape{2, 2}, backend)
	assert.Panics(t, func() { y.Item() })
}

func TestAtSet(t *testing.T) {
	backend := cpu.New()

	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
	x.Set(7, 1, 1)
	assert.Equal(t, float32(7), x.At(1, 1))
	assert.Equal(t, float32(0), x.At(0, 1))
	assert.Panics(t, func() { x.At(2, 0) })
}

func TestDetach(t *testing.T) {
	backend := cpu.New()

	x, err := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, backend)
	require.NoError(t, err)
	x.RequireGrad()

	detached := x.Detach()
	assert.False(t, detached.RequiresGrad())

	// Detach shares storage with the original.
	detached.Data()[0] = 5
	assert.Equal(t, float32(5), x.Data()[0])
}

func TestCreation(t *testing.T) {
	backend := cpu.New()

	ones := tensor.Ones[float64](tensor.Shape{3}, backend)
	assert.Equal(t, []float64{1, 1, 1}, ones.Data())

	full := tensor.Full[float32](tensor.Shape{2}, 3.5, backend)
	assert.Equal(t, []float32{3.5, 3.5}, full.Data())

	randn := tensor.Randn[float32](tensor.Shape{100}, backend)
	assert.Equal(t, 100, randn.NumElements())

	uniform := tensor.Rand[float32](tensor.Shape{100}, backend)
	for _, v := range uniform.Data() {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.Less(t, v, float32(1))
	}
}
