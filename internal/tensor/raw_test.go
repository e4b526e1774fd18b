package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRawFloat32(t *testing.T, shape Shape, values []float32) *RawTensor {
	t.Helper()
	raw, err := NewRaw(shape, Float32, CPU)
	require.NoError(t, err)
	copy(raw.AsFloat32(), values)
	return raw
}

func TestAccumGrad_LazyAllocationAndSum(t *testing.T) {
	value := newRawFloat32(t, Shape{3}, []float32{1, 2, 3})
	require.Nil(t, value.Grad(), "gradient slot starts empty")

	contrib := newRawFloat32(t, Shape{3}, []float32{0.5, 1, 1.5})
	require.NoError(t, value.AccumGrad(contrib))
	assert.Equal(t, []float32{0.5, 1, 1.5}, value.Grad().AsFloat32())

	// Second contribution adds, never replaces.
	require.NoError(t, value.AccumGrad(contrib))
	assert.Equal(t, []float32{1, 2, 3}, value.Grad().AsFloat32())
}

func TestAccumGrad_ShapeMismatch(t *testing.T) {
	value := newRawFloat32(t, Shape{3}, []float32{1, 2, 3})
	bad := newRawFloat32(t, Shape{2}, []float32{1, 2})

	err := value.AccumGrad(bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrShapeMismatch)
	assert.Nil(t, value.Grad(), "failed accumulation must not allocate a slot")
}

func TestZeroGrad(t *testing.T) {
	value := newRawFloat32(t, Shape{2}, []float32{1, 2})

	// Zeroing an empty slot is a no-op.
	value.ZeroGrad()
	assert.Nil(t, value.Grad())

	contrib := newRawFloat32(t, Shape{2}, []float32{3, 4})
	require.NoError(t, value.AccumGrad(contrib))

	value.ZeroGrad()
	require.NotNil(t, value.Grad(), "zeroing keeps the allocation")
	assert.Equal(t, []float32{0, 0}, value.Grad().AsFloat32())

	// Accumulation after zeroing starts from scratch.
	require.NoError(t, value.AccumGrad(contrib))
	assert.Equal(t, []float32{3, 4}, value.Grad().AsFloat32())
}

func TestRawTensor_Clone(t *testing.T) {
	original := newRawFloat32(t, Shape{2}, []float32{1, 2})
	original.SetRequiresGrad(true)

	clone := original.Clone()
	clone.AsFloat32()[0] = 99

	assert.Equal(t, float32(1), original.AsFloat32()[0], "clone must not alias the original")
	assert.False(t, clone.RequiresGrad(), "clone carries no tracking flag")
	assert.Nil(t, clone.Grad())
}

func TestRawTensor_TypedViewPanicsOnWrongDType(t *testing.T) {
	raw, err := NewRaw(Shape{2}, Float32, CPU)
	require.NoError(t, err)
	assert.Panics(t, func() { raw.AsInt32() })
}
