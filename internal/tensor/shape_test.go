package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShape_NumElements(t *testing.T) {
	tests := []struct {
		shape Shape
		want  int
	}{
		{Shape{1}, 1},
		{Shape{5}, 5},
		{Shape{2, 3}, 6},
		{Shape{2, 3, 4}, 24},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.shape.NumElements(), "shape %v", tt.shape)
	}
}

func TestShape_ComputeStrides(t *testing.T) {
	assert.Equal(t, []int{12, 4, 1}, Shape{2, 3, 4}.ComputeStrides())
	assert.Equal(t, []int{1}, Shape{5}.ComputeStrides())
}

func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		name      string
		a, b      Shape
		want      Shape
		broadcast bool
	}{
		{"same", Shape{2, 3}, Shape{2, 3}, Shape{2, 3}, false},
		{"row broadcast", Shape{3, 1}, Shape{3, 4}, Shape{3, 4}, true},
		{"rank extension", Shape{5, 3}, Shape{3}, Shape{5, 3}, true},
		{"scalar-ish", Shape{1}, Shape{4, 2}, Shape{4, 2}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, broadcast, err := BroadcastShapes(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.broadcast, broadcast)
		})
	}
}

func TestBroadcastShapes_Incompatible(t *testing.T) {
	_, _, err := BroadcastShapes(Shape{2, 3}, Shape{2, 4})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}
