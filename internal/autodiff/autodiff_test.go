package autodiff_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seam-ml/seam/internal/autodiff"
	"github.com/seam-ml/seam/internal/backend/cpu"
	"github.com/seam-ml/seam/internal/tensor"
)

type testBackend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func newTestBackend() testBackend {
	return autodiff.New(cpu.New())
}

func TestBackendName(t *testing.T) {
	backend := newTestBackend()
	assert.Equal(t, "Autodiff(CPU)", backend.Name())
	assert.Equal(t, tensor.CPU, backend.Device())
}

func TestRecordingGate(t *testing.T) {
	backend := newTestBackend()
	tape := backend.Tape()

	x := rawF32(t, tensor.Shape{2}, []float32{1, 2})
	y := rawF32(t, tensor.Shape{2}, []float32{3, 4})

	// Not recording: nothing lands on the tape.
	out := backend.Add(x, y)
	assert.Equal(t, 0, tape.NumOps())
	assert.False(t, out.RequiresGrad())

	// Recording but no input is tracked: still nothing.
	tape.StartRecording()
	out = backend.Add(x, y)
	assert.Equal(t, 0, tape.NumOps())
	assert.False(t, out.RequiresGrad())

	// Recording with a tracked input: recorded, output tracked.
	x.SetRequiresGrad(true)
	out = backend.Add(x, y)
	assert.Equal(t, 1, tape.NumOps())
	assert.True(t, out.RequiresGrad())
}

func TestGradientAccumulation(t *testing.T) {
	backend := newTestBackend()
	tape := backend.Tape()

	x := rawF32(t, tensor.Shape{3}, []float32{1, 2, 3})
	x.SetRequiresGrad(true)

	tape.StartRecording()
	loss := backend.Sum(backend.Mul(x, x))
	tape.StopRecording()

	seed := rawF32(t, tensor.Shape{1}, []float32{1})

	require.NoError(t, tape.Backward(loss, seed, backend))
	assert.Equal(t, []float32{2, 4, 6}, x.Grad().AsFloat32())

	// A second backward pass adds into the existing slot.
	require.NoError(t, tape.Backward(loss, seed, backend))
	assert.Equal(t, []float32{4, 8, 12}, x.Grad().AsFloat32())
}

func TestZeroGradKeepsAllocation(t *testing.T) {
	backend := newTestBackend()
	tape := backend.Tape()

	x := rawF32(t, tensor.Shape{3}, []float32{1, 2, 3})
	x.SetRequiresGrad(true)

	tape.StartRecording()
	loss := backend.Sum(backend.Mul(x, x))
	tape.StopRecording()

	seed := rawF32(t, tensor.Shape{1}, []float32{1})
	require.NoError(t, tape.Backward(loss, seed, backend))

	slot := x.Grad()
	x.ZeroGrad()
	assert.Same(t, slot, x.Grad())
	assert.Equal(t, []float32{0, 0, 0}, x.Grad().AsFloat32())

	// Accumulation after a reset starts from zero again.
	require.NoError(t, tape.Backward(loss, seed, backend))
	assert.Equal(t, []float32{2, 4, 6}, x.Grad().AsFloat32())
}

func TestNoGradScope(t *testing.T) {
	backend := newTestBackend()
	tape := backend.Tape()

	x := rawF32(t, tensor.Shape{2}, []float32{1, 2})
	x.SetRequiresGrad(true)

	tape.StartRecording()
	defer tape.StopRecording()

	tracked := backend.MulScalar(x, 2)
	require.Equal(t, 1, tape.NumOps())

	var untracked *tensor.RawTensor
	backend.NoGrad(func() {
		untracked = backend.MulScalar(x, 2)
	})

	// Same forward values, no tape growth, no tracking.
	assert.Equal(t, tracked.AsFloat32(), untracked.AsFloat32())
	assert.Equal(t, 1, tape.NumOps())
	assert.False(t, untracked.RequiresGrad())

	// Recording resumes after the scope exits.
	resumed := backend.MulScalar(x, 3)
	assert.Equal(t, 2, tape.NumOps())
	assert.True(t, resumed.RequiresGrad())
}

func TestBackwardUntrackedTensor(t *testing.T) {
	backend := newTestBackend()

	x, err := tensor.FromSlice[float32]([]float32{1}, tensor.Shape{1}, backend)
	require.NoError(t, err)

	err = autodiff.Backward(x, backend)
	assert.ErrorIs(t, err, autodiff.ErrGraph)
}

func TestBackwardEmptyTape(t *testing.T) {
	backend := newTestBackend()

	x, err := tensor.FromSlice[float32]([]float32{1}, tensor.Shape{1}, backend)
	require.NoError(t, err)
	x.RequireGrad()

	err = autodiff.Backward(x, backend)
	assert.ErrorIs(t, err, autodiff.ErrGraph)
}

func TestBackwardNonScalarWithoutSeed(t *testing.T) {
	backend := newTestBackend()
	tape := backend.Tape()

	x, err := tensor.FromSlice[float32]([]float32{1, 2, 3}, tensor.Shape{3}, backend)
	require.NoError(t, err)
	x.RequireGrad()

	tape.StartRecording()
	y := x.Mul(x)
	tape.StopRecording()

	err = autodiff.Backward(y, backend)
	assert.ErrorIs(t, err, autodiff.ErrGraph)
}

func TestBackwardWithSeed(t *testing.T) {
	backend := newTestBackend()
	tape := backend.Tape()

	x, err := tensor.FromSlice[float32]([]float32{1, 2, 3}, tensor.Shape{3}, backend)
	require.NoError(t, err)
	x.RequireGrad()

	tape.StartRecording()
	y := x.Mul(x)
	tape.StopRecording()

	seed, err := tensor.FromSlice[float32]([]float32{1, 1, 1}, tensor.Shape{3}, backend)
	require.NoError(t, err)

	require.NoError(t, autodiff.BackwardWithSeed(y, seed, backend))
	assert.Equal(t, []float32{2, 4, 6}, x.Grad().Data())
}

func TestBackwardWithSeedShapeMismatch(t *testing.T) {
	backend := newTestBackend()
	tape := backend.Tape()

	x, err := tensor.FromSlice[float32]([]float32{1, 2, 3}, tensor.Shape{3}, backend)
	require.NoError(t, err)
	x.RequireGrad()

	tape.StartRecording()
	y := x.Mul(x)
	tape.StopRecording()

	seed, err := tensor.FromSlice[float32]([]float32{1, 1}, tensor.Shape{2}, backend)
	require.NoError(t, err)

	err = autodiff.BackwardWithSeed(y, seed, backend)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

func TestTapeBackwardTrackedLeaf(t *testing.T) {
	backend := newTestBackend()
	tape := backend.Tape()

	leaf := rawF32(t, tensor.Shape{2}, []float32{1, 2})
	leaf.SetRequiresGrad(true)

	seed := rawF32(t, tensor.Shape{2}, []float32{5, 7})
	require.NoError(t, tape.Backward(leaf, seed, backend))
	assert.Equal(t, []float32{5, 7}, leaf.Grad().AsFloat32())
}

func TestTapeBackwardUntrackedRoot(t *testing.T) {
	backend := newTestBackend()
	tape := backend.Tape()

	root := rawF32(t, tensor.Shape{1}, []float32{1})
	seed := rawF32(t, tensor.Shape{1}, []float32{1})

	err := tape.Backward(root, seed, backend)
	assert.ErrorIs(t, err, autodiff.ErrGraph)
}

func TestTapeClear(t *testing.T) {
	backend := newTestBackend()
	tape := backend.Tape()

	x := rawF32(t, tensor.Shape{2}, []float32{1, 2})
	x.SetRequiresGrad(true)

	tape.StartRecording()
	backend.Add(x, x)
	require.Equal(t, 1, tape.NumOps())

	tape.Clear()
	assert.Equal(t, 0, tape.NumOps())
	assert.True(t, tape.IsRecording(), "Clear drops operations but keeps recording on")
	tape.StopRecording()
}

func TestLinearModelBCE(t *testing.T) {
	backend := newTestBackend()
	tape := backend.Tape()

	// One input row of ones through an affine map, then BCE against
	// all-zero targets.
	input := rawF32(t, tensor.Shape{1, 5}, []float32{1, 1, 1, 1, 1})
	weight := rawF32(t, tensor.Shape{5, 3}, []float32{
		0.1, -0.2, 0.3,
		-0.4, 0.5, -0.6,
		0.7, -0.8, 0.9,
		-0.1, 0.2, -0.3,
		0.4, -0.5, 0.6,
	})
	weight.SetRequiresGrad(true)
	bias := rawF32(t, tensor.Shape{3}, []float32{0.05, -0.1, 0.15})
	bias.SetRequiresGrad(true)
	targets := rawF32(t, tensor.Shape{3}, []float32{0, 0, 0})

	tape.StartRecording()
	z := backend.Reshape(backend.Add(backend.MatMul(input, weight), bias), tensor.Shape{3})
	loss := backend.BCEWithLogits(z, targets)
	tape.StopRecording()

	require.Equal(t, tensor.Shape{1}, loss.Shape())
	lossVal := loss.AsFloat32()[0]
	assert.Greater(t, lossVal, float32(0))
	assert.False(t, math.IsNaN(float64(lossVal)))

	seed := rawF32(t, tensor.Shape{1}, []float32{1})
	require.NoError(t, tape.Backward(loss, seed, backend))

	require.NotNil(t, weight.Grad())
	assert.Equal(t, tensor.Shape{5, 3}, weight.Grad().Shape())
	require.NotNil(t, bias.Grad())
	assert.Equal(t, tensor.Shape{3}, bias.Grad().Shape())

	for _, slot := range []*tensor.RawTensor{weight.Grad(), bias.Grad()} {
		for _, g := range slot.AsFloat32() {
			assert.False(t, math.IsNaN(float64(g)))
			assert.False(t, math.IsInf(float64(g), 0))
		}
	}
	assert.Nil(t, input.Grad(), "untracked inputs never get a gradient slot")
}
