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

func rawF64(t *testing.T, shape tensor.Shape, values []float64) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.NewRaw(shape, tensor.Float64, tensor.CPU)
	require.NoError(t, err)
	copy(r.AsFloat64(), values)
	return r
}

func rawF32(t *testing.T, shape tensor.Shape, values []float32) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	copy(r.AsFloat32(), values)
	return r
}

func onesF64(t *testing.T, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.NewRaw(shape, tensor.Float64, tensor.CPU)
	require.NoError(t, err)
	data := r.AsFloat64()
	for i := range data {
		data[i] = 1
	}
	return r
}

// numericGrad estimates df/dx at x by central differences. f must not
// mutate its argument.
func numericGrad(f func(x []float64) float64, x []float64) []float64 {
	const eps = 1e-6
	grad := make([]float64, len(x))
	probe := make([]float64, len(x))
	for i := range x {
		copy(probe, x)
		probe[i] = x[i] + eps
		plus := f(probe)
		probe[i] = x[i] - eps
		minus := f(probe)
		grad[i] = (plus - minus) / (2 * eps)
	}
	return grad
}

// checkGrad runs the forward function under a recording tape, backpropagates
// from its scalar output, and compares the accumulated gradient of x against
// a finite-difference estimate of numeric.
func checkGrad(t *testing.T, x *tensor.RawTensor, forward func(b *autodiff.AutodiffBackend[*cpu.CPUBackend]) *tensor.RawTensor, numeric func(x []float64) float64) {
	t.Helper()

	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	x.SetRequiresGrad(true)

	tape.StartRecording()
	loss := forward(backend)
	tape.StopRecording()

	require.Equal(t, 1, loss.NumElements(), "forward must reduce to a scalar")
	require.NoError(t, tape.Backward(loss, onesF64(t, loss.Shape()), backend))

	require.NotNil(t, x.Grad())
	got := x.Grad().AsFloat64()
	want := numericGrad(numeric, x.AsFloat64())
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-4, "gradient component %d", i)
	}
}

func TestGradSquare(t *testing.T) {
	x := rawF64(t, tensor.Shape{4}, []float64{-1.5, -0.3, 0.7, 2.0})

	checkGrad(t, x,
		func(b *autodiff.AutodiffBackend[*cpu.CPUBackend]) *tensor.RawTensor {
			return b.Sum(b.Mul(x, x))
		},
		func(v []float64) float64 {
			sum := 0.0
			for _, e := range v {
				sum += e * e
			}
			return sum
		})
}

func TestGradComposite(t *testing.T) {
	// f(x) = mean((x + 2) * x / 3)
	x := rawF64(t, tensor.Shape{2, 3}, []float64{0.5, -1.2, 2.3, 0.1, -0.7, 1.8})

	checkGrad(t, x,
		func(b *autodiff.AutodiffBackend[*cpu.CPUBackend]) *tensor.RawTensor {
			y := b.Mul(b.AddScalar(x, 2), x)
			return b.Mean(b.MulScalar(y, 1.0/3.0))
		},
		func(v []float64) float64 {
			sum := 0.0
			for _, e := range v {
				sum += (e + 2) * e / 3
			}
			return sum / float64(len(v))
		})
}

func TestGradDiv(t *testing.T) {
	x := rawF64(t, tensor.Shape{3}, []float64{1.0, -2.0, 0.5})
	c := rawF64(t, tensor.Shape{3}, []float64{2.0, 4.0, -1.5})

	checkGrad(t, x,
		func(b *autodiff.AutodiffBackend[*cpu.CPUBackend]) *tensor.RawTensor {
			return b.Sum(b.Div(x, c))
		},
		func(v []float64) float64 {
			denom := c.AsFloat64()
			sum := 0.0
			for i, e := range v {
				sum += e / denom[i]
			}
			return sum
		})
}

func TestGradMatMul(t *testing.T) {
	x := rawF64(t, tensor.Shape{2, 3}, []float64{0.4, -0.9, 1.3, 2.1, -0.2, 0.6})
	w := rawF64(t, tensor.Shape{3, 2}, []float64{0.5, -1.0, 1.5, 0.3, -0.8, 0.9})

	checkGrad(t, x,
		func(b *autodiff.AutodiffBackend[*cpu.CPUBackend]) *tensor.RawTensor {
			return b.Mean(b.MatMul(x, w))
		},
		func(v []float64) float64 {
			wd := w.AsFloat64()
			sum := 0.0
			for i := 0; i < 2; i++ {
				for j := 0; j < 2; j++ {
					acc := 0.0
					for k := 0; k < 3; k++ {
						acc += v[i*3+k] * wd[k*2+j]
					}
					sum += acc
				}
			}
			return sum / 4
		})
}

func TestGradBroadcastAdd(t *testing.T) {
	// Bias gradient must reduce back over the broadcast batch dimension.
	m := rawF64(t, tensor.Shape{3, 2}, []float64{1, 2, 3, 4, 5, 6})
	bias := rawF64(t, tensor.Shape{2}, []float64{0.5, -0.5})

	checkGrad(t, bias,
		func(b *autodiff.AutodiffBackend[*cpu.CPUBackend]) *tensor.RawTensor {
			return b.Sum(b.Mul(b.Add(m, bias), b.Add(m, bias)))
		},
		func(v []float64) float64 {
			md := m.AsFloat64()
			sum := 0.0
			for i, e := range md {
				s := e + v[i%2]
				sum += s * s
			}
			return sum
		})
}

func TestGradReLU(t *testing.T) {
	// Values kept away from zero where the derivative is undefined.
	x := rawF64(t, tensor.Shape{5}, []float64{-2.0, -0.5, 0.4, 1.0, 3.0})

	checkGrad(t, x,
		func(b *autodiff.AutodiffBackend[*cpu.CPUBackend]) *tensor.RawTensor {
			return b.Sum(b.ReLU(x))
		},
		func(v []float64) float64 {
			sum := 0.0
			for _, e := range v {
				if e > 0 {
					sum += e
				}
			}
			return sum
		})
}

func TestGradSigmoid(t *testing.T) {
	x := rawF64(t, tensor.Shape{4}, []float64{-3.0, -0.5, 0.5, 2.0})

	checkGrad(t, x,
		func(b *autodiff.AutodiffBackend[*cpu.CPUBackend]) *tensor.RawTensor {
			return b.Sum(b.Sigmoid(x))
		},
		func(v []float64) float64 {
			sum := 0.0
			for _, e := range v {
				sum += 1 / (1 + math.Exp(-e))
			}
			return sum
		})
}

func TestGradSoftmax(t *testing.T) {
	// Weight the softmax output by a fixed tensor so the loss is scalar and
	// every component of the Jacobian is exercised.
	x := rawF64(t, tensor.Shape{2, 3}, []float64{0.3, -1.1, 0.8, 2.0, 0.1, -0.4})
	w := rawF64(t, tensor.Shape{2, 3}, []float64{1.0, 2.0, 3.0, -1.0, 0.5, 1.5})

	checkGrad(t, x,
		func(b *autodiff.AutodiffBackend[*cpu.CPUBackend]) *tensor.RawTensor {
			return b.Sum(b.Mul(b.Softmax(x), w))
		},
		func(v []float64) float64 {
			wd := w.AsFloat64()
			sum := 0.0
			for r := 0; r < 2; r++ {
				row := v[r*3 : r*3+3]
				max := row[0]
				for _, e := range row[1:] {
					if e > max {
						max = e
					}
				}
				var z float64
				for _, e := range row {
					z += math.Exp(e - max)
				}
				for c, e := range row {
					sum += math.Exp(e-max) / z * wd[r*3+c]
				}
			}
			return sum
		})
}

func TestGradCrossEntropy(t *testing.T) {
	logits := rawF64(t, tensor.Shape{2, 3}, []float64{0.5, 1.2, -0.3, 2.0, -1.0, 0.1})
	targets, err := tensor.NewRaw(tensor.Shape{2}, tensor.Int32, tensor.CPU)
	require.NoError(t, err)
	copy(targets.AsInt32(), []int32{1, 0})

	checkGrad(t, logits,
		func(b *autodiff.AutodiffBackend[*cpu.CPUBackend]) *tensor.RawTensor {
			return b.CrossEntropy(logits, targets)
		},
		func(v []float64) float64 {
			tgt := targets.AsInt32()
			sum := 0.0
			for r := 0; r < 2; r++ {
				row := v[r*3 : r*3+3]
				max := row[0]
				for _, e := range row[1:] {
					if e > max {
						max = e
					}
				}
				var z float64
				for _, e := range row {
					z += math.Exp(e - max)
				}
				sum += max + math.Log(z) - row[tgt[r]]
			}
			return sum / 2
		})
}

func TestGradBCEWithLogits(t *testing.T) {
	logits := rawF64(t, tensor.Shape{4}, []float64{-1.5, 0.2, 0.9, 2.5})
	targets := rawF64(t, tensor.Shape{4}, []float64{0, 1, 1, 0})

	checkGrad(t, logits,
		func(b *autodiff.AutodiffBackend[*cpu.CPUBackend]) *tensor.RawTensor {
			return b.BCEWithLogits(logits, targets)
		},
		func(v []float64) float64 {
			tgt := targets.AsFloat64()
			sum := 0.0
			for i, z := range v {
				sum += math.Max(z, 0) - z*tgt[i] + math.Log1p(math.Exp(-math.Abs(z)))
			}
			return sum / float64(len(v))
		})
}
