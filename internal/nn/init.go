package nn

import (
	"math"
	"math/rand"

	"github.com/seam-ml/seam/internal/tensor"
)

// Xavier returns a tensor initialized with the Glorot uniform
// distribution U(-b, b), b = sqrt(6 / (fan_in + fan_out)). This keeps the
// variance of activations roughly constant across layers.
func Xavier[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))

	raw, err := tensor.NewRaw(shape, tensor.Float32, backend.Device())
	if err != nil {
		panic(err)
	}

	data := raw.AsFloat32()
	for i := range data {
		//nolint:gosec // math/rand is fine for weight initialization
		data[i] = float32((rand.Float64()*2 - 1) * bound)
	}

	return tensor.New[float32, B](raw, backend)
}
