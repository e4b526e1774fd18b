package optim

import (
	"math"

	"github.com/seam-ml/seam/internal/autodiff"
	"github.com/seam-ml/seam/internal/nn"
	"github.com/seam-ml/seam/internal/tensor"
)

// Adam implements the Adam optimizer (Kingma & Ba, 2014).
//
// Per parameter and timestep t:
//
//	m = beta1*m + (1-beta1)*grad        // first moment
//	v = beta2*v + (1-beta2)*grad²       // second moment
//	mHat = m / (1 - beta1^t)            // bias correction
//	vHat = v / (1 - beta2^t)
//	param -= lr * mHat / (sqrt(vHat) + eps)
type Adam[B tensor.Backend] struct {
	params []*nn.Parameter[B]
	lr     float32
	beta1  float32
	beta2  float32
	eps    float32
	t      int
	m      map[*nn.Parameter[B]][]float32
	v      map[*nn.Parameter[B]][]float32
}

// AdamConfig holds configuration for the Adam optimizer.
type AdamConfig struct {
	LR    float32    // learning rate (default 0.001)
	Betas [2]float32 // moment decay rates (default 0.9, 0.999)
	Eps   float32    // denominator fuzz (default 1e-8)
}

// NewAdam creates an Adam optimizer over the given parameters.
func NewAdam[B tensor.Backend](params []*nn.Parameter[B], config AdamConfig) *Adam[B] {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas == [2]float32{} {
		config.Betas = [2]float32{0.9, 0.999}
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	return &Adam[B]{
		params: params,
		lr:     config.LR,
		beta1:  config.Betas[0],
		beta2:  config.Betas[1],
		eps:    config.Eps,
		m:      make(map[*nn.Parameter[B]][]float32),
		v:      make(map[*nn.Parameter[B]][]float32),
	}
}

// Step applies the Adam update in place. Parameters whose gradient slot is
// empty are skipped; if every slot is empty, Step returns a graph error.
func (a *Adam[B]) Step() error {
	stepped := false

	for _, param := range a.params {
		grad := param.Grad()
		if grad == nil {
			continue
		}
		if !stepped {
			stepped = true
			a.t++
		}

		data := param.Tensor().Data()
		gradData := grad.Data()

		m, ok := a.m[param]
		if !ok {
			m = make([]float32, len(data))
			a.m[param] = m
			a.v[param] = make([]float32, len(data))
		}
		v := a.v[param]

		beta1Corr := 1 - float32(math.Pow(float64(a.beta1), float64(a.t)))
		beta2Corr := 1 - float32(math.Pow(float64(a.beta2), float64(a.t)))

		for i := range data {
			g := gradData[i]
			m[i] = a.beta1*m[i] + (1-a.beta1)*g
			v[i] = a.beta2*v[i] + (1-a.beta2)*g*g

			mHat := m[i] / beta1Corr
			vHat := v[i] / beta2Corr
			data[i] -= a.lr * mHat / (float32(math.Sqrt(float64(vHat))) + a.eps)
		}
	}

	if !stepped {
		return autodiff.Graphf("no gradient available (run Backward before Step)")
	}
	return nil
}

// ZeroGrad resets every parameter's gradient slot.
func (a *Adam[B]) ZeroGrad() {
	for _, param := range a.params {
		param.ZeroGrad()
	}
}

// LR returns the learning rate.
func (a *Adam[B]) LR() float32 {
	return a.lr
}
