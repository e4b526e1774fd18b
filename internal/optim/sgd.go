package optim

import (
	"github.com/seam-ml/seam/internal/autodiff"
	"github.com/seam-ml/seam/internal/nn"
	"github.com/seam-ml/seam/internal/tensor"
)

// SGD implements stochastic gradient descent with optional momentum.
//
// Update rule without momentum:
//
//	param -= lr * grad
//
// With momentum:
//
//	velocity = momentum * velocity + grad
//	param -= lr * velocity
type SGD[B tensor.Backend] struct {
	params     []*nn.Parameter[B]
	lr         float32
	momentum   float32
	velocities map[*nn.Parameter[B]][]float32
}

// SGDConfig holds configuration for the SGD optimizer.
type SGDConfig struct {
	LR       float32 // learning rate (default 0.01)
	Momentum float32 // momentum factor in [0, 1) (default 0)
}

// NewSGD creates an SGD optimizer over the given parameters.
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], config SGDConfig) *SGD[B] {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD[B]{
		params:     params,
		lr:         config.LR,
		momentum:   config.Momentum,
		velocities: make(map[*nn.Parameter[B]][]float32),
	}
}

// Step applies the SGD update in place. Parameters whose gradient slot is
// empty are skipped; if every slot is empty, no backward pass has run and
// Step returns a graph error.
func (s *SGD[B]) Step() error {
	stepped := false

	for _, param := range s.params {
		grad := param.Grad()
		if grad == nil {
			continue
		}
		stepped = true

		data := param.Tensor().Data()
		gradData := grad.Data()

		if s.momentum == 0 {
			for i := range data {
				data[i] -= s.lr * gradData[i]
			}
			continue
		}

		velocity, ok := s.velocities[param]
		if !ok {
			velocity = make([]float32, len(data))
			s.velocities[param] = velocity
		}
		for i := range data {
			velocity[i] = s.momentum*velocity[i] + gradData[i]
			data[i] -= s.lr * velocity[i]
		}
	}

	if !stepped {
		return autodiff.Graphf("no gradient available (run Backward before Step)")
	}
	return nil
}

// ZeroGrad resets every parameter's gradient slot.
func (s *SGD[B]) ZeroGrad() {
	for _, param := range s.params {
		param.ZeroGrad()
	}
}

// LR returns the learning rate.
func (s *SGD[B]) LR() float32 {
	return s.lr
}
