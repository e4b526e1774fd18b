package autodiff

import (
	"github.com/pkg/errors"

	"github.com/seam-ml/seam/internal/autodiff/ops"
	"github.com/seam-ml/seam/internal/tensor"
)

// GradientTape records operations during the forward pass and replays them
// in reverse to propagate gradients. Operations are appended in execution
// order, so the reverse walk visits them in reverse-topological order and
// every output gradient is complete before its operation fires.
type GradientTape struct {
	operations []ops.Operation
	recording  bool
}

// NewGradientTape creates a new, non-recording gradient tape.
func NewGradientTape() *GradientTape {
	return &GradientTape{
		operations: make([]ops.Operation, 0, 64),
	}
}

// StartRecording enables operation recording.
func (t *GradientTape) StartRecording() {
	t.recording = true
}

// StopRecording disables operation recording.
func (t *GradientTape) StopRecording() {
	t.recording = false
}

// IsRecording reports whether the tape is currently recording.
func (t *GradientTape) IsRecording() bool {
	return t.recording
}

// Record appends an operation to the tape. No-op unless recording.
func (t *GradientTape) Record(op ops.Operation) {
	if t.recording {
		t.operations = append(t.operations, op)
	}
}

// Clear drops all recorded operations. Recording state is preserved, so a
// training loop can Clear between iterations without re-arming the tape.
func (t *GradientTape) Clear() {
	t.operations = t.operations[:0]
}

// NumOps returns the number of recorded operations.
func (t *GradientTape) NumOps() int {
	return len(t.operations)
}

// NoGrad runs fn with recording disabled and restores the previous
// recording state afterwards, even if fn panics. Operations performed
// inside fn leave no trace on the tape and their outputs are untracked.
func (t *GradientTape) NoGrad(fn func()) {
	saved := t.recording
	t.recording = false
	defer func() {
		t.recording = saved
	}()
	fn()
}

// Backward walks the tape in reverse from root, propagating seed through
// every recorded operation and adding each contribution into the gradient
// slot of every tracked tensor it reaches. Tensors used by several
// operations receive the sum of all contributions.
//
// Recording is suspended for the duration of the walk so that gradient
// arithmetic does not extend the tape.
//
// Backend kernels signal malformed gradients by panicking with wrapped
// ErrShapeMismatch; the walk recovers those panics and returns them.
func (t *GradientTape) Backward(root, seed *tensor.RawTensor, backend tensor.Backend) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = errors.Errorf("backward: %v", r)
			}
		}
	}()

	wasRecording := t.recording
	t.recording = false
	defer func() {
		t.recording = wasRecording
	}()

	// flow holds the running gradient of every tensor reached by the walk,
	// keyed by node identity. It is transient; the durable result is what
	// AccumGrad deposits into the tracked tensors' slots.
	flow := make(map[*tensor.RawTensor]*tensor.RawTensor)
	flow[root] = seed

	rootIsLeaf := true
	for _, op := range t.operations {
		if op.Output() == root {
			rootIsLeaf = false
			break
		}
	}
	if rootIsLeaf {
		if root.RequiresGrad() {
			return root.AccumGrad(seed)
		}
		return Graphf("tensor is not tracked by the gradient tape")
	}

	for i := len(t.operations) - 1; i >= 0; i-- {
		op := t.operations[i]
		outputGrad, reached := flow[op.Output()]
		if !reached {
			continue
		}

		inputGrads := op.Backward(outputGrad, backend)
		inputs := op.Inputs()
		for j, input := range inputs {
			if j >= len(inputGrads) || inputGrads[j] == nil {
				continue
			}
			contrib := inputGrads[j]

			if existing, ok := flow[input]; ok {
				flow[input] = backend.Add(existing, contrib)
			} else {
				flow[input] = contrib
			}

			if input.RequiresGrad() {
				if accErr := input.AccumGrad(contrib); accErr != nil {
					return accErr
				}
			}
		}
	}

	return nil
}
