package autodiff

import "github.com/pkg/errors"

// ErrGraph indicates a backward request the recorded computation graph
// cannot satisfy: an untracked output, a non-scalar output without an
// explicit gradient seed, or an empty tape.
var ErrGraph = errors.New("graph error")

// Graphf builds an ErrGraph-wrapped error with context.
func Graphf(format string, args ...any) error {
	return errors.Wrapf(ErrGraph, format, args...)
}
