package tensor

import "github.com/pkg/errors"

// ErrShapeMismatch indicates operand or result dimensions are incompatible.
// It is surfaced immediately and never retried.
var ErrShapeMismatch = errors.New("shape mismatch")

// ShapeMismatchf builds an ErrShapeMismatch-wrapped error with context.
func ShapeMismatchf(format string, args ...any) error {
	return errors.Wrapf(ErrShapeMismatch, format, args...)
}
