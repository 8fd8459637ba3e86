package gan

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

var (
	// ErrEmptyBatch Returned for a zero-length batch. Trainer skips such batches without touching either network
	ErrEmptyBatch = errors.New("empty batch")
	// ErrInvalidTransition Returned when training step phases are entered out of order
	ErrInvalidTransition = errors.New("invalid phase transition")
)

// ShapeMismatchError Tensors of a training step do not agree on their shapes.
//
// Epoch, Batch - position of the offending step (-1 when the check happened outside of training loop)
// Op - operation which detected mismatch
// Expected, Got - shapes involved
//
type ShapeMismatchError struct {
	Epoch    int
	Batch    int
	Op       string
	Expected tensor.Shape
	Got      tensor.Shape
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch at epoch %d, batch %d (%s): expected %v, got %v", e.Epoch, e.Batch, e.Op, e.Expected, e.Got)
}

func shapeMismatch(op string, expected, got tensor.Shape) *ShapeMismatchError {
	return &ShapeMismatchError{
		Epoch:    -1,
		Batch:    -1,
		Op:       op,
		Expected: expected.Clone(),
		Got:      got.Clone(),
	}
}

// DataUnavailableError SampleSource could not produce data. It is never retried.
type DataUnavailableError struct {
	Epoch int
	Batch int
	Err   error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("data unavailable at epoch %d, batch %d: %v", e.Epoch, e.Batch, e.Err)
}

func (e *DataUnavailableError) Unwrap() error { return e.Err }

// NumericInstabilityError Loss of one of the networks became NaN or Inf
type NumericInstabilityError struct {
	Epoch   int
	Batch   int
	Network string
	Value   float64
}

func (e *NumericInstabilityError) Error() string {
	return fmt.Sprintf("non-finite %s loss %v at epoch %d, batch %d", e.Network, e.Value, e.Epoch, e.Batch)
}

// StepError Annotates any fatal error of a training step with its position
type StepError struct {
	Epoch int
	Batch int
	Phase Phase
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("epoch %d, batch %d [%s]: %v", e.Epoch, e.Batch, e.Phase, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// locate Fills position of shape errors so diagnostics name the offending batch
func locate(err error, epoch, batch int) {
	var shapeErr *ShapeMismatchError
	if errors.As(err, &shapeErr) {
		shapeErr.Epoch = epoch
		shapeErr.Batch = batch
	}
}
