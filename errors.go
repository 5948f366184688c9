package simbody

import (
	"errors"
	"fmt"
)

// Library errors. Callers are expected to treat all of these as programming
// errors except ErrProjectionDiverged and ErrSingularConstraint, which are
// legitimate runtime outcomes that may be retried with a relaxed tolerance
// or a perturbed initial state.
var (
	// ErrTopologyFinalized indicates a structural mutation after
	// RealizeTopology.
	ErrTopologyFinalized = errors.New("simbody: topology already finalized")

	// ErrTopologyNotFinalized indicates state creation or realization
	// against a system whose topology was never finalized.
	ErrTopologyNotFinalized = errors.New("simbody: topology not finalized")

	// ErrStageOutOfOrder indicates an attempt to realize a stage whose
	// predecessor has not been realized.
	ErrStageOutOfOrder = errors.New("simbody: realization stage out of order")

	// ErrStageNotRealized indicates a read of a cached quantity before its
	// stage was realized.
	ErrStageNotRealized = errors.New("simbody: stage not realized")

	// ErrProjectionDiverged indicates the projection's iteration budget was
	// exhausted before the constraint errors fell below tolerance.
	ErrProjectionDiverged = errors.New("simbody: projection did not converge")

	// ErrSingularConstraint indicates a rank-deficient constraint Jacobian
	// (redundant or conflicting constraints).
	ErrSingularConstraint = errors.New("simbody: singular constraint set")

	// ErrDimensionMismatch indicates a caller-supplied vector whose size
	// does not match the Q/U/error layout.
	ErrDimensionMismatch = errors.New("simbody: dimension mismatch")

	// ErrUnknownBody indicates a body handle outside the tree.
	ErrUnknownBody = errors.New("simbody: unknown body index")
)

// StageError carries the stage context of a stage-discipline violation.
type StageError struct {
	Have    Stage
	Want    Stage
	Wrapped error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%v (have %v, want %v)", e.Wrapped, e.Have, e.Want)
}

func (e *StageError) Unwrap() error { return e.Wrapped }

func stageErr(wrapped error, have, want Stage) error {
	return &StageError{Have: have, Want: want, Wrapped: wrapped}
}
