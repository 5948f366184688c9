// Package constraint defines holonomic and velocity-level constraints that
// remove degrees of freedom from a kinematic tree beyond what its joint
// types already remove.
//
// Every constraint contributes rows to a global error vector. Row k of the
// position/velocity error must correspond to multiplier k of the force
// mapping: ForcesFromMultipliers must return forces whose generalized image
// is exactly Jᵀ·λ, where J is the velocity-error Jacobian with the same row
// order. Errors and forces are expressed in the constraint's ancestor body
// frame A (the nearest common ancestor of the constrained bodies, supplied
// by the tree).
package constraint

import "github.com/ShenRen/simbody/spatial"

// BodyIndex identifies a body in the tree. Ground is index 0.
type BodyIndex int

// Ground is the implicit root body of every tree.
const Ground BodyIndex = 0

// MobilityRef names one generalized speed of a mobilizer, identified by the
// mobilizer's outboard body.
type MobilityRef struct {
	Body BodyIndex
	Dof  int
}

// Kinematics is the realized-state view a constraint evaluates against.
// BodyVelocity and BodyAcceleration are about the body origin, expressed in
// Ground; BodyAcceleration returns whatever acceleration field the caller
// is differentiating against (true or bias accelerations).
type Kinematics interface {
	BodyTransform(b BodyIndex) spatial.Transform
	BodyVelocity(b BodyIndex) spatial.SpatialVec
	BodyAcceleration(b BodyIndex) spatial.SpatialVec
	MobilizerU(b BodyIndex) []float64
}

// Constraint is implemented by every constraint kind.
//
// NumEquations is the multiplier count; the leading NumPositionEquations of
// those rows are holonomic and appear in the position error as well.
// Velocity-only constraints report zero position equations.
type Constraint interface {
	Name() string
	NumEquations() int
	NumPositionEquations() int

	// Bodies returns the ordered constrained bodies. Body forces produced
	// by ForcesFromMultipliers use the same order.
	Bodies() []BodyIndex

	// Mobilities returns the constrained generalized speeds, if any.
	Mobilities() []MobilityRef

	// PositionError writes NumPositionEquations entries, expressed in A.
	PositionError(k Kinematics, ancestor BodyIndex, perr []float64)

	// VelocityError writes NumEquations entries: d/dt of the position
	// error (on the constraint manifold) followed by any velocity-only
	// rows. Linear in the tree's generalized speeds.
	VelocityError(k Kinematics, ancestor BodyIndex, verr []float64)

	// AccelerationError writes NumEquations entries: d/dt of the velocity
	// error given the accelerations reported by k.
	AccelerationError(k Kinematics, ancestor BodyIndex, aerr []float64)

	// ForcesFromMultipliers maps multipliers to spatial forces about each
	// constrained body's origin (expressed in A, parallel to Bodies) and
	// scalar forces on each constrained mobility (parallel to Mobilities),
	// such that the net generalized force equals Jᵀ·λ. The equations of
	// motion apply the negatives of these.
	ForcesFromMultipliers(k Kinematics, ancestor BodyIndex, lambda []float64,
		bodyForces []spatial.SpatialVec, mobilityForces []float64)
}
