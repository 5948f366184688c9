// Package mobilizer defines the joint models that connect each body of a
// kinematic tree to its parent. A mobilizer parameterizes the transform
// between an F frame fixed on the parent and an M frame fixed on the child
// with generalized coordinates Q, and its rate of change with generalized
// speeds U.
//
// All spatial quantities a mobilizer produces are expressed in the F frame:
// Transform is X_FM, Velocity is (ω of M in F, velocity of M's origin in F).
// Generalized speeds are chosen so the hinge axes are constant in F; this
// keeps the tree's velocity and acceleration recursions free of axis-rate
// terms.
package mobilizer

import "github.com/ShenRen/simbody/spatial"

// Mobilizer is the capability interface every joint kind implements.
// Q and U slices are the mobilizer's own segments of the tree-wide vectors;
// implementations must not read outside them.
type Mobilizer interface {
	// Name is the joint-type tag ("pin", "ball", ...).
	Name() string

	// NQ and NU are the generalized coordinate and speed counts. They may
	// differ (quaternion coordinates vs angular-velocity speeds).
	NQ() int
	NU() int

	// DefaultQ writes the neutral configuration into q.
	DefaultQ(q []float64)

	// Transform maps q to X_FM.
	Transform(q []float64) spatial.Transform

	// Velocity maps (q, u) to V_FM, expressed in F.
	Velocity(q, u []float64) spatial.SpatialVec

	// QDot writes q̇ = N(q)·u into qdot.
	QDot(q, u, qdot []float64)

	// NormalizeQ restores any internal coordinate invariant after an
	// additive update (quaternion length for rotational kinds); a no-op
	// for kinds whose coordinates are unconstrained.
	NormalizeQ(q []float64)

	// SetQFromTransform writes into q the coordinates that best reproduce
	// the given X_FM. Exact when the transform is representable.
	SetQFromTransform(x spatial.Transform, q []float64)

	// SetUFromVelocity writes into u the speeds that best reproduce the
	// given V_FM at configuration q. Exact when the velocity is
	// representable.
	SetUFromVelocity(q []float64, v spatial.SpatialVec, u []float64)

	// Axis returns hinge axis i as a spatial velocity direction in F:
	// V_FM = Σ u[i]·Axis(i). Axes are constant in F for every kind.
	Axis(i int) spatial.SpatialVec
}

// FromName returns a fresh mobilizer for a joint-type tag, or nil if the
// tag is unknown.
func FromName(name string) Mobilizer {
	switch name {
	case "weld":
		return Weld{}
	case "pin":
		return Pin{}
	case "slider":
		return Slider{}
	case "ball":
		return Ball{}
	case "translation":
		return Translation{}
	case "free":
		return Free{}
	}
	return nil
}
