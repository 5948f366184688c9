package constraint

import (
	"github.com/ShenRen/simbody/spatial"
	"github.com/go-gl/mathgl/mgl64"
)

// Ball pins a station on one body to a station on another, removing three
// translational degrees of freedom. It is the explicit-constraint twin of
// the ball mobilizer: a free joint plus a Ball constraint moves identically
// to a ball joint at the same stations.
type Ball struct {
	body1, body2 BodyIndex
	p1, p2       mgl64.Vec3 // stations in each body's frame
}

// NewBall constrains the station p1 on body1 (body-frame coordinates) to
// coincide with the station p2 on body2.
func NewBall(body1 BodyIndex, p1 mgl64.Vec3, body2 BodyIndex, p2 mgl64.Vec3) *Ball {
	return &Ball{body1: body1, body2: body2, p1: p1, p2: p2}
}

func (c *Ball) Name() string              { return "ball" }
func (c *Ball) NumEquations() int         { return 3 }
func (c *Ball) NumPositionEquations() int { return 3 }
func (c *Ball) Bodies() []BodyIndex       { return []BodyIndex{c.body1, c.body2} }
func (c *Ball) Mobilities() []MobilityRef { return nil }

// PositionError is the station separation, expressed in A.
func (c *Ball) PositionError(k Kinematics, ancestor BodyIndex, perr []float64) {
	ra, _ := ancestorFrame(k, ancestor)
	s1 := stationAt(k, c.body1, c.p1)
	s2 := stationAt(k, c.body2, c.p2)
	e := ra.Conjugate().Rotate(s2.point.Sub(s1.point))
	perr[0], perr[1], perr[2] = e.X(), e.Y(), e.Z()
}

// VelocityError is the relative station velocity, expressed in A. On the
// constraint manifold this is exactly d/dt of the position error.
func (c *Ball) VelocityError(k Kinematics, ancestor BodyIndex, verr []float64) {
	ra, _ := ancestorFrame(k, ancestor)
	s1 := stationAt(k, c.body1, c.p1)
	s2 := stationAt(k, c.body2, c.p2)
	e := ra.Conjugate().Rotate(s2.velocity(k).Sub(s1.velocity(k)))
	verr[0], verr[1], verr[2] = e.X(), e.Y(), e.Z()
}

// AccelerationError is d/dt of the velocity error, including the rotation
// of the A frame.
func (c *Ball) AccelerationError(k Kinematics, ancestor BodyIndex, aerr []float64) {
	ra, wa := ancestorFrame(k, ancestor)
	s1 := stationAt(k, c.body1, c.p1)
	s2 := stationAt(k, c.body2, c.p2)
	dv := s2.velocity(k).Sub(s1.velocity(k))
	da := s2.acceleration(k).Sub(s1.acceleration(k))
	e := ra.Conjugate().Rotate(da.Sub(wa.Cross(dv)))
	aerr[0], aerr[1], aerr[2] = e.X(), e.Y(), e.Z()
}

// ForcesFromMultipliers: λ is the station force pair expressed in A. The
// returned entries have generalized image Jᵀλ; the equations of motion apply
// their negatives (−λ on body2's station, +λ on body1's station).
func (c *Ball) ForcesFromMultipliers(k Kinematics, ancestor BodyIndex, lambda []float64,
	bodyForces []spatial.SpatialVec, mobilityForces []float64) {

	ra, _ := ancestorFrame(k, ancestor)
	l := mgl64.Vec3{lambda[0], lambda[1], lambda[2]}
	s1 := stationAt(k, c.body1, c.p1)
	s2 := stationAt(k, c.body2, c.p2)
	arm1 := ra.Conjugate().Rotate(s1.arm)
	arm2 := ra.Conjugate().Rotate(s2.arm)
	bodyForces[0] = spatial.SpatialVec{Angular: arm1.Cross(l).Mul(-1), Linear: l.Mul(-1)}
	bodyForces[1] = spatial.SpatialVec{Angular: arm2.Cross(l), Linear: l}
}
