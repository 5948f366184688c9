package constraint

import (
	"github.com/ShenRen/simbody/spatial"
	"github.com/go-gl/mathgl/mgl64"
)

// Rod keeps two stations at a fixed distance, removing one degree of
// freedom. The error is a scalar so it needs no ancestor-frame rotation,
// but the multiplier force pair is still reported in A like every other
// constraint.
type Rod struct {
	body1, body2 BodyIndex
	p1, p2       mgl64.Vec3
	length       float64
}

func NewRod(body1 BodyIndex, p1 mgl64.Vec3, body2 BodyIndex, p2 mgl64.Vec3, length float64) *Rod {
	return &Rod{body1: body1, body2: body2, p1: p1, p2: p2, length: length}
}

func (c *Rod) Name() string              { return "rod" }
func (c *Rod) NumEquations() int         { return 1 }
func (c *Rod) NumPositionEquations() int { return 1 }
func (c *Rod) Bodies() []BodyIndex       { return []BodyIndex{c.body1, c.body2} }
func (c *Rod) Mobilities() []MobilityRef { return nil }

// separation returns the world station separation and its unit direction.
func (c *Rod) separation(k Kinematics) (s1, s2 station, d, dir mgl64.Vec3) {
	s1 = stationAt(k, c.body1, c.p1)
	s2 = stationAt(k, c.body2, c.p2)
	d = s2.point.Sub(s1.point)
	dir = d.Normalize()
	return
}

func (c *Rod) PositionError(k Kinematics, _ BodyIndex, perr []float64) {
	_, _, d, _ := c.separation(k)
	perr[0] = d.Len() - c.length
}

func (c *Rod) VelocityError(k Kinematics, _ BodyIndex, verr []float64) {
	s1, s2, _, dir := c.separation(k)
	verr[0] = dir.Dot(s2.velocity(k).Sub(s1.velocity(k)))
}

func (c *Rod) AccelerationError(k Kinematics, _ BodyIndex, aerr []float64) {
	s1, s2, d, dir := c.separation(k)
	dv := s2.velocity(k).Sub(s1.velocity(k))
	da := s2.acceleration(k).Sub(s1.acceleration(k))
	along := dir.Dot(dv)
	aerr[0] = dir.Dot(da) + (dv.Dot(dv)-along*along)/d.Len()
}

// ForcesFromMultipliers: λ[0] is the tension-like scalar along the rod
// direction, reported as station forces in A.
func (c *Rod) ForcesFromMultipliers(k Kinematics, ancestor BodyIndex, lambda []float64,
	bodyForces []spatial.SpatialVec, mobilityForces []float64) {

	ra, _ := ancestorFrame(k, ancestor)
	s1, s2, _, dir := c.separation(k)
	l := ra.Conjugate().Rotate(dir).Mul(lambda[0])
	arm1 := ra.Conjugate().Rotate(s1.arm)
	arm2 := ra.Conjugate().Rotate(s2.arm)
	bodyForces[0] = spatial.SpatialVec{Angular: arm1.Cross(l).Mul(-1), Linear: l.Mul(-1)}
	bodyForces[1] = spatial.SpatialVec{Angular: arm2.Cross(l), Linear: l}
}
