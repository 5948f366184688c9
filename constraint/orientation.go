package constraint

import (
	"github.com/ShenRen/simbody/spatial"
	"github.com/go-gl/mathgl/mgl64"
)

// ConstantOrientation locks the orientation of a frame fixed on body2 to a
// frame fixed on body1, removing three rotational degrees of freedom while
// leaving translation free. A free joint plus this constraint moves
// identically to a translation mobilizer.
type ConstantOrientation struct {
	body1, body2 BodyIndex
	r1, r2       mgl64.Quat // frame rotations in each body's frame
}

// NewConstantOrientation locks frame r2 on body2 to frame r1 on body1.
func NewConstantOrientation(body1 BodyIndex, r1 mgl64.Quat, body2 BodyIndex, r2 mgl64.Quat) *ConstantOrientation {
	return &ConstantOrientation{body1: body1, body2: body2, r1: r1.Normalize(), r2: r2.Normalize()}
}

func (c *ConstantOrientation) Name() string              { return "constantOrientation" }
func (c *ConstantOrientation) NumEquations() int         { return 3 }
func (c *ConstantOrientation) NumPositionEquations() int { return 3 }
func (c *ConstantOrientation) Bodies() []BodyIndex       { return []BodyIndex{c.body1, c.body2} }
func (c *ConstantOrientation) Mobilities() []MobilityRef { return nil }

// PositionError is the axis-angle of the relative frame rotation, expressed
// in A. Zero exactly when the two frames coincide in orientation.
func (c *ConstantOrientation) PositionError(k Kinematics, ancestor BodyIndex, perr []float64) {
	ra, _ := ancestorFrame(k, ancestor)
	f1 := k.BodyTransform(c.body1).Rotation.Mul(c.r1)
	f2 := k.BodyTransform(c.body2).Rotation.Mul(c.r2)
	rel := f1.Conjugate().Mul(f2).Normalize()
	// axis-angle lives in the f1 frame; re-express in A
	e := ra.Conjugate().Rotate(f1.Rotate(spatial.AxisAngle(rel)))
	perr[0], perr[1], perr[2] = e.X(), e.Y(), e.Z()
}

// VelocityError is the relative angular velocity, expressed in A.
func (c *ConstantOrientation) VelocityError(k Kinematics, ancestor BodyIndex, verr []float64) {
	ra, _ := ancestorFrame(k, ancestor)
	dw := k.BodyVelocity(c.body2).Angular.Sub(k.BodyVelocity(c.body1).Angular)
	e := ra.Conjugate().Rotate(dw)
	verr[0], verr[1], verr[2] = e.X(), e.Y(), e.Z()
}

func (c *ConstantOrientation) AccelerationError(k Kinematics, ancestor BodyIndex, aerr []float64) {
	ra, wa := ancestorFrame(k, ancestor)
	dw := k.BodyVelocity(c.body2).Angular.Sub(k.BodyVelocity(c.body1).Angular)
	db := k.BodyAcceleration(c.body2).Angular.Sub(k.BodyAcceleration(c.body1).Angular)
	e := ra.Conjugate().Rotate(db.Sub(wa.Cross(dw)))
	aerr[0], aerr[1], aerr[2] = e.X(), e.Y(), e.Z()
}

// ForcesFromMultipliers: λ is a pure torque pair expressed in A.
func (c *ConstantOrientation) ForcesFromMultipliers(_ Kinematics, _ BodyIndex, lambda []float64,
	bodyForces []spatial.SpatialVec, mobilityForces []float64) {

	l := mgl64.Vec3{lambda[0], lambda[1], lambda[2]}
	bodyForces[0] = spatial.SpatialVec{Angular: l.Mul(-1)}
	bodyForces[1] = spatial.SpatialVec{Angular: l}
}
