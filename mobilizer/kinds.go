package mobilizer

import (
	"math"

	"github.com/ShenRen/simbody/spatial"
	"github.com/go-gl/mathgl/mgl64"
)

func quatFromQ(q []float64) mgl64.Quat {
	return mgl64.Quat{W: q[0], V: mgl64.Vec3{q[1], q[2], q[3]}}
}

func quatToQ(r mgl64.Quat, q []float64) {
	if r.W < 0 {
		r = r.Scale(-1)
	}
	q[0], q[1], q[2], q[3] = r.W, r.V.X(), r.V.Y(), r.V.Z()
}

// quatDot writes the quaternion derivative for angular velocity w expressed
// in the parent (F) frame: q̇ = ½·(0,w)∘q.
func quatDot(q []float64, w mgl64.Vec3, qdot []float64) {
	omega := mgl64.Quat{W: 0, V: w}
	qd := omega.Mul(quatFromQ(q)).Scale(0.5)
	qdot[0], qdot[1], qdot[2], qdot[3] = qd.W, qd.V.X(), qd.V.Y(), qd.V.Z()
}

// normalizeQuat rescales the quaternion coordinates to unit length.
func normalizeQuat(q []float64) {
	n := math.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
	if n == 0 {
		q[0], q[1], q[2], q[3] = 1, 0, 0, 0
		return
	}
	q[0], q[1], q[2], q[3] = q[0]/n, q[1]/n, q[2]/n, q[3]/n
}

// Weld rigidly attaches the child to the parent: no degrees of freedom.
type Weld struct{}

func (Weld) Name() string       { return "weld" }
func (Weld) NQ() int            { return 0 }
func (Weld) NU() int            { return 0 }
func (Weld) DefaultQ([]float64) {}
func (Weld) Transform([]float64) spatial.Transform {
	return spatial.Identity()
}
func (Weld) Velocity(_, _ []float64) spatial.SpatialVec            { return spatial.SpatialVec{} }
func (Weld) QDot(_, _, _ []float64)                                {}
func (Weld) NormalizeQ([]float64)                                  {}
func (Weld) SetQFromTransform(spatial.Transform, []float64)        {}
func (Weld) SetUFromVelocity([]float64, spatial.SpatialVec, []float64) {}
func (Weld) Axis(int) spatial.SpatialVec                           { return spatial.SpatialVec{} }

// Pin rotates about the F frame's z axis. q = [angle], u = [rate].
type Pin struct{}

func (Pin) Name() string          { return "pin" }
func (Pin) NQ() int               { return 1 }
func (Pin) NU() int               { return 1 }
func (Pin) DefaultQ(q []float64)  { q[0] = 0 }
func (Pin) Transform(q []float64) spatial.Transform {
	return spatial.RotationAbout(q[0], mgl64.Vec3{0, 0, 1})
}
func (Pin) Velocity(_, u []float64) spatial.SpatialVec {
	return spatial.SpatialVec{Angular: mgl64.Vec3{0, 0, u[0]}}
}
func (Pin) QDot(_, u, qdot []float64) { qdot[0] = u[0] }
func (Pin) NormalizeQ([]float64)      {}
func (Pin) SetQFromTransform(x spatial.Transform, q []float64) {
	// Closest z rotation to an arbitrary rotation; exact for pure z.
	q[0] = 2 * math.Atan2(x.Rotation.V.Z(), x.Rotation.W)
}
func (Pin) SetUFromVelocity(_ []float64, v spatial.SpatialVec, u []float64) {
	u[0] = v.Angular.Z()
}
func (Pin) Axis(int) spatial.SpatialVec {
	return spatial.SpatialVec{Angular: mgl64.Vec3{0, 0, 1}}
}

// Slider translates along the F frame's x axis. q = [displacement].
type Slider struct{}

func (Slider) Name() string         { return "slider" }
func (Slider) NQ() int              { return 1 }
func (Slider) NU() int              { return 1 }
func (Slider) DefaultQ(q []float64) { q[0] = 0 }
func (Slider) Transform(q []float64) spatial.Transform {
	return spatial.Translation(mgl64.Vec3{q[0], 0, 0})
}
func (Slider) Velocity(_, u []float64) spatial.SpatialVec {
	return spatial.SpatialVec{Linear: mgl64.Vec3{u[0], 0, 0}}
}
func (Slider) QDot(_, u, qdot []float64) { qdot[0] = u[0] }
func (Slider) NormalizeQ([]float64)      {}
func (Slider) SetQFromTransform(x spatial.Transform, q []float64) {
	q[0] = x.Position.X()
}
func (Slider) SetUFromVelocity(_ []float64, v spatial.SpatialVec, u []float64) {
	u[0] = v.Linear.X()
}
func (Slider) Axis(int) spatial.SpatialVec {
	return spatial.SpatialVec{Linear: mgl64.Vec3{1, 0, 0}}
}

// Ball allows arbitrary rotation. q is a quaternion [w x y z]; u is the
// angular velocity of M in F, expressed in F, so nq=4 but nu=3.
type Ball struct{}

func (Ball) Name() string { return "ball" }
func (Ball) NQ() int      { return 4 }
func (Ball) NU() int      { return 3 }
func (Ball) DefaultQ(q []float64) {
	q[0], q[1], q[2], q[3] = 1, 0, 0, 0
}
func (Ball) Transform(q []float64) spatial.Transform {
	return spatial.NewTransform(quatFromQ(q), mgl64.Vec3{})
}
func (Ball) Velocity(_, u []float64) spatial.SpatialVec {
	return spatial.SpatialVec{Angular: mgl64.Vec3{u[0], u[1], u[2]}}
}
func (Ball) QDot(q, u, qdot []float64) {
	quatDot(q, mgl64.Vec3{u[0], u[1], u[2]}, qdot)
}
func (Ball) NormalizeQ(q []float64) { normalizeQuat(q) }
func (Ball) SetQFromTransform(x spatial.Transform, q []float64) {
	quatToQ(x.Rotation, q)
}
func (Ball) SetUFromVelocity(_ []float64, v spatial.SpatialVec, u []float64) {
	u[0], u[1], u[2] = v.Angular.X(), v.Angular.Y(), v.Angular.Z()
}
func (Ball) Axis(i int) spatial.SpatialVec {
	var a spatial.SpatialVec
	a.Angular[i] = 1
	return a
}

// Translation allows arbitrary translation with fixed orientation.
// q = u = the position of M's origin in F.
type Translation struct{}

func (Translation) Name() string { return "translation" }
func (Translation) NQ() int      { return 3 }
func (Translation) NU() int      { return 3 }
func (Translation) DefaultQ(q []float64) {
	q[0], q[1], q[2] = 0, 0, 0
}
func (Translation) Transform(q []float64) spatial.Transform {
	return spatial.Translation(mgl64.Vec3{q[0], q[1], q[2]})
}
func (Translation) Velocity(_, u []float64) spatial.SpatialVec {
	return spatial.SpatialVec{Linear: mgl64.Vec3{u[0], u[1], u[2]}}
}
func (Translation) QDot(_, u, qdot []float64) {
	qdot[0], qdot[1], qdot[2] = u[0], u[1], u[2]
}
func (Translation) NormalizeQ([]float64) {}
func (Translation) SetQFromTransform(x spatial.Transform, q []float64) {
	q[0], q[1], q[2] = x.Position.X(), x.Position.Y(), x.Position.Z()
}
func (Translation) SetUFromVelocity(_ []float64, v spatial.SpatialVec, u []float64) {
	u[0], u[1], u[2] = v.Linear.X(), v.Linear.Y(), v.Linear.Z()
}
func (Translation) Axis(i int) spatial.SpatialVec {
	var a spatial.SpatialVec
	a.Linear[i] = 1
	return a
}

// Free allows arbitrary motion: quaternion plus translation coordinates
// (nq=7), angular velocity plus origin velocity speeds (nu=6), all relative
// quantities expressed in F.
type Free struct{}

func (Free) Name() string { return "free" }
func (Free) NQ() int      { return 7 }
func (Free) NU() int      { return 6 }
func (Free) DefaultQ(q []float64) {
	q[0], q[1], q[2], q[3] = 1, 0, 0, 0
	q[4], q[5], q[6] = 0, 0, 0
}
func (Free) Transform(q []float64) spatial.Transform {
	return spatial.NewTransform(quatFromQ(q), mgl64.Vec3{q[4], q[5], q[6]})
}
func (Free) Velocity(_, u []float64) spatial.SpatialVec {
	return spatial.SpatialVec{
		Angular: mgl64.Vec3{u[0], u[1], u[2]},
		Linear:  mgl64.Vec3{u[3], u[4], u[5]},
	}
}
func (Free) QDot(q, u, qdot []float64) {
	quatDot(q, mgl64.Vec3{u[0], u[1], u[2]}, qdot)
	qdot[4], qdot[5], qdot[6] = u[3], u[4], u[5]
}
func (Free) NormalizeQ(q []float64) { normalizeQuat(q) }
func (Free) SetQFromTransform(x spatial.Transform, q []float64) {
	quatToQ(x.Rotation, q)
	q[4], q[5], q[6] = x.Position.X(), x.Position.Y(), x.Position.Z()
}
func (Free) SetUFromVelocity(_ []float64, v spatial.SpatialVec, u []float64) {
	u[0], u[1], u[2] = v.Angular.X(), v.Angular.Y(), v.Angular.Z()
	u[3], u[4], u[5] = v.Linear.X(), v.Linear.Y(), v.Linear.Z()
}
func (Free) Axis(i int) spatial.SpatialVec {
	var a spatial.SpatialVec
	if i < 3 {
		a.Angular[i] = 1
	} else {
		a.Linear[i-3] = 1
	}
	return a
}
