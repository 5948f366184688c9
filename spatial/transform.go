package spatial

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform is a rigid-body transform: a rotation followed by a translation.
// The rotation quaternion is kept normalized; every constructor and mutation
// path renormalizes before the value is used.
type Transform struct {
	Rotation mgl64.Quat
	Position mgl64.Vec3
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{
		Rotation: mgl64.QuatIdent(),
		Position: mgl64.Vec3{0, 0, 0},
	}
}

// NewTransform builds a transform from a rotation and a translation,
// normalizing the rotation.
func NewTransform(rotation mgl64.Quat, position mgl64.Vec3) Transform {
	return Transform{
		Rotation: rotation.Normalize(),
		Position: position,
	}
}

// Translation returns a pure translation.
func Translation(position mgl64.Vec3) Transform {
	return Transform{
		Rotation: mgl64.QuatIdent(),
		Position: position,
	}
}

// RotationAbout returns a pure rotation of angle radians about axis.
func RotationAbout(angle float64, axis mgl64.Vec3) Transform {
	return Transform{
		Rotation: mgl64.QuatRotate(angle, axis.Normalize()),
		Position: mgl64.Vec3{0, 0, 0},
	}
}

// Compose returns a∘b, the transform that first applies b then a.
// (a.Compose(b)).Apply(p) == a.Apply(b.Apply(p)).
func (a Transform) Compose(b Transform) Transform {
	return Transform{
		Rotation: a.Rotation.Mul(b.Rotation).Normalize(),
		Position: a.Position.Add(a.Rotation.Rotate(b.Position)),
	}
}

// Inverse returns the transform mapping the other way.
func (a Transform) Inverse() Transform {
	inv := a.Rotation.Conjugate()
	return Transform{
		Rotation: inv,
		Position: inv.Rotate(a.Position).Mul(-1),
	}
}

// Apply maps a point through the transform.
func (a Transform) Apply(p mgl64.Vec3) mgl64.Vec3 {
	return a.Position.Add(a.Rotation.Rotate(p))
}

// Rotate maps a direction through the rotation part only.
func (a Transform) Rotate(v mgl64.Vec3) mgl64.Vec3 {
	return a.Rotation.Rotate(v)
}

// InverseRotate maps a direction through the inverse rotation.
func (a Transform) InverseRotate(v mgl64.Vec3) mgl64.Vec3 {
	return a.Rotation.Conjugate().Rotate(v)
}

// AxisAngle extracts the rotation as axis*angle, with the angle in [0, π].
// Near the identity the small-angle form 2·V is used to avoid dividing by a
// vanishing sine.
func AxisAngle(q mgl64.Quat) mgl64.Vec3 {
	if q.W < 0 {
		q = q.Scale(-1)
	}
	s := q.V.Len()
	if s < 1e-12 {
		return q.V.Mul(2)
	}
	angle := 2 * math.Atan2(s, q.W)
	return q.V.Mul(angle / s)
}

// RotationAngle returns the angle between two rotations, in radians.
func RotationAngle(a, b mgl64.Quat) float64 {
	return AxisAngle(a.Conjugate().Mul(b).Normalize()).Len()
}
