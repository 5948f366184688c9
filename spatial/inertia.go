package spatial

import "github.com/go-gl/mathgl/mgl64"

// MassProperties holds a body's immutable mass distribution: total mass,
// center of mass in the body frame, and the inertia tensor about the center
// of mass expressed in the body frame.
type MassProperties struct {
	Mass    float64
	COM     mgl64.Vec3
	Inertia mgl64.Mat3
}

// PointMass returns the mass properties of a point mass at the body origin
// with an isotropic central inertia, the common test-body shape.
func PointMass(mass, inertia float64) MassProperties {
	return MassProperties{
		Mass: mass,
		Inertia: mgl64.Mat3{
			inertia, 0, 0,
			0, inertia, 0,
			0, 0, inertia,
		},
	}
}

// InertiaInWorld rotates the central inertia tensor into a frame related to
// the body frame by q: I_world = R·I·Rᵀ.
func (m MassProperties) InertiaInWorld(q mgl64.Quat) mgl64.Mat3 {
	R := q.Mat4().Mat3()
	return R.Mul3(m.Inertia).Mul3(R.Transpose())
}
