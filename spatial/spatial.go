package spatial

import "github.com/go-gl/mathgl/mgl64"

// SpatialVec is an angular/linear pair used uniformly for velocities
// (ω, v of a measurement point), accelerations (ω̇, a of the point) and
// forces (torque about the point, force). Which point and which frame a
// value refers to is part of the API that produces it.
type SpatialVec struct {
	Angular mgl64.Vec3
	Linear  mgl64.Vec3
}

func (s SpatialVec) Add(o SpatialVec) SpatialVec {
	return SpatialVec{s.Angular.Add(o.Angular), s.Linear.Add(o.Linear)}
}

func (s SpatialVec) Sub(o SpatialVec) SpatialVec {
	return SpatialVec{s.Angular.Sub(o.Angular), s.Linear.Sub(o.Linear)}
}

func (s SpatialVec) Scale(k float64) SpatialVec {
	return SpatialVec{s.Angular.Mul(k), s.Linear.Mul(k)}
}

func (s SpatialVec) Neg() SpatialVec {
	return SpatialVec{s.Angular.Mul(-1), s.Linear.Mul(-1)}
}

// Rotate re-expresses both parts in a frame rotated by q.
func (s SpatialVec) Rotate(q mgl64.Quat) SpatialVec {
	return SpatialVec{q.Rotate(s.Angular), q.Rotate(s.Linear)}
}

// ShiftVelocity moves a spatial velocity's measurement point by r
// (same frame): the angular part is unchanged, the linear part picks up ω×r.
func ShiftVelocity(v SpatialVec, r mgl64.Vec3) SpatialVec {
	return SpatialVec{
		Angular: v.Angular,
		Linear:  v.Linear.Add(v.Angular.Cross(r)),
	}
}

// ShiftForce moves a spatial force's reference point by r (same frame):
// the force is unchanged, the torque loses r×f.
func ShiftForce(f SpatialVec, r mgl64.Vec3) SpatialVec {
	return SpatialVec{
		Angular: f.Angular.Sub(r.Cross(f.Linear)),
		Linear:  f.Linear,
	}
}
