package simbody

import (
	"github.com/ShenRen/simbody/spatial"
	"github.com/go-gl/mathgl/mgl64"
)

// ForceElement contributes applied forces at the Dynamics stage. Apply adds
// spatial forces about body origins (in Ground) and generalized mobility
// forces; the position and velocity caches of s are realized when it runs.
type ForceElement interface {
	Apply(s *State, bodyForces []spatial.SpatialVec, mobilityForces []float64)
}

type uniformGravity struct {
	g mgl64.Vec3
}

// NewUniformGravity applies the acceleration field g to every body's center
// of mass.
func NewUniformGravity(g mgl64.Vec3) ForceElement {
	return &uniformGravity{g: g}
}

func (e *uniformGravity) Apply(s *State, bodyForces []spatial.SpatialVec, _ []float64) {
	sys := s.sys
	for i := 1; i < len(sys.bodies); i++ {
		n := &sys.bodies[i]
		if n.mass.Mass == 0 {
			continue
		}
		f := e.g.Mul(n.mass.Mass)
		rc := s.bodyX[i].Rotate(n.mass.COM)
		bodyForces[i] = bodyForces[i].Add(spatial.SpatialVec{
			Angular: rc.Cross(f),
			Linear:  f,
		})
	}
}

type constantTorque struct {
	body   BodyIndex
	torque mgl64.Vec3
}

// NewConstantTorque applies a constant pure torque, expressed in Ground, to
// one body.
func NewConstantTorque(body BodyIndex, torque mgl64.Vec3) ForceElement {
	return &constantTorque{body: body, torque: torque}
}

func (e *constantTorque) Apply(_ *State, bodyForces []spatial.SpatialVec, _ []float64) {
	bodyForces[e.body] = bodyForces[e.body].Add(spatial.SpatialVec{Angular: e.torque})
}

type mobilityForce struct {
	body  BodyIndex
	dof   int
	value float64
}

// NewMobilityForce applies a constant generalized force to one degree of
// freedom of a body's mobilizer.
func NewMobilityForce(body BodyIndex, dof int, value float64) ForceElement {
	return &mobilityForce{body: body, dof: dof, value: value}
}

func (e *mobilityForce) Apply(s *State, _ []spatial.SpatialVec, mobilityForces []float64) {
	n := &s.sys.bodies[e.body]
	if e.dof < 0 || e.dof >= n.nu {
		return
	}
	mobilityForces[n.uStart+e.dof] += e.value
}
