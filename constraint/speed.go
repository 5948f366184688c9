package constraint

import "github.com/ShenRen/simbody/spatial"

// ConstantSpeed drives one generalized speed of a mobilizer to a prescribed
// value. It is a velocity-level constraint: it contributes no position
// error, and its multiplier is a pure mobility force.
type ConstantSpeed struct {
	ref   MobilityRef
	speed float64
}

// NewConstantSpeed constrains speed dof of the mobilizer whose outboard
// body is b to the given value.
func NewConstantSpeed(b BodyIndex, dof int, speed float64) *ConstantSpeed {
	return &ConstantSpeed{ref: MobilityRef{Body: b, Dof: dof}, speed: speed}
}

func (c *ConstantSpeed) Name() string              { return "constantSpeed" }
func (c *ConstantSpeed) NumEquations() int         { return 1 }
func (c *ConstantSpeed) NumPositionEquations() int { return 0 }
func (c *ConstantSpeed) Bodies() []BodyIndex       { return nil }
func (c *ConstantSpeed) Mobilities() []MobilityRef { return []MobilityRef{c.ref} }

func (c *ConstantSpeed) PositionError(Kinematics, BodyIndex, []float64) {}

func (c *ConstantSpeed) VelocityError(k Kinematics, _ BodyIndex, verr []float64) {
	verr[0] = k.MobilizerU(c.ref.Body)[c.ref.Dof] - c.speed
}

// AccelerationError: d/dt(u[dof] − s) = u̇[dof], which is zero under the
// bias (u̇ = 0) acceleration field this is evaluated against.
func (c *ConstantSpeed) AccelerationError(_ Kinematics, _ BodyIndex, aerr []float64) {
	aerr[0] = 0
}

func (c *ConstantSpeed) ForcesFromMultipliers(_ Kinematics, _ BodyIndex, lambda []float64,
	_ []spatial.SpatialVec, mobilityForces []float64) {

	mobilityForces[0] = lambda[0]
}
