package simbody

import (
	"math"
	"math/rand"
	"testing"

	"github.com/ShenRen/simbody/constraint"
	"github.com/ShenRen/simbody/mobilizer"
	"github.com/ShenRen/simbody/spatial"
	"github.com/go-gl/mathgl/mgl64"
)

// The mass matrix must reproduce the kinetic energy computed directly from
// body kinematics: ½uᵀMu = ½Σ(m·v_com² + ω·I·ω).
func TestMassMatrixKineticEnergy(t *testing.T) {
	sys := NewSystem()
	p1 := spatial.PointMass(1.3, 0.9)
	p1.COM = mgl64.Vec3{0.2, -0.1, 0.3}
	b1, _ := sys.AddBody(Ground, p1, spatial.Translation(mgl64.Vec3{0, 1, 0}), spatial.Identity(), mobilizer.Ball{})
	p2 := spatial.PointMass(0.7, 0.4)
	p2.COM = mgl64.Vec3{-0.3, 0.5, 0}
	if _, err := sys.AddBody(b1, p2, spatial.Translation(mgl64.Vec3{0, -0.5, 0}), spatial.Translation(mgl64.Vec3{0, 0.5, 0}), mobilizer.Free{}); err != nil {
		t.Fatal(err)
	}

	r := rand.New(rand.NewSource(9))
	for trial := 0; trial < 5; trial++ {
		s := mustState(t, sys)
		randomizeState(t, r, sys, s)
		if err := sys.Realize(s, StageVelocity); err != nil {
			t.Fatalf("Realize: %v", err)
		}

		m := sys.massMatrix(s)
		var quad float64
		for i := 0; i < sys.nu; i++ {
			for j := 0; j < sys.nu; j++ {
				quad += s.u[i] * m.At(i, j) * s.u[j]
			}
		}

		var direct float64
		for i := 1; i < len(sys.bodies); i++ {
			n := &sys.bodies[i]
			rc := s.bodyX[i].Rotate(n.mass.COM)
			w := s.bodyV[i].Angular
			vcom := s.bodyV[i].Linear.Add(w.Cross(rc))
			ig := n.mass.InertiaInWorld(s.bodyX[i].Rotation)
			direct += n.mass.Mass*vcom.Dot(vcom) + w.Dot(ig.Mul3x1(w))
		}

		if math.Abs(quad-direct) > 1e-9*(1+math.Abs(direct)) {
			t.Errorf("uᵀMu = %v, kinetic energy form = %v", quad, direct)
		}
	}
}

func TestConstantSpeedMultiplier(t *testing.T) {
	const (
		m   = 2.0
		ic  = 0.1
		arm = 0.5
		g   = 9.8
	)
	sys, b := pinPendulum(t, m, ic, arm)
	if _, err := sys.AddConstraint(constraint.NewConstantSpeed(b, 0, 0)); err != nil {
		t.Fatal(err)
	}
	if err := sys.AddForce(NewUniformGravity(mgl64.Vec3{0, -g, 0})); err != nil {
		t.Fatal(err)
	}
	s := mustState(t, sys)
	if err := sys.Realize(s, StageAcceleration); err != nil {
		t.Fatalf("Realize: %v", err)
	}

	// the locked pendulum does not accelerate; the multiplier carries the
	// gravity torque
	udot, _ := s.UDot()
	if math.Abs(udot[0]) > 1e-10 {
		t.Errorf("locked pendulum udot = %v, want 0", udot[0])
	}
	lambda, _ := s.Multipliers()
	want := -m * g * arm
	if math.Abs(lambda[0]-want) > 1e-10 {
		t.Errorf("multiplier = %v, want %v", lambda[0], want)
	}

	// the holding torque is an active joint force, not part of the
	// structural reaction; the pin still carries the weight
	reactions, err := sys.CalcMobilizerReactionForces(s)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(reactions[b].Angular.Z()) > 1e-10 {
		t.Errorf("pin axial reaction torque = %v, want 0", reactions[b].Angular.Z())
	}
	if reactions[b].Linear.Sub(mgl64.Vec3{0, m * g, 0}).Len() > 1e-10 {
		t.Errorf("pin reaction force = %v, want (0,%v,0)", reactions[b].Linear, m*g)
	}
}

// Registering the same velocity constraint twice makes the multiplier
// system redundant but consistent; the minimum-norm solve splits the load
// evenly and the motion is unchanged.
func TestRedundantConstraintsMinimumNorm(t *testing.T) {
	const (
		m   = 2.0
		ic  = 0.1
		arm = 0.5
		g   = 9.8
	)
	sys, b := pinPendulum(t, m, ic, arm)
	for i := 0; i < 2; i++ {
		if _, err := sys.AddConstraint(constraint.NewConstantSpeed(b, 0, 0)); err != nil {
			t.Fatal(err)
		}
	}
	if err := sys.AddForce(NewUniformGravity(mgl64.Vec3{0, -g, 0})); err != nil {
		t.Fatal(err)
	}
	s := mustState(t, sys)
	if err := sys.Realize(s, StageAcceleration); err != nil {
		t.Fatalf("Realize with redundant constraints: %v", err)
	}

	udot, _ := s.UDot()
	if math.Abs(udot[0]) > 1e-8 {
		t.Errorf("udot = %v, want 0", udot[0])
	}
	lambda, _ := s.Multipliers()
	half := -m * g * arm / 2
	for i, l := range lambda {
		if math.Abs(l-half) > 1e-8 {
			t.Errorf("lambda[%d] = %v, want %v", i, l, half)
		}
	}
}

func TestMobilityForceDrivesJoint(t *testing.T) {
	const tau = 0.7
	sys, b := pinPendulum(t, 1, 0.5, 0)
	if err := sys.AddForce(NewMobilityForce(b, 0, tau)); err != nil {
		t.Fatal(err)
	}
	s := mustState(t, sys)
	if err := sys.Realize(s, StageAcceleration); err != nil {
		t.Fatalf("Realize: %v", err)
	}
	udot, _ := s.UDot()
	if math.Abs(udot[0]-tau/0.5) > 1e-12 {
		t.Errorf("udot = %v, want %v", udot[0], tau/0.5)
	}
}

func TestConstantTorqueOnFreeBody(t *testing.T) {
	torque := mgl64.Vec3{0.1, 0.1, 1.0}
	sys := NewSystem()
	b, _ := sys.AddBody(Ground, spatial.PointMass(1.3, 1.3), spatial.Identity(), spatial.Identity(), mobilizer.Free{})
	if err := sys.AddForce(NewConstantTorque(b, torque)); err != nil {
		t.Fatal(err)
	}
	s := mustState(t, sys)
	if err := sys.Realize(s, StageAcceleration); err != nil {
		t.Fatal(err)
	}
	a, _ := s.BodyAcceleration(b)
	want := torque.Mul(1 / 1.3)
	if a.Angular.Sub(want).Len() > 1e-12 {
		t.Errorf("angular acceleration = %v, want %v", a.Angular, want)
	}
	if a.Linear.Len() > 1e-12 {
		t.Errorf("linear acceleration = %v, want 0", a.Linear)
	}
}
