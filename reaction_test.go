package simbody

import (
	"math/rand"
	"testing"

	"github.com/ShenRen/simbody/constraint"
	"github.com/ShenRen/simbody/mobilizer"
	"github.com/ShenRen/simbody/spatial"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	bondLength = 0.5
	chainLen   = 2
)

func chainMass() spatial.MassProperties {
	return spatial.PointMass(1.3, 1.3)
}

// jointChain builds Ground -> joint -> body1 -> joint -> body2 with each
// joint at the parent origin and the child's M frame a bond above the child
// origin, loaded by gravity and a constant torque on the tip.
func jointChain(t *testing.T, mob func() mobilizer.Mobilizer) *System {
	t.Helper()
	sys := NewSystem()
	outboard := spatial.Translation(mgl64.Vec3{0, bondLength, 0})
	parent := Ground
	for i := 0; i < chainLen; i++ {
		b, err := sys.AddBody(parent, chainMass(), spatial.Identity(), outboard, mob())
		if err != nil {
			t.Fatal(err)
		}
		parent = b
	}
	if err := sys.AddForce(NewUniformGravity(mgl64.Vec3{0, -9.8, 0})); err != nil {
		t.Fatal(err)
	}
	if err := sys.AddForce(NewConstantTorque(parent, mgl64.Vec3{0.1, 0.1, 1.0})); err != nil {
		t.Fatal(err)
	}
	return sys
}

// freeChainWith builds the same chain on free joints, closed by the given
// constraint between each parent and child.
func freeChainWith(t *testing.T, link func(parent, child BodyIndex) constraint.Constraint) *System {
	t.Helper()
	sys := NewSystem()
	outboard := spatial.Translation(mgl64.Vec3{0, bondLength, 0})
	parent := Ground
	for i := 0; i < chainLen; i++ {
		b, err := sys.AddBody(parent, chainMass(), spatial.Identity(), outboard, mobilizer.Free{})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := sys.AddConstraint(link(parent, b)); err != nil {
			t.Fatal(err)
		}
		parent = b
	}
	if err := sys.AddForce(NewUniformGravity(mgl64.Vec3{0, -9.8, 0})); err != nil {
		t.Fatal(err)
	}
	if err := sys.AddForce(NewConstantTorque(parent, mgl64.Vec3{0.1, 0.1, 1.0})); err != nil {
		t.Fatal(err)
	}
	return sys
}

// randomizeState draws Gaussian coordinates and speeds, restoring quaternion
// normalization where the joint needs it.
func randomizeState(t *testing.T, r *rand.Rand, sys *System, s *State) {
	t.Helper()
	q := s.Q()
	for i := range q {
		q[i] = r.NormFloat64()
	}
	if err := s.SetQ(q); err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(sys.bodies); i++ {
		sys.bodies[i].mob.NormalizeQ(sys.bodies[i].qseg(s.q))
	}
	u := s.U()
	for i := range u {
		u[i] = r.NormFloat64()
	}
	if err := s.SetU(u); err != nil {
		t.Fatal(err)
	}
}

// copyJointMotion fits the free-joint system's coordinates and speeds to the
// joint transforms and velocities of the reference system.
func copyJointMotion(t *testing.T, src *System, ss *State, dst *System, ds *State) {
	t.Helper()
	if err := src.Realize(ss, StageVelocity); err != nil {
		t.Fatalf("realize source: %v", err)
	}
	for i := 1; i < len(src.bodies); i++ {
		b := BodyIndex(i)
		x, err := ss.MobilizerTransform(b)
		if err != nil {
			t.Fatal(err)
		}
		if err := ds.SetQFromTransform(b, x); err != nil {
			t.Fatal(err)
		}
		v, err := ss.MobilizerVelocity(b)
		if err != nil {
			t.Fatal(err)
		}
		if err := ds.SetUFromVelocity(b, v); err != nil {
			t.Fatal(err)
		}
	}
}

// constraintReactionOnChild is the reaction the closing constraint exerts on
// the child body, about the child origin in Ground: the negated
// ancestor-frame force entry rotated into Ground.
func constraintReactionOnChild(sys *System, s *State, k int) spatial.SpatialVec {
	rec := sys.constraints[k]
	lam := s.lambda[rec.row : rec.row+rec.c.NumEquations()]
	bf := make([]spatial.SpatialVec, len(rec.c.Bodies()))
	rec.c.ForcesFromMultipliers(stateKin{s}, rec.ancestor, lam, bf, nil)
	entry := bf[1] // child is the second constrained body
	rGA := s.bodyX[rec.ancestor].Rotation
	return spatial.SpatialVec{
		Angular: rGA.Rotate(entry.Angular),
		Linear:  rGA.Rotate(entry.Linear),
	}.Neg()
}

func spatialClose(t *testing.T, got, want spatial.SpatialVec, tol float64, label string) {
	t.Helper()
	if got.Angular.Sub(want.Angular).Len() > tol {
		t.Errorf("%s angular = %v, want %v", label, got.Angular, want.Angular)
	}
	if got.Linear.Sub(want.Linear).Len() > tol {
		t.Errorf("%s linear = %v, want %v", label, got.Linear, want.Linear)
	}
}

// A chain on real joints and the same chain on free joints closed by the
// equivalent constraints must move identically, and the joint reactions of
// the first must equal the constraint forces of the second.
func TestReactionsMatchEquivalentConstraints(t *testing.T) {
	cases := []struct {
		name  string
		mob   func() mobilizer.Mobilizer
		link func(parent, child BodyIndex) constraint.Constraint
	}{
		{
			name: "ball joints vs ball constraints",
			mob:  func() mobilizer.Mobilizer { return mobilizer.Ball{} },
			link: func(parent, child BodyIndex) constraint.Constraint {
				return constraint.NewBall(parent, mgl64.Vec3{}, child, mgl64.Vec3{0, bondLength, 0})
			},
		},
		{
			name: "translation joints vs orientation constraints",
			mob:  func() mobilizer.Mobilizer { return mobilizer.Translation{} },
			link: func(parent, child BodyIndex) constraint.Constraint {
				return constraint.NewConstantOrientation(parent, mgl64.QuatIdent(), child, mgl64.QuatIdent())
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := rand.New(rand.NewSource(42))
			jointSys := jointChain(t, tc.mob)
			freeSys := freeChainWith(t, tc.link)
			js := mustState(t, jointSys)
			fs := mustState(t, freeSys)

			randomizeState(t, r, jointSys, js)
			copyJointMotion(t, jointSys, js, freeSys, fs)
			if err := freeSys.Project(fs, 1e-10, nil, nil, nil); err != nil {
				t.Fatalf("Project: %v", err)
			}

			if err := jointSys.Realize(js, StageAcceleration); err != nil {
				t.Fatalf("realize joint system: %v", err)
			}
			if err := freeSys.Realize(fs, StageAcceleration); err != nil {
				t.Fatalf("realize free system: %v", err)
			}

			for i := 1; i <= chainLen; i++ {
				b := BodyIndex(i)
				jx, _ := js.BodyTransform(b)
				fx, _ := fs.BodyTransform(b)
				if jx.Position.Sub(fx.Position).Len() > 1e-10 {
					t.Errorf("body %d position: joint %v, free %v", i, jx.Position, fx.Position)
				}
				if ang := spatial.RotationAngle(jx.Rotation, fx.Rotation); ang > 1e-10 {
					t.Errorf("body %d rotation differs by %v", i, ang)
				}

				jv, _ := js.BodyVelocity(b)
				fv, _ := fs.BodyVelocity(b)
				spatialClose(t, fv, jv, 1e-10, "velocity")

				ja, _ := js.BodyAcceleration(b)
				fa, _ := fs.BodyAcceleration(b)
				spatialClose(t, fa, ja, 1e-10, "acceleration")
			}

			jointReactions, err := jointSys.CalcMobilizerReactionForces(js)
			if err != nil {
				t.Fatalf("joint reactions: %v", err)
			}
			freeReactions, err := freeSys.CalcMobilizerReactionForces(fs)
			if err != nil {
				t.Fatalf("free reactions: %v", err)
			}

			for i := 1; i <= chainLen; i++ {
				// the free joints carry nothing; the constraints carry
				// exactly what the real joints did
				spatialClose(t, freeReactions[i], spatial.SpatialVec{}, 1e-10, "free joint reaction")
				want := constraintReactionOnChild(freeSys, fs, i-1)
				spatialClose(t, jointReactions[i], want, 1e-10, "joint reaction vs constraint force")
			}
		})
	}
}

// Reactions require the full acceleration solve.
func TestReactionsRequireAccelerationStage(t *testing.T) {
	sys := jointChain(t, func() mobilizer.Mobilizer { return mobilizer.Ball{} })
	s := mustState(t, sys)
	if err := sys.Realize(s, StageVelocity); err != nil {
		t.Fatal(err)
	}
	if _, err := sys.CalcMobilizerReactionForces(s); err == nil {
		t.Error("CalcMobilizerReactionForces below StageAcceleration should fail")
	}
}
