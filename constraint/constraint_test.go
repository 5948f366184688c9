package constraint

import (
	"math"
	"math/rand"
	"testing"

	"github.com/ShenRen/simbody/spatial"
	"github.com/go-gl/mathgl/mgl64"
)

// fakeKin is a hand-assembled kinematic view for two moving bodies.
type fakeKin struct {
	x map[BodyIndex]spatial.Transform
	v map[BodyIndex]spatial.SpatialVec
	a map[BodyIndex]spatial.SpatialVec
	u map[BodyIndex][]float64
}

func (k *fakeKin) BodyTransform(b BodyIndex) spatial.Transform {
	if x, ok := k.x[b]; ok {
		return x
	}
	return spatial.Identity()
}
func (k *fakeKin) BodyVelocity(b BodyIndex) spatial.SpatialVec     { return k.v[b] }
func (k *fakeKin) BodyAcceleration(b BodyIndex) spatial.SpatialVec { return k.a[b] }
func (k *fakeKin) MobilizerU(b BodyIndex) []float64                { return k.u[b] }

func randVec(r *rand.Rand) mgl64.Vec3 {
	return mgl64.Vec3{r.NormFloat64(), r.NormFloat64(), r.NormFloat64()}
}

func randKin(r *rand.Rand, bodies ...BodyIndex) *fakeKin {
	k := &fakeKin{
		x: map[BodyIndex]spatial.Transform{},
		v: map[BodyIndex]spatial.SpatialVec{},
		a: map[BodyIndex]spatial.SpatialVec{},
		u: map[BodyIndex][]float64{},
	}
	for _, b := range bodies {
		q := mgl64.Quat{W: r.NormFloat64(), V: randVec(r)}
		k.x[b] = spatial.NewTransform(q, randVec(r))
		k.v[b] = spatial.SpatialVec{Angular: randVec(r), Linear: randVec(r)}
		k.a[b] = spatial.SpatialVec{Angular: randVec(r), Linear: randVec(r)}
	}
	return k
}

func TestBallPositionError(t *testing.T) {
	k := &fakeKin{
		x: map[BodyIndex]spatial.Transform{
			1: spatial.Translation(mgl64.Vec3{1, 0, 0}),
			2: spatial.Translation(mgl64.Vec3{1, 2, 3}),
		},
		v: map[BodyIndex]spatial.SpatialVec{},
		a: map[BodyIndex]spatial.SpatialVec{},
	}
	c := NewBall(1, mgl64.Vec3{0, 0, 0}, 2, mgl64.Vec3{0, 0, 0})

	perr := make([]float64, 3)
	c.PositionError(k, Ground, perr)
	want := []float64{0, 2, 3}
	for i := range perr {
		if math.Abs(perr[i]-want[i]) > 1e-14 {
			t.Errorf("perr[%d] = %v, want %v", i, perr[i], want[i])
		}
	}
}

func TestBallSatisfiedAtCoincidentStations(t *testing.T) {
	// body 2 hangs from a station on body 1; identical station kinematics
	// must give zero position and velocity error
	x1 := spatial.NewTransform(mgl64.QuatRotate(0.4, mgl64.Vec3{0, 0, 1}), mgl64.Vec3{1, 1, 0})
	p1 := mgl64.Vec3{0.5, 0, 0}
	stationWorld := x1.Apply(p1)

	w := mgl64.Vec3{0, 0, 2}
	v1 := spatial.SpatialVec{Angular: w, Linear: mgl64.Vec3{0.1, 0, 0}}
	stationVel := v1.Linear.Add(w.Cross(x1.Rotate(p1)))

	k := &fakeKin{
		x: map[BodyIndex]spatial.Transform{
			1: x1,
			2: spatial.Translation(stationWorld),
		},
		v: map[BodyIndex]spatial.SpatialVec{
			1: v1,
			2: {Linear: stationVel},
		},
		a: map[BodyIndex]spatial.SpatialVec{},
	}
	c := NewBall(1, p1, 2, mgl64.Vec3{0, 0, 0})

	perr := make([]float64, 3)
	verr := make([]float64, 3)
	c.PositionError(k, Ground, perr)
	c.VelocityError(k, Ground, verr)
	for i := 0; i < 3; i++ {
		if math.Abs(perr[i]) > 1e-14 {
			t.Errorf("perr[%d] = %v, want 0", i, perr[i])
		}
		if math.Abs(verr[i]) > 1e-14 {
			t.Errorf("verr[%d] = %v, want 0", i, verr[i])
		}
	}
}

func TestRodPositionError(t *testing.T) {
	k := &fakeKin{
		x: map[BodyIndex]spatial.Transform{
			1: spatial.Translation(mgl64.Vec3{0, 0, 0}),
			2: spatial.Translation(mgl64.Vec3{3, 4, 0}),
		},
		v: map[BodyIndex]spatial.SpatialVec{},
		a: map[BodyIndex]spatial.SpatialVec{},
	}
	c := NewRod(1, mgl64.Vec3{}, 2, mgl64.Vec3{}, 4)

	perr := make([]float64, 1)
	c.PositionError(k, Ground, perr)
	if math.Abs(perr[0]-1) > 1e-14 {
		t.Errorf("perr = %v, want 1", perr[0])
	}
}

func TestConstantOrientationPositionError(t *testing.T) {
	rot := mgl64.QuatRotate(0.3, mgl64.Vec3{0, 1, 0})
	k := &fakeKin{
		x: map[BodyIndex]spatial.Transform{
			1: spatial.Identity(),
			2: spatial.NewTransform(rot, mgl64.Vec3{5, 0, 0}),
		},
		v: map[BodyIndex]spatial.SpatialVec{},
		a: map[BodyIndex]spatial.SpatialVec{},
	}
	c := NewConstantOrientation(1, mgl64.QuatIdent(), 2, mgl64.QuatIdent())

	perr := make([]float64, 3)
	c.PositionError(k, Ground, perr)
	want := []float64{0, 0.3, 0}
	for i := range perr {
		if math.Abs(perr[i]-want[i]) > 1e-12 {
			t.Errorf("perr[%d] = %v, want %v", i, perr[i], want[i])
		}
	}
}

func TestConstantSpeed(t *testing.T) {
	k := &fakeKin{u: map[BodyIndex][]float64{3: {0.2, 1.7}}}
	c := NewConstantSpeed(3, 1, 0.5)

	verr := make([]float64, 1)
	c.VelocityError(k, Ground, verr)
	if math.Abs(verr[0]-1.2) > 1e-14 {
		t.Errorf("verr = %v, want 1.2", verr[0])
	}

	mf := make([]float64, 1)
	c.ForcesFromMultipliers(k, Ground, []float64{2.5}, nil, mf)
	if mf[0] != 2.5 {
		t.Errorf("mobility force = %v, want 2.5", mf[0])
	}
}

// The multiplier force mapping must be the transpose of the velocity error
// map: for any body velocity field, the power of the mapped forces equals
// λ·verr. This pins the row/multiplier correspondence for every kind.
func TestForcesAreTransposeOfVelocityError(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	kinds := []Constraint{
		NewBall(1, mgl64.Vec3{0.3, -0.1, 0.2}, 2, mgl64.Vec3{-0.4, 0.5, 0}),
		NewRod(1, mgl64.Vec3{0.2, 0, 0}, 2, mgl64.Vec3{0, 0.1, 0}, 1.5),
		NewConstantOrientation(1, mgl64.QuatRotate(0.2, mgl64.Vec3{1, 0, 0}), 2, mgl64.QuatRotate(-0.3, mgl64.Vec3{0, 0, 1})),
	}
	for _, c := range kinds {
		for trial := 0; trial < 10; trial++ {
			k := randKin(r, 1, 2)
			n := c.NumEquations()

			verr := make([]float64, n)
			c.VelocityError(k, Ground, verr)

			lambda := make([]float64, n)
			for i := range lambda {
				lambda[i] = r.NormFloat64()
			}
			bf := make([]spatial.SpatialVec, len(c.Bodies()))
			c.ForcesFromMultipliers(k, Ground, lambda, bf, nil)

			var power float64
			for i, b := range c.Bodies() {
				v := k.BodyVelocity(b)
				power += bf[i].Angular.Dot(v.Angular) + bf[i].Linear.Dot(v.Linear)
			}
			var want float64
			for i := range lambda {
				want += lambda[i] * verr[i]
			}
			if math.Abs(power-want) > 1e-10 {
				t.Errorf("%s: force power = %v, want λ·verr = %v", c.Name(), power, want)
			}
		}
	}
}
