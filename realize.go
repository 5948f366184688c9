package simbody

import (
	"github.com/ShenRen/simbody/spatial"
	"github.com/go-gl/mathgl/mgl64"
)

// Realize advances the state's cache through every stage up to target.
// Already-realized stages are not recomputed: realizing the same stage
// twice without mutating Q or U is a no-op.
func (sys *System) Realize(s *State, target Stage) error {
	if !sys.finalized {
		return ErrTopologyNotFinalized
	}
	if target < StagePosition || target > StageAcceleration {
		return stageErr(ErrStageOutOfOrder, s.stage, target)
	}
	for s.stage < target {
		if err := sys.RealizeStage(s, s.stage+1); err != nil {
			return err
		}
	}
	return nil
}

// RealizeStage advances the cache by exactly one stage, which must be the
// successor of the state's watermark. On failure the watermark, and with it
// every readable quantity, is left at its prior consistent stage.
func (sys *System) RealizeStage(s *State, stage Stage) error {
	if !sys.finalized {
		return ErrTopologyNotFinalized
	}
	if stage != s.stage+1 || stage > StageAcceleration {
		return stageErr(ErrStageOutOfOrder, s.stage, stage)
	}
	switch stage {
	case StagePosition:
		sys.realizePosition(s)
	case StageVelocity:
		sys.realizeVelocity(s)
	case StageDynamics:
		sys.realizeDynamics(s)
	case StageAcceleration:
		if err := sys.realizeAcceleration(s); err != nil {
			return err
		}
	}
	s.stage = stage
	return nil
}

// CalcQDot maps the state's generalized speeds to coordinate rates through
// the block-diagonal kinematic coupling matrix: q̇ = N(q)·u.
func (sys *System) CalcQDot(s *State) ([]float64, error) {
	if !sys.finalized {
		return nil, ErrTopologyNotFinalized
	}
	qdot := make([]float64, sys.nq)
	for i := 1; i < len(sys.bodies); i++ {
		n := &sys.bodies[i]
		n.mob.QDot(n.qseg(s.q), n.useg(s.u), qdot[n.qStart:n.qStart+n.nq])
	}
	return qdot, nil
}

// realizePosition runs forward kinematics parent-before-child and assembles
// the constraint position errors.
func (sys *System) realizePosition(s *State) {
	s.bodyX[0] = spatial.Identity()
	s.mobX[0] = spatial.Identity()
	for i := 1; i < len(sys.bodies); i++ {
		n := &sys.bodies[i]
		xFM := n.mob.Transform(n.qseg(s.q))
		s.mobX[i] = xFM
		xGF := s.bodyX[n.parent].Compose(n.xPF)
		s.bodyX[i] = xGF.Compose(xFM).Compose(n.xBM.Inverse())
	}
	kin := stateKin{s}
	for _, rec := range sys.constraints {
		np := rec.c.NumPositionEquations()
		if np > 0 {
			rec.c.PositionError(kin, rec.ancestor, s.perr[rec.posRow:rec.posRow+np])
		}
	}
}

// realizeVelocity propagates body spatial velocities and assembles the
// constraint velocity errors.
func (sys *System) realizeVelocity(s *State) {
	sys.velocitySweep(s, s.u, s.bodyV)
	kin := stateKin{s}
	for _, rec := range sys.constraints {
		rec.c.VelocityError(kin, rec.ancestor, s.verr[rec.row:rec.row+rec.c.NumEquations()])
	}
}

// realizeDynamics accumulates the applied forces of every force element:
// spatial forces about each body origin in Ground, plus generalized
// mobility forces.
func (sys *System) realizeDynamics(s *State) {
	for i := range s.appliedBody {
		s.appliedBody[i] = spatial.SpatialVec{}
	}
	for i := range s.appliedMob {
		s.appliedMob[i] = 0
	}
	for _, f := range sys.forces {
		f.Apply(s, s.appliedBody, s.appliedMob)
	}
}

// velocitySweep computes body spatial velocities (about body origins, in
// Ground) for an arbitrary speed vector over the position-stage cache.
func (sys *System) velocitySweep(s *State, u []float64, out []spatial.SpatialVec) {
	out[0] = spatial.SpatialVec{}
	for i := 1; i < len(sys.bodies); i++ {
		n := &sys.bodies[i]
		vFM := n.mob.Velocity(n.qseg(s.q), n.useg(u))
		rGF := s.bodyX[n.parent].Rotation.Mul(n.xPF.Rotation)
		wJ := rGF.Rotate(vFM.Angular)
		vMJ := rGF.Rotate(vFM.Linear)
		r := s.bodyX[i].Position.Sub(s.bodyX[n.parent].Position)
		sv := s.bodyX[i].Position.Sub(s.bodyX[i].Apply(n.xBM.Position))
		out[i] = spatial.SpatialVec{
			Angular: out[n.parent].Angular.Add(wJ),
			Linear: out[n.parent].Linear.
				Add(out[n.parent].Angular.Cross(r)).
				Add(vMJ).
				Add(wJ.Cross(sv)),
		}
	}
}

// accelSweep computes body spatial accelerations for a given u̇ over the
// position and velocity caches. With withVelocity false every
// velocity-dependent term is dropped, which yields the configuration-only
// propagation the mass-matrix columns need; with u̇ = 0 and withVelocity
// true it yields the bias (coriolis and centrifugal) accelerations.
func (sys *System) accelSweep(s *State, udot []float64, withVelocity bool, out []spatial.SpatialVec) {
	out[0] = spatial.SpatialVec{}
	for i := 1; i < len(sys.bodies); i++ {
		n := &sys.bodies[i]
		p := n.parent
		rGF := s.bodyX[p].Rotation.Mul(n.xPF.Rotation)

		var hw, hv mgl64.Vec3 // R_GF·H·u̇, split in angular/linear parts
		ud := n.useg(udot)
		for j := 0; j < n.nu; j++ {
			if ud[j] == 0 {
				continue
			}
			axis := n.mob.Axis(j)
			hw = hw.Add(rGF.Rotate(axis.Angular).Mul(ud[j]))
			hv = hv.Add(rGF.Rotate(axis.Linear).Mul(ud[j]))
		}

		r := s.bodyX[i].Position.Sub(s.bodyX[p].Position)
		sv := s.bodyX[i].Position.Sub(s.bodyX[i].Apply(n.xBM.Position))

		if !withVelocity {
			wdJ := hw
			out[i] = spatial.SpatialVec{
				Angular: out[p].Angular.Add(wdJ),
				Linear: out[p].Linear.
					Add(out[p].Angular.Cross(r)).
					Add(hv).
					Add(wdJ.Cross(sv)),
			}
			continue
		}

		wP := s.bodyV[p].Angular
		wB := s.bodyV[i].Angular
		wJ := wB.Sub(wP)
		rdot := s.bodyV[i].Linear.Sub(s.bodyV[p].Linear)
		// joint linear velocity at the M origin, recovered from the cache
		vJatB := rdot.Sub(wP.Cross(r))
		vMJ := vJatB.Sub(wJ.Cross(sv))

		wdJ := wP.Cross(wJ).Add(hw)
		aJ := wP.Cross(vMJ).
			Add(hv).
			Add(wdJ.Cross(sv)).
			Add(wJ.Cross(wB.Cross(sv)))
		out[i] = spatial.SpatialVec{
			Angular: out[p].Angular.Add(wdJ),
			Linear: out[p].Linear.
				Add(out[p].Angular.Cross(r)).
				Add(wP.Cross(rdot)).
				Add(aJ),
		}
	}
}

// hcols returns body i's hinge axes as spatial velocity directions about
// the body origin, in Ground: the contribution of a unit u[j] to the body's
// spatial velocity.
func (sys *System) hcols(s *State, i int, out []spatial.SpatialVec) {
	n := &sys.bodies[i]
	rGF := s.bodyX[n.parent].Rotation.Mul(n.xPF.Rotation)
	sv := s.bodyX[i].Position.Sub(s.bodyX[i].Apply(n.xBM.Position))
	for j := 0; j < n.nu; j++ {
		axis := n.mob.Axis(j)
		hw := rGF.Rotate(axis.Angular)
		out[j] = spatial.SpatialVec{
			Angular: hw,
			Linear:  rGF.Rotate(axis.Linear).Add(hw.Cross(sv)),
		}
	}
}

// bodyInertialForces computes, per body, the net spatial force (about the
// body origin, in Ground) required to produce the given accelerations,
// including gyroscopic terms when withVelocity is set.
func (sys *System) bodyInertialForces(s *State, acc []spatial.SpatialVec, withVelocity bool, out []spatial.SpatialVec) {
	out[0] = spatial.SpatialVec{}
	for i := 1; i < len(sys.bodies); i++ {
		n := &sys.bodies[i]
		rc := s.bodyX[i].Rotate(n.mass.COM)
		wd := acc[i].Angular
		acom := acc[i].Linear.Add(wd.Cross(rc))
		var w mgl64.Vec3
		if withVelocity {
			w = s.bodyV[i].Angular
			acom = acom.Add(w.Cross(w.Cross(rc)))
		}
		f := acom.Mul(n.mass.Mass)
		ig := n.mass.InertiaInWorld(s.bodyX[i].Rotation)
		tau := ig.Mul3x1(wd).Add(rc.Cross(f))
		if withVelocity {
			tau = tau.Add(w.Cross(ig.Mul3x1(w)))
		}
		out[i] = spatial.SpatialVec{Angular: tau, Linear: f}
	}
}

// multiplyBySystemJacobianT maps per-body spatial forces (about body
// origins, in Ground) to generalized forces by a child-before-parent sweep.
func (sys *System) multiplyBySystemJacobianT(s *State, forces []spatial.SpatialVec, out []float64) {
	z := make([]spatial.SpatialVec, len(forces))
	copy(z, forces)
	cols := make([]spatial.SpatialVec, 6)
	for i := len(sys.bodies) - 1; i >= 1; i-- {
		n := &sys.bodies[i]
		sys.hcols(s, i, cols[:n.nu])
		for j := 0; j < n.nu; j++ {
			out[n.uStart+j] = cols[j].Angular.Dot(z[i].Angular) + cols[j].Linear.Dot(z[i].Linear)
		}
		shift := s.bodyX[n.parent].Position.Sub(s.bodyX[i].Position)
		z[n.parent] = z[n.parent].Add(spatial.ShiftForce(z[i], shift))
	}
}
