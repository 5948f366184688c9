package simbody

import "github.com/ShenRen/simbody/spatial"

// CalcMobilizerReactionForces returns, for every body, the spatial force its
// mobilizer applies to it, about the body origin and expressed in Ground.
// Actively applied mobility forces are excluded, so what remains is the load
// carried by the joint structure; a free joint therefore reports zero up to
// roundoff. The Ground entry is always zero. Requires StageAcceleration.
func (sys *System) CalcMobilizerReactionForces(s *State) ([]spatial.SpatialVec, error) {
	if err := s.require(StageAcceleration); err != nil {
		return nil, err
	}
	nb := len(sys.bodies)

	// z[i] starts as the force unaccounted for by applied loads: whatever the
	// inboard joint must deliver, before children are folded in.
	z := make([]spatial.SpatialVec, nb)
	sys.bodyInertialForces(s, s.bodyA, true, z)
	for i := 1; i < nb; i++ {
		z[i] = z[i].Sub(s.appliedBody[i])
	}

	// constraint loads count as applied forces; the equations of motion apply
	// the negatives of the multiplier-mapped entries
	kin := stateKin{s}
	mobTau := make([]float64, sys.nu)
	copy(mobTau, s.appliedMob)
	for _, rec := range sys.constraints {
		lam := s.lambda[rec.row : rec.row+rec.c.NumEquations()]
		bodies := rec.c.Bodies()
		mobs := rec.c.Mobilities()
		bf := make([]spatial.SpatialVec, len(bodies))
		mf := make([]float64, len(mobs))
		rec.c.ForcesFromMultipliers(kin, rec.ancestor, lam, bf, mf)
		rGA := s.bodyX[rec.ancestor].Rotation
		for k, b := range bodies {
			z[b] = z[b].Add(spatial.SpatialVec{
				Angular: rGA.Rotate(bf[k].Angular),
				Linear:  rGA.Rotate(bf[k].Linear),
			})
		}
		for k, m := range mobs {
			n := &sys.bodies[m.Body]
			mobTau[n.uStart+m.Dof] -= mf[k]
		}
	}

	reactions := make([]spatial.SpatialVec, nb)
	for i := nb - 1; i >= 1; i-- {
		n := &sys.bodies[i]
		joint := z[i]

		// remove the actively applied joint force: a generalized force on
		// dof j acts at the M origin along the hinge axis
		rGF := s.bodyX[n.parent].Rotation.Mul(n.xPF.Rotation)
		sv := s.bodyX[i].Position.Sub(s.bodyX[i].Apply(n.xBM.Position))
		for j := 0; j < n.nu; j++ {
			tau := mobTau[n.uStart+j]
			if tau == 0 {
				continue
			}
			axis := n.mob.Axis(j)
			fM := spatial.SpatialVec{
				Angular: rGF.Rotate(axis.Angular).Mul(tau),
				Linear:  rGF.Rotate(axis.Linear).Mul(tau),
			}
			joint = joint.Sub(spatial.ShiftForce(fM, sv))
		}
		reactions[i] = joint

		shift := s.bodyX[n.parent].Position.Sub(s.bodyX[i].Position)
		z[n.parent] = z[n.parent].Add(spatial.ShiftForce(z[i], shift))
	}
	return reactions, nil
}
