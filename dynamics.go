package simbody

import (
	"math"

	"github.com/ShenRen/simbody/spatial"
	"gonum.org/v1/gonum/mat"
)

// lambdaResidualTol bounds the admissible relative residual of the
// multiplier solve; a larger residual means the constraint set is
// conflicting, not merely redundant.
const lambdaResidualTol = 1e-8

// massMatrix builds the joint-space mass matrix column by column: column j
// is the generalized force required to produce a unit u̇[j] with zero
// velocities, an inverse-dynamics pass per column.
func (sys *System) massMatrix(s *State) *mat.SymDense {
	nu := sys.nu
	m := mat.NewSymDense(nu, nil)
	acc := make([]spatial.SpatialVec, len(sys.bodies))
	fb := make([]spatial.SpatialVec, len(sys.bodies))
	col := make([]float64, nu)
	udot := make([]float64, nu)
	for j := 0; j < nu; j++ {
		udot[j] = 1
		sys.accelSweep(s, udot, false, acc)
		sys.bodyInertialForces(s, acc, false, fb)
		sys.multiplyBySystemJacobianT(s, fb, col)
		for i := j; i < nu; i++ {
			m.SetSym(j, i, col[i])
		}
		udot[j] = 0
	}
	return m
}

// realizeAcceleration solves the coupled equations of motion and constraint
// equations for U̇ and the multipliers λ:
//
//	M·U̇ = f − C − Jᵀλ,   J·U̇ = −(J̇·U)
//
// eliminated through the Schur complement G = J·M⁻¹·Jᵀ. λ and the body
// accelerations are cached on success.
func (sys *System) realizeAcceleration(s *State) error {
	nu, nm := sys.nu, sys.nm
	nb := len(sys.bodies)

	biasA := make([]spatial.SpatialVec, nb)
	sys.accelSweep(s, make([]float64, nu), true, biasA)

	if nu == 0 {
		copy(s.bodyA, biasA)
		return nil
	}

	// f = applied generalized force − velocity bias force
	f := make([]float64, nu)
	sys.multiplyBySystemJacobianT(s, s.appliedBody, f)
	for i := range f {
		f[i] += s.appliedMob[i]
	}
	fb := make([]spatial.SpatialVec, nb)
	sys.bodyInertialForces(s, biasA, true, fb)
	cbias := make([]float64, nu)
	sys.multiplyBySystemJacobianT(s, fb, cbias)
	for i := range f {
		f[i] -= cbias[i]
	}

	var chol mat.Cholesky
	if !chol.Factorize(sys.massMatrix(s)) {
		return ErrSingularConstraint
	}

	fv := mat.NewVecDense(nu, f)
	udot := mat.NewVecDense(nu, nil)

	if nm == 0 {
		if err := chol.SolveVecTo(udot, fv); err != nil {
			return ErrSingularConstraint
		}
	} else {
		j := sys.jacobian(s, false)

		// acceleration-level bias: −J̇·U, evaluated as the constraint
		// acceleration error under the u̇ = 0 acceleration field
		aerr0 := make([]float64, nm)
		kin := biasKin{s: s, bodyA: biasA}
		for _, rec := range sys.constraints {
			rec.c.AccelerationError(kin, rec.ancestor, aerr0[rec.row:rec.row+rec.c.NumEquations()])
		}

		minvjt := mat.NewDense(nu, nm, nil)
		if err := chol.SolveTo(minvjt, j.T()); err != nil {
			return ErrSingularConstraint
		}
		g := mat.NewDense(nm, nm, nil)
		g.Mul(j, minvjt)

		minvf := mat.NewVecDense(nu, nil)
		if err := chol.SolveVecTo(minvf, fv); err != nil {
			return ErrSingularConstraint
		}
		rhs := make([]float64, nm)
		jmf := mat.NewVecDense(nm, nil)
		jmf.MulVec(j, minvf)
		for i := 0; i < nm; i++ {
			rhs[i] = jmf.AtVec(i) + aerr0[i]
		}

		// A redundant constraint set yields the minimum-norm λ; a
		// conflicting one leaves a residual and is rejected.
		lambda, _, err := lstsqSolve(g, rhs, 1e-13)
		if err != nil {
			return err
		}
		lv := mat.NewVecDense(nm, lambda)
		res := mat.NewVecDense(nm, nil)
		res.MulVec(g, lv)
		var rnorm, bnorm float64
		for i := 0; i < nm; i++ {
			d := res.AtVec(i) - rhs[i]
			rnorm += d * d
			bnorm += rhs[i] * rhs[i]
		}
		if math.Sqrt(rnorm) > lambdaResidualTol*(1+math.Sqrt(bnorm)) {
			return ErrSingularConstraint
		}

		jtl := mat.NewVecDense(nu, nil)
		jtl.MulVec(j.T(), lv)
		for i := 0; i < nu; i++ {
			fv.SetVec(i, fv.AtVec(i)-jtl.AtVec(i))
		}
		if err := chol.SolveVecTo(udot, fv); err != nil {
			return ErrSingularConstraint
		}
		copy(s.lambda, lambda)
	}

	for i := 0; i < nu; i++ {
		s.udot[i] = udot.AtVec(i)
	}
	sys.accelSweep(s, s.udot, true, s.bodyA)
	return nil
}
