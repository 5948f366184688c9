package simbody

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ShenRen/simbody/spatial"
)

const (
	// maxProjectionIterations bounds the position-phase Newton iteration.
	maxProjectionIterations = 20

	// projectionRankTol: singular values of the scaled Jacobian below this
	// fraction of the largest are treated as zero.
	projectionRankTol = 1e-12
)

// wrms is the weighted root-mean-square norm used for projection
// convergence: sqrt(Σ(wᵢ·eᵢ)²/n).
func wrms(e, w []float64) float64 {
	if len(e) == 0 {
		return 0
	}
	var sum float64
	for i, v := range e {
		v *= w[i]
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(e)))
}

func onesOr(w []float64, n int) []float64 {
	if w == nil {
		w = make([]float64, n)
		for i := range w {
			w[i] = 1
		}
		return w
	}
	if len(w) != n {
		return nil
	}
	return w
}

// Project drives the state onto the constraint manifold within tol,
// measured in the weighted RMS norm. positionWeights (length NumU) weight
// the solution update in speed space, mapped onto coordinates through
// q̇ = N(q)·u; positionErrorWeights (length NumPositionErrorEquations) and
// velocityErrorWeights (length NumConstraintEquations) scale the residuals,
// so constraints with heterogeneous units combine in one norm. Nil weight
// vectors mean all ones.
//
// The position phase is a Newton iteration solving J·Δu ≈ −perr by weighted
// least squares (truncated-SVD pseudoinverse) and applying Δq = N·Δu; the
// velocity phase is a single weighted least-squares correction of U, since
// velocity errors are linear in U. On success both error vectors are below
// tol and Q, U are changed minimally in the weighted least-squares sense;
// on any failure the state is left untouched.
func (sys *System) Project(s *State, tol float64, positionWeights, positionErrorWeights, velocityErrorWeights []float64) error {
	if !sys.finalized {
		return ErrTopologyNotFinalized
	}
	pw := onesOr(positionWeights, sys.nu)
	pew := onesOr(positionErrorWeights, sys.np)
	vew := onesOr(velocityErrorWeights, sys.nm)
	if pw == nil || pew == nil || vew == nil || tol <= 0 {
		return ErrDimensionMismatch
	}

	w := s.clone()
	w.stage = StageTopology
	sys.realizePosition(w)
	w.stage = StagePosition

	if sys.np > 0 && sys.nu > 0 {
		if err := sys.projectPositions(w, tol, pw, pew); err != nil {
			return err
		}
	}
	if sys.nm > 0 && sys.nu > 0 {
		if err := sys.projectVelocities(w, tol, pw, vew); err != nil {
			return err
		}
	}

	sys.realizeVelocity(w)
	w.stage = StageVelocity

	// commit: coordinates, speeds and the caches realized from them
	copy(s.q, w.q)
	copy(s.u, w.u)
	copy(s.bodyX, w.bodyX)
	copy(s.mobX, w.mobX)
	copy(s.perr, w.perr)
	copy(s.bodyV, w.bodyV)
	copy(s.verr, w.verr)
	s.stage = StageVelocity
	return nil
}

func (sys *System) projectPositions(w *State, tol float64, pw, pew []float64) error {
	perr := make([]float64, sys.np)
	for iter := 0; iter < maxProjectionIterations; iter++ {
		sys.constraintPositionErrors(w, perr)
		if wrms(perr, pew) <= tol {
			return nil
		}

		j := sys.jacobian(w, true)
		du, err := weightedStep(j, perr, pw, pew)
		if err != nil {
			return err
		}

		// Δq = N(q)·Δu, then restore coordinate invariants
		qdot := make([]float64, sys.nq)
		for i := 1; i < len(sys.bodies); i++ {
			n := &sys.bodies[i]
			n.mob.QDot(n.qseg(w.q), n.useg(du), qdot[n.qStart:n.qStart+n.nq])
		}
		for i := range w.q {
			w.q[i] += qdot[i]
		}
		for i := 1; i < len(sys.bodies); i++ {
			n := &sys.bodies[i]
			n.mob.NormalizeQ(n.qseg(w.q))
		}
		sys.realizePosition(w)
	}
	return ErrProjectionDiverged
}

func (sys *System) projectVelocities(w *State, tol float64, pw, vew []float64) error {
	verr := make([]float64, sys.nm)
	sys.constraintVelocityErrors(w, w.u, scratchBodyV(sys, w), verr)
	if wrms(verr, vew) <= tol {
		return nil
	}

	j := sys.jacobian(w, false)
	du, err := weightedStep(j, verr, pw, vew)
	if err != nil {
		return err
	}
	for i := range w.u {
		w.u[i] += du[i]
	}

	sys.constraintVelocityErrors(w, w.u, scratchBodyV(sys, w), verr)
	if wrms(verr, vew) > tol {
		return ErrProjectionDiverged
	}
	return nil
}

func scratchBodyV(sys *System, w *State) []spatial.SpatialVec {
	bv := make([]spatial.SpatialVec, len(sys.bodies))
	sys.velocitySweep(w, w.u, bv)
	return bv
}

// weightedStep solves the weighted least-squares update
// min‖E·(J·Δu + err)‖ with minimal ‖W·Δu‖: substituting Δu = W⁻¹y gives a
// plain minimum-norm problem in y. Reports ErrSingularConstraint when the
// scaled Jacobian is rank deficient.
func weightedStep(j *mat.Dense, errVec, uw, ew []float64) ([]float64, error) {
	rows, cols := j.Dims()
	a := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			a.Set(r, c, ew[r]*j.At(r, c)/uw[c])
		}
	}
	b := make([]float64, rows)
	for r := 0; r < rows; r++ {
		b[r] = -ew[r] * errVec[r]
	}
	y, rank, err := lstsqSolve(a, b, projectionRankTol)
	if err != nil {
		return nil, err
	}
	if rank < rows {
		return nil, ErrSingularConstraint
	}
	du := make([]float64, cols)
	for c := 0; c < cols; c++ {
		du[c] = y[c] / uw[c]
	}
	return du, nil
}
