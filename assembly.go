package simbody

import (
	"github.com/ShenRen/simbody/spatial"
	"gonum.org/v1/gonum/mat"
)

// constraintPositionErrors evaluates every constraint's position error over
// the current position cache into a global np-vector.
func (sys *System) constraintPositionErrors(s *State, out []float64) {
	kin := stateKin{s}
	for _, rec := range sys.constraints {
		np := rec.c.NumPositionEquations()
		if np > 0 {
			rec.c.PositionError(kin, rec.ancestor, out[rec.posRow:rec.posRow+np])
		}
	}
}

// constraintVelocityErrors evaluates every constraint's velocity error for
// an arbitrary speed vector and matching body velocities.
func (sys *System) constraintVelocityErrors(s *State, u []float64, bodyV []spatial.SpatialVec, out []float64) {
	kin := overlayKin{s: s, u: u, bodyV: bodyV}
	for _, rec := range sys.constraints {
		rec.c.VelocityError(kin, rec.ancestor, out[rec.row:rec.row+rec.c.NumEquations()])
	}
}

// jacobian assembles the constraint velocity-error Jacobian w.r.t. U by
// evaluating the (linear) velocity errors against unit speed vectors, one
// column per generalized speed. With positionOnly set, only the holonomic
// rows are kept; those are also the position-error Jacobian through
// q̇ = N(q)·u. Requires the position cache.
//
// Row ordering is the registration-table ordering shared with the force
// mapping and the multiplier vector.
func (sys *System) jacobian(s *State, positionOnly bool) *mat.Dense {
	rows := sys.nm
	if positionOnly {
		rows = sys.np
	}
	j := mat.NewDense(rows, sys.nu, nil)

	verr0 := make([]float64, sys.nm)
	zeroU := make([]float64, sys.nu)
	zeroV := make([]spatial.SpatialVec, len(sys.bodies))
	sys.constraintVelocityErrors(s, zeroU, zeroV, verr0)

	cols := make([]int, sys.nu)
	for i := range cols {
		cols[i] = i
	}
	task(max(1, sys.Workers), cols, func(col int) {
		u := make([]float64, sys.nu)
		u[col] = 1
		bodyV := make([]spatial.SpatialVec, len(sys.bodies))
		sys.velocitySweep(s, u, bodyV)
		ve := make([]float64, sys.nm)
		sys.constraintVelocityErrors(s, u, bodyV, ve)
		if positionOnly {
			for _, rec := range sys.constraints {
				for k := 0; k < rec.c.NumPositionEquations(); k++ {
					j.Set(rec.posRow+k, col, ve[rec.row+k]-verr0[rec.row+k])
				}
			}
		} else {
			for r := 0; r < sys.nm; r++ {
				j.Set(r, col, ve[r]-verr0[r])
			}
		}
	})
	return j
}

// CalcPositionErrors recomputes and returns the global constraint position
// error vector. Requires StagePosition.
func (sys *System) CalcPositionErrors(s *State) ([]float64, error) {
	if err := s.require(StagePosition); err != nil {
		return nil, err
	}
	out := make([]float64, sys.np)
	sys.constraintPositionErrors(s, out)
	return out, nil
}

// CalcVelocityErrors recomputes and returns the global constraint velocity
// error vector. Requires StageVelocity.
func (sys *System) CalcVelocityErrors(s *State) ([]float64, error) {
	if err := s.require(StageVelocity); err != nil {
		return nil, err
	}
	out := make([]float64, sys.nm)
	sys.constraintVelocityErrors(s, s.u, s.bodyV, out)
	return out, nil
}

// CalcVelocityJacobian returns the matrix J whose rows are the constraint
// velocity errors' gradients w.r.t. U, in registration order. Requires
// StagePosition.
func (sys *System) CalcVelocityJacobian(s *State) (*mat.Dense, error) {
	if err := s.require(StagePosition); err != nil {
		return nil, err
	}
	return sys.jacobian(s, false), nil
}

// lstsqSolve returns the minimum-norm least-squares solution of a·x ≈ b via
// a truncated SVD pseudoinverse, together with the effective rank. Singular
// values below rcond times the largest are treated as zero.
func lstsqSolve(a *mat.Dense, b []float64, rcond float64) (x []float64, rank int, err error) {
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return nil, 0, ErrSingularConstraint
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	vals := svd.Values(nil)

	rows, cols := a.Dims()
	k := len(vals)
	// Uᵀb scaled by 1/σ for kept singular values
	coef := make([]float64, k)
	for i := 0; i < k; i++ {
		if vals[i] <= rcond*vals[0] || vals[i] == 0 {
			continue
		}
		rank++
		var dot float64
		for r := 0; r < rows; r++ {
			dot += u.At(r, i) * b[r]
		}
		coef[i] = dot / vals[i]
	}
	x = make([]float64, cols)
	for c := 0; c < cols; c++ {
		var sum float64
		for i := 0; i < k; i++ {
			sum += v.At(c, i) * coef[i]
		}
		x[c] = sum
	}
	return x, rank, nil
}
