// Package simbody is a constrained multibody dynamics engine. A mechanism
// is a tree of rigid bodies connected by mobilizers (joints), optionally
// closed by explicit holonomic constraints. The package computes staged
// kinematic states, constraint multipliers, and the spatial reaction force
// each mobilizer transmits.
package simbody

import (
	"github.com/ShenRen/simbody/constraint"
	"github.com/ShenRen/simbody/mobilizer"
	"github.com/ShenRen/simbody/spatial"
)

// BodyIndex identifies a body; Ground is index 0.
type BodyIndex = constraint.BodyIndex

// Ground is the implicit root body of the tree.
const Ground = constraint.Ground

// ConstraintIndex identifies a registered constraint.
type ConstraintIndex int

type bodyNode struct {
	parent   BodyIndex
	children []BodyIndex

	mass spatial.MassProperties
	mob  mobilizer.Mobilizer
	xPF  spatial.Transform // F frame placement on the parent
	xBM  spatial.Transform // M frame placement on the body

	qStart, nq int
	uStart, nu int
}

// constraintRec is the registration table entry shared by error assembly
// and force mapping: row offsets are assigned once, here, so error row k
// and multiplier k can never drift apart.
type constraintRec struct {
	c        constraint.Constraint
	ancestor BodyIndex
	row      int // offset into the velocity-error/multiplier vector
	posRow   int // offset into the position-error vector
}

// System owns the mechanism's topology: bodies, mobilizers, constraints and
// force elements. Topology is mutable until RealizeTopology, immutable and
// freely shareable afterwards; each State carries all per-instance data.
type System struct {
	bodies      []bodyNode
	constraints []constraintRec
	forces      []ForceElement

	nq, nu int
	np     int // total position-error rows
	nm     int // total velocity-error rows == multipliers

	finalized bool

	// Workers sets the worker count for Jacobian column evaluation.
	// Zero or one keeps everything on the calling goroutine.
	Workers int
}

// NewSystem returns a system containing only Ground.
func NewSystem() *System {
	return &System{
		bodies: []bodyNode{{parent: -1}},
	}
}

func (sys *System) node(b BodyIndex) (*bodyNode, error) {
	if b < 0 || int(b) >= len(sys.bodies) {
		return nil, ErrUnknownBody
	}
	return &sys.bodies[b], nil
}

// NumBodies returns the body count including Ground.
func (sys *System) NumBodies() int { return len(sys.bodies) }

// NumQ and NumU return the total coordinate and speed counts.
func (sys *System) NumQ() int { return sys.nq }
func (sys *System) NumU() int { return sys.nu }

// NumConstraintEquations returns the total multiplier count.
func (sys *System) NumConstraintEquations() int { return sys.nm }

// NumPositionErrorEquations returns the total holonomic row count.
func (sys *System) NumPositionErrorEquations() int { return sys.np }

// AddBody attaches a new body to parent through the given mobilizer.
// inboard places the mobilizer's F frame on the parent; outboard places the
// M frame on the new body. Returns the new body's handle.
func (sys *System) AddBody(parent BodyIndex, mass spatial.MassProperties,
	inboard, outboard spatial.Transform, mob mobilizer.Mobilizer) (BodyIndex, error) {

	if sys.finalized {
		return 0, ErrTopologyFinalized
	}
	if _, err := sys.node(parent); err != nil {
		return 0, err
	}
	if mob == nil {
		return 0, ErrUnknownBody
	}
	b := BodyIndex(len(sys.bodies))
	sys.bodies = append(sys.bodies, bodyNode{
		parent: parent,
		mass:   mass,
		mob:    mob,
		xPF:    inboard,
		xBM:    outboard,
	})
	sys.bodies[parent].children = append(sys.bodies[parent].children, b)
	return b, nil
}

// AddConstraint registers a constraint. Row offsets into the global error
// and multiplier vectors follow registration order.
func (sys *System) AddConstraint(c constraint.Constraint) (ConstraintIndex, error) {
	if sys.finalized {
		return 0, ErrTopologyFinalized
	}
	for _, b := range c.Bodies() {
		if _, err := sys.node(b); err != nil {
			return 0, err
		}
	}
	for _, m := range c.Mobilities() {
		n, err := sys.node(m.Body)
		if err != nil {
			return 0, err
		}
		if n.mob == nil || m.Dof < 0 || m.Dof >= n.mob.NU() {
			return 0, ErrDimensionMismatch
		}
	}
	ix := ConstraintIndex(len(sys.constraints))
	sys.constraints = append(sys.constraints, constraintRec{c: c})
	return ix, nil
}

// AddForce registers a force element, realized at the Dynamics stage.
func (sys *System) AddForce(f ForceElement) error {
	if sys.finalized {
		return ErrTopologyFinalized
	}
	sys.forces = append(sys.forces, f)
	return nil
}

// RealizeTopology finalizes the topology: Q/U segment offsets, constraint
// row offsets and ancestor bodies are fixed, and structural mutation is
// rejected from here on. Calling it again is a no-op.
func (sys *System) RealizeTopology() error {
	if sys.finalized {
		return nil
	}
	sys.nq, sys.nu = 0, 0
	for i := range sys.bodies {
		n := &sys.bodies[i]
		if n.mob == nil {
			continue
		}
		n.qStart, n.nq = sys.nq, n.mob.NQ()
		n.uStart, n.nu = sys.nu, n.mob.NU()
		sys.nq += n.nq
		sys.nu += n.nu
	}
	sys.np, sys.nm = 0, 0
	for i := range sys.constraints {
		rec := &sys.constraints[i]
		rec.posRow, rec.row = sys.np, sys.nm
		sys.np += rec.c.NumPositionEquations()
		sys.nm += rec.c.NumEquations()
		rec.ancestor = sys.commonAncestor(rec.c)
	}
	sys.finalized = true
	return nil
}

// commonAncestor finds the deepest body on every constrained body's path to
// Ground; constraint errors and forces are expressed in its frame.
func (sys *System) commonAncestor(c constraint.Constraint) BodyIndex {
	refs := append([]BodyIndex(nil), c.Bodies()...)
	for _, m := range c.Mobilities() {
		refs = append(refs, m.Body)
	}
	if len(refs) == 0 {
		return Ground
	}
	onPath := func(b, candidate BodyIndex) bool {
		for x := b; x >= 0; x = sys.bodies[x].parent {
			if x == candidate {
				return true
			}
		}
		return false
	}
	for a := refs[0]; a >= 0; a = sys.bodies[a].parent {
		shared := true
		for _, b := range refs[1:] {
			if !onPath(b, a) {
				shared = false
				break
			}
		}
		if shared {
			return a
		}
	}
	return Ground
}

// DefaultState returns a state with every mobilizer at its neutral
// configuration and all speeds zero.
func (sys *System) DefaultState() (*State, error) {
	if !sys.finalized {
		return nil, ErrTopologyNotFinalized
	}
	s := newState(sys)
	for i := range sys.bodies {
		n := &sys.bodies[i]
		if n.mob == nil {
			continue
		}
		n.mob.DefaultQ(s.q[n.qStart : n.qStart+n.nq])
	}
	return s, nil
}

// qseg and useg return body segments of tree-wide vectors.
func (n *bodyNode) qseg(q []float64) []float64 { return q[n.qStart : n.qStart+n.nq] }
func (n *bodyNode) useg(u []float64) []float64 { return u[n.uStart : n.uStart+n.nu] }
