package simbody

import (
	"github.com/ShenRen/simbody/constraint"
	"github.com/ShenRen/simbody/spatial"
)

// Stage is a realization checkpoint. Derived quantities tagged with a stage
// are valid only while the state's watermark is at or above it. Stages are
// realized strictly in increasing order.
type Stage int

const (
	// StageTopology: the state exists but nothing is realized.
	StageTopology Stage = iota
	// StagePosition: body transforms and constraint position errors.
	StagePosition
	// StageVelocity: body velocities and constraint velocity errors.
	StageVelocity
	// StageDynamics: applied forces.
	StageDynamics
	// StageAcceleration: multipliers, generalized and body accelerations.
	StageAcceleration
)

func (s Stage) String() string {
	switch s {
	case StageTopology:
		return "Topology"
	case StagePosition:
		return "Position"
	case StageVelocity:
		return "Velocity"
	case StageDynamics:
		return "Dynamics"
	case StageAcceleration:
		return "Acceleration"
	}
	return "Unknown"
}

// State holds the generalized coordinates Q and speeds U of one system
// instance, plus every stage-cached derived quantity. Many states may share
// one finalized System; a single state must not be used concurrently.
//
// Q and U are flat vectors, mobilizer-concatenated in body (topological)
// order. This layout is a published contract: external callers index into
// it directly.
type State struct {
	sys *System

	q []float64
	u []float64

	stage Stage

	// Position stage
	bodyX []spatial.Transform  // X_GB per body
	mobX  []spatial.Transform  // X_FM per mobilized body
	perr  []float64

	// Velocity stage
	bodyV []spatial.SpatialVec // about body origin, in Ground
	verr  []float64

	// Dynamics stage
	appliedBody []spatial.SpatialVec
	appliedMob  []float64

	// Acceleration stage
	lambda []float64
	udot   []float64
	bodyA  []spatial.SpatialVec
}

func newState(sys *System) *State {
	n := len(sys.bodies)
	return &State{
		sys:         sys,
		q:           make([]float64, sys.nq),
		u:           make([]float64, sys.nu),
		bodyX:       make([]spatial.Transform, n),
		mobX:        make([]spatial.Transform, n),
		perr:        make([]float64, sys.np),
		bodyV:       make([]spatial.SpatialVec, n),
		verr:        make([]float64, sys.nm),
		appliedBody: make([]spatial.SpatialVec, n),
		appliedMob:  make([]float64, sys.nu),
		lambda:      make([]float64, sys.nm),
		udot:        make([]float64, sys.nu),
		bodyA:       make([]spatial.SpatialVec, n),
	}
}

func (s *State) clone() *State {
	c := newState(s.sys)
	copy(c.q, s.q)
	copy(c.u, s.u)
	c.stage = s.stage
	copy(c.bodyX, s.bodyX)
	copy(c.mobX, s.mobX)
	copy(c.perr, s.perr)
	copy(c.bodyV, s.bodyV)
	copy(c.verr, s.verr)
	copy(c.appliedBody, s.appliedBody)
	copy(c.appliedMob, s.appliedMob)
	copy(c.lambda, s.lambda)
	copy(c.udot, s.udot)
	copy(c.bodyA, s.bodyA)
	return c
}

// Stage returns the realization watermark.
func (s *State) Stage() Stage { return s.stage }

func (s *State) require(stage Stage) error {
	if s.stage < stage {
		return stageErr(ErrStageNotRealized, s.stage, stage)
	}
	return nil
}

// invalidateQ drops every cache that depends on positions.
func (s *State) invalidateQ() {
	s.stage = StageTopology
}

// invalidateU drops every cache that depends on velocities; positions stay.
func (s *State) invalidateU() {
	if s.stage > StagePosition {
		s.stage = StagePosition
	}
}

// Q returns a copy of the full generalized coordinate vector.
func (s *State) Q() []float64 { return append([]float64(nil), s.q...) }

// U returns a copy of the full generalized speed vector.
func (s *State) U() []float64 { return append([]float64(nil), s.u...) }

// SetQ replaces the full coordinate vector.
func (s *State) SetQ(q []float64) error {
	if len(q) != len(s.q) {
		return ErrDimensionMismatch
	}
	copy(s.q, q)
	s.invalidateQ()
	return nil
}

// SetU replaces the full speed vector.
func (s *State) SetU(u []float64) error {
	if len(u) != len(s.u) {
		return ErrDimensionMismatch
	}
	copy(s.u, u)
	s.invalidateU()
	return nil
}

// MobilizerQ returns a copy of body b's coordinate segment.
func (s *State) MobilizerQ(b BodyIndex) ([]float64, error) {
	n, err := s.sys.node(b)
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), s.q[n.qStart:n.qStart+n.nq]...), nil
}

// MobilizerU returns a copy of body b's speed segment.
func (s *State) MobilizerU(b BodyIndex) ([]float64, error) {
	n, err := s.sys.node(b)
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), s.u[n.uStart:n.uStart+n.nu]...), nil
}

// SetMobilizerQ writes body b's coordinate segment.
func (s *State) SetMobilizerQ(b BodyIndex, q []float64) error {
	n, err := s.sys.node(b)
	if err != nil {
		return err
	}
	if len(q) != n.nq {
		return ErrDimensionMismatch
	}
	copy(s.q[n.qStart:], q)
	s.invalidateQ()
	return nil
}

// SetMobilizerU writes body b's speed segment.
func (s *State) SetMobilizerU(b BodyIndex, u []float64) error {
	n, err := s.sys.node(b)
	if err != nil {
		return err
	}
	if len(u) != n.nu {
		return ErrDimensionMismatch
	}
	copy(s.u[n.uStart:], u)
	s.invalidateU()
	return nil
}

// SetQFromTransform fits body b's coordinates to the given joint transform
// X_FM, using the mobilizer's nearest representable configuration.
func (s *State) SetQFromTransform(b BodyIndex, x spatial.Transform) error {
	n, err := s.sys.node(b)
	if err != nil {
		return err
	}
	if n.mob == nil {
		return ErrUnknownBody
	}
	n.mob.SetQFromTransform(x, s.q[n.qStart:n.qStart+n.nq])
	s.invalidateQ()
	return nil
}

// SetUFromVelocity fits body b's speeds to the given joint velocity V_FM.
func (s *State) SetUFromVelocity(b BodyIndex, v spatial.SpatialVec) error {
	n, err := s.sys.node(b)
	if err != nil {
		return err
	}
	if n.mob == nil {
		return ErrUnknownBody
	}
	n.mob.SetUFromVelocity(s.q[n.qStart:n.qStart+n.nq], v, s.u[n.uStart:n.uStart+n.nu])
	s.invalidateU()
	return nil
}

// BodyTransform returns X_GB. Requires StagePosition.
func (s *State) BodyTransform(b BodyIndex) (spatial.Transform, error) {
	if _, err := s.sys.node(b); err != nil {
		return spatial.Transform{}, err
	}
	if err := s.require(StagePosition); err != nil {
		return spatial.Transform{}, err
	}
	return s.bodyX[b], nil
}

// MobilizerTransform returns X_FM for body b's mobilizer. Requires
// StagePosition.
func (s *State) MobilizerTransform(b BodyIndex) (spatial.Transform, error) {
	if _, err := s.sys.node(b); err != nil {
		return spatial.Transform{}, err
	}
	if err := s.require(StagePosition); err != nil {
		return spatial.Transform{}, err
	}
	return s.mobX[b], nil
}

// BodyVelocity returns the spatial velocity of body b about its origin,
// in Ground. Requires StageVelocity.
func (s *State) BodyVelocity(b BodyIndex) (spatial.SpatialVec, error) {
	if _, err := s.sys.node(b); err != nil {
		return spatial.SpatialVec{}, err
	}
	if err := s.require(StageVelocity); err != nil {
		return spatial.SpatialVec{}, err
	}
	return s.bodyV[b], nil
}

// MobilizerVelocity returns V_FM for body b's mobilizer, expressed in F.
// Requires StageVelocity.
func (s *State) MobilizerVelocity(b BodyIndex) (spatial.SpatialVec, error) {
	n, err := s.sys.node(b)
	if err != nil {
		return spatial.SpatialVec{}, err
	}
	if err := s.require(StageVelocity); err != nil {
		return spatial.SpatialVec{}, err
	}
	if n.mob == nil {
		return spatial.SpatialVec{}, nil
	}
	return n.mob.Velocity(s.q[n.qStart:n.qStart+n.nq], s.u[n.uStart:n.uStart+n.nu]), nil
}

// BodyAcceleration returns the spatial acceleration of body b about its
// origin, in Ground. Requires StageAcceleration.
func (s *State) BodyAcceleration(b BodyIndex) (spatial.SpatialVec, error) {
	if _, err := s.sys.node(b); err != nil {
		return spatial.SpatialVec{}, err
	}
	if err := s.require(StageAcceleration); err != nil {
		return spatial.SpatialVec{}, err
	}
	return s.bodyA[b], nil
}

// PositionErrors returns a copy of the global constraint position error
// vector. Requires StagePosition.
func (s *State) PositionErrors() ([]float64, error) {
	if err := s.require(StagePosition); err != nil {
		return nil, err
	}
	return append([]float64(nil), s.perr...), nil
}

// VelocityErrors returns a copy of the global constraint velocity error
// vector. Requires StageVelocity.
func (s *State) VelocityErrors() ([]float64, error) {
	if err := s.require(StageVelocity); err != nil {
		return nil, err
	}
	return append([]float64(nil), s.verr...), nil
}

// Multipliers returns a copy of the constraint multiplier vector λ.
// Requires StageAcceleration.
func (s *State) Multipliers() ([]float64, error) {
	if err := s.require(StageAcceleration); err != nil {
		return nil, err
	}
	return append([]float64(nil), s.lambda...), nil
}

// UDot returns a copy of the generalized accelerations. Requires
// StageAcceleration.
func (s *State) UDot() ([]float64, error) {
	if err := s.require(StageAcceleration); err != nil {
		return nil, err
	}
	return append([]float64(nil), s.udot...), nil
}

// stateKin adapts a realized state to the constraint evaluation view
// without stage checks; callers guarantee the needed stages.
type stateKin struct{ s *State }

func (k stateKin) BodyTransform(b constraint.BodyIndex) spatial.Transform {
	return k.s.bodyX[b]
}
func (k stateKin) BodyVelocity(b constraint.BodyIndex) spatial.SpatialVec {
	return k.s.bodyV[b]
}
func (k stateKin) BodyAcceleration(b constraint.BodyIndex) spatial.SpatialVec {
	return k.s.bodyA[b]
}
func (k stateKin) MobilizerU(b constraint.BodyIndex) []float64 {
	n := k.s.sys.bodies[b]
	return k.s.u[n.uStart : n.uStart+n.nu]
}

// overlayKin reports an alternate speed vector and its body velocities over
// a position-realized state; used for Jacobian columns.
type overlayKin struct {
	s     *State
	u     []float64
	bodyV []spatial.SpatialVec
}

func (k overlayKin) BodyTransform(b constraint.BodyIndex) spatial.Transform {
	return k.s.bodyX[b]
}
func (k overlayKin) BodyVelocity(b constraint.BodyIndex) spatial.SpatialVec {
	return k.bodyV[b]
}
func (k overlayKin) BodyAcceleration(constraint.BodyIndex) spatial.SpatialVec {
	return spatial.SpatialVec{}
}
func (k overlayKin) MobilizerU(b constraint.BodyIndex) []float64 {
	n := k.s.sys.bodies[b]
	return k.u[n.uStart : n.uStart+n.nu]
}

// biasKin reports the velocity-only (u̇ = 0) acceleration field; used for
// the constraint acceleration bias.
type biasKin struct {
	s     *State
	bodyA []spatial.SpatialVec
}

func (k biasKin) BodyTransform(b constraint.BodyIndex) spatial.Transform {
	return k.s.bodyX[b]
}
func (k biasKin) BodyVelocity(b constraint.BodyIndex) spatial.SpatialVec {
	return k.s.bodyV[b]
}
func (k biasKin) BodyAcceleration(b constraint.BodyIndex) spatial.SpatialVec {
	return k.bodyA[b]
}
func (k biasKin) MobilizerU(b constraint.BodyIndex) []float64 {
	n := k.s.sys.bodies[b]
	return k.s.u[n.uStart : n.uStart+n.nu]
}
