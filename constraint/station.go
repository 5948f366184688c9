package constraint

import (
	"github.com/go-gl/mathgl/mgl64"
)

// station is a body-fixed point with its instantaneous world kinematics,
// shared by the point-coincidence style constraint kinds.
type station struct {
	point mgl64.Vec3 // world position
	arm   mgl64.Vec3 // world vector from body origin to the point
	body  BodyIndex
}

func stationAt(k Kinematics, b BodyIndex, local mgl64.Vec3) station {
	x := k.BodyTransform(b)
	arm := x.Rotate(local)
	return station{point: x.Position.Add(arm), arm: arm, body: b}
}

// velocity of the station point in Ground.
func (s station) velocity(k Kinematics) mgl64.Vec3 {
	v := k.BodyVelocity(s.body)
	return v.Linear.Add(v.Angular.Cross(s.arm))
}

// acceleration of the station point in Ground, using whatever acceleration
// field k reports.
func (s station) acceleration(k Kinematics) mgl64.Vec3 {
	v := k.BodyVelocity(s.body)
	a := k.BodyAcceleration(s.body)
	return a.Linear.
		Add(a.Angular.Cross(s.arm)).
		Add(v.Angular.Cross(v.Angular.Cross(s.arm)))
}

// ancestorFrame returns the ancestor body's world rotation and angular
// velocity, for expressing errors in the A frame.
func ancestorFrame(k Kinematics, ancestor BodyIndex) (mgl64.Quat, mgl64.Vec3) {
	if ancestor == Ground {
		return mgl64.QuatIdent(), mgl64.Vec3{}
	}
	return k.BodyTransform(ancestor).Rotation, k.BodyVelocity(ancestor).Angular
}
