package core

import (
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/hapnet-simulator/model"
)

// MotionModel advances a platform's kinematic state to a given simulation
// time. dt is the interval since the previous update; models that derive
// position purely from simTime may ignore it.
type MotionModel interface {
	UpdateState(simTime time.Time, dt time.Duration, p *model.PlatformDefinition)
}

// StaticMotionModel leaves the platform's position unchanged. Ground
// terminals and the GEO relay use it.
type StaticMotionModel struct{}

// UpdateState for static motion does nothing.
func (m *StaticMotionModel) UpdateState(simTime time.Time, dt time.Duration, p *model.PlatformDefinition) {
	// no-op
}

// CircularMotionModel keeps the platform on a circle of fixed radius
// around its trajectory centre at constant altitude. Position advances
// by the previously set velocity, is pulled back onto the nominal
// radius (the linear step lands a factor sqrt(1+(ω·dt)²) outside the
// circle), then the velocity is re-derived tangential to it: for
// counter-clockwise motion about the centre, v = (-ω·y, ω·x, 0) in
// centre-relative coordinates, so |v| = R·ω by construction.
type CircularMotionModel struct{}

// UpdateState advances position and refreshes the tangential velocity.
func (m *CircularMotionModel) UpdateState(simTime time.Time, dt time.Duration, p *model.PlatformDefinition) {
	step := dt.Seconds()
	p.Coordinates.X += p.Velocity.X * step
	p.Coordinates.Y += p.Velocity.Y * step

	traj := p.Trajectory
	rx := p.Coordinates.X - traj.Center.X
	ry := p.Coordinates.Y - traj.Center.Y
	if r := math.Hypot(rx, ry); r > 0 && traj.RadiusM > 0 {
		scale := traj.RadiusM / r
		rx *= scale
		ry *= scale
	}
	p.Coordinates.X = traj.Center.X + rx
	p.Coordinates.Y = traj.Center.Y + ry
	p.Coordinates.Z = traj.Center.Z

	p.Velocity = model.Motion{
		X: -traj.AngularVelocity * ry,
		Y: traj.AngularVelocity * rx,
		Z: 0,
	}
}

// OrbitalSGP4MotionModel uses a TLE and SGP4 to update platform position.
type OrbitalSGP4MotionModel struct {
	sat satellite.Satellite
}

// NewOrbitalModelFromTLE constructs an orbital model from TLE lines.
func NewOrbitalModelFromTLE(line1, line2 string) *OrbitalSGP4MotionModel {
	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS72)
	return &OrbitalSGP4MotionModel{sat: sat}
}

// UpdateState propagates the satellite to the given simulation time.
// go-satellite works in kilometres; the model stores metres.
func (m *OrbitalSGP4MotionModel) UpdateState(simTime time.Time, dt time.Duration, p *model.PlatformDefinition) {
	year, month, day := simTime.Date()
	hour, min, sec := simTime.Clock()

	posECI, velECI := satellite.Propagate(m.sat, year, int(month), day, hour, min, sec)
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	gmst := satellite.ThetaG_JD(jd)
	posECEF := satellite.ECIToECEF(posECI, gmst)

	const kmToM = 1000.0
	p.Coordinates = model.Motion{
		X: posECEF.X * kmToM,
		Y: posECEF.Y * kmToM,
		Z: posECEF.Z * kmToM,
	}
	// Velocity stays in the inertial frame; it is only used for logging
	// and rough diagnostics on orbital platforms.
	p.Velocity = model.Motion{
		X: velECI.X * kmToM,
		Y: velECI.Y * kmToM,
		Z: velECI.Z * kmToM,
	}
}

// NewMotionModel chooses an appropriate MotionModel for the platform.
// MotionSourceSpacetrack with a non-empty TLE uses SGP4; circular
// trajectories use the tangential-velocity model; everything else is
// static.
func NewMotionModel(p *model.PlatformDefinition, tle1, tle2 string) MotionModel {
	switch {
	case p.MotionSource == model.MotionSourceSpacetrack && tle1 != "" && tle2 != "":
		return NewOrbitalModelFromTLE(tle1, tle2)
	case p.MotionSource == model.MotionSourceCircular:
		return &CircularMotionModel{}
	default:
		return &StaticMotionModel{}
	}
}
