package core

import (
	"math"
	"testing"
	"time"

	"github.com/signalsfoundry/hapnet-simulator/model"
)

func circularPlatform(radius, omega, altitude float64) *model.PlatformDefinition {
	return &model.PlatformDefinition{
		ID:           "hap1",
		MotionSource: model.MotionSourceCircular,
		Coordinates:  model.Motion{X: radius, Y: 0, Z: altitude},
		Trajectory: model.CircularTrajectory{
			Center:          model.Motion{X: 0, Y: 0, Z: altitude},
			RadiusM:         radius,
			AngularVelocity: omega,
			AltitudeM:       altitude,
		},
	}
}

func TestStaticMotionLeavesStateUnchanged(t *testing.T) {
	p := &model.PlatformDefinition{
		Coordinates: model.Motion{X: 1, Y: 2, Z: 3},
		Velocity:    model.Motion{X: 4},
	}
	m := &StaticMotionModel{}
	m.UpdateState(time.Now(), time.Second, p)
	if p.Coordinates != (model.Motion{X: 1, Y: 2, Z: 3}) {
		t.Fatalf("static motion moved the platform: %+v", p.Coordinates)
	}
}

func TestCircularMotionVelocityTangential(t *testing.T) {
	const (
		radius = 6000.0
		omega  = 2 * math.Pi / 100
	)
	p := circularPlatform(radius, omega, 20000)
	m := &CircularMotionModel{}

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	dt := 100 * time.Millisecond
	for i := 0; i < 200; i++ {
		m.UpdateState(now, dt, p)
		now = now.Add(dt)

		rx := p.Coordinates.X - p.Trajectory.Center.X
		ry := p.Coordinates.Y - p.Trajectory.Center.Y
		dot := rx*p.Velocity.X + ry*p.Velocity.Y
		r := math.Hypot(rx, ry)
		speed := math.Hypot(p.Velocity.X, p.Velocity.Y)

		if math.Abs(dot)/(r*speed) > 1e-9 {
			t.Fatalf("step %d: velocity not tangential, dot=%v", i, dot)
		}
		if math.Abs(speed-r*omega) > 1e-6 {
			t.Fatalf("step %d: |v|=%v, want r*omega=%v", i, speed, r*omega)
		}
		if p.Velocity.Z != 0 {
			t.Fatalf("step %d: vertical velocity %v", i, p.Velocity.Z)
		}
	}
}

func TestCircularMotionHoldsAltitudeAndRadius(t *testing.T) {
	const (
		radius = 6000.0
		omega  = 2 * math.Pi / 100
	)
	p := circularPlatform(radius, omega, 20000)
	m := &CircularMotionModel{}

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	dt := 100 * time.Millisecond
	// A full 100 s orbit at the 100 ms tick. The model re-projects onto
	// the nominal radius every step, so there is no cumulative drift.
	for i := 0; i < 1000; i++ {
		m.UpdateState(now, dt, p)
		now = now.Add(dt)

		r := math.Hypot(p.Coordinates.X, p.Coordinates.Y)
		if math.Abs(r-radius) > 1e-6 {
			t.Fatalf("step %d: radius drifted to %v, want %v", i, r, radius)
		}
	}
	if p.Coordinates.Z != 20000 {
		t.Fatalf("altitude drifted to %v", p.Coordinates.Z)
	}
}

func TestNewMotionModelSelection(t *testing.T) {
	circular := circularPlatform(6000, 0.1, 20000)
	if _, ok := NewMotionModel(circular, "", "").(*CircularMotionModel); !ok {
		t.Fatalf("circular platform did not get CircularMotionModel")
	}
	static := &model.PlatformDefinition{MotionSource: model.MotionSourceStatic}
	if _, ok := NewMotionModel(static, "", "").(*StaticMotionModel); !ok {
		t.Fatalf("static platform did not get StaticMotionModel")
	}
	orbital := &model.PlatformDefinition{MotionSource: model.MotionSourceSpacetrack}
	if _, ok := NewMotionModel(orbital, issTLE1, issTLE2).(*OrbitalSGP4MotionModel); !ok {
		t.Fatalf("spacetrack platform did not get OrbitalSGP4MotionModel")
	}
	// Spacetrack without a TLE degrades to static.
	if _, ok := NewMotionModel(orbital, "", "").(*StaticMotionModel); !ok {
		t.Fatalf("spacetrack platform without TLE did not fall back to static")
	}
}

// ISS TLE from early October 2021.
const (
	issTLE1 = "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990"
	issTLE2 = "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760"
)

func TestOrbitalMotionMovesPlatform(t *testing.T) {
	m := NewOrbitalModelFromTLE(issTLE1, issTLE2)
	p := &model.PlatformDefinition{ID: "sat1", MotionSource: model.MotionSourceSpacetrack}

	t0 := time.Date(2021, 10, 2, 0, 0, 0, 0, time.UTC)
	m.UpdateState(t0, 0, p)
	first := p.Coordinates
	m.UpdateState(t0.Add(10*time.Minute), 10*time.Minute, p)

	if p.Coordinates == first {
		t.Fatalf("orbital platform did not move over 10 minutes")
	}
	r := math.Sqrt(p.Coordinates.X*p.Coordinates.X +
		p.Coordinates.Y*p.Coordinates.Y +
		p.Coordinates.Z*p.Coordinates.Z)
	if r < EarthRadiusM || r > EarthRadiusM+2e6 {
		t.Fatalf("orbital radius %v m outside LEO band", r)
	}
}
