package model

// MotionSource indicates how a platform's motion is determined.
type MotionSource int

const (
	MotionSourceStatic     MotionSource = iota // fixed position (ground terminals, GEO relay)
	MotionSourceCircular                       // circular trajectory at constant altitude
	MotionSourceSpacetrack                     // TLE-based orbit propagation
)

// Motion represents a position or velocity in metres (metres/second).
type Motion struct {
	X float64
	Y float64
	Z float64
}

// CircularTrajectory parameterises constant-altitude circular motion
// around a fixed centre. AngularVelocity is radians per second;
// positive values circle counter-clockwise when viewed from above.
type CircularTrajectory struct {
	Center          Motion
	RadiusM         float64
	AngularVelocity float64
	AltitudeM       float64
}

// PlatformDefinition represents a physical asset (relay platform, ground
// terminal, satellite). Coordinates and Velocity are mutated in place by
// the motion models every tick; everything else is set at scenario load.
type PlatformDefinition struct {
	ID   string
	Name string
	Type string // e.g. "HAP", "GROUND_TERMINAL", "SATELLITE"

	Coordinates Motion
	Velocity    Motion

	MotionSource MotionSource
	Trajectory   CircularTrajectory // only meaningful for MotionSourceCircular

	NoradID uint32 // optional; useful when MotionSourceSpacetrack
}
