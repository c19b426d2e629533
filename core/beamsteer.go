package core

import (
	"context"
	"time"

	"github.com/signalsfoundry/hapnet-simulator/internal/logging"
	"github.com/signalsfoundry/hapnet-simulator/model"
	"github.com/signalsfoundry/hapnet-simulator/timectrl"
)

// PointingPolicy selects where the platform's main lobe is centred.
type PointingPolicy int

const (
	// PointAtCenter aims the beam horizontally at the trajectory
	// centre, the behaviour of the circling-relay scenario.
	PointAtCenter PointingPolicy = iota
	// PointAtNadir aims the beam straight down.
	PointAtNadir
)

// SteeredLink is one tracked ground endpoint: a target position, the
// antenna model shaping the beam toward it, and the port receiving the
// computed gain. Independent links (e.g. two frequency bands to two
// terminals) share the platform's pointing direction but not targets.
//
// CheckLOS enables the Earth-occlusion test on long satellite legs;
// when the Earth blocks the segment the link gets the antenna's floor
// gain. It only applies to Earth-centred coordinate scenarios.
type SteeredLink struct {
	Name     string
	Target   func() Vec3
	Antenna  *CosineAntennaModel
	Port     BeamPort
	CheckLOS bool
}

// BeamSteeringEngine owns the platform's kinematic state and, every
// tick, recomputes the effective gain toward each tracked endpoint and
// writes it to the link's port. It is the only writer of both the
// kinematic state and the gains.
type BeamSteeringEngine struct {
	platform *model.PlatformDefinition
	motion   MotionModel
	policy   PointingPolicy
	links    []SteeredLink
	interval time.Duration

	sched *timectrl.Scheduler
	log   logging.Logger

	// OnGain, when set, is invoked after each per-link gain write with
	// the angular offset and resulting gain. The cmd layer uses it to
	// feed metrics without the engine importing them.
	OnGain func(link string, offsetRad, gainDB float64)

	// OnPosition, when set, is invoked once per tick after the
	// kinematic update with the platform's new position. The cmd layer
	// uses it to publish positions into the knowledge base.
	OnPosition func(pos Vec3)

	handle   *timectrl.Handle
	lastTick time.Time
}

// NewBeamSteeringEngine constructs an engine ticking at interval. A zero
// interval defaults to the reference 100 ms.
func NewBeamSteeringEngine(
	p *model.PlatformDefinition,
	motion MotionModel,
	policy PointingPolicy,
	interval time.Duration,
	sched *timectrl.Scheduler,
	log logging.Logger,
) *BeamSteeringEngine {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	if log == nil {
		log = logging.Noop()
	}
	return &BeamSteeringEngine{
		platform: p,
		motion:   motion,
		policy:   policy,
		interval: interval,
		sched:    sched,
		log:      log,
	}
}

// AddLink registers a tracked endpoint. Call before Start.
func (e *BeamSteeringEngine) AddLink(l SteeredLink) {
	e.links = append(e.links, l)
}

// Start schedules the first tick. The engine then self-reschedules until
// Stop is called or the scheduler's stop time bounds the run.
func (e *BeamSteeringEngine) Start() {
	e.lastTick = e.sched.Now()
	e.handle = e.sched.ScheduleAfter(e.interval, e.tick)
}

// Stop cancels the pending tick so no phantom invocations survive a
// teardown.
func (e *BeamSteeringEngine) Stop() {
	e.handle.Cancel()
}

// PlatformID returns the ID of the platform the engine drives.
func (e *BeamSteeringEngine) PlatformID() string {
	return e.platform.ID
}

// PlatformPosition returns the platform's current position.
func (e *BeamSteeringEngine) PlatformPosition() Vec3 {
	c := e.platform.Coordinates
	return Vec3{X: c.X, Y: c.Y, Z: c.Z}
}

// pointingDirection derives the current main-lobe direction from the
// platform position. Not stored between ticks.
func (e *BeamSteeringEngine) pointingDirection() Vec3 {
	switch e.policy {
	case PointAtNadir:
		return Vec3{Z: -1}
	default:
		c := e.platform.Trajectory.Center
		p := e.platform.Coordinates
		// Horizontal bearing toward the centre, at platform altitude.
		return Vec3{X: c.X - p.X, Y: c.Y - p.Y}
	}
}

// tick runs one closed-loop iteration: advance kinematics, recompute the
// pointing direction, map each target's angular offset through the
// antenna model, push the gain, and reschedule.
func (e *BeamSteeringEngine) tick() {
	now := e.sched.Now()
	dt := now.Sub(e.lastTick)
	e.lastTick = now

	e.motion.UpdateState(now, dt, e.platform)

	pos := e.PlatformPosition()
	if e.OnPosition != nil {
		e.OnPosition(pos)
	}
	pointing := e.pointingDirection()

	for _, l := range e.links {
		target := l.Target()
		toTarget := target.Sub(pos)
		offset := AngleBetween(pointing, toTarget)
		gain := l.Antenna.GainDB(offset)
		if l.CheckLOS && !HasLineOfSight(pos, target) {
			gain = l.Antenna.FloorGainDB
		}
		l.Port.SetGainDB(gain)
		if e.OnGain != nil {
			e.OnGain(l.Name, offset, gain)
		}
		e.log.Debug(context.Background(), "beam update",
			logging.String("link", l.Name),
			logging.Any("offset_rad", offset),
			logging.Any("gain_db", gain),
		)
	}

	e.handle = e.sched.ScheduleAfter(e.interval, e.tick)
}
