package core

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/signalsfoundry/hapnet-simulator/internal/logging"
	"github.com/signalsfoundry/hapnet-simulator/model"
	"github.com/signalsfoundry/hapnet-simulator/timectrl"
)

// ScenarioStore is the slice of the knowledge base the loader populates.
// Keeping it as an interface avoids an import cycle with the kb package.
type ScenarioStore interface {
	AddPlatform(p *model.PlatformDefinition) error
	AddInterface(ri *RadioInterface) error
	AddChannel(c *RadioChannel) error
	GetPlatform(id string) *model.PlatformDefinition
	GetInterface(id string) *RadioInterface
	GetChannel(name string) *RadioChannel
}

// Scenario is a small summary of what was loaded, mainly useful for
// logging from main(). Engines and traffic generators are constructed
// but not started.
type Scenario struct {
	PlatformIDs  []string
	ChannelNames []string
	InterfaceIDs []string
	Engines      []*BeamSteeringEngine
	Traffic      []ScenarioTraffic
}

// ScenarioTraffic pairs a constructed generator with the offset from the
// run start at which it should begin sending.
type ScenarioTraffic struct {
	Gen         *TrafficGenerator
	StartOffset time.Duration
}

// internal JSON shapes – unexported so we're free to evolve them.
type scenarioJSON struct {
	Platforms  []platformJSON  `json:"platforms"`
	Channels   []channelJSON   `json:"channels"`
	Interfaces []interfaceJSON `json:"interfaces"`
	Beams      []beamJSON      `json:"beams"`
	Traffic    []trafficJSON   `json:"traffic"`
}

type vecJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type platformJSON struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Motion   string   `json:"motion"` // "static" | "circular" | "spacetrack"
	Position vecJSON  `json:"position"`
	TLE1     string   `json:"tle1,omitempty"`
	TLE2     string   `json:"tle2,omitempty"`
	Traj     trajJSON `json:"trajectory,omitempty"`
}

type trajJSON struct {
	Center          vecJSON `json:"center"`
	RadiusM         float64 `json:"radius_m"`
	AngularVelocity float64 `json:"angular_velocity"`
	AltitudeM       float64 `json:"altitude_m"`
}

type channelJSON struct {
	Name             string  `json:"name"`
	FrequencyHz      float64 `json:"frequency_hz"`
	ReferenceLossDB  float64 `json:"reference_loss_db"`
	PathLossExponent float64 `json:"path_loss_exponent,omitempty"`
	RxSensitivityDBm float64 `json:"rx_sensitivity_dbm,omitempty"`
}

type interfaceJSON struct {
	ID         string  `json:"id"`
	Address    string  `json:"address"`
	PlatformID string  `json:"platform_id"`
	Channel    string  `json:"channel"`
	TxPowerDBm float64 `json:"tx_power_dbm"`
}

type beamJSON struct {
	PlatformID string         `json:"platform_id"`
	IntervalMs int            `json:"interval_ms,omitempty"`
	Policy     string         `json:"policy,omitempty"` // "center" | "nadir"
	Links      []beamLinkJSON `json:"links"`
}

type trafficJSON struct {
	SrcInterfaceID string `json:"src_interface_id"`
	DstInterfaceID string `json:"dst_interface_id"`
	PacketCount    int    `json:"packet_count"`
	PacketSizeB    int    `json:"packet_size_bytes"`
	IntervalMs     int    `json:"interval_ms"`
	StartMs        int    `json:"start_ms,omitempty"`
}

type beamLinkJSON struct {
	Name              string  `json:"name"`
	InterfaceID       string  `json:"interface_id"`
	TargetPlatformID  string  `json:"target_platform_id"`
	MaxGainDBi        float64 `json:"max_gain_dbi"`
	BeamwidthExponent float64 `json:"beamwidth_exponent"`
	FloorGainDB       float64 `json:"floor_gain_db,omitempty"`
	CheckLOS          bool    `json:"check_los,omitempty"`
}

// LoadScenario reads a JSON scenario from r, populates the store with
// platforms, channels and interfaces, and constructs (without starting)
// one beam-steering engine per "beams" entry.
func LoadScenario(store ScenarioStore, sched *timectrl.Scheduler, log logging.Logger, r io.Reader) (*Scenario, error) {
	if store == nil {
		return nil, fmt.Errorf("LoadScenario: store is nil")
	}

	var payload scenarioJSON
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadScenario: decode failed: %w", err)
	}

	result := &Scenario{}

	for _, pj := range payload.Platforms {
		p := &model.PlatformDefinition{
			ID:   pj.ID,
			Name: pj.Name,
			Type: pj.Type,
			Coordinates: model.Motion{
				X: pj.Position.X, Y: pj.Position.Y, Z: pj.Position.Z,
			},
			MotionSource: motionSourceFromString(pj.Motion),
			Trajectory: model.CircularTrajectory{
				Center: model.Motion{
					X: pj.Traj.Center.X, Y: pj.Traj.Center.Y, Z: pj.Traj.Center.Z,
				},
				RadiusM:         pj.Traj.RadiusM,
				AngularVelocity: pj.Traj.AngularVelocity,
				AltitudeM:       pj.Traj.AltitudeM,
			},
		}
		if err := store.AddPlatform(p); err != nil {
			return nil, fmt.Errorf("LoadScenario: platform %q: %w", pj.ID, err)
		}
		result.PlatformIDs = append(result.PlatformIDs, pj.ID)
	}

	for _, cj := range payload.Channels {
		c := NewRadioChannel(cj.Name, cj.FrequencyHz, sched)
		c.SetReferenceLossDB(cj.ReferenceLossDB)
		if cj.PathLossExponent > 0 {
			c.PathLossExponent = cj.PathLossExponent
		}
		if cj.RxSensitivityDBm != 0 {
			c.RxSensitivityDBm = cj.RxSensitivityDBm
		}
		if err := store.AddChannel(c); err != nil {
			return nil, fmt.Errorf("LoadScenario: channel %q: %w", cj.Name, err)
		}
		result.ChannelNames = append(result.ChannelNames, cj.Name)
	}

	for _, ij := range payload.Interfaces {
		p := store.GetPlatform(ij.PlatformID)
		if p == nil {
			return nil, fmt.Errorf("LoadScenario: interface %q references unknown platform %q", ij.ID, ij.PlatformID)
		}
		c := store.GetChannel(ij.Channel)
		if c == nil {
			return nil, fmt.Errorf("LoadScenario: interface %q references unknown channel %q", ij.ID, ij.Channel)
		}
		ri := &RadioInterface{
			ID:         ij.ID,
			Addr:       LinkAddr(ij.Address),
			EndpointID: ij.PlatformID,
			TxPowerDBm: ij.TxPowerDBm,
			Position:   platformPosition(p),
		}
		c.Attach(ri)
		if err := store.AddInterface(ri); err != nil {
			return nil, fmt.Errorf("LoadScenario: interface %q: %w", ij.ID, err)
		}
		result.InterfaceIDs = append(result.InterfaceIDs, ij.ID)
	}

	for _, bj := range payload.Beams {
		p := store.GetPlatform(bj.PlatformID)
		if p == nil {
			return nil, fmt.Errorf("LoadScenario: beams reference unknown platform %q", bj.PlatformID)
		}
		interval := time.Duration(bj.IntervalMs) * time.Millisecond
		policy := PointAtCenter
		if bj.Policy == "nadir" {
			policy = PointAtNadir
		}
		var tle1, tle2 string
		for _, pj := range payload.Platforms {
			if pj.ID == bj.PlatformID {
				tle1, tle2 = pj.TLE1, pj.TLE2
			}
		}
		engine := NewBeamSteeringEngine(p, NewMotionModel(p, tle1, tle2), policy, interval, sched, log)

		for _, lj := range bj.Links {
			target := store.GetPlatform(lj.TargetPlatformID)
			if target == nil {
				return nil, fmt.Errorf("LoadScenario: beam link %q targets unknown platform %q", lj.Name, lj.TargetPlatformID)
			}
			port := store.GetInterface(lj.InterfaceID)
			if port == nil {
				return nil, fmt.Errorf("LoadScenario: beam link %q references unknown interface %q", lj.Name, lj.InterfaceID)
			}
			antenna := NewCosineAntennaModel(lj.MaxGainDBi, lj.BeamwidthExponent)
			if lj.FloorGainDB != 0 {
				antenna.FloorGainDB = lj.FloorGainDB
			}
			engine.AddLink(SteeredLink{
				Name:     lj.Name,
				Target:   platformPosition(target),
				Antenna:  antenna,
				Port:     port,
				CheckLOS: lj.CheckLOS,
			})
		}
		result.Engines = append(result.Engines, engine)
	}

	for _, tj := range payload.Traffic {
		src := store.GetInterface(tj.SrcInterfaceID)
		if src == nil {
			return nil, fmt.Errorf("LoadScenario: traffic references unknown interface %q", tj.SrcInterfaceID)
		}
		dst := store.GetInterface(tj.DstInterfaceID)
		if dst == nil {
			return nil, fmt.Errorf("LoadScenario: traffic references unknown interface %q", tj.DstInterfaceID)
		}
		gen := NewTrafficGenerator(sched, src, dst.Addr,
			tj.PacketCount, tj.PacketSizeB, time.Duration(tj.IntervalMs)*time.Millisecond)
		result.Traffic = append(result.Traffic, ScenarioTraffic{
			Gen:         gen,
			StartOffset: time.Duration(tj.StartMs) * time.Millisecond,
		})
	}

	return result, nil
}

func motionSourceFromString(s string) model.MotionSource {
	switch s {
	case "circular":
		return model.MotionSourceCircular
	case "spacetrack":
		return model.MotionSourceSpacetrack
	default:
		return model.MotionSourceStatic
	}
}

// platformPosition closes over the platform so moving platforms report
// fresh coordinates on every call.
func platformPosition(p *model.PlatformDefinition) func() Vec3 {
	return func() Vec3 {
		return Vec3{X: p.Coordinates.X, Y: p.Coordinates.Y, Z: p.Coordinates.Z}
	}
}
