package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config carries every scenario knob the simulator accepts. Values come
// from defaults, then an optional YAML file, then command-line flags in
// cmd/hapsim.
type Config struct {
	Platform   PlatformConfig   `yaml:"platform"`
	Antenna    AntennaConfig    `yaml:"antenna"`
	Radio      RadioConfig      `yaml:"radio"`
	Atmosphere AtmosphereConfig `yaml:"atmosphere"`
	Satellite  SatelliteConfig  `yaml:"satellite"`
	Traffic    TrafficConfig    `yaml:"traffic"`
	Run        RunConfig        `yaml:"run"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type PlatformConfig struct {
	AltitudeM       float64       `yaml:"altitude_m"`
	OrbitRadiusM    float64       `yaml:"orbit_radius_m"`
	OrbitalPeriod   time.Duration `yaml:"orbital_period"`
	SteeringTick    time.Duration `yaml:"steering_tick"`
	GroundDistanceM float64       `yaml:"ground_distance_m"`
}

type AntennaConfig struct {
	MaxGainDBi        float64 `yaml:"max_gain_dbi"`
	BeamwidthExponent float64 `yaml:"beamwidth_exponent"`
	FloorGainDB       float64 `yaml:"floor_gain_db"`
}

type RadioConfig struct {
	TxPowerDBm       float64 `yaml:"tx_power_dbm"`
	FrequencyAHz     float64 `yaml:"frequency_a_hz"`
	FrequencyBHz     float64 `yaml:"frequency_b_hz"`
	ReferenceLossADB float64 `yaml:"reference_loss_a_db"`
	ReferenceLossBDB float64 `yaml:"reference_loss_b_db"`
	RxSensitivityDBm float64 `yaml:"rx_sensitivity_dbm"`
	PathLossExponent float64 `yaml:"path_loss_exponent"`
}

type AtmosphereConfig struct {
	RainDBPerKm               float64 `yaml:"rain_db_per_km"`
	OxygenDBPerKm             float64 `yaml:"oxygen_db_per_km"`
	VaporDBPerKm              float64 `yaml:"vapor_db_per_km"`
	RainLayerHeightM          float64 `yaml:"rain_layer_height_m"`
	DenseAtmosphereThicknessM float64 `yaml:"dense_atmosphere_thickness_m"`
}

// SatelliteConfig parameterises the optional fixed platform-to-GEO leg
// whose budget is computed and reported once per run.
type SatelliteConfig struct {
	Enabled         bool    `yaml:"enabled"`
	DistanceM       float64 `yaml:"distance_m"`
	FrequencyHz     float64 `yaml:"frequency_hz"`
	TxPowerDBm      float64 `yaml:"tx_power_dbm"`
	SatGainDBi      float64 `yaml:"sat_gain_dbi"`
	PlatformGainDBi float64 `yaml:"platform_gain_dbi"`
}

type TrafficConfig struct {
	PacketCount    int           `yaml:"packet_count"`
	PacketSizeB    int           `yaml:"packet_size_bytes"`
	PacketInterval time.Duration `yaml:"packet_interval"`
	StartOffset    time.Duration `yaml:"start_offset"`
}

type RunConfig struct {
	StopAfter   time.Duration `yaml:"stop_after"`
	MetricsAddr string        `yaml:"metrics_addr"` // empty = no metrics endpoint
	ResultsDB   string        `yaml:"results_db"`   // empty = no sqlite sink
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load builds a Config from defaults overlaid with the YAML file at
// configPath, when given.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the reference scenario parameters: a 20 km platform
// circling a 6 km radius once per 100 s, 60° beams at 20 dBi, dual
// 2.4/5 GHz bands, and the standard atmospheric coefficients.
func Default() *Config {
	return &Config{
		Platform: PlatformConfig{
			AltitudeM:       20000,
			OrbitRadiusM:    6000,
			OrbitalPeriod:   100 * time.Second,
			SteeringTick:    100 * time.Millisecond,
			GroundDistanceM: 5000,
		},
		Antenna: AntennaConfig{
			MaxGainDBi:        20,
			BeamwidthExponent: 2,
			FloorGainDB:       -20,
		},
		Radio: RadioConfig{
			TxPowerDBm:       20,
			FrequencyAHz:     2.4e9,
			FrequencyBHz:     5e9,
			ReferenceLossADB: 40.0,
			ReferenceLossBDB: 46.7,
			RxSensitivityDBm: -101,
			PathLossExponent: 2.0,
		},
		Atmosphere: AtmosphereConfig{
			RainDBPerKm:               3.0,
			OxygenDBPerKm:             0.1,
			VaporDBPerKm:              0.05,
			RainLayerHeightM:          5000,
			DenseAtmosphereThicknessM: 20000,
		},
		Satellite: SatelliteConfig{
			Enabled:         false,
			DistanceM:       35786000,
			FrequencyHz:     20e9,
			TxPowerDBm:      50,
			SatGainDBi:      50,
			PlatformGainDBi: 45,
		},
		Traffic: TrafficConfig{
			PacketCount:    10,
			PacketSizeB:    1000,
			PacketInterval: 40 * time.Millisecond,
			StartOffset:    time.Second,
		},
		Run: RunConfig{
			StopAfter: 120 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate rejects configurations the simulation cannot run with.
func (c *Config) Validate() error {
	if c.Platform.OrbitalPeriod <= 0 {
		return fmt.Errorf("platform.orbital_period must be positive")
	}
	if c.Platform.OrbitRadiusM <= 0 {
		return fmt.Errorf("platform.orbit_radius_m must be positive")
	}
	if c.Platform.SteeringTick <= 0 {
		return fmt.Errorf("platform.steering_tick must be positive")
	}
	if c.Traffic.PacketCount < 0 {
		return fmt.Errorf("traffic.packet_count must not be negative")
	}
	if c.Run.StopAfter <= 0 {
		return fmt.Errorf("run.stop_after must be positive")
	}
	return nil
}
