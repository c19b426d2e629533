package core

import "math"

// PropagationSpeedMPerS is the propagation speed constant used in the
// free-space path loss formula. The scenario scripts use 3e8 rather than
// the exact vacuum speed of light; keeping it reproduces their figures.
const PropagationSpeedMPerS = 3e8

// Atmosphere bundles the per-kilometre attenuation coefficients and layer
// geometry used to decompose atmospheric loss.
type Atmosphere struct {
	RainDBPerKm   float64
	OxygenDBPerKm float64
	VaporDBPerKm  float64

	// RainLayerHeightM is the top of the rain layer; above it rain
	// contributes nothing. DenseAtmosphereThicknessM caps the column
	// over which gaseous absorption applies.
	RainLayerHeightM          float64
	DenseAtmosphereThicknessM float64
}

// DefaultAtmosphere returns the coefficients used by the reference
// scenarios: 3 dB/km rain up to 5 km, 0.1 dB/km oxygen and 0.05 dB/km
// water vapor through a 20 km dense atmosphere.
func DefaultAtmosphere() Atmosphere {
	return Atmosphere{
		RainDBPerKm:               3.0,
		OxygenDBPerKm:             0.1,
		VaporDBPerKm:              0.05,
		RainLayerHeightM:          5000,
		DenseAtmosphereThicknessM: 20000,
	}
}

// AtmosphericLoss is the per-term decomposition of atmospheric
// attenuation along a slant path, in dB.
type AtmosphericLoss struct {
	RainDB  float64
	GasDB   float64 // oxygen
	VaporDB float64
}

// TotalDB returns the summed atmospheric loss.
func (l AtmosphericLoss) TotalDB() float64 {
	return l.RainDB + l.GasDB + l.VaporDB
}

// LossBelow decomposes the atmospheric loss on a path between the ground
// and a platform at altitudeM: each term is proportional to the portion
// of the column the path actually crosses, capped at the layer thickness.
func (a Atmosphere) LossBelow(altitudeM float64) AtmosphericLoss {
	rainKm := math.Min(altitudeM, a.RainLayerHeightM) / 1000
	gasKm := math.Min(altitudeM, a.DenseAtmosphereThicknessM) / 1000
	return AtmosphericLoss{
		RainDB:  a.RainDBPerKm * rainKm,
		GasDB:   a.OxygenDBPerKm * gasKm,
		VaporDB: a.VaporDBPerKm * gasKm,
	}
}

// LossAbove decomposes the atmospheric loss on a path from a platform at
// altitudeM up to space: only the residual columns above the platform
// attenuate. A platform above a layer sees none of that layer's loss.
func (a Atmosphere) LossAbove(altitudeM float64) AtmosphericLoss {
	var rainKm, gasKm float64
	if altitudeM < a.RainLayerHeightM {
		rainKm = (a.RainLayerHeightM - altitudeM) / 1000
	}
	if altitudeM < a.DenseAtmosphereThicknessM {
		gasKm = (a.DenseAtmosphereThicknessM - altitudeM) / 1000
	}
	return AtmosphericLoss{
		RainDB:  a.RainDBPerKm * rainKm,
		GasDB:   a.OxygenDBPerKm * gasKm,
		VaporDB: a.VaporDBPerKm * gasKm,
	}
}

// FreeSpacePathLossDB returns FSPL in dB for a distance in metres and a
// carrier frequency in Hz.
func FreeSpacePathLossDB(distanceM, frequencyHz float64) float64 {
	return 20*math.Log10(distanceM) +
		20*math.Log10(frequencyHz) +
		20*math.Log10(4*math.Pi/PropagationSpeedMPerS)
}

// LinkBudgetParams is the static per-link configuration for a long,
// fixed-geometry link (e.g. platform to geostationary relay). Distances
// are treated as quasi-static within a run, so the derived figures are
// computed once, not per tick.
type LinkBudgetParams struct {
	DistanceM   float64
	FrequencyHz float64
	TxPowerDBm  float64
	TxGainDBi   float64
	RxGainDBi   float64
	Atmospheric AtmosphericLoss
}

// LinkBudget holds the derived quantities of a link budget, all in the
// usual dB-family units.
type LinkBudget struct {
	FSPLdB           float64
	AtmosphericDB    float64
	EIRPdBW          float64
	ReceivedPowerDBW float64
}

// Compute derives the full budget. Pure calculation: invalid inputs
// (non-positive distance or frequency) are a caller contract violation.
func (p LinkBudgetParams) Compute() LinkBudget {
	fspl := FreeSpacePathLossDB(p.DistanceM, p.FrequencyHz)
	atmo := p.Atmospheric.TotalDB()
	eirp := p.TxPowerDBm - 30 + p.TxGainDBi
	return LinkBudget{
		FSPLdB:           fspl,
		AtmosphericDB:    atmo,
		EIRPdBW:          eirp,
		ReceivedPowerDBW: eirp - fspl - atmo + p.RxGainDBi,
	}
}

// ReferenceLossDB shifts a channel model's nominal loss at its reference
// distance by the atmospheric total, so the whole distance-loss curve
// reflects atmosphere. nominalDB is the channel's clear-air loss at the
// reference distance (e.g. 40 dB at 1 m for 2.4 GHz).
func ReferenceLossDB(nominalDB float64, atmo AtmosphericLoss) float64 {
	return nominalDB + atmo.TotalDB()
}
