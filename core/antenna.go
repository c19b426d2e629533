package core

import "math"

// cosineEpsilon is the smallest main-lobe cosine the gain model will feed
// into the logarithm; offsets beyond it fall through to the floor gain.
const cosineEpsilon = 0.01

// CosineAntennaModel maps the angular offset from boresight to an
// effective gain, using the cosine-power main-lobe approximation. The
// exponent shapes the beam: higher values narrow the lobe.
type CosineAntennaModel struct {
	MaxGainDBi        float64
	BeamwidthExponent float64
	FloorGainDB       float64
}

// NewCosineAntennaModel returns a model with the given peak gain and
// beamwidth exponent, and the conventional -20 dB floor.
func NewCosineAntennaModel(maxGainDBi, exponent float64) *CosineAntennaModel {
	return &CosineAntennaModel{
		MaxGainDBi:        maxGainDBi,
		BeamwidthExponent: exponent,
		FloorGainDB:       -20,
	}
}

// GainDB returns the gain for a given angular offset from boresight, in
// radians. Gain is non-increasing on [0, π/2], equals MaxGainDBi at 0,
// and never drops below FloorGainDB. Offsets at or beyond 90° contribute
// no main-lobe gain.
func (m *CosineAntennaModel) GainDB(offset float64) float64 {
	cos := math.Cos(offset)
	if cos < 0 {
		cos = 0
	}
	if cos <= cosineEpsilon {
		return m.FloorGainDB
	}
	gain := m.MaxGainDBi + 10*math.Log10(math.Pow(cos, m.BeamwidthExponent))
	if gain < m.FloorGainDB {
		return m.FloorGainDB
	}
	return gain
}
