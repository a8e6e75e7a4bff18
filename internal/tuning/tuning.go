// Package tuning models the KiwiSDR mode/frequency/cut tuple sent to the
// server when configuring a receiver.
package tuning

import (
	"fmt"
	"strconv"
)

// Mode identifies a KiwiSDR demodulation mode.
type Mode int

const (
	AM Mode = iota
	FM
	LSB
	USB
)

func (m Mode) String() string {
	switch m {
	case AM:
		return "am"
	case FM:
		return "fm"
	case LSB:
		return "lsb"
	case USB:
		return "usb"
	default:
		return "unknown"
	}
}

// Tuning is a closed sum type over the supported modes: AM carries a
// bandwidth, the cut-based modes (FM/LSB/USB) carry explicit low/high cuts.
// FrequencyHz is always in hertz; the wire encoder is responsible for the
// hertz-to-kilohertz conversion.
type Tuning struct {
	Mode        Mode
	FrequencyHz float64

	// AM only.
	BandwidthHz int32

	// FM/LSB/USB only.
	LowCutHz  int32
	HighCutHz int32
}

// NewAM constructs an AM tuning. Panics if bandwidth <= 0 or frequency <= 0,
// mirroring the invariant stated in the data model: these are programmer
// errors, not runtime conditions.
func NewAM(bandwidthHz int32, frequencyHz float64) Tuning {
	if bandwidthHz <= 0 {
		panic("tuning: AM bandwidth must be > 0")
	}
	if frequencyHz <= 0 {
		panic("tuning: frequency must be > 0")
	}
	return Tuning{Mode: AM, BandwidthHz: bandwidthHz, FrequencyHz: frequencyHz}
}

// NewCut constructs a cut-based tuning for FM, LSB, or USB.
func NewCut(mode Mode, lowCutHz, highCutHz int32, frequencyHz float64) Tuning {
	if mode == AM {
		panic("tuning: NewCut does not accept AM, use NewAM")
	}
	if lowCutHz >= highCutHz {
		panic("tuning: low_cut must be < high_cut")
	}
	if frequencyHz <= 0 {
		panic("tuning: frequency must be > 0")
	}
	return Tuning{Mode: mode, LowCutHz: lowCutHz, HighCutHz: highCutHz, FrequencyHz: frequencyHz}
}

// Cuts returns the low/high cut pair the wire protocol expects, deriving
// them from bandwidth for AM (low_cut = -bandwidth/2, high_cut = bandwidth/2).
func (t Tuning) Cuts() (low, high int32) {
	if t.Mode == AM {
		return -(t.BandwidthHz / 2), t.BandwidthHz / 2
	}
	return t.LowCutHz, t.HighCutHz
}

// FrequencyKHz is the frequency in the unit the wire form requires.
func (t Tuning) FrequencyKHz() float64 {
	return t.FrequencyHz / 1000.0
}

func (t Tuning) String() string {
	low, high := t.Cuts()
	freq := strconv.FormatFloat(t.FrequencyKHz(), 'f', -1, 64)
	return fmt.Sprintf("%s low_cut=%d high_cut=%d freq=%s", t.Mode, low, high, freq)
}
