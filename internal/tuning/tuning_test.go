package tuning

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAMCutsAndFrequency(t *testing.T) {
	tn := NewAM(5000, 7_850_000)
	low, high := tn.Cuts()
	assert.EqualValues(t, -2500, low)
	assert.EqualValues(t, 2500, high)
	assert.InDelta(t, 7850.0, tn.FrequencyKHz(), 1e-9)
}

func TestCutModeRoundTrip(t *testing.T) {
	tn := NewCut(USB, 300, 2700, 14_097_000)
	low, high := tn.Cuts()
	assert.EqualValues(t, 300, low)
	assert.EqualValues(t, 2700, high)
	assert.Equal(t, USB, tn.Mode)
}

func TestNewCutRejectsAM(t *testing.T) {
	assert.Panics(t, func() {
		NewCut(AM, 300, 2700, 14_097_000)
	})
}

func TestNewCutRejectsInvertedCuts(t *testing.T) {
	assert.Panics(t, func() {
		NewCut(USB, 2700, 300, 14_097_000)
	})
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "am", AM.String())
	assert.Equal(t, "usb", USB.String())
	assert.Equal(t, "lsb", LSB.String())
	assert.Equal(t, "fm", FM.String())
}
