package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marisusis/sdr-scraper/internal/tuning"
)

func newTestSupervisor(t *testing.T) *Supervisor {
	t.Helper()
	tn := tuning.NewCut(tuning.USB, 300, 2700, 14_097_000)
	identity := Identity{Operator: "W8EDU", Location: "Cleveland, OH"}
	return New("kiwi1_14097", "ws://127.0.0.1:1", "", tn, identity, t.TempDir(), nil)
}

func TestNewSupervisorStartsStopped(t *testing.T) {
	sv := newTestSupervisor(t)
	assert.Equal(t, Stopped, sv.Status())
	assert.Equal(t, "kiwi1_14097", sv.Name())
}

func TestStopWithoutStartIsIdempotent(t *testing.T) {
	sv := newTestSupervisor(t)
	require.NoError(t, sv.Stop())
	require.NoError(t, sv.Stop())
	assert.Equal(t, Stopped, sv.Status())
}

func TestGetStatsBeforeAnyDataIsZeroValue(t *testing.T) {
	sv := newTestSupervisor(t)
	stats := sv.GetStats()
	assert.Equal(t, "kiwi1_14097", stats.Name)
	assert.Equal(t, "20m", stats.Band)
	assert.Equal(t, 0.0, stats.RSSI)
	assert.False(t, stats.Connected)
	assert.EqualValues(t, 0, stats.Reconnects)
}

func TestHandleMessageTruncatesLongText(t *testing.T) {
	sv := newTestSupervisor(t)
	long := ""
	for i := 0; i < 200; i++ {
		long += "x"
	}
	// handleMessage only logs; this asserts it doesn't panic on oversized input.
	assert.NotPanics(t, func() { sv.handleMessage(long) })
}

func TestStatusStringer(t *testing.T) {
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "stopped", Stopped.String())
}
