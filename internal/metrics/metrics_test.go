package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorsAreRegistered(t *testing.T) {
	// A vector collector only shows up in a gather once it has a child.
	RSSI.WithLabelValues("registration_check")
	Reconnects.WithLabelValues("registration_check")
	FramesDecoded.WithLabelValues("registration_check")
	WAVRotations.WithLabelValues("registration_check")
	Connected.WithLabelValues("registration_check")

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}

	for _, want := range []string{
		"kiwiscrape_station_rssi_dbm",
		"kiwiscrape_station_reconnects_total",
		"kiwiscrape_station_frames_decoded_total",
		"kiwiscrape_station_wav_rotations_total",
		"kiwiscrape_station_connected",
		"kiwiscrape_host_cpu_percent",
	} {
		assert.True(t, names[want], "missing collector %s", want)
	}
}

func TestPerStationLabelsAreIndependent(t *testing.T) {
	RSSI.WithLabelValues("kiwi1_14097").Set(-42.0)
	RSSI.WithLabelValues("kiwi2_7074").Set(-10.0)

	assert.InDelta(t, -42.0, gaugeValue(t, RSSI.WithLabelValues("kiwi1_14097")), 1e-9)
	assert.InDelta(t, -10.0, gaugeValue(t, RSSI.WithLabelValues("kiwi2_7074")), 1e-9)
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, g.Write(m))
	return m.GetGauge().GetValue()
}
