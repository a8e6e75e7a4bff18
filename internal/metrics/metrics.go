// Package metrics registers the Prometheus collectors exposed on /metrics,
// mirroring the per-station fields of a stats snapshot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RSSI reports the most recent instantaneous RSSI per station, dBm.
	RSSI = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "kiwiscrape_station_rssi_dbm",
		Help: "Most recent RSSI sample for a station, in dBm.",
	}, []string{"station"})

	// Reconnects counts reconnection attempts per station.
	Reconnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiwiscrape_station_reconnects_total",
		Help: "Number of reconnection attempts made for a station.",
	}, []string{"station"})

	// FramesDecoded counts SND frames received per station; it is incremented
	// before the payload is handed to the WAV sink, whether or not that write
	// succeeds.
	FramesDecoded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiwiscrape_station_frames_decoded_total",
		Help: "Number of sound frames decoded for a station.",
	}, []string{"station"})

	// WAVRotations counts WAV file rotations per station.
	WAVRotations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiwiscrape_station_wav_rotations_total",
		Help: "Number of WAV file rotations for a station.",
	}, []string{"station"})

	// Connected reports 1 while a station's session is streaming, else 0.
	Connected = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "kiwiscrape_station_connected",
		Help: "1 if the station is currently connected and streaming, 0 otherwise.",
	}, []string{"station"})

	// HostCPUPercent reports the most recent host CPU utilization sample.
	HostCPUPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kiwiscrape_host_cpu_percent",
		Help: "Most recent host CPU utilization percentage.",
	})
)
