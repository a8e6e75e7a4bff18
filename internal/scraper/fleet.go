package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marisusis/sdr-scraper/internal/hostsample"
	"github.com/marisusis/sdr-scraper/internal/metrics"
	"github.com/marisusis/sdr-scraper/internal/mqttpub"
)

// StatsTickInterval is how often the fleet refreshes its published stats
// snapshot and republishes to MQTT.
const StatsTickInterval = 1 * time.Second

// StatElement is one station's entry in the GET / JSON array. The first
// two fields keep the name and position spec.md's minimal {name, rssi}
// contract expects; the rest extend it.
type StatElement struct {
	Name          string  `json:"name"`
	RSSI          float64 `json:"rssi"`
	Band          string  `json:"band"`
	RSSIMeanDbm   float64 `json:"rssi_mean_dbm"`
	RSSIStddevDbm float64 `json:"rssi_stddev_dbm"`
	Connected     bool    `json:"connected"`
	Reconnects    uint64  `json:"reconnects"`
}

// Fleet owns a set of supervisors, periodically snapshots their stats, and
// serves them over HTTP alongside Prometheus metrics and a liveness check.
type Fleet struct {
	supervisors []*Supervisor
	mqtt        *mqttpub.Publisher
	sampler     *hostsample.Sampler
	log         *charmlog.Logger

	mu      sync.RWMutex
	snap    []StatElement
	started bool
}

// NewFleet constructs a Fleet over the given supervisors.
func NewFleet(supervisors []*Supervisor, mqttPublisher *mqttpub.Publisher, logger *charmlog.Logger) *Fleet {
	if logger == nil {
		logger = charmlog.Default()
	}
	return &Fleet{
		supervisors: supervisors,
		mqtt:        mqttPublisher,
		sampler:     hostsample.New(),
		log:         logger,
	}
}

// Run starts every supervisor sequentially, then blocks running the stats
// tick loop until ctx is cancelled.
func (f *Fleet) Run(ctx context.Context) {
	for _, sv := range f.supervisors {
		sv.Start()
	}

	f.mu.Lock()
	f.started = true
	f.mu.Unlock()

	go f.sampler.Run(ctx)

	ticker := time.NewTicker(StatsTickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.tick()
		}
	}
}

func (f *Fleet) tick() {
	metrics.HostCPUPercent.Set(f.sampler.CPUPercent())

	elements := make([]StatElement, 0, len(f.supervisors))
	for _, sv := range f.supervisors {
		stats := sv.GetStats()
		el := StatElement{
			Name:          stats.Name,
			Band:          stats.Band,
			RSSI:          stats.RSSI,
			RSSIMeanDbm:   stats.RSSIMeanDbm,
			RSSIStddevDbm: stats.RSSIStddevDbm,
			Connected:     stats.Connected,
			Reconnects:    stats.Reconnects,
		}
		elements = append(elements, el)

		if f.mqtt != nil {
			f.mqtt.Publish(stats.Name, mqttpub.StatsMessage{
				Name:          el.Name,
				Band:          el.Band,
				RSSI:          el.RSSI,
				RSSIMeanDbm:   el.RSSIMeanDbm,
				RSSIStddevDbm: el.RSSIStddevDbm,
				Connected:     el.Connected,
				Reconnects:    el.Reconnects,
			})
		}
	}

	f.mu.Lock()
	f.snap = elements
	f.mu.Unlock()
}

// Stop iterates supervisors and stops each, logging but continuing past
// any individual stop failure.
func (f *Fleet) Stop() {
	for _, sv := range f.supervisors {
		if err := sv.Stop(); err != nil {
			f.log.Warn("failed to stop supervisor", "station", sv.Name(), "err", err)
		}
	}
	if f.mqtt.IsConnected() {
		f.log.Info("disconnecting mqtt publisher")
	}
	f.mqtt.Disconnect()
}

// ServeHTTP mounts the stats, metrics, and health endpoints on mux.
func (f *Fleet) ServeHTTP(mux *http.ServeMux) {
	mux.HandleFunc("/", f.handleStats)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", f.handleHealthz)
}

func (f *Fleet) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	f.mu.RLock()
	snap := f.snap
	f.mu.RUnlock()
	if snap == nil {
		snap = []StatElement{}
	}

	_ = json.NewEncoder(w).Encode(snap)
}

func (f *Fleet) handleHealthz(w http.ResponseWriter, r *http.Request) {
	f.mu.RLock()
	started := f.started
	f.mu.RUnlock()

	if !started {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintln(w, "not started")
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}
