// Package hostsample periodically samples host CPU utilization for the
// fleet's host CPU Prometheus gauge.
package hostsample

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
)

// Interval between CPU samples.
const Interval = 10 * time.Second

// Sampler holds the most recent host CPU percentage behind a lock-free
// atomic cell, the same pattern used for per-station RSSI.
type Sampler struct {
	bits atomic.Uint64
}

// New constructs a Sampler with no sample taken yet (CPUPercent returns 0
// until the first tick completes).
func New() *Sampler {
	return &Sampler{}
}

// Run samples CPU utilization every Interval until ctx is cancelled. It is
// meant to be launched in its own goroutine by the fleet.
func (s *Sampler) Run(ctx context.Context) {
	s.sampleOnce()

	ticker := time.NewTicker(Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sampleOnce()
		}
	}
}

func (s *Sampler) sampleOnce() {
	percents, err := cpu.Percent(0, false)
	if err != nil || len(percents) == 0 {
		return
	}
	s.bits.Store(math.Float64bits(percents[0]))
}

// CPUPercent returns the most recently sampled host CPU utilization.
func (s *Sampler) CPUPercent() float64 {
	return math.Float64frombits(s.bits.Load())
}
