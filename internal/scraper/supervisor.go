// Package scraper drives per-station KiwiSDR sessions and the fleet that
// owns them.
package scraper

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	charmlog "github.com/charmbracelet/log"

	"github.com/marisusis/sdr-scraper/internal/bandplan"
	"github.com/marisusis/sdr-scraper/internal/kiwi"
	"github.com/marisusis/sdr-scraper/internal/kiwiver"
	"github.com/marisusis/sdr-scraper/internal/metrics"
	"github.com/marisusis/sdr-scraper/internal/quality"
	"github.com/marisusis/sdr-scraper/internal/tuning"
	"github.com/marisusis/sdr-scraper/internal/wav"
)

// ReconnectBackoff is the fixed delay between a Close event and the next
// connection attempt.
const ReconnectBackoff = 4 * time.Second

// KeepaliveInterval is how often a KeepAlive is sent once streaming.
const KeepaliveInterval = 5 * time.Second

// EventPollTimeout bounds each ReadEvent call in the event loop.
const EventPollTimeout = 1 * time.Second

// Status is the Supervisor's externally observable run state.
type Status int

const (
	Stopped Status = iota
	Running
)

func (s Status) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// Stats is a point-in-time snapshot of one supervisor's state, extended
// beyond the wire-compatible {name, rssi} pair with the quality tracker and
// connection bookkeeping.
type Stats struct {
	Name          string
	Band          string
	RSSI          float64
	RSSIMeanDbm   float64
	RSSIStddevDbm float64
	Connected     bool
	Reconnects    uint64
}

// Identity carries the operator identity/location announced to the server
// on Ready; these come from the top-level config, not per-station.
type Identity struct {
	Operator string
	Location string
}

// Supervisor drives one KiwiSDR session for a single (station, frequency)
// pair: connect, run the setup script on Ready, route sound data to a WAV
// sink, and reconnect unconditionally on Close.
type Supervisor struct {
	name      string
	band      string
	endpoint  string
	password  string
	tuning    tuning.Tuning
	identity  Identity
	recordDir string

	log *charmlog.Logger

	sessionMu sync.Mutex
	session   *kiwi.Session

	sink          *wav.Sink
	quality       *quality.Tracker
	lastRotations uint64

	rssiBits   atomic.Uint64
	connected  atomic.Bool
	reconnects atomic.Uint64

	mu     sync.Mutex
	status Status
	cancel context.CancelFunc
}

// New constructs a Supervisor for one (station, frequency) pair. name
// should already be formatted as "{station}_{frequency_khz:.0}".
func New(name, endpoint, password string, t tuning.Tuning, identity Identity, recordDir string, logger *charmlog.Logger) *Supervisor {
	if logger == nil {
		logger = charmlog.Default()
	}
	return &Supervisor{
		name:      name,
		band:      bandplan.NameForFrequency(t.FrequencyHz),
		endpoint:  endpoint,
		password:  password,
		tuning:    t,
		identity:  identity,
		recordDir: recordDir,
		log:       logger.With("station", name),
		sink:      wav.New(name, recordDir),
		quality:   quality.New(),
	}
}

// Name returns the supervisor's display name.
func (sv *Supervisor) Name() string { return sv.name }

// Status returns the supervisor's current run state.
func (sv *Supervisor) Status() Status {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	return sv.status
}

// Start transitions Stopped -> Running and spawns the connect and event
// loop tasks. Calling Start on an already-Running supervisor is a no-op.
func (sv *Supervisor) Start() {
	sv.mu.Lock()
	if sv.status == Running {
		sv.mu.Unlock()
		return
	}
	sv.status = Running
	ctx, cancel := context.WithCancel(context.Background())
	sv.cancel = cancel
	sv.mu.Unlock()

	go sv.connectLoop(ctx)
}

// connectLoop owns the single long-lived connect+event-loop task per
// supervisor: it (re)connects, runs the event loop until Close or
// cancellation, and on an ordinary Close retries after ReconnectBackoff.
func (sv *Supervisor) connectLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		session, err := kiwi.New(sv.endpoint, sv.log)
		if err != nil {
			sv.log.Error("invalid endpoint, supervisor cannot start", "err", err)
			return
		}

		if err := session.Connect(ctx, sv.password); err != nil {
			sv.log.Warn("connect failed", "err", err)
			sv.reconnects.Add(1)
			metrics.Reconnects.WithLabelValues(sv.name).Inc()
			if !sv.sleepOrDone(ctx, ReconnectBackoff) {
				return
			}
			continue
		}

		if v := session.Version(); v != nil {
			for _, warning := range kiwiver.Check(*v) {
				sv.log.Warn(warning)
			}
		}

		sv.sessionMu.Lock()
		sv.session = session
		sv.sessionMu.Unlock()

		closed := sv.runEventLoop(ctx, session)
		session.Shutdown()

		sv.sessionMu.Lock()
		sv.session = nil
		sv.sessionMu.Unlock()

		sv.connected.Store(false)
		metrics.Connected.WithLabelValues(sv.name).Set(0)

		if !closed {
			return // cancelled
		}

		sv.reconnects.Add(1)
		metrics.Reconnects.WithLabelValues(sv.name).Inc()
		if !sv.sleepOrDone(ctx, ReconnectBackoff) {
			return
		}
	}
}

// runEventLoop reads events until the session closes or the supervisor is
// cancelled. It returns true if the loop ended because of a Close event
// (the caller should reconnect), false if it ended because ctx was done.
func (sv *Supervisor) runEventLoop(ctx context.Context, session *kiwi.Session) bool {
	var keepaliveCancel context.CancelFunc

	defer func() {
		if keepaliveCancel != nil {
			keepaliveCancel()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return false
		default:
		}

		ev, ok := session.ReadEvent(EventPollTimeout)
		if !ok {
			continue
		}

		switch ev.Kind {
		case kiwi.EventReady:
			sv.sink.SetSampleRate(ev.SampleRateHz)
			sv.runSetupScript(session)
			sv.connected.Store(true)
			metrics.Connected.WithLabelValues(sv.name).Set(1)

			var keepaliveCtx context.Context
			keepaliveCtx, keepaliveCancel = context.WithCancel(ctx)
			go sv.keepaliveLoop(keepaliveCtx, session)

		case kiwi.EventSoundData:
			sv.handleSoundData(ev)

		case kiwi.EventMessage:
			sv.handleMessage(ev.Text)

		case kiwi.EventPing:
			// no action required; gorilla/websocket already answered the pong

		case kiwi.EventClose:
			sv.log.Info("session closed", "reason", ev.CloseReason)
			sv.finalizeSink()
			return true
		}
	}
}

// runSetupScript sends the fixed post-Ready configuration sequence.
func (sv *Supervisor) runSetupScript(session *kiwi.Session) {
	messages := []kiwi.ClientMessage{
		kiwi.AROk{InRate: 12000, OutRate: 48000},
		kiwi.Raw{Text: "SERVER DE CLIENT openwebrx.js SND"},
		kiwi.Raw{Text: "SET browser=Mozilla/5.0 (compatible; kiwiscrape)"},
		kiwi.Squelch{},
		kiwi.TuneMessage(sv.tuning),
		kiwi.SetIdentity{Identity: sv.identity.Operator},
		kiwi.SetLocation{Location: sv.identity.Location},
		kiwi.SetAgc{Enabled: true, Decay: 1370, Hang: false, Slope: 6, Thresh: -96, Gain: 70},
		kiwi.SetCompression{Enabled: true},
	}
	for _, msg := range messages {
		if err := session.SendMessage(msg); err != nil {
			sv.log.Warn("setup message failed", "err", err)
			return
		}
	}
}

// keepaliveLoop sends KeepAlive every KeepaliveInterval until cancelled.
func (sv *Supervisor) keepaliveLoop(ctx context.Context, session *kiwi.Session) {
	ticker := time.NewTicker(KeepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := session.SendMessage(kiwi.KeepAlive{}); err != nil {
				return
			}
		}
	}
}

func (sv *Supervisor) handleSoundData(ev kiwi.Event) {
	sv.rssiBits.Store(math.Float64bits(ev.RSSI))
	sv.quality.Add(ev.RSSI)
	metrics.RSSI.WithLabelValues(sv.name).Set(ev.RSSI)
	metrics.FramesDecoded.WithLabelValues(sv.name).Inc()

	if err := sv.sink.WriteSamples(ev.SoundPayload); err != nil {
		sv.log.Warn("WAV write failed", "err", err)
	}

	if rotations := sv.sink.Rotations(); rotations != sv.lastRotations {
		metrics.WAVRotations.WithLabelValues(sv.name).Add(float64(rotations - sv.lastRotations))
		sv.lastRotations = rotations
	}
}

func (sv *Supervisor) handleMessage(text string) {
	truncated := text
	if len(truncated) > 100 {
		truncated = truncated[:100]
	}
	sv.log.Debug("server message", "text", truncated)
}

func (sv *Supervisor) finalizeSink() {
	if err := sv.sink.Close(); err != nil {
		sv.log.Warn("WAV close failed", "err", err)
	}
}

// sleepOrDone waits for d or ctx cancellation, whichever comes first,
// returning false if the context won the race.
func (sv *Supervisor) sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Stop cancels the supervisor's tasks, shuts down its session, finalizes
// its WAV sink, and marks it Stopped. Idempotent.
func (sv *Supervisor) Stop() error {
	sv.mu.Lock()
	if sv.status == Stopped {
		sv.mu.Unlock()
		return nil
	}
	sv.status = Stopped
	cancel := sv.cancel
	sv.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	sv.sessionMu.Lock()
	session := sv.session
	sv.sessionMu.Unlock()
	if session != nil {
		session.Shutdown()
	}

	if err := sv.sink.Close(); err != nil {
		return fmt.Errorf("scraper: closing WAV sink for %s: %w", sv.name, err)
	}
	return nil
}

// GetStats returns a point-in-time snapshot of this supervisor's state.
func (sv *Supervisor) GetStats() Stats {
	snap := sv.quality.Snapshot()
	return Stats{
		Name:          sv.name,
		Band:          sv.band,
		RSSI:          math.Float64frombits(sv.rssiBits.Load()),
		RSSIMeanDbm:   snap.Mean,
		RSSIStddevDbm: snap.Stddev,
		Connected:     sv.connected.Load(),
		Reconnects:    sv.reconnects.Load(),
	}
}
