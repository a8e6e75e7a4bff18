package kiwi

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/marisusis/sdr-scraper/internal/tuning"
)

// ConnectTimeout bounds how long Connect waits for the WebSocket handshake.
const ConnectTimeout = 2 * time.Second

// eventChannelCapacity and commandChannelCapacity bound backpressure: a
// stalled consumer on either side stops the corresponding loop from making
// further progress, which for the event channel means the read loop stops
// draining the socket — the desired flow-control behavior.
const (
	eventChannelCapacity   = 100
	commandChannelCapacity = 100
)

// state is the session's internal read-loop state machine, distinct from
// the externally observable status reported by a Supervisor.
type state int

const (
	stateAuthenticating state = iota
	stateAwaitingAudioInit
	stateStreaming
)

// ErrConnectTimeout is returned by Connect when the handshake does not
// complete within ConnectTimeout.
var ErrConnectTimeout = fmt.Errorf("kiwi: connect timed out after %s", ConnectTimeout)

// Session owns one WebSocket connection to a KiwiSDR receiver: a read task
// draining frames into an event channel, a write task draining a command
// channel onto the socket, and the cancellation token that bounds both.
type Session struct {
	endpoint *url.URL
	log      *charmlog.Logger

	conn   *websocket.Conn
	cancel context.CancelFunc

	events   chan Event
	commands chan ClientMessage

	version *ServerVersion
}

// New constructs a Session without connecting.
func New(endpointWSURL string, logger *charmlog.Logger) (*Session, error) {
	u, err := url.Parse(endpointWSURL)
	if err != nil {
		return nil, fmt.Errorf("kiwi: invalid endpoint %q: %w", endpointWSURL, err)
	}
	if logger == nil {
		logger = charmlog.Default()
	}
	return &Session{endpoint: u, log: logger}, nil
}

// Connect performs the full handshake: GET /VER, dial the WebSocket with a
// 2-second timeout, send the login line, and spawn the read/write tasks.
func (s *Session) Connect(ctx context.Context, password string) error {
	version, err := s.fetchVersion(ctx)
	if err != nil {
		s.log.Warn("could not fetch /VER, proceeding without it", "err", err)
	}
	s.version = version

	sessionID := randomSessionID()
	if version != nil && version.TS != nil {
		sessionID = *version.TS
	}

	dialURL := fmt.Sprintf("%s/kiwi/%d/SND", s.endpoint.String(), sessionID)

	connectCtx, cancelDial := context.WithTimeout(ctx, ConnectTimeout)
	defer cancelDial()

	conn, _, err := websocket.DefaultDialer.DialContext(connectCtx, dialURL, nil)
	if err != nil {
		if connectCtx.Err() != nil {
			return ErrConnectTimeout
		}
		return fmt.Errorf("kiwi: dial %s: %w", dialURL, err)
	}

	s.conn = conn

	if err := conn.WriteMessage(websocket.TextMessage, []byte(Login{Password: password}.Encode())); err != nil {
		conn.Close()
		return fmt.Errorf("kiwi: send login: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.events = make(chan Event, eventChannelCapacity)
	s.commands = make(chan ClientMessage, commandChannelCapacity)

	go s.readLoop(runCtx, conn)
	go s.writeLoop(runCtx, conn)

	return nil
}

// fetchVersion derives an HTTP URL from the session's WebSocket endpoint
// and issues GET /VER, used both to seed the session id and to surface
// advisory server-version warnings (see internal/kiwiver).
func (s *Session) fetchVersion(ctx context.Context) (*ServerVersion, error) {
	httpURL := *s.endpoint
	switch httpURL.Scheme {
	case "ws":
		httpURL.Scheme = "http"
	case "wss":
		httpURL.Scheme = "https"
	}
	httpURL.Path = "/VER"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, httpURL.String(), nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: ConnectTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	version, err := ParseServerVersion(string(body))
	if err != nil {
		return nil, err
	}
	return &version, nil
}

// Version returns the server version observed during Connect, or nil if
// the /VER request failed.
func (s *Session) Version() *ServerVersion {
	return s.version
}

func randomSessionID() int64 {
	return rand.Int63n(1000)
}

// readLoop translates incoming WebSocket frames into Events, tracking the
// Authenticating -> AwaitingAudioInit -> Streaming progression described in
// the session state table. A panic here (e.g. from an unrecoverable
// decode path) propagates cancellation so the supervisor observes closure.
func (s *Session) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer s.cancel()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("read loop panicked, closing session", "panic", r)
			s.emit(ctx, Event{Kind: EventClose, CloseReason: ServerClosed})
		}
	}()

	st := stateAuthenticating

	conn.SetPingHandler(func(appData string) error {
		select {
		case s.events <- Event{Kind: EventPing}:
		default:
		}
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		messageType, data, err := conn.ReadMessage()
		if err != nil {
			s.emit(ctx, Event{Kind: EventClose, CloseReason: ServerClosed})
			return
		}

		switch messageType {
		case websocket.TextMessage:
			if ev := s.handleTextFrame(&st, string(data)); ev != nil {
				if !s.emit(ctx, *ev) {
					return
				}
				if ev.Kind == EventClose {
					return
				}
			}
		case websocket.BinaryMessage:
			if ev := s.handleBinaryFrame(&st, data); ev != nil {
				if !s.emit(ctx, *ev) {
					return
				}
				if ev.Kind == EventClose {
					return
				}
			}
		case websocket.CloseMessage:
			s.emit(ctx, Event{Kind: EventClose, CloseReason: ServerClosed})
			return
		}
	}
}

func (s *Session) handleTextFrame(st *state, text string) *Event {
	body := text
	if strings.HasPrefix(text, "MSG ") {
		body = text[4:]
	}
	return s.handleBody(st, body)
}

func (s *Session) handleBinaryFrame(st *state, data []byte) *Event {
	ev, err := parseBinaryFrame(data)
	if err != nil {
		s.log.Debug("dropping malformed frame", "err", err)
		return nil
	}
	if ev == nil {
		return nil
	}
	if ev.Kind == EventMessage {
		return s.handleBody(st, ev.Text)
	}
	if ev.Kind == EventSoundData && *st != stateStreaming {
		// SND arriving before Ready is unexpected but not fatal; surface it
		// anyway so a permissive server doesn't get silently starved.
		return ev
	}
	return ev
}

// handleBody applies the session state table to one already-unwrapped
// key=value body, whether it arrived as a text frame or an MSG binary frame.
func (s *Session) handleBody(st *state, body string) *Event {
	switch *st {
	case stateAuthenticating:
		if strings.Contains(body, "badp=1") {
			return &Event{Kind: EventClose, CloseReason: AuthenticationFailed}
		}
		if strings.Contains(body, "badp=0") {
			*st = stateAwaitingAudioInit
			return nil
		}
		return &Event{Kind: EventMessage, Text: body}
	case stateAwaitingAudioInit:
		if strings.Contains(body, "audio_init") {
			*st = stateStreaming
			return &Event{Kind: EventReady, SampleRateHz: readyRate(body)}
		}
		return &Event{Kind: EventMessage, Text: body}
	default: // stateStreaming
		return &Event{Kind: EventMessage, Text: body}
	}
}

// emit delivers an event to the channel or stops if the context was
// cancelled while waiting, returning false in that case.
func (s *Session) emit(ctx context.Context, ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// writeLoop owns the socket's write side exclusively; every other task
// reaches it only through SendMessage and the command channel.
func (s *Session) writeLoop(ctx context.Context, conn *websocket.Conn) {
	defer s.cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-s.commands:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Encode())); err != nil {
				s.log.Debug("write failed, closing session", "err", err)
				return
			}
		}
	}
}

// ReadEvent waits up to timeout for the next event, returning (Event, true)
// on success or (Event{}, false) on timeout or channel closure.
func (s *Session) ReadEvent(timeout time.Duration) (Event, bool) {
	if s.events == nil {
		return Event{}, false
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case ev, ok := <-s.events:
		if !ok {
			return Event{}, false
		}
		return ev, true
	case <-timer.C:
		return Event{}, false
	}
}

// SendMessage enqueues a command for the write loop. It never blocks
// indefinitely on a healthy session, since the command channel is bounded
// and the write loop drains it continuously.
func (s *Session) SendMessage(msg ClientMessage) error {
	if s.commands == nil {
		return fmt.Errorf("kiwi: session not connected")
	}
	s.commands <- msg
	return nil
}

// Shutdown cancels the session's tasks and releases the socket. Safe to
// call multiple times.
func (s *Session) Shutdown() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.conn != nil {
		s.conn.Close()
	}
}

// TuneMessage is a convenience constructor so callers don't need to import
// both kiwi and tuning just to build a Tune command.
func TuneMessage(t tuning.Tuning) ClientMessage {
	return Tune{Tuning: t}
}
