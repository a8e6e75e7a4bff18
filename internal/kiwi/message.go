// Package kiwi implements the KiwiSDR WebSocket sub-protocol: the
// text/binary framed wire codec (this file), server event decoding
// (events.go), and the session state machine (session.go).
package kiwi

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/marisusis/sdr-scraper/internal/tuning"
)

// ClientMessage is anything that can be serialized onto the WebSocket as a
// single text frame.
type ClientMessage interface {
	Encode() string
}

// Login sends the initial authentication line. An empty password encodes
// as "#", matching the server's convention for "no password".
type Login struct {
	Password string
}

func (m Login) Encode() string {
	p := m.Password
	if p == "" {
		p = "#"
	}
	return fmt.Sprintf("SET auth t=kiwi p=%s", p)
}

// KeepAlive is sent periodically to hold the connection open.
type KeepAlive struct{}

func (KeepAlive) Encode() string { return "SET keepalive" }

// AROk negotiates the audio resampling rates after Ready.
type AROk struct {
	InRate, OutRate int
}

func (m AROk) Encode() string {
	return fmt.Sprintf("SET AR OK in=%d out=%d", m.InRate, m.OutRate)
}

// Squelch disables the squelch (this client always wants continuous audio).
type Squelch struct{}

func (Squelch) Encode() string { return "SET squelch=0 param=0.00" }

// Tune sets modulation, cuts, and frequency from a tuning.Tuning.
type Tune struct {
	Tuning tuning.Tuning
}

func (m Tune) Encode() string {
	low, high := m.Tuning.Cuts()
	freq := strconv.FormatFloat(m.Tuning.FrequencyKHz(), 'f', -1, 64)
	return fmt.Sprintf("SET mod=%s low_cut=%d high_cut=%d freq=%s",
		m.Tuning.Mode, low, high, freq)
}

// SetIdentity announces the client's operator identity.
type SetIdentity struct {
	Identity string
}

func (m SetIdentity) Encode() string {
	return "SET ident_user=" + percentEncode(m.Identity)
}

// SetLocation announces the client's geographic location.
type SetLocation struct {
	Location string
}

func (m SetLocation) Encode() string {
	return "SET geoloc=" + percentEncode(m.Location)
}

// SetAgc configures the receiver's automatic gain control. The double
// space before manGain is preserved byte-exact for server compatibility —
// see the open questions in the design notes.
type SetAgc struct {
	Enabled bool
	Hang    bool
	Thresh  int
	Slope   int
	Decay   int
	Gain    int
}

func (m SetAgc) Encode() string {
	return fmt.Sprintf("SET agc=%s hang=%s thresh=%d slope=%d decay=%d  manGain=%d",
		boolFlag(m.Enabled), boolFlag(m.Hang), m.Thresh, m.Slope, m.Decay, m.Gain)
}

// SetCompression toggles IMA ADPCM audio compression.
type SetCompression struct {
	Enabled bool
}

func (m SetCompression) Encode() string {
	return fmt.Sprintf("SET compression=%s", boolFlag(m.Enabled))
}

// Raw passes a literal line through unmodified — the escape hatch used for
// client-identity banners the server expects verbatim.
type Raw struct {
	Text string
}

func (m Raw) Encode() string { return m.Text }

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// percentEncode escapes every non-alphanumeric byte, matching the wire
// protocol's requirement (url.QueryEscape additionally escapes spaces as
// "+", which this protocol does not expect, so we encode byte-by-byte).
func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAlphaNumeric(c) {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func isAlphaNumeric(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// percentDecode is the inverse of percentEncode, used by wire round-trip
// tests and for parsing server-echoed identity fields.
func percentDecode(s string) (string, error) {
	decoded, err := url.QueryUnescape(strings.ReplaceAll(s, "+", "%2B"))
	if err != nil {
		return "", err
	}
	return decoded, nil
}

// ServerVersion is the parsed body of a GET /VER response.
type ServerVersion struct {
	Maj int32
	Min int32
	TS  *int64
}

// ParseServerVersion parses "maj=N min=N" with an optional "ts=N" token.
func ParseServerVersion(body string) (ServerVersion, error) {
	tokens := tokenize(body)
	var v ServerVersion
	maj, ok := tokens["maj"]
	if !ok {
		return v, fmt.Errorf("kiwi: /VER response missing maj: %q", body)
	}
	min, ok := tokens["min"]
	if !ok {
		return v, fmt.Errorf("kiwi: /VER response missing min: %q", body)
	}
	majVal, err := strconv.ParseInt(maj, 10, 32)
	if err != nil {
		return v, fmt.Errorf("kiwi: invalid maj %q: %w", maj, err)
	}
	minVal, err := strconv.ParseInt(min, 10, 32)
	if err != nil {
		return v, fmt.Errorf("kiwi: invalid min %q: %w", min, err)
	}
	v.Maj = int32(majVal)
	v.Min = int32(minVal)
	if ts, ok := tokens["ts"]; ok {
		tsVal, err := strconv.ParseInt(ts, 10, 64)
		if err == nil {
			v.TS = &tsVal
		}
	}
	return v, nil
}

// tokenize splits a "key=value key2=value2" body into a map, tolerating
// missing values and ignoring tokens without an "=".
func tokenize(body string) map[string]string {
	out := make(map[string]string)
	for _, tok := range strings.Fields(body) {
		if idx := strings.IndexByte(tok, '='); idx >= 0 {
			out[tok[:idx]] = tok[idx+1:]
		}
	}
	return out
}
