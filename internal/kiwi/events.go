package kiwi

import (
	"encoding/binary"
	"fmt"
)

// CloseReason distinguishes why a session ended.
type CloseReason int

const (
	ServerClosed CloseReason = iota
	AuthenticationFailed
)

func (r CloseReason) String() string {
	switch r {
	case ServerClosed:
		return "server closed connection"
	case AuthenticationFailed:
		return "authentication failed"
	default:
		return "unknown close reason"
	}
}

// EventKind discriminates the Event union below.
type EventKind int

const (
	EventReady EventKind = iota
	EventSoundData
	EventMessage
	EventPing
	EventClose
)

// Event is emitted by the session's read loop. Only the fields relevant to
// Kind are populated.
type Event struct {
	Kind EventKind

	SampleRateHz uint32 // EventReady

	SoundPayload []byte  // EventSoundData: packed ADPCM nibbles
	RSSI         float64 // EventSoundData

	Text string // EventMessage

	CloseReason CloseReason // EventClose
}

// readyRate extracts audio_rate from a message already known to contain
// "audio_init". The older shape carries only an "audio_init=" flag with no
// rate; absent a rate, the protocol-mandated default of 12000 Hz applies.
func readyRate(body string) uint32 {
	tokens := tokenize(body)
	if raw, ok := tokens["audio_rate"]; ok {
		var rate uint32
		if _, err := fmt.Sscanf(raw, "%d", &rate); err == nil {
			return rate
		}
	}
	return 12000
}

// SNDFrame is the decoded layout of a binary "SND" frame's body (after the
// three-byte tag has been stripped).
type SNDFrame struct {
	Flags    byte
	Seq      uint32
	RSSI     float64
	Payload  []byte
}

// ErrMalformedFrame indicates a frame too short to contain its declared
// header, or a binary frame with an unrecognized tag; callers log and drop
// it rather than treating it as fatal.
type ErrMalformedFrame struct {
	Tag string
	Len int
}

func (e *ErrMalformedFrame) Error() string {
	return fmt.Sprintf("kiwi: malformed %s frame (len=%d)", e.Tag, e.Len)
}

// parseSND decodes the flags/seq/smeter header and returns the remaining
// ADPCM payload plus the derived RSSI in dBm.
func parseSND(body []byte) (SNDFrame, error) {
	const headerLen = 7
	if len(body) < headerLen {
		return SNDFrame{}, &ErrMalformedFrame{Tag: "SND", Len: len(body)}
	}
	flags := body[0]
	seq := binary.LittleEndian.Uint32(body[1:5])
	smeter := binary.BigEndian.Uint16(body[5:7])
	rssi := 0.1*float64(smeter) - 127.0
	payload := body[headerLen:]
	return SNDFrame{Flags: flags, Seq: seq, RSSI: rssi, Payload: payload}, nil
}

// parseBinaryFrame dispatches on the three-byte ASCII tag that prefixes
// every binary frame. Unknown tags are reported so the caller can log and
// discard them. MSG frames carry the same key=value body as a text frame
// (skipping their extra leading byte) and are handed back unclassified, as
// EventMessage — handleBody is the single place that interprets badp=/
// audio_init= against session state, whether the body arrived as a text
// frame or an MSG-tagged binary frame.
func parseBinaryFrame(data []byte) (*Event, error) {
	if len(data) < 3 {
		return nil, &ErrMalformedFrame{Tag: "?", Len: len(data)}
	}
	tag := string(data[0:3])
	body := data[3:]

	switch tag {
	case "SND":
		snd, err := parseSND(body)
		if err != nil {
			return nil, err
		}
		return &Event{Kind: EventSoundData, SoundPayload: snd.Payload, RSSI: snd.RSSI}, nil
	case "MSG":
		if len(body) < 1 {
			return nil, &ErrMalformedFrame{Tag: "MSG", Len: len(body)}
		}
		return &Event{Kind: EventMessage, Text: string(body[1:])}, nil
	default:
		return nil, &ErrMalformedFrame{Tag: tag, Len: len(data)}
	}
}
