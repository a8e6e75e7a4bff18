package kiwi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marisusis/sdr-scraper/internal/tuning"
)

func TestLoginEncodesPasswordOrHash(t *testing.T) {
	assert.Equal(t, "SET auth t=kiwi p=secret", Login{Password: "secret"}.Encode())
	assert.Equal(t, "SET auth t=kiwi p=#", Login{}.Encode())
}

func TestTuneEncodeAM(t *testing.T) {
	tn := tuning.NewAM(5000, 7_850_000)
	assert.Equal(t, "SET mod=am low_cut=-2500 high_cut=2500 freq=7850", Tune{Tuning: tn}.Encode())
}

func TestTuneEncodeUSB(t *testing.T) {
	tn := tuning.NewCut(tuning.USB, 300, 2700, 14_097_000)
	assert.Equal(t, "SET mod=usb low_cut=300 high_cut=2700 freq=14097", Tune{Tuning: tn}.Encode())
}

func TestTuneEncodeFractionalKHzKeepsOnlySignificantDigits(t *testing.T) {
	tn := tuning.NewCut(tuning.USB, 300, 2700, 7_038_600)
	assert.Equal(t, "SET mod=usb low_cut=300 high_cut=2700 freq=7038.6", Tune{Tuning: tn}.Encode())
}

func TestSetAgcPreservesDoubleSpace(t *testing.T) {
	msg := SetAgc{Enabled: true, Decay: 1370, Hang: false, Slope: 6, Thresh: -96, Gain: 70}
	assert.Equal(t, "SET agc=1 hang=0 thresh=-96 slope=6 decay=1370  manGain=70", msg.Encode())
}

func TestSetCompression(t *testing.T) {
	assert.Equal(t, "SET compression=1", SetCompression{Enabled: true}.Encode())
	assert.Equal(t, "SET compression=0", SetCompression{Enabled: false}.Encode())
}

func TestPercentEncodeIdentityAndLocation(t *testing.T) {
	assert.Equal(t, "SET ident_user=W8EDU", SetIdentity{Identity: "W8EDU"}.Encode())
	assert.Equal(t, "SET geoloc=Cleveland%2C%20OH", SetLocation{Location: "Cleveland, OH"}.Encode())
}

func TestPercentEncodeRoundTrip(t *testing.T) {
	input := "Cleveland, OH #1!"
	encoded := percentEncode(input)
	decoded, err := percentDecode(encoded)
	require.NoError(t, err)
	assert.Equal(t, input, decoded)
}

func TestParseServerVersion(t *testing.T) {
	v, err := ParseServerVersion("maj=1 min=550 ts=123456789")
	require.NoError(t, err)
	assert.EqualValues(t, 1, v.Maj)
	assert.EqualValues(t, 550, v.Min)
	require.NotNil(t, v.TS)
	assert.EqualValues(t, 123456789, *v.TS)
}

func TestParseServerVersionMissingTS(t *testing.T) {
	v, err := ParseServerVersion("maj=1 min=400")
	require.NoError(t, err)
	assert.Nil(t, v.TS)
}

func TestReadyRateDefaultsWithoutAudioRateToken(t *testing.T) {
	assert.EqualValues(t, 12000, readyRate("audio_init=1"))
}

func TestReadyRateReadsAudioRateToken(t *testing.T) {
	assert.EqualValues(t, 12000, readyRate("audio_init=1 audio_rate=12000 sample_rate=12000.000"))
}

// badp=/audio_init= interpretation against session state lives solely in
// handleBody (see session_test.go); MSG-binary frames reach it through the
// same path as text frames, exercised below.
func TestParseBinaryMSGFrameSurfacesRawBodyUnclassified(t *testing.T) {
	ev, err := parseBinaryFrame(append([]byte("MSG"), append([]byte{0x00}, []byte("badp=0")...)...))
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, EventMessage, ev.Kind)
	assert.Equal(t, "badp=0", ev.Text)
}

func TestParseSNDFrameRSSI(t *testing.T) {
	// flags=0, seq=0, smeter big-endian 1250 (0x04E2), then one ADPCM byte.
	body := []byte{0x00, 0, 0, 0, 0, 0x04, 0xE2, 0xAB}
	ev, err := parseBinaryFrame(append([]byte("SND"), body...))
	require.NoError(t, err)
	require.Equal(t, EventSoundData, ev.Kind)
	assert.InDelta(t, -2.0, ev.RSSI, 1e-9)
	assert.Equal(t, []byte{0xAB}, ev.SoundPayload)
}

func TestParseSNDFrameTooShortIsMalformed(t *testing.T) {
	_, err := parseBinaryFrame(append([]byte("SND"), 0x00, 0x01))
	require.Error(t, err)
}

func TestParseUnknownTagIsMalformed(t *testing.T) {
	_, err := parseBinaryFrame([]byte("W/Fxxxx"))
	require.Error(t, err)
}
