package kiwi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsInvalidEndpoint(t *testing.T) {
	_, err := New("://bad", nil)
	assert.Error(t, err)
}

func TestNewDefaultsLogger(t *testing.T) {
	s, err := New("ws://kiwi.example.com:8073", nil)
	require.NoError(t, err)
	assert.NotNil(t, s.log)
}

func TestRandomSessionIDInRange(t *testing.T) {
	for i := 0; i < 100; i++ {
		id := randomSessionID()
		assert.GreaterOrEqual(t, id, int64(0))
		assert.Less(t, id, int64(1000))
	}
}

func TestHandleBodyAuthenticationSuccess(t *testing.T) {
	s := &Session{}
	st := stateAuthenticating
	ev := s.handleBody(&st, "badp=0")
	assert.Nil(t, ev)
	assert.Equal(t, stateAwaitingAudioInit, st)
}

func TestHandleBodyAuthenticationFailure(t *testing.T) {
	s := &Session{}
	st := stateAuthenticating
	ev := s.handleBody(&st, "badp=1")
	require.NotNil(t, ev)
	assert.Equal(t, EventClose, ev.Kind)
	assert.Equal(t, AuthenticationFailed, ev.CloseReason)
	assert.Equal(t, stateAuthenticating, st) // caller tears down, state is moot
}

func TestHandleBodyAudioInitTransitionsToStreaming(t *testing.T) {
	s := &Session{}
	st := stateAwaitingAudioInit
	ev := s.handleBody(&st, "audio_init=1 audio_rate=12000")
	require.NotNil(t, ev)
	assert.Equal(t, EventReady, ev.Kind)
	assert.EqualValues(t, 12000, ev.SampleRateHz)
	assert.Equal(t, stateStreaming, st)
}

func TestHandleBodyStreamingSurfacesMessages(t *testing.T) {
	s := &Session{}
	st := stateStreaming
	ev := s.handleBody(&st, "some diagnostic line")
	require.NotNil(t, ev)
	assert.Equal(t, EventMessage, ev.Kind)
	assert.Equal(t, "some diagnostic line", ev.Text)
}

func TestHandleTextFrameStripsMSGPrefix(t *testing.T) {
	s := &Session{}
	st := stateStreaming
	ev := s.handleTextFrame(&st, "MSG some diagnostic line")
	require.NotNil(t, ev)
	assert.Equal(t, "some diagnostic line", ev.Text)
}

func TestReadEventTimesOutWithoutConnection(t *testing.T) {
	s := &Session{}
	_, ok := s.ReadEvent(1)
	assert.False(t, ok)
}

func TestSendMessageFailsWithoutConnection(t *testing.T) {
	s := &Session{}
	err := s.SendMessage(KeepAlive{})
	assert.Error(t, err)
}

func TestShutdownIsSafeWithoutConnect(t *testing.T) {
	s := &Session{}
	assert.NotPanics(t, func() { s.Shutdown() })
}
