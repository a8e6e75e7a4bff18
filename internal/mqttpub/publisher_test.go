package mqttpub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marisusis/sdr-scraper/internal/config"
)

func TestNewReturnsNilWhenDisabled(t *testing.T) {
	p, err := New(nil, nil)
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = New(&config.MQTTConfig{Enabled: false}, nil)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestGenerateClientIDIsUnique(t *testing.T) {
	a := generateClientID()
	b := generateClientID()
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "kiwiscrape_")
}

func TestNilPublisherMethodsAreSafe(t *testing.T) {
	var p *Publisher
	assert.False(t, p.IsConnected())
	assert.NotPanics(t, func() { p.Disconnect() })
	assert.NotPanics(t, func() { p.Publish("kiwi1_14097", StatsMessage{}) })
}
