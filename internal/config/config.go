// Package config loads and validates the fleet's JSON configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config is the top-level configuration document.
type Config struct {
	Location string          `json:"location"`
	Identity string          `json:"identity"`
	Stations []StationConfig `json:"stations"`
	MQTT     *MQTTConfig     `json:"mqtt,omitempty"`
}

// StationConfig describes one KiwiSDR receiver and the frequencies to
// scrape from it. One Supervisor is created per (station, frequency) pair.
type StationConfig struct {
	Name      string    `json:"name"`
	Endpoint  string    `json:"endpoint"` // host:port, no scheme
	Password  string    `json:"password,omitempty"`
	AGC       bool      `json:"agc"`
	Gain      *int      `json:"gain,omitempty"`
	Frequency []float64 `json:"frequency"` // Hz
}

// MQTTConfig enables optional stats publication over MQTT.
type MQTTConfig struct {
	Enabled     bool   `json:"enabled"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
	UseTLS      bool   `json:"use_tls"`
	Username    string `json:"username,omitempty"`
	Password    string `json:"password,omitempty"`
	TopicPrefix string `json:"topic_prefix"`
	QoS         byte   `json:"qos"`
	Retain      bool   `json:"retain"`
}

// LoadConfig reads and parses the configuration file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the structural requirements the fleet depends on before
// spawning any supervisor.
func (c *Config) Validate() error {
	if len(c.Stations) == 0 {
		return fmt.Errorf("at least one station is required")
	}

	for i, st := range c.Stations {
		if st.Name == "" {
			return fmt.Errorf("station %d: name is required", i)
		}
		if st.Endpoint == "" {
			return fmt.Errorf("station %d (%s): endpoint is required", i, st.Name)
		}
		if len(st.Frequency) == 0 {
			return fmt.Errorf("station %d (%s): at least one frequency is required", i, st.Name)
		}
		for _, f := range st.Frequency {
			if f <= 0 {
				return fmt.Errorf("station %d (%s): frequency must be > 0, got %g", i, st.Name, f)
			}
		}
	}

	if c.MQTT != nil && c.MQTT.Enabled {
		if c.MQTT.Host == "" {
			return fmt.Errorf("mqtt: host is required when enabled")
		}
		if c.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt: qos must be 0, 1, or 2")
		}
	}

	return nil
}
