package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type EngineConfig struct {
	Version      int `yaml:"version"`
	Presentation struct {
		ID          string `yaml:"id"`
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Playlist    string `yaml:"playlist"`
	} `yaml:"presentation"`
	Network struct {
		APIPort  int    `yaml:"api_port"`
		MQTTHost string `yaml:"mqtt_host"`
		MQTTPort int    `yaml:"mqtt_port"`
	} `yaml:"network"`
	Playback struct {
		// TickMillis is the media player update period.
		TickMillis int `yaml:"tick_millis"`
		// Restore re-opens the last journaled session on startup.
		Restore bool `yaml:"restore"`
		// PreloadTimeoutMillis bounds the startup media preload.
		PreloadTimeoutMillis int `yaml:"preload_timeout_millis"`
	} `yaml:"playback"`
}

// APIPort returns the configured API port, defaulting to 8080 if not set.
func (c *EngineConfig) APIPort() int {
	if c.Network.APIPort == 0 {
		return 8080
	}
	return c.Network.APIPort
}

// MQTTBroker returns the broker URL, or "" when MQTT is not configured.
func (c *EngineConfig) MQTTBroker() string {
	if c.Network.MQTTHost == "" {
		return ""
	}
	port := c.Network.MQTTPort
	if port == 0 {
		port = 1883
	}
	return fmt.Sprintf("tcp://%s:%d", c.Network.MQTTHost, port)
}

// TickInterval returns the media player update period, defaulting to
// 50ms if not set.
func (c *EngineConfig) TickInterval() time.Duration {
	if c.Playback.TickMillis == 0 {
		return 50 * time.Millisecond
	}
	return time.Duration(c.Playback.TickMillis) * time.Millisecond
}

// PreloadTimeout returns the startup preload deadline, defaulting to 30s.
func (c *EngineConfig) PreloadTimeout() time.Duration {
	if c.Playback.PreloadTimeoutMillis == 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Playback.PreloadTimeoutMillis) * time.Millisecond
}

// PlaylistPath returns the playlist document path, defaulting to
// playlist.yaml next to the config.
func (c *EngineConfig) PlaylistPath() string {
	if c.Presentation.Playlist == "" {
		return "playlist.yaml"
	}
	return c.Presentation.Playlist
}

func LoadEngineConfig(path string) (*EngineConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg EngineConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported stagehand.yaml version: %d", cfg.Version)
	}

	return &cfg, nil
}
