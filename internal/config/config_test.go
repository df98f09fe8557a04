package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stagehand.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadEngineConfig(t *testing.T) {
	path := writeConfig(t, `
version: 1
presentation:
  id: demo
  name: Demo Presentation
  playlist: demo/playlist.yaml
network:
  api_port: 9090
  mqtt_host: broker.local
playback:
  tick_millis: 25
  restore: true
`)

	cfg, err := LoadEngineConfig(path)
	if err != nil {
		t.Fatalf("LoadEngineConfig: %v", err)
	}

	if cfg.Presentation.ID != "demo" {
		t.Errorf("presentation id = %q, want demo", cfg.Presentation.ID)
	}
	if cfg.APIPort() != 9090 {
		t.Errorf("api port = %d, want 9090", cfg.APIPort())
	}
	if cfg.MQTTBroker() != "tcp://broker.local:1883" {
		t.Errorf("broker = %q, want tcp://broker.local:1883", cfg.MQTTBroker())
	}
	if cfg.TickInterval() != 25*time.Millisecond {
		t.Errorf("tick = %v, want 25ms", cfg.TickInterval())
	}
	if !cfg.Playback.Restore {
		t.Error("restore should be enabled")
	}
	if cfg.PlaylistPath() != "demo/playlist.yaml" {
		t.Errorf("playlist path = %q", cfg.PlaylistPath())
	}
}

func TestLoadEngineConfigDefaults(t *testing.T) {
	path := writeConfig(t, "version: 1\n")

	cfg, err := LoadEngineConfig(path)
	if err != nil {
		t.Fatalf("LoadEngineConfig: %v", err)
	}

	if cfg.APIPort() != 8080 {
		t.Errorf("default api port = %d, want 8080", cfg.APIPort())
	}
	if cfg.MQTTBroker() != "" {
		t.Errorf("broker = %q, want empty when no host configured", cfg.MQTTBroker())
	}
	if cfg.TickInterval() != 50*time.Millisecond {
		t.Errorf("default tick = %v, want 50ms", cfg.TickInterval())
	}
	if cfg.PreloadTimeout() != 30*time.Second {
		t.Errorf("default preload timeout = %v, want 30s", cfg.PreloadTimeout())
	}
	if cfg.PlaylistPath() != "playlist.yaml" {
		t.Errorf("default playlist path = %q", cfg.PlaylistPath())
	}
}

func TestLoadEngineConfigRejectsUnknownVersion(t *testing.T) {
	path := writeConfig(t, "version: 2\n")

	if _, err := LoadEngineConfig(path); err == nil {
		t.Fatal("expected error for unsupported version")
	}
}

func TestLoadEngineConfigMissingFile(t *testing.T) {
	if _, err := LoadEngineConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
