package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() *Config {
	cfg := defaults()
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got error: %v", err)
	}
}

func TestValidate_BadSignalingPath(t *testing.T) {
	cfg := validConfig()
	cfg.Service.SignalingPath = "api/signaling"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for a signaling path missing a leading slash")
	}
}

func TestValidate_NonPositiveQueueDepth(t *testing.T) {
	cfg := validConfig()
	cfg.Hub.OutboundQueueDepth = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for a non-positive outbound queue depth")
	}
}

func TestLoad_FileAndEnvOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "signalhub.yaml")
	yamlContent := []byte("service:\n  listen: \":9090\"\nhub:\n  max_name_length: 64\n")
	if err := os.WriteFile(path, yamlContent, 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SIGNALHUB_HUB_MAX_FRAME_BYTES", "1024")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Service.Listen != ":9090" {
		t.Errorf("expected listen :9090, got %q", cfg.Service.Listen)
	}
	if cfg.Hub.MaxNameLength != 64 {
		t.Errorf("expected max_name_length 64, got %d", cfg.Hub.MaxNameLength)
	}
	if cfg.Hub.MaxFrameBytes != 1024 {
		t.Errorf("expected env override max_frame_bytes 1024, got %d", cfg.Hub.MaxFrameBytes)
	}
	// Untouched defaults survive the overlay.
	if cfg.Service.SignalingPath != "/api/signaling" {
		t.Errorf("expected default signaling_path, got %q", cfg.Service.SignalingPath)
	}
}
