package config

import (
	"testing"
	"time"
)

func TestConfig_Defaults(t *testing.T) {
	var cfg Config

	if cfg.Backend() != DefaultBackendURL {
		t.Errorf("unexpected default backend: %s", cfg.Backend())
	}
	if !cfg.ContextDefault() {
		t.Error("expected context enabled by default")
	}

	timeout, err := cfg.Timeout()
	if err != nil || timeout != 0 {
		t.Errorf("expected no default timeout, got %v (%v)", timeout, err)
	}
	poll, err := cfg.Poll()
	if err != nil || poll != DefaultPollInterval {
		t.Errorf("expected default poll interval, got %v (%v)", poll, err)
	}
	window, err := cfg.Window()
	if err != nil || window != DefaultStatusWindow {
		t.Errorf("expected default status window, got %v (%v)", window, err)
	}

	maxBytes, err := cfg.MaxIngestBytes()
	if err != nil {
		t.Fatalf("max ingest size failed: %v", err)
	}
	if maxBytes != 512*1024 {
		t.Errorf("expected 512KiB default cap, got %d", maxBytes)
	}
}

func TestConfig_ParseErrors(t *testing.T) {
	cfg := Config{PollInterval: "often", MaxIngestSize: "huge"}

	if _, err := cfg.Poll(); err == nil {
		t.Error("expected an error for a bad poll interval")
	}
	if _, err := cfg.MaxIngestBytes(); err == nil {
		t.Error("expected an error for a bad ingest size")
	}
}

func TestManager_SaveLoadRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	mgr, err := NewManager()
	if err != nil {
		t.Fatalf("manager init failed: %v", err)
	}
	if mgr.Exists() {
		t.Error("config should not exist yet")
	}

	useContext := false
	saved := &Config{
		BackendURL:   "http://backend:9000",
		PollInterval: "10s",
		UseContext:   &useContext,
	}
	if err := mgr.Save(saved); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !mgr.Exists() {
		t.Error("config should exist after save")
	}

	loaded, err := mgr.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Backend() != "http://backend:9000" {
		t.Errorf("unexpected backend: %s", loaded.Backend())
	}
	if poll, _ := loaded.Poll(); poll != 10*time.Second {
		t.Errorf("unexpected poll interval: %v", poll)
	}
	if loaded.ContextDefault() {
		t.Error("expected context disabled from saved config")
	}
}

func TestManager_EnvOverridesFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	mgr, err := NewManager()
	if err != nil {
		t.Fatalf("manager init failed: %v", err)
	}
	if err := mgr.Save(&Config{BackendURL: "http://from-file:5000"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	t.Setenv("JARVIS_BACKEND_URL", "http://from-env:5000")
	t.Setenv("JARVIS_USE_CONTEXT", "false")

	cfg, err := mgr.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Backend() != "http://from-env:5000" {
		t.Errorf("expected env to win, got %s", cfg.Backend())
	}
	if cfg.ContextDefault() {
		t.Error("expected env to disable context")
	}
}

func TestManager_MissingFileYieldsDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	mgr, err := NewManager()
	if err != nil {
		t.Fatalf("manager init failed: %v", err)
	}

	cfg, err := mgr.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Backend() != DefaultBackendURL {
		t.Errorf("unexpected backend: %s", cfg.Backend())
	}
}
