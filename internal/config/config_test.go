package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPPort != 8080 || cfg.WSPort != 8081 {
		t.Errorf("expected default ports, got %d/%d", cfg.HTTPPort, cfg.WSPort)
	}
	if cfg.WaitInterval != 200*time.Millisecond {
		t.Errorf("expected default wait interval, got %v", cfg.WaitInterval)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.yaml")
	data := "http_port: 9090\nauth_enabled: true\nauth_token: secret\nreverse_url: ws://host/ws\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPPort != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.HTTPPort)
	}
	if !cfg.AuthNeeded || cfg.AuthToken != "secret" {
		t.Errorf("auth config not loaded: %+v", cfg)
	}
	if cfg.WSPort != 8081 {
		t.Errorf("expected unset field to keep default, got %d", cfg.WSPort)
	}
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.yaml")
	if err := os.WriteFile(path, []byte("{not yaml"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed config")
	}
}

func TestStore_UpdateNotifiesSubscribers(t *testing.T) {
	store := NewStore(Defaults())
	var got []int
	store.Subscribe(func(cfg File) { got = append(got, cfg.HTTPPort) })

	store.Update(func(cfg *File) { cfg.HTTPPort = 9999 })

	if store.Get().HTTPPort != 9999 {
		t.Errorf("expected updated port, got %d", store.Get().HTTPPort)
	}
	if len(got) != 1 || got[0] != 9999 {
		t.Errorf("expected one notification with 9999, got %v", got)
	}
}

func TestStore_ToolEnabled(t *testing.T) {
	store := NewStore(Defaults())
	if !store.ToolEnabled("tap") {
		t.Error("empty enabled set should allow everything")
	}
	store.Update(func(cfg *File) { cfg.EnabledTools = []string{"tap", "swipe"} })
	if !store.ToolEnabled("swipe") {
		t.Error("expected swipe to be enabled")
	}
	if store.ToolEnabled("screenshot") {
		t.Error("expected screenshot to be disabled")
	}
}
