package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"voxkey/internal/config"
	"voxkey/internal/domain"
)

func TestDescribeConfigHidesAPIKey(t *testing.T) {
	t.Parallel()

	cfg := config.Config{}
	cfg.Deepgram.APIKey = "secret-key"
	cfg.Deepgram.Model = "nova-2"
	cfg.Hotkeys.STT = domain.DefaultSTTHotkey()
	cfg.Hotkeys.TTS = domain.DefaultTTSHotkey()
	cfg.Session.Provider = domain.ProviderHybrid
	cfg.Session.RecordingCeiling = 2 * time.Minute

	var out bytes.Buffer
	describeConfig(&out, cfg)
	text := out.String()

	if strings.Contains(text, "secret-key") {
		t.Fatalf("api key leaked into output:\n%s", text)
	}
	if !strings.Contains(text, "api key set") {
		t.Fatalf("expected api key presence, got:\n%s", text)
	}
	if !strings.Contains(text, "2m0s") || !strings.Contains(text, "(none, defaults and environment only)") {
		t.Fatalf("unexpected output:\n%s", text)
	}
	if strings.Contains(text, "Warnings:") {
		t.Fatalf("did not expect a warnings section:\n%s", text)
	}
}

func TestDescribeConfigListsWarnings(t *testing.T) {
	t.Parallel()

	cfg := config.Config{Path: "/tmp/voxkey.toml"}
	cfg.Warnings = []*domain.ConfigurationError{{Field: "session.recording_ceiling", Message: "too short"}}

	var out bytes.Buffer
	describeConfig(&out, cfg)
	text := out.String()

	if !strings.Contains(text, "/tmp/voxkey.toml") {
		t.Fatalf("expected config path, got:\n%s", text)
	}
	if !strings.Contains(text, "Warnings:") || !strings.Contains(text, "session.recording_ceiling") {
		t.Fatalf("expected warning listing, got:\n%s", text)
	}
}
