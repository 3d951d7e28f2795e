package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"voxkey/internal/domain"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	return path
}

func hasWarning(cfg Config, field string) bool {
	for _, w := range cfg.Warnings {
		if w.Field == field {
			return true
		}
	}
	return false
}

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("VOXKEY_CONFIG", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Path != "" {
		t.Fatalf("expected no config file, got %q", cfg.Path)
	}
	if len(cfg.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", cfg.Warnings)
	}
	if cfg.Session.Provider != domain.ProviderHybrid || cfg.Session.RecordingCeiling != 120*time.Second {
		t.Fatalf("unexpected session defaults: %+v", cfg.Session)
	}
	if cfg.Rules.Path != filepath.Join(home, ".config", "voxkey", "substitutions.rules") {
		t.Fatalf("unexpected rules path: %q", cfg.Rules.Path)
	}
	settings := cfg.SessionSettings()
	if settings.STTHotkey != domain.DefaultSTTHotkey() || settings.TTSHotkey != domain.DefaultTTSHotkey() {
		t.Fatalf("unexpected default hotkeys: %+v / %+v", settings.STTHotkey, settings.TTSHotkey)
	}
}

func TestLoadFindsConfigInHome(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, ".config", "voxkey", "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte("[session]\nprovider = \"cloud\"\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	t.Setenv("HOME", home)
	t.Setenv("VOXKEY_CONFIG", "")
	t.Setenv("VOXKEY_PROVIDER", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Path != path || cfg.Session.Provider != domain.ProviderCloud {
		t.Fatalf("expected home config to be used: path=%q provider=%q", cfg.Path, cfg.Session.Provider)
	}
}

func TestLoadFileValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeConfig(t, `
[session]
provider = "offline"
recording_ceiling = "45s"
drain_timeout = "2s"
confidence_threshold = 0.7
auto_paste = false

[hotkeys.stt]
type = "hold"
key = "space"
hold_duration = "800ms"

[hotkeys.tts]
type = "combination"
key = "s"
modifier = "lshift"

[rules]
dictation_commands = true

[[rules.substitutions]]
from = "vox key"
to = "voxkey"

[deepgram]
model = "nova-3"
smart_format = false
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(cfg.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", cfg.Warnings)
	}
	if cfg.Session.Provider != domain.ProviderOffline || cfg.Session.RecordingCeiling != 45*time.Second {
		t.Fatalf("unexpected session: %+v", cfg.Session)
	}
	if cfg.Session.DrainTimeout != 2*time.Second || cfg.Session.ConfidenceThreshold != 0.7 || cfg.Session.AutoPaste {
		t.Fatalf("unexpected session tuning: %+v", cfg.Session)
	}
	stt := cfg.Hotkeys.STT
	if stt.Type != domain.ActivationHold || stt.PrimaryKey != domain.KeySpace || stt.HoldDuration != 800*time.Millisecond {
		t.Fatalf("unexpected stt hotkey: %+v", stt)
	}
	if stt.DoubleTapInterval != domain.DefaultSTTHotkey().DoubleTapInterval {
		t.Fatalf("unset timings should keep defaults: %+v", stt)
	}
	tts := cfg.Hotkeys.TTS
	if tts.Type != domain.ActivationCombination || tts.ModifierKey != domain.KeyShiftLeft || tts.PrimaryKey != "s" {
		t.Fatalf("unexpected tts hotkey: %+v", tts)
	}
	if !cfg.Rules.DictationCommands || len(cfg.Rules.Substitutions) != 1 || cfg.Rules.Substitutions[0].To != "voxkey" {
		t.Fatalf("unexpected rules: %+v", cfg.Rules)
	}
	if cfg.Deepgram.Model != "nova-3" || cfg.Deepgram.SmartFormat {
		t.Fatalf("unexpected deepgram: %+v", cfg.Deepgram)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeConfig(t, "[session]\nprovider = \"offline\"\nchunk_size = 1024\n")
	t.Setenv("VOXKEY_PROVIDER", "Cloud")
	t.Setenv("VOXKEY_AUDIO_CHUNK_SIZE", "2048")
	t.Setenv("VOXKEY_RECORDING_CEILING_SECONDS", "30")
	t.Setenv("VOXKEY_STREAMING_GRACE_MS", "25")
	t.Setenv("DEEPGRAM_API_KEY", "test-key")
	t.Setenv("VOXKEY_AUDIO_INPUT_DEVICE", "mic0")
	t.Setenv("VOXKEY_STT_HOTKEY", "single_press:f8")
	t.Setenv("VOXKEY_TTS_HOTKEY", "combination:ctrl+f7")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Session.Provider != domain.ProviderCloud || cfg.Session.ChunkSize != 2048 {
		t.Fatalf("env should win over file: %+v", cfg.Session)
	}
	if cfg.Session.RecordingCeiling != 30*time.Second || cfg.Session.StreamingGrace != 25*time.Millisecond {
		t.Fatalf("unexpected durations: %+v", cfg.Session)
	}
	if cfg.Deepgram.APIKey != "test-key" || cfg.Audio.InputDevice != "mic0" {
		t.Fatalf("unexpected env values: %+v %+v", cfg.Deepgram, cfg.Audio)
	}
	if cfg.Hotkeys.STT.Type != domain.ActivationSinglePress || cfg.Hotkeys.STT.PrimaryKey != "f8" {
		t.Fatalf("unexpected stt hotkey: %+v", cfg.Hotkeys.STT)
	}
	if cfg.Hotkeys.TTS.ModifierKey != domain.KeyCtrl || cfg.Hotkeys.TTS.PrimaryKey != "f7" {
		t.Fatalf("unexpected tts hotkey: %+v", cfg.Hotkeys.TTS)
	}
}

func TestLoadOutOfRangeValuesFallBackWithWarnings(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeConfig(t, `
[session]
provider = "satellite"
recording_ceiling = "5s"
confidence_threshold = 1.5
error_threshold = 0
chunk_size = 5

[audio]
sample_rate = 12345
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Session.RecordingCeiling != 120*time.Second {
		t.Fatalf("expected default ceiling, got %s", cfg.Session.RecordingCeiling)
	}
	if cfg.Session.Provider != domain.ProviderHybrid || cfg.Session.ConfidenceThreshold != 0.5 {
		t.Fatalf("expected defaults, got %+v", cfg.Session)
	}
	if cfg.Session.ErrorThreshold != 3 || cfg.Session.ChunkSize != 4096 || cfg.Audio.SampleRate != 16000 {
		t.Fatalf("expected defaults, got %+v %+v", cfg.Session, cfg.Audio)
	}
	for _, field := range []string{
		"session.provider",
		"session.recording_ceiling",
		"session.confidence_threshold",
		"session.error_threshold",
		"session.chunk_size",
		"audio.sample_rate",
	} {
		if !hasWarning(cfg, field) {
			t.Fatalf("expected warning for %s, got %v", field, cfg.Warnings)
		}
	}
}

func TestLoadCeilingAboveMaximum(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("VOXKEY_RECORDING_CEILING_SECONDS", "601")

	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Session.RecordingCeiling != 120*time.Second || !hasWarning(cfg, "session.recording_ceiling") {
		t.Fatalf("expected ceiling fallback with warning: %s %v", cfg.Session.RecordingCeiling, cfg.Warnings)
	}
}

func TestLoadInvalidHotkeyFallsBackToDefault(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeConfig(t, `
[hotkeys.stt]
type = "combination"
key = "f9"

[hotkeys.tts]
type = "double_tap"
key = "ctrl"
double_tap_interval = "5s"
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Hotkeys.STT != domain.DefaultSTTHotkey() || !hasWarning(cfg, "hotkeys.stt") {
		t.Fatalf("expected default stt hotkey with warning: %+v %v", cfg.Hotkeys.STT, cfg.Warnings)
	}
	if cfg.Hotkeys.TTS != domain.DefaultTTSHotkey() || !hasWarning(cfg, "hotkeys.tts") {
		t.Fatalf("expected default tts hotkey with warning: %+v %v", cfg.Hotkeys.TTS, cfg.Warnings)
	}
}

func TestLoadIdenticalHotkeysAreMadeDisjoint(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeConfig(t, `
[hotkeys.stt]
type = "double_tap"
key = "lctrl"

[hotkeys.tts]
type = "double_tap"
key = "rctrl"
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Hotkeys.STT.PrimaryKey != domain.KeyCtrlLeft {
		t.Fatalf("stt hotkey must be kept: %+v", cfg.Hotkeys.STT)
	}
	if cfg.Hotkeys.TTS != domain.DefaultTTSHotkey() || !hasWarning(cfg, "hotkeys.tts") {
		t.Fatalf("expected tts fallback to default: %+v %v", cfg.Hotkeys.TTS, cfg.Warnings)
	}
}

func TestDisjointHotkeysDisablesWhenDefaultCollides(t *testing.T) {
	t.Parallel()

	stt := domain.DefaultTTSHotkey()
	_, tts, warnings := DisjointHotkeys(stt, domain.DefaultTTSHotkey())
	if !tts.Disabled || len(warnings) != 1 {
		t.Fatalf("expected disabled tts hotkey, got %+v %v", tts, warnings)
	}
	if !strings.Contains(warnings[0].Error(), "disabled") {
		t.Fatalf("unexpected warning: %v", warnings[0])
	}
}

func TestLoadInvalidEnvNumberWarns(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("VOXKEY_SAMPLE_RATE", "bad")
	t.Setenv("DEEPGRAM_SMART_FORMAT", "not-bool")

	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Audio.SampleRate != 16000 || !hasWarning(cfg, "VOXKEY_SAMPLE_RATE") {
		t.Fatalf("expected sample rate warning: %d %v", cfg.Audio.SampleRate, cfg.Warnings)
	}
	if !cfg.Deepgram.SmartFormat {
		t.Fatalf("expected default smart format true")
	}
}

func TestLoadMalformedFileFails(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	if _, err := LoadFile(writeConfig(t, "[session\nprovider=")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestParseHotkeySpec(t *testing.T) {
	t.Parallel()

	cases := map[string]hotkeyFile{
		"double_tap:f9":        {Type: "double_tap", Key: "f9"},
		"combination:ctrl+f10": {Type: "combination", Key: "f10", Modifier: "ctrl"},
		"disabled":             {Disabled: true},
	}
	for spec, want := range cases {
		if got := parseHotkeySpec(spec); got != want {
			t.Fatalf("parseHotkeySpec(%q) = %+v, want %+v", spec, got, want)
		}
	}
}

func TestStoreUpdatePublishesNewSnapshot(t *testing.T) {
	t.Parallel()

	store := NewStore(domain.DefaultSessionSettings())
	before := store.Snapshot()

	var notified []domain.ProviderSelection
	store.OnChange(func(s domain.SessionSettings) { notified = append(notified, s.Provider) })

	next, warnings := store.Update(func(s *domain.SessionSettings) {
		s.Provider = domain.ProviderCloud
		s.TTSHotkey = s.STTHotkey
	})
	if next.Provider != domain.ProviderCloud || store.Snapshot().Provider != domain.ProviderCloud {
		t.Fatalf("expected updated provider")
	}
	if before.Provider != domain.ProviderHybrid {
		t.Fatalf("earlier snapshot must not change")
	}
	if len(warnings) != 1 || next.TTSHotkey != domain.DefaultTTSHotkey() {
		t.Fatalf("expected colliding tts hotkey to be reset: %+v %v", next.TTSHotkey, warnings)
	}
	if len(notified) != 1 || notified[0] != domain.ProviderCloud {
		t.Fatalf("expected one change notification, got %v", notified)
	}
}
