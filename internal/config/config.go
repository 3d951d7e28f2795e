package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"voxkey/internal/domain"
	"voxkey/internal/rules"
)

// Config stores the resolved runtime configuration.
type Config struct {
	// Path is the config file that was read, empty when none existed.
	Path string

	Log      LogConfig
	Deepgram DeepgramConfig
	Whisper  WhisperConfig
	Speech   SpeechConfig
	Audio    AudioConfig
	Rules    RulesConfig
	Session  SessionConfig
	Hotkeys  HotkeysConfig

	// Warnings lists settings that were invalid and replaced by defaults.
	Warnings []*domain.ConfigurationError
}

type LogConfig struct {
	Level  string
	Format string
}

type DeepgramConfig struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
}

type WhisperConfig struct {
	Command   string
	ModelPath string
	Threads   int
	Interval  time.Duration
}

type SpeechConfig struct {
	Command         string
	FallbackCommand string
	Voice           string
	Rate            int
}

type AudioConfig struct {
	RecorderCommand string
	InputFormat     string
	InputDevice     string
	SampleRate      int
	Channels        int
}

type RulesConfig struct {
	Path              string
	IterationLimit    int
	DictationCommands bool
	Substitutions     []rules.Substitution
}

type SessionConfig struct {
	Provider            domain.ProviderSelection
	PrimaryProvider     string
	SecondaryProvider   string
	RecordingCeiling    time.Duration
	DrainTimeout        time.Duration
	StreamingGrace      time.Duration
	ConfidenceThreshold float64
	ErrorThreshold      int
	ChunkSize           int
	Language            string
	AutoPaste           bool
}

type HotkeysConfig struct {
	STT domain.HotkeyConfiguration
	TTS domain.HotkeyConfiguration
}

// Load resolves configuration from defaults, the config file named by
// VOXKEY_CONFIG (or ~/.config/voxkey/config.toml) and environment overrides.
func Load() (Config, error) {
	path := strings.TrimSpace(os.Getenv("VOXKEY_CONFIG"))
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, errors.New("could not determine home directory")
		}
		path = filepath.Join(home, ".config", "voxkey", "config.toml")
		if _, err := os.Stat(path); err != nil {
			path = ""
		}
	}
	return LoadFile(path)
}

// LoadFile is Load with an explicit config file. An empty path skips the file.
func LoadFile(path string) (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	cfg := defaults(home)
	var warnings []*domain.ConfigurationError
	if path != "" {
		file, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg.Path = path
		file.apply(&cfg)
		warnings = append(warnings, file.applyHotkeys(&cfg)...)
	}

	warnings = append(warnings, applyEnv(&cfg)...)
	warnings = append(warnings, validateConfig(&cfg, defaults(home))...)
	cfg.Warnings = warnings
	return cfg, nil
}

func defaults(home string) Config {
	session := domain.DefaultSessionSettings()
	return Config{
		Log: LogConfig{Level: "info", Format: "console"},
		Deepgram: DeepgramConfig{
			APIBaseURL:  "https://api.deepgram.com/v1",
			Model:       "nova-2",
			SmartFormat: true,
		},
		Whisper: WhisperConfig{
			Command:  "whisper-cli",
			Interval: 1500 * time.Millisecond,
		},
		Audio: AudioConfig{
			RecorderCommand: "ffmpeg",
			SampleRate:      16000,
			Channels:        1,
		},
		Rules: RulesConfig{
			Path:           filepath.Join(home, ".config", "voxkey", "substitutions.rules"),
			IterationLimit: 30,
		},
		Session: SessionConfig{
			Provider:            session.Provider,
			PrimaryProvider:     session.PrimaryProvider,
			SecondaryProvider:   session.SecondaryProvider,
			RecordingCeiling:    session.RecordingCeiling,
			DrainTimeout:        session.DrainTimeout,
			StreamingGrace:      time.Second,
			ConfidenceThreshold: session.ConfidenceThreshold,
			ErrorThreshold:      session.ErrorThreshold,
			ChunkSize:           session.ChunkSize,
			AutoPaste:           session.AutoPaste,
		},
		Hotkeys: HotkeysConfig{
			STT: domain.DefaultSTTHotkey(),
			TTS: domain.DefaultTTSHotkey(),
		},
	}
}

// SessionSettings is the immutable snapshot handed to the orchestrator.
func (c Config) SessionSettings() domain.SessionSettings {
	return domain.SessionSettings{
		STTHotkey:           c.Hotkeys.STT,
		TTSHotkey:           c.Hotkeys.TTS,
		Provider:            c.Session.Provider,
		PrimaryProvider:     c.Session.PrimaryProvider,
		SecondaryProvider:   c.Session.SecondaryProvider,
		RecordingCeiling:    c.Session.RecordingCeiling,
		DrainTimeout:        c.Session.DrainTimeout,
		StreamingGrace:      c.Session.StreamingGrace,
		ConfidenceThreshold: c.Session.ConfidenceThreshold,
		ErrorThreshold:      c.Session.ErrorThreshold,
		ChunkSize:           c.Session.ChunkSize,
		Language:            c.Session.Language,
		AutoPaste:           c.Session.AutoPaste,
	}
}

func warn(field, format string, args ...any) *domain.ConfigurationError {
	return &domain.ConfigurationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
