package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"voxkey/internal/domain"
	"voxkey/internal/rules"
)

// duration accepts "1500ms" style strings in the config file.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// fileConfig mirrors config.toml. Pointers distinguish "unset" from zero values.
type fileConfig struct {
	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`

	Deepgram struct {
		APIKey      string `toml:"api_key"`
		APIBaseURL  string `toml:"api_base"`
		Model       string `toml:"model"`
		Language    string `toml:"language"`
		SmartFormat *bool  `toml:"smart_format"`
	} `toml:"deepgram"`

	Whisper struct {
		Command  string    `toml:"command"`
		Model    string    `toml:"model"`
		Threads  int       `toml:"threads"`
		Interval *duration `toml:"interval"`
	} `toml:"whisper"`

	Speech struct {
		Command         string `toml:"command"`
		FallbackCommand string `toml:"fallback_command"`
		Voice           string `toml:"voice"`
		Rate            int    `toml:"rate"`
	} `toml:"speech"`

	Audio struct {
		RecorderCommand string `toml:"recorder_command"`
		InputFormat     string `toml:"input_format"`
		InputDevice     string `toml:"input_device"`
		SampleRate      *int   `toml:"sample_rate"`
		Channels        *int   `toml:"channels"`
	} `toml:"audio"`

	Rules struct {
		Path              string               `toml:"path"`
		IterationLimit    *int                 `toml:"iteration_limit"`
		DictationCommands *bool                `toml:"dictation_commands"`
		Substitutions     []rules.Substitution `toml:"substitutions"`
	} `toml:"rules"`

	Session struct {
		Provider            string    `toml:"provider"`
		PrimaryProvider     string    `toml:"primary_provider"`
		SecondaryProvider   string    `toml:"secondary_provider"`
		RecordingCeiling    *duration `toml:"recording_ceiling"`
		DrainTimeout        *duration `toml:"drain_timeout"`
		StreamingGrace      *duration `toml:"streaming_grace"`
		ConfidenceThreshold *float64  `toml:"confidence_threshold"`
		ErrorThreshold      *int      `toml:"error_threshold"`
		ChunkSize           *int      `toml:"chunk_size"`
		Language            string    `toml:"language"`
		AutoPaste           *bool     `toml:"auto_paste"`
	} `toml:"session"`

	Hotkeys struct {
		STT *hotkeyFile `toml:"stt"`
		TTS *hotkeyFile `toml:"tts"`
	} `toml:"hotkeys"`
}

type hotkeyFile struct {
	Type              string    `toml:"type"`
	Key               string    `toml:"key"`
	Modifier          string    `toml:"modifier"`
	DoubleTapInterval *duration `toml:"double_tap_interval"`
	MaxTapHold        *duration `toml:"max_tap_hold"`
	HoldDuration      *duration `toml:"hold_duration"`
	Disabled          bool      `toml:"disabled"`
}

func readFile(path string) (fileConfig, error) {
	var file fileConfig
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return fileConfig{}, fmt.Errorf("failed to read config file %q: %w", path, err)
	}
	return file, nil
}

func (f fileConfig) apply(cfg *Config) {
	setString(&cfg.Log.Level, f.Log.Level)
	setString(&cfg.Log.Format, f.Log.Format)

	setString(&cfg.Deepgram.APIKey, f.Deepgram.APIKey)
	setString(&cfg.Deepgram.APIBaseURL, f.Deepgram.APIBaseURL)
	setString(&cfg.Deepgram.Model, f.Deepgram.Model)
	setString(&cfg.Deepgram.Language, f.Deepgram.Language)
	setValue(&cfg.Deepgram.SmartFormat, f.Deepgram.SmartFormat)

	setString(&cfg.Whisper.Command, f.Whisper.Command)
	setString(&cfg.Whisper.ModelPath, f.Whisper.Model)
	if f.Whisper.Threads > 0 {
		cfg.Whisper.Threads = f.Whisper.Threads
	}
	setDuration(&cfg.Whisper.Interval, f.Whisper.Interval)

	setString(&cfg.Speech.Command, f.Speech.Command)
	setString(&cfg.Speech.FallbackCommand, f.Speech.FallbackCommand)
	setString(&cfg.Speech.Voice, f.Speech.Voice)
	if f.Speech.Rate > 0 {
		cfg.Speech.Rate = f.Speech.Rate
	}

	setString(&cfg.Audio.RecorderCommand, f.Audio.RecorderCommand)
	setString(&cfg.Audio.InputFormat, f.Audio.InputFormat)
	setString(&cfg.Audio.InputDevice, f.Audio.InputDevice)
	setValue(&cfg.Audio.SampleRate, f.Audio.SampleRate)
	setValue(&cfg.Audio.Channels, f.Audio.Channels)

	setString(&cfg.Rules.Path, f.Rules.Path)
	setValue(&cfg.Rules.IterationLimit, f.Rules.IterationLimit)
	setValue(&cfg.Rules.DictationCommands, f.Rules.DictationCommands)
	cfg.Rules.Substitutions = append(cfg.Rules.Substitutions, f.Rules.Substitutions...)

	if f.Session.Provider != "" {
		cfg.Session.Provider = domain.ProviderSelection(f.Session.Provider)
	}
	setString(&cfg.Session.PrimaryProvider, f.Session.PrimaryProvider)
	setString(&cfg.Session.SecondaryProvider, f.Session.SecondaryProvider)
	setDuration(&cfg.Session.RecordingCeiling, f.Session.RecordingCeiling)
	setDuration(&cfg.Session.DrainTimeout, f.Session.DrainTimeout)
	setDuration(&cfg.Session.StreamingGrace, f.Session.StreamingGrace)
	setValue(&cfg.Session.ConfidenceThreshold, f.Session.ConfidenceThreshold)
	setValue(&cfg.Session.ErrorThreshold, f.Session.ErrorThreshold)
	setValue(&cfg.Session.ChunkSize, f.Session.ChunkSize)
	setString(&cfg.Session.Language, f.Session.Language)
	setValue(&cfg.Session.AutoPaste, f.Session.AutoPaste)
}

// applyHotkeys parses the configured hotkeys. An invalid slot keeps its default.
func (f fileConfig) applyHotkeys(cfg *Config) []*domain.ConfigurationError {
	var warnings []*domain.ConfigurationError
	if f.Hotkeys.STT != nil {
		if hk, err := f.Hotkeys.STT.parse(cfg.Hotkeys.STT); err != nil {
			warnings = append(warnings, warn("hotkeys.stt", "%v; using %s", err, cfg.Hotkeys.STT))
		} else {
			cfg.Hotkeys.STT = hk
		}
	}
	if f.Hotkeys.TTS != nil {
		if hk, err := f.Hotkeys.TTS.parse(cfg.Hotkeys.TTS); err != nil {
			warnings = append(warnings, warn("hotkeys.tts", "%v; using %s", err, cfg.Hotkeys.TTS))
		} else {
			cfg.Hotkeys.TTS = hk
		}
	}
	return warnings
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func setValue[T any](dst *T, value *T) {
	if value != nil {
		*dst = *value
	}
}

func setDuration(dst *time.Duration, value *duration) {
	if value != nil {
		*dst = value.Duration
	}
}
