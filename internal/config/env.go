package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"voxkey/internal/domain"
)

// applyEnv layers VOXKEY_* and DEEPGRAM_* variables over the file values.
// Unparsable values are ignored with a warning.
func applyEnv(cfg *Config) []*domain.ConfigurationError {
	var warnings []*domain.ConfigurationError
	record := func(w *domain.ConfigurationError) {
		if w != nil {
			warnings = append(warnings, w)
		}
	}

	cfg.Log.Level = envOrDefault("VOXKEY_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envOrDefault("VOXKEY_LOG_FORMAT", cfg.Log.Format)

	cfg.Deepgram.APIKey = envOrDefault("DEEPGRAM_API_KEY", cfg.Deepgram.APIKey)
	cfg.Deepgram.APIBaseURL = envOrDefault("DEEPGRAM_API_BASE", cfg.Deepgram.APIBaseURL)
	cfg.Deepgram.Model = envOrDefault("DEEPGRAM_MODEL", cfg.Deepgram.Model)
	cfg.Deepgram.Language = envOrDefault("DEEPGRAM_LANGUAGE", cfg.Deepgram.Language)
	cfg.Deepgram.SmartFormat = envOrDefaultBool("DEEPGRAM_SMART_FORMAT", cfg.Deepgram.SmartFormat)

	cfg.Whisper.Command = envOrDefault("VOXKEY_WHISPER_COMMAND", cfg.Whisper.Command)
	cfg.Whisper.ModelPath = envOrDefault("VOXKEY_WHISPER_MODEL", cfg.Whisper.ModelPath)
	record(envInt("VOXKEY_WHISPER_THREADS", &cfg.Whisper.Threads))

	cfg.Speech.Command = envOrDefault("VOXKEY_SPEECH_COMMAND", cfg.Speech.Command)
	cfg.Speech.Voice = envOrDefault("VOXKEY_SPEECH_VOICE", cfg.Speech.Voice)

	cfg.Audio.RecorderCommand = envOrDefault("VOXKEY_FFMPEG_COMMAND", cfg.Audio.RecorderCommand)
	cfg.Audio.InputFormat = envOrDefault("VOXKEY_AUDIO_INPUT_FORMAT", cfg.Audio.InputFormat)
	cfg.Audio.InputDevice = firstNonEmpty(os.Getenv("VOXKEY_AUDIO_INPUT_DEVICE"), os.Getenv("PULSE_SOURCE"), cfg.Audio.InputDevice)
	record(envInt("VOXKEY_SAMPLE_RATE", &cfg.Audio.SampleRate))
	record(envInt("VOXKEY_CHANNELS", &cfg.Audio.Channels))

	cfg.Rules.Path = envOrDefault("VOXKEY_RULES_FILE", cfg.Rules.Path)
	record(envInt("VOXKEY_RULE_ITERATION_LIMIT", &cfg.Rules.IterationLimit))
	cfg.Rules.DictationCommands = envOrDefaultBool("VOXKEY_DICTATION_COMMANDS", cfg.Rules.DictationCommands)

	if raw := strings.TrimSpace(os.Getenv("VOXKEY_PROVIDER")); raw != "" {
		cfg.Session.Provider = domain.ProviderSelection(strings.ToLower(raw))
	}
	cfg.Session.PrimaryProvider = envOrDefault("VOXKEY_PRIMARY_PROVIDER", cfg.Session.PrimaryProvider)
	cfg.Session.SecondaryProvider = envOrDefault("VOXKEY_SECONDARY_PROVIDER", cfg.Session.SecondaryProvider)
	record(envSeconds("VOXKEY_RECORDING_CEILING_SECONDS", &cfg.Session.RecordingCeiling))
	record(envMillis("VOXKEY_DRAIN_TIMEOUT_MS", &cfg.Session.DrainTimeout))
	record(envMillis("VOXKEY_STREAMING_GRACE_MS", &cfg.Session.StreamingGrace))
	record(envInt("VOXKEY_AUDIO_CHUNK_SIZE", &cfg.Session.ChunkSize))
	record(envInt("VOXKEY_ERROR_THRESHOLD", &cfg.Session.ErrorThreshold))
	record(envFloat("VOXKEY_CONFIDENCE_THRESHOLD", &cfg.Session.ConfidenceThreshold))
	cfg.Session.Language = envOrDefault("VOXKEY_LANGUAGE", cfg.Session.Language)
	cfg.Session.AutoPaste = envOrDefaultBool("VOXKEY_AUTO_PASTE", cfg.Session.AutoPaste)

	record(envHotkey("VOXKEY_STT_HOTKEY", &cfg.Hotkeys.STT))
	record(envHotkey("VOXKEY_TTS_HOTKEY", &cfg.Hotkeys.TTS))
	return warnings
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func envInt(key string, dst *int) *domain.ConfigurationError {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return warn(key, "%q is not a number", value)
	}
	*dst = parsed
	return nil
}

func envFloat(key string, dst *float64) *domain.ConfigurationError {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return warn(key, "%q is not a number", value)
	}
	*dst = parsed
	return nil
}

func envMillis(key string, dst *time.Duration) *domain.ConfigurationError {
	ms := -1
	if w := envInt(key, &ms); w != nil || ms == -1 {
		return w
	}
	*dst = time.Duration(ms) * time.Millisecond
	return nil
}

func envSeconds(key string, dst *time.Duration) *domain.ConfigurationError {
	seconds := -1
	if w := envInt(key, &seconds); w != nil || seconds == -1 {
		return w
	}
	*dst = time.Duration(seconds) * time.Second
	return nil
}

// envHotkey reads "type:key", "combination:modifier+key" or "disabled".
func envHotkey(key string, dst *domain.HotkeyConfiguration) *domain.ConfigurationError {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil
	}
	hk, err := parseHotkeySpec(value).parse(*dst)
	if err != nil {
		return warn(key, "%v; using %s", err, *dst)
	}
	*dst = hk
	return nil
}

func parseHotkeySpec(spec string) hotkeyFile {
	if strings.EqualFold(spec, "disabled") || strings.EqualFold(spec, "off") {
		return hotkeyFile{Disabled: true}
	}
	kind, keys, found := strings.Cut(spec, ":")
	if !found {
		return hotkeyFile{Type: kind}
	}
	if modifier, primary, combo := strings.Cut(keys, "+"); combo {
		return hotkeyFile{Type: kind, Key: primary, Modifier: modifier}
	}
	return hotkeyFile{Type: kind, Key: keys}
}
