package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"voxkey/internal/domain"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			if name := fld.Tag.Get("config"); name != "" {
				return name
			}
			return fld.Name
		})
	})
	return validate
}

// tunables holds every ranged setting. A field that fails its rule is reset to
// the default value of the same field.
type tunables struct {
	Provider            string        `config:"session.provider" validate:"oneof=offline cloud hybrid"`
	PrimaryProvider     string        `config:"session.primary_provider" validate:"required"`
	SecondaryProvider   string        `config:"session.secondary_provider" validate:"required"`
	RecordingCeiling    time.Duration `config:"session.recording_ceiling" validate:"gte=10s,lte=600s"`
	DrainTimeout        time.Duration `config:"session.drain_timeout" validate:"gte=100ms,lte=30s"`
	StreamingGrace      time.Duration `config:"session.streaming_grace" validate:"gte=0s,lte=5s"`
	ConfidenceThreshold float64       `config:"session.confidence_threshold" validate:"gte=0,lte=1"`
	ErrorThreshold      int           `config:"session.error_threshold" validate:"gte=1,lte=20"`
	ChunkSize           int           `config:"session.chunk_size" validate:"gte=256,lte=65536"`
	SampleRate          int           `config:"audio.sample_rate" validate:"oneof=8000 16000 22050 24000 44100 48000"`
	Channels            int           `config:"audio.channels" validate:"gte=1,lte=2"`
	RuleIterationLimit  int           `config:"rules.iteration_limit" validate:"gte=1,lte=1000"`
	WhisperInterval     time.Duration `config:"whisper.interval" validate:"gte=250ms,lte=10s"`
	LogLevel            string        `config:"log.level" validate:"oneof=debug info warn error"`
	LogFormat           string        `config:"log.format" validate:"oneof=console json"`
}

func tunablesOf(cfg *Config) tunables {
	return tunables{
		Provider:            strings.ToLower(string(cfg.Session.Provider)),
		PrimaryProvider:     cfg.Session.PrimaryProvider,
		SecondaryProvider:   cfg.Session.SecondaryProvider,
		RecordingCeiling:    cfg.Session.RecordingCeiling,
		DrainTimeout:        cfg.Session.DrainTimeout,
		StreamingGrace:      cfg.Session.StreamingGrace,
		ConfidenceThreshold: cfg.Session.ConfidenceThreshold,
		ErrorThreshold:      cfg.Session.ErrorThreshold,
		ChunkSize:           cfg.Session.ChunkSize,
		SampleRate:          cfg.Audio.SampleRate,
		Channels:            cfg.Audio.Channels,
		RuleIterationLimit:  cfg.Rules.IterationLimit,
		WhisperInterval:     cfg.Whisper.Interval,
		LogLevel:            strings.ToLower(cfg.Log.Level),
		LogFormat:           strings.ToLower(cfg.Log.Format),
	}
}

func (t tunables) applyTo(cfg *Config) {
	cfg.Session.Provider = domain.ProviderSelection(t.Provider)
	cfg.Session.PrimaryProvider = t.PrimaryProvider
	cfg.Session.SecondaryProvider = t.SecondaryProvider
	cfg.Session.RecordingCeiling = t.RecordingCeiling
	cfg.Session.DrainTimeout = t.DrainTimeout
	cfg.Session.StreamingGrace = t.StreamingGrace
	cfg.Session.ConfidenceThreshold = t.ConfidenceThreshold
	cfg.Session.ErrorThreshold = t.ErrorThreshold
	cfg.Session.ChunkSize = t.ChunkSize
	cfg.Audio.SampleRate = t.SampleRate
	cfg.Audio.Channels = t.Channels
	cfg.Rules.IterationLimit = t.RuleIterationLimit
	cfg.Whisper.Interval = t.WhisperInterval
	cfg.Log.Level = t.LogLevel
	cfg.Log.Format = t.LogFormat
}

// validateConfig replaces out-of-range values with defaults and keeps the STT and TTS
// hotkeys disjoint.
func validateConfig(cfg *Config, fallback Config) []*domain.ConfigurationError {
	current := tunablesOf(cfg)
	defaults := tunablesOf(&fallback)

	var warnings []*domain.ConfigurationError
	err := getValidator().Struct(current)
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		cur := reflect.ValueOf(&current).Elem()
		def := reflect.ValueOf(defaults)
		for _, fe := range fieldErrs {
			name := fe.StructField()
			warnings = append(warnings, warn(fe.Field(), "%v %s; using %v",
				fe.Value(), describeRule(fe), def.FieldByName(name).Interface()))
			cur.FieldByName(name).Set(def.FieldByName(name))
		}
	}
	current.applyTo(cfg)

	stt, tts, hotkeyWarnings := DisjointHotkeys(cfg.Hotkeys.STT, cfg.Hotkeys.TTS)
	cfg.Hotkeys.STT, cfg.Hotkeys.TTS = stt, tts
	return append(warnings, hotkeyWarnings...)
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gte":
		return "is below the minimum " + fe.Param()
	case "lte":
		return "is above the maximum " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "required":
		return "is required"
	default:
		return "fails " + fe.Tag()
	}
}

// DisjointHotkeys resolves a TTS hotkey that collides with the STT hotkey: it falls
// back to the default TTS hotkey, or is disabled when that collides too.
func DisjointHotkeys(stt, tts domain.HotkeyConfiguration) (domain.HotkeyConfiguration, domain.HotkeyConfiguration, []*domain.ConfigurationError) {
	if !stt.Equivalent(tts) {
		return stt, tts, nil
	}
	fallback := domain.DefaultTTSHotkey()
	if !stt.Equivalent(fallback) {
		return stt, fallback, []*domain.ConfigurationError{
			warn("hotkeys.tts", "same pattern as the STT hotkey (%s); using %s", stt, fallback),
		}
	}
	tts.Disabled = true
	return stt, tts, []*domain.ConfigurationError{
		warn("hotkeys.tts", "same pattern as the STT hotkey (%s); TTS hotkey disabled", stt),
	}
}

// hotkeyRanges are the accepted timing windows of a hotkey.
type hotkeyRanges struct {
	DoubleTapInterval  time.Duration `config:"double_tap_interval" validate:"gte=100ms,lte=1000ms"`
	MaxTapHoldDuration time.Duration `config:"max_tap_hold" validate:"gte=50ms,lte=500ms"`
	HoldDuration       time.Duration `config:"hold_duration" validate:"gte=100ms,lte=10s"`
}

// parse builds a hotkey; timings that are not set come from base.
func (h hotkeyFile) parse(base domain.HotkeyConfiguration) (domain.HotkeyConfiguration, error) {
	if h.Disabled {
		base.Disabled = true
		return base, nil
	}

	kind, err := domain.ParseActivationType(h.Type)
	if err != nil {
		return base, err
	}
	primary, err := domain.ParseKey(h.Key)
	if err != nil {
		return base, fmt.Errorf("primary key: %w", err)
	}

	hk := domain.HotkeyConfiguration{
		Type:               kind,
		PrimaryKey:         primary,
		DoubleTapInterval:  base.DoubleTapInterval,
		MaxTapHoldDuration: base.MaxTapHoldDuration,
		HoldDuration:       base.HoldDuration,
	}

	switch {
	case kind == domain.ActivationCombination:
		if strings.TrimSpace(h.Modifier) == "" {
			return base, errors.New("combination needs a modifier key")
		}
		modifier, err := domain.ParseKey(h.Modifier)
		if err != nil {
			return base, fmt.Errorf("modifier key: %w", err)
		}
		if !modifier.IsModifier() {
			return base, fmt.Errorf("%q is not a modifier key", h.Modifier)
		}
		if primary.IsModifier() {
			return base, fmt.Errorf("combination primary key %q must not be a modifier", h.Key)
		}
		hk.ModifierKey = modifier
	case strings.TrimSpace(h.Modifier) != "":
		return base, fmt.Errorf("%s hotkeys take no modifier", kind)
	}

	setDuration(&hk.DoubleTapInterval, h.DoubleTapInterval)
	setDuration(&hk.MaxTapHoldDuration, h.MaxTapHold)
	setDuration(&hk.HoldDuration, h.HoldDuration)

	ranges := hotkeyRanges{
		DoubleTapInterval:  hk.DoubleTapInterval,
		MaxTapHoldDuration: hk.MaxTapHoldDuration,
		HoldDuration:       hk.HoldDuration,
	}
	if err := getValidator().Struct(ranges); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return base, fmt.Errorf("%s %v %s", fe.Field(), fe.Value(), describeRule(fe))
		}
		return base, err
	}
	return hk, nil
}
