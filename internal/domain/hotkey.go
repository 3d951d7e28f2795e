package domain

import (
	"fmt"
	"strings"
	"time"
)

// ActivationType selects the key pattern a detector recognizes.
type ActivationType string

const (
	ActivationDoubleTap   ActivationType = "double_tap"
	ActivationSinglePress ActivationType = "single_press"
	ActivationHold        ActivationType = "hold"
	ActivationCombination ActivationType = "combination"
)

// ParseActivationType accepts the canonical names plus common spellings.
func ParseActivationType(raw string) (ActivationType, error) {
	switch strings.ToLower(strings.NewReplacer("-", "_", " ", "_").Replace(strings.TrimSpace(raw))) {
	case "double_tap", "doubletap":
		return ActivationDoubleTap, nil
	case "single_press", "singlepress", "press":
		return ActivationSinglePress, nil
	case "hold":
		return ActivationHold, nil
	case "combination", "combo":
		return ActivationCombination, nil
	default:
		return "", fmt.Errorf("unknown activation type %q", raw)
	}
}

// HotkeyConfiguration is an immutable description of one activation pattern.
type HotkeyConfiguration struct {
	Type               ActivationType
	PrimaryKey         Key
	ModifierKey        Key
	DoubleTapInterval  time.Duration
	MaxTapHoldDuration time.Duration
	HoldDuration       time.Duration
	Disabled           bool
}

// Equivalent reports whether two configurations would react to the same key pattern.
func (h HotkeyConfiguration) Equivalent(other HotkeyConfiguration) bool {
	if h.Disabled || other.Disabled {
		return false
	}
	return h.Type == other.Type &&
		h.PrimaryKey.Logical() == other.PrimaryKey.Logical() &&
		h.ModifierKey.Logical() == other.ModifierKey.Logical()
}

func (h HotkeyConfiguration) String() string {
	if h.Disabled {
		return "disabled"
	}
	if h.Type == ActivationCombination {
		return fmt.Sprintf("%s+%s", h.ModifierKey, h.PrimaryKey)
	}
	return fmt.Sprintf("%s(%s)", h.Type, h.PrimaryKey)
}

// DefaultSTTHotkey is used when no valid STT hotkey is configured.
func DefaultSTTHotkey() HotkeyConfiguration {
	return HotkeyConfiguration{
		Type:               ActivationDoubleTap,
		PrimaryKey:         "f9",
		DoubleTapInterval:  400 * time.Millisecond,
		MaxTapHoldDuration: 200 * time.Millisecond,
		HoldDuration:       600 * time.Millisecond,
	}
}

// DefaultTTSHotkey is used when no valid TTS hotkey is configured.
func DefaultTTSHotkey() HotkeyConfiguration {
	return HotkeyConfiguration{
		Type:               ActivationCombination,
		PrimaryKey:         "f10",
		ModifierKey:        KeyCtrl,
		DoubleTapInterval:  400 * time.Millisecond,
		MaxTapHoldDuration: 200 * time.Millisecond,
		HoldDuration:       600 * time.Millisecond,
	}
}
