package domain

import (
	"fmt"
	"strings"
	"time"
)

// ProviderSelection is the persisted recognition provider choice.
type ProviderSelection string

const (
	ProviderOffline ProviderSelection = "offline"
	ProviderCloud   ProviderSelection = "cloud"
	ProviderHybrid  ProviderSelection = "hybrid"
)

// ParseProviderSelection validates a provider selection name.
func ParseProviderSelection(raw string) (ProviderSelection, error) {
	switch sel := ProviderSelection(strings.ToLower(strings.TrimSpace(raw))); sel {
	case ProviderOffline, ProviderCloud, ProviderHybrid:
		return sel, nil
	default:
		return "", fmt.Errorf("unknown provider selection %q", raw)
	}
}

// SessionSettings is the immutable snapshot read at the start of every session.
// Edits produce a new snapshot that only the next session observes.
type SessionSettings struct {
	STTHotkey HotkeyConfiguration
	TTSHotkey HotkeyConfiguration

	Provider          ProviderSelection
	PrimaryProvider   string
	SecondaryProvider string

	RecordingCeiling    time.Duration
	DrainTimeout        time.Duration
	StreamingGrace      time.Duration
	ConfidenceThreshold float64
	ErrorThreshold      int
	ChunkSize           int
	Language            string

	AutoPaste bool
}

// DefaultSessionSettings returns the settings used when nothing is configured.
func DefaultSessionSettings() SessionSettings {
	return SessionSettings{
		STTHotkey:           DefaultSTTHotkey(),
		TTSHotkey:           DefaultTTSHotkey(),
		Provider:            ProviderHybrid,
		PrimaryProvider:     "whisper",
		SecondaryProvider:   "deepgram",
		RecordingCeiling:    120 * time.Second,
		DrainTimeout:        3 * time.Second,
		ConfidenceThreshold: 0.5,
		ErrorThreshold:      3,
		ChunkSize:           4096,
		AutoPaste:           true,
	}
}
