package ports

import (
	"context"
	"io"

	"voxkey/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// RecognitionConfig describes provider-agnostic recognition settings.
type RecognitionConfig struct {
	SampleRate     int
	Channels       int
	Encoding       string
	Language       string
	InterimResults bool
}

// RecognizerCapabilities describes what a backend can do. StreamingSupported selects
// the reconciler mode: true incremental streaming appends, pseudo-streaming replaces.
type RecognizerCapabilities struct {
	StreamingSupported bool
	ReportsConfidence  bool
}

// RecognitionSession is one running recognition operation.
type RecognitionSession interface {
	SendAudio(chunk []byte) error
	// Events is closed when the backend stream ends.
	Events() <-chan domain.RecognitionEvent
	// Stop requests the final result and waits for it until ctx is done.
	Stop(ctx context.Context) (domain.RecognitionEvent, error)
	Close() error
}

// Recognizer starts recognition sessions.
type Recognizer interface {
	ID() string
	Capabilities() RecognizerCapabilities
	Start(ctx context.Context, cfg RecognitionConfig) (RecognitionSession, error)
}

// SpeechSession is one running synthesis operation.
type SpeechSession interface {
	// Events is closed after the terminal completion or error event.
	Events() <-chan domain.SynthesisEvent
	Stop() error
	Pause() error
	Resume() error
}

// Synthesizer starts text-to-speech sessions.
type Synthesizer interface {
	ID() string
	SupportsPause() bool
	Speak(ctx context.Context, text string) (SpeechSession, error)
}

// RulesEngine transforms transcripts using deterministic rules.
type RulesEngine interface {
	Apply(text string) (string, error)
}

// Clipboard reads and writes the system clipboard.
type Clipboard interface {
	SetText(ctx context.Context, text string) error
	GetText(ctx context.Context) (string, error)
}

// Paster simulates a paste keystroke into the focused application. Best effort.
type Paster interface {
	SimulatePaste() bool
}

// SettingsSource provides the immutable settings snapshot for the next session.
type SettingsSource interface {
	Snapshot() domain.SessionSettings
}

// KeyEventSource is a push-based global key-event feed.
type KeyEventSource interface {
	Subscribe(fn func(domain.KeyEvent)) (unsubscribe func())
}

// EventSink receives outward notifications.
type EventSink interface {
	ModeChanged(old domain.SessionMode, next domain.SessionMode, reason domain.SessionStateReason)
	TranscriptUpdated(text string, isFinal bool)
	SpeechProgress(event domain.SynthesisEvent)
	SessionError(code domain.ErrorCode, detail string)
}
