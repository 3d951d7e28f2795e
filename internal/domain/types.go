package domain

import "time"

// SessionMode models the orchestrator lifecycle. Exactly one mode is active at a time.
type SessionMode string

const (
	ModeIdle          SessionMode = "idle"
	ModeSttListening  SessionMode = "stt_listening"
	ModeSttProcessing SessionMode = "stt_processing"
	ModeTtsSpeaking   SessionMode = "tts_speaking"
	ModeTransitioning SessionMode = "transitioning"
)

// Stable reports whether the mode is a resting state rather than the transition guard.
func (m SessionMode) Stable() bool {
	return m != ModeTransitioning
}

// SessionStateReason provides a structured reason for mode transitions.
type SessionStateReason string

const (
	SessionReasonReady               SessionStateReason = "ready"
	SessionReasonRecordingStarted    SessionStateReason = "recording_started"
	SessionReasonSafetyTimeout       SessionStateReason = "safety_timeout"
	SessionReasonTranscribing        SessionStateReason = "transcribing"
	SessionReasonTranscriptCopied    SessionStateReason = "transcript_copied"
	SessionReasonClipboardFailed     SessionStateReason = "transcript_clipboard_failed"
	SessionReasonRecordingDiscarded  SessionStateReason = "recording_discarded"
	SessionReasonNoTranscript        SessionStateReason = "no_transcript"
	SessionReasonTranscriptionFailed SessionStateReason = "transcription_failed"
	SessionReasonRulesFailed         SessionStateReason = "rules_failed"
	SessionReasonSpeakingStarted     SessionStateReason = "speaking_started"
	SessionReasonSpeakingFinished    SessionStateReason = "speaking_finished"
	SessionReasonSpeakingStopped     SessionStateReason = "speaking_stopped"
	SessionReasonSynthesisFailed     SessionStateReason = "synthesis_failed"
	SessionReasonInternalError       SessionStateReason = "internal_error"
	SessionReasonShutdown            SessionStateReason = "shutdown"
)

// ErrorCode identifies non-fatal and fatal errors surfaced to the user.
type ErrorCode string

const (
	ErrorCodeStartup       ErrorCode = "startup"
	ErrorCodeConfiguration ErrorCode = "configuration"
	ErrorCodeAudioStop     ErrorCode = "audio_stop"
	ErrorCodeAudioStream   ErrorCode = "audio_stream"
	ErrorCodeTranscription ErrorCode = "transcription"
	ErrorCodeProvider      ErrorCode = "provider"
	ErrorCodeSynthesis     ErrorCode = "synthesis"
	ErrorCodeRules         ErrorCode = "rules"
	ErrorCodeClipboard     ErrorCode = "clipboard"
	ErrorCodeInternal      ErrorCode = "internal"
)

// HotkeyTarget names which activation detector produced a signal.
type HotkeyTarget string

const (
	TargetSTT HotkeyTarget = "stt"
	TargetTTS HotkeyTarget = "tts"
)

// RecognitionEvent is one transient result produced by a recognition backend.
// Err is set when the backend reports a failure in-stream; Text is empty in that case.
type RecognitionEvent struct {
	Text               string    `json:"text"`
	IsFinal            bool      `json:"isFinal"`
	IsSegmentFinalized bool      `json:"isSegmentFinalized"`
	Confidence         float64   `json:"confidence"`
	Timestamp          time.Time `json:"timestamp"`
	Err                error     `json:"-"`
}

// SynthesisEventKind identifies the kind of synthesis progress update.
type SynthesisEventKind string

const (
	SynthesisProgress     SynthesisEventKind = "progress"
	SynthesisWordBoundary SynthesisEventKind = "word_boundary"
	SynthesisCompleted    SynthesisEventKind = "completed"
)

// SynthesisEvent reports progress of a speak operation.
type SynthesisEvent struct {
	Kind SynthesisEventKind `json:"kind"`
	// Offset and Length locate the spoken span in the source text, in bytes.
	Offset   int     `json:"offset"`
	Length   int     `json:"length"`
	Progress float64 `json:"progress"`
	Err      error   `json:"-"`
}

// StopResult is produced once an STT session has been finalized and delivered.
type StopResult struct {
	SessionID       string        `json:"sessionId"`
	Provider        string        `json:"provider"`
	RawTranscript   string        `json:"rawTranscript"`
	FinalTranscript string        `json:"finalTranscript"`
	Copied          bool          `json:"copied"`
	Pasted          bool          `json:"pasted"`
	Duration        time.Duration `json:"duration"`
	TimedOut        bool          `json:"timedOut"`
}

// Status summarizes the current runtime status.
type Status struct {
	Mode      SessionMode `json:"mode"`
	Active    bool        `json:"active"`
	Provider  string      `json:"provider,omitempty"`
	SessionID string      `json:"sessionId,omitempty"`
	Message   string      `json:"message,omitempty"`
}
