package main

import (
	"errors"
	"testing"

	"voxkey/internal/domain"
)

func TestSessionReasonMessage(t *testing.T) {
	t.Parallel()

	cases := map[domain.SessionStateReason]string{
		domain.SessionReasonReady:               "Ready",
		domain.SessionReasonRecordingStarted:    "Listening",
		domain.SessionReasonSafetyTimeout:       "Recording limit reached. Transcribing...",
		domain.SessionReasonTranscribing:        "Recording stopped. Transcribing...",
		domain.SessionReasonTranscriptCopied:    "Transcript copied to clipboard",
		domain.SessionReasonClipboardFailed:     "Transcript ready (clipboard write failed)",
		domain.SessionReasonRecordingDiscarded:  "Recording discarded",
		domain.SessionReasonNoTranscript:        "No transcript captured",
		domain.SessionReasonTranscriptionFailed: "Transcription failed",
		domain.SessionReasonRulesFailed:         "Rules processing failed",
		domain.SessionReasonSpeakingStarted:     "Reading clipboard",
		domain.SessionReasonSpeakingFinished:    "Finished reading",
		domain.SessionReasonSpeakingStopped:     "Reading stopped",
		domain.SessionReasonSynthesisFailed:     "Speech failed",
		domain.SessionReasonInternalError:       "Internal error; session reset",
	}

	for reason, want := range cases {
		t.Run(string(reason), func(t *testing.T) {
			t.Parallel()
			if got := sessionReasonMessage(reason); got != want {
				t.Fatalf("unexpected message: %q", got)
			}
		})
	}

	if got := sessionReasonMessage("unknown"); got != "" {
		t.Fatalf("expected empty unknown reason message, got %q", got)
	}
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	cases := map[domain.ErrorCode]string{
		domain.ErrorCodeStartup:       "Startup failed",
		domain.ErrorCodeConfiguration: "Configuration warning",
		domain.ErrorCodeAudioStop:     "Audio stop issue",
		domain.ErrorCodeAudioStream:   "Audio streaming issue",
		domain.ErrorCodeClipboard:     "Clipboard unavailable",
		domain.ErrorCodeRules:         "Rules processing failed",
		domain.ErrorCodeTranscription: "Transcription error",
		domain.ErrorCodeProvider:      "Transcription error",
		domain.ErrorCodeSynthesis:     "Speech error",
	}
	for code, want := range cases {
		t.Run(string(code), func(t *testing.T) {
			t.Parallel()
			if got := errorMessage(code, "ignored"); got != want {
				t.Fatalf("unexpected message: %q", got)
			}
		})
	}

	if got := errorMessage("unknown", "detail"); got != "detail" {
		t.Fatalf("expected detail fallback, got %q", got)
	}
	if got := errorMessage("unknown", ""); got != "Unknown error" {
		t.Fatalf("expected unknown fallback, got %q", got)
	}
}

func TestRequireReady(t *testing.T) {
	t.Parallel()

	app := &App{}
	if err := app.requireReady(); err == nil {
		t.Fatalf("expected uninitialized error")
	}

	bootErr := errors.New("boot")
	app.bootErr = bootErr
	if err := app.requireReady(); !errors.Is(err, bootErr) {
		t.Fatalf("expected boot error, got %v", err)
	}
}

func TestCommandsFailBeforeStartup(t *testing.T) {
	t.Parallel()

	app := &App{}
	if _, err := app.ToggleDictation(); err == nil {
		t.Fatalf("expected toggle to fail before startup")
	}
	if _, err := app.SetProvider("cloud"); err == nil {
		t.Fatalf("expected provider change to fail before startup")
	}
	if err := app.PauseSpeech(); err == nil {
		t.Fatalf("expected pause to fail before startup")
	}
}

func TestGetStatusWhenNotInitialized(t *testing.T) {
	t.Parallel()

	app := &App{}
	status := app.GetStatus()
	if status.Mode != domain.ModeIdle || status.Active {
		t.Fatalf("unexpected status: %+v", status)
	}

	app.bootErr = errors.New("boot")
	status = app.GetStatus()
	if status.Mode != domain.ModeIdle || status.Active || status.Message != "boot" {
		t.Fatalf("unexpected boot status: %+v", status)
	}
	if info := app.GetRuntimeInfo(); info["error"] != "boot" {
		t.Fatalf("unexpected runtime info: %v", info)
	}
}

func TestEventsIgnoredBeforeStartup(t *testing.T) {
	t.Parallel()

	app := &App{}
	app.ModeChanged(domain.ModeIdle, domain.ModeSttListening, domain.SessionReasonRecordingStarted)
	app.TranscriptUpdated("hello", false)
	app.SpeechProgress(domain.SynthesisEvent{Kind: domain.SynthesisProgress})
	app.SessionError(domain.ErrorCodeInternal, "boom")
}
