package main

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	wruntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"voxkey/internal/bootstrap"
	"voxkey/internal/desktop"
	"voxkey/internal/domain"
	"voxkey/internal/logger"
	"voxkey/internal/usecase"
)

const (
	eventMode       = "voxkey:mode"
	eventTranscript = "voxkey:transcript"
	eventSpeech     = "voxkey:speech"
	eventError      = "voxkey:error"
)

// App is the Wails application root.
type App struct {
	ctx context.Context

	services *bootstrap.Services
	bootErr  error
	newHook  func(log *logger.Logger) bootstrap.Hook

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewApp returns the application root. newHook builds the global hotkey source;
// nil leaves the UI buttons as the only trigger.
func NewApp(newHook func(log *logger.Logger) bootstrap.Hook) *App {
	return &App{newHook: newHook}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(
		desktop.NewNotifier(a, "", nil),
		&wailsClipboard{app: ctx},
		bootstrap.Options{NewHook: a.newHook},
	)
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}
	a.services = services

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := services.Run(runCtx); err != nil {
			a.SessionError(domain.ErrorCodeInternal, err.Error())
		}
	}()
	a.ModeChanged(domain.ModeIdle, domain.ModeIdle, domain.SessionReasonReady)
}

func (a *App) shutdown(context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
}

// ToggleDictation acts like a press of the STT hotkey.
func (a *App) ToggleDictation() (bool, error) {
	if err := a.requireReady(); err != nil {
		return false, err
	}
	return a.services.Orchestrator.Activate(domain.TargetSTT), nil
}

// ToggleSpeech acts like a press of the TTS hotkey.
func (a *App) ToggleSpeech() (bool, error) {
	if err := a.requireReady(); err != nil {
		return false, err
	}
	return a.services.Orchestrator.Activate(domain.TargetTTS), nil
}

// Abort discards an in-progress recording.
func (a *App) Abort() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.services.Orchestrator.Abort(a.ctx); err != nil {
		if errors.Is(err, usecase.ErrNoActiveSession) {
			return nil
		}
		return err
	}
	return nil
}

// PauseSpeech pauses the clipboard read-out.
func (a *App) PauseSpeech() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Orchestrator.PauseSpeech(a.ctx)
}

// ResumeSpeech continues a paused read-out.
func (a *App) ResumeSpeech() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Orchestrator.ResumeSpeech(a.ctx)
}

// SetProvider changes the recognition provider for the next session.
func (a *App) SetProvider(name string) (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	selection, err := domain.ParseProviderSelection(name)
	if err != nil {
		return domain.Status{}, err
	}
	a.services.Settings.Update(func(s *domain.SessionSettings) { s.Provider = selection })
	if err := a.services.Orchestrator.SelectProvider(a.ctx, selection); err != nil {
		return domain.Status{}, err
	}
	return a.services.Orchestrator.Status(), nil
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.Status {
	if a.services == nil {
		if a.bootErr != nil {
			return domain.Status{Mode: domain.ModeIdle, Message: a.bootErr.Error()}
		}
		return domain.Status{Mode: domain.ModeIdle}
	}
	return a.services.Orchestrator.Status()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}
	if a.services == nil {
		return map[string]string{}
	}

	cfg := a.services.Config
	settings := a.services.Settings.Snapshot()
	return map[string]string{
		"platform":         runtime.GOOS,
		"provider":         string(settings.Provider),
		"primaryProvider":  settings.PrimaryProvider,
		"fallbackProvider": settings.SecondaryProvider,
		"deepgramModel":    cfg.Deepgram.Model,
		"whisperModel":     cfg.Whisper.ModelPath,
		"language":         settings.Language,
		"sttHotkey":        settings.STTHotkey.String(),
		"ttsHotkey":        settings.TTSHotkey.String(),
		"recordingCeiling": settings.RecordingCeiling.String(),
		"rulesFile":        cfg.Rules.Path,
		"configFile":       cfg.Path,
		"audioInput":       cfg.Audio.InputDevice,
		"audioInputFormat": cfg.Audio.InputFormat,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.services == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// ModeChanged emits session lifecycle updates to the frontend.
func (a *App) ModeChanged(old domain.SessionMode, next domain.SessionMode, reason domain.SessionStateReason) {
	if a.ctx == nil {
		return
	}
	wruntime.EventsEmit(a.ctx, eventMode, map[string]string{
		"from":    string(old),
		"mode":    string(next),
		"reason":  string(reason),
		"message": sessionReasonMessage(reason),
	})
}

// TranscriptUpdated emits live and final transcript text.
func (a *App) TranscriptUpdated(text string, isFinal bool) {
	if a.ctx == nil {
		return
	}
	wruntime.EventsEmit(a.ctx, eventTranscript, map[string]any{
		"text":    text,
		"isFinal": isFinal,
	})
}

// SpeechProgress emits read-out progress.
func (a *App) SpeechProgress(event domain.SynthesisEvent) {
	if a.ctx == nil {
		return
	}
	wruntime.EventsEmit(a.ctx, eventSpeech, event)
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	wruntime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func sessionReasonMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonReady:
		return "Ready"
	case domain.SessionReasonRecordingStarted:
		return "Listening"
	case domain.SessionReasonSafetyTimeout:
		return "Recording limit reached. Transcribing..."
	case domain.SessionReasonTranscribing:
		return "Recording stopped. Transcribing..."
	case domain.SessionReasonTranscriptCopied:
		return "Transcript copied to clipboard"
	case domain.SessionReasonClipboardFailed:
		return "Transcript ready (clipboard write failed)"
	case domain.SessionReasonRecordingDiscarded:
		return "Recording discarded"
	case domain.SessionReasonNoTranscript:
		return "No transcript captured"
	case domain.SessionReasonTranscriptionFailed:
		return "Transcription failed"
	case domain.SessionReasonRulesFailed:
		return "Rules processing failed"
	case domain.SessionReasonSpeakingStarted:
		return "Reading clipboard"
	case domain.SessionReasonSpeakingFinished:
		return "Finished reading"
	case domain.SessionReasonSpeakingStopped:
		return "Reading stopped"
	case domain.SessionReasonSynthesisFailed:
		return "Speech failed"
	case domain.SessionReasonInternalError:
		return "Internal error; session reset"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeConfiguration:
		return "Configuration warning"
	case domain.ErrorCodeAudioStop:
		return "Audio stop issue"
	case domain.ErrorCodeAudioStream:
		return "Audio streaming issue"
	case domain.ErrorCodeClipboard:
		return "Clipboard unavailable"
	case domain.ErrorCodeRules:
		return "Rules processing failed"
	case domain.ErrorCodeTranscription, domain.ErrorCodeProvider:
		return "Transcription error"
	case domain.ErrorCodeSynthesis:
		return "Speech error"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}

// wailsClipboard uses the webview runtime clipboard. Calls are bound to the
// application context rather than the caller's.
type wailsClipboard struct {
	app context.Context
}

func (c *wailsClipboard) SetText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return wruntime.ClipboardSetText(c.app, text)
}

func (c *wailsClipboard) GetText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return wruntime.ClipboardGetText(c.app)
}
