package desktop

import (
	"github.com/gen2brain/beeep"

	"voxkey/internal/domain"
	"voxkey/internal/logger"
	"voxkey/internal/ports"
)

const notificationTitle = "voxkey"

// NotifyFunc shows a desktop notification.
type NotifyFunc func(title, message, appIcon string) error

// Notifier forwards every event to the wrapped sink and raises a desktop
// notification for errors and safety-ceiling stops.
type Notifier struct {
	next   ports.EventSink
	log    *logger.Logger
	notify NotifyFunc
	icon   string
}

func NewNotifier(next ports.EventSink, icon string, log *logger.Logger) *Notifier {
	if log == nil {
		log = logger.NewNop()
	}
	return &Notifier{next: next, log: log, notify: beeep.Notify, icon: icon}
}

func (n *Notifier) ModeChanged(old domain.SessionMode, next domain.SessionMode, reason domain.SessionStateReason) {
	if n.next != nil {
		n.next.ModeChanged(old, next, reason)
	}
	if reason == domain.SessionReasonSafetyTimeout {
		n.show("Recording reached its time limit and was stopped")
	}
}

func (n *Notifier) TranscriptUpdated(text string, isFinal bool) {
	if n.next != nil {
		n.next.TranscriptUpdated(text, isFinal)
	}
}

func (n *Notifier) SpeechProgress(event domain.SynthesisEvent) {
	if n.next != nil {
		n.next.SpeechProgress(event)
	}
}

func (n *Notifier) SessionError(code domain.ErrorCode, detail string) {
	if n.next != nil {
		n.next.SessionError(code, detail)
	}
	n.show(errorMessage(code, detail))
}

func (n *Notifier) show(message string) {
	notify := n.notify
	go func() {
		if err := notify(notificationTitle, message, n.icon); err != nil {
			n.log.Debug("Desktop notification failed", logger.Error(err))
		}
	}()
}

func errorMessage(code domain.ErrorCode, detail string) string {
	var prefix string
	switch code {
	case domain.ErrorCodeSynthesis:
		prefix = "Speech failed"
	case domain.ErrorCodeProvider, domain.ErrorCodeTranscription:
		prefix = "Transcription failed"
	case domain.ErrorCodeClipboard:
		prefix = "Clipboard unavailable"
	case domain.ErrorCodeConfiguration:
		prefix = "Configuration problem"
	default:
		prefix = "Something went wrong"
	}
	if detail == "" {
		return prefix
	}
	return prefix + ": " + detail
}

// LogSink reports session events to the log. It serves the headless daemon.
type LogSink struct {
	log *logger.Logger
}

func NewLogSink(log *logger.Logger) *LogSink {
	if log == nil {
		log = logger.NewNop()
	}
	return &LogSink{log: log}
}

func (s *LogSink) ModeChanged(old domain.SessionMode, next domain.SessionMode, reason domain.SessionStateReason) {
	s.log.Info("Mode changed",
		logger.String("from", string(old)),
		logger.String("to", string(next)),
		logger.String("reason", string(reason)))
}

func (s *LogSink) TranscriptUpdated(text string, isFinal bool) {
	if isFinal {
		s.log.Info("Transcript ready", logger.Int("chars", len(text)))
		return
	}
	s.log.Debug("Transcript updated", logger.String("text", text))
}

func (s *LogSink) SpeechProgress(event domain.SynthesisEvent) {
	s.log.Debug("Speech progress",
		logger.String("kind", string(event.Kind)),
		logger.Float64("progress", event.Progress))
}

func (s *LogSink) SessionError(code domain.ErrorCode, detail string) {
	s.log.Warn("Session error", logger.String("code", string(code)), logger.String("detail", detail))
}
