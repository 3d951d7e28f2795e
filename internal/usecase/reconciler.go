package usecase

import (
	"strings"

	"voxkey/internal/domain"
	"voxkey/internal/ports"
)

// reconcileMode selects how recognition events are merged.
type reconcileMode int

const (
	// reconcileAppend is used for incremental streaming backends: finals accumulate.
	reconcileAppend reconcileMode = iota
	// reconcileReplace is used for pseudo-streaming backends that re-transcribe the
	// whole buffer: the latest event supersedes everything before it.
	reconcileReplace
)

func (m reconcileMode) String() string {
	if m == reconcileReplace {
		return "replace"
	}
	return "append"
}

func reconcileModeFor(caps ports.RecognizerCapabilities) reconcileMode {
	if caps.StreamingSupported {
		return reconcileAppend
	}
	return reconcileReplace
}

// transcriptReconciler merges one session's recognition events into a display string.
// It is owned by the orchestrator loop and is not safe for concurrent use.
type transcriptReconciler struct {
	mode reconcileMode

	finalized   string
	interim     string
	latest      string
	lastSegment string

	lastText  string
	lastFinal bool
	seen      bool
}

func newTranscriptReconciler(mode reconcileMode) *transcriptReconciler {
	return &transcriptReconciler{mode: mode}
}

// Apply merges ev and reports the displayed transcript and whether it changed.
func (r *transcriptReconciler) Apply(ev domain.RecognitionEvent) (string, bool) {
	if ev.Err != nil {
		return r.Displayed(), false
	}
	text := strings.TrimSpace(ev.Text)
	final := ev.IsFinal || ev.IsSegmentFinalized
	if r.seen && text == r.lastText && final == r.lastFinal {
		return r.Displayed(), false
	}
	r.seen = true
	r.lastText = text
	r.lastFinal = final

	before := r.Displayed()
	switch r.mode {
	case reconcileAppend:
		if final {
			r.appendFinal(text)
			r.interim = ""
		} else {
			r.interim = text
		}
	case reconcileReplace:
		r.latest = text
	}
	after := r.Displayed()
	return after, after != before
}

// SwitchMode is called whenever a new recognition session takes over. Whatever the
// previous session produced is promoted to finalized text so it survives the switch.
func (r *transcriptReconciler) SwitchMode(mode reconcileMode) {
	r.promote()
	r.mode = mode
	r.seen = false
	r.lastText = ""
	r.lastFinal = false
}

// Finalize applies the stop result and returns the complete transcript. In replace
// mode the last received text counts as final whatever its flag said.
func (r *transcriptReconciler) Finalize(stop domain.RecognitionEvent) string {
	text := strings.TrimSpace(stop.Text)
	if stop.Err == nil && text != "" {
		switch r.mode {
		case reconcileAppend:
			// A repeat of the last final is already accounted for; anything else
			// supersedes the pending interim.
			if text != r.lastSegment {
				r.interim = ""
				r.appendFinal(text)
			}
		case reconcileReplace:
			r.latest = text
		}
	}
	r.promote()
	return r.finalized
}

// Displayed returns the transcript as it should currently be shown.
func (r *transcriptReconciler) Displayed() string {
	pending := r.interim
	if r.mode == reconcileReplace {
		pending = r.latest
	}
	return joinTranscript(r.finalized, pending)
}

// Finalized returns the accumulated finalized text, which never shrinks.
func (r *transcriptReconciler) Finalized() string {
	return r.finalized
}

func (r *transcriptReconciler) promote() {
	switch r.mode {
	case reconcileAppend:
		if r.interim != "" {
			r.appendFinal(r.interim)
			r.interim = ""
		}
	case reconcileReplace:
		if r.latest != "" {
			r.appendFinal(r.latest)
			r.latest = ""
		}
	}
}

func (r *transcriptReconciler) appendFinal(text string) {
	if text == "" {
		return
	}
	r.finalized = joinTranscript(r.finalized, text)
	r.lastSegment = text
}

func joinTranscript(head, tail string) string {
	switch {
	case head == "":
		return tail
	case tail == "":
		return head
	default:
		return head + " " + tail
	}
}
