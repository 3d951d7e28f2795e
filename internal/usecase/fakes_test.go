package usecase

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"voxkey/internal/domain"
	"voxkey/internal/ports"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

type fakeAudioCapture struct {
	mu       sync.Mutex
	sessions []*fakeLiveAudio
	err      error
}

func (f *fakeAudioCapture) Start(_ context.Context, _ ports.AudioConfig) (ports.AudioSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	session := newFakeLiveAudio()
	f.sessions = append(f.sessions, session)
	return session, nil
}

func (f *fakeAudioCapture) session(i int) *fakeLiveAudio {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i >= len(f.sessions) {
		return nil
	}
	return f.sessions[i]
}

// fakeLiveAudio produces a small chunk every few milliseconds until stopped.
type fakeLiveAudio struct {
	mu        sync.Mutex
	stop      chan struct{}
	stopped   bool
	startedAt time.Time
	stoppedAt time.Time
}

func newFakeLiveAudio() *fakeLiveAudio {
	return &fakeLiveAudio{stop: make(chan struct{}), startedAt: time.Now()}
}

func (f *fakeLiveAudio) Read(p []byte) (int, error) {
	select {
	case <-f.stop:
		return 0, io.EOF
	case <-time.After(5 * time.Millisecond):
		return copy(p, []byte{1, 2, 3, 4}), nil
	}
}

func (f *fakeLiveAudio) Close() error { return nil }

func (f *fakeLiveAudio) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.stopped {
		f.stopped = true
		f.stoppedAt = time.Now()
		close(f.stop)
	}
	return nil
}

func (f *fakeLiveAudio) recorded() (time.Duration, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stoppedAt.Sub(f.startedAt), f.stopped
}

type fakeAudioSession struct {
	mu        sync.Mutex
	chunks    [][]byte
	index     int
	stopCalls int
}

func (f *fakeAudioSession) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index >= len(f.chunks) {
		return 0, io.EOF
	}
	n := copy(p, f.chunks[f.index])
	f.index++
	return n, nil
}

func (f *fakeAudioSession) Close() error { return nil }

func (f *fakeAudioSession) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	return nil
}

type fakeRecognizer struct {
	id         string
	caps       ports.RecognizerCapabilities
	startErrs  []error
	startDelay time.Duration
	// hangOnStop makes every session ignore Stop's context and never return.
	hangOnStop bool

	mu       sync.Mutex
	starts   int
	sessions []*fakeRecognitionSession
}

func (f *fakeRecognizer) ID() string                                 { return f.id }
func (f *fakeRecognizer) Capabilities() ports.RecognizerCapabilities { return f.caps }

func (f *fakeRecognizer) Start(ctx context.Context, _ ports.RecognitionConfig) (ports.RecognitionSession, error) {
	if f.startDelay > 0 {
		select {
		case <-time.After(f.startDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.starts
	f.starts++
	if idx < len(f.startErrs) && f.startErrs[idx] != nil {
		return nil, f.startErrs[idx]
	}
	session := newFakeRecognitionSession()
	session.hangOnStop = f.hangOnStop
	f.sessions = append(f.sessions, session)
	return session, nil
}

func (f *fakeRecognizer) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func (f *fakeRecognizer) sessionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

func (f *fakeRecognizer) waitSession(t *testing.T, i int) *fakeRecognitionSession {
	t.Helper()
	waitFor(t, 2*time.Second, func() bool { return f.sessionCount() > i })
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[i]
}

type fakeRecognitionSession struct {
	mu         sync.Mutex
	events     chan domain.RecognitionEvent
	closed     bool
	sent       []byte
	sendErr    error
	stopEvent  domain.RecognitionEvent
	hangOnStop bool
	stopCalls  int
	closeCalls int
}

func newFakeRecognitionSession() *fakeRecognitionSession {
	return &fakeRecognitionSession{events: make(chan domain.RecognitionEvent, 32)}
}

func (f *fakeRecognitionSession) SendAudio(chunk []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, chunk...)
	return nil
}

func (f *fakeRecognitionSession) Events() <-chan domain.RecognitionEvent { return f.events }

func (f *fakeRecognitionSession) Stop(ctx context.Context) (domain.RecognitionEvent, error) {
	f.mu.Lock()
	f.stopCalls++
	hang := f.hangOnStop
	ev := f.stopEvent
	f.mu.Unlock()
	if hang {
		select {}
	}
	f.closeEvents()
	return ev, nil
}

func (f *fakeRecognitionSession) Close() error {
	f.mu.Lock()
	f.closeCalls++
	f.mu.Unlock()
	f.closeEvents()
	return nil
}

func (f *fakeRecognitionSession) emit(ev domain.RecognitionEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.events <- ev
	}
}

func (f *fakeRecognitionSession) closeEvents() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.events)
	}
}

func (f *fakeRecognitionSession) audio() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]byte, len(f.sent))
	copy(out, f.sent)
	return out
}

type fakeSynthesizer struct {
	id       string
	pause    bool
	err      error
	mu       sync.Mutex
	texts    []string
	sessions []*fakeSpeechSession
}

func (f *fakeSynthesizer) ID() string          { return f.id }
func (f *fakeSynthesizer) SupportsPause() bool { return f.pause }

func (f *fakeSynthesizer) Speak(_ context.Context, text string) (ports.SpeechSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	session := &fakeSpeechSession{events: make(chan domain.SynthesisEvent, 16)}
	f.sessions = append(f.sessions, session)
	return session, nil
}

func (f *fakeSynthesizer) spoken() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.texts))
	copy(out, f.texts)
	return out
}

func (f *fakeSynthesizer) waitSession(t *testing.T, i int) *fakeSpeechSession {
	t.Helper()
	waitFor(t, 2*time.Second, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return len(f.sessions) > i
	})
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[i]
}

type fakeSpeechSession struct {
	mu      sync.Mutex
	events  chan domain.SynthesisEvent
	closed  bool
	stopped int
	paused  int
	resumed int
}

func (f *fakeSpeechSession) Events() <-chan domain.SynthesisEvent { return f.events }

func (f *fakeSpeechSession) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
	if !f.closed {
		f.closed = true
		close(f.events)
	}
	return nil
}

func (f *fakeSpeechSession) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused++
	return nil
}

func (f *fakeSpeechSession) Resume() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumed++
	return nil
}

func (f *fakeSpeechSession) emit(ev domain.SynthesisEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.events <- ev
	}
}

func (f *fakeSpeechSession) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

type fakeRules struct {
	transform string
	err       error
}

func (f *fakeRules) Apply(text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.transform != "" {
		return f.transform, nil
	}
	return text, nil
}

type fakeClipboard struct {
	mu       sync.Mutex
	lastText string
	readText string
	err      error
}

func (f *fakeClipboard) SetText(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastText = text
	return f.err
}

func (f *fakeClipboard) GetText(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readText, nil
}

func (f *fakeClipboard) text() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastText
}

type fakePaster struct {
	mu    sync.Mutex
	calls int
}

func (f *fakePaster) SimulatePaste() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return true
}

func (f *fakePaster) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSettings struct {
	settings domain.SessionSettings
}

func (f fakeSettings) Snapshot() domain.SessionSettings { return f.settings }

type modeEvent struct {
	old    domain.SessionMode
	next   domain.SessionMode
	reason domain.SessionStateReason
}

type transcriptEvent struct {
	text  string
	final bool
}

type errEvent struct {
	code   domain.ErrorCode
	detail string
}

type fakeEventSink struct {
	mu sync.Mutex

	modes       []modeEvent
	transcripts []transcriptEvent
	errors      []errEvent
	speech      []domain.SynthesisEvent
}

func (f *fakeEventSink) ModeChanged(old domain.SessionMode, next domain.SessionMode, reason domain.SessionStateReason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modes = append(f.modes, modeEvent{old: old, next: next, reason: reason})
}

func (f *fakeEventSink) TranscriptUpdated(text string, isFinal bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transcripts = append(f.transcripts, transcriptEvent{text: text, final: isFinal})
}

func (f *fakeEventSink) SpeechProgress(event domain.SynthesisEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.speech = append(f.speech, event)
}

func (f *fakeEventSink) SessionError(code domain.ErrorCode, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, errEvent{code: code, detail: detail})
}

func (f *fakeEventSink) snapshotModes() []modeEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]modeEvent, len(f.modes))
	copy(out, f.modes)
	return out
}

func (f *fakeEventSink) snapshotTranscripts() []transcriptEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]transcriptEvent, len(f.transcripts))
	copy(out, f.transcripts)
	return out
}

func (f *fakeEventSink) lastTranscript() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.transcripts) == 0 {
		return ""
	}
	return f.transcripts[len(f.transcripts)-1].text
}

func (f *fakeEventSink) snapshotErrors() []errEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]errEvent, len(f.errors))
	copy(out, f.errors)
	return out
}

func (f *fakeEventSink) snapshotSpeech() []domain.SynthesisEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.SynthesisEvent, len(f.speech))
	copy(out, f.speech)
	return out
}

var errBoom = errors.New("boom")
