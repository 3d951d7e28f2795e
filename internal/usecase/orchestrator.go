package usecase

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"voxkey/internal/domain"
	"voxkey/internal/logger"
	"voxkey/internal/ports"
)

var (
	ErrNoActiveSession  = errors.New("no active recording session")
	ErrNoActiveSpeech   = errors.New("no active speech session")
	ErrPauseUnsupported = errors.New("synthesizer does not support pause")
	ErrNotRunning       = errors.New("orchestrator is not running")

	errStreamEnded = errors.New("recognition stream ended unexpectedly")
)

const (
	defaultDrainTimeout    = 3 * time.Second
	defaultDeliveryTimeout = 2 * time.Second
	defaultRetryInterval   = 250 * time.Millisecond
	inboxSize              = 128
)

// Config controls behavior fixed for the lifetime of the process. Everything a user
// can change between sessions comes from the settings snapshot instead.
type Config struct {
	Audio             ports.AudioConfig
	Recognition       ports.RecognitionConfig
	ChunkSize         int
	RetryInterval     time.Duration
	PendingAudioLimit int
	DeliveryTimeout   time.Duration
}

// Deps are the collaborators the orchestrator drives.
type Deps struct {
	Audio        ports.AudioCapture
	Recognizers  []ports.Recognizer
	Synthesizers []ports.Synthesizer
	Rules        ports.RulesEngine
	Clipboard    ports.Clipboard
	Paster       ports.Paster
	Settings     ports.SettingsSource
	Events       ports.EventSink
	Logger       *logger.Logger
}

// Orchestrator is the session mode state machine. All session state is mutated by
// the Run loop only; every other method posts work into it.
type Orchestrator struct {
	audio        ports.AudioCapture
	synthesizers []ports.Synthesizer
	clipboard    ports.Clipboard
	settings     ports.SettingsSource
	events       ports.EventSink
	finalizer    transcriptFinalizer
	fallback     *fallbackManager
	cfg          Config
	log          *logger.Logger

	inbox   chan func()
	done    chan struct{}
	running atomic.Bool
	status  atomic.Pointer[domain.Status]

	mode   domain.SessionMode
	stable domain.SessionMode
	stt    *sttSession
	tts    *ttsSession
}

func NewOrchestrator(deps Deps, cfg Config) *Orchestrator {
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaultRetryInterval
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = defaultDeliveryTimeout
	}
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}

	o := &Orchestrator{
		audio:        deps.Audio,
		synthesizers: deps.Synthesizers,
		clipboard:    deps.Clipboard,
		settings:     deps.Settings,
		events:       deps.Events,
		finalizer:    newTranscriptFinalizer(deps.Rules, deps.Clipboard, deps.Paster, deps.Events, log.Named("finalizer")),
		fallback:     newFallbackManager(deps.Recognizers, log.Named("fallback")),
		cfg:          cfg,
		log:          log,
		inbox:        make(chan func(), inboxSize),
		done:         make(chan struct{}),
		mode:         domain.ModeIdle,
		stable:       domain.ModeIdle,
	}
	o.updateStatus()
	return o
}

// Run processes activations, timers and backend callbacks until ctx is done.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		return errors.New("orchestrator already running")
	}
	defer close(o.done)

	o.log.Info("Orchestrator started")
	for {
		select {
		case <-ctx.Done():
			o.runTask(o.shutdown)
			o.log.Info("Orchestrator stopped")
			return ctx.Err()
		case task := <-o.inbox:
			o.runTask(task)
		}
	}
}

// Activate queues an activation signal. It never blocks; false means the signal was
// not queued.
func (o *Orchestrator) Activate(target domain.HotkeyTarget) bool {
	select {
	case <-o.done:
		return false
	default:
	}
	select {
	case o.inbox <- func() { o.onActivation(target) }:
		return true
	default:
		o.log.Warn("Activation dropped, inbox full", logger.String("target", string(target)))
		return false
	}
}

// Abort discards the active STT session without delivering a transcript.
func (o *Orchestrator) Abort(ctx context.Context) error {
	return o.call(ctx, o.abortStt)
}

// PauseSpeech pauses the active synthesis when the synthesizer supports it.
func (o *Orchestrator) PauseSpeech(ctx context.Context) error {
	return o.call(ctx, func() error {
		sess, err := o.pausableSpeech()
		if err != nil {
			return err
		}
		return sess.speech.Pause()
	})
}

// ResumeSpeech resumes a paused synthesis.
func (o *Orchestrator) ResumeSpeech(ctx context.Context) error {
	return o.call(ctx, func() error {
		sess, err := o.pausableSpeech()
		if err != nil {
			return err
		}
		return sess.speech.Resume()
	})
}

// SelectProvider records a manual provider change. It applies from the next session
// and resets provider health.
func (o *Orchestrator) SelectProvider(ctx context.Context, selection domain.ProviderSelection) error {
	return o.call(ctx, func() error {
		o.fallback.selectProvider(selection)
		o.log.Info("Provider selected", logger.String("selection", string(selection)))
		return nil
	})
}

// Status returns the latest published status snapshot.
func (o *Orchestrator) Status() domain.Status {
	return *o.status.Load()
}

func (o *Orchestrator) post(task func()) bool {
	select {
	case o.inbox <- task:
		return true
	case <-o.done:
		return false
	}
}

func (o *Orchestrator) call(ctx context.Context, fn func() error) error {
	reply := make(chan error, 1)
	if !o.post(func() { reply <- fn() }) {
		return ErrNotRunning
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-o.done:
		return ErrNotRunning
	}
}

func (o *Orchestrator) runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			o.recoverToIdle(fmt.Errorf("orchestrator panic: %v", r))
		}
	}()
	task()
}

// goSafe runs fn on its own goroutine. A panic is logged and, when recovered is set,
// converted into an error handled inside the loop.
func (o *Orchestrator) goSafe(name string, fn func(), recovered func(error)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("%s panicked: %v", name, r)
				o.log.Error("Background task panicked",
					logger.String("task", name),
					logger.Any("panic", r),
					logger.String("stack", string(debug.Stack())))
				if recovered != nil {
					o.post(func() { recovered(err) })
				}
			}
		}()
		fn()
	}()
}

func (o *Orchestrator) recoverToIdle(err error) {
	o.log.Error("Recovering to idle", logger.Error(err))
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("Panic during recovery", logger.Any("panic", r))
			o.stt, o.tts = nil, nil
			o.setMode(domain.ModeIdle, domain.SessionReasonInternalError)
		}
	}()

	if sess := o.stt; sess != nil {
		o.stt = nil
		if sess.backstop != nil {
			sess.backstop.Stop()
		}
		o.teardownStt(sess)
	}
	if sess := o.tts; sess != nil {
		o.tts = nil
		o.teardownTts(sess)
	}
	o.events.SessionError(domain.ErrorCodeInternal, err.Error())
	o.setMode(domain.ModeIdle, domain.SessionReasonInternalError)
}

func (o *Orchestrator) shutdown() {
	if sess := o.stt; sess != nil {
		o.stt = nil
		if sess.backstop != nil {
			sess.backstop.Stop()
		}
		o.teardownStt(sess)
	}
	if sess := o.tts; sess != nil {
		o.tts = nil
		o.teardownTts(sess)
	}
	o.setMode(domain.ModeIdle, domain.SessionReasonShutdown)
}

func (o *Orchestrator) onActivation(target domain.HotkeyTarget) {
	switch {
	case o.mode == domain.ModeIdle && target == domain.TargetSTT:
		o.startStt()
	case o.mode == domain.ModeIdle && target == domain.TargetTTS:
		o.startTts()
	case o.mode == domain.ModeSttListening && target == domain.TargetSTT:
		o.stopStt(o.stt, false)
	case o.mode == domain.ModeTtsSpeaking && target == domain.TargetTTS:
		o.stopTts()
	default:
		o.log.Debug("Activation dropped",
			logger.String("target", string(target)),
			logger.String("mode", string(o.mode)))
	}
}

func (o *Orchestrator) setMode(next domain.SessionMode, reason domain.SessionStateReason) {
	o.mode = next
	if next.Stable() && next != o.stable {
		old := o.stable
		o.stable = next
		o.log.Info("Mode changed",
			logger.String("from", string(old)),
			logger.String("to", string(next)),
			logger.String("reason", string(reason)))
		o.events.ModeChanged(old, next, reason)
	}
	o.updateStatus()
}

func (o *Orchestrator) updateStatus() {
	status := domain.Status{Mode: o.mode, Active: o.mode != domain.ModeIdle}
	switch {
	case o.stt != nil:
		status.SessionID = o.stt.id
		status.Provider = o.stt.provider
	case o.tts != nil:
		status.SessionID = o.tts.id
		if o.tts.synth != nil {
			status.Provider = o.tts.synth.ID()
		}
	}
	o.status.Store(&status)
}

func (o *Orchestrator) recognitionConfig(settings domain.SessionSettings) ports.RecognitionConfig {
	cfg := o.cfg.Recognition
	if settings.Language != "" {
		cfg.Language = settings.Language
	}
	return cfg
}

func (o *Orchestrator) startStt() {
	settings := o.settings.Snapshot()
	provider := o.fallback.beginSession(settings)
	steps := o.fallback.plan()
	recCfg := o.recognitionConfig(settings)
	registry := o.fallback.recognizers

	ctx, cancel := context.WithCancel(context.Background())
	sess := &sttSession{
		id:       uuid.NewString(),
		settings: settings,
		ctx:      ctx,
		cancel:   cancel,
		provider: provider,
	}
	o.stt = sess
	o.setMode(domain.ModeTransitioning, "")
	o.log.Debug("Starting dictation", logger.Session(sess.id), logger.String("provider", provider))

	o.goSafe("stt start", func() {
		st := sttStart{outcome: startRecognition(ctx, registry, steps, recCfg, o.cfg.RetryInterval)}
		if st.outcome.err == nil {
			st.audio, st.audioErr = o.audio.Start(ctx, o.cfg.Audio)
			st.capturedAt = time.Now()
		}
		o.post(func() { o.onSttStarted(sess, st) })
	}, func(err error) {
		o.onSttStarted(sess, sttStart{outcome: startOutcome{err: err}})
	})
}

func (o *Orchestrator) onSttStarted(sess *sttSession, st sttStart) {
	for _, f := range st.outcome.failures {
		o.fallback.recordFailure(f.provider, f.err)
	}

	if o.stt != sess {
		o.discardStart(st)
		return
	}

	if st.outcome.err != nil {
		o.stt = nil
		sess.cancel()
		o.events.SessionError(errorCodeFor(st.outcome.err), fmt.Sprintf("failed to start recognition: %v", st.outcome.err))
		o.setMode(domain.ModeIdle, domain.SessionReasonTranscriptionFailed)
		return
	}
	if st.audioErr != nil {
		o.stt = nil
		sess.cancel()
		o.closeRecognition(st.outcome.session)
		o.events.SessionError(domain.ErrorCodeStartup, fmt.Sprintf("failed to start audio capture: %v", st.audioErr))
		o.setMode(domain.ModeIdle, domain.SessionReasonTranscriptionFailed)
		return
	}

	o.fallback.adopt(st.outcome.provider)
	sess.audio = st.audio
	sess.capturedAt = st.capturedAt
	sess.reconciler = newTranscriptReconciler(reconcileModeFor(st.outcome.caps))
	sess.router = newAudioRouter(o.cfg.PendingAudioLimit, func(gen uint64, err error) {
		o.post(func() { o.onSendFailed(sess, gen, err) })
	})
	o.attachRecognition(sess, st.outcome)

	sess.pumpDone = make(chan struct{})
	audio, router, pumpDone := sess.audio, sess.router, sess.pumpDone
	o.goSafe("audio pump", func() {
		pumpAudioChunks(audio, router, o.cfg.ChunkSize, func(err error) {
			o.post(func() { o.onAudioFailed(sess, err) })
		}, pumpDone)
	}, func(err error) {
		o.onAudioFailed(sess, err)
	})

	ceiling := recordingCeiling(sess.settings.RecordingCeiling)
	sess.safety = newSafetyTimer(sess.capturedAt, ceiling, func() {
		o.post(func() { o.onCeiling(sess) })
	})

	o.setMode(domain.ModeSttListening, domain.SessionReasonRecordingStarted)
}

func (o *Orchestrator) attachRecognition(sess *sttSession, out startOutcome) {
	gen := sess.router.Detach()
	sess.gen = gen
	sess.recognition = out.session
	sess.provider = out.provider
	sess.caps = out.caps
	sess.reconciler.SwitchMode(reconcileModeFor(out.caps))
	sess.eventsDone = make(chan struct{})

	session, router, eventsDone := out.session, sess.router, sess.eventsDone
	o.goSafe("audio attach", func() { router.Attach(gen, session) }, nil)
	o.goSafe("recognition events", func() {
		defer close(eventsDone)
		for ev := range session.Events() {
			if !o.post(func() { o.onRecognitionEvent(sess, gen, ev) }) {
				return
			}
		}
		o.post(func() { o.onRecognitionEnded(sess, gen) })
	}, func(err error) {
		if o.stt == sess && gen == sess.gen {
			o.onRecognitionFailure(sess, domain.Transient(sess.provider, err))
		}
	})

	o.log.Info("Recognition attached",
		logger.Session(sess.id),
		logger.String("provider", out.provider),
		logger.String("reconcile", reconcileModeFor(out.caps).String()))
	o.updateStatus()
}

func (o *Orchestrator) discardStart(st sttStart) {
	audio, session := st.audio, st.outcome.session
	if audio == nil && session == nil {
		return
	}
	o.goSafe("discard start", func() {
		var errs error
		if audio != nil {
			errs = multierr.Append(errs, audio.Stop())
			errs = multierr.Append(errs, audio.Close())
		}
		if session != nil {
			errs = multierr.Append(errs, session.Close())
		}
		if errs != nil {
			o.log.Debug("Discarding late start reported errors", logger.Error(errs))
		}
	}, nil)
}

func (o *Orchestrator) closeRecognition(session ports.RecognitionSession) {
	if session == nil {
		return
	}
	o.goSafe("recognition close", func() {
		if err := session.Close(); err != nil {
			o.log.Debug("Recognition close failed", logger.Error(err))
		}
	}, nil)
}

func (o *Orchestrator) onRecognitionEvent(sess *sttSession, gen uint64, ev domain.RecognitionEvent) {
	if o.stt != sess || gen != sess.gen {
		return
	}
	if ev.Err != nil {
		o.onRecognitionFailure(sess, ev.Err)
		return
	}

	if displayed, changed := sess.reconciler.Apply(ev); changed {
		o.events.TranscriptUpdated(displayed, false)
	}
	if o.fallback.recordResult(ev, sess.caps) && o.mode == domain.ModeSttListening {
		o.restartRecognition(sess)
	}
}

func (o *Orchestrator) onRecognitionEnded(sess *sttSession, gen uint64) {
	if o.stt != sess || gen != sess.gen || o.mode != domain.ModeSttListening {
		return
	}
	o.onRecognitionFailure(sess, domain.Transient(sess.provider, errStreamEnded))
}

func (o *Orchestrator) onSendFailed(sess *sttSession, gen uint64, err error) {
	if o.stt != sess || gen != sess.gen {
		return
	}
	o.onRecognitionFailure(sess, domain.Transient(sess.provider, err))
}

func (o *Orchestrator) onRecognitionFailure(sess *sttSession, err error) {
	if o.mode != domain.ModeSttListening {
		o.log.Debug("Recognition error while draining", logger.Session(sess.id), logger.Error(err))
		return
	}
	if domain.IsFatal(err) {
		o.fallback.recordFailure(sess.provider, err)
		o.failStt(sess, err)
		return
	}

	switch o.fallback.recordFailure(sess.provider, err) {
	case outcomeRetry, outcomeSwitched:
		o.restartRecognition(sess)
	case outcomeExhausted:
		o.failStt(sess, err)
	}
}

// restartRecognition replaces the recognition session mid-recording. Audio captured
// meanwhile is buffered by the router and the reconciler keeps its finalized text.
func (o *Orchestrator) restartRecognition(sess *sttSession) {
	old := sess.recognition
	gen := sess.router.Detach()
	sess.gen = gen
	sess.recognition = nil
	o.closeRecognition(old)

	steps := o.fallback.plan()
	recCfg := o.recognitionConfig(sess.settings)
	registry := o.fallback.recognizers
	ctx := sess.ctx
	o.log.Info("Restarting recognition", logger.Session(sess.id), logger.String("provider", o.fallback.active()))

	o.goSafe("recognition restart", func() {
		out := startRecognition(ctx, registry, steps, recCfg, o.cfg.RetryInterval)
		o.post(func() { o.onRecognitionRestarted(sess, gen, out) })
	}, func(err error) {
		o.onRecognitionRestarted(sess, gen, startOutcome{err: err})
	})
}

func (o *Orchestrator) onRecognitionRestarted(sess *sttSession, gen uint64, out startOutcome) {
	for _, f := range out.failures {
		o.fallback.recordFailure(f.provider, f.err)
	}
	if o.stt != sess || gen != sess.gen || o.mode != domain.ModeSttListening {
		o.closeRecognition(out.session)
		return
	}
	if out.err != nil {
		o.failStt(sess, out.err)
		return
	}
	o.fallback.adopt(out.provider)
	o.attachRecognition(sess, out)
}

func (o *Orchestrator) onAudioFailed(sess *sttSession, err error) {
	if o.stt != sess {
		return
	}
	o.events.SessionError(domain.ErrorCodeAudioStream, err.Error())
	if o.mode == domain.ModeSttListening {
		o.stopStt(sess, false)
	}
}

// failStt surfaces an unrecoverable backend error and finishes the session with
// whatever transcript was reconciled so far.
func (o *Orchestrator) failStt(sess *sttSession, err error) {
	o.log.Error("Recognition failed", logger.Session(sess.id), logger.Error(err))
	o.events.SessionError(errorCodeFor(err), err.Error())
	sess.failure = err

	if sess.recognition != nil {
		old := sess.recognition
		sess.gen = sess.router.Detach()
		sess.recognition = nil
		o.closeRecognition(old)
	}
	o.stopStt(sess, false)
}

func (o *Orchestrator) onCeiling(sess *sttSession) {
	if o.stt != sess || o.mode != domain.ModeSttListening {
		return
	}
	o.log.Info("Recording ceiling reached", logger.Session(sess.id))
	o.stopStt(sess, true)
}

// stopStt is the single stop path for manual stop, ceiling expiry and failures.
func (o *Orchestrator) stopStt(sess *sttSession, timedOut bool) {
	if sess == nil || o.stt != sess || o.mode != domain.ModeSttListening {
		return
	}
	sess.safety.Stop()
	sess.timedOut = timedOut

	reason := domain.SessionReasonTranscribing
	if timedOut {
		reason = domain.SessionReasonSafetyTimeout
	}
	o.setMode(domain.ModeSttProcessing, reason)

	drain := sess.settings.DrainTimeout
	if drain <= 0 {
		drain = defaultDrainTimeout
	}
	sess.backstop = time.AfterFunc(drain, func() {
		o.post(func() { o.onDrainExpired(sess) })
	})

	audio, pumpDone := sess.audio, sess.pumpDone
	recognition, eventsDone := sess.recognition, sess.eventsDone
	grace := sess.settings.StreamingGrace
	o.goSafe("stt drain", func() {
		ctx, cancel := context.WithTimeout(context.Background(), drain)
		defer cancel()
		res := drainRecognition(ctx, audio, pumpDone, recognition, eventsDone, grace)
		o.post(func() { o.onDrained(sess, res) })
	}, func(err error) {
		o.onDrained(sess, drainResult{stopErr: err})
	})
}

// drainRecognition stops capture, lets the pump flush, then asks the backend for its
// final result. Every wait is bounded by ctx.
func drainRecognition(
	ctx context.Context,
	audio ports.AudioSession,
	pumpDone <-chan struct{},
	recognition ports.RecognitionSession,
	eventsDone <-chan struct{},
	grace time.Duration,
) drainResult {
	var res drainResult
	if audio != nil {
		res.audioErr = audio.Stop()
	}
	waitDone(ctx, pumpDone)
	if recognition == nil {
		return res
	}

	if grace > 0 {
		timer := time.NewTimer(grace)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}

	res.event, res.stopErr = recognition.Stop(ctx)
	waitDone(ctx, eventsDone)
	return res
}

func waitDone(ctx context.Context, done <-chan struct{}) {
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (o *Orchestrator) onDrained(sess *sttSession, res drainResult) {
	if o.stt != sess {
		return
	}
	if res.audioErr != nil {
		o.events.SessionError(domain.ErrorCodeAudioStop, "failed to stop audio capture cleanly")
	}
	if res.stopErr != nil {
		o.log.Warn("Recognition stop failed", logger.Session(sess.id), logger.Error(res.stopErr))
	}
	o.finishStt(sess, res.event, res.stopErr)
}

func (o *Orchestrator) onDrainExpired(sess *sttSession) {
	if o.stt != sess {
		return
	}
	o.log.Warn("Drain timeout reached, delivering what was recognized", logger.Session(sess.id))
	o.finishStt(sess, domain.RecognitionEvent{}, nil)
}

func (o *Orchestrator) finishStt(sess *sttSession, stop domain.RecognitionEvent, stopErr error) {
	if sess.backstop != nil {
		sess.backstop.Stop()
	}
	o.stt = nil
	raw := sess.reconciler.Finalize(stop)
	o.teardownStt(sess)

	if raw == "" {
		switch {
		case sess.failure != nil:
			o.setMode(domain.ModeIdle, domain.SessionReasonTranscriptionFailed)
		case stopErr != nil:
			o.events.SessionError(domain.ErrorCodeTranscription, stopErr.Error())
			o.setMode(domain.ModeIdle, domain.SessionReasonTranscriptionFailed)
		default:
			o.setMode(domain.ModeIdle, domain.SessionReasonNoTranscript)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.DeliveryTimeout)
	defer cancel()
	result, reason, err := o.finalizer.Finalize(ctx, raw, sess.settings.AutoPaste)
	if err == nil {
		result.SessionID = sess.id
		result.Provider = sess.provider
		result.Duration = time.Since(sess.capturedAt)
		result.TimedOut = sess.timedOut
		o.log.Info("Transcript delivered",
			logger.Session(result.SessionID),
			logger.String("provider", result.Provider),
			logger.Int("chars", len(result.FinalTranscript)),
			logger.Duration("duration", result.Duration),
			logger.Bool("timed_out", result.TimedOut),
			logger.Bool("copied", result.Copied))
	}
	o.setMode(domain.ModeIdle, reason)
}

func (o *Orchestrator) abortStt() error {
	sess := o.stt
	if sess == nil {
		return ErrNoActiveSession
	}
	if sess.backstop != nil {
		sess.backstop.Stop()
	}
	o.stt = nil
	o.teardownStt(sess)
	o.log.Info("Dictation discarded", logger.Session(sess.id))
	o.setMode(domain.ModeIdle, domain.SessionReasonRecordingDiscarded)
	return nil
}

func (o *Orchestrator) teardownStt(sess *sttSession) {
	sess.cancel()
	sess.safety.Stop()
	if sess.router != nil {
		if dropped := sess.router.Close(); dropped > 0 {
			o.log.Warn("Buffered audio dropped", logger.Session(sess.id), logger.Int("bytes", dropped))
		}
	}

	audio, recognition := sess.audio, sess.recognition
	sess.recognition = nil
	if audio == nil && recognition == nil {
		return
	}
	o.goSafe("stt teardown", func() {
		var errs error
		if audio != nil {
			errs = multierr.Append(errs, audio.Stop())
			errs = multierr.Append(errs, audio.Close())
		}
		if recognition != nil {
			errs = multierr.Append(errs, recognition.Close())
		}
		if errs != nil {
			o.log.Debug("Session teardown reported errors", logger.Error(errs))
		}
	}, nil)
}

func errorCodeFor(err error) domain.ErrorCode {
	var backendErr *domain.BackendError
	if errors.As(err, &backendErr) {
		return domain.ErrorCodeProvider
	}
	return domain.ErrorCodeTranscription
}
