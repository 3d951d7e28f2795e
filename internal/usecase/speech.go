package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"voxkey/internal/domain"
	"voxkey/internal/logger"
)

const speechStopTimeout = 2 * time.Second

var errNoSynthesizer = errors.New("no speech synthesizer configured")

func (o *Orchestrator) startTts() {
	ctx, cancel := context.WithCancel(context.Background())
	sess := &ttsSession{id: uuid.NewString(), ctx: ctx, cancel: cancel}
	o.tts = sess
	o.setMode(domain.ModeTransitioning, "")

	o.goSafe("tts start", func() {
		st := o.beginSpeech(ctx)
		o.post(func() { o.onTtsStarted(sess, st) })
	}, func(err error) {
		o.onTtsStarted(sess, speechStart{err: err})
	})
}

// beginSpeech snapshots the clipboard and starts the first synthesizer that accepts it.
func (o *Orchestrator) beginSpeech(ctx context.Context) speechStart {
	text, err := o.clipboard.GetText(ctx)
	if err != nil {
		return speechStart{err: fmt.Errorf("failed to read clipboard: %w", err)}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return speechStart{err: domain.ErrNothingToSpeak}
	}
	if len(o.synthesizers) == 0 {
		return speechStart{err: errNoSynthesizer}
	}

	var errs error
	for _, synth := range o.synthesizers {
		speech, err := synth.Speak(ctx, text)
		if err == nil {
			return speechStart{synth: synth, speech: speech}
		}
		o.log.Warn("Synthesizer failed to start", logger.String("synthesizer", synth.ID()), logger.Error(err))
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", synth.ID(), err))
		if ctx.Err() != nil {
			break
		}
	}
	return speechStart{err: errs}
}

func (o *Orchestrator) onTtsStarted(sess *ttsSession, st speechStart) {
	if o.tts != sess {
		if st.speech != nil {
			speech := st.speech
			o.goSafe("discard speech", func() { _ = speech.Stop() }, nil)
		}
		return
	}
	if st.err != nil {
		o.tts = nil
		sess.cancel()
		o.events.SessionError(domain.ErrorCodeSynthesis, st.err.Error())
		o.setMode(domain.ModeIdle, domain.SessionReasonSynthesisFailed)
		return
	}

	sess.synth = st.synth
	sess.speech = st.speech
	speech := st.speech
	o.goSafe("speech events", func() {
		for ev := range speech.Events() {
			if !o.post(func() { o.onSpeechEvent(sess, ev) }) {
				return
			}
		}
		o.post(func() { o.onSpeechEnded(sess) })
	}, func(err error) {
		o.onSpeechEvent(sess, domain.SynthesisEvent{Err: err})
	})

	o.log.Info("Speaking clipboard", logger.Session(sess.id), logger.String("synthesizer", sess.synth.ID()))
	o.setMode(domain.ModeTtsSpeaking, domain.SessionReasonSpeakingStarted)
}

func (o *Orchestrator) onSpeechEvent(sess *ttsSession, ev domain.SynthesisEvent) {
	if o.tts != sess {
		return
	}
	if ev.Err != nil {
		o.events.SessionError(domain.ErrorCodeSynthesis, ev.Err.Error())
		o.finishTts(sess, domain.SessionReasonSynthesisFailed)
		return
	}
	o.events.SpeechProgress(ev)
	if ev.Kind == domain.SynthesisCompleted {
		o.finishTts(sess, domain.SessionReasonSpeakingFinished)
	}
}

func (o *Orchestrator) onSpeechEnded(sess *ttsSession) {
	if o.tts != sess {
		return
	}
	reason := domain.SessionReasonSpeakingFinished
	if sess.stopping {
		reason = domain.SessionReasonSpeakingStopped
	}
	o.finishTts(sess, reason)
}

// stopTts asks the synthesizer to stop and waits a bounded time for it.
func (o *Orchestrator) stopTts() {
	sess := o.tts
	if sess == nil || sess.stopping {
		return
	}
	sess.stopping = true
	o.setMode(domain.ModeTransitioning, "")

	sess.backstop = time.AfterFunc(speechStopTimeout, func() {
		o.post(func() { o.onTtsStopped(sess) })
	})
	speech := sess.speech
	o.goSafe("speech stop", func() {
		if err := speech.Stop(); err != nil {
			o.log.Warn("Speech stop failed", logger.Session(sess.id), logger.Error(err))
		}
		o.post(func() { o.onTtsStopped(sess) })
	}, func(error) {
		o.onTtsStopped(sess)
	})
}

func (o *Orchestrator) onTtsStopped(sess *ttsSession) {
	if o.tts != sess {
		return
	}
	o.finishTts(sess, domain.SessionReasonSpeakingStopped)
}

func (o *Orchestrator) finishTts(sess *ttsSession, reason domain.SessionStateReason) {
	if sess.backstop != nil {
		sess.backstop.Stop()
	}
	o.tts = nil
	sess.cancel()
	o.setMode(domain.ModeIdle, reason)
}

func (o *Orchestrator) teardownTts(sess *ttsSession) {
	if sess.backstop != nil {
		sess.backstop.Stop()
	}
	sess.cancel()
	if speech := sess.speech; speech != nil && !sess.stopping {
		o.goSafe("speech teardown", func() { _ = speech.Stop() }, nil)
	}
}

func (o *Orchestrator) pausableSpeech() (*ttsSession, error) {
	sess := o.tts
	if sess == nil || o.mode != domain.ModeTtsSpeaking || sess.speech == nil {
		return nil, ErrNoActiveSpeech
	}
	if !sess.synth.SupportsPause() {
		return nil, ErrPauseUnsupported
	}
	return sess, nil
}
