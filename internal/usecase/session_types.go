package usecase

import (
	"context"
	"time"

	"voxkey/internal/domain"
	"voxkey/internal/ports"
)

// sttSession is owned by the orchestrator loop. Goroutines only receive copies of
// the fields they need.
type sttSession struct {
	id       string
	settings domain.SessionSettings
	ctx      context.Context
	cancel   context.CancelFunc

	audio      ports.AudioSession
	capturedAt time.Time
	router     *audioRouter
	pumpDone   chan struct{}

	recognition ports.RecognitionSession
	provider    string
	caps        ports.RecognizerCapabilities
	gen         uint64
	eventsDone  chan struct{}

	reconciler *transcriptReconciler
	safety     *safetyTimer
	backstop   *time.Timer

	timedOut bool
	failure  error
}

type sttStart struct {
	outcome    startOutcome
	audio      ports.AudioSession
	audioErr   error
	capturedAt time.Time
}

type drainResult struct {
	event    domain.RecognitionEvent
	audioErr error
	stopErr  error
}

type ttsSession struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc

	synth    ports.Synthesizer
	speech   ports.SpeechSession
	backstop *time.Timer
	stopping bool
}

type speechStart struct {
	synth  ports.Synthesizer
	speech ports.SpeechSession
	err    error
}
