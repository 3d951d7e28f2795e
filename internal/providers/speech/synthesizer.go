package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"voxkey/internal/domain"
	"voxkey/internal/logger"
	"voxkey/internal/ports"
)

var errEmptyText = errors.New("nothing to speak")

// Config selects the speech command and its voice.
type Config struct {
	ID      string
	Command string
	Voice   string
	// Rate is in words per minute; zero keeps the engine default.
	Rate int
}

// DefaultCommand returns the speech engine shipped with the platform.
func DefaultCommand(goos string) string {
	if goos == "darwin" {
		return "say"
	}
	return "espeak-ng"
}

// CommandSynthesizer implements ports.Synthesizer by running a speech command once
// per sentence, which gives sentence-level progress and a stop point between sentences.
type CommandSynthesizer struct {
	cfg Config
	log *logger.Logger
}

func NewCommandSynthesizer(cfg Config, log *logger.Logger) *CommandSynthesizer {
	if cfg.Command == "" {
		cfg.Command = DefaultCommand(runtime.GOOS)
	}
	if cfg.ID == "" {
		cfg.ID = cfg.Command
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &CommandSynthesizer{cfg: cfg, log: log}
}

func (s *CommandSynthesizer) ID() string {
	return s.cfg.ID
}

func (s *CommandSynthesizer) SupportsPause() bool {
	return pauseSupported
}

func (s *CommandSynthesizer) Speak(ctx context.Context, text string) (ports.SpeechSession, error) {
	spans := splitSentences(text)
	if len(spans) == 0 {
		return nil, errEmptyText
	}
	if _, err := exec.LookPath(s.cfg.Command); err != nil {
		return nil, fmt.Errorf("speech command unavailable: %w", err)
	}

	sctx, cancel := context.WithCancel(ctx)
	sess := &speechSession{
		synth:   s,
		ctx:     sctx,
		cancel:  cancel,
		total:   len(text),
		spans:   spans,
		events:  make(chan domain.SynthesisEvent, len(spans)+1),
		done:    make(chan struct{}),
		resumed: make(chan struct{}),
	}
	close(sess.resumed)
	go sess.run()
	return sess, nil
}

func (s *CommandSynthesizer) args(sentence string) []string {
	var args []string
	if s.cfg.Voice != "" {
		args = append(args, "-v", s.cfg.Voice)
	}
	if s.cfg.Rate > 0 {
		flag := "-s"
		if s.cfg.Command == "say" {
			flag = "-r"
		}
		args = append(args, flag, strconv.Itoa(s.cfg.Rate))
	}
	return append(args, "--", sentence)
}

type span struct {
	offset int
	text   string
}

var sentencePattern = regexp.MustCompile(`[^.!?\n]+[.!?]*`)

func splitSentences(text string) []span {
	var spans []span
	for _, loc := range sentencePattern.FindAllStringIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		lead := len(raw) - len(strings.TrimLeft(raw, " \t\r"))
		spans = append(spans, span{offset: loc[0] + lead, text: trimmed})
	}
	return spans
}

type speechSession struct {
	synth  *CommandSynthesizer
	ctx    context.Context
	cancel context.CancelFunc

	total int
	spans []span

	events chan domain.SynthesisEvent
	done   chan struct{}

	mu      sync.Mutex
	current *os.Process
	paused  bool
	resumed chan struct{}
}

func (s *speechSession) Events() <-chan domain.SynthesisEvent {
	return s.events
}

// Stop kills the running sentence and waits for the session to wind down.
func (s *speechSession) Stop() error {
	s.mu.Lock()
	if s.paused {
		if s.current != nil {
			_ = resume(s.current)
		}
		s.paused = false
		close(s.resumed)
	}
	s.mu.Unlock()
	s.cancel()
	<-s.done
	return nil
}

func (s *speechSession) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused {
		return nil
	}
	if s.current != nil {
		if err := suspend(s.current); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return err
		}
	}
	s.paused = true
	s.resumed = make(chan struct{})
	return nil
}

func (s *speechSession) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.paused {
		return nil
	}
	if s.current != nil {
		if err := resume(s.current); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return err
		}
	}
	s.paused = false
	close(s.resumed)
	return nil
}

func (s *speechSession) run() {
	defer close(s.done)
	defer close(s.events)

	for _, sp := range s.spans {
		if !s.waitResumed() {
			return
		}
		s.events <- domain.SynthesisEvent{
			Kind:     domain.SynthesisProgress,
			Offset:   sp.offset,
			Length:   len(sp.text),
			Progress: float64(sp.offset) / float64(s.total),
		}
		if err := s.speak(sp.text); err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.events <- domain.SynthesisEvent{Err: err}
			return
		}
	}
	s.events <- domain.SynthesisEvent{Kind: domain.SynthesisCompleted, Offset: s.total, Progress: 1}
}

func (s *speechSession) waitResumed() bool {
	s.mu.Lock()
	resumed := s.resumed
	s.mu.Unlock()
	select {
	case <-resumed:
		return s.ctx.Err() == nil
	case <-s.ctx.Done():
		return false
	}
}

func (s *speechSession) speak(sentence string) error {
	cmd := exec.CommandContext(s.ctx, s.synth.cfg.Command, s.synth.args(sentence)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", s.synth.cfg.Command, err)
	}

	s.mu.Lock()
	s.current = cmd.Process
	if s.paused {
		_ = suspend(cmd.Process)
	}
	s.mu.Unlock()

	err := cmd.Wait()

	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("%s failed: %w: %s", s.synth.cfg.Command, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
