package whisper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"

	"voxkey/internal/audio"
	"voxkey/internal/domain"
	"voxkey/internal/logger"
	"voxkey/internal/ports"
)

// ProviderID is the registry key of the offline recognizer.
const ProviderID = "whisper"

const (
	defaultInterval = 1500 * time.Millisecond
	// Passes over less audio than this produce noise rather than words.
	minPassDuration = 300 * time.Millisecond
)

var (
	errModelMissing   = errors.New("whisper model is not configured")
	errSessionStopped = errors.New("whisper session is stopped")
)

// TranscribeFunc turns a WAV file into text.
type TranscribeFunc func(ctx context.Context, wavPath string) (string, error)

// Config controls the whisper.cpp command line.
type Config struct {
	Command   string
	ModelPath string
	Language  string
	Threads   int
	Interval  time.Duration
	TempDir   string
}

// Recognizer implements ports.Recognizer on top of whisper.cpp. It has no native
// streaming: every interval the whole buffered utterance is transcribed again and
// the result replaces the previous interim.
type Recognizer struct {
	cfg        Config
	log        *logger.Logger
	transcribe TranscribeFunc
}

// Option customizes a Recognizer.
type Option func(*Recognizer)

// WithTranscriber replaces the whisper.cpp invocation.
func WithTranscriber(fn TranscribeFunc) Option {
	return func(r *Recognizer) { r.transcribe = fn }
}

func NewRecognizer(cfg Config, log *logger.Logger, opts ...Option) *Recognizer {
	if cfg.Command == "" {
		cfg.Command = "whisper-cli"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if log == nil {
		log = logger.NewNop()
	}
	r := &Recognizer{cfg: cfg, log: log}
	r.transcribe = r.runWhisper
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Recognizer) ID() string {
	return ProviderID
}

func (r *Recognizer) Capabilities() ports.RecognizerCapabilities {
	return ports.RecognizerCapabilities{}
}

func (r *Recognizer) Start(ctx context.Context, cfg ports.RecognitionConfig) (ports.RecognitionSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.Language == "" {
		cfg.Language = r.cfg.Language
	}

	dir, err := os.MkdirTemp(r.cfg.TempDir, "voxkey-whisper-*")
	if err != nil {
		return nil, domain.Transient(ProviderID, fmt.Errorf("failed to create scratch dir: %w", err))
	}

	s := &session{
		rec:      r,
		cfg:      cfg,
		dir:      dir,
		events:   make(chan domain.RecognitionEvent, 16),
		stopLoop: make(chan struct{}),
		loopDone: make(chan struct{}),
		closed:   make(chan struct{}),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	go s.loop(r.cfg.Interval)
	return s, nil
}

func (r *Recognizer) runWhisper(ctx context.Context, wavPath string) (string, error) {
	if strings.TrimSpace(r.cfg.ModelPath) == "" {
		return "", errModelMissing
	}
	if _, err := os.Stat(r.cfg.ModelPath); err != nil {
		return "", fmt.Errorf("whisper model unavailable: %w", err)
	}

	args := []string{"-m", r.cfg.ModelPath, "-f", wavPath, "-nt", "-np"}
	if lang := languageCode(r.cfg.Language); lang != "" {
		args = append(args, "-l", lang)
	}
	if r.cfg.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(r.cfg.Threads))
	}

	cmd := exec.CommandContext(ctx, r.cfg.Command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s failed: %w: %s", r.cfg.Command, err, strings.TrimSpace(stderr.String()))
	}
	return parseOutput(stdout.String()), nil
}

// languageCode reduces a locale such as en-US to the code whisper expects.
func languageCode(language string) string {
	language = strings.TrimSpace(strings.ToLower(language))
	if i := strings.IndexAny(language, "-_"); i > 0 {
		language = language[:i]
	}
	return language
}

var (
	timestampPrefix = regexp.MustCompile(`^\[[0-9:.]+\s*-->\s*[0-9:.]+\]\s*`)
	nonSpeechMarker = regexp.MustCompile(`\[[A-Z_ ]+\]|\([a-z ]+\)`)
)

// parseOutput joins whisper's line-per-segment output into one transcript.
func parseOutput(raw string) string {
	var parts []string
	for _, line := range strings.Split(raw, "\n") {
		line = timestampPrefix.ReplaceAllString(strings.TrimSpace(line), "")
		line = strings.TrimSpace(nonSpeechMarker.ReplaceAllString(line, ""))
		if line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

type session struct {
	rec *Recognizer
	cfg ports.RecognitionConfig
	dir string

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	pcm      []byte
	passed   int
	passes   int
	stopped  bool
	lastText string

	events   chan domain.RecognitionEvent
	stopLoop chan struct{}
	loopDone chan struct{}
	closed   chan struct{}

	stopOnce   sync.Once
	eventsOnce sync.Once
	closeOnce  sync.Once
	closeErr   error
}

func (s *session) SendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return errSessionStopped
	}
	s.pcm = append(s.pcm, chunk...)
	return nil
}

func (s *session) Events() <-chan domain.RecognitionEvent {
	return s.events
}

// Stop ends interim passes and transcribes the complete utterance once more.
func (s *session) Stop(ctx context.Context) (domain.RecognitionEvent, error) {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.stopOnce.Do(func() { close(s.stopLoop) })

	select {
	case <-s.loopDone:
	case <-ctx.Done():
		s.cancel()
		go func() {
			<-s.loopDone
			s.closeEvents()
		}()
		return domain.RecognitionEvent{IsFinal: true, Text: s.latest()}, ctx.Err()
	}
	defer s.closeEvents()

	text, err := s.pass(ctx, true)
	if err != nil {
		return domain.RecognitionEvent{IsFinal: true, Text: s.latest()}, domain.Transient(ProviderID, err)
	}
	return domain.RecognitionEvent{
		Text:               text,
		IsFinal:            true,
		IsSegmentFinalized: true,
		Timestamp:          time.Now(),
	}, nil
}

func (s *session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
		s.cancel()
		close(s.closed)
		s.stopOnce.Do(func() { close(s.stopLoop) })
		<-s.loopDone
		s.closeEvents()
		s.closeErr = os.RemoveAll(s.dir)
	})
	return s.closeErr
}

func (s *session) closeEvents() {
	s.eventsOnce.Do(func() { close(s.events) })
}

func (s *session) latest() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastText
}

func (s *session) loop(interval time.Duration) {
	defer close(s.loopDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopLoop:
			return
		case <-ticker.C:
		}

		text, err := s.pass(s.ctx, false)
		switch {
		case err != nil:
			if s.ctx.Err() != nil {
				return
			}
			s.rec.log.Warn("Interim whisper pass failed", logger.Error(err))
			s.emit(domain.RecognitionEvent{Err: domain.Transient(ProviderID, err), Timestamp: time.Now()})
			return
		case text != "":
			s.emit(domain.RecognitionEvent{Text: text, Timestamp: time.Now()})
		}
	}
}

func (s *session) emit(ev domain.RecognitionEvent) {
	select {
	case s.events <- ev:
	case <-s.stopLoop:
	case <-s.closed:
	}
}

// pass transcribes everything buffered so far. Interim passes are skipped while
// no new audio has arrived.
func (s *session) pass(ctx context.Context, final bool) (string, error) {
	s.mu.Lock()
	pcm := s.pcm[:len(s.pcm):len(s.pcm)]
	fresh := len(pcm) > s.passed
	s.passed = len(pcm)
	s.passes++
	n := s.passes
	s.mu.Unlock()

	if !fresh && !final {
		return "", nil
	}
	if len(pcm) < s.minPassBytes() {
		if final {
			return s.latest(), nil
		}
		return "", nil
	}

	path := filepath.Join(s.dir, fmt.Sprintf("pass-%03d.wav", n))
	text, err := s.transcribeFile(ctx, path, pcm)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	unchanged := text == s.lastText
	s.lastText = text
	s.mu.Unlock()
	if unchanged && !final {
		return "", nil
	}
	return text, nil
}

func (s *session) transcribeFile(ctx context.Context, path string, pcm []byte) (text string, err error) {
	if err := audio.WriteWAVFile(path, evenLength(pcm), s.cfg.SampleRate, s.cfg.Channels); err != nil {
		return "", err
	}
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			err = multierr.Append(err, rmErr)
		}
	}()
	return s.rec.transcribe(ctx, path)
}

func (s *session) minPassBytes() int {
	bytesPerSecond := s.cfg.SampleRate * s.cfg.Channels * 2
	return int(time.Duration(bytesPerSecond) * minPassDuration / time.Second)
}

func evenLength(pcm []byte) []byte {
	return pcm[:len(pcm)&^1]
}
