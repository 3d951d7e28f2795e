package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"

	"voxkey/internal/logger"
	"voxkey/internal/ports"
)

const (
	defaultStartupProbe = 250 * time.Millisecond
	interruptGrace      = 1200 * time.Millisecond
)

// FFmpegCapture streams microphone PCM (s16le) by running ffmpeg.
type FFmpegCapture struct {
	command      string
	log          *logger.Logger
	startupProbe time.Duration
}

func NewFFmpegCapture(command string, log *logger.Logger) *FFmpegCapture {
	if command == "" {
		command = "ffmpeg"
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &FFmpegCapture{command: command, log: log, startupProbe: defaultStartupProbe}
}

func (c *FFmpegCapture) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	cfg = withCaptureDefaults(cfg, runtime.GOOS)
	cmd := exec.CommandContext(ctx, c.command, captureArgs(cfg)...)
	stderr := &lockedBuffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	// A device that cannot be opened makes ffmpeg exit almost immediately.
	select {
	case err := <-waitErr:
		if err != nil {
			return nil, fmt.Errorf("ffmpeg exited before capture started: %w: %s", err, stderr.Trimmed())
		}
		return nil, errors.New("ffmpeg exited before capture started")
	case <-time.After(c.startupProbe):
	}

	c.log.Debug("Microphone capture started",
		logger.String("format", cfg.InputFormat),
		logger.String("device", cfg.InputDevice),
		logger.Int("sample_rate", cfg.SampleRate))

	return &ffmpegSession{
		stdout:  stdout,
		stderr:  stderr,
		process: cmd.Process,
		waitErr: waitErr,
		log:     c.log,
	}, nil
}

func withCaptureDefaults(cfg ports.AudioConfig, goos string) ports.AudioConfig {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.InputFormat == "" {
		switch goos {
		case "darwin":
			cfg.InputFormat = "avfoundation"
		case "windows":
			cfg.InputFormat = "dshow"
		default:
			cfg.InputFormat = "pulse"
		}
	}
	if cfg.InputDevice == "" {
		switch cfg.InputFormat {
		case "avfoundation":
			cfg.InputDevice = ":0"
		case "dshow":
			cfg.InputDevice = "audio=default"
		default:
			cfg.InputDevice = "default"
		}
	}
	return cfg
}

func captureArgs(cfg ports.AudioConfig) []string {
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", "s16le",
		"-",
	}
}

type ffmpegSession struct {
	stdout io.ReadCloser
	stderr *lockedBuffer
	log    *logger.Logger

	process *os.Process
	waitErr <-chan error

	stopOnce sync.Once
	stopErr  error
}

func (s *ffmpegSession) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *ffmpegSession) Close() error {
	return s.Stop()
}

// Stop interrupts ffmpeg so it flushes, then kills it if it does not exit in time.
func (s *ffmpegSession) Stop() error {
	s.stopOnce.Do(func() {
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		var err error
		select {
		case exitErr, ok := <-s.waitErr:
			if ok {
				err = normalizeStopErr(exitErr)
			}
		case <-time.After(interruptGrace):
			s.log.Warn("ffmpeg ignored interrupt, killing")
			if s.process != nil {
				_ = s.process.Kill()
			}
			if exitErr, ok := <-s.waitErr; ok {
				err = normalizeStopErr(exitErr)
			}
		}

		if closeErr := s.stdout.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			err = multierr.Append(err, closeErr)
		}
		if err != nil {
			if detail := s.stderr.Trimmed(); detail != "" {
				err = fmt.Errorf("%w: %s", err, detail)
			}
		}
		s.stopErr = err
	})

	return s.stopErr
}

// normalizeStopErr drops the non-zero exit status ffmpeg reports after an interrupt.
func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Trimmed() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(b.buf.String())
}
