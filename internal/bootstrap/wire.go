package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"voxkey/internal/activation"
	"voxkey/internal/audio"
	"voxkey/internal/config"
	"voxkey/internal/desktop"
	"voxkey/internal/domain"
	"voxkey/internal/keyhook"
	"voxkey/internal/logger"
	"voxkey/internal/ports"
	"voxkey/internal/providers/deepgram"
	"voxkey/internal/providers/speech"
	"voxkey/internal/providers/whisper"
	"voxkey/internal/rules"
	"voxkey/internal/usecase"
)

// Options adjusts how the runtime graph is built.
type Options struct {
	// ConfigPath names an explicit config file; empty uses config.Load.
	ConfigPath string
	// LogLevel overrides the configured log level when set.
	LogLevel string
	// NewHook builds the OS-level hotkey hook that feeds the key hub. Nil runs
	// without global hotkeys.
	NewHook func(log *logger.Logger) Hook
}

// Hook is an OS-level hotkey source.
type Hook interface {
	Register(cfg domain.HotkeyConfiguration) error
	Run(ctx context.Context, publish func(domain.KeyEvent)) error
}

// Services is the assembled runtime graph.
type Services struct {
	Orchestrator *usecase.Orchestrator
	Settings     *config.Store
	Hub          *keyhook.Hub
	Config       config.Config
	Logger       *logger.Logger

	events    ports.EventSink
	hook      Hook
	detectors *detectorSet
}

// Build wires all backend dependencies for the current runtime. A nil eventSink
// logs events and raises desktop notifications; a nil clipboard uses the system one.
func Build(eventSink ports.EventSink, clipboard ports.Clipboard, opts Options) (*Services, error) {
	var (
		cfg config.Config
		err error
	)
	if opts.ConfigPath != "" {
		cfg, err = config.LoadFile(opts.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	rulesEngine, err := rules.NewEngine(rules.Config{
		Path:              cfg.Rules.Path,
		Substitutions:     cfg.Rules.Substitutions,
		DictationCommands: cfg.Rules.DictationCommands,
		LoopLimit:         cfg.Rules.IterationLimit,
	}, log.Named("rules"))
	if err != nil {
		return nil, err
	}

	if eventSink == nil {
		eventSink = desktop.NewNotifier(desktop.NewLogSink(log.Named("events")), "", log.Named("notify"))
	}
	if clipboard == nil {
		clipboard = desktop.NewClipboard()
	}

	store := config.NewStore(cfg.SessionSettings())
	orchestrator := usecase.NewOrchestrator(
		usecase.Deps{
			Audio:        audio.NewFFmpegCapture(cfg.Audio.RecorderCommand, log.Named("audio")),
			Recognizers:  recognizers(cfg, log),
			Synthesizers: synthesizers(cfg, log),
			Rules:        rulesEngine,
			Clipboard:    clipboard,
			Paster:       desktop.NewPaster(log.Named("paste")),
			Settings:     store,
			Events:       eventSink,
			Logger:       log.Named("orchestrator"),
		},
		usecase.Config{
			Audio: ports.AudioConfig{
				SampleRate:  cfg.Audio.SampleRate,
				Channels:    cfg.Audio.Channels,
				InputFormat: cfg.Audio.InputFormat,
				InputDevice: cfg.Audio.InputDevice,
			},
			Recognition: ports.RecognitionConfig{
				SampleRate:     cfg.Audio.SampleRate,
				Channels:       cfg.Audio.Channels,
				Encoding:       "linear16",
				Language:       cfg.Session.Language,
				InterimResults: true,
			},
			ChunkSize: cfg.Session.ChunkSize,
		},
	)

	hub := keyhook.NewHub()
	var (
		hook      Hook
		registrar hotkeyRegistrar
	)
	if opts.NewHook != nil {
		hook = opts.NewHook(log.Named("keyhook"))
		registrar = hook
	}

	services := &Services{
		Orchestrator: orchestrator,
		Settings:     store,
		Hub:          hub,
		Config:       cfg,
		Logger:       log,
		events:       eventSink,
		hook:         hook,
	}
	services.detectors = newDetectorSet(hub, registrar, func(target domain.HotkeyTarget) bool {
		return orchestrator.Activate(target)
	}, services.reportWarning, log.Named("detector"))
	services.detectors.apply(store.Snapshot())
	store.OnChange(services.detectors.apply)

	log.Info("Runtime assembled",
		logger.String("config", cfg.Path),
		logger.String("provider", string(cfg.Session.Provider)),
		logger.Int("rules", rulesEngine.Len()),
		logger.String("stt_hotkey", cfg.Hotkeys.STT.String()),
		logger.String("tts_hotkey", cfg.Hotkeys.TTS.String()))
	return services, nil
}

func recognizers(cfg config.Config, log *logger.Logger) []ports.Recognizer {
	return []ports.Recognizer{
		whisper.NewRecognizer(whisper.Config{
			Command:   cfg.Whisper.Command,
			ModelPath: cfg.Whisper.ModelPath,
			Language:  cfg.Session.Language,
			Threads:   cfg.Whisper.Threads,
			Interval:  cfg.Whisper.Interval,
		}, log.Named(whisper.ProviderID)),
		deepgram.NewProvider(deepgram.Config{
			APIKey:      cfg.Deepgram.APIKey,
			APIBaseURL:  cfg.Deepgram.APIBaseURL,
			Model:       cfg.Deepgram.Model,
			Language:    cfg.Deepgram.Language,
			SmartFormat: cfg.Deepgram.SmartFormat,
		}, log.Named(deepgram.ProviderID)),
	}
}

// synthesizers returns the primary speech command followed by the fallback, if any.
func synthesizers(cfg config.Config, log *logger.Logger) []ports.Synthesizer {
	primary := speech.NewCommandSynthesizer(speech.Config{
		Command: cfg.Speech.Command,
		Voice:   cfg.Speech.Voice,
		Rate:    cfg.Speech.Rate,
	}, log.Named("speech"))
	out := []ports.Synthesizer{primary}
	if cfg.Speech.FallbackCommand != "" && cfg.Speech.FallbackCommand != primary.ID() {
		out = append(out, speech.NewCommandSynthesizer(speech.Config{
			Command: cfg.Speech.FallbackCommand,
			Rate:    cfg.Speech.Rate,
		}, log.Named("speech")))
	}
	return out
}

// Run drives the orchestrator and the global hotkey hook until ctx is done.
// Configuration warnings are reported once the event loop is up.
func (s *Services) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	errs := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		errs <- s.Orchestrator.Run(ctx)
	}()
	if s.hook != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.hook.Run(ctx, s.Hub.Publish)
		}()
	}

	for _, w := range s.Config.Warnings {
		s.reportWarning(w)
	}

	wg.Wait()
	close(errs)
	s.detectors.close()

	var runErr error
	for err := range errs {
		if err != nil && !errors.Is(err, context.Canceled) && runErr == nil {
			runErr = err
		}
	}
	return runErr
}

func (s *Services) reportWarning(w *domain.ConfigurationError) {
	s.Logger.Warn("Configuration warning", logger.String("field", w.Field), logger.String("message", w.Message))
	if s.events != nil {
		s.events.SessionError(domain.ErrorCodeConfiguration, w.Error())
	}
}

// hotkeyRegistrar is the part of Hook the detector set needs.
type hotkeyRegistrar interface {
	Register(cfg domain.HotkeyConfiguration) error
}

type attachedDetector struct {
	detector *activation.Detector
	detach   func()
}

// detectorSet keeps one activation detector per hotkey target in sync with the
// settings snapshot.
type detectorSet struct {
	source   ports.KeyEventSource
	hook     hotkeyRegistrar
	activate func(domain.HotkeyTarget) bool
	warn     func(*domain.ConfigurationError)
	log      *logger.Logger

	mu        sync.Mutex
	detectors map[domain.HotkeyTarget]attachedDetector
}

func newDetectorSet(
	source ports.KeyEventSource,
	hook hotkeyRegistrar,
	activate func(domain.HotkeyTarget) bool,
	warn func(*domain.ConfigurationError),
	log *logger.Logger,
) *detectorSet {
	return &detectorSet{
		source:    source,
		hook:      hook,
		activate:  activate,
		warn:      warn,
		log:       log,
		detectors: make(map[domain.HotkeyTarget]attachedDetector),
	}
}

func (s *detectorSet) apply(settings domain.SessionSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(domain.TargetSTT, settings.STTHotkey, domain.DefaultSTTHotkey())
	s.applyLocked(domain.TargetTTS, settings.TTSHotkey, domain.DefaultTTSHotkey())
}

func (s *detectorSet) applyLocked(target domain.HotkeyTarget, cfg, fallback domain.HotkeyConfiguration) {
	if current, ok := s.detectors[target]; ok {
		if current.detector.Config() == cfg {
			return
		}
		current.detach()
		current.detector.Reset()
		delete(s.detectors, target)
	}
	if cfg.Disabled {
		s.log.Info("Hotkey disabled", logger.String("target", string(target)))
		return
	}

	if err := s.register(cfg); err != nil {
		s.warnf(target, "%v; using %s", err, fallback)
		cfg = fallback
		if err := s.register(cfg); err != nil {
			s.warnf(target, "%v; hotkey disabled", err)
			return
		}
	}

	detector := activation.NewDetector(target, cfg, func(a activation.Activation) {
		if !s.activate(a.Target) {
			s.log.Debug("Activation not queued", logger.String("target", string(a.Target)))
		}
	}, activation.WithLogger(s.log.Named(string(target))))
	s.detectors[target] = attachedDetector{detector: detector, detach: detector.Attach(s.source)}
	s.log.Info("Hotkey active", logger.String("target", string(target)), logger.String("hotkey", cfg.String()))
}

func (s *detectorSet) register(cfg domain.HotkeyConfiguration) error {
	if s.hook == nil {
		return nil
	}
	return s.hook.Register(cfg)
}

func (s *detectorSet) warnf(target domain.HotkeyTarget, format string, args ...any) {
	if s.warn == nil {
		return
	}
	s.warn(&domain.ConfigurationError{
		Field:   "hotkeys." + string(target),
		Message: fmt.Sprintf(format, args...),
	})
}

func (s *detectorSet) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for target, current := range s.detectors {
		current.detach()
		current.detector.Reset()
		delete(s.detectors, target)
	}
}
