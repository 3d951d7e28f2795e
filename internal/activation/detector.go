// Package activation classifies a raw global key-event stream into activation signals.
//
// A Detector owns the mutable pattern state for exactly one hotkey. It never touches
// session state: the only thing it does with a recognized pattern is call its emit
// function, which is expected to return quickly.
package activation

import (
	"context"
	"runtime"
	"sync"
	"time"

	"voxkey/internal/domain"
	"voxkey/internal/logger"
	"voxkey/internal/ports"
)

const (
	// singlePressDebounce ignores a second qualifying press arriving this soon after a fire.
	singlePressDebounce = 150 * time.Millisecond
	// staleDownGap is the longest gap between down events that still counts as key-repeat.
	// A larger gap means the matching key-up was lost by the hook.
	staleDownGap = 2 * time.Second
)

// Activation is emitted once per completed pattern.
type Activation struct {
	Target domain.HotkeyTarget
	At     time.Duration
}

// Timer is the subset of *time.Timer a detector needs.
type Timer interface {
	Stop() bool
}

// TimerFunc schedules f after d, like time.AfterFunc.
type TimerFunc func(d time.Duration, f func()) Timer

func realTimer(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Option configures a Detector.
type Option func(*Detector)

// WithPlatform overrides the GOOS used for the primary-modifier rule.
func WithPlatform(goos string) Option {
	return func(d *Detector) { d.platform = goos }
}

// WithTimerFunc replaces the hold timer implementation.
func WithTimerFunc(fn TimerFunc) Option {
	return func(d *Detector) { d.afterFunc = fn }
}

// WithLogger attaches a logger.
func WithLogger(log *logger.Logger) Option {
	return func(d *Detector) { d.log = log }
}

// Detector recognizes one HotkeyConfiguration in a key-event stream.
type Detector struct {
	target    domain.HotkeyTarget
	cfg       domain.HotkeyConfiguration
	emit      func(Activation)
	platform  string
	afterFunc TimerFunc
	log       *logger.Logger

	mu    sync.Mutex
	state detectorState
}

type detectorState struct {
	lastKeyDownTime  time.Duration
	lastKeyUpTime    time.Duration
	lastDownSeen     time.Duration
	tapCount         int
	keyCurrentlyDown bool
	holdStartTime    time.Duration

	holdGeneration uint64
	holdTimer      Timer
	holdFired      bool

	modifiersHeld map[domain.Key]struct{}

	fired    bool
	lastFire time.Duration
}

// NewDetector creates a detector for cfg. emit is called outside the detector lock.
func NewDetector(target domain.HotkeyTarget, cfg domain.HotkeyConfiguration, emit func(Activation), opts ...Option) *Detector {
	d := &Detector{
		target:    target,
		cfg:       cfg,
		emit:      emit,
		platform:  runtime.GOOS,
		afterFunc: realTimer,
		log:       logger.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.state.modifiersHeld = make(map[domain.Key]struct{})
	return d
}

// Config returns the configuration this detector was built with.
func (d *Detector) Config() domain.HotkeyConfiguration {
	return d.cfg
}

// Attach subscribes the detector to a key source.
func (d *Detector) Attach(source ports.KeyEventSource) (detach func()) {
	return source.Subscribe(d.Handle)
}

// Run consumes events until ctx is done or the channel closes.
func (d *Detector) Run(ctx context.Context, events <-chan domain.KeyEvent) error {
	defer d.Reset()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			d.Handle(ev)
		}
	}
}

// Reset returns the detector to its zero state and cancels a pending hold.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetLocked()
	d.state.keyCurrentlyDown = false
	d.state.modifiersHeld = make(map[domain.Key]struct{})
}

// Handle feeds one key event into the detector.
func (d *Detector) Handle(ev domain.KeyEvent) {
	if d.cfg.Disabled {
		return
	}

	d.mu.Lock()
	var fired *Activation
	switch d.cfg.Type {
	case domain.ActivationDoubleTap:
		fired = d.handleDoubleTap(ev)
	case domain.ActivationSinglePress:
		fired = d.handleSinglePress(ev)
	case domain.ActivationHold:
		fired = d.handleHold(ev)
	case domain.ActivationCombination:
		fired = d.handleCombination(ev)
	}
	d.mu.Unlock()

	if fired != nil {
		d.log.Debug("Hotkey activated",
			logger.String("target", string(d.target)),
			logger.String("hotkey", d.cfg.String()),
			logger.Duration("at", fired.At))
		d.emit(*fired)
	}
}

func (d *Detector) handleDoubleTap(ev domain.KeyEvent) *Activation {
	s := &d.state
	if !d.matches(d.cfg.PrimaryKey, ev.Code) {
		if ev.Down && s.tapCount > 0 {
			s.tapCount = 0
		}
		return nil
	}

	if ev.Down {
		if s.keyCurrentlyDown {
			if s.isRepeat(ev.At) {
				return nil
			}
			// The key-up of the previous press was lost; that press cannot count as a tap.
			s.tapCount = 0
		}
		if ev.At-s.lastKeyUpTime > d.cfg.DoubleTapInterval {
			s.tapCount = 0
		}
		s.markDown(ev.At)
		return nil
	}

	if !s.keyCurrentlyDown {
		return nil
	}
	s.keyCurrentlyDown = false

	holdDuration := ev.At - s.lastKeyDownTime
	if holdDuration > d.cfg.MaxTapHoldDuration {
		d.log.Debug("Tap held too long, discarding",
			logger.String("target", string(d.target)),
			logger.Duration("held", holdDuration))
		s.tapCount = 0
		return nil
	}

	s.tapCount++
	s.lastKeyUpTime = ev.At
	if s.tapCount >= 2 {
		return d.fireLocked(ev.At)
	}
	return nil
}

func (d *Detector) handleSinglePress(ev domain.KeyEvent) *Activation {
	s := &d.state
	if !d.matches(d.cfg.PrimaryKey, ev.Code) {
		return nil
	}
	if !ev.Down {
		if s.keyCurrentlyDown {
			s.keyCurrentlyDown = false
			s.lastKeyUpTime = ev.At
		}
		return nil
	}
	if s.keyCurrentlyDown && s.isRepeat(ev.At) {
		return nil
	}
	s.markDown(ev.At)

	if s.fired && ev.At-s.lastFire < singlePressDebounce {
		return nil
	}
	return d.fireLocked(ev.At)
}

func (d *Detector) handleHold(ev domain.KeyEvent) *Activation {
	s := &d.state
	if !d.matches(d.cfg.PrimaryKey, ev.Code) {
		return nil
	}

	if ev.Down {
		if s.keyCurrentlyDown && s.isRepeat(ev.At) {
			return nil
		}
		d.cancelHoldLocked()
		s.markDown(ev.At)
		s.holdStartTime = ev.At
		s.holdFired = false

		generation := s.holdGeneration
		start := ev.At
		s.holdTimer = d.afterFunc(d.cfg.HoldDuration, func() {
			d.holdElapsed(generation, start)
		})
		return nil
	}

	if !s.keyCurrentlyDown {
		return nil
	}
	s.keyCurrentlyDown = false
	s.lastKeyUpTime = ev.At
	d.cancelHoldLocked()

	// The timer may lag behind the event stream; the timestamps are authoritative.
	if !s.holdFired && ev.At-s.holdStartTime >= d.cfg.HoldDuration {
		s.holdFired = true
		return d.fireLocked(s.holdStartTime + d.cfg.HoldDuration)
	}
	return nil
}

func (d *Detector) holdElapsed(generation uint64, start time.Duration) {
	d.mu.Lock()
	s := &d.state
	if s.holdGeneration != generation || !s.keyCurrentlyDown || s.holdFired {
		d.mu.Unlock()
		return
	}
	s.holdFired = true
	s.holdTimer = nil
	fired := d.fireLocked(start + d.cfg.HoldDuration)
	d.mu.Unlock()

	d.log.Debug("Hotkey held", logger.String("target", string(d.target)))
	d.emit(*fired)
}

func (d *Detector) handleCombination(ev domain.KeyEvent) *Activation {
	s := &d.state
	if d.matches(d.cfg.ModifierKey, ev.Code) {
		if ev.Down {
			s.modifiersHeld[ev.Code] = struct{}{}
		} else {
			delete(s.modifiersHeld, ev.Code)
		}
		return nil
	}
	if !d.matches(d.cfg.PrimaryKey, ev.Code) {
		return nil
	}

	if !ev.Down {
		s.keyCurrentlyDown = false
		s.lastKeyUpTime = ev.At
		return nil
	}
	if s.keyCurrentlyDown && s.isRepeat(ev.At) {
		return nil
	}
	s.markDown(ev.At)
	if len(s.modifiersHeld) == 0 {
		return nil
	}
	return d.fireLocked(ev.At)
}

func (d *Detector) fireLocked(at time.Duration) *Activation {
	d.state.tapCount = 0
	d.state.fired = true
	d.state.lastFire = at
	return &Activation{Target: d.target, At: at}
}

func (d *Detector) resetLocked() {
	d.cancelHoldLocked()
	held := d.state.modifiersHeld
	d.state = detectorState{holdGeneration: d.state.holdGeneration, modifiersHeld: held}
}

func (d *Detector) cancelHoldLocked() {
	d.state.holdGeneration++
	if d.state.holdTimer != nil {
		d.state.holdTimer.Stop()
		d.state.holdTimer = nil
	}
}

func (d *Detector) matches(target domain.Key, actual domain.Key) bool {
	return KeyMatches(target, actual, d.platform)
}

func (s *detectorState) markDown(at time.Duration) {
	s.keyCurrentlyDown = true
	s.lastKeyDownTime = at
	s.lastDownSeen = at
}

// isRepeat reports whether a down event for a key already down is auto-repeat
// rather than a fresh press after a lost key-up.
func (s *detectorState) isRepeat(at time.Duration) bool {
	gap := at - s.lastDownSeen
	s.lastDownSeen = at
	return gap <= staleDownGap
}

// KeyMatches applies the key-identity rules: left/right variants are equivalent, a
// Ctrl-class hotkey also matches the platform primary modifier, and Shift matches
// only Shift variants.
func KeyMatches(target domain.Key, actual domain.Key, goos string) bool {
	if target == domain.KeyNone || actual == domain.KeyNone {
		return false
	}
	want := target.Logical()
	got := actual.Logical()
	if want == got {
		return true
	}
	return want == domain.KeyCtrl && got == PrimaryModifier(goos)
}

// PrimaryModifier is the platform's primary shortcut modifier.
func PrimaryModifier(goos string) domain.Key {
	if goos == "darwin" {
		return domain.KeyMeta
	}
	return domain.KeyCtrl
}
