// Package globalhook registers OS-level hotkeys through golang.design/x/hotkey. On
// linux the hotkey package needs an X display as soon as it is loaded, so only the
// binaries import this package.
package globalhook

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.design/x/hotkey"

	"voxkey/internal/domain"
	"voxkey/internal/keyhook"
	"voxkey/internal/logger"
)

// Clock stamps events with a monotonic offset.
type Clock interface {
	Now() time.Duration
}

type binding struct {
	mods []hotkey.Modifier
	key  hotkey.Key
	id   string
}

type registration struct {
	hk       *hotkey.Hotkey
	primary  domain.Key
	modifier domain.Key
	done     chan struct{}
}

// Hook registers OS-level hotkeys and publishes their presses as key events.
// On macOS the hotkey package must run on the main thread; callers are responsible
// for that.
type Hook struct {
	clock Clock
	log   *logger.Logger

	mu     sync.Mutex
	regs   map[string]*registration
	events chan domain.KeyEvent
}

func New(clock Clock, log *logger.Logger) *Hook {
	if log == nil {
		log = logger.NewNop()
	}
	return &Hook{
		clock:  clock,
		log:    log,
		regs:   make(map[string]*registration),
		events: make(chan domain.KeyEvent, 64),
	}
}

// Register binds the key pattern of cfg. Registering the same binding twice is a no-op.
func (g *Hook) Register(cfg domain.HotkeyConfiguration) error {
	if cfg.Disabled {
		return nil
	}
	b, err := bindingFor(cfg)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.regs[b.id]; exists {
		return nil
	}

	hk := hotkey.New(b.mods, b.key)
	if err := hk.Register(); err != nil {
		return fmt.Errorf("failed to register hotkey %s: %w", cfg, err)
	}
	reg := &registration{hk: hk, primary: cfg.PrimaryKey, done: make(chan struct{})}
	if cfg.Type == domain.ActivationCombination {
		reg.modifier = cfg.ModifierKey
	}
	g.regs[b.id] = reg
	go g.forward(reg)

	g.log.Info("Hotkey registered", logger.String("binding", b.id), logger.String("pattern", cfg.String()))
	return nil
}

// Run hands key events to publish in arrival order until ctx is done, then
// unregisters every hotkey.
func (g *Hook) Run(ctx context.Context, publish func(domain.KeyEvent)) error {
	defer g.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-g.events:
			publish(ev)
		}
	}
}

// Close unregisters every hotkey.
func (g *Hook) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var err error
	for id, reg := range g.regs {
		close(reg.done)
		if unregErr := reg.hk.Unregister(); unregErr != nil {
			err = multierr.Append(err, fmt.Errorf("unregister %s: %w", id, unregErr))
		}
		delete(g.regs, id)
	}
	return err
}

func (g *Hook) forward(reg *registration) {
	for {
		select {
		case <-reg.done:
			return
		case _, ok := <-reg.hk.Keydown():
			if !ok {
				return
			}
			at := g.clock.Now()
			if reg.modifier != domain.KeyNone {
				g.send(reg, domain.KeyEvent{Code: reg.modifier, Down: true, At: at})
			}
			g.send(reg, domain.KeyEvent{Code: reg.primary, Down: true, At: at})
		case _, ok := <-reg.hk.Keyup():
			if !ok {
				return
			}
			at := g.clock.Now()
			g.send(reg, domain.KeyEvent{Code: reg.primary, Down: false, At: at})
			if reg.modifier != domain.KeyNone {
				g.send(reg, domain.KeyEvent{Code: reg.modifier, Down: false, At: at})
			}
		}
	}
}

func (g *Hook) send(reg *registration, ev domain.KeyEvent) {
	select {
	case g.events <- ev:
	case <-reg.done:
	}
}

func bindingFor(cfg domain.HotkeyConfiguration) (binding, error) {
	key, ok := hotkeyKeys[cfg.PrimaryKey.Logical()]
	if !ok {
		return binding{}, fmt.Errorf("%w: %q", keyhook.ErrUnsupportedKey, cfg.PrimaryKey)
	}
	b := binding{key: key, id: string(cfg.PrimaryKey.Logical())}

	if cfg.Type == domain.ActivationCombination {
		switch cfg.ModifierKey.Logical() {
		case domain.KeyCtrl:
			b.mods = []hotkey.Modifier{primaryModifier}
		case domain.KeyShift:
			b.mods = []hotkey.Modifier{hotkey.ModShift}
		default:
			return binding{}, fmt.Errorf("%w: modifier %q", keyhook.ErrUnsupportedKey, cfg.ModifierKey)
		}
		b.id = string(cfg.ModifierKey.Logical()) + "+" + b.id
	}
	return b, nil
}

var hotkeyKeys = map[domain.Key]hotkey.Key{
	domain.KeySpace: hotkey.KeySpace,

	"a": hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD,
	"e": hotkey.KeyE, "f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH,
	"i": hotkey.KeyI, "j": hotkey.KeyJ, "k": hotkey.KeyK, "l": hotkey.KeyL,
	"m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO, "p": hotkey.KeyP,
	"q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX,
	"y": hotkey.KeyY, "z": hotkey.KeyZ,

	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3,
	"4": hotkey.Key4, "5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7,
	"8": hotkey.Key8, "9": hotkey.Key9,

	"f1": hotkey.KeyF1, "f2": hotkey.KeyF2, "f3": hotkey.KeyF3, "f4": hotkey.KeyF4,
	"f5": hotkey.KeyF5, "f6": hotkey.KeyF6, "f7": hotkey.KeyF7, "f8": hotkey.KeyF8,
	"f9": hotkey.KeyF9, "f10": hotkey.KeyF10, "f11": hotkey.KeyF11, "f12": hotkey.KeyF12,
}
