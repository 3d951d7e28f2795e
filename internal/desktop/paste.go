package desktop

import (
	"runtime"
	"sync"
	"time"

	"github.com/micmonay/keybd_event"

	"voxkey/internal/logger"
)

// uinput needs a moment before the virtual keyboard is usable.
const linuxKeyboardWarmup = 2 * time.Second

// Paster sends the platform paste shortcut to the focused window.
type Paster struct {
	log *logger.Logger

	mu      sync.Mutex
	bonding *keybd_event.KeyBonding
}

func NewPaster(log *logger.Logger) *Paster {
	if log == nil {
		log = logger.NewNop()
	}
	return &Paster{log: log}
}

// SimulatePaste is best effort; false means the keystroke could not be sent.
func (p *Paster) SimulatePaste() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bonding == nil {
		kb, err := keybd_event.NewKeyBonding()
		if err != nil {
			p.log.Warn("Virtual keyboard unavailable", logger.Error(err))
			return false
		}
		if runtime.GOOS == "linux" {
			time.Sleep(linuxKeyboardWarmup)
		}
		p.bonding = &kb
	}

	setPasteModifier(p.bonding)
	p.bonding.SetKeys(keybd_event.VK_V)
	if err := p.bonding.Launching(); err != nil {
		p.log.Warn("Paste keystroke failed", logger.Error(err))
		return false
	}
	return true
}
