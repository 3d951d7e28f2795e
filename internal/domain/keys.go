package domain

import (
	"fmt"
	"strings"
	"time"
)

// Key is a physical key identity as reported by a key source, e.g. "lctrl", "f9", "a".
type Key string

const (
	KeyNone Key = ""

	KeyCtrl       Key = "ctrl"
	KeyCtrlLeft   Key = "lctrl"
	KeyCtrlRight  Key = "rctrl"
	KeyShift      Key = "shift"
	KeyShiftLeft  Key = "lshift"
	KeyShiftRight Key = "rshift"
	KeyAlt        Key = "alt"
	KeyAltLeft    Key = "lalt"
	KeyAltRight   Key = "ralt"
	KeyMeta       Key = "meta"
	KeyMetaLeft   Key = "lmeta"
	KeyMetaRight  Key = "rmeta"
	KeySpace      Key = "space"
)

var keyAliases = map[string]Key{
	"control":  KeyCtrl,
	"lcontrol": KeyCtrlLeft,
	"rcontrol": KeyCtrlRight,
	"option":   KeyAlt,
	"cmd":      KeyMeta,
	"command":  KeyMeta,
	"super":    KeyMeta,
	"win":      KeyMeta,
	"lcmd":     KeyMetaLeft,
	"rcmd":     KeyMetaRight,
}

var logicalKeys = map[Key]Key{
	KeyCtrlLeft:   KeyCtrl,
	KeyCtrlRight:  KeyCtrl,
	KeyShiftLeft:  KeyShift,
	KeyShiftRight: KeyShift,
	KeyAltLeft:    KeyAlt,
	KeyAltRight:   KeyAlt,
	KeyMetaLeft:   KeyMeta,
	KeyMetaRight:  KeyMeta,
}

// ParseKey normalizes a user supplied key name.
func ParseKey(raw string) (Key, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return KeyNone, fmt.Errorf("key name is empty")
	}
	if alias, ok := keyAliases[name]; ok {
		return alias, nil
	}
	key := Key(name)
	if _, ok := logicalKeys[key]; ok || key.IsModifier() || key == KeySpace {
		return key, nil
	}
	if len(name) == 1 && ((name[0] >= 'a' && name[0] <= 'z') || (name[0] >= '0' && name[0] <= '9')) {
		return key, nil
	}
	if strings.HasPrefix(name, "f") {
		var n int
		if _, err := fmt.Sscanf(name, "f%d", &n); err == nil && n >= 1 && n <= 20 && fmt.Sprintf("f%d", n) == name {
			return key, nil
		}
	}
	return KeyNone, fmt.Errorf("unknown key %q", raw)
}

// Logical folds left/right variants into their logical key.
func (k Key) Logical() Key {
	if logical, ok := logicalKeys[k]; ok {
		return logical
	}
	return k
}

// IsModifier reports whether the key belongs to a modifier class.
func (k Key) IsModifier() bool {
	switch k.Logical() {
	case KeyCtrl, KeyShift, KeyAlt, KeyMeta:
		return true
	default:
		return false
	}
}

// KeyEvent is one entry of the global key-event stream. At is a monotonic offset,
// never a wall-clock reading.
type KeyEvent struct {
	Code Key
	Down bool
	At   time.Duration
}
