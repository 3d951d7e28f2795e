//go:build !darwin

package desktop

import "github.com/micmonay/keybd_event"

func setPasteModifier(kb *keybd_event.KeyBonding) {
	kb.HasCTRL(true)
}
