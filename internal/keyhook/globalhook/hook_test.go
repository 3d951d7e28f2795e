//go:build !headless

package globalhook

import (
	"errors"
	"testing"
	"time"

	"golang.design/x/hotkey"

	"voxkey/internal/domain"
	"voxkey/internal/keyhook"
)

type fixedClock time.Duration

func (c fixedClock) Now() time.Duration { return time.Duration(c) }

func TestBindingForCombination(t *testing.T) {
	t.Parallel()

	b, err := bindingFor(domain.HotkeyConfiguration{
		Type:        domain.ActivationCombination,
		PrimaryKey:  "s",
		ModifierKey: domain.KeyShiftLeft,
	})
	if err != nil {
		t.Fatalf("binding failed: %v", err)
	}
	if b.id != "shift+s" || b.key != hotkey.KeyS {
		t.Fatalf("unexpected binding: %+v", b)
	}
	if len(b.mods) != 1 || b.mods[0] != hotkey.ModShift {
		t.Fatalf("unexpected modifiers: %v", b.mods)
	}
}

func TestBindingForRejectsBareModifier(t *testing.T) {
	t.Parallel()

	_, err := bindingFor(domain.HotkeyConfiguration{Type: domain.ActivationDoubleTap, PrimaryKey: domain.KeyCtrlLeft})
	if !errors.Is(err, keyhook.ErrUnsupportedKey) {
		t.Fatalf("expected unsupported key, got %v", err)
	}
}

func TestCloseWithoutRegistrations(t *testing.T) {
	t.Parallel()

	h := New(fixedClock(time.Second), nil)
	if err := h.Register(domain.HotkeyConfiguration{Disabled: true}); err != nil {
		t.Fatalf("disabled hotkey must not register: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("expected no close error, got %v", err)
	}
}

func TestBindingForMapsKeysAndModifiers(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		cfg     domain.HotkeyConfiguration
		wantID  string
		wantErr bool
	}{
		{name: "function key", cfg: domain.HotkeyConfiguration{Type: domain.ActivationDoubleTap, PrimaryKey: "f9"}, wantID: "f9"},
		{name: "letter", cfg: domain.HotkeyConfiguration{Type: domain.ActivationHold, PrimaryKey: "r"}, wantID: "r"},
		{name: "ctrl combination", cfg: domain.HotkeyConfiguration{Type: domain.ActivationCombination, PrimaryKey: "f10", ModifierKey: domain.KeyCtrlLeft}, wantID: "ctrl+f10"},
		{name: "shift combination", cfg: domain.HotkeyConfiguration{Type: domain.ActivationCombination, PrimaryKey: domain.KeySpace, ModifierKey: domain.KeyShiftRight}, wantID: "shift+space"},
		{name: "bare modifier", cfg: domain.HotkeyConfiguration{Type: domain.ActivationDoubleTap, PrimaryKey: domain.KeyCtrl}, wantErr: true},
		{name: "alt modifier", cfg: domain.HotkeyConfiguration{Type: domain.ActivationCombination, PrimaryKey: "f1", ModifierKey: domain.KeyAlt}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			b, err := bindingFor(tc.cfg)
			if tc.wantErr {
				if !errors.Is(err, keyhook.ErrUnsupportedKey) {
					t.Fatalf("expected ErrUnsupportedKey, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if b.id != tc.wantID {
				t.Fatalf("expected binding id %q, got %q", tc.wantID, b.id)
			}
		})
	}
}
