//go:build !darwin

package globalhook

import "golang.design/x/hotkey"

var primaryModifier = hotkey.ModCtrl
