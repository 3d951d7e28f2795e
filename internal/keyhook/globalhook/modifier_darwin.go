//go:build darwin

package globalhook

import "golang.design/x/hotkey"

// primaryModifier is Cmd, the shortcut modifier users expect on macOS.
var primaryModifier = hotkey.ModCmd
