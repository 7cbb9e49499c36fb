package hotkey

import (
	"fmt"
	"strconv"
	"strings"
)

// Modifiers is a bitset of modifier keys that must be held for the trigger to qualify.
type Modifiers uint8

const (
	ModNone  Modifiers = 0
	ModCtrl  Modifiers = 1
	ModAlt   Modifiers = 2
	ModShift Modifiers = 4
	ModMeta  Modifiers = 8
)

// Has reports whether every modifier in required is present in m.
func (m Modifiers) Has(required Modifiers) bool {
	return m&required == required
}

func (m Modifiers) String() string {
	if m == ModNone {
		return "none"
	}
	var parts []string
	if m&ModCtrl != 0 {
		parts = append(parts, "ctrl")
	}
	if m&ModAlt != 0 {
		parts = append(parts, "alt")
	}
	if m&ModShift != 0 {
		parts = append(parts, "shift")
	}
	if m&ModMeta != 0 {
		parts = append(parts, "meta")
	}
	return strings.Join(parts, "+")
}

type Mode string

const (
	ModeHold   Mode = "hold"
	ModeToggle Mode = "toggle"
	ModeHybrid Mode = "hybrid"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeHold:
		return ModeHold, nil
	case ModeToggle:
		return ModeToggle, nil
	case ModeHybrid:
		return ModeHybrid, nil
	}
	return "", fmt.Errorf("invalid hotkey mode: %q (must be hold, toggle or hybrid)", s)
}

// Binding identifies the trigger key, the modifiers required with it and the mode.
type Binding struct {
	Key       uint16
	Modifiers Modifiers
	Mode      Mode
}

// KeyLookup resolves a key name such as "ralt" or "f9" to a key code.
type KeyLookup func(name string) (uint16, bool)

// ParseBinding parses strings like "ralt", "ctrl+shift+space" or "ctrl+3640".
// The last token is the trigger key; numeric tokens are taken as raw key codes.
func ParseBinding(s string, mode Mode, lookup KeyLookup) (Binding, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Binding{}, fmt.Errorf("empty hotkey")
	}

	parts := strings.Split(s, "+")
	for i := range parts {
		parts[i] = strings.TrimSpace(strings.ToLower(parts[i]))
	}

	var mods Modifiers
	for _, p := range parts[:len(parts)-1] {
		switch p {
		case "ctrl", "control":
			mods |= ModCtrl
		case "alt", "menu", "option":
			mods |= ModAlt
		case "shift":
			mods |= ModShift
		case "meta", "win", "super", "cmd":
			mods |= ModMeta
		default:
			return Binding{}, fmt.Errorf("unknown modifier %q in hotkey %q", p, s)
		}
	}

	keyToken := parts[len(parts)-1]
	if keyToken == "" {
		return Binding{}, fmt.Errorf("missing key in hotkey %q", s)
	}

	if code, err := strconv.ParseUint(keyToken, 10, 16); err == nil {
		return Binding{Key: uint16(code), Modifiers: mods, Mode: mode}, nil
	}

	if lookup == nil {
		return Binding{}, fmt.Errorf("unknown key %q", keyToken)
	}
	code, ok := lookup(keyToken)
	if !ok {
		return Binding{}, fmt.Errorf("unknown key %q", keyToken)
	}
	return Binding{Key: code, Modifiers: mods, Mode: mode}, nil
}
