package tui

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/voicewin/voicewin/internal/config"
	"github.com/voicewin/voicewin/internal/hotkey"
	"github.com/voicewin/voicewin/internal/language"
	"github.com/voicewin/voicewin/internal/provider"
)

func transcriptionLabel(cfg *config.Config) string {
	return fmt.Sprintf("Transcription (%s, %s)", cfg.Transcription.Provider, languageName(cfg.Transcription.Language))
}

func hotkeyLabel(cfg *config.Config) string {
	if !cfg.Hotkey.Enabled {
		return "Hotkey (disabled)"
	}
	return fmt.Sprintf("Hotkey (%s, %s)", cfg.Hotkey.Key, cfg.Hotkey.Mode)
}

func enabledLabel(name string, enabled bool) string {
	if enabled {
		return name + " (on)"
	}
	return name + " (off)"
}

func transcriptionOptionLabel(name string) string {
	if provider.IsStreaming(name) {
		return name + " [streaming]"
	}
	return name
}

func languageName(code string) string {
	lang := language.FromCode(code)
	if lang == language.Auto {
		return lang.Name
	}
	return fmt.Sprintf("%s (%s)", lang.Name, lang.Code)
}

// summaryLines returns label/value pairs describing cfg, API keys masked.
func summaryLines(cfg *config.Config) [][2]string {
	lines := [][2]string{
		{"Transcription", fmt.Sprintf("%s (%s)", cfg.Transcription.Provider, cfg.Model(cfg.Transcription.Provider))},
		{"Language", languageName(cfg.Transcription.Language)},
	}

	var keyed []string
	for name, p := range cfg.Providers {
		if p.APIKey != "" {
			keyed = append(keyed, name+"="+maskKey(p.APIKey))
		}
	}
	sort.Strings(keyed)
	if len(keyed) > 0 {
		lines = append(lines, [2]string{"API keys", strings.Join(keyed, ", ")})
	} else {
		lines = append(lines, [2]string{"API keys", "from environment"})
	}

	if cfg.Hotkey.Enabled {
		lines = append(lines, [2]string{"Hotkey", cfg.Hotkey.Key + " (" + cfg.Hotkey.Mode + ")"})
	} else {
		lines = append(lines, [2]string{"Hotkey", "disabled"})
	}

	if cfg.Enhancement.Enabled {
		lines = append(lines, [2]string{"Enhancement", fmt.Sprintf("%s (%s)", cfg.Enhancement.Provider, cfg.Enhancement.Model)})
	} else {
		lines = append(lines, [2]string{"Enhancement", "disabled"})
	}

	if cfg.VAD.Enabled {
		lines = append(lines, [2]string{"VAD", fmt.Sprintf("threshold %.2f, auto-stop %ds", cfg.VAD.Threshold, cfg.VAD.StreamingSilenceTimeoutS)})
	} else {
		lines = append(lines, [2]string{"VAD", "disabled"})
	}

	lines = append(lines, [2]string{"Backends", strings.Join(cfg.Injection.Backends, " -> ")})

	if cfg.Notifications.Enabled {
		lines = append(lines, [2]string{"Notifications", cfg.Notifications.Type})
	} else {
		lines = append(lines, [2]string{"Notifications", "disabled"})
	}
	return lines
}

// maskKey keeps the first four characters of a key.
func maskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", 4)
}

func validateLanguage(s string) error {
	if !language.IsValidCode(strings.TrimSpace(s)) {
		return fmt.Errorf("unknown language %q", s)
	}
	return nil
}

func validateHotkey(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("key is required")
	}
	_, err := hotkey.ParseBinding(s, hotkey.ModeHold, keyLookup)
	return err
}

func validateThreshold(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	if err != nil || v < 0 || v > 1 {
		return errors.New("must be a number between 0 and 1")
	}
	return nil
}

func validateNonNegative(s string) error {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 0 {
		return errors.New("must be a whole number >= 0")
	}
	return nil
}

func notEmpty(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func keyValidator(p *provider.Provider) func(string) error {
	return func(s string) error {
		s = strings.TrimSpace(s)
		if s == "" || p.ValidateAPIKey(s) {
			return nil
		}
		return fmt.Errorf("%s keys start with %q", p.Name, p.KeyPrefix)
	}
}
