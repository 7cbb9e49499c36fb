package config

import (
	"fmt"
	"slices"

	"github.com/voicewin/voicewin/internal/hotkey"
	"github.com/voicewin/voicewin/internal/language"
	"github.com/voicewin/voicewin/internal/provider"
)

func (c *Config) Validate() error {
	if c.Hotkey.Key == "" {
		return fmt.Errorf("invalid hotkey.key: empty")
	}
	if _, err := hotkey.ParseMode(c.Hotkey.Mode); err != nil {
		return fmt.Errorf("invalid hotkey.mode: %w", err)
	}

	switch c.Recording.Backend {
	case "pipewire", "portaudio":
	default:
		return fmt.Errorf("invalid recording.backend: %q (must be pipewire or portaudio)", c.Recording.Backend)
	}
	if err := c.ToRecordingConfig().Validate(); err != nil {
		return fmt.Errorf("invalid recording: %w", err)
	}

	if !slices.Contains(provider.TranscriptionProviders(), c.Transcription.Provider) {
		return fmt.Errorf("unsupported transcription.provider: %q (must be one of %v)", c.Transcription.Provider, provider.TranscriptionProviders())
	}
	if !language.IsValidCode(c.Transcription.Language) {
		return fmt.Errorf("invalid transcription.language: %q (use \"multi\" for auto-detect or a BCP 47 tag like \"en\", \"pt-BR\")", c.Transcription.Language)
	}

	if c.Enhancement.Enabled {
		if !slices.Contains(provider.ListWithLLM(), c.Enhancement.Provider) {
			return fmt.Errorf("invalid enhancement.provider: %q (must be one of %v)", c.Enhancement.Provider, provider.ListWithLLM())
		}
		if c.Enhancement.Model == "" {
			return fmt.Errorf("enhancement.model required when enhancement.enabled = true")
		}
	}

	if c.VAD.Threshold < 0 || c.VAD.Threshold > 1 {
		return fmt.Errorf("invalid vad.threshold: %v (must be between 0 and 1)", c.VAD.Threshold)
	}
	if c.VAD.MinSilenceMs < 0 {
		return fmt.Errorf("invalid vad.min_silence_ms: %d", c.VAD.MinSilenceMs)
	}
	if c.VAD.StreamingSilenceTimeoutS < 0 {
		return fmt.Errorf("invalid vad.streaming_silence_timeout_s: %d", c.VAD.StreamingSilenceTimeoutS)
	}

	if len(c.Injection.Backends) == 0 {
		return fmt.Errorf("invalid injection.backends: empty (must have at least one backend)")
	}
	validBackends := map[string]bool{"ydotool": true, "wtype": true, "clipboard": true}
	for _, backend := range c.Injection.Backends {
		if !validBackends[backend] {
			return fmt.Errorf("invalid injection.backends: unknown backend %q (must be ydotool, wtype, or clipboard)", backend)
		}
	}
	if c.Injection.YdotoolTimeout <= 0 {
		return fmt.Errorf("invalid injection.ydotool_timeout: %v", c.Injection.YdotoolTimeout)
	}
	if c.Injection.WtypeTimeout <= 0 {
		return fmt.Errorf("invalid injection.wtype_timeout: %v", c.Injection.WtypeTimeout)
	}
	if c.Injection.ClipboardTimeout <= 0 {
		return fmt.Errorf("invalid injection.clipboard_timeout: %v", c.Injection.ClipboardTimeout)
	}

	validTypes := map[string]bool{"desktop": true, "log": true, "none": true}
	if !validTypes[c.Notifications.Type] {
		return fmt.Errorf("invalid notifications.type: %s (must be desktop, log, or none)", c.Notifications.Type)
	}

	if c.History.Limit < 0 {
		return fmt.Errorf("invalid history.limit: %d", c.History.Limit)
	}

	return nil
}

