package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/voicewin/voicewin/internal/hotkey"
	"github.com/voicewin/voicewin/internal/injection"
	"github.com/voicewin/voicewin/internal/orchestrator"
	"github.com/voicewin/voicewin/internal/pipeline"
	"github.com/voicewin/voicewin/internal/provider"
	"github.com/voicewin/voicewin/internal/recording"
)

func (c *Config) ToRecordingConfig() recording.Config {
	return recording.Config{
		Backend:           c.Recording.Backend,
		Device:            c.Recording.Device,
		BufferSize:        c.Recording.BufferSize,
		ChannelBufferSize: c.Recording.ChannelBufferSize,
	}
}

func (c *Config) ToInjectionConfig() injection.Config {
	return injection.Config{
		Backends:         c.Injection.Backends,
		YdotoolTimeout:   c.Injection.YdotoolTimeout,
		WtypeTimeout:     c.Injection.WtypeTimeout,
		ClipboardTimeout: c.Injection.ClipboardTimeout,
		Delimiter:        c.Injection.Delimiter,
	}
}

// HotkeyBinding parses the hotkey section; lookup resolves key names.
func (c *Config) HotkeyBinding(lookup hotkey.KeyLookup) (hotkey.Binding, error) {
	mode, err := hotkey.ParseMode(c.Hotkey.Mode)
	if err != nil {
		return hotkey.Binding{}, err
	}
	return hotkey.ParseBinding(c.Hotkey.Key, mode, lookup)
}

// ToPipelineSettings resolves credentials and models for the selected providers.
func (c *Config) ToPipelineSettings() pipeline.Settings {
	name := c.Transcription.Provider
	s := pipeline.Settings{
		Provider: name,
		APIKey:   c.APIKey(name),
		Model:    c.Model(name),
		Language: c.Transcription.Language,
		VAD: pipeline.VADSettings{
			Enabled:      c.VAD.Enabled,
			Threshold:    c.VAD.Threshold,
			MinSilenceMs: c.VAD.MinSilenceMs,
		},
		Enhancement: pipeline.EnhancementSettings{
			Enabled:  c.Enhancement.Enabled,
			Provider: c.Enhancement.Provider,
			Model:    c.Enhancement.Model,
			Prompt:   c.Enhancement.Prompt,
		},
	}
	if c.Enhancement.Enabled {
		s.Enhancement.APIKey = c.APIKey(c.Enhancement.Provider)
	}
	return s
}

func (c *Config) ToOrchestratorSettings() orchestrator.Settings {
	return orchestrator.Settings{
		Pipeline:       c.ToPipelineSettings(),
		Streaming:      provider.IsStreaming(c.Transcription.Provider),
		SilenceTimeout: time.Duration(c.VAD.StreamingSilenceTimeoutS) * time.Second,
	}
}

// APIKey resolves a provider credential: config file first, then the
// environment, then the .env file.
func (c *Config) APIKey(providerName string) string {
	base := provider.BaseProviderName(providerName)
	if pc, ok := c.Providers[base]; ok && pc.APIKey != "" {
		return pc.APIKey
	}

	envVar := provider.EnvVarForProvider(providerName)
	if envVar == "" {
		return ""
	}
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return c.env[envVar]
}

// Model returns the configured transcription model for a provider, or its default.
func (c *Config) Model(providerName string) string {
	base := provider.BaseProviderName(providerName)
	if pc, ok := c.Providers[base]; ok && pc.Model != "" {
		return pc.Model
	}
	return provider.DefaultTranscriptionModel(providerName)
}

// HistoryDir returns the history database directory.
func (c *Config) HistoryDir() (string, error) {
	if c.History.Path != "" {
		return c.History.Path, nil
	}
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "voicewin", "history"), nil
}
