package config

import (
	"time"

	"github.com/voicewin/voicewin/internal/llm"
	"github.com/voicewin/voicewin/internal/provider"
)

// DefaultConfig returns the configuration used when no file exists and as the
// base that a config file is decoded over.
func DefaultConfig() *Config {
	return &Config{
		Hotkey: HotkeyConfig{
			Enabled: true,
			Key:     "ralt",
			Mode:    "hold",
		},
		Recording: RecordingConfig{
			Backend:           "pipewire",
			BufferSize:        3200,
			ChannelBufferSize: 30,
		},
		Transcription: TranscriptionConfig{
			Provider: provider.TranscriptionGroq,
			Language: "multi",
		},
		Providers: map[string]ProviderConfig{
			provider.ProviderGroq:     {Model: "whisper-large-v3-turbo"},
			provider.ProviderDeepgram: {Model: "nova-3"},
		},
		Enhancement: EnhancementConfig{
			Enabled:  false,
			Provider: provider.ProviderGroq,
			Model:    "moonshotai/kimi-k2-instruct-0905",
			Prompt:   llm.DefaultPrompt,
		},
		VAD: VADConfig{
			Enabled:                  true,
			Threshold:                0.5,
			MinSilenceMs:             500,
			StreamingSilenceTimeoutS: 60,
		},
		Injection: InjectionConfig{
			Backends:         []string{"clipboard", "wtype", "ydotool"},
			YdotoolTimeout:   5 * time.Second,
			WtypeTimeout:     5 * time.Second,
			ClipboardTimeout: 3 * time.Second,
			Delimiter:        " ",
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Type:    "desktop",
		},
		History: HistoryConfig{
			Enabled: true,
			Limit:   500,
		},
	}
}
