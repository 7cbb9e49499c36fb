package config

import "time"

type Config struct {
	Hotkey        HotkeyConfig              `toml:"hotkey"`
	Recording     RecordingConfig           `toml:"recording"`
	Transcription TranscriptionConfig       `toml:"transcription"`
	Providers     map[string]ProviderConfig `toml:"providers"`
	Enhancement   EnhancementConfig         `toml:"enhancement"`
	VAD           VADConfig                 `toml:"vad"`
	Injection     InjectionConfig           `toml:"injection"`
	Notifications NotificationsConfig       `toml:"notifications"`
	History       HistoryConfig             `toml:"history"`

	// env holds keys read from the .env file next to the config file.
	env map[string]string
}

type HotkeyConfig struct {
	Enabled bool   `toml:"enabled"` // install the global keyboard hook
	Key     string `toml:"key"`     // e.g. "ralt", "ctrl+shift+space", "f9"
	Mode    string `toml:"mode"`    // "hold", "toggle", "hybrid"
}

type RecordingConfig struct {
	Backend           string `toml:"backend"` // "pipewire" or "portaudio"
	Device            string `toml:"device"`
	BufferSize        int    `toml:"buffer_size"`
	ChannelBufferSize int    `toml:"channel_buffer_size"`
}

type TranscriptionConfig struct {
	Provider string `toml:"provider"` // groq, openai, deepgram, deepgram-streaming
	Language string `toml:"language"` // "multi" or empty for auto-detect
}

// ProviderConfig holds the credential and model for one provider
type ProviderConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

type EnhancementConfig struct {
	Enabled  bool   `toml:"enabled"`
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	Prompt   string `toml:"prompt"`
}

type VADConfig struct {
	Enabled                  bool    `toml:"enabled"`
	Threshold                float32 `toml:"threshold"`
	MinSilenceMs             int     `toml:"min_silence_ms"`
	StreamingSilenceTimeoutS int     `toml:"streaming_silence_timeout_s"`
}

type InjectionConfig struct {
	Backends         []string      `toml:"backends"`
	YdotoolTimeout   time.Duration `toml:"ydotool_timeout"`
	WtypeTimeout     time.Duration `toml:"wtype_timeout"`
	ClipboardTimeout time.Duration `toml:"clipboard_timeout"`
	Delimiter        string        `toml:"delimiter"`
}

type NotificationsConfig struct {
	Enabled bool   `toml:"enabled"`
	Type    string `toml:"type"` // "desktop", "log", "none"
}

type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
	Limit   int    `toml:"limit"`
}
