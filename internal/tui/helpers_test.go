package tui

import (
	"strings"
	"testing"

	"github.com/voicewin/voicewin/internal/config"
	"github.com/voicewin/voicewin/internal/provider"
)

func TestValidators(t *testing.T) {
	keyLookup = func(name string) (uint16, bool) {
		codes := map[string]uint16{"ralt": 3640, "space": 57, "f9": 67}
		code, ok := codes[name]
		return code, ok
	}

	tests := []struct {
		name    string
		check   func(string) error
		input   string
		wantErr bool
	}{
		{"language auto", validateLanguage, "multi", false},
		{"language empty", validateLanguage, "", false},
		{"language tag", validateLanguage, "pt-BR", false},
		{"language garbage", validateLanguage, "not a language", true},
		{"hotkey plain", validateHotkey, "ralt", false},
		{"hotkey combo", validateHotkey, "ctrl+shift+space", false},
		{"hotkey raw code", validateHotkey, "alt+3640", false},
		{"hotkey unknown key", validateHotkey, "bogus", true},
		{"hotkey unknown modifier", validateHotkey, "hyper+f9", true},
		{"hotkey empty", validateHotkey, "  ", true},
		{"threshold ok", validateThreshold, "0.5", false},
		{"threshold too big", validateThreshold, "1.5", true},
		{"threshold text", validateThreshold, "loud", true},
		{"non-negative zero", validateNonNegative, "0", false},
		{"non-negative negative", validateNonNegative, "-1", true},
		{"groq key", keyValidator(provider.Get("groq")), "gsk_abc", false},
		{"groq wrong prefix", keyValidator(provider.Get("groq")), "sk-abc", true},
		{"groq empty uses env", keyValidator(provider.Get("groq")), "", false},
		{"deepgram any shape", keyValidator(provider.Get("deepgram")), "abc123", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.check(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLanguageName(t *testing.T) {
	if got := languageName("multi"); got != "Auto-detect" {
		t.Errorf("languageName(multi) = %q", got)
	}
	if got := languageName("fr"); got != "French (fr)" {
		t.Errorf("languageName(fr) = %q", got)
	}
}

func TestMaskKey(t *testing.T) {
	if got := maskKey("gsk_secretvalue"); got != "gsk_****" {
		t.Errorf("maskKey() = %q", got)
	}
	if got := maskKey("abc"); got != "***" {
		t.Errorf("maskKey(short) = %q", got)
	}
}

func TestSummaryLines(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Providers["groq"] = config.ProviderConfig{APIKey: "gsk_secretvalue"}
	cfg.Hotkey.Enabled = false

	got := map[string]string{}
	for _, line := range summaryLines(cfg) {
		got[line[0]] = line[1]
	}

	if got["Language"] != "Auto-detect" {
		t.Errorf("Language = %q, want Auto-detect", got["Language"])
	}
	if got["Hotkey"] != "disabled" {
		t.Errorf("Hotkey = %q, want disabled", got["Hotkey"])
	}
	if strings.Contains(got["API keys"], "secretvalue") {
		t.Errorf("API keys not masked: %q", got["API keys"])
	}
	if got["Backends"] != "clipboard -> wtype -> ydotool" {
		t.Errorf("Backends = %q", got["Backends"])
	}
}

func TestCloneConfig(t *testing.T) {
	src := config.DefaultConfig()
	cfg := cloneConfig(src)

	setAPIKey(cfg, "openai", "sk-test")
	cfg.Injection.Backends[0] = "ydotool"

	if _, ok := src.Providers["openai"]; ok {
		t.Error("editing the clone changed the source providers")
	}
	if src.Injection.Backends[0] != "clipboard" {
		t.Error("editing the clone changed the source backends")
	}
}

func TestStoreProviderDropsEmpty(t *testing.T) {
	cfg := config.DefaultConfig()
	setAPIKey(cfg, "gemini", "key")
	setAPIKey(cfg, "gemini", "")
	if _, ok := cfg.Providers["gemini"]; ok {
		t.Error("empty provider entry should be removed")
	}
}
