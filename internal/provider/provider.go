// Package provider describes the remote services voicewin can call.
package provider

import (
	"sort"
	"strings"
)

type Provider struct {
	Name   string
	EnvVar string
	// KeyPrefix is the expected API key prefix, empty when keys have no fixed shape.
	KeyPrefix string
	BaseURL   string

	TranscriptionModel string
	LLMModel           string

	SupportsTranscription bool
	SupportsStreaming     bool
	SupportsLLM           bool
}

// ValidateAPIKey reports whether key looks like a key for this provider.
func (p *Provider) ValidateAPIKey(key string) bool {
	if key == "" {
		return false
	}
	return p.KeyPrefix == "" || strings.HasPrefix(key, p.KeyPrefix)
}

var registry = map[string]*Provider{
	ProviderGroq: {
		Name:                  ProviderGroq,
		EnvVar:                EnvGroqKey,
		KeyPrefix:             "gsk_",
		BaseURL:               "https://api.groq.com/openai/v1",
		TranscriptionModel:    "whisper-large-v3-turbo",
		LLMModel:              "moonshotai/kimi-k2-instruct-0905",
		SupportsTranscription: true,
		SupportsLLM:           true,
	},
	ProviderOpenAI: {
		Name:                  ProviderOpenAI,
		EnvVar:                EnvOpenAIKey,
		KeyPrefix:             "sk-",
		BaseURL:               "https://api.openai.com/v1",
		TranscriptionModel:    "whisper-1",
		LLMModel:              "gpt-4o-mini",
		SupportsTranscription: true,
		SupportsLLM:           true,
	},
	ProviderDeepgram: {
		Name:                  ProviderDeepgram,
		EnvVar:                EnvDeepgramKey,
		BaseURL:               "https://api.deepgram.com/v1/listen",
		TranscriptionModel:    "nova-3",
		SupportsTranscription: true,
		SupportsStreaming:     true,
	},
	ProviderGemini: {
		Name:        ProviderGemini,
		EnvVar:      EnvGeminiKey,
		LLMModel:    "gemini-2.5-flash",
		SupportsLLM: true,
	},
}

// Get returns a provider by name, or nil if not found
func Get(name string) *Provider {
	return registry[name]
}

// List returns all registered provider names, sorted
func List() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListWithLLM returns providers that can run text enhancement
func ListWithLLM() []string {
	var names []string
	for _, name := range List() {
		if registry[name].SupportsLLM {
			names = append(names, name)
		}
	}
	return names
}

// TranscriptionProviders lists the values accepted for transcription.provider
func TranscriptionProviders() []string {
	return []string{TranscriptionGroq, TranscriptionOpenAI, TranscriptionDeepgram, TranscriptionDeepgramStreaming}
}

// DefaultTranscriptionModel returns the default model for a transcription provider name.
func DefaultTranscriptionModel(transcriptionProvider string) string {
	if p := Get(BaseProviderName(transcriptionProvider)); p != nil {
		return p.TranscriptionModel
	}
	return ""
}
