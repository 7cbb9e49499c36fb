// Package transcriber sends a finished recording to a batch speech-to-text API.
package transcriber

import (
	"context"
	"fmt"

	"github.com/voicewin/voicewin/internal/provider"
)

// Request carries the audio and the per-call credentials; settings may change
// between recordings so nothing is bound at construction time.
type Request struct {
	Audio    []byte // 16 kHz mono s16le PCM
	APIKey   string
	Model    string
	Language string
}

type Transcriber interface {
	Transcribe(ctx context.Context, req Request) (string, error)
}

// New returns the batch adapter for a transcription provider name.
func New(name string) (Transcriber, error) {
	switch name {
	case provider.TranscriptionGroq:
		return NewOpenAICompatible(provider.Get(provider.ProviderGroq).BaseURL), nil
	case provider.TranscriptionOpenAI:
		return NewOpenAICompatible(provider.Get(provider.ProviderOpenAI).BaseURL), nil
	case provider.TranscriptionDeepgram:
		return NewDeepgram(provider.Get(provider.ProviderDeepgram).BaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported batch transcription provider: %s", name)
	}
}

// NewRegistry builds adapters for every batch provider.
func NewRegistry() map[string]Transcriber {
	out := make(map[string]Transcriber)
	for _, name := range []string{provider.TranscriptionGroq, provider.TranscriptionOpenAI, provider.TranscriptionDeepgram} {
		t, err := New(name)
		if err != nil {
			continue
		}
		out[name] = t
	}
	return out
}

func languageParam(lang string) string {
	// whisper-style APIs auto-detect when no language is sent
	if lang == "multi" {
		return ""
	}
	return lang
}
