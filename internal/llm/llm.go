// Package llm rewrites raw transcripts with a chat model (filler removal, light cleanup).
package llm

import (
	"context"
	"fmt"

	"github.com/voicewin/voicewin/internal/provider"
)

type Request struct {
	Text   string
	APIKey string
	Model  string
	Prompt string
}

type Enhancer interface {
	Enhance(ctx context.Context, req Request) (string, error)
}

// New returns the enhancer for a provider name.
func New(name string) (Enhancer, error) {
	switch name {
	case provider.ProviderGroq, provider.ProviderOpenAI:
		return NewOpenAICompatible(provider.Get(name).BaseURL), nil
	case provider.ProviderGemini:
		return NewGemini(""), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", name)
	}
}

// NewRegistry builds enhancers for every provider that supports LLM calls.
func NewRegistry() map[string]Enhancer {
	out := make(map[string]Enhancer)
	for _, name := range provider.ListWithLLM() {
		if e, err := New(name); err == nil {
			out[name] = e
		}
	}
	return out
}
