package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAICompatible talks to any OpenAI-style /audio/transcriptions endpoint (OpenAI, Groq).
type OpenAICompatible struct {
	baseURL string
}

func NewOpenAICompatible(baseURL string) *OpenAICompatible {
	return &OpenAICompatible{baseURL: baseURL}
}

func (a *OpenAICompatible) Transcribe(ctx context.Context, req Request) (string, error) {
	if len(req.Audio) == 0 {
		return "", nil
	}

	wavData, err := EncodeWAV(req.Audio)
	if err != nil {
		return "", fmt.Errorf("convert to WAV: %w", err)
	}

	clientConfig := openai.DefaultConfig(req.APIKey)
	clientConfig.BaseURL = a.baseURL
	client := openai.NewClientWithConfig(clientConfig)

	start := time.Now()
	resp, err := client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    req.Model,
		Reader:   bytes.NewReader(wavData),
		FilePath: "audio.wav",
		Language: languageParam(req.Language),
	})
	duration := time.Since(start)

	if err != nil {
		log.Printf("transcriber: %s call failed after %v: %v", a.baseURL, duration, err)
		return "", err
	}

	log.Printf("transcriber: transcribed %d bytes in %v", len(req.Audio), duration)
	return resp.Text, nil
}
