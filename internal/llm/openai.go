package llm

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAICompatible calls an OpenAI-style chat completions endpoint (OpenAI, Groq).
type OpenAICompatible struct {
	baseURL string
}

func NewOpenAICompatible(baseURL string) *OpenAICompatible {
	return &OpenAICompatible{baseURL: baseURL}
}

func (a *OpenAICompatible) Enhance(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", nil
	}

	clientConfig := openai.DefaultConfig(req.APIKey)
	clientConfig.BaseURL = a.baseURL
	client := openai.NewClientWithConfig(clientConfig)

	chatReq := openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: BuildSystemPrompt(req.Prompt)},
			{Role: openai.ChatMessageRoleUser, Content: BuildUserPrompt(req.Text)},
		},
		Temperature: 0.3,
	}

	start := time.Now()
	resp, err := client.CreateChatCompletion(ctx, chatReq)
	duration := time.Since(start)

	if err != nil {
		log.Printf("llm: chat completion failed after %v: %v", duration, err)
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: no response choices")
	}

	result := strings.TrimSpace(resp.Choices[0].Message.Content)
	log.Printf("llm: enhanced in %v: %q -> %q", duration, req.Text, result)
	return result, nil
}
