package llm

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Gemini calls the Gemini API generateContent method.
type Gemini struct {
	baseURL string
}

// NewGemini returns a Gemini enhancer; an empty baseURL uses the SDK default.
func NewGemini(baseURL string) *Gemini {
	return &Gemini{baseURL: baseURL}
}

func (g *Gemini) Enhance(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      req.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: g.baseURL},
	})
	if err != nil {
		return "", fmt.Errorf("create gemini client: %w", err)
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(BuildSystemPrompt(req.Prompt), genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.3),
	}

	start := time.Now()
	resp, err := client.Models.GenerateContent(ctx, req.Model, genai.Text(BuildUserPrompt(req.Text)), config)
	duration := time.Since(start)
	if err != nil {
		log.Printf("llm: gemini call failed after %v: %v", duration, err)
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	result := strings.TrimSpace(resp.Text())
	if result == "" {
		return "", fmt.Errorf("gemini generate content: empty response")
	}
	log.Printf("llm: gemini enhanced in %v", duration)
	return result, nil
}
