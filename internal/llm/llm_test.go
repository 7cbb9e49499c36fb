package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestBuildPrompts(t *testing.T) {
	if got := BuildSystemPrompt(""); got != DefaultPrompt {
		t.Error("empty prompt should fall back to DefaultPrompt")
	}
	if got := BuildSystemPrompt("be brief"); got != "be brief" {
		t.Errorf("BuildSystemPrompt() = %q", got)
	}
	if !strings.Contains(DefaultPrompt, "<TRANSCRIPT>") {
		t.Error("default prompt should reference the transcript tag")
	}

	user := BuildUserPrompt("um hello")
	if !strings.HasPrefix(user, "<TRANSCRIPT>") || !strings.HasSuffix(user, "</TRANSCRIPT>") || !strings.Contains(user, "um hello") {
		t.Errorf("BuildUserPrompt() = %q", user)
	}
}

func TestNew(t *testing.T) {
	for _, name := range []string{"groq", "openai", "gemini"} {
		if _, err := New(name); err != nil {
			t.Errorf("New(%q) error = %v", name, err)
		}
	}
	if _, err := New("deepgram"); err == nil {
		t.Error("New(deepgram) should fail")
	}
	if got := len(NewRegistry()); got != 3 {
		t.Errorf("NewRegistry() has %d enhancers, want 3", got)
	}
}

func TestOpenAICompatible_Enhance(t *testing.T) {
	var gotReq struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotReq)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":" hello world "},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	e := NewOpenAICompatible(server.URL + "/v1")
	got, err := e.Enhance(context.Background(), Request{Text: "um hello world", APIKey: "k", Model: "m1"})
	if err != nil {
		t.Fatalf("Enhance() error = %v", err)
	}
	if got != "hello world" {
		t.Errorf("Enhance() = %q, want %q", got, "hello world")
	}
	if gotReq.Model != "m1" || len(gotReq.Messages) != 2 {
		t.Fatalf("request = %+v", gotReq)
	}
	if gotReq.Messages[0].Role != "system" || gotReq.Messages[0].Content != DefaultPrompt {
		t.Errorf("system message = %+v", gotReq.Messages[0])
	}
	if !strings.Contains(gotReq.Messages[1].Content, "um hello world") {
		t.Errorf("user message = %+v", gotReq.Messages[1])
	}
}

func TestOpenAICompatible_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer server.Close()

	_, err := NewOpenAICompatible(server.URL).Enhance(context.Background(), Request{Text: "hi", APIKey: "k"})
	if err == nil {
		t.Fatal("Enhance() should fail without choices")
	}
}

func TestGemini_Enhance(t *testing.T) {
	var gotPath, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"clean text"}]},"finishReason":"STOP"}]}`))
	}))
	defer server.Close()

	got, err := NewGemini(server.URL).Enhance(context.Background(), Request{
		Text:   "uh clean text",
		APIKey: "gem-key",
		Model:  "gemini-2.5-flash",
	})
	if err != nil {
		t.Fatalf("Enhance() error = %v", err)
	}
	if got != "clean text" {
		t.Errorf("Enhance() = %q, want %q", got, "clean text")
	}
	if !strings.HasSuffix(gotPath, "models/gemini-2.5-flash:generateContent") {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "gem-key" {
		t.Errorf("x-goog-api-key = %q", gotKey)
	}
}

func TestEnhance_EmptyText(t *testing.T) {
	for _, e := range []Enhancer{NewOpenAICompatible("http://127.0.0.1:1"), NewGemini("http://127.0.0.1:1")} {
		got, err := e.Enhance(context.Background(), Request{Text: "  "})
		if err != nil || got != "" {
			t.Errorf("Enhance(blank) = (%q, %v), want empty", got, err)
		}
	}
}
