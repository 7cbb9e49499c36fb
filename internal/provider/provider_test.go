package provider

import "testing"

func TestBaseProviderName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{TranscriptionDeepgramStreaming, ProviderDeepgram},
		{TranscriptionDeepgram, ProviderDeepgram},
		{TranscriptionGroq, ProviderGroq},
		{"unknown", "unknown"},
	}
	for _, tt := range tests {
		if got := BaseProviderName(tt.in); got != tt.want {
			t.Errorf("BaseProviderName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEnvVarForProvider(t *testing.T) {
	tests := map[string]string{
		TranscriptionGroq:              EnvGroqKey,
		TranscriptionDeepgramStreaming: EnvDeepgramKey,
		ProviderGemini:                 EnvGeminiKey,
		"whisper-cpp":                  "",
	}
	for in, want := range tests {
		if got := EnvVarForProvider(in); got != want {
			t.Errorf("EnvVarForProvider(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDefaults(t *testing.T) {
	if got := DefaultTranscriptionModel(TranscriptionGroq); got != "whisper-large-v3-turbo" {
		t.Errorf("groq default model = %q", got)
	}
	if got := DefaultTranscriptionModel(TranscriptionDeepgramStreaming); got != "nova-3" {
		t.Errorf("deepgram streaming default model = %q", got)
	}
	if !IsStreaming(TranscriptionDeepgramStreaming) || IsStreaming(TranscriptionDeepgram) {
		t.Error("only deepgram-streaming should be streaming")
	}
}

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		provider string
		key      string
		want     bool
	}{
		{ProviderGroq, "gsk_abc", true},
		{ProviderGroq, "sk-abc", false},
		{ProviderDeepgram, "anything", true},
		{ProviderOpenAI, "", false},
	}
	for _, tt := range tests {
		if got := Get(tt.provider).ValidateAPIKey(tt.key); got != tt.want {
			t.Errorf("%s.ValidateAPIKey(%q) = %v, want %v", tt.provider, tt.key, got, tt.want)
		}
	}
}

func TestListWithLLM(t *testing.T) {
	got := ListWithLLM()
	want := []string{ProviderGemini, ProviderGroq, ProviderOpenAI}
	if len(got) != len(want) {
		t.Fatalf("ListWithLLM() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ListWithLLM()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
