package provider

// Registry provider names
const (
	ProviderGroq     = "groq"
	ProviderOpenAI   = "openai"
	ProviderDeepgram = "deepgram"
	ProviderGemini   = "gemini"
)

// Transcription provider names accepted in config (transcription.provider)
const (
	TranscriptionGroq              = "groq"
	TranscriptionOpenAI            = "openai"
	TranscriptionDeepgram          = "deepgram"
	TranscriptionDeepgramStreaming = "deepgram-streaming"
)

// Environment variable names for API keys
const (
	EnvGroqKey     = "GROQ_API_KEY"
	EnvOpenAIKey   = "OPENAI_API_KEY"
	EnvDeepgramKey = "DEEPGRAM_API_KEY"
	EnvGeminiKey   = "GEMINI_API_KEY"
)

// BaseProviderName maps a transcription provider name to the provider that owns its credential,
// e.g. "deepgram-streaming" -> "deepgram".
func BaseProviderName(transcriptionProvider string) string {
	if transcriptionProvider == TranscriptionDeepgramStreaming {
		return ProviderDeepgram
	}
	return transcriptionProvider
}

// IsStreaming reports whether the transcription provider uses a live session.
func IsStreaming(transcriptionProvider string) bool {
	return transcriptionProvider == TranscriptionDeepgramStreaming
}

// EnvVarForProvider returns the environment variable name for a provider's API key
func EnvVarForProvider(name string) string {
	if p := Get(BaseProviderName(name)); p != nil {
		return p.EnvVar
	}
	return ""
}
