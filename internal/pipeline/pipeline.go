// Package pipeline turns a finished recording into text: trim, transcribe, enhance.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/voicewin/voicewin/internal/llm"
	"github.com/voicewin/voicewin/internal/transcriber"
)

// MinAudioBytes is the shortest recording worth sending (about 31 ms).
const MinAudioBytes = 1000

var (
	ErrTooShort     = errors.New("recording too short")
	ErrNoSpeech     = errors.New("no speech detected")
	ErrNoCredential = errors.New("no valid API key for selected provider")
)

// ProviderError carries a transcription provider failure verbatim.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return "transcription failed"
	}
	return e.Err.Error()
}

func (e *ProviderError) Unwrap() error { return e.Err }

type Mode string

const (
	ModeBatch     Mode = "batch"
	ModeStreaming Mode = "streaming"
)

// Result is the outcome of one batch run or one finalized streaming transcript.
type Result struct {
	Success  bool
	Text     string
	Error    string
	Elapsed  time.Duration
	Mode     Mode
	Provider string
}

type VADSettings struct {
	Enabled      bool
	Threshold    float32
	MinSilenceMs int
}

type EnhancementSettings struct {
	Enabled  bool
	Provider string
	APIKey   string
	Model    string
	Prompt   string
}

// Active reports whether enhancement should run: enabled and a key is present.
func (e EnhancementSettings) Active() bool {
	return e.Enabled && e.APIKey != ""
}

// Settings is a snapshot taken when a recording is processed.
type Settings struct {
	Provider    string
	APIKey      string
	Model       string
	Language    string
	VAD         VADSettings
	Enhancement EnhancementSettings
}

type Trimmer interface {
	Trim(pcm []byte, threshold float32, minSilenceMs int) []byte
}

type Pipeline struct {
	transcribers map[string]transcriber.Transcriber
	enhancers    map[string]llm.Enhancer
	trimmer      Trimmer
}

func New(transcribers map[string]transcriber.Transcriber, enhancers map[string]llm.Enhancer, trimmer Trimmer) *Pipeline {
	return &Pipeline{transcribers: transcribers, enhancers: enhancers, trimmer: trimmer}
}

// Run processes one batch recording. report receives progress statuses and may be nil.
// Aborts (ErrTooShort, ErrNoSpeech, ErrNoCredential) return a zero Result; a
// *ProviderError comes with a failed Result describing it.
func (p *Pipeline) Run(ctx context.Context, audio []byte, s Settings, report func(string)) (Result, error) {
	if report == nil {
		report = func(string) {}
	}

	if len(audio) < MinAudioBytes {
		return Result{}, ErrTooShort
	}

	if s.VAD.Enabled && p.trimmer != nil {
		report("Detecting speech...")
		trimmed := p.trimmer.Trim(audio, s.VAD.Threshold, s.VAD.MinSilenceMs)
		if len(trimmed) == 0 {
			return Result{}, ErrNoSpeech
		}
		log.Printf("pipeline: trimmed %d -> %d bytes", len(audio), len(trimmed))
		audio = trimmed
	}

	if s.APIKey == "" {
		return Result{}, ErrNoCredential
	}

	t, ok := p.transcribers[s.Provider]
	if !ok {
		err := &ProviderError{Provider: s.Provider, Err: fmt.Errorf("unsupported provider: %s", s.Provider)}
		return Result{Error: err.Error(), Mode: ModeBatch, Provider: s.Provider}, err
	}

	report("Transcribing...")
	start := time.Now()
	text, err := t.Transcribe(ctx, transcriber.Request{
		Audio:    audio,
		APIKey:   s.APIKey,
		Model:    s.Model,
		Language: s.Language,
	})
	elapsed := time.Since(start)

	if err != nil {
		perr := &ProviderError{Provider: s.Provider, Err: err}
		return Result{Error: perr.Error(), Elapsed: elapsed, Mode: ModeBatch, Provider: s.Provider}, perr
	}

	result := Result{Success: true, Text: text, Elapsed: elapsed, Mode: ModeBatch, Provider: s.Provider}
	if enhanced, took, ok := p.Enhance(ctx, text, s.Enhancement, report); ok {
		result.Text = enhanced
		result.Elapsed += took
	}
	return result, nil
}

// Enhance runs the configured enhancer. It reports ok=false, leaving the caller's
// text in place, when enhancement is inactive, fails or returns nothing.
func (p *Pipeline) Enhance(ctx context.Context, text string, e EnhancementSettings, report func(string)) (string, time.Duration, bool) {
	if !e.Active() || strings.TrimSpace(text) == "" {
		return "", 0, false
	}
	enhancer, ok := p.enhancers[e.Provider]
	if !ok {
		log.Printf("pipeline: no enhancer for provider %q", e.Provider)
		return "", 0, false
	}

	if report != nil {
		report("Enhancing...")
	}
	start := time.Now()
	out, err := enhancer.Enhance(ctx, llm.Request{Text: text, APIKey: e.APIKey, Model: e.Model, Prompt: e.Prompt})
	took := time.Since(start)
	if err != nil {
		log.Printf("pipeline: enhancement failed, keeping original text: %v", err)
		return "", 0, false
	}
	if strings.TrimSpace(out) == "" {
		return "", 0, false
	}
	return out, took, true
}
