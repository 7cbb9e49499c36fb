// Package orchestrator drives one dictation at a time: hotkey events start and stop
// capture, audio goes either to a live streaming session or to the batch pipeline,
// and the resulting text is pasted.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/voicewin/voicewin/internal/events"
	"github.com/voicewin/voicewin/internal/pipeline"
	"github.com/voicewin/voicewin/internal/recording"
	"github.com/voicewin/voicewin/internal/streaming"
)

type Capturer interface {
	Start(cb recording.Callbacks) error
	Stop() []byte
}

type Session interface {
	Connect(ctx context.Context, creds streaming.Credentials) error
	SendAudio(chunk []byte)
	Close() error
	Connected() bool
}

type SessionFactory func(h streaming.Handlers) Session

type Processor interface {
	Run(ctx context.Context, audio []byte, s pipeline.Settings, report func(string)) (pipeline.Result, error)
	Enhance(ctx context.Context, text string, e pipeline.EnhancementSettings, report func(string)) (string, time.Duration, bool)
}

type Paster interface {
	Paste(text string)
}

// Settings is read once per recording.
type Settings struct {
	Pipeline  pipeline.Settings
	Streaming bool
	// SilenceTimeout ends a streaming recording after this long without speech.
	// Zero disables it. It only applies when Pipeline.VAD.Enabled is set.
	SilenceTimeout time.Duration
}

type Config struct {
	Capturer   Capturer
	NewSession SessionFactory
	Processor  Processor
	Paster     Paster
	Observer   events.Observer
	Settings   func() Settings
	// OnAutoStop runs after a silence auto-stop finished tearing down.
	OnAutoStop func()
}

// State is a snapshot of the guard flags.
type State struct {
	Recording  bool
	Streaming  bool
	Processing bool
}

func (s State) String() string {
	switch {
	case s.Processing:
		return "processing"
	case s.Streaming:
		return "streaming"
	case s.Recording:
		return "recording"
	}
	return "idle"
}

type Orchestrator struct {
	capturer   Capturer
	newSession SessionFactory
	processor  Processor
	paster     Paster
	observer   events.Observer
	settings   func() Settings
	onAutoStop func()
	now        func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	recording     bool
	streaming     bool
	processing    bool
	connecting    bool
	cancelConnect bool
	stopping      bool
	autoStopping  bool
	shutdown      bool
	session       Session
	active        Settings
	streamStarted time.Time
	lastSpeech    time.Time

	transcripts chan string

	taskMu sync.Mutex
	closed bool
	tasks  sync.WaitGroup

	closeOnce sync.Once
}

func New(cfg Config) *Orchestrator {
	observer := cfg.Observer
	if observer == nil {
		observer = events.Base{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		capturer:    cfg.Capturer,
		newSession:  cfg.NewSession,
		processor:   cfg.Processor,
		paster:      cfg.Paster,
		observer:    observer,
		settings:    cfg.Settings,
		onAutoStop:  cfg.OnAutoStop,
		now:         time.Now,
		ctx:         ctx,
		cancel:      cancel,
		transcripts: make(chan string, 32),
	}
	o.spawn("transcripts", o.transcriptWorker)
	return o
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return State{Recording: o.recording, Streaming: o.streaming, Processing: o.processing}
}

// Toggle engages when idle and disengages when a recording is active or starting.
func (o *Orchestrator) Toggle() {
	o.mu.Lock()
	active := o.recording || o.streaming || o.connecting
	o.mu.Unlock()
	if active {
		o.Disengage()
		return
	}
	o.Engage()
}

// Engage starts a recording unless one is already running or being processed.
// It never blocks on the network.
func (o *Orchestrator) Engage() {
	s := o.settings()

	o.mu.Lock()
	if o.shutdown {
		o.mu.Unlock()
		return
	}
	if o.processing || o.streaming || o.connecting || o.recording {
		o.mu.Unlock()
		log.Printf("orchestrator: engage ignored, busy")
		return
	}

	if s.Pipeline.APIKey == "" {
		o.mu.Unlock()
		o.status("No API key configured")
		return
	}

	o.active = s

	if s.Streaming {
		o.connecting = true
		o.cancelConnect = false
		o.mu.Unlock()
		o.status("Connecting...")
		o.spawn("connect", func() { o.startStreaming(s) })
		return
	}

	if err := o.capturer.Start(o.callbacks()); err != nil {
		o.mu.Unlock()
		o.status(statusText(fmt.Errorf("recording failed: %w", err)))
		return
	}
	o.recording = true
	o.mu.Unlock()

	o.status("Recording...")
	o.observer.RecordingStarted()
}

func (o *Orchestrator) startStreaming(s Settings) {
	session := o.newSession(streaming.Handlers{
		OnTranscript: o.enqueueTranscript,
		OnError:      o.streamError,
		OnClosed:     func() { log.Printf("orchestrator: streaming session closed") },
	})

	err := session.Connect(o.ctx, streaming.Credentials{
		APIKey:   s.Pipeline.APIKey,
		Model:    s.Pipeline.Model,
		Language: s.Pipeline.Language,
	})

	o.mu.Lock()
	if err != nil {
		o.connecting = false
		o.mu.Unlock()
		o.status(statusText(err))
		return
	}

	if o.shutdown {
		o.connecting = false
		o.mu.Unlock()
		session.Close()
		return
	}

	if o.cancelConnect {
		o.connecting = false
		o.cancelConnect = false
		o.mu.Unlock()
		session.Close()
		o.status("Cancelled")
		return
	}

	now := o.now()
	o.session = session
	o.streamStarted = now
	o.lastSpeech = now

	if err := o.capturer.Start(o.callbacks()); err != nil {
		o.session = nil
		o.connecting = false
		o.mu.Unlock()
		session.Close()
		o.status(statusText(fmt.Errorf("recording failed: %w", err)))
		return
	}

	o.connecting = false
	o.streaming = true
	o.recording = true
	o.mu.Unlock()

	o.status("Recording (streaming)...")
	o.observer.RecordingStarted()
}

// Disengage ends the active recording. A disengage that arrives while a
// streaming session is still connecting cancels it once the connect returns.
func (o *Orchestrator) Disengage() {
	o.mu.Lock()

	switch {
	case o.connecting:
		o.cancelConnect = true
		o.mu.Unlock()

	case o.streaming:
		if o.stopping {
			o.mu.Unlock()
			return
		}
		o.stopping = true
		session := o.session
		started := o.streamStarted
		o.mu.Unlock()
		o.spawn("stop-streaming", func() { o.stopStreaming(session, started) })

	case o.recording && !o.processing:
		o.recording = false
		o.processing = true
		s := o.active
		o.mu.Unlock()
		o.spawn("transcribe", func() { o.processBatch(s) })

	default:
		o.mu.Unlock()
	}
}

func (o *Orchestrator) stopStreaming(session Session, started time.Time) {
	func() {
		defer o.clearStreaming()
		o.status("Finalizing...")
		o.capturer.Stop()
		session.Close()
	}()

	o.observer.RecordingStopped()
	o.status(fmt.Sprintf("Streamed in %dms", o.now().Sub(started).Milliseconds()))
}

func (o *Orchestrator) autoStop() {
	o.mu.Lock()
	if !o.streaming || o.stopping {
		o.autoStopping = false
		o.mu.Unlock()
		return
	}
	o.stopping = true
	session := o.session
	o.mu.Unlock()

	func() {
		defer o.clearStreaming()
		o.status("Auto-stopped (silence timeout)")
		o.capturer.Stop()
		session.Close()
	}()

	o.observer.RecordingStopped()
	if o.onAutoStop != nil {
		o.onAutoStop()
	}
}

func (o *Orchestrator) clearStreaming() {
	o.mu.Lock()
	o.streaming = false
	o.recording = false
	o.session = nil
	o.stopping = false
	o.autoStopping = false
	o.mu.Unlock()
}

func (o *Orchestrator) processBatch(s Settings) {
	defer func() {
		o.mu.Lock()
		o.processing = false
		o.mu.Unlock()
	}()

	o.status("Processing...")
	audio := o.capturer.Stop()
	o.observer.RecordingStopped()

	result, err := o.processor.Run(o.ctx, audio, s.Pipeline, o.status)
	if err != nil {
		var perr *pipeline.ProviderError
		if errors.As(err, &perr) {
			o.observer.TranscriptionCompleted(result)
		}
		log.Printf("orchestrator: transcription aborted: %v", err)
		o.status(statusText(err))
		return
	}

	o.observer.TranscriptionCompleted(result)

	if strings.TrimSpace(result.Text) == "" {
		o.status("Transcription failed")
		return
	}

	o.paster.Paste(result.Text)
	o.status(fmt.Sprintf("Transcribed in %dms", result.Elapsed.Milliseconds()))
}

func (o *Orchestrator) callbacks() recording.Callbacks {
	return recording.Callbacks{OnChunk: o.handleChunk, OnError: o.deviceError}
}

func (o *Orchestrator) handleChunk(chunk []byte) {
	level := recording.Level(chunk)
	o.observer.AudioLevelChanged(level)
	speaking := recording.IsSpeech(level)

	o.mu.Lock()
	if o.streaming && o.session != nil {
		session := o.session
		vadEnabled := o.active.Pipeline.VAD.Enabled
		timeout := o.active.SilenceTimeout

		now := o.now()
		if vadEnabled && speaking {
			o.lastSpeech = now
		}
		trigger := false
		if vadEnabled && timeout > 0 && !o.autoStopping && !o.stopping && now.Sub(o.lastSpeech) >= timeout {
			o.autoStopping = true
			trigger = true
		}
		o.mu.Unlock()

		if session.Connected() {
			session.SendAudio(chunk)
		}
		if trigger {
			log.Printf("orchestrator: no speech for %v, auto-stopping", timeout)
			o.spawn("auto-stop", o.autoStop)
		}
		return
	}
	batch := o.recording
	o.mu.Unlock()

	if batch {
		o.observer.SpeechDetected(speaking)
	}
}

func (o *Orchestrator) deviceError(err error) {
	text := statusText(fmt.Errorf("recording failed: %w", err))

	o.mu.Lock()
	switch {
	case o.streaming && !o.stopping:
		o.stopping = true
		session := o.session
		o.mu.Unlock()
		o.spawn("device-failure", func() {
			func() {
				defer o.clearStreaming()
				o.capturer.Stop()
				session.Close()
			}()
			o.observer.RecordingStopped()
			o.status(text)
		})

	case o.recording && !o.streaming && !o.processing:
		o.recording = false
		o.processing = true
		o.mu.Unlock()
		o.spawn("device-failure", func() {
			defer func() {
				o.mu.Lock()
				o.processing = false
				o.mu.Unlock()
			}()
			o.capturer.Stop()
			o.observer.RecordingStopped()
			o.status(text)
		})

	default:
		o.mu.Unlock()
	}
}

func (o *Orchestrator) streamError(err error) {
	// Connect reports its own failure through its return value.
	if errors.Is(err, streaming.ErrConnectionFailed) {
		return
	}
	log.Printf("orchestrator: streaming error: %v", err)
	o.status("Streaming error: " + err.Error())
}

func (o *Orchestrator) enqueueTranscript(text string) {
	select {
	case o.transcripts <- text:
	case <-o.ctx.Done():
	}
}

// transcriptWorker handles finalized streaming transcripts one at a time so
// they are pasted in arrival order.
func (o *Orchestrator) transcriptWorker() {
	for {
		select {
		case <-o.ctx.Done():
			return
		case text := <-o.transcripts:
			o.deliverTranscript(text)
		}
	}
}

func (o *Orchestrator) deliverTranscript(text string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("orchestrator: panic delivering transcript: %v\n%s", r, debug.Stack())
		}
	}()

	s := o.settings()
	result := pipeline.Result{
		Success:  true,
		Text:     text,
		Mode:     pipeline.ModeStreaming,
		Provider: s.Pipeline.Provider,
	}
	if enhanced, took, ok := o.processor.Enhance(o.ctx, text, s.Pipeline.Enhancement, nil); ok {
		result.Text = enhanced
		result.Elapsed = took
	}

	o.paster.Paste(result.Text)
	o.observer.TranscriptionCompleted(result)
}

// Close stops capture, closes any streaming session and waits for background work.
func (o *Orchestrator) Close() error {
	o.closeOnce.Do(func() {
		o.mu.Lock()
		o.shutdown = true
		session := o.session
		o.session = nil
		o.streaming = false
		o.recording = false
		o.mu.Unlock()

		o.capturer.Stop()
		if session != nil {
			session.Close()
		}

		o.taskMu.Lock()
		o.closed = true
		o.taskMu.Unlock()

		o.cancel()
		o.tasks.Wait()
	})
	return nil
}

// spawn runs fn on a tracked goroutine; panics are logged, never propagated.
func (o *Orchestrator) spawn(name string, fn func()) {
	o.taskMu.Lock()
	if o.closed {
		o.taskMu.Unlock()
		return
	}
	o.tasks.Add(1)
	o.taskMu.Unlock()

	go func() {
		defer o.tasks.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("orchestrator: panic in %s: %v\n%s", name, r, debug.Stack())
			}
		}()
		fn()
	}()
}

func (o *Orchestrator) status(s string) {
	log.Printf("orchestrator: status: %s", s)
	o.observer.StatusChanged(s)
}

// statusText renders an error as a user-facing status line.
func statusText(err error) string {
	var perr *pipeline.ProviderError
	switch {
	case errors.Is(err, pipeline.ErrTooShort):
		return "Recording too short"
	case errors.Is(err, pipeline.ErrNoSpeech):
		return "No speech detected"
	case errors.Is(err, pipeline.ErrNoCredential):
		return "No valid API key for selected provider"
	case errors.As(err, &perr):
		return capitalize(perr.Error())
	}
	return capitalize(err.Error())
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
