// Package notify surfaces recording state and failures to the user.
package notify

import (
	"fmt"
	"log"
	"os/exec"
	"strings"
	"sync"

	"github.com/voicewin/voicewin/internal/events"
	"github.com/voicewin/voicewin/internal/pipeline"
)

type Notifier interface {
	RecordingChanged(on bool)
	Error(msg string)
}

// New returns the notifier for a configured type: "desktop", "log" or "none".
func New(kind string) (Notifier, error) {
	switch kind {
	case "desktop", "":
		return Desktop{}, nil
	case "log":
		return Log{}, nil
	case "none":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown notification type: %s", kind)
	}
}

type Desktop struct{}

func (Desktop) RecordingChanged(on bool) {
	state := "Stopped"
	if on {
		state = "Started"
	}
	send("-a", "voicewin", "-t", "1500", fmt.Sprintf("voicewin: Recording %s", state))
}

func (Desktop) Error(msg string) {
	send("-a", "voicewin", "-u", "critical", "voicewin", msg)
}

func send(args ...string) {
	if err := exec.Command("notify-send", args...).Run(); err != nil {
		log.Printf("notify: notify-send failed: %v", err)
	}
}

type Log struct{}

func (Log) RecordingChanged(on bool) {
	if on {
		log.Printf("notify: recording started")
		return
	}
	log.Printf("notify: recording stopped")
}

func (Log) Error(msg string) {
	log.Printf("notify: error: %s", msg)
}

// Nop is a Notifier that does nothing.
type Nop struct{}

func (Nop) RecordingChanged(on bool) {}
func (Nop) Error(msg string)         {}

// failurePrefixes are the orchestrator status lines worth an error notification.
var failurePrefixes = []string{
	"No API key configured",
	"No valid API key",
	"Connection failed",
	"Recording failed",
	"Streaming error",
	"Transcription failed",
}

// Observer turns orchestrator events into notifications. Notifier calls run
// one at a time on a background worker, in the order the events arrived.
type Observer struct {
	events.Base
	n Notifier

	mu      sync.Mutex
	queue   []func()
	running bool
	wg      sync.WaitGroup
}

func NewObserver(n Notifier) *Observer {
	return &Observer{n: n}
}

func (o *Observer) RecordingStarted() { o.post(func() { o.n.RecordingChanged(true) }) }
func (o *Observer) RecordingStopped() { o.post(func() { o.n.RecordingChanged(false) }) }

func (o *Observer) StatusChanged(status string) {
	if isFailure(status) {
		o.post(func() { o.n.Error(status) })
	}
}

func (o *Observer) TranscriptionCompleted(r pipeline.Result) {
	if !r.Success && r.Error != "" {
		o.post(func() { o.n.Error("Transcription failed: " + r.Error) })
	}
}

// Wait blocks until every queued notification was delivered.
func (o *Observer) Wait() {
	o.wg.Wait()
}

func (o *Observer) post(fn func()) {
	o.wg.Add(1)
	o.mu.Lock()
	o.queue = append(o.queue, fn)
	if !o.running {
		o.running = true
		go o.drain()
	}
	o.mu.Unlock()
}

func (o *Observer) drain() {
	for {
		o.mu.Lock()
		if len(o.queue) == 0 {
			o.running = false
			o.mu.Unlock()
			return
		}
		fn := o.queue[0]
		o.queue = o.queue[1:]
		o.mu.Unlock()

		o.deliver(fn)
	}
}

func (o *Observer) deliver(fn func()) {
	defer o.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("notify: panic in notifier: %v", r)
		}
	}()
	fn()
}

func isFailure(status string) bool {
	for _, p := range failurePrefixes {
		if strings.HasPrefix(status, p) {
			return true
		}
	}
	return false
}
