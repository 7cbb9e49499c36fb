// Package events fans orchestrator lifecycle notifications out to observers.
package events

import (
	"sync"

	"github.com/voicewin/voicewin/internal/pipeline"
)

// Observer methods are called synchronously from orchestrator goroutines and
// must return quickly.
type Observer interface {
	RecordingStarted()
	RecordingStopped()
	StatusChanged(status string)
	AudioLevelChanged(level float32)
	SpeechDetected(speaking bool)
	TranscriptionCompleted(result pipeline.Result)
}

// Base implements Observer with no-ops; embed it to handle a subset of events.
type Base struct{}

func (Base) RecordingStarted()                      {}
func (Base) RecordingStopped()                      {}
func (Base) StatusChanged(string)                   {}
func (Base) AudioLevelChanged(float32)              {}
func (Base) SpeechDetected(bool)                    {}
func (Base) TranscriptionCompleted(pipeline.Result) {}

// Broadcaster is an Observer that forwards every event to its subscribers.
type Broadcaster struct {
	mu        sync.RWMutex
	observers map[int]Observer
	nextID    int
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{observers: make(map[int]Observer)}
}

// Subscribe registers o and returns a function that removes it.
func (b *Broadcaster) Subscribe(o Observer) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.observers[id] = o
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.observers, id)
		b.mu.Unlock()
	}
}

func (b *Broadcaster) snapshot() []Observer {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Observer, 0, len(b.observers))
	for id := 0; id < b.nextID; id++ {
		if o, ok := b.observers[id]; ok {
			out = append(out, o)
		}
	}
	return out
}

func (b *Broadcaster) RecordingStarted() {
	for _, o := range b.snapshot() {
		o.RecordingStarted()
	}
}

func (b *Broadcaster) RecordingStopped() {
	for _, o := range b.snapshot() {
		o.RecordingStopped()
	}
}

func (b *Broadcaster) StatusChanged(status string) {
	for _, o := range b.snapshot() {
		o.StatusChanged(status)
	}
}

func (b *Broadcaster) AudioLevelChanged(level float32) {
	for _, o := range b.snapshot() {
		o.AudioLevelChanged(level)
	}
}

func (b *Broadcaster) SpeechDetected(speaking bool) {
	for _, o := range b.snapshot() {
		o.SpeechDetected(speaking)
	}
}

func (b *Broadcaster) TranscriptionCompleted(result pipeline.Result) {
	for _, o := range b.snapshot() {
		o.TranscriptionCompleted(result)
	}
}
