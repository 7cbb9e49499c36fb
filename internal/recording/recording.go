// Package recording owns microphone capture: 16 kHz mono signed 16-bit little-endian PCM.
package recording

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

const (
	SampleRate     = 16000
	Channels       = 1
	BytesPerSample = 2
	Format         = "s16le"

	// levelScale maps mean absolute amplitude to a 0..1 meter value.
	levelScale = 2000.0

	// SpeechLevel is the meter value above which a chunk counts as speech.
	SpeechLevel = 0.05
)

var ErrAlreadyRecording = errors.New("already recording")

type Frame struct {
	Data      []byte
	Timestamp time.Time
}

// Device produces PCM frames until its context is cancelled or Stop is called.
// Both channels are closed when capture ends.
type Device interface {
	Start(ctx context.Context) (<-chan Frame, <-chan error, error)
	Stop() error
	Wait()
}

type Config struct {
	Backend           string
	Device            string
	BufferSize        int
	ChannelBufferSize int
}

func DefaultConfig() Config {
	return Config{
		Backend:           "pipewire",
		Device:            "",
		BufferSize:        3200, // 100ms
		ChannelBufferSize: 30,
	}
}

func (c Config) Validate() error {
	if c.BufferSize <= 0 {
		return fmt.Errorf("invalid BufferSize: %d", c.BufferSize)
	}
	if c.BufferSize%(BytesPerSample*Channels) != 0 {
		return fmt.Errorf("BufferSize %d not aligned to %d-byte samples", c.BufferSize, BytesPerSample*Channels)
	}
	if c.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid ChannelBufferSize: %d", c.ChannelBufferSize)
	}
	return nil
}

// Callbacks receive capture output on the capture goroutine, in capture order.
// They must not call Capturer.Stop.
type Callbacks struct {
	OnChunk func(chunk []byte)
	OnError func(err error)
}

type captureState int

const (
	stateIdle captureState = iota
	stateRecording
	stateStopping
)

// Capturer accumulates one recording at a time from a Device.
type Capturer struct {
	device Device

	mu        sync.Mutex
	state     captureState
	buffer    []byte
	startedAt time.Time
	cancel    context.CancelFunc
	pumpDone  chan struct{}
}

func NewCapturer(device Device) *Capturer {
	return &Capturer{device: device}
}

func (c *Capturer) IsRecording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state != stateIdle
}

func (c *Capturer) Start(cb Callbacks) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != stateIdle {
		return ErrAlreadyRecording
	}

	ctx, cancel := context.WithCancel(context.Background())
	frames, errs, err := c.device.Start(ctx)
	if err != nil {
		cancel()
		return fmt.Errorf("start capture device: %w", err)
	}

	done := make(chan struct{})
	c.state = stateRecording
	c.buffer = nil
	c.startedAt = time.Now()
	c.cancel = cancel
	c.pumpDone = done

	go c.pump(frames, errs, cb, done)
	log.Printf("recording: started")
	return nil
}

// Stop halts the device, drains pending frames and returns everything captured.
// It returns nil when no recording is active.
func (c *Capturer) Stop() []byte {
	c.mu.Lock()
	if c.state != stateRecording {
		c.mu.Unlock()
		return nil
	}
	c.state = stateStopping
	cancel := c.cancel
	done := c.pumpDone
	started := c.startedAt
	c.mu.Unlock()

	if err := c.device.Stop(); err != nil {
		log.Printf("recording: stop device: %v", err)
	}
	cancel()
	<-done
	c.device.Wait()

	c.mu.Lock()
	audio := c.buffer
	c.buffer = nil
	c.cancel = nil
	c.pumpDone = nil
	c.state = stateIdle
	c.mu.Unlock()

	log.Printf("recording: stopped after %v, %d bytes", time.Since(started).Round(time.Millisecond), len(audio))
	return audio
}

// Close stops any active recording and discards its audio.
func (c *Capturer) Close() error {
	c.Stop()
	return nil
}

func (c *Capturer) pump(frames <-chan Frame, errs <-chan error, cb Callbacks, done chan<- struct{}) {
	defer close(done)

	for frames != nil || errs != nil {
		select {
		case frame, ok := <-frames:
			if !ok {
				frames = nil
				continue
			}
			if len(frame.Data) == 0 {
				continue
			}
			c.mu.Lock()
			c.buffer = append(c.buffer, frame.Data...)
			c.mu.Unlock()
			if cb.OnChunk != nil {
				cb.OnChunk(frame.Data)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.Printf("recording: device error: %v", err)
			if cb.OnError != nil {
				cb.OnError(err)
			}
		}
	}
}

// Level returns the mean absolute sample amplitude of chunk scaled to 0..1.
func Level(chunk []byte) float32 {
	n := len(chunk) / BytesPerSample
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(chunk[i*2:]))
		if s < 0 {
			sum -= float64(s)
		} else {
			sum += float64(s)
		}
	}
	level := sum / float64(n) / levelScale
	if level > 1 {
		level = 1
	}
	return float32(level)
}

// IsSpeech reports whether a meter level counts as speech.
func IsSpeech(level float32) bool {
	return level > SpeechLevel
}

// Duration returns the playback length of a PCM buffer in the capture format.
func Duration(pcm []byte) time.Duration {
	samples := len(pcm) / (BytesPerSample * Channels)
	return time.Duration(samples) * time.Second / SampleRate
}
