// Package portaudio captures from the default input device through PortAudio.
package portaudio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/voicewin/voicewin/internal/recording"
)

type Device struct {
	config recording.Config

	mu     sync.Mutex
	cancel context.CancelFunc

	wg sync.WaitGroup
}

func New(config recording.Config) *Device {
	return &Device{config: config}
}

func (d *Device) Start(ctx context.Context) (<-chan recording.Frame, <-chan error, error) {
	if err := d.config.Validate(); err != nil {
		return nil, nil, err
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, nil, fmt.Errorf("portaudio init: %w", err)
	}

	in := make([]int16, d.config.BufferSize/recording.BytesPerSample)
	stream, err := portaudio.OpenDefaultStream(recording.Channels, 0, float64(recording.SampleRate), len(in), in)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, nil, fmt.Errorf("open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, nil, fmt.Errorf("start input stream: %w", err)
	}

	captureCtx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.cancel = cancel
	d.mu.Unlock()

	frames := make(chan recording.Frame, d.config.ChannelBufferSize)
	errs := make(chan error, 1)

	d.wg.Add(1)
	go d.readLoop(captureCtx, stream, in, frames, errs)

	return frames, errs, nil
}

func (d *Device) Stop() error {
	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

func (d *Device) Wait() {
	d.wg.Wait()
}

func (d *Device) readLoop(ctx context.Context, stream *portaudio.Stream, in []int16, frames chan<- recording.Frame, errs chan<- error) {
	defer func() {
		if err := stream.Stop(); err != nil {
			log.Printf("portaudio: stop stream: %v", err)
		}
		_ = stream.Close()
		_ = portaudio.Terminate()
		close(frames)
		close(errs)
		d.wg.Done()
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		if err := stream.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				log.Printf("portaudio: input overflowed")
				continue
			}
			select {
			case errs <- fmt.Errorf("read input stream: %w", err):
			default:
			}
			return
		}

		select {
		case frames <- recording.Frame{Data: encode(in), Timestamp: time.Now()}:
		case <-ctx.Done():
			return
		}
	}
}

func encode(samples []int16) []byte {
	out := make([]byte, len(samples)*recording.BytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
