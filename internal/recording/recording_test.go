package recording

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeDevice emits the queued frames, then blocks until stopped.
type fakeDevice struct {
	frames   [][]byte
	startErr error
	failWith error

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	starts  int
	stopped int
}

func (d *fakeDevice) Start(ctx context.Context) (<-chan Frame, <-chan error, error) {
	if d.startErr != nil {
		return nil, nil, d.startErr
	}
	ctx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.cancel = cancel
	d.starts++
	d.mu.Unlock()

	frameCh := make(chan Frame, len(d.frames))
	errCh := make(chan error, 1)
	for _, f := range d.frames {
		frameCh <- Frame{Data: f, Timestamp: time.Now()}
	}
	if d.failWith != nil {
		errCh <- d.failWith
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		<-ctx.Done()
		close(frameCh)
		close(errCh)
	}()
	return frameCh, errCh, nil
}

func (d *fakeDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped++
	if d.cancel != nil {
		d.cancel()
	}
	return nil
}

func (d *fakeDevice) Wait() { d.wg.Wait() }

func pcm(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Backend != "pipewire" {
		t.Errorf("default backend should be pipewire, got %s", config.Backend)
	}
	if config.BufferSize != 3200 {
		t.Errorf("default buffer size should be 3200, got %d", config.BufferSize)
	}
	if config.ChannelBufferSize != 30 {
		t.Errorf("default channel buffer size should be 30, got %d", config.ChannelBufferSize)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
	}{
		{name: "valid default config", config: DefaultConfig()},
		{name: "zero buffer size", config: Config{BufferSize: 0, ChannelBufferSize: 10}, expectError: true},
		{name: "odd buffer size", config: Config{BufferSize: 3201, ChannelBufferSize: 10}, expectError: true},
		{name: "zero channel buffer", config: Config{BufferSize: 3200, ChannelBufferSize: 0}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.expectError && err == nil {
				t.Error("expected error")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestCapturer_StartStop(t *testing.T) {
	chunks := [][]byte{pcm(1, 2), pcm(3, 4), pcm(5)}
	dev := &fakeDevice{frames: chunks}
	c := NewCapturer(dev)

	var mu sync.Mutex
	var seen [][]byte
	got := make(chan struct{}, len(chunks))
	err := c.Start(Callbacks{OnChunk: func(chunk []byte) {
		mu.Lock()
		seen = append(seen, chunk)
		mu.Unlock()
		got <- struct{}{}
	}})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !c.IsRecording() {
		t.Fatal("capturer should be recording after Start")
	}

	for range chunks {
		select {
		case <-got:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for chunks")
		}
	}

	audio := c.Stop()
	want := bytes.Join(chunks, nil)
	if !bytes.Equal(audio, want) {
		t.Errorf("Stop() = %v, want %v", audio, want)
	}
	if c.IsRecording() {
		t.Error("capturer should be idle after Stop")
	}

	mu.Lock()
	defer mu.Unlock()
	for i := range chunks {
		if !bytes.Equal(seen[i], chunks[i]) {
			t.Errorf("chunk %d delivered out of order: %v", i, seen[i])
		}
	}
}

func TestCapturer_AlreadyRecording(t *testing.T) {
	c := NewCapturer(&fakeDevice{})
	if err := c.Start(Callbacks{}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer c.Stop()

	if err := c.Start(Callbacks{}); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRecording", err)
	}
}

func TestCapturer_StopIdempotent(t *testing.T) {
	dev := &fakeDevice{frames: [][]byte{pcm(9, 9)}}
	c := NewCapturer(dev)

	if audio := c.Stop(); audio != nil {
		t.Errorf("Stop() before Start = %v, want nil", audio)
	}

	if err := c.Start(Callbacks{}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	c.Stop()
	if audio := c.Stop(); audio != nil {
		t.Errorf("second Stop() = %v, want nil", audio)
	}
	if dev.stopped != 1 {
		t.Errorf("device stopped %d times, want 1", dev.stopped)
	}
}

func TestCapturer_StartFailure(t *testing.T) {
	c := NewCapturer(&fakeDevice{startErr: errors.New("no device")})
	if err := c.Start(Callbacks{}); err == nil {
		t.Fatal("Start() should fail when the device fails")
	}
	if c.IsRecording() {
		t.Error("capturer should stay idle after a failed start")
	}
}

func TestCapturer_DeviceError(t *testing.T) {
	deviceErr := errors.New("device unplugged")
	c := NewCapturer(&fakeDevice{failWith: deviceErr})

	errCh := make(chan error, 1)
	if err := c.Start(Callbacks{OnError: func(err error) { errCh <- err }}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer c.Stop()

	select {
	case err := <-errCh:
		if !errors.Is(err, deviceErr) {
			t.Errorf("OnError got %v, want %v", err, deviceErr)
		}
	case <-time.After(time.Second):
		t.Fatal("device error was not reported")
	}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		name  string
		chunk []byte
		want  float32
	}{
		{name: "empty", chunk: nil, want: 0},
		{name: "silence", chunk: pcm(0, 0, 0, 0), want: 0},
		{name: "mean of absolute values", chunk: pcm(100, -300), want: 0.1},
		{name: "clamped", chunk: pcm(32767, -32768), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Level(tt.chunk)
			if diff := got - tt.want; diff > 1e-6 || diff < -1e-6 {
				t.Errorf("Level() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsSpeech(t *testing.T) {
	if IsSpeech(0.05) {
		t.Error("level at the threshold should not count as speech")
	}
	if !IsSpeech(0.051) {
		t.Error("level above the threshold should count as speech")
	}
}

func TestDuration(t *testing.T) {
	if got := Duration(make([]byte, 32000)); got != time.Second {
		t.Errorf("Duration(32000 bytes) = %v, want 1s", got)
	}
}

func TestPipeWireArgs(t *testing.T) {
	config := DefaultConfig()
	config.Device = "alsa_input.usb"
	p := NewPipeWire(config)

	args := p.args()
	want := []string{"--format", "s16", "--rate", "16000", "--channels", "1", "--target", "alsa_input.usb", "-"}
	if len(args) != len(want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, args[i], want[i])
		}
	}
}
