package recording

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

// PipeWire captures through a pw-record subprocess writing raw PCM to stdout.
type PipeWire struct {
	config Config

	mu     sync.Mutex // guards cmd and cancel
	cmd    *exec.Cmd
	cancel context.CancelFunc

	wg sync.WaitGroup
}

func NewPipeWire(config Config) *PipeWire {
	return &PipeWire{config: config}
}

func (p *PipeWire) Start(ctx context.Context) (<-chan Frame, <-chan error, error) {
	if err := p.config.Validate(); err != nil {
		return nil, nil, err
	}
	if _, err := exec.LookPath("pw-record"); err != nil {
		return nil, nil, fmt.Errorf("pw-record not found: %w (install pipewire-tools)", err)
	}

	captureCtx, cancel := context.WithCancel(ctx)

	frames := make(chan Frame, p.config.ChannelBufferSize)
	errs := make(chan error, 1)

	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	p.wg.Add(1)
	go p.captureLoop(captureCtx, frames, errs)

	return frames, errs, nil
}

func (p *PipeWire) Stop() error {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

func (p *PipeWire) Wait() {
	p.wg.Wait()
}

func (p *PipeWire) captureLoop(ctx context.Context, frames chan<- Frame, errs chan<- error) {
	defer func() {
		close(frames)
		close(errs)

		p.mu.Lock()
		if p.cmd != nil {
			_ = p.cmd.Wait()
			p.cmd = nil
		}
		p.cancel = nil
		p.mu.Unlock()

		p.wg.Done()
	}()

	cmd := exec.CommandContext(ctx, "pw-record", p.args()...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		p.fail(errs, fmt.Errorf("create stdout pipe: %w", err))
		return
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		p.fail(errs, fmt.Errorf("create stderr pipe: %w", err))
		return
	}

	p.mu.Lock()
	p.cmd = cmd
	p.mu.Unlock()

	if err := cmd.Start(); err != nil {
		p.fail(errs, fmt.Errorf("start pw-record: %w", err))
		return
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			log.Printf("recording: pw-record: %s", scanner.Text())
		}
	}()

	buf := make([]byte, p.config.BufferSize)
	for {
		// ReadFull keeps every frame sample-aligned
		n, readErr := io.ReadFull(stdout, buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])

			select {
			case frames <- Frame{Data: data, Timestamp: time.Now()}:
			case <-ctx.Done():
				return
			}
		}

		if readErr != nil {
			if ctx.Err() != nil || errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
				return
			}
			p.fail(errs, fmt.Errorf("read audio: %w", readErr))
			return
		}
	}
}

func (p *PipeWire) fail(errs chan<- error, err error) {
	select {
	case errs <- err:
	default:
	}
	p.Stop()
}

func (p *PipeWire) args() []string {
	args := []string{
		"--format", "s16",
		"--rate", strconv.Itoa(SampleRate),
		"--channels", strconv.Itoa(Channels),
	}
	if p.config.Device != "" {
		args = append(args, "--target", p.config.Device)
	}
	return append(args, "-")
}

// CheckPipeWire verifies pw-record is installed and the PipeWire daemon answers.
func CheckPipeWire(ctx context.Context) error {
	if _, err := exec.LookPath("pw-record"); err != nil {
		return fmt.Errorf("pw-record not found: %w (install pipewire-tools)", err)
	}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := exec.CommandContext(checkCtx, "pw-cli", "info").Run(); err != nil {
		return fmt.Errorf("PipeWire not running or accessible: %w", err)
	}
	return nil
}
