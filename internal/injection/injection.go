// Package injection delivers finished text to the focused application.
package injection

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// Backend is one way of getting text into the focused window.
type Backend interface {
	Name() string
	Available() error
	Inject(ctx context.Context, text string, timeout time.Duration) error
}

type Config struct {
	Backends         []string // tried in order: "clipboard", "wtype", "ydotool"
	YdotoolTimeout   time.Duration
	WtypeTimeout     time.Duration
	ClipboardTimeout time.Duration
	// Delimiter is appended after every pasted transcript.
	Delimiter string
}

func DefaultConfig() Config {
	return Config{
		Backends:         []string{"clipboard", "wtype", "ydotool"},
		YdotoolTimeout:   5 * time.Second,
		WtypeTimeout:     5 * time.Second,
		ClipboardTimeout: 3 * time.Second,
		Delimiter:        " ",
	}
}

func (c Config) timeout(name string) time.Duration {
	switch name {
	case "ydotool":
		return c.YdotoolTimeout
	case "wtype":
		return c.WtypeTimeout
	default:
		return c.ClipboardTimeout
	}
}

// NewBackend returns the backend for a configured name.
func NewBackend(name string) (Backend, error) {
	switch name {
	case "clipboard":
		return NewClipboardBackend(), nil
	case "wtype":
		return NewWtypeBackend(), nil
	case "ydotool":
		return NewYdotoolBackend(), nil
	default:
		return nil, fmt.Errorf("unknown injection backend: %s", name)
	}
}

// Injector tries each backend in order until one succeeds.
type Injector struct {
	config   Config
	backends []Backend
}

func NewInjector(config Config) (*Injector, error) {
	backends := make([]Backend, 0, len(config.Backends))
	for _, name := range config.Backends {
		b, err := NewBackend(name)
		if err != nil {
			return nil, err
		}
		backends = append(backends, b)
	}
	return NewInjectorWithBackends(config, backends...), nil
}

func NewInjectorWithBackends(config Config, backends ...Backend) *Injector {
	return &Injector{config: config, backends: backends}
}

func (i *Injector) Inject(ctx context.Context, text string) error {
	if text == "" {
		return fmt.Errorf("cannot inject empty text")
	}
	if len(i.backends) == 0 {
		return fmt.Errorf("no injection backends configured")
	}

	var errs []error
	for _, b := range i.backends {
		if err := b.Available(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
			continue
		}
		if err := b.Inject(ctx, text, i.config.timeout(b.Name())); err != nil {
			log.Printf("injection: %s failed: %v", b.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
			continue
		}
		return nil
	}
	return fmt.Errorf("all injection backends failed: %w", errors.Join(errs...))
}

// Paster is the fire-and-forget paste sink used by the orchestrator. Pastes
// are injected one at a time in the order they were queued.
type Paster struct {
	injector  *Injector
	delimiter string
	timeout   time.Duration

	mu      sync.Mutex
	queue   []string
	running bool
	wg      sync.WaitGroup
}

func NewPaster(injector *Injector, config Config) *Paster {
	timeout := config.ClipboardTimeout + config.WtypeTimeout + config.YdotoolTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Paster{injector: injector, delimiter: config.Delimiter, timeout: timeout}
}

// Paste trims trailing whitespace, appends the delimiter and queues the text
// for injection in the background. Empty text is ignored.
func (p *Paster) Paste(text string) {
	text = strings.TrimRight(text, " \t\r\n")
	if text == "" {
		return
	}
	text += p.delimiter

	p.wg.Add(1)
	p.mu.Lock()
	p.queue = append(p.queue, text)
	if !p.running {
		p.running = true
		go p.drain()
	}
	p.mu.Unlock()
}

// drain injects queued texts until the queue is empty. Only one drain runs at
// a time, so a clipboard paste never overlaps the next one.
func (p *Paster) drain() {
	for {
		p.mu.Lock()
		if len(p.queue) == 0 {
			p.running = false
			p.mu.Unlock()
			return
		}
		text := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		p.inject(text)
		p.wg.Done()
	}
}

func (p *Paster) inject(text string) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.injector.Inject(ctx, text); err != nil {
		log.Printf("injection: paste failed: %v", err)
	}
}

// Wait blocks until queued pastes finish.
func (p *Paster) Wait() {
	p.wg.Wait()
}
