// Package daemon wires configuration, capture, transcription and the control
// socket into the long-running voicewin process.
package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/voicewin/voicewin/internal/bus"
	"github.com/voicewin/voicewin/internal/config"
	"github.com/voicewin/voicewin/internal/events"
	"github.com/voicewin/voicewin/internal/history"
	"github.com/voicewin/voicewin/internal/hotkey"
	"github.com/voicewin/voicewin/internal/injection"
	"github.com/voicewin/voicewin/internal/keyhook"
	"github.com/voicewin/voicewin/internal/llm"
	"github.com/voicewin/voicewin/internal/notify"
	"github.com/voicewin/voicewin/internal/orchestrator"
	"github.com/voicewin/voicewin/internal/pipeline"
	"github.com/voicewin/voicewin/internal/recording"
	"github.com/voicewin/voicewin/internal/recording/portaudio"
	"github.com/voicewin/voicewin/internal/streaming"
	"github.com/voicewin/voicewin/internal/transcriber"
	"github.com/voicewin/voicewin/internal/vad"
)

// Version is reported by the version command; set at build time.
var Version = "dev"

const defaultHistoryCount = 10

type capturer interface {
	orchestrator.Capturer
	Close() error
}

type paster interface {
	orchestrator.Paster
	Wait()
}

type edgeSource interface {
	Edges() <-chan hotkey.Edge
	Stop()
}

// parts are the swappable collaborators; New builds the real ones.
type parts struct {
	capturer   capturer
	processor  orchestrator.Processor
	paster     paster
	newSession orchestrator.SessionFactory
	notifier   notify.Notifier
	store      *history.Store
	lookup     hotkey.KeyLookup
	startHook  func() edgeSource
}

type Daemon struct {
	events.Base

	cfg    *config.Manager
	dir    string
	parts  parts
	orch   *orchestrator.Orchestrator
	events *events.Broadcaster
	notes  *notify.Observer

	// machine is only touched by the input goroutine (RequestReset excepted).
	machine  *hotkey.Machine
	triggers chan bool
	bindings chan hotkey.Binding

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	statusMu   sync.Mutex
	lastStatus string
}

// New builds a daemon from the current configuration. dir holds the control
// socket and PID file.
func New(cfg *config.Manager, dir string) (*Daemon, error) {
	c := cfg.GetConfig()

	rc := c.ToRecordingConfig()
	var device recording.Device
	switch rc.Backend {
	case "portaudio":
		device = portaudio.New(rc)
	default:
		device = recording.NewPipeWire(rc)
	}

	ic := c.ToInjectionConfig()
	injector, err := injection.NewInjector(ic)
	if err != nil {
		return nil, err
	}

	notifier := notify.Notifier(notify.Nop{})
	if c.Notifications.Enabled {
		if notifier, err = notify.New(c.Notifications.Type); err != nil {
			return nil, err
		}
	}

	var store *history.Store
	if c.History.Enabled {
		store, err = openHistory(c)
		if err != nil {
			log.Printf("daemon: history disabled: %v", err)
		}
	}

	return newDaemon(cfg, dir, parts{
		capturer:  recording.NewCapturer(device),
		processor: pipeline.New(transcriber.NewRegistry(), llm.NewRegistry(), vad.NewTrimmer(vad.NewEnergyClassifier())),
		paster:    injection.NewPaster(injector, ic),
		newSession: func(h streaming.Handlers) orchestrator.Session {
			return streaming.NewSession(streaming.DefaultConfig(), h)
		},
		notifier:  notifier,
		store:     store,
		lookup:    keyhook.Lookup,
		startHook: func() edgeSource { return keyhook.Start() },
	})
}

func openHistory(c *config.Config) (*history.Store, error) {
	dir, err := c.HistoryDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return history.Open(dir, c.History.Limit)
}

func newDaemon(cfg *config.Manager, dir string, p parts) (*Daemon, error) {
	c := cfg.GetConfig()
	binding, err := c.HotkeyBinding(p.lookup)
	if err != nil {
		if c.Hotkey.Enabled {
			return nil, fmt.Errorf("invalid hotkey: %w", err)
		}
		mode, _ := hotkey.ParseMode(c.Hotkey.Mode)
		binding = hotkey.Binding{Mode: mode}
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Daemon{
		cfg:      cfg,
		dir:      dir,
		parts:    p,
		events:   events.NewBroadcaster(),
		notes:    notify.NewObserver(p.notifier),
		machine:  hotkey.NewMachine(binding),
		triggers: make(chan bool, 8),
		bindings: make(chan hotkey.Binding, 1),
		ctx:      ctx,
		cancel:   cancel,
	}

	d.events.Subscribe(d)
	d.events.Subscribe(d.notes)
	if p.store != nil {
		d.events.Subscribe(history.NewRecorder(p.store))
	}

	d.orch = orchestrator.New(orchestrator.Config{
		Capturer:   p.capturer,
		NewSession: p.newSession,
		Processor:  p.processor,
		Paster:     p.paster,
		Observer:   d.events,
		Settings: func() orchestrator.Settings {
			return d.cfg.GetConfig().ToOrchestratorSettings()
		},
		OnAutoStop: d.machine.RequestReset,
	})

	cfg.OnChange(d.configChanged)
	return d, nil
}

// StatusChanged keeps the last status line for the status command.
func (d *Daemon) StatusChanged(status string) {
	d.statusMu.Lock()
	d.lastStatus = status
	d.statusMu.Unlock()
}

func (d *Daemon) configChanged(c *config.Config) {
	b, err := c.HotkeyBinding(d.parts.lookup)
	if err != nil {
		log.Printf("daemon: keeping previous hotkey: %v", err)
		return
	}
	// keep only the newest binding for the input goroutine
	select {
	case <-d.bindings:
	default:
	}
	d.bindings <- b
}

func (d *Daemon) Run() error {
	if err := bus.CheckExistingDaemon(d.dir); err != nil {
		return err
	}

	ln, err := bus.Listen(d.dir)
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := bus.CreatePidFile(d.dir); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer bus.RemovePidFile(d.dir)
	defer d.shutdown()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			log.Printf("daemon: received signal %v, shutting down", sig)
			d.cancel()
		case <-d.ctx.Done():
		}
	}()

	c := d.cfg.GetConfig()
	if c.Recording.Backend == "pipewire" {
		if err := recording.CheckPipeWire(d.ctx); err != nil {
			log.Printf("daemon: warning: %v", err)
		}
	}

	if err := d.cfg.StartWatching(d.ctx); err != nil {
		log.Printf("daemon: config hot reload disabled: %v", err)
	}
	defer d.cfg.Stop()

	var edges <-chan hotkey.Edge
	if c.Hotkey.Enabled && d.parts.startHook != nil {
		src := d.parts.startHook()
		defer src.Stop()
		edges = src.Edges()
	}

	d.wg.Add(1)
	go d.inputLoop(edges)

	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()

	log.Printf("daemon: started, listening on %s", bus.SockPath(d.dir))
	for {
		conn, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				log.Printf("daemon: shutdown requested")
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}
		go d.handle(conn)
	}
}

func (d *Daemon) shutdown() {
	d.cancel()
	d.wg.Wait()
	d.orch.Close()
	d.parts.paster.Wait()
	d.notes.Wait()
	if err := d.parts.capturer.Close(); err != nil {
		log.Printf("daemon: close capturer: %v", err)
	}
	if d.parts.store != nil {
		if err := d.parts.store.Close(); err != nil {
			log.Printf("daemon: close history: %v", err)
		}
	}
}

// inputLoop is the only goroutine that drives the hotkey machine.
func (d *Daemon) inputLoop(edges <-chan hotkey.Edge) {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case e, ok := <-edges:
			if !ok {
				edges = nil
				continue
			}
			d.dispatch(d.machine.Handle(e))
		case down := <-d.triggers:
			d.dispatch(d.machine.Trigger(down))
		case b := <-d.bindings:
			d.machine.SetBinding(b)
			log.Printf("daemon: hotkey updated: key=%d modifiers=%s mode=%s", b.Key, b.Modifiers, b.Mode)
		}
	}
}

func (d *Daemon) dispatch(ev hotkey.Event, ok bool) {
	if !ok {
		return
	}
	switch ev {
	case hotkey.Engage:
		d.orch.Engage()
	case hotkey.Disengage:
		d.orch.Disengage()
	}
}

func (d *Daemon) trigger(down bool) bool {
	select {
	case d.triggers <- down:
		return true
	case <-d.ctx.Done():
		return false
	}
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()
	_ = c.SetDeadline(time.Now().Add(10 * time.Second))

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		log.Printf("daemon: client read error: %v", err)
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	cmd, arg, ok := bus.ParseCommand(line)
	if !ok {
		fmt.Fprint(c, "ERR empty\n")
		return
	}

	switch cmd {
	case bus.CmdToggle:
		d.orch.Toggle()
		fmt.Fprint(c, "OK toggled\n")
	case bus.CmdPress:
		d.trigger(true)
		fmt.Fprint(c, "OK pressed\n")
	case bus.CmdRelease:
		d.trigger(false)
		fmt.Fprint(c, "OK released\n")
	case bus.CmdStatus:
		d.statusMu.Lock()
		last := d.lastStatus
		d.statusMu.Unlock()
		fmt.Fprintf(c, "STATUS status=%s last=%q\n", d.orch.State(), last)
	case bus.CmdVersion:
		fmt.Fprintf(c, "STATUS proto=%s version=%s\n", bus.ProtoVer, Version)
	case bus.CmdHistory:
		d.replyHistory(c, arg)
	case bus.CmdQuit:
		fmt.Fprint(c, "OK quitting\n")
		d.cancel()
	default:
		log.Printf("daemon: unknown command: %c", cmd)
		fmt.Fprintf(c, "ERR unknown=%q\n", cmd)
	}
}

func (d *Daemon) replyHistory(c net.Conn, arg string) {
	if d.parts.store == nil {
		fmt.Fprint(c, "ERR history disabled\n")
		return
	}
	n := defaultHistoryCount
	if arg != "" {
		v, err := strconv.Atoi(arg)
		if err != nil || v < 0 {
			fmt.Fprintf(c, "ERR invalid count %q\n", arg)
			return
		}
		n = v
	}
	entries, err := d.parts.store.List(n)
	if err != nil {
		fmt.Fprintf(c, "ERR %v\n", err)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		fmt.Fprintf(c, "ERR %v\n", err)
		return
	}
	fmt.Fprintf(c, "OK %s\n", data)
}
