// Package keyhook reads global key events from the OS and turns them into hotkey edges.
package keyhook

import (
	"log"
	"strings"
	"sync"

	hook "github.com/robotn/gohook"

	"github.com/voicewin/voicewin/internal/hotkey"
)

// libuiohook modifier mask bits as reported in hook.Event.Mask.
const (
	maskShiftL uint16 = 1 << 0
	maskCtrlL  uint16 = 1 << 1
	maskMetaL  uint16 = 1 << 2
	maskAltL   uint16 = 1 << 3
	maskShiftR uint16 = 1 << 4
	maskCtrlR  uint16 = 1 << 5
	maskMetaR  uint16 = 1 << 6
	maskAltR   uint16 = 1 << 7
)

// Lookup resolves a key name ("ralt", "f9", "space") to a hook key code.
func Lookup(name string) (uint16, bool) {
	code, ok := hook.Keycode[strings.ToLower(name)]
	return code, ok
}

// Modifiers converts a hook modifier mask to the hotkey bitset; left and right
// variants are treated alike.
func Modifiers(mask uint16) hotkey.Modifiers {
	var m hotkey.Modifiers
	if mask&(maskCtrlL|maskCtrlR) != 0 {
		m |= hotkey.ModCtrl
	}
	if mask&(maskAltL|maskAltR) != 0 {
		m |= hotkey.ModAlt
	}
	if mask&(maskShiftL|maskShiftR) != 0 {
		m |= hotkey.ModShift
	}
	if mask&(maskMetaL|maskMetaR) != 0 {
		m |= hotkey.ModMeta
	}
	return m
}

// toEdge maps press and release events; everything else (typed characters,
// mouse) is dropped.
func toEdge(ev hook.Event) (hotkey.Edge, bool) {
	switch ev.Kind {
	case hook.KeyHold:
		return hotkey.Edge{Key: ev.Keycode, Modifiers: Modifiers(ev.Mask), Down: true}, true
	case hook.KeyUp:
		return hotkey.Edge{Key: ev.Keycode, Modifiers: Modifiers(ev.Mask), Down: false}, true
	}
	return hotkey.Edge{}, false
}

// Source owns the process-wide keyboard hook. Only one may run at a time.
type Source struct {
	edges chan hotkey.Edge
	done  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

// Start installs the hook and begins forwarding edges.
func Start() *Source {
	s := &Source{
		edges: make(chan hotkey.Edge, 64),
		done:  make(chan struct{}),
	}
	events := hook.Start()
	log.Printf("keyhook: global keyboard hook started")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(s.edges)
		for {
			select {
			case <-s.done:
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				edge, ok := toEdge(ev)
				if !ok {
					continue
				}
				select {
				case s.edges <- edge:
				case <-s.done:
					return
				}
			}
		}
	}()
	return s
}

// Edges is closed after Stop.
func (s *Source) Edges() <-chan hotkey.Edge {
	return s.edges
}

func (s *Source) Stop() {
	s.once.Do(func() {
		close(s.done)
		hook.End()
		s.wg.Wait()
		log.Printf("keyhook: global keyboard hook stopped")
	})
}
