package hotkey

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestMachine(mode Mode, mods Modifiers) (*Machine, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	m := NewMachine(Binding{Key: 42, Modifiers: mods, Mode: mode})
	m.now = clock.now
	return m, clock
}

type step struct {
	down    bool
	advance time.Duration
	want    Event // 0 means no event
}

func run(t *testing.T, m *Machine, clock *fakeClock, steps []step) {
	t.Helper()
	for i, s := range steps {
		clock.advance(s.advance)
		ev, ok := m.Handle(Edge{Key: 42, Down: s.down})
		if s.want == 0 {
			if ok {
				t.Fatalf("step %d: got %v, want no event", i, ev)
			}
			continue
		}
		if !ok || ev != s.want {
			t.Fatalf("step %d: got (%v, %v), want %v", i, ev, ok, s.want)
		}
	}
}

func TestMachine_Hold(t *testing.T) {
	m, clock := newTestMachine(ModeHold, ModNone)
	run(t, m, clock, []step{
		{down: true, want: Engage},
		{down: true, want: 0}, // auto-repeat
		{down: true, want: 0},
		{down: false, advance: time.Second, want: Disengage},
		{down: false, want: 0},
		{down: true, want: Engage},
		{down: false, want: Disengage},
	})
}

func TestMachine_HoldAlternates(t *testing.T) {
	m, clock := newTestMachine(ModeHold, ModNone)
	var events []Event
	for i := 0; i < 50; i++ {
		clock.advance(10 * time.Millisecond)
		if ev, ok := m.Handle(Edge{Key: 42, Down: i%3 != 2}); ok {
			events = append(events, ev)
		}
	}
	for i, ev := range events {
		want := Engage
		if i%2 == 1 {
			want = Disengage
		}
		if ev != want {
			t.Fatalf("event %d = %v, want %v (events %v)", i, ev, want, events)
		}
	}
}

func TestMachine_Toggle(t *testing.T) {
	m, clock := newTestMachine(ModeToggle, ModNone)
	run(t, m, clock, []step{
		{down: true, want: Engage},
		{down: true, want: 0},
		{down: false, want: 0},
		{down: true, advance: 3 * time.Second, want: Disengage},
		{down: false, want: 0},
		{down: true, want: Engage},
		{down: false, want: 0},
	})
}

func TestMachine_Hybrid(t *testing.T) {
	tests := []struct {
		name  string
		steps []step
	}{
		{
			name: "long hold behaves like push to talk",
			steps: []step{
				{down: true, want: Engage},
				{down: false, advance: 300 * time.Millisecond, want: Disengage},
			},
		},
		{
			name: "exact threshold disengages",
			steps: []step{
				{down: true, want: Engage},
				{down: false, advance: HybridHoldThreshold, want: Disengage},
			},
		},
		{
			name: "short tap latches",
			steps: []step{
				{down: true, want: Engage},
				{down: false, advance: 100 * time.Millisecond, want: 0},
			},
		},
		{
			name: "second tap after latch disengages",
			steps: []step{
				{down: true, want: Engage},
				{down: false, advance: 100 * time.Millisecond, want: 0},
				{down: true, advance: 2 * time.Second, want: 0},
				{down: false, advance: 50 * time.Millisecond, want: Disengage},
				{down: true, want: Engage},
			},
		},
		{
			name: "second long hold after latch disengages",
			steps: []step{
				{down: true, want: Engage},
				{down: false, advance: 100 * time.Millisecond, want: 0},
				{down: true, advance: time.Second, want: 0},
				{down: false, advance: time.Second, want: Disengage},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, clock := newTestMachine(ModeHybrid, ModNone)
			run(t, m, clock, tt.steps)
		})
	}
}

func TestMachine_ModifierFilter(t *testing.T) {
	tests := []struct {
		name string
		held Modifiers
		want bool
	}{
		{"exact modifiers", ModCtrl | ModShift, true},
		{"extra modifier held", ModCtrl | ModShift | ModAlt, true},
		{"missing one modifier", ModCtrl, false},
		{"no modifiers", ModNone, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestMachine(ModeHold, ModCtrl|ModShift)
			_, ok := m.Handle(Edge{Key: 42, Modifiers: tt.held, Down: true})
			if ok != tt.want {
				t.Errorf("Handle() emitted = %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestMachine_IgnoresOtherKeys(t *testing.T) {
	m, _ := newTestMachine(ModeHold, ModNone)
	if _, ok := m.Handle(Edge{Key: 7, Down: true}); ok {
		t.Fatal("non-trigger key should be ignored")
	}
	if _, ok := m.Handle(Edge{Key: 42, Down: false}); ok {
		t.Fatal("key up without key down should be ignored")
	}
}

func TestMachine_RequestReset(t *testing.T) {
	tests := []struct {
		name   string
		mode   Mode
		before []step
		after  []step
	}{
		{
			name:   "toggle latch cleared",
			mode:   ModeToggle,
			before: []step{{down: true, want: Engage}, {down: false, want: 0}},
			// the latch was cleared, so the next press engages again
			after: []step{{down: true, want: Engage}},
		},
		{
			name:   "hold key repeat does not re-engage",
			mode:   ModeHold,
			before: []step{{down: true, want: Engage}},
			after: []step{
				{down: true, want: 0},
				{down: true, want: 0},
				{down: false, want: Disengage},
				{down: true, want: Engage},
			},
		},
		{
			name:   "hybrid long hold key repeat does not re-engage",
			mode:   ModeHybrid,
			before: []step{{down: true, want: Engage}, {down: true, advance: time.Second, want: 0}},
			after: []step{
				{down: true, want: 0},
				{down: false, want: Disengage},
				{down: true, want: Engage},
			},
		},
		{
			name:   "toggle held key repeat does not re-engage",
			mode:   ModeToggle,
			before: []step{{down: true, want: Engage}},
			after: []step{
				{down: true, want: 0},
				{down: false, want: 0},
				{down: true, want: Engage},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, clock := newTestMachine(tt.mode, ModNone)
			run(t, m, clock, tt.before)
			m.RequestReset()
			run(t, m, clock, tt.after)
		})
	}
}

func TestParseBinding(t *testing.T) {
	lookup := func(name string) (uint16, bool) {
		codes := map[string]uint16{"ralt": 3640, "space": 57, "f9": 67}
		c, ok := codes[name]
		return c, ok
	}

	tests := []struct {
		in       string
		wantKey  uint16
		wantMods Modifiers
		wantErr  bool
	}{
		{in: "ralt", wantKey: 3640},
		{in: "Ctrl+Shift+Space", wantKey: 57, wantMods: ModCtrl | ModShift},
		{in: "super+f9", wantKey: 67, wantMods: ModMeta},
		{in: "alt+165", wantKey: 165, wantMods: ModAlt},
		{in: "", wantErr: true},
		{in: "ctrl+", wantErr: true},
		{in: "hyper+space", wantErr: true},
		{in: "nosuchkey", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			b, err := ParseBinding(tt.in, ModeHold, lookup)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseBinding(%q) expected error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseBinding(%q) error = %v", tt.in, err)
			}
			if b.Key != tt.wantKey || b.Modifiers != tt.wantMods || b.Mode != ModeHold {
				t.Errorf("ParseBinding(%q) = %+v, want key=%d mods=%v", tt.in, b, tt.wantKey, tt.wantMods)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"hold", "Toggle", " hybrid "} {
		if _, err := ParseMode(s); err != nil {
			t.Errorf("ParseMode(%q) error = %v", s, err)
		}
	}
	if _, err := ParseMode("press"); err == nil {
		t.Error("ParseMode(press) should fail")
	}
}
