package cutter

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-test/deep"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/cjm571/diyer-cutter/keypad"
)

// scriptPad replays a fixed sequence of key presses.
type scriptPad struct {
	keys []keypad.Key
	next int
}

func (p *scriptPad) ReadKey() (keypad.Key, bool) {
	if p.next >= len(p.keys) {
		// Out of script; confirm whatever screen is up so a runaway
		// workflow terminates instead of spinning.
		return keypad.KeyPound, true
	}
	k := p.keys[p.next]
	p.next++
	return k, true
}

// logDisplay records the display operations as a flat trace.
type logDisplay struct {
	trace []string
}

func (d *logDisplay) WriteString(text string) { d.trace = append(d.trace, text) }
func (d *logDisplay) WriteU32(val uint32)     { d.trace = append(d.trace, fmt.Sprintf("%05d", val)) }
func (d *logDisplay) Backspace(count int)     { d.trace = append(d.trace, fmt.Sprintf("<bs %d>", count)) }
func (d *logDisplay) ClearDisplay()           { d.trace = append(d.trace, "<clear>") }

func (d *logDisplay) contains(s string) bool {
	for _, e := range d.trace {
		if e == s {
			return true
		}
	}
	return false
}

type countBlade struct {
	cuts int
	err  error
}

func (b *countBlade) Cut() error {
	if b.err != nil {
		return b.err
	}
	b.cuts++
	return nil
}

func newController(keys ...keypad.Key) (*Controller, *logDisplay, *countBlade) {
	lcd := &logDisplay{}
	blade := &countBlade{}
	log, _ := test.NewNullLogger()
	return &Controller{
		LCD:          lcd,
		Pad:          &scriptPad{keys: keys},
		Blade:        blade,
		Log:          log,
		PollInterval: time.Nanosecond,
	}, lcd, blade
}

func TestRunOnce(t *testing.T) {
	ctl, lcd, blade := newController(
		keypad.Key4, keypad.Key2, keypad.KeyPound, // length 42
		keypad.Key3, keypad.KeyPound, // count 3
		keypad.KeyPound, // confirm
		keypad.KeyPound, // dismiss done screen
	)
	if err := ctl.RunOnce(); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if blade.cuts != 3 {
		t.Errorf("blade cut %d times, want 3", blade.cuts)
	}

	for _, want := range []string{
		"CUT LENGTH (in):\n-> ",
		"4", "2",
		"CUT COUNT:\n-> ",
		"3",
		"00042", "00003",
		"DONE!\n# = NEW ORDER",
	} {
		if !lcd.contains(want) {
			t.Errorf("display trace missing %q:\n%s", want, strings.Join(lcd.trace, "|"))
		}
	}
}

func TestPromptBackspace(t *testing.T) {
	ctl, lcd, blade := newController(
		keypad.Key1, keypad.Key9, keypad.KeyStar, keypad.Key2, keypad.KeyPound, // 19 -> 12
		keypad.Key1, keypad.KeyPound, // count 1
		keypad.KeyStar, // cancel at confirmation
	)
	if err := ctl.RunOnce(); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if blade.cuts != 0 {
		t.Errorf("cancelled order still cut %d times", blade.cuts)
	}
	if !lcd.contains("<bs 1>") {
		t.Error("backspace never reached the display")
	}
	// The confirmation screen shows the corrected value.
	if !lcd.contains("00012") {
		t.Errorf("confirmation shows wrong length:\n%s", strings.Join(lcd.trace, "|"))
	}
}

// '#' with an empty entry and digits beyond the display width are ignored.
func TestPromptInputLimits(t *testing.T) {
	ctl, lcd, blade := newController(
		keypad.KeyPound, keypad.KeyStar, // ignored: nothing entered yet
		keypad.Key1, keypad.Key2, keypad.Key3, keypad.Key4, keypad.Key5,
		keypad.Key6, // ignored: already 5 digits
		keypad.KeyPound,
		keypad.Key1, keypad.KeyPound,
		keypad.KeyStar, // cancel
	)
	if err := ctl.RunOnce(); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if blade.cuts != 0 {
		t.Errorf("cancelled order still cut %d times", blade.cuts)
	}
	var echoed []string
	for _, e := range lcd.trace {
		if len(e) == 1 && e[0] >= '0' && e[0] <= '9' {
			echoed = append(echoed, e)
		}
	}
	// Five length digits (the sixth dropped) then the count's single digit.
	want := []string{"1", "2", "3", "4", "5", "1"}
	if diff := deep.Equal(echoed, want); diff != nil {
		t.Error(diff)
	}
}

func TestBladeFailureStopsRun(t *testing.T) {
	ctl, _, blade := newController(
		keypad.Key1, keypad.KeyPound,
		keypad.Key1, keypad.KeyPound,
		keypad.KeyPound,
	)
	blade.err = errors.New("jammed")
	if err := ctl.RunOnce(); !errors.Is(err, blade.err) {
		t.Fatalf("RunOnce = %v, want blade error", err)
	}
}
