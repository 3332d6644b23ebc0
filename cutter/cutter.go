// Package cutter runs the cut-length/cut-count workflow: prompt for a length
// and a count on the LCD, read them from the keypad, confirm, then drive the
// blade once per cut.
//
// Keypad conventions: digits enter a value, '*' erases the last digit, '#'
// confirms. Values are capped at 5 digits, matching the display format.
package cutter

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cjm571/diyer-cutter/keypad"
)

// Display is the slice of the LCD driver the workflow needs.
type Display interface {
	WriteString(text string)
	WriteU32(val uint32)
	Backspace(count int)
	ClearDisplay()
}

// Keypad yields debounced key presses. ReadKey returns false when no key is
// down at call time.
type Keypad interface {
	ReadKey() (keypad.Key, bool)
}

// Actuator performs one complete cut cycle.
type Actuator interface {
	Cut() error
}

const (
	maxDigits = 5

	// Poll cadence between keypad reads while idle at a prompt.
	defaultPollInterval = 10 * time.Millisecond
)

// Controller owns one pass through the workflow. LCD, Pad and Blade must be
// initialized before use; the controller never touches the bus directly.
type Controller struct {
	LCD   Display
	Pad   Keypad
	Blade Actuator
	Log   *logrus.Logger

	// PollInterval overrides the keypad poll cadence; zero means the
	// default 10ms.
	PollInterval time.Duration
}

// Run loops the workflow until the actuator fails.
func (c *Controller) Run() error {
	for {
		if err := c.RunOnce(); err != nil {
			return err
		}
	}
}

// RunOnce prompts for a length and a count, confirms, and performs the cuts.
// A cancelled confirmation returns nil without cutting.
func (c *Controller) RunOnce() error {
	length := c.promptValue("CUT LENGTH (in):")
	count := c.promptValue("CUT COUNT:")

	if !c.confirm(length, count) {
		c.Log.Info("order cancelled at confirmation")
		return nil
	}

	for i := uint32(1); i <= count; i++ {
		c.LCD.ClearDisplay()
		c.LCD.WriteString("CUTTING...\n")
		c.LCD.WriteU32(i)
		c.LCD.WriteString(" of ")
		c.LCD.WriteU32(count)

		c.Log.WithFields(logrus.Fields{
			"cut":       i,
			"of":        count,
			"length_in": length,
		}).Info("cutting")

		if err := c.Blade.Cut(); err != nil {
			return err
		}
	}

	c.LCD.ClearDisplay()
	c.LCD.WriteString("DONE!\n# = NEW ORDER")
	c.waitFor(keypad.KeyPound)
	return nil
}

// promptValue displays prompt on line 1 and collects digits after "-> " on
// line 2 until '#' confirms a non-empty entry.
func (c *Controller) promptValue(prompt string) uint32 {
	c.LCD.ClearDisplay()
	c.LCD.WriteString(prompt + "\n-> ")

	var value uint32
	var digits int
	for {
		key := c.nextKey()
		switch {
		case key == keypad.KeyPound:
			if digits > 0 {
				c.Log.WithField("value", value).Debug("entry confirmed")
				return value
			}
		case key == keypad.KeyStar:
			if digits > 0 {
				c.LCD.Backspace(1)
				value /= 10
				digits--
			}
		default:
			if d, ok := key.Digit(); ok && digits < maxDigits {
				c.LCD.WriteString(key.String())
				value = value*10 + d
				digits++
			}
		}
	}
}

// confirm shows the order summary and waits for '#' (go) or '*' (cancel).
func (c *Controller) confirm(length, count uint32) bool {
	c.LCD.ClearDisplay()
	c.LCD.WriteU32(length)
	c.LCD.WriteString("in x ")
	c.LCD.WriteU32(count)
	c.LCD.WriteString("\n# = GO  * = NO")

	for {
		switch c.nextKey() {
		case keypad.KeyPound:
			return true
		case keypad.KeyStar:
			return false
		}
	}
}

// waitFor blocks until the given key is pressed.
func (c *Controller) waitFor(want keypad.Key) {
	for c.nextKey() != want {
	}
}

// nextKey blocks until a debounced key press arrives.
func (c *Controller) nextKey() keypad.Key {
	poll := c.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	for {
		if key, ok := c.Pad.ReadKey(); ok {
			return key
		}
		time.Sleep(poll)
	}
}
