// Package keypad scans a 3x4 matrix keypad attached to an MCP23008 I2C port
// expander. The three column lines are expander outputs, the four row lines
// are inputs; a scan drives each column in turn and reads the rows back.
package keypad

import (
	"time"

	"periph.io/x/conn/v3/i2c"

	"github.com/cjm571/diyer-cutter/mcp23008"
)

// DefaultAddr is the bus address of the keypad's expander chip.
const DefaultAddr = 0x21

// Expander pin assignment, fixed by the board layout.
const (
	maskC2 = 0b00000001
	maskR1 = 0b00000010
	maskC1 = 0b00000100
	maskR4 = 0b00001000
	maskC3 = 0b00010000
	maskR3 = 0b00100000
	maskR2 = 0b01000000

	maskAllCols = maskC1 | maskC2 | maskC3
	maskAllRows = maskR1 | maskR2 | maskR3 | maskR4
)

// Interval between re-scans while waiting for a detected key to be released.
const debounceInterval = 250 * time.Microsecond

// Key identifies one key on the keypad. Each key is a distinct bit so a
// PressedKeys set is the union of its keys.
type Key uint16

const (
	Key1 Key = 1 << iota
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeyStar
	Key0
	KeyPound
)

// Rune returns the keypad legend for k.
func (k Key) Rune() rune {
	switch k {
	case Key1:
		return '1'
	case Key2:
		return '2'
	case Key3:
		return '3'
	case Key4:
		return '4'
	case Key5:
		return '5'
	case Key6:
		return '6'
	case Key7:
		return '7'
	case Key8:
		return '8'
	case Key9:
		return '9'
	case KeyStar:
		return '*'
	case Key0:
		return '0'
	case KeyPound:
		return '#'
	}
	return '?'
}

func (k Key) String() string {
	return string(k.Rune())
}

// Digit returns the numeric value of k, or false for * and #.
func (k Key) Digit() (uint32, bool) {
	switch k {
	case Key0:
		return 0, true
	case Key1:
		return 1, true
	case Key2:
		return 2, true
	case Key3:
		return 3, true
	case Key4:
		return 4, true
	case Key5:
		return 5, true
	case Key6:
		return 6, true
	case Key7:
		return 7, true
	case Key8:
		return 8, true
	case Key9:
		return 9, true
	}
	return 0, false
}

// PressedKeys is the set of keys detected during one scan. It is created
// fresh per scan and carries no history.
type PressedKeys uint16

func (p PressedKeys) Has(k Key) bool {
	return uint16(p)&uint16(k) != 0
}

func (p PressedKeys) Empty() bool {
	return p == 0
}

// Keys lists the set in column-sweep order (1 4 7 * 2 5 8 0 3 6 9 #).
func (p PressedKeys) Keys() []Key {
	var keys []Key
	for _, k := range scanOrder {
		if p.Has(k) {
			keys = append(keys, k)
		}
	}
	return keys
}

func (p *PressedKeys) add(k Key) {
	*p |= PressedKeys(k)
}

// sweeps maps each driven column to the key on each row line, matching the
// physical keypad legend:
//
//	C1: 1 4 7 *
//	C2: 2 5 8 0
//	C3: 3 6 9 #
var sweeps = [3]struct {
	col  uint8
	keys [4]Key // R1, R2, R3, R4
}{
	{maskC1, [4]Key{Key1, Key4, Key7, KeyStar}},
	{maskC2, [4]Key{Key2, Key5, Key8, Key0}},
	{maskC3, [4]Key{Key3, Key6, Key9, KeyPound}},
}

var rowMasks = [4]uint8{maskR1, maskR2, maskR3, maskR4}

var scanOrder = [12]Key{
	Key1, Key4, Key7, KeyStar,
	Key2, Key5, Key8, Key0,
	Key3, Key6, Key9, KeyPound,
}

// Dev is a handle to the keypad.
type Dev struct {
	gpio *mcp23008.Dev
}

// New returns a handle to the keypad behind the expander at addr on bus.
func New(bus i2c.Bus, addr uint16) *Dev {
	return &Dev{gpio: mcp23008.New(bus, addr)}
}

// Init configures the row pins as inputs and leaves the column pins as
// outputs. Call once before scanning.
func (d *Dev) Init() {
	if err := d.gpio.ConfigureDirection(maskAllRows); err != nil {
		panic(err)
	}
}

// Scan sweeps the columns once and returns every key currently pressed.
// Each column is driven and the rows read back before the next column is
// driven; a bus failure panics.
func (d *Dev) Scan() PressedKeys {
	var pressed PressedKeys
	for _, sweep := range sweeps {
		if err := d.gpio.WriteGPIO(sweep.col); err != nil {
			panic(err)
		}
		rows, err := d.gpio.ReadGPIO()
		if err != nil {
			panic(err)
		}
		for i, mask := range rowMasks {
			if rows&mask != 0 {
				pressed.add(sweep.keys[i])
			}
		}
	}
	return pressed
}

// ReadKey performs one debounced key read. If nothing is pressed it returns
// (0, false) immediately. Otherwise it re-scans every 250µs until no key
// registers, then returns the first key from the original detection.
//
// There is no timeout: a key held down forever blocks ReadKey forever.
func (d *Dev) ReadKey() (Key, bool) {
	pressed := d.Scan()
	if pressed.Empty() {
		return 0, false
	}

	// Wait for physical release before reporting, so one press is one event.
	for !d.Scan().Empty() {
		time.Sleep(debounceInterval)
	}

	return pressed.Keys()[0], true
}
