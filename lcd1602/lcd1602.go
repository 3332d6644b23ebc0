// Package lcd1602 drives a 16x2 HD44780-family character LCD in 4-bit mode
// through an MCP23008 I2C port expander.
//
// Every operation is a sequence of nibble writes latched by pulses on the
// Enable line, with timing taken from the HD44780U datasheet (5V operation).
// There is no degraded mode: a failed bus transaction or an oversized string
// is a bring-up defect and panics. Callers that need graceful handling must
// validate input ahead of time.
package lcd1602

import (
	"fmt"
	"strings"
	"time"

	"periph.io/x/conn/v3/i2c"

	"github.com/cjm571/diyer-cutter/mcp23008"
)

// DefaultAddr is the bus address of the LCD's expander chip.
const DefaultAddr = 0x20

const (
	maxLineLength = 16
	maxNewlines   = 1

	asciiIntOffset = 48
)

// Expander pin assignment. The high bit switches the display's power rail;
// the rest map onto the HD44780 control and data lines. These positions are
// fixed by the board layout and must never be reinterpreted.
const (
	maskRS  = 0b00000001 // register select: high = data, low = command
	maskRW  = 0b00000010 // read/write: tied low, writes only
	maskEN  = 0b00000100 // enable, latches on the falling edge
	maskD4  = 0b00001000
	maskD5  = 0b00010000
	maskD6  = 0b00100000
	maskD7  = 0b01000000
	maskAll = 0b01111111
	maskPwr = 0b10000000
)

// 5V bus timing characteristics, per the HD44780U datasheet.
const (
	// Power supply rise time.
	tRCC = 10 * time.Millisecond
	// Address set-up time (RS, R/W to E).
	tAS = 40 * time.Microsecond
	// Enable pulse width (high level).
	pwEH = 230 * time.Microsecond
	// Enable cycle time.
	tCycE = 500 * time.Microsecond
)

// Direction selects which way ShiftCursor moves.
type Direction int

const (
	Left Direction = iota
	Right
)

// ContractViolation reports a string that cannot be displayed: a line longer
// than the panel or more than one newline. It is delivered by panic, never
// returned.
type ContractViolation struct {
	Text   string
	Reason string
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("lcd1602: %s in %q", e.Reason, e.Text)
}

// Dev is a handle to the display.
type Dev struct {
	gpio *mcp23008.Dev
}

// New returns a handle to the LCD behind the expander at addr on bus.
func New(bus i2c.Bus, addr uint16) *Dev {
	return &Dev{gpio: mcp23008.New(bus, addr)}
}

// PowerOn raises the display's power rail.
func (d *Dev) PowerOn() {
	d.set(maskPwr)
}

// PowerOff drops the display's power rail.
func (d *Dev) PowerOff() {
	d.clear(maskPwr)
}

// Init walks the controller from power-on to ready: all expander pins to
// output, wait out the supply rise, function set (4-bit, 2-line), display
// and cursor on, entry mode auto-increment. Call once after PowerOn; after
// it returns all write operations are legal repeatedly.
func (d *Dev) Init() {
	// All pins on the LCD's expander are outputs. Preserve the power rail
	// bit by rewriting direction only.
	if err := d.gpio.ConfigureDirection(0x00); err != nil {
		panic(err)
	}

	// Allow time for LCD VCC to rise to 4.5V.
	time.Sleep(tRCC)

	d.set4Bit2LineMode()
	d.setCursor()
	d.setAutoincrement()
}

// DisplayGreeting writes the boot greeting.
func (d *Dev) DisplayGreeting() {
	d.WriteString("HI BABE! <3\nYou so pretty...")
}

// WriteString writes text at the current cursor position. A newline moves
// the cursor to the start of the second line; there is no third line and no
// wrap-around. At most one newline and at most 16 characters per line;
// violating either panics with a ContractViolation.
func (d *Dev) WriteString(text string) {
	lines := strings.Split(text, "\n")
	if len(lines) > maxNewlines+1 {
		panic(&ContractViolation{Text: text, Reason: "too many newlines"})
	}
	for _, line := range lines {
		if len(line) > maxLineLength {
			panic(&ContractViolation{
				Text:   text,
				Reason: fmt.Sprintf("line %q exceeds %d characters", line, maxLineLength),
			})
		}
	}

	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			d.newline()
		} else {
			d.writeChar(text[i])
		}
	}
}

// WriteU32 writes val as 5 zero-padded decimal digits.
func (d *Dev) WriteU32(val uint32) {
	ones := val % 10
	tens := ((val - ones) % 100) / 10
	hundreds := ((val - tens - ones) % 1000) / 100
	thousands := ((val - hundreds - tens - ones) % 10000) / 1000
	tenThousands := (val - thousands - hundreds - tens - ones) / 10000

	for _, digit := range [5]uint32{tenThousands, thousands, hundreds, tens, ones} {
		d.WriteString(string(rune(digit + asciiIntOffset)))
	}
}

// WriteU8 writes val as 3 zero-padded decimal digits.
func (d *Dev) WriteU8(val uint8) {
	ones := val % 10
	tens := ((val - ones) % 100) / 10
	hundreds := (val - tens - ones) / 100

	for _, digit := range [3]uint8{hundreds, tens, ones} {
		d.WriteString(string(rune(uint32(digit) + asciiIntOffset)))
	}
}

// Backspace erases the previous count characters: shift left, overwrite
// with a blank (auto-increment walks the cursor back right), shift left
// again. The cursor ends where the erased character was.
func (d *Dev) Backspace(count int) {
	for i := 0; i < count; i++ {
		d.ShiftCursor(Left, 1)
		d.writeChar(' ')
		d.ShiftCursor(Left, 1)
	}
}

// ClearDisplay blanks the panel and homes the cursor.
func (d *Dev) ClearDisplay() {
	d.resetPins()
	d.pulseEnable()

	d.resetPins()
	d.set(maskD4)
	d.pulseEnable()
}

// ShiftCursor moves the cursor count cells without writing data.
func (d *Dev) ShiftCursor(dir Direction, count int) {
	for i := 0; i < count; i++ {
		d.resetPins()
		d.set(maskD4)
		d.pulseEnable()

		d.resetPins()
		// Left is low, Right is high.
		if dir == Right {
			d.set(maskD6)
		}
		d.pulseEnable()
	}
}

// pulseEnable latches the currently-asserted lines into the controller:
// wait out the address set-up time, hold Enable high for the minimum pulse
// width, then wait out the rest of the enable cycle.
func (d *Dev) pulseEnable() {
	time.Sleep(tAS)
	d.set(maskEN)
	time.Sleep(pwEH)
	d.clear(maskEN)
	time.Sleep(tCycE - pwEH)
}

// resetPins drops every data and control line, so no bit from the previous
// operation leaks into the next one.
func (d *Dev) resetPins() {
	d.clear(maskAll)
}

// set4Bit2LineMode issues the two-phase function set. The first phase is a
// single nibble write that drops the interface to 4-bit mode; the second
// repeats the function set in 4-bit form with 2-line display selected.
func (d *Dev) set4Bit2LineMode() {
	d.resetPins()
	d.set(maskD5)
	d.pulseEnable()

	d.resetPins()
	d.set(maskD5)
	d.pulseEnable()
	d.resetPins()
	d.set(maskD7)
	d.pulseEnable()
}

// setCursor turns the display and cursor on.
func (d *Dev) setCursor() {
	d.resetPins()
	d.pulseEnable()

	d.resetPins()
	d.set(maskD5 | maskD6 | maskD7)
	d.pulseEnable()
}

// setAutoincrement sets entry mode to increment, no display shift.
func (d *Dev) setAutoincrement() {
	d.resetPins()
	d.pulseEnable()

	d.resetPins()
	d.set(maskD5 | maskD6)
	d.pulseEnable()
}

// writeChar writes one character code, high nibble then low nibble, with
// Register-Select held high throughout.
func (d *Dev) writeChar(c byte) {
	d.resetPins()
	d.set(maskRS)
	d.set((c & 0xF0) >> 1) // bits 4-7 land on D4-D7
	d.pulseEnable()

	d.resetPins()
	d.set(maskRS)
	d.set((c & 0x0F) << 3) // bits 0-3 land on D4-D7
	d.pulseEnable()
}

// newline moves the cursor to the start of the second line (DDRAM 0x40).
func (d *Dev) newline() {
	d.resetPins()
	d.set(maskD6 | maskD7)
	d.pulseEnable()

	d.resetPins()
	d.pulseEnable()
}

func (d *Dev) set(mask uint8) {
	if err := d.gpio.SetBits(mask); err != nil {
		panic(err)
	}
}

func (d *Dev) clear(mask uint8) {
	if err := d.gpio.ClearBits(mask); err != nil {
		panic(err)
	}
}
